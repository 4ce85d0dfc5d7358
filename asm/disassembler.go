package asm

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/buzzswarm/buzzvm/bytecode"
)

// Disassemble renders a blob (with optional debug map) back into
// .basm text, round-tripping string declarations, a synthetic label
// at every byte offset a jump/closure-target instruction refers to,
// and debug location suffixes where present.
func Disassemble(blob *bytecode.Blob, debug *bytecode.DebugMap, w io.Writer) error {
	code := blob.Code

	// Discover which offsets need a synthetic label by scanning every
	// addr/closure-target operand up front.
	targets := make(map[uint32]bool)
	for off := 0; off < len(code); {
		in, err := bytecode.Decode(code, off)
		if err != nil {
			return err
		}
		if in.Op.Operand() == bytecode.OperandAddr || in.Op == bytecode.PUSHCC {
			targets[in.Uint32()] = true
		}
		off = in.Next()
	}

	bw := newBufWriter(w)
	fmt.Fprintf(bw, "!%d\n", len(blob.Strings))
	for _, s := range blob.Strings {
		fmt.Fprintf(bw, "'%s\n", s)
	}

	labelNames := make(map[uint32]string)
	n := 0
	for off := 0; off < len(code); {
		if targets[uint32(off)] {
			name, ok := labelNames[uint32(off)]
			if !ok {
				name = fmt.Sprintf("L%d", n)
				n++
				labelNames[uint32(off)] = name
			}
			line := "@" + name
			if rec, ok := debug.Lookup(uint32(off)); ok {
				line += fmt.Sprintf("|%d,%d,%s", rec.Line, rec.Col, rec.SrcName)
			}
			fmt.Fprintln(bw, line)
		}
		in, err := bytecode.Decode(code, off)
		if err != nil {
			return err
		}
		line := in.Op.Name()
		if arg := operandText(in, labelNames, off); arg != "" {
			line += " " + arg
		}
		if rec, ok := debug.Lookup(uint32(off)); ok {
			line += fmt.Sprintf("|%d,%d,%s", rec.Line, rec.Col, rec.SrcName)
		}
		fmt.Fprintln(bw, line)
		off = in.Next()
	}
	return bw.Flush()
}

func operandText(in bytecode.Instruction, labelNames map[uint32]string, off int) string {
	switch in.Op.Operand() {
	case bytecode.OperandNone:
		return ""
	case bytecode.OperandInt32:
		return strconv.FormatInt(int64(in.Int32()), 10)
	case bytecode.OperandFloat32:
		return strconv.FormatFloat(float64(in.Float32()), 'g', -1, 32)
	case bytecode.OperandStringID:
		return strconv.FormatUint(uint64(in.StringID()), 10)
	case bytecode.OperandAddr:
		if name, ok := labelNames[in.Uint32()]; ok {
			return name
		}
		return strconv.FormatUint(uint64(in.Uint32()), 10)
	case bytecode.OperandIndex:
		if in.Op == bytecode.PUSHCC {
			if name, ok := labelNames[in.Uint32()]; ok {
				return name
			}
		}
		return strconv.FormatUint(uint64(in.Uint32()), 10)
	default:
		return ""
	}
}

type bufWriter struct {
	w   io.Writer
	sb  strings.Builder
}

func newBufWriter(w io.Writer) *bufWriter { return &bufWriter{w: w} }

func (b *bufWriter) Write(p []byte) (int, error) { return b.sb.Write(p) }

func (b *bufWriter) Flush() error {
	_, err := io.WriteString(b.w, b.sb.String())
	return err
}
