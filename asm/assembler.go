package asm

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/buzzswarm/buzzvm/bytecode"
)

// Result is the output of a successful assembly: the binary blob and
// its companion (possibly empty) debug map.
type Result struct {
	Blob  *bytecode.Blob
	Debug *bytecode.DebugMap
}

type backpatch struct {
	offset int  // byte offset of the instruction whose 4-byte operand is overwritten
	label  string
	line   int
	col    int
}

// Assemble performs the full two-pass assembly of .basm source read
// from r. filename is used only for diagnostics.
func Assemble(r io.Reader, filename string) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var strs []string
	enc := bytecode.NewEncoder()
	debug := &bytecode.DebugMap{}
	labels := make(map[string]uint32)
	var patches []backpatch

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		body, dbg, hasDbg := splitDebugSuffix(line)

		switch {
		case strings.HasPrefix(body, "!"):
			// string count declaration; purely informational since
			// Go slices don't need pre-sizing, but validated for shape.
			if _, err := strconv.Atoi(strings.TrimSpace(body[1:])); err != nil {
				return nil, newErr(MissingArgument, filename, lineNo, 1, "invalid string count %q", body)
			}

		case strings.HasPrefix(body, "'"):
			strs = append(strs, body[1:])

		case strings.HasPrefix(body, "@"):
			name := strings.TrimSpace(body[1:])
			if name == "" {
				return nil, newErr(MissingArgument, filename, lineNo, 1, "label definition missing name")
			}
			labels[name] = uint32(enc.Len())
			if hasDbg {
				recordDebug(debug, uint32(enc.Len()), dbg, filename, lineNo)
			}

		default:
			fields := strings.Fields(body)
			mnemonic := strings.ToLower(fields[0])
			op, ok := bytecode.ByName(mnemonic)
			if !ok {
				return nil, newErr(UnknownOpcode, filename, lineNo, 1, "unknown opcode %q", fields[0])
			}
			var arg string
			if len(fields) > 1 {
				arg = fields[1]
			}
			instrOffset := enc.Len()
			if err := emitInstruction(enc, op, arg, filename, lineNo, &patches); err != nil {
				return nil, err
			}
			if hasDbg {
				recordDebug(debug, uint32(instrOffset), dbg, filename, lineNo)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, newErr(IOError, filename, lineNo, 1, "read error: %v", err)
	}

	code := enc.Bytes()
	for _, p := range patches {
		target, ok := labels[p.label]
		if !ok {
			return nil, newErr(UnknownLabel, filename, p.line, p.col, "unknown label %q", p.label)
		}
		if int(target) >= len(code) {
			return nil, newErr(LabelOutOfRange, filename, p.line, p.col,
				"label %q resolves to offset %d, beyond bytecode size %d", p.label, target, len(code))
		}
		enc.PatchAddr(p.offset, target)
	}

	blob := &bytecode.Blob{Strings: strs, Code: enc.Bytes()}
	return &Result{Blob: blob, Debug: debug}, nil
}

func emitInstruction(enc *bytecode.Encoder, op bytecode.Opcode, arg, filename string, lineNo int, patches *[]backpatch) error {
	kind := op.Operand()
	if kind != bytecode.OperandNone && arg == "" {
		return newErr(MissingArgument, filename, lineNo, 1, "%s requires an argument", op.Name())
	}
	switch kind {
	case bytecode.OperandNone:
		enc.EmitNone(op)
	case bytecode.OperandInt32:
		v, err := strconv.ParseInt(arg, 0, 32)
		if err != nil {
			return newErr(MissingArgument, filename, lineNo, 1, "invalid integer argument %q: %v", arg, err)
		}
		enc.EmitInt32(op, int32(v))
	case bytecode.OperandFloat32:
		v, err := strconv.ParseFloat(arg, 32)
		if err != nil {
			return newErr(MissingArgument, filename, lineNo, 1, "invalid float argument %q: %v", arg, err)
		}
		enc.EmitFloat32(op, float32(v))
	case bytecode.OperandStringID:
		v, err := strconv.ParseUint(arg, 0, 16)
		if err != nil {
			return newErr(MissingArgument, filename, lineNo, 1, "invalid string index %q: %v", arg, err)
		}
		enc.EmitStringID(op, uint16(v))
	case bytecode.OperandAddr:
		if v, err := strconv.ParseUint(arg, 0, 32); err == nil {
			enc.EmitAddr(op, uint32(v))
		} else {
			off := enc.Len()
			enc.EmitAddr(op, 0)
			*patches = append(*patches, backpatch{offset: off, label: arg, line: lineNo, col: 1})
		}
	case bytecode.OperandIndex:
		if v, err := strconv.ParseUint(arg, 0, 32); err == nil {
			enc.EmitIndex(op, uint32(v))
		} else if op == bytecode.PUSHCC {
			// bytecode closure target may be a label
			off := enc.Len()
			enc.EmitIndex(op, 0)
			*patches = append(*patches, backpatch{offset: off, label: arg, line: lineNo, col: 1})
		} else {
			return newErr(MissingArgument, filename, lineNo, 1, "invalid index argument %q", arg)
		}
	}
	return nil
}

// splitDebugSuffix separates an optional trailing "|line,col,file"
// debug-location suffix from the instruction/label body.
func splitDebugSuffix(line string) (body, dbg string, has bool) {
	idx := strings.LastIndex(line, "|")
	if idx < 0 {
		return line, "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

func recordDebug(dm *bytecode.DebugMap, offset uint32, dbg, filename string, asmLine int) {
	parts := strings.SplitN(dbg, ",", 3)
	rec := bytecode.DebugRecord{Offset: offset, SrcName: filename}
	if len(parts) > 0 {
		if v, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64); err == nil {
			rec.Line = v
		}
	}
	if len(parts) > 1 {
		if v, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64); err == nil {
			rec.Col = v
		}
	}
	if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
		rec.SrcName = strings.TrimSpace(parts[2])
	}
	dm.Records = append(dm.Records, rec)
}
