package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Blob is an assembled, immutable bytecode container: a string table
// followed by an opcode stream, matching the .bo layout in §4.E.
// Floats are little-endian IEEE-754, integers little-endian two's
// complement, strings zero-terminated UTF-8, exactly as specified.
type Blob struct {
	Strings []string
	Code    []byte
}

// Size returns the byte length of the code stream, the bound that
// jump targets and closure offsets must stay within.
func (b *Blob) Size() int { return len(b.Code) }

// WriteTo encodes the blob into w in .bo format.
func (b *Blob) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if len(b.Strings) > 0xFFFF {
		return 0, fmt.Errorf("bytecode: too many strings (%d > 65535)", len(b.Strings))
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(b.Strings))); err != nil {
		return 0, err
	}
	for _, s := range b.Strings {
		buf.WriteString(s)
		buf.WriteByte(0)
	}
	buf.Write(b.Code)
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// ReadBlob decodes a .bo container from r.
func ReadBlob(r io.Reader) (*Blob, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < 2 {
		return nil, fmt.Errorf("bytecode: truncated header")
	}
	count := binary.LittleEndian.Uint16(data[:2])
	pos := 2
	strs := make([]string, 0, count)
	for i := 0; i < int(count); i++ {
		start := pos
		for pos < len(data) && data[pos] != 0 {
			pos++
		}
		if pos >= len(data) {
			return nil, fmt.Errorf("bytecode: unterminated string at offset %d", start)
		}
		strs = append(strs, string(data[start:pos]))
		pos++ // skip the zero terminator
	}
	return &Blob{Strings: strs, Code: data[pos:]}, nil
}

// Instruction is a single decoded instruction: its opcode, byte
// offset, and raw little-endian-encoded operand bytes.
type Instruction struct {
	Offset  int
	Op      Opcode
	Operand []byte
}

// Int32 decodes the operand as a little-endian int32.
func (in Instruction) Int32() int32 {
	return int32(binary.LittleEndian.Uint32(in.Operand))
}

// Float32 decodes the operand as a little-endian IEEE-754 float32.
func (in Instruction) Float32() float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(in.Operand))
}

// Uint32 decodes the operand as a little-endian uint32.
func (in Instruction) Uint32() uint32 {
	return binary.LittleEndian.Uint32(in.Operand)
}

// StringID decodes the operand as a little-endian uint16 string id.
func (in Instruction) StringID() uint16 {
	return binary.LittleEndian.Uint16(in.Operand)
}

// Decode reads a single instruction at offset off in code. It returns
// an error if off points outside the stream, the opcode is unknown, or
// the operand runs past the end of the stream.
func Decode(code []byte, off int) (Instruction, error) {
	if off < 0 || off >= len(code) {
		return Instruction{}, fmt.Errorf("bytecode: offset %d out of range", off)
	}
	b := code[off]
	if !Valid(b) {
		return Instruction{}, fmt.Errorf("bytecode: unknown opcode 0x%02x at offset %d", b, off)
	}
	op := Opcode(b)
	size := op.Operand().Size()
	if off+1+size > len(code) {
		return Instruction{}, fmt.Errorf("bytecode: truncated operand for %s at offset %d", op.Name(), off)
	}
	return Instruction{Offset: off, Op: op, Operand: code[off+1 : off+1+size]}, nil
}

// Next returns the offset of the instruction following in.
func (in Instruction) Next() int { return in.Offset + 1 + len(in.Operand) }

// Encoder appends instructions to a growing code stream.
type Encoder struct {
	buf bytes.Buffer
}

func NewEncoder() *Encoder { return &Encoder{} }

func (e *Encoder) Len() int { return e.buf.Len() }

func (e *Encoder) emit(op Opcode, operand []byte) {
	e.buf.WriteByte(byte(op))
	e.buf.Write(operand)
}

func (e *Encoder) EmitNone(op Opcode) { e.emit(op, nil) }

func (e *Encoder) EmitAddr(op Opcode, addr uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], addr)
	e.emit(op, b[:])
}

func (e *Encoder) EmitInt32(op Opcode, v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	e.emit(op, b[:])
}

func (e *Encoder) EmitFloat32(op Opcode, v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	e.emit(op, b[:])
}

func (e *Encoder) EmitStringID(op Opcode, id uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], id)
	e.emit(op, b[:])
}

func (e *Encoder) EmitIndex(op Opcode, idx uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], idx)
	e.emit(op, b[:])
}

// PatchAddr overwrites the 4-byte address operand starting right
// after the opcode byte at off, used by the assembler's backpatch
// pass.
func (e *Encoder) PatchAddr(off int, addr uint32) {
	b := e.buf.Bytes()
	binary.LittleEndian.PutUint32(b[off+1:off+5], addr)
}

func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }
