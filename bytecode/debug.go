package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// DebugRecord maps one code offset to a source location, the unit of
// the .bdbg sidecar format.
type DebugRecord struct {
	Offset  uint32
	Line    uint64
	Col     uint64
	SrcName string
}

// DebugMap is the full, optional offset->(file,line,col) sidecar.
// Its absence is not an error; a nil/empty DebugMap simply means no
// source locations are available for a trace or disassembly listing.
type DebugMap struct {
	Records []DebugRecord
}

// Lookup returns the debug record for offset, if any.
func (d *DebugMap) Lookup(offset uint32) (DebugRecord, bool) {
	if d == nil {
		return DebugRecord{}, false
	}
	for _, r := range d.Records {
		if r.Offset == offset {
			return r, true
		}
	}
	return DebugRecord{}, false
}

// WriteTo encodes the debug map in .bdbg format: a sequence of
// {u32 offset, u64 line, u64 col, u16 src_name_len, bytes src_name}.
func (d *DebugMap) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	for _, r := range d.Records {
		if len(r.SrcName) > 0xFFFF {
			return 0, fmt.Errorf("bytecode: debug source name too long (%d bytes)", len(r.SrcName))
		}
		binary.Write(&buf, binary.LittleEndian, r.Offset)
		binary.Write(&buf, binary.LittleEndian, r.Line)
		binary.Write(&buf, binary.LittleEndian, r.Col)
		binary.Write(&buf, binary.LittleEndian, uint16(len(r.SrcName)))
		buf.WriteString(r.SrcName)
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// ReadDebugMap decodes a .bdbg sidecar from r. An empty reader yields
// an empty, non-nil DebugMap.
func ReadDebugMap(r io.Reader) (*DebugMap, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	dm := &DebugMap{}
	pos := 0
	for pos < len(data) {
		if pos+4+8+8+2 > len(data) {
			return nil, fmt.Errorf("bytecode: truncated debug record at offset %d", pos)
		}
		rec := DebugRecord{}
		rec.Offset = binary.LittleEndian.Uint32(data[pos:])
		pos += 4
		rec.Line = binary.LittleEndian.Uint64(data[pos:])
		pos += 8
		rec.Col = binary.LittleEndian.Uint64(data[pos:])
		pos += 8
		nameLen := int(binary.LittleEndian.Uint16(data[pos:]))
		pos += 2
		if pos+nameLen > len(data) {
			return nil, fmt.Errorf("bytecode: truncated debug source name at offset %d", pos)
		}
		rec.SrcName = string(data[pos : pos+nameLen])
		pos += nameLen
		dm.Records = append(dm.Records, rec)
	}
	return dm, nil
}
