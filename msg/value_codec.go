package msg

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/buzzswarm/buzzvm/strman"
	"github.com/buzzswarm/buzzvm/value"
)

func strmanID(id uint16) strman.ID { return strman.ID(id) }

// EncodeValue appends a self-describing <value>: a tag byte followed
// by the tag's payload (int=4B, float=4B, string=2B interned id), per
// §6. Only the scalar tags nil/int/float/string cross the wire;
// compound values have no native transport representation.
func EncodeValue(buf []byte, v value.Value) ([]byte, error) {
	buf = append(buf, byte(v.Tag))
	switch v.Tag {
	case value.Nil:
		// no payload
	case value.Int:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v.I))
		buf = append(buf, b[:]...)
	case value.Float:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v.F))
		buf = append(buf, b[:]...)
	case value.String:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v.S))
		buf = append(buf, b[:]...)
	default:
		return nil, fmt.Errorf("msg: value tag %s has no wire representation", v.Tag)
	}
	return buf, nil
}

// DecodeValue reads a <value> starting at data[0], returning the
// decoded value and the number of bytes consumed.
func DecodeValue(data []byte) (value.Value, int, error) {
	if len(data) < 1 {
		return value.Value{}, 0, fmt.Errorf("msg: truncated value tag")
	}
	tag := value.Tag(data[0])
	switch tag {
	case value.Nil:
		return value.NilValue(), 1, nil
	case value.Int:
		if len(data) < 5 {
			return value.Value{}, 0, fmt.Errorf("msg: truncated int value")
		}
		return value.IntValue(int32(binary.LittleEndian.Uint32(data[1:5]))), 5, nil
	case value.Float:
		if len(data) < 5 {
			return value.Value{}, 0, fmt.Errorf("msg: truncated float value")
		}
		return value.FloatValue(math.Float32frombits(binary.LittleEndian.Uint32(data[1:5]))), 5, nil
	case value.String:
		if len(data) < 3 {
			return value.Value{}, 0, fmt.Errorf("msg: truncated string value")
		}
		id := binary.LittleEndian.Uint16(data[1:3])
		return value.StringValue(strmanID(id)), 3, nil
	default:
		return value.Value{}, 0, fmt.Errorf("msg: unsupported wire tag %d", tag)
	}
}
