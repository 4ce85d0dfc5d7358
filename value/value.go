// Package value implements Buzz's tagged value representation and the
// arena-based heap that owns every compound value a VM can reach.
package value

import "github.com/buzzswarm/buzzvm/strman"

// Tag identifies which variant of Value is populated.
type Tag uint8

const (
	Nil Tag = iota
	Int
	Float
	String
	Table
	Closure
	UserData
	Meta
)

func (t Tag) String() string {
	switch t {
	case Nil:
		return "nil"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Table:
		return "table"
	case Closure:
		return "closure"
	case UserData:
		return "userdata"
	case Meta:
		return "meta"
	default:
		return "unknown"
	}
}

// Handle is a stable index into a Heap's arena. Values never hold raw
// pointers to compound data; everything compound is reached through a
// Handle, so GC sweeps can relocate/free slots without invalidating
// anything a Value holds directly.
type Handle uint32

// Value is the tagged variant every VM instruction operates on. Only
// the field matching Tag is meaningful.
type Value struct {
	Tag Tag
	I   int32
	F   float32
	S   strman.ID
	H   Handle
}

func NilValue() Value                { return Value{Tag: Nil} }
func IntValue(i int32) Value         { return Value{Tag: Int, I: i} }
func FloatValue(f float32) Value     { return Value{Tag: Float, F: f} }
func StringValue(id strman.ID) Value { return Value{Tag: String, S: id} }
func TableValue(h Handle) Value      { return Value{Tag: Table, H: h} }
func ClosureValue(h Handle) Value    { return Value{Tag: Closure, H: h} }
func UserDataValue(h Handle) Value   { return Value{Tag: UserData, H: h} }

// IsCompound reports whether v references heap-arena storage.
func (v Value) IsCompound() bool {
	return v.Tag == Table || v.Tag == Closure || v.Tag == UserData || v.Tag == Meta
}

// Truthy implements Buzz's truthiness rule: nil, boolean-false-like
// int 0 and float 0 are falsy, everything else truthy. Buzz has no boolean tag;
// logic operators operate on int 0/1.
func (v Value) Truthy() bool {
	switch v.Tag {
	case Nil:
		return false
	case Int:
		return v.I != 0
	case Float:
		return v.F != 0
	default:
		return true
	}
}
