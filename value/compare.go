package value

// Compare orders two values for EQ/NEQ/GT/GTE/LT/LTE. Integers and
// floats compare across tags with float promotion; strings compare by
// interned id; compound values compare by handle identity. Returns
// -1, 0, or 1; ok is false for tag combinations with no defined order
// (the caller should raise TYPE_ERROR).
func Compare(a, b Value) (result int, ok bool) {
	switch {
	case a.Tag == Int && b.Tag == Int:
		return cmp(a.I, b.I), true
	case a.Tag == Float && b.Tag == Float:
		return cmp(a.F, b.F), true
	case a.Tag == Int && b.Tag == Float:
		return cmp(float32(a.I), b.F), true
	case a.Tag == Float && b.Tag == Int:
		return cmp(a.F, float32(b.I)), true
	case a.Tag == String && b.Tag == String:
		return cmp(a.S, b.S), true
	case a.Tag == Nil && b.Tag == Nil:
		return 0, true
	case a.Tag == b.Tag && a.IsCompound():
		return cmp(a.H, b.H), true
	default:
		return 0, false
	}
}

func cmp[T int32 | float32 | ~uint16 | Handle](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// Equal reports structural equality per the table-key invariant: two
// values that compare equal hash equal.
func Equal(a, b Value) bool {
	r, ok := Compare(a, b)
	return ok && r == 0
}

// Hash produces a hash for use as a map/table key, consistent with
// Equal: equal values always hash equal.
func Hash(v Value) uint32 {
	switch v.Tag {
	case Nil:
		return 0
	case Int:
		return uint32(v.I)
	case Float:
		return uint32(v.F)
	case String:
		return uint32(v.S)
	case Table, Closure, UserData, Meta:
		return uint32(v.H)
	default:
		return 0
	}
}
