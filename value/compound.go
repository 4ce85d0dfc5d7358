package value

import "github.com/buzzswarm/buzzvm/darray"

// TableObj is Buzz's single compound mapping type: an ordered mapping
// from value to value. Insertion order is preserved for iteration;
// lookup is by a structural key computed by keyString, satisfying the
// invariant that two values comparing equal also hash equal.
type TableObj struct {
	keys  *darray.Array[Value]
	vals  *darray.Array[Value]
	index map[string]int
}

func newTable() *TableObj {
	return &TableObj{
		keys:  darray.New[Value](0),
		vals:  darray.New[Value](0),
		index: make(map[string]int),
	}
}

// Get looks up key, reporting whether present.
func (t *TableObj) Get(h *Heap, key Value) (Value, bool) {
	idx, ok := t.index[h.keyString(key)]
	if !ok {
		return Value{}, false
	}
	return t.vals.Get(idx), true
}

// Put inserts or overwrites the value for key.
func (t *TableObj) Put(h *Heap, key, val Value) {
	ks := h.keyString(key)
	if idx, ok := t.index[ks]; ok {
		t.vals.Set(idx, val)
		return
	}
	t.index[ks] = t.keys.Size()
	t.keys.Push(key)
	t.vals.Push(val)
}

// Remove deletes key, reporting whether it was present.
func (t *TableObj) Remove(h *Heap, key Value) bool {
	ks := h.keyString(key)
	idx, ok := t.index[ks]
	if !ok {
		return false
	}
	t.keys.Remove(idx)
	t.vals.Remove(idx)
	delete(t.index, ks)
	for k, i := range t.index {
		if i > idx {
			t.index[k] = i - 1
		}
	}
	return true
}

// Size returns the number of entries.
func (t *TableObj) Size() int { return t.keys.Size() }

// Foreach visits entries in insertion order.
func (t *TableObj) Foreach(fn func(k, v Value) bool) {
	t.keys.Foreach(func(i int, k Value) bool {
		return fn(k, t.vals.Get(i))
	})
}

// ClosureKind distinguishes a bytecode closure from a native one.
type ClosureKind uint8

const (
	BytecodeClosure ClosureKind = iota
	NativeClosure
)

// NativeFunc is a host callback installed into the global table and
// invoked by CALLC, matching the native calling convention in §6.
type NativeFunc func(vm NativeCallContext) error

// NativeCallContext is the minimal surface a native closure needs; the
// vm package supplies the concrete implementation, avoiding an import
// cycle between value and vm.
type NativeCallContext interface {
	Argc() int
	Arg(i int) Value
	Return0()
	Return1(v Value)
}

// ClosureObj is Buzz's callable: either a byte offset into the owning
// bytecode blob (bytecode closure) or a registered native function,
// paired with a captured self value and ordered upvalues.
type ClosureObj struct {
	Kind    ClosureKind
	Target  uint32 // bytecode offset, or native registry index
	Native  NativeFunc
	Self    Value
	Upvalue []Value
}

// UserDataObj wraps an opaque host pointer. The VM never inspects Ptr;
// it only ever hands it back to native closures.
type UserDataObj struct {
	Ptr any
}
