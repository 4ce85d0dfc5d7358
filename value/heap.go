package value

import (
	"fmt"

	"github.com/buzzswarm/buzzvm/strman"
)

type objKind uint8

const (
	kindTable objKind = iota
	kindClosure
	kindUserData
)

type object struct {
	kind    objKind
	table   *TableObj
	closure *ClosureObj
	user    *UserDataObj
	marked  bool
}

// Heap is the arena that owns every compound value a VM can reach.
// Objects are addressed by Handle, never by pointer, and freed slots
// are recycled from a freelist so handles stay dense.
type Heap struct {
	objs  []*object
	free  []Handle
	Strs  *strman.Manager
}

// NewHeap creates an empty heap backed by the given string manager;
// the heap calls Strs.Mark during GC for every live string id it
// encounters so the interner's own GC can run afterward.
func NewHeap(strs *strman.Manager) *Heap {
	return &Heap{Strs: strs}
}

func (h *Heap) alloc(o *object) Handle {
	if n := len(h.free); n > 0 {
		idx := h.free[n-1]
		h.free = h.free[:n-1]
		h.objs[idx] = o
		return idx
	}
	h.objs = append(h.objs, o)
	return Handle(len(h.objs) - 1)
}

// NewTable allocates a fresh empty table, returning its handle and
// value.
func (h *Heap) NewTable() (Handle, Value) {
	handle := h.alloc(&object{kind: kindTable, table: newTable()})
	return handle, TableValue(handle)
}

// NewClosure allocates a closure object.
func (h *Heap) NewClosure(c ClosureObj) (Handle, Value) {
	cc := c
	handle := h.alloc(&object{kind: kindClosure, closure: &cc})
	return handle, ClosureValue(handle)
}

// NewUserData allocates an opaque userdata object.
func (h *Heap) NewUserData(ptr any) (Handle, Value) {
	handle := h.alloc(&object{kind: kindUserData, user: &UserDataObj{Ptr: ptr}})
	return handle, UserDataValue(handle)
}

func (h *Heap) obj(handle Handle) *object {
	if int(handle) >= len(h.objs) || h.objs[handle] == nil {
		return nil
	}
	return h.objs[handle]
}

// Table resolves a table handle, or nil if the handle is stale/freed.
func (h *Heap) Table(handle Handle) *TableObj {
	if o := h.obj(handle); o != nil && o.kind == kindTable {
		return o.table
	}
	return nil
}

// Closure resolves a closure handle.
func (h *Heap) Closure(handle Handle) *ClosureObj {
	if o := h.obj(handle); o != nil && o.kind == kindClosure {
		return o.closure
	}
	return nil
}

// UserData resolves a userdata handle.
func (h *Heap) UserData(handle Handle) *UserDataObj {
	if o := h.obj(handle); o != nil && o.kind == kindUserData {
		return o.user
	}
	return nil
}

// Size returns the number of live (non-freed) objects.
func (h *Heap) Size() int {
	n := 0
	for _, o := range h.objs {
		if o != nil {
			n++
		}
	}
	return n
}

// KeyString computes a canonical structural-equality string for v,
// exported so other packages (virtual stigmergy, outgoing message
// dedup) can key their own maps on Buzz values the same way tables do.
func (h *Heap) KeyString(v Value) string { return h.keyString(v) }

// keyString computes a canonical structural-equality string for use
// as a table key index, so that two values comparing equal also hash
// equal, per the data-model invariant. A float with an integral value
// in int32 range gets the same key as the int it compares equal to.
func (h *Heap) keyString(v Value) string {
	switch v.Tag {
	case Nil:
		return "n"
	case Int:
		return fmt.Sprintf("i%d", v.I)
	case Float:
		if i := int32(v.F); float32(i) == v.F {
			return fmt.Sprintf("i%d", i)
		}
		return fmt.Sprintf("f%g", v.F)
	case String:
		return fmt.Sprintf("s%d", v.S)
	case Table, Closure, UserData, Meta:
		return fmt.Sprintf("h%d:%d", v.Tag, v.H)
	default:
		return "?"
	}
}
