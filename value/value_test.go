package value

import (
	"testing"

	"github.com/buzzswarm/buzzvm/strman"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestTablePutGet(t *testing.T) {
	h := NewHeap(strman.New())
	_, tv := h.NewTable()
	tbl := h.Table(tv.H)
	tbl.Put(h, IntValue(1), IntValue(100))
	v, ok := tbl.Get(h, IntValue(1))
	assert(t, ok && v.I == 100, "expected 100, got %v ok=%v", v, ok)
}

func TestCompareCrossTagPromotion(t *testing.T) {
	r, ok := Compare(IntValue(3), FloatValue(3.0))
	assert(t, ok && r == 0, "expected int 3 == float 3.0, got %d ok=%v", r, ok)
}

func TestGCCollectsUnreachable(t *testing.T) {
	sm := strman.New()
	h := NewHeap(sm)
	_, root := h.NewTable()
	_, _ = h.NewTable() // unreachable garbage

	freed := h.GC([]Value{root})
	assert(t, freed == 1, "expected 1 object freed, got %d", freed)
	assert(t, h.Size() == 1, "expected 1 live object, got %d", h.Size())
}

func TestGCMarksStringsReachableThroughTable(t *testing.T) {
	sm := strman.New()
	h := NewHeap(sm)
	keepID := sm.Register("kept", false)
	dropID := sm.Register("dropped", false)

	_, root := h.NewTable()
	tbl := h.Table(root.H)
	tbl.Put(h, IntValue(1), StringValue(keepID))

	h.GC([]Value{root})
	n := sm.GCPrune()
	assert(t, n == 1, "expected exactly 1 string collected, got %d", n)
	_, ok := sm.Get(keepID)
	assert(t, ok, "expected reachable string kept")
	_, ok = sm.Get(dropID)
	assert(t, !ok, "expected unreachable string dropped")
}

func TestCloneTableIsDeep(t *testing.T) {
	h := NewHeap(strman.New())
	_, orig := h.NewTable()
	h.Table(orig.H).Put(h, IntValue(1), IntValue(42))

	cloned := h.Clone(orig)
	assert(t, cloned.H != orig.H, "expected clone to have a distinct handle")
	h.Table(orig.H).Put(h, IntValue(1), IntValue(99))
	v, _ := h.Table(cloned.H).Get(h, IntValue(1))
	assert(t, v.I == 42, "expected clone isolated from mutation, got %d", v.I)
}

func TestCloneHandlesCycles(t *testing.T) {
	h := NewHeap(strman.New())
	_, a := h.NewTable()
	h.Table(a.H).Put(h, IntValue(0), a) // self-reference
	cloned := h.Clone(a)
	v, ok := h.Table(cloned.H).Get(h, IntValue(0))
	assert(t, ok && v.H == cloned.H, "expected cloned cycle to point to itself")
}
