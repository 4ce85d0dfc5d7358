package strman

import "testing"

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestRoundTrip(t *testing.T) {
	m := New()
	id := m.Register("hello", false)
	s, ok := m.Get(id)
	assert(t, ok && s == "hello", "expected round trip, got %q ok=%v", s, ok)
}

func TestDuplicateRegistration(t *testing.T) {
	m := New()
	ids := make([]ID, 0, 3)
	for _, s := range []string{"hi", "bye", "hi"} {
		ids = append(ids, m.Register(s, false))
	}
	assert(t, m.Size() == 2, "expected size 2, got %d", m.Size())
	assert(t, ids[0] == ids[2], "expected stable id across duplicate, got %d vs %d", ids[0], ids[2])
}

func TestProtectionSurvivesGC(t *testing.T) {
	m := New()
	protected := m.Register("keep", true)
	collectable := m.Register("drop", false)

	m.GCClear()
	// nothing marked: collectable should be pruned, protected kept
	n := m.GCPrune()
	assert(t, n == 1, "expected exactly 1 collected, got %d", n)

	_, ok := m.Get(protected)
	assert(t, ok, "expected protected id to survive GC")
	_, ok = m.Get(collectable)
	assert(t, !ok, "expected unprotected unmarked id to be collected")
}

func TestMarkKeepsReachable(t *testing.T) {
	m := New()
	id := m.Register("reachable", false)
	m.GCClear()
	m.Mark(id)
	n := m.GCPrune()
	assert(t, n == 0, "expected nothing collected, got %d", n)
	_, ok := m.Get(id)
	assert(t, ok, "expected marked id to survive")
}

func TestPromoteToProtected(t *testing.T) {
	m := New()
	id1 := m.Register("s", false)
	id2 := m.Register("s", true)
	assert(t, id1 == id2, "expected same id on re-register")
	m.GCClear()
	n := m.GCPrune()
	assert(t, n == 0, "expected promoted string to survive GC, collected %d", n)
}

func TestIDWraparoundSkipsZeroAndOccupied(t *testing.T) {
	m := New()
	m.maxsid = 0xFFFE
	a := m.Register("a", false) // allocates 0xFFFF
	assert(t, a == 0xFFFF, "expected 0xFFFF, got %x", a)
	b := m.Register("b", false) // wraps, skips 0, allocates 1
	assert(t, b == 1, "expected wraparound to id 1, got %x", b)
}
