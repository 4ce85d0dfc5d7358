package swarm

import (
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestOwnMembershipJoinLeave(t *testing.T) {
	m := New(nil)
	m.Join(1)
	m.Join(2)
	assert(t, m.IsMember(1), "expected membership in swarm 1")
	m.Leave(1)
	assert(t, !m.IsMember(1), "expected swarm 1 left")

	ids := m.OwnSwarms()
	assert(t, len(ids) == 1 && ids[0] == 2, "expected [2], got %v", ids)
}

func TestKinNonKinFilter(t *testing.T) {
	m := New(nil)
	m.UpdateNeighbor(10, []uint16{1, 2})
	m.UpdateNeighbor(11, []uint16{2})
	m.UpdateNeighbor(12, []uint16{1})

	kin := m.Kin(1)
	assert(t, len(kin) == 2, "expected 2 kin for swarm 1, got %v", kin)
	assert(t, kin[0] == 10 && kin[1] == 12, "expected [10 12], got %v", kin)

	nonkin := m.NonKin(1)
	assert(t, len(nonkin) == 1 && nonkin[0] == 11, "expected [11], got %v", nonkin)
}

func TestKinUnknownSwarmReturnsEmpty(t *testing.T) {
	m := New(nil)
	m.UpdateNeighbor(10, []uint16{1})
	kin := m.Kin(999)
	assert(t, len(kin) == 0, "expected no kin for unknown swarm, got %v", kin)
}

func TestNeighborAgingAndEviction(t *testing.T) {
	m := New(nil)
	m.UpdateNeighbor(10, []uint16{1})

	for i := 0; i < MaxAge-1; i++ {
		evicted := m.Tick()
		assert(t, len(evicted) == 0, "expected no eviction yet at round %d, got %v", i, evicted)
	}
	evicted := m.Tick()
	assert(t, len(evicted) == 1 && evicted[0] == 10, "expected robot 10 evicted, got %v", evicted)
	assert(t, m.NeighborCount() == 0, "expected neighbor table empty after eviction")
}

func TestUpdateNeighborResetsAge(t *testing.T) {
	m := New(nil)
	m.UpdateNeighbor(10, []uint16{1})
	m.Tick()
	m.Tick()
	m.UpdateNeighbor(10, []uint16{1, 2})
	n, ok := m.Neighbor(10)
	assert(t, ok, "expected neighbor 10 present")
	assert(t, n.Age == 0, "expected age reset to 0, got %d", n.Age)
}
