package vstig

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/buzzswarm/buzzvm/strman"
	"github.com/buzzswarm/buzzvm/value"
)

func newTestHeap() *value.Heap {
	return value.NewHeap(strman.New())
}

func TestConvergenceUnderExchange(t *testing.T) {
	heap := newTestHeap()
	key := value.IntValue(1)

	replicaA := New(heap, nil)
	replicaB := New(heap, nil)

	// robot 1 writes first, robot 2 writes with a strictly greater ts
	replicaA.AcceptPut(key, value.IntValue(10), 1, 1)
	replicaB.AcceptPut(key, value.IntValue(10), 1, 1)

	replicaA.AcceptPut(key, value.IntValue(20), 3, 2)
	replicaB.AcceptPut(key, value.IntValue(20), 3, 2)

	ea, _ := replicaA.Get(key)
	eb, _ := replicaB.Get(key)
	require.Equal(t, ea, eb)
	require.Equal(t, int32(20), ea.Data.I)
	require.Equal(t, uint32(3), ea.Timestamp)
}

func TestRejectsOlderWrite(t *testing.T) {
	heap := newTestHeap()
	s := New(heap, nil)
	key := value.IntValue(1)
	s.Store(key, value.IntValue(1), 5) // ts=1, owner=5

	accepted := s.AcceptPut(key, value.IntValue(99), 0, 1)
	require.False(t, accepted, "expected stale write to be rejected")

	e, _ := s.Get(key)
	require.EqualValues(t, 1, e.Data.I)
}

func TestQueryResponseRules(t *testing.T) {
	heap := newTestHeap()
	s := New(heap, nil)
	key := value.IntValue(1)
	s.AcceptPut(key, value.IntValue(7), 5, 1) // local ts=5,robot=1

	action, _ := s.RespondToQuery(key, 2, 1) // query older
	require.Equal(t, QueryReplyPut, action)

	action, _ = s.RespondToQuery(key, 9, 1) // query newer
	require.Equal(t, QueryReplyQuery, action)

	action, _ = s.RespondToQuery(key, 5, 1) // query identical
	require.Equal(t, QueryNone, action)
}

func TestRootValuesCoversKeysAndData(t *testing.T) {
	heap := newTestHeap()
	s := New(heap, nil)
	s.Store(value.IntValue(1), value.IntValue(100), 1)
	s.Store(value.IntValue(2), value.IntValue(200), 1)

	roots := s.RootValues()
	require.Len(t, roots, 4)

	var ints []int32
	for _, v := range roots {
		require.Equal(t, value.Int, v.Tag)
		ints = append(ints, v.I)
	}
	require.ElementsMatch(t, []int32{1, 100, 2, 200}, ints)
}

func TestLocalStoreBumpsTimestamp(t *testing.T) {
	heap := newTestHeap()
	s := New(heap, nil)
	key := value.IntValue(1)
	e1 := s.Store(key, value.IntValue(1), 9)
	e2 := s.Store(key, value.IntValue(2), 9)
	require.Equal(t, e1.Timestamp+1, e2.Timestamp)
}
