package outmsg

import (
	"testing"

	"github.com/buzzswarm/buzzvm/msg"
	"github.com/buzzswarm/buzzvm/value"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func drainAll(t *testing.T, q *Queue) [][]byte {
	t.Helper()
	var out [][]byte
	for {
		payload, ok := q.First()
		if !ok {
			break
		}
		out = append(out, payload)
		q.Next()
	}
	return out
}

func TestBroadcastPriorityOverEverythingElse(t *testing.T) {
	q := New()
	q.AppendVstigPut(msg.VstigMsg{VstigID: 1, KeySID: 2, Value: value.IntValue(1), Timestamp: 1})
	q.AppendBroadcast(msg.BroadcastMsg{SrcRobot: 0, TopicSID: 1, Value: value.IntValue(9)})

	payload, ok := q.First()
	assert(t, ok, "expected a message")
	assert(t, msg.Kind(payload[0]) == msg.Broadcast, "expected BROADCAST first, got %s", msg.Kind(payload[0]))
}

func TestVstigPutDedupNewerReplacesOlder(t *testing.T) {
	q := New()
	q.AppendVstigPut(msg.VstigMsg{VstigID: 1, KeySID: 5, Value: value.IntValue(7), Timestamp: 1})
	q.AppendVstigPut(msg.VstigMsg{VstigID: 1, KeySID: 5, Value: value.IntValue(9), Timestamp: 3})

	assert(t, q.vstigPut.Size() == 1, "expected dedup to collapse to one entry, got %d", q.vstigPut.Size())
	got, err := msg.DecodeVstig(mustFirst(t, q))
	assert(t, err == nil, "decode failed: %v", err)
	assert(t, got.Value == value.IntValue(9), "expected newer write (9) to survive, got %+v", got.Value)
	assert(t, got.Timestamp == 3, "expected timestamp 3 to survive, got %d", got.Timestamp)
}

func TestVstigPutDedupOlderIncomingDropped(t *testing.T) {
	q := New()
	q.AppendVstigPut(msg.VstigMsg{VstigID: 1, KeySID: 5, Value: value.IntValue(9), Timestamp: 3})
	q.AppendVstigPut(msg.VstigMsg{VstigID: 1, KeySID: 5, Value: value.IntValue(7), Timestamp: 1})

	assert(t, q.vstigPut.Size() == 1, "expected dedup to collapse to one entry, got %d", q.vstigPut.Size())
	got, err := msg.DecodeVstig(mustFirst(t, q))
	assert(t, err == nil, "decode failed: %v", err)
	assert(t, got.Timestamp == 3, "expected older incoming write to be dropped, got ts %d", got.Timestamp)
}

func TestVstigPutAndQueryShareDedupKey(t *testing.T) {
	q := New()
	q.AppendVstigQuery(msg.VstigMsg{VstigID: 1, KeySID: 5, Timestamp: 1})
	q.AppendVstigPut(msg.VstigMsg{VstigID: 1, KeySID: 5, Value: value.IntValue(4), Timestamp: 2})

	assert(t, q.vstigQry.IsEmpty(), "expected query queue drained by newer put")
	assert(t, q.vstigPut.Size() == 1, "expected put queue to hold the surviving write")
}

func mustFirst(t *testing.T, q *Queue) []byte {
	t.Helper()
	payload, ok := q.First()
	assert(t, ok, "expected a queued message")
	return payload
}

func TestJoinLeaveAnnihilation(t *testing.T) {
	q := New()
	q.AppendJoin(0, 1)
	q.AppendLeave(0, 1)
	q.AppendJoin(0, 2)

	assert(t, q.join.Size() == 1, "expected join/leave pair for id 1 to annihilate, join size=%d", q.join.Size())
	assert(t, q.leave.IsEmpty(), "expected leave queue empty after annihilation")

	payloads := drainAll(t, q)
	assert(t, len(payloads) == 1, "expected exactly one surviving message, got %d", len(payloads))
	got, err := msg.DecodeSwarmMembership(payloads[0])
	assert(t, err == nil, "decode failed: %v", err)
	assert(t, got.Kind == msg.SwarmJoin && got.SwarmID == 2, "expected surviving JOIN for id 2, got %+v", got)
}

func TestSwarmListSuppressesJoinLeave(t *testing.T) {
	q := New()
	q.AppendSwarmList(msg.SwarmListMsg{SrcRobot: 0, SwarmIDs: []uint16{1, 2}})
	q.AppendJoin(0, 3)
	q.AppendLeave(0, 1)

	assert(t, q.join.IsEmpty(), "expected join folded into the list, not queued separately")
	assert(t, q.leave.IsEmpty(), "expected leave folded into the list, not queued separately")

	got, err := msg.DecodeSwarmList(mustFirst(t, q))
	assert(t, err == nil, "decode failed: %v", err)
	assert(t, len(got.SwarmIDs) == 2, "expected list edited in place to [2,3], got %v", got.SwarmIDs)
}

func TestDequeuePriorityRound(t *testing.T) {
	q := New()
	q.AppendLeave(0, 9)
	q.AppendJoin(0, 1)
	q.AppendVstigQuery(msg.VstigMsg{VstigID: 1, KeySID: 1, Timestamp: 1})
	q.AppendVstigPut(msg.VstigMsg{VstigID: 2, KeySID: 1, Value: value.IntValue(1), Timestamp: 1})
	q.AppendSwarmList(msg.SwarmListMsg{SrcRobot: 0, SwarmIDs: []uint16{1}})
	q.AppendBroadcast(msg.BroadcastMsg{SrcRobot: 0, TopicSID: 1, Value: value.IntValue(1)})

	// the SWARM_LIST appended after them cleared the queued JOIN/LEAVE
	var kinds []msg.Kind
	for _, p := range drainAll(t, q) {
		kinds = append(kinds, msg.Kind(p[0]))
	}
	want := []msg.Kind{msg.Broadcast, msg.SwarmList, msg.VstigPut, msg.VstigQuery}
	assert(t, len(kinds) == len(want), "expected %d messages, got %d: %v", len(want), len(kinds), kinds)
	for i := range want {
		assert(t, kinds[i] == want[i], "position %d: expected %s, got %s", i, want[i], kinds[i])
	}

	// with no SWARM_LIST queued, JOIN and LEAVE close the round
	q.AppendLeave(0, 9)
	q.AppendJoin(0, 1)
	q.AppendVstigQuery(msg.VstigMsg{VstigID: 3, KeySID: 1, Timestamp: 1})
	kinds = nil
	for _, p := range drainAll(t, q) {
		kinds = append(kinds, msg.Kind(p[0]))
	}
	want = []msg.Kind{msg.VstigQuery, msg.SwarmJoin, msg.SwarmLeave}
	assert(t, len(kinds) == len(want), "expected %d messages, got %d: %v", len(want), len(kinds), kinds)
	for i := range want {
		assert(t, kinds[i] == want[i], "position %d: expected %s, got %s", i, want[i], kinds[i])
	}
}

func TestRootValuesCoversBroadcastAndVstigPayloads(t *testing.T) {
	q := New()
	q.AppendBroadcast(msg.BroadcastMsg{SrcRobot: 0, TopicSID: 1, Value: value.IntValue(9)})
	q.AppendVstigPut(msg.VstigMsg{VstigID: 1, KeySID: 5, Value: value.IntValue(7), Timestamp: 1})
	q.AppendVstigQuery(msg.VstigMsg{VstigID: 2, KeySID: 6, Value: value.IntValue(3), Timestamp: 1})
	q.AppendJoin(0, 1) // membership messages carry no value.Value

	roots := q.RootValues()
	assert(t, len(roots) == 3, "expected 3 root values (broadcast + put + query), got %d", len(roots))
}

func TestEmptyQueueFirstReturnsFalse(t *testing.T) {
	q := New()
	_, ok := q.First()
	assert(t, !ok, "expected empty queue to report no message")
	assert(t, q.IsEmpty(), "expected IsEmpty true")
}
