// Package inmsg implements the incoming message priority queue of
// §4.J: messages are ordered by the wire kind byte at payload offset
// 0 (higher kind passes lower), bounded at a fixed capacity, with the
// lowest-priority tail dropped on overflow.
package inmsg

import (
	"container/heap"

	"go.uber.org/zap"

	"github.com/buzzswarm/buzzvm/msg"
	"github.com/buzzswarm/buzzvm/value"
)

// Capacity is the maximum number of queued messages, per §4.J.
const Capacity = 100

// entry wraps one queued payload with the sequence number it arrived
// at, so that messages of equal kind stay FIFO relative to each other.
type entry struct {
	payload []byte
	kind    byte
	seq     uint64
}

// innerQueue is a container/heap max-heap ordered first by kind
// (descending — higher kind values pass lower ones per §4.J), then by
// arrival order (ascending, for FIFO-within-kind).
type innerQueue []*entry

func (q innerQueue) Len() int { return len(q) }

func (q innerQueue) Less(i, j int) bool {
	if q[i].kind != q[j].kind {
		return q[i].kind > q[j].kind
	}
	return q[i].seq < q[j].seq
}

func (q innerQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *innerQueue) Push(x any) { *q = append(*q, x.(*entry)) }

func (q *innerQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// Queue is one robot's bounded incoming message priority queue.
type Queue struct {
	items   innerQueue
	nextSeq uint64
	dropped int
	logger  *zap.Logger
}

// New creates an empty incoming queue. A nil logger is replaced with a
// no-op one, so overflow-drop logging (see Push) is always safe to
// call.
func New(logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &Queue{logger: logger}
	heap.Init(&q.items)
	return q
}

// Len returns the number of currently queued messages.
func (q *Queue) Len() int { return q.items.Len() }

// Dropped returns the total number of messages dropped due to
// overflow since creation.
func (q *Queue) Dropped() int { return q.dropped }

// Push appends payload to the queue. If the queue is at capacity, the
// current lowest-priority entry is evicted to make room — unless the
// incoming payload is itself the lowest priority, in which case it is
// the one dropped, per §4.J's "on overflow the lowest-priority tail is
// dropped."
func (q *Queue) Push(payload []byte) bool {
	if len(payload) == 0 {
		return false
	}
	e := &entry{payload: payload, kind: payload[0], seq: q.nextSeq}
	q.nextSeq++

	if q.items.Len() < Capacity {
		heap.Push(&q.items, e)
		return true
	}

	worst := q.worstIndex()
	if q.items[worst].kind > e.kind || (q.items[worst].kind == e.kind && q.items[worst].seq < e.seq) {
		q.dropped++
		q.logger.Info("incoming message dropped, queue full",
			zap.Uint8("kind", e.kind), zap.Int("capacity", Capacity))
		return false
	}
	evicted := q.items[worst]
	heap.Remove(&q.items, worst)
	heap.Push(&q.items, e)
	q.dropped++
	q.logger.Info("incoming message dropped, queue full",
		zap.Uint8("kind", evicted.kind), zap.Int("capacity", Capacity))
	return true
}

// worstIndex finds the index of the lowest-priority entry currently
// queued: the smallest kind, and within that kind the latest arrival.
func (q *Queue) worstIndex() int {
	worst := 0
	for i := 1; i < len(q.items); i++ {
		if less(q.items[i], q.items[worst]) {
			worst = i
		}
	}
	return worst
}

// less reports whether a has lower priority than b: a smaller kind
// always loses; within the same kind, the more recently arrived entry
// is considered the droppable tail.
func less(a, b *entry) bool {
	if a.kind != b.kind {
		return a.kind < b.kind
	}
	return a.seq > b.seq
}

// Pop removes and returns the highest-priority message, or ok=false if
// the queue is empty.
func (q *Queue) Pop() (payload []byte, ok bool) {
	if q.items.Len() == 0 {
		return nil, false
	}
	e := heap.Pop(&q.items).(*entry)
	return e.payload, true
}

// Peek returns the highest-priority message without removing it.
func (q *Queue) Peek() (payload []byte, ok bool) {
	if q.items.Len() == 0 {
		return nil, false
	}
	return q.items[0].payload, true
}

// Drain removes and returns every queued message in non-increasing
// kind order (ties broken by arrival order), emptying the queue.
func (q *Queue) Drain() [][]byte {
	out := make([][]byte, 0, q.items.Len())
	for q.items.Len() > 0 {
		out = append(out, heap.Pop(&q.items).(*entry).payload)
	}
	return out
}

// RootValues decodes every queued payload and returns the
// value.Value it carries, for the VM's GC root scan: per §3, a value
// survives a collection cycle iff reachable from the root set, which
// explicitly includes "in/out message queues." A payload that fails
// to decode (malformed on the wire) or carries no value.Value
// (SWARM_LIST/JOIN/LEAVE) is simply skipped rather than treated as an
// error — root-scanning must never fail.
func (q *Queue) RootValues() []value.Value {
	var out []value.Value
	for _, e := range q.items {
		switch msg.Kind(e.kind) {
		case msg.Broadcast:
			if b, err := msg.DecodeBroadcast(e.payload); err == nil {
				out = append(out, b.Value)
			}
		case msg.VstigPut, msg.VstigQuery:
			if v, err := msg.DecodeVstig(e.payload); err == nil {
				out = append(out, v.Value)
			}
		}
	}
	return out
}
