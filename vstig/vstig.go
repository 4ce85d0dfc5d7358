// Package vstig implements a virtual stigmergy: a replicated
// key-value store with last-writer-wins semantics under a Lamport
// (timestamp, robot-id) total order, ported from buzzvstig.h where a
// virtual stigmergy is literally a typedef of the generic dictionary.
package vstig

import (
	"go.uber.org/zap"

	"github.com/buzzswarm/buzzvm/value"
)

// Entry is one stigmergy record: the stored value and the
// (timestamp, owner) tuple that totally orders concurrent writes.
type Entry struct {
	Data      value.Value
	Timestamp uint32
	Owner     uint16
}

// Less reports whether (a.Timestamp, a.Owner) sorts strictly before
// (b.Timestamp, b.Owner), the lexicographic order §3 and §4.H specify.
func (a Entry) Less(b Entry) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.Owner < b.Owner
}

type slot struct {
	key   value.Value
	entry Entry
}

// Stigmergy is one named replicated map. A robot may own several,
// identified by the caller's own vstig id scheme (outmsg/inmsg carry
// that id on the wire; this type only holds one table's worth of
// entries).
type Stigmergy struct {
	heap    *value.Heap
	entries map[string]slot
	logger  *zap.Logger
}

// New creates an empty stigmergy over heap (used to compute structural
// key equality the same way Buzz tables do). A nil logger is replaced
// with a no-op one, so rejection logging (see AcceptPut) is always
// safe to call.
func New(heap *value.Heap, logger *zap.Logger) *Stigmergy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stigmergy{heap: heap, entries: make(map[string]slot), logger: logger}
}

// Get returns the current entry for key, if any.
func (s *Stigmergy) Get(key value.Value) (Entry, bool) {
	sl, ok := s.entries[s.heap.KeyString(key)]
	if !ok {
		return Entry{}, false
	}
	return sl.entry, true
}

// Store performs a local write: the new timestamp is one past the
// highest timestamp this stigmergy has seen for key, owned by
// selfRobot, per §3's "local writes bump the timestamp by one past the
// highest seen."
func (s *Stigmergy) Store(key, data value.Value, selfRobot uint16) Entry {
	ks := s.heap.KeyString(key)
	ts := uint32(0)
	if sl, ok := s.entries[ks]; ok {
		ts = sl.entry.Timestamp
	}
	e := Entry{Data: data, Timestamp: ts + 1, Owner: selfRobot}
	s.entries[ks] = slot{key: key, entry: e}
	return e
}

// AcceptPut processes an incoming PUT(k, v, ts, robot). It accepts and
// replaces the local entry iff (ts, robot) is strictly greater than
// the local tuple lexicographically, per §4.H, and reports whether the
// write was accepted (meaning the caller should re-broadcast it).
func (s *Stigmergy) AcceptPut(key value.Value, data value.Value, ts uint32, robot uint16) bool {
	ks := s.heap.KeyString(key)
	incoming := Entry{Data: data, Timestamp: ts, Owner: robot}
	if sl, ok := s.entries[ks]; ok {
		if !sl.entry.Less(incoming) {
			s.logger.Info("vstig put rejected",
				zap.Uint32("incoming_ts", ts), zap.Uint16("incoming_owner", robot),
				zap.Uint32("local_ts", sl.entry.Timestamp), zap.Uint16("local_owner", sl.entry.Owner))
			return false
		}
	}
	s.entries[ks] = slot{key: key, entry: incoming}
	return true
}

// QueryAction is the reaction to an incoming QUERY, per §4.H.
type QueryAction int

const (
	QueryNone QueryAction = iota
	QueryReplyPut
	QueryReplyQuery
)

// RespondToQuery decides how to answer a QUERY(k, ts, robot): a PUT
// reply if the local entry is strictly newer than the query tuple, a
// QUERY reply if strictly older, otherwise silence (the querier
// already has the authoritative value).
func (s *Stigmergy) RespondToQuery(key value.Value, ts uint32, robot uint16) (QueryAction, Entry) {
	local, ok := s.Get(key)
	if !ok {
		return QueryNone, Entry{}
	}
	queryTuple := Entry{Timestamp: ts, Owner: robot}
	switch {
	case queryTuple.Less(local):
		return QueryReplyPut, local
	case local.Less(queryTuple):
		return QueryReplyQuery, local
	default:
		return QueryNone, local
	}
}

// Size returns the number of entries currently stored.
func (s *Stigmergy) Size() int { return len(s.entries) }

// Foreach visits every (key, entry) pair.
func (s *Stigmergy) Foreach(fn func(key value.Value, e Entry) bool) {
	for _, sl := range s.entries {
		if !fn(sl.key, sl.entry) {
			return
		}
	}
}

// RootValues returns every key and stored value currently held by
// this stigmergy, for the VM's GC root scan: per §3, a value survives
// a collection cycle iff reachable from the root set, which explicitly
// includes "virtual-stigmergy entries."
func (s *Stigmergy) RootValues() []value.Value {
	out := make([]value.Value, 0, 2*len(s.entries))
	for _, sl := range s.entries {
		out = append(out, sl.key, sl.entry.Data)
	}
	return out
}
