// Package strman implements the Buzz string interner: a pair of
// mirrored maps between strings and 16-bit ids, with explicit
// three-phase mark-and-sweep garbage collection. It is ported directly
// from the allocation and GC algorithm in buzzstrman.c.
package strman

import "github.com/buzzswarm/buzzvm/dict"

// ID is an interned string identifier. 0 is reserved and never
// assigned.
type ID uint16

type record struct {
	str       string
	protected bool
}

func hashID(id ID) uint32  { return uint32(id) }
func equalID(a, b ID) bool { return a == b }

// Manager owns the string <-> id mapping for one VM.
type Manager struct {
	str2id *dict.Dict[string, ID]
	id2str *dict.Dict[ID, record]
	maxsid ID

	unmarked map[ID]struct{}
}

// New creates an empty string manager.
func New() *Manager {
	return &Manager{
		str2id: dict.New[string, ID](64, dict.HashString, dict.EqualString),
		id2str: dict.New[ID, record](64, hashID, equalID),
		maxsid: 0,
	}
}

// Register interns s, returning its existing id if already present
// (promoting it to protected if protect is true and it wasn't
// already), or allocating a new id. Id 0 is reserved and never
// assigned; allocation wraps around 16-bit space and skips ids already
// occupied, exactly as buzzstrman_register does.
func (m *Manager) Register(s string, protect bool) ID {
	if id, ok := m.str2id.Get(s); ok {
		if protect {
			rec, _ := m.id2str.Get(id)
			if !rec.protected {
				rec.protected = true
				m.id2str.Set(id, rec)
			}
		}
		return id
	}
	m.maxsid++
	for m.maxsid == 0 || m.id2str.Exists(m.maxsid) {
		m.maxsid++
	}
	id := m.maxsid
	m.str2id.Set(s, id)
	m.id2str.Set(id, record{str: s, protected: protect})
	return id
}

// Get resolves an id back to its string, reporting whether it exists.
func (m *Manager) Get(id ID) (string, bool) {
	rec, ok := m.id2str.Get(id)
	if !ok {
		return "", false
	}
	return rec.str, true
}

// Size returns the number of interned strings.
func (m *Manager) Size() int { return m.id2str.Size() }

// GCClear starts a GC round: every currently unprotected id is placed
// into the "unmarked" working set. Reachable values call Mark to
// remove their id from this set; GCPrune then deletes whatever
// remains. This mirrors buzzstrman_gc_clear/gc_mark/gc_prune, using a
// Go map in place of the C version's binary search tree — a plain hash
// set has no ordering requirement here and is the idiomatic Go
// substitute for that internal bookkeeping structure.
func (m *Manager) GCClear() {
	m.unmarked = make(map[ID]struct{}, m.id2str.Size())
	m.id2str.Foreach(func(id ID, rec record) bool {
		if !rec.protected {
			m.unmarked[id] = struct{}{}
		}
		return true
	})
}

// Mark removes id from the unmarked set, meaning it was reached from
// the root set during this GC round.
func (m *Manager) Mark(id ID) {
	delete(m.unmarked, id)
}

// GCPrune deletes every id still in the unmarked set from both maps,
// returning the number of strings collected.
func (m *Manager) GCPrune() int {
	n := 0
	for id := range m.unmarked {
		rec, ok := m.id2str.Get(id)
		if !ok {
			continue
		}
		m.str2id.Remove(rec.str)
		m.id2str.Remove(id)
		n++
	}
	m.unmarked = nil
	return n
}
