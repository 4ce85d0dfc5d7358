// Package swarm implements component K: local swarm-membership sets,
// a per-neighbor table of (swarm_ids, age) tuples, and the kin/nonkin
// neighbor filter keyed off the VM's swarm-context stack, grounded on
// buzznbr.h/buzzneighbors.c's neighbor data shape.
//
// The original source also carries a dormant Lennard-Jones flocking
// behavior gated on a commented-out "kin" boolean
// (buzz_controller_spiri.cpp); per the open question this stays
// dormant and unimplemented here — this package implements only the
// single kin/nonkin interaction-profile axis the rest of the runtime
// actually exercises.
package swarm

import (
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// MaxAge is the number of update rounds a neighbor's membership
// report stays valid before it's evicted as stale, per §4.K.
const MaxAge = 10

// Neighbor holds what this robot currently believes about another
// robot: the swarms it reported belonging to, and how many rounds old
// that report is.
type Neighbor struct {
	SwarmIDs []uint16
	Age      uint8
}

func (n Neighbor) has(swarmID uint16) bool {
	return slices.Contains(n.SwarmIDs, swarmID)
}

// Membership tracks one robot's own swarm set plus its table of
// neighbor membership reports.
type Membership struct {
	// own is the local set of swarm ids this robot currently joins.
	own map[uint16]bool

	// neighbors maps robot id -> last-known membership report.
	neighbors map[uint16]Neighbor

	logger *zap.Logger
}

// New creates an empty membership tracker. A nil logger is replaced
// with a no-op one, so eviction logging (see Tick) is always safe to
// call.
func New(logger *zap.Logger) *Membership {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Membership{
		own:       make(map[uint16]bool),
		neighbors: make(map[uint16]Neighbor),
		logger:    logger,
	}
}

// Join adds swarmID to this robot's own membership set.
func (m *Membership) Join(swarmID uint16) { m.own[swarmID] = true }

// Leave removes swarmID from this robot's own membership set.
func (m *Membership) Leave(swarmID uint16) { delete(m.own, swarmID) }

// IsMember reports whether this robot currently belongs to swarmID.
func (m *Membership) IsMember(swarmID uint16) bool { return m.own[swarmID] }

// OwnSwarms returns this robot's own swarm ids in sorted order, for
// building an outgoing SWARM_LIST payload deterministically.
func (m *Membership) OwnSwarms() []uint16 {
	ids := maps.Keys(m.own)
	slices.Sort(ids)
	return ids
}

// UpdateNeighbor records a fresh membership report for robot,
// resetting its age to 0.
func (m *Membership) UpdateNeighbor(robot uint16, swarmIDs []uint16) {
	ids := append([]uint16(nil), swarmIDs...)
	slices.Sort(ids)
	m.neighbors[robot] = Neighbor{SwarmIDs: ids, Age: 0}
}

// Tick ages every neighbor report by one round and evicts any whose
// age has reached MaxAge, per §4.K's "ages tick each round and stale
// neighbors are evicted." It returns the ids evicted this round.
func (m *Membership) Tick() []uint16 {
	var evicted []uint16
	for robot, n := range m.neighbors {
		n.Age++
		if n.Age >= MaxAge {
			delete(m.neighbors, robot)
			evicted = append(evicted, robot)
			continue
		}
		m.neighbors[robot] = n
	}
	slices.Sort(evicted)
	if len(evicted) > 0 {
		m.logger.Info("neighbor eviction", zap.Uint16s("robots", evicted))
	}
	return evicted
}

// NeighborCount returns the number of neighbors currently tracked.
func (m *Membership) NeighborCount() int { return len(m.neighbors) }

// Neighbor returns the current report for robot, if tracked.
func (m *Membership) Neighbor(robot uint16) (Neighbor, bool) {
	n, ok := m.neighbors[robot]
	return n, ok
}

// Kin returns the ids, in sorted order, of every tracked neighbor that
// belongs to swarmID — the "kin" half of the §4.K filter, consulted
// when a swarm.with block's context (the top of the VM's swarm-context
// stack) names swarmID. An unknown/empty swarmID simply yields no
// members: the result is empty, not an error.
func (m *Membership) Kin(swarmID uint16) []uint16 {
	return m.filter(swarmID, true)
}

// NonKin is Kin's complement: tracked neighbors that do NOT report
// membership in swarmID.
func (m *Membership) NonKin(swarmID uint16) []uint16 {
	return m.filter(swarmID, false)
}

func (m *Membership) filter(swarmID uint16, wantMember bool) []uint16 {
	var out []uint16
	for robot, n := range m.neighbors {
		if n.has(swarmID) == wantMember {
			out = append(out, robot)
		}
	}
	slices.Sort(out)
	return out
}
