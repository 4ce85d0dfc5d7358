// Package outmsg implements the per-kind, deduplicating outgoing
// message queue described in §4.I, grounded on the mechanism in
// buzzoutmsg.c (per-kind FIFOs, a vstig dedup index, non-destructive
// first()/destructive next()) generalized to the fuller six-kind
// scheme spec'd here (that C snapshot only covers four kinds and has
// a TODO where swarm-list support belongs).
package outmsg

import (
	"github.com/buzzswarm/buzzvm/darray"
	"github.com/buzzswarm/buzzvm/msg"
	"github.com/buzzswarm/buzzvm/value"
)

// Queue holds one robot's pending outgoing messages.
type Queue struct {
	broadcast *darray.Array[msg.BroadcastMsg]
	swarmList *msg.SwarmListMsg // at most one queued at a time
	join      *darray.Array[msg.SwarmMembershipMsg]
	leave     *darray.Array[msg.SwarmMembershipMsg]
	vstigPut  *darray.Array[msg.VstigMsg]
	vstigQry  *darray.Array[msg.VstigMsg]
}

// New creates an empty outgoing queue.
func New() *Queue {
	return &Queue{
		broadcast: darray.New[msg.BroadcastMsg](0),
		join:      darray.New[msg.SwarmMembershipMsg](0),
		leave:     darray.New[msg.SwarmMembershipMsg](0),
		vstigPut:  darray.New[msg.VstigMsg](0),
		vstigQry:  darray.New[msg.VstigMsg](0),
	}
}

// Size returns the total number of queued messages across all kinds.
func (q *Queue) Size() int {
	n := q.broadcast.Size() + q.join.Size() + q.leave.Size() + q.vstigPut.Size() + q.vstigQry.Size()
	if q.swarmList != nil {
		n++
	}
	return n
}

func (q *Queue) IsEmpty() bool { return q.Size() == 0 }

// RootValues returns every value.Value still carried by a queued
// message, for the VM's GC root scan: per §3, a value survives a
// collection cycle iff reachable from the root set, which explicitly
// includes "in/out message queues." SWARM_LIST/JOIN/LEAVE messages
// carry no value.Value payload and so contribute nothing.
func (q *Queue) RootValues() []value.Value {
	var out []value.Value
	for _, b := range q.broadcast.Slice() {
		out = append(out, b.Value)
	}
	for _, v := range q.vstigPut.Slice() {
		out = append(out, v.Value)
	}
	for _, v := range q.vstigQry.Slice() {
		out = append(out, v.Value)
	}
	return out
}

// AppendBroadcast queues a BROADCAST message.
func (q *Queue) AppendBroadcast(m msg.BroadcastMsg) {
	q.broadcast.Push(m)
}

// AppendSwarmList queues a SWARM_LIST snapshot. At most one is ever
// queued: a new one replaces any pending one outright, and clears
// queued JOIN/LEAVE messages, since the full list it carries already
// supersedes any pending incremental join/leave.
func (q *Queue) AppendSwarmList(m msg.SwarmListMsg) {
	q.swarmList = &m
	q.join.Clear()
	q.leave.Clear()
}

// AppendJoin queues a SWARM_JOIN for swarmID. If a SWARM_LIST is
// already queued, the id is folded directly into that list instead of
// being queued separately. Otherwise, a pending LEAVE for the same id
// annihilates with this JOIN (neither is queued).
func (q *Queue) AppendJoin(srcRobot, swarmID uint16) {
	if q.swarmList != nil {
		q.editList(swarmID, true)
		return
	}
	idx := q.leave.Find(func(m msg.SwarmMembershipMsg) bool { return m.SwarmID == swarmID })
	if idx != q.leave.Size() {
		q.leave.Remove(idx)
		return
	}
	q.join.Push(msg.SwarmMembershipMsg{Kind: msg.SwarmJoin, SrcRobot: srcRobot, SwarmID: swarmID})
}

// AppendLeave is AppendJoin's mirror image for SWARM_LEAVE.
func (q *Queue) AppendLeave(srcRobot, swarmID uint16) {
	if q.swarmList != nil {
		q.editList(swarmID, false)
		return
	}
	idx := q.join.Find(func(m msg.SwarmMembershipMsg) bool { return m.SwarmID == swarmID })
	if idx != q.join.Size() {
		q.join.Remove(idx)
		return
	}
	q.leave.Push(msg.SwarmMembershipMsg{Kind: msg.SwarmLeave, SrcRobot: srcRobot, SwarmID: swarmID})
}

func (q *Queue) editList(swarmID uint16, joining bool) {
	ids := q.swarmList.SwarmIDs
	pos := -1
	for i, id := range ids {
		if id == swarmID {
			pos = i
			break
		}
	}
	if joining {
		if pos < 0 {
			q.swarmList.SwarmIDs = append(ids, swarmID)
		}
		return
	}
	if pos >= 0 {
		q.swarmList.SwarmIDs = append(ids[:pos], ids[pos+1:]...)
	}
}

// appendVstig is shared by AppendVstigPut/AppendVstigQuery: queueing a
// new write to (vstigID, keySID) replaces any pending write (put or
// query alike) for the same key whose timestamp is strictly older;
// writes with an equal or newer timestamp win and get queued in the
// new write's place. A strictly older incoming write is dropped.
func (q *Queue) appendVstig(m msg.VstigMsg, target *darray.Array[msg.VstigMsg]) {
	match := func(o msg.VstigMsg) bool { return o.VstigID == m.VstigID && o.KeySID == m.KeySID }

	if idx := q.vstigPut.Find(match); idx != q.vstigPut.Size() {
		if q.vstigPut.Get(idx).Timestamp > m.Timestamp {
			return
		}
		q.vstigPut.Remove(idx)
	}
	if idx := q.vstigQry.Find(match); idx != q.vstigQry.Size() {
		if q.vstigQry.Get(idx).Timestamp > m.Timestamp {
			return
		}
		q.vstigQry.Remove(idx)
	}
	target.Push(m)
}

// AppendVstigPut queues a VSTIG_PUT.
func (q *Queue) AppendVstigPut(m msg.VstigMsg) {
	m.Kind = msg.VstigPut
	q.appendVstig(m, q.vstigPut)
}

// AppendVstigQuery queues a VSTIG_QUERY.
func (q *Queue) AppendVstigQuery(m msg.VstigMsg) {
	m.Kind = msg.VstigQuery
	q.appendVstig(m, q.vstigQry)
}

// First returns a freshly serialized payload for the next message to
// send, in fixed priority order (broadcast, swarm-list, vstig-put,
// vstig-query, swarm-join, swarm-leave), without dequeuing it. It
// returns ok=false if the queue is empty.
func (q *Queue) First() (payload []byte, ok bool) {
	switch {
	case !q.broadcast.IsEmpty():
		b, err := q.broadcast.Get(0).Encode()
		return b, err == nil
	case q.swarmList != nil:
		b, err := q.swarmList.Encode()
		return b, err == nil
	case !q.vstigPut.IsEmpty():
		b, err := q.vstigPut.Get(0).Encode()
		return b, err == nil
	case !q.vstigQry.IsEmpty():
		b, err := q.vstigQry.Get(0).Encode()
		return b, err == nil
	case !q.join.IsEmpty():
		b, err := q.join.Get(0).Encode()
		return b, err == nil
	case !q.leave.IsEmpty():
		b, err := q.leave.Get(0).Encode()
		return b, err == nil
	default:
		return nil, false
	}
}

// Next removes the message First() would currently return.
func (q *Queue) Next() {
	switch {
	case !q.broadcast.IsEmpty():
		q.broadcast.Remove(0)
	case q.swarmList != nil:
		q.swarmList = nil
	case !q.vstigPut.IsEmpty():
		q.vstigPut.Remove(0)
	case !q.vstigQry.IsEmpty():
		q.vstigQry.Remove(0)
	case !q.join.IsEmpty():
		q.join.Remove(0)
	case !q.leave.IsEmpty():
		q.leave.Remove(0)
	}
}
