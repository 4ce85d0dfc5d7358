package value

// GC walks the root set, marks everything reachable, calls
// Strs.Mark for every live string id found along the way (so the
// interner's own GC can run immediately after), then sweeps the heap
// arena freeing anything unmarked. It returns the number of objects
// freed. Cycles are broken by a seen-handles set in the work list, per
// the design note to prefer arena storage with indices over
// back-references.
func (h *Heap) GC(roots []Value) int {
	for _, o := range h.objs {
		if o != nil {
			o.marked = false
		}
	}

	h.Strs.GCClear()

	seen := make(map[Handle]bool)
	work := make([]Value, len(roots))
	copy(work, roots)

	for len(work) > 0 {
		v := work[len(work)-1]
		work = work[:len(work)-1]
		h.markValue(v, seen, &work)
	}

	freed := 0
	for idx, o := range h.objs {
		if o == nil {
			continue
		}
		if !o.marked {
			h.objs[idx] = nil
			h.free = append(h.free, Handle(idx))
			freed++
		}
	}
	return freed
}

func (h *Heap) markValue(v Value, seen map[Handle]bool, work *[]Value) {
	if v.Tag == String {
		h.Strs.Mark(v.S)
		return
	}
	if !v.IsCompound() {
		return
	}
	if seen[v.H] {
		return
	}
	seen[v.H] = true
	o := h.obj(v.H)
	if o == nil {
		return
	}
	o.marked = true
	switch o.kind {
	case kindTable:
		o.table.Foreach(func(k, val Value) bool {
			*work = append(*work, k, val)
			return true
		})
	case kindClosure:
		*work = append(*work, o.closure.Self)
		*work = append(*work, o.closure.Upvalue...)
	case kindUserData:
		// opaque: nothing structural to mark
	}
}
