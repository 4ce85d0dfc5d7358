package value

// Clone performs a deep copy of compound values (table, closure);
// scalar values (nil, int, float, string, userdata) are returned as
// themselves, since strings are interned ids and userdata is an opaque
// host pointer neither of which this VM owns a private copy of.
func (h *Heap) Clone(v Value) Value {
	return h.cloneSeen(v, make(map[Handle]Handle))
}

func (h *Heap) cloneSeen(v Value, seen map[Handle]Handle) Value {
	switch v.Tag {
	case Table:
		if nh, ok := seen[v.H]; ok {
			return TableValue(nh)
		}
		src := h.Table(v.H)
		if src == nil {
			return v
		}
		handle, nv := h.NewTable()
		seen[v.H] = handle
		dst := h.Table(handle)
		src.Foreach(func(k, val Value) bool {
			dst.Put(h, h.cloneSeen(k, seen), h.cloneSeen(val, seen))
			return true
		})
		return nv
	case Closure:
		if nh, ok := seen[v.H]; ok {
			return ClosureValue(nh)
		}
		src := h.Closure(v.H)
		if src == nil {
			return v
		}
		cp := ClosureObj{Kind: src.Kind, Target: src.Target, Native: src.Native}
		handle, nv := h.NewClosure(cp)
		seen[v.H] = handle
		dst := h.Closure(handle)
		dst.Self = h.cloneSeen(src.Self, seen)
		dst.Upvalue = make([]Value, len(src.Upvalue))
		for i, uv := range src.Upvalue {
			dst.Upvalue[i] = h.cloneSeen(uv, seen)
		}
		return nv
	default:
		return v
	}
}
