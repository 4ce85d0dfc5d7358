package vm

import "github.com/buzzswarm/buzzvm/value"

func (m *VM) currentLocals() []value.Value {
	if m.frames.IsEmpty() {
		return nil
	}
	return m.frames.Top().Locals
}

func (m *VM) lload(idx int) {
	locals := m.currentLocals()
	if idx < 0 || idx >= len(locals) {
		m.fail(NoSuchSymbol)
		return
	}
	m.push(locals[idx])
}

func (m *VM) lstore(idx int) {
	v, ok := m.pop()
	if !ok {
		m.fail(StackUnderflow)
		return
	}
	if m.frames.IsEmpty() {
		m.fail(NoSuchSymbol)
		return
	}
	f := m.frames.Top()
	if idx < 0 {
		m.fail(NoSuchSymbol)
		return
	}
	for idx >= len(f.Locals) {
		f.Locals = append(f.Locals, value.NilValue())
	}
	f.Locals[idx] = v
	m.frames.Set(m.frames.Size()-1, f)
}

func (m *VM) lremove(idx int) {
	if m.frames.IsEmpty() {
		m.fail(NoSuchSymbol)
		return
	}
	f := m.frames.Top()
	if idx < 0 || idx >= len(f.Locals) {
		m.fail(NoSuchSymbol)
		return
	}
	f.Locals[idx] = value.NilValue()
	m.frames.Set(m.frames.Size()-1, f)
}

func (m *VM) gload() {
	key, ok := m.pop()
	if !ok {
		m.fail(StackUnderflow)
		return
	}
	v, found := m.Globals.Get(m.Heap, key)
	if !found {
		m.fail(NoSuchSymbol)
		return
	}
	m.push(v)
}

func (m *VM) gstore() {
	val, ok1 := m.pop()
	key, ok2 := m.pop()
	if !ok1 || !ok2 {
		m.fail(StackUnderflow)
		return
	}
	m.Globals.Put(m.Heap, key, val)
}

// tput implements table assignment: pops value, key, table (top to
// bottom) and pushes the table back so writes can chain, e.g.
// `pusht; pushs 0; pushi 1; tput` leaves the constructed table on the
// stack.
func (m *VM) tput() {
	val, ok1 := m.pop()
	key, ok2 := m.pop()
	tbl, ok3 := m.pop()
	if !ok1 || !ok2 || !ok3 {
		m.fail(StackUnderflow)
		return
	}
	if tbl.Tag != value.Table {
		m.fail(TypeError)
		return
	}
	t := m.Heap.Table(tbl.H)
	if t == nil {
		m.fail(TypeError)
		return
	}
	t.Put(m.Heap, key, val)
	m.push(tbl)
}

// tget implements table indexing: pops key, table and pushes the
// looked-up value (nil if absent — Buzz tables don't error on missing
// keys the way globals at strict scope do).
func (m *VM) tget() {
	key, ok1 := m.pop()
	tbl, ok2 := m.pop()
	if !ok1 || !ok2 {
		m.fail(StackUnderflow)
		return
	}
	if tbl.Tag != value.Table {
		m.fail(TypeError)
		return
	}
	t := m.Heap.Table(tbl.H)
	if t == nil {
		m.fail(TypeError)
		return
	}
	v, found := t.Get(m.Heap, key)
	if !found {
		v = value.NilValue()
	}
	m.push(v)
}
