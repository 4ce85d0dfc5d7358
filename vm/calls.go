package vm

import "github.com/buzzswarm/buzzvm/value"

// callc implements CALLC n: the stack holds, top-first,
// arg_n ... arg_1, closure. It builds a new frame with
// locals[0] = self, locals[1..n] = args (in natural left-to-right
// order), then either jumps into the bytecode target or invokes the
// native function synchronously.
func (m *VM) callc(n int) {
	swarmPushed := m.swarmPushPending
	m.swarmPushPending = false

	if m.stack.Size()-m.floor() < n+1 {
		m.fail(StackUnderflow)
		return
	}
	args := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = m.stack.Pop()
	}
	closureVal := m.stack.Pop()
	if closureVal.Tag != value.Closure {
		m.fail(TypeError)
		return
	}
	cl := m.Heap.Closure(closureVal.H)
	if cl == nil {
		m.fail(NoSuchClosure)
		return
	}

	locals := make([]value.Value, n+1)
	locals[0] = cl.Self
	copy(locals[1:], args)

	if cl.Kind == value.NativeClosure {
		m.invokeNative(cl, locals)
		return
	}

	if m.frames.Size() >= MaxFrames {
		m.fail(StackOverflow)
		return
	}
	if int(cl.Target) >= m.Blob.Size() {
		m.fail(NoSuchClosure)
		return
	}
	m.frames.Push(Frame{
		ReturnPC:    m.PC,
		Locals:      locals,
		Upvalues:    cl.Upvalue,
		StackFloor:  m.stack.Size(),
		SwarmPushed: swarmPushed,
	})
	m.PC = cl.Target
}

// calls implements CALLS n (swarm call): like CALLC, but the caller
// additionally supplies a swarm id above the closure on the stack,
// pushed onto the VM's swarm-context stack for the duration of the
// call so kin/nonkin-filtered native operations (§4.K) see the right
// context; this is the mechanism swarm.with blocks compile down to.
func (m *VM) calls(n int) {
	swarmIDVal, ok := m.pop()
	if !ok {
		m.fail(StackUnderflow)
		return
	}
	if swarmIDVal.Tag != value.Int {
		m.fail(TypeError)
		return
	}
	m.SwarmStack.Push(uint16(swarmIDVal.I))
	before := m.frames.Size()
	m.swarmPushPending = true
	m.callc(n)
	// If the call was native, or failed before a frame was pushed
	// (frames unchanged), pop the swarm context immediately; a pushed
	// bytecode-closure frame instead pops it itself in ret(), once that
	// specific frame returns, so nested plain CALLC calls inside the
	// closure don't see it disappear early.
	if m.frames.Size() == before {
		m.swarmPushPending = false
		m.SwarmStack.Pop()
	}
}

func (m *VM) ret(withValue bool) {
	if m.frames.IsEmpty() {
		m.fail(StackUnderflow)
		return
	}
	f := m.frames.Pop()
	var rv value.Value
	if withValue {
		v, ok := m.pop()
		if !ok {
			m.fail(StackUnderflow)
			return
		}
		rv = v
	}
	// discard anything the callee left beyond its declared return
	// arity, enforcing the native-call contract symmetrically for
	// bytecode closures too.
	for m.stack.Size() > f.StackFloor {
		m.stack.Pop()
	}
	if withValue {
		m.push(rv)
	}
	m.PC = f.ReturnPC
	if f.SwarmPushed && !m.SwarmStack.IsEmpty() {
		m.SwarmStack.Pop()
	}
}

// nativeCall adapts a VM+locals pair to value.NativeCallContext.
type nativeCall struct {
	m       *VM
	locals  []value.Value
	retSet  bool
	retVal  value.Value
	hasVal  bool
}

func (c *nativeCall) Argc() int { return len(c.locals) - 1 }
func (c *nativeCall) Arg(i int) value.Value {
	if i+1 < 0 || i+1 >= len(c.locals) {
		return value.NilValue()
	}
	return c.locals[i+1]
}
func (c *nativeCall) Return0()             { c.retSet = true; c.hasVal = false }
func (c *nativeCall) Return1(v value.Value) { c.retSet = true; c.hasVal = true; c.retVal = v }

func (m *VM) invokeNative(cl *value.ClosureObj, locals []value.Value) {
	ctx := &nativeCall{m: m, locals: locals}
	if err := cl.Native(ctx); err != nil {
		m.fail(NoSuchFunction)
		return
	}
	if !ctx.retSet {
		// a native function must leave 0 or 1 values; silence is
		// treated as ret0.
		return
	}
	if ctx.hasVal {
		m.push(ctx.retVal)
	}
}
