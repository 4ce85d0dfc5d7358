package vm

import "github.com/buzzswarm/buzzvm/value"

// Frame is an activation record: the caller's program counter to
// resume at on return, and this call's local-symbol table where
// index 0 holds self (or nil) and indices 1..n hold the call's
// arguments. Each frame owns its local-symbol table, so there is exactly
// one symbol table per frame.
type Frame struct {
	ReturnPC   uint32
	Locals     []value.Value
	Upvalues   []value.Value
	StackFloor int // operand-stack height when this frame was entered

	// SwarmPushed records whether entering this frame also pushed a
	// swarm-context entry (i.e. this frame was entered via CALLS, not
	// CALLC), so ret() pops the swarm stack only for the frame that
	// owns it and leaves an enclosing CALLS's context alone across
	// plain CALLC calls nested inside it.
	SwarmPushed bool
}
