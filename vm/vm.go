package vm

import (
	"go.uber.org/zap"

	"github.com/buzzswarm/buzzvm/bytecode"
	"github.com/buzzswarm/buzzvm/darray"
	"github.com/buzzswarm/buzzvm/inmsg"
	"github.com/buzzswarm/buzzvm/outmsg"
	"github.com/buzzswarm/buzzvm/strman"
	"github.com/buzzswarm/buzzvm/swarm"
	"github.com/buzzswarm/buzzvm/value"
	"github.com/buzzswarm/buzzvm/vstig"
)

// MaxFrames bounds call depth; exceeding it raises STACK_OVERFLOW, per
// §7 ("frame-stack exceeds host-chosen limit").
const MaxFrames = 4096

// VM is a single Buzz virtual machine: one stack-based interpreter
// over one immutable bytecode blob. Every piece of mutable state it
// touches — heap, interner, globals, both message queues — is owned
// by exactly one VM; no locking, no hidden singletons, matching §5 and
// §9's "carry an explicit VM handle through every operation."
type VM struct {
	Blob *bytecode.Blob
	Debug *bytecode.DebugMap
	stringTable []strman.ID

	PC        uint32
	State     State
	ErrorKind ErrorKind

	stack  *darray.Array[value.Value]
	frames *darray.Array[Frame]

	Globals       *value.TableObj
	globalsHandle value.Handle

	Heap    *value.Heap
	Strings *strman.Manager

	natives map[uint32]value.NativeFunc
	nextNativeID uint32

	// SwarmStack holds the swarm ids currently in scope, innermost
	// last; pushed on entry to a swarm.with block and popped on exit,
	// per §4.K's kin/nonkin filter contract.
	SwarmStack *darray.Array[uint16]

	// swarmPushPending is set by calls() immediately before it delegates
	// to callc(), so callc() can tag the frame it pushes (if any) as the
	// owner of the swarm-context entry calls() just pushed.
	swarmPushPending bool

	// Swarm is this robot's local membership set plus its neighbor
	// table, consulted by kin/nonkin-filtered native closures using
	// CurrentSwarmContext.
	Swarm *swarm.Membership

	// Outbox and Inbox are this robot's owned message queues, per §5's
	// shared-resource policy: the VM owns them outright, so they need
	// no locking, and their held value.Values are part of the GC root
	// set (see GC) per §3.
	Outbox *outmsg.Queue
	Inbox  *inmsg.Queue

	// Vstigs holds this robot's virtual stigmergies, keyed by the id a
	// bytecode program names them with on PUT/QUERY/wire traffic.
	// Entries are created lazily by Vstig.
	Vstigs map[uint16]*vstig.Stigmergy

	// Logger receives structured diagnostics for dropped messages,
	// rejected stigmergy writes, neighbor eviction, and GC sweep
	// counts. A nil Logger passed to New is replaced with a no-op one.
	Logger *zap.Logger

	RobotID uint16

	Stdout interface {
		Write(p []byte) (int, error)
	}
}

// New creates a VM ready to load a bytecode blob. A nil logger is
// replaced with a no-op one and propagated to every owned component
// that logs (Swarm, Vstig, Inbox).
func New(robotID uint16, logger *zap.Logger) *VM {
	if logger == nil {
		logger = zap.NewNop()
	}
	strs := strman.New()
	heap := value.NewHeap(strs)
	globalsHandle, _ := heap.NewTable()

	m := &VM{
		stack:         darray.New[value.Value](64),
		frames:        darray.New[Frame](16),
		Heap:          heap,
		Strings:       strs,
		globalsHandle: globalsHandle,
		Globals:       heap.Table(globalsHandle),
		natives:       make(map[uint32]value.NativeFunc),
		SwarmStack:    darray.New[uint16](4),
		Swarm:         swarm.New(logger),
		Outbox:        outmsg.New(),
		Inbox:         inmsg.New(logger),
		Vstigs:        make(map[uint16]*vstig.Stigmergy),
		Logger:        logger,
		RobotID:       robotID,
	}
	return m
}

// Vstig returns the stigmergy identified by id, creating it on first
// access. A robot may own several, per vstig's doc comment; this is
// the lazy table that backs the id scheme the wire messages carry.
func (m *VM) Vstig(id uint16) *vstig.Stigmergy {
	s, ok := m.Vstigs[id]
	if !ok {
		s = vstig.New(m.Heap, m.Logger)
		m.Vstigs[id] = s
	}
	return s
}

// TickSwarm ages this robot's neighbor table by one round, per §4.K.
// The host calls this once per control-loop round, between bytecode
// step() calls, alongside draining Outbox onto the transport and
// delivering arrivals into Inbox (§5).
func (m *VM) TickSwarm() []uint16 {
	return m.Swarm.Tick()
}

// Load installs a bytecode blob (and optional debug map) into the VM,
// interning the blob's string table so PUSHS operands (table indices)
// resolve to runtime string ids, and resets execution state to READY
// at PC 0.
func (m *VM) Load(blob *bytecode.Blob, debug *bytecode.DebugMap) {
	m.Blob = blob
	m.Debug = debug
	m.PC = 0
	m.State = Ready
	m.ErrorKind = NoError
	m.stack.Clear()
	m.frames = darray.New[Frame](16)

	m.stringTable = make([]strman.ID, len(blob.Strings))
	for i, s := range blob.Strings {
		m.stringTable[i] = m.Strings.Register(s, false)
	}
}

// RegisterNative installs a host callback into the global table under
// name, returning the closure id a bytecode program can PUSHCN to
// obtain a callable value for it — the native-registration API of §6.
func (m *VM) RegisterNative(name string, fn value.NativeFunc) uint32 {
	id := m.nextNativeID
	m.nextNativeID++
	m.natives[id] = fn
	sid := m.Strings.Register(name, true)
	_, cl := m.Heap.NewClosure(value.ClosureObj{Kind: value.NativeClosure, Target: id, Native: fn, Self: value.NilValue()})
	m.Globals.Put(m.Heap, value.StringValue(sid), cl)
	return id
}

// push/pop operate on the current frame's operand stack (the topmost
// segment of the stack-of-stacks, bounded below by the active frame's
// StackFloor so a callee can never underflow into its caller's
// values).
func (m *VM) push(v value.Value) { m.stack.Push(v) }

func (m *VM) floor() int {
	if m.frames.IsEmpty() {
		return 0
	}
	return m.frames.Top().StackFloor
}

func (m *VM) pop() (value.Value, bool) {
	if m.stack.Size() <= m.floor() {
		return value.Value{}, false
	}
	return m.stack.Pop(), true
}

func (m *VM) top() (value.Value, bool) {
	if m.stack.Size() <= m.floor() {
		return value.Value{}, false
	}
	return m.stack.Top(), true
}

func (m *VM) fail(kind ErrorKind) {
	m.State = Error
	m.ErrorKind = kind
}

// StackDepth reports the current operand-stack height, for tests and
// tracing.
func (m *VM) StackDepth() int { return m.stack.Size() }

// StackAt returns the value n positions from the top (0 = top), part
// of the native-closure calling-convention surface in §6.
func (m *VM) StackAt(n int) value.Value {
	return m.stack.Get(m.stack.Size() - 1 - n)
}

// CurrentSwarmContext returns the swarm id at the top of the
// swarm-context stack — the id a swarm.with block most recently
// entered — and whether any context is active at all. Native closures
// implementing the kin/nonkin neighbor filter (§4.K) consult this to
// know which swarm id to filter Swarm's neighbor table against.
func (m *VM) CurrentSwarmContext() (uint16, bool) {
	if m.SwarmStack.IsEmpty() {
		return 0, false
	}
	return m.SwarmStack.Top(), true
}
