package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/buzzswarm/buzzvm/asm"
	"github.com/buzzswarm/buzzvm/bytecode"
	"github.com/buzzswarm/buzzvm/value"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func compileAndLoad(t *testing.T, src string) *VM {
	t.Helper()
	res, err := asm.Assemble(strings.NewReader(src), "test.basm")
	assert(t, err == nil, "assemble failed: %v", err)
	m := New(1, nil)
	m.Load(res.Blob, res.Debug)
	return m
}

func TestScenarioA1SimpleAdd(t *testing.T) {
	m := compileAndLoad(t, "!0\npushi 41\npushi 1\nadd\ndone\n")
	st := m.Run()
	assert(t, st == Done, "expected DONE, got %s (err=%s)", st, m.ErrorKind)
	top, ok := m.top()
	assert(t, ok, "expected a value on the stack")
	assert(t, top.Tag == value.Int && top.I == 42, "expected int 42, got %+v", top)
}

func TestScenarioA2LoopFiveTimes(t *testing.T) {
	m := compileAndLoad(t, strings.Join([]string{
		"!0",
		"pushi 5",
		"lstore 0",
		"@loop",
		"lload 0",
		"pushi 0",
		"gt",
		"jumpz end",
		"lload 0",
		"pushi 1",
		"sub",
		"lstore 0",
		"jump loop",
		"@end",
		"done",
		"",
	}, "\n"))
	// a bare top-level loop has no frame, and lload/lstore with no
	// frame fail with NO_SUCH_SYMBOL; push one synthetic frame manually
	// so the loop has locals to work on.
	m.frames.Push(Frame{})
	st := m.Run()
	assert(t, st == Done, "expected DONE, got %s (err=%s)", st, m.ErrorKind)
}

func TestDivByZero(t *testing.T) {
	m := compileAndLoad(t, "!0\npushi 1\npushi 0\ndiv\ndone\n")
	st := m.Run()
	assert(t, st == Error, "expected ERROR, got %s", st)
	assert(t, m.ErrorKind == DivByZero, "expected DIV_BY_ZERO, got %s", m.ErrorKind)
}

func TestStackUnderflow(t *testing.T) {
	m := compileAndLoad(t, "!0\nadd\ndone\n")
	st := m.Run()
	assert(t, st == Error, "expected ERROR, got %s", st)
	assert(t, m.ErrorKind == StackUnderflow, "expected STACK_UNDERFLOW, got %s", m.ErrorKind)
}

func TestTypeErrorOnUnm(t *testing.T) {
	m := compileAndLoad(t, "!1\n'x\npushs 0\nunm\ndone\n")
	st := m.Run()
	assert(t, st == Error, "expected ERROR, got %s", st)
	assert(t, m.ErrorKind == TypeError, "expected TYPE_ERROR, got %s", m.ErrorKind)
}

func TestUnknownOpcodeByte(t *testing.T) {
	m := New(1, nil)
	// manufacture a blob with a stray invalid opcode byte
	m.Load(&bytecode.Blob{Code: []byte{0xFE}}, nil)
	st := m.Run()
	assert(t, st == Error, "expected ERROR, got %s", st)
	assert(t, m.ErrorKind == UnknownOpcode, "expected UNKNOWN_OPCODE, got %s", m.ErrorKind)
}

func TestTableRoundTrip(t *testing.T) {
	m := compileAndLoad(t, strings.Join([]string{
		"!1",
		"'k",
		"pusht",
		"pushs 0",
		"pushi 7",
		"tput",
		"pushs 0",
		"tget",
		"done",
		"",
	}, "\n"))
	st := m.Run()
	assert(t, st == Done, "expected DONE, got %s (err=%s)", st, m.ErrorKind)
	top, ok := m.top()
	assert(t, ok && top.Tag == value.Int && top.I == 7, "expected int 7 from table, got %+v ok=%v", top, ok)
}

func TestCallcInvokesNativeClosureAndReturnsOne(t *testing.T) {
	m := New(1, nil)
	id := m.RegisterNative("double", func(c value.NativeCallContext) error {
		arg := c.Arg(0)
		c.Return1(value.IntValue(arg.I * 2))
		return nil
	})
	// CALLC expects top-first arg_n...arg_1, closure, i.e. the closure
	// goes on the stack first (deepest) and the argument on top.
	res, err := asm.Assemble(strings.NewReader("!0\npushcn 0\npushi 21\ncallc 1\ndone\n"), "t.basm")
	assert(t, err == nil, "assemble failed: %v", err)
	res.Blob.Code[1] = byte(id)
	m.Load(res.Blob, res.Debug)

	st := m.Run()
	assert(t, st == Done, "expected DONE, got %s (err=%s)", st, m.ErrorKind)
	top, ok := m.top()
	assert(t, ok && top.Tag == value.Int && top.I == 42, "expected int 42, got %+v", top)
}

func TestCallsPushesAndPopsSwarmContextForNativeCall(t *testing.T) {
	m := New(1, nil)
	var seenCtx uint16
	var sawCtx bool
	id := m.RegisterNative("ctxprobe", func(c value.NativeCallContext) error {
		seenCtx, sawCtx = m.CurrentSwarmContext()
		c.Return0()
		return nil
	})
	res, err := asm.Assemble(strings.NewReader("!0\npushcn 0\npushi 7\ncalls 0\ndone\n"), "t.basm")
	assert(t, err == nil, "assemble failed: %v", err)
	res.Blob.Code[1] = byte(id)
	m.Load(res.Blob, res.Debug)

	st := m.Run()
	assert(t, st == Done, "expected DONE, got %s (err=%s)", st, m.ErrorKind)
	assert(t, sawCtx && seenCtx == 7, "expected swarm context 7 during native call, got ctx=%d sawCtx=%v", seenCtx, sawCtx)
	_, hasCtx := m.CurrentSwarmContext()
	assert(t, !hasCtx, "expected swarm context popped after the call returned")
}

func TestSwarmContextSurvivesNestedPlainCallc(t *testing.T) {
	m := New(1, nil)
	var seenCtx uint16
	var sawCtx bool
	id := m.RegisterNative("probe", func(c value.NativeCallContext) error {
		seenCtx, sawCtx = m.CurrentSwarmContext()
		c.Return0()
		return nil
	})
	// @body is entered via CALLS (so it owns the swarm-context push),
	// and itself makes a plain CALLC call to a native closure before
	// returning. That inner CALLC must not pop the swarm context that
	// belongs to the enclosing CALLS frame.
	src := strings.Join([]string{
		"!0",
		"pushcc body",
		"pushi 5",
		"calls 0",
		"done",
		"@body",
		"pushcn 0",
		"callc 0",
		"ret0",
		"",
	}, "\n")
	res, err := asm.Assemble(strings.NewReader(src), "t.basm")
	assert(t, err == nil, "assemble failed: %v", err)
	// pushcn's index operand is the first byte following its opcode;
	// it sits after the "pushcc body" instruction (1 opcode byte +
	// 4-byte index), the "pushi 5"/"calls 0" instructions and "done".
	idx := bytes.Index(res.Blob.Code, []byte{byte(bytecode.PUSHCN), 0, 0, 0, 0})
	assert(t, idx >= 0, "could not locate pushcn instruction to patch")
	res.Blob.Code[idx+1] = byte(id)
	m.Load(res.Blob, res.Debug)

	st := m.Run()
	assert(t, st == Done, "expected DONE, got %s (err=%s)", st, m.ErrorKind)
	assert(t, sawCtx && seenCtx == 5, "expected swarm context 5 during nested native call, got ctx=%d sawCtx=%v", seenCtx, sawCtx)
	_, hasCtx := m.CurrentSwarmContext()
	assert(t, !hasCtx, "expected swarm context popped after the outer CALLS frame returned")
}

func TestDeterminismSameBytecodeSameResult(t *testing.T) {
	src := "!0\npushi 10\npushi 20\nmul\ndone\n"
	m1 := compileAndLoad(t, src)
	m2 := compileAndLoad(t, src)
	st1 := m1.Run()
	st2 := m2.Run()
	assert(t, st1 == st2, "expected matching states, got %s vs %s", st1, st2)
	v1, _ := m1.top()
	v2, _ := m2.top()
	assert(t, v1 == v2, "expected identical final values, got %+v vs %+v", v1, v2)
}
