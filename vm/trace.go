package vm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RunWithRecover executes the VM to completion, wrapping the dispatch
// loop in a recover() so that a Go-level panic — an out-of-bounds
// access the bounds checks upstream should have caught first —
// surfaces as the same terminal (state=ERROR) result a caught fault
// would have produced, rather than crashing the host process. This
// mirrors the teacher's top-level recover-wrapped driver
// (getDefaultRecoverFuncForVM in the reference material).
func (m *VM) RunWithRecover() (state State, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.State = Error
			if m.ErrorKind == NoError {
				m.ErrorKind = StackUnderflow
			}
			err = fmt.Errorf("vm: recovered from panic at pc=%d: %v", m.PC, r)
			state = m.State
		}
	}()
	state = m.Run()
	return state, nil
}

// RunTrace executes to completion, writing one line to w before every
// step executed, and returns the final state. This backs `run --trace`.
func (m *VM) RunTrace(w io.Writer) State {
	for m.State == Ready {
		fmt.Fprintln(w, m.traceLine())
		m.Step()
	}
	fmt.Fprintln(w, m.traceLine())
	return m.State
}

func (m *VM) traceLine() string {
	return fmt.Sprintf("pc=%-6d state=%-6s stack=%-3d frames=%-3d",
		m.PC, m.State, m.stack.Size(), m.frames.Size())
}

// RunDebugREPL is an interactive single-step debugger in the teacher's
// style: n/next single-steps, r/run executes until DONE/ERROR or a
// breakpoint PC, b <pc> sets a breakpoint on a PC value, q/quit exits
// the loop early.
func (m *VM) RunDebugREPL(in io.Reader, out io.Writer) State {
	scanner := bufio.NewScanner(in)
	breakpoints := make(map[uint32]bool)
	fmt.Fprintln(out, m.traceLine())
	for m.State == Ready {
		fmt.Fprint(out, "(buzz) ")
		if !scanner.Scan() {
			break
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "n", "next":
			m.Step()
			fmt.Fprintln(out, m.traceLine())
		case "r", "run":
			for m.State == Ready && !breakpoints[m.PC] {
				m.Step()
			}
			fmt.Fprintln(out, m.traceLine())
		case "b", "break":
			if len(fields) < 2 {
				fmt.Fprintln(out, "usage: b <pc>")
				continue
			}
			pc, err := strconv.ParseUint(fields[1], 10, 32)
			if err != nil {
				fmt.Fprintln(out, "invalid pc:", fields[1])
				continue
			}
			breakpoints[uint32(pc)] = true
		case "q", "quit":
			return m.State
		default:
			fmt.Fprintln(out, "commands: n/next, r/run, b <pc>, q/quit")
		}
	}
	return m.State
}
