package vm

import (
	"go.uber.org/zap"

	"github.com/buzzswarm/buzzvm/value"
)

// GC runs a full mark-and-sweep pass over the heap and, through it,
// the string interner. Per §3's root-set rule, the root set is the
// global table, every value live on the operand stack, every frame's
// locals and upvalues, every virtual stigmergy's keys and stored
// values, and every value still held by the in/out message queues. It
// returns (objects freed, strings freed).
func (m *VM) GC() (objectsFreed, stringsFreed int) {
	roots := []value.Value{value.TableValue(m.globalsHandle)}
	roots = append(roots, m.stack.Slice()...)
	m.frames.Foreach(func(_ int, f Frame) bool {
		roots = append(roots, f.Locals...)
		roots = append(roots, f.Upvalues...)
		return true
	})
	roots = append(roots, m.Outbox.RootValues()...)
	roots = append(roots, m.Inbox.RootValues()...)
	for _, s := range m.Vstigs {
		roots = append(roots, s.RootValues()...)
	}

	objectsFreed = m.Heap.GC(roots)
	stringsFreed = m.Strings.GCPrune()
	m.Logger.Info("gc sweep", zap.Int("objects_freed", objectsFreed), zap.Int("strings_freed", stringsFreed))
	return
}
