package vm

import (
	"math"

	"github.com/buzzswarm/buzzvm/bytecode"
	"github.com/buzzswarm/buzzvm/value"
)

func (m *VM) popOperands() (a, b value.Value, ok bool) {
	b, ok1 := m.pop()
	a, ok2 := m.pop()
	return a, b, ok1 && ok2
}

// arith implements ADD/SUB/MUL/DIV/MOD/POW. Mixed int/float operands
// promote the result to float; integer DIV/MOD by zero raises
// DIV_BY_ZERO; MOD follows the sign of the dividend (Go's % already
// does); POW always promotes to float.
func (m *VM) arith(op bytecode.Opcode) {
	a, b, ok := m.popOperands()
	if !ok {
		m.fail(StackUnderflow)
		return
	}
	if !isNumeric(a) || !isNumeric(b) {
		m.fail(TypeError)
		return
	}
	if op == bytecode.POW {
		m.push(value.FloatValue(float32(math.Pow(float64(asFloat(a)), float64(asFloat(b))))))
		return
	}
	if a.Tag == value.Int && b.Tag == value.Int {
		x, y := a.I, b.I
		switch op {
		case bytecode.ADD:
			m.push(value.IntValue(x + y))
		case bytecode.SUB:
			m.push(value.IntValue(x - y))
		case bytecode.MUL:
			m.push(value.IntValue(x * y))
		case bytecode.DIV:
			if y == 0 {
				m.fail(DivByZero)
				return
			}
			m.push(value.IntValue(x / y))
		case bytecode.MOD:
			if y == 0 {
				m.fail(DivByZero)
				return
			}
			m.push(value.IntValue(x % y))
		}
		return
	}
	x, y := asFloat(a), asFloat(b)
	switch op {
	case bytecode.ADD:
		m.push(value.FloatValue(x + y))
	case bytecode.SUB:
		m.push(value.FloatValue(x - y))
	case bytecode.MUL:
		m.push(value.FloatValue(x * y))
	case bytecode.DIV:
		m.push(value.FloatValue(x / y))
	case bytecode.MOD:
		m.push(value.FloatValue(float32(math.Mod(float64(x), float64(y)))))
	}
}

func isNumeric(v value.Value) bool { return v.Tag == value.Int || v.Tag == value.Float }

func asFloat(v value.Value) float32 {
	if v.Tag == value.Int {
		return float32(v.I)
	}
	return v.F
}

func (m *VM) logic(op bytecode.Opcode) {
	a, b, ok := m.popOperands()
	if !ok {
		m.fail(StackUnderflow)
		return
	}
	var r bool
	if op == bytecode.LAND {
		r = a.Truthy() && b.Truthy()
	} else {
		r = a.Truthy() || b.Truthy()
	}
	m.push(boolValue(r))
}

func (m *VM) unaryLogic() {
	a, ok := m.pop()
	if !ok {
		m.fail(StackUnderflow)
		return
	}
	m.push(boolValue(!a.Truthy()))
}

func boolValue(b bool) value.Value {
	if b {
		return value.IntValue(1)
	}
	return value.IntValue(0)
}

func (m *VM) bitwise(op bytecode.Opcode) {
	if op == bytecode.BNOT {
		a, ok := m.pop()
		if !ok {
			m.fail(StackUnderflow)
			return
		}
		if a.Tag != value.Int {
			m.fail(TypeError)
			return
		}
		m.push(value.IntValue(^a.I))
		return
	}
	a, b, ok := m.popOperands()
	if !ok {
		m.fail(StackUnderflow)
		return
	}
	if a.Tag != value.Int || b.Tag != value.Int {
		m.fail(TypeError)
		return
	}
	switch op {
	case bytecode.BAND:
		m.push(value.IntValue(a.I & b.I))
	case bytecode.BOR:
		m.push(value.IntValue(a.I | b.I))
	case bytecode.LSHIFT:
		m.push(value.IntValue(a.I << uint32(b.I)))
	case bytecode.RSHIFT:
		m.push(value.IntValue(a.I >> uint32(b.I)))
	}
}

func (m *VM) negate() {
	a, ok := m.pop()
	if !ok {
		m.fail(StackUnderflow)
		return
	}
	switch a.Tag {
	case value.Int:
		m.push(value.IntValue(-a.I))
	case value.Float:
		m.push(value.FloatValue(-a.F))
	default:
		m.fail(TypeError)
	}
}

func (m *VM) compareOp(op bytecode.Opcode) {
	a, b, ok := m.popOperands()
	if !ok {
		m.fail(StackUnderflow)
		return
	}
	r, valid := value.Compare(a, b)
	if !valid && op != bytecode.EQ && op != bytecode.NEQ {
		m.fail(TypeError)
		return
	}
	var result bool
	switch op {
	case bytecode.EQ:
		result = valid && r == 0
	case bytecode.NEQ:
		result = !valid || r != 0
	case bytecode.GT:
		result = r > 0
	case bytecode.GTE:
		result = r >= 0
	case bytecode.LT:
		result = r < 0
	case bytecode.LTE:
		result = r <= 0
	}
	m.push(boolValue(result))
}
