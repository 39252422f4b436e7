package protocols

import (
	"github.com/jonathanxuu/distaff/internal/distaff/core"
	"github.com/jonathanxuu/distaff/internal/distaff/vm"
)

// Stack evaluates the user-stack transition constraints: five auxiliary
// value checks followed by one shift/copy constraint per stack register.
//
// Flow steps carry the all-ones bit pattern, so the NOOP flag doubles as
// the flow-step copy gate; flow-op shifts enter as difference terms so the
// copy and shift contributions never double-count.
type Stack struct {
	stackDepth int
	degrees    []int
}

// NewStack builds the stack constraint evaluator for the given depth.
func NewStack(stackDepth int) *Stack {
	degrees := []int{
		7, // assert: popped value must be one
		6, // asserteq: popped values must match
		7, // not: the operand is binary
		7, // eq: result times difference vanishes
		7, // choose: the condition is binary
	}
	for i := 0; i < stackDepth; i++ {
		degrees = append(degrees, 8)
	}
	return &Stack{stackDepth: stackDepth, degrees: degrees}
}

// ConstraintDegrees returns the declared degree of every stack constraint.
func (s *Stack) ConstraintDegrees() []int { return s.degrees }

// NumConstraints returns the number of stack constraints.
func (s *Stack) NumConstraints() int { return len(s.degrees) }

// EvaluateTransition writes one evaluation per constraint into result.
func (s *Stack) EvaluateTransition(cur, next *vm.TraceState, result []core.Element) {
	out := result[:0]

	u := cur.UserStack
	un := next.UserStack

	// Auxiliary value checks.
	out = append(out, cur.AssertFlag().Mul(u(0).Sub(core.One)))
	out = append(out, cur.LdOpFlag(vm.OpAssertEq).Mul(u(0).Sub(u(1))))
	out = append(out, cur.LdOpFlag(vm.OpNot).Mul(u(0)).Mul(core.One.Sub(u(0))))
	out = append(out, cur.LdOpFlag(vm.OpEq).Mul(un(0)).Mul(u(1).Sub(u(2))))
	out = append(out, cur.LdOpFlag(vm.OpChoose).Mul(u(0)).Mul(core.One.Sub(u(0))))

	// Shared flags.
	copyFlag := cur.NoopFlag().Add(cur.BeginFlag())
	shift2Flow := cur.CfFlag(vm.FlowBegin).Add(cur.CfFlag(vm.FlowLoop))
	shift1Flow := cur.CfFlag(vm.FlowWrap).Add(cur.CfFlag(vm.FlowBreak))
	advice1 := cur.PushFlag().Add(cur.LdOpFlag(vm.OpRead)).Add(cur.LdOpFlag(vm.OpHintInv))

	for j := 0; j < s.stackDepth; j++ {
		acc := un(j)

		// Copies: noop and the step-0 pseudo-op; flow-op pops expressed
		// as difference terms on top of the noop copy.
		acc = acc.Sub(copyFlag.Mul(u(j)))
		acc = acc.Sub(shift2Flow.Mul(u(j + 2).Sub(u(j))))
		acc = acc.Sub(shift1Flow.Mul(u(j + 1).Sub(u(j))))

		// Advice pushes leave their slots unconstrained; deeper registers
		// shift right.
		if j == 0 {
			acc = acc.Sub(advice1.Mul(un(0)))
		} else {
			acc = acc.Sub(advice1.Mul(u(j - 1)))
		}
		if j < 2 {
			acc = acc.Sub(cur.LdOpFlag(vm.OpHintDiv2).Mul(un(j)))
		} else {
			acc = acc.Sub(cur.LdOpFlag(vm.OpHintDiv2).Mul(u(j - 2)))
		}

		// Value-producing and shuffling ops.
		if j == 0 {
			acc = acc.Sub(cur.LdOpFlag(vm.OpDup).Mul(u(0)))
		} else {
			acc = acc.Sub(cur.LdOpFlag(vm.OpDup).Mul(u(j - 1)))
		}
		switch j {
		case 0:
			acc = acc.Sub(cur.LdOpFlag(vm.OpSwap).Mul(u(1)))
			acc = acc.Sub(cur.LdOpFlag(vm.OpRoll3).Mul(u(2)))
			acc = acc.Sub(cur.LdOpFlag(vm.OpRoll4).Mul(u(3)))
		case 1:
			acc = acc.Sub(cur.LdOpFlag(vm.OpSwap).Mul(u(0)))
			acc = acc.Sub(cur.LdOpFlag(vm.OpRoll3).Mul(u(0)))
			acc = acc.Sub(cur.LdOpFlag(vm.OpRoll4).Mul(u(0)))
		case 2:
			acc = acc.Sub(cur.LdOpFlag(vm.OpSwap).Mul(u(2)))
			acc = acc.Sub(cur.LdOpFlag(vm.OpRoll3).Mul(u(1)))
			acc = acc.Sub(cur.LdOpFlag(vm.OpRoll4).Mul(u(1)))
		case 3:
			acc = acc.Sub(cur.LdOpFlag(vm.OpSwap).Mul(u(3)))
			acc = acc.Sub(cur.LdOpFlag(vm.OpRoll3).Mul(u(3)))
			acc = acc.Sub(cur.LdOpFlag(vm.OpRoll4).Mul(u(2)))
		default:
			acc = acc.Sub(cur.LdOpFlag(vm.OpSwap).Mul(u(j)))
			acc = acc.Sub(cur.LdOpFlag(vm.OpRoll3).Mul(u(j)))
			acc = acc.Sub(cur.LdOpFlag(vm.OpRoll4).Mul(u(j)))
		}

		acc = acc.Sub(cur.LdOpFlag(vm.OpDrop).Add(cur.AssertFlag()).Mul(u(j + 1)))
		acc = acc.Sub(cur.LdOpFlag(vm.OpNeg).Mul(pick(j == 0, u(0).Neg(), u(j))))
		acc = acc.Sub(cur.LdOpFlag(vm.OpAdd).Mul(pick(j == 0, u(0).Add(u(1)), u(j+1))))
		acc = acc.Sub(cur.LdOpFlag(vm.OpMul).Mul(pick(j == 0, u(0).Mul(u(1)), u(j+1))))
		acc = acc.Sub(cur.LdOpFlag(vm.OpNot).Mul(pick(j == 0, core.One.Sub(u(0)), u(j))))
		acc = acc.Sub(cur.LdOpFlag(vm.OpEq).Mul(pick(j == 0, core.One.Sub(u(1).Sub(u(2)).Mul(u(0))), u(j+2))))
		acc = acc.Sub(cur.LdOpFlag(vm.OpChoose).Mul(pick(j == 0, u(2).Add(u(0).Mul(u(1).Sub(u(2)))), u(j+2))))
		acc = acc.Sub(cur.LdOpFlag(vm.OpAssertEq).Mul(u(j + 2)))

		out = append(out, acc)
	}

	if len(out) != len(s.degrees) {
		panic("protocols: stack constraint count drifted from its degree table")
	}
}

func pick(cond bool, a, b core.Element) core.Element {
	if cond {
		return a
	}
	return b
}
