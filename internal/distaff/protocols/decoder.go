package protocols

import (
	"github.com/jonathanxuu/distaff/internal/distaff/core"
	"github.com/jonathanxuu/distaff/internal/distaff/vm"
)

// Decoder evaluates the transition constraints of the decoder portion of
// the trace: op-bit well-formedness, the op counter, control-flow
// discipline, the Rescue sponge and the context/loop stacks.
type Decoder struct {
	ctxDepth  int
	loopDepth int
	degrees   []int
}

// NewDecoder builds the decoder constraint evaluator for the given stack
// depths.
func NewDecoder(ctxDepth, loopDepth int) *Decoder {
	degrees := make([]int, 0, 28+ctxDepth+loopDepth)
	for i := 0; i < vm.NumCfBits+vm.NumLdBits+vm.NumHdBits; i++ {
		degrees = append(degrees, 2) // op bits are binary
	}
	degrees = append(degrees,
		3, // op counter increments on hacc steps
		8, // user bits may be all-zero only at step 0
		8, // flow steps force user bits to ones
		6, // void is absorbing
		4, // alignment masks
		4, // wrap image
		4, // break image
		4, // loop entry condition
		4, // wrap condition
		4, // break condition
	)
	degrees = append(degrees, 6, 7, 6, 6) // sponge hacc rounds
	for i := 0; i < core.SpongeWidth; i++ {
		degrees = append(degrees, 4) // sponge flow effects
	}
	for i := 0; i < ctxDepth; i++ {
		degrees = append(degrees, 4)
	}
	for i := 0; i < loopDepth; i++ {
		degrees = append(degrees, 4)
	}
	return &Decoder{ctxDepth: ctxDepth, loopDepth: loopDepth, degrees: degrees}
}

// ConstraintDegrees returns the declared degree of every decoder
// constraint, in evaluation order.
func (d *Decoder) ConstraintDegrees() []int { return d.degrees }

// NumConstraints returns the number of decoder constraints.
func (d *Decoder) NumConstraints() int { return len(d.degrees) }

// ArkValues holds the two half-round constant vectors at one evaluation
// point; MaskValues holds the three alignment masks.
type ArkValues [2][core.SpongeWidth]core.Element
type MaskValues [3]core.Element

// EvaluateTransition writes one evaluation per constraint into result.
// All evaluations vanish on valid transitions.
func (d *Decoder) EvaluateTransition(cur, next *vm.TraceState, ark *ArkValues, masks *MaskValues, result []core.Element) {
	out := result[:0]

	// Every op bit is binary.
	for i := 0; i < vm.NumCfBits; i++ {
		b := cur.CfBit(i)
		out = append(out, b.Mul(core.One.Sub(b)))
	}
	for i := 0; i < vm.NumLdBits; i++ {
		b := cur.LdBit(i)
		out = append(out, b.Mul(core.One.Sub(b)))
	}
	for i := 0; i < vm.NumHdBits; i++ {
		b := cur.HdBit(i)
		out = append(out, b.Mul(core.One.Sub(b)))
	}

	hacc := cur.CfFlag(vm.FlowHacc)

	// The op counter increments by one exactly on hacc steps.
	out = append(out, next.OpCounter().Sub(cur.OpCounter()).Sub(hacc))

	// All-zero user bits identify the step-0 pseudo-op; the counter is
	// nonzero everywhere else.
	out = append(out, cur.BeginFlag().Mul(cur.OpCounter()))

	// When any cf bit is set, all user bits must be ones.
	ones := core.One
	for i := 0; i < vm.NumLdBits; i++ {
		ones = ones.Mul(cur.LdBit(i))
	}
	for i := 0; i < vm.NumHdBits; i++ {
		ones = ones.Mul(cur.HdBit(i))
	}
	anyCf := cur.CfBit(0).Add(cur.CfBit(1)).Add(cur.CfBit(2))
	out = append(out, anyCf.Mul(core.One.Sub(ones)))

	// Once Void is entered, every later step is Void.
	out = append(out, cur.CfFlag(vm.FlowVoid).Mul(core.One.Sub(next.CfFlag(vm.FlowVoid))))

	// Alignment: Begin/Loop/Wrap/Break at 16k-1, Tend/Fend at 16k, Push
	// at 8k, confined by the periodic masks.
	cycleOps := cur.CfFlag(vm.FlowBegin).
		Add(cur.CfFlag(vm.FlowLoop)).
		Add(cur.CfFlag(vm.FlowWrap)).
		Add(cur.CfFlag(vm.FlowBreak))
	prefixOps := cur.CfFlag(vm.FlowTend).Add(cur.CfFlag(vm.FlowFend))
	out = append(out, masks[0].Mul(cycleOps).
		Add(masks[1].Mul(prefixOps)).
		Add(masks[2].Mul(cur.PushFlag())))

	// Wrap and Break happen only when the body hash matches the committed
	// loop image, and only with the expected condition on top.
	out = append(out, cur.CfFlag(vm.FlowWrap).Mul(cur.Sponge(0).Sub(cur.Loop(0))))
	out = append(out, cur.CfFlag(vm.FlowBreak).Mul(cur.Sponge(0).Sub(cur.Loop(0))))
	out = append(out, cur.CfFlag(vm.FlowLoop).Mul(cur.UserStack(1).Sub(core.One)))
	out = append(out, cur.CfFlag(vm.FlowWrap).Mul(cur.UserStack(0).Sub(core.One)))
	out = append(out, cur.CfFlag(vm.FlowBreak).Mul(cur.UserStack(0)))

	// Sponge hacc rounds: the forward half applied to the current state
	// must meet the inverse half applied to the next state.
	var injection [core.SpongeWidth]core.Element
	injection[0] = cur.OpValue()
	injection[1] = cur.PushFlag().Mul(next.UserStack(0))
	for i := 0; i < core.SpongeWidth; i++ {
		fwd := ark[0][i].Add(injection[i])
		for k := 0; k < core.SpongeWidth; k++ {
			sk := cur.Sponge(k)
			fwd = fwd.Add(core.MDS[i][k].Mul(sk.Square().Mul(sk)))
		}
		bwd := core.Zero
		for k := 0; k < core.SpongeWidth; k++ {
			bwd = bwd.Add(core.InvMDS[i][k].Mul(next.Sponge(k).Sub(ark[1][k])))
		}
		bwd = bwd.Square().Mul(bwd)
		out = append(out, hacc.Mul(fwd.Sub(bwd)))
	}

	// Sponge flow effects: each non-hacc flow op pins the next sponge.
	spongeExpected := map[vm.FlowOp][core.SpongeWidth]core.Element{
		vm.FlowBegin: {core.Zero, core.Zero, core.Zero, core.Zero},
		vm.FlowTend:  {cur.Ctx(0), cur.Sponge(0), cur.Ctx(1), core.Zero},
		vm.FlowFend:  {cur.Ctx(0), cur.Ctx(2), cur.Sponge(0), core.Zero},
		vm.FlowLoop:  {core.Zero, core.Zero, core.Zero, core.Zero},
		vm.FlowWrap:  {core.Zero, core.Zero, core.Zero, core.Zero},
		vm.FlowBreak: {cur.Ctx(0), cur.Sponge(0), core.Zero, core.Zero},
		vm.FlowVoid:  {cur.Sponge(0), cur.Sponge(1), cur.Sponge(2), cur.Sponge(3)},
	}
	flowOrder := []vm.FlowOp{vm.FlowBegin, vm.FlowTend, vm.FlowFend, vm.FlowLoop, vm.FlowWrap, vm.FlowBreak, vm.FlowVoid}
	for i := 0; i < core.SpongeWidth; i++ {
		acc := core.Zero
		for _, op := range flowOrder {
			expected := spongeExpected[op]
			acc = acc.Add(cur.CfFlag(op).Mul(next.Sponge(i).Sub(expected[i])))
		}
		out = append(out, acc)
	}

	// Context stack: Begin pushes [parent, hFalse, hTrue], Loop pushes
	// the parent accumulator, Tend/Fend pop three, Break pops one,
	// everything else copies.
	copyCtx := hacc.Add(cur.CfFlag(vm.FlowVoid)).Add(cur.CfFlag(vm.FlowWrap))
	for j := 0; j < d.ctxDepth; j++ {
		var beginV core.Element
		switch j {
		case 0:
			beginV = cur.Sponge(0)
		case 1:
			beginV = cur.UserStack(0)
		case 2:
			beginV = cur.UserStack(1)
		default:
			beginV = cur.Ctx(j - 3)
		}
		var loopV core.Element
		if j == 0 {
			loopV = cur.Sponge(0)
		} else {
			loopV = cur.Ctx(j - 1)
		}
		acc := cur.CfFlag(vm.FlowBegin).Mul(next.Ctx(j).Sub(beginV))
		acc = acc.Add(cur.CfFlag(vm.FlowTend).Add(cur.CfFlag(vm.FlowFend)).Mul(next.Ctx(j).Sub(cur.Ctx(j + 3))))
		acc = acc.Add(cur.CfFlag(vm.FlowLoop).Mul(next.Ctx(j).Sub(loopV)))
		acc = acc.Add(cur.CfFlag(vm.FlowBreak).Mul(next.Ctx(j).Sub(cur.Ctx(j + 1))))
		acc = acc.Add(copyCtx.Mul(next.Ctx(j).Sub(cur.Ctx(j))))
		out = append(out, acc)
	}

	// Loop stack: Loop pushes the image from the user stack, Break pops,
	// everything else copies.
	copyLoop := hacc.
		Add(cur.CfFlag(vm.FlowVoid)).
		Add(cur.CfFlag(vm.FlowBegin)).
		Add(cur.CfFlag(vm.FlowTend)).
		Add(cur.CfFlag(vm.FlowFend)).
		Add(cur.CfFlag(vm.FlowWrap))
	for j := 0; j < d.loopDepth; j++ {
		var loopV core.Element
		if j == 0 {
			loopV = cur.UserStack(0)
		} else {
			loopV = cur.Loop(j - 1)
		}
		acc := cur.CfFlag(vm.FlowLoop).Mul(next.Loop(j).Sub(loopV))
		acc = acc.Add(cur.CfFlag(vm.FlowBreak).Mul(next.Loop(j).Sub(cur.Loop(j + 1))))
		acc = acc.Add(copyLoop.Mul(next.Loop(j).Sub(cur.Loop(j))))
		out = append(out, acc)
	}

	if len(out) != len(d.degrees) {
		panic("protocols: decoder constraint count drifted from its degree table")
	}
}
