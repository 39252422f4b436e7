package vm

import (
	"github.com/jonathanxuu/distaff/internal/distaff/core"
)

// Programs are block trees. Spans hold straight-line instructions; If and
// While introduce the control-flow operations of the decoder. The linear
// opcode stream is produced lazily: the interpreter emits it while
// executing, and the static hash walker below reproduces the same schedule
// without inputs.
//
// Program hashes are branch- and trip-count-independent by construction:
// both arms of an If merge the sponge to [parent, hTrue, hFalse, 0] (the
// sibling hash travels as a pushed literal), and a While contributes its
// body image exactly once through the Break merge.

// Instruction is a single user operation with an optional push literal.
type Instruction struct {
	Op    UserOp
	Value core.Element
}

// Block is a node of the program tree.
type Block interface {
	isBlock()
}

// Span is a run of straight-line instructions.
type Span struct {
	Ops []Instruction
}

// IfBlock executes True when the stack top is one, False when it is zero.
type IfBlock struct {
	True  []Block
	False []Block
}

// WhileBlock repeats Body while the condition it leaves on the stack is
// one. The loop must run at least once; guarding a possibly-false entry
// condition is the program's responsibility.
type WhileBlock struct {
	Body []Block
}

func (Span) isBlock()       {}
func (IfBlock) isBlock()    {}
func (WhileBlock) isBlock() {}

// Program is a compiled program: an opaque tree plus its 32-byte hash.
type Program struct {
	Body []Block

	hash    core.Digest
	hashSet bool
}

// NewProgram wraps a block tree.
func NewProgram(body []Block) *Program {
	return &Program{Body: body}
}

// Hash returns the program hash: the first two sponge words after hashing
// the full opcode stream, encoded as 32 little-endian bytes.
func (p *Program) Hash() core.Digest {
	if !p.hashSet {
		var w spongeWalker
		w.pseudoOp()
		w.walkBlocks(p.Body)
		w.padToStreamEnd()
		p.hash = w.digest()
		p.hashSet = true
	}
	return p.hash
}

// HashElements returns the program hash as its two field-element words.
func (p *Program) HashElements() [2]core.Element {
	h := p.Hash()
	return [2]core.Element{
		core.FromBytes(h[:core.ElementSize]),
		core.FromBytes(h[core.ElementSize:]),
	}
}

// opValue is the field value absorbed for an opcode: the linear
// combination of its bits with powers of two.
func opValue(op UserOp) core.Element {
	return core.FromUint64(uint64(op))
}

// spongeWalker replays the decoder sponge over a program's opcode stream
// without executing it. Its step counter agrees with the interpreter's
// modulo the cycle length (an If or While block advances it only by the
// steps that change the phase), so padding and the round-constant schedule
// match the interpreter exactly.
type spongeWalker struct {
	state [core.SpongeWidth]core.Element
	step  int
}

func (w *spongeWalker) digest() core.Digest {
	var out core.Digest
	first := w.state[0].Bytes()
	second := w.state[1].Bytes()
	copy(out[:core.ElementSize], first[:])
	copy(out[core.ElementSize:], second[:])
	return out
}

// absorb runs one Hacc round for a user op.
func (w *spongeWalker) absorb(op UserOp, value core.Element) {
	var injection [core.SpongeWidth]core.Element
	injection[0] = opValue(op)
	if op == OpPush {
		injection[1] = value
	}
	core.RescueRound(&w.state, w.step, injection)
	w.step++
}

// pseudoOp absorbs the all-zero op occupying step 0.
func (w *spongeWalker) pseudoOp() {
	w.absorb(OpBegin, core.Zero)
}

// padNoops absorbs noops until step = target mod align.
func (w *spongeWalker) padNoops(align, target int) {
	for w.step%align != target {
		w.absorb(OpNoop, core.Zero)
	}
}

// padToStreamEnd pads the stream to a whole number of cycles.
func (w *spongeWalker) padToStreamEnd() {
	w.padNoops(core.CycleLength, 0)
}

func (w *spongeWalker) walkBlocks(blocks []Block) {
	for _, b := range blocks {
		switch blk := b.(type) {
		case Span:
			w.walkSpan(blk)
		case IfBlock:
			w.walkIf(blk)
		case WhileBlock:
			w.walkWhile(blk)
		}
	}
}

func (w *spongeWalker) walkSpan(s Span) {
	for _, instr := range s.Ops {
		if instr.Op == OpPush {
			w.padNoops(8, 0)
		}
		w.absorb(instr.Op, instr.Value)
	}
}

func (w *spongeWalker) walkIf(blk IfBlock) {
	hTrue := hashBranch(blk.True, false)
	hFalse := hashBranch(blk.False, true)

	// Both branch hashes are pushed as literals ahead of Begin, which
	// moves them onto the context stack so the surviving arm can merge its
	// sibling's hash in.
	w.padNoops(8, 0)
	w.absorb(OpPush, hTrue)
	w.padNoops(8, 0)
	w.absorb(OpPush, hFalse)
	w.padNoops(core.CycleLength, core.CycleLength-1)

	// Begin at 16k-1; either arm spans a whole number of cycles and ends
	// with Tend/Fend at 16k, merging to the same state.
	parent := w.state[0]
	w.state = [core.SpongeWidth]core.Element{parent, hTrue, hFalse, core.Zero}
	w.step += 2 // Begin + Tend/Fend; the arm itself is a multiple of 16
}

func (w *spongeWalker) walkWhile(blk WhileBlock) {
	image := hashLoopBody(blk.Body)

	// The body image is pushed ahead of Loop; Loop moves it onto the loop
	// stack where Wrap and Break check it each iteration.
	w.padNoops(8, 0)
	w.absorb(OpPush, image)
	w.padNoops(core.CycleLength, core.CycleLength-1)

	// Loop at 16k-1; each iteration spans whole cycles and ends with Wrap
	// or Break at 16j-1. Break merges the image into the parent once,
	// independent of the trip count.
	parent := w.state[0]
	w.state = [core.SpongeWidth]core.Element{parent, image, core.Zero, core.Zero}
	// Loop consumes the 16k-1 slot, each iteration runs to the next such
	// slot, and Break consumes the final one, so the walker lands on a
	// cycle boundary.
	w.step++
}

// hashBranch computes the hash of one If arm: the condition-consuming
// prologue, the arm's blocks, and noop padding to a cycle boundary, all
// hashed from a fresh sponge at phase 0.
func hashBranch(blocks []Block, negate bool) core.Element {
	var w spongeWalker
	if negate {
		w.absorb(OpNot, core.Zero)
	}
	w.absorb(OpAssert, core.Zero)
	w.walkBlocks(blocks)
	w.padNoops(core.CycleLength, 0)
	return w.state[0]
}

// hashLoopBody computes a While body's image: the body blocks (which must
// leave the next condition on top) padded up to the Wrap/Break slot at
// phase 15, hashed from a fresh sponge at phase 0.
func hashLoopBody(blocks []Block) core.Element {
	var w spongeWalker
	w.walkBlocks(blocks)
	w.padNoops(core.CycleLength, core.CycleLength-1)
	return w.state[0]
}
