package vm

import (
	"fmt"
	"math/big"

	"github.com/jonathanxuu/distaff/internal/distaff/core"
)

// ProgramInputs carries the values a program consumes: public inputs seed
// the user stack and are revealed to the verifier; the secret tapes are
// read by the VM only.
type ProgramInputs struct {
	Public  []core.Element
	SecretA []core.Element
	SecretB []core.Element
}

// NewProgramInputs builds an input set.
func NewProgramInputs(public, secretA, secretB []core.Element) *ProgramInputs {
	return &ProgramInputs{Public: public, SecretA: secretA, SecretB: secretB}
}

// ExecutionError reports a failed program execution with the step at which
// it was detected.
type ExecutionError struct {
	Step    int
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("vm: execution failed at step %d: %s", e.Step, e.Message)
}

// BuildTrace executes the program on the given inputs and returns the
// unextended trace table. The emission schedule (noop padding, flow-op
// alignment, literal pushes around Begin/Loop) matches the program's
// static hash walker step for step; the final sponge state is checked
// against the program hash as a defense against drift between the two.
func BuildTrace(program *Program, inputs *ProgramInputs) (*TraceTable, error) {
	ex := &executor{
		stack: append([]core.Element(nil), inputs.Public...),
		tapeA: inputs.SecretA,
	}
	ex.pseudoOp()
	if err := ex.runBlocks(program.Body); err != nil {
		return nil, err
	}
	ex.padNoops(core.CycleLength, 0)

	// The executed stream must hash to the program hash; a mismatch means
	// the emission schedules diverged and the trace would fail its own
	// boundary constraints.
	want := program.HashElements()
	if !ex.sponge[0].Equal(want[0]) || !ex.sponge[1].Equal(want[1]) {
		return nil, &ExecutionError{Step: len(ex.steps), Message: "executed stream does not reproduce the program hash"}
	}

	return ex.intoTraceTable(), nil
}

type stepSnapshot struct {
	counter uint64
	sponge  [core.SpongeWidth]core.Element
	cf      FlowOp
	user    UserOp
	allOnes bool // flow steps force the user bits to ones
	ctx     []core.Element
	loop    []core.Element
	stack   []core.Element
}

type executor struct {
	steps []stepSnapshot

	counter uint64
	sponge  [core.SpongeWidth]core.Element
	ctx     []core.Element
	loop    []core.Element
	stack   []core.Element

	tapeA    []core.Element
	tapePos  int
	maxCtx   int
	maxLoop  int
	maxStack int
}

// step returns the index of the row about to be emitted.
func (ex *executor) step() int { return len(ex.steps) }

func (ex *executor) snapshot(cf FlowOp, user UserOp, allOnes bool) {
	ex.trackDepths()
	ex.steps = append(ex.steps, stepSnapshot{
		counter: ex.counter,
		sponge:  ex.sponge,
		cf:      cf,
		user:    user,
		allOnes: allOnes,
		ctx:     append([]core.Element(nil), ex.ctx...),
		loop:    append([]core.Element(nil), ex.loop...),
		stack:   append([]core.Element(nil), ex.stack...),
	})
}

func (ex *executor) trackDepths() {
	if len(ex.ctx) > ex.maxCtx {
		ex.maxCtx = len(ex.ctx)
	}
	if len(ex.loop) > ex.maxLoop {
		ex.maxLoop = len(ex.loop)
	}
	if len(ex.stack) > ex.maxStack {
		ex.maxStack = len(ex.stack)
	}
}

func (ex *executor) fail(format string, args ...any) error {
	return &ExecutionError{Step: ex.step(), Message: fmt.Sprintf(format, args...)}
}

// --- user stack access -------------------------------------------------

func (ex *executor) get(i int) core.Element {
	if i >= len(ex.stack) {
		return core.Zero
	}
	return ex.stack[i]
}

func (ex *executor) set(i int, v core.Element) {
	for len(ex.stack) <= i {
		ex.stack = append(ex.stack, core.Zero)
	}
	ex.stack[i] = v
}

func (ex *executor) push(v core.Element) {
	ex.stack = append([]core.Element{v}, ex.stack...)
	ex.trackDepths()
}

func (ex *executor) pop(n int) {
	if n >= len(ex.stack) {
		ex.stack = ex.stack[:0]
		return
	}
	ex.stack = ex.stack[n:]
}

// --- op emission -------------------------------------------------------

// pseudoOp emits the all-zero op at step 0.
func (ex *executor) pseudoOp() {
	ex.snapshot(FlowHacc, OpBegin, false)
	ex.applySponge(OpBegin, core.Zero)
	ex.counter++
}

func (ex *executor) applySponge(op UserOp, value core.Element) {
	var injection [core.SpongeWidth]core.Element
	injection[0] = opValue(op)
	if op == OpPush {
		injection[1] = value
	}
	core.RescueRound(&ex.sponge, len(ex.steps)-1, injection)
}

func (ex *executor) emitUser(op UserOp, value core.Element) error {
	if op == OpPush && ex.step()%8 != 0 {
		return ex.fail("push is only allowed on steps divisible by 8")
	}
	ex.snapshot(FlowHacc, op, false)
	ex.applySponge(op, value)
	ex.counter++
	return ex.applyUserOp(op, value)
}

func (ex *executor) padNoops(align, target int) {
	for ex.step()%align != target {
		ex.snapshot(FlowHacc, OpNoop, false)
		ex.applySponge(OpNoop, core.Zero)
		ex.counter++
	}
}

func (ex *executor) ctxPush(v core.Element) {
	ex.ctx = append([]core.Element{v}, ex.ctx...)
	ex.trackDepths()
}

func (ex *executor) ctxPop() core.Element {
	if len(ex.ctx) == 0 {
		return core.Zero
	}
	top := ex.ctx[0]
	ex.ctx = ex.ctx[1:]
	return top
}

func (ex *executor) loopTop() core.Element {
	if len(ex.loop) == 0 {
		return core.Zero
	}
	return ex.loop[0]
}

// --- block execution ---------------------------------------------------

func (ex *executor) runBlocks(blocks []Block) error {
	for _, b := range blocks {
		var err error
		switch blk := b.(type) {
		case Span:
			err = ex.runSpan(blk)
		case IfBlock:
			err = ex.runIf(blk)
		case WhileBlock:
			err = ex.runWhile(blk)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (ex *executor) runSpan(s Span) error {
	for _, instr := range s.Ops {
		if instr.Op == OpPush {
			ex.padNoops(8, 0)
		}
		if err := ex.emitUser(instr.Op, instr.Value); err != nil {
			return err
		}
	}
	return nil
}

func (ex *executor) runIf(blk IfBlock) error {
	hTrue := hashBranch(blk.True, false)
	hFalse := hashBranch(blk.False, true)

	ex.padNoops(8, 0)
	if err := ex.emitUser(OpPush, hTrue); err != nil {
		return err
	}
	ex.padNoops(8, 0)
	if err := ex.emitUser(OpPush, hFalse); err != nil {
		return err
	}
	ex.padNoops(core.CycleLength, core.CycleLength-1)

	// The condition sits under the two pushed hashes.
	condition := ex.get(2)
	var taken []Block
	var negate bool
	switch {
	case condition.IsOne():
		taken = blk.True
	case condition.IsZero():
		taken = blk.False
		negate = true
	default:
		return ex.fail("if condition is %s, expected a binary value", condition)
	}

	// Begin: move the branch hashes and the parent accumulator onto the
	// context stack, reset the sponge and expose the condition on top.
	ex.snapshot(FlowBegin, OpNoop, true)
	hF, hT := ex.get(0), ex.get(1)
	ex.pop(2)
	ex.ctxPush(hT)
	ex.ctxPush(hF)
	ex.ctxPush(ex.sponge[0])
	ex.sponge = [core.SpongeWidth]core.Element{}

	// Branch prologue consumes the condition, then the arm body runs and
	// pads to the merge slot.
	if negate {
		if err := ex.emitUser(OpNot, core.Zero); err != nil {
			return err
		}
	}
	if err := ex.emitUser(OpAssert, core.Zero); err != nil {
		return err
	}
	if err := ex.runBlocks(taken); err != nil {
		return err
	}
	ex.padNoops(core.CycleLength, 0)

	// Tend / Fend merge both arms to the same state and unwind the three
	// context entries.
	executed := ex.sponge[0]
	if negate {
		if !executed.Equal(hFalse) {
			return ex.fail("false branch hash does not match its image")
		}
		ex.snapshot(FlowFend, OpNoop, true)
		parent, _, sibling := ex.ctxPop(), ex.ctxPop(), ex.ctxPop()
		ex.sponge = [core.SpongeWidth]core.Element{parent, sibling, executed, core.Zero}
	} else {
		if !executed.Equal(hTrue) {
			return ex.fail("true branch hash does not match its image")
		}
		ex.snapshot(FlowTend, OpNoop, true)
		parent, sibling, _ := ex.ctxPop(), ex.ctxPop(), ex.ctxPop()
		ex.sponge = [core.SpongeWidth]core.Element{parent, executed, sibling, core.Zero}
	}
	return nil
}

func (ex *executor) runWhile(blk WhileBlock) error {
	image := hashLoopBody(blk.Body)

	ex.padNoops(8, 0)
	if err := ex.emitUser(OpPush, image); err != nil {
		return err
	}
	ex.padNoops(core.CycleLength, core.CycleLength-1)

	if !ex.get(1).IsOne() {
		return ex.fail("loop entered with condition %s, expected 1", ex.get(1))
	}

	// Loop: move the image onto the loop stack, save the parent
	// accumulator, reset the sponge, and consume the image and condition.
	ex.snapshot(FlowLoop, OpNoop, true)
	ex.loop = append([]core.Element{ex.get(0)}, ex.loop...)
	ex.trackDepths()
	ex.pop(2)
	ex.ctxPush(ex.sponge[0])
	ex.sponge = [core.SpongeWidth]core.Element{}

	for {
		// The body leaves the next condition on top and pads to the
		// Wrap/Break slot.
		if err := ex.runBlocks(blk.Body); err != nil {
			return err
		}
		ex.padNoops(core.CycleLength, core.CycleLength-1)

		if !ex.sponge[0].Equal(image) {
			return ex.fail("loop body hash does not match its image")
		}

		condition := ex.get(0)
		switch {
		case condition.IsOne():
			ex.snapshot(FlowWrap, OpNoop, true)
			ex.pop(1)
			ex.sponge = [core.SpongeWidth]core.Element{}
		case condition.IsZero():
			ex.snapshot(FlowBreak, OpNoop, true)
			ex.pop(1)
			ex.sponge = [core.SpongeWidth]core.Element{ex.ctxPop(), image, core.Zero, core.Zero}
			if len(ex.loop) > 0 {
				ex.loop = ex.loop[1:]
			}
			return nil
		default:
			return ex.fail("loop condition is %s, expected a binary value", condition)
		}
	}
}

// --- user op semantics -------------------------------------------------

func (ex *executor) applyUserOp(op UserOp, value core.Element) error {
	switch op {
	case OpBegin, OpNoop:
		// no stack effect
	case OpPush:
		ex.push(value)
	case OpRead:
		if ex.tapePos >= len(ex.tapeA) {
			return ex.fail("secret tape A is exhausted")
		}
		ex.push(ex.tapeA[ex.tapePos])
		ex.tapePos++
	case OpHintInv:
		diff := ex.get(0).Sub(ex.get(1))
		if diff.IsZero() {
			ex.push(core.Zero)
		} else {
			ex.push(diff.Inv())
		}
	case OpHintDiv2:
		n := ex.get(0).Big()
		q := new(big.Int).Rsh(n, 1)
		r := new(big.Int).And(n, big.NewInt(1))
		ex.push(core.NewElement(q))
		ex.push(core.NewElement(r))
	case OpDup:
		ex.push(ex.get(0))
	case OpSwap:
		a, b := ex.get(0), ex.get(1)
		ex.set(0, b)
		ex.set(1, a)
	case OpRoll3:
		a, b, c := ex.get(0), ex.get(1), ex.get(2)
		ex.set(0, c)
		ex.set(1, a)
		ex.set(2, b)
	case OpRoll4:
		a, b, c, d := ex.get(0), ex.get(1), ex.get(2), ex.get(3)
		ex.set(0, d)
		ex.set(1, a)
		ex.set(2, b)
		ex.set(3, c)
	case OpDrop:
		ex.pop(1)
	case OpNeg:
		ex.set(0, ex.get(0).Neg())
	case OpAdd:
		result := ex.get(0).Add(ex.get(1))
		ex.pop(1)
		ex.set(0, result)
	case OpMul:
		result := ex.get(0).Mul(ex.get(1))
		ex.pop(1)
		ex.set(0, result)
	case OpNot:
		v := ex.get(0)
		if !v.IsZero() && !v.IsOne() {
			return ex.fail("not applied to non-binary value %s", v)
		}
		ex.set(0, core.One.Sub(v))
	case OpEq:
		a, b := ex.get(1), ex.get(2)
		ex.pop(2)
		if a.Equal(b) {
			ex.set(0, core.One)
		} else {
			ex.set(0, core.Zero)
		}
	case OpChoose:
		c, a, b := ex.get(0), ex.get(1), ex.get(2)
		if !c.IsZero() && !c.IsOne() {
			return ex.fail("choose condition is %s, expected a binary value", c)
		}
		ex.pop(2)
		ex.set(0, b.Add(c.Mul(a.Sub(b))))
	case OpAssertEq:
		if !ex.get(0).Equal(ex.get(1)) {
			return ex.fail("asserteq failed: %s != %s", ex.get(0), ex.get(1))
		}
		ex.pop(2)
	case OpAssert:
		if !ex.get(0).IsOne() {
			return ex.fail("assert failed: stack top is %s", ex.get(0))
		}
		ex.pop(1)
	default:
		return ex.fail("unknown user op %d", op)
	}
	return nil
}

// --- table construction ------------------------------------------------

func (ex *executor) intoTraceTable() *TraceTable {
	// Pad with Void steps to a power of two, leaving at least one Void row
	// so the final row carries the all-ones bit pattern.
	length := len(ex.steps) + 1
	n := core.CycleLength
	for n < length {
		n <<= 1
	}
	for len(ex.steps) < n {
		ex.snapshot(FlowVoid, OpNoop, true)
	}

	ctxDepth := max(ex.maxCtx, MinCtxDepth)
	loopDepth := max(ex.maxLoop, MinLoopDepth)
	stackDepth := max(ex.maxStack, MinStackDepth)

	width := TraceWidth(ctxDepth, loopDepth, stackDepth)
	registers := make([][]core.Element, width)
	for i := range registers {
		registers[i] = make([]core.Element, n)
	}

	for s, snap := range ex.steps {
		registers[OpCounterIdx][s] = core.FromUint64(snap.counter)
		for i := 0; i < core.SpongeWidth; i++ {
			registers[SpongeIdx+i][s] = snap.sponge[i]
		}
		for i := 0; i < NumCfBits; i++ {
			registers[CfBitsIdx+i][s] = bitElement(uint8(snap.cf) >> i & 1)
		}
		user := snap.user
		if snap.allOnes {
			user = OpNoop
		}
		ld := user.LdBits()
		for i := 0; i < NumLdBits; i++ {
			registers[LdBitsIdx+i][s] = bitElement(ld[i])
		}
		hd := user.HdBits()
		for i := 0; i < NumHdBits; i++ {
			registers[HdBitsIdx+i][s] = bitElement(hd[i])
		}
		fillStack(registers[StacksIdx:StacksIdx+ctxDepth], snap.ctx, s)
		fillStack(registers[StacksIdx+ctxDepth:StacksIdx+ctxDepth+loopDepth], snap.loop, s)
		fillStack(registers[StacksIdx+ctxDepth+loopDepth:], snap.stack, s)
	}

	return &TraceTable{
		registers:        registers,
		unextendedLength: n,
		ctxDepth:         ctxDepth,
		loopDepth:        loopDepth,
		stackDepth:       stackDepth,
		opCount:          ex.counter,
	}
}

func fillStack(columns [][]core.Element, values []core.Element, step int) {
	for i := range columns {
		if i < len(values) {
			columns[i][step] = values[i]
		}
	}
}

func bitElement(b uint8) core.Element {
	if b == 1 {
		return core.One
	}
	return core.Zero
}
