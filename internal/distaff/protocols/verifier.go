package protocols

import (
	"time"

	"github.com/jonathanxuu/distaff/internal/distaff/core"
	"github.com/jonathanxuu/distaff/internal/distaff/logger"
	"github.com/jonathanxuu/distaff/internal/distaff/vm"
)

// Verify checks a STARK proof against the program hash, public inputs
// and outputs. It reconstructs the Fiat-Shamir transcript in the
// prover's order, recomputes the query positions, verifies all
// commitments and openings, re-evaluates the constraint system at every
// queried point and checks the DEEP composition against the FRI layers.
// Every rejection carries a structured VerificationError.
func Verify(programHash core.Digest, publicInputs, outputs []core.Element, proof *StarkProof) error {
	started := time.Now()
	if proof == nil {
		return &VerificationError{Kind: ErrMalformedProof, Detail: "missing proof"}
	}
	options := proof.Options
	if err := options.Validate(); err != nil {
		return &VerificationError{Kind: ErrMalformedProof, Detail: err.Error()}
	}
	hashFn := options.HashFn
	b := options.ExtensionFactor

	ctxDepth := int(proof.CtxDepth)
	loopDepth := int(proof.LoopDepth)
	stackDepth := int(proof.StackDepth)
	if ctxDepth < vm.MinCtxDepth || loopDepth < vm.MinLoopDepth || stackDepth < vm.MinStackDepth {
		return &VerificationError{Kind: ErrMalformedProof, Detail: "stack depths below minimum"}
	}
	width := vm.TraceWidth(ctxDepth, loopDepth, stackDepth)
	if len(publicInputs) > stackDepth || len(outputs) > stackDepth {
		return &VerificationError{Kind: ErrMalformedProof, Detail: "more inputs or outputs than stack registers"}
	}

	domainSize := proof.LdeDomainSize()
	n := domainSize / b
	if n < core.CycleLength || n*b != domainSize || domainSize&(domainSize-1) != 0 {
		return &VerificationError{Kind: ErrMalformedProof, Detail: "inconsistent domain dimensions"}
	}
	omega := core.RootOfUnity(uint64(domainSize))

	// 1. Transcript: coefficients from the trace root, z and composition
	// coefficients from the constraint root, then the query seed from the
	// FRI roots and the proof of work.
	assertions := &PublicAssertions{
		ProgramHash:  programHashElements(programHash),
		PublicInputs: publicInputs,
		Outputs:      outputs,
		OpCount:      proof.OpCount,
	}
	periodic := NewPeriodicColumns(0)
	evaluator := NewEvaluator(n, b, ctxDepth, loopDepth, stackDepth,
		proof.TraceRoot, hashFn, assertions, periodic)
	z, compositionCoefficients := DrawDeepPoint(proof.ConstraintRoot, hashFn, domainSize, width)

	seed := QuerySeed(proof.FriProof.Roots, hashFn)
	positions, err := GenerateQueryPositions(PowSeed(seed, proof.PowNonce, hashFn), domainSize, b, options.NumQueries, hashFn)
	if err != nil {
		return err
	}
	augmented := AugmentPositions(positions, domainSize, b)

	// 2. FRI layer openings first: a tampered layer root shows up as a
	// FRI inconsistency rather than as a cascade of position mismatches.
	fri := NewFriVerifier(&proof.FriProof, positions, domainSize, omega, hashFn)
	if err := fri.VerifyOpenings(); err != nil {
		return err
	}
	if !VerifyPowNonce(seed, proof.PowNonce, options.GrindingFactor, hashFn) {
		return &VerificationError{Kind: ErrInsufficientPow}
	}

	// 3. Trace and constraint openings.
	if len(proof.TraceStates) != len(augmented) {
		return &VerificationError{Kind: ErrMalformedProof, Detail: "trace opening count mismatch"}
	}
	traceLeaves := make([]core.Digest, len(augmented))
	for i, row := range proof.TraceStates {
		if len(row) != width {
			return &VerificationError{Kind: ErrMalformedProof, Detail: "trace state width mismatch"}
		}
		traceLeaves[i] = hashFn.HashElements(row)
	}
	if err := core.VerifyBatch(proof.TraceRoot, augmented, traceLeaves, proof.TraceProof, hashFn); err != nil {
		return &VerificationError{Kind: ErrBadMerkleOpening, Detail: "trace opening"}
	}

	constraintPositions := MapTraceToConstraintPositions(positions)
	if len(proof.ConstraintValues) != len(constraintPositions) {
		return &VerificationError{Kind: ErrMalformedProof, Detail: "constraint opening count mismatch"}
	}
	constraintLeaves := make([]core.Digest, len(constraintPositions))
	for i, pair := range proof.ConstraintValues {
		constraintLeaves[i] = packPair(pair[0], pair[1])
	}
	if err := core.VerifyBatch(proof.ConstraintRoot, constraintPositions, constraintLeaves, proof.ConstraintProof, hashFn); err != nil {
		return &VerificationError{Kind: ErrBadMerkleOpening, Detail: "constraint opening"}
	}

	rowAt := make(map[int][]core.Element, len(augmented))
	for i, position := range augmented {
		rowAt[position] = proof.TraceStates[i]
	}
	constraintAt := func(position int) core.Element {
		leaf := indexOf(constraintPositions, position/2)
		return proof.ConstraintValues[leaf][position%2]
	}

	// 4. Re-evaluate the constraint system at every queried point. With
	// intact commitments this comparison can only diverge when the
	// caller-supplied boundary data disagrees with the committed
	// execution, so a mismatch is a boundary failure.
	if len(proof.DeepValues.TraceAtZ) != width || len(proof.DeepValues.TraceAtZG) != width {
		return &VerificationError{Kind: ErrMalformedProof, Detail: "deep value width mismatch"}
	}
	for _, position := range positions {
		x := omega.ExpUint(uint64(position))
		cur := vm.NewTraceState(rowAt[position], ctxDepth, loopDepth, stackDepth)
		next := vm.NewTraceState(rowAt[(position+b)%domainSize], ctxDepth, loopDepth, stackDepth)
		expected := evaluator.EvaluateConstraintAt(x, cur, next)
		if !expected.Equal(constraintAt(position)) {
			return &VerificationError{Kind: ErrBoundaryMismatch, Position: position}
		}
	}

	// 5. DEEP composition: recompute C(z) from the out-of-domain trace
	// states and check every query against FRI layer 0, the folding
	// chain and the remainder.
	zState := vm.NewTraceState(proof.DeepValues.TraceAtZ, ctxDepth, loopDepth, stackDepth)
	zgState := vm.NewTraceState(proof.DeepValues.TraceAtZG, ctxDepth, loopDepth, stackDepth)
	constraintAtZ := evaluator.EvaluateConstraintAt(z, zState, zgState)

	for _, position := range positions {
		x := omega.ExpUint(uint64(position))
		deepValue := VerifyDeepAt(x, rowAt[position], constraintAt(position), constraintAtZ, z,
			&proof.DeepValues, compositionCoefficients, n, b)
		if err := fri.VerifyQuery(position, deepValue); err != nil {
			return err
		}
	}
	if err := fri.VerifyRemainderDegree(n, b); err != nil {
		return err
	}

	l := logger.Logger()
	l.Debug().Int("queries", len(positions)).
		Dur("elapsed", time.Since(started)).Msg("verified execution proof")
	return nil
}
