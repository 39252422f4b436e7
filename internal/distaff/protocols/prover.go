package protocols

import (
	"time"

	"github.com/jonathanxuu/distaff/internal/distaff/core"
	"github.com/jonathanxuu/distaff/internal/distaff/logger"
	"github.com/jonathanxuu/distaff/internal/distaff/vm"
)

// Prove builds a STARK proof that the given trace is a faithful execution
// consistent with the program hash, public inputs and outputs. The trace
// must be unextended; Prove owns it from here on and frees nothing early.
//
// The transcript absorbs commitments in a fixed order (trace root,
// constraint root, FRI layer roots, proof of work); any change to that
// order invalidates all existing proofs.
func Prove(trace *vm.TraceTable, programHash core.Digest, publicInputs, outputs []core.Element, options ProofOptions) (*StarkProof, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	log := logger.Logger()
	hashFn := options.HashFn
	b := options.ExtensionFactor
	n := trace.UnextendedLength()
	domainSize := n * b

	// 1. Low-degree extension and trace commitment.
	started := time.Now()
	trace.Extend(b)
	log.Debug().Int("trace_length", n).Int("lde_domain", domainSize).
		Dur("elapsed", time.Since(started)).Msg("extended execution trace")

	started = time.Now()
	traceLeaves := make([]core.Digest, domainSize)
	for step := 0; step < domainSize; step++ {
		traceLeaves[step] = trace.CommitmentLeaf(step, hashFn)
	}
	traceTree, err := core.NewMerkleTree(traceLeaves, hashFn)
	if err != nil {
		return nil, err
	}
	log.Debug().Dur("elapsed", time.Since(started)).Msg("committed to execution trace")

	// 2. Constraint evaluation and commitment.
	started = time.Now()
	assertions := &PublicAssertions{
		ProgramHash:  programHashElements(programHash),
		PublicInputs: publicInputs,
		Outputs:      outputs,
		OpCount:      trace.OpCount(),
	}
	periodic := NewPeriodicColumns(b)
	evaluator := NewEvaluator(n, b, trace.CtxDepth(), trace.LoopDepth(), trace.StackDepth(),
		traceTree.Root(), hashFn, assertions, periodic)
	constraints := NewConstraintTable(evaluator, trace, periodic)
	constraints.Build()
	constraintTree, err := core.NewMerkleTree(constraints.CommitmentLeaves(), hashFn)
	if err != nil {
		return nil, err
	}
	log.Debug().Dur("elapsed", time.Since(started)).Msg("evaluated and committed to constraints")

	// 3. DEEP composition.
	started = time.Now()
	z, compositionCoefficients := DrawDeepPoint(constraintTree.Root(), hashFn, domainSize, trace.Width())
	deepEvaluations, deepValues := BuildDeepPoly(trace, constraints.Poly(), z, compositionCoefficients, b)
	log.Debug().Dur("elapsed", time.Since(started)).Msg("built deep composition polynomial")

	// 4. FRI commit phase.
	started = time.Now()
	fri, err := NewFriProver(deepEvaluations, core.RootOfUnity(uint64(domainSize)), hashFn)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("layers", len(fri.Roots())).Dur("elapsed", time.Since(started)).Msg("computed fri layers")

	// 5. Proof of work and query sampling.
	started = time.Now()
	seed := QuerySeed(fri.Roots(), hashFn)
	nonce := FindPowNonce(seed, options.GrindingFactor, hashFn)
	positions, err := GenerateQueryPositions(PowSeed(seed, nonce, hashFn), domainSize, b, options.NumQueries, hashFn)
	if err != nil {
		return nil, err
	}
	log.Debug().Uint64("nonce", nonce).Int("queries", len(positions)).
		Dur("elapsed", time.Since(started)).Msg("ground proof of work and sampled queries")

	// 6. Openings.
	augmented := AugmentPositions(positions, domainSize, b)
	traceStates := make([][]core.Element, len(augmented))
	for i, position := range augmented {
		traceStates[i] = trace.GetState(position).Row()
	}
	constraintPositions := MapTraceToConstraintPositions(positions)
	constraintValues := make([][2]core.Element, len(constraintPositions))
	for i, leaf := range constraintPositions {
		evaluations := constraints.Evaluations()
		constraintValues[i] = [2]core.Element{evaluations[2*leaf], evaluations[2*leaf+1]}
	}

	proof := &StarkProof{
		TraceRoot:        traceTree.Root(),
		TraceProof:       traceTree.ProveBatch(augmented),
		TraceStates:      traceStates,
		ConstraintRoot:   constraintTree.Root(),
		ConstraintProof:  constraintTree.ProveBatch(constraintPositions),
		ConstraintValues: constraintValues,
		DeepValues:       *deepValues,
		FriProof:         *fri.Query(positions),
		PowNonce:         nonce,
		OpCount:          trace.OpCount(),
		CtxDepth:         uint8(trace.CtxDepth()),
		LoopDepth:        uint8(trace.LoopDepth()),
		StackDepth:       uint8(trace.StackDepth()),
		Options:          options,
	}
	return proof, nil
}

// programHashElements splits a 32-byte program hash into its two field
// element words.
func programHashElements(hash core.Digest) [2]core.Element {
	return [2]core.Element{
		core.FromBytes(hash[:core.ElementSize]),
		core.FromBytes(hash[core.ElementSize:]),
	}
}
