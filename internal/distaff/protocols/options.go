package protocols

import (
	"fmt"

	"github.com/jonathanxuu/distaff/internal/distaff/core"
	"github.com/jonathanxuu/distaff/internal/distaff/utils"
)

// MaxConstraintDegree is the largest normalized transition-constraint
// degree; it fixes the constraint evaluation domain at MaxConstraintDegree
// times the trace length.
const MaxConstraintDegree = 8

// MaxRemainderLength caps the evaluation count of the FRI remainder; the
// folding loop stops once a layer fits under it.
const MaxRemainderLength = 256

// ProofOptions configures proof generation. The zero value is not valid;
// use DefaultProofOptions and the With* builders.
type ProofOptions struct {
	// ExtensionFactor is the LDE blowup factor B; one of 8, 16, 32, 64.
	ExtensionFactor int

	// NumQueries is the number of spot-check positions, in [1, 128].
	NumQueries int

	// GrindingFactor is the proof-of-work requirement in leading zero
	// bits, in [0, 32].
	GrindingFactor int

	// HashFn selects the commitment and transcript hash.
	HashFn core.HashFn
}

// DefaultProofOptions returns the standard parameter set: 32x blowup, 54
// queries, 20 bits of grinding, blake2b hashing.
func DefaultProofOptions() ProofOptions {
	return ProofOptions{
		ExtensionFactor: 32,
		NumQueries:      54,
		GrindingFactor:  20,
		HashFn:          core.Blake2b256,
	}
}

// WithExtensionFactor sets the blowup factor.
func (o ProofOptions) WithExtensionFactor(factor int) ProofOptions {
	o.ExtensionFactor = factor
	return o
}

// WithNumQueries sets the query count.
func (o ProofOptions) WithNumQueries(n int) ProofOptions {
	o.NumQueries = n
	return o
}

// WithGrindingFactor sets the proof-of-work bits.
func (o ProofOptions) WithGrindingFactor(bits int) ProofOptions {
	o.GrindingFactor = bits
	return o
}

// WithHashFn sets the hash algorithm.
func (o ProofOptions) WithHashFn(h core.HashFn) ProofOptions {
	o.HashFn = h
	return o
}

// Validate checks the options before any proving work starts.
func (o ProofOptions) Validate() error {
	switch o.ExtensionFactor {
	case 8, 16, 32, 64:
	default:
		return fmt.Errorf("protocols: extension factor must be one of 8, 16, 32, 64, got %d", o.ExtensionFactor)
	}
	if o.NumQueries < 1 || o.NumQueries > 128 {
		return fmt.Errorf("protocols: number of queries must be in [1, 128], got %d", o.NumQueries)
	}
	if o.GrindingFactor < 0 || o.GrindingFactor > 32 {
		return fmt.Errorf("protocols: grinding factor must be in [0, 32], got %d", o.GrindingFactor)
	}
	if !o.HashFn.IsValid() {
		return fmt.Errorf("protocols: unknown hash function %d", uint8(o.HashFn))
	}
	return nil
}

// SecurityLevel estimates the bit security of proofs generated under these
// options. With conjectured set, each query contributes log2(B) bits; the
// proven bound halves the per-query contribution. Both are capped by the
// field's collision resistance.
func (o ProofOptions) SecurityLevel(conjectured bool) int {
	perQuery := utils.Log2(o.ExtensionFactor)
	queryBits := o.NumQueries * perQuery
	if !conjectured {
		queryBits /= 2
	}
	security := queryBits + o.GrindingFactor
	if security > 128 {
		security = 128
	}
	return security
}
