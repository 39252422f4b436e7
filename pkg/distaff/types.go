package distaff

import (
	"github.com/jonathanxuu/distaff/internal/distaff/core"
	"github.com/jonathanxuu/distaff/internal/distaff/protocols"
	"github.com/jonathanxuu/distaff/internal/distaff/vm"
)

// Element is an element of the VM's 128-bit prime field.
type Element = core.Element

// HashFn selects the commitment hash algorithm.
type HashFn = core.HashFn

// Supported hash algorithms.
const (
	Blake2b256 = core.Blake2b256
	RescueP128 = core.RescueP128
)

// Program is a compiled VM program.
type Program = vm.Program

// ProgramInputs carries public inputs and the two secret input tapes.
type ProgramInputs = vm.ProgramInputs

// ProofOptions configures proof generation.
type ProofOptions = protocols.ProofOptions

// StarkProof is an execution proof.
type StarkProof = protocols.StarkProof

// VerificationError is the structured reason a proof was rejected.
type VerificationError = protocols.VerificationError

// Verification error kinds, re-exported for callers matching on failure
// reasons with errors.Is.
const (
	ErrMalformedProof          = protocols.ErrMalformedProof
	ErrBadMerkleOpening        = protocols.ErrBadMerkleOpening
	ErrTransitionMismatch      = protocols.ErrTransitionMismatch
	ErrBoundaryMismatch        = protocols.ErrBoundaryMismatch
	ErrDeepCompositionMismatch = protocols.ErrDeepCompositionMismatch
	ErrFriLayerInconsistent    = protocols.ErrFriLayerInconsistent
	ErrInsufficientPow         = protocols.ErrInsufficientPow
	ErrInsufficientQueries     = protocols.ErrInsufficientQueries
)

// FromUint64 builds a field element from an integer.
func FromUint64(value uint64) Element { return core.FromUint64(value) }

// ElementsFromUints builds a field element slice from integers.
func ElementsFromUints(values ...uint64) []Element {
	out := make([]Element, len(values))
	for i, v := range values {
		out[i] = core.FromUint64(v)
	}
	return out
}

// NewProgramInputs builds an input set from public inputs and the two
// secret tapes.
func NewProgramInputs(public, secretA, secretB []Element) *ProgramInputs {
	return vm.NewProgramInputs(public, secretA, secretB)
}

// DefaultProofOptions returns the standard parameter set.
func DefaultProofOptions() ProofOptions { return protocols.DefaultProofOptions() }

// Compile assembles a program from its textual form.
func Compile(source string) (*Program, error) { return vm.Compile(source) }
