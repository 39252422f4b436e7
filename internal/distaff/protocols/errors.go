package protocols

import "fmt"

// VerificationErrorKind identifies which verifier check rejected a proof.
type VerificationErrorKind uint8

const (
	// ErrMalformedProof indicates a structurally invalid proof object.
	ErrMalformedProof VerificationErrorKind = iota + 1

	// ErrBadMerkleOpening indicates a trace or constraint batch opening
	// that does not reconstruct its committed root.
	ErrBadMerkleOpening

	// ErrTransitionMismatch indicates a re-evaluated transition constraint
	// disagreeing with the committed evaluations.
	ErrTransitionMismatch

	// ErrBoundaryMismatch indicates the claimed boundary data (public
	// inputs, outputs, program hash, op count) disagrees with the
	// committed execution.
	ErrBoundaryMismatch

	// ErrDeepCompositionMismatch indicates the DEEP composition evaluated
	// from the openings does not match the committed FRI layer.
	ErrDeepCompositionMismatch

	// ErrFriLayerInconsistent indicates a FRI layer opening or folding
	// relation that does not hold.
	ErrFriLayerInconsistent

	// ErrInsufficientPow indicates the proof-of-work nonce does not meet
	// the grinding requirement.
	ErrInsufficientPow

	// ErrInsufficientQueries indicates query-position sampling failed to
	// produce enough distinct positions.
	ErrInsufficientQueries
)

func (k VerificationErrorKind) String() string {
	switch k {
	case ErrMalformedProof:
		return "MalformedProof"
	case ErrBadMerkleOpening:
		return "BadMerkleOpening"
	case ErrTransitionMismatch:
		return "TransitionMismatch"
	case ErrBoundaryMismatch:
		return "BoundaryMismatch"
	case ErrDeepCompositionMismatch:
		return "DeepCompositionMismatch"
	case ErrFriLayerInconsistent:
		return "FriLayerInconsistent"
	case ErrInsufficientPow:
		return "InsufficientPow"
	case ErrInsufficientQueries:
		return "InsufficientQueries"
	default:
		return fmt.Sprintf("VerificationError(%d)", uint8(k))
	}
}

// VerificationError is the structured rejection reason returned by Verify.
// Index and Position carry the failing constraint or query position where
// one is identifiable; Layer is set for FRI failures.
type VerificationError struct {
	Kind     VerificationErrorKind
	Index    int
	Position int
	Layer    int
	Detail   string
}

func (e *VerificationError) Error() string {
	msg := fmt.Sprintf("verification failed: %s", e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches verification errors by kind so callers can test against a
// bare &VerificationError{Kind: ...}.
func (e *VerificationError) Is(target error) bool {
	t, ok := target.(*VerificationError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
