package protocols

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanxuu/distaff/internal/distaff/core"
	"github.com/jonathanxuu/distaff/internal/distaff/vm"
)

// testOptions keeps round-trip tests fast: small blowup, few queries,
// light grinding.
func testOptions() ProofOptions {
	return DefaultProofOptions().
		WithExtensionFactor(8).
		WithNumQueries(8).
		WithGrindingFactor(4)
}

type roundTrip struct {
	hash    core.Digest
	public  []core.Element
	outputs []core.Element
	proof   *StarkProof
}

func proveExample(t *testing.T, example string, public, secret []core.Element, options ProofOptions) *roundTrip {
	t.Helper()
	source, err := vm.ExampleSource(example)
	require.NoError(t, err)
	program, err := vm.Compile(source)
	require.NoError(t, err)
	trace, err := vm.BuildTrace(program, vm.NewProgramInputs(public, secret, nil))
	require.NoError(t, err)
	outputs := trace.LastUserStack(1)
	proof, err := Prove(trace, program.Hash(), public, outputs, options)
	require.NoError(t, err)
	return &roundTrip{hash: program.Hash(), public: public, outputs: outputs, proof: proof}
}

func TestProveVerifyRoundTrip(t *testing.T) {
	cases := []struct {
		example  string
		public   []core.Element
		secret   []core.Element
		expected uint64
	}{
		{"empty", nil, nil, 0},
		{"fibonacci", nil, nil, 8},
		{"conditional", elements(1), nil, 1},
		{"conditional", elements(0), nil, 0},
		{"secret-sum", elements(3), elements(4), 7},
	}
	for _, tc := range cases {
		rt := proveExample(t, tc.example, tc.public, tc.secret, testOptions())
		assert.True(t, rt.outputs[0].Equal(core.FromUint64(tc.expected)), "%s output", tc.example)
		assert.NoError(t, Verify(rt.hash, rt.public, rt.outputs, rt.proof), "%s verification", tc.example)
	}
}

func TestCollatzRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("collatz trace is long")
	}
	rt := proveExample(t, "collatz", elements(15), nil, testOptions())
	assert.True(t, rt.outputs[0].Equal(core.FromUint64(17)))
	require.NoError(t, Verify(rt.hash, rt.public, rt.outputs, rt.proof))

	// Wrong public input must be rejected as a boundary failure.
	err := Verify(rt.hash, elements(16), rt.outputs, rt.proof)
	require.Error(t, err)
	var vErr *VerificationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, ErrBoundaryMismatch, vErr.Kind)
}

func TestProofsAreDeterministic(t *testing.T) {
	a := proveExample(t, "fibonacci", nil, nil, testOptions())
	b := proveExample(t, "fibonacci", nil, nil, testOptions())
	assert.True(t, bytes.Equal(a.proof.Serialize(), b.proof.Serialize()),
		"identical inputs and options must give byte-identical proofs")
}

func TestVerifyRejectsWrongOutput(t *testing.T) {
	rt := proveExample(t, "fibonacci", nil, nil, testOptions())
	badOutputs := []core.Element{rt.outputs[0].Add(core.One)}
	err := Verify(rt.hash, rt.public, badOutputs, rt.proof)
	require.Error(t, err)
	var vErr *VerificationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, ErrBoundaryMismatch, vErr.Kind)
}

func TestVerifyRejectsWrongProgramHash(t *testing.T) {
	rt := proveExample(t, "fibonacci", nil, nil, testOptions())
	badHash := rt.hash
	badHash[7] ^= 1
	assert.Error(t, Verify(badHash, rt.public, rt.outputs, rt.proof))
}

func TestVerifyRejectsTampering(t *testing.T) {
	rt := proveExample(t, "fibonacci", nil, nil, testOptions())

	tamper := func(mutate func(p *StarkProof)) error {
		clone, err := DeserializeProof(rt.proof.Serialize())
		require.NoError(t, err)
		mutate(clone)
		return Verify(rt.hash, rt.public, rt.outputs, clone)
	}

	kindOf := func(err error) VerificationErrorKind {
		var vErr *VerificationError
		require.ErrorAs(t, err, &vErr)
		return vErr.Kind
	}

	// Tampered trace commitment.
	err := tamper(func(p *StarkProof) { p.TraceRoot[0] ^= 1 })
	assert.Equal(t, ErrBadMerkleOpening, kindOf(err))

	// Tampered constraint commitment.
	err = tamper(func(p *StarkProof) { p.ConstraintRoot[12] ^= 0x80 })
	assert.Equal(t, ErrBadMerkleOpening, kindOf(err))

	// Tampered FRI layer root.
	err = tamper(func(p *StarkProof) { p.FriProof.Roots[0][3] ^= 1 })
	assert.Equal(t, ErrFriLayerInconsistent, kindOf(err))

	// Tampered Merkle path node.
	err = tamper(func(p *StarkProof) { p.TraceProof.Nodes[0][31] ^= 1 })
	assert.Equal(t, ErrBadMerkleOpening, kindOf(err))

	// Tampered deep values.
	err = tamper(func(p *StarkProof) {
		p.DeepValues.TraceAtZ[2] = p.DeepValues.TraceAtZ[2].Add(core.One)
	})
	assert.Equal(t, ErrDeepCompositionMismatch, kindOf(err))

	// Tampered proof-of-work nonce: the query positions shift, so the
	// openings no longer line up.
	err = tamper(func(p *StarkProof) { p.PowNonce++ })
	assert.Error(t, err)

	// Tampered queried trace value.
	err = tamper(func(p *StarkProof) {
		p.TraceStates[0][0] = p.TraceStates[0][0].Add(core.One)
	})
	assert.Equal(t, ErrBadMerkleOpening, kindOf(err))

	// Tampered remainder.
	err = tamper(func(p *StarkProof) {
		p.FriProof.Remainder[0] = p.FriProof.Remainder[0].Add(core.One)
	})
	assert.Error(t, err)
}

func TestVerifyRejectsMalformedProofs(t *testing.T) {
	rt := proveExample(t, "empty", nil, nil, testOptions())

	var vErr *VerificationError

	err := Verify(rt.hash, rt.public, rt.outputs, nil)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, ErrMalformedProof, vErr.Kind)

	clone, err := DeserializeProof(rt.proof.Serialize())
	require.NoError(t, err)
	clone.TraceStates = clone.TraceStates[:1]
	err = Verify(rt.hash, rt.public, rt.outputs, clone)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, ErrMalformedProof, vErr.Kind)

	clone, err = DeserializeProof(rt.proof.Serialize())
	require.NoError(t, err)
	clone.Options.ExtensionFactor = 13
	err = Verify(rt.hash, rt.public, rt.outputs, clone)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, ErrMalformedProof, vErr.Kind)
}

func TestProofSizeScalesWithQueries(t *testing.T) {
	small := proveExample(t, "empty", nil, nil, testOptions().WithNumQueries(4))
	large := proveExample(t, "empty", nil, nil, testOptions().WithNumQueries(16))
	assert.Greater(t, len(large.proof.Serialize()), len(small.proof.Serialize()))
}
