// Package distaff is the public API of the distaff STARK VM: it executes
// programs on the zero-knowledge-friendly stack VM and produces
// non-interactive, publicly verifiable execution proofs.
//
// The typical round trip:
//
//	program, _ := distaff.Compile("begin push.3 push.5 add end")
//	inputs := distaff.NewProgramInputs(nil, nil, nil)
//	outputs, proof, err := distaff.Execute(program, inputs, 1, distaff.DefaultProofOptions())
//	...
//	err = distaff.Verify(program.Hash(), inputs.Public, outputs, proof)
package distaff

import (
	"fmt"

	"github.com/jonathanxuu/distaff/internal/distaff/protocols"
	"github.com/jonathanxuu/distaff/internal/distaff/vm"
)

// Execute runs the program on the given inputs and returns the first
// numOutputs values of the final stack together with a proof of correct
// execution. Identical inputs and options produce byte-identical proofs.
func Execute(program *Program, inputs *ProgramInputs, numOutputs int, options ProofOptions) ([]Element, *StarkProof, error) {
	if err := options.Validate(); err != nil {
		return nil, nil, &Error{Code: ErrInvalidConfig, Message: "invalid proof options", Cause: err}
	}
	if numOutputs < 0 || numOutputs > vm.MinStackDepth {
		return nil, nil, &Error{
			Code:    ErrInvalidConfig,
			Message: fmt.Sprintf("number of outputs must be in [0, %d], got %d", vm.MinStackDepth, numOutputs),
		}
	}
	if inputs == nil {
		inputs = vm.NewProgramInputs(nil, nil, nil)
	}
	if len(inputs.Public) > vm.MinStackDepth {
		return nil, nil, &Error{
			Code:    ErrInvalidConfig,
			Message: fmt.Sprintf("at most %d public inputs are supported, got %d", vm.MinStackDepth, len(inputs.Public)),
		}
	}

	trace, err := vm.BuildTrace(program, inputs)
	if err != nil {
		return nil, nil, &Error{Code: ErrExecution, Message: "program execution failed", Cause: err}
	}
	outputs := trace.LastUserStack(numOutputs)

	proof, err := protocols.Prove(trace, program.Hash(), inputs.Public, outputs, options)
	if err != nil {
		return nil, nil, &Error{Code: ErrProofGeneration, Message: "proof generation failed", Cause: err}
	}
	return outputs, proof, nil
}

// Verify checks that a program with the given hash, run on the given
// public inputs, produced the claimed outputs. Rejections unwrap to a
// *VerificationError carrying the specific failure kind.
func Verify(programHash [32]byte, publicInputs, outputs []Element, proof *StarkProof) error {
	if err := protocols.Verify(programHash, publicInputs, outputs, proof); err != nil {
		return &Error{Code: ErrProofVerification, Message: "proof rejected", Cause: err}
	}
	return nil
}

// SerializeProof encodes a proof in the canonical little-endian format.
func SerializeProof(proof *StarkProof) []byte {
	return proof.Serialize()
}

// DeserializeProof decodes a canonical proof encoding.
func DeserializeProof(data []byte) (*StarkProof, error) {
	proof, err := protocols.DeserializeProof(data)
	if err != nil {
		return nil, &Error{Code: ErrInvalidConfig, Message: "malformed proof encoding", Cause: err}
	}
	return proof, nil
}
