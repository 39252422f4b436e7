// Command distaff-prover runs a named example program, proves its
// execution and verifies the proof, writing a CBOR result envelope when
// requested.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/jonathanxuu/distaff/internal/distaff/logger"
	"github.com/jonathanxuu/distaff/internal/distaff/vm"
	"github.com/jonathanxuu/distaff/pkg/distaff"
)

// resultEnvelope is the on-disk result format: everything a relying party
// needs to re-run verification.
type resultEnvelope struct {
	Program      string   `cbor:"program"`
	ProgramHash  []byte   `cbor:"program_hash"`
	PublicInputs []uint64 `cbor:"public_inputs"`
	Outputs      []string `cbor:"outputs"`
	Proof        []byte   `cbor:"proof"`
	SecurityBits int      `cbor:"security_bits"`
}

func main() {
	example := flag.String("example", "fibonacci", "example program to run: "+strings.Join(vm.ExampleNames(), ", "))
	publicArg := flag.String("public", "", "comma-separated public inputs")
	secretArg := flag.String("secret", "", "comma-separated secret tape A values")
	numOutputs := flag.Int("outputs", 1, "number of stack outputs to expose")
	queries := flag.Int("queries", 54, "number of FRI queries")
	blowup := flag.Int("blowup", 32, "LDE extension factor")
	grinding := flag.Int("grinding", 20, "proof-of-work bits")
	outPath := flag.String("out", "", "write a CBOR result envelope to this path")
	flag.Parse()

	log := logger.Logger()

	source, err := vm.ExampleSource(*example)
	if err != nil {
		log.Fatal().Err(err).Msg("unknown example")
	}
	program, err := distaff.Compile(source)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to compile program")
	}

	public, err := parseInputs(*publicArg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid public inputs")
	}
	secret, err := parseInputs(*secretArg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid secret inputs")
	}
	inputs := distaff.NewProgramInputs(public, secret, nil)

	options := distaff.DefaultProofOptions().
		WithNumQueries(*queries).
		WithExtensionFactor(*blowup).
		WithGrindingFactor(*grinding)

	outputs, proof, err := distaff.Execute(program, inputs, *numOutputs, options)
	if err != nil {
		log.Fatal().Err(err).Msg("execution failed")
	}

	hash := program.Hash()
	proofBytes := distaff.SerializeProof(proof)
	fmt.Println("--------------------------------")
	fmt.Printf("Executed program with hash %x\n", hash)
	fmt.Printf("Program output: %v\n", formatElements(outputs))
	fmt.Printf("Execution proof size: %d KB\n", len(proofBytes)/1024)
	fmt.Printf("Execution proof security: %d bits\n", proof.SecurityLevel(true))
	fmt.Println("--------------------------------")

	if err := distaff.Verify(hash, public, outputs, proof); err != nil {
		log.Fatal().Err(err).Msg("failed to verify execution")
	}
	log.Info().Msg("execution verified")

	if *outPath != "" {
		envelope := resultEnvelope{
			Program:      *example,
			ProgramHash:  hash[:],
			PublicInputs: rawInputs(*publicArg),
			Outputs:      formatElements(outputs),
			Proof:        proofBytes,
			SecurityBits: proof.SecurityLevel(true),
		}
		data, err := cbor.Marshal(envelope)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to encode result envelope")
		}
		if err := os.WriteFile(*outPath, data, 0o644); err != nil {
			log.Fatal().Err(err).Msg("failed to write result envelope")
		}
		log.Info().Str("path", *outPath).Int("bytes", len(data)).Msg("wrote result envelope")
	}
}

func parseInputs(arg string) ([]distaff.Element, error) {
	if strings.TrimSpace(arg) == "" {
		return nil, nil
	}
	var out []distaff.Element
	for _, part := range strings.Split(arg, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid input %q: %w", part, err)
		}
		out = append(out, distaff.FromUint64(v))
	}
	return out, nil
}

func rawInputs(arg string) []uint64 {
	if strings.TrimSpace(arg) == "" {
		return nil
	}
	var out []uint64
	for _, part := range strings.Split(arg, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func formatElements(values []distaff.Element) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	return out
}
