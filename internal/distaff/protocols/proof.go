package protocols

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/jonathanxuu/distaff/internal/distaff/core"
)

// StarkProof is the self-contained proof object. It is value semantics:
// cloning and serializing never touch prover state.
type StarkProof struct {
	TraceRoot   core.Digest
	TraceProof  *core.BatchMerkleProof
	TraceStates [][]core.Element

	ConstraintRoot   core.Digest
	ConstraintProof  *core.BatchMerkleProof
	ConstraintValues [][2]core.Element

	DeepValues DeepValues
	FriProof   FriProof

	PowNonce uint64
	OpCount  uint64

	CtxDepth   uint8
	LoopDepth  uint8
	StackDepth uint8

	Options ProofOptions
}

// LdeDomainSize reconstructs the LDE domain size from the FRI proof
// shape: the remainder length doubled once per committed layer.
func (p *StarkProof) LdeDomainSize() int {
	return len(p.FriProof.Remainder) << len(p.FriProof.Roots)
}

// TraceLength reconstructs the unextended trace length.
func (p *StarkProof) TraceLength() int {
	return p.LdeDomainSize() / p.Options.ExtensionFactor
}

// SecurityLevel reports the proof's bit-security estimate.
func (p *StarkProof) SecurityLevel(conjectured bool) int {
	return p.Options.SecurityLevel(conjectured)
}

// Serialization: canonical little-endian with 64-bit length prefixes,
// 32-byte roots and 16-byte field elements. Deserialize(Serialize(p))
// reproduces p exactly.

type writer struct{ buf bytes.Buffer }

func (w *writer) u8(v uint8)   { w.buf.WriteByte(v) }
func (w *writer) u64(v uint64) { _ = binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *writer) digest(d core.Digest) { w.buf.Write(d[:]) }
func (w *writer) element(e core.Element) {
	b := e.Bytes()
	w.buf.Write(b[:])
}
func (w *writer) elements(es []core.Element) {
	w.u64(uint64(len(es)))
	for _, e := range es {
		w.element(e)
	}
}
func (w *writer) merkleProof(p *core.BatchMerkleProof) {
	w.u8(p.Depth)
	w.u64(uint64(len(p.Nodes)))
	for _, n := range p.Nodes {
		w.digest(n)
	}
}

// Serialize encodes the proof in the canonical format.
func (p *StarkProof) Serialize() []byte {
	w := &writer{}
	w.digest(p.TraceRoot)
	w.merkleProof(p.TraceProof)
	w.u64(uint64(len(p.TraceStates)))
	for _, row := range p.TraceStates {
		w.elements(row)
	}

	w.digest(p.ConstraintRoot)
	w.merkleProof(p.ConstraintProof)
	w.u64(uint64(len(p.ConstraintValues)))
	for _, pair := range p.ConstraintValues {
		w.element(pair[0])
		w.element(pair[1])
	}

	w.elements(p.DeepValues.TraceAtZ)
	w.elements(p.DeepValues.TraceAtZG)

	w.u64(uint64(len(p.FriProof.Roots)))
	for _, r := range p.FriProof.Roots {
		w.digest(r)
	}
	w.u64(uint64(len(p.FriProof.Layers)))
	for _, layer := range p.FriProof.Layers {
		w.u64(uint64(len(layer.Values)))
		for _, pair := range layer.Values {
			w.element(pair[0])
			w.element(pair[1])
		}
		w.merkleProof(layer.Proof)
	}
	w.elements(p.FriProof.Remainder)

	w.u64(p.PowNonce)
	w.u64(p.OpCount)
	w.u8(p.CtxDepth)
	w.u8(p.LoopDepth)
	w.u8(p.StackDepth)

	w.u8(uint8(p.Options.ExtensionFactor))
	w.u8(uint8(p.Options.NumQueries))
	w.u8(uint8(p.Options.GrindingFactor))
	w.u8(uint8(p.Options.HashFn))

	return w.buf.Bytes()
}

type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) fail(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("protocols: malformed proof: truncated %s", what)
	}
}

func (r *reader) take(n int, what string) []byte {
	if r.err != nil || r.pos+n > len(r.data) {
		r.fail(what)
		return nil
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out
}

func (r *reader) u8(what string) uint8 {
	b := r.take(1, what)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u64(what string) uint64 {
	b := r.take(8, what)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// length reads a 64-bit count and bounds it against the remaining bytes
// so corrupted prefixes cannot trigger huge allocations.
func (r *reader) length(itemSize int, what string) int {
	n := r.u64(what)
	if r.err == nil && itemSize > 0 && n > uint64(len(r.data)-r.pos)/uint64(itemSize) {
		r.fail(what)
		return 0
	}
	return int(n)
}

func (r *reader) digest(what string) core.Digest {
	var d core.Digest
	b := r.take(core.DigestSize, what)
	if b != nil {
		copy(d[:], b)
	}
	return d
}

func (r *reader) element(what string) core.Element {
	b := r.take(core.ElementSize, what)
	if b == nil {
		return core.Zero
	}
	return core.FromBytes(b)
}

func (r *reader) elements(what string) []core.Element {
	n := r.length(core.ElementSize, what)
	out := make([]core.Element, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, r.element(what))
	}
	return out
}

func (r *reader) merkleProof(what string) *core.BatchMerkleProof {
	proof := &core.BatchMerkleProof{Depth: r.u8(what)}
	n := r.length(core.DigestSize, what)
	for i := 0; i < n; i++ {
		proof.Nodes = append(proof.Nodes, r.digest(what))
	}
	return proof
}

// DeserializeProof decodes a canonical proof encoding.
func DeserializeProof(data []byte) (*StarkProof, error) {
	r := &reader{data: data}
	p := &StarkProof{}

	p.TraceRoot = r.digest("trace root")
	p.TraceProof = r.merkleProof("trace proof")
	numStates := r.length(8, "trace states")
	for i := 0; i < numStates; i++ {
		p.TraceStates = append(p.TraceStates, r.elements("trace state"))
	}

	p.ConstraintRoot = r.digest("constraint root")
	p.ConstraintProof = r.merkleProof("constraint proof")
	numValues := r.length(2*core.ElementSize, "constraint values")
	for i := 0; i < numValues; i++ {
		p.ConstraintValues = append(p.ConstraintValues, [2]core.Element{
			r.element("constraint value"),
			r.element("constraint value"),
		})
	}

	p.DeepValues.TraceAtZ = r.elements("deep values at z")
	p.DeepValues.TraceAtZG = r.elements("deep values at z*g")

	numRoots := r.length(core.DigestSize, "fri roots")
	for i := 0; i < numRoots; i++ {
		p.FriProof.Roots = append(p.FriProof.Roots, r.digest("fri root"))
	}
	numLayers := r.length(8, "fri layers")
	for i := 0; i < numLayers; i++ {
		layer := FriLayerProof{}
		numPairs := r.length(2*core.ElementSize, "fri layer values")
		for j := 0; j < numPairs; j++ {
			layer.Values = append(layer.Values, [2]core.Element{
				r.element("fri layer value"),
				r.element("fri layer value"),
			})
		}
		layer.Proof = r.merkleProof("fri layer proof")
		p.FriProof.Layers = append(p.FriProof.Layers, layer)
	}
	p.FriProof.Remainder = r.elements("fri remainder")

	p.PowNonce = r.u64("pow nonce")
	p.OpCount = r.u64("op count")
	p.CtxDepth = r.u8("ctx depth")
	p.LoopDepth = r.u8("loop depth")
	p.StackDepth = r.u8("stack depth")

	p.Options.ExtensionFactor = int(r.u8("extension factor"))
	p.Options.NumQueries = int(r.u8("num queries"))
	p.Options.GrindingFactor = int(r.u8("grinding factor"))
	p.Options.HashFn = core.HashFn(r.u8("hash fn"))

	if r.err != nil {
		return nil, r.err
	}
	if r.pos != len(data) {
		return nil, fmt.Errorf("protocols: malformed proof: %d trailing bytes", len(data)-r.pos)
	}
	return p, nil
}
