package utils

import (
	"encoding/binary"
	"math/big"

	"github.com/jonathanxuu/distaff/internal/distaff/core"
)

// Prng is the byte-deterministic pseudo-random generator behind every
// Fiat-Shamir challenge and query-position draw. Both prover and verifier
// must reproduce it bit for bit, so the layout is fixed:
//
//	block(k) = H(seed || k)     with k as 8 little-endian bytes
//
// and each draw consumes the first 16 bytes of the next block, interpreted
// as a little-endian 128-bit integer.
type Prng struct {
	seed    core.Digest
	hashFn  core.HashFn
	counter uint64
}

// NewPrng seeds a generator with a 32-byte digest.
func NewPrng(seed core.Digest, hashFn core.HashFn) *Prng {
	return &Prng{seed: seed, hashFn: hashFn}
}

// NextBytes returns the next 16-byte block.
func (p *Prng) NextBytes() [16]byte {
	var buf [40]byte
	copy(buf[:32], p.seed[:])
	binary.LittleEndian.PutUint64(buf[32:], p.counter)
	p.counter++
	digest := p.hashFn.Hash(buf[:])
	var out [16]byte
	copy(out[:], digest[:16])
	return out
}

// NextInt returns the next draw as a 128-bit unsigned integer.
func (p *Prng) NextInt() *big.Int {
	block := p.NextBytes()
	be := make([]byte, 16)
	for i, c := range block {
		be[15-i] = c
	}
	return new(big.Int).SetBytes(be)
}

// NextElement reduces the next 128-bit draw into the field. The modulus
// falls short of 2^128 by less than 2^46 (a relative gap below 2^-82), so
// the reduction bias is negligible.
func (p *Prng) NextElement() core.Element {
	return core.NewElement(p.NextInt())
}

// NextElements draws n field elements.
func (p *Prng) NextElements(n int) []core.Element {
	out := make([]core.Element, n)
	for i := range out {
		out[i] = p.NextElement()
	}
	return out
}

// NextElementPairs draws n coefficient pairs.
func (p *Prng) NextElementPairs(n int) [][2]core.Element {
	out := make([][2]core.Element, n)
	for i := range out {
		out[i][0] = p.NextElement()
		out[i][1] = p.NextElement()
	}
	return out
}
