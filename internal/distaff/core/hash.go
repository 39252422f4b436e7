package core

import (
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// DigestSize is the size of all commitment digests in bytes.
const DigestSize = 32

// Digest is a 32-byte hash output.
type Digest = [DigestSize]byte

// HashFn selects the hash algorithm used for commitments and the
// Fiat-Shamir transcript.
type HashFn uint8

const (
	// Blake2b256 is blake2b with the output truncated to 32 bytes.
	Blake2b256 HashFn = iota + 1

	// RescueP128 is the algebraic Rescue sponge over F_p.
	RescueP128
)

// IsValid reports whether the selector names a supported algorithm.
func (h HashFn) IsValid() bool {
	return h == Blake2b256 || h == RescueP128
}

func (h HashFn) String() string {
	switch h {
	case Blake2b256:
		return "blake2b-256"
	case RescueP128:
		return "rescue-p128"
	default:
		return fmt.Sprintf("hash(%d)", uint8(h))
	}
}

// Hash digests arbitrary bytes with the selected algorithm.
func (h HashFn) Hash(data []byte) Digest {
	switch h {
	case RescueP128:
		return RescueHash(data)
	default:
		return blake2b.Sum256(data)
	}
}

// Merge digests the concatenation of two digests; this is the Merkle
// internal-node rule (hash of 64 bytes).
func (h HashFn) Merge(a, b Digest) Digest {
	var buf [2 * DigestSize]byte
	copy(buf[:DigestSize], a[:])
	copy(buf[DigestSize:], b[:])
	return h.Hash(buf[:])
}

// HashElements digests a slice of field elements in their canonical
// 16-byte encoding.
func (h HashFn) HashElements(values []Element) Digest {
	buf := make([]byte, 0, len(values)*ElementSize)
	for _, v := range values {
		b := v.Bytes()
		buf = append(buf, b[:]...)
	}
	return h.Hash(buf)
}
