package protocols

import (
	"encoding/binary"
	"math/big"

	"github.com/jonathanxuu/distaff/internal/distaff/core"
	"github.com/jonathanxuu/distaff/internal/distaff/utils"
)

// Proof-of-work grinding and query-position sampling. The transcript seed
// is the hash of the concatenated FRI layer roots; the prover grinds a
// nonce whose hash clears the configured number of leading zero bits, and
// the PoW-anchored seed drives a rejection-sampled draw of distinct
// query positions.

// maxQueryDraws bounds the sampling loop; exceeding it means the
// parameters are pathological.
const maxQueryDraws = 1000

// QuerySeed hashes the FRI layer roots into the query transcript seed.
func QuerySeed(roots []core.Digest, hashFn core.HashFn) core.Digest {
	buf := make([]byte, 0, len(roots)*core.DigestSize)
	for _, r := range roots {
		buf = append(buf, r[:]...)
	}
	return hashFn.Hash(buf)
}

// powDigest hashes seed || nonce (8 bytes little-endian).
func powDigest(seed core.Digest, nonce uint64, hashFn core.HashFn) core.Digest {
	var buf [core.DigestSize + 8]byte
	copy(buf[:core.DigestSize], seed[:])
	binary.LittleEndian.PutUint64(buf[core.DigestSize:], nonce)
	return hashFn.Hash(buf[:])
}

// FindPowNonce grinds for the smallest nonce meeting the grinding factor.
func FindPowNonce(seed core.Digest, grindingFactor int, hashFn core.HashFn) uint64 {
	for nonce := uint64(0); ; nonce++ {
		if leadingZeroBits(powDigest(seed, nonce, hashFn)) >= grindingFactor {
			return nonce
		}
	}
}

// VerifyPowNonce checks the grinding requirement.
func VerifyPowNonce(seed core.Digest, nonce uint64, grindingFactor int, hashFn core.HashFn) bool {
	return leadingZeroBits(powDigest(seed, nonce, hashFn)) >= grindingFactor
}

// PowSeed derives the query-sampling seed from the PoW nonce.
func PowSeed(seed core.Digest, nonce uint64, hashFn core.HashFn) core.Digest {
	return powDigest(seed, nonce, hashFn)
}

// GenerateQueryPositions draws distinct query positions over the LDE
// domain. Each draw takes a 128-bit little-endian sample reduced modulo
// the domain size; positions on the trace subgroup (multiples of the
// extension factor) reveal nothing and are rejected, as are duplicates.
// Sampling fails after maxQueryDraws attempts.
func GenerateQueryPositions(seed core.Digest, domainSize, extensionFactor, numQueries int, hashFn core.HashFn) ([]int, error) {
	prng := utils.NewPrng(seed, hashFn)
	positions := make([]int, 0, numQueries)
	seen := make(map[int]bool, numQueries)

	for draw := 0; draw < maxQueryDraws; draw++ {
		sample := prng.NextInt()
		position := int(sample.Mod(sample, new(big.Int).SetUint64(uint64(domainSize))).Int64())
		if position%extensionFactor == 0 || seen[position] {
			continue
		}
		seen[position] = true
		positions = append(positions, position)
		if len(positions) == numQueries {
			return positions, nil
		}
	}
	return nil, &VerificationError{Kind: ErrInsufficientQueries, Detail: "query sampling exhausted its draw budget"}
}

// AugmentPositions adds the shifted position of each query's next trace
// state and returns the sorted unique set.
func AugmentPositions(positions []int, domainSize, extensionFactor int) []int {
	augmented := make([]int, 0, 2*len(positions))
	for _, q := range positions {
		augmented = append(augmented, q, (q+extensionFactor)%domainSize)
	}
	return utils.SortedUnique(augmented)
}

func leadingZeroBits(digest core.Digest) int {
	bits := 0
	for _, b := range digest {
		if b == 0 {
			bits += 8
			continue
		}
		for shift := 7; shift >= 0; shift-- {
			if b>>shift&1 == 1 {
				return bits
			}
			bits++
		}
	}
	return bits
}
