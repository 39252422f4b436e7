package protocols

import (
	"github.com/jonathanxuu/distaff/internal/distaff/core"
	"github.com/jonathanxuu/distaff/internal/distaff/utils"
)

// Radix-2 FRI. Each committed layer packs the folding pairs
// (f(x), f(-x)) two evaluations per 32-byte leaf, so a query at position
// p opens leaf p mod n/2 and folds onto the same index in the next
// layer. Folding stops once a layer fits under MaxRemainderLength; the
// remainder is shipped in coefficient form.

// FriLayerProof is one layer's opening at the queried indexes.
type FriLayerProof struct {
	Values [][2]core.Element
	Proof  *core.BatchMerkleProof
}

// FriProof is the full FRI argument: layer roots, per-layer query
// openings and the remainder polynomial.
type FriProof struct {
	Roots     []core.Digest
	Layers    []FriLayerProof
	Remainder []core.Element
}

type friLayer struct {
	evaluations []core.Element
	tree        *core.MerkleTree
}

// FriProver commits to the folding layers of a composition polynomial's
// evaluations.
type FriProver struct {
	layers    []friLayer
	roots     []core.Digest
	remainder []core.Element
	hashFn    core.HashFn
}

// NewFriProver runs the commit phase: fold until the remainder cap,
// deriving each folding challenge from the preceding layer root.
func NewFriProver(evaluations []core.Element, domainRoot core.Element, hashFn core.HashFn) (*FriProver, error) {
	p := &FriProver{hashFn: hashFn}
	current := append([]core.Element(nil), evaluations...)
	w := domainRoot
	inv2 := core.FromUint64(2).Inv()

	for len(current) > MaxRemainderLength {
		half := len(current) / 2
		tree, err := core.NewMerkleTree(packPairs(current), hashFn)
		if err != nil {
			return nil, err
		}
		p.layers = append(p.layers, friLayer{evaluations: current, tree: tree})
		p.roots = append(p.roots, tree.Root())

		beta := utils.NewPrng(tree.Root(), hashFn).NextElement()
		next := make([]core.Element, half)
		x := core.One
		for j := 0; j < half; j++ {
			even := current[j].Add(current[j+half]).Mul(inv2)
			odd := current[j].Sub(current[j+half]).Mul(core.FromUint64(2).Mul(x).Inv())
			next[j] = even.Add(beta.Mul(odd))
			x = x.Mul(w)
		}
		current = next
		w = w.Square()
	}

	// Remainder in coefficient form.
	p.remainder = append([]core.Element(nil), current...)
	if len(p.remainder) > 1 {
		core.InterpolateFFTTwiddles(p.remainder, core.GetInvTwiddles(w, len(p.remainder)))
	}
	return p, nil
}

// Roots returns the layer commitments.
func (p *FriProver) Roots() []core.Digest { return p.roots }

// Query opens every layer at the given layer-0 positions.
func (p *FriProver) Query(positions []int) *FriProof {
	proof := &FriProof{Roots: p.roots, Remainder: p.remainder}
	for _, layer := range p.layers {
		half := len(layer.evaluations) / 2
		indexes := make([]int, len(positions))
		for i, q := range positions {
			indexes[i] = q % half
		}
		indexes = utils.SortedUnique(indexes)
		values := make([][2]core.Element, len(indexes))
		for i, j := range indexes {
			values[i] = [2]core.Element{layer.evaluations[j], layer.evaluations[j+half]}
		}
		proof.Layers = append(proof.Layers, FriLayerProof{
			Values: values,
			Proof:  layer.tree.ProveBatch(indexes),
		})
	}
	return proof
}

// FriVerifier checks a FRI proof against the recomputed query positions.
type FriVerifier struct {
	proof      *FriProof
	hashFn     core.HashFn
	domainSize int
	domainRoot core.Element

	// per-layer sorted unique opened index sets and folding challenges
	indexes [][]int
	betas   []core.Element
}

// NewFriVerifier derives the per-layer index sets and folding challenges.
func NewFriVerifier(proof *FriProof, positions []int, domainSize int, domainRoot core.Element, hashFn core.HashFn) *FriVerifier {
	v := &FriVerifier{proof: proof, hashFn: hashFn, domainSize: domainSize, domainRoot: domainRoot}
	size := domainSize
	for range proof.Layers {
		half := size / 2
		folded := make([]int, len(positions))
		for i, q := range positions {
			folded[i] = q % half
		}
		v.indexes = append(v.indexes, utils.SortedUnique(folded))
		size = half
	}
	for _, root := range proof.Roots {
		v.betas = append(v.betas, utils.NewPrng(root, hashFn).NextElement())
	}
	return v
}

// VerifyOpenings checks every layer's batch opening against its root and
// the expected index set. It runs before any folding math so a tampered
// layer commitment surfaces as a FRI inconsistency.
func (v *FriVerifier) VerifyOpenings() error {
	if len(v.proof.Roots) != len(v.proof.Layers) {
		return &VerificationError{Kind: ErrMalformedProof, Detail: "fri root and layer counts differ"}
	}
	for li, layer := range v.proof.Layers {
		want := v.indexes[li]
		if len(layer.Values) != len(want) {
			return &VerificationError{Kind: ErrFriLayerInconsistent, Layer: li, Detail: "opening count mismatch"}
		}
		leaves := make([]core.Digest, len(layer.Values))
		for i, pair := range layer.Values {
			leaves[i] = packPair(pair[0], pair[1])
		}
		if err := core.VerifyBatch(v.proof.Roots[li], want, leaves, layer.Proof, v.hashFn); err != nil {
			return &VerificationError{Kind: ErrFriLayerInconsistent, Layer: li, Detail: "bad layer opening"}
		}
	}
	return nil
}

// VerifyQuery walks one query through every folding layer, checking value
// continuity, and finally against the remainder polynomial. The expected
// layer-0 value comes from the DEEP composition; a mismatch there is a
// composition failure, deeper mismatches are FRI failures.
func (v *FriVerifier) VerifyQuery(position int, expected core.Element) error {
	pos := position
	value := expected
	w := v.domainRoot
	size := v.domainSize
	inv2 := core.FromUint64(2).Inv()

	for li, layer := range v.proof.Layers {
		half := size / 2
		j := pos % half
		slot := indexOf(v.indexes[li], j)
		if slot < 0 {
			return &VerificationError{Kind: ErrFriLayerInconsistent, Layer: li, Detail: "queried index missing from opening"}
		}
		pair := layer.Values[slot]
		opened := pair[0]
		if pos >= half {
			opened = pair[1]
		}
		if !opened.Equal(value) {
			if li == 0 {
				return &VerificationError{Kind: ErrDeepCompositionMismatch, Position: position}
			}
			return &VerificationError{Kind: ErrFriLayerInconsistent, Layer: li, Position: position}
		}

		xj := w.ExpUint(uint64(j))
		even := pair[0].Add(pair[1]).Mul(inv2)
		odd := pair[0].Sub(pair[1]).Mul(core.FromUint64(2).Mul(xj).Inv())
		value = even.Add(v.betas[li].Mul(odd))

		pos = j
		w = w.Square()
		size = half
	}

	// The folded value must match the remainder polynomial.
	if !core.EvalPoly(v.proof.Remainder, w.ExpUint(uint64(pos))).Equal(value) {
		if len(v.proof.Layers) == 0 {
			return &VerificationError{Kind: ErrDeepCompositionMismatch, Position: position}
		}
		return &VerificationError{Kind: ErrFriLayerInconsistent, Layer: len(v.proof.Layers), Detail: "remainder mismatch"}
	}
	return nil
}

// VerifyRemainderDegree checks that the remainder respects the degree
// bound implied by the composition degree and the number of foldings.
func (v *FriVerifier) VerifyRemainderDegree(traceLength, extensionFactor int) error {
	maxCoefficients := ((extensionFactor - 1) * traceLength) >> len(v.proof.Layers)
	for i := maxCoefficients; i < len(v.proof.Remainder); i++ {
		if !v.proof.Remainder[i].IsZero() {
			return &VerificationError{Kind: ErrFriLayerInconsistent, Layer: len(v.proof.Layers), Detail: "remainder degree too large"}
		}
	}
	return nil
}

func indexOf(sorted []int, value int) int {
	lo, hi := 0, len(sorted)
	for lo < hi {
		mid := (lo + hi) / 2
		if sorted[mid] < value {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(sorted) && sorted[lo] == value {
		return lo
	}
	return -1
}

func packPairs(evaluations []core.Element) []core.Digest {
	half := len(evaluations) / 2
	leaves := make([]core.Digest, half)
	for j := 0; j < half; j++ {
		leaves[j] = packPair(evaluations[j], evaluations[j+half])
	}
	return leaves
}

func packPair(a, b core.Element) core.Digest {
	var leaf core.Digest
	ab := a.Bytes()
	bb := b.Bytes()
	copy(leaf[:core.ElementSize], ab[:])
	copy(leaf[core.ElementSize:], bb[:])
	return leaf
}
