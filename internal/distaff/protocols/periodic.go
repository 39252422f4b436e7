package protocols

import (
	"github.com/jonathanxuu/distaff/internal/distaff/core"
)

// PeriodicColumns holds the 16-periodic constant columns of the AIR: the
// eight ARK round-constant columns and the three alignment masks. Each
// column is interpolated once over the cycle subgroup; the prover keeps
// its evaluations over the extended cycle domain (period 16*B over the
// LDE domain), and the verifier evaluates the 16-coefficient interpolants
// at out-of-domain points.
type PeriodicColumns struct {
	arkPolys  [2][core.SpongeWidth][]core.Element
	maskPolys [3][]core.Element

	extensionFactor int
	arkExt          [2][core.SpongeWidth][]core.Element
	maskExt         [3][]core.Element
}

// maskColumns returns the three 16-periodic 0/1 masks: zero marks the
// steps where the guarded ops are allowed.
func maskColumns() [3][]core.Element {
	var cols [3][]core.Element
	for i := range cols {
		col := make([]core.Element, core.CycleLength)
		for j := range col {
			col[j] = core.One
		}
		cols[i] = col
	}
	cols[0][core.CycleLength-1] = core.Zero // Begin/Loop/Wrap/Break at 16k-1
	cols[1][0] = core.Zero                  // Tend/Fend at 16k
	cols[2][0] = core.Zero                  // Push at 8k
	cols[2][core.CycleLength/2] = core.Zero
	return cols
}

// NewPeriodicColumns interpolates the cycle columns; with a nonzero
// extensionFactor it also evaluates them over the extended cycle domain.
func NewPeriodicColumns(extensionFactor int) *PeriodicColumns {
	pc := &PeriodicColumns{extensionFactor: extensionFactor}
	cycleRoot := core.RootOfUnity(core.CycleLength)
	invTwiddles := core.GetInvTwiddles(cycleRoot, core.CycleLength)

	interpolate := func(column []core.Element) []core.Element {
		coefficients := make([]core.Element, core.CycleLength)
		copy(coefficients, column)
		core.InterpolateFFTTwiddles(coefficients, invTwiddles)
		return coefficients
	}

	for half, table := range [2][core.SpongeWidth][core.CycleLength]core.Element{core.ARK1, core.ARK2} {
		for i := 0; i < core.SpongeWidth; i++ {
			pc.arkPolys[half][i] = interpolate(table[i][:])
		}
	}
	masks := maskColumns()
	for i := range masks {
		pc.maskPolys[i] = interpolate(masks[i])
	}

	if extensionFactor > 0 {
		extSize := core.CycleLength * extensionFactor
		twiddles := core.GetTwiddles(core.RootOfUnity(uint64(extSize)), extSize)
		extend := func(coefficients []core.Element) []core.Element {
			extended := make([]core.Element, extSize)
			copy(extended, coefficients)
			core.EvalFFTTwiddles(extended, twiddles)
			return extended
		}
		for half := 0; half < 2; half++ {
			for i := 0; i < core.SpongeWidth; i++ {
				pc.arkExt[half][i] = extend(pc.arkPolys[half][i])
			}
		}
		for i := range pc.maskExt {
			pc.maskExt[i] = extend(pc.maskPolys[i])
		}
	}
	return pc
}

// AtStep reads the columns at an LDE-domain step (prover side).
func (pc *PeriodicColumns) AtStep(step int) (*ArkValues, *MaskValues) {
	extSize := core.CycleLength * pc.extensionFactor
	slot := step % extSize
	var ark ArkValues
	for half := 0; half < 2; half++ {
		for i := 0; i < core.SpongeWidth; i++ {
			ark[half][i] = pc.arkExt[half][i][slot]
		}
	}
	var masks MaskValues
	for i := range masks {
		masks[i] = pc.maskExt[i][slot]
	}
	return &ark, &masks
}

// AtPoint evaluates the columns at an arbitrary domain point x for a
// trace of length n (verifier side): the cycle interpolants composed with
// x^(n/16).
func (pc *PeriodicColumns) AtPoint(x core.Element, n int) (*ArkValues, *MaskValues) {
	y := x.ExpUint(uint64(n / core.CycleLength))
	var ark ArkValues
	for half := 0; half < 2; half++ {
		for i := 0; i < core.SpongeWidth; i++ {
			ark[half][i] = core.EvalPoly(pc.arkPolys[half][i], y)
		}
	}
	var masks MaskValues
	for i := range masks {
		masks[i] = core.EvalPoly(pc.maskPolys[i], y)
	}
	return &ark, &masks
}
