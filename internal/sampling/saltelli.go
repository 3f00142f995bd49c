// Package sampling generates Saltelli sample matrices for Sobol index
// estimation. The unit-hypercube base design comes from an Owen-scrambled
// Halton sequence, so the matrix is low-discrepancy yet fully determined
// by the seed.
package sampling

import (
	"fmt"
	"math/rand/v2"

	"episens/domain/core"
	"episens/domain/design"
	"episens/domain/experiment"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/samplemv"
)

// SampleCount returns the total row count N the Saltelli scheme requires
// for p sampled parameters and base size n.
func SampleCount(baseSize, p int, secondOrder bool) int {
	if secondOrder {
		return baseSize * (2*p + 2)
	}
	return baseSize * (p + 2)
}

// Generate builds the Saltelli sample matrix for the design space.
//
// The layout per base point j is A_j, AB_j^(1..p), B_j, with the radial
// BA_j^(1..p) block inserted before B_j when second-order indices are
// requested. The analyzer depends on this layout and on the column order
// matching space.Sampled exactly.
func Generate(space *design.Space, baseSize int, secondOrder bool, seed int64) (*experiment.SampleMatrix, error) {
	if err := space.Validate(); err != nil {
		return nil, err
	}
	if baseSize < 1 {
		return nil, core.NewInvalidDesignSpaceError(fmt.Sprintf("base size must be >= 1, got %d", baseSize))
	}

	p := len(space.Sampled)
	n := baseSize

	// One 2p-dimensional quasi-random draw per base point; the first p
	// columns form matrix A, the second p form matrix B.
	unit := drawUnitMatrix(n, 2*p, seed)

	rows := make([][]float64, 0, SampleCount(n, p, secondOrder))
	for j := 0; j < n; j++ {
		a := unit.RawRowView(j)[:p]
		b := unit.RawRowView(j)[p : 2*p]

		rows = append(rows, scaleRow(space, a))
		for i := 0; i < p; i++ {
			rows = append(rows, scaleRow(space, crossRow(a, b, i)))
		}
		if secondOrder {
			for i := 0; i < p; i++ {
				rows = append(rows, scaleRow(space, crossRow(b, a, i)))
			}
		}
		rows = append(rows, scaleRow(space, b))
	}

	return &experiment.SampleMatrix{
		Parameters:  space.ParameterNames(),
		Rows:        rows,
		BaseSize:    n,
		SecondOrder: secondOrder,
		Seed:        seed,
	}, nil
}

// drawUnitMatrix samples n quasi-random points on the dim-dimensional unit
// hypercube, deterministically for a given seed.
func drawUnitMatrix(n, dim int, seed int64) *mat.Dense {
	src := rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)
	halton := samplemv.Halton{
		Kind: samplemv.Owen,
		Q:    distmv.NewUnitUniform(dim, src),
		Src:  src,
	}
	batch := mat.NewDense(n, dim, nil)
	halton.Sample(batch)
	return batch
}

// crossRow is base with column i replaced by the other matrix's value
func crossRow(base, other []float64, i int) []float64 {
	row := make([]float64, len(base))
	copy(row, base)
	row[i] = other[i]
	return row
}

// scaleRow maps a unit row onto the declared parameter ranges
func scaleRow(space *design.Space, unit []float64) []float64 {
	row := make([]float64, len(unit))
	for i, p := range space.Sampled {
		row[i] = p.Scale(unit[i])
	}
	return row
}
