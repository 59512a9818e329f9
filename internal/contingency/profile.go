package contingency

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ProfileDim is the length of the vector produced by Profile. It must match
// the dimension of the profile column in the datasets table.
const ProfileDim = 8

// Profile computes a fixed-length numeric fingerprint of a table, used for
// nearest-neighbour search over stored datasets. The components capture
// shape, scale, sparsity and association strength, so tables that would be
// routed to the same test family land close together.
func Profile(t *Table) []float32 {
	summary := Analyze(t)
	if summary.Table == nil {
		return make([]float32, ProfileDim)
	}
	cleaned := summary.Table
	total := float64(summary.Total)

	rowSums := cleaned.RowSums()
	colSums := cleaned.ColSums()

	chi := ChiSquare(cleaned)
	minDim := math.Min(float64(cleaned.Rows()-1), float64(cleaned.Cols()-1))
	cramersV := 0.0
	if minDim > 0 {
		cramersV = math.Sqrt(chi / (total * minDim))
	}

	profile := []float64{
		float64(cleaned.Rows()),
		float64(cleaned.Cols()),
		math.Log1p(total),
		summary.PropSmall,
		cramersV,
		maxShare(rowSums, total),
		maxShare(colSums, total),
		marginEntropy(rowSums, total) + marginEntropy(colSums, total),
	}

	result := make([]float32, ProfileDim)
	for i, v := range profile {
		result[i] = float32(v)
	}
	return result
}

// maxShare returns the largest marginal sum as a fraction of the total
func maxShare(sums []int, total float64) float64 {
	asFloats := make([]float64, len(sums))
	for i, s := range sums {
		asFloats[i] = float64(s)
	}
	return floats.Max(asFloats) / total
}

// marginEntropy returns the Shannon entropy of a marginal distribution
func marginEntropy(sums []int, total float64) float64 {
	entropy := 0.0
	for _, s := range sums {
		if s == 0 {
			continue
		}
		p := float64(s) / total
		entropy -= p * math.Log(p)
	}
	return entropy
}
