package contingency

import (
	"gonum.org/v1/gonum/floats"
)

// Expected computes the expected frequency table under the null hypothesis
// of independence: E[i][j] = rowSum[i] * colSum[j] / total.
// Defined only for tables with a positive grand total.
func Expected(t *Table) [][]float64 {
	rowSums := t.RowSums()
	colSums := t.ColSums()
	total := float64(t.Total())

	expected := make([][]float64, t.Rows())
	for i := range expected {
		expected[i] = make([]float64, t.Cols())
		for j := range expected[i] {
			expected[i][j] = float64(rowSums[i]) * float64(colSums[j]) / total
		}
	}
	return expected
}

// ChiSquare computes the Pearson chi-square statistic
// sum((O-E)^2 / E) over all cells. The result is >= 0 and equals 0 only
// when the observed counts are exactly proportional to their margins.
// Tables with zero-sum rows or columns must be cleaned first (Analyze),
// otherwise a zero expected frequency divides by zero.
func ChiSquare(t *Table) float64 {
	expected := Expected(t)

	contributions := make([]float64, 0, t.Rows()*t.Cols())
	for i := 0; i < t.Rows(); i++ {
		for j := 0; j < t.Cols(); j++ {
			diff := float64(t.At(i, j)) - expected[i][j]
			contributions = append(contributions, diff*diff/expected[i][j])
		}
	}
	return floats.Sum(contributions)
}
