package exact

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/todmy/crosstab/internal/contingency"
)

// ChiSquareResult holds the outcome of the asymptotic chi-square test
type ChiSquareResult struct {
	Statistic float64
	DF        int
	PValue    float64
}

// ChiSquareTest runs the asymptotic Pearson chi-square test of independence
// on t. The table must already be cleaned of zero-sum rows and columns;
// 1xC and Rx1 tables have no degrees of freedom and are rejected.
func ChiSquareTest(t *contingency.Table) (ChiSquareResult, error) {
	if err := t.Validate(); err != nil {
		return ChiSquareResult{}, err
	}

	df := (t.Rows() - 1) * (t.Cols() - 1)
	if df < 1 {
		return ChiSquareResult{}, fmt.Errorf("chi-square test requires at least a 2x2 table, got %dx%d", t.Rows(), t.Cols())
	}

	statistic := contingency.ChiSquare(t)
	dist := distuv.ChiSquared{K: float64(df)}

	return ChiSquareResult{
		Statistic: statistic,
		DF:        df,
		PValue:    dist.Survival(statistic),
	}, nil
}
