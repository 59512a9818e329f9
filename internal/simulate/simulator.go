package simulate

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/todmy/crosstab/internal/contingency"
)

var (
	ErrMarginMismatch = errors.New("row sums and column sums have different totals")
	ErrNegativeMargin = errors.New("marginal sums must be non-negative")
	ErrSweepLimit     = errors.New("sweep limit exceeded before margins were satisfied")
)

// Simulator generates random non-negative integer tables with prescribed
// row and column sums, used as the null-distribution sampler for Monte
// Carlo testing.
//
// The generator allocates the grand total one unit at a time: it sweeps the
// grid in row-major order and, for every cell whose row and column budgets
// are both still positive, places a unit with probability proportional to
// the product of the remaining budgets. Probabilities are recomputed after
// every placement, and sweeps repeat until all budgets are exhausted.
// Termination holds with probability 1 but the sweep count is random, so
// runtime is not bounded; MaxSweeps caps it when a bound is needed.
type Simulator struct {
	rng *rand.Rand

	// MaxSweeps aborts generation with ErrSweepLimit after this many full
	// grid sweeps. Zero means no cap.
	MaxSweeps int
}

// NewSimulator creates a Simulator drawing from rng. A nil rng gets a
// time-seeded source, so pass a seeded one for reproducible output.
func NewSimulator(rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{rng: rng}
}

// Simulate returns a random table whose row sums equal rowSums and column
// sums equal colSums exactly. Both totals must agree; a zero total yields
// an all-zero table.
func (s *Simulator) Simulate(rowSums, colSums []int) (*contingency.Table, error) {
	if len(rowSums) == 0 || len(colSums) == 0 {
		return nil, contingency.ErrEmptyTable
	}

	total := 0
	for i, v := range rowSums {
		if v < 0 {
			return nil, fmt.Errorf("%w: row %d = %d", ErrNegativeMargin, i, v)
		}
		total += v
	}
	colTotal := 0
	for j, v := range colSums {
		if v < 0 {
			return nil, fmt.Errorf("%w: column %d = %d", ErrNegativeMargin, j, v)
		}
		colTotal += v
	}
	if total != colTotal {
		return nil, fmt.Errorf("%w: rows sum to %d, columns to %d", ErrMarginMismatch, total, colTotal)
	}

	cells := make([][]int, len(rowSums))
	for i := range cells {
		cells[i] = make([]int, len(colSums))
	}

	remRow := make([]int, len(rowSums))
	copy(remRow, rowSums)
	remCol := make([]int, len(colSums))
	copy(remCol, colSums)

	remaining := total
	sweeps := 0
	for remaining > 0 {
		if s.MaxSweeps > 0 && sweeps >= s.MaxSweeps {
			return nil, fmt.Errorf("%w: %d sweeps, %d units unplaced", ErrSweepLimit, sweeps, remaining)
		}
		sweeps++

		for i := range remRow {
			for j := range remCol {
				if remRow[i] == 0 || remCol[j] == 0 {
					continue
				}
				// remaining is both the sum of remRow and the sum of remCol
				p := float64(remRow[i]) * float64(remCol[j]) / (float64(remaining) * float64(remaining))
				if s.rng.Float64() < p {
					cells[i][j]++
					remRow[i]--
					remCol[j]--
					remaining--
					if remaining == 0 {
						break
					}
				}
			}
			if remaining == 0 {
				break
			}
		}
	}

	return contingency.New(cells)
}
