package simulate

import (
	"fmt"
	"math/rand"

	"github.com/todmy/crosstab/internal/contingency"
)

// DefaultSimulations is the number of Monte Carlo iterations used when the
// caller does not specify one.
const DefaultSimulations = 10000

// Estimator estimates Fisher-style p-values by repeated random table
// generation under the observed margins. Each call is independent; the only
// shared state is the random source, so results are deterministic for a
// fixed seed and simulation count.
type Estimator struct {
	sim *Simulator
}

// NewEstimator creates an Estimator drawing from rng (nil for time-seeded)
func NewEstimator(rng *rand.Rand) *Estimator {
	return &Estimator{sim: NewSimulator(rng)}
}

// NewEstimatorWith wraps an existing Simulator, keeping any sweep cap it
// carries
func NewEstimatorWith(sim *Simulator) *Estimator {
	return &Estimator{sim: sim}
}

// PValue estimates the p-value for the independence test on t by simulating
// nSim tables with the observed margins.
//
// For two-sided alternatives, and for any table larger than 2x2, the test
// statistic is the chi-square statistic and the estimate is the fraction of
// simulated statistics >= the observed one. The tie-break is inclusive, so
// the estimate is biased conservatively upward. For one-sided alternatives
// on 2x2 tables the statistic is the odds ratio (a*d)/(b*c), compared with
// >= for Greater and <= for Less.
//
// The result is always within [0,1]. It is an estimate, never an exact
// p-value; callers needing exactness must use the exact collaborator.
func (e *Estimator) PValue(t *contingency.Table, nSim int, alt contingency.Alternative) (float64, error) {
	if !alt.Valid() {
		return 0, fmt.Errorf("%w: got %q", contingency.ErrInvalidAlternative, string(alt))
	}
	if nSim < 1 {
		return 0, fmt.Errorf("number of simulations must be positive, got %d", nSim)
	}

	rowSums := t.RowSums()
	colSums := t.ColSums()

	if alt == contingency.TwoSided || !t.Is2x2() {
		observed := contingency.ChiSquare(t)
		extreme := 0
		for i := 0; i < nSim; i++ {
			simulated, err := e.sim.Simulate(rowSums, colSums)
			if err != nil {
				return 0, err
			}
			if contingency.ChiSquare(simulated) >= observed {
				extreme++
			}
		}
		return float64(extreme) / float64(nSim), nil
	}

	observedOR := oddsRatio(t)
	extreme := 0
	for i := 0; i < nSim; i++ {
		simulated, err := e.sim.Simulate(rowSums, colSums)
		if err != nil {
			return 0, err
		}
		simOR := oddsRatio(simulated)
		if alt == contingency.Greater && simOR >= observedOR {
			extreme++
		}
		if alt == contingency.Less && simOR <= observedOR {
			extreme++
		}
	}
	return float64(extreme) / float64(nSim), nil
}

// oddsRatio returns (a*d)/(b*c) for a 2x2 table [[a b] [c d]]. A zero
// denominator yields +Inf (or NaN for 0/0), matching IEEE semantics of the
// source computation.
func oddsRatio(t *contingency.Table) float64 {
	a := float64(t.At(0, 0))
	b := float64(t.At(0, 1))
	c := float64(t.At(1, 0))
	d := float64(t.At(1, 1))
	return (a * d) / (b * c)
}
