package selector

import (
	"fmt"
	"log"
	"math/rand"

	"github.com/todmy/crosstab/internal/contingency"
	"github.com/todmy/crosstab/internal/exact"
	"github.com/todmy/crosstab/internal/simulate"
)

// Decision thresholds: the standard guidance on when expected-frequency
// sparsity and small totals make the chi-square asymptotics unreliable.
const (
	minTotalForAsymptotic = 40   // below this, always prefer the Fisher family
	sparseTotalCeiling    = 100  // sparse tables below this total also prefer Fisher
	sparseProportion      = 0.2  // fraction of cells with expected frequency < 5
	exactTotalCeiling     = 2000 // largest total handed to the exact Fisher test
)

// Method tags which test produced an Outcome
type Method string

const (
	MethodExactFisher         Method = "fisher_exact"
	MethodMonteCarloFisher    Method = "fisher_monte_carlo"
	MethodChiSquare           Method = "chi_square"
	MethodChiSquareWithFisher Method = "chi_square_with_fisher"
)

// Outcome is the structured result of one analysis. Exactly one outcome is
// produced per call; in the sparse-but-large branch the asymptotic result
// carries the Fisher estimate in Supplement.
type Outcome struct {
	Method      Method                  `json:"method"`
	PValue      float64                 `json:"p_value"`
	Statistic   float64                 `json:"statistic,omitempty"`
	DF          int                     `json:"degrees_of_freedom,omitempty"`
	OddsRatio   float64                 `json:"odds_ratio,omitempty"`
	Simulations int                     `json:"simulations,omitempty"`
	Alternative contingency.Alternative `json:"alternative"`
	Supplement  *Outcome                `json:"supplement,omitempty"`
	Warnings    []string                `json:"warnings,omitempty"`

	// Cleaned-table summary the decision was based on
	Rows        int     `json:"rows"`
	Cols        int     `json:"cols"`
	Total       int     `json:"total"`
	PropSmall   float64 `json:"prop_small_expected"`
	RowsRemoved int     `json:"rows_removed,omitempty"`
	ColsRemoved int     `json:"cols_removed,omitempty"`
}

// ExactTester is the hypothesis-test collaborator the selector dispatches
// to for exact and asymptotic results. The package exact implementation is
// used by default; tests substitute failing ones to exercise fallback.
type ExactTester interface {
	FisherExact2x2(a, b, c, d int, alt contingency.Alternative) (exact.FisherResult, error)
	ChiSquareTest(t *contingency.Table) (exact.ChiSquareResult, error)
}

// PValueEstimator is the Monte Carlo collaborator
type PValueEstimator interface {
	PValue(t *contingency.Table, nSim int, alt contingency.Alternative) (float64, error)
}

// Config holds selector configuration
type Config struct {
	Simulations int             // default simulation count, 0 means simulate.DefaultSimulations
	Rand        *rand.Rand      // random source for the default estimator, nil for time-seeded
	Tester      ExactTester     // nil for the package exact implementation
	Estimator   PValueEstimator // nil for a simulate.Estimator on Rand
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{Simulations: simulate.DefaultSimulations}
}

// Selector decides which test family fits a contingency table and runs it.
// It holds no state across calls; every Analyze invocation is an
// independent decision over its inputs.
type Selector struct {
	config    Config
	tester    ExactTester
	estimator PValueEstimator
}

// NewSelector creates a Selector from config, filling in defaults
func NewSelector(config Config) *Selector {
	if config.Simulations <= 0 {
		config.Simulations = simulate.DefaultSimulations
	}

	tester := config.Tester
	if tester == nil {
		tester = libraryTester{}
	}
	estimator := config.Estimator
	if estimator == nil {
		estimator = simulate.NewEstimator(config.Rand)
	}

	return &Selector{
		config:    config,
		tester:    tester,
		estimator: estimator,
	}
}

// Analyze cleans the table, validates it, picks a test family and reports
// the outcome.
//
// Tables with a small total, or sparse expected frequencies together with a
// moderate total, go to the Fisher family: the exact test when the cleaned
// table is 2x2 and small enough, Monte Carlo estimation otherwise, with an
// automatic Monte Carlo fallback when the exact collaborator fails. All
// remaining tables get the asymptotic chi-square test, supplemented by a
// Fisher estimate when expected frequencies are sparse despite the total.
func (s *Selector) Analyze(t *contingency.Table, nSim int, alt contingency.Alternative) (*Outcome, error) {
	if !alt.Valid() {
		return nil, fmt.Errorf("%w: got %q", contingency.ErrInvalidAlternative, string(alt))
	}
	if nSim <= 0 {
		nSim = s.config.Simulations
	}

	summary := contingency.Analyze(t)
	if err := summary.Check(); err != nil {
		return nil, err
	}
	cleaned := summary.Table

	// Negative entries in the raw table survive cleaning
	if err := cleaned.Validate(); err != nil {
		return nil, err
	}

	var warnings []string
	if summary.RowsRemoved > 0 || summary.ColsRemoved > 0 {
		msg := fmt.Sprintf("removed %d zero row(s) and %d zero column(s) before testing", summary.RowsRemoved, summary.ColsRemoved)
		warnings = append(warnings, msg)
		log.Printf("selector: %s", msg)
	}

	if alt != contingency.TwoSided && !cleaned.Is2x2() {
		msg := "one-sided tests are only meaningful for 2x2 tables; using two-sided"
		warnings = append(warnings, msg)
		log.Printf("selector: %s", msg)
		alt = contingency.TwoSided
	}

	var outcome *Outcome
	var err error
	if summary.Total < minTotalForAsymptotic ||
		(summary.PropSmall > sparseProportion && summary.Total < sparseTotalCeiling) {
		outcome, err = s.fisherOutcome(cleaned, summary.Total, nSim, alt, &warnings)
	} else {
		outcome, err = s.chiSquareOutcome(cleaned, summary, nSim, alt, &warnings)
	}
	if err != nil {
		return nil, err
	}

	outcome.Alternative = alt
	outcome.Warnings = warnings
	outcome.Rows = cleaned.Rows()
	outcome.Cols = cleaned.Cols()
	outcome.Total = summary.Total
	outcome.PropSmall = summary.PropSmall
	outcome.RowsRemoved = summary.RowsRemoved
	outcome.ColsRemoved = summary.ColsRemoved

	return outcome, nil
}

// fisherOutcome runs the exact Fisher test when feasible, otherwise (or on
// collaborator failure) the Monte Carlo estimator
func (s *Selector) fisherOutcome(t *contingency.Table, total, nSim int, alt contingency.Alternative, warnings *[]string) (*Outcome, error) {
	if t.Is2x2() && total <= exactTotalCeiling {
		result, err := s.tester.FisherExact2x2(t.At(0, 0), t.At(0, 1), t.At(1, 0), t.At(1, 1), alt)
		if err == nil {
			return &Outcome{
				Method:    MethodExactFisher,
				PValue:    result.PValue,
				OddsRatio: result.OddsRatio,
			}, nil
		}
		msg := fmt.Sprintf("exact Fisher test failed (%v); falling back to Monte Carlo estimation", err)
		*warnings = append(*warnings, msg)
		log.Printf("selector: %s", msg)
	}

	p, err := s.estimator.PValue(t, nSim, alt)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Method:      MethodMonteCarloFisher,
		PValue:      p,
		Simulations: nSim,
	}, nil
}

// chiSquareOutcome runs the asymptotic test, attaching a Fisher estimate
// when expected frequencies are sparse despite an adequate total
func (s *Selector) chiSquareOutcome(t *contingency.Table, summary *contingency.Summary, nSim int, alt contingency.Alternative, warnings *[]string) (*Outcome, error) {
	result, err := s.tester.ChiSquareTest(t)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Method:    MethodChiSquare,
		PValue:    result.PValue,
		Statistic: result.Statistic,
		DF:        result.DF,
	}

	if summary.PropSmall > sparseProportion {
		supplement, err := s.fisherOutcome(t, summary.Total, nSim, alt, warnings)
		if err != nil {
			return nil, err
		}
		supplement.Alternative = alt
		outcome.Method = MethodChiSquareWithFisher
		outcome.Supplement = supplement
	}

	return outcome, nil
}

// libraryTester dispatches to the package exact implementations
type libraryTester struct{}

func (libraryTester) FisherExact2x2(a, b, c, d int, alt contingency.Alternative) (exact.FisherResult, error) {
	return exact.FisherExact2x2(a, b, c, d, alt)
}

func (libraryTester) ChiSquareTest(t *contingency.Table) (exact.ChiSquareResult, error) {
	return exact.ChiSquareTest(t)
}
