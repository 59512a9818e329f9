package selector

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/todmy/crosstab/internal/contingency"
	"github.com/todmy/crosstab/internal/exact"
)

func newTestSelector() *Selector {
	config := DefaultConfig()
	config.Simulations = 500
	config.Rand = rand.New(rand.NewSource(42))
	return NewSelector(config)
}

func TestAnalyze_InvalidArguments(t *testing.T) {
	s := newTestSelector()

	table := contingency.MustNew([][]int{{1, 2}, {3, 4}})
	if _, err := s.Analyze(table, 100, contingency.Alternative("both")); !errors.Is(err, contingency.ErrInvalidAlternative) {
		t.Errorf("expected ErrInvalidAlternative, got %v", err)
	}

	negative := contingency.MustNew([][]int{{-1, 2}, {3, 4}})
	if _, err := s.Analyze(negative, 100, contingency.TwoSided); !errors.Is(err, contingency.ErrNegativeEntry) {
		t.Errorf("expected ErrNegativeEntry, got %v", err)
	}
}

func TestAnalyze_EmptyAfterCleaning(t *testing.T) {
	s := newTestSelector()

	zero := contingency.MustNew([][]int{{0, 0}, {0, 0}})
	if _, err := s.Analyze(zero, 100, contingency.TwoSided); !errors.Is(err, contingency.ErrEmptyTable) {
		t.Errorf("expected ErrEmptyTable, got %v", err)
	}
}

func TestAnalyze_OneSidedCoercedForLargeTables(t *testing.T) {
	s := newTestSelector()

	table := contingency.MustNew([][]int{
		{5, 3, 2},
		{2, 6, 4},
		{3, 2, 7},
	})
	outcome, err := s.Analyze(table, 200, contingency.Greater)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Alternative != contingency.TwoSided {
		t.Errorf("alternative = %q, want coerced two-sided", outcome.Alternative)
	}
	found := false
	for _, w := range outcome.Warnings {
		if strings.Contains(w, "one-sided") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a one-sided warning, got %v", outcome.Warnings)
	}
}

func TestAnalyze_SmallTotalUsesExactFisher(t *testing.T) {
	s := newTestSelector()

	outcome, err := s.Analyze(contingency.MustNew([][]int{{3, 1}, {1, 3}}), 200, contingency.TwoSided)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Method != MethodExactFisher {
		t.Errorf("method = %q, want %q", outcome.Method, MethodExactFisher)
	}
	if outcome.PValue < 0 || outcome.PValue > 1 {
		t.Errorf("p-value %f outside [0,1]", outcome.PValue)
	}
	if outcome.Total != 8 {
		t.Errorf("total = %d, want 8", outcome.Total)
	}
}

func TestAnalyze_SmallNon2x2UsesMonteCarlo(t *testing.T) {
	s := newTestSelector()

	table := contingency.MustNew([][]int{
		{2, 3, 1},
		{1, 2, 4},
	})
	outcome, err := s.Analyze(table, 200, contingency.TwoSided)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Method != MethodMonteCarloFisher {
		t.Errorf("method = %q, want %q", outcome.Method, MethodMonteCarloFisher)
	}
	if outcome.Simulations != 200 {
		t.Errorf("simulations = %d, want 200", outcome.Simulations)
	}
}

func TestAnalyze_LargeDenseTableUsesChiSquare(t *testing.T) {
	s := newTestSelector()

	outcome, err := s.Analyze(contingency.MustNew([][]int{{30, 30}, {30, 30}}), 200, contingency.TwoSided)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Method != MethodChiSquare {
		t.Errorf("method = %q, want %q", outcome.Method, MethodChiSquare)
	}
	if outcome.Supplement != nil {
		t.Error("dense table should not carry a Fisher supplement")
	}
	if outcome.DF != 1 {
		t.Errorf("df = %d, want 1", outcome.DF)
	}
}

func TestAnalyze_SparseLargeTableAddsFisherSupplement(t *testing.T) {
	s := newTestSelector()

	// Total 120 but two cells with expected frequency 2
	table := contingency.MustNew([][]int{
		{2, 58},
		{2, 58},
	})
	outcome, err := s.Analyze(table, 200, contingency.TwoSided)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Method != MethodChiSquareWithFisher {
		t.Errorf("method = %q, want %q", outcome.Method, MethodChiSquareWithFisher)
	}
	if outcome.Supplement == nil {
		t.Fatal("expected a Fisher supplement")
	}
	if outcome.Supplement.Method != MethodExactFisher {
		t.Errorf("supplement method = %q, want %q", outcome.Supplement.Method, MethodExactFisher)
	}
	if outcome.Supplement.PValue < 0 || outcome.Supplement.PValue > 1 {
		t.Errorf("supplement p-value %f outside [0,1]", outcome.Supplement.PValue)
	}
}

func TestAnalyze_CleansZeroMarginals(t *testing.T) {
	s := newTestSelector()

	table := contingency.MustNew([][]int{
		{0, 0, 0},
		{2, 3, 1},
		{0, 1, 2},
	})
	outcome, err := s.Analyze(table, 200, contingency.TwoSided)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.RowsRemoved != 1 {
		t.Errorf("rows removed = %d, want 1", outcome.RowsRemoved)
	}
	if outcome.Rows != 2 || outcome.Cols != 3 {
		t.Errorf("cleaned shape = %dx%d, want 2x3", outcome.Rows, outcome.Cols)
	}
	if outcome.Total != 9 {
		t.Errorf("total = %d, want 9", outcome.Total)
	}
}

// failingTester simulates a collaborator that cannot complete exactly
type failingTester struct{}

func (failingTester) FisherExact2x2(a, b, c, d int, alt contingency.Alternative) (exact.FisherResult, error) {
	return exact.FisherResult{}, exact.ErrInfeasible
}

func (failingTester) ChiSquareTest(t *contingency.Table) (exact.ChiSquareResult, error) {
	return exact.ChiSquareTest(t)
}

func TestAnalyze_FallsBackToMonteCarlo(t *testing.T) {
	config := DefaultConfig()
	config.Simulations = 200
	config.Rand = rand.New(rand.NewSource(42))
	config.Tester = failingTester{}
	s := NewSelector(config)

	outcome, err := s.Analyze(contingency.MustNew([][]int{{3, 1}, {1, 3}}), 200, contingency.TwoSided)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Method != MethodMonteCarloFisher {
		t.Errorf("method = %q, want Monte Carlo fallback", outcome.Method)
	}
	found := false
	for _, w := range outcome.Warnings {
		if strings.Contains(w, "falling back") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a fallback warning, got %v", outcome.Warnings)
	}
}

func TestAnalyze_DefaultSimulations(t *testing.T) {
	config := DefaultConfig()
	config.Simulations = 300
	config.Rand = rand.New(rand.NewSource(42))
	s := NewSelector(config)

	table := contingency.MustNew([][]int{
		{2, 3, 1},
		{1, 2, 4},
	})
	outcome, err := s.Analyze(table, 0, contingency.TwoSided)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Simulations != 300 {
		t.Errorf("simulations = %d, want configured default 300", outcome.Simulations)
	}
}
