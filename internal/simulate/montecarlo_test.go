package simulate

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/todmy/crosstab/internal/contingency"
)

func TestPValue_AlwaysInUnitInterval(t *testing.T) {
	tables := [][][]int{
		{{5, 5}, {5, 5}},
		{{10, 0}, {0, 10}},
		{{3, 7, 2}, {8, 1, 4}},
	}
	alternatives := []contingency.Alternative{contingency.TwoSided, contingency.Greater, contingency.Less}

	est := NewEstimator(rand.New(rand.NewSource(5)))
	for _, cells := range tables {
		for _, alt := range alternatives {
			p, err := est.PValue(contingency.MustNew(cells), 200, alt)
			if err != nil {
				t.Fatalf("unexpected error for %v %q: %v", cells, alt, err)
			}
			if p < 0 || p > 1 {
				t.Errorf("p-value %f outside [0,1] for %v %q", p, cells, alt)
			}
		}
	}
}

func TestPValue_OneSidedDirections(t *testing.T) {
	est := NewEstimator(rand.New(rand.NewSource(7)))
	positive := contingency.MustNew([][]int{{40, 4}, {4, 40}})

	greater, err := est.PValue(positive, 2000, contingency.Greater)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	less, err := est.PValue(positive, 2000, contingency.Less)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if greater >= 0.2 {
		t.Errorf("greater-tail p-value for positive association = %f, want < 0.2", greater)
	}
	if less <= 0.8 {
		t.Errorf("less-tail p-value for positive association = %f, want > 0.8", less)
	}

	// Mirroring the association flips the tails
	mirrored := contingency.MustNew([][]int{{4, 40}, {40, 4}})
	greater, err = est.PValue(mirrored, 2000, contingency.Greater)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	less, err = est.PValue(mirrored, 2000, contingency.Less)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if greater <= 0.8 {
		t.Errorf("greater-tail p-value for negative association = %f, want > 0.8", greater)
	}
	if less >= 0.2 {
		t.Errorf("less-tail p-value for negative association = %f, want < 0.2", less)
	}
}

func TestPValue_OneSidedInfiniteOddsRatio(t *testing.T) {
	// Both off-diagonal cells are zero, so the observed odds ratio is +Inf.
	// Only simulated tables that reproduce the diagonal match it under
	// Greater, while every finite or infinite ratio satisfies Less.
	table := contingency.MustNew([][]int{{5, 0}, {0, 5}})
	est := NewEstimator(rand.New(rand.NewSource(17)))

	greater, err := est.PValue(table, 2000, contingency.Greater)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if greater < 0 || greater > 0.1 {
		t.Errorf("greater-tail p-value for infinite odds ratio = %f, want small", greater)
	}

	less, err := est.PValue(table, 2000, contingency.Less)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if less != 1 {
		t.Errorf("less-tail p-value for infinite odds ratio = %f, want 1", less)
	}
}

func TestPValue_TwoSidedDetectsAssociation(t *testing.T) {
	est := NewEstimator(rand.New(rand.NewSource(11)))

	associated, err := est.PValue(contingency.MustNew([][]int{{20, 2}, {2, 20}}), 2000, contingency.TwoSided)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if associated >= 0.05 {
		t.Errorf("strong association should give a small p-value, got %f", associated)
	}

	independent, err := est.PValue(contingency.MustNew([][]int{{10, 10}, {10, 10}}), 2000, contingency.TwoSided)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if independent <= 0.5 {
		t.Errorf("independent table should give a large p-value, got %f", independent)
	}
}

func TestPValue_InvalidArguments(t *testing.T) {
	est := NewEstimator(rand.New(rand.NewSource(1)))
	table := contingency.MustNew([][]int{{1, 2}, {3, 4}})

	if _, err := est.PValue(table, 100, contingency.Alternative("both")); !errors.Is(err, contingency.ErrInvalidAlternative) {
		t.Errorf("expected ErrInvalidAlternative, got %v", err)
	}
	if _, err := est.PValue(table, 0, contingency.TwoSided); err == nil {
		t.Error("expected error for zero simulations")
	}
}

func TestPValue_DeterministicForFixedSeed(t *testing.T) {
	table := contingency.MustNew([][]int{{6, 3}, {2, 8}})

	first, err := NewEstimator(rand.New(rand.NewSource(123))).PValue(table, 500, contingency.TwoSided)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := NewEstimator(rand.New(rand.NewSource(123))).PValue(table, 500, contingency.TwoSided)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Errorf("same seed produced different estimates: %f vs %f", first, second)
	}
}
