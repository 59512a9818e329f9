package exact

import (
	"errors"
	"math"
	"testing"

	"github.com/todmy/crosstab/internal/contingency"
)

func TestFisherExact2x2_TeaTasting(t *testing.T) {
	// Fisher's lady-tasting-tea table [[3,1],[1,3]]: the hypergeometric
	// support is {0..4} with probabilities 1/70, 16/70, 36/70, 16/70, 1/70
	result, err := FisherExact2x2(3, 1, 1, 3, contingency.Greater)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := 17.0 / 70.0; math.Abs(result.PValue-want) > 1e-9 {
		t.Errorf("greater p-value = %f, want %f", result.PValue, want)
	}

	result, err = FisherExact2x2(3, 1, 1, 3, contingency.Less)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := 69.0 / 70.0; math.Abs(result.PValue-want) > 1e-9 {
		t.Errorf("less p-value = %f, want %f", result.PValue, want)
	}

	result, err = FisherExact2x2(3, 1, 1, 3, contingency.TwoSided)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := 34.0 / 70.0; math.Abs(result.PValue-want) > 1e-9 {
		t.Errorf("two-sided p-value = %f, want %f", result.PValue, want)
	}

	if want := 9.0; math.Abs(result.OddsRatio-want) > 1e-9 {
		t.Errorf("odds ratio = %f, want %f", result.OddsRatio, want)
	}
}

func TestFisherExact2x2_BalancedTable(t *testing.T) {
	result, err := FisherExact2x2(10, 10, 10, 10, contingency.TwoSided)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(result.PValue-1) > 1e-9 {
		t.Errorf("two-sided p-value for balanced table = %f, want 1", result.PValue)
	}
}

func TestFisherExact2x2_StrongAssociation(t *testing.T) {
	result, err := FisherExact2x2(40, 4, 4, 40, contingency.TwoSided)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PValue >= 1e-6 {
		t.Errorf("strong association should give a tiny p-value, got %g", result.PValue)
	}
}

func TestFisherExact2x2_PValueBounds(t *testing.T) {
	tables := [][4]int{
		{1, 9, 11, 3},
		{0, 5, 5, 0},
		{12, 5, 7, 14},
	}
	alternatives := []contingency.Alternative{contingency.TwoSided, contingency.Greater, contingency.Less}

	for _, cells := range tables {
		for _, alt := range alternatives {
			result, err := FisherExact2x2(cells[0], cells[1], cells[2], cells[3], alt)
			if err != nil {
				t.Fatalf("unexpected error for %v %q: %v", cells, alt, err)
			}
			if result.PValue < 0 || result.PValue > 1 {
				t.Errorf("p-value %f outside [0,1] for %v %q", result.PValue, cells, alt)
			}
		}
	}
}

func TestFisherExact2x2_Infeasible(t *testing.T) {
	// Zero margin leaves a single possible table
	if _, err := FisherExact2x2(0, 0, 5, 5, contingency.TwoSided); !errors.Is(err, ErrInfeasible) {
		t.Errorf("expected ErrInfeasible for zero margin, got %v", err)
	}

	// Total beyond the exact ceiling
	big := maxExactTotal / 2
	if _, err := FisherExact2x2(big, big, big, big, contingency.TwoSided); !errors.Is(err, ErrInfeasible) {
		t.Errorf("expected ErrInfeasible for oversized total, got %v", err)
	}
}

func TestFisherExact2x2_InvalidArguments(t *testing.T) {
	if _, err := FisherExact2x2(1, 2, 3, 4, contingency.Alternative("both")); !errors.Is(err, contingency.ErrInvalidAlternative) {
		t.Errorf("expected ErrInvalidAlternative, got %v", err)
	}
	if _, err := FisherExact2x2(-1, 2, 3, 4, contingency.TwoSided); !errors.Is(err, contingency.ErrNegativeEntry) {
		t.Errorf("expected ErrNegativeEntry, got %v", err)
	}
}
