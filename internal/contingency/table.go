package contingency

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTable         = errors.New("table is empty after removing zero rows and columns")
	ErrNegativeEntry      = errors.New("table contains a negative entry")
	ErrRaggedTable        = errors.New("table rows have differing lengths")
	ErrInvalidAlternative = errors.New("alternative must be two, greater or less")
)

// Alternative selects the tail of the test. One-sided alternatives are
// meaningful only for 2x2 tables.
type Alternative string

const (
	TwoSided Alternative = "two"
	Greater  Alternative = "greater"
	Less     Alternative = "less"
)

// ParseAlternative converts a string into an Alternative
func ParseAlternative(s string) (Alternative, error) {
	switch Alternative(s) {
	case TwoSided, Greater, Less:
		return Alternative(s), nil
	case "":
		return TwoSided, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidAlternative, s)
	}
}

// Valid reports whether the alternative is one of the recognized values
func (a Alternative) Valid() bool {
	return a == TwoSided || a == Greater || a == Less
}

// Table is an R x C matrix of observation counts cross-tabulating two
// categorical variables. A Table is value-passed and never mutated after
// construction.
type Table struct {
	cells [][]int
}

// New creates a Table from a rectangular matrix of counts.
// Negative entries are accepted here and rejected by Validate, so that
// callers can surface them as an input error at analysis time.
func New(cells [][]int) (*Table, error) {
	if len(cells) == 0 || len(cells[0]) == 0 {
		return nil, ErrEmptyTable
	}
	width := len(cells[0])
	copied := make([][]int, len(cells))
	for i, row := range cells {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrRaggedTable, i, len(row), width)
		}
		copied[i] = make([]int, width)
		copy(copied[i], row)
	}
	return &Table{cells: copied}, nil
}

// MustNew is New for tables known to be well-formed, used in tests
func MustNew(cells [][]int) *Table {
	t, err := New(cells)
	if err != nil {
		panic(err)
	}
	return t
}

// Validate checks that all entries are non-negative
func (t *Table) Validate() error {
	for i, row := range t.cells {
		for j, v := range row {
			if v < 0 {
				return fmt.Errorf("%w: cell (%d,%d) = %d", ErrNegativeEntry, i, j, v)
			}
		}
	}
	return nil
}

// Rows returns the number of rows
func (t *Table) Rows() int { return len(t.cells) }

// Cols returns the number of columns
func (t *Table) Cols() int { return len(t.cells[0]) }

// At returns the count at row i, column j
func (t *Table) At(i, j int) int { return t.cells[i][j] }

// Is2x2 reports whether the table has exactly two rows and two columns
func (t *Table) Is2x2() bool { return t.Rows() == 2 && t.Cols() == 2 }

// RowSums returns the row marginal totals
func (t *Table) RowSums() []int {
	sums := make([]int, t.Rows())
	for i, row := range t.cells {
		for _, v := range row {
			sums[i] += v
		}
	}
	return sums
}

// ColSums returns the column marginal totals
func (t *Table) ColSums() []int {
	sums := make([]int, t.Cols())
	for _, row := range t.cells {
		for j, v := range row {
			sums[j] += v
		}
	}
	return sums
}

// Total returns the grand total of all counts
func (t *Table) Total() int {
	total := 0
	for _, row := range t.cells {
		for _, v := range row {
			total += v
		}
	}
	return total
}

// Cells returns a deep copy of the underlying counts
func (t *Table) Cells() [][]int {
	copied := make([][]int, len(t.cells))
	for i, row := range t.cells {
		copied[i] = make([]int, len(row))
		copy(copied[i], row)
	}
	return copied
}
