package contingency

// sparsityThreshold is the expected-frequency cutoff below which a cell
// counts as sparse for the exact-vs-asymptotic decision.
const sparsityThreshold = 5.0

// Summary is the result of cleaning a raw table: the table with zero-sum
// rows and columns removed, the proportion of cells with expected frequency
// below the sparsity threshold, and the grand total of the cleaned table.
// It is created per Analyze call and never retained.
type Summary struct {
	Table       *Table
	Total       int
	PropSmall   float64
	RowsRemoved int
	ColsRemoved int
}

// Check returns ErrEmptyTable when cleaning removed every row or column
func (s *Summary) Check() error {
	if s.Table == nil {
		return ErrEmptyTable
	}
	return nil
}

// Analyze strips all-zero rows and columns from the table, preserving the
// relative order of what remains, and computes the sparsity summary on the
// cleaned table. A table whose counts are all zero yields a Summary with a
// nil Table; callers must use Check before any statistic computation.
func Analyze(t *Table) *Summary {
	rowSums := t.RowSums()
	colSums := t.ColSums()

	keepRows := make([]int, 0, t.Rows())
	for i, sum := range rowSums {
		if sum > 0 {
			keepRows = append(keepRows, i)
		}
	}
	keepCols := make([]int, 0, t.Cols())
	for j, sum := range colSums {
		if sum > 0 {
			keepCols = append(keepCols, j)
		}
	}

	summary := &Summary{
		RowsRemoved: t.Rows() - len(keepRows),
		ColsRemoved: t.Cols() - len(keepCols),
	}

	if len(keepRows) == 0 || len(keepCols) == 0 {
		return summary
	}

	cells := make([][]int, len(keepRows))
	for i, ri := range keepRows {
		cells[i] = make([]int, len(keepCols))
		for j, cj := range keepCols {
			cells[i][j] = t.At(ri, cj)
		}
	}

	cleaned := &Table{cells: cells}
	summary.Table = cleaned
	summary.Total = cleaned.Total()
	summary.PropSmall = proportionSmall(cleaned)

	return summary
}

// proportionSmall returns the fraction of cells whose expected frequency
// falls below the sparsity threshold
func proportionSmall(t *Table) float64 {
	expected := Expected(t)

	small := 0
	for _, row := range expected {
		for _, e := range row {
			if e < sparsityThreshold {
				small++
			}
		}
	}
	return float64(small) / float64(t.Rows()*t.Cols())
}
