package exact

import (
	"errors"
	"fmt"
	"math"

	"github.com/todmy/crosstab/internal/contingency"
)

// ErrInfeasible signals that an exact computation cannot complete for the
// given inputs. It is recoverable: callers fall back to Monte Carlo
// estimation instead of failing the analysis.
var ErrInfeasible = errors.New("exact computation infeasible for these inputs")

// maxExactTotal bounds the grand total accepted by FisherExact2x2. Beyond
// it the hypergeometric support is wide enough that exact summation is not
// worth the cost over a Monte Carlo estimate.
const maxExactTotal = 1_000_000

// twoSidedSlack absorbs floating error when collecting support points whose
// probability does not exceed the observed one.
const twoSidedSlack = 1e-7

// FisherResult holds the outcome of an exact Fisher test
type FisherResult struct {
	OddsRatio float64
	PValue    float64
}

// FisherExact2x2 computes the exact Fisher test p-value for the 2x2 table
// [[a b] [c d]] under the hypergeometric null with all margins fixed.
//
// The hypergeometric probabilities are evaluated in log space, so large
// counts do not overflow; inputs are rejected with ErrInfeasible only when
// the total exceeds maxExactTotal or a margin is zero (degenerate support).
// The two-sided p-value sums every support point whose probability does not
// exceed that of the observed table.
func FisherExact2x2(a, b, c, d int, alt contingency.Alternative) (FisherResult, error) {
	if !alt.Valid() {
		return FisherResult{}, fmt.Errorf("%w: got %q", contingency.ErrInvalidAlternative, string(alt))
	}
	if a < 0 || b < 0 || c < 0 || d < 0 {
		return FisherResult{}, fmt.Errorf("%w: counts must be non-negative", contingency.ErrNegativeEntry)
	}

	r1 := a + b
	r2 := c + d
	c1 := a + c
	n := r1 + r2

	if n > maxExactTotal {
		return FisherResult{}, fmt.Errorf("%w: total %d exceeds %d", ErrInfeasible, n, maxExactTotal)
	}
	if r1 == 0 || r2 == 0 || c1 == 0 || c1 == n {
		return FisherResult{}, fmt.Errorf("%w: a zero margin leaves a single possible table", ErrInfeasible)
	}

	// Support of the upper-left cell given the margins
	lo := 0
	if c1-r2 > lo {
		lo = c1 - r2
	}
	hi := r1
	if c1 < hi {
		hi = c1
	}

	logP := func(x int) float64 {
		return logChoose(r1, x) + logChoose(r2, c1-x) - logChoose(n, c1)
	}
	observed := logP(a)

	p := 0.0
	switch alt {
	case contingency.Greater:
		for x := a; x <= hi; x++ {
			p += math.Exp(logP(x))
		}
	case contingency.Less:
		for x := lo; x <= a; x++ {
			p += math.Exp(logP(x))
		}
	default:
		cutoff := observed + math.Log(1+twoSidedSlack)
		for x := lo; x <= hi; x++ {
			if lp := logP(x); lp <= cutoff {
				p += math.Exp(lp)
			}
		}
	}
	if p > 1 {
		p = 1
	}

	or := float64(a) * float64(d) / (float64(b) * float64(c))
	return FisherResult{OddsRatio: or, PValue: p}, nil
}

// logChoose returns log(n choose k) via log-gamma
func logChoose(n, k int) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	ln, _ := math.Lgamma(float64(n + 1))
	lk, _ := math.Lgamma(float64(k + 1))
	lnk, _ := math.Lgamma(float64(n - k + 1))
	return ln - lk - lnk
}
