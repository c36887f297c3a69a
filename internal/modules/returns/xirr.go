package returns

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrNoConvergence is returned when no stage of the XIRR solver finds a rate
var ErrNoConvergence = errors.New("xirr did not converge")

// Method names the solver stage that produced an XIRR
type Method string

const (
	MethodNewton        Method = "newton"
	MethodBrent         Method = "brent"
	MethodApproximation Method = "approximation"
	MethodDegenerate    Method = "degenerate"
)

const (
	newtonGuess      = 0.1
	newtonIterations = 100
	newtonTolerance  = 1e-10

	bracketLow      = -0.99
	bracketHigh     = 10.0
	brentIterations = 100
	brentTolerance  = 1e-12
	machineEpsilon  = 2.220446049250313e-16
)

// XIRRResult is an annualized money-weighted return and how it was solved
type XIRRResult struct {
	Rate   float64 `json:"rate"`
	Method Method  `json:"method"`
}

// XIRR solves for the annual rate that zeroes the net present value of flows
// plus a terminal inflow of currentValue at valuationDate (added only when
// currentValue is positive).
//
// Newton-Raphson from 0.1 is tried first, then Brent's method on [-0.99, 10],
// then the single-period approximation
//
//	((currentValue + totalInvested) / |totalInvested|) ^ (1/years) - 1
//
// where totalInvested is the (negative) sum of outflows. Fewer than two flows
// give a rate of 0. ErrNoConvergence is returned only when every stage fails.
func XIRR(flows []CashFlow, currentValue float64, valuationDate time.Time) (XIRRResult, error) {
	all := make([]CashFlow, 0, len(flows)+1)
	all = append(all, flows...)
	if currentValue > 0 {
		all = append(all, CashFlow{Amount: currentValue, Date: valuationDate})
	}
	if len(all) < 2 {
		return XIRRResult{Method: MethodDegenerate}, nil
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Date.Before(all[j].Date) })
	start := all[0].Date

	amounts := make([]float64, len(all))
	years := make([]float64, len(all))
	for i, f := range all {
		amounts[i] = f.Amount
		years[i] = yearsBetween(start, f.Date)
	}
	npv := func(r float64) float64 {
		total := 0.0
		for i, cf := range amounts {
			total += cf / math.Pow(1+r, years[i])
		}
		return total
	}
	dnpv := func(r float64) float64 {
		total := 0.0
		for i, cf := range amounts {
			total -= years[i] * cf / math.Pow(1+r, years[i]+1)
		}
		return total
	}

	if rate, err := newton(npv, dnpv, newtonGuess); err == nil {
		return XIRRResult{Rate: rate, Method: MethodNewton}, nil
	}
	if rate, err := brent(npv, bracketLow, bracketHigh); err == nil {
		return XIRRResult{Rate: rate, Method: MethodBrent}, nil
	}

	invested := 0.0
	for _, f := range flows {
		if f.Amount < 0 {
			invested += f.Amount
		}
	}
	rate, err := approximateRate(currentValue, invested, yearsBetween(start, valuationDate))
	if err != nil {
		return XIRRResult{}, err
	}
	return XIRRResult{Rate: rate, Method: MethodApproximation}, nil
}

func approximateRate(currentValue, invested, years float64) (float64, error) {
	if invested >= 0 || years <= 0 {
		return 0, nil
	}
	base := (currentValue + invested) / math.Abs(invested)
	if base < 0 {
		return 0, fmt.Errorf("%w: approximation base %.4f is negative", ErrNoConvergence, base)
	}
	rate := math.Pow(base, 1/years) - 1
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, fmt.Errorf("%w: approximation is not finite", ErrNoConvergence)
	}
	return rate, nil
}

func newton(f, df func(float64) float64, guess float64) (float64, error) {
	r := guess
	for i := 0; i < newtonIterations; i++ {
		fx, dfx := f(r), df(r)
		if dfx == 0 || math.IsNaN(fx) || math.IsNaN(dfx) {
			return 0, fmt.Errorf("%w: newton derivative vanished at %g", ErrNoConvergence, r)
		}
		next := r - fx/dfx
		if math.IsNaN(next) || math.IsInf(next, 0) || next <= -1 {
			return 0, fmt.Errorf("%w: newton left the domain at iteration %d", ErrNoConvergence, i)
		}
		if math.Abs(next-r) < newtonTolerance {
			return next, nil
		}
		r = next
	}
	return 0, fmt.Errorf("%w: newton exceeded %d iterations", ErrNoConvergence, newtonIterations)
}

// brent finds a root of f in [a, b] with Brent's method (inverse quadratic
// interpolation, secant and bisection steps). f(a) and f(b) must differ in sign.
func brent(f func(float64) float64, a, b float64) (float64, error) {
	fa, fb := f(a), f(b)
	if math.IsNaN(fa) || math.IsNaN(fb) {
		return 0, fmt.Errorf("%w: brent bracket is not finite", ErrNoConvergence)
	}
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if (fa > 0) == (fb > 0) {
		return 0, fmt.Errorf("%w: no sign change on [%g, %g]", ErrNoConvergence, a, b)
	}

	c, fc := a, fa
	d := b - a
	e := d
	for i := 0; i < brentIterations; i++ {
		if (fb > 0) == (fc > 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}

		tol := 2*machineEpsilon*math.Abs(b) + 0.5*brentTolerance
		m := 0.5 * (c - b)
		if math.Abs(m) <= tol || fb == 0 {
			return b, nil
		}

		if math.Abs(e) >= tol && math.Abs(fa) > math.Abs(fb) {
			var p, q float64
			s := fb / fa
			if a == c {
				p = 2 * m * s
				q = 1 - s
			} else {
				qa := fa / fc
				r := fb / fc
				p = s * (2*m*qa*(qa-r) - (b-a)*(r-1))
				q = (qa - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			} else {
				p = -p
			}
			if 2*p < math.Min(3*m*q-math.Abs(tol*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = m
				e = m
			}
		} else {
			d = m
			e = m
		}

		a, fa = b, fb
		if math.Abs(d) > tol {
			b += d
		} else if m > 0 {
			b += tol
		} else {
			b -= tol
		}
		fb = f(b)
	}
	return 0, fmt.Errorf("%w: brent exceeded %d iterations", ErrNoConvergence, brentIterations)
}
