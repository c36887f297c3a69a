package montecarlo

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/aristath/sentinel-analytics/pkg/formulas"
)

// Scenario is a hypothetical market regime given as annual return and volatility
type Scenario struct {
	Name        string  `json:"name"`
	MeanReturn  float64 `json:"mean_return"`
	Volatility  float64 `json:"volatility"`
	HorizonDays int     `json:"horizon_days"`
	NumPaths    int     `json:"num_paths"`
}

// ScenarioResult is the simulated outcome of one scenario.
// Volatility is the dispersion of final values, VaR5 the 5th percentile of
// final values less 1.
type ScenarioResult struct {
	Name              string      `json:"name"`
	MeanReturn        float64     `json:"mean_return"`
	Volatility        float64     `json:"volatility"`
	VaR5              float64     `json:"var_5"`
	ProbabilityOfLoss float64     `json:"probability_of_loss"`
	Percentiles       Percentiles `json:"percentiles"`
}

// DefaultScenarios returns the standard bull, base, bear and crash regimes
func DefaultScenarios(horizonDays, numPaths int) []Scenario {
	return []Scenario{
		{Name: "bull", MeanReturn: 0.15, Volatility: 0.12, HorizonDays: horizonDays, NumPaths: numPaths},
		{Name: "base", MeanReturn: 0.08, Volatility: 0.15, HorizonDays: horizonDays, NumPaths: numPaths},
		{Name: "bear", MeanReturn: -0.05, Volatility: 0.20, HorizonDays: horizonDays, NumPaths: numPaths},
		{Name: "crash", MeanReturn: -0.30, Volatility: 0.35, HorizonDays: horizonDays, NumPaths: numPaths},
	}
}

// Scenarios simulates each scenario with i.i.d. normal daily returns of mean
// MeanReturn/252 and deviation Volatility/sqrt(252). Scenarios run in
// parallel; with a seed, scenario i uses seed+i and results are reproducible.
// Results keep the input order.
func (s *Simulator) Scenarios(ctx context.Context, scenarios []Scenario, seed *uint64) ([]ScenarioResult, error) {
	for _, sc := range scenarios {
		if sc.HorizonDays <= 0 || sc.NumPaths <= 0 || sc.Volatility < 0 {
			return nil, fmt.Errorf("%w: scenario %q", ErrInvalidConfig, sc.Name)
		}
		if !s.WithinBudget(sc.NumPaths, sc.HorizonDays) {
			return nil, fmt.Errorf("%w: scenario %q exceeds %d draws", ErrInvalidConfig, sc.Name, s.maxDraws)
		}
	}

	_, base := newSource(seed)
	results := make([]ScenarioResult, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, sc := range scenarios {
		i, sc := i, sc
		scenarioSeed := base + uint64(i)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = runScenario(sc, scenarioSeed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to run scenarios: %w", err)
	}

	s.log.Debug().Int("scenarios", len(scenarios)).Uint64("seed", base).Msg("Scenario analysis complete")
	return results, nil
}

func runScenario(sc Scenario, seed uint64) ScenarioResult {
	src, _ := newSource(&seed)
	daily := distuv.Normal{
		Mu:    sc.MeanReturn / formulas.TradingDaysPerYear,
		Sigma: sc.Volatility / math.Sqrt(formulas.TradingDaysPerYear),
		Src:   src,
	}

	finals := make([]float64, sc.NumPaths)
	losses := 0
	for p := range finals {
		value := 1.0
		for d := 0; d < sc.HorizonDays; d++ {
			value *= 1 + daily.Rand()
		}
		finals[p] = value
		if value < 1 {
			losses++
		}
	}

	pct := percentiles(finals)
	return ScenarioResult{
		Name:              sc.Name,
		MeanReturn:        stat.Mean(finals, nil) - 1,
		Volatility:        stat.PopStdDev(finals, nil),
		VaR5:              pct.P5 - 1,
		ProbabilityOfLoss: float64(losses) / float64(len(finals)),
		Percentiles:       pct,
	}
}
