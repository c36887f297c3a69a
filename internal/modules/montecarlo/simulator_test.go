package montecarlo

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testingpkg "github.com/aristath/sentinel-analytics/internal/testing"
	"github.com/aristath/sentinel-analytics/pkg/formulas"
)

func newTestSimulator() *Simulator {
	return NewSimulator(formulas.DefaultRiskFreeRate, 0, zerolog.New(nil).Level(zerolog.Disabled))
}

func seed(v uint64) *uint64 {
	return &v
}

// historicalReturns builds an observations × assets matrix from price walks
func historicalReturns(n int) [][]float64 {
	columns := [][]float64{
		formulas.CalculateReturns(testingpkg.PriceWalk(100, n+1, 0.0008, 0.015, 0)),
		formulas.CalculateReturns(testingpkg.PriceWalk(50, n+1, 0.0003, 0.02, 1.7)),
		formulas.CalculateReturns(testingpkg.PriceWalk(20, n+1, 0.0005, 0.01, 2.9)),
	}
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = []float64{columns[0][i], columns[1][i], columns[2][i]}
	}
	return rows
}

func TestSimulate_PercentilesAreOrdered(t *testing.T) {
	s := newTestSimulator()

	res, err := s.Simulate(historicalReturns(120), []float64{0.5, 0.3, 0.2}, Config{HorizonDays: 60, NumPaths: 500, Seed: seed(42)})
	require.NoError(t, err)

	p := res.Percentiles
	assert.LessOrEqual(t, p.P5, p.P25)
	assert.LessOrEqual(t, p.P25, p.P50)
	assert.LessOrEqual(t, p.P50, p.P75)
	assert.LessOrEqual(t, p.P75, p.P95)
	assert.GreaterOrEqual(t, res.ProbabilityOfLoss, 0.0)
	assert.LessOrEqual(t, res.ProbabilityOfLoss, 1.0)
	assert.LessOrEqual(t, res.MaxDrawdown, 0.0)
	assert.Greater(t, res.Volatility, 0.0)
	assert.Greater(t, res.StdFinalValue, 0.0)
	assert.LessOrEqual(t, res.VaR5, 0.0)
	assert.Equal(t, uint64(42), res.Seed)
	assert.Nil(t, res.Paths)
}

func TestSimulate_IsDeterministicWithSeed(t *testing.T) {
	s := newTestSimulator()
	history := historicalReturns(80)
	cfg := Config{HorizonDays: 30, NumPaths: 200, Seed: seed(7)}

	first, err := s.Simulate(history, []float64{1, 1, 1}, cfg)
	require.NoError(t, err)
	second, err := s.Simulate(history, []float64{1, 1, 1}, cfg)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	cfg.Seed = seed(8)
	third, err := s.Simulate(history, []float64{1, 1, 1}, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, first.MeanFinalValue, third.MeanFinalValue)
}

func TestSimulate_ExpectedReturnFromHistory(t *testing.T) {
	s := newTestSimulator()
	history := historicalReturns(100)

	res, err := s.Simulate(history, []float64{0, 0, 0}, Config{HorizonDays: 5, NumPaths: 10, Seed: seed(1), IncludePaths: true})
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, res.Weights, 1e-12)

	portfolio := make([]float64, len(history))
	for i, row := range history {
		portfolio[i] = (row[0] + row[1] + row[2]) / 3
	}
	assert.InDelta(t, formulas.Mean(portfolio)*252, res.ExpectedReturn, 1e-9)
	assert.InDelta(t, formulas.AnnualizedVolatility(portfolio), res.Volatility, 1e-9)

	require.Len(t, res.Paths, 10)
	assert.Len(t, res.Paths[0], 5)
}

func TestSimulate_Errors(t *testing.T) {
	s := newTestSimulator()

	_, err := s.Simulate(historicalReturns(2), []float64{1, 1, 1}, Config{HorizonDays: 10, NumPaths: 10})
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	_, err = s.Simulate(historicalReturns(10), nil, Config{HorizonDays: 10, NumPaths: 10})
	assert.ErrorIs(t, err, ErrNoAssets)

	_, err = s.Simulate(historicalReturns(10), []float64{1, 1, 1}, Config{HorizonDays: 0, NumPaths: 10})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = s.Simulate([][]float64{{0.1, 0.2}, {0.1}}, []float64{1, 1}, Config{HorizonDays: 1, NumPaths: 1})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSimulate_DrawBudget(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	assert.Equal(t, DefaultMaxDraws, NewSimulator(0.02, 0, log).MaxDraws())

	huge := Config{HorizonDays: 2520, NumPaths: 100000, IncludePaths: true}
	_, err := NewSimulator(0.02, 0, log).Simulate(historicalReturns(50), []float64{1, 1, 1}, huge)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	s := NewSimulator(0.02, 1000, log)
	tests := []struct {
		name    string
		paths   int
		horizon int
		wantErr bool
	}{
		{"exactly at budget", 100, 10, false},
		{"one path over", 101, 10, true},
		{"long horizon", 1, 1001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, !tt.wantErr, s.WithinBudget(tt.paths, tt.horizon))

			_, err := s.Simulate(historicalReturns(50), []float64{1, 1, 1}, Config{HorizonDays: tt.horizon, NumPaths: tt.paths, Seed: seed(5)})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err = s.Scenarios(context.Background(), DefaultScenarios(252, 400), seed(1))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSimulate_FlatAssetIsRegularized(t *testing.T) {
	s := newTestSimulator()
	history := historicalReturns(50)
	for _, row := range history {
		row[2] = 0
	}

	res, err := s.Simulate(history, []float64{0.4, 0.4, 0.2}, Config{HorizonDays: 10, NumPaths: 50, Seed: seed(3)})
	require.NoError(t, err)
	assert.Greater(t, res.MeanFinalValue, 0.0)
}

func TestScenarios(t *testing.T) {
	s := newTestSimulator()
	scenarios := DefaultScenarios(252, 400)

	first, err := s.Scenarios(context.Background(), scenarios, seed(11))
	require.NoError(t, err)
	require.Len(t, first, 4)

	second, err := s.Scenarios(context.Background(), scenarios, seed(11))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	byName := map[string]ScenarioResult{}
	for i, r := range first {
		assert.Equal(t, scenarios[i].Name, r.Name)
		assert.LessOrEqual(t, r.Percentiles.P5, r.Percentiles.P95)
		byName[r.Name] = r
	}
	assert.Greater(t, byName["bull"].MeanReturn, byName["crash"].MeanReturn)
	assert.Greater(t, byName["crash"].ProbabilityOfLoss, byName["bull"].ProbabilityOfLoss)

	_, err = s.Scenarios(context.Background(), []Scenario{{Name: "broken", HorizonDays: 0, NumPaths: 1}}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestModelRisk(t *testing.T) {
	returns := formulas.CalculateReturns(testingpkg.PriceWalk(100, 200, 0.0005, 0.02, 0.3))

	m := ModelRisk(returns)
	assert.Equal(t, 199, m.Observations)
	assert.LessOrEqual(t, m.CVaR95, m.VaR95)
	assert.LessOrEqual(t, m.CVaR99, m.VaR99)
	assert.LessOrEqual(t, m.VaR99, m.VaR95)
	assert.LessOrEqual(t, m.MaxDrawdown, 0.0)
	assert.Greater(t, m.Volatility, 0.0)

	assert.Equal(t, RiskModel{Observations: 1}, ModelRisk([]float64{0.01}))
}
