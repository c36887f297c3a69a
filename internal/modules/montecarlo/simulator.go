// Package montecarlo simulates forward portfolio value distributions from
// historical return statistics.
package montecarlo

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/aristath/sentinel-analytics/pkg/formulas"
)

var (
	// ErrNoAssets is returned when there is nothing to simulate
	ErrNoAssets = errors.New("no assets to simulate")
	// ErrInsufficientHistory is returned when there are fewer observations than
	// assets, which leaves the covariance matrix rank-deficient
	ErrInsufficientHistory = errors.New("insufficient history for covariance estimation")
	// ErrInvalidConfig is returned for non-positive horizons or path counts,
	// or when paths × horizon exceeds the simulator's draw budget
	ErrInvalidConfig = errors.New("invalid simulation config")
)

// DefaultMaxDraws bounds paths × horizon days for one simulation. Each draw
// keeps one float64 for the return distribution, plus one more per draw when
// paths are included.
const DefaultMaxDraws = 10_000_000

// Config controls one simulation run
type Config struct {
	HorizonDays  int     `json:"horizon_days"`
	NumPaths     int     `json:"num_paths"`
	Seed         *uint64 `json:"seed,omitempty"` // nil draws a fresh seed
	IncludePaths bool    `json:"include_paths"`
}

// Percentiles of the final value distribution
type Percentiles struct {
	P5  float64 `json:"5th"`
	P25 float64 `json:"25th"`
	P50 float64 `json:"50th"`
	P75 float64 `json:"75th"`
	P95 float64 `json:"95th"`
}

// Result summarizes a simulation. Final values are growth multiples of a
// starting value of 1.
type Result struct {
	Symbols           []string    `json:"symbols,omitempty"`
	Weights           []float64   `json:"weights"`
	HorizonDays       int         `json:"horizon_days"`
	NumPaths          int         `json:"num_paths"`
	Seed              uint64      `json:"seed"`
	MeanFinalValue    float64     `json:"mean_final_value"`
	StdFinalValue     float64     `json:"std_final_value"`
	Percentiles       Percentiles `json:"percentiles"`
	ProbabilityOfLoss float64     `json:"probability_of_loss"`
	ExpectedReturn    float64     `json:"expected_return"`
	Volatility        float64     `json:"volatility"`
	Skewness          float64     `json:"skewness"`
	Kurtosis          float64     `json:"kurtosis"`
	VaR5              float64     `json:"var_5"`
	SharpeRatio       float64     `json:"sharpe_ratio"`
	MaxDrawdown       float64     `json:"max_drawdown"`
	Paths             [][]float64 `json:"paths,omitempty"`
}

// Simulator runs Monte Carlo simulations. Each call owns its random source,
// so a Simulator is safe for concurrent use.
type Simulator struct {
	riskFreeRate float64
	maxDraws     int
	log          zerolog.Logger
}

// NewSimulator creates a simulator using riskFreeRate for the Sharpe ratio.
// maxDraws bounds paths × horizon days per run; maxDraws <= 0 uses
// DefaultMaxDraws.
func NewSimulator(riskFreeRate float64, maxDraws int, log zerolog.Logger) *Simulator {
	if maxDraws <= 0 {
		maxDraws = DefaultMaxDraws
	}
	return &Simulator{
		riskFreeRate: riskFreeRate,
		maxDraws:     maxDraws,
		log:          log.With().Str("component", "montecarlo").Logger(),
	}
}

// MaxDraws is the largest paths × horizon days one run may request
func (s *Simulator) MaxDraws() int {
	return s.maxDraws
}

// WithinBudget reports whether paths × horizonDays fits the draw budget.
// Both must be positive.
func (s *Simulator) WithinBudget(paths, horizonDays int) bool {
	return paths > 0 && horizonDays > 0 && paths <= s.maxDraws/horizonDays
}

func newSource(seed *uint64) (rand.Source, uint64) {
	s := rand.Uint64()
	if seed != nil {
		s = *seed
	}
	return rand.NewPCG(s, s), s
}

// Simulate draws cfg.NumPaths paths of cfg.HorizonDays daily cross-sectional
// returns from a multivariate normal fitted to returns (observations × assets)
// and compounds the weighted portfolio return along each path.
//
// Weights are normalized to sum to 1; all-zero weights become equal weights.
// Fewer observations than assets is ErrInsufficientHistory.
func (s *Simulator) Simulate(returns [][]float64, weights []float64, cfg Config) (*Result, error) {
	n := len(weights)
	if n == 0 {
		return nil, ErrNoAssets
	}
	if cfg.HorizonDays <= 0 || cfg.NumPaths <= 0 {
		return nil, fmt.Errorf("%w: horizon %d, paths %d", ErrInvalidConfig, cfg.HorizonDays, cfg.NumPaths)
	}
	if !s.WithinBudget(cfg.NumPaths, cfg.HorizonDays) {
		return nil, fmt.Errorf("%w: %d paths × %d days exceeds %d draws", ErrInvalidConfig, cfg.NumPaths, cfg.HorizonDays, s.maxDraws)
	}
	if len(returns) < n || len(returns) < 2 {
		return nil, fmt.Errorf("%w: %d observations for %d assets", ErrInsufficientHistory, len(returns), n)
	}

	data := mat.NewDense(len(returns), n, nil)
	for i, row := range returns {
		if len(row) != n {
			return nil, fmt.Errorf("%w: observation %d has %d columns, want %d", ErrInvalidConfig, i, len(row), n)
		}
		data.SetRow(i, row)
	}

	mu := make([]float64, n)
	for j := 0; j < n; j++ {
		mu[j] = stat.Mean(mat.Col(nil, j, data), nil)
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)

	w := normalizeWeights(weights)
	portfolioMean := floats.Dot(w, mu)
	wv := mat.NewVecDense(n, w)
	portfolioVar := mat.Inner(wv, &cov, wv)

	src, seed := newSource(cfg.Seed)
	dist, err := newNormal(mu, &cov, src)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Weights:        w,
		HorizonDays:    cfg.HorizonDays,
		NumPaths:       cfg.NumPaths,
		Seed:           seed,
		ExpectedReturn: portfolioMean * formulas.TradingDaysPerYear,
		Volatility:     math.Sqrt(math.Max(portfolioVar, 0)) * math.Sqrt(formulas.TradingDaysPerYear),
	}
	if cfg.IncludePaths {
		res.Paths = make([][]float64, cfg.NumPaths)
	}

	finals := make([]float64, cfg.NumPaths)
	flat := make([]float64, 0, cfg.NumPaths*cfg.HorizonDays)
	draw := make([]float64, n)
	for p := 0; p < cfg.NumPaths; p++ {
		var path []float64
		if cfg.IncludePaths {
			path = make([]float64, cfg.HorizonDays)
		}

		value, peak := 1.0, 1.0
		for d := 0; d < cfg.HorizonDays; d++ {
			dist.Rand(draw)
			r := floats.Dot(w, draw)
			flat = append(flat, r)

			value *= 1 + r
			if d == 0 || value > peak {
				peak = value
			}
			if dd := (value - peak) / peak; dd < res.MaxDrawdown {
				res.MaxDrawdown = dd
			}
			if path != nil {
				path[d] = value
			}
		}

		finals[p] = value
		if path != nil {
			res.Paths[p] = path
		}
	}

	summarizeFinals(res, finals)
	res.VaR5 = formulas.HistoricalVaR(flat, 5)
	res.SharpeRatio = formulas.SharpeRatio(flat, s.riskFreeRate)

	s.log.Debug().
		Int("assets", n).
		Int("paths", cfg.NumPaths).
		Int("horizon", cfg.HorizonDays).
		Uint64("seed", seed).
		Float64("median", res.Percentiles.P50).
		Msg("Simulation complete")

	return res, nil
}

// newNormal builds the sampler, adding a small ridge to the diagonal when the
// estimated covariance is only positive semi-definite (e.g. a flat asset)
func newNormal(mu []float64, cov *mat.SymDense, src rand.Source) (*distmv.Normal, error) {
	if dist, ok := distmv.NewNormal(mu, cov, src); ok {
		return dist, nil
	}

	n := len(mu)
	maxDiag := 0.0
	for i := 0; i < n; i++ {
		maxDiag = math.Max(maxDiag, cov.At(i, i))
	}
	ridge := math.Max(maxDiag*1e-8, 1e-16)

	adjusted := mat.NewSymDense(n, nil)
	adjusted.CopySym(cov)
	for i := 0; i < n; i++ {
		adjusted.SetSym(i, i, adjusted.At(i, i)+ridge)
	}
	if dist, ok := distmv.NewNormal(mu, adjusted, src); ok {
		return dist, nil
	}
	return nil, fmt.Errorf("%w: covariance matrix is not positive definite", ErrInsufficientHistory)
}

func normalizeWeights(weights []float64) []float64 {
	w := make([]float64, len(weights))
	total := floats.Sum(weights)
	for i := range w {
		if total == 0 {
			w[i] = 1 / float64(len(weights))
		} else {
			w[i] = weights[i] / total
		}
	}
	return w
}

func summarizeFinals(res *Result, finals []float64) {
	res.MeanFinalValue = stat.Mean(finals, nil)
	res.StdFinalValue = stat.PopStdDev(finals, nil)
	res.Percentiles = percentiles(finals)

	losses := 0
	for _, v := range finals {
		if v < 1 {
			losses++
		}
	}
	res.ProbabilityOfLoss = float64(losses) / float64(len(finals))
	res.Skewness = formulas.Skewness(finals)
	res.Kurtosis = formulas.ExcessKurtosis(finals)
}

func percentiles(values []float64) Percentiles {
	return Percentiles{
		P5:  formulas.Percentile(values, 5),
		P25: formulas.Percentile(values, 25),
		P50: formulas.Percentile(values, 50),
		P75: formulas.Percentile(values, 75),
		P95: formulas.Percentile(values, 95),
	}
}
