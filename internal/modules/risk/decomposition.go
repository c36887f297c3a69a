package risk

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/sentinel-analytics/pkg/formulas"
)

// CorrelationMatrix computes pairwise Pearson correlations of the asset
// returns in s. The diagonal is exactly 1 and the matrix symmetric.
func (e *Engine) CorrelationMatrix(s Series) CorrelationMatrix {
	n := len(s.Symbols)
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
		values[i][i] = 1
	}

	columns := assetColumns(s)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := formulas.Correlation(columns[i], columns[j])
			values[i][j] = c
			values[j][i] = c
		}
	}
	return CorrelationMatrix{Symbols: s.Symbols, Values: values}
}

// Decompose attributes portfolio volatility to holdings.
//
//	σp   = sqrt(wᵀ Σ w)            with Σ the annualized covariance
//	MCi  = (Σ w)_i / σp
//	RCi  = w_i · MCi / σp          normalized to sum to 1
//
// With zero portfolio volatility the contributions fall back to the weights.
func (e *Engine) Decompose(s Series) Decomposition {
	n := len(s.Symbols)
	d := Decomposition{Assets: make([]AssetRisk, n)}
	if n == 0 {
		return d
	}

	columns := assetColumns(s)
	w := mat.NewVecDense(n, nil)
	for i, sym := range s.Symbols {
		w.SetVec(i, s.Weights[sym])
		d.Assets[i] = AssetRisk{
			Symbol:     sym,
			Weight:     s.Weights[sym],
			Volatility: formulas.AnnualizedVolatility(columns[i]),
		}
	}

	if len(s.Assets) >= 2 {
		cov := covariance(s.Assets, n)
		cov.ScaleSym(formulas.TradingDaysPerYear, cov)

		var sw mat.VecDense
		sw.MulVec(cov, w)
		variance := mat.Dot(w, &sw)
		if variance > 0 {
			d.PortfolioVolatility = math.Sqrt(variance)
			for i := range d.Assets {
				d.Assets[i].MarginalContribution = sw.AtVec(i) / d.PortfolioVolatility
				d.Assets[i].RiskContribution = d.Assets[i].Weight * d.Assets[i].MarginalContribution / d.PortfolioVolatility
			}
		}
	}

	total := 0.0
	for _, a := range d.Assets {
		total += a.RiskContribution
	}
	for i := range d.Assets {
		switch {
		case d.PortfolioVolatility == 0:
			d.Assets[i].RiskContribution = d.Assets[i].Weight
		case total > 0:
			d.Assets[i].RiskContribution /= total
		default:
			d.Assets[i].RiskContribution = 1 / float64(n)
		}
	}

	if n > 1 {
		corr := e.CorrelationMatrix(s)
		sum, pairs := 0.0, 0
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				sum += corr.Values[i][j]
				pairs++
			}
		}
		d.AverageCorrelation = sum / float64(pairs)
	}

	if d.PortfolioVolatility > 0 {
		weighted := 0.0
		for _, a := range d.Assets {
			weighted += a.Weight * a.Volatility
		}
		d.DiversificationRatio = weighted / d.PortfolioVolatility
	}
	return d
}

// covariance estimates the sample covariance of rows (observations × n)
func covariance(rows [][]float64, n int) *mat.SymDense {
	data := mat.NewDense(len(rows), n, nil)
	for i, row := range rows {
		data.SetRow(i, row)
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)
	return &cov
}

func assetColumns(s Series) [][]float64 {
	columns := make([][]float64, len(s.Symbols))
	for j := range columns {
		columns[j] = make([]float64, len(s.Assets))
		for i, row := range s.Assets {
			columns[j][i] = row[j]
		}
	}
	return columns
}
