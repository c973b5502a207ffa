package regression

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Point is an (x, y) pair of a diagnostic plot.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Diagnostics holds the residual analysis of a fitted model.
// It only prepares data; drawing the charts is left to the caller.
type Diagnostics struct {
	ResidualsVsFitted []Point `json:"residualsVsFitted"` // 予測値に対する残差
	ObservedVsFitted  []Point `json:"observedVsFitted"`  // 予測値に対する観測値
	NormalQQ          []Point `json:"normalQQ"`          // 理論分位点に対する標準化残差
	DurbinWatson      float64 `json:"durbinWatson"`
	Skewness          float64 `json:"skewness"`
	ExcessKurtosis    float64 `json:"excessKurtosis"`
	JarqueBera        float64 `json:"jarqueBera"`
	JarqueBeraProb    float64 `json:"jarqueBeraProb"`
}

// Diagnostics computes residual diagnostics of the model.
func (r *Result) Diagnostics() *Diagnostics {
	n := len(r.Residuals)
	d := &Diagnostics{
		ResidualsVsFitted: make([]Point, n),
		ObservedVsFitted:  make([]Point, n),
		NormalQQ:          make([]Point, n),
	}
	for i := range r.Residuals {
		d.ResidualsVsFitted[i] = Point{X: r.Fitted[i], Y: r.Residuals[i]}
		d.ObservedVsFitted[i] = Point{X: r.Fitted[i], Y: r.Observed[i]}
	}

	// 標準化残差を昇順に並べ、正規分布の分位点と対応させる
	residualMean, residualStd := stat.MeanStdDev(r.Residuals, nil)
	standardized := make([]float64, n)
	for i, e := range r.Residuals {
		standardized[i] = (e - residualMean) / residualStd
	}
	sort.Float64s(standardized)
	for i, z := range standardized {
		d.NormalQQ[i] = Point{X: distuv.UnitNormal.Quantile((float64(i) + 0.5) / float64(n)), Y: z}
	}

	var num, den float64
	for i, e := range r.Residuals {
		den += e * e
		if i > 0 {
			diff := e - r.Residuals[i-1]
			num += diff * diff
		}
	}
	d.DurbinWatson = num / den

	d.Skewness = stat.Skew(r.Residuals, nil)
	d.ExcessKurtosis = stat.ExKurtosis(r.Residuals, nil)
	d.JarqueBera = float64(n) / 6 * (d.Skewness*d.Skewness + d.ExcessKurtosis*d.ExcessKurtosis/4)
	d.JarqueBeraProb = math.NaN()
	if !math.IsNaN(d.JarqueBera) && !math.IsInf(d.JarqueBera, 0) {
		d.JarqueBeraProb = distuv.ChiSquared{K: 2}.Survival(d.JarqueBera)
	}
	return d
}
