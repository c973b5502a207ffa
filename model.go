package regression

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Interval is a closed confidence interval.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether v lies within the interval.
func (i Interval) Contains(v float64) bool {
	return i.Lower <= v && v <= i.Upper
}

// Width returns Upper - Lower.
func (i Interval) Width() float64 {
	return i.Upper - i.Lower
}

// ANOVA : 分散分析の結果
type ANOVA struct {
	RegressionSumOfSquares    float64 `json:"regressionSumOfSquares"`    // 回帰の平方和
	RegressionDegreeOfFreedom int     `json:"regressionDegreeOfFreedom"` // 回帰の自由度
	RegressionMeanOfSquares   float64 `json:"regressionMeanOfSquares"`   // 回帰の平均平方
	RegressionFstat           float64 `json:"regressionFstat"`           // 回帰のF値
	RegressionProb            float64 `json:"regressionProb"`            // 回帰の有意確率
	ResidualSumOfSquares      float64 `json:"residualSumOfSquares"`      // 残差の平方和
	ResidualDegreeOfFreedom   int     `json:"residualDegreeOfFreedom"`   // 残差の自由度
	ResidualMeanOfSquares     float64 `json:"residualMeanOfSquares"`     // 残差の平均平方
	TotalSumOfSquares         float64 `json:"totalSumOfSquares"`         // 合計の平方和
	TotalDegreeOfFreedom      int     `json:"totalDegreeOfFreedom"`      // 合計の自由度
}

func newANOVA(ssr, sse, tss float64, numOfFeatures, df, numOfObservations int) *ANOVA {
	regressionMeanOfSquares := ssr / float64(numOfFeatures)
	residualMeanOfSquares := sse / float64(df)
	fstat := regressionMeanOfSquares / residualMeanOfSquares

	// F分布は自由度が正のときのみ定義される
	prob := math.NaN()
	if numOfFeatures > 0 && df > 0 && !math.IsNaN(fstat) {
		prob = distuv.F{D1: float64(numOfFeatures), D2: float64(df)}.Survival(fstat)
	}
	return &ANOVA{
		RegressionSumOfSquares:    ssr,
		RegressionDegreeOfFreedom: numOfFeatures,
		RegressionMeanOfSquares:   regressionMeanOfSquares,
		RegressionFstat:           fstat,
		RegressionProb:            prob,
		ResidualSumOfSquares:      sse,
		ResidualDegreeOfFreedom:   df,
		ResidualMeanOfSquares:     residualMeanOfSquares,
		TotalSumOfSquares:         tss,
		TotalDegreeOfFreedom:      numOfObservations - 1,
	}
}

// Result is the outcome of a single OLS estimation. It is not modified after RunOLS returns.
//
// Every map is keyed by InterceptLabel and the post-transform feature names,
// VIF and Elasticities by feature names only. Labels gives their order.
type Result struct {
	Labels              []string            // "intercept" と各説明変数の名称（列順）
	FeatureNames        []string            // 各説明変数の名称（列順）
	Coefficients        map[string]float64  // 偏回帰係数
	StandardErrors      map[string]float64  // 偏回帰係数の標準誤差
	TStats              map[string]float64  // t値
	PValues             map[string]float64  // 有意確率（p値）
	ConfidenceIntervals map[string]Interval // 信頼区間
	ConfidenceLevel     float64             // 信頼区間の水準
	RSquared            float64             // 決定係数
	RSquaredAdjusted    float64             // 自由度調整済み決定係数
	MAE                 float64             // 平均絶対誤差
	RMSE                float64             // 二乗平均平方根誤差
	Residuals           []float64           // 残差
	Fitted              []float64           // 予測値
	Observed            []float64           // 変換後の目的変数の観測値
	VIF                 map[string]float64  // 共線性の統計量 VIF
	Elasticities        map[string]float64  // 弾力性
	ANOVA               *ANOVA              // 分散分析
	NumOfObservations   int                 // 分析に用いた観測値の数
	NumOfFeatures       int                 // 分析に用いた説明変数の数
	DegreesOfFreedom    int                 // 残差の自由度
	MeanOfTarget        float64             // 変換後の目的変数の平均
	MeansOfFeatures     map[string]float64  // 変換後の各説明変数の平均
	LogTarget           bool                // 目的変数を対数変換したか
	Transforms          TransformConfig     // 適用した変換
	Categories          map[string][]string // ダミー変数化したフィールドのカテゴリ（先頭が基準）
	TargetLabel         string              // 目的変数の名称

	unscaledCovariance *Matrix // (XᵗX)⁻¹
	mse                float64
	logFloor           float64
}

// Coefficient returns the coefficient of the named column.
func (r *Result) Coefficient(label string) (float64, bool) {
	c, ok := r.Coefficients[label]
	return c, ok
}

// CoefficientVector returns coefficients in column order, intercept first.
func (r *Result) CoefficientVector() []float64 {
	v := make([]float64, len(r.Labels))
	for i, l := range r.Labels {
		v[i] = r.Coefficients[l]
	}
	return v
}

// HasFiniteFit reports whether the fit metrics are all finite numbers.
func (r *Result) HasFiniteFit() bool {
	for _, v := range []float64{r.RSquared, r.RSquaredAdjusted, r.MAE, r.RMSE} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func formatFloatForFormula(f float64) string {
	if f < 0 {
		return fmt.Sprintf(" - %.4f", -f)
	}
	return fmt.Sprintf(" + %.4f", f)
}

// FormulaString : 回帰モデル式を文字列で取得する
func (r *Result) FormulaString() string {
	label := r.TargetLabel
	if label == "" {
		label = "Y"
	}
	if r.LogTarget {
		label = "ln(" + label + ")"
	}
	formulaStrs := make([]string, len(r.FeatureNames)*2)
	for i, name := range r.FeatureNames {
		formulaStrs[i*2] = formatFloatForFormula(r.Coefficients[name])
		formulaStrs[i*2+1] = "*" + name
	}
	intercept := fmt.Sprintf(" %.4f", r.Coefficients[InterceptLabel])
	return label + " =" + intercept + strings.Join(formulaStrs, "")
}

// Prediction is the estimated mean response for a single observation.
type Prediction struct {
	Estimate      float64  // モデルの尺度での推定値
	StandardError float64  // 推定値の標準誤差
	Interval      Interval // モデルの尺度での信頼区間
	Value         float64  // 目的変数の元の尺度での推定値
	ValueInterval Interval // 元の尺度での信頼区間
}

// Predict calculates the mean response for values keyed by post-transform feature name.
// When the target was logged, Value and ValueInterval are back-transformed with exp.
func (r *Result) Predict(values map[string]float64) (*Prediction, error) {
	x0 := make([]float64, len(r.Labels))
	x0[0] = 1
	for i, name := range r.FeatureNames {
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("missing value for feature %q: %w", name, ErrInvalidArgument)
		}
		x0[i+1] = v
	}

	coeffs := r.CoefficientVector()
	estimate, err := calcPredictedVal(x0[1:], coeffs[1:], coeffs[0])
	if err != nil {
		return nil, err
	}

	// x₀ᵀ (XᵗX)⁻¹ x₀
	var quad float64
	for i := range x0 {
		for j := range x0 {
			quad += x0[i] * r.unscaledCovariance.At(i, j) * x0[j]
		}
	}
	se := math.Sqrt(quad * r.mse)
	crit := criticalT(r.ConfidenceLevel, float64(r.DegreesOfFreedom))

	p := &Prediction{
		Estimate:      estimate,
		StandardError: se,
		Interval:      Interval{Lower: estimate - crit*se, Upper: estimate + crit*se},
	}
	p.Value, p.ValueInterval = p.Estimate, p.Interval
	if r.LogTarget {
		p.Value = math.Exp(p.Estimate)
		p.ValueInterval = Interval{Lower: math.Exp(p.Interval.Lower), Upper: math.Exp(p.Interval.Upper)}
	}
	return p, nil
}

// PredictRaw applies the fitted transforms to a raw observation and predicts it.
// Numeric inputs are keyed by original feature name; dummy fields are read from obs.
func (r *Result) PredictRaw(features map[string]float64, obs Observation) (*Prediction, error) {
	logged := make(map[string]struct{}, len(r.Transforms.LogFeatures))
	for _, name := range r.Transforms.LogFeatures {
		logged[name] = struct{}{}
	}

	values := make(map[string]float64, len(r.FeatureNames))
	for name, v := range features {
		if _, ok := logged[name]; ok {
			v = math.Log(math.Max(v, r.logFloor))
		}
		values[name] = v
	}

	for _, field := range r.Transforms.DummyFeatures {
		raw, ok := obs[field]
		if !ok {
			return nil, fmt.Errorf("missing category for %q: %w", field, ErrInvalidArgument)
		}
		label := categoryOf(raw).label
		known := false
		for _, c := range r.Categories[field] {
			if c == label {
				known = true
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown category %q for %q: %w", label, field, ErrInvalidArgument)
		}
		for _, c := range r.Categories[field][1:] {
			values[field+"_"+c] = 0
		}
		if label != r.Categories[field][0] {
			values[field+"_"+label] = 1
		}
	}
	return r.Predict(values)
}
