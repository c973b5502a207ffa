package regression

import (
	"errors"
	"fmt"
	"math"

	"github.com/obrafacil/regression/logger"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// InterceptLabel is the key of the intercept in every result map.
const InterceptLabel = "intercept"

// RunOLS fits target = Xβ + ε by ordinary least squares after applying cfg to data.
//
// Column order of the design matrix and of the result follows data.Features,
// with dummy variables appended in category order.
func RunOLS(data ModelData, cfg TransformConfig, opts ...Option) (*Result, error) {
	return run(data, cfg, nil, "", opts)
}

func run(data ModelData, cfg TransformConfig, disregarding map[string]struct{}, targetLabel string, opts []Option) (*Result, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	transformed, categories, err := transform(data, cfg, o.logFloor)
	if err != nil {
		return nil, err
	}

	if len(disregarding) > 0 {
		for name := range disregarding {
			if indexOfFeature(transformed.Features, name) < 0 {
				logger.Warn.Printf("Cannot disregard %s: no such feature", name)
			}
		}
		kept := make([]Feature, 0, len(transformed.Features))
		for _, f := range transformed.Features {
			if _, ok := disregarding[f.Name]; ok {
				continue
			}
			kept = append(kept, f)
		}
		transformed.Features = kept
	}

	res, err := estimate(transformed, o, true)
	if err != nil {
		return nil, err
	}
	res.TargetLabel = targetLabel
	res.LogTarget = cfg.LogTarget
	res.Transforms = cfg
	res.logFloor = cfg.floor(o.logFloor)
	res.Categories = categories
	res.Elasticities = calcElasticities(res, transformed.Features, cfg.LogTarget)

	logger.Info.Printf("Completed: Number of features = %d, R2 = %f", res.NumOfFeatures, res.RSquared)
	return res, nil
}

// transform applies cfg and records the categories found for each dummy field.
func transform(data ModelData, cfg TransformConfig, fallbackFloor float64) (ModelData, map[string][]string, error) {
	transformed, err := applyTransforms(data, cfg, fallbackFloor)
	if err != nil {
		return ModelData{}, nil, err
	}
	categories := make(map[string][]string, len(cfg.DummyFeatures))
	for _, field := range cfg.DummyFeatures {
		var seen []string
		index := map[string]struct{}{}
		for _, obs := range data.Observations {
			c := categoryOf(obs[field])
			if _, ok := index[c.key]; ok {
				continue
			}
			index[c.key] = struct{}{}
			seen = append(seen, c.label)
		}
		categories[field] = seen
	}
	return transformed, categories, nil
}

// estimate runs the regression on already transformed data.
// Auxiliary regressions (withVIF == false) skip the collinearity statistics.
func estimate(data ModelData, o *options, withVIF bool) (*Result, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	numOfObservations := len(data.Target)
	numOfFeatures := len(data.Features)
	if numOfObservations == 0 {
		return nil, fmt.Errorf("no observations: %w", ErrShapeMismatch)
	}
	colLen := numOfFeatures + 1 // +1: 定数項

	// 残差の自由度
	df := numOfObservations - colLen
	if df <= 0 && !o.permissive {
		return nil, fmt.Errorf("%d observations cannot support %d coefficients: %w", numOfObservations, colLen, ErrDegenerateData)
	}

	// デザイン行列: 0列目が定数項
	designDense := mat.NewDense(numOfObservations, colLen, nil)
	for i := 0; i < numOfObservations; i++ {
		designDense.Set(i, 0, 1)
	}
	for j, f := range data.Features {
		designDense.SetCol(j+1, f.Values)
	}
	design := newMatrixFromDense(designDense)
	targetVec := newMatrixFromDense(mat.NewDense(numOfObservations, 1, append([]float64(nil), data.Target...)))

	designT := design.Transpose()
	xtx, err := designT.Multiply(design)
	if err != nil {
		return nil, err
	}
	xtxInv, err := xtx.inverse(o.singularTolerance, o.permissive)
	if err != nil {
		e := fmt.Errorf("cannot inverse a matrix(XtX): %w", err)
		if errors.Is(err, ErrSingularMatrix) {
			if withVIF {
				logger.Err.Println(e)
				return nil, wrapAsConditionError(e, xtx.Condition(), newFeatureHints(data.Features))
			}
			return nil, wrapAsConditionError(e, xtx.Condition(), nil)
		}
		return nil, e
	}
	coeffs, err := solveCoefficients(designDense, targetVec, designT, xtxInv)
	if err != nil {
		return nil, err
	}

	// 予測値と残差
	fitted := make([]float64, numOfObservations)
	residuals := make([]float64, numOfObservations)
	for i := 0; i < numOfObservations; i++ {
		val, err := calcPredictedVal(designDense.RawRowView(i)[1:], coeffs[1:], coeffs[0])
		if err != nil {
			return nil, err
		}
		fitted[i] = val
		residuals[i] = data.Target[i] - val
	}

	meanOfTarget := stat.Mean(data.Target, nil)

	// 残差変動、全変動、回帰変動
	var sse, tss, ssr, sumAbs float64
	for i, y := range data.Target {
		sse += residuals[i] * residuals[i]
		tss += (y - meanOfTarget) * (y - meanOfTarget)
		ssr += (fitted[i] - meanOfTarget) * (fitted[i] - meanOfTarget)
		sumAbs += math.Abs(residuals[i])
	}
	if tss == 0 && !o.permissive {
		return nil, fmt.Errorf("target is constant: %w", ErrDegenerateData)
	}

	dfF := float64(df)
	r2 := 1 - sse/tss
	adjustedR2 := 1 - (sse/dfF)/(tss/float64(numOfObservations-1))
	mse := sse / dfF

	labels := make([]string, colLen)
	labels[0] = InterceptLabel
	copy(labels[1:], data.FeatureNames())

	// 係数の分散 = diag((XᵗX)⁻¹) × MSE
	diag := xtxInv.Diagonal()
	crit := criticalT(o.confidenceLevel, dfF)
	res := &Result{
		Labels:              labels,
		FeatureNames:        labels[1:],
		Coefficients:        make(map[string]float64, colLen),
		StandardErrors:      make(map[string]float64, colLen),
		TStats:              make(map[string]float64, colLen),
		PValues:             make(map[string]float64, colLen),
		ConfidenceIntervals: make(map[string]Interval, colLen),
		ConfidenceLevel:     o.confidenceLevel,
		RSquared:            r2,
		RSquaredAdjusted:    adjustedR2,
		MAE:                 sumAbs / float64(numOfObservations),
		RMSE:                math.Sqrt(mse),
		Residuals:           residuals,
		Fitted:              fitted,
		Observed:            append([]float64(nil), data.Target...),
		NumOfObservations:   numOfObservations,
		NumOfFeatures:       numOfFeatures,
		DegreesOfFreedom:    df,
		MeanOfTarget:        meanOfTarget,
		MeansOfFeatures:     make(map[string]float64, numOfFeatures),
		ANOVA:               newANOVA(ssr, sse, tss, numOfFeatures, df, numOfObservations),
		unscaledCovariance:  xtxInv,
		mse:                 mse,
	}
	for i, label := range labels {
		se := math.Sqrt(diag[i] * mse)
		t := coeffs[i] / se
		res.Coefficients[label] = coeffs[i]
		res.StandardErrors[label] = se
		res.TStats[label] = t
		res.PValues[label] = twoSidedPValue(t, dfF)
		res.ConfidenceIntervals[label] = Interval{Lower: coeffs[i] - crit*se, Upper: coeffs[i] + crit*se}
	}
	for _, f := range data.Features {
		res.MeansOfFeatures[f.Name] = stat.Mean(f.Values, nil)
	}

	if withVIF {
		res.VIF = calcVIFs(data.Features, o)
	}
	return res, nil
}

// solveCoefficients solves min‖Xβ - y‖ by QR factorization of the design matrix.
// (XᵗX)⁻¹Xᵗy is used instead when the design has fewer rows than columns,
// when the inverse is not finite or when QR finds the design singular.
func solveCoefficients(design *mat.Dense, target, designT, xtxInv *Matrix) ([]float64, error) {
	rows, cols := design.Dims()
	coeffs := make([]float64, cols)

	if rows >= cols && xtxInv.isFinite() {
		var qr mat.QR
		qr.Factorize(design)
		var beta mat.Dense
		err := qr.SolveTo(&beta, false, target.d)
		if err == nil {
			for i := range coeffs {
				coeffs[i] = beta.At(i, 0)
			}
			return coeffs, nil
		}
		logger.Debug.Printf("QR solve failed, using the normal equations: %v", err)
	}

	xty, err := designT.Multiply(target)
	if err != nil {
		return nil, err
	}
	betaVec, err := xtxInv.Multiply(xty)
	if err != nil {
		return nil, err
	}
	for i := range coeffs {
		coeffs[i] = betaVec.At(i, 0)
	}
	return coeffs, nil
}

func calcPredictedVal(values []float64, coeffs []float64, intercept float64) (float64, error) {
	if len(values) != len(coeffs) {
		return 0, fmt.Errorf("%d values for %d coefficients: %w", len(values), len(coeffs), ErrShapeMismatch)
	}
	var p float64
	for i, v := range values {
		p += v * coeffs[i]
	}
	return p + intercept, nil
}

// twoSidedPValue returns NaN where the Student-t distribution is undefined.
// gonum panics for non-positive degrees of freedom.
func twoSidedPValue(t, df float64) float64 {
	if !(df > 0) || math.IsNaN(t) {
		return math.NaN()
	}
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Survival(math.Abs(t)) * 2
}

func criticalT(level, df float64) float64 {
	if !(df > 0) {
		return math.NaN()
	}
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Quantile(1 - (1-level)/2)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

func isConstant(values []float64) bool {
	for _, v := range values[min(1, len(values)):] {
		if v != values[0] {
			return false
		}
	}
	return true
}
