package regression

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrShapeMismatch signals that vectors or matrices do not have compatible dimensions.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrSingularMatrix signals that a matrix is singular or too ill-conditioned to be inverted.
	ErrSingularMatrix = errors.New("matrix is singular or near-singular")
	// ErrDegenerateData signals that the data leaves no room for inference,
	// e.g. a constant target or no residual degrees of freedom.
	ErrDegenerateData = errors.New("degenerate data")
	// ErrInvalidArgument signals that any of given arguments to call the function was invalid.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ConditionError reports a failed inversion of XᵗX together with hints about
// which features are likely responsible.
type ConditionError struct {
	err       error
	Condition float64 // XᵗX の条件数（2-ノルム）
	Hint      *ConditionErrorHint
}

func (e ConditionError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e ConditionError) Unwrap() error {
	return e.err
}

func wrapAsConditionError(err error, condition float64, hint *ConditionErrorHint) *ConditionError {
	return &ConditionError{
		err:       err,
		Condition: condition,
		Hint:      hint,
	}
}

// ConditionErrorHint lists every feature of the failed design matrix.
type ConditionErrorHint struct {
	Features []FeatureHint
}

// Suspects returns the labels of features with zero variance or a VIF above the given limit.
func (h *ConditionErrorHint) Suspects(vifLimit float64) []string {
	if h == nil {
		return nil
	}
	var labels []string
	for _, f := range h.Features {
		if f.ZeroVariance || !(f.VIF <= vifLimit) {
			labels = append(labels, f.Label)
		}
	}
	return labels
}

func (h *ConditionErrorHint) String() string {
	if h == nil {
		return ""
	}
	parts := make([]string, len(h.Features))
	for i, f := range h.Features {
		parts[i] = fmt.Sprintf("%s(vif=%.4g)", f.Label, f.VIF)
	}
	return strings.Join(parts, ", ")
}

// FeatureHint describes a single column of a design matrix that could not be inverted.
type FeatureHint struct {
	Index        int     // デザイン行列における列番号（定数項を除く）
	Label        string  // 名称
	Mean         float64 // 観測値の平均
	ZeroVariance bool    // 全ての観測値が同じ値か
	VIF          float64 // 共線性の統計量 VIF
}

func newFeatureHints(features []Feature) *ConditionErrorHint {
	o := defaultOptions()
	o.permissive = true
	vifs := calcVIFs(features, o)
	hints := make([]FeatureHint, len(features))
	for i, f := range features {
		hints[i] = FeatureHint{
			Index:        i,
			Label:        f.Name,
			Mean:         mean(f.Values),
			ZeroVariance: isConstant(f.Values),
			VIF:          vifs[f.Name],
		}
	}
	return &ConditionErrorHint{Features: hints}
}
