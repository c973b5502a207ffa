package regression

import "fmt"

// DefaultLogFloor is the value below which inputs are clamped before taking a logarithm.
const DefaultLogFloor = 0.01

// DefaultConfidenceLevel is the confidence level of reported coefficient intervals.
const DefaultConfidenceLevel = 0.95

type options struct {
	permissive        bool
	singularTolerance float64
	confidenceLevel   float64
	logFloor          float64
}

func defaultOptions() *options {
	return &options{
		singularTolerance: DefaultSingularTolerance,
		confidenceLevel:   DefaultConfidenceLevel,
	}
}

// Option configures an estimation run.
type Option func(*options) error

// WithPermissive disables the singular-matrix and degenerate-data checks.
// Invalid numeric states are then reported as NaN or ±Inf in the result.
// Shape mismatches are still returned as errors.
func WithPermissive() Option {
	return func(o *options) error {
		o.permissive = true
		return nil
	}
}

// WithSingularTolerance sets the relative pivot magnitude used to detect singular matrices.
func WithSingularTolerance(tol float64) Option {
	return func(o *options) error {
		if !(tol >= 0) {
			return fmt.Errorf("singular tolerance %g: %w", tol, ErrInvalidArgument)
		}
		o.singularTolerance = tol
		return nil
	}
}

// WithConfidenceLevel sets the level of the coefficient confidence intervals, e.g. 0.95.
func WithConfidenceLevel(level float64) Option {
	return func(o *options) error {
		if !(level > 0 && level < 1) {
			return fmt.Errorf("confidence level %g: %w", level, ErrInvalidArgument)
		}
		o.confidenceLevel = level
		return nil
	}
}

// WithLogFloor overrides the clamp floor of log transforms when the
// TransformConfig does not set one.
func WithLogFloor(floor float64) Option {
	return func(o *options) error {
		if !(floor > 0) {
			return fmt.Errorf("log floor %g: %w", floor, ErrInvalidArgument)
		}
		o.logFloor = floor
		return nil
	}
}

func applyOptions(opts []Option) (*options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}
