// Package regression estimates linear valuation models by ordinary least squares.
//
// RunOLS applies the configured transforms (clamped logarithms, dummy
// variables) to the input data, fits the model and reports coefficients
// with their standard errors, t statistics, p-values and confidence
// intervals, along with goodness of fit, VIF and elasticities.
//
// By default degenerate input is reported as an error: ErrShapeMismatch,
// ErrDegenerateData or ErrSingularMatrix (wrapped in a *ConditionError
// carrying hints on the suspect features). WithPermissive restores the
// plain numeric behavior where such fits yield NaN or ±Inf statistics.
package regression
