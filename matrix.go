package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultSingularTolerance is the pivot magnitude, relative to the equilibrated
// matrix, at or below which Gauss-Jordan elimination treats a matrix as singular.
const DefaultSingularTolerance = 1e-12

// Matrix is a dense, rectangular matrix of float64 values.
// Operations never modify the receiver.
type Matrix struct {
	d *mat.Dense
}

// NewMatrix creates a matrix from rows. Every row must have the same, non-zero length.
func NewMatrix(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("empty matrix: %w", ErrShapeMismatch)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), cols, ErrShapeMismatch)
		}
		data = append(data, row...)
	}
	return &Matrix{d: mat.NewDense(len(rows), cols, data)}, nil
}

// Identity returns the n×n identity matrix.
func Identity(n int) *Matrix {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return &Matrix{d: d}
}

func newMatrixFromDense(d *mat.Dense) *Matrix {
	return &Matrix{d: d}
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (rows, cols int) {
	return m.d.Dims()
}

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) float64 {
	return m.d.At(i, j)
}

// Rows returns a copy of the matrix contents as a slice of rows.
func (m *Matrix) Rows() [][]float64 {
	r, c := m.d.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		copy(rows[i], m.d.RawRowView(i))
	}
	return rows
}

// Dense returns a copy of the matrix as a gonum dense matrix.
func (m *Matrix) Dense() *mat.Dense {
	return mat.DenseCopyOf(m.d)
}

// Transpose returns a new matrix with result[i][j] = m[j][i].
func (m *Matrix) Transpose() *Matrix {
	return &Matrix{d: mat.DenseCopyOf(m.d.T())}
}

// Multiply returns the matrix product m × other.
func (m *Matrix) Multiply(other *Matrix) (*Matrix, error) {
	r, c := m.d.Dims()
	or, oc := other.d.Dims()
	if c != or {
		return nil, fmt.Errorf("cannot multiply %dx%d by %dx%d: %w", r, c, or, oc, ErrShapeMismatch)
	}
	product := mat.NewDense(r, oc, nil)
	product.Mul(m.d, other.d)
	return &Matrix{d: product}, nil
}

// Diagonal returns the first min(rows, cols) diagonal entries.
func (m *Matrix) Diagonal() []float64 {
	r, c := m.d.Dims()
	n := r
	if c < n {
		n = c
	}
	diag := make([]float64, n)
	for i := range diag {
		diag[i] = m.d.At(i, i)
	}
	return diag
}

// Inverse computes the inverse by Gauss-Jordan elimination with partial pivoting.
// It returns ErrShapeMismatch for a non-square matrix and ErrSingularMatrix when
// a pivot vanishes relative to the scale of its column.
func (m *Matrix) Inverse() (*Matrix, error) {
	return m.inverse(DefaultSingularTolerance, false)
}

// Condition returns the 2-norm condition number of the matrix.
func (m *Matrix) Condition() float64 {
	return mat.Cond(m.d, 2)
}

// inverse runs Gauss-Jordan on the equilibrated augmented matrix [DAE | I]
// and returns E(DAE)⁻¹D = A⁻¹. Equilibration brings every column to unit
// scale, so the pivot tolerance does not depend on the units of the features.
// When permissive is set the matrix is used unscaled, a vanishing pivot does
// not stop the elimination and the resulting NaN/Inf values are returned as they are.
func (m *Matrix) inverse(tol float64, permissive bool) (*Matrix, error) {
	n, c := m.d.Dims()
	if n != c {
		return nil, fmt.Errorf("cannot invert %dx%d matrix: %w", n, c, ErrShapeMismatch)
	}
	rowScale, colScale := unitScale(n), unitScale(n)
	if !permissive {
		rowScale, colScale = m.equilibration()
	}

	// 拡大行列 [DAE | I]
	aug := make([][]float64, n)
	var scale float64
	for i := 0; i < n; i++ {
		aug[i] = make([]float64, 2*n)
		for j := 0; j < n; j++ {
			aug[i][j] = rowScale[i] * m.d.At(i, j) * colScale[j]
			scale = math.Max(scale, math.Abs(aug[i][j]))
		}
		aug[i][n+i] = 1
	}

	for col := 0; col < n; col++ {
		// 部分ピボット選択
		pivotRow := col
		for row := col + 1; row < n; row++ {
			if math.Abs(aug[row][col]) > math.Abs(aug[pivotRow][col]) {
				pivotRow = row
			}
		}
		aug[col], aug[pivotRow] = aug[pivotRow], aug[col]

		pivot := aug[col][col]
		if !permissive && !(math.Abs(pivot) > tol*scale) {
			return nil, fmt.Errorf("equilibrated pivot %g in column %d: %w", pivot, col, ErrSingularMatrix)
		}

		for j := 0; j < 2*n; j++ {
			aug[col][j] /= pivot
		}
		for row := 0; row < n; row++ {
			if row == col {
				continue
			}
			factor := aug[row][col]
			for j := 0; j < 2*n; j++ {
				aug[row][j] -= factor * aug[col][j]
			}
		}
	}

	inv := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			inv.Set(i, j, colScale[i]*aug[i][n+j]*rowScale[j])
		}
	}
	return &Matrix{d: inv}, nil
}

// equilibration returns the row and column scale factors of a square matrix.
// A symmetric matrix with a positive diagonal, such as XᵗX, is scaled by
// 1/sqrt(a_jj) on both sides to unit diagonal; any other matrix is scaled by
// the largest magnitude of each column. An all-zero column keeps scale 1.
func (m *Matrix) equilibration() (rowScale, colScale []float64) {
	n, _ := m.d.Dims()
	rowScale, colScale = unitScale(n), unitScale(n)

	if m.isSymmetricPositiveDiagonal() {
		for j := 0; j < n; j++ {
			s := 1 / math.Sqrt(m.d.At(j, j))
			rowScale[j] = s
			colScale[j] = s
		}
		return rowScale, colScale
	}

	for j := 0; j < n; j++ {
		var colMax float64
		for i := 0; i < n; i++ {
			colMax = math.Max(colMax, math.Abs(m.d.At(i, j)))
		}
		if colMax > 0 && !math.IsInf(colMax, 0) {
			colScale[j] = 1 / colMax
		}
	}
	return rowScale, colScale
}

func (m *Matrix) isFinite() bool {
	r, c := m.d.Dims()
	for i := 0; i < r; i++ {
		for _, v := range m.d.RawRowView(i)[:c] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

func unitScale(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = 1
	}
	return s
}

// isSymmetricPositiveDiagonal tolerates the rounding left by forming XᵗX.
func (m *Matrix) isSymmetricPositiveDiagonal() bool {
	n, _ := m.d.Dims()
	for i := 0; i < n; i++ {
		d := m.d.At(i, i)
		if !(d > 0) || math.IsInf(d, 0) {
			return false
		}
		for j := i + 1; j < n; j++ {
			a, b := m.d.At(i, j), m.d.At(j, i)
			if math.Abs(a-b) > 1e-12*math.Max(math.Abs(a), math.Abs(b)) {
				return false
			}
		}
	}
	return true
}
