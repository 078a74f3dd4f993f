package encmat

import (
	"fmt"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/mat"
)

// ArrayEncoding is the order in which matrix entries are laid out in slots.
type ArrayEncoding int

const (
	RowMajor ArrayEncoding = iota
	ColMajor
	DiagMajor
)

func (e ArrayEncoding) String() string {
	switch e {
	case RowMajor:
		return "RowMajor"
	case ColMajor:
		return "ColMajor"
	case DiagMajor:
		return "DiagMajor"
	}
	return fmt.Sprintf("ArrayEncoding(%d)", int(e))
}

// MatVecEncoding selects the matrix-vector product algorithm.
type MatVecEncoding int

const (
	// MMCRC multiplies a row-major matrix with a column-major (tiled) vector.
	MMCRC MatVecEncoding = iota
	// MMRCR multiplies a column-major matrix with a row-major (replicated) vector.
	MMRCR
	// MMDiag multiplies a diagonal-major matrix with a column-major vector.
	MMDiag
)

func (e MatVecEncoding) String() string {
	switch e {
	case MMCRC:
		return "MM_CRC"
	case MMRCR:
		return "MM_RCR"
	case MMDiag:
		return "MM_DIAG"
	}
	return fmt.Sprintf("MatVecEncoding(%d)", int(e))
}

// matrixEncoding is the layout the matrix operand of enc must use
func (e MatVecEncoding) matrixEncoding() ArrayEncoding {
	switch e {
	case MMRCR:
		return ColMajor
	case MMDiag:
		return DiagMajor
	}
	return RowMajor
}

// vectorEncoding is the layout of the vector operand and of the result
func (e MatVecEncoding) vectorEncoding() ArrayEncoding {
	if e == MMRCR {
		return RowMajor
	}
	return ColMajor
}

// SlotIndex returns the slot holding entry (r, c) of a rows x cols matrix.
func SlotIndex(enc ArrayEncoding, rows, cols, r, c int) (int, error) {
	if r < 0 || c < 0 || r >= rows || c >= cols {
		return 0, fmt.Errorf("index (%d, %d) outside %dx%d: %w", r, c, rows, cols, ErrShape)
	}
	switch enc {
	case RowMajor:
		return r*cols + c, nil
	case ColMajor:
		return c*rows + r, nil
	case DiagMajor:
		if rows != cols {
			return 0, fmt.Errorf("diagonal encoding of %dx%d matrix: %w", rows, cols, ErrShape)
		}
		return mod(r-c, rows)*rows + r, nil
	}
	return 0, fmt.Errorf("array encoding %d: %w", int(enc), ErrInvalidParameter)
}

func checkFits(rows, cols, slots int) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("matrix size %dx%d: %w", rows, cols, ErrShape)
	}
	if rows*cols > slots {
		return fmt.Errorf("%dx%d matrix does not fit in %d slots: %w", rows, cols, slots, ErrShape)
	}
	return nil
}

// PackMatrix flattens m into a slot vector of length slots, zero padded.
func PackMatrix(m mat.Matrix, slots int, enc ArrayEncoding) (values []float64, err error) {
	rows, cols := m.Dims()
	if err = checkFits(rows, cols, slots); err != nil {
		return
	}
	values = make([]float64, slots)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var i int
			if i, err = SlotIndex(enc, rows, cols, r, c); err != nil {
				return nil, err
			}
			values[i] = m.At(r, c)
		}
	}
	return
}

// UnpackMatrix reads a rows x cols matrix back out of a slot vector.
func UnpackMatrix(values []float64, rows, cols int, enc ArrayEncoding) (*mat.Dense, error) {
	if err := checkFits(rows, cols, len(values)); err != nil {
		return nil, err
	}
	m := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i, err := SlotIndex(enc, rows, cols, r, c)
			if err != nil {
				return nil, err
			}
			m.Set(r, c, values[i])
		}
	}
	return m, nil
}

// PackVector lays v out in a numCols x numCols block. ColMajor tiles the
// vector along every row, RowMajor replicates each entry along its row.
func PackVector(v []float64, numCols, slots int, enc ArrayEncoding) (values []float64, err error) {
	if len(v) > numCols {
		return nil, fmt.Errorf("vector of length %d in %d columns: %w", len(v), numCols, ErrShape)
	}
	if err = checkFits(numCols, numCols, slots); err != nil {
		return
	}
	values = make([]float64, slots)
	for i := 0; i < numCols; i++ {
		for j := 0; j < numCols; j++ {
			switch enc {
			case ColMajor:
				if j < len(v) {
					values[numCols*i+j] = v[j]
				}
			case RowMajor:
				if i < len(v) {
					values[numCols*i+j] = v[i]
				}
			default:
				return nil, fmt.Errorf("vector encoding %v: %w", enc, ErrInvalidParameter)
			}
		}
	}
	return
}

// UnpackVector reads a length numCols vector out of a packed block.
func UnpackVector(values []float64, numCols int, enc ArrayEncoding) ([]float64, error) {
	if err := checkFits(numCols, numCols, len(values)); err != nil {
		return nil, err
	}
	v := make([]float64, numCols)
	for i := range v {
		switch enc {
		case ColMajor:
			v[i] = values[i]
		case RowMajor:
			v[i] = values[numCols*i]
		default:
			return nil, fmt.Errorf("vector encoding %v: %w", enc, ErrInvalidParameter)
		}
	}
	return v, nil
}

// PadMatrix copies m into the top left corner of a d x d zero matrix.
func PadMatrix(m mat.Matrix, d int) (*mat.Dense, error) {
	rows, cols := m.Dims()
	if rows > d || cols > d {
		return nil, fmt.Errorf("cannot pad %dx%d matrix to %d: %w", rows, cols, d, ErrShape)
	}
	p := mat.NewDense(d, d, nil)
	p.Slice(0, rows, 0, cols).(*mat.Dense).Copy(m)
	return p, nil
}

// PackedMatrix is a ciphertext carrying a whole matrix and its layout.
type PackedMatrix[C any] struct {
	Ciphertext C
	Rows, Cols int
	Encoding   ArrayEncoding
}

// NewPackedMatrix attaches shape metadata to ct after checking it fits.
func NewPackedMatrix[C any](ct C, rows, cols, slots int, enc ArrayEncoding) (PackedMatrix[C], error) {
	if err := checkFits(rows, cols, slots); err != nil {
		return PackedMatrix[C]{}, err
	}
	if enc == DiagMajor && rows != cols {
		return PackedMatrix[C]{}, fmt.Errorf("diagonal encoding of %dx%d matrix: %w", rows, cols, ErrShape)
	}
	return PackedMatrix[C]{Ciphertext: ct, Rows: rows, Cols: cols, Encoding: enc}, nil
}

// IsSquare reports whether the packed block is square.
func (m PackedMatrix[C]) IsSquare() bool {
	return m.Rows == m.Cols
}

func IsPowerOfTwo[T constraints.Integer](n T) bool {
	return n > 0 && n&(n-1) == 0
}

// NextPowerOfTwo returns the smallest power of two >= n, and 1 for n <= 1.
func NextPowerOfTwo[T constraints.Integer](n T) T {
	p := T(1)
	for p < n {
		p <<= 1
	}
	return p
}

// mod is the non-negative remainder
func mod[T constraints.Signed](a, n T) T {
	return ((a % n) + n) % n
}
