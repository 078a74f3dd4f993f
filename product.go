package encmat

import (
	"fmt"
)

// ladder returns step, 2*step, 4*step, ... while the multiple stays below
// limit
func ladder(step, limit int) (steps []int) {
	for s := 1; s < limit; s <<= 1 {
		steps = append(steps, s*step)
	}
	return
}

func negate(steps []int) []int {
	out := make([]int, len(steps))
	for i, s := range steps {
		out[i] = -s
	}
	return out
}

func checkSquare(op string, numCols, slots int) error {
	if numCols <= 0 {
		return fmt.Errorf("%s: numCols %d: %w", op, numCols, ErrInvalidParameter)
	}
	if numCols*numCols > slots {
		return fmt.Errorf("%s: %dx%d block exceeds %d slots: %w", op, numCols, numCols, slots, ErrShape)
	}
	return nil
}

func squareMatMulRotations(numCols, slots int) ([]int, error) {
	if err := checkSquare("square matmul", numCols, slots); err != nil {
		return nil, err
	}
	steps := TransformDescriptor{Type: Sigma, NumCols: numCols}.RotationIndices(slots)
	steps = append(steps, TransformDescriptor{Type: Tau, NumCols: numCols}.RotationIndices(slots)...)
	for k := 0; k < numCols; k++ {
		steps = append(steps, TransformDescriptor{Type: Phi, NumCols: numCols, NumRepeats: k}.RotationIndices(slots)...)
		steps = append(steps, TransformDescriptor{Type: Psi, NumCols: numCols, NumRepeats: k}.RotationIndices(slots)...)
	}
	return normalizeSteps(steps, slots), nil
}

// levels consumed by every matrix-vector encoding: the product and the keep
// mask plus one of expand or finish
const matVecDepth = 3

// Sigma or Tau, then Phi or Psi, then the product
const matMulDepth = 3

// matVecPlan is the rotation structure of one matrix-vector product
type matVecPlan struct {
	fold, spread []int
	keep         []float64         // slots holding the sums after folding
	expand       map[int][]float64 // applied to the vector before the product
	finish       map[int][]float64 // applied to the spread result
}

func newMatVecPlan(enc MatVecEncoding, d, slots int) (p matVecPlan, err error) {
	if err = checkSquare(enc.String(), d, slots); err != nil {
		return
	}
	if !IsPowerOfTwo(d) {
		return p, fmt.Errorf("%v: numCols %d is not a power of two: %w", enc, d, ErrUnsupportedDimension)
	}
	p.keep = make([]float64, slots)
	transpose := TransformDescriptor{Type: Transpose, NumCols: d}
	switch enc {
	case MMCRC:
		// sums land in column 0
		p.fold = ladder(1, d)
		for i := 0; i < d; i++ {
			p.keep[d*i] = 1
		}
		p.finish = transpose.diagonals(slots)
	case MMRCR:
		// sums land in row 0
		p.fold = ladder(d, d)
		for j := 0; j < d; j++ {
			p.keep[j] = 1
		}
		p.finish = transpose.diagonals(slots)
	case MMDiag:
		p.fold = ladder(d, d)
		for j := 0; j < d; j++ {
			p.keep[j] = 1
		}
		p.expand = TransformDescriptor{Type: sigmaInverse, NumCols: d}.diagonals(slots)
	default:
		return p, fmt.Errorf("matvec encoding %d: %w", int(enc), ErrInvalidParameter)
	}
	p.spread = negate(p.fold)
	return
}

func (p matVecPlan) rotations(slots int) []int {
	steps := append(append([]int{}, p.fold...), p.spread...)
	steps = append(steps, diagonalSteps(p.expand)...)
	steps = append(steps, diagonalSteps(p.finish)...)
	return normalizeSteps(steps, slots)
}

func matVecRotations(enc MatVecEncoding, numCols, slots int) ([]int, error) {
	p, err := newMatVecPlan(enc, numCols, slots)
	if err != nil {
		return nil, err
	}
	return p.rotations(slots), nil
}

// accumulate adds rotations of ct by each step in turn: x += rot(x, s)
func accumulate[C any](eval Evaluator[C], ct C, steps []int) (x C, err error) {
	x = ct
	for _, s := range steps {
		var r C
		if r, err = eval.Rotate(x, s); err != nil {
			return
		}
		if x, err = eval.Add(x, r); err != nil {
			return
		}
	}
	return
}

// EvalMultMatVec multiplies a packed numCols x numCols matrix by a packed
// vector. The vector and the result use the layout enc expects: ColMajor
// for MMCRC and MMDiag, RowMajor for MMRCR.
func (ctx *Context[C, S, K]) EvalMultMatVec(enc MatVecEncoding, numCols int, ctVector, ctMatrix C) (out C, err error) {
	slots := ctx.Slots()
	p, err := newMatVecPlan(enc, numCols, slots)
	if err != nil {
		return
	}
	if err = ctx.checkDepth(enc.String(), matVecDepth, ctVector); err != nil {
		return
	}
	// the matrix skips the expansion
	matrixDepth := matVecDepth
	if p.expand != nil {
		matrixDepth--
	}
	if err = ctx.checkDepth(enc.String(), matrixDepth, ctMatrix); err != nil {
		return
	}
	eval, err := ctx.evaluator(enc.String(), p.rotations(slots))
	if err != nil {
		return
	}
	defer func() {
		if err != nil {
			err = fmt.Errorf("%v: %w", enc, err)
		}
	}()

	v := ctVector
	if p.expand != nil {
		if v, err = evalDiagonals(eval, v, p.expand); err != nil {
			return
		}
	}
	if out, err = eval.Mul(ctMatrix, v); err != nil {
		return
	}
	if out, err = accumulate(eval, out, p.fold); err != nil {
		return
	}
	if out, err = eval.MulMask(out, p.keep); err != nil {
		return
	}
	if out, err = accumulate(eval, out, p.spread); err != nil {
		return
	}
	if p.finish != nil {
		out, err = evalDiagonals(eval, out, p.finish)
	}
	return
}

// EvalMatMulSquare multiplies two packed row-major numCols x numCols
// matrices: C = sum_k Phi_k(Sigma(A)) * Psi_k(Tau(B)).
func (ctx *Context[C, S, K]) EvalMatMulSquare(a, b C, numCols int) (out C, err error) {
	slots := ctx.Slots()
	steps, err := squareMatMulRotations(numCols, slots)
	if err != nil {
		return
	}
	if err = ctx.checkDepth("square matmul", matMulDepth, a, b); err != nil {
		return
	}
	eval, err := ctx.evaluator("square matmul", steps)
	if err != nil {
		return
	}
	defer func() {
		if err != nil {
			err = fmt.Errorf("square matmul: %w", err)
		}
	}()

	d := numCols
	diags := func(t LinTransType, k int) map[int][]float64 {
		return TransformDescriptor{Type: t, NumCols: d, NumRepeats: k}.diagonals(slots)
	}
	a0, err := evalDiagonals(eval, a, diags(Sigma, 0))
	if err != nil {
		return
	}
	b0, err := evalDiagonals(eval, b, diags(Tau, 0))
	if err != nil {
		return
	}
	for k := 0; k < d; k++ {
		var ak, bk, term C
		if ak, err = evalDiagonals(eval, a0, diags(Phi, k)); err != nil {
			return
		}
		if bk, err = evalDiagonals(eval, b0, diags(Psi, k)); err != nil {
			return
		}
		if term, err = eval.Mul(ak, bk); err != nil {
			return
		}
		if k == 0 {
			out = term
		} else if out, err = eval.Add(out, term); err != nil {
			return
		}
	}
	return
}

// Transpose transposes a square row-major or column-major packed matrix.
// The result keeps the encoding of m.
func (ctx *Context[C, S, K]) Transpose(m PackedMatrix[C]) (PackedMatrix[C], error) {
	if !m.IsSquare() {
		return PackedMatrix[C]{}, fmt.Errorf("transpose of %dx%d block: %w", m.Rows, m.Cols, ErrShape)
	}
	if m.Encoding == DiagMajor {
		return PackedMatrix[C]{}, fmt.Errorf("transpose of %v matrix: %w", m.Encoding, ErrInvalidParameter)
	}
	ct, err := ctx.EvalTranspose(m.Ciphertext, m.Cols)
	if err != nil {
		return PackedMatrix[C]{}, err
	}
	return PackedMatrix[C]{Ciphertext: ct, Rows: m.Cols, Cols: m.Rows, Encoding: m.Encoding}, nil
}

// MatMul multiplies two square row-major packed matrices of equal size.
func (ctx *Context[C, S, K]) MatMul(a, b PackedMatrix[C]) (PackedMatrix[C], error) {
	if !a.IsSquare() || !b.IsSquare() || a.Rows != b.Rows {
		return PackedMatrix[C]{}, fmt.Errorf("matmul of %dx%d and %dx%d: %w", a.Rows, a.Cols, b.Rows, b.Cols, ErrShape)
	}
	if a.Encoding != RowMajor || b.Encoding != RowMajor {
		return PackedMatrix[C]{}, fmt.Errorf("matmul of %v and %v matrices: %w", a.Encoding, b.Encoding, ErrShape)
	}
	ct, err := ctx.EvalMatMulSquare(a.Ciphertext, b.Ciphertext, a.Cols)
	if err != nil {
		return PackedMatrix[C]{}, err
	}
	return PackedMatrix[C]{Ciphertext: ct, Rows: a.Rows, Cols: b.Cols, Encoding: RowMajor}, nil
}

// MatVec multiplies a packed square matrix by a vector packed into a block
// of the same size, checking both layouts against enc.
func (ctx *Context[C, S, K]) MatVec(enc MatVecEncoding, m, v PackedMatrix[C]) (PackedMatrix[C], error) {
	if !m.IsSquare() || !v.IsSquare() || m.Cols != v.Cols {
		return PackedMatrix[C]{}, fmt.Errorf("%v of %dx%d matrix and %dx%d vector block: %w", enc, m.Rows, m.Cols, v.Rows, v.Cols, ErrShape)
	}
	if m.Encoding != enc.matrixEncoding() || v.Encoding != enc.vectorEncoding() {
		return PackedMatrix[C]{}, fmt.Errorf("%v needs %v matrix and %v vector, got %v and %v: %w",
			enc, enc.matrixEncoding(), enc.vectorEncoding(), m.Encoding, v.Encoding, ErrShape)
	}
	ct, err := ctx.EvalMultMatVec(enc, m.Cols, v.Ciphertext, m.Ciphertext)
	if err != nil {
		return PackedMatrix[C]{}, err
	}
	return PackedMatrix[C]{Ciphertext: ct, Rows: v.Rows, Cols: v.Cols, Encoding: enc.vectorEncoding()}, nil
}
