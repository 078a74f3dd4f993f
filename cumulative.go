package encmat

import (
	"fmt"
)

func sumCumRowsRotations(numCols int) []int {
	return negate(ladder(1, numCols))
}

func sumCumColsRotations(numCols, slots int) []int {
	return negate(ladder(numCols, (slots+numCols-1)/numCols))
}

// rowLayout resolves the defaults of the row-wise sums
func (ctx *Context[C, S, K]) rowLayout(numCols, numRows, slots int) (int, int, error) {
	if numCols <= 0 {
		return 0, 0, fmt.Errorf("numCols %d: %w", numCols, ErrInvalidParameter)
	}
	if slots == 0 {
		slots = ctx.Slots()
	}
	if slots < 0 || slots > ctx.Slots() {
		return 0, 0, fmt.Errorf("slots %d outside (0, %d]: %w", slots, ctx.Slots(), ErrInvalidParameter)
	}
	if numRows == 0 {
		numRows = slots / numCols
	}
	if numRows < 0 {
		return 0, 0, fmt.Errorf("numRows %d: %w", numRows, ErrInvalidParameter)
	}
	if numRows*numCols > slots || numRows == 0 {
		return 0, 0, fmt.Errorf("%d rows of %d columns in %d slots: %w", numRows, numCols, slots, ErrShape)
	}
	return numRows, slots, nil
}

// colLayout resolves the defaults of the column-wise sums
func (ctx *Context[C, S, K]) colLayout(numCols, subringDim int) (int, int, error) {
	if numCols <= 0 {
		return 0, 0, fmt.Errorf("numCols %d: %w", numCols, ErrInvalidParameter)
	}
	if subringDim == 0 {
		subringDim = ctx.Slots()
	}
	if subringDim < 0 || ctx.Slots()%subringDim != 0 {
		return 0, 0, fmt.Errorf("subring dimension %d does not divide %d slots: %w", subringDim, ctx.Slots(), ErrInvalidParameter)
	}
	if numCols > subringDim {
		return 0, 0, fmt.Errorf("%d columns in a subring of %d slots: %w", numCols, subringDim, ErrShape)
	}
	return subringDim / numCols, subringDim, nil
}

func (ctx *Context[C, S, K]) sumCumRows(eval Evaluator[C], ct C, numCols, numRows int) (x C, err error) {
	x = ct
	for s := 1; s < numCols; s <<= 1 {
		mask := make([]float64, ctx.Slots())
		for l := 0; l < numRows*numCols; l++ {
			if l%numCols >= s {
				mask[l] = 1
			}
		}
		var r C
		if r, err = eval.Rotate(x, -s); err != nil {
			return
		}
		if r, err = eval.MulMask(r, mask); err != nil {
			return
		}
		if x, err = eval.Add(x, r); err != nil {
			return
		}
	}
	return
}

func (ctx *Context[C, S, K]) sumCumCols(eval Evaluator[C], ct C, numCols, numRows, subringDim int) (x C, err error) {
	x = ct
	for s := 1; s < numRows; s <<= 1 {
		mask := make([]float64, ctx.Slots())
		for l := range mask {
			row := (l % subringDim) / numCols
			if row >= s && row < numRows {
				mask[l] = 1
			}
		}
		var r C
		if r, err = eval.Rotate(x, -s*numCols); err != nil {
			return
		}
		if r, err = eval.MulMask(r, mask); err != nil {
			return
		}
		if x, err = eval.Add(x, r); err != nil {
			return
		}
	}
	return
}

// EvalSumCumRows replaces every entry of a row-major packing with the sum
// of its row up to and including it. Zero numRows and slots default to
// slots/numCols and the scheme slot count.
func (ctx *Context[C, S, K]) EvalSumCumRows(ct C, numCols, numRows, slots int) (out C, err error) {
	numRows, _, err = ctx.rowLayout(numCols, numRows, slots)
	if err != nil {
		return
	}
	if err = ctx.checkDepth("row cumulative sum", len(ladder(1, numCols)), ct); err != nil {
		return
	}
	eval, err := ctx.evaluator("row cumulative sum", sumCumRowsRotations(numCols))
	if err != nil {
		return
	}
	if out, err = ctx.sumCumRows(eval, ct, numCols, numRows); err != nil {
		err = fmt.Errorf("row cumulative sum: %w", err)
	}
	return
}

// EvalReduceCumRows leaves only the row totals, in the last column. It costs
// one level more than EvalSumCumRows.
func (ctx *Context[C, S, K]) EvalReduceCumRows(ct C, numCols, numRows, slots int) (out C, err error) {
	numRows, _, err = ctx.rowLayout(numCols, numRows, slots)
	if err != nil {
		return
	}
	if err = ctx.checkDepth("row reduction", len(ladder(1, numCols))+1, ct); err != nil {
		return
	}
	eval, err := ctx.evaluator("row reduction", sumCumRowsRotations(numCols))
	if err != nil {
		return
	}
	defer func() {
		if err != nil {
			err = fmt.Errorf("row reduction: %w", err)
		}
	}()
	if out, err = ctx.sumCumRows(eval, ct, numCols, numRows); err != nil {
		return
	}
	last := make([]float64, ctx.Slots())
	for i := 0; i < numRows; i++ {
		last[i*numCols+numCols-1] = 1
	}
	return eval.MulMask(out, last)
}

// EvalSumCumCols replaces every entry with the sum of its column down to
// and including it, independently in each block of subringDim slots. Zero
// subringDim defaults to the scheme slot count. Each doubling of the rows in
// a subring costs one level, so a ciphertext with fewer than
// ceil(log2(subringDim/numCols)) levels left gets ErrUnsupportedDimension.
func (ctx *Context[C, S, K]) EvalSumCumCols(ct C, numCols, subringDim int) (out C, err error) {
	numRows, subringDim, err := ctx.colLayout(numCols, subringDim)
	if err != nil {
		return
	}
	if err = ctx.checkDepth("column cumulative sum", len(ladder(1, numRows)), ct); err != nil {
		return
	}
	eval, err := ctx.evaluator("column cumulative sum", sumCumColsRotations(numCols, ctx.Slots()))
	if err != nil {
		return
	}
	if out, err = ctx.sumCumCols(eval, ct, numCols, numRows, subringDim); err != nil {
		err = fmt.Errorf("column cumulative sum: %w", err)
	}
	return
}

// EvalReduceCumCols leaves only the column totals, in the last row of each
// subring.
func (ctx *Context[C, S, K]) EvalReduceCumCols(ct C, numCols, subringDim int) (out C, err error) {
	numRows, subringDim, err := ctx.colLayout(numCols, subringDim)
	if err != nil {
		return
	}
	if err = ctx.checkDepth("column reduction", len(ladder(1, numRows))+1, ct); err != nil {
		return
	}
	eval, err := ctx.evaluator("column reduction", sumCumColsRotations(numCols, ctx.Slots()))
	if err != nil {
		return
	}
	defer func() {
		if err != nil {
			err = fmt.Errorf("column reduction: %w", err)
		}
	}()
	if out, err = ctx.sumCumCols(eval, ct, numCols, numRows, subringDim); err != nil {
		return
	}
	last := make([]float64, ctx.Slots())
	for l := range last {
		p := l % subringDim
		if p/numCols == numRows-1 {
			last[l] = 1
		}
	}
	return eval.MulMask(out, last)
}
