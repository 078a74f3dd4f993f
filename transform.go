package encmat

import (
	"fmt"
	"slices"
	"sync"
)

// LinTransType is one of the slot permutations of a packed square matrix.
type LinTransType int

const (
	Sigma LinTransType = iota
	Tau
	Phi
	Psi
	Transpose

	// sigmaInverse undoes Sigma. It is only built internally.
	sigmaInverse LinTransType = -1
)

func (t LinTransType) String() string {
	switch t {
	case Sigma:
		return "Sigma"
	case Tau:
		return "Tau"
	case Phi:
		return "Phi"
	case Psi:
		return "Psi"
	case Transpose:
		return "Transpose"
	case sigmaInverse:
		return "SigmaInverse"
	}
	return fmt.Sprintf("LinTransType(%d)", int(t))
}

func (t LinTransType) family() keyFamily {
	switch t {
	case Tau:
		return familyTau
	case Phi:
		return familyPhi
	case Psi:
		return familyPsi
	case Transpose:
		return familyTranspose
	}
	return familySigma
}

// TransformDescriptor selects a linear transform of a NumCols x NumCols
// row-major block. NumRepeats is the shift of Phi and Psi.
type TransformDescriptor struct {
	Type       LinTransType
	NumCols    int
	NumRepeats int
}

func (t TransformDescriptor) validate(slots int) error {
	d := t.NumCols
	if d <= 0 {
		return fmt.Errorf("%v: numCols %d: %w", t.Type, d, ErrInvalidParameter)
	}
	if d*d > slots {
		return fmt.Errorf("%v: %dx%d block exceeds %d slots: %w", t.Type, d, d, slots, ErrShape)
	}
	switch t.Type {
	case Phi, Psi:
		if t.NumRepeats < 0 || t.NumRepeats >= d {
			return fmt.Errorf("%v: numRepeats %d outside [0, %d): %w", t.Type, t.NumRepeats, d, ErrInvalidParameter)
		}
	case Sigma, Tau, Transpose:
		if t.NumRepeats != 0 {
			return fmt.Errorf("%v takes no numRepeats, got %d: %w", t.Type, t.NumRepeats, ErrInvalidParameter)
		}
	default:
		return fmt.Errorf("transform type %d: %w", int(t.Type), ErrInvalidParameter)
	}
	return nil
}

// source maps output entry (i, j) to the input entry it is read from
func (t TransformDescriptor) source(i, j int) (int, int) {
	d, k := t.NumCols, t.NumRepeats
	switch t.Type {
	case Sigma:
		return i, (i + j) % d
	case Tau:
		return (i + j) % d, j
	case Phi:
		return i, (j + k) % d
	case Psi:
		return (i + k) % d, j
	case sigmaInverse:
		return i, mod(j-i, d)
	}
	return j, i
}

// RotationIndices returns the normalized rotation steps of t, including 0
// when the transform has a fixed diagonal.
func (t TransformDescriptor) RotationIndices(slots int) []int {
	return diagonalSteps(t.diagonals(slots))
}

type diagonalsKey struct {
	desc  TransformDescriptor
	slots int
}

// diagonalCache maps a diagonalsKey to its map[int][]float64 of masks
var diagonalCache sync.Map

// diagonals returns the masks of t for a ciphertext of slots slots. They are
// built once per descriptor and shared, so callers must not modify them.
func (t TransformDescriptor) diagonals(slots int) map[int][]float64 {
	key := diagonalsKey{desc: t, slots: slots}
	if diags, ok := diagonalCache.Load(key); ok {
		return diags.(map[int][]float64)
	}
	diags, _ := diagonalCache.LoadOrStore(key, permutationDiagonals(t, slots))
	return diags.(map[int][]float64)
}

// permutationDiagonals groups the outputs of a block permutation by the
// rotation that brings their source into place. Each mask is 1 on the
// outputs of its rotation.
func permutationDiagonals(t TransformDescriptor, slots int) map[int][]float64 {
	d := t.NumCols
	diags := map[int][]float64{}
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			si, sj := t.source(i, j)
			l := d*i + j
			k := mod(d*si+sj-l, slots)
			mask, ok := diags[k]
			if !ok {
				mask = make([]float64, slots)
				diags[k] = mask
			}
			mask[l] = 1
		}
	}
	return diags
}

func diagonalSteps(diags map[int][]float64) []int {
	steps := make([]int, 0, len(diags))
	for k := range diags {
		steps = append(steps, k)
	}
	slices.Sort(steps)
	return steps
}

// evalDiagonals computes sum_k mask_k * rot(ct, k)
func evalDiagonals[C any](eval Evaluator[C], ct C, diags map[int][]float64) (out C, err error) {
	for n, k := range diagonalSteps(diags) {
		rot := ct
		if k != 0 {
			if rot, err = eval.Rotate(ct, k); err != nil {
				return
			}
		}
		var term C
		if term, err = eval.MulMask(rot, diags[k]); err != nil {
			return
		}
		if n == 0 {
			out = term
		} else if out, err = eval.Add(out, term); err != nil {
			return
		}
	}
	return
}

// EvalLinTrans applies the transform described by desc to a packed block.
func (ctx *Context[C, S, K]) EvalLinTrans(ct C, desc TransformDescriptor) (out C, err error) {
	slots := ctx.Slots()
	if err = desc.validate(slots); err != nil {
		return
	}
	if err = ctx.checkDepth(desc.Type.String(), 1, ct); err != nil {
		return
	}
	diags := desc.diagonals(slots)
	eval, err := ctx.evaluator(desc.Type.String(), diagonalSteps(diags))
	if err != nil {
		return
	}
	if out, err = evalDiagonals(eval, ct, diags); err != nil {
		err = fmt.Errorf("%v: %w", desc.Type, err)
	}
	return
}

// EvalLinTransWithKeyGen generates the keys of desc and applies it.
func (ctx *Context[C, S, K]) EvalLinTransWithKeyGen(sk S, ct C, desc TransformDescriptor) (out C, err error) {
	if err = ctx.EvalLinTransKeyGen(sk, desc.NumCols, desc.Type, desc.NumRepeats); err != nil {
		return
	}
	return ctx.EvalLinTrans(ct, desc)
}

// EvalLinTransSigma shifts row i of the block left by i.
func (ctx *Context[C, S, K]) EvalLinTransSigma(ct C, numCols int) (C, error) {
	return ctx.EvalLinTrans(ct, TransformDescriptor{Type: Sigma, NumCols: numCols})
}

// EvalLinTransTau shifts column j of the block up by j.
func (ctx *Context[C, S, K]) EvalLinTransTau(ct C, numCols int) (C, error) {
	return ctx.EvalLinTrans(ct, TransformDescriptor{Type: Tau, NumCols: numCols})
}

// EvalLinTransPhi shifts every row left by numRepeats.
func (ctx *Context[C, S, K]) EvalLinTransPhi(ct C, numCols, numRepeats int) (C, error) {
	return ctx.EvalLinTrans(ct, TransformDescriptor{Type: Phi, NumCols: numCols, NumRepeats: numRepeats})
}

// EvalLinTransPsi shifts every column up by numRepeats.
func (ctx *Context[C, S, K]) EvalLinTransPsi(ct C, numCols, numRepeats int) (C, error) {
	return ctx.EvalLinTrans(ct, TransformDescriptor{Type: Psi, NumCols: numCols, NumRepeats: numRepeats})
}

// EvalTranspose transposes the block.
func (ctx *Context[C, S, K]) EvalTranspose(ct C, numCols int) (C, error) {
	return ctx.EvalLinTrans(ct, TransformDescriptor{Type: Transpose, NumCols: numCols})
}

func (ctx *Context[C, S, K]) EvalLinTransSigmaWithKeyGen(sk S, ct C, numCols int) (C, error) {
	return ctx.EvalLinTransWithKeyGen(sk, ct, TransformDescriptor{Type: Sigma, NumCols: numCols})
}

func (ctx *Context[C, S, K]) EvalLinTransTauWithKeyGen(sk S, ct C, numCols int) (C, error) {
	return ctx.EvalLinTransWithKeyGen(sk, ct, TransformDescriptor{Type: Tau, NumCols: numCols})
}

func (ctx *Context[C, S, K]) EvalLinTransPhiWithKeyGen(sk S, ct C, numCols, numRepeats int) (C, error) {
	return ctx.EvalLinTransWithKeyGen(sk, ct, TransformDescriptor{Type: Phi, NumCols: numCols, NumRepeats: numRepeats})
}

func (ctx *Context[C, S, K]) EvalLinTransPsiWithKeyGen(sk S, ct C, numCols, numRepeats int) (C, error) {
	return ctx.EvalLinTransWithKeyGen(sk, ct, TransformDescriptor{Type: Psi, NumCols: numCols, NumRepeats: numRepeats})
}

func (ctx *Context[C, S, K]) EvalTransposeWithKeyGen(sk S, ct C, numCols int) (C, error) {
	return ctx.EvalLinTransWithKeyGen(sk, ct, TransformDescriptor{Type: Transpose, NumCols: numCols})
}
