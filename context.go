package encmat

import (
	"fmt"
	"io"
	"log"
)

// Context runs matrix operations on packed ciphertexts of one scheme. Key
// generation methods may be called at any time; evaluation methods only
// read the key store and are safe for concurrent use.
type Context[C, S, K any] struct {
	scheme Scheme[C, S, K]
	keys   *RotationKeyStore[K]
	logger *log.Logger
}

// NewContext binds a scheme to a key store. A nil store is replaced by an
// empty one and a nil logger discards output.
func NewContext[C, S, K any](scheme Scheme[C, S, K], keys *RotationKeyStore[K], logger *log.Logger) *Context[C, S, K] {
	if keys == nil {
		keys = NewRotationKeyStore[K]()
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Context[C, S, K]{scheme: scheme, keys: keys, logger: logger}
}

func (ctx *Context[C, S, K]) Slots() int {
	return ctx.scheme.Slots()
}

// Keys returns the rotation key store of ctx.
func (ctx *Context[C, S, K]) Keys() *RotationKeyStore[K] {
	return ctx.keys
}

// evaluator checks that every rotation in steps has a key and returns a
// private evaluator for one operation
func (ctx *Context[C, S, K]) evaluator(op string, steps []int) (Evaluator[C], error) {
	steps = normalizeSteps(steps, ctx.Slots())
	if absent := ctx.keys.missing(steps); len(absent) > 0 {
		return nil, fmt.Errorf("%s needs rotations %v: %w", op, absent, ErrMissingRotationKey)
	}
	return ctx.scheme.NewEvaluator(ctx.keys.snapshot()), nil
}

// checkDepth fails when one of cts cannot absorb depth more products
func (ctx *Context[C, S, K]) checkDepth(op string, depth int, cts ...C) error {
	for _, ct := range cts {
		if have := ctx.scheme.Depth(ct); have >= 0 && have < depth {
			return fmt.Errorf("%s needs depth %d, ciphertext has %d: %w", op, depth, have, ErrUnsupportedDimension)
		}
	}
	return nil
}
