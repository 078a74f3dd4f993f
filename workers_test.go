package encmat

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestEvalConcurrent(t *testing.T) {
	ctx, _ := newClearContext(64)
	require.NoError(t, ctx.EvalSquareMatMultRotateKeyGen(owner, 4))
	rng := rand.New(rand.NewSource(6))

	var as, bs []*mat.Dense
	var jobs []Job[[]float64]
	for i := 0; i < 12; i++ {
		a, b := randomMatrix(rng, 4), randomMatrix(rng, 4)
		as, bs = append(as, a), append(bs, b)
		cta, ctb := pack(t, a, 64), pack(t, b, 64)
		jobs = append(jobs, func() ([]float64, error) {
			return ctx.EvalMatMulSquare(cta, ctb, 4)
		})
	}

	for _, workers := range []int{0, 1, 5} {
		results, err := EvalConcurrent(workers, jobs)
		require.NoError(t, err)
		require.Len(t, results, len(jobs))
		for i, out := range results {
			var want mat.Dense
			want.Mul(as[i], bs[i])
			assert.True(t, mat.Equal(&want, unpack(t, out, 4)), "job %d with %d workers", i, workers)
		}
	}
}

func TestEvalConcurrentError(t *testing.T) {
	boom := errors.New("boom")
	jobs := []Job[int]{
		func() (int, error) { return 1, nil },
		func() (int, error) { return 0, boom },
		func() (int, error) { return 0, ErrMissingRotationKey },
	}
	_, err := EvalConcurrent(3, jobs)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "job 1")

	results, err := EvalConcurrent[int](2, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
