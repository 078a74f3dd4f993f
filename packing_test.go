package encmat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func seqMatrix(rows, cols int) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = float64(i + 1)
	}
	return mat.NewDense(rows, cols, data)
}

func TestSlotIndex(t *testing.T) {
	t.Run("row major", func(t *testing.T) {
		i, err := SlotIndex(RowMajor, 2, 3, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, i)
	})
	t.Run("col major", func(t *testing.T) {
		i, err := SlotIndex(ColMajor, 2, 3, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, i)
		i, err = SlotIndex(ColMajor, 2, 3, 0, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, i)
	})
	t.Run("diag major", func(t *testing.T) {
		// entry (1, 3) of a 4x4 matrix sits on diagonal (1-3) mod 4 = 2
		i, err := SlotIndex(DiagMajor, 4, 4, 1, 3)
		require.NoError(t, err)
		assert.Equal(t, 2*4+1, i)
		_, err = SlotIndex(DiagMajor, 2, 3, 0, 0)
		assert.ErrorIs(t, err, ErrShape)
	})
	t.Run("out of bounds", func(t *testing.T) {
		_, err := SlotIndex(RowMajor, 2, 2, 2, 0)
		assert.ErrorIs(t, err, ErrShape)
		_, err = SlotIndex(RowMajor, 2, 2, 0, -1)
		assert.ErrorIs(t, err, ErrShape)
	})
	t.Run("unknown encoding", func(t *testing.T) {
		_, err := SlotIndex(ArrayEncoding(7), 2, 2, 0, 0)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	})
}

func TestPackMatrix(t *testing.T) {
	m := seqMatrix(3, 3)
	t.Run("row major", func(t *testing.T) {
		values, err := PackMatrix(m, 16, RowMajor)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 0, 0, 0, 0, 0, 0, 0}, values)
	})
	t.Run("col major", func(t *testing.T) {
		values, err := PackMatrix(m, 9, ColMajor)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 4, 7, 2, 5, 8, 3, 6, 9}, values)
	})
	t.Run("diag major", func(t *testing.T) {
		values, err := PackMatrix(m, 9, DiagMajor)
		require.NoError(t, err)
		// main diagonal, then (r, r-1), then (r, r-2)
		assert.Equal(t, []float64{1, 5, 9, 3, 4, 8, 2, 6, 7}, values)
	})
	t.Run("unpack inverts pack", func(t *testing.T) {
		for _, enc := range []ArrayEncoding{RowMajor, ColMajor, DiagMajor} {
			values, err := PackMatrix(m, 32, enc)
			require.NoError(t, err)
			back, err := UnpackMatrix(values, 3, 3, enc)
			require.NoError(t, err)
			assert.True(t, mat.Equal(m, back), enc.String())
		}
	})
	t.Run("too large", func(t *testing.T) {
		_, err := PackMatrix(seqMatrix(3, 4), 8, RowMajor)
		assert.ErrorIs(t, err, ErrShape)
	})
	t.Run("diag of rectangle", func(t *testing.T) {
		_, err := PackMatrix(seqMatrix(2, 3), 8, DiagMajor)
		assert.ErrorIs(t, err, ErrShape)
	})
}

func TestPackVector(t *testing.T) {
	v := []float64{1, 2, 3}
	t.Run("tiled", func(t *testing.T) {
		values, err := PackVector(v, 3, 9, ColMajor)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3, 1, 2, 3, 1, 2, 3}, values)
		back, err := UnpackVector(values, 3, ColMajor)
		require.NoError(t, err)
		assert.Equal(t, v, back)
	})
	t.Run("replicated", func(t *testing.T) {
		values, err := PackVector(v, 3, 9, RowMajor)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 1, 1, 2, 2, 2, 3, 3, 3}, values)
		back, err := UnpackVector(values, 3, RowMajor)
		require.NoError(t, err)
		assert.Equal(t, v, back)
	})
	t.Run("short vector is zero padded", func(t *testing.T) {
		values, err := PackVector([]float64{5}, 2, 4, ColMajor)
		require.NoError(t, err)
		assert.Equal(t, []float64{5, 0, 5, 0}, values)
	})
	t.Run("errors", func(t *testing.T) {
		_, err := PackVector(v, 2, 16, ColMajor)
		assert.ErrorIs(t, err, ErrShape)
		_, err = PackVector(v, 3, 8, ColMajor)
		assert.ErrorIs(t, err, ErrShape)
		_, err = PackVector(v, 3, 9, DiagMajor)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	})
}

func TestPadMatrix(t *testing.T) {
	p, err := PadMatrix(seqMatrix(2, 3), 4)
	require.NoError(t, err)
	want := mat.NewDense(4, 4, []float64{
		1, 2, 3, 0,
		4, 5, 6, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	})
	assert.True(t, mat.Equal(want, p))

	_, err = PadMatrix(seqMatrix(5, 1), 4)
	assert.ErrorIs(t, err, ErrShape)
}

func TestNewPackedMatrix(t *testing.T) {
	m, err := NewPackedMatrix("ct", 4, 4, 16, DiagMajor)
	require.NoError(t, err)
	assert.True(t, m.IsSquare())

	_, err = NewPackedMatrix("ct", 4, 5, 16, RowMajor)
	assert.ErrorIs(t, err, ErrShape)
	_, err = NewPackedMatrix("ct", 0, 1, 16, RowMajor)
	assert.ErrorIs(t, err, ErrShape)
	_, err = NewPackedMatrix("ct", 2, 4, 16, DiagMajor)
	assert.ErrorIs(t, err, ErrShape)
}

func TestPowerOfTwo(t *testing.T) {
	assert.True(t, IsPowerOfTwo(1))
	assert.True(t, IsPowerOfTwo(uint64(1024)))
	assert.False(t, IsPowerOfTwo(0))
	assert.False(t, IsPowerOfTwo(-4))
	assert.False(t, IsPowerOfTwo(12))

	assert.Equal(t, 1, NextPowerOfTwo(0))
	assert.Equal(t, 4, NextPowerOfTwo(3))
	assert.Equal(t, 8, NextPowerOfTwo(8))
	assert.Equal(t, uint(32), NextPowerOfTwo(uint(17)))
}
