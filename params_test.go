package encmat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("overrides defaults", func(t *testing.T) {
		cfg, err := LoadConfig(strings.NewReader(`
log_n: 10
log_q: [50, 40, 40]
num_cols: 4
`))
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.LogN)
		assert.Equal(t, []int{50, 40, 40}, cfg.LogQ)
		assert.Equal(t, []int{61}, cfg.LogP)
		assert.Equal(t, 40, cfg.LogDefaultScale)
		assert.Equal(t, 4, cfg.NumCols)

		params, err := cfg.Parameters()
		require.NoError(t, err)
		assert.Equal(t, 512, params.MaxSlots())
		assert.Equal(t, 2, params.MaxLevel())
	})
	t.Run("empty document", func(t *testing.T) {
		cfg, err := LoadConfig(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})
	t.Run("invalid", func(t *testing.T) {
		_, err := LoadConfig(strings.NewReader("log_q: []"))
		assert.ErrorIs(t, err, ErrInvalidParameter)
		_, err = LoadConfig(strings.NewReader("num_cols: 64\nlog_n: 10"))
		assert.ErrorIs(t, err, ErrShape)
		_, err = LoadConfig(strings.NewReader("log_n: [1"))
		assert.Error(t, err)
	})
}
