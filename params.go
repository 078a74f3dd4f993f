package encmat

import (
	"fmt"
	"io"

	"github.com/tuneinsight/lattigo/v6/schemes/ckks"
	"gopkg.in/yaml.v3"
)

// Config is the CKKS parameter literal and demo dimension read from YAML.
type Config struct {
	LogN            int   `yaml:"log_n"`
	LogQ            []int `yaml:"log_q"`
	LogP            []int `yaml:"log_p"`
	LogDefaultScale int   `yaml:"log_default_scale"`
	NumCols         int   `yaml:"num_cols"`
}

// DefaultConfig has six 40-bit levels, enough for the transforms, the
// products and cumulative sums over short ladders. A column sum across all
// slots needs ceil(log2(slots/numCols)) levels.
func DefaultConfig() Config {
	return Config{
		LogN:            12,
		LogQ:            []int{55, 40, 40, 40, 40, 40, 40},
		LogP:            []int{61},
		LogDefaultScale: 40,
		NumCols:         8,
	}
}

// LoadConfig reads a YAML document over DefaultConfig.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && err != io.EOF {
		return cfg, fmt.Errorf("cannot decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.LogN <= 0 {
		return fmt.Errorf("log_n %d: %w", c.LogN, ErrInvalidParameter)
	}
	if len(c.LogQ) == 0 || len(c.LogP) == 0 {
		return fmt.Errorf("empty modulus chain: %w", ErrInvalidParameter)
	}
	if c.LogDefaultScale <= 0 {
		return fmt.Errorf("log_default_scale %d: %w", c.LogDefaultScale, ErrInvalidParameter)
	}
	if c.NumCols <= 0 || c.NumCols*c.NumCols > 1<<(c.LogN-1) {
		return fmt.Errorf("num_cols %d with log_n %d: %w", c.NumCols, c.LogN, ErrShape)
	}
	return nil
}

// Parameters builds the lattigo parameter set.
func (c Config) Parameters() (ckks.Parameters, error) {
	if err := c.Validate(); err != nil {
		return ckks.Parameters{}, err
	}
	params, err := ckks.NewParametersFromLiteral(ckks.ParametersLiteral{
		LogN:            c.LogN,
		LogQ:            c.LogQ,
		LogP:            c.LogP,
		LogDefaultScale: c.LogDefaultScale,
	})
	if err != nil {
		return params, fmt.Errorf("cannot build parameters: %w", err)
	}
	return params, nil
}
