package encmat

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// PrecisionStats summarizes the absolute error of decrypted values.
type PrecisionStats struct {
	MaxErr    float64
	MeanErr   float64
	MedianErr float64
	StdDev    float64
	// -log2 of MaxErr, the number of correct fractional bits
	Log2Prec float64
}

func (p PrecisionStats) String() string {
	return fmt.Sprintf("max %.3e mean %.3e median %.3e std %.3e (%.1f bits)",
		p.MaxErr, p.MeanErr, p.MedianErr, p.StdDev, p.Log2Prec)
}

// MeasurePrecision compares have against want entry by entry.
func MeasurePrecision(want, have []float64) (p PrecisionStats, err error) {
	if len(want) != len(have) || len(want) == 0 {
		return p, fmt.Errorf("comparing %d values with %d: %w", len(want), len(have), ErrShape)
	}
	errs := make(stats.Float64Data, len(want))
	for i := range want {
		errs[i] = math.Abs(want[i] - have[i])
	}
	if p.MaxErr, err = errs.Max(); err != nil {
		return
	}
	if p.MeanErr, err = errs.Mean(); err != nil {
		return
	}
	if p.MedianErr, err = errs.Median(); err != nil {
		return
	}
	if p.StdDev, err = errs.StandardDeviation(); err != nil {
		return
	}
	p.Log2Prec = -math.Log2(p.MaxErr)
	return
}
