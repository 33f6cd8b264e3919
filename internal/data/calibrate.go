package data

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/contactkeval/option-surrogate/internal/dataset"
	"github.com/contactkeval/option-surrogate/internal/logger"
)

// tradingDaysPerYear annualizes close-to-close daily volatility.
const tradingDaysPerYear = 252

// Calibration holds generator parameters derived from observed bars.
type Calibration struct {
	SpotRange  dataset.Range `json:"spot_range"`
	Volatility float64       `json:"volatility"`
	Bars       int           `json:"bars"`
}

// CalibrateRanges derives a spot range and annualized realized volatility
// from a series of daily bars, so generated datasets cover the region the
// underlying actually trades in.
func CalibrateRanges(bars []Bar) (Calibration, error) {
	if len(bars) < 2 {
		return Calibration{}, fmt.Errorf("calibration needs at least 2 bars, got %d", len(bars))
	}

	low, high := bars[0].Close, bars[0].Close
	rets := make([]float64, 0, len(bars)-1)
	for i, b := range bars {
		if b.Close <= 0 {
			return Calibration{}, fmt.Errorf("bar %d has non-positive close %v", i, b.Close)
		}
		if b.Close < low {
			low = b.Close
		}
		if b.Close > high {
			high = b.Close
		}
		if i > 0 {
			rets = append(rets, math.Log(b.Close/bars[i-1].Close))
		}
	}

	vol := stat.StdDev(rets, nil) * math.Sqrt(tradingDaysPerYear)
	if !(vol > 0) {
		return Calibration{}, fmt.Errorf("degenerate bar series: realized vol %v", vol)
	}
	if low == high {
		return Calibration{}, fmt.Errorf("degenerate bar series: flat closes at %v", low)
	}

	logger.Debugf("calibrated from %d bars: spot=[%.2f,%.2f] vol=%.4f",
		len(bars), low, high, vol)

	return Calibration{
		SpotRange:  dataset.Range{Min: low, Max: high},
		Volatility: vol,
		Bars:       len(bars),
	}, nil
}
