// Package data supplies daily price bars used to calibrate the synthetic
// dataset generator against observed market behavior. Providers are
// chainable: a provider with no answer delegates to its secondary.
package data

import (
	"time"
)

// Provider supplies daily market bars for an underlying.
type Provider interface {
	// GetBars returns time-ordered daily bars in [fromDate, toDate].
	GetBars(underlying string, fromDate, toDate time.Time) ([]Bar, error)

	// Secondary returns the fallback provider, if any.
	Secondary() Provider
}

// Bar is a simplified daily OHLCV record.
type Bar struct {
	Date  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
	Vol   float64
}
