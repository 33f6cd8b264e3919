// Package dataset builds reproducible synthetic training sets for the
// option-price surrogate. Parameter vectors are drawn uniformly from
// configured ranges, labelled with the closed-form Black-Scholes price, and
// optionally perturbed with zero-mean Gaussian label noise.
//
// All randomness flows through an explicit seeded source; the package never
// touches process-global generator state, so two generators with different
// seeds cannot interfere with each other.
package dataset

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/contactkeval/option-surrogate/internal/logger"
	"github.com/contactkeval/option-surrogate/internal/pricing"
)

// ErrInvalidConfig reports a generator configuration outside the supported
// domain (non-positive sample count, inverted or degenerate ranges, ...).
var ErrInvalidConfig = errors.New("invalid configuration")

// Range is a closed interval parameters are drawn from. A Range with
// Min == Max is treated as a fixed constant rather than a distribution.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Fixed reports whether the range collapses to a single constant value.
func (r Range) Fixed() bool { return r.Min == r.Max }

// FixedRange is a convenience constructor for a constant parameter.
func FixedRange(v float64) Range { return Range{Min: v, Max: v} }

// FeatureSet selects which drawn parameters become model features. The
// column order within a set is fixed and documented by Columns; generation
// and consumption must agree on it.
type FeatureSet string

const (
	// FeaturesSpotMaturity is the 2-feature variant: (spot, time_to_maturity).
	// Strike, rate and volatility are part of the config, not the features.
	FeaturesSpotMaturity FeatureSet = "spot_maturity"

	// FeaturesFull is the 5-feature variant:
	// (spot, strike, time_to_maturity, risk_free_rate, volatility).
	FeaturesFull FeatureSet = "full"
)

// Columns returns the feature column names in generation order.
func (fs FeatureSet) Columns() []string {
	if fs == FeaturesFull {
		return []string{"spot", "strike", "time_to_maturity", "risk_free_rate", "volatility"}
	}
	return []string{"spot", "time_to_maturity"}
}

// Config describes one synthetic dataset.
type Config struct {
	SampleCount   int        `json:"sample_count"`
	SpotRange     Range      `json:"spot_range"`
	StrikeRange   Range      `json:"strike_range"`   // fixed value or drawn uniformly
	MaturityRange Range      `json:"maturity_range"` // in years, min > 0
	RiskFreeRate  float64    `json:"risk_free_rate"`
	Volatility    float64    `json:"volatility"`
	NoiseStdDev   float64    `json:"noise_std_dev,omitempty"` // 0 = exact labels
	Seed          uint64     `json:"seed,omitempty"`
	Features      FeatureSet `json:"features,omitempty"` // default spot_maturity
}

// Validate checks the configuration without generating anything.
func (cfg *Config) Validate() error {
	switch {
	case cfg.SampleCount <= 0:
		return fmt.Errorf("%w: sample_count must be > 0, got %d", ErrInvalidConfig, cfg.SampleCount)
	case cfg.SpotRange.Min <= 0 || cfg.SpotRange.Min >= cfg.SpotRange.Max:
		return fmt.Errorf("%w: spot_range must satisfy 0 < min < max, got [%v,%v]",
			ErrInvalidConfig, cfg.SpotRange.Min, cfg.SpotRange.Max)
	case cfg.StrikeRange.Min <= 0 || cfg.StrikeRange.Min > cfg.StrikeRange.Max:
		return fmt.Errorf("%w: strike_range must satisfy 0 < min <= max, got [%v,%v]",
			ErrInvalidConfig, cfg.StrikeRange.Min, cfg.StrikeRange.Max)
	case cfg.MaturityRange.Min <= 0 || cfg.MaturityRange.Min >= cfg.MaturityRange.Max:
		return fmt.Errorf("%w: maturity_range must satisfy 0 < min < max, got [%v,%v]",
			ErrInvalidConfig, cfg.MaturityRange.Min, cfg.MaturityRange.Max)
	case cfg.Volatility <= 0:
		return fmt.Errorf("%w: volatility must be > 0, got %v", ErrInvalidConfig, cfg.Volatility)
	case cfg.NoiseStdDev < 0:
		return fmt.Errorf("%w: noise_std_dev must be >= 0, got %v", ErrInvalidConfig, cfg.NoiseStdDev)
	}
	switch cfg.Features {
	case "", FeaturesSpotMaturity, FeaturesFull:
	default:
		return fmt.Errorf("%w: unknown feature set %q", ErrInvalidConfig, cfg.Features)
	}
	return nil
}

func (cfg *Config) featureSet() FeatureSet {
	if cfg.Features == "" {
		return FeaturesSpotMaturity
	}
	return cfg.Features
}

// Dataset holds one generated batch as parallel feature matrix and label
// vector. Labels are theoretical call prices, noisy if configured.
type Dataset struct {
	Features *mat.Dense
	Labels   *mat.VecDense
	Columns  []string
}

// Len returns the number of samples.
func (ds *Dataset) Len() int {
	r, _ := ds.Features.Dims()
	return r
}

// Row returns the i-th feature vector (a view, do not mutate).
func (ds *Dataset) Row(i int) []float64 { return ds.Features.RawRowView(i) }

// Label returns the i-th label.
func (ds *Dataset) Label(i int) float64 { return ds.Labels.AtVec(i) }

// Generate draws cfg.SampleCount parameter vectors, prices each one with the
// Black-Scholes oracle, and returns the labelled batch. Given the same seed
// and configuration the output is bit-for-bit identical across invocations.
func Generate(cfg Config) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	src := rand.NewSource(cfg.Seed)
	spotU := distuv.Uniform{Min: cfg.SpotRange.Min, Max: cfg.SpotRange.Max, Src: src}
	strikeU := distuv.Uniform{Min: cfg.StrikeRange.Min, Max: cfg.StrikeRange.Max, Src: src}
	matU := distuv.Uniform{Min: cfg.MaturityRange.Min, Max: cfg.MaturityRange.Max, Src: src}
	noise := distuv.Normal{Mu: 0, Sigma: cfg.NoiseStdDev, Src: src}

	fs := cfg.featureSet()
	cols := fs.Columns()

	n := cfg.SampleCount
	features := mat.NewDense(n, len(cols), nil)
	labels := mat.NewVecDense(n, nil)

	logger.Debugf("generating %d samples (features=%s noise=%g seed=%d)",
		n, fs, cfg.NoiseStdDev, cfg.Seed)

	for i := 0; i < n; i++ {
		// Per-row draw order is fixed: spot, strike (when ranged),
		// maturity, then label noise. Changing it breaks seeded
		// reproducibility for downstream consumers.
		spot := spotU.Rand()
		strike := cfg.StrikeRange.Min
		if !cfg.StrikeRange.Fixed() {
			strike = strikeU.Rand()
		}
		ttm := matU.Rand()

		label, err := pricing.Price(pricing.Call, spot, strike, ttm, cfg.RiskFreeRate, cfg.Volatility)
		if err != nil {
			return nil, fmt.Errorf("pricing sample %d: %w", i, err)
		}
		if cfg.NoiseStdDev > 0 {
			label += noise.Rand()
		}

		switch fs {
		case FeaturesFull:
			features.SetRow(i, []float64{spot, strike, ttm, cfg.RiskFreeRate, cfg.Volatility})
		default:
			features.SetRow(i, []float64{spot, ttm})
		}
		labels.SetVec(i, label)
	}

	return &Dataset{Features: features, Labels: labels, Columns: cols}, nil
}

// Split partitions the dataset into train and test subsets, shuffling rows
// with the given seed. testFrac is the fraction held out, in (0,1); both
// sides are guaranteed at least one row.
func (ds *Dataset) Split(testFrac float64, seed uint64) (train, test *Dataset, err error) {
	n := ds.Len()
	if testFrac <= 0 || testFrac >= 1 {
		return nil, nil, fmt.Errorf("%w: test fraction must be in (0,1), got %v", ErrInvalidConfig, testFrac)
	}
	nTest := int(float64(n) * testFrac)
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n {
		return nil, nil, fmt.Errorf("%w: %d samples is too few to hold out %v", ErrInvalidConfig, n, testFrac)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	train = ds.subset(perm[:n-nTest])
	test = ds.subset(perm[n-nTest:])
	return train, test, nil
}

func (ds *Dataset) subset(idx []int) *Dataset {
	_, c := ds.Features.Dims()
	out := &Dataset{
		Features: mat.NewDense(len(idx), c, nil),
		Labels:   mat.NewVecDense(len(idx), nil),
		Columns:  ds.Columns,
	}
	for i, j := range idx {
		out.Features.SetRow(i, ds.Row(j))
		out.Labels.SetVec(i, ds.Label(j))
	}
	return out
}
