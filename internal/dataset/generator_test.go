package dataset

import (
	"errors"
	"math"
	"testing"

	"github.com/contactkeval/option-surrogate/internal/pricing"
)

func baseConfig() Config {
	return Config{
		SampleCount:   5,
		SpotRange:     Range{Min: 80, Max: 120},
		StrikeRange:   FixedRange(100),
		MaturityRange: Range{Min: 0.1, Max: 1},
		RiskFreeRate:  0.05,
		Volatility:    0.2,
		Seed:          42,
	}
}

func TestGenerateShape(t *testing.T) {
	ds, err := Generate(baseConfig())
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 5 {
		t.Fatalf("expected 5 rows, got %d", ds.Len())
	}
	r, c := ds.Features.Dims()
	if r != 5 || c != 2 {
		t.Fatalf("expected 5x2 feature matrix, got %dx%d", r, c)
	}
	if len(ds.Columns) != 2 || ds.Columns[0] != "spot" || ds.Columns[1] != "time_to_maturity" {
		t.Fatalf("unexpected columns: %v", ds.Columns)
	}
}

func TestGenerateWithinRanges(t *testing.T) {
	cfg := baseConfig()
	cfg.SampleCount = 500
	ds, err := Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < ds.Len(); i++ {
		row := ds.Row(i)
		if row[0] < 80 || row[0] > 120 {
			t.Fatalf("row %d: spot %f outside [80,120]", i, row[0])
		}
		if row[1] < 0.1 || row[1] > 1 {
			t.Fatalf("row %d: maturity %f outside [0.1,1]", i, row[1])
		}
	}
}

// Same seed and config: bit-for-bit identical output.
func TestGenerateReproducible(t *testing.T) {
	cfg := baseConfig()
	cfg.SampleCount = 100
	cfg.NoiseStdDev = 0.5

	a, err := Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < a.Len(); i++ {
		ra, rb := a.Row(i), b.Row(i)
		for j := range ra {
			if ra[j] != rb[j] {
				t.Fatalf("feature mismatch at (%d,%d): %v != %v", i, j, ra[j], rb[j])
			}
		}
		if a.Label(i) != b.Label(i) {
			t.Fatalf("label mismatch at %d: %v != %v", i, a.Label(i), b.Label(i))
		}
	}
}

func TestGenerateDifferentSeedsDiffer(t *testing.T) {
	cfg := baseConfig()
	a, _ := Generate(cfg)
	cfg.Seed = 43
	b, _ := Generate(cfg)

	same := true
	for i := 0; i < a.Len(); i++ {
		if a.Label(i) != b.Label(i) {
			same = false
		}
	}
	if same {
		t.Fatal("different seeds produced identical labels")
	}
}

// With zero noise, labels equal the oracle applied row-wise.
func TestGenerateLabelsMatchOracle(t *testing.T) {
	cfg := baseConfig()
	ds, err := Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < ds.Len(); i++ {
		row := ds.Row(i)
		want, err := pricing.Price(pricing.Call, row[0], 100, row[1], cfg.RiskFreeRate, cfg.Volatility)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(ds.Label(i)-want) > 1e-12 {
			t.Fatalf("row %d: label=%v oracle=%v", i, ds.Label(i), want)
		}
	}
}

func TestGenerateRangedStrike(t *testing.T) {
	cfg := baseConfig()
	cfg.SampleCount = 200
	cfg.StrikeRange = Range{Min: 90, Max: 110}
	cfg.Features = FeaturesFull

	ds, err := Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	_, c := ds.Features.Dims()
	if c != 5 {
		t.Fatalf("expected 5 feature columns, got %d", c)
	}

	varied := false
	first := ds.Row(0)[1]
	for i := 0; i < ds.Len(); i++ {
		row := ds.Row(i)
		if row[1] < 90 || row[1] > 110 {
			t.Fatalf("row %d: strike %f outside [90,110]", i, row[1])
		}
		if row[1] != first {
			varied = true
		}
		// Constant columns carry the configured scalars.
		if row[3] != cfg.RiskFreeRate || row[4] != cfg.Volatility {
			t.Fatalf("row %d: rate/vol columns corrupted: %v", i, row)
		}
	}
	if !varied {
		t.Fatal("ranged strike never varied across 200 samples")
	}
}

// Noisy labels stay centred on the oracle price.
func TestGenerateNoiseIsZeroMean(t *testing.T) {
	cfg := baseConfig()
	cfg.SampleCount = 5000
	cfg.NoiseStdDev = 1.0

	ds, err := Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for i := 0; i < ds.Len(); i++ {
		row := ds.Row(i)
		exact, err := pricing.Price(pricing.Call, row[0], 100, row[1], cfg.RiskFreeRate, cfg.Volatility)
		if err != nil {
			t.Fatal(err)
		}
		sum += ds.Label(i) - exact
	}
	mean := sum / float64(ds.Len())
	// stderr of the mean is 1/sqrt(5000) ~ 0.014; 5 sigma bound
	if math.Abs(mean) > 0.07 {
		t.Fatalf("noise mean too far from zero: %f", mean)
	}
}

func TestGenerateInvalidConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero samples", func(c *Config) { c.SampleCount = 0 }},
		{"negative samples", func(c *Config) { c.SampleCount = -3 }},
		{"inverted spot range", func(c *Config) { c.SpotRange = Range{Min: 120, Max: 80} }},
		{"degenerate spot range", func(c *Config) { c.SpotRange = Range{Min: 100, Max: 100} }},
		{"non-positive spot", func(c *Config) { c.SpotRange = Range{Min: 0, Max: 100} }},
		{"inverted strike range", func(c *Config) { c.StrikeRange = Range{Min: 110, Max: 90} }},
		{"zero maturity min", func(c *Config) { c.MaturityRange = Range{Min: 0, Max: 1} }},
		{"zero volatility", func(c *Config) { c.Volatility = 0 }},
		{"negative noise", func(c *Config) { c.NoiseStdDev = -0.1 }},
		{"unknown feature set", func(c *Config) { c.Features = "surface" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			tc.mutate(&cfg)
			if _, err := Generate(cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	cfg := baseConfig()
	cfg.SampleCount = 100
	ds, err := Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}

	train, test, err := ds.Split(0.2, 7)
	if err != nil {
		t.Fatal(err)
	}
	if train.Len() != 80 || test.Len() != 20 {
		t.Fatalf("expected 80/20 split, got %d/%d", train.Len(), test.Len())
	}

	// Same seed gives the same partition.
	train2, _, err := ds.Split(0.2, 7)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < train.Len(); i++ {
		if train.Label(i) != train2.Label(i) {
			t.Fatalf("split not deterministic at row %d", i)
		}
	}

	if _, _, err := ds.Split(1.5, 7); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for frac=1.5, got %v", err)
	}
}
