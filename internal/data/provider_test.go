package data

import (
	"testing"
	"time"
)

var (
	from = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to   = time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
)

func TestSyntheticBarsDeterministic(t *testing.T) {
	a, err := NewSyntheticProvider(42).GetBars("AAPL", from, to)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewSyntheticProvider(42).GetBars("AAPL", from, to)
	if err != nil {
		t.Fatal(err)
	}

	if len(a) == 0 || len(a) != len(b) {
		t.Fatalf("bad bar counts: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bar %d differs across identically seeded providers", i)
		}
	}

	c, err := NewSyntheticProvider(7).GetBars("AAPL", from, to)
	if err != nil {
		t.Fatal(err)
	}
	if a[0].Close == c[0].Close && a[len(a)-1].Close == c[len(c)-1].Close {
		t.Fatal("different seeds produced identical bars")
	}
}

func TestSyntheticBarsShape(t *testing.T) {
	bars, err := NewSyntheticProvider(1).GetBars("SPY", from, to)
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range bars {
		if wd := b.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Fatalf("bar %d falls on a weekend: %s", i, b.Date)
		}
		if b.High < b.Open || b.High < b.Close || b.Low > b.Open || b.Low > b.Close {
			t.Fatalf("bar %d violates OHLC ordering: %+v", i, b)
		}
		if b.Date.Before(from) || b.Date.After(to) {
			t.Fatalf("bar %d outside requested range: %s", i, b.Date)
		}
	}
}

func TestCalibrateRanges(t *testing.T) {
	bars, err := NewSyntheticProvider(42).GetBars("AAPL", from, to)
	if err != nil {
		t.Fatal(err)
	}

	cal, err := CalibrateRanges(bars)
	if err != nil {
		t.Fatal(err)
	}
	if cal.Bars != len(bars) {
		t.Fatalf("bar count mismatch: %d vs %d", cal.Bars, len(bars))
	}
	if cal.SpotRange.Min >= cal.SpotRange.Max {
		t.Fatalf("degenerate spot range: %+v", cal.SpotRange)
	}
	for i, b := range bars {
		if b.Close < cal.SpotRange.Min || b.Close > cal.SpotRange.Max {
			t.Fatalf("close %d (%f) outside calibrated range %+v", i, b.Close, cal.SpotRange)
		}
	}
	// Generator drifts ~1% daily, so annualized vol should land near
	// 0.01*sqrt(252) ~ 0.16. Allow a wide band.
	if cal.Volatility < 0.05 || cal.Volatility > 0.5 {
		t.Fatalf("implausible realized vol: %f", cal.Volatility)
	}
}

func TestCalibrateRangesRejectsDegenerateInput(t *testing.T) {
	if _, err := CalibrateRanges(nil); err == nil {
		t.Fatal("expected error for empty bars")
	}
	if _, err := CalibrateRanges([]Bar{{Close: 100}}); err == nil {
		t.Fatal("expected error for a single bar")
	}

	flat := []Bar{{Close: 100}, {Close: 100}, {Close: 100}}
	if _, err := CalibrateRanges(flat); err == nil {
		t.Fatal("expected error for flat closes")
	}

	bad := []Bar{{Close: 100}, {Close: -5}}
	if _, err := CalibrateRanges(bad); err == nil {
		t.Fatal("expected error for non-positive close")
	}
}
