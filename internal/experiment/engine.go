// Package experiment wires the pricing oracle, dataset generator and
// surrogate trainer into one runnable experiment: optionally calibrate
// generator ranges from market bars, generate a labelled dataset, train the
// network, and score it against the closed-form prices on a holdout set.
package experiment

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/contactkeval/option-surrogate/internal/data"
	"github.com/contactkeval/option-surrogate/internal/dataset"
	"github.com/contactkeval/option-surrogate/internal/logger"
	"github.com/contactkeval/option-surrogate/internal/pricing"
	"github.com/contactkeval/option-surrogate/internal/surrogate"
)

// Config is the top-level experiment configuration, loaded from JSON.
type Config struct {
	Underlying    string           `json:"underlying,omitempty"`     // e.g. "AAPL", used when calibrating
	Data          dataset.Config   `json:"data"`                     // sample generator settings
	Model         surrogate.Config `json:"model"`                    // network and training settings
	HoldoutFrac   float64          `json:"holdout_frac,omitempty"`   // test fraction, default 0.2
	Calibrate     bool             `json:"calibrate,omitempty"`      // derive spot range/vol from bars
	CalibrateDays int              `json:"calibrate_days,omitempty"` // lookback window, default 252
	ReportDir     string           `json:"report_dir,omitempty"`     // output directory
	Verbosity     int              `json:"verbosity,omitempty"`      // 0=errors,1=info,2=debug,3=trace
}

// ComparisonRow pairs the oracle price with the surrogate prediction for one
// holdout sample. Rows are the data behind prediction-vs-theory plots.
type ComparisonRow struct {
	Spot           float64 `json:"spot"`
	Strike         float64 `json:"strike"`
	TimeToMaturity float64 `json:"time_to_maturity"`
	Theoretical    float64 `json:"theoretical"`
	Predicted      float64 `json:"predicted"`
	AbsError       float64 `json:"abs_error"`
}

// Result is the outcome of one experiment run.
type Result struct {
	Calibration *data.Calibration `json:"calibration,omitempty"`
	History     []float64         `json:"history"` // per-epoch training MSE
	TrainMSE    float64           `json:"train_mse"`
	TestMSE     float64           `json:"test_mse"`
	MaxAbsError float64           `json:"max_abs_error"`
	Comparison  []ComparisonRow   `json:"comparison"`
}

// Engine runs experiments against a fixed config and data provider.
type Engine struct {
	cfg  *Config
	prov data.Provider
}

func NewEngine(cfg *Config, prov data.Provider) *Engine {
	return &Engine{cfg: cfg, prov: prov}
}

// Run executes the experiment: calibrate -> generate -> split -> fit ->
// evaluate. The returned Result carries everything the report writers need.
func (e *Engine) Run() (*Result, error) {
	cfg := e.cfg
	logger.SetVerbosity(cfg.Verbosity)

	res := &Result{}
	dataCfg := cfg.Data

	if cfg.Calibrate {
		cal, err := e.calibrate()
		if err != nil {
			return nil, fmt.Errorf("calibration: %w", err)
		}
		logger.Infof("calibrated %s: spot=[%.2f,%.2f] vol=%.4f",
			cfg.Underlying, cal.SpotRange.Min, cal.SpotRange.Max, cal.Volatility)
		dataCfg.SpotRange = cal.SpotRange
		dataCfg.Volatility = cal.Volatility
		res.Calibration = &cal
	}

	ds, err := dataset.Generate(dataCfg)
	if err != nil {
		return nil, fmt.Errorf("generating dataset: %w", err)
	}

	holdout := cfg.HoldoutFrac
	if holdout == 0 {
		holdout = 0.2
	}
	train, test, err := ds.Split(holdout, dataCfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("splitting dataset: %w", err)
	}

	net := surrogate.New(cfg.Model)
	res.History, err = net.Fit(train)
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}

	if res.TrainMSE, err = net.Evaluate(train); err != nil {
		return nil, err
	}
	if res.TestMSE, err = net.Evaluate(test); err != nil {
		return nil, err
	}

	res.Comparison, res.MaxAbsError, err = e.compare(net, test, dataCfg)
	if err != nil {
		return nil, err
	}

	logger.Infof("experiment done: train_mse=%g test_mse=%g max_abs_err=%g",
		res.TrainMSE, res.TestMSE, res.MaxAbsError)
	return res, nil
}

func (e *Engine) calibrate() (data.Calibration, error) {
	if e.prov == nil {
		return data.Calibration{}, fmt.Errorf("no data provider configured")
	}
	days := e.cfg.CalibrateDays
	if days == 0 {
		days = 252
	}
	to := time.Now()
	from := to.AddDate(0, 0, -days)

	bars, err := e.prov.GetBars(e.cfg.Underlying, from, to)
	if err != nil {
		return data.Calibration{}, err
	}
	return data.CalibrateRanges(bars)
}

// compare builds the prediction-vs-theory table over the holdout set,
// sorted by spot so the rows chart cleanly. The theoretical column is
// recomputed from the oracle rather than taken from the labels, so it stays
// exact even when the labels carry training noise.
func (e *Engine) compare(net *surrogate.Network, test *dataset.Dataset, dataCfg dataset.Config) ([]ComparisonRow, float64, error) {
	spotIdx, strikeIdx, ttmIdx, rateIdx, volIdx := -1, -1, -1, -1, -1
	for j, col := range test.Columns {
		switch col {
		case "spot":
			spotIdx = j
		case "strike":
			strikeIdx = j
		case "time_to_maturity":
			ttmIdx = j
		case "risk_free_rate":
			rateIdx = j
		case "volatility":
			volIdx = j
		}
	}
	if spotIdx < 0 || ttmIdx < 0 {
		return nil, 0, fmt.Errorf("dataset lacks spot/maturity columns: %v", test.Columns)
	}

	rows := make([]ComparisonRow, 0, test.Len())
	var maxErr float64
	for i := 0; i < test.Len(); i++ {
		feat := test.Row(i)
		pred, err := net.Predict(feat)
		if err != nil {
			return nil, 0, err
		}

		// Parameters absent from the feature set are config constants.
		strike := dataCfg.StrikeRange.Min // fixed-strike variants
		if strikeIdx >= 0 {
			strike = feat[strikeIdx]
		}
		rate := dataCfg.RiskFreeRate
		if rateIdx >= 0 {
			rate = feat[rateIdx]
		}
		vol := dataCfg.Volatility
		if volIdx >= 0 {
			vol = feat[volIdx]
		}

		theoretical, err := pricing.Price(pricing.Call, feat[spotIdx], strike, feat[ttmIdx], rate, vol)
		if err != nil {
			return nil, 0, fmt.Errorf("pricing comparison row %d: %w", i, err)
		}

		row := ComparisonRow{
			Spot:           feat[spotIdx],
			Strike:         strike,
			TimeToMaturity: feat[ttmIdx],
			Theoretical:    theoretical,
			Predicted:      pred,
			AbsError:       math.Abs(pred - theoretical),
		}
		if row.AbsError > maxErr {
			maxErr = row.AbsError
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Spot < rows[j].Spot })
	return rows, maxErr, nil
}
