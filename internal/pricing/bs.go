// Package pricing implements the closed-form Black-Scholes valuation for
// European options. It is the single pricing oracle for the whole module:
// dataset generation, surrogate evaluation, and the quote endpoint all call
// into this package so the formula exists exactly once.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvalidParameter reports an input outside the domain of the
// Black-Scholes formula. Spot, strike, time to expiry and volatility must
// all be strictly positive; the formula divides by sigma*sqrt(T) and is
// undefined at zero.
var ErrInvalidParameter = errors.New("invalid parameter")

// OptionType selects the contract side being priced.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// Validate checks the Black-Scholes input domain. It is exported so callers
// that build many prices from the same parameter set (e.g. the dataset
// generator) can reject bad configuration up front.
func Validate(S, K, T, sigma float64) error {
	switch {
	case !(S > 0) || math.IsInf(S, 0):
		return fmt.Errorf("%w: spot must be > 0, got %v", ErrInvalidParameter, S)
	case !(K > 0) || math.IsInf(K, 0):
		return fmt.Errorf("%w: strike must be > 0, got %v", ErrInvalidParameter, K)
	case !(T > 0) || math.IsInf(T, 0):
		return fmt.Errorf("%w: time to expiry must be > 0, got %v", ErrInvalidParameter, T)
	case !(sigma > 0) || math.IsInf(sigma, 0):
		return fmt.Errorf("%w: volatility must be > 0, got %v", ErrInvalidParameter, sigma)
	}
	return nil
}

// Price calculates the Black-Scholes price of a European option.
//
// Parameters:
//   - optType: Call or Put
//   - S: spot price of the underlying asset
//   - K: strike price of the option
//   - T: time to expiry in years
//   - r: risk-free interest rate (annual)
//   - sigma: volatility of the underlying asset (annual, as a decimal)
//
// Inputs violating S > 0, K > 0, T > 0 or sigma > 0 return
// ErrInvalidParameter instead of silently producing NaN/Inf.
func Price(optType OptionType, S, K, T, r, sigma float64) (float64, error) {
	if err := Validate(S, K, T, sigma); err != nil {
		return 0, err
	}

	d1, d2 := dValues(S, K, T, r, sigma)

	switch optType {
	case Call:
		return S*normCDF(d1) - K*math.Exp(-r*T)*normCDF(d2), nil
	case Put:
		return K*math.Exp(-r*T)*normCDF(-d2) - S*normCDF(-d1), nil
	}
	return 0, fmt.Errorf("%w: unknown option type %q", ErrInvalidParameter, optType)
}

// Intrinsic returns the exercise value of the option, the T -> 0 limit of
// Price for in- and out-of-the-money contracts.
func Intrinsic(optType OptionType, S, K float64) float64 {
	if optType == Put {
		return math.Max(0, K-S)
	}
	return math.Max(0, S-K)
}

// Delta returns the sensitivity of the option price to the spot price.
func Delta(optType OptionType, S, K, T, r, sigma float64) (float64, error) {
	if err := Validate(S, K, T, sigma); err != nil {
		return 0, err
	}
	d1, _ := dValues(S, K, T, r, sigma)
	if optType == Put {
		return normCDF(d1) - 1, nil
	}
	return normCDF(d1), nil
}

// Vega returns the sensitivity of the option price to volatility. Calls and
// puts share the same vega.
func Vega(S, K, T, r, sigma float64) (float64, error) {
	if err := Validate(S, K, T, sigma); err != nil {
		return 0, err
	}
	d1, _ := dValues(S, K, T, r, sigma)
	return S * distuv.UnitNormal.Prob(d1) * math.Sqrt(T), nil
}

// ImpliedVol solves for the volatility that reproduces marketPrice under the
// Black-Scholes model, using Newton-Raphson on vega.
//
// Returns an error if the inputs are invalid or the iteration does not
// converge (e.g. the market price violates no-arbitrage bounds).
func ImpliedVol(optType OptionType, S, K, T, r, marketPrice float64) (float64, error) {
	// Initial guess: 20%
	sigma := 0.20

	if err := Validate(S, K, T, sigma); err != nil {
		return 0, err
	}
	if marketPrice <= 0 {
		return 0, fmt.Errorf("%w: market price must be > 0, got %v", ErrInvalidParameter, marketPrice)
	}

	const (
		maxIter = 100
		tol     = 1e-6
	)

	for i := 0; i < maxIter; i++ {
		price, err := Price(optType, S, K, T, r, sigma)
		if err != nil {
			return 0, err
		}
		diff := price - marketPrice
		if math.Abs(diff) < tol {
			return sigma, nil
		}

		vega, err := Vega(S, K, T, r, sigma)
		if err != nil {
			return 0, err
		}
		if vega < 1e-8 {
			break
		}

		sigma -= diff / vega

		// Guardrails
		if sigma <= 0 {
			sigma = 1e-4
		}
		if sigma > 5 {
			sigma = 5
		}
	}

	return 0, errors.New("implied vol did not converge")
}

// dValues computes the d1/d2 terms shared by the price and greek formulas.
// Callers must have validated the inputs.
func dValues(S, K, T, r, sigma float64) (d1, d2 float64) {
	sqrtT := sigma * math.Sqrt(T)
	d1 = (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / sqrtT
	d2 = d1 - sqrtT
	return d1, d2
}

// normCDF is the standard normal cumulative distribution function,
// erf-based via gonum. Accurate across the full range, which matters for
// prices near the money.
func normCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}
