// Package surrogate trains a small feed-forward network to approximate the
// Black-Scholes pricing oracle from a generated dataset. The network is a
// plain dense stack with a linear output, trained with mini-batch Adam on
// mean squared error.
//
// Features and labels are standardized internally from the training set;
// Predict accepts and returns values in the original units.
package surrogate

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/contactkeval/option-surrogate/internal/dataset"
	"github.com/contactkeval/option-surrogate/internal/logger"
)

// ErrNotTrained is returned by Predict and Evaluate before Fit has run.
var ErrNotTrained = errors.New("network has not been trained")

// ErrBadConfig reports an unusable trainer configuration.
var ErrBadConfig = errors.New("invalid trainer configuration")

// Activation names a hidden-layer nonlinearity.
type Activation string

const (
	Tanh    Activation = "tanh"
	ReLU    Activation = "relu"
	Sigmoid Activation = "sigmoid"
)

// Adam hyperparameters, standard values.
const (
	beta1   = 0.9
	beta2   = 0.999
	adamEps = 1e-8
)

// Config describes the network shape and training schedule. Zero values
// fall back to defaults: two 32-unit tanh layers, lr 0.01, 200 epochs,
// batch size 32.
type Config struct {
	Hidden       []int      `json:"hidden,omitempty"`
	Activation   Activation `json:"activation,omitempty"`
	LearningRate float64    `json:"learning_rate,omitempty"`
	Epochs       int        `json:"epochs,omitempty"`
	BatchSize    int        `json:"batch_size,omitempty"`
	Seed         uint64     `json:"seed,omitempty"`
}

func (cfg Config) withDefaults() Config {
	if len(cfg.Hidden) == 0 {
		cfg.Hidden = []int{32, 32}
	}
	if cfg.Activation == "" {
		cfg.Activation = Tanh
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.01
	}
	if cfg.Epochs == 0 {
		cfg.Epochs = 200
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 32
	}
	return cfg
}

func (cfg Config) validate() error {
	for _, h := range cfg.Hidden {
		if h <= 0 {
			return fmt.Errorf("%w: hidden layer size must be > 0, got %d", ErrBadConfig, h)
		}
	}
	switch cfg.Activation {
	case Tanh, ReLU, Sigmoid:
	default:
		return fmt.Errorf("%w: unknown activation %q", ErrBadConfig, cfg.Activation)
	}
	if cfg.LearningRate < 0 || cfg.Epochs < 0 || cfg.BatchSize < 0 {
		return fmt.Errorf("%w: negative learning_rate/epochs/batch_size", ErrBadConfig)
	}
	return nil
}

// Network is a dense feed-forward regressor. Construct with New, train with
// Fit. Not safe for concurrent use while training.
type Network struct {
	cfg    Config
	layers []*denseLayer
	inDim  int
	step   int // adam time step

	inMean, inStd   []float64
	outMean, outStd float64
}

// denseLayer holds weights, Adam state and per-sample scratch for one layer.
// Weight rows are output units, columns input units.
type denseLayer struct {
	in, out int
	w       *mat.Dense
	b       []float64

	gw *mat.Dense // accumulated batch gradients
	gb []float64

	mw, vw *mat.Dense // adam moments
	mb, vb []float64

	z, a, delta []float64 // forward/backward scratch
	hidden      bool      // output layer is linear
}

// New builds an untrained network. Layer dimensions are fixed on the first
// call to Fit, when the input width is known.
func New(cfg Config) *Network {
	return &Network{cfg: cfg.withDefaults()}
}

func newDenseLayer(in, out int, hidden bool, rng *rand.Rand) *denseLayer {
	l := &denseLayer{
		in: in, out: out,
		w:  mat.NewDense(out, in, nil),
		b:  make([]float64, out),
		gw: mat.NewDense(out, in, nil),
		gb: make([]float64, out),
		mw: mat.NewDense(out, in, nil),
		vw: mat.NewDense(out, in, nil),
		mb: make([]float64, out),
		vb: make([]float64, out),

		z:      make([]float64, out),
		a:      make([]float64, out),
		delta:  make([]float64, out),
		hidden: hidden,
	}
	// Scaled normal init keeps pre-activations O(1) regardless of width.
	scale := 1 / math.Sqrt(float64(in))
	for i := 0; i < out; i++ {
		row := l.w.RawRowView(i)
		for j := range row {
			row[j] = rng.NormFloat64() * scale
		}
	}
	return l
}

// Fit trains the network on ds and returns the per-epoch training MSE in
// label units (the loss-curve data). Calling Fit again retrains from
// scratch with the same seed.
func (n *Network) Fit(ds *dataset.Dataset) ([]float64, error) {
	if err := n.cfg.validate(); err != nil {
		return nil, err
	}
	if ds == nil || ds.Len() == 0 {
		return nil, fmt.Errorf("%w: empty dataset", ErrBadConfig)
	}

	nRows, inDim := ds.Features.Dims()
	n.inDim = inDim
	n.fitScaling(ds)

	rng := rand.New(rand.NewSource(n.cfg.Seed))
	n.step = 0
	n.layers = nil
	sizes := append([]int{inDim}, n.cfg.Hidden...)
	sizes = append(sizes, 1)
	for k := 0; k+1 < len(sizes); k++ {
		hidden := k+2 < len(sizes)
		n.layers = append(n.layers, newDenseLayer(sizes[k], sizes[k+1], hidden, rng))
	}

	// Standardize once up front.
	xs := make([][]float64, nRows)
	ys := make([]float64, nRows)
	for i := 0; i < nRows; i++ {
		xs[i] = n.standardize(ds.Row(i), make([]float64, inDim))
		ys[i] = (ds.Label(i) - n.outMean) / n.outStd
	}

	logger.Infof("training surrogate: %d samples, layers=%v, epochs=%d",
		nRows, sizes, n.cfg.Epochs)

	history := make([]float64, 0, n.cfg.Epochs)
	batch := n.cfg.BatchSize
	if batch > nRows {
		batch = nRows
	}

	for epoch := 0; epoch < n.cfg.Epochs; epoch++ {
		perm := rng.Perm(nRows)
		var sse float64

		for start := 0; start < nRows; start += batch {
			end := start + batch
			if end > nRows {
				end = nRows
			}
			n.zeroGrads()
			for _, idx := range perm[start:end] {
				resid := n.backprop(xs[idx], ys[idx])
				residRaw := resid * n.outStd
				sse += residRaw * residRaw
			}
			n.adamStep(end - start)
		}

		mse := sse / float64(nRows)
		history = append(history, mse)
		logger.Tracef("epoch %d/%d mse=%g", epoch+1, n.cfg.Epochs, mse)
	}

	if len(history) > 0 {
		logger.Infof("training finished: mse %g -> %g", history[0], history[len(history)-1])
	}
	return history, nil
}

// Predict returns the surrogate price for one feature vector, in label
// units. The vector must use the column order the training dataset used.
func (n *Network) Predict(features []float64) (float64, error) {
	if n.layers == nil {
		return 0, ErrNotTrained
	}
	if len(features) != n.inDim {
		return 0, fmt.Errorf("%w: expected %d features, got %d", ErrBadConfig, n.inDim, len(features))
	}
	x := n.standardize(features, make([]float64, n.inDim))
	return n.forward(x)*n.outStd + n.outMean, nil
}

// Evaluate returns the mean squared error of the surrogate over ds.
func (n *Network) Evaluate(ds *dataset.Dataset) (float64, error) {
	if n.layers == nil {
		return 0, ErrNotTrained
	}
	if ds == nil || ds.Len() == 0 {
		return 0, fmt.Errorf("%w: empty dataset", ErrBadConfig)
	}
	var sse float64
	for i := 0; i < ds.Len(); i++ {
		pred, err := n.Predict(ds.Row(i))
		if err != nil {
			return 0, err
		}
		d := pred - ds.Label(i)
		sse += d * d
	}
	return sse / float64(ds.Len()), nil
}

func (n *Network) fitScaling(ds *dataset.Dataset) {
	_, cols := ds.Features.Dims()
	n.inMean = make([]float64, cols)
	n.inStd = make([]float64, cols)
	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, ds.Features)
		m, s := stat.MeanStdDev(col, nil)
		if s == 0 || math.IsNaN(s) {
			s = 1 // constant column (fixed strike, rate, vol)
		}
		n.inMean[j], n.inStd[j] = m, s
	}
	m, s := stat.MeanStdDev(ds.Labels.RawVector().Data, nil)
	if s == 0 || math.IsNaN(s) {
		s = 1
	}
	n.outMean, n.outStd = m, s
}

func (n *Network) standardize(in, dst []float64) []float64 {
	for j := range in {
		dst[j] = (in[j] - n.inMean[j]) / n.inStd[j]
	}
	return dst
}

// forward runs the network on a standardized input and returns the
// standardized output. Layer scratch holds the activations afterwards.
func (n *Network) forward(x []float64) float64 {
	cur := x
	for _, l := range n.layers {
		for i := 0; i < l.out; i++ {
			z := l.b[i] + floats.Dot(l.w.RawRowView(i), cur)
			l.z[i] = z
			if l.hidden {
				l.a[i] = activate(n.cfg.Activation, z)
			} else {
				l.a[i] = z
			}
		}
		cur = l.a
	}
	return cur[0]
}

// backprop runs one forward/backward pass for a single standardized sample
// and accumulates gradients into the layers. Returns the standardized
// residual pred - y.
func (n *Network) backprop(x []float64, y float64) float64 {
	pred := n.forward(x)
	resid := pred - y

	// Output layer is linear, so its delta is just the residual
	// (0.5*(pred-y)^2 loss convention).
	last := len(n.layers) - 1
	n.layers[last].delta[0] = resid

	for k := last; k >= 0; k-- {
		l := n.layers[k]
		var aPrev []float64
		if k == 0 {
			aPrev = x
		} else {
			aPrev = n.layers[k-1].a
		}

		for i := 0; i < l.out; i++ {
			dz := l.delta[i]
			if l.hidden {
				dz *= activateGrad(n.cfg.Activation, l.z[i], l.a[i])
				l.delta[i] = dz
			}
			floats.AddScaled(l.gw.RawRowView(i), dz, aPrev)
			l.gb[i] += dz
		}

		if k > 0 {
			prev := n.layers[k-1].delta
			for j := range prev {
				prev[j] = 0
			}
			for i := 0; i < l.out; i++ {
				floats.AddScaled(prev, l.delta[i], l.w.RawRowView(i))
			}
		}
	}
	return resid
}

func (n *Network) zeroGrads() {
	for _, l := range n.layers {
		data := l.gw.RawMatrix().Data
		for i := range data {
			data[i] = 0
		}
		for i := range l.gb {
			l.gb[i] = 0
		}
	}
}

// adamStep applies one Adam update from the accumulated batch gradients.
func (n *Network) adamStep(batchSize int) {
	n.step++
	scale := 1 / float64(batchSize)
	c1 := 1 - math.Pow(beta1, float64(n.step))
	c2 := 1 - math.Pow(beta2, float64(n.step))
	for _, l := range n.layers {
		adamUpdate(l.w.RawMatrix().Data, l.gw.RawMatrix().Data,
			l.mw.RawMatrix().Data, l.vw.RawMatrix().Data,
			scale, n.cfg.LearningRate, c1, c2)
		adamUpdate(l.b, l.gb, l.mb, l.vb, scale, n.cfg.LearningRate, c1, c2)
	}
}

func adamUpdate(w, g, m, v []float64, scale, lr, c1, c2 float64) {
	for i := range w {
		gi := g[i] * scale
		m[i] = beta1*m[i] + (1-beta1)*gi
		v[i] = beta2*v[i] + (1-beta2)*gi*gi
		w[i] -= lr * (m[i] / c1) / (math.Sqrt(v[i]/c2) + adamEps)
	}
}

func activate(a Activation, z float64) float64 {
	switch a {
	case ReLU:
		return math.Max(0, z)
	case Sigmoid:
		return 1 / (1 + math.Exp(-z))
	default:
		return math.Tanh(z)
	}
}

// activateGrad is the derivative of the activation, written in terms of
// whichever of z or the activation output is cheapest.
func activateGrad(a Activation, z, out float64) float64 {
	switch a {
	case ReLU:
		if z > 0 {
			return 1
		}
		return 0
	case Sigmoid:
		return out * (1 - out)
	default:
		return 1 - out*out
	}
}
