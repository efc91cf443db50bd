// Package montecarlo simulates geometric Brownian motion price paths.
package montecarlo

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"
	"sync"
)

const (
	// DefaultDays is the default path length, the start row included.
	DefaultDays = 30
	// DefaultTrials is the default number of simulated paths.
	DefaultTrials = 50000

	// chunkSize is the number of trial columns that share one random stream.
	chunkSize = 1024
)

// ErrInvalidParameter is returned when a simulation input is out of range.
var ErrInvalidParameter = errors.New("invalid simulation parameter")

// Paths is a days × trials matrix of simulated prices stored row-major.
// Row 0 holds the starting price in every column.
type Paths struct {
	days   int
	trials int
	prices []float64
}

// Days returns the number of rows.
func (p *Paths) Days() int { return p.days }

// Trials returns the number of columns.
func (p *Paths) Trials() int { return p.trials }

// At returns the price on day for trial.
func (p *Paths) At(day, trial int) float64 {
	return p.prices[day*p.trials+trial]
}

// Row returns a copy of the prices of every trial on day.
func (p *Paths) Row(day int) []float64 {
	return slices.Clone(p.prices[day*p.trials : (day+1)*p.trials])
}

// Terminal returns a copy of the final row.
func (p *Paths) Terminal() []float64 {
	return p.Row(p.days - 1)
}

// TerminalQuantile returns the q-quantile (0..1) of the final row, nearest rank.
func (p *Paths) TerminalQuantile(q float64) float64 {
	row := p.Terminal()
	slices.Sort(row)
	q = math.Max(0, math.Min(1, q))
	idx := int(math.Ceil(q*float64(len(row)))) - 1
	if idx < 0 {
		idx = 0
	}
	return row[idx]
}

// ExpectedTerminalPrice returns the arithmetic mean of the final row.
func ExpectedTerminalPrice(p *Paths) float64 {
	start := (p.days - 1) * p.trials
	sum := 0.0
	for _, v := range p.prices[start : start+p.trials] {
		sum += v
	}
	return sum / float64(p.trials)
}

type options struct {
	workers int
}

// Option configures a simulation.
type Option func(*options)

// WithWorkers bounds the number of goroutines. Zero or less uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// Simulate generates trials GBM paths of length days starting at lastPrice.
//
// For every day after the first and every trial, price[d][t] = price[d-1][t] *
// exp(drift + sqrt(variance)*Z) with Z standard normal. Trials are grouped in
// fixed chunks; chunk c draws from rand.NewPCG(base, c) where base is taken once
// from rng, so the result does not depend on the worker count.
func Simulate(lastPrice, drift, variance float64, days, trials int, rng *rand.Rand, opts ...Option) (*Paths, error) {
	switch {
	case days <= 0:
		return nil, fmt.Errorf("%w: days must be positive, got %d", ErrInvalidParameter, days)
	case trials <= 0:
		return nil, fmt.Errorf("%w: trials must be positive, got %d", ErrInvalidParameter, trials)
	case math.IsNaN(variance) || math.IsInf(variance, 0) || variance < 0:
		return nil, fmt.Errorf("%w: variance must be finite and non-negative, got %v", ErrInvalidParameter, variance)
	case math.IsNaN(drift) || math.IsInf(drift, 0):
		return nil, fmt.Errorf("%w: drift must be finite, got %v", ErrInvalidParameter, drift)
	case math.IsNaN(lastPrice) || math.IsInf(lastPrice, 0) || lastPrice <= 0:
		return nil, fmt.Errorf("%w: last price must be positive, got %v", ErrInvalidParameter, lastPrice)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Paths{days: days, trials: trials, prices: make([]float64, days*trials)}
	for t := 0; t < trials; t++ {
		p.prices[t] = lastPrice
	}

	base := rng.Uint64()
	chunks := (trials + chunkSize - 1) / chunkSize
	workers := o.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > chunks {
		workers = chunks
	}

	std := math.Sqrt(variance)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				p.fillChunk(c, drift, std, rand.New(rand.NewPCG(base, uint64(c))))
			}
		}()
	}
	for c := 0; c < chunks; c++ {
		jobs <- c
	}
	close(jobs)
	wg.Wait()

	return p, nil
}

// fillChunk propagates the columns of chunk c. Each column is walked day by day
// so the draw order within a chunk is fixed.
func (p *Paths) fillChunk(c int, drift, std float64, rng *rand.Rand) {
	first := c * chunkSize
	last := min(first+chunkSize, p.trials)
	for t := first; t < last; t++ {
		for d := 1; d < p.days; d++ {
			prev := p.prices[(d-1)*p.trials+t]
			p.prices[d*p.trials+t] = prev * math.Exp(drift+std*rng.NormFloat64())
		}
	}
}
