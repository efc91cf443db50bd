package predictor

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"StockForecaster/internal/calculator"
	"StockForecaster/internal/forest"
	"StockForecaster/internal/model"
	"StockForecaster/internal/montecarlo"
)

// ErrTimeout is returned when the classification runs do not finish before the deadline.
var ErrTimeout = errors.New("forecast timed out")

const (
	// DefaultRuns is the number of independent classification runs.
	DefaultRuns = 10
	// DefaultTrainFraction is the share of labeled records used for training.
	DefaultTrainFraction = 0.9
)

// Config holds the engine parameters.
type Config struct {
	// Runs is the number of independent split/fit/evaluate runs.
	Runs int
	// TrainFraction is the train share of each split.
	TrainFraction float64
	// Forest configures every forest fitted by a run.
	Forest forest.Config
	// Days and Trials size the Monte Carlo simulation.
	Days   int
	Trials int
	// Workers bounds simulation goroutines. Zero or less uses GOMAXPROCS.
	Workers int
	// Seed fixes every random stream. Zero derives a seed from the clock.
	Seed uint64
	// Timeout bounds the classification runs. Zero disables it.
	Timeout time.Duration
	// Logger is the engine logger.
	Logger zerolog.Logger
}

// DefaultConfig returns the engine defaults: 10 runs, 90/10 splits,
// 100 trees with 2 features per split, and 30 × 50000 simulated paths.
func DefaultConfig() Config {
	return Config{
		Runs:          DefaultRuns,
		TrainFraction: DefaultTrainFraction,
		Forest:        forest.DefaultConfig(),
		Days:          montecarlo.DefaultDays,
		Trials:        montecarlo.DefaultTrials,
		Logger:        zerolog.Nop(),
	}
}

// Engine produces forecasts from price histories.
type Engine struct {
	cfg    Config
	logger zerolog.Logger
}

// NewEngine creates an engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "predictor").Logger(),
	}
}

// Predict forecasts the next move and the expected price of the series.
//
// The most recent record is the prediction target. The Monte Carlo simulation runs
// once over the full history; the classifier pipeline runs cfg.Runs times, each
// with its own random split. A run whose test accuracy is below 0.5 has both its
// prediction and its accuracy inverted. The direction is the majority of run
// predictions (ties go Up) and the confidence is the mean accuracy in percent.
func (e *Engine) Predict(ctx context.Context, records []model.PriceRecord) (*model.Forecast, error) {
	start := time.Now()

	if e.cfg.Runs <= 0 {
		return nil, fmt.Errorf("runs must be positive, got %d", e.cfg.Runs)
	}

	series, err := model.NewSeries(records)
	if err != nil {
		return nil, fmt.Errorf("build series: %w", err)
	}

	seed := e.cfg.Seed
	if seed == 0 {
		seed = uint64(start.UnixNano())
	}

	fc := &model.Forecast{
		Records:    series.Len(),
		TargetDate: series.Target().Date,
		LastPrice:  series.LastPrice(),
		Days:       e.cfg.Days,
		Trials:     e.cfg.Trials,
		Seed:       seed,
		Context:    calculator.Summarize(series.Records()),
	}

	if err := e.simulate(series, seed, fc); err != nil {
		return nil, err
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	labeled := series.Labeled()
	target := series.Target()
	accuracySum := 0.0
	for i := 0; i < e.cfg.Runs; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w after %d of %d runs: %w", ErrTimeout, i, e.cfg.Runs, err)
		}

		rng := rand.New(rand.NewPCG(seed, uint64(i+1)))
		run, err := e.classify(labeled, target, rng)
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		e.logger.Debug().
			Int("run", i+1).
			Str("predicted", run.Predicted.String()).
			Float64("accuracy", run.Accuracy).
			Bool("inverted", run.Inverted).
			Msg("classification run finished")

		if run.Predicted == model.Up {
			fc.UpVotes++
		} else {
			fc.DownVotes++
		}
		accuracySum += run.Accuracy
		fc.Runs = append(fc.Runs, run)
	}

	fc.Direction = model.DirectionDown
	if fc.UpVotes >= fc.DownVotes {
		fc.Direction = model.DirectionUp
	}
	fc.ConfidencePercent = accuracySum / float64(e.cfg.Runs) * 100
	fc.GeneratedAt = time.Now()
	fc.Elapsed = fc.GeneratedAt.Sub(start)

	e.logger.Info().
		Str("direction", string(fc.Direction)).
		Float64("confidence", fc.ConfidencePercent).
		Float64("expected_price", fc.ExpectedPrice).
		Uint64("seed", seed).
		Dur("elapsed", fc.Elapsed).
		Msg("forecast ready")

	return fc, nil
}

// simulate estimates drift and variance and fills the price fields of fc.
func (e *Engine) simulate(series *model.Series, seed uint64, fc *model.Forecast) error {
	drift, variance, err := calculator.CalculateDrift(series.Records())
	if err != nil {
		return fmt.Errorf("estimate drift: %w", err)
	}

	paths, err := montecarlo.Simulate(series.LastPrice(), drift, variance, e.cfg.Days, e.cfg.Trials,
		rand.New(rand.NewPCG(seed, 0)), montecarlo.WithWorkers(e.cfg.Workers))
	if err != nil {
		return fmt.Errorf("simulate paths: %w", err)
	}

	fc.Drift = drift
	fc.Variance = variance
	fc.ExpectedPrice = montecarlo.ExpectedTerminalPrice(paths)
	fc.PriceLow = paths.TerminalQuantile(0.05)
	fc.PriceHigh = paths.TerminalQuantile(0.95)
	return nil
}

// classify runs one split/fit/evaluate/predict cycle.
func (e *Engine) classify(labeled []model.PriceRecord, target model.PriceRecord, rng *rand.Rand) (model.RunResult, error) {
	train, test, err := forest.Split(labeled, e.cfg.TrainFraction, rng)
	if err != nil {
		return model.RunResult{}, fmt.Errorf("split: %w", err)
	}

	f, err := forest.Fit(train, e.cfg.Forest, rng)
	if err != nil {
		return model.RunResult{}, fmt.Errorf("fit forest: %w", err)
	}

	accuracy, err := f.Evaluate(test)
	if err != nil {
		return model.RunResult{}, fmt.Errorf("evaluate: %w", err)
	}

	return invertBelowChance(f.Predict(target.Features()), accuracy, len(train), len(test)), nil
}

// invertBelowChance flips both the prediction and the accuracy of a classifier
// that scores below 0.5, treating its complement as the informative answer.
func invertBelowChance(predicted model.Label, accuracy float64, trainSize, testSize int) model.RunResult {
	run := model.RunResult{
		Predicted: predicted,
		Accuracy:  accuracy,
		TrainSize: trainSize,
		TestSize:  testSize,
	}
	if accuracy < 0.5 {
		run.Predicted = predicted.Invert()
		run.Accuracy = 1 - accuracy
		run.Inverted = true
	}
	return run
}
