package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"StockForecaster/internal/collector"
	"StockForecaster/internal/metrics"
	"StockForecaster/internal/model"
	"StockForecaster/internal/notifier"
	"StockForecaster/internal/recorder"
)

// Predictor produces a forecast from a price history.
type Predictor interface {
	Predict(ctx context.Context, records []model.PriceRecord) (*model.Forecast, error)
}

// FileResult is the outcome of the pipeline for one source.
type FileResult struct {
	Source   string
	ID       string
	Forecast *model.Forecast
	Err      error
}

// BatchResult is the outcome of one pass over all sources.
type BatchResult struct {
	Results    []FileResult
	Succeeded  int
	Failed     int
	Elapsed    time.Duration
	FinishedAt time.Time
}

// Scheduler runs the forecast pipeline over its sources, once or on a cron schedule.
type Scheduler struct {
	Cron        *cron.Cron
	Sources     []collector.Source
	Predictor   Predictor
	Notifiers   []notifier.Notifier
	Recorder    recorder.Recorder
	Metrics     *metrics.Recorder // optional
	Concurrency int
	Ctx         context.Context

	logger zerolog.Logger
	mu     sync.Mutex
	last   *BatchResult
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, sources []collector.Source, p Predictor, rec recorder.Recorder, logger zerolog.Logger, notifiers ...notifier.Notifier) *Scheduler {
	logger = logger.With().Str("component", "scheduler").Logger()
	cronLog := cronLogger{logger}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		Sources:     sources,
		Predictor:   p,
		Notifiers:   notifiers,
		Recorder:    rec,
		Concurrency: 1,
		Ctx:         ctx,
		logger:      logger,
	}
}

// Register schedules a full pass over the sources on spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, func() { s.RunOnce(s.Ctx) }); err != nil {
		return fmt.Errorf("register forecast task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Int("sources", len(s.Sources)).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// RunOnce runs the pipeline over every source. A failing source does not stop
// the others. Results keep the source order.
func (s *Scheduler) RunOnce(ctx context.Context) *BatchResult {
	start := time.Now()
	results := make([]FileResult, len(s.Sources))

	workers := min(max(s.Concurrency, 1), max(len(s.Sources), 1))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.process(ctx, s.Sources[i])
			}
		}()
	}
	for i := range s.Sources {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	batch := &BatchResult{Results: results, Elapsed: time.Since(start), FinishedAt: time.Now()}
	for _, r := range results {
		if r.Err != nil {
			batch.Failed++
		} else {
			batch.Succeeded++
		}
	}

	s.mu.Lock()
	s.last = batch
	s.mu.Unlock()

	s.logger.Info().
		Int("succeeded", batch.Succeeded).
		Int("failed", batch.Failed).
		Dur("elapsed", batch.Elapsed).
		Msg("forecast pass finished")
	return batch
}

// Last returns the most recent pass, or nil before the first one.
func (s *Scheduler) Last() *BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) process(ctx context.Context, src collector.Source) FileResult {
	name := src.Name()
	res := FileResult{Source: name}
	log := s.logger.With().Str("source", name).Logger()

	fc, err := s.forecast(ctx, src)
	if err != nil {
		res.Err = err
		log.Error().Err(err).Msg("forecast failed")
		if s.Metrics != nil {
			s.Metrics.RecordFailure()
		}
		if rerr := s.Recorder.RecordFailure(name, err); rerr != nil {
			log.Error().Err(rerr).Msg("record failure")
		}
		s.trySend(ctx, notifier.FormatFailure(name, err))
		return res
	}
	res.Forecast = fc

	s.trySend(ctx, notifier.FormatForecast(name, fc))

	id, err := s.Recorder.RecordForecast(name, fc)
	if err != nil {
		log.Error().Err(err).Msg("record forecast")
	}
	res.ID = id
	if s.Metrics != nil {
		s.Metrics.RecordForecast(name, fc)
	}
	return res
}

func (s *Scheduler) forecast(ctx context.Context, src collector.Source) (*model.Forecast, error) {
	start := time.Now()
	records, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	s.observe("load", start)

	start = time.Now()
	fc, err := s.Predictor.Predict(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	s.observe("predict", start)
	return fc, nil
}

func (s *Scheduler) observe(stage string, start time.Time) {
	if s.Metrics != nil {
		s.Metrics.RecordLatency(stage, time.Since(start))
	}
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch command {
	case "/forecast":
		batch := s.RunOnce(ctx)
		return notifier.FormatBatch(batch.Succeeded, batch.Failed, batch.Elapsed, batch.FinishedAt)
	case "/status":
		last := s.Last()
		if last == nil {
			return "No forecast has run yet."
		}
		return notifier.FormatBatch(last.Succeeded, last.Failed, last.Elapsed, last.FinishedAt)
	default:
		return "Available commands:\n• /forecast\n• /status"
	}
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	for _, n := range s.Notifiers {
		if err := n.Notify(ctx, text); err != nil {
			s.logger.Error().Err(err).Msg("send notification")
		}
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	zl zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.zl.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.zl.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
