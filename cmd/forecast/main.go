package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"StockForecaster/internal/collector"
	"StockForecaster/internal/config"
	"StockForecaster/internal/logging"
	"StockForecaster/internal/metrics"
	"StockForecaster/internal/notifier"
	"StockForecaster/internal/predictor"
	"StockForecaster/internal/recorder"
	"StockForecaster/internal/scheduler"
)

// errFilesFailed marks a pass in which at least one file could not be forecast.
var errFilesFailed = errors.New("one or more files failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast [flags] [files...]",
		Short: "Forecast the next move of a stock from its daily price history",
		Long: `forecast reads daily price CSV files (date,open,high,low,close,adjClose,volume,
with a header line) and reports a Monte Carlo expected price together with a
random-forest up/down prediction and its confidence. "-" reads standard input.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{collector.StdinPath}
			}
			return run(cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.StringP("config", "c", "configs/config.yaml", "Path to the YAML config file")
	flags.Uint64("seed", 0, "Random seed (0 derives one from the clock)")
	flags.IntP("runs", "r", predictor.DefaultRuns, "Number of independent classification runs")
	flags.IntP("trees", "t", 100, "Trees per random forest")
	flags.Int("feature-subset", 2, "Features considered at each split (1-6)")
	flags.Int("days", 30, "Simulated days per price path, including today")
	flags.Int("trials", 50000, "Number of simulated price paths")
	flags.Int("workers", 0, "Worker goroutines for fitting and simulation (0 uses GOMAXPROCS)")
	flags.Duration("timeout", 0, "Time limit for the classification runs of one file (0 disables it)")
	flags.String("db", "", "SQLite path for the forecast history")
	flags.String("watch", "", "Cron spec with seconds field; re-run the forecast on this schedule")
	flags.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	return cmd
}

// applyFlags overrides config values with the flags the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Forecast.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("runs") {
		cfg.Forecast.Runs, _ = flags.GetInt("runs")
	}
	if flags.Changed("trees") {
		cfg.Forecast.Trees, _ = flags.GetInt("trees")
	}
	if flags.Changed("feature-subset") {
		cfg.Forecast.FeatureSubset, _ = flags.GetInt("feature-subset")
	}
	if flags.Changed("days") {
		cfg.Forecast.Days, _ = flags.GetInt("days")
	}
	if flags.Changed("trials") {
		cfg.Forecast.Trials, _ = flags.GetInt("trials")
	}
	if flags.Changed("workers") {
		cfg.Forecast.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("timeout") {
		cfg.Forecast.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("db") {
		cfg.Database.SQLitePath, _ = flags.GetString("db")
	}
	if flags.Changed("watch") {
		cfg.Schedule.WatchCron, _ = flags.GetString("watch")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
}

func run(cmd *cobra.Command, files []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	logger, err := logging.NewWithWriter(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	watch := cfg.Schedule.WatchCron != ""
	sources := make([]collector.Source, 0, len(files))
	for _, f := range files {
		if watch && f == collector.StdinPath {
			return errors.New("standard input cannot be re-read in watch mode")
		}
		src := collector.NewFileSource(f)
		src.Stdin = cmd.InOrStdin()
		sources = append(sources, src)
	}

	rec := openRecorder(cfg, logger)
	defer rec.Close()

	notifiers := []notifier.Notifier{notifier.NewConsoleNotifier(cmd.OutOrStdout())}
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
		notifiers = append(notifiers, tn)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := predictor.NewEngine(cfg.EngineConfig(logger))
	sched := scheduler.NewScheduler(ctx, sources, engine, rec, logger, notifiers...)
	sched.Concurrency = cfg.Forecast.Concurrency

	if !watch {
		batch := sched.RunOnce(ctx)
		if batch.Failed > 0 {
			return fmt.Errorf("%w: %d of %d", errFilesFailed, batch.Failed, len(batch.Results))
		}
		return nil
	}

	return watchLoop(ctx, cfg, sched, tn, logger)
}

func openRecorder(cfg *config.Config, logger zerolog.Logger) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

func watchLoop(ctx context.Context, cfg *config.Config, sched *scheduler.Scheduler, tn *notifier.TelegramNotifier, logger zerolog.Logger) error {
	m := metrics.New()
	sched.Metrics = m

	if cfg.Metrics.ListenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info().Str("addr", cfg.Metrics.ListenAddr).Msg("metrics endpoint listening")
	}

	if err := sched.Register(cfg.Schedule.WatchCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info().Msg("telegram polling started")
	}

	sched.RunOnce(ctx)
	logger.Info().Str("schedule", cfg.Schedule.WatchCron).Msg("watching; press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received, stopping")
	return nil
}
