package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"StockForecaster/internal/forest"
	"StockForecaster/internal/predictor"
)

// CronParser parses watch schedules. Schedules carry a leading seconds field.
var CronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Forecast holds the engine parameters.
type Forecast struct {
	Runs          int           `yaml:"runs" default:"10" validate:"min=1"`
	TrainFraction float64       `yaml:"train_fraction" default:"0.9" validate:"gt=0,lt=1"`
	Trees         int           `yaml:"trees" default:"100" validate:"min=1"`
	FeatureSubset int           `yaml:"feature_subset" default:"2" validate:"min=1,max=6"`
	MaxDepth      int           `yaml:"max_depth" validate:"min=0"`
	MinLeafSize   int           `yaml:"min_leaf_size" default:"1" validate:"min=1"`
	Days          int           `yaml:"days" default:"30" validate:"min=1"`
	Trials        int           `yaml:"trials" default:"50000" validate:"min=1"`
	Seed          uint64        `yaml:"seed"`
	Workers       int           `yaml:"workers" validate:"min=0"`
	Timeout       time.Duration `yaml:"timeout" validate:"min=0"`
	// Concurrency is the number of files processed in parallel.
	Concurrency int `yaml:"concurrency" default:"1" validate:"min=1"`
}

// Config holds all application configuration.
type Config struct {
	Forecast Forecast `yaml:"forecast"`
	Log      struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	} `yaml:"log"`
	Database struct {
		// SQLitePath enables the forecast history when set.
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		WatchCron string `yaml:"watch_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	Metrics struct {
		ListenAddr string `yaml:"listen_addr" default:":9108"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment overrides
// and fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setInt("FORECAST_RUNS", &c.Forecast.Runs)
	setInt("FORECAST_TREES", &c.Forecast.Trees)
	setInt("FORECAST_FEATURE_SUBSET", &c.Forecast.FeatureSubset)
	setInt("FORECAST_DAYS", &c.Forecast.Days)
	setInt("FORECAST_TRIALS", &c.Forecast.Trials)
	setInt("FORECAST_WORKERS", &c.Forecast.Workers)
	setInt("FORECAST_CONCURRENCY", &c.Forecast.Concurrency)
	if v := os.Getenv("FORECAST_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("FORECAST_SEED: %w", err))
		} else {
			c.Forecast.Seed = seed
		}
	}
	if v := os.Getenv("FORECAST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FORECAST_TIMEOUT: %w", err))
		} else {
			c.Forecast.Timeout = d
		}
	}
	setString("FORECAST_WATCH_CRON", &c.Schedule.WatchCron)
	setString("SQLITE_PATH", &c.Database.SQLitePath)
	setString("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	setString("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("METRICS_ADDR", &c.Metrics.ListenAddr)
	setString("HTTPS_PROXY", &c.Proxy)

	return errors.Join(errs...)
}

// Validate checks field ranges and the watch schedule.
func (c *Config) Validate() error {
	var errs []error
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Errorf("%s: failed %q rule (%v)", fieldPath(fe), fe.Tag(), fe.Value()))
		}
	}
	if c.Schedule.WatchCron != "" {
		if _, err := CronParser.Parse(c.Schedule.WatchCron); err != nil {
			errs = append(errs, fmt.Errorf("schedule.watch_cron: %w", err))
		}
	}
	return errors.Join(errs...)
}

// fieldPath turns "Config.Forecast.Runs" into "forecast.runs".
func fieldPath(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}

// EngineConfig maps the forecast section onto the engine parameters.
func (c *Config) EngineConfig(logger zerolog.Logger) predictor.Config {
	f := c.Forecast
	return predictor.Config{
		Runs:          f.Runs,
		TrainFraction: f.TrainFraction,
		Forest: forest.Config{
			NumTrees:      f.Trees,
			FeatureSubset: f.FeatureSubset,
			Tree: forest.TreeParams{
				MaxDepth:    f.MaxDepth,
				MinLeafSize: f.MinLeafSize,
			},
			Workers: f.Workers,
		},
		Days:    f.Days,
		Trials:  f.Trials,
		Workers: f.Workers,
		Seed:    f.Seed,
		Timeout: f.Timeout,
		Logger:  logger,
	}
}
