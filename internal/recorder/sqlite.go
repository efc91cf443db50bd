package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"StockForecaster/internal/model"
)

// SQLiteRecorder persists forecast history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
	now    func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{
		db:     db,
		logger: logger.With().Str("component", "recorder").Logger(),
		now:    time.Now,
	}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS forecasts (
			id             TEXT PRIMARY KEY,
			timestamp      INTEGER NOT NULL,
			source         TEXT NOT NULL,
			direction      TEXT NOT NULL,
			confidence     REAL,
			expected_price REAL,
			last_price     REAL,
			drift          REAL,
			variance       REAL,
			price_low      REAL,
			price_high     REAL,
			days           INTEGER,
			trials         INTEGER,
			up_votes       INTEGER,
			down_votes     INTEGER,
			records        INTEGER,
			target_date    TEXT,
			seed           INTEGER,
			elapsed_ms     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_forecasts_source_ts ON forecasts(source, timestamp)`,

		`CREATE TABLE IF NOT EXISTS forecast_runs (
			forecast_id TEXT NOT NULL REFERENCES forecasts(id),
			run         INTEGER NOT NULL,
			predicted   TEXT NOT NULL,
			accuracy    REAL,
			inverted    INTEGER,
			train_size  INTEGER,
			test_size   INTEGER,
			PRIMARY KEY (forecast_id, run)
		)`,

		`CREATE TABLE IF NOT EXISTS failures (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			source    TEXT NOT NULL,
			error     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_ts ON failures(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordForecast(source string, fc *model.Forecast) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// seed is stored as its int64 bit pattern; SQLite has no unsigned integers.
	_, err = tx.Exec(`INSERT INTO forecasts
		(id, timestamp, source, direction, confidence, expected_price, last_price,
		 drift, variance, price_low, price_high, days, trials,
		 up_votes, down_votes, records, target_date, seed, elapsed_ms)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		id, r.now().Unix(), source, string(fc.Direction), fc.ConfidencePercent,
		fc.ExpectedPrice, fc.LastPrice, fc.Drift, fc.Variance, fc.PriceLow, fc.PriceHigh,
		fc.Days, fc.Trials, fc.UpVotes, fc.DownVotes, fc.Records, fc.TargetDate,
		int64(fc.Seed), fc.Elapsed.Milliseconds(),
	)
	if err != nil {
		return "", fmt.Errorf("insert forecast: %w", err)
	}

	for i, run := range fc.Runs {
		_, err := tx.Exec(`INSERT INTO forecast_runs
			(forecast_id, run, predicted, accuracy, inverted, train_size, test_size)
			VALUES (?,?,?,?,?,?,?)`,
			id, i+1, run.Predicted.String(), run.Accuracy, run.Inverted, run.TrainSize, run.TestSize,
		)
		if err != nil {
			return "", fmt.Errorf("insert run %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func (r *SQLiteRecorder) RecordFailure(source string, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO failures (timestamp, source, error) VALUES (?,?,?)`,
		r.now().Unix(), source, cause.Error(),
	)
	return err
}

// History returns the latest forecasts for source, newest first.
func (r *SQLiteRecorder) History(source string, limit int) ([]StoredForecast, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, timestamp, source, direction, confidence, expected_price,
		last_price, drift, variance, price_low, price_high, days, trials,
		up_votes, down_votes, records, target_date, seed, elapsed_ms
		FROM forecasts WHERE source = ? ORDER BY timestamp DESC, rowid DESC LIMIT ?`, source, limit)
	if err != nil {
		return nil, fmt.Errorf("query forecasts: %w", err)
	}
	defer rows.Close()

	var out []StoredForecast
	for rows.Next() {
		var (
			sf        StoredForecast
			ts        int64
			direction string
			seed      int64
			elapsedMS int64
		)
		fc := &sf.Forecast
		if err := rows.Scan(&sf.ID, &ts, &sf.Source, &direction, &fc.ConfidencePercent,
			&fc.ExpectedPrice, &fc.LastPrice, &fc.Drift, &fc.Variance, &fc.PriceLow, &fc.PriceHigh,
			&fc.Days, &fc.Trials, &fc.UpVotes, &fc.DownVotes, &fc.Records, &fc.TargetDate,
			&seed, &elapsedMS); err != nil {
			return nil, fmt.Errorf("scan forecast: %w", err)
		}
		sf.RecordedAt = time.Unix(ts, 0)
		fc.Direction = model.Direction(direction)
		fc.Seed = uint64(seed)
		fc.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, sf)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range out {
		runs, err := r.runs(out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Forecast.Runs = runs
	}
	return out, nil
}

func (r *SQLiteRecorder) runs(forecastID string) ([]model.RunResult, error) {
	rows, err := r.db.Query(`SELECT predicted, accuracy, inverted, train_size, test_size
		FROM forecast_runs WHERE forecast_id = ? ORDER BY run`, forecastID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunResult
	for rows.Next() {
		var (
			run       model.RunResult
			predicted string
		)
		if err := rows.Scan(&predicted, &run.Accuracy, &run.Inverted, &run.TrainSize, &run.TestSize); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Predicted = model.ParseLabel(predicted)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FailureCount returns the number of recorded failures.
func (r *SQLiteRecorder) FailureCount() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM failures`).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
