package recorder

import (
	"time"

	"StockForecaster/internal/model"
)

// StoredForecast is a forecast read back from the history.
type StoredForecast struct {
	ID         string
	Source     string
	RecordedAt time.Time
	Forecast   model.Forecast
}

// Recorder persists forecast history for later analysis.
type Recorder interface {
	// RecordForecast stores fc and its runs, returning the generated forecast ID.
	RecordForecast(source string, fc *model.Forecast) (string, error)
	// RecordFailure stores a pipeline failure for source.
	RecordFailure(source string, cause error) error
	Close() error
}
