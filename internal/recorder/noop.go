package recorder

import (
	"github.com/google/uuid"

	"StockForecaster/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordForecast(_ string, _ *model.Forecast) (string, error) {
	return uuid.NewString(), nil
}
func (n *NoopRecorder) RecordFailure(_ string, _ error) error { return nil }
func (n *NoopRecorder) Close() error                         { return nil }
