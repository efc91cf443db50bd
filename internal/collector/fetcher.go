package collector

import (
	"context"

	"StockForecaster/internal/model"
)

// Source loads an ordered price history, oldest record first.
type Source interface {
	Load(ctx context.Context) ([]model.PriceRecord, error)
	Name() string
}
