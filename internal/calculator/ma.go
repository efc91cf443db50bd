package calculator

import (
	"errors"

	"StockForecaster/internal/model"
)

// ErrNotEnoughData is returned when a window is longer than the series.
var ErrNotEnoughData = errors.New("not enough data for the requested period")

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, ErrNotEnoughData
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// CalculateCloseSMA returns the simple moving average of the last period closes.
func CalculateCloseSMA(records []model.PriceRecord, period int) (float64, error) {
	return CalculateSMA(extractCloses(records), period)
}
