package calculator

import (
	"errors"
	"math"

	"StockForecaster/internal/model"
)

// ErrInsufficientHistory is returned when no return can be derived from the records.
var ErrInsufficientHistory = errors.New("at least 2 records are required to derive a return")

// LogReturns returns ln(close[i]/close[i-1]) for every record after the first.
func LogReturns(records []model.PriceRecord) ([]float64, error) {
	if len(records) < 2 {
		return nil, ErrInsufficientHistory
	}
	closes := extractCloses(records)
	returns := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		returns[i-1] = math.Log(closes[i] / closes[i-1])
	}
	return returns, nil
}

// MeanVariance computes the arithmetic mean and population variance of values.
func MeanVariance(values []float64) (mean, variance float64, err error) {
	if len(values) == 0 {
		return 0, 0, ErrInsufficientHistory
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, variance, nil
}

// CalculateDrift estimates the GBM parameters of a price history.
// It returns the Itô-corrected drift (mean - variance/2) and the population variance
// of the daily log returns.
func CalculateDrift(records []model.PriceRecord) (drift, variance float64, err error) {
	returns, err := LogReturns(records)
	if err != nil {
		return 0, 0, err
	}
	mean, variance, err := MeanVariance(returns)
	if err != nil {
		return 0, 0, err
	}
	return mean - 0.5*variance, variance, nil
}

func extractCloses(records []model.PriceRecord) []float64 {
	closes := make([]float64, len(records))
	for i, r := range records {
		closes[i] = r.Close
	}
	return closes
}
