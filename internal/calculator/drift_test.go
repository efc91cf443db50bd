package calculator

import (
	"errors"
	"math"
	"testing"

	"StockForecaster/internal/model"
)

func recordsFromCloses(closes ...float64) []model.PriceRecord {
	records := make([]model.PriceRecord, len(closes))
	for i, c := range closes {
		records[i] = model.PriceRecord{Close: c}
	}
	return records
}

func TestMeanVariance_KnownReturns(t *testing.T) {
	mean, variance, err := MeanVariance([]float64{0.01, -0.02, 0.03})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(mean-0.0066667) > 1e-6 {
		t.Errorf("expected mean ~0.00667, got %.7f", mean)
	}
	if math.Abs(variance-0.00042222) > 1e-7 {
		t.Errorf("expected variance ~0.000422, got %.8f", variance)
	}
	drift := mean - 0.5*variance
	if math.Abs(drift-0.0064556) > 1e-6 {
		t.Errorf("expected drift ~0.00646, got %.7f", drift)
	}
}

func TestCalculateDrift_MatchesReturns(t *testing.T) {
	// Closes chosen so the log returns are exactly 0.01, -0.02, 0.03.
	c0 := 100.0
	c1 := c0 * math.Exp(0.01)
	c2 := c1 * math.Exp(-0.02)
	c3 := c2 * math.Exp(0.03)

	drift, variance, err := CalculateDrift(recordsFromCloses(c0, c1, c2, c3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(variance-0.00042222) > 1e-7 {
		t.Errorf("expected variance ~0.000422, got %.8f", variance)
	}
	if math.Abs(drift-0.0064556) > 1e-6 {
		t.Errorf("expected drift ~0.00646, got %.7f", drift)
	}
}

func TestCalculateDrift_Idempotent(t *testing.T) {
	records := recordsFromCloses(10, 10.5, 10.2, 11, 10.9, 11.4)
	d1, v1, err := CalculateDrift(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d2, v2, err := CalculateDrift(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Float64bits(d1) != math.Float64bits(d2) || math.Float64bits(v1) != math.Float64bits(v2) {
		t.Errorf("expected bit-identical results, got (%v,%v) and (%v,%v)", d1, v1, d2, v2)
	}
}

func TestCalculateDrift_FlatSeries(t *testing.T) {
	drift, variance, err := CalculateDrift(recordsFromCloses(5, 5, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if drift != 0 || variance != 0 {
		t.Errorf("expected zero drift and variance, got %v, %v", drift, variance)
	}
}

func TestCalculateDrift_InsufficientHistory(t *testing.T) {
	tests := []struct {
		name    string
		records []model.PriceRecord
	}{
		{"nil", nil},
		{"single record", recordsFromCloses(42)},
	}
	for _, tt := range tests {
		if _, _, err := CalculateDrift(tt.records); !errors.Is(err, ErrInsufficientHistory) {
			t.Errorf("%s: expected ErrInsufficientHistory, got %v", tt.name, err)
		}
	}
}

func TestMeanVariance_Empty(t *testing.T) {
	if _, _, err := MeanVariance(nil); !errors.Is(err, ErrInsufficientHistory) {
		t.Errorf("expected ErrInsufficientHistory, got %v", err)
	}
}
