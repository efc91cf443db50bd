package predictor

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/peterldowns/testy/assert"

	"StockForecaster/internal/calculator"
	"StockForecaster/internal/forest"
	"StockForecaster/internal/model"
)

func testConfig(seed uint64) Config {
	cfg := DefaultConfig()
	cfg.Forest.NumTrees = 20
	cfg.Trials = 2000
	cfg.Seed = seed
	return cfg
}

func recordsFromCloses(closes ...float64) []model.PriceRecord {
	records := make([]model.PriceRecord, len(closes))
	for i, c := range closes {
		records[i] = model.PriceRecord{
			Date:     "2024-01-01",
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			AdjClose: c,
			Volume:   1000,
		}
	}
	return records
}

func noisyRecords(n int, seed uint64) []model.PriceRecord {
	rng := rand.New(rand.NewPCG(seed, seed))
	records := make([]model.PriceRecord, n)
	price := 100.0
	for i := range records {
		open := price
		price *= math.Exp(0.0002 + 0.015*rng.NormFloat64())
		records[i] = model.PriceRecord{
			Open:     open,
			High:     math.Max(open, price) * 1.01,
			Low:      math.Min(open, price) * 0.99,
			Close:    price,
			AdjClose: price,
			Volume:   uint64(1_000_000 + rng.IntN(500_000)),
		}
	}
	return records
}

func TestPredict_RisingSeries(t *testing.T) {
	engine := NewEngine(testConfig(1))
	fc, err := engine.Predict(context.Background(), recordsFromCloses(100, 101, 102, 103, 104))
	assert.NoError(t, err)

	assert.Equal(t, model.DirectionUp, fc.Direction)
	assert.Equal(t, 100.0, fc.ConfidencePercent)
	assert.Equal(t, 10, fc.UpVotes)
	assert.Equal(t, 0, fc.DownVotes)
	assert.Equal(t, 104.0, fc.LastPrice)
	assert.GreaterThan(t, fc.ExpectedPrice, fc.LastPrice)
	for _, run := range fc.Runs {
		assert.Equal(t, 3, run.TrainSize)
		assert.Equal(t, 1, run.TestSize)
		assert.False(t, run.Inverted)
	}
}

func TestPredict_FallingSeries(t *testing.T) {
	engine := NewEngine(testConfig(2))
	fc, err := engine.Predict(context.Background(), recordsFromCloses(110, 108, 105, 103, 101, 99, 97, 96, 94, 90, 89))
	assert.NoError(t, err)

	assert.Equal(t, model.DirectionDown, fc.Direction)
	assert.Equal(t, 100.0, fc.ConfidencePercent)
	assert.GreaterThan(t, fc.LastPrice, fc.ExpectedPrice)
	assert.GreaterThan(t, fc.PriceHigh, fc.PriceLow)
}

func TestPredict_Deterministic(t *testing.T) {
	records := noisyRecords(150, 5)

	a, err := NewEngine(testConfig(99)).Predict(context.Background(), records)
	assert.NoError(t, err)
	b, err := NewEngine(testConfig(99)).Predict(context.Background(), records)
	assert.NoError(t, err)

	opts := cmpopts.IgnoreFields(model.Forecast{}, "Elapsed", "GeneratedAt")
	if diff := cmp.Diff(a, b, opts); diff != "" {
		t.Errorf("same seed produced different forecasts (-a +b):\n%s", diff)
	}
	assert.Equal(t, uint64(99), a.Seed)
}

// Confidence is the mean run accuracy as a percentage, not a sum scaled by ten.
func TestPredict_ConfidenceIsPercentage(t *testing.T) {
	fc, err := NewEngine(testConfig(7)).Predict(context.Background(), noisyRecords(120, 3))
	assert.NoError(t, err)

	assert.Equal(t, DefaultRuns, len(fc.Runs))
	assert.Equal(t, DefaultRuns, fc.UpVotes+fc.DownVotes)

	sum := 0.0
	for _, run := range fc.Runs {
		assert.True(t, run.Accuracy >= 0.5 && run.Accuracy <= 1)
		sum += run.Accuracy
	}
	want := sum / float64(len(fc.Runs)) * 100
	assert.True(t, math.Abs(fc.ConfidencePercent-want) < 1e-9)
	assert.True(t, fc.ConfidencePercent >= 50 && fc.ConfidencePercent <= 100)
}

func TestPredict_TieGoesUp(t *testing.T) {
	cfg := testConfig(4)
	cfg.Runs = 2
	engine := NewEngine(cfg)
	fc, err := engine.Predict(context.Background(), noisyRecords(80, 12))
	assert.NoError(t, err)
	if fc.UpVotes == fc.DownVotes {
		assert.Equal(t, model.DirectionUp, fc.Direction)
	}
}

func TestPredict_Errors(t *testing.T) {
	tests := []struct {
		name    string
		records []model.PriceRecord
		want    error
	}{
		{name: "no records", records: nil, want: model.ErrEmptySeries},
		{name: "single record", records: recordsFromCloses(10), want: calculator.ErrInsufficientHistory},
		{name: "no training records", records: recordsFromCloses(10, 11), want: forest.ErrModelFit},
	}

	for _, test := range tests {
		_, err := NewEngine(testConfig(1)).Predict(context.Background(), test.records)
		if !errors.Is(err, test.want) {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, err)
		}
	}
}

func TestPredict_InvalidRuns(t *testing.T) {
	cfg := testConfig(1)
	cfg.Runs = 0
	_, err := NewEngine(cfg).Predict(context.Background(), recordsFromCloses(1, 2, 3))
	assert.Error(t, err)
}

func TestPredict_Timeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fc, err := NewEngine(testConfig(1)).Predict(ctx, recordsFromCloses(1, 2, 3, 4, 5))
	assert.Nil(t, fc)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestInvertBelowChance(t *testing.T) {
	tests := []struct {
		name      string
		predicted model.Label
		accuracy  float64
		want      model.RunResult
	}{
		{
			name:      "below chance flips both",
			predicted: model.Up,
			accuracy:  0.25,
			want:      model.RunResult{Predicted: model.Down, Accuracy: 0.75, Inverted: true},
		},
		{
			name:      "chance is kept",
			predicted: model.Down,
			accuracy:  0.5,
			want:      model.RunResult{Predicted: model.Down, Accuracy: 0.5},
		},
		{
			name:      "above chance is kept",
			predicted: model.Up,
			accuracy:  0.9,
			want:      model.RunResult{Predicted: model.Up, Accuracy: 0.9},
		},
	}

	for _, test := range tests {
		got := invertBelowChance(test.predicted, test.accuracy, 0, 0)
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("%s: unexpected run (-want +got):\n%s", test.name, diff)
		}
	}
}
