package recorder

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"

	"StockForecaster/internal/model"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func sampleForecast() *model.Forecast {
	return &model.Forecast{
		Direction:         model.DirectionUp,
		ConfidencePercent: 62.5,
		ExpectedPrice:     105.25,
		LastPrice:         104,
		Drift:             0.0004,
		Variance:          0.0002,
		PriceLow:          95.1,
		PriceHigh:         116.7,
		Days:              30,
		Trials:            1000,
		UpVotes:           2,
		DownVotes:         1,
		Runs: []model.RunResult{
			{Predicted: model.Up, Accuracy: 0.6, TrainSize: 90, TestSize: 10},
			{Predicted: model.Up, Accuracy: 0.7, Inverted: true, TrainSize: 90, TestSize: 10},
			{Predicted: model.Down, Accuracy: 0.575, TrainSize: 90, TestSize: 10},
		},
		Records:    101,
		TargetDate: "2024-05-31",
		Seed:       1<<63 + 5,
		Elapsed:    1500 * time.Millisecond,
	}
}

func TestSQLiteRecorder_RoundTrip(t *testing.T) {
	r := openTestRecorder(t)
	fc := sampleForecast()

	id, err := r.RecordForecast("spy.csv", fc)
	assert.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)

	history, err := r.History("spy.csv", 10)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(history))
	assert.Equal(t, id, history[0].ID)
	assert.Equal(t, "spy.csv", history[0].Source)

	if diff := cmp.Diff(*fc, history[0].Forecast); diff != "" {
		t.Errorf("forecast changed in storage (-want +got):\n%s", diff)
	}
}

func TestSQLiteRecorder_HistoryOrder(t *testing.T) {
	r := openTestRecorder(t)
	clock := time.Unix(1_700_000_000, 0)
	r.now = func() time.Time { return clock }

	first, err := r.RecordForecast("a.csv", sampleForecast())
	assert.NoError(t, err)
	clock = clock.Add(time.Hour)
	second, err := r.RecordForecast("a.csv", sampleForecast())
	assert.NoError(t, err)
	_, err = r.RecordForecast("b.csv", sampleForecast())
	assert.NoError(t, err)

	history, err := r.History("a.csv", 10)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(history))
	assert.Equal(t, second, history[0].ID)
	assert.Equal(t, first, history[1].ID)
	assert.Equal(t, clock.Unix(), history[0].RecordedAt.Unix())

	limited, err := r.History("a.csv", 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(limited))
}

func TestSQLiteRecorder_Failures(t *testing.T) {
	r := openTestRecorder(t)

	assert.NoError(t, r.RecordFailure("bad.csv", errors.New("line 3: close")))
	assert.NoError(t, r.RecordFailure("bad.csv", errors.New("line 4: close")))

	n, err := r.FailureCount()
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLiteRecorder_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	r, err := NewSQLiteRecorder(path, zerolog.Nop())
	assert.NoError(t, err)
	_, err = r.RecordForecast("x.csv", sampleForecast())
	assert.NoError(t, err)
	assert.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path, zerolog.Nop())
	assert.NoError(t, err)
	defer r.Close()
	history, err := r.History("x.csv", 5)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(history))
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	id, err := r.RecordForecast("x.csv", sampleForecast())
	assert.NoError(t, err)
	assert.NotEqual(t, "", id)
	assert.NoError(t, r.RecordFailure("x.csv", errors.New("boom")))
	assert.NoError(t, r.Close())
}
