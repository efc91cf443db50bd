package model

import (
	"math"
	"testing"

	"github.com/peterldowns/testy/assert"
)

func closes(values ...float64) []PriceRecord {
	records := make([]PriceRecord, len(values))
	for i, v := range values {
		records[i] = PriceRecord{Open: v, High: v, Low: v, Close: v, AdjClose: v, Volume: 100}
	}
	return records
}

func TestNewSeriesLabels(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   []Label
	}{
		{
			name:   "single record is the target",
			closes: []float64{10},
			want:   []Label{Unlabeled},
		},
		{
			name:   "rising",
			closes: []float64{1, 2, 3},
			want:   []Label{Up, Up, Unlabeled},
		},
		{
			name:   "equal closes count as up",
			closes: []float64{5, 5, 4, 6},
			want:   []Label{Up, Down, Up, Unlabeled},
		},
	}

	for _, test := range tests {
		series, err := NewSeries(closes(test.closes...))
		assert.NoError(t, err)

		records := series.Records()
		assert.Equal(t, len(test.want), len(records))
		for i := range records {
			if records[i].Label != test.want[i] {
				t.Errorf("%s: record %d expected %s, got %s", test.name, i, test.want[i], records[i].Label)
			}
		}
	}
}

func TestNewSeriesReturns(t *testing.T) {
	series, err := NewSeries(closes(100, 110, 99))
	assert.NoError(t, err)

	records := series.Records()
	assert.False(t, records[0].HasReturn)
	assert.True(t, records[1].HasReturn)

	returns := series.Returns()
	assert.Equal(t, 2, len(returns))
	assert.True(t, math.Abs(returns[0]-math.Log(1.1)) < 1e-12)
	assert.True(t, math.Abs(returns[1]-math.Log(0.9)) < 1e-12)
}

func TestSeriesAccessors(t *testing.T) {
	input := closes(1, 2, 3, 4)
	series, err := NewSeries(input)
	assert.NoError(t, err)

	assert.Equal(t, 4, series.Len())
	assert.Equal(t, 3, len(series.Labeled()))
	assert.Equal(t, 4.0, series.LastPrice())
	assert.Equal(t, Unlabeled, series.Target().Label)
	for _, r := range series.Labeled() {
		assert.True(t, r.IsLabeled())
	}

	// The input slice is not modified.
	assert.Equal(t, Unlabeled, input[0].Label)
}

func TestNewSeriesEmpty(t *testing.T) {
	_, err := NewSeries(nil)
	assert.Error(t, err)
}

func TestLabelValue(t *testing.T) {
	v, ok := Up.Value()
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)

	v, ok = Down.Value()
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)

	v, ok = Unlabeled.Value()
	assert.False(t, ok)
	assert.Equal(t, UnlabeledValue, v)

	assert.Equal(t, Down, Up.Invert())
	assert.Equal(t, Up, Down.Invert())
	assert.Equal(t, Unlabeled, Unlabeled.Invert())
	assert.Equal(t, Up, LabelFromValue(1))
	assert.Equal(t, Down, LabelFromValue(0))
	assert.Equal(t, Unlabeled, LabelFromValue(-1))

	for _, l := range []Label{Up, Down, Unlabeled} {
		assert.Equal(t, l, ParseLabel(l.String()))
	}
}

func TestFeatures(t *testing.T) {
	r := PriceRecord{Open: 1, High: 2, Low: 3, Close: 4, AdjClose: 5, Volume: 6}
	assert.Equal(t, [FeatureCount]float64{1, 2, 3, 5, 4, 6}, r.Features())
}
