package model

import (
	"errors"
	"math"
)

// ErrEmptySeries is returned when a series is built from no records.
var ErrEmptySeries = errors.New("series has no records")

// Series holds an ordered price history with labels and returns derived.
// It owns a private copy of the records and is never mutated after construction.
type Series struct {
	records []PriceRecord
}

// NewSeries copies the records and derives labels and log returns.
//
// Every record but the last is labeled Up when its close is at or below the next close,
// Down otherwise. The last record stays Unlabeled. Every record but the first gets
// Return = ln(close / previous close).
func NewSeries(records []PriceRecord) (*Series, error) {
	if len(records) == 0 {
		return nil, ErrEmptySeries
	}

	out := make([]PriceRecord, len(records))
	copy(out, records)

	n := len(out)
	for i := 0; i < n-1; i++ {
		if out[i].Close <= out[i+1].Close {
			out[i].Label = Up
		} else {
			out[i].Label = Down
		}
	}
	out[n-1].Label = Unlabeled

	out[0].Return = 0
	out[0].HasReturn = false
	for i := 1; i < n; i++ {
		out[i].Return = math.Log(out[i].Close / out[i-1].Close)
		out[i].HasReturn = true
	}

	return &Series{records: out}, nil
}

// Len returns the number of records including the target.
func (s *Series) Len() int {
	return len(s.records)
}

// Records returns a copy of all records, target included.
func (s *Series) Records() []PriceRecord {
	out := make([]PriceRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Labeled returns a copy of every record except the target.
func (s *Series) Labeled() []PriceRecord {
	out := make([]PriceRecord, len(s.records)-1)
	copy(out, s.records[:len(s.records)-1])
	return out
}

// Target returns the most recent record, the one being predicted.
func (s *Series) Target() PriceRecord {
	return s.records[len(s.records)-1]
}

// LastPrice returns the close of the most recent record.
func (s *Series) LastPrice() float64 {
	return s.records[len(s.records)-1].Close
}

// Returns returns the defined log returns in order.
func (s *Series) Returns() []float64 {
	returns := make([]float64, 0, len(s.records)-1)
	for _, r := range s.records {
		if r.HasReturn {
			returns = append(returns, r.Return)
		}
	}
	return returns
}
