package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"StockForecaster/internal/model"
)

// StdinPath selects standard input as the CSV source.
const StdinPath = "-"

const columnCount = 7

// ErrNotEnoughRecords is returned when a source yields fewer than two records.
var ErrNotEnoughRecords = errors.New("at least 2 price records are required")

// FileSource reads daily prices from a CSV file with the columns
// date,open,high,low,close,adjClose,volume. The first line is a header.
type FileSource struct {
	Path  string
	Stdin io.Reader // used when Path is "-"; nil means os.Stdin
}

// NewFileSource creates a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) Name() string {
	if f.Path == StdinPath {
		return "stdin"
	}
	return f.Path
}

// Load opens and parses the file.
func (f *FileSource) Load(ctx context.Context) ([]model.PriceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var r io.Reader
	if f.Path == StdinPath {
		r = f.Stdin
		if r == nil {
			r = os.Stdin
		}
	} else {
		file, err := os.Open(f.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Path, err)
		}
		defer file.Close()
		r = file
	}
	return ParseCSV(r, f.Name())
}

// ParseCSV parses price rows from r. Blank lines are skipped and every error
// names the source and the offending line.
func ParseCSV(r io.Reader, name string) ([]model.PriceRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var records []model.PriceRecord
	header := true
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		line, _ := cr.FieldPos(0)
		if header {
			header = false
			continue
		}

		if len(row) != columnCount {
			return nil, fmt.Errorf("%s: line %d: expected %d columns, got %d", name, line, columnCount, len(row))
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", name, line, err)
		}
		records = append(records, rec)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s: %w, got %d", name, ErrNotEnoughRecords, len(records))
	}
	return records, nil
}

func parseRow(row []string) (model.PriceRecord, error) {
	rec := model.PriceRecord{Date: strings.TrimSpace(row[0])}

	prices := []struct {
		column string
		dst    *float64
	}{
		{"open", &rec.Open},
		{"high", &rec.High},
		{"low", &rec.Low},
		{"close", &rec.Close},
		{"adjClose", &rec.AdjClose},
	}
	for i, p := range prices {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return rec, fmt.Errorf("%s: %w", p.column, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return rec, fmt.Errorf("%s: non-finite value %q", p.column, row[i+1])
		}
		*p.dst = v
	}
	if rec.Close <= 0 {
		return rec, fmt.Errorf("close: must be positive, got %v", rec.Close)
	}

	vol, err := strconv.ParseUint(strings.TrimSpace(row[6]), 10, 64)
	if err != nil {
		return rec, fmt.Errorf("volume: %w", err)
	}
	rec.Volume = vol
	return rec, nil
}

// MockSource generates a synthetic random-walk series for development and testing.
type MockSource struct {
	Price float64
	Count int
	Seed  uint64
	// Data overrides the generated series when set.
	Data []model.PriceRecord
	// Err is returned by Load when set.
	Err error
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Load(_ context.Context) ([]model.PriceRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Data != nil {
		return m.Data, nil
	}
	return generateMockRecords(m.Price, m.Count, m.Seed), nil
}

func generateMockRecords(basePrice float64, count int, seed uint64) []model.PriceRecord {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

	records := make([]model.PriceRecord, count)
	p := basePrice
	for i := 0; i < count; i++ {
		open := p
		p *= math.Exp(0.0003 + 0.012*rng.NormFloat64())
		records[i] = model.PriceRecord{
			Date:     start.AddDate(0, 0, i).Format(time.DateOnly),
			Open:     open,
			High:     math.Max(open, p) * 1.005,
			Low:      math.Min(open, p) * 0.995,
			Close:    p,
			AdjClose: p,
			Volume:   uint64(800_000 + rng.IntN(400_000)),
		}
	}
	return records
}
