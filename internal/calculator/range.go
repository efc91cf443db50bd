package calculator

import (
	"errors"
	"math"

	"StockForecaster/internal/model"
)

// TradingDaysPerYear is the window of the 52-week range.
const TradingDaysPerYear = 252

// CalculateRange returns the highest high and lowest low of the most recent window records.
func CalculateRange(records []model.PriceRecord, window int) (high, low float64, err error) {
	if len(records) == 0 {
		return 0, 0, errors.New("no records provided")
	}
	if window <= 0 {
		return 0, 0, errors.New("window must be positive")
	}
	start := max(len(records)-window, 0)

	high = math.Inf(-1)
	low = math.Inf(1)
	for _, r := range records[start:] {
		high = math.Max(high, r.High)
		low = math.Min(low, r.Low)
	}
	return high, low, nil
}

// CalculatePosition returns where current sits within [low, high], clamped to 0.0~1.0.
func CalculatePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	return math.Min(math.Max(pos, 0), 1), nil
}

// Summarize computes the market context of a history. Indicators that need a
// longer history than available are left unset.
func Summarize(records []model.PriceRecord) model.MarketContext {
	var ctx model.MarketContext
	if len(records) == 0 {
		return ctx
	}

	if v, err := CalculateCloseSMA(records, 20); err == nil {
		ctx.SMA20, ctx.HasSMA20 = v, true
	}
	if v, err := CalculateCloseSMA(records, 50); err == nil {
		ctx.SMA50, ctx.HasSMA50 = v, true
	}
	if v, err := CalculateRSI(records, 14); err == nil {
		ctx.RSI14, ctx.HasRSI = v, true
	}

	high, low, _ := CalculateRange(records, TradingDaysPerYear)
	ctx.High52w, ctx.Low52w = high, low
	ctx.Position52w, _ = CalculatePosition(records[len(records)-1].Close, high, low)
	return ctx
}
