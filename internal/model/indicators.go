package model

// MarketContext holds descriptive indicators of the history behind a forecast.
// Fields whose Has flag is false could not be computed from a short history.
type MarketContext struct {
	SMA20    float64
	SMA50    float64
	HasSMA20 bool
	HasSMA50 bool

	RSI14  float64
	HasRSI bool

	High52w     float64
	Low52w      float64
	Position52w float64 // 0.0 ~ 1.0
}
