package model

import "time"

// Direction is the aggregated directional verdict.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// RunResult is the outcome of one classification run.
type RunResult struct {
	// Predicted is the label for the target after any inversion.
	Predicted Label
	// Accuracy is the test accuracy in [0,1] after any inversion.
	Accuracy float64
	// Inverted is set when the raw accuracy was below 0.5 and both values were flipped.
	Inverted bool
	// TrainSize and TestSize are the split sizes of the run.
	TrainSize int
	TestSize  int
}

// Forecast is the final output of the prediction engine.
type Forecast struct {
	Direction         Direction
	ConfidencePercent float64
	ExpectedPrice     float64

	// Simulation inputs and spread.
	LastPrice float64
	Drift     float64
	Variance  float64
	PriceLow  float64 // 5th percentile of terminal prices
	PriceHigh float64 // 95th percentile of terminal prices
	Days      int
	Trials    int

	// Context describes the history the forecast was made from.
	Context MarketContext

	UpVotes   int
	DownVotes int
	Runs      []RunResult

	Records     int
	TargetDate  string
	Seed        uint64
	Elapsed     time.Duration
	GeneratedAt time.Time
}
