package model

// FeatureCount is the dimension of every feature vector fed to the classifier.
const FeatureCount = 6

// UnlabeledValue is the numeric sentinel reported for records without a label.
const UnlabeledValue = -1.0

// Label is the next-period movement of a record.
type Label int

const (
	// Unlabeled marks the prediction target; it is never used for scoring.
	Unlabeled Label = iota
	Down
	Up
)

// String returns the label name.
func (l Label) String() string {
	switch l {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "unlabeled"
	}
}

// Value returns the numeric class encoding (Up=1, Down=0).
// The second return is false for Unlabeled.
func (l Label) Value() (float64, bool) {
	switch l {
	case Up:
		return 1.0, true
	case Down:
		return 0.0, true
	default:
		return UnlabeledValue, false
	}
}

// Invert returns the opposite movement. Unlabeled stays Unlabeled.
func (l Label) Invert() Label {
	switch l {
	case Up:
		return Down
	case Down:
		return Up
	default:
		return Unlabeled
	}
}

// LabelFromValue maps a numeric class back to a label.
func LabelFromValue(v float64) Label {
	switch v {
	case 1.0:
		return Up
	case 0.0:
		return Down
	default:
		return Unlabeled
	}
}

// ParseLabel is the inverse of Label.String.
func ParseLabel(s string) Label {
	switch s {
	case "up":
		return Up
	case "down":
		return Down
	default:
		return Unlabeled
	}
}

// PriceRecord is one daily OHLCV row plus derived fields.
type PriceRecord struct {
	Date     string
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   uint64

	// Derived fields.
	Label     Label
	Return    float64
	HasReturn bool
}

// Features returns the classifier input: open, high, low, adjClose, close, volume.
func (r *PriceRecord) Features() [FeatureCount]float64 {
	return [FeatureCount]float64{
		r.Open,
		r.High,
		r.Low,
		r.AdjClose,
		r.Close,
		float64(r.Volume),
	}
}

// IsLabeled reports whether the record can be used as a training example.
func (r *PriceRecord) IsLabeled() bool {
	return r.Label != Unlabeled
}
