package forest

import "errors"

var (
	// ErrInvalidFraction is returned when a train fraction is outside (0,1).
	ErrInvalidFraction = errors.New("train fraction must be within (0,1)")
	// ErrEmptyDataset is returned when there are no records to split.
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrEmptyTestSet is returned when accuracy is requested on no labeled records.
	ErrEmptyTestSet = errors.New("test set has no labeled records")
	// ErrModelFit is returned when training data or parameters cannot produce a model.
	ErrModelFit = errors.New("cannot fit model")
)
