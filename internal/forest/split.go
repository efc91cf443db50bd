package forest

import (
	"fmt"
	"math"
	"math/rand/v2"

	"StockForecaster/internal/model"
)

// Split partitions records into a random train and test set.
// The first floor(trainFraction*len) entries of a uniform permutation go to train,
// the rest to test. The input is not modified.
func Split(records []model.PriceRecord, trainFraction float64, rng *rand.Rand) (train, test []model.PriceRecord, err error) {
	if math.IsNaN(trainFraction) || trainFraction <= 0 || trainFraction >= 1 {
		return nil, nil, fmt.Errorf("%w: got %v", ErrInvalidFraction, trainFraction)
	}
	if len(records) == 0 {
		return nil, nil, ErrEmptyDataset
	}

	indices := rng.Perm(len(records))
	cut := int(math.Floor(trainFraction * float64(len(records))))

	train = make([]model.PriceRecord, 0, cut)
	for _, idx := range indices[:cut] {
		train = append(train, records[idx])
	}
	test = make([]model.PriceRecord, 0, len(records)-cut)
	for _, idx := range indices[cut:] {
		test = append(test, records[idx])
	}
	return train, test, nil
}
