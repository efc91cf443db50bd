package forest

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"

	"StockForecaster/internal/model"
)

// Config holds the ensemble parameters.
type Config struct {
	// NumTrees is the number of bagged trees.
	NumTrees int
	// FeatureSubset is the number of features drawn at every split.
	FeatureSubset int
	// Tree bounds the growth of each tree.
	Tree TreeParams
	// Workers is the number of goroutines training trees. Zero or less uses GOMAXPROCS.
	Workers int
}

// DefaultConfig returns 100 fully grown trees with 2 of 6 features per split.
func DefaultConfig() Config {
	return Config{
		NumTrees:      100,
		FeatureSubset: 2,
		Tree:          DefaultTreeParams(),
	}
}

// Forest is a bagged ensemble of classification trees. It is immutable once fitted.
type Forest struct {
	trees         []*Tree
	featureSubset int
}

// Fit trains cfg.NumTrees trees, each on its own bootstrap resample of train.
//
// One base seed is drawn from rng; tree i uses rand.NewPCG(base, i). Trees train
// concurrently, and the resulting forest does not depend on cfg.Workers.
func Fit(train []model.PriceRecord, cfg Config, rng *rand.Rand) (*Forest, error) {
	if cfg.NumTrees <= 0 {
		return nil, fmt.Errorf("%w: %d trees requested", ErrModelFit, cfg.NumTrees)
	}
	if cfg.FeatureSubset < 1 || cfg.FeatureSubset > model.FeatureCount {
		return nil, fmt.Errorf("%w: feature subset %d outside [1,%d]", ErrModelFit, cfg.FeatureSubset, model.FeatureCount)
	}
	if len(train) == 0 {
		return nil, fmt.Errorf("%w: no training records", ErrModelFit)
	}

	samples := make([]Sample, len(train))
	for i, r := range train {
		s, err := NewSample(r)
		if err != nil {
			return nil, err
		}
		samples[i] = s
	}

	base := rng.Uint64()
	trees := make([]*Tree, cfg.NumTrees)
	errs := make([]error, cfg.NumTrees)

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > cfg.NumTrees {
		workers = cfg.NumTrees
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				trees[i], errs[i] = fitBagged(samples, cfg, rand.New(rand.NewPCG(base, uint64(i))))
			}
		}()
	}
	for i := 0; i < cfg.NumTrees; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}

	return &Forest{trees: trees, featureSubset: cfg.FeatureSubset}, nil
}

// fitBagged draws a bootstrap resample of samples and fits one tree on it.
func fitBagged(samples []Sample, cfg Config, rng *rand.Rand) (*Tree, error) {
	n := len(samples)
	boot := make([]Sample, n)
	for j := range boot {
		boot[j] = samples[rng.IntN(n)]
	}
	return FitTree(boot, cfg.FeatureSubset, cfg.Tree, rng)
}

// Size returns the number of trees.
func (f *Forest) Size() int { return len(f.trees) }

// FeatureSubset returns the per-split feature count used to train the forest.
func (f *Forest) FeatureSubset() int { return f.featureSubset }

// Votes returns how many trees predict Down and Up for the features.
func (f *Forest) Votes(features [model.FeatureCount]float64) (down, up int) {
	for _, t := range f.trees {
		if t.Predict(features) == model.Up {
			up++
		} else {
			down++
		}
	}
	return down, up
}

// Predict returns the majority vote. An even split resolves to Down.
func (f *Forest) Predict(features [model.FeatureCount]float64) model.Label {
	down, up := f.Votes(features)
	return majority(down, up)
}

// Evaluate returns the fraction of labeled test records predicted correctly.
func (f *Forest) Evaluate(test []model.PriceRecord) (float64, error) {
	var total, correct int
	for i := range test {
		if !test[i].IsLabeled() {
			continue
		}
		total++
		if f.Predict(test[i].Features()) == test[i].Label {
			correct++
		}
	}
	if total == 0 {
		return 0, ErrEmptyTestSet
	}
	return float64(correct) / float64(total), nil
}
