package forest

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"StockForecaster/internal/model"
)

// Sample is a single training example.
type Sample struct {
	Features [model.FeatureCount]float64
	Label    model.Label
}

// NewSample converts a labeled record into a training example.
func NewSample(r model.PriceRecord) (Sample, error) {
	if !r.IsLabeled() {
		return Sample{}, fmt.Errorf("%w: record %q is unlabeled", ErrModelFit, r.Date)
	}
	return Sample{Features: r.Features(), Label: r.Label}, nil
}

// TreeParams bounds the growth of a tree.
type TreeParams struct {
	// MaxDepth is the deepest level a split may happen at. Zero means unlimited.
	MaxDepth int
	// MinLeafSize is the smallest node that may still be split.
	MinLeafSize int
}

// DefaultTreeParams grows trees until their leaves are pure.
func DefaultTreeParams() TreeParams {
	return TreeParams{MaxDepth: 0, MinLeafSize: 1}
}

type node struct {
	leaf      bool
	label     model.Label
	feature   int
	threshold float64
	left      int
	right     int
}

// Tree is a binary classification tree. It is immutable once fitted.
type Tree struct {
	nodes  []node
	depth  int
	leaves int
}

// Predict walks the tree and returns the leaf label for the features.
func (t *Tree) Predict(features [model.FeatureCount]float64) model.Label {
	i := 0
	for {
		n := &t.nodes[i]
		if n.leaf {
			return n.label
		}
		if features[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

// Depth returns the depth of the deepest leaf, the root being depth 0.
func (t *Tree) Depth() int { return t.depth }

// Leaves returns the number of leaves.
func (t *Tree) Leaves() int { return t.leaves }

// FitTree grows a CART tree on the samples using weighted Gini impurity.
//
// At every node featureSubset distinct features are drawn from rng. Candidate
// thresholds are the distinct values of each drawn feature; samples with
// value <= threshold go left. Features are scanned in ascending index order
// and thresholds in ascending value order, and the first strict minimum wins.
func FitTree(samples []Sample, featureSubset int, params TreeParams, rng *rand.Rand) (*Tree, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrModelFit)
	}
	if featureSubset < 1 || featureSubset > model.FeatureCount {
		return nil, fmt.Errorf("%w: feature subset %d outside [1,%d]", ErrModelFit, featureSubset, model.FeatureCount)
	}
	for i := range samples {
		if samples[i].Label == model.Unlabeled {
			return nil, fmt.Errorf("%w: sample %d is unlabeled", ErrModelFit, i)
		}
	}
	if params.MinLeafSize < 1 {
		params.MinLeafSize = 1
	}

	b := &builder{
		samples: samples,
		subset:  featureSubset,
		params:  params,
		rng:     rng,
		order:   make([]int, len(samples)),
	}
	idx := make([]int, len(samples))
	for i := range idx {
		idx[i] = i
	}
	b.build(idx, 0)

	return &Tree{nodes: b.nodes, depth: b.depth, leaves: b.leaves}, nil
}

type builder struct {
	samples []Sample
	subset  int
	params  TreeParams
	rng     *rand.Rand
	nodes   []node
	depth   int
	leaves  int
	order   []int
}

// gini returns 1 - sum(p_c^2) for a two-class count.
func gini(down, up int) float64 {
	n := float64(down + up)
	if n == 0 {
		return 0
	}
	pd := float64(down) / n
	pu := float64(up) / n
	return 1 - pd*pd - pu*pu
}

// majority returns the most frequent label, preferring Down on ties.
func majority(down, up int) model.Label {
	if up > down {
		return model.Up
	}
	return model.Down
}

func (b *builder) count(idx []int) (down, up int) {
	for _, i := range idx {
		if b.samples[i].Label == model.Up {
			up++
		} else {
			down++
		}
	}
	return down, up
}

func (b *builder) leaf(label model.Label, depth int) int {
	b.nodes = append(b.nodes, node{leaf: true, label: label})
	b.leaves++
	if depth > b.depth {
		b.depth = depth
	}
	return len(b.nodes) - 1
}

// build grows the subtree for idx and returns its node index.
func (b *builder) build(idx []int, depth int) int {
	down, up := b.count(idx)
	switch {
	case down == 0 || up == 0,
		len(idx) < b.params.MinLeafSize,
		b.params.MaxDepth > 0 && depth >= b.params.MaxDepth:
		return b.leaf(majority(down, up), depth)
	}

	feature, threshold, ok := b.bestSplit(idx, down, up)
	if !ok {
		return b.leaf(majority(down, up), depth)
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.samples[i].Features[feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	self := len(b.nodes)
	b.nodes = append(b.nodes, node{feature: feature, threshold: threshold})
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[self].left = l
	b.nodes[self].right = r
	return self
}

// bestSplit finds the (feature, threshold) pair with the lowest weighted Gini.
// ok is false when no candidate strictly improves on the node impurity.
func (b *builder) bestSplit(idx []int, down, up int) (feature int, threshold float64, ok bool) {
	features := b.rng.Perm(model.FeatureCount)[:b.subset]
	slices.Sort(features)

	n := len(idx)
	total := float64(n)
	best := gini(down, up)
	order := b.order[:n]

	for _, f := range features {
		copy(order, idx)
		slices.SortFunc(order, func(i, j int) int {
			vi, vj := b.samples[i].Features[f], b.samples[j].Features[f]
			switch {
			case vi < vj:
				return -1
			case vi > vj:
				return 1
			default:
				return 0
			}
		})

		leftDown, leftUp := 0, 0
		for k := 0; k < n-1; k++ {
			if b.samples[order[k]].Label == model.Up {
				leftUp++
			} else {
				leftDown++
			}

			v := b.samples[order[k]].Features[f]
			if b.samples[order[k+1]].Features[f] == v {
				continue
			}

			nl := k + 1
			nr := n - nl
			impurity := float64(nl)/total*gini(leftDown, leftUp) +
				float64(nr)/total*gini(down-leftDown, up-leftUp)
			if impurity < best {
				best = impurity
				feature = f
				threshold = v
				ok = true
			}
		}
	}

	return feature, threshold, ok
}
