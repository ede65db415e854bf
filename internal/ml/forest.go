package ml

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RandomForest bags decision trees fitted on bootstrap samples with per-split feature
// subsampling. Trees are grown in parallel; each tree draws from its own seeded source, so
// the result depends only on Seed.
type RandomForest struct {
	NEstimators    int
	MaxDepth       int // 0 means unlimited
	MinSamplesLeaf int
	MaxFeatures    int // 0 means sqrt(p)
	Bootstrap      bool
	Seed           int64
	Workers        int // 0 means GOMAXPROCS

	trees     []*DecisionTree
	nFeatures int
}

// ForestOption configures a RandomForest.
type ForestOption func(*RandomForest)

func WithEstimators(n int) ForestOption     { return func(f *RandomForest) { f.NEstimators = n } }
func WithForestDepth(d int) ForestOption    { return func(f *RandomForest) { f.MaxDepth = d } }
func WithForestSeed(s int64) ForestOption   { return func(f *RandomForest) { f.Seed = s } }
func WithWorkers(n int) ForestOption        { return func(f *RandomForest) { f.Workers = n } }
func WithBootstrap(b bool) ForestOption     { return func(f *RandomForest) { f.Bootstrap = b } }
func WithForestFeatures(k int) ForestOption { return func(f *RandomForest) { f.MaxFeatures = k } }

// NewRandomForest returns a 100-tree bootstrap forest unless options say otherwise.
func NewRandomForest(opts ...ForestOption) *RandomForest {
	f := &RandomForest{
		NEstimators:    100,
		MinSamplesLeaf: 1,
		Bootstrap:      true,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fit grows NEstimators trees.
func (f *RandomForest) Fit(X [][]float64, y []int) error {
	p, err := checkTrainingSet(X, y)
	if err != nil {
		return err
	}
	if f.NEstimators <= 0 {
		return fmt.Errorf("random forest needs at least one tree, got %d", f.NEstimators)
	}

	maxFeatures := f.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(p))))
	}
	workers := f.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	n := len(X)
	trees := make([]*DecisionTree, f.NEstimators)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range trees {
		g.Go(func() error {
			seed := f.Seed + int64(i)
			rng := rand.New(rand.NewSource(seed))
			sample := make([]int, n)
			for j := range sample {
				if f.Bootstrap {
					sample[j] = rng.Intn(n)
				} else {
					sample[j] = j
				}
			}
			tree := NewDecisionTree(
				WithMaxDepth(f.MaxDepth),
				WithMinSamplesLeaf(f.MinSamplesLeaf),
				WithMaxFeatures(maxFeatures),
				WithSeed(seed),
			)
			tree.grow(X, y, sample, p)
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("random forest fit: %w", err)
	}

	f.trees = trees
	f.nFeatures = p
	return nil
}

// Predict soft-votes the trees: class 1 when the mean leaf probability exceeds 0.5.
func (f *RandomForest) Predict(X [][]float64) ([]int, error) {
	proba, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		if p > 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}

// PredictProba returns the mean class-1 leaf probability over all trees.
func (f *RandomForest) PredictProba(X [][]float64) ([]float64, error) {
	if len(f.trees) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkRows(X, f.nFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		s := 0.0
		for _, t := range f.trees {
			s += t.leafProba(row)
		}
		out[i] = s / float64(len(f.trees))
	}
	return out, nil
}

// Trees returns the fitted trees.
func (f *RandomForest) Trees() []*DecisionTree {
	return f.trees
}
