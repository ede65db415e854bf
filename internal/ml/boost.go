package ml

import (
	"fmt"
	"math"
	"sort"
)

// GradientBoosting fits an additive model of shallow least-squares regression trees to the
// binary log-loss gradient. Leaf values take a single Newton step.
type GradientBoosting struct {
	NEstimators    int
	LearningRate   float64
	MaxDepth       int
	MinSamplesLeaf int

	init      float64
	stages    []*regressionTree
	nFeatures int
	fitted    bool
}

// NewGradientBoosting returns 100 depth-3 stages with learning rate 0.1.
func NewGradientBoosting() *GradientBoosting {
	return &GradientBoosting{
		NEstimators:    100,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 1,
	}
}

// Fit starts from the prior log-odds and adds one tree per stage.
func (g *GradientBoosting) Fit(X [][]float64, y []int) error {
	p, err := checkTrainingSet(X, y)
	if err != nil {
		return err
	}
	if g.NEstimators <= 0 || g.LearningRate <= 0 {
		return fmt.Errorf("gradient boosting needs positive stages and learning rate, got %d and %g",
			g.NEstimators, g.LearningRate)
	}

	g.nFeatures = p
	g.stages = g.stages[:0]
	g.fitted = true

	prior := labelMean(y)
	switch prior {
	case 0:
		g.init = math.Inf(-1)
		return nil
	case 1:
		g.init = math.Inf(1)
		return nil
	}
	g.init = math.Log(prior / (1 - prior))

	n := len(X)
	raw := make([]float64, n)
	for i := range raw {
		raw[i] = g.init
	}
	residual := make([]float64, n)
	hess := make([]float64, n)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	for s := 0; s < g.NEstimators; s++ {
		for i := range raw {
			prob := sigmoid(raw[i])
			residual[i] = float64(y[i]) - prob
			hess[i] = prob * (1 - prob)
		}
		tree := &regressionTree{maxDepth: g.MaxDepth, minLeaf: max(g.MinSamplesLeaf, 1)}
		tree.fit(X, residual, hess, idx)
		for i, row := range X {
			raw[i] += g.LearningRate * tree.predict(row)
		}
		g.stages = append(g.stages, tree)
	}
	return nil
}

// Predict returns 1 where the boosted log-odds are positive.
func (g *GradientBoosting) Predict(X [][]float64) ([]int, error) {
	if !g.fitted {
		return nil, ErrNotFitted
	}
	if err := checkRows(X, g.nFeatures); err != nil {
		return nil, err
	}
	out := make([]int, len(X))
	for i, row := range X {
		if g.decision(row) > 0 {
			out[i] = 1
		}
	}
	return out, nil
}

func (g *GradientBoosting) decision(x []float64) float64 {
	f := g.init
	for _, t := range g.stages {
		f += g.LearningRate * t.predict(x)
	}
	return f
}

type regressionNode struct {
	feature   int // -1 for a leaf
	threshold float64
	left      int
	right     int
	value     float64
}

// regressionTree splits on squared error of the residuals and stores Newton leaf values
// sum(residual) / sum(p(1-p)).
type regressionTree struct {
	maxDepth int
	minLeaf  int
	nodes    []regressionNode
}

func (t *regressionTree) fit(X [][]float64, residual, hess []float64, idx []int) {
	t.nodes = t.nodes[:0]
	t.build(X, residual, hess, idx, 0)
}

func (t *regressionTree) build(X [][]float64, residual, hess []float64, idx []int, depth int) int {
	id := len(t.nodes)
	t.nodes = append(t.nodes, regressionNode{feature: -1, left: -1, right: -1, value: newtonStep(residual, hess, idx)})

	if depth >= t.maxDepth || len(idx) < 2*t.minLeaf {
		return id
	}
	feature, threshold, ok := t.bestSplit(X, residual, idx)
	if !ok {
		return id
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	left := t.build(X, residual, hess, leftIdx, depth+1)
	right := t.build(X, residual, hess, rightIdx, depth+1)

	n := &t.nodes[id]
	n.feature = feature
	n.threshold = threshold
	n.left = left
	n.right = right
	return id
}

// bestSplit maximises sumL²/nL + sumR²/nR, which is equivalent to minimising the summed
// squared error of the two children.
func (t *regressionTree) bestSplit(X [][]float64, residual []float64, idx []int) (int, float64, bool) {
	n := len(idx)
	total := 0.0
	for _, i := range idx {
		total += residual[i]
	}
	base := total * total / float64(n)

	bestFeature, bestThreshold := -1, 0.0
	bestGain := minGain
	sorted := make([]int, n)
	for f := range X[idx[0]] {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return X[sorted[a]][f] < X[sorted[c]][f] })

		left := 0.0
		for s := 1; s < n; s++ {
			left += residual[sorted[s-1]]
			lo, hi := X[sorted[s-1]][f], X[sorted[s]][f]
			if lo == hi || s < t.minLeaf || n-s < t.minLeaf {
				continue
			}
			right := total - left
			score := left*left/float64(s) + right*right/float64(n-s)
			if gain := score - base; gain > bestGain {
				bestGain, bestFeature, bestThreshold = gain, f, midpoint(lo, hi)
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func (t *regressionTree) predict(x []float64) float64 {
	i := 0
	for t.nodes[i].feature >= 0 {
		n := &t.nodes[i]
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
	return t.nodes[i].value
}

func newtonStep(residual, hess []float64, idx []int) float64 {
	num, den := 0.0, 0.0
	for _, i := range idx {
		num += residual[i]
		den += hess[i]
	}
	if math.Abs(den) < 1e-150 {
		return 0
	}
	return num / den
}
