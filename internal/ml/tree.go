package ml

import (
	"math/rand"
	"sort"
)

// minGain is the smallest impurity decrease that justifies a split.
const minGain = 1e-12

// TreeNode is one node of a fitted tree, stored in a flat slice in depth-first order with
// the root at index 0. Internal nodes test x[Feature] <= Threshold and go Left when true.
type TreeNode struct {
	Feature   int // -1 for a leaf
	Threshold float64
	Left      int
	Right     int
	Counts    [2]float64 // training samples per class that reached the node
}

// IsLeaf reports whether the node has no children.
func (n TreeNode) IsLeaf() bool {
	return n.Feature < 0
}

// Class returns the majority class of the node; exact ties resolve to class 0.
func (n TreeNode) Class() int {
	return classFromCounts(n.Counts)
}

// DecisionTree is a CART classifier using gini impurity and midpoint thresholds.
type DecisionTree struct {
	MaxDepth        int // 0 means unlimited
	MinSamplesLeaf  int
	MinSamplesSplit int
	MaxFeatures     int // features tried per split; 0 means all
	Seed            int64

	nodes     []TreeNode
	nFeatures int
}

// TreeOption configures a DecisionTree.
type TreeOption func(*DecisionTree)

func WithMaxDepth(d int) TreeOption       { return func(t *DecisionTree) { t.MaxDepth = d } }
func WithMinSamplesLeaf(n int) TreeOption { return func(t *DecisionTree) { t.MinSamplesLeaf = n } }
func WithMaxFeatures(k int) TreeOption    { return func(t *DecisionTree) { t.MaxFeatures = k } }
func WithSeed(seed int64) TreeOption      { return func(t *DecisionTree) { t.Seed = seed } }

// NewDecisionTree returns an unbounded tree with one-sample leaves unless options say
// otherwise.
func NewDecisionTree(opts ...TreeOption) *DecisionTree {
	t := &DecisionTree{
		MinSamplesLeaf:  1,
		MinSamplesSplit: 2,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Fit grows the tree on all rows of X.
func (t *DecisionTree) Fit(X [][]float64, y []int) error {
	p, err := checkTrainingSet(X, y)
	if err != nil {
		return err
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.grow(X, y, idx, p)
	return nil
}

// grow builds the tree from the sample indices idx. Repeated indices act as sample weights,
// which is how bootstrap samples are fitted without copying rows.
func (t *DecisionTree) grow(X [][]float64, y []int, idx []int, p int) {
	t.nodes = make([]TreeNode, 0, 64)
	t.nFeatures = p

	features := make([]int, p)
	for j := range features {
		features[j] = j
	}
	b := &treeBuilder{
		tree:     t,
		X:        X,
		y:        y,
		features: features,
		rng:      rand.New(rand.NewSource(t.Seed)),
		minLeaf:  max(t.MinSamplesLeaf, 1),
		minSplit: max(t.MinSamplesSplit, 2),
	}
	b.build(idx, 0)
}

// Predict returns the majority class of the leaf each row falls into.
func (t *DecisionTree) Predict(X [][]float64) ([]int, error) {
	if len(t.nodes) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkRows(X, t.nFeatures); err != nil {
		return nil, err
	}
	out := make([]int, len(X))
	for i, row := range X {
		out[i] = t.leaf(row).Class()
	}
	return out, nil
}

// PredictProba returns the class-1 fraction of the leaf each row falls into.
func (t *DecisionTree) PredictProba(X [][]float64) ([]float64, error) {
	if len(t.nodes) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkRows(X, t.nFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = t.leafProba(row)
	}
	return out, nil
}

func (t *DecisionTree) leaf(x []float64) *TreeNode {
	i := 0
	for !t.nodes[i].IsLeaf() {
		n := &t.nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return &t.nodes[i]
}

func (t *DecisionTree) leafProba(x []float64) float64 {
	c := t.leaf(x).Counts
	total := c[0] + c[1]
	if total == 0 {
		return 0
	}
	return c[1] / total
}

// Nodes returns a copy of the fitted nodes; the root is at index 0.
func (t *DecisionTree) Nodes() []TreeNode {
	return append([]TreeNode(nil), t.nodes...)
}

// NumFeatures returns the width of the matrix the tree was fitted on.
func (t *DecisionTree) NumFeatures() int {
	return t.nFeatures
}

// Leaves returns the number of leaf nodes.
func (t *DecisionTree) Leaves() int {
	n := 0
	for _, node := range t.nodes {
		if node.IsLeaf() {
			n++
		}
	}
	return n
}

// Depth returns the length of the longest root-to-leaf path; a single leaf has depth 0.
func (t *DecisionTree) Depth() int {
	if len(t.nodes) == 0 {
		return 0
	}
	type item struct{ node, depth int }
	deepest := 0
	stack := []item{{0, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.nodes[it.node]
		if n.IsLeaf() {
			deepest = max(deepest, it.depth)
			continue
		}
		stack = append(stack, item{n.Left, it.depth + 1}, item{n.Right, it.depth + 1})
	}
	return deepest
}

type treeBuilder struct {
	tree     *DecisionTree
	X        [][]float64
	y        []int
	features []int
	rng      *rand.Rand
	minLeaf  int
	minSplit int
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

func (b *treeBuilder) build(idx []int, depth int) int {
	counts := countLabels(b.y, idx)
	id := len(b.tree.nodes)
	b.tree.nodes = append(b.tree.nodes, TreeNode{Feature: -1, Left: -1, Right: -1, Counts: counts})

	if !b.splittable(idx, counts, depth) {
		return id
	}
	s, ok := b.bestSplit(idx, counts)
	if !ok {
		return id
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if b.X[i][s.feature] <= s.threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	left := b.build(leftIdx, depth+1)
	right := b.build(rightIdx, depth+1)

	n := &b.tree.nodes[id]
	n.Feature = s.feature
	n.Threshold = s.threshold
	n.Left = left
	n.Right = right
	return id
}

func (b *treeBuilder) splittable(idx []int, counts [2]float64, depth int) bool {
	if counts[0] == 0 || counts[1] == 0 {
		return false
	}
	if len(idx) < b.minSplit || len(idx) < 2*b.minLeaf {
		return false
	}
	if b.tree.MaxDepth > 0 && depth >= b.tree.MaxDepth {
		return false
	}
	return true
}

// candidates returns the features to try at one node, subsampled when MaxFeatures is set.
func (b *treeBuilder) candidates() []int {
	k := b.tree.MaxFeatures
	if k <= 0 || k >= len(b.features) {
		return b.features
	}
	perm := append([]int(nil), b.features...)
	b.rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
	return perm[:k]
}

func (b *treeBuilder) bestSplit(idx []int, counts [2]float64) (split, bool) {
	n := float64(len(idx))
	parent := gini(counts)
	best := split{gain: minGain}
	found := false

	sorted := make([]int, len(idx))
	for _, f := range b.candidates() {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })

		var left [2]float64
		for s := 1; s < len(sorted); s++ {
			left[b.y[sorted[s-1]]]++
			lo, hi := b.X[sorted[s-1]][f], b.X[sorted[s]][f]
			if lo == hi || s < b.minLeaf || len(sorted)-s < b.minLeaf {
				continue
			}
			right := [2]float64{counts[0] - left[0], counts[1] - left[1]}
			nl := float64(s)
			weighted := nl/n*gini(left) + (n-nl)/n*gini(right)
			if gain := parent - weighted; gain > best.gain {
				best = split{feature: f, threshold: midpoint(lo, hi), gain: gain}
				found = true
			}
		}
	}
	return best, found
}

// midpoint returns a threshold t with lo <= t < hi.
func midpoint(lo, hi float64) float64 {
	t := lo/2 + hi/2
	if t >= hi {
		return lo
	}
	return t
}

func countLabels(y []int, idx []int) [2]float64 {
	var c [2]float64
	for _, i := range idx {
		c[y[i]]++
	}
	return c
}

func gini(c [2]float64) float64 {
	n := c[0] + c[1]
	if n == 0 {
		return 0
	}
	p0, p1 := c[0]/n, c[1]/n
	return 1 - p0*p0 - p1*p1
}
