package trainer

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"exe-predictor/internal/ml"
)

// Tree modes recorded in reports.
const (
	TreeModeDistilled = "distilled"
	TreeModeDirect    = "direct"
	TreeModeReused    = "reused"
)

// TreeBounds limits the exported tree. Zero MaxDepth means unlimited; the bounds are used
// as given.
type TreeBounds struct {
	MaxDepth       int
	MinSamplesLeaf int
	Seed           int64
}

// TreeResult is a decision tree ready for export with its diagnostics.
type TreeResult struct {
	Tree     *ml.DecisionTree
	Mode     string
	Bounds   TreeBounds // bounds the tree was fitted with
	Accuracy float64    // agreement with the true labels on the training rows
	Fidelity float64    // agreement with the source model; 1 for direct trees
}

func (b TreeBounds) newTree() *ml.DecisionTree {
	return ml.NewDecisionTree(
		ml.WithMaxDepth(b.MaxDepth),
		ml.WithMinSamplesLeaf(b.MinSamplesLeaf),
		ml.WithSeed(b.Seed),
	)
}

// Distill refits best on all rows, labels every row with its predictions and fits a bounded
// tree to those pseudo-labels.
func Distill(best ml.Classifier, X [][]float64, y []int, bounds TreeBounds) (*TreeResult, error) {
	if err := best.Fit(X, y); err != nil {
		return nil, fmt.Errorf("distill: refit source model: %w", err)
	}
	pseudo, err := best.Predict(X)
	if err != nil {
		return nil, fmt.Errorf("distill: source predictions: %w", err)
	}

	tree := bounds.newTree()
	if err := tree.Fit(X, pseudo); err != nil {
		return nil, fmt.Errorf("distill: fit tree: %w", err)
	}
	pred, err := tree.Predict(X)
	if err != nil {
		return nil, fmt.Errorf("distill: tree predictions: %w", err)
	}

	res := &TreeResult{
		Tree:     tree,
		Mode:     TreeModeDistilled,
		Bounds:   bounds,
		Accuracy: Agreement(pred, y),
		Fidelity: Agreement(pred, pseudo),
	}
	log.Info().
		Int("max_depth", bounds.MaxDepth).
		Int("min_leaf", bounds.MinSamplesLeaf).
		Int("depth", tree.Depth()).
		Int("leaves", tree.Leaves()).
		Float64("acc_vs_true", res.Accuracy).
		Float64("fidelity", res.Fidelity).
		Msg("Distilled decision tree")
	return res, nil
}

// DirectTree reuses best when it already is a decision tree, otherwise fits a bounded tree
// on the true labels. A reused tree keeps its own bounds.
func DirectTree(best ml.Classifier, X [][]float64, y []int, bounds TreeBounds) (*TreeResult, error) {
	mode := TreeModeReused
	tree, ok := best.(*ml.DecisionTree)
	if ok {
		bounds = TreeBounds{MaxDepth: tree.MaxDepth, MinSamplesLeaf: tree.MinSamplesLeaf, Seed: tree.Seed}
	} else {
		mode = TreeModeDirect
		tree = bounds.newTree()
		if err := tree.Fit(X, y); err != nil {
			return nil, fmt.Errorf("fit direct tree: %w", err)
		}
	}
	pred, err := tree.Predict(X)
	if err != nil {
		return nil, fmt.Errorf("direct tree predictions: %w", err)
	}
	return &TreeResult{Tree: tree, Mode: mode, Bounds: bounds, Accuracy: Agreement(pred, y), Fidelity: 1}, nil
}

// Agreement returns the fraction of positions where a and b hold the same label. Empty or
// mismatched inputs compare over the shorter length; nothing to compare gives 0.
func Agreement(a, b []int) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	same := 0
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			same++
		}
	}
	return float64(same) / float64(n)
}
