// Package eval scores classifiers with grouped k-fold cross-validation. Rows sharing a group
// key never appear on both sides of a fold, so near-duplicate binaries cannot leak between
// training and test.
package eval

import (
	"errors"
	"fmt"
	"sort"
)

// ErrTooFewGroups is returned when the groups cannot fill the requested folds.
var ErrTooFewGroups = errors.New("not enough distinct groups for the requested folds")

// Fold holds row indices for one train/test split. Both slices are ascending.
type Fold struct {
	Train []int
	Test  []int
}

// ClampFolds limits the requested fold count to the number of distinct groups, never going
// below two.
func ClampFolds(requested, nGroups int) int {
	return min(requested, max(2, nGroups))
}

// DistinctGroups counts distinct group keys.
func DistinctGroups(groups []string) int {
	seen := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		seen[g] = struct{}{}
	}
	return len(seen)
}

// GroupKFold partitions rows into k folds by group. Groups are taken largest first, ties in
// order of first appearance, and each goes to the fold with the fewest rows so far, ties to
// the lowest fold index. The assignment is deterministic.
func GroupKFold(groups []string, k int) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("group k-fold needs at least 2 folds, got %d", k)
	}

	type group struct {
		key   string
		first int
		rows  []int
	}
	byKey := make(map[string]*group)
	var order []*group
	for i, key := range groups {
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key, first: i}
			byKey[key] = g
			order = append(order, g)
		}
		g.rows = append(g.rows, i)
	}
	if len(order) < k {
		return nil, fmt.Errorf("%w: %d groups for %d folds", ErrTooFewGroups, len(order), k)
	}

	sort.SliceStable(order, func(a, b int) bool {
		return len(order[a].rows) > len(order[b].rows)
	})

	assign := make([]int, len(groups))
	load := make([]int, k)
	for _, g := range order {
		target := 0
		for f := 1; f < k; f++ {
			if load[f] < load[target] {
				target = f
			}
		}
		load[target] += len(g.rows)
		for _, r := range g.rows {
			assign[r] = target
		}
	}

	folds := make([]Fold, k)
	for f := range folds {
		folds[f].Test = make([]int, 0, load[f])
		folds[f].Train = make([]int, 0, len(groups)-load[f])
	}
	for i, f := range assign {
		for j := range folds {
			if j == f {
				folds[j].Test = append(folds[j].Test, i)
			} else {
				folds[j].Train = append(folds[j].Train, i)
			}
		}
	}
	return folds, nil
}
