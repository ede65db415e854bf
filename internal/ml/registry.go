package ml

import (
	"fmt"
	"sort"
)

// Model family names as they appear on the command line and in reports.
const (
	NameLogReg       = "LogReg"
	NameDecisionTree = "DecisionTree"
	NameRandomForest = "RandomForest"
	NameGradBoost    = "GradBoost"
	NameLightGBM     = "LightGBM"
)

// Factory returns a fresh, unfitted classifier.
type Factory func() Classifier

// Candidate is a named model family.
type Candidate struct {
	Name string
	New  Factory
}

// Registry is an ordered set of candidates. Order is evaluation order.
type Registry struct {
	candidates []Candidate
	byName     map[string]int
}

// NewRegistry builds a registry; duplicate names are rejected.
func NewRegistry(candidates ...Candidate) (*Registry, error) {
	r := &Registry{byName: make(map[string]int, len(candidates))}
	for _, c := range candidates {
		if c.Name == "" || c.New == nil {
			return nil, fmt.Errorf("candidate %q is incomplete", c.Name)
		}
		if _, dup := r.byName[c.Name]; dup {
			return nil, fmt.Errorf("duplicate candidate %q", c.Name)
		}
		r.byName[c.Name] = len(r.candidates)
		r.candidates = append(r.candidates, c)
	}
	return r, nil
}

// DefaultRegistry returns the standard families. small swaps the forest for 48 depth-4
// trees and LightGBM for its 60-round variant so the ensembles stay cheap to evaluate.
func DefaultRegistry(seed int64, small bool) *Registry {
	forest := []ForestOption{WithEstimators(300), WithForestSeed(seed)}
	newLightGBM := NewLightGBM
	if small {
		forest = []ForestOption{WithEstimators(48), WithForestDepth(4), WithForestSeed(seed)}
		newLightGBM = NewSmallLightGBM
	}
	r, err := NewRegistry(
		Candidate{Name: NameLogReg, New: func() Classifier { return NewLogisticRegression() }},
		Candidate{Name: NameDecisionTree, New: func() Classifier {
			return NewDecisionTree(WithMinSamplesLeaf(5), WithSeed(seed))
		}},
		Candidate{Name: NameRandomForest, New: func() Classifier { return NewRandomForest(forest...) }},
		Candidate{Name: NameGradBoost, New: func() Classifier { return NewGradientBoosting() }},
		Candidate{Name: NameLightGBM, New: func() Classifier { return newLightGBM(seed) }},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Candidates returns the candidates in evaluation order.
func (r *Registry) Candidates() []Candidate {
	return append([]Candidate(nil), r.candidates...)
}

// Lookup returns the candidate with the given name.
func (r *Registry) Lookup(name string) (Candidate, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Candidate{}, false
	}
	return r.candidates[i], true
}

// Names returns the candidate names sorted alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.candidates))
	for _, c := range r.candidates {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}
