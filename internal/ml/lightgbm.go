package ml

import (
	"fmt"

	"github.com/YuminosukeSato/scigo/sklearn/lightgbm"
	"gonum.org/v1/gonum/mat"
)

// LightGBM is a histogram gradient-boosted tree ensemble backed by scigo's LGBMClassifier.
type LightGBM struct {
	NumIterations   int
	MaxDepth        int
	NumLeaves       int
	LearningRate    float64
	Subsample       float64
	ColsampleBytree float64
	RegLambda       float64
	Seed            int64

	clf       *lightgbm.LGBMClassifier
	constant  int // label of a single-class training set, -1 otherwise
	nFeatures int
	fitted    bool
}

// NewLightGBM returns 400 rounds of depth-6 trees at learning rate 0.07 with 0.9 row and
// column subsampling.
func NewLightGBM(seed int64) *LightGBM {
	return &LightGBM{
		NumIterations:   400,
		MaxDepth:        6,
		NumLeaves:       63,
		LearningRate:    0.07,
		Subsample:       0.9,
		ColsampleBytree: 0.9,
		RegLambda:       1,
		Seed:            seed,
	}
}

// NewSmallLightGBM returns the cheap variant: 60 rounds of depth-3 trees at 0.08.
func NewSmallLightGBM(seed int64) *LightGBM {
	m := NewLightGBM(seed)
	m.NumIterations = 60
	m.MaxDepth = 3
	m.NumLeaves = 8
	m.LearningRate = 0.08
	return m
}

// Fit trains the ensemble. A single-class training set yields a constant model, which
// the underlying library cannot fit.
func (m *LightGBM) Fit(X [][]float64, y []int) error {
	p, err := checkTrainingSet(X, y)
	if err != nil {
		return err
	}
	if m.NumIterations < 1 || m.LearningRate <= 0 {
		return fmt.Errorf("lightgbm needs at least one round and a positive learning rate")
	}
	if p == 0 {
		return fmt.Errorf("lightgbm needs at least one feature")
	}
	m.nFeatures = p
	m.constant = -1
	m.clf = nil

	switch labelMean(y) {
	case 0:
		m.constant, m.fitted = 0, true
		return nil
	case 1:
		m.constant, m.fitted = 1, true
		return nil
	}

	labels := mat.NewDense(len(y), 1, nil)
	for i, v := range y {
		labels.Set(i, 0, float64(v))
	}

	clf := lightgbm.NewLGBMClassifier().
		WithNumIterations(m.NumIterations).
		WithMaxDepth(m.MaxDepth).
		WithNumLeaves(m.NumLeaves).
		WithLearningRate(m.LearningRate).
		WithRandomState(int(m.Seed)).
		WithDeterministic(true)
	clf.Subsample = m.Subsample
	clf.SubsampleFreq = 1
	clf.ColsampleBytree = m.ColsampleBytree
	clf.RegLambda = m.RegLambda

	if err := clf.Fit(dense(X, p), labels); err != nil {
		return fmt.Errorf("lightgbm fit: %w", err)
	}
	m.clf = clf
	m.fitted = true
	return nil
}

// Predict returns 1 where the predicted KanziEXE probability is at least 0.5.
func (m *LightGBM) Predict(X [][]float64) ([]int, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkRows(X, m.nFeatures); err != nil {
		return nil, err
	}
	out := make([]int, len(X))
	if m.constant >= 0 {
		for i := range out {
			out[i] = m.constant
		}
		return out, nil
	}
	if len(X) == 0 {
		return out, nil
	}

	pred, err := m.clf.Predict(dense(X, m.nFeatures))
	if err != nil {
		return nil, fmt.Errorf("lightgbm predict: %w", err)
	}
	for i := range out {
		if pred.At(i, 0) >= 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}

func dense(X [][]float64, p int) *mat.Dense {
	d := mat.NewDense(len(X), p, nil)
	for i, row := range X {
		d.SetRow(i, row)
	}
	return d
}
