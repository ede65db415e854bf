// Package ml provides the classifier families compared by the trainer: a scaled logistic
// regression, a CART decision tree, a bagged forest of trees, gradient-boosted trees and a
// LightGBM ensemble.
//
// Every family implements Classifier. Labels are 0 (BCJ) and 1 (KanziEXE). Fitted models
// own their parameters; the feature matrix passed to Fit is never modified.
package ml

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotFitted is returned by Predict on a model that has not been fitted.
var ErrNotFitted = errors.New("model is not fitted")

// Classifier is a binary classifier over dense float64 feature rows.
type Classifier interface {
	// Fit trains the model on X (n rows × p features) and labels y in {0,1}.
	Fit(X [][]float64, y []int) error
	// Predict returns one label per row of X.
	Predict(X [][]float64) ([]int, error)
}

// checkTrainingSet validates shapes and labels and returns the feature count.
func checkTrainingSet(X [][]float64, y []int) (int, error) {
	if len(X) == 0 {
		return 0, errors.New("empty training set")
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("X has %d rows but y has %d labels", len(X), len(y))
	}
	p := len(X[0])
	for i, row := range X {
		if len(row) != p {
			return 0, fmt.Errorf("row %d has %d features, expected %d", i, len(row), p)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("row %d feature %d is not finite", i, j)
			}
		}
	}
	for i, label := range y {
		if label != 0 && label != 1 {
			return 0, fmt.Errorf("label %d at row %d is not 0 or 1", label, i)
		}
	}
	return p, nil
}

func checkRows(X [][]float64, p int) error {
	for i, row := range X {
		if len(row) != p {
			return fmt.Errorf("row %d has %d features, model expects %d", i, len(row), p)
		}
	}
	return nil
}

// classFromCounts returns the majority class; an exact tie goes to class 0.
func classFromCounts(c [2]float64) int {
	if c[1] > c[0] {
		return 1
	}
	return 0
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// log1pExp computes log(1 + e^z) without overflow.
func log1pExp(z float64) float64 {
	if z > 35 {
		return z
	}
	if z < -35 {
		return math.Exp(z)
	}
	return math.Log1p(math.Exp(z))
}

func labelMean(y []int) float64 {
	s := 0
	for _, v := range y {
		s += v
	}
	return float64(s) / float64(len(y))
}
