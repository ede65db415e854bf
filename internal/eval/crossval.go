package eval

import (
	"fmt"

	"exe-predictor/internal/ml"
)

// Result summarises a cross-validation run.
type Result struct {
	Accuracy float64 // mean fold accuracy
	Regret   float64 // mean fold regret over folds with at least one sized row; NaN otherwise
	Folds    int     // number of folds evaluated
	PerFold  []FoldScore
}

// FoldScore is the score of a single fold.
type FoldScore struct {
	Accuracy  float64
	Regret    float64
	TestRows  int
	SizedRows int
}

// CrossValidate fits a fresh model from factory on every fold's training rows and scores it
// on the held-out rows. bcj and kanzi hold the filtered sizes per row and may contain NaN.
func CrossValidate(factory ml.Factory, X [][]float64, y []int, groups []string, bcj, kanzi []float64, folds int) (Result, error) {
	n := len(X)
	if len(y) != n || len(groups) != n || len(bcj) != n || len(kanzi) != n {
		return Result{}, fmt.Errorf("cross-validate: mismatched lengths X=%d y=%d groups=%d bcj=%d kanzi=%d",
			n, len(y), len(groups), len(bcj), len(kanzi))
	}

	splits, err := GroupKFold(groups, folds)
	if err != nil {
		return Result{}, err
	}

	res := Result{Folds: len(splits), PerFold: make([]FoldScore, 0, len(splits))}
	accs := make([]float64, 0, len(splits))
	regrets := make([]float64, 0, len(splits))
	for f, split := range splits {
		model := factory()
		if err := model.Fit(rowsOf(X, split.Train), labelsOf(y, split.Train)); err != nil {
			return Result{}, fmt.Errorf("fold %d fit: %w", f, err)
		}
		pred, err := model.Predict(rowsOf(X, split.Test))
		if err != nil {
			return Result{}, fmt.Errorf("fold %d predict: %w", f, err)
		}

		acc := Accuracy(labelsOf(y, split.Test), pred)
		regret, sized := ExpectedRegret(pred, valuesOf(bcj, split.Test), valuesOf(kanzi, split.Test))
		accs = append(accs, acc)
		regrets = append(regrets, regret)
		res.PerFold = append(res.PerFold, FoldScore{
			Accuracy:  acc,
			Regret:    regret,
			TestRows:  len(split.Test),
			SizedRows: sized,
		})
	}

	res.Accuracy = nanMean(accs)
	res.Regret = nanMean(regrets)
	return res, nil
}

func rowsOf(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

func labelsOf(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}

func valuesOf(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}
