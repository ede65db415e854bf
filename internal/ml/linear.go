package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LogisticRegression is an L2-penalised logistic model fitted by Newton's method on
// features divided by their standard deviation. The model is defined on uncentred
// features; the solver centres them internally, which only moves the unpenalised
// intercept.
type LogisticRegression struct {
	C       float64 // inverse penalty strength
	MaxIter int
	Tol     float64

	scale     []float64
	coef      []float64
	intercept float64
	nFeatures int
	fitted    bool
}

// NewLogisticRegression returns a model with C=1 and up to 2000 Newton iterations.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{C: 1, MaxIter: 2000, Tol: 1e-8}
}

// Fit estimates the coefficients. A single-class training set yields a constant model.
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	p, err := checkTrainingSet(X, y)
	if err != nil {
		return err
	}
	if m.C <= 0 {
		return fmt.Errorf("logistic regression needs C > 0, got %g", m.C)
	}

	m.nFeatures = p
	m.scale = featureScale(X, p)
	m.coef = make([]float64, p)
	m.fitted = true

	switch labelMean(y) {
	case 0:
		m.intercept = math.Inf(-1)
		return nil
	case 1:
		m.intercept = math.Inf(1)
		return nil
	}

	mean := make([]float64, p)
	for _, row := range X {
		for j, v := range row {
			mean[j] += v / m.scale[j]
		}
	}
	floats.Scale(1/float64(len(X)), mean)

	Z := make([][]float64, len(X))
	for i, row := range X {
		z := make([]float64, p+1)
		for j, v := range row {
			z[j] = v/m.scale[j] - mean[j]
		}
		z[p] = 1
		Z[i] = z
	}
	target := make([]float64, len(y))
	for i, v := range y {
		target[i] = float64(v)
	}

	w, err := m.newton(Z, target, p+1)
	if err != nil {
		return err
	}
	copy(m.coef, w[:p])
	m.intercept = w[p] - floats.Dot(w[:p], mean)
	return nil
}

// objective is 0.5·|w|² over the coefficients plus C times the summed log-loss.
func (m *LogisticRegression) objective(Z [][]float64, t, w []float64) float64 {
	d := len(w) - 1
	loss := 0.0
	for i, z := range Z {
		s := floats.Dot(z, w)
		loss += log1pExp(s) - t[i]*s
	}
	return 0.5*floats.Dot(w[:d], w[:d]) + m.C*loss
}

func (m *LogisticRegression) newton(Z [][]float64, t []float64, d int) ([]float64, error) {
	w := make([]float64, d)
	grad := make([]float64, d)
	step := mat.NewVecDense(d, nil)
	trial := make([]float64, d)
	current := m.objective(Z, t, w)

	for iter := 0; iter < m.MaxIter; iter++ {
		hess := mat.NewSymDense(d, nil)
		for j := 0; j < d-1; j++ {
			grad[j] = w[j]
			hess.SetSym(j, j, 1)
		}
		grad[d-1] = 0
		// a tiny ridge on the intercept keeps the Hessian positive definite
		hess.SetSym(d-1, d-1, 1e-10)

		for i, z := range Z {
			prob := sigmoid(floats.Dot(z, w))
			floats.AddScaled(grad, m.C*(prob-t[i]), z)
			h := m.C * prob * (1 - prob)
			if h == 0 {
				continue
			}
			for a := 0; a < d; a++ {
				if z[a] == 0 {
					continue
				}
				for b := a; b < d; b++ {
					hess.SetSym(a, b, hess.At(a, b)+h*z[a]*z[b])
				}
			}
		}
		if floats.Norm(grad, math.Inf(1)) < m.Tol {
			break
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(hess); !ok {
			return nil, fmt.Errorf("logistic regression: hessian is not positive definite at iteration %d", iter)
		}
		// mat.Condition is advisory: the solution is still written to step
		if err := chol.SolveVecTo(step, mat.NewVecDense(d, grad)); err != nil {
			var cond mat.Condition
			if !errors.As(err, &cond) {
				return nil, fmt.Errorf("logistic regression newton step: %w", err)
			}
		}

		// backtracking on the Newton direction, steepest descent if it is unusable
		alpha := 1.0
		dir := step.RawVector().Data
		expected := floats.Dot(grad, dir)
		if !(expected > 0) || math.IsInf(expected, 0) {
			copy(dir, grad)
			expected = floats.Dot(grad, dir)
		}
		accepted := false
		for ls := 0; ls < 50; ls++ {
			copy(trial, w)
			floats.AddScaled(trial, -alpha, dir)
			if next := m.objective(Z, t, trial); next <= current-1e-4*alpha*expected {
				copy(w, trial)
				improvement := current - next
				current = next
				accepted = true
				if improvement <= m.Tol*math.Max(1, math.Abs(current)) {
					return w, nil
				}
				break
			}
			alpha /= 2
		}
		if !accepted {
			break
		}
	}
	return w, nil
}

// Predict returns 1 where the linear score is positive.
func (m *LogisticRegression) Predict(X [][]float64) ([]int, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkRows(X, m.nFeatures); err != nil {
		return nil, err
	}
	out := make([]int, len(X))
	for i, row := range X {
		if m.decision(row) > 0 {
			out[i] = 1
		}
	}
	return out, nil
}

func (m *LogisticRegression) decision(x []float64) float64 {
	s := m.intercept
	for j, v := range x {
		s += m.coef[j] * v / m.scale[j]
	}
	return s
}

// Coefficients returns the coefficients in the original (unscaled) feature units and the
// intercept.
func (m *LogisticRegression) Coefficients() ([]float64, float64) {
	out := make([]float64, len(m.coef))
	for j, c := range m.coef {
		out[j] = c / m.scale[j]
	}
	return out, m.intercept
}

// featureScale returns the population standard deviation of every column; constant
// columns get 1.
func featureScale(X [][]float64, p int) []float64 {
	scale := make([]float64, p)
	col := make([]float64, len(X))
	for j := 0; j < p; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		_, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		scale[j] = std
	}
	return scale
}
