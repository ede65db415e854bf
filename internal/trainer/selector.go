// Package trainer runs the model comparison: it evaluates every candidate family with
// grouped cross-validation, picks the winner, refits it on all rows and optionally reduces
// it to a small decision tree for export.
package trainer

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"exe-predictor/internal/dataset"
	"exe-predictor/internal/eval"
	"exe-predictor/internal/ml"
)

var (
	// ErrUnknownModel is returned when a forced model name is not registered.
	ErrUnknownModel = errors.New("unknown model")
	// ErrNoUsableModel is returned when every candidate failed to evaluate.
	ErrNoUsableModel = errors.New("no usable model")
)

// Recorder receives evaluation measurements. A nil Recorder is ignored.
type Recorder interface {
	RecordEvaluation(model string, accuracy, regret float64, elapsed time.Duration)
	RecordFailure(model string)
	RecordDataset(samples, features, dropped int)
	RecordTree(nodes, depth int)
}

// ModelResult is the cross-validated score of one candidate.
type ModelResult struct {
	Name     string
	Accuracy float64
	Regret   float64
	Folds    int
	Elapsed  time.Duration
	Err      error
}

// Selection is the outcome of Select.
type Selection struct {
	Ranked []ModelResult // successful candidates, best first
	Failed []ModelResult
	Best   ModelResult
	Model  ml.Classifier // Best refitted on every row
	Folds  int           // fold count after clamping
}

// SelectOptions controls Select.
type SelectOptions struct {
	Folds      int
	ForceModel string
	Recorder   Recorder
}

// ValidateForced checks a forced model name against the registry. An empty name is valid.
func ValidateForced(reg *ml.Registry, name string) error {
	if name == "" {
		return nil
	}
	if _, ok := reg.Lookup(name); !ok {
		return fmt.Errorf("%w %q, valid names: %s", ErrUnknownModel, name, strings.Join(reg.Names(), ", "))
	}
	return nil
}

// Select evaluates the candidates on data and refits the best one on all rows. With a forced
// model only that candidate is evaluated, and its failure is fatal.
func Select(reg *ml.Registry, data *dataset.Dataset, opts SelectOptions) (*Selection, error) {
	if err := ValidateForced(reg, opts.ForceModel); err != nil {
		return nil, err
	}

	candidates := reg.Candidates()
	if opts.ForceModel != "" {
		c, _ := reg.Lookup(opts.ForceModel)
		candidates = []ml.Candidate{c}
	}

	folds := eval.ClampFolds(opts.Folds, eval.DistinctGroups(data.Groups))
	if folds != opts.Folds {
		log.Warn().Int("requested", opts.Folds).Int("folds", folds).Msg("Fold count clamped to the number of groups")
	}

	sel := &Selection{Folds: folds}
	for _, c := range candidates {
		started := time.Now()
		res, err := eval.CrossValidate(c.New, data.X, data.Y, data.Groups, data.BCJFinal, data.KanziFinal, folds)
		mr := ModelResult{Name: c.Name, Elapsed: time.Since(started)}
		if err != nil {
			mr.Accuracy, mr.Regret, mr.Err = math.NaN(), math.NaN(), err
			sel.Failed = append(sel.Failed, mr)
			if opts.Recorder != nil {
				opts.Recorder.RecordFailure(c.Name)
			}
			if opts.ForceModel != "" {
				return nil, fmt.Errorf("forced model %s failed: %w", c.Name, err)
			}
			log.Warn().Err(err).Str("model", c.Name).Msg("Candidate failed, skipping")
			continue
		}

		mr.Accuracy, mr.Regret, mr.Folds = res.Accuracy, res.Regret, res.Folds
		sel.Ranked = append(sel.Ranked, mr)
		if opts.Recorder != nil {
			opts.Recorder.RecordEvaluation(c.Name, mr.Accuracy, mr.Regret, mr.Elapsed)
		}
		log.Info().Msgf("%-12s | acc=%.4f | regret=%s", c.Name, mr.Accuracy, formatRegret(mr.Regret))
	}

	if len(sel.Ranked) == 0 {
		return nil, fmt.Errorf("%w: all %d candidates failed", ErrNoUsableModel, len(sel.Failed))
	}

	Rank(sel.Ranked)
	sel.Best = sel.Ranked[0]

	best, _ := reg.Lookup(sel.Best.Name)
	model := best.New()
	if err := model.Fit(data.X, data.Y); err != nil {
		return nil, fmt.Errorf("refit %s on all rows: %w", best.Name, err)
	}
	sel.Model = model

	log.Info().Str("model", sel.Best.Name).Float64("accuracy", sel.Best.Accuracy).Msg("Best model selected")
	return sel, nil
}

// Rank orders results by accuracy descending, then regret ascending. Non-finite regret
// sorts last among equal accuracies. The sort is stable so registry order breaks full ties.
func Rank(results []ModelResult) {
	sort.SliceStable(results, func(a, b int) bool {
		ra, rb := results[a], results[b]
		if ra.Accuracy != rb.Accuracy {
			return ra.Accuracy > rb.Accuracy
		}
		return regretKey(ra.Regret) < regretKey(rb.Regret)
	})
}

func regretKey(r float64) float64 {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return math.Inf(1)
	}
	return r
}

func formatRegret(r float64) string {
	if math.IsNaN(r) {
		return "nan"
	}
	return fmt.Sprintf("%.2f", r)
}
