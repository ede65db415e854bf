package dataset

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
)

// Dataset is the training view of a table: feature matrix, labels, group keys and the two
// final sizes used to measure regret. It is read-only once built.
type Dataset struct {
	Features    []string
	X           [][]float64
	Y           []int
	Groups      []string
	BCJFinal    []float64
	KanziFinal  []float64
	Dropped     int
	LabelSource string
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.Y)
}

// Prepare builds the Dataset: labels first, rows without a label dropped, then feature
// selection over the remaining rows. Missing or non-finite feature values become 0.
func Prepare(t *Table, p FeaturePolicy, cols Columns) (*Dataset, error) {
	if t == nil || t.Len() == 0 {
		return nil, ErrEmptyTable
	}
	if p.LabelColumn == "" {
		p.LabelColumn = cols.Label
	}
	if p.PathColumn == "" {
		p.PathColumn = cols.Path
	}

	target, err := BuildTarget(t, cols)
	if err != nil {
		return nil, err
	}

	dropped := target.Missing()
	if dropped > 0 {
		log.Warn().
			Int("dropped", dropped).
			Int("total", t.Len()).
			Str("label_source", target.Source).
			Msg("Dropping rows without a derivable label")
	}

	kept := t.Filter(target.Valid)
	if kept.Len() == 0 {
		return nil, fmt.Errorf("%w: no row has a usable label", ErrEmptyTable)
	}

	y := make([]int, 0, kept.Len())
	for i, ok := range target.Valid {
		if ok {
			y = append(y, target.Labels[i])
		}
	}

	features := SelectFeatures(kept, p)
	X := make([][]float64, kept.Len())
	for i := range X {
		X[i] = make([]float64, len(features))
	}
	for j, name := range features {
		col := kept.Numeric(name)
		for i, v := range col {
			if isFinite(v) {
				X[i][j] = v
			}
		}
	}

	d := &Dataset{
		Features:    features,
		X:           X,
		Y:           y,
		Groups:      GroupKeys(kept, cols.Path),
		BCJFinal:    kept.Numeric(cols.BCJFinal),
		KanziFinal:  kept.Numeric(cols.KanziFinal),
		Dropped:     dropped,
		LabelSource: target.Source,
	}

	log.Info().
		Int("samples", d.Len()).
		Int("features", len(features)).
		Str("label_source", d.LabelSource).
		Msg("Training matrix built")
	return d, nil
}

// GroupKeys returns the basename of each row's path. Rows without a path, or every row when
// the column is absent, get a unique synthetic key so they form singleton groups. Synthetic
// keys contain a slash, which no basename can.
func GroupKeys(t *Table, pathColumn string) []string {
	keys := make([]string, t.Len())
	cells, ok := t.Column(pathColumn)
	for i := range keys {
		if !ok || IsMissing(cells[i]) {
			keys[i] = fmt.Sprintf("row/%d", i)
			continue
		}
		keys[i] = basename(strings.TrimSpace(cells[i]))
	}
	return keys
}

// basename returns the text after the last slash, so "a/b/" maps to "".
func basename(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
