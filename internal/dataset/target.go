package dataset

import (
	"errors"
	"fmt"
	"strings"

	"exe-predictor/internal/common"
)

// ErrNoLabelSource is returned when neither a label column nor both final-size columns exist.
var ErrNoLabelSource = errors.New("no label column and cannot derive labels from final sizes")

// Label sources
const (
	SourceLabelColumn = "winner"
	SourceFinalSizes  = "final_sizes"
)

// Columns names the semantic columns of the input table.
type Columns struct {
	Label      string
	Path       string
	BCJFinal   string
	KanziFinal string
}

// DefaultColumns returns the column names written by the collectors.
func DefaultColumns() Columns {
	return Columns{
		Label:      common.ColumnWinner,
		Path:       common.ColumnPath,
		BCJFinal:   common.ColumnBCJFinal,
		KanziFinal: common.ColumnKanziFinal,
	}
}

// Target holds one label per table row. Valid[i] is false when row i has no derivable label.
type Target struct {
	Labels []int
	Valid  []bool
	Source string
}

// Missing returns the number of rows without a label.
func (tg Target) Missing() int {
	n := 0
	for _, ok := range tg.Valid {
		if !ok {
			n++
		}
	}
	return n
}

// BuildTarget derives the BCJ/KanziEXE label of every row.
//
// An explicit label column with at least one non-missing cell wins; its cells are matched
// case-insensitively against "bcj" and "kanziexe". Otherwise the label is 1 when the KanziEXE
// final size is strictly smaller than the BCJ one, so equal sizes count as a BCJ win.
func BuildTarget(t *Table, cols Columns) (Target, error) {
	n := t.Len()
	tg := Target{Labels: make([]int, n), Valid: make([]bool, n)}

	if cells, ok := t.Column(cols.Label); ok && anyPresent(cells) {
		tg.Source = SourceLabelColumn
		for i, c := range cells {
			switch strings.ToLower(strings.TrimSpace(c)) {
			case common.WinnerKanziEXE:
				tg.Labels[i], tg.Valid[i] = common.LabelKanziEXE, true
			case common.WinnerBCJ:
				tg.Labels[i], tg.Valid[i] = common.LabelBCJ, true
			}
		}
		return tg, nil
	}

	if t.Has(cols.BCJFinal) && t.Has(cols.KanziFinal) {
		tg.Source = SourceFinalSizes
		bcj := t.Numeric(cols.BCJFinal)
		kan := t.Numeric(cols.KanziFinal)
		for i := 0; i < n; i++ {
			if isFinite(bcj[i]) && isFinite(kan[i]) {
				tg.Valid[i] = true
				if kan[i] < bcj[i] {
					tg.Labels[i] = common.LabelKanziEXE
				} else {
					tg.Labels[i] = common.LabelBCJ
				}
			}
		}
		return tg, nil
	}

	return Target{}, fmt.Errorf("%w: need column %q or both %q and %q",
		ErrNoLabelSource, cols.Label, cols.BCJFinal, cols.KanziFinal)
}

func anyPresent(cells []string) bool {
	for _, c := range cells {
		if !IsMissing(c) {
			return true
		}
	}
	return false
}
