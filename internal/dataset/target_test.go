package dataset

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sizeTable builds n rows where even rows favour KanziEXE and odd rows favour BCJ.
func sizeTable(n int) *Table {
	header := []string{"path", "file_size", "bcj_final", "kanzi_final"}
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		bcj, kan := 1000+i, 1100+i
		if i%2 == 0 {
			kan = 900 + i
		}
		rows[i] = []string{
			fmt.Sprintf("/bins/v%d/prog%d", i%3, i),
			fmt.Sprint(5000 + i*10),
			fmt.Sprint(bcj),
			fmt.Sprint(kan),
		}
	}
	return NewTable(header, rows)
}

func TestBuildTarget_FromFinalSizes(t *testing.T) {
	tbl := sizeTable(20)

	tg, err := BuildTarget(tbl, DefaultColumns())
	require.NoError(t, err)
	assert.Equal(t, SourceFinalSizes, tg.Source)

	bcj := tbl.Numeric("bcj_final")
	kan := tbl.Numeric("kanzi_final")
	ones := 0
	for i := range tg.Labels {
		require.True(t, tg.Valid[i])
		want := 0
		if kan[i] < bcj[i] {
			want = 1
		}
		assert.Equal(t, want, tg.Labels[i], "row %d", i)
		ones += tg.Labels[i]
	}
	assert.Equal(t, 10, ones)
}

func TestBuildTarget_TieIsBCJ(t *testing.T) {
	tbl := NewTable([]string{"bcj_final", "kanzi_final"}, [][]string{{"500", "500"}})

	tg, err := BuildTarget(tbl, DefaultColumns())
	require.NoError(t, err)
	assert.True(t, tg.Valid[0])
	assert.Equal(t, 0, tg.Labels[0])
}

func TestBuildTarget_UnparseableSizesAreMissing(t *testing.T) {
	tbl := NewTable([]string{"bcj_final", "kanzi_final"}, [][]string{
		{"500", "400"},
		{"oops", "400"},
		{"500", ""},
	})

	tg, err := BuildTarget(tbl, DefaultColumns())
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false}, tg.Valid)
	assert.Equal(t, 2, tg.Missing())
}

func TestBuildTarget_LabelColumn(t *testing.T) {
	tbl := NewTable([]string{"winner", "bcj_final", "kanzi_final"}, [][]string{
		{" KanziEXE ", "1", "2"},
		{"BCJ", "2", "1"},
		{"lzma", "1", "1"},
		{"", "1", "1"},
	})

	tg, err := BuildTarget(tbl, DefaultColumns())
	require.NoError(t, err)
	assert.Equal(t, SourceLabelColumn, tg.Source)
	assert.Equal(t, []bool{true, true, false, false}, tg.Valid)
	assert.Equal(t, 1, tg.Labels[0], "explicit label wins over sizes")
	assert.Equal(t, 0, tg.Labels[1])
}

func TestBuildTarget_EmptyLabelColumnFallsBackToSizes(t *testing.T) {
	tbl := NewTable([]string{"winner", "bcj_final", "kanzi_final"}, [][]string{
		{"", "10", "5"},
		{"NA", "5", "10"},
	})

	tg, err := BuildTarget(tbl, DefaultColumns())
	require.NoError(t, err)
	assert.Equal(t, SourceFinalSizes, tg.Source)
	assert.Equal(t, []int{1, 0}, tg.Labels)
}

func TestBuildTarget_NoSource(t *testing.T) {
	tbl := NewTable([]string{"path", "bcj_final"}, [][]string{{"a", "1"}})

	_, err := BuildTarget(tbl, DefaultColumns())
	assert.ErrorIs(t, err, ErrNoLabelSource)
}
