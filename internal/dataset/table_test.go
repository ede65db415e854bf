package dataset

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	in := "path,file_size,winner\n/bin/ls,1000,bcj\n/bin/cat,NA,KanziEXE\n/bin/short\n"

	tbl, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"path", "file_size", "winner"}, tbl.Header)
	assert.Equal(t, 3, tbl.Len())

	sizes := tbl.Numeric("file_size")
	assert.Equal(t, 1000.0, sizes[0])
	assert.True(t, math.IsNaN(sizes[1]))
	assert.True(t, math.IsNaN(sizes[2]), "padded cell should be missing")

	winners, ok := tbl.Column("winner")
	require.True(t, ok)
	assert.Equal(t, "KanziEXE", winners[1])
}

func TestParseCSV_Empty(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"no content", ""},
		{"header only", "path,file_size\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, ErrEmptyTable)
		})
	}
}

func TestReadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffpath,file_size\na,1\n"), 0o644))

	tbl, err := ReadCSV(path)
	require.NoError(t, err)
	assert.True(t, tbl.Has("path"), "byte order mark should be stripped from the header")

	_, err = ReadCSV(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestTable_NumericAbsentColumn(t *testing.T) {
	tbl := NewTable([]string{"a"}, [][]string{{"1"}, {"2"}})

	col := tbl.Numeric("b")
	require.Len(t, col, 2)
	for _, v := range col {
		assert.True(t, math.IsNaN(v))
	}
}

func TestTable_Filter(t *testing.T) {
	tbl := NewTable([]string{"a"}, [][]string{{"1"}, {"2"}, {"3"}})

	kept := tbl.Filter([]bool{true, false, true})
	assert.Equal(t, 2, kept.Len())
	assert.Equal(t, []float64{1, 3}, kept.Numeric("a"))
	assert.Equal(t, 3, tbl.Len(), "source table must not change")
}

func TestIsMissing(t *testing.T) {
	for _, c := range []string{"", " ", "NA", "nan", "NULL", "None", "#N/A"} {
		assert.True(t, IsMissing(c), "%q", c)
	}
	for _, c := range []string{"0", "bcj", "none?"} {
		assert.False(t, IsMissing(c), "%q", c)
	}
}
