package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exe-predictor/internal/featindex"
	"exe-predictor/internal/ml"
)

func sizeTree(t *testing.T) *ml.DecisionTree {
	t.Helper()
	X := [][]float64{{100, 1}, {500, 1}, {900, 2}, {1100, 2}, {3000, 1}, {9000, 2}}
	y := []int{0, 0, 0, 1, 1, 1}
	tree := ml.NewDecisionTree()
	require.NoError(t, tree.Fit(X, y))
	return tree
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"file_size":    "file_size",
		"text.entropy": "text_entropy",
		"ro-sz":        "ro_sz",
		"é":            "__",
		"a b/c":        "a_b_c",
	}
	for in, want := range tests {
		assert.Equal(t, want, Sanitize(in), in)
	}
}

func TestCollisions(t *testing.T) {
	got := Collisions([]string{"a.b", "a-b", "c", "x y", "a.b", "x_y"})
	assert.Equal(t, [][]string{{"a.b", "a-b"}, {"x y", "x_y"}}, got)
	assert.Empty(t, Collisions([]string{"file_size", "text_sz"}))
}

func TestCompile_RoundTrip(t *testing.T) {
	tree := sizeTree(t)
	prog, err := Compile(tree, []string{"file_size", "etype"})
	require.NoError(t, err)

	require.Len(t, prog.Features, 1)
	assert.Equal(t, Feature{Index: 0, Name: "file_size", Ident: "file_size"}, prog.Features[0])

	ops := make([]Op, len(prog.Instrs))
	for i, in := range prog.Instrs {
		ops[i] = in.Op
	}
	assert.Equal(t, []Op{OpIf, OpReturn, OpElse, OpReturn, OpEnd}, ops)
	assert.InDelta(t, 1000, prog.Instrs[0].Threshold, 1e-9)

	assert.Equal(t, 0, prog.Eval(map[string]float64{"file_size": 500}))
	assert.Equal(t, 1, prog.Eval(map[string]float64{"file_size": 5000}))
	assert.Equal(t, 0, prog.Eval(map[string]float64{}), "absent features read as zero")
}

func TestCompile_MatchesTree(t *testing.T) {
	X := make([][]float64, 0, 200)
	y := make([]int, 0, 200)
	for i := 0; i < 200; i++ {
		a, b := float64(i%17)*1.25, float64(i%23)/3
		X = append(X, []float64{a, b})
		label := 0
		if (a > 10) != (b > 4) {
			label = 1
		}
		y = append(y, label)
	}
	tree := ml.NewDecisionTree(ml.WithMaxDepth(4))
	require.NoError(t, tree.Fit(X, y))

	prog, err := Compile(tree, []string{"a", "b"})
	require.NoError(t, err)

	want, err := tree.Predict(X)
	require.NoError(t, err)
	for i, row := range X {
		assert.Equal(t, want[i], prog.EvalRow(row), "row %d", i)
	}
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile(nil, nil)
	assert.Error(t, err)

	_, err = Compile(ml.NewDecisionTree(), []string{"a"})
	assert.ErrorIs(t, err, ml.ErrNotFitted)

	_, err = Compile(sizeTree(t), []string{"only_one"})
	assert.Error(t, err)
}

func TestHeader(t *testing.T) {
	prog, err := Compile(sizeTree(t), []string{"file_size", "etype"})
	require.NoError(t, err)

	text, err := Header(prog, Options{Prefix: "zx7b", EmitWrapper: true, Mapping: featindex.Default()})
	require.NoError(t, err)

	for _, want := range []string{
		"#pragma once",
		`#include "exe_predict_feature_index.h"`,
		"#include <string.h>",
		"extern \"C\" {",
		"typedef struct {\n    double file_size;\n} zx7b_CodecFeat;",
		"static inline int zx7b_dt_core(const zx7b_CodecFeat *m) {",
		"  if (m->file_size <= 1000.000000000) {\n    return 0;\n  } else {\n    return 1;\n  }\n",
		"static inline int zx7b_dt_predict_from_pvec(const double *in) {",
		"    m.file_size = in[PP_FEAT_file_size];",
		"    return zx7b_dt_core(&m);",
	} {
		assert.Contains(t, text, want)
	}
	assert.NotContains(t, text, "etype", "unused features stay out of the struct")
	assert.Equal(t, strings.Count(text, "{"), strings.Count(text, "}"))

	core, err := Header(prog, Options{Prefix: "pp"})
	require.NoError(t, err)
	assert.NotContains(t, core, "pp_dt_predict_from_pvec")
	assert.NotContains(t, core, "memset")
}

func TestHeader_MissingSlot(t *testing.T) {
	prog, err := Compile(sizeTree(t), []string{"not_in_index", "etype"})
	require.NoError(t, err)

	_, err = Header(prog, Options{Prefix: "zx7b", EmitWrapper: true, Mapping: featindex.Default()})
	assert.ErrorIs(t, err, ErrMissingSlot)

	_, err = Header(prog, Options{Prefix: "zx7b", EmitWrapper: true})
	assert.Error(t, err)

	_, err = Header(prog, Options{})
	assert.Error(t, err)
}

func TestWriteHeader(t *testing.T) {
	prog, err := Compile(sizeTree(t), []string{"file_size", "etype"})
	require.NoError(t, err)

	root := t.TempDir()
	path := DefaultHeaderPath(root, "blz")
	assert.Equal(t, filepath.Join(root, "src", "packer", "blz_predict_dt.h"), path)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	opts := Options{Prefix: "blz", EmitWrapper: true, Mapping: featindex.Default()}
	require.NoError(t, WriteHeader(path, prog, opts))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
	assert.Contains(t, string(data), "blz_dt_core")
}
