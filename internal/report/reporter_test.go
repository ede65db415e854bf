package report

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *Report {
	return &Report{
		RunID:          "run-1",
		Codec:          "zx7b",
		BestModel:      "DecisionTree",
		Accuracy:       0.875,
		ExpectedRegret: Float(math.NaN()),
		NSamples:       40,
		NFeatures:      2,
		Features:       []string{"file_size", "text_sz"},
		CSV:            "/data/zx7b.csv",
		DroppedRows:    3,
		LabelSource:    "winner",
		Folds:          5,
		Candidates: []Candidate{
			{Name: "DecisionTree", Accuracy: 0.875, ExpectedRegret: Float(math.NaN()), Folds: 5},
			{Name: "LogReg", Error: "fold 0 fit: boom"},
		},
		Tree: &Tree{
			Mode: "distilled", MaxDepth: 4, MinLeaf: 10, Depth: 3, Leaves: 5, Nodes: 9,
			AgreementVsTrue: 0.9, Fidelity: 1, HeaderPath: "src/packer/zx7b_predict_dt.h",
		},
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestGenerateReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "zx7b")
	require.NoError(t, NewReporter(sampleReport(), dir).GenerateReport())

	data, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"codec", "best_model", "accuracy", "expected_regret", "n_samples", "n_features", "features", "csv"} {
		assert.Contains(t, raw, key)
	}
	assert.Nil(t, raw["expected_regret"], "NaN regret is written as null")
	assert.Equal(t, "zx7b", raw["codec"])
	assert.True(t, strings.HasPrefix(string(data), "{\n  \""), "indented with two spaces")

	features, err := os.ReadFile(filepath.Join(dir, "features.txt"))
	require.NoError(t, err)
	assert.Equal(t, "file_size\ntext_sz", string(features))

	summary, err := os.ReadFile(filepath.Join(dir, "summary.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "Best model: DecisionTree")
	assert.Contains(t, string(summary), "LogReg       | failed: fold 0 fit: boom")

	candidates, err := os.ReadFile(filepath.Join(dir, CandidatesFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(candidates)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "DecisionTree,0.875000,nan,5,0,", lines[1])
}

func TestReport_DecodeNull(t *testing.T) {
	data, err := NewReporter(sampleReport(), "").Marshal()
	require.NoError(t, err)

	var back Report
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, math.IsNaN(float64(back.ExpectedRegret)))
	assert.Equal(t, Float(0.875), back.Accuracy)
	require.NotNil(t, back.Tree)
	assert.Equal(t, "distilled", back.Tree.Mode)
}

func TestPrintSummary_NoTree(t *testing.T) {
	r := sampleReport()
	r.Tree = nil
	r.ExpectedRegret = 12.5

	var buf bytes.Buffer
	NewReporter(r, "").PrintSummary(&buf)
	assert.Contains(t, buf.String(), "expected regret 12.50")
	assert.NotContains(t, buf.String(), "DECISION TREE")
}

func TestGenerateReport_Unwritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	err := NewReporter(sampleReport(), filepath.Join(file, "sub")).GenerateReport()
	assert.Error(t, err)
}
