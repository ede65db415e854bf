package metrics

import (
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEvaluation(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.RecordEvaluation("LogReg", 0.8, 12.5, 250*time.Millisecond)
	m.RecordEvaluation("GradBoost", 0.9, math.NaN(), time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("LogReg")))
	assert.Equal(t, 0.8, testutil.ToFloat64(m.CVAccuracy.WithLabelValues("LogReg")))
	assert.Equal(t, 12.5, testutil.ToFloat64(m.CVRegret.WithLabelValues("LogReg")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CVRegret), "NaN regret is not exported")
	assert.Equal(t, 2, testutil.CollectAndCount(m.EvalDuration))
}

func TestRecordFailure(t *testing.T) {
	m := New()

	m.RecordFailure("RandomForest")
	m.RecordFailure("RandomForest")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Failures.WithLabelValues("RandomForest")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("RandomForest")))
}

func TestRecordDatasetAndTree(t *testing.T) {
	m := New()

	m.RecordDataset(120, 41, 3)
	m.RecordTree(15, 4)

	assert.Equal(t, 120.0, testutil.ToFloat64(m.Samples))
	assert.Equal(t, 41.0, testutil.ToFloat64(m.Features))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DroppedRows))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.TreeNodes))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.TreeDepth))
}

func TestSeparateRuns(t *testing.T) {
	a, b := New(), New()
	a.RecordFailure("LogReg")
	assert.Zero(t, testutil.CollectAndCount(b.Failures), "each run has its own registry")
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RecordDataset(10, 2, 0)
	m.RecordEvaluation("DecisionTree", 0.7, 1, time.Millisecond)

	path, err := m.WriteTextfile(t.TempDir())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "metrics.prom"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "exetrain_samples 10")
	assert.Contains(t, text, `exetrain_cv_accuracy{model="DecisionTree"} 0.7`)

	_, err = m.WriteTextfile("/nonexistent/dir/for/metrics")
	assert.Error(t, err)
}
