package report

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

// Float is a float64 that encodes NaN and infinities as JSON null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler; null decodes to NaN.
func (f *Float) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Candidate is one evaluated model family.
type Candidate struct {
	Name           string `json:"name"`
	Accuracy       Float  `json:"accuracy"`
	ExpectedRegret Float  `json:"expected_regret"`
	Folds          int    `json:"folds"`
	ElapsedMS      int64  `json:"elapsed_ms"`
	Error          string `json:"error,omitempty"`
}

// Tree describes the exported decision tree.
type Tree struct {
	Mode            string `json:"mode"`
	MaxDepth        int    `json:"max_depth"`
	MinLeaf         int    `json:"min_leaf"`
	Depth           int    `json:"depth"`
	Leaves          int    `json:"leaves"`
	Nodes           int    `json:"nodes"`
	AgreementVsTrue Float  `json:"agreement_vs_true"`
	Fidelity        Float  `json:"fidelity"`
	HeaderPath      string `json:"header_path,omitempty"`
}

// Report is the content of report.json.
type Report struct {
	RunID          string      `json:"run_id"`
	Codec          string      `json:"codec"`
	BestModel      string      `json:"best_model"`
	Accuracy       Float       `json:"accuracy"`
	ExpectedRegret Float       `json:"expected_regret"`
	NSamples       int         `json:"n_samples"`
	NFeatures      int         `json:"n_features"`
	Features       []string    `json:"features"`
	CSV            string      `json:"csv"`
	DroppedRows    int         `json:"dropped_rows"`
	LabelSource    string      `json:"label_source"`
	Folds          int         `json:"folds"`
	Forced         bool        `json:"forced"`
	Candidates     []Candidate `json:"candidates"`
	Tree           *Tree       `json:"tree,omitempty"`
	GeneratedAt    time.Time   `json:"generated_at"`
}
