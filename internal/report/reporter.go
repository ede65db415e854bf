// Package report writes the artifacts of a training run into its output directory.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"exe-predictor/internal/common"
)

// CandidatesFile lists the per-candidate scores as CSV.
const CandidatesFile = "candidates.csv"

// Reporter writes run reports
type Reporter struct {
	report     *Report
	outputPath string
}

// NewReporter creates a new reporter
func NewReporter(r *Report, outputPath string) *Reporter {
	return &Reporter{
		report:     r,
		outputPath: outputPath,
	}
}

// GenerateReport writes report.json, features.txt, summary.txt and candidates.csv
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateJSONReport(); err != nil {
		return err
	}

	if err := r.generateFeatureList(); err != nil {
		return err
	}

	if err := r.generateSummary(); err != nil {
		return err
	}

	return r.generateCandidateLog()
}

// Marshal returns the indented JSON form of the report
func (r *Reporter) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(r.report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, common.ReportFile)
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

func (r *Reporter) generateFeatureList() error {
	path := filepath.Join(r.outputPath, common.FeaturesFile)
	if err := os.WriteFile(path, []byte(strings.Join(r.report.Features, "\n")), 0644); err != nil {
		return fmt.Errorf("failed to write feature list: %w", err)
	}

	log.Info().Str("file", path).Int("features", len(r.report.Features)).Msg("Feature list generated")
	return nil
}

func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, common.SummaryFile)
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	r.writeSummary(file)

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

func (r *Reporter) writeSummary(w io.Writer) {
	rep := r.report
	fmt.Fprintf(w, "EXE FILTER PREDICTOR: %s\n", strings.ToUpper(rep.Codec))
	fmt.Fprintf(w, "==========================\n\n")

	fmt.Fprintf(w, "Run: %s\n", rep.RunID)
	fmt.Fprintf(w, "Dataset: %s\n", rep.CSV)
	fmt.Fprintf(w, "Samples: %d (dropped %d, labels from %s)\n", rep.NSamples, rep.DroppedRows, rep.LabelSource)
	fmt.Fprintf(w, "Features: %d\n", rep.NFeatures)
	fmt.Fprintf(w, "Folds: %d\n\n", rep.Folds)

	fmt.Fprintf(w, "CANDIDATES\n")
	fmt.Fprintf(w, "----------\n")
	for _, c := range rep.Candidates {
		if c.Error != "" {
			fmt.Fprintf(w, "%-12s | failed: %s\n", c.Name, c.Error)
			continue
		}
		fmt.Fprintf(w, "%-12s | acc=%.4f | regret=%s\n", c.Name, float64(c.Accuracy), formatFloat(c.ExpectedRegret, 2))
	}

	fmt.Fprintf(w, "\nBest model: %s (accuracy %.4f, expected regret %s)\n",
		rep.BestModel, float64(rep.Accuracy), formatFloat(rep.ExpectedRegret, 2))

	if t := rep.Tree; t != nil {
		fmt.Fprintf(w, "\nDECISION TREE\n")
		fmt.Fprintf(w, "-------------\n")
		fmt.Fprintf(w, "Mode: %s\n", t.Mode)
		fmt.Fprintf(w, "Bounds: depth %d, leaf %d\n", t.MaxDepth, t.MinLeaf)
		fmt.Fprintf(w, "Shape: depth %d, %d leaves, %d nodes\n", t.Depth, t.Leaves, t.Nodes)
		fmt.Fprintf(w, "Agreement with true labels: %s\n", formatFloat(t.AgreementVsTrue, 4))
		if t.HeaderPath != "" {
			fmt.Fprintf(w, "Header: %s\n", t.HeaderPath)
		}
	}
}

func (r *Reporter) generateCandidateLog() error {
	csvPath := filepath.Join(r.outputPath, CandidatesFile)
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create candidate log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"Model", "Accuracy", "Expected Regret", "Folds", "Elapsed ms", "Error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, c := range r.report.Candidates {
		record := []string{
			c.Name,
			formatFloat(c.Accuracy, 6),
			formatFloat(c.ExpectedRegret, 6),
			strconv.Itoa(c.Folds),
			strconv.FormatInt(c.ElapsedMS, 10),
			c.Error,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write candidate log: %w", err)
	}

	log.Info().Str("file", csvPath).Msg("Candidate log generated")
	return nil
}

// PrintSummary prints the summary to w
func (r *Reporter) PrintSummary(w io.Writer) {
	r.writeSummary(w)
}

func formatFloat(f Float, prec int) string {
	v := float64(f)
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}
