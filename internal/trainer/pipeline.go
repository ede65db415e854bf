package trainer

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"exe-predictor/internal/dataset"
	"exe-predictor/internal/export"
	"exe-predictor/internal/featindex"
	"exe-predictor/internal/ml"
	"exe-predictor/internal/report"
)

// Ledger stores finished run reports. A nil Ledger is ignored.
type Ledger interface {
	SaveRun(codec, runID string, at time.Time, report []byte) error
}

// Options configures a training run.
type Options struct {
	Codec  string
	CSV    string
	OutDir string

	Policy  dataset.FeaturePolicy
	Columns dataset.Columns

	Folds      int
	Seed       int64
	ForceModel string
	SmallModel bool
	Registry   *ml.Registry // nil means ml.DefaultRegistry(Seed, SmallModel)

	Distill      bool
	ExportHeader bool
	Tree         TreeBounds
	SymbolPrefix string // required when a header is written
	HeaderPath   string // empty means <PackerRoot>/src/packer/<prefix>_predict_dt.h
	PackerRoot   string
	Mapping      *featindex.Mapping // nil means the built-in mapping

	Recorder Recorder
	Ledger   Ledger
	RunID    string           // generated when empty
	Now      func() time.Time // defaults to time.Now
}

// Outcome is everything a run produced.
type Outcome struct {
	Report     *report.Report
	Data       *dataset.Dataset
	Selection  *Selection
	Tree       *TreeResult
	HeaderPath string
}

// Run trains, selects and optionally exports a predictor for one codec, then writes the
// report into OutDir. A forced model name is checked before the dataset is read, so an
// unknown name leaves no files behind.
func Run(opts Options) (*Outcome, error) {
	reg := opts.Registry
	if reg == nil {
		reg = ml.DefaultRegistry(opts.Seed, opts.SmallModel)
	}
	if err := ValidateForced(reg, opts.ForceModel); err != nil {
		return nil, err
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	wantTree := opts.Distill || opts.ExportHeader

	if opts.Policy.AllowPostFilter {
		log.Warn().Msg("Post-filter features allowed: the model will not be computable at pack time")
		if wantTree {
			log.Warn().Msg("Exporting a header trained on post-filter features; the packer cannot evaluate it faithfully")
		}
	}

	table, err := dataset.ReadCSV(opts.CSV)
	if err != nil {
		return nil, err
	}
	data, err := dataset.Prepare(table, opts.Policy, opts.Columns)
	if err != nil {
		return nil, err
	}
	if len(data.Features) == 0 {
		return nil, fmt.Errorf("%w: no admissible feature columns in %s", ErrNoUsableModel, opts.CSV)
	}
	if opts.Recorder != nil {
		opts.Recorder.RecordDataset(data.Len(), len(data.Features), data.Dropped)
	}
	for _, group := range export.Collisions(data.Features) {
		log.Warn().Strs("features", group).Str("identifier", export.Sanitize(group[0])).
			Msg("Feature names collide after sanitization")
	}

	sel, err := Select(reg, data, SelectOptions{Folds: opts.Folds, ForceModel: opts.ForceModel, Recorder: opts.Recorder})
	if err != nil {
		return nil, err
	}

	out := &Outcome{Data: data, Selection: sel}
	if wantTree {
		if err := exportTree(reg, sel, data, &opts, out); err != nil {
			return nil, err
		}
	}

	out.Report = buildReport(&opts, now(), data, sel, out)
	rep := report.NewReporter(out.Report, opts.OutDir)
	if err := rep.GenerateReport(); err != nil {
		return nil, err
	}

	if opts.Ledger != nil {
		payload, err := rep.Marshal()
		if err != nil {
			return nil, err
		}
		if err := opts.Ledger.SaveRun(opts.Codec, opts.RunID, out.Report.GeneratedAt, payload); err != nil {
			return nil, fmt.Errorf("failed to record run: %w", err)
		}
		log.Info().Str("run_id", opts.RunID).Msg("Run recorded in history")
	}
	return out, nil
}

func exportTree(reg *ml.Registry, sel *Selection, data *dataset.Dataset, opts *Options, out *Outcome) error {
	var (
		tr  *TreeResult
		err error
	)
	if opts.Distill {
		best, _ := reg.Lookup(sel.Best.Name)
		tr, err = Distill(best.New(), data.X, data.Y, opts.Tree)
	} else {
		tr, err = DirectTree(sel.Model, data.X, data.Y, opts.Tree)
	}
	if err != nil {
		return err
	}
	out.Tree = tr
	if opts.Recorder != nil {
		opts.Recorder.RecordTree(len(tr.Tree.Nodes()), tr.Tree.Depth())
	}

	prog, err := export.Compile(tr.Tree, data.Features)
	if err != nil {
		return fmt.Errorf("compile tree: %w", err)
	}
	if opts.SymbolPrefix == "" {
		return fmt.Errorf("symbol prefix is required for header export")
	}
	path := opts.HeaderPath
	if path == "" {
		path = export.DefaultHeaderPath(opts.PackerRoot, opts.SymbolPrefix)
	}
	mapping := opts.Mapping
	if mapping == nil {
		mapping = featindex.Default()
	}
	err = export.WriteHeader(path, prog, export.Options{
		Prefix:      opts.SymbolPrefix,
		EmitWrapper: true,
		Mapping:     mapping,
	})
	if err != nil {
		return err
	}
	out.HeaderPath = path
	return nil
}

func buildReport(opts *Options, at time.Time, data *dataset.Dataset, sel *Selection, out *Outcome) *report.Report {
	csvPath, err := filepath.Abs(opts.CSV)
	if err != nil {
		csvPath = opts.CSV
	}

	r := &report.Report{
		RunID:          opts.RunID,
		Codec:          opts.Codec,
		BestModel:      sel.Best.Name,
		Accuracy:       report.Float(sel.Best.Accuracy),
		ExpectedRegret: report.Float(sel.Best.Regret),
		NSamples:       data.Len(),
		NFeatures:      len(data.Features),
		Features:       data.Features,
		CSV:            csvPath,
		DroppedRows:    data.Dropped,
		LabelSource:    data.LabelSource,
		Folds:          sel.Folds,
		Forced:         opts.ForceModel != "",
		GeneratedAt:    at.UTC(),
	}
	for _, res := range append(append([]ModelResult(nil), sel.Ranked...), sel.Failed...) {
		c := report.Candidate{
			Name:           res.Name,
			Accuracy:       report.Float(res.Accuracy),
			ExpectedRegret: report.Float(res.Regret),
			Folds:          res.Folds,
			ElapsedMS:      res.Elapsed.Milliseconds(),
		}
		if res.Err != nil {
			c.Error = res.Err.Error()
		}
		r.Candidates = append(r.Candidates, c)
	}
	if tr := out.Tree; tr != nil {
		r.Tree = &report.Tree{
			Mode:            tr.Mode,
			MaxDepth:        tr.Bounds.MaxDepth,
			MinLeaf:         tr.Bounds.MinSamplesLeaf,
			Depth:           tr.Tree.Depth(),
			Leaves:          tr.Tree.Leaves(),
			Nodes:           len(tr.Tree.Nodes()),
			AgreementVsTrue: report.Float(tr.Accuracy),
			Fidelity:        report.Float(tr.Fidelity),
			HeaderPath:      out.HeaderPath,
		}
	}
	return r
}
