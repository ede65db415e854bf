package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"exe-predictor/internal/cfg"
	"exe-predictor/internal/dataset"
	"exe-predictor/internal/featindex"
	"exe-predictor/internal/metrics"
	"exe-predictor/internal/report"
	"exe-predictor/internal/storage"
	"exe-predictor/internal/trainer"
)

func runTrain(cmd *cobra.Command, args []string) error {
	settings, err := cfg.Load(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd.Flags(), &settings)
	if err := settings.Validate(); err != nil {
		return err
	}
	setupLogging(settings.LogLevel)

	mapping, err := featindex.Load(settings.FeatureIndex)
	if err != nil {
		return err
	}

	m := metrics.New()
	opts := trainer.Options{
		Codec:      settings.Codec,
		CSV:        settings.CSV,
		OutDir:     settings.OutDir,
		Policy:     policyFor(settings),
		Columns:    dataset.DefaultColumns(),
		Folds:      settings.Folds,
		Seed:       settings.Seed,
		ForceModel: settings.ForceModel,
		SmallModel: settings.SmallModel,

		Distill:      settings.Distill,
		ExportHeader: settings.ExportHeader,
		Tree: trainer.TreeBounds{
			MaxDepth:       settings.DTMaxDepth,
			MinSamplesLeaf: settings.DTMinLeaf,
			Seed:           settings.Seed,
		},
		SymbolPrefix: settings.Prefix(),
		HeaderPath:   settings.HeaderPath,
		PackerRoot:   settings.PackerRoot,
		Mapping:      mapping,

		Recorder: m,
	}

	if settings.HistoryDB != "" {
		store, err := storage.New(settings.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Ledger = store
	}

	out, err := trainer.Run(opts)
	if err != nil {
		return err
	}

	if path, err := m.WriteTextfile(settings.OutDir); err != nil {
		log.Warn().Err(err).Msg("Failed to write metrics textfile")
	} else {
		log.Debug().Str("file", path).Msg("Metrics written")
	}

	report.NewReporter(out.Report, settings.OutDir).PrintSummary(os.Stdout)
	return nil
}

// applyFlags copies explicitly set flags over the loaded settings.
func applyFlags(f *pflag.FlagSet, s *cfg.Settings) {
	setString := func(name string, dst *string, v string) {
		if f.Changed(name) {
			*dst = v
		}
	}
	setBool := func(name string, dst *bool, v bool) {
		if f.Changed(name) {
			*dst = v
		}
	}
	setInt := func(name string, dst *int, v int) {
		if f.Changed(name) {
			*dst = v
		}
	}

	setString("codec", &s.Codec, flagCodec)
	setString("csv", &s.CSV, flagCSV)
	setString("outdir", &s.OutDir, flagOutDir)
	setBool("allow-post-filter-features", &s.AllowPostFilter, flagAllowPostFilter)
	setBool("use-packer-whitelist", &s.UsePackerWhitelist, flagUseWhitelist)
	if f.Changed("allow-extra") {
		s.AllowExtra = flagAllowExtra
	}
	setString("force-model", &s.ForceModel, flagForceModel)
	setBool("small-model", &s.SmallModel, flagSmallModel)
	setInt("folds", &s.Folds, flagFolds)
	if f.Changed("seed") {
		s.Seed = flagSeed
	}
	setBool("distill-to-tree", &s.Distill, flagDistill)
	setBool("export-dt-header", &s.ExportHeader, flagExportHeader)
	setInt("dt-max-depth", &s.DTMaxDepth, flagDTMaxDepth)
	setInt("dt-min-leaf", &s.DTMinLeaf, flagDTMinLeaf)
	setString("symbol-prefix", &s.SymbolPrefix, flagSymbolPrefix)
	setString("header-path", &s.HeaderPath, flagHeaderPath)
	setString("packer-root", &s.PackerRoot, flagPackerRoot)
	setString("feature-index", &s.FeatureIndex, flagFeatureIndex)
	setString("history-db", &s.HistoryDB, flagHistoryDB)
	setString("log-level", &s.LogLevel, logLevel)
}

func policyFor(s cfg.Settings) dataset.FeaturePolicy {
	p := dataset.DefaultPolicy()
	if !s.UsePackerWhitelist {
		p.Whitelist = nil
	}
	p.AllowPostFilter = s.AllowPostFilter
	p.AllowExtra = s.AllowExtra
	return p
}
