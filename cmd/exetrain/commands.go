package main

import (
	"github.com/spf13/cobra"

	"exe-predictor/internal/common"
)

var (
	configPath string
	logLevel   string

	flagCodec           string
	flagCSV             string
	flagOutDir          string
	flagAllowPostFilter bool
	flagUseWhitelist    bool
	flagAllowExtra      []string
	flagForceModel      string
	flagSmallModel      bool
	flagFolds           int
	flagSeed            int64
	flagDistill         bool
	flagExportHeader    bool
	flagDTMaxDepth      int
	flagDTMinLeaf       int
	flagSymbolPrefix    string
	flagHeaderPath      string
	flagPackerRoot      string
	flagFeatureIndex    string
	flagHistoryDB       string

	historyDB    string
	historyCodec string

	rootCmd = &cobra.Command{
		Use:           "exetrain",
		Short:         "Train the BCJ vs KanziEXE filter predictor for an executable packer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(logLevel)
		},
	}

	trainCmd = &cobra.Command{
		Use:   "train",
		Short: "Compare model families on a feature CSV and export the winning decision tree",
		Long: `Reads a per-executable feature CSV, evaluates every model family with grouped
k-fold cross-validation and writes report.json, features.txt and summary.txt to the
output directory. With --distill-to-tree or --export-dt-header a bounded decision tree
is also written as a C header for the packer.`,
		Args: cobra.NoArgs,
		RunE: runTrain, // Defined in train.go
	}

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List training runs recorded in the history database",
		Args:  cobra.NoArgs,
		RunE:  runHistory, // Defined in history.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", common.DefaultLogLevel, "Log level: debug, info, warn, error")

	f := trainCmd.Flags()
	f.StringVar(&configPath, "config", "", "YAML config file (defaults to $CONFIG_FILE)")
	f.StringVar(&flagCodec, "codec", "", "Codec name, e.g. ZX7B")
	f.StringVar(&flagCSV, "csv", "", "Feature dataset CSV")
	f.StringVar(&flagOutDir, "outdir", "", "Output directory for the report")
	f.BoolVar(&flagAllowPostFilter, "allow-post-filter-features", false, "Admit post-filter metrics as features (offline analysis only)")
	f.BoolVar(&flagUseWhitelist, "use-packer-whitelist", true, "Restrict features to those the packer computes")
	f.StringSliceVar(&flagAllowExtra, "allow-extra", nil, "Extra feature columns admitted regardless of filters")
	f.StringVar(&flagForceModel, "force-model", "", "Evaluate only this model: LogReg, DecisionTree, RandomForest, GradBoost, LightGBM")
	f.BoolVar(&flagSmallModel, "small-model", false, "Use lighter forest and LightGBM ensembles")
	f.IntVar(&flagFolds, "folds", common.DefaultFolds, "Requested cross-validation folds")
	f.Int64Var(&flagSeed, "seed", common.DefaultSeed, "Random seed")
	f.BoolVar(&flagDistill, "distill-to-tree", false, "Distill the best model into a bounded decision tree")
	f.BoolVar(&flagExportHeader, "export-dt-header", false, "Export a decision tree C header")
	f.IntVar(&flagDTMaxDepth, "dt-max-depth", common.DefaultDTMaxDepth, "Exported tree max depth, 0 for unlimited")
	f.IntVar(&flagDTMinLeaf, "dt-min-leaf", common.DefaultDTMinLeaf, "Exported tree min samples per leaf")
	f.StringVar(&flagSymbolPrefix, "symbol-prefix", "", "C symbol prefix (defaults to the lower-cased codec)")
	f.StringVar(&flagHeaderPath, "header-path", "", "Header output path (defaults to <packer-root>/src/packer/<prefix>_predict_dt.h)")
	f.StringVar(&flagPackerRoot, "packer-root", common.DefaultPackerRoot, "Packer source tree root")
	f.StringVar(&flagFeatureIndex, "feature-index", "", "Feature index header (defaults to the built-in mapping)")
	f.StringVar(&flagHistoryDB, "history-db", "", "Record the run in this BoltDB file")

	historyCmd.Flags().StringVar(&historyDB, "db", "", "History database file")
	historyCmd.Flags().StringVar(&historyCodec, "codec", "", "Only list runs of this codec")
	_ = historyCmd.MarkFlagRequired("db")

	rootCmd.AddCommand(trainCmd, historyCmd)
}
