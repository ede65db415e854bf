package common

// Dataset column names produced by the collectors
const (
	ColumnWinner     = "winner"
	ColumnPath       = "path"
	ColumnBCJFinal   = "bcj_final"
	ColumnKanziFinal = "kanzi_final"
)

// Label values. 0 = BCJ wins, 1 = KanziEXE wins.
const (
	LabelBCJ      = 0
	LabelKanziEXE = 1

	WinnerBCJ      = "bcj"
	WinnerKanziEXE = "kanziexe"
)

// Environment variable keys
const (
	EnvConfigFile         = "CONFIG_FILE"
	EnvCodec              = "EXETRAIN_CODEC"
	EnvCSV                = "EXETRAIN_CSV"
	EnvOutDir             = "EXETRAIN_OUTDIR"
	EnvFolds              = "EXETRAIN_FOLDS"
	EnvSeed               = "EXETRAIN_SEED"
	EnvForceModel         = "EXETRAIN_FORCE_MODEL"
	EnvAllowPostFilter    = "EXETRAIN_ALLOW_POST_FILTER_FEATURES"
	EnvUsePackerWhitelist = "EXETRAIN_USE_PACKER_WHITELIST"
	EnvSmallModel         = "EXETRAIN_SMALL_MODEL"
	EnvDistill            = "EXETRAIN_DISTILL_TO_TREE"
	EnvExportHeader       = "EXETRAIN_EXPORT_DT_HEADER"
	EnvDTMaxDepth         = "EXETRAIN_DT_MAX_DEPTH"
	EnvDTMinLeaf          = "EXETRAIN_DT_MIN_LEAF"
	EnvSymbolPrefix       = "EXETRAIN_SYMBOL_PREFIX"
	EnvHeaderPath         = "EXETRAIN_HEADER_PATH"
	EnvPackerRoot         = "EXETRAIN_PACKER_ROOT"
	EnvFeatureIndex       = "EXETRAIN_FEATURE_INDEX"
	EnvHistoryDB          = "EXETRAIN_HISTORY_DB"
	EnvLogLevel           = "EXETRAIN_LOG_LEVEL"
)

// Configuration defaults
const (
	DefaultFolds       = 5
	DefaultSeed        = 42
	DefaultDTMaxDepth  = 10
	DefaultDTMinLeaf   = 10
	DefaultPackerRoot  = "."
	DefaultLogLevel    = "info"
	DefaultEnvFile     = ".env"
	DefaultHeaderDir   = "src/packer"
	HeaderFileSuffix   = "_predict_dt.h"
	FeatureIndexHeader = "exe_predict_feature_index.h"
	FeatureSymbolStem  = "PP_FEAT_"
)

// Output file names
const (
	ReportFile   = "report.json"
	FeaturesFile = "features.txt"
	SummaryFile  = "summary.txt"
	MetricsFile  = "metrics.prom"
)

// Process exit codes
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitEmptyInput    = 2
	ExitNoUsableModel = 3
	ExitUnknownModel  = 4
)

// Validation constants
const (
	MinFolds = 2
	MaxFolds = 100
)
