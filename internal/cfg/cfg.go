package cfg

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"exe-predictor/internal/common"
)

type Settings struct {
	Codec  string
	CSV    string
	OutDir string

	Folds      int
	Seed       int64
	ForceModel string
	SmallModel bool

	AllowPostFilter    bool
	UsePackerWhitelist bool
	AllowExtra         []string

	Distill      bool
	ExportHeader bool
	DTMaxDepth   int
	DTMinLeaf    int
	SymbolPrefix string
	HeaderPath   string
	PackerRoot   string
	FeatureIndex string

	HistoryDB string
	LogLevel  string
}

type ConfigFile struct {
	Dataset struct {
		Codec  string `yaml:"codec"`
		CSV    string `yaml:"csv"`
		OutDir string `yaml:"outdir"`
	} `yaml:"dataset"`

	Features struct {
		AllowPostFilter    *bool    `yaml:"allowPostFilter"`
		UsePackerWhitelist *bool    `yaml:"usePackerWhitelist"`
		AllowExtra         []string `yaml:"allowExtra"`
	} `yaml:"features"`

	Training struct {
		Folds      int    `yaml:"folds"`
		Seed       *int64 `yaml:"seed"`
		ForceModel string `yaml:"forceModel"`
		SmallModel *bool  `yaml:"smallModel"`
	} `yaml:"training"`

	Tree struct {
		Distill      *bool  `yaml:"distill"`
		Export       *bool  `yaml:"export"`
		MaxDepth     *int   `yaml:"maxDepth"`
		MinLeaf      *int   `yaml:"minLeaf"`
		SymbolPrefix string `yaml:"symbolPrefix"`
		HeaderPath   string `yaml:"headerPath"`
		PackerRoot   string `yaml:"packerRoot"`
		FeatureIndex string `yaml:"featureIndex"`
	} `yaml:"tree"`

	System struct {
		HistoryDB string `yaml:"historyDB"`
		LogLevel  string `yaml:"logLevel"`
	} `yaml:"system"`
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Defaults returns the settings used when no source overrides them.
func Defaults() Settings {
	return Settings{
		Folds:              common.DefaultFolds,
		Seed:               common.DefaultSeed,
		UsePackerWhitelist: true,
		DTMaxDepth:         common.DefaultDTMaxDepth,
		DTMinLeaf:          common.DefaultDTMinLeaf,
		PackerRoot:         common.DefaultPackerRoot,
		LogLevel:           common.DefaultLogLevel,
	}
}

// Load builds settings from the defaults, the YAML file at path (or CONFIG_FILE when path
// is empty), a .env file in the working directory and EXETRAIN_* environment variables,
// later sources winning. Variables already set in the environment take precedence over
// the .env file. The result is not validated; call Validate after applying flags.
func Load(path string) (Settings, error) {
	if err := loadEnvFile(common.DefaultEnvFile); err != nil {
		return Settings{}, err
	}

	settings := Defaults()
	if path == "" {
		path = os.Getenv(common.EnvConfigFile)
	}
	if path != "" {
		if err := applyYAML(&settings, path); err != nil {
			return Settings{}, err
		}
	}
	applyEnv(&settings)
	return settings, nil
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func applyYAML(s *Settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	setString(&s.Codec, config.Dataset.Codec)
	setString(&s.CSV, config.Dataset.CSV)
	setString(&s.OutDir, config.Dataset.OutDir)

	setBool(&s.AllowPostFilter, config.Features.AllowPostFilter)
	setBool(&s.UsePackerWhitelist, config.Features.UsePackerWhitelist)
	if len(config.Features.AllowExtra) > 0 {
		s.AllowExtra = config.Features.AllowExtra
	}

	if config.Training.Folds != 0 {
		s.Folds = config.Training.Folds
	}
	if config.Training.Seed != nil {
		s.Seed = *config.Training.Seed
	}
	setString(&s.ForceModel, config.Training.ForceModel)
	setBool(&s.SmallModel, config.Training.SmallModel)

	setBool(&s.Distill, config.Tree.Distill)
	setBool(&s.ExportHeader, config.Tree.Export)
	if config.Tree.MaxDepth != nil {
		s.DTMaxDepth = *config.Tree.MaxDepth
	}
	if config.Tree.MinLeaf != nil {
		s.DTMinLeaf = *config.Tree.MinLeaf
	}
	setString(&s.SymbolPrefix, config.Tree.SymbolPrefix)
	setString(&s.HeaderPath, config.Tree.HeaderPath)
	setString(&s.PackerRoot, config.Tree.PackerRoot)
	setString(&s.FeatureIndex, config.Tree.FeatureIndex)

	setString(&s.HistoryDB, config.System.HistoryDB)
	setString(&s.LogLevel, config.System.LogLevel)
	return nil
}

func applyEnv(s *Settings) {
	s.Codec = getEnvOrDefault(common.EnvCodec, s.Codec)
	s.CSV = getEnvOrDefault(common.EnvCSV, s.CSV)
	s.OutDir = getEnvOrDefault(common.EnvOutDir, s.OutDir)
	s.Folds = getIntOrDefault(common.EnvFolds, s.Folds)
	s.Seed = getInt64OrDefault(common.EnvSeed, s.Seed)
	s.ForceModel = getEnvOrDefault(common.EnvForceModel, s.ForceModel)
	s.SmallModel = getBoolOrDefault(common.EnvSmallModel, s.SmallModel)
	s.AllowPostFilter = getBoolOrDefault(common.EnvAllowPostFilter, s.AllowPostFilter)
	s.UsePackerWhitelist = getBoolOrDefault(common.EnvUsePackerWhitelist, s.UsePackerWhitelist)
	s.Distill = getBoolOrDefault(common.EnvDistill, s.Distill)
	s.ExportHeader = getBoolOrDefault(common.EnvExportHeader, s.ExportHeader)
	s.DTMaxDepth = getIntOrDefault(common.EnvDTMaxDepth, s.DTMaxDepth)
	s.DTMinLeaf = getIntOrDefault(common.EnvDTMinLeaf, s.DTMinLeaf)
	s.SymbolPrefix = getEnvOrDefault(common.EnvSymbolPrefix, s.SymbolPrefix)
	s.HeaderPath = getEnvOrDefault(common.EnvHeaderPath, s.HeaderPath)
	s.PackerRoot = getEnvOrDefault(common.EnvPackerRoot, s.PackerRoot)
	s.FeatureIndex = getEnvOrDefault(common.EnvFeatureIndex, s.FeatureIndex)
	s.HistoryDB = getEnvOrDefault(common.EnvHistoryDB, s.HistoryDB)
	s.LogLevel = getEnvOrDefault(common.EnvLogLevel, s.LogLevel)
}

// Prefix returns the symbol prefix for generated code: the configured one, or the
// lower-cased codec.
func (s *Settings) Prefix() string {
	if s.SymbolPrefix != "" {
		return s.SymbolPrefix
	}
	return strings.ToLower(s.Codec)
}

// WantsTree reports whether the run produces a decision tree header.
func (s *Settings) WantsTree() bool {
	return s.Distill || s.ExportHeader
}

// Validate checks the final settings.
func (s *Settings) Validate() error {
	if err := validateSettings(s); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

// validateSettings performs validation of configuration values
func validateSettings(settings *Settings) error {
	// Required inputs
	if settings.Codec == "" {
		return fmt.Errorf("codec is required")
	}
	if settings.CSV == "" {
		return fmt.Errorf("dataset CSV path is required")
	}
	if settings.OutDir == "" {
		return fmt.Errorf("output directory is required")
	}

	// Cross-validation
	if settings.Folds < common.MinFolds || settings.Folds > common.MaxFolds {
		return fmt.Errorf("folds must be between %d and %d, got %d", common.MinFolds, common.MaxFolds, settings.Folds)
	}

	// Tree bounds; zero depth means unlimited
	if settings.DTMaxDepth < 0 {
		return fmt.Errorf("decision tree max depth must be >= 0, got %d", settings.DTMaxDepth)
	}
	if settings.DTMinLeaf < 1 {
		return fmt.Errorf("decision tree min leaf must be >= 1, got %d", settings.DTMinLeaf)
	}

	// Generated symbols must be C identifiers
	if settings.WantsTree() && !identPattern.MatchString(settings.Prefix()) {
		return fmt.Errorf("symbol prefix %q is not a valid C identifier", settings.Prefix())
	}

	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}

	return nil
}
