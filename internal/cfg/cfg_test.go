package cfg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validSettings() Settings {
	s := Defaults()
	s.Codec = "ZX7B"
	s.CSV = "data/zx7b.csv"
	s.OutDir = "out/zx7b"
	return s
}

func TestDefaults(t *testing.T) {
	s := Defaults()
	if s.Folds != 5 {
		t.Errorf("expected default folds 5, got %d", s.Folds)
	}
	if s.Seed != 42 {
		t.Errorf("expected default seed 42, got %d", s.Seed)
	}
	if s.DTMaxDepth != 10 || s.DTMinLeaf != 10 {
		t.Errorf("expected tree bounds 10/10, got %d/%d", s.DTMaxDepth, s.DTMinLeaf)
	}
	if !s.UsePackerWhitelist {
		t.Error("expected packer whitelist on by default")
	}
	if s.AllowPostFilter {
		t.Error("expected post-filter features off by default")
	}
	if s.PackerRoot != "." {
		t.Errorf("expected packer root '.', got %s", s.PackerRoot)
	}
}

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, settings Settings)
	}{
		{
			name:    "no variables keeps defaults",
			envVars: map[string]string{},
			validate: func(t *testing.T, settings Settings) {
				if settings.Folds != 5 || settings.Codec != "" {
					t.Errorf("expected defaults, got %+v", settings)
				}
			},
		},
		{
			name: "overrides",
			envVars: map[string]string{
				"EXETRAIN_CODEC":                      "blz",
				"EXETRAIN_CSV":                        "/data/blz.csv",
				"EXETRAIN_OUTDIR":                     "/tmp/out",
				"EXETRAIN_FOLDS":                      "3",
				"EXETRAIN_SEED":                       "7",
				"EXETRAIN_ALLOW_POST_FILTER_FEATURES": "true",
				"EXETRAIN_USE_PACKER_WHITELIST":       "false",
				"EXETRAIN_DT_MAX_DEPTH":               "4",
				"EXETRAIN_FORCE_MODEL":                "GradBoost",
			},
			validate: func(t *testing.T, settings Settings) {
				if settings.Codec != "blz" || settings.CSV != "/data/blz.csv" || settings.OutDir != "/tmp/out" {
					t.Errorf("unexpected paths: %+v", settings)
				}
				if settings.Folds != 3 || settings.Seed != 7 || settings.DTMaxDepth != 4 {
					t.Errorf("unexpected numbers: folds %d seed %d depth %d", settings.Folds, settings.Seed, settings.DTMaxDepth)
				}
				if !settings.AllowPostFilter || settings.UsePackerWhitelist {
					t.Error("expected feature policy toggles from env")
				}
				if settings.ForceModel != "GradBoost" {
					t.Errorf("expected forced model GradBoost, got %s", settings.ForceModel)
				}
			},
		},
		{
			name: "unparseable numbers fall back",
			envVars: map[string]string{
				"EXETRAIN_FOLDS":       "many",
				"EXETRAIN_SMALL_MODEL": "maybe",
			},
			validate: func(t *testing.T, settings Settings) {
				if settings.Folds != 5 {
					t.Errorf("expected default folds, got %d", settings.Folds)
				}
				if settings.SmallModel {
					t.Error("expected small model to stay off")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("CONFIG_FILE", "")
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			settings, err := Load("")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.validate(t, settings)
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	configPath := filepath.Join(dir, "train.yaml")
	content := `
dataset:
  codec: pp
  csv: data/pp.csv
  outdir: out/pp
features:
  usePackerWhitelist: false
  allowExtra: [custom_feat]
training:
  folds: 4
  seed: 0
  smallModel: true
tree:
  distill: true
  maxDepth: 0
  minLeaf: 3
  symbolPrefix: pp_small
system:
  logLevel: debug
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EXETRAIN_FOLDS", "6")

	settings, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if settings.Codec != "pp" || settings.CSV != "data/pp.csv" || settings.OutDir != "out/pp" {
		t.Errorf("unexpected dataset section: %+v", settings)
	}
	if settings.Folds != 6 {
		t.Errorf("expected env to override YAML folds, got %d", settings.Folds)
	}
	if settings.Seed != 0 {
		t.Errorf("expected explicit zero seed, got %d", settings.Seed)
	}
	if settings.UsePackerWhitelist {
		t.Error("expected whitelist disabled by YAML")
	}
	if len(settings.AllowExtra) != 1 || settings.AllowExtra[0] != "custom_feat" {
		t.Errorf("unexpected allowExtra %v", settings.AllowExtra)
	}
	if !settings.SmallModel || !settings.Distill {
		t.Error("expected small model and distillation from YAML")
	}
	if settings.DTMaxDepth != 0 || settings.DTMinLeaf != 3 {
		t.Errorf("unexpected tree bounds %d/%d", settings.DTMaxDepth, settings.DTMinLeaf)
	}
	if settings.Prefix() != "pp_small" {
		t.Errorf("expected prefix pp_small, got %s", settings.Prefix())
	}
	if settings.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %s", settings.LogLevel)
	}
}

func TestLoadFromConfigFileEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("dataset:\n  codec: blz\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", configPath)

	settings, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if settings.Codec != "blz" {
		t.Errorf("expected codec from CONFIG_FILE, got %q", settings.Codec)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_FILE", "")

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("dataset: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_FILE", "")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("EXETRAIN_CODEC=zx7b\nEXETRAIN_SEED=9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// the real environment wins over .env
	t.Setenv("EXETRAIN_SEED", "11")
	// keep godotenv's writes from leaking into other tests
	t.Setenv("EXETRAIN_CODEC", "")
	os.Unsetenv("EXETRAIN_CODEC")

	settings, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if settings.Codec != "zx7b" {
		t.Errorf("expected codec from .env, got %q", settings.Codec)
	}
	if settings.Seed != 11 {
		t.Errorf("expected environment seed 11, got %d", settings.Seed)
	}
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(s *Settings)
		wantErr string
	}{
		{"valid", func(s *Settings) {}, ""},
		{"missing codec", func(s *Settings) { s.Codec = "" }, "codec is required"},
		{"missing csv", func(s *Settings) { s.CSV = "" }, "CSV path is required"},
		{"missing outdir", func(s *Settings) { s.OutDir = "" }, "output directory is required"},
		{"one fold", func(s *Settings) { s.Folds = 1 }, "folds must be between"},
		{"too many folds", func(s *Settings) { s.Folds = 1000 }, "folds must be between"},
		{"negative depth", func(s *Settings) { s.DTMaxDepth = -1 }, "max depth"},
		{"unlimited depth", func(s *Settings) { s.DTMaxDepth = 0 }, ""},
		{"zero leaf", func(s *Settings) { s.DTMinLeaf = 0 }, "min leaf"},
		{"bad prefix", func(s *Settings) { s.ExportHeader = true; s.SymbolPrefix = "9lives" }, "not a valid C identifier"},
		{"bad codec prefix", func(s *Settings) { s.Distill = true; s.Codec = "zx7-b" }, "not a valid C identifier"},
		{"bad prefix without export", func(s *Settings) { s.SymbolPrefix = "9lives" }, ""},
		{"bad log level", func(s *Settings) { s.LogLevel = "loud" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.modify(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPrefix(t *testing.T) {
	s := validSettings()
	if s.Prefix() != "zx7b" {
		t.Errorf("expected lower-cased codec, got %s", s.Prefix())
	}
	s.SymbolPrefix = "custom"
	if s.Prefix() != "custom" {
		t.Errorf("expected explicit prefix, got %s", s.Prefix())
	}
}
