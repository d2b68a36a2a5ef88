package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Compile.Lang != "en" {
		t.Errorf("expected default lang en, got %s", cfg.Compile.Lang)
	}
	if cfg.Compile.OutDir != "icf_json" {
		t.Errorf("expected default out_dir icf_json, got %s", cfg.Compile.OutDir)
	}
	if cfg.Compile.LanguagePolicy != "strict" {
		t.Errorf("expected default language_policy strict, got %s", cfg.Compile.LanguagePolicy)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("expected default debounce 500ms, got %v", cfg.Watch.Debounce)
	}
	if cfg.Compile.Clean || cfg.Compile.Flatten || cfg.Compile.Stats {
		t.Error("expected all compile switches off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "regional language",
			modify:  func(c *Config) { c.Compile.Lang = "de-CH" },
			wantErr: false,
		},
		{
			name:    "missing lang",
			modify:  func(c *Config) { c.Compile.Lang = "" },
			wantErr: true,
		},
		{
			name:    "invalid lang",
			modify:  func(c *Config) { c.Compile.Lang = "not a tag" },
			wantErr: true,
		},
		{
			name:    "invalid default lang",
			modify:  func(c *Config) { c.Compile.DefaultLang = "x-" },
			wantErr: true,
		},
		{
			name:    "unknown language policy",
			modify:  func(c *Config) { c.Compile.LanguagePolicy = "lenient" },
			wantErr: true,
		},
		{
			name:    "negative debounce",
			modify:  func(c *Config) { c.Watch.Debounce = -time.Second },
			wantErr: true,
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp file with config
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
compile:
  input: "data/icf.xml"
  out_dir: "public/icf_json"
  lang: "de"
  default_lang: "de"
  language_policy: "fallback"
  clean: true
  flatten: true
watch:
  debounce: 2s
query:
  source: "https://raw.example.com/icf/main/icf_json"
  timeout: 10s
log:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Compile.Input != "data/icf.xml" {
		t.Errorf("expected input data/icf.xml, got %s", cfg.Compile.Input)
	}
	if cfg.Compile.OutDir != "public/icf_json" {
		t.Errorf("expected out_dir public/icf_json, got %s", cfg.Compile.OutDir)
	}
	if cfg.Compile.Lang != "de" {
		t.Errorf("expected lang de, got %s", cfg.Compile.Lang)
	}
	if cfg.Compile.LanguagePolicy != "fallback" {
		t.Errorf("expected language_policy fallback, got %s", cfg.Compile.LanguagePolicy)
	}
	if !cfg.Compile.Clean || !cfg.Compile.Flatten {
		t.Error("expected clean and flatten to be set")
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("expected debounce 2s, got %v", cfg.Watch.Debounce)
	}
	if cfg.Query.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.Query.Timeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Log.Level)
	}
}

func TestLoadFromFile_Invalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("compile: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Compile: CompileConfig{
			Lang:  "fr",
			Clean: true,
		},
		Watch: WatchConfig{
			Debounce: time.Second,
		},
	}

	base.Merge(override)

	if base.Compile.Lang != "fr" {
		t.Errorf("expected lang fr, got %s", base.Compile.Lang)
	}
	// OutDir should remain from base since override didn't set it
	if base.Compile.OutDir != "icf_json" {
		t.Errorf("expected out_dir to remain default, got %s", base.Compile.OutDir)
	}
	if !base.Compile.Clean {
		t.Error("expected clean to be switched on")
	}
	if base.Watch.Debounce != time.Second {
		t.Errorf("expected debounce 1s, got %v", base.Watch.Debounce)
	}

	base.Merge(nil)
	if base.Compile.Lang != "fr" {
		t.Error("merging nil changed the config")
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Compile.Lang = "it"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Compile.Lang != "it" {
		t.Errorf("expected lang it, got %s", loaded.Compile.Lang)
	}
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func TestLoaderPrecedence(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	work := filepath.Join(project, "sub", "dir")
	if err := os.MkdirAll(work, 0755); err != nil {
		t.Fatalf("failed to create work dir: %v", err)
	}

	writeConfig(t, filepath.Join(home, UserConfigDir, UserConfigFile), "compile:\n  lang: fr\n  out_dir: user_out\n")
	writeConfig(t, filepath.Join(project, ProjectConfigFile), "compile:\n  lang: de\n  clean: true\n")
	explicit := filepath.Join(t.TempDir(), "ci.yaml")
	writeConfig(t, explicit, "compile:\n  lang: it\n")

	loader := NewLoader(nil).WithDirs(work, home)

	cfg, err := loader.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Compile.Lang != "de" {
		t.Errorf("expected project lang de, got %s", cfg.Compile.Lang)
	}
	if cfg.Compile.OutDir != "user_out" {
		t.Errorf("expected user out_dir, got %s", cfg.Compile.OutDir)
	}
	if !cfg.Compile.Clean {
		t.Error("expected clean from project config")
	}

	cfg, err = loader.Load(explicit)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Compile.Lang != "it" {
		t.Errorf("expected explicit lang it, got %s", cfg.Compile.Lang)
	}
}

func TestLoaderExplicitMissing(t *testing.T) {
	loader := NewLoader(nil).WithDirs(t.TempDir(), t.TempDir())

	_, err := loader.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoaderBrokenProjectConfigIsSkipped(t *testing.T) {
	project := t.TempDir()
	writeConfig(t, filepath.Join(project, ProjectConfigFile), "compile: [")

	cfg, err := NewLoader(nil).WithDirs(project, t.TempDir()).Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Compile.Lang != "en" {
		t.Errorf("expected default lang, got %s", cfg.Compile.Lang)
	}
}

func TestLoaderInvalidResult(t *testing.T) {
	explicit := filepath.Join(t.TempDir(), "bad.yaml")
	writeConfig(t, explicit, "compile:\n  language_policy: lenient\n")

	if _, err := NewLoader(nil).WithDirs(t.TempDir(), t.TempDir()).Load(explicit); err == nil {
		t.Error("expected validation error")
	}
}

func TestEnsureUserConfig(t *testing.T) {
	home := t.TempDir()
	loader := NewLoader(nil).WithDirs(t.TempDir(), home)

	path, err := loader.EnsureUserConfig()
	if err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}
	if path != filepath.Join(home, UserConfigDir, UserConfigFile) {
		t.Errorf("unexpected path %s", path)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("failed to load created config: %v", err)
	}
	if loaded.Compile.Lang != "en" {
		t.Errorf("expected default lang in created config, got %s", loaded.Compile.Lang)
	}
}
