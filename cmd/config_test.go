package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.ResultsDir != "results" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "royale.yaml")
	if err := os.WriteFile(path, []byte("log_level: debug\nresults_dir: out\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.ResultsDir != "out" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}
