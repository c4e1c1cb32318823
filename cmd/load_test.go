package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func writeExperimentFile(t *testing.T, dir, name, experimentName string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	body := `{"name":"` + experimentName + `","cmd":["true"],"input":{}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExperimentsFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeExperimentFile(t, dir, "a.experiment.json", "a")
	writeExperimentFile(t, dir, "b.experiment.json", "b")
	writeExperimentFile(t, dir, "ignored.txt", "c")

	exps, err := loadExperiments([]string{dir}, nil, nil)
	if err != nil {
		t.Fatalf("loadExperiments: %v", err)
	}
	if len(exps) != 2 {
		t.Fatalf("expected 2 experiments, got %d", len(exps))
	}
}

func TestLoadExperimentsDirectoryDefaultsCd(t *testing.T) {
	dir := t.TempDir()
	writeExperimentFile(t, dir, "a.experiment.json", "a")

	exps, err := loadExperiments([]string{dir}, nil, nil)
	if err != nil {
		t.Fatalf("loadExperiments: %v", err)
	}
	if len(exps) != 1 || exps[0].Cd() != dir {
		t.Fatalf("expected cd to default to %q, got %+v", dir, exps)
	}
}

func TestLoadExperimentsDirectoryRespectsExplicitCd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "explicit.experiment.json")
	body := `{"name":"explicit","cmd":["true"],"cd":"/somewhere/else","input":{}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	exps, err := loadExperiments([]string{dir}, nil, nil)
	if err != nil {
		t.Fatalf("loadExperiments: %v", err)
	}
	if len(exps) != 1 || exps[0].Cd() != "/somewhere/else" {
		t.Fatalf("expected explicit cd to be preserved, got %+v", exps)
	}
}

func TestLoadExperimentsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeExperimentFile(t, dir, "solo.experiment.json", "solo")

	exps, err := loadExperiments(nil, []string{path}, nil)
	if err != nil {
		t.Fatalf("loadExperiments: %v", err)
	}
	if len(exps) != 1 || exps[0].Name() != "solo" {
		t.Fatalf("unexpected result: %+v", exps)
	}
}

func TestLoadExperimentsFromInlineJSON(t *testing.T) {
	exps, err := loadExperiments(nil, nil, []string{`{"name":"inline","cmd":["true"],"input":{}}`})
	if err != nil {
		t.Fatalf("loadExperiments: %v", err)
	}
	if len(exps) != 1 || exps[0].Name() != "inline" {
		t.Fatalf("unexpected result: %+v", exps)
	}
}

func TestLoadExperimentsBadDirectory(t *testing.T) {
	if _, err := loadExperiments([]string{"/does/not/exist"}, nil, nil); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestLoadExperimentsBadInlineJSON(t *testing.T) {
	if _, err := loadExperiments(nil, nil, []string{"not json"}); err == nil {
		t.Error("expected error for malformed inline JSON")
	}
}
