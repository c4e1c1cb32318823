package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/royalerun/royale/internal/trial"
)

func TestEmitResultsRawTrials(t *testing.T) {
	trials := []trial.Trial{trial.New("demo", nil)}
	var buf bytes.Buffer
	if err := emitResults(&buf, trials, "", "", false); err != nil {
		t.Fatalf("emitResults: %v", err)
	}
	var got []trial.Trial
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 trial, got %d", len(got))
	}
}

func TestEmitResultsPrettyIndent(t *testing.T) {
	trials := []trial.Trial{trial.New("demo", nil)}
	var buf bytes.Buffer
	if err := emitResults(&buf, trials, "", "4", true); err != nil {
		t.Fatalf("emitResults: %v", err)
	}
	if !strings.Contains(buf.String(), "\n    ") {
		t.Errorf("expected 4-space indent in output, got %q", buf.String())
	}
}

func TestEmitResultsAnalysis(t *testing.T) {
	tr := trial.New("demo", nil)
	tr.Status = trial.NewCompleteStatus(trial.TrialOutput{Preds: map[string]bool{"p": true}}, "")
	var buf bytes.Buffer
	if err := emitResults(&buf, []trial.Trial{tr}, "none", "", false); err != nil {
		t.Fatalf("emitResults: %v", err)
	}
	if !strings.Contains(buf.String(), `"predicates"`) {
		t.Errorf("expected analysis status in output, got %q", buf.String())
	}
}

func TestReadTrialsFromInputFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trials.json")
	tr := trial.New("demo", nil)
	data, _ := json.Marshal([]trial.Trial{tr})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := readTrialsFromInput(path)
	if err != nil {
		t.Fatalf("readTrialsFromInput: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 trial, got %d", len(got))
	}
}

func TestReadTrialsFromInputMissingFile(t *testing.T) {
	if _, err := readTrialsFromInput("/does/not/exist.json"); err == nil {
		t.Error("expected error for missing input file")
	}
}
