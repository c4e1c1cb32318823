package result_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/royalerun/royale/internal/result"
	"github.com/royalerun/royale/internal/trial"
)

func TestWriteAndReadTrialRecord(t *testing.T) {
	dir := t.TempDir()
	tr := trial.New("demo", json.RawMessage(`{"x":1}`))
	tr.Status = trial.NewCompleteStatus(trial.TrialOutput{Preds: map[string]bool{"p": true}}, "")
	rec := &result.TrialRecord{ExperimentName: "demo", Index: 3, Trial: tr}

	if err := result.WriteTrialRecord(dir, rec); err != nil {
		t.Fatalf("WriteTrialRecord: %v", err)
	}
	got, err := result.ReadTrialRecord(filepath.Join(result.ExperimentDir(dir, "demo"), "trial-3.json"))
	if err != nil {
		t.Fatalf("ReadTrialRecord: %v", err)
	}
	if got.ExperimentName != "demo" || got.Index != 3 {
		t.Fatalf("unexpected record: %+v", got)
	}
	out, _, ok := got.Trial.Status.Output()
	if !ok || !out.Preds["p"] {
		t.Fatalf("unexpected trial status: %+v", got.Trial.Status)
	}
}

func TestCreateRunDir(t *testing.T) {
	base := t.TempDir()
	runDir, err := result.CreateRunDir(base)
	if err != nil {
		t.Fatalf("CreateRunDir: %v", err)
	}
	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		t.Errorf("run directory not created: %s", runDir)
	}
	latest := filepath.Join(base, "latest")
	target, err := os.Readlink(latest)
	if err != nil {
		t.Fatalf("reading latest symlink: %v", err)
	}
	if target != runDir {
		t.Errorf("latest symlink: got %q, want %q", target, runDir)
	}
}

func TestCollectTrialRecords(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		tr := trial.New("demo", nil)
		tr.Status = trial.NewCompleteStatus(trial.TrialOutput{Preds: map[string]bool{"p": i%2 == 0}}, "")
		if err := result.WriteTrialRecord(dir, &result.TrialRecord{ExperimentName: "demo", Index: i, Trial: tr}); err != nil {
			t.Fatal(err)
		}
	}
	records, err := result.CollectTrialRecords(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
}
