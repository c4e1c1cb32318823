package result

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CreateRunDir makes a timestamped run directory under baseDir/runs and
// repoints baseDir/latest at it, unchanged from this codebase's own
// run-directory convention.
func CreateRunDir(baseDir string) (string, error) {
	runsDir := filepath.Join(baseDir, "runs")
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	runDir := filepath.Join(runsDir, stamp)
	runDir, err := filepath.Abs(runDir)
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, nil
}

// ExperimentDir is where every trial for one experiment within a run is
// persisted.
func ExperimentDir(runDir, experimentName string) string {
	return filepath.Join(runDir, "trials", experimentName)
}

func trialPath(runDir, experimentName string, index int) string {
	return filepath.Join(ExperimentDir(runDir, experimentName), fmt.Sprintf("trial-%d.json", index))
}

// WriteTrialRecord persists one trial under runDir, creating the
// experiment's directory if needed.
func WriteTrialRecord(runDir string, rec *TrialRecord) error {
	dir := ExperimentDir(runDir, rec.ExperimentName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating experiment dir: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling trial record: %w", err)
	}
	return os.WriteFile(trialPath(runDir, rec.ExperimentName, rec.Index), data, 0o644)
}

func ReadTrialRecord(path string) (*TrialRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trial record: %w", err)
	}
	var rec TrialRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing trial record: %w", err)
	}
	return &rec, nil
}

// CollectTrialRecords walks runDir and reads every .json file as a trial
// record, for report generation. Files that do not parse are skipped.
func CollectTrialRecords(runDir string) ([]*TrialRecord, error) {
	var records []*TrialRecord
	err := filepath.Walk(runDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		rec, err := ReadTrialRecord(path)
		if err != nil {
			return nil
		}
		records = append(records, rec)
		return nil
	})
	return records, err
}
