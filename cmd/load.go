package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/royalerun/royale/internal/experiment"
)

// loadExperiments gathers experiments from every -d directory, -f file, and
// -j inline JSON document, in that order, mirroring the reference CLI's
// load order.
func loadExperiments(dirs, files, inline []string) ([]*experiment.Experiment, error) {
	var exps []*experiment.Experiment
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".experiment.json") {
				continue
			}
			exp, err := loadExperimentFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				return nil, err
			}
			if exp.Cd() == "" {
				exp.SetCd(dir)
			}
			exps = append(exps, exp)
		}
	}
	for _, f := range files {
		exp, err := loadExperimentFile(f)
		if err != nil {
			return nil, err
		}
		exps = append(exps, exp)
	}
	for _, raw := range inline {
		exp := experiment.New()
		if err := json.Unmarshal([]byte(raw), exp); err != nil {
			return nil, fmt.Errorf("parsing inline experiment: %w", err)
		}
		exps = append(exps, exp)
	}
	return exps, nil
}

func loadExperimentFile(path string) (*experiment.Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment file %s: %w", path, err)
	}
	exp := experiment.New()
	if err := json.Unmarshal(data, exp); err != nil {
		return nil, fmt.Errorf("parsing experiment file %s: %w", path, err)
	}
	return exp, nil
}
