package result

import "github.com/royalerun/royale/internal/trial"

// TrialRecord is one persisted trial: which experiment it belongs to, its
// position within the run/batch that produced it, and the Trial itself
// in its terminal status.
type TrialRecord struct {
	ExperimentName string      `json:"experiment_name"`
	Index          int         `json:"index"`
	Trial          trial.Trial `json:"trial"`
}
