package executor

import (
	"context"

	"github.com/royalerun/royale/internal/experiment"
	"github.com/royalerun/royale/internal/trial"
)

// Interface is satisfied by both Local and Docker, so callers can hold a
// single executor value and dispatch to either backend without a type
// switch.
type Interface interface {
	ExecTrial(ctx context.Context, exp *experiment.Experiment, t trial.Trial) (trial.Trial, error)
}

var (
	_ Interface = (*Local)(nil)
	_ Interface = (*Docker)(nil)
)

// Select returns the Docker executor if exp names a container image,
// otherwise the Local executor. Dispatchers use this instead of deciding
// per-package which backend an experiment wants.
func Select(local *Local, docker *Docker, exp *experiment.Experiment) Interface {
	if exp.Container() != "" {
		return docker
	}
	return local
}
