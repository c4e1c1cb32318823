// Package dispatch implements Royale's Dispatcher (§4.7): it holds the
// locally defined experiments, an optional upstream connection, and a
// registry of downstream workers, and resolves RunTrial/RunBatch requests
// by routing them to whichever of (explicit connection, upstream, local
// executor, registry fan-out) applies.
//
// Grounded on the source's Runner::run_trial/run_batch/handle_request
// control flow; RunBatch fans out one goroutine per worker joined by a
// sync.WaitGroup and collects a Trial per job instead of only an error.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/royalerun/royale/internal/executor"
	"github.com/royalerun/royale/internal/experiment"
	"github.com/royalerun/royale/internal/protocol"
	"github.com/royalerun/royale/internal/registry"
	"github.com/royalerun/royale/internal/trial"
)

// Dispatcher is the orchestrator described in §4.7.
type Dispatcher struct {
	mu          sync.RWMutex
	experiments map[string]*experiment.Experiment
	remote      *protocol.Conn

	registry *registry.Registry
	local    *executor.Local
	docker   *executor.Docker
}

func New() *Dispatcher {
	return &Dispatcher{
		experiments: map[string]*experiment.Experiment{},
		registry:    registry.New(),
		local:       executor.NewLocal(),
		docker:      executor.NewDocker(),
	}
}

// AddExperiment indexes exp by name. A duplicate name is a fatal
// configuration error, mirroring Runner::add_experiment.
func (d *Dispatcher) AddExperiment(exp *experiment.Experiment) error {
	if err := exp.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.experiments[exp.Name()]; exists {
		return fmt.Errorf("dispatch: experiment %q already added", exp.Name())
	}
	d.experiments[exp.Name()] = exp
	return nil
}

// SetRemote installs an upstream connection; once set, RunTrial and
// RunBatch calls with no explicit connection tunnel through it instead of
// executing locally.
func (d *Dispatcher) SetRemote(conn *protocol.Conn) {
	d.mu.Lock()
	d.remote = conn
	d.mu.Unlock()
}

func (d *Dispatcher) experimentNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.experiments))
	for name := range d.experiments {
		names = append(names, name)
	}
	return names
}

func (d *Dispatcher) lookupExperiment(name string) (*experiment.Experiment, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.experiments[name]
	return e, ok
}

// RunTrial resolves one trial for the named experiment end-to-end, per
// §4.7: an explicit conn takes priority, then an upstream remote, then
// local execution.
func (d *Dispatcher) RunTrial(ctx context.Context, name string, conn *protocol.Conn) (trial.Trial, error) {
	exp, ok := d.lookupExperiment(name)
	var t trial.Trial
	if ok {
		sample, err := json.Marshal(exp.Input().Sample())
		if err != nil {
			return trial.Trial{}, fmt.Errorf("dispatch: sampling %q: %w", name, err)
		}
		t = trial.New(name, sample)
	} else {
		t = trial.New(name, nil)
	}

	d.mu.RLock()
	remote := d.remote
	d.mu.RUnlock()

	switch {
	case conn != nil:
		return d.runRemote(ctx, conn, t)
	case remote != nil:
		return d.runRemote(ctx, remote, t)
	default:
		if !ok {
			t.Status = trial.NewErrorStatus(trial.NewUnknownExperiment(name))
			return t, nil
		}
		return d.runLocal(ctx, exp, t)
	}
}

func (d *Dispatcher) runLocal(ctx context.Context, exp *experiment.Experiment, t trial.Trial) (out trial.Trial, err error) {
	defer func() {
		if r := recover(); r != nil {
			t.Status = trial.NewErrorStatus(trial.NewException("panic", fmt.Sprint(r)))
			out, err = t, nil
		}
	}()
	exec := executor.Select(d.local, d.docker, exp)
	return exec.ExecTrial(ctx, exp, t)
}

// runRemote sends RunTrial over conn and waits for the matching TrialDone,
// mirroring Runner::exec_remote_experiment.
func (d *Dispatcher) runRemote(ctx context.Context, conn *protocol.Conn, t trial.Trial) (trial.Trial, error) {
	if err := conn.Send(ctx, protocol.NewRunTrial(t)); err != nil {
		return t, fmt.Errorf("dispatch: sending RunTrial: %w", err)
	}
	resp, err := conn.Receive(ctx)
	if err != nil {
		return t, fmt.Errorf("dispatch: awaiting TrialDone: %w", err)
	}
	done, ok := resp.TrialDone()
	if !ok {
		return t, fmt.Errorf("dispatch: unexpected message type %q in reply to RunTrial", resp.Tag())
	}
	return done.Trial, nil
}

// RunBatch runs one trial per worker registered for name, concurrently,
// per §4.7: tunnels through an upstream remote if one is set, otherwise
// fans out across the registry and reaps any worker whose RunTrial call
// failed.
func (d *Dispatcher) RunBatch(ctx context.Context, name string) ([]trial.Trial, error) {
	d.mu.RLock()
	remote := d.remote
	d.mu.RUnlock()

	if remote != nil {
		if err := remote.Send(ctx, protocol.NewRunBatch(name)); err != nil {
			return nil, fmt.Errorf("dispatch: sending RunBatch: %w", err)
		}
		resp, err := remote.Receive(ctx)
		if err != nil {
			return nil, fmt.Errorf("dispatch: awaiting BatchDone: %w", err)
		}
		done, ok := resp.BatchDone()
		if !ok {
			return nil, fmt.Errorf("dispatch: unexpected message type %q in reply to RunBatch", resp.Tag())
		}
		return done.Trials, nil
	}

	remotes := d.registry.Lookup(name)
	if len(remotes) == 0 {
		return []trial.Trial{}, nil
	}

	var (
		wg      sync.WaitGroup
		resMu   sync.Mutex
		results []trial.Trial
		dead    []registry.Handle
	)
	wg.Add(len(remotes))
	for _, rem := range remotes {
		go func(rem *registry.Remote) {
			defer wg.Done()
			t, err := d.RunTrial(ctx, name, rem.Conn)
			resMu.Lock()
			defer resMu.Unlock()
			if err != nil {
				log.Printf("dispatch: RunBatch: worker failed for %q: %v", name, err)
				dead = append(dead, rem.Handle)
				return
			}
			results = append(results, t)
		}(rem)
	}
	wg.Wait()

	d.registry.RemoveBulk(dead)
	return results, nil
}
