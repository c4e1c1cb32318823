package experiment

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/royalerun/royale/internal/value"
)

// Experiment is an immutable-after-load recipe for producing trials: a
// command to run, the environment to run it in, and the InputSpec that
// generates a fresh sample per trial.
type Experiment struct {
	name    string
	version int
	timeout time.Duration
	cd      string
	cmd     []string
	env     map[string]string
	envOrd  []string
	input   *InputSpec

	// container, when non-empty, selects the optional container-backed
	// executor (internal/executor.Docker) instead of the bare child
	// process executor for this experiment's trials.
	container string
}

func New() *Experiment {
	return &Experiment{env: map[string]string{}, input: NewInputSpec()}
}

func (e *Experiment) Name() string { return e.name }
func (e *Experiment) SetName(name string) *Experiment {
	e.name = name
	return e
}

func (e *Experiment) Version() int { return e.version }
func (e *Experiment) SetVersion(v int) *Experiment {
	e.version = v
	return e
}

func (e *Experiment) Timeout() time.Duration { return e.timeout }
func (e *Experiment) SetTimeout(d time.Duration) *Experiment {
	e.timeout = d
	return e
}

func (e *Experiment) Cd() string { return e.cd }
func (e *Experiment) SetCd(dir string) *Experiment {
	e.cd = dir
	return e
}

func (e *Experiment) Cmd() []string { return e.cmd }
func (e *Experiment) SetCmd(argv ...string) *Experiment {
	e.cmd = argv
	return e
}

func (e *Experiment) Env() map[string]string { return e.env }
func (e *Experiment) SetEnv(env map[string]string) *Experiment {
	e.env = map[string]string{}
	e.envOrd = nil
	for k, v := range env {
		e.setEnv(k, v)
	}
	return e
}

func (e *Experiment) setEnv(k, v string) {
	if _, exists := e.env[k]; !exists {
		e.envOrd = append(e.envOrd, k)
	}
	e.env[k] = v
}

// EnvInserter returns a closure for incrementally appending environment
// entries, mirroring the source's fluent "extend_env()(k,v)(k,v)..." idiom.
func (e *Experiment) EnvInserter() func(k, v string) *Experiment {
	return func(k, v string) *Experiment {
		e.setEnv(k, v)
		return e
	}
}

func (e *Experiment) Container() string { return e.container }
func (e *Experiment) SetContainer(image string) *Experiment {
	e.container = image
	return e
}

func (e *Experiment) Input() *InputSpec { return e.input }
func (e *Experiment) SetInput(in *InputSpec) *Experiment {
	e.input = in
	return e
}

// InputInserter returns a closure for incrementally appending input-spec
// entries, mirroring the source's "extend_inputs()(name,spec)..." idiom.
func (e *Experiment) InputInserter() func(name string, spec value.ValueSpec) *Experiment {
	return func(name string, spec value.ValueSpec) *Experiment {
		e.input.Set(name, spec)
		return e
	}
}

// Validate checks the invariants the coordinator enforces before accepting
// an experiment: non-empty name. Duplicate-name rejection is the
// dispatcher's responsibility since it is cross-experiment (§4.7).
func (e *Experiment) Validate() error {
	if e.name == "" {
		return fmt.Errorf("experiment: name must not be empty")
	}
	return nil
}

type jsonExperiment struct {
	Name      string            `json:"name"`
	Version   int               `json:"version,omitempty"`
	Timeout   float64           `json:"timeout,omitempty"`
	Cd        string            `json:"cd,omitempty"`
	Cmd       []string          `json:"cmd"`
	Env       map[string]string `json:"env,omitempty"`
	Container string            `json:"container,omitempty"`
	Input     *InputSpec        `json:"input"`
}

func (e *Experiment) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonExperiment{
		Name:      e.name,
		Version:   e.version,
		Timeout:   e.timeout.Seconds(),
		Cd:        e.cd,
		Cmd:       e.cmd,
		Env:       e.env,
		Container: e.container,
		Input:     e.input,
	})
}

func (e *Experiment) UnmarshalJSON(data []byte) error {
	var j jsonExperiment
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*e = Experiment{
		name:      j.Name,
		version:   j.Version,
		timeout:   time.Duration(j.Timeout * float64(time.Second)),
		cd:        j.Cd,
		cmd:       j.Cmd,
		env:       map[string]string{},
		container: j.Container,
		input:     j.Input,
	}
	if e.input == nil {
		e.input = NewInputSpec()
	}
	for k, v := range j.Env {
		e.setEnv(k, v)
	}
	return nil
}
