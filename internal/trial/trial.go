// Package trial implements Royale's Trial lifecycle: the unit of work
// dispatched to workers, plus the terminal TrialOutput/ErrorKind payloads.
package trial

import (
	"encoding/json"
	"fmt"
)

// TrialOutput is carried by a Complete trial status.
type TrialOutput struct {
	Preds     map[string]bool           `json:"preds"`
	Aux       map[string]json.RawMessage `json:"aux"`
	Replicate json.RawMessage           `json:"replicate"`
}

// TrialInput is the input-side of a Trial: which experiment, what sample,
// and an opaque replicate tag the caller can use to correlate results. The
// sample is carried as raw JSON (rather than a typed experiment.Sample) so
// this package does not need to import experiment, which itself has no
// need to know about trials — it is produced by experiment.Sample's own
// MarshalJSON, which preserves input-name iteration order.
type TrialInput struct {
	ExperimentName string          `json:"experiment_name"`
	Sample         json.RawMessage `json:"sample"`
	Replicate      json.RawMessage `json:"replicate"`
}

// statusKind enumerates the trial lifecycle states of §3.
type statusKind int

const (
	Created statusKind = iota
	InProgress
	Complete
	Error
)

func (k statusKind) String() string {
	switch k {
	case Created:
		return "Created"
	case InProgress:
		return "InProgress"
	case Complete:
		return "Complete"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// Status is the tagged union carried by a Trial: Created/InProgress carry no
// payload, Complete carries a TrialOutput plus captured stderr, Error
// carries an ErrorKind.
type Status struct {
	kind   statusKind
	output *TrialOutput
	stderr string
	err    ErrorKind
}

func NewCreatedStatus() Status    { return Status{kind: Created} }
func NewInProgressStatus() Status { return Status{kind: InProgress} }

func NewCompleteStatus(output TrialOutput, stderr string) Status {
	return Status{kind: Complete, output: &output, stderr: stderr}
}

func NewErrorStatus(err ErrorKind) Status {
	return Status{kind: Error, err: err}
}

func (s Status) Kind() statusKind { return s.kind }
func (s Status) IsTerminal() bool { return s.kind == Complete || s.kind == Error }

func (s Status) Output() (*TrialOutput, string, bool) {
	if s.kind != Complete {
		return nil, "", false
	}
	return s.output, s.stderr, true
}

func (s Status) Err() (ErrorKind, bool) {
	if s.kind != Error {
		return ErrorKind{}, false
	}
	return s.err, true
}

type completePayload struct {
	Output TrialOutput `json:"output"`
	Stderr string      `json:"stderr"`
}

func (s Status) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case Created:
		return json.Marshal(map[string]any{"Created": nil})
	case InProgress:
		return json.Marshal(map[string]any{"InProgress": nil})
	case Complete:
		return json.Marshal(map[string]completePayload{
			"Complete": {Output: *s.output, Stderr: s.stderr},
		})
	case Error:
		return json.Marshal(map[string]ErrorKind{"Error": s.err})
	default:
		return nil, fmt.Errorf("trial status: unset kind")
	}
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("trial status: expected exactly one tag, got %d", len(m))
	}
	for tag, payload := range m {
		switch tag {
		case "Created":
			*s = Status{kind: Created}
		case "InProgress":
			*s = Status{kind: InProgress}
		case "Complete":
			var p completePayload
			if err := json.Unmarshal(payload, &p); err != nil {
				return err
			}
			*s = Status{kind: Complete, output: &p.Output, stderr: p.Stderr}
		case "Error":
			var ek ErrorKind
			if err := json.Unmarshal(payload, &ek); err != nil {
				return err
			}
			*s = Status{kind: Error, err: ek}
		default:
			return fmt.Errorf("trial status: unknown tag %q", tag)
		}
	}
	return nil
}

// Trial is the unit of work: an input side plus a lifecycle status.
type Trial struct {
	Status Status     `json:"status"`
	Input  TrialInput `json:"input"`
}

func New(experimentName string, sample json.RawMessage) Trial {
	return Trial{
		Status: NewCreatedStatus(),
		Input: TrialInput{
			ExperimentName: experimentName,
			Sample:         sample,
		},
	}
}

// WithException transitions the trial to Error(Exception{...}), mirroring
// the source's Trial::exception(e) helper.
func (t Trial) WithException(typeID, what string) Trial {
	t.Status = NewErrorStatus(NewException(typeID, what))
	return t
}

func (t Trial) IsTerminal() bool { return t.Status.IsTerminal() }
