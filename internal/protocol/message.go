// Package protocol implements the duplex message exchange between a
// Royale coordinator and a remote runner (§4.5): a tagged-union Message
// type carried over a websocket connection, with exactly one message in
// flight per direction per connection.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/royalerun/royale/internal/trial"
)

// Message is the tagged union exchanged between coordinators, mirroring
// the source's Message::RunTrial/TrialDone/Register/RunBatch/BatchDone
// hierarchy. Exactly one of the typed accessors below returns ok == true
// for a given Message.
type Message struct {
	tag       string
	runTrial  *RunTrial
	trialDone *TrialDone
	register  *Register
	runBatch  *RunBatch
	batchDone *BatchDone
}

// RunTrial asks the remote to execute a single trial and reply with
// TrialDone.
type RunTrial struct {
	Trial trial.Trial `json:"trial"`
}

// TrialDone carries the completed trial back to the requester.
type TrialDone struct {
	Trial trial.Trial `json:"trial"`
}

// Register announces the experiment names a remote is willing to run,
// sent immediately after a connection is established in the requester
// role is handed to whichever end did not initiate.
type Register struct {
	Experiments []string `json:"experiments"`
}

// RunBatch asks the remote to run one trial of an experiment on each
// worker registered for it and reply with a single BatchDone once all have
// completed.
type RunBatch struct {
	ExperimentName string `json:"experiment_name"`
}

// BatchDone carries every trial run for a RunBatch request.
type BatchDone struct {
	ExperimentName string        `json:"experiment_name"`
	Trials         []trial.Trial `json:"trials"`
}

func NewRunTrial(t trial.Trial) Message  { return Message{tag: "RunTrial", runTrial: &RunTrial{Trial: t}} }
func NewTrialDone(t trial.Trial) Message { return Message{tag: "TrialDone", trialDone: &TrialDone{Trial: t}} }
func NewRegister(experiments []string) Message {
	return Message{tag: "Register", register: &Register{Experiments: experiments}}
}
func NewRunBatch(experimentName string) Message {
	return Message{tag: "RunBatch", runBatch: &RunBatch{ExperimentName: experimentName}}
}
func NewBatchDone(experimentName string, trials []trial.Trial) Message {
	return Message{tag: "BatchDone", batchDone: &BatchDone{ExperimentName: experimentName, Trials: trials}}
}

func (m Message) Tag() string { return m.tag }

func (m Message) RunTrial() (*RunTrial, bool)   { return m.runTrial, m.runTrial != nil }
func (m Message) TrialDone() (*TrialDone, bool) { return m.trialDone, m.trialDone != nil }
func (m Message) Register() (*Register, bool)   { return m.register, m.register != nil }
func (m Message) RunBatch() (*RunBatch, bool)   { return m.runBatch, m.runBatch != nil }
func (m Message) BatchDone() (*BatchDone, bool) { return m.batchDone, m.batchDone != nil }

func (m Message) MarshalJSON() ([]byte, error) {
	var payload any
	switch m.tag {
	case "RunTrial":
		payload = m.runTrial
	case "TrialDone":
		payload = m.trialDone
	case "Register":
		payload = m.register
	case "RunBatch":
		payload = m.runBatch
	case "BatchDone":
		payload = m.batchDone
	default:
		return nil, fmt.Errorf("protocol: marshaling Message with no variant set")
	}
	return json.Marshal(map[string]any{m.tag: payload})
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	if len(envelope) != 1 {
		return fmt.Errorf("protocol: message envelope must have exactly one key, got %d", len(envelope))
	}
	for tag, raw := range envelope {
		switch tag {
		case "RunTrial":
			var v RunTrial
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("protocol: decoding RunTrial: %w", err)
			}
			*m = Message{tag: tag, runTrial: &v}
		case "TrialDone":
			var v TrialDone
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("protocol: decoding TrialDone: %w", err)
			}
			*m = Message{tag: tag, trialDone: &v}
		case "Register":
			var v Register
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("protocol: decoding Register: %w", err)
			}
			*m = Message{tag: tag, register: &v}
		case "RunBatch":
			var v RunBatch
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("protocol: decoding RunBatch: %w", err)
			}
			*m = Message{tag: tag, runBatch: &v}
		case "BatchDone":
			var v BatchDone
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("protocol: decoding BatchDone: %w", err)
			}
			*m = Message{tag: tag, batchDone: &v}
		default:
			return fmt.Errorf("protocol: unknown message tag %q", tag)
		}
	}
	return nil
}
