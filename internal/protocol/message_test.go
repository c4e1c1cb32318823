package protocol

import (
	"encoding/json"
	"testing"

	"github.com/royalerun/royale/internal/trial"
)

func TestMessageJSONRoundTrip(t *testing.T) {
	demo := trial.New("demo", json.RawMessage(`{"x":1}`))
	cases := []Message{
		NewRunTrial(demo),
		NewTrialDone(demo),
		NewRegister([]string{"demo", "other"}),
		NewRunBatch("demo"),
		NewBatchDone("demo", []trial.Trial{demo, demo}),
	}
	for _, m := range cases {
		b, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("marshal %s: %v", m.Tag(), err)
		}
		var decoded Message
		if err := json.Unmarshal(b, &decoded); err != nil {
			t.Fatalf("unmarshal %s: %v", m.Tag(), err)
		}
		if decoded.Tag() != m.Tag() {
			t.Fatalf("tag = %q, want %q", decoded.Tag(), m.Tag())
		}
		b2, err := json.Marshal(decoded)
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != string(b2) {
			t.Fatalf("round trip not idempotent: %s != %s", b, b2)
		}
	}
}

func TestMessageEnvelopeShape(t *testing.T) {
	m := NewRunBatch("demo")
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(b, &envelope); err != nil {
		t.Fatal(err)
	}
	if len(envelope) != 1 {
		t.Fatalf("expected exactly one top-level key, got %d", len(envelope))
	}
	if _, ok := envelope["RunBatch"]; !ok {
		t.Fatalf("expected RunBatch key, got %v", envelope)
	}
}

func TestMessageUnknownTagRejected(t *testing.T) {
	var m Message
	err := json.Unmarshal([]byte(`{"Bogus":{}}`), &m)
	if err == nil {
		t.Fatal("expected error for unknown message tag")
	}
}

func TestMessageMultiKeyEnvelopeRejected(t *testing.T) {
	var m Message
	err := json.Unmarshal([]byte(`{"RunBatch":{"experiment_name":"a"},"TrialDone":{}}`), &m)
	if err == nil {
		t.Fatal("expected error for multi-key envelope")
	}
}

func TestTypedAccessors(t *testing.T) {
	m := NewRunBatch("demo")
	if _, ok := m.RunBatch(); !ok {
		t.Fatal("expected RunBatch accessor to report ok")
	}
	if _, ok := m.TrialDone(); ok {
		t.Fatal("expected TrialDone accessor to report not-ok for a RunBatch message")
	}
}
