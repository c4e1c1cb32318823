package trial

import (
	"encoding/json"
	"testing"
)

func TestStatusTransitionsAreTerminal(t *testing.T) {
	created := NewCreatedStatus()
	if created.IsTerminal() {
		t.Fatal("Created should not be terminal")
	}
	inProgress := NewInProgressStatus()
	if inProgress.IsTerminal() {
		t.Fatal("InProgress should not be terminal")
	}
	complete := NewCompleteStatus(TrialOutput{Preds: map[string]bool{"p": true}}, "")
	if !complete.IsTerminal() {
		t.Fatal("Complete should be terminal")
	}
	errStatus := NewErrorStatus(NewExitStatus(7, "", "err\n"))
	if !errStatus.IsTerminal() {
		t.Fatal("Error should be terminal")
	}
}

func TestStatusJSONRoundTrip(t *testing.T) {
	cases := []Status{
		NewCreatedStatus(),
		NewInProgressStatus(),
		NewCompleteStatus(TrialOutput{Preds: map[string]bool{"p": true}, Aux: map[string]json.RawMessage{}}, ""),
		NewErrorStatus(NewBadOutput("notjson\n", "")),
		NewErrorStatus(NewUnknownExperiment("demo")),
	}
	for _, s := range cases {
		b1, err := json.Marshal(s)
		if err != nil {
			t.Fatal(err)
		}
		var s2 Status
		if err := json.Unmarshal(b1, &s2); err != nil {
			t.Fatalf("unmarshal %s: %v", b1, err)
		}
		b2, err := json.Marshal(s2)
		if err != nil {
			t.Fatal(err)
		}
		if string(b1) != string(b2) {
			t.Fatalf("round trip not idempotent: %s != %s", b1, b2)
		}
	}
}

func TestCompleteTrialWireShape(t *testing.T) {
	tr := Trial{
		Status: NewCompleteStatus(TrialOutput{
			Preds: map[string]bool{"p": true},
			Aux:   map[string]json.RawMessage{},
		}, ""),
		Input: TrialInput{
			ExperimentName: "demo",
			Sample:         json.RawMessage(`{"x":3,"tag":"a"}`),
		},
	}
	b, err := json.Marshal(tr)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["status"]; !ok {
		t.Fatal("wire shape missing status key")
	}
	if _, ok := decoded["input"]; !ok {
		t.Fatal("wire shape missing input key")
	}
}

func TestWithException(t *testing.T) {
	tr := New("demo", json.RawMessage(`{}`))
	tr = tr.WithException("runtime_error", "boom")
	ek, ok := tr.Status.Err()
	if !ok || ek.Tag() != "Exception" {
		t.Fatalf("expected Exception error kind, got %+v", tr.Status)
	}
}
