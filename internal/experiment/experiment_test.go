package experiment

import (
	"encoding/json"
	"testing"

	"github.com/royalerun/royale/internal/value"
)

func TestFluentBuilder(t *testing.T) {
	exp := New().
		SetName("test").
		SetCmd("ls", "-alh", "/").
		SetEnv(map[string]string{"PATH": "/bin:/usr/bin", "ROOT": "/"})

	extend := exp.EnvInserter()
	extend("A", "1")
	extend("B", "2")
	extend("C", "3")

	if exp.Name() != "test" {
		t.Fatalf("Name() = %q", exp.Name())
	}
	if len(exp.Cmd()) != 3 || exp.Cmd()[0] != "ls" {
		t.Fatalf("Cmd() = %v", exp.Cmd())
	}
	if len(exp.Env()) != 5 {
		t.Fatalf("Env() has %d entries, want 5", len(exp.Env()))
	}
}

func TestInputSpecSampleKeySet(t *testing.T) {
	in := NewInputSpec()
	in.Set("x", value.NewConstant(value.NewNumber(42)))
	in.Set("y", value.NewConstant(value.NewNumber(47)))
	in.Set("hello", value.NewConstant(value.NewString("world")))

	s := in.Sample()
	if s.Len() != in.Len() {
		t.Fatalf("sample has %d keys, input spec has %d", s.Len(), in.Len())
	}
	for _, name := range in.Names() {
		if _, ok := s.Get(name); !ok {
			t.Fatalf("sample missing key %q", name)
		}
	}
}

func TestDuplicateKeyOverwrites(t *testing.T) {
	in := NewInputSpec()
	in.Set("x", value.NewConstant(value.NewNumber(1)))
	in.Set("x", value.NewConstant(value.NewNumber(2)))
	if in.Len() != 1 {
		t.Fatalf("duplicate key should overwrite, not append; len=%d", in.Len())
	}
	spec, _ := in.Get("x")
	got, _ := spec.Sample().Float64()
	if got != 2 {
		t.Fatalf("expected overwritten value 2, got %v", got)
	}
}

func TestValidateEmptyName(t *testing.T) {
	exp := New()
	if err := exp.Validate(); err == nil {
		t.Fatalf("empty-name experiment should fail validation")
	}
}

func TestExperimentJSONRoundTrip(t *testing.T) {
	exp := New().SetName("test").SetCmd("ls")
	exp.Input().Set("x", value.NewConstant(value.NewNumber(42)))

	b1, err := json.Marshal(exp)
	if err != nil {
		t.Fatal(err)
	}
	var exp2 Experiment
	if err := json.Unmarshal(b1, &exp2); err != nil {
		t.Fatal(err)
	}
	b2, err := json.Marshal(&exp2)
	if err != nil {
		t.Fatal(err)
	}
	if string(b1) != string(b2) {
		t.Fatalf("round trip not idempotent:\n%s\n%s", b1, b2)
	}
	if exp2.Name() != "test" {
		t.Fatalf("round-tripped name = %q", exp2.Name())
	}
}
