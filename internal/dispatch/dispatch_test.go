package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/royalerun/royale/internal/experiment"
	"github.com/royalerun/royale/internal/protocol"
	"github.com/royalerun/royale/internal/trial"
)

func TestAddExperimentDuplicateRejected(t *testing.T) {
	d := New()
	if err := d.AddExperiment(experiment.New().SetName("demo").SetCmd("true")); err != nil {
		t.Fatal(err)
	}
	if err := d.AddExperiment(experiment.New().SetName("demo").SetCmd("true")); err == nil {
		t.Fatal("expected error adding duplicate experiment name")
	}
}

func TestAddExperimentEmptyNameRejected(t *testing.T) {
	d := New()
	if err := d.AddExperiment(experiment.New().SetCmd("true")); err == nil {
		t.Fatal("expected error adding experiment with empty name")
	}
}

func TestRunTrialLocalSuccess(t *testing.T) {
	d := New()
	exp := experiment.New().SetName("echo").
		SetCmd("sh", "-c", `echo '{"preds":{"p":true},"aux":{},"replicate":null}'`)
	if err := d.AddExperiment(exp); err != nil {
		t.Fatal(err)
	}
	got, err := d.RunTrial(context.Background(), "echo", nil)
	if err != nil {
		t.Fatal(err)
	}
	out, _, ok := got.Status.Output()
	if !ok || !out.Preds["p"] {
		t.Fatalf("expected completed trial with preds.p, got %+v", got.Status)
	}
}

func TestRunTrialUnknownExperiment(t *testing.T) {
	d := New()
	got, err := d.RunTrial(context.Background(), "nope", nil)
	if err != nil {
		t.Fatal(err)
	}
	ek, ok := got.Status.Err()
	if !ok || ek.Tag() != "UnknownExperiment" {
		t.Fatalf("expected UnknownExperiment error, got %+v", got.Status)
	}
}

func TestRunBatchNoWorkersReturnsEmpty(t *testing.T) {
	d := New()
	trials, err := d.RunBatch(context.Background(), "demo")
	if err != nil {
		t.Fatal(err)
	}
	if len(trials) != 0 {
		t.Fatalf("expected empty batch, got %d trials", len(trials))
	}
}

// newWorkerConn starts a one-shot websocket server that plays the role of a
// registered remote worker, and returns a Conn the dispatcher can hold in
// its registry to talk to it. If respond is false, the worker's server
// accepts the connection and immediately closes it, simulating a worker
// that dies mid-batch (scenario grounded on the source's RunBatch dead
// remote reaping behavior).
func newWorkerConn(t *testing.T, respond bool) (*protocol.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := protocol.Accept(w, r)
		if err != nil {
			return
		}
		if !respond {
			conn.Close("simulated failure")
			return
		}
		go func() {
			ctx := context.Background()
			msg, err := conn.Receive(ctx)
			if err != nil {
				return
			}
			run, ok := msg.RunTrial()
			if !ok {
				return
			}
			tr := run.Trial
			tr.Status = trial.NewCompleteStatus(trial.TrialOutput{Preds: map[string]bool{"p": true}}, "")
			conn.Send(ctx, protocol.NewTrialDone(tr))
		}()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	addr := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := protocol.Dial(ctx, addr)
	if err != nil {
		t.Fatalf("dial worker: %v", err)
	}
	return conn, srv.Close
}

func TestRunBatchFanOutWithOneDeadWorker(t *testing.T) {
	d := New()
	exp := experiment.New().SetName("demo").SetCmd("true")
	if err := d.AddExperiment(exp); err != nil {
		t.Fatal(err)
	}

	aliveConn, closeAlive := newWorkerConn(t, true)
	defer closeAlive()
	deadConn, closeDead := newWorkerConn(t, false)
	defer closeDead()

	h1 := d.registry.RegisterRemote(aliveConn, []string{"demo"})
	h2 := d.registry.RegisterRemote(deadConn, []string{"demo"})
	_ = h1

	trials, err := d.RunBatch(context.Background(), "demo")
	if err != nil {
		t.Fatal(err)
	}
	if len(trials) != 1 {
		t.Fatalf("expected exactly 1 trial from the surviving worker, got %d", len(trials))
	}

	remaining := d.registry.Lookup("demo")
	for _, rem := range remaining {
		if rem.Handle == h2 {
			t.Fatal("expected dead worker to be reaped from the registry")
		}
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 remaining worker, got %d", len(remaining))
	}
}
