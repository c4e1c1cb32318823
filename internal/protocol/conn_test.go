package protocol

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/royalerun/royale/internal/trial"
)

func TestSendReceiveRoundTrip(t *testing.T) {
	var serverConn *Conn
	connected := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := Accept(w, r)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		serverConn = c
		close(connected)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	addr := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer clientConn.Close("test done")

	<-connected
	defer serverConn.Close("test done")

	want := NewRunBatch("demo")
	if err := clientConn.Send(ctx, want); err != nil {
		t.Fatalf("send: %v", err)
	}
	got, err := serverConn.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	rb, ok := got.RunBatch()
	if !ok || rb.ExperimentName != "demo" {
		t.Fatalf("got = %+v, want RunBatch{demo}", got)
	}
}

func TestSendReceiveBatchDone(t *testing.T) {
	var serverConn *Conn
	connected := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := Accept(w, r)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		serverConn = c
		close(connected)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	addr := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer clientConn.Close("test done")
	<-connected
	defer serverConn.Close("test done")

	trials := []trial.Trial{trial.New("demo", nil), trial.New("demo", nil)}
	if err := serverConn.Send(ctx, NewBatchDone("demo", trials)); err != nil {
		t.Fatalf("send: %v", err)
	}
	got, err := clientConn.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	bd, ok := got.BatchDone()
	if !ok || len(bd.Trials) != 2 {
		t.Fatalf("got = %+v, want BatchDone with 2 trials", got)
	}
}

func TestFindFreePortReturnsUsablePort(t *testing.T) {
	port, err := FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	if port <= 0 || port > 65535 {
		t.Fatalf("port = %d, out of range", port)
	}
}
