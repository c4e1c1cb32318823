package protocol

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"nhooyr.io/websocket"
)

// Accept upgrades an inbound HTTP request to a websocket Conn. The
// handler that calls Accept is itself wrapped in otelhttp.NewHandler by
// LaunchListener below, so every upgrade is traced the same way the rest
// of the coordinator's HTTP surface is.
func Accept(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("protocol: accepting websocket upgrade: %w", err)
	}
	return NewConn(ws), nil
}

// Dial connects to a remote runner's listener and returns a ready Conn.
// Mirrors the source's Runner::connect_to.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	ws, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("protocol: dialing %s: %w", addr, err)
	}
	return NewConn(ws), nil
}

// FindFreePort asks the kernel for an ephemeral TCP port, for callers
// that want to launch a listener without pinning a specific port ahead
// of time. The coordinator's -s flag does not use it.
func FindFreePort() (int, error) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("protocol: finding free port: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port, nil
}

// Listener wraps an *http.Server bound to one mux path that upgrades
// every request to a websocket Conn and hands it to the handler.
type Listener struct {
	srv *http.Server
}

// LaunchListener starts an HTTP server on addr, upgrading every request
// on the root path to a websocket connection handled by onConn. The mux
// is wrapped in otelhttp.NewHandler so upgrade requests participate in
// the coordinator's tracing the way any other HTTP surface would.
func LaunchListener(addr string, onConn func(*Conn)) (*Listener, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := Accept(w, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		onConn(conn)
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("protocol: listening on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: otelhttp.NewHandler(mux, "royale.protocol.listener")}
	l := &Listener{srv: srv}
	go srv.Serve(ln)
	return l, nil
}

func (l *Listener) Close() error { return l.srv.Close() }
