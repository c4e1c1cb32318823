package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/royalerun/royale/internal/experiment"
	"github.com/royalerun/royale/internal/protocol"
	"github.com/royalerun/royale/internal/trial"
)

// ErrProtocolViolation is returned when a connection sends a message type
// that is not valid in its current context; the caller must close the
// connection after seeing it.
var ErrProtocolViolation = errors.New("dispatch: protocol violation")

// HandleRequest dispatches one inbound message per §4.7. The returned
// bool reports whether the caller's read loop should keep reading from
// conn: false after a Register (the connection is now owned by the
// registry and driven by future RunTrial/RunBatch calls instead), true
// otherwise.
func (d *Dispatcher) HandleRequest(ctx context.Context, conn *protocol.Conn, msg protocol.Message) (bool, error) {
	if run, ok := msg.RunTrial(); ok {
		t := run.Trial
		name := t.Input.ExperimentName
		if exp, ok := d.lookupExperiment(name); ok {
			t = d.execWithRecovery(ctx, exp, t)
		} else {
			t.Status = trial.NewErrorStatus(trial.NewUnknownExperiment(name))
		}
		if err := conn.Send(ctx, protocol.NewTrialDone(t)); err != nil {
			return true, fmt.Errorf("dispatch: replying TrialDone: %w", err)
		}
		return true, nil
	}

	if reg, ok := msg.Register(); ok {
		d.registry.RegisterRemote(conn, reg.Experiments)
		return false, nil
	}

	if run, ok := msg.RunBatch(); ok {
		trials, err := d.RunBatch(ctx, run.ExperimentName)
		if err != nil {
			return true, fmt.Errorf("dispatch: RunBatch(%q): %w", run.ExperimentName, err)
		}
		if err := conn.Send(ctx, protocol.NewBatchDone(run.ExperimentName, trials)); err != nil {
			return true, fmt.Errorf("dispatch: replying BatchDone: %w", err)
		}
		return true, nil
	}

	return false, fmt.Errorf("%w: unexpected message type %q", ErrProtocolViolation, msg.Tag())
}

func (d *Dispatcher) execWithRecovery(ctx context.Context, exp *experiment.Experiment, t trial.Trial) trial.Trial {
	got, err := d.runLocal(ctx, exp, t)
	if err != nil {
		got.Status = trial.NewErrorStatus(trial.NewException("error", err.Error()))
	}
	return got
}

// LaunchListener accepts inbound connections on addr and runs a handler
// loop per connection in its own goroutine, mirroring
// Runner::launch_listener.
func (d *Dispatcher) LaunchListener(addr string) (*protocol.Listener, error) {
	return protocol.LaunchListener(addr, func(conn *protocol.Conn) {
		go d.serveConn(context.Background(), conn)
	})
}

func (d *Dispatcher) serveConn(ctx context.Context, conn *protocol.Conn) {
	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			log.Printf("dispatch: connection closed: %v", err)
			conn.Close("read error")
			return
		}
		cont, err := d.HandleRequest(ctx, conn, msg)
		if err != nil {
			log.Printf("dispatch: handling request: %v", err)
			conn.Close("protocol violation")
			return
		}
		if !cont {
			return
		}
	}
}

// ConnectTo opens an outbound connection to addr, mirroring
// Runner::connect_to. addr is either a websocket URL or a bare host:port,
// which is dialed as ws://host:port/.
func (d *Dispatcher) ConnectTo(ctx context.Context, addr string) (*protocol.Conn, error) {
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr + "/"
	}
	return protocol.Dial(ctx, addr)
}

// RegisterWith connects to addr, announces every locally defined
// experiment via Register, and then serves RunTrial/RunBatch requests on
// that connection until it closes, mirroring Runner::register_with.
func (d *Dispatcher) RegisterWith(ctx context.Context, addr string) error {
	conn, err := d.ConnectTo(ctx, addr)
	if err != nil {
		return fmt.Errorf("dispatch: RegisterWith: %w", err)
	}
	if err := conn.Send(ctx, protocol.NewRegister(d.experimentNames())); err != nil {
		return fmt.Errorf("dispatch: sending Register: %w", err)
	}
	d.serveConn(ctx, conn)
	return nil
}
