package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

const (
	pingInterval = 20 * time.Second
	pingTimeout  = 5 * time.Second
	writeTimeout = 15 * time.Second
)

// Conn wraps a websocket connection with Royale's one-message-in-flight
// discipline: each direction is guarded by its own mutex, so a caller
// never needs to interleave writes or reads itself. Adapted from the
// ipc.Hub/client pair's send-serialization and ws_ping.go's keepalive
// ticker, collapsed onto a single point-to-point connection since a
// runner talks to exactly one coordinator at a time (§4.5).
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex
	readMu  sync.Mutex

	pingCancel context.CancelFunc
}

// NewConn wraps an established websocket connection and starts its
// keepalive ping loop. Callers must call Close when done.
func NewConn(ws *websocket.Conn) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{ws: ws, pingCancel: cancel}
	go c.pingLoop(ctx)
	return c
}

func (c *Conn) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			_ = c.ws.Ping(pingCtx)
			cancel()
		}
	}
}

// Send writes a single Message, blocking until any previous Send on this
// connection has finished. Concurrent Send calls are serialized, not
// rejected, since the dispatcher may have multiple goroutines wanting to
// talk to the same remote.
func (c *Conn) Send(ctx context.Context, m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("protocol: marshaling %s: %w", m.Tag(), err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := c.ws.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("protocol: writing %s: %w", m.Tag(), err)
	}
	return nil
}

// Receive reads a single Message, blocking until one arrives or ctx is
// done. Concurrent Receive calls are serialized the same way Send's are.
func (c *Conn) Receive(ctx context.Context) (Message, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	_, data, err := c.ws.Read(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("protocol: reading message: %w", err)
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("protocol: decoding message: %w", err)
	}
	return m, nil
}

// Close ends the keepalive loop and closes the underlying connection.
func (c *Conn) Close(reason string) error {
	c.pingCancel()
	return c.ws.Close(websocket.StatusNormalClosure, reason)
}
