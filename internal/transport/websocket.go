package transport

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketTransport frames each packet as a single binary WebSocket
// message. On read, it accumulates one binary message at a time into an
// internal buffer and lets ReceiveExact draw from it, refilling via another
// ReadMessage call once drained.
type WebSocketTransport struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	readMu  sync.Mutex
	pending []byte // unread tail of the most recent inbound binary message

	closeOnce sync.Once
	closed    chan struct{}
}

// NewWebSocketTransport wraps an already-established *websocket.Conn.
func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	return &WebSocketTransport{
		conn:   conn,
		closed: make(chan struct{}),
	}
}

// WebSocketDialer dials a ws:// or wss:// endpoint with gorilla/websocket.
// Secure selects the scheme: false (the default) dials ws://, true dials
// wss://.
type WebSocketDialer struct {
	Dialer websocket.Dialer
	Secure bool
}

// Dial upgrades addr ("host:port", the same form TCPDialer takes) to a
// WebSocket connection, prefixing it with ws:// or wss:// per d.Secure.
func (d WebSocketDialer) Dial(ctx context.Context, addr string) (Transport, error) {
	scheme := "ws"
	if d.Secure {
		scheme = "wss"
	}

	dialer := d.Dialer
	conn, _, err := dialer.DialContext(ctx, scheme+"://"+addr, nil)
	if err != nil {
		return nil, &IOError{Cause: err}
	}
	return NewWebSocketTransport(conn), nil
}

// Send writes buf as a single binary message.
func (t *WebSocketTransport) Send(ctx context.Context, buf []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.isClosed() {
		return ErrClosed
	}

	done := make(chan struct{})
	defer close(done)
	go t.watchCancel(ctx, done)

	if err := t.conn.WriteMessage(websocket.BinaryMessage, buf); err != nil {
		if t.isClosed() {
			return ErrCancelled
		}
		return &IOError{Cause: err}
	}
	return nil
}

// ReceiveExact fills buf completely, drawing from the buffered tail of
// inbound binary messages and reading new ones as needed.
func (t *WebSocketTransport) ReceiveExact(ctx context.Context, buf []byte) error {
	t.readMu.Lock()
	defer t.readMu.Unlock()

	if t.isClosed() {
		return ErrClosed
	}

	need := len(buf)
	filled := 0

	for filled < need {
		if len(t.pending) == 0 {
			if err := t.refill(ctx); err != nil {
				return err
			}
		}

		n := copy(buf[filled:], t.pending)
		t.pending = t.pending[n:]
		filled += n
	}
	return nil
}

// refill reads the next binary WebSocket message into t.pending.
func (t *WebSocketTransport) refill(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go t.watchCancel(ctx, done)

	for {
		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			if t.isClosed() {
				return ErrCancelled
			}
			return &IOError{Cause: err}
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		t.pending = data
		return nil
	}
}

func (t *WebSocketTransport) watchCancel(ctx context.Context, done chan struct{}) {
	select {
	case <-ctx.Done():
		t.Close()
	case <-done:
	}
}

func (t *WebSocketTransport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

// Close tears down the WebSocket connection. Idempotent.
func (t *WebSocketTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		err = t.conn.Close()
	})
	return err
}
