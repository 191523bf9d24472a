// Package connection implements the connection core (C4): the lifecycle
// state machine, the receive loop, the heartbeat loop, and the coordinated
// shutdown path between them.
package connection

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/liveproto/danmaku-client/internal/classify"
	"github.com/liveproto/danmaku-client/internal/config"
	"github.com/liveproto/danmaku-client/internal/dispatch"
	"github.com/liveproto/danmaku-client/internal/events"
	"github.com/liveproto/danmaku-client/internal/frame"
	"github.com/liveproto/danmaku-client/internal/logging"
	"github.com/liveproto/danmaku-client/internal/serverinfo"
	"github.com/liveproto/danmaku-client/internal/telemetry"
	"github.com/liveproto/danmaku-client/internal/transport"
)

const initialBodyBufCap = 4096

// Connection is the danmaku protocol client's connection core. Create one
// with New, call Connect to join a room, Disconnect to end the session
// without discarding the Connection, and Dispose to retire it for good.
type Connection struct {
	opts     config.Options
	provider serverinfo.Provider
	dialer   transport.Dialer
	invoker  *dispatch.Invoker

	id string // opaque correlation id for logs/metrics

	state     atomic.Int32 // connection.State
	connected atomic.Bool

	// lifetimeCancel is bound to the Connection's existence; cancelling it
	// (via Dispose) unblocks any in-flight worker operations too, since the
	// worker context is always derived from it.
	lifetimeCtx    context.Context
	lifetimeCancel atomic.Pointer[context.CancelFunc]

	// workerCancel is the CAS-guarded slot: installed by Connect, removed
	// by the single winner of disconnect's compare-and-swap. A nil value
	// means no session is currently active.
	workerCancel atomic.Pointer[context.CancelFunc]

	tr atomic.Pointer[transport.Transport]
}

// New builds a Connection for opts.RoomID, using provider to resolve
// endpoint/credentials and dialer to open the transport. invoker receives
// all emitted events (Connected, Disconnected, Popularity, RawData).
func New(opts config.Options, provider serverinfo.Provider, dialer transport.Dialer, invoker *dispatch.Invoker) *Connection {
	lifetimeCtx, lifetimeCancel := context.WithCancel(context.Background())

	c := &Connection{
		opts:        opts,
		provider:    provider,
		dialer:      dialer,
		invoker:     invoker,
		id:          uuid.New().String(),
		lifetimeCtx: lifetimeCtx,
	}
	c.lifetimeCancel.Store(&lifetimeCancel)
	c.state.Store(int32(Idle))
	return c
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	return State(c.state.Load())
}

// Connected reports whether the connect-ack has been received and the
// session has not been torn down since (by Disconnect, Dispose, or a
// failing receive or heartbeat loop).
func (c *Connection) Connected() bool {
	return c.connected.Load()
}

// RoomID returns the configured room id.
func (c *Connection) RoomID() int64 {
	return c.opts.RoomID
}

// Connect performs the join handshake and starts the receive and heartbeat
// loops. It returns once the connect-ack has been received, or once the
// handshake fails, is cancelled via ctx, or exceeds the configured
// handshake timeout. The worker token governing the session that follows
// is linked to both the Connection's lifetime token and ctx for as long as
// the session runs: cancelling either the Connection (Dispose) or the ctx
// passed in here unblocks the receive and heartbeat loops, per the token
// tree in spec.md §5.
func (c *Connection) Connect(ctx context.Context) error {
	if c.State() == Disposed {
		return ErrDisposed
	}
	if !c.state.CompareAndSwap(int32(Idle), int32(Connecting)) {
		return ErrInvalidState
	}
	c.setState(Connecting)

	workerCtx, workerCancel := context.WithCancel(c.lifetimeCtx)
	if !c.workerCancel.CompareAndSwap(nil, &workerCancel) {
		workerCancel()
		c.setState(Idle)
		return ErrInvalidState
	}

	// Link the worker token to the caller's ctx too, for the duration of
	// the session: either parent cancelling unblocks the loops below. The
	// watcher exits on its own once the worker token is cancelled from
	// either side, so it never outlives the session even when ctx is
	// long-lived (e.g. context.Background()).
	go func() {
		select {
		case <-ctx.Done():
			workerCancel()
		case <-workerCtx.Done():
		}
	}()

	tr, ackErrCh, err := c.internalConnect(ctx, workerCtx)
	if err != nil {
		c.workerCancel.Store(nil)
		workerCancel()
		c.setState(Idle)
		if ctx.Err() != nil {
			return ErrCancelled
		}
		return err
	}
	c.tr.Store(&tr)

	if err := c.awaitHandshake(ctx, ackErrCh); err != nil {
		c.disconnect(err)
		return err
	}

	c.connected.Store(true)
	c.setState(Running)

	go c.heartbeatLoop(workerCtx, tr)

	return nil
}

// awaitHandshake blocks on ackErrCh, honoring ctx cancellation and the
// optional handshake deadline.
func (c *Connection) awaitHandshake(ctx context.Context, ackErrCh <-chan error) error {
	if c.opts.HandshakeTimeout <= 0 {
		select {
		case err := <-ackErrCh:
			return err
		case <-ctx.Done():
			return ErrCancelled
		}
	}

	timer := time.NewTimer(c.opts.HandshakeTimeout)
	defer timer.Stop()

	select {
	case err := <-ackErrCh:
		return err
	case <-ctx.Done():
		return ErrCancelled
	case <-timer.C:
		return ErrHandshakeTimeout
	}
}

// internalConnect resolves server info, dials the transport, and sends the
// join frame, all bounded by ctx. It then starts the receive loop as a
// detached goroutine bound to workerCtx (linked to both the Connection's
// lifetime and ctx for the session's duration, per Connect) and returns a
// channel that receives exactly one value: nil on connect-ack, or the
// error that ended the receive loop before the ack arrived.
func (c *Connection) internalConnect(ctx, workerCtx context.Context) (transport.Transport, <-chan error, error) {
	info, err := c.provider.Resolve(ctx, c.opts.RoomID)
	if err != nil {
		return nil, nil, err
	}

	tr, err := c.dialer.Dial(ctx, addr(info))
	if err != nil {
		return nil, nil, err
	}

	body, err := newJoinPayload(c.opts.UID, c.opts.RoomID, c.opts.ProtocolVersion, info.Token)
	if err != nil {
		tr.Close()
		return nil, nil, err
	}

	joinFrame := frame.EncodeWithBody(frame.ActionJoinRoom, body)
	if err := tr.Send(ctx, joinFrame); err != nil {
		tr.Close()
		return nil, nil, err
	}

	ackErrCh := make(chan error, 1)
	go c.receiveLoop(workerCtx, tr, ackErrCh)

	return tr, ackErrCh, nil
}

// receiveLoop is C4's receive loop: it owns the header/body buffers for its
// lifetime, completes ackErrCh exactly once on the first connect-ack (or on
// a fatal error before one arrives), and otherwise hands decoded frames to
// the classifier for the rest of the session.
func (c *Connection) receiveLoop(ctx context.Context, tr transport.Transport, ackErrCh chan<- error) {
	headerBuf := make([]byte, frame.HeaderSize)
	bodyBuf := make([]byte, initialBodyBufCap)

	ackSignaled := false
	signalAck := func(err error) {
		if ackSignaled {
			return
		}
		ackSignaled = true
		ackErrCh <- err
	}

	sink := &eventSink{conn: c}

	var loopErr error
	for {
		if err := tr.ReceiveExact(ctx, headerBuf); err != nil {
			loopErr = err
			break
		}

		h, err := frame.DecodeHeader(headerBuf)
		if err != nil {
			loopErr = ErrBadFrameHeader
			break
		}

		bodyLen := h.BodyLength()
		if bodyLen < 0 {
			loopErr = ErrBadFrameHeader
			break
		}
		if bodyLen > frame.MaxBodyLen {
			loopErr = ErrFrameTooLarge
			break
		}
		if cap(bodyBuf) < bodyLen {
			bodyBuf = make([]byte, bodyLen)
		}
		body := bodyBuf[:bodyLen]
		if bodyLen > 0 {
			if err := tr.ReceiveExact(ctx, body); err != nil {
				loopErr = err
				break
			}
		}

		telemetry.FramesDecoded.WithLabelValues(actionLabel(h.Action)).Inc()

		if h.Action == frame.ActionConnectAck {
			if !ackSignaled {
				signalAck(nil)
				c.dispatchEvent(events.Connected{Time: time.Now()})
			}
			continue
		}

		if err := classify.Classify(h, body, time.Now(), sink); err != nil {
			telemetry.FrameDecodeErrors.Inc()
			logging.FrameDropped(c.id, c.opts.RoomID, h.Action, err)
			continue
		}
	}

	signalAck(loopErr)
	c.disconnect(loopErr)
}

// heartbeatLoop is C4's heartbeat loop: send, measure, sleep the remainder,
// or fail with ErrHeartbeatOverrun if the send alone consumed the whole
// interval.
func (c *Connection) heartbeatLoop(ctx context.Context, tr transport.Transport) {
	interval := c.opts.HeartbeatInterval

	for {
		t0 := time.Now()

		if err := tr.Send(ctx, frame.HeartbeatFrame); err != nil {
			c.disconnect(err)
			return
		}
		telemetry.HeartbeatsSent.Inc()

		remaining := interval - time.Since(t0)
		if remaining <= 0 {
			telemetry.HeartbeatOverruns.Inc()
			logging.HeartbeatOverrun(c.id, c.opts.RoomID)
			c.disconnect(ErrHeartbeatOverrun)
			return
		}

		timer := time.NewTimer(remaining)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			c.disconnect(ErrCancelled)
			return
		}
	}
}

// Disconnect idempotently tears the session down with no triggering error
// (a caller-initiated clean shutdown).
func (c *Connection) Disconnect() {
	c.disconnect(nil)
}

// disconnect is the CAS-guarded teardown: only the winner of the
// compare-and-swap on workerCancel executes teardown; losers (including a
// second concurrent call, or a loop failing after another already tore
// down) are no-ops.
func (c *Connection) disconnect(triggerErr error) {
	cancelPtr := c.workerCancel.Swap(nil)
	if cancelPtr == nil {
		return // already torn down
	}

	c.setState(ShuttingDown)

	(*cancelPtr)()

	if trPtr := c.tr.Swap(nil); trPtr != nil {
		(*trPtr).Close()
	}

	c.connected.Store(false)

	reported := triggerErr
	if isCancellation(triggerErr) || errors.Is(triggerErr, ErrHandshakeTimeout) {
		reported = nil
	}

	c.dispatchEvent(events.Disconnected{
		Err:   reported,
		Time:  time.Now(),
		Token: c.id,
	})

	logging.Disconnected(c.id, c.opts.RoomID, reported)

	if c.State() != Disposed {
		c.setState(Idle)
	}
}

// Dispose retires the Connection permanently. Idempotent; safe to call
// multiple times.
func (c *Connection) Dispose() {
	cancelPtr := c.lifetimeCancel.Swap(nil)
	if cancelPtr == nil {
		return // already disposed
	}

	c.disconnect(nil)
	(*cancelPtr)()
	c.setState(Disposed)
}

func (c *Connection) setState(s State) {
	old := State(c.state.Load())
	c.state.Store(int32(s))
	telemetry.ConnectionState.WithLabelValues(roomLabel(c.opts.RoomID)).Set(float64(s))
	logging.StateTransition(c.id, c.opts.RoomID, old.String(), s.String())
}

func (c *Connection) dispatchEvent(evt dispatch.Event) {
	if c.invoker == nil {
		return
	}
	errs := c.invoker.Dispatch(context.Background(), evt)
	for _, err := range errs {
		telemetry.DispatchErrors.WithLabelValues(eventLabel(evt)).Inc()
		logging.HandlerError(c.id, eventLabel(evt), err)
	}
}

// eventSink adapts the classifier's Sink contract to this connection's
// dispatch call.
type eventSink struct{ conn *Connection }

func (s *eventSink) Popularity(e events.Popularity) { s.conn.dispatchEvent(e) }
func (s *eventSink) Raw(e events.RawData)           { s.conn.dispatchEvent(e) }

func isCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, transport.ErrCancelled) ||
		errors.Is(err, ErrCancelled)
}

// addr builds the bare "host:port" every transport.Dialer accepts.
// WebSocketDialer prefixes its own ws(s):// scheme; TCPDialer takes the
// same form unchanged.
func addr(info serverinfo.Info) string {
	return info.Host + ":" + strconv.Itoa(info.Port)
}

func roomLabel(roomID int64) string {
	return strconv.FormatInt(roomID, 10)
}

func actionLabel(action uint32) string {
	return strconv.FormatUint(uint64(action), 10)
}

func eventLabel(evt dispatch.Event) string {
	switch evt.(type) {
	case events.Connected:
		return "connected"
	case events.Disconnected:
		return "disconnected"
	case events.Popularity:
		return "popularity"
	case events.RawData:
		return "raw_data"
	default:
		return "unknown"
	}
}
