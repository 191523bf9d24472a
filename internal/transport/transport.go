// Package transport abstracts the byte-level send/receive operations the
// connection core needs, independent of whether the underlying medium is a
// raw TCP socket or a WebSocket binary-message stream.
package transport

import (
	"context"
	"errors"
)

// Sentinel errors returned by Transport implementations.
var (
	ErrClosed    = errors.New("transport: closed")
	ErrCancelled = errors.New("transport: cancelled")
)

// IOError wraps an underlying I/O failure so callers can distinguish it
// from ErrClosed/ErrCancelled without string matching.
type IOError struct {
	Cause error
}

func (e *IOError) Error() string { return "transport: io error: " + e.Cause.Error() }
func (e *IOError) Unwrap() error { return e.Cause }

// Transport is the contract the connection core relies on: Send writes buf
// in full or fails, ReceiveExact fills buf in full or fails. Both honor
// ctx cancellation at every suspension point. Implementations must not
// return partial writes/reads as success.
type Transport interface {
	// Send writes buf in full.
	Send(ctx context.Context, buf []byte) error
	// ReceiveExact fills buf completely or fails.
	ReceiveExact(ctx context.Context, buf []byte) error
	// Close tears down the underlying medium. Idempotent.
	Close() error
}

// Dialer opens a Transport to a resolved endpoint. Each transport variant
// (TCP, WebSocket) supplies one.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Transport, error)
}
