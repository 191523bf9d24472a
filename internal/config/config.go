// Package config holds connection configuration: room id, heartbeat
// cadence, protocol version, and the ambient knobs (logging, metrics,
// handshake deadline) layered on top for a complete client.
package config

import (
	"errors"
	"time"
)

// ErrInvalidHeartbeatInterval is returned by Validate when HeartbeatInterval
// is not strictly positive.
var ErrInvalidHeartbeatInterval = errors.New("config: heartbeat_interval must be > 0")

// ErrInvalidProtocolVersion is returned by Validate when ProtocolVersion is
// outside the 0–3 range this client recognizes.
var ErrInvalidProtocolVersion = errors.New("config: protocol_version must be in 0..3")

const defaultHeartbeatInterval = 30 * time.Second

// Options holds C7's configuration surface plus the handshake-deadline
// extension recorded as an Open Question resolution in DESIGN.md.
type Options struct {
	RoomID            int64
	UID               int64 // 0 is a valid anonymous viewer id
	HeartbeatInterval time.Duration
	ProtocolVersion   uint16

	// HandshakeTimeout bounds how long connect waits for connect-ack.
	// Zero (the default) means wait indefinitely, matching spec.md's
	// unprescribed default.
	HandshakeTimeout time.Duration
}

// Option mutates Options during construction.
type Option func(*Options)

// WithRoomID sets the target room id.
func WithRoomID(roomID int64) Option {
	return func(o *Options) { o.RoomID = roomID }
}

// WithUID sets the viewer uid sent in the join frame. 0 (the default)
// joins anonymously.
func WithUID(uid int64) Option {
	return func(o *Options) { o.UID = uid }
}

// WithHeartbeatInterval sets the heartbeat cadence.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(o *Options) { o.HeartbeatInterval = d }
}

// WithProtocolVersion sets the protocol version advertised in the join
// frame's JSON payload.
func WithProtocolVersion(v uint16) Option {
	return func(o *Options) { o.ProtocolVersion = v }
}

// WithHandshakeTimeout bounds the connect-ack wait. Pass 0 (the default) to
// wait indefinitely.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *Options) { o.HandshakeTimeout = d }
}

// New builds Options from defaults plus the given Option overrides.
func New(opts ...Option) Options {
	o := Options{
		HeartbeatInterval: defaultHeartbeatInterval,
		ProtocolVersion:   2,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Validate checks the invariants spec.md §4.7 requires.
func (o Options) Validate() error {
	if o.HeartbeatInterval <= 0 {
		return ErrInvalidHeartbeatInterval
	}
	if o.ProtocolVersion > 3 {
		return ErrInvalidProtocolVersion
	}
	return nil
}
