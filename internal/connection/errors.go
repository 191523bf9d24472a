package connection

import "errors"

// Error kinds from spec.md §7 that originate in the connection core itself
// (as opposed to the transport, serverinfo, or classify packages, which
// define their own sentinels that connect/disconnect surface unchanged).
var (
	ErrInvalidState     = errors.New("connection: invalid state for this operation")
	ErrDisposed         = errors.New("connection: disposed")
	ErrFrameTooLarge    = errors.New("connection: frame body exceeds 65535 bytes")
	ErrHeartbeatOverrun = errors.New("connection: heartbeat send exceeded the heartbeat interval")
	ErrHandshakeTimeout = errors.New("connection: connect-ack not received within handshake timeout")
	ErrCancelled        = errors.New("connection: cancelled")
	ErrBadFrameHeader   = errors.New("connection: malformed frame header")
)
