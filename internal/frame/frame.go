// Package frame implements the 16-byte header framing used by the live-room
// message protocol: PacketLength/HeaderLength/ProtocolVersion/Action/Parameter
// followed by an optional body.
package frame

import (
	"encoding/binary"
	"errors"
)

const (
	// HeaderSize is the fixed size of a frame header in bytes.
	HeaderSize = 16

	// MaxBodyLen is the largest body accepted by the receive loop.
	MaxBodyLen = 65535

	headerLengthMagic = 16
	writeParameter    = 1
)

// Protocol versions carried in the header.
const (
	VersionPlain    uint16 = 0 // plain JSON body
	VersionPopular  uint16 = 1 // header-only popularity push
	VersionDeflate  uint16 = 2 // deflate-wrapped sub-frames
	VersionBrotli   uint16 = 3 // brotli-wrapped sub-frames (recognized, not decoded)
)

// Action codes used on the wire.
const (
	ActionHeartbeat  uint32 = 2
	ActionPopularity uint32 = 3
	ActionMessage    uint32 = 5
	ActionJoinRoom   uint32 = 7
	ActionConnectAck uint32 = 8
)

// ErrBadHeader is returned when a decoded header fails the header-length
// magic check.
var ErrBadHeader = errors.New("frame: header_length field is not 16")

// Header is the decoded 16-byte frame header.
type Header struct {
	PacketLength    uint32
	HeaderLength    uint16
	ProtocolVersion uint16
	Action          uint32
	Parameter       uint32
}

// BodyLength returns packet_length - header size. Callers must not call this
// before validating PacketLength >= HeaderSize.
func (h Header) BodyLength() int {
	return int(h.PacketLength) - HeaderSize
}

// HeartbeatFrame is the fixed 16-byte literal sent on every heartbeat tick:
// packet_length=16, header_length=16, protocol_version=2, action=2,
// parameter=1, no body. EncodeControl(ActionHeartbeat) reproduces it byte
// for byte; it is also kept as a literal so the hot heartbeat path never
// pays an allocation.
var HeartbeatFrame = []byte{
	0x00, 0x00, 0x00, 0x10,
	0x00, 0x10,
	0x00, 0x02,
	0x00, 0x00, 0x00, 0x02,
	0x00, 0x00, 0x00, 0x01,
}

// defaultOutgoingVersion is the protocol_version written into control and
// join frames this client emits. Heartbeat is the one outgoing frame with a
// different literal value (2); everything else uses 1.
const defaultOutgoingVersion uint16 = 1

// EncodeControl builds an empty-body frame for the given action.
func EncodeControl(action uint32) []byte {
	if action == ActionHeartbeat {
		out := make([]byte, len(HeartbeatFrame))
		copy(out, HeartbeatFrame)
		return out
	}
	return EncodeWithBody(action, nil)
}

// EncodeWithBody builds a single contiguous header+body buffer: one
// allocation, one send call at the transport seam.
func EncodeWithBody(action uint32, body []byte) []byte {
	return EncodeWithBodyVersion(action, defaultOutgoingVersion, body)
}

// EncodeWithBodyVersion is EncodeWithBody but with an explicit protocol
// version field, for callers emitting compressed frames.
func EncodeWithBodyVersion(action uint32, version uint16, body []byte) []byte {
	total := HeaderSize + len(body)
	buf := make([]byte, total)

	binary.BigEndian.PutUint32(buf[0:4], uint32(total))
	binary.BigEndian.PutUint16(buf[4:6], headerLengthMagic)
	binary.BigEndian.PutUint16(buf[6:8], version)
	binary.BigEndian.PutUint32(buf[8:12], action)
	binary.BigEndian.PutUint32(buf[12:16], writeParameter)

	if len(body) > 0 {
		copy(buf[HeaderSize:], body)
	}
	return buf
}

// DecodeHeader reads a 16-byte big-endian header. buf must be exactly
// HeaderSize bytes.
func DecodeHeader(buf []byte) (Header, error) {
	h := Header{
		PacketLength:    binary.BigEndian.Uint32(buf[0:4]),
		HeaderLength:    binary.BigEndian.Uint16(buf[4:6]),
		ProtocolVersion: binary.BigEndian.Uint16(buf[6:8]),
		Action:          binary.BigEndian.Uint32(buf[8:12]),
		Parameter:       binary.BigEndian.Uint32(buf[12:16]),
	}
	if h.HeaderLength != headerLengthMagic {
		return Header{}, ErrBadHeader
	}
	return h, nil
}
