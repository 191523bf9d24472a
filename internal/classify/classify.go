// Package classify maps decoded frames to semantic events: popularity
// pushes, raw JSON messages (optionally deflate-wrapped sub-frames), and
// connect-ack (handled upstream by the connection core, not here).
package classify

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/liveproto/danmaku-client/internal/events"
	"github.com/liveproto/danmaku-client/internal/frame"
)

// ErrDecode is returned for any malformed body. Per spec §4.5/§7, callers
// must swallow this per-frame rather than terminating the receive loop.
var ErrDecode = errors.New("classify: malformed frame body")

// ErrBrotliUnsupported is returned for protocol_version 3 bodies: the
// wrapper is recognized (wire-compatible) but not decompressed, since no
// brotli library is available in this module's dependency set.
var ErrBrotliUnsupported = errors.New("classify: brotli (protocol_version 3) decoding not supported")

// Sink receives events produced while classifying one frame (and, for
// compressed bodies, its recursively split sub-frames).
type Sink interface {
	Popularity(events.Popularity)
	Raw(events.RawData)
}

// Classify inspects one decoded frame and feeds sink with zero or more
// events. now is the single wall-clock read for this frame (and everything
// recursively split out of it), so nested sub-frames from one compressed
// body share one timestamp.
func Classify(h frame.Header, body []byte, now time.Time, sink Sink) error {
	switch h.Action {
	case frame.ActionPopularity:
		return classifyPopularity(body, now, sink)
	case frame.ActionMessage:
		return classifyMessage(h, body, now, sink)
	case frame.ActionConnectAck:
		return nil // handled by the connection core before reaching here
	default:
		return nil // unknown action codes are dropped silently
	}
}

func classifyPopularity(body []byte, now time.Time, sink Sink) error {
	if len(body) < 4 {
		return ErrDecode
	}
	value := binary.BigEndian.Uint32(body[:4])
	sink.Popularity(events.Popularity{Value: value, Time: now})
	return nil
}

func classifyMessage(h frame.Header, body []byte, now time.Time, sink Sink) error {
	switch h.ProtocolVersion {
	case frame.VersionPlain, frame.VersionPopular:
		if !json.Valid(body) {
			return ErrDecode
		}
		sink.Raw(events.RawData{JSON: body, Time: now})
		return nil
	case frame.VersionDeflate:
		return classifyDeflated(body, now, sink)
	case frame.VersionBrotli:
		return ErrBrotliUnsupported
	default:
		return ErrDecode
	}
}

// classifyDeflated decompresses a deflate-wrapped body into concatenated
// sub-frames, each with its own 16-byte header, and classifies them
// recursively.
func classifyDeflated(body []byte, now time.Time, sink Sink) error {
	zr := flate.NewReader(bytes.NewReader(body))
	defer zr.Close()

	decompressed, err := io.ReadAll(zr)
	if err != nil {
		return ErrDecode
	}

	offset := 0
	for offset+frame.HeaderSize <= len(decompressed) {
		h, err := frame.DecodeHeader(decompressed[offset : offset+frame.HeaderSize])
		if err != nil {
			return ErrDecode
		}
		bodyLen := h.BodyLength()
		if bodyLen < 0 || offset+frame.HeaderSize+bodyLen > len(decompressed) {
			return ErrDecode
		}
		subBody := decompressed[offset+frame.HeaderSize : offset+frame.HeaderSize+bodyLen]

		if err := Classify(h, subBody, now, sink); err != nil {
			return err
		}

		offset += frame.HeaderSize + bodyLen
	}
	return nil
}
