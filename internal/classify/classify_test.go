package classify

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/liveproto/danmaku-client/internal/events"
	"github.com/liveproto/danmaku-client/internal/frame"
)

type recordingSink struct {
	popularity []events.Popularity
	raw        []events.RawData
}

func (s *recordingSink) Popularity(e events.Popularity) { s.popularity = append(s.popularity, e) }
func (s *recordingSink) Raw(e events.RawData)            { s.raw = append(s.raw, e) }

func TestClassifyPopularity(t *testing.T) {
	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, 2000)

	h := frame.Header{Action: frame.ActionPopularity, PacketLength: 20, HeaderLength: 16}
	sink := &recordingSink{}

	if err := Classify(h, body, time.Now(), sink); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(sink.popularity) != 1 || sink.popularity[0].Value != 2000 {
		t.Fatalf("popularity = %+v, want value 2000", sink.popularity)
	}
}

func TestClassifyPlainMessage(t *testing.T) {
	body := []byte(`{"cmd":"DANMU_MSG","info":[]}`)
	h := frame.Header{Action: frame.ActionMessage, ProtocolVersion: frame.VersionPlain}
	sink := &recordingSink{}

	if err := Classify(h, body, time.Now(), sink); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(sink.raw) != 1 || string(sink.raw[0].JSON) != string(body) {
		t.Fatalf("raw = %+v, want %s", sink.raw, body)
	}
}

func TestClassifyMalformedPopularityIsSwallowable(t *testing.T) {
	h := frame.Header{Action: frame.ActionPopularity}
	sink := &recordingSink{}

	err := Classify(h, []byte{0x01}, time.Now(), sink)
	if err != ErrDecode {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
	if len(sink.popularity) != 0 {
		t.Fatalf("no event should have been emitted, got %+v", sink.popularity)
	}
}

func TestClassifyMalformedJSONMessageIsSwallowable(t *testing.T) {
	h := frame.Header{Action: frame.ActionMessage, ProtocolVersion: frame.VersionPlain}
	sink := &recordingSink{}

	err := Classify(h, []byte(`{"cmd":`), time.Now(), sink)
	if err != ErrDecode {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
	if len(sink.raw) != 0 {
		t.Fatalf("no event should have been emitted, got %+v", sink.raw)
	}
}

func TestClassifyDeflatedSubFrames(t *testing.T) {
	inner1 := frame.EncodeWithBody(frame.ActionMessage, []byte(`{"a":1}`))
	inner2 := frame.EncodeWithBody(frame.ActionMessage, []byte(`{"b":2}`))
	var plain bytes.Buffer
	plain.Write(inner1)
	plain.Write(inner2)

	var compressed bytes.Buffer
	zw, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := zw.Write(plain.Bytes()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	h := frame.Header{Action: frame.ActionMessage, ProtocolVersion: frame.VersionDeflate}
	sink := &recordingSink{}

	if err := Classify(h, compressed.Bytes(), time.Now(), sink); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(sink.raw) != 2 {
		t.Fatalf("raw events = %d, want 2", len(sink.raw))
	}
	if string(sink.raw[0].JSON) != `{"a":1}` || string(sink.raw[1].JSON) != `{"b":2}` {
		t.Fatalf("raw = %+v", sink.raw)
	}
}

func TestClassifyBrotliRecognizedButUnsupported(t *testing.T) {
	h := frame.Header{Action: frame.ActionMessage, ProtocolVersion: frame.VersionBrotli}
	sink := &recordingSink{}

	err := Classify(h, []byte("whatever"), time.Now(), sink)
	if err != ErrBrotliUnsupported {
		t.Fatalf("err = %v, want ErrBrotliUnsupported", err)
	}
}

func TestClassifyUnknownActionDropped(t *testing.T) {
	h := frame.Header{Action: 999}
	sink := &recordingSink{}

	if err := Classify(h, []byte("anything"), time.Now(), sink); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(sink.raw) != 0 || len(sink.popularity) != 0 {
		t.Fatalf("expected no events for unknown action, got raw=%v popularity=%v", sink.raw, sink.popularity)
	}
}
