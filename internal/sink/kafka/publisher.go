// Package kafka publishes decoded danmaku events to a Kafka topic. It is an
// optional downstream sink: the connection core never imports it, it only
// plugs into a dispatch.Invoker as an ordinary contravariant handler.
package kafka

import (
	"context"
	"encoding/binary"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/liveproto/danmaku-client/internal/dispatch"
	"github.com/liveproto/danmaku-client/internal/events"
	"github.com/liveproto/danmaku-client/internal/logging"
)

// Config selects the brokers and topic a Publisher writes to.
type Config struct {
	Brokers []string
	Topic   string
}

// Publisher forwards RawData and Popularity events onto a Kafka topic,
// keyed by room id so a consumer group can shard by room.
type Publisher struct {
	cfg    Config
	writer *kafkago.Writer
	roomID int64
}

// NewPublisher builds a Publisher for roomID using cfg's brokers/topic.
func NewPublisher(cfg Config, roomID int64) *Publisher {
	return &Publisher{
		cfg: cfg,
		writer: &kafkago.Writer{
			Addr:     kafkago.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafkago.Hash{},
		},
		roomID: roomID,
	}
}

// Handler adapts the Publisher into a dispatch.Handler that accepts every
// event, forwarding RawData and Popularity and ignoring everything else.
func (p *Publisher) Handler() dispatch.Handler {
	return dispatch.Any(func(ctx context.Context, evt dispatch.Event) error {
		switch e := evt.(type) {
		case events.RawData:
			return p.publish(ctx, e.JSON)
		case events.Popularity:
			value := make([]byte, 4)
			binary.BigEndian.PutUint32(value, e.Value)
			return p.publish(ctx, value)
		default:
			return nil
		}
	})
}

func (p *Publisher) publish(ctx context.Context, value []byte) error {
	key := []byte(strconv.FormatInt(p.roomID, 10))
	msg := kafkago.Message{Key: key, Value: value}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logging.Error("kafka publish failed",
			zap.Error(err),
			zap.String("topic", p.cfg.Topic),
			zap.Int64("room_id", p.roomID),
		)
		return err
	}
	return nil
}

// Close flushes and tears down the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
