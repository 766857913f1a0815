package kafka

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/fathima-sithara/context-chat-service/internal/models"
)

// Producer exports stored messages to the event stream so downstream
// consumers (notification fan-out, archival) see every persisted message.
// Export is best-effort; the originating write never depends on it.
type Producer struct {
	writer *kafkago.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
	}
	return &Producer{writer: w}
}

func (p *Producer) PublishMessageCreated(ctx context.Context, m *models.ChatMessage) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	// key by group so one group's messages land on one partition in order
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(m.ChatGroupID.Hex()),
		Value: b,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
