package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"backend-recordpath/internal/tracking"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Message is the payload announced for every finalized journey.
type Message struct {
	DeviceID string           `json:"device_id"`
	Reason   string           `json:"reason"`
	Summary  tracking.Summary `json:"summary"`
}

// Publisher announces finalized journeys on a kafka topic keyed by journey
// ID, so every update for a journey lands on the same partition.
type Publisher struct {
	writer MessageWriter
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}}
}

func NewPublisherWithWriter(w MessageWriter) *Publisher {
	return &Publisher{writer: w}
}

func (p *Publisher) Archive(ctx context.Context, rec Record) error {
	value, err := json.Marshal(Message{
		DeviceID: rec.DeviceID,
		Reason:   rec.Reason,
		Summary:  rec.Journey.Summary(),
	})
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(rec.Journey.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte("journey_finalized")},
			{Key: "device_id", Value: []byte(rec.DeviceID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish journey %s: %w", rec.Journey.ID, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
