package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/anonto42/threadline/backend/internal/models"
)

// MessageWriter is the subset of *kafka.Writer used here
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is the wire form of a notification on the topic
type Event struct {
	Type          string    `json:"type"`
	RecipientID   string    `json:"recipient_id"`
	TriggeredByID string    `json:"triggered_by_id"`
	PostID        *string   `json:"post_id,omitempty"`
	CommentID     *string   `json:"comment_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// KafkaSink publishes notifications keyed by recipient so one recipient's
// events stay ordered within a partition
type KafkaSink struct {
	writer MessageWriter
}

// flushInterval bounds how long a synchronous write waits for its batch
const flushInterval = 5 * time.Millisecond

// NewKafkaWriter builds a synchronous writer that flushes each toggle's
// event almost immediately instead of waiting for a full batch
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: flushInterval,
		Async:        false,
	}
}

func NewKafkaSink(w MessageWriter) *KafkaSink {
	return &KafkaSink{writer: w}
}

func (s *KafkaSink) Emit(ctx context.Context, n models.Notification) error {
	occurred := n.CreatedAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	value, err := json.Marshal(Event{
		Type:          n.Type,
		RecipientID:   n.RecipientID,
		TriggeredByID: n.TriggeredByID,
		PostID:        n.PostID,
		CommentID:     n.CommentID,
		OccurredAt:    occurred,
	})
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(n.RecipientID), Value: value})
}

func (s *KafkaSink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
