package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-alert-delays/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer the notifier uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// OrderNotice is the message value published for each matched order.
type OrderNotice struct {
	domain.MatchedOrder
	Report      string    `json:"report"`
	ReportPath  string    `json:"report_path"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Notifier publishes one message per matched order to a Kafka topic.
// It implements pipeline.Notifier.
type Notifier struct {
	writer messageWriter
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the notification topic.
func NewNotifier(brokers []string, topic string, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Notifier{writer: w, logger: logger}
}

// Name identifies the channel in logs and metrics.
func (n *Notifier) Name() string { return "kafka" }

// Notify publishes every matched order of the delivery in a single
// WriteMessages call. Orders hash by job id so a job's notices stay on one
// partition across runs.
func (n *Notifier) Notify(ctx context.Context, d domain.Delivery) error {
	if len(d.Matched) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(d.Matched))
	for i := range d.Matched {
		msg, err := serializeToMessage(d, d.Matched[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := n.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish order notices: %w", err)
	}
	n.logger.Debug("order notices published", "count", len(msgs))
	return nil
}

// Close flushes pending messages and closes the underlying Kafka writer.
func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals a matched order into a Kafka message.
func serializeToMessage(d domain.Delivery, m domain.MatchedOrder) (kafkago.Message, error) {
	data, err := json.Marshal(OrderNotice{
		MatchedOrder: m,
		Report:       d.Report.Name,
		ReportPath:   d.Path,
		GeneratedAt:  d.Report.GeneratedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize order notice: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(m.JobID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "client", Value: []byte(m.Client)},
			{Key: "alert_title", Value: []byte(m.Alert.Title)},
			{Key: "report", Value: []byte(d.Report.Name)},
		},
	}, nil
}
