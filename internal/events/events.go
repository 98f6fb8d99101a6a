// Package events announces saved reports to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/ppiankov/claimlens/internal/model"
)

// EventReportSaved is the type field of a ReportSaved event
const EventReportSaved = "report.saved"

// Publisher announces domain events
type Publisher interface {
	ReportSaved(ctx context.Context, id string, report model.Report) error
	Close() error
}

// ReportSavedEvent is the JSON value written to the topic
type ReportSavedEvent struct {
	Type       string          `json:"type"`
	ReportID   string          `json:"reportId"`
	Video      model.Video     `json:"video"`
	Consensus  model.Consensus `json:"consensus"`
	Claims     int             `json:"claims"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) ReportSaved(context.Context, string, model.Report) error { return nil }
func (NopPublisher) Close() error                                            { return nil }

// KafkaPublisher writes events with a synchronous producer keyed by video id
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	now      func() time.Time
}

// NewKafkaPublisher connects a sync producer to brokers
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.ClientID = "claimlens"
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	slog.Info("[Events] Kafka producer connected", "brokers", brokers, "topic", topic)
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, now: time.Now}
}

// ReportSaved publishes one event for the saved report
func (p *KafkaPublisher) ReportSaved(ctx context.Context, id string, report model.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(ReportSavedEvent{
		Type:       EventReportSaved,
		ReportID:   id,
		Video:      report.Video,
		Consensus:  report.Consensus,
		Claims:     len(report.Claims),
		OccurredAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(report.Video.ID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(EventReportSaved)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", EventReportSaved, err)
	}

	slog.Debug("[Events] published", "type", EventReportSaved, "report", id, "partition", partition, "offset", offset)
	return nil
}

// Close flushes and closes the producer
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// New returns a Kafka publisher when brokers are configured, otherwise a no-op
func New(cfg model.EventsConfig) (Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return NopPublisher{}, nil
	}
	return NewKafkaPublisher(cfg.Brokers, cfg.Topic)
}
