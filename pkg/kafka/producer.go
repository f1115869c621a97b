package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/parklink/pkg/metrics"
	"github.com/Ramsey-B/parklink/pkg/tracing"
)

// MessageWriter is the subset of kafka.Writer the producer needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles Kafka event emission
type Producer struct {
	writer MessageWriter
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return NewProducerWithWriter(writer, cfg.Topic, logger)
}

// NewProducerWithWriter creates a producer on top of an existing writer
func NewProducerWithWriter(writer MessageWriter, topic string, logger ectologger.Logger) *Producer {
	return &Producer{
		writer: writer,
		logger: logger,
		topic:  topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// LinkEvent describes a link between a federal park and a wikidata park
type LinkEvent struct {
	EventType          string    `json:"event_type"` // park.linked
	RunID              string    `json:"run_id,omitempty"`
	FederalParkID      string    `json:"federal_park_id"`
	WikidataParkID     string    `json:"wikidata_park_id"`
	WikidataExternalID string    `json:"wikidata_external_id"`
	ConfidenceScore    float64   `json:"confidence_score"`
	NameSimilarity     float64   `json:"name_similarity"`
	LocationSimilarity float64   `json:"location_similarity"`
	MatchMethod        string    `json:"match_method"`
	Timestamp          time.Time `json:"timestamp"`
}

// RunEvent describes the end of a link run
type RunEvent struct {
	EventType     string          `json:"event_type"` // link_run.completed, link_run.failed
	RunID         string          `json:"run_id"`
	Status        string          `json:"status"`
	FederalCount  int             `json:"federal_count"`
	WikidataCount int             `json:"wikidata_count"`
	LinkedCount   int             `json:"linked_count"`
	Error         string          `json:"error,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// PublishLinkEvents publishes one message per link, keyed by federal park id
func (p *Producer) PublishLinkEvents(ctx context.Context, events []*LinkEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishLinkEvents")
	defer span.End()

	if len(events) == 0 {
		return nil
	}

	now := time.Now().UTC()
	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		if event.Timestamp.IsZero() {
			event.Timestamp = now
		}

		data, err := json.Marshal(event)
		if err != nil {
			return errors.Wrap(err, "failed to encode link event")
		}

		msgs = append(msgs, kafka.Message{
			Topic: p.topic,
			Key:   []byte(event.FederalParkID),
			Value: data,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
				{Key: "run_id", Value: []byte(event.RunID)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		metrics.RecordKafkaPublish(p.topic, "error", len(msgs))
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"count": len(msgs)}).Error("Failed to publish link events")
		return errors.Wrap(err, "failed to publish link events")
	}
	metrics.RecordKafkaPublish(p.topic, "success", len(msgs))

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"count": len(msgs),
		"topic": p.topic,
	}).Debug("Published link events")

	return nil
}

// PublishRunEvent publishes a run event keyed by run id
func (p *Producer) PublishRunEvent(ctx context.Context, event *RunEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishRunEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to encode run event")
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.RunID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "run_id", Value: []byte(event.RunID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.RecordKafkaPublish(p.topic, "error", 1)
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish run event")
		return errors.Wrap(err, "failed to publish run event")
	}
	metrics.RecordKafkaPublish(p.topic, "success", 1)

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": event.EventType,
		"run_id":     event.RunID,
	}).Debug("Published run event")

	return nil
}
