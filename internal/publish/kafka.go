// Package publish hands finished detections to downstream consumers.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"solana-sandwich-lab/internal/domain"
	"solana-sandwich-lab/internal/observability"
)

// DefaultTopic receives detections when no topic is configured.
const DefaultTopic = "sandwich-detections"

// ErrNoBrokers is returned when the publisher has nowhere to connect.
var ErrNoBrokers = errors.New("kafka brokers are required")

// Publisher sends a run's detections somewhere.
type Publisher interface {
	PublishDetections(ctx context.Context, runID string, detections []*domain.SandwichDetection) error
	Close() error
}

// Config configures the Kafka writer.
type Config struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	WriteTimeout time.Duration
}

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one JSON message per detection, keyed by detection_id.
type KafkaPublisher struct {
	writer  messageWriter
	topic   string
	log     zerolog.Logger
	metrics *observability.Metrics
}

// Option configures a KafkaPublisher.
type Option func(*KafkaPublisher)

// WithLogger sets the publisher logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *KafkaPublisher) { p.log = log }
}

// WithMetrics records published counts.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *KafkaPublisher) { p.metrics = m }
}

func withWriter(w messageWriter) Option {
	return func(p *KafkaPublisher) { p.writer = w }
}

// NewKafkaPublisher creates a synchronous, key-hashed Kafka publisher.
func NewKafkaPublisher(cfg Config, opts ...Option) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	p := &KafkaPublisher{
		topic: cfg.Topic,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.writer == nil {
		p.writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  3,
			BatchSize:    cfg.BatchSize,
			BatchTimeout: 100 * time.Millisecond,
			WriteTimeout: cfg.WriteTimeout,
		}
	}
	return p, nil
}

// detectionMessage is the wire form of a published detection.
type detectionMessage struct {
	RunID              string   `json:"run_id"`
	DetectionID        string   `json:"detection_id"`
	Venue              string   `json:"venue"`
	AttackerSigner     string   `json:"attacker_signer"`
	VictimSigners      []string `json:"victim_signers"`
	VictimCount        int      `json:"victim_count"`
	TotalTrades        int      `json:"total_trades"`
	AttackerTradeCount int      `json:"attacker_trade_count"`
	VictimRatio        float64  `json:"victim_ratio"`
	WindowSeconds      int      `json:"window_seconds"`
	StartMs            int64    `json:"start_ms"`
	EndMs              int64    `json:"end_ms"`
	ActualSpanMs       int64    `json:"actual_span_ms"`
	StartSlot          int64    `json:"start_slot"`
	EndSlot            int64    `json:"end_slot"`
	SlotSpan           int64    `json:"slot_span"`
	Validator          string   `json:"validator,omitempty"`
	ConfidenceLabel    string   `json:"confidence_label"`
	ConfidenceScore    int      `json:"confidence_score"`
	ConfidenceReasons  []string `json:"confidence_reasons"`
	TokenPairValidated bool     `json:"token_pair_validated"`
}

func toMessage(runID string, d *domain.SandwichDetection) detectionMessage {
	return detectionMessage{
		RunID:              runID,
		DetectionID:        d.DetectionID,
		Venue:              d.Venue,
		AttackerSigner:     d.AttackerSigner,
		VictimSigners:      nonNil(d.VictimSigners),
		VictimCount:        d.VictimCount,
		TotalTrades:        d.TotalTrades,
		AttackerTradeCount: d.AttackerTradeCount,
		VictimRatio:        d.VictimRatio,
		WindowSeconds:      d.WindowSeconds,
		StartMs:            d.StartMs,
		EndMs:              d.EndMs,
		ActualSpanMs:       d.ActualSpanMs,
		StartSlot:          d.StartSlot,
		EndSlot:            d.EndSlot,
		SlotSpan:           d.SlotSpan,
		Validator:          d.Validator,
		ConfidenceLabel:    d.ConfidenceLabel.String(),
		ConfidenceScore:    d.ConfidenceScore,
		ConfidenceReasons:  nonNil(d.ConfidenceReasons),
		TokenPairValidated: d.TokenPairValidated,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// PublishDetections writes all detections of a run in one batch.
// An empty slice is a no-op.
func (p *KafkaPublisher) PublishDetections(ctx context.Context, runID string, detections []*domain.SandwichDetection) error {
	if len(detections) == 0 {
		return nil
	}
	if runID == "" {
		return fmt.Errorf("publish detections: empty run id")
	}

	msgs := make([]kafka.Message, 0, len(detections))
	now := time.Now()
	for _, d := range detections {
		value, err := json.Marshal(toMessage(runID, d))
		if err != nil {
			return fmt.Errorf("marshal detection %s: %w", d.DetectionID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(d.DetectionID),
			Value: value,
			Time:  now,
			Headers: []kafka.Header{
				{Key: "content-type", Value: []byte("application/json")},
				{Key: "run_id", Value: []byte(runID)},
			},
		})
	}

	err := p.writer.WriteMessages(ctx, msgs...)
	p.metrics.RecordPublished(len(msgs), err)
	if err != nil {
		return fmt.Errorf("write %d messages to %s: %w", len(msgs), p.topic, err)
	}

	p.log.Info().
		Str("run_id", runID).
		Str("topic", p.topic).
		Int("count", len(msgs)).
		Msg("detections published")
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ Publisher = (*KafkaPublisher)(nil)
