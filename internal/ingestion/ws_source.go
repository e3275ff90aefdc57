package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"solana-sandwich-lab/internal/observability"
)

// WSSourceConfig configures trade feed connection behavior.
type WSSourceConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// MaxReconnects bounds consecutive failed dials; 0 means unlimited.
	MaxReconnects int
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// HandshakeTimeout bounds the websocket handshake.
	HandshakeTimeout time.Duration
}

// DefaultWSSourceConfig returns default feed configuration.
func DefaultWSSourceConfig() WSSourceConfig {
	return WSSourceConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		MaxReconnects:     5,
		ReadTimeout:       60 * time.Second,
		HandshakeTimeout:  10 * time.Second,
	}
}

// WSTradeSource collects trade events from a websocket feed that pushes one
// JSON trade object per message, using the same field names as JSONL input.
type WSTradeSource struct {
	endpoint string
	config   WSSourceConfig
	opts     LoadOptions
	log      zerolog.Logger
	metrics  *observability.Metrics
}

// WSOption configures WSTradeSource.
type WSOption func(*WSTradeSource)

// WithWSConfig overrides connection behavior.
func WithWSConfig(cfg WSSourceConfig) WSOption {
	return func(s *WSTradeSource) {
		s.config = cfg
	}
}

// WithWSLoadOptions sets kind filtering and address checks for feed messages.
func WithWSLoadOptions(opts LoadOptions) WSOption {
	return func(s *WSTradeSource) {
		s.opts = opts
	}
}

// WithWSLogger sets the logger.
func WithWSLogger(log zerolog.Logger) WSOption {
	return func(s *WSTradeSource) {
		s.log = log
	}
}

// WithWSMetrics counts feed messages.
func WithWSMetrics(m *observability.Metrics) WSOption {
	return func(s *WSTradeSource) {
		s.metrics = m
	}
}

// NewWSTradeSource creates a feed source for endpoint.
func NewWSTradeSource(endpoint string, opts ...WSOption) *WSTradeSource {
	s := &WSTradeSource{
		endpoint: endpoint,
		config:   DefaultWSSourceConfig(),
		opts:     DefaultLoadOptions(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collect reads trades until ctx is done or max events were collected
// (max <= 0 means no limit). Context expiry ends collection normally; the
// returned dataset is time-ordered. Dropped connections are re-dialed with
// exponential backoff.
func (s *WSTradeSource) Collect(ctx context.Context, max int) (*Dataset, error) {
	ds := &Dataset{Report: newLoadReport()}

	delay := s.config.ReconnectDelay
	failures := 0

	for ctx.Err() == nil {
		conn, err := s.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			failures++
			if s.config.MaxReconnects > 0 && failures > s.config.MaxReconnects {
				return nil, fmt.Errorf("trade feed: giving up after %d attempts: %w", failures, err)
			}
			s.log.Warn().Err(err).Int("attempt", failures).Dur("retry_in", delay).Msg("trade feed dial failed")

			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
			// Exponential backoff
			delay *= 2
			if delay > s.config.MaxReconnectDelay {
				delay = s.config.MaxReconnectDelay
			}
			continue
		}

		// Reset backoff on successful connect
		failures = 0
		delay = s.config.ReconnectDelay

		done, err := s.read(ctx, conn, ds, max)
		conn.Close()
		if done {
			break
		}
		s.log.Warn().Err(err).Int("collected", len(ds.Events)).Msg("trade feed disconnected, reconnecting")
	}

	finish(ds)
	ds.Capabilities = DetectCapabilities(ds.Events)
	s.log.Info().
		Int("events", ds.Report.Loaded).
		Int("skipped", ds.Report.Skipped).
		Int("filtered", ds.Report.Filtered).
		Msg("trade feed collection finished")
	return ds, nil
}

func (s *WSTradeSource) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: s.config.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// read consumes messages until the connection fails (false) or collection is complete (true).
func (s *WSTradeSource) read(ctx context.Context, conn *websocket.Conn, ds *Dataset, max int) (bool, error) {
	// Unblock ReadMessage when ctx ends
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		if s.config.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			return false, err
		}

		ds.Report.TotalRows++
		before := len(ds.Events)
		s.handleMessage(message, ds)
		s.metrics.RecordFeedMessage(len(ds.Events) > before)

		if max > 0 && len(ds.Events) >= max {
			return true, nil
		}
	}
}

// handleMessage decodes one feed message into ds.
func (s *WSTradeSource) handleMessage(message []byte, ds *Dataset) {
	fields, err := decodeJSONRecord(message)
	if err != nil {
		ds.Report.skip(SkipMalformedRow)
		return
	}
	if err := checkSchema("feed", fieldSet(fields)); err != nil {
		var schemaErr *SchemaError
		reason := SkipMalformedRow
		if errors.As(err, &schemaErr) {
			reason = "missing_" + schemaErr.Field
		}
		ds.Report.skip(reason)
		return
	}
	ds.add(fields, s.opts)
}

func fieldSet(fields map[string]string) map[string]int {
	cols := make(map[string]int, len(fields))
	for name := range fields {
		cols[name] = 0
	}
	return cols
}
