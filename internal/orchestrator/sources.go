package orchestrator

import (
	"context"
	"fmt"
	"time"

	"solana-sandwich-lab/internal/domain"
	"solana-sandwich-lab/internal/ingestion"
	"solana-sandwich-lab/internal/observability"
	"solana-sandwich-lab/internal/storage"
)

// EventSource produces the closed event set for one run.
type EventSource interface {
	// Name labels the source in logs and metrics.
	Name() string
	Load(ctx context.Context) (*ingestion.Dataset, error)
}

// FileSource reads a CSV or JSONL file.
type FileSource struct {
	Path    string
	Options ingestion.LoadOptions
}

// Name implements EventSource.
func (s *FileSource) Name() string { return "file" }

// Load implements EventSource.
func (s *FileSource) Load(ctx context.Context) (*ingestion.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ingestion.LoadFile(s.Path, s.Options)
}

// StoreSource reads events from a TradeEventStore.
// A zero range loads every event; otherwise [StartMs, EndMs] inclusive.
type StoreSource struct {
	Store    storage.TradeEventStore
	Database string // metrics label
	StartMs  int64
	EndMs    int64
	Metrics  *observability.Metrics
}

// Name implements EventSource.
func (s *StoreSource) Name() string { return "store" }

// Load implements EventSource.
func (s *StoreSource) Load(ctx context.Context) (*ingestion.Dataset, error) {
	start := time.Now()

	var (
		events []*domain.TradeEvent
		err    error
		op     string
	)
	if s.StartMs == 0 && s.EndMs == 0 {
		op = "get_all_trade_events"
		events, err = s.Store.GetAll(ctx)
	} else {
		op = "get_trade_events_by_range"
		events, err = s.Store.GetByTimeRange(ctx, s.StartMs, s.EndMs)
	}
	s.Metrics.RecordDBQuery(s.Database, op, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("load trade events: %w", err)
	}

	if ingestion.ValidateTradeEventOrdering(events) != nil {
		ingestion.SortTradeEvents(events)
	}

	return &ingestion.Dataset{
		Events:       events,
		Capabilities: ingestion.DetectCapabilities(events),
		Report: ingestion.LoadReport{
			TotalRows:   len(events),
			Loaded:      len(events),
			SkipReasons: map[string]int{},
		},
	}, nil
}

// FeedSource collects events from a live WebSocket feed for Duration, or
// until Max events arrive. Zero values mean no bound.
type FeedSource struct {
	Feed     *ingestion.WSTradeSource
	Duration time.Duration
	Max      int
}

// Name implements EventSource.
func (s *FeedSource) Name() string { return "ws" }

// Load implements EventSource.
func (s *FeedSource) Load(ctx context.Context) (*ingestion.Dataset, error) {
	collectCtx := ctx
	if s.Duration > 0 {
		var cancel context.CancelFunc
		collectCtx, cancel = context.WithTimeout(ctx, s.Duration)
		defer cancel()
	}

	ds, err := s.Feed.Collect(collectCtx, s.Max)
	if err != nil {
		return nil, err
	}
	// Collection ending is normal; the parent being cancelled is not.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ds, nil
}
