package storage

import (
	"context"

	"solana-sandwich-lab/internal/domain"
)

// TradeEventStore provides access to trade_events storage (detector input).
type TradeEventStore interface {
	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate
	// (signature, signer, venue, slot, timestamp_ms).
	InsertBulk(ctx context.Context, events []*domain.TradeEvent) error

	// GetAll retrieves every event, ordered by timestamp_ms ASC, slot ASC.
	GetAll(ctx context.Context) ([]*domain.TradeEvent, error)

	// GetByTimeRange retrieves events within [start, end] (inclusive), same ordering.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TradeEvent, error)

	// Count returns the number of stored events.
	Count(ctx context.Context) (int, error)
}

// DetectionStore provides access to sandwich_detections storage (detector output).
type DetectionStore interface {
	// InsertBulk adds a run's detections atomically. Fails entire batch on
	// duplicate (run_id, detection_id). Returns ErrInvalidInput if runID is empty.
	InsertBulk(ctx context.Context, runID string, detections []*domain.SandwichDetection) error

	// GetByRunID retrieves a run's detections ordered by start_ms ASC, detection_id ASC.
	// Returns an empty slice for unknown runs.
	GetByRunID(ctx context.Context, runID string) ([]*domain.SandwichDetection, error)

	// GetByAttacker retrieves all detections for an attacker across runs,
	// ordered by start_ms ASC, detection_id ASC.
	GetByAttacker(ctx context.Context, attacker string) ([]*domain.SandwichDetection, error)
}
