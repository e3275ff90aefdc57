package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-sandwich-lab/internal/domain"
	"solana-sandwich-lab/internal/storage"
)

// TradeEventStore implements storage.TradeEventStore using PostgreSQL.
type TradeEventStore struct {
	pool *Pool
}

// NewTradeEventStore creates a new TradeEventStore.
func NewTradeEventStore(pool *Pool) *TradeEventStore {
	return &TradeEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeEventStore = (*TradeEventStore)(nil)

const insertTradeEventQuery = `
	INSERT INTO trade_events (
		signature, signer, timestamp_ms, slot, venue, validator, from_token, to_token
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

const selectTradeEventColumns = `
	SELECT signature, signer, timestamp_ms, slot, venue, validator, from_token, to_token
	FROM trade_events
`

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *TradeEventStore) InsertBulk(ctx context.Context, events []*domain.TradeEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e == nil || e.Signer == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		_, err := tx.Exec(ctx, insertTradeEventQuery,
			e.Signature,
			e.Signer,
			e.TimestampMs,
			e.Slot,
			e.Venue,
			e.Validator,
			e.FromToken,
			e.ToToken,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetAll retrieves every event ordered by timestamp_ms ASC, slot ASC.
func (s *TradeEventStore) GetAll(ctx context.Context) ([]*domain.TradeEvent, error) {
	query := selectTradeEventColumns + `
		ORDER BY timestamp_ms ASC, slot ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all trade events: %w", err)
	}
	defer rows.Close()

	return scanTradeEvents(rows)
}

// GetByTimeRange retrieves events within [start, end] (inclusive).
func (s *TradeEventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TradeEvent, error) {
	query := selectTradeEventColumns + `
		WHERE timestamp_ms >= $1 AND timestamp_ms <= $2
		ORDER BY timestamp_ms ASC, slot ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get trade events by time range: %w", err)
	}
	defer rows.Close()

	return scanTradeEvents(rows)
}

// Count returns the number of stored events.
func (s *TradeEventStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trade_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count trade events: %w", err)
	}
	return int(n), nil
}

// scanTradeEvents scans multiple rows into a slice of TradeEvent.
func scanTradeEvents(rows pgx.Rows) ([]*domain.TradeEvent, error) {
	events := []*domain.TradeEvent{}

	for rows.Next() {
		var e domain.TradeEvent

		err := rows.Scan(
			&e.Signature,
			&e.Signer,
			&e.TimestampMs,
			&e.Slot,
			&e.Venue,
			&e.Validator,
			&e.FromToken,
			&e.ToToken,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade event row: %w", err)
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade event rows: %w", err)
	}

	return events, nil
}
