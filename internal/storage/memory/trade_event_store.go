package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"solana-sandwich-lab/internal/domain"
	"solana-sandwich-lab/internal/storage"
)

// TradeEventStore is an in-memory implementation of storage.TradeEventStore.
type TradeEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeEvent // keyed by composite key
}

// NewTradeEventStore creates a new in-memory trade event store.
func NewTradeEventStore() *TradeEventStore {
	return &TradeEventStore{
		data: make(map[string]*domain.TradeEvent),
	}
}

// tradeEventKey generates a unique key for a trade event.
func tradeEventKey(e *domain.TradeEvent) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d", e.Signature, e.Signer, e.Venue, e.Slot, e.TimestampMs)
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *TradeEventStore) InsertBulk(_ context.Context, events []*domain.TradeEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(events))

	// First pass: check for duplicates (existing + intra-batch)
	for _, e := range events {
		if e == nil || e.Signer == "" {
			return storage.ErrInvalidInput
		}
		key := tradeEventKey(e)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, e := range events {
		copy := *e
		s.data[tradeEventKey(e)] = &copy
	}

	return nil
}

// GetAll retrieves every event ordered by (timestamp_ms, slot).
func (s *TradeEventStore) GetAll(_ context.Context) ([]*domain.TradeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TradeEvent, 0, len(s.data))
	for _, e := range s.data {
		copy := *e
		result = append(result, &copy)
	}

	sortTradeEvents(result)
	return result, nil
}

// GetByTimeRange retrieves events within [start, end] (inclusive).
func (s *TradeEventStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.TradeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeEvent
	for _, e := range s.data {
		if e.TimestampMs >= start && e.TimestampMs <= end {
			copy := *e
			result = append(result, &copy)
		}
	}

	sortTradeEvents(result)
	return result, nil
}

// Count returns the number of stored events.
func (s *TradeEventStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

// sortTradeEvents orders by timestamp, slot, then key so map iteration order never leaks.
func sortTradeEvents(events []*domain.TradeEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].TimestampMs != events[j].TimestampMs {
			return events[i].TimestampMs < events[j].TimestampMs
		}
		if events[i].Slot != events[j].Slot {
			return events[i].Slot < events[j].Slot
		}
		return tradeEventKey(events[i]) < tradeEventKey(events[j])
	})
}

var _ storage.TradeEventStore = (*TradeEventStore)(nil)
