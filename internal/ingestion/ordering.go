package ingestion

import (
	"errors"
	"sort"

	"solana-sandwich-lab/internal/domain"
)

// ErrInvalidOrdering is returned when events are not properly ordered.
var ErrInvalidOrdering = errors.New("events are not in deterministic order")

// SortTradeEvents orders events by (timestamp_ms ASC, slot ASC).
// The sort is stable so ties keep their input order.
func SortTradeEvents(events []*domain.TradeEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return compareTradeEvents(events[i], events[j]) < 0
	})
}

// ValidateTradeEventOrdering checks that events are non-decreasing by
// (timestamp_ms, slot). Returns ErrInvalidOrdering if not.
func ValidateTradeEventOrdering(events []*domain.TradeEvent) error {
	for i := 1; i < len(events); i++ {
		if compareTradeEvents(events[i-1], events[i]) > 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// PartitionByVenue groups events by venue. Each partition is a sorted copy;
// the input slice is left untouched. Without a venue field every event
// lands in domain.VenueAll.
func PartitionByVenue(events []*domain.TradeEvent, hasVenue bool) map[string][]*domain.TradeEvent {
	partitions := make(map[string][]*domain.TradeEvent)
	for _, e := range events {
		venue := domain.VenueAll
		if hasVenue {
			venue = e.Venue
		}
		partitions[venue] = append(partitions[venue], e)
	}

	for _, p := range partitions {
		SortTradeEvents(p)
	}
	return partitions
}

// Venues returns partition keys in ascending order.
func Venues(partitions map[string][]*domain.TradeEvent) []string {
	venues := make([]string, 0, len(partitions))
	for v := range partitions {
		venues = append(venues, v)
	}
	sort.Strings(venues)
	return venues
}

// compareTradeEvents returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (timestamp_ms ASC, slot ASC)
func compareTradeEvents(a, b *domain.TradeEvent) int {
	if a.TimestampMs != b.TimestampMs {
		if a.TimestampMs < b.TimestampMs {
			return -1
		}
		return 1
	}
	if a.Slot != b.Slot {
		if a.Slot < b.Slot {
			return -1
		}
		return 1
	}
	return 0
}
