package detection

import "solana-sandwich-lab/internal/domain"

// Scanner slides left-anchored windows over one venue partition.
// The partition must be sorted by timestamp ASC.
type Scanner struct {
	venue         string
	windowSeconds int
	events        []*domain.TradeEvent
}

// NewScanner creates a scanner for a single (venue, window size) pair.
func NewScanner(venue string, windowSeconds int, events []*domain.TradeEvent) *Scanner {
	return &Scanner{
		venue:         venue,
		windowSeconds: windowSeconds,
		events:        events,
	}
}

// Scan emits one candidate per anchor index, in increasing index order.
// The candidate anchored at i holds every event with timestamp in
// [events[i].ts, events[i].ts + window], including earlier-index events that
// share the anchor's timestamp. visit returns how far to advance; values
// below 1 advance by 1. Returns the number of candidates emitted.
func (s *Scanner) Scan(visit func(c *domain.WindowCandidate) int) int {
	n := len(s.events)
	windowMs := int64(s.windowSeconds) * 1000
	emitted := 0

	// begin is inclusive, end exclusive; neither moves backward
	begin, end := 0, 0
	for i := 0; i < n; {
		anchorMs := s.events[i].TimestampMs
		for s.events[begin].TimestampMs < anchorMs {
			begin++
		}
		if end < i+1 {
			end = i + 1
		}
		limit := anchorMs + windowMs
		for end < n && s.events[end].TimestampMs <= limit {
			end++
		}

		c := &domain.WindowCandidate{
			Venue:         s.venue,
			WindowSeconds: s.windowSeconds,
			StartIndex:    i,
			StartMs:       anchorMs,
			Events:        s.events[begin:end:end],
		}
		emitted++

		step := visit(c)
		if step < 1 {
			step = 1
		}
		i += step
	}

	return emitted
}

// advanceAfterDetection returns how many anchors to skip after a confirmed
// detection so overlapping copies of the same bracket are not re-reported.
func advanceAfterDetection(attackerTradeCount int) int {
	if step := attackerTradeCount / 2; step > 1 {
		return step
	}
	return 1
}
