package detection

import "solana-sandwich-lab/internal/domain"

// trade builds a test event; slot advances every 400ms like mainnet.
func trade(signer string, ts int64) *domain.TradeEvent {
	return &domain.TradeEvent{
		Signer:      signer,
		TimestampMs: ts,
		Slot:        1000 + ts/400,
		Venue:       "pool-1",
		Validator:   "leader-1",
	}
}

// swap builds a test event with a token direction.
func swap(signer string, ts int64, from, to string) *domain.TradeEvent {
	e := trade(signer, ts)
	e.FromToken = from
	e.ToToken = to
	return e
}

func candidate(windowSeconds int, events ...*domain.TradeEvent) *domain.WindowCandidate {
	return &domain.WindowCandidate{
		Venue:         "pool-1",
		WindowSeconds: windowSeconds,
		StartMs:       events[0].TimestampMs,
		Events:        events,
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MinTrades = 3
	return cfg
}

var fullCaps = domain.Capabilities{HasVenue: true, HasValidator: true, HasTokenPair: true}
