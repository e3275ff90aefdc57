package domain

// VenueAll is the partition name used when the input carries no venue field.
const VenueAll = "All"

// TradeEvent represents a single executed trade from the input event log.
// Events are immutable once ingested; the detector only derives orderings over them.
type TradeEvent struct {
	Signature   string // transaction signature (optional)
	Signer      string // fee payer / actor
	TimestampMs int64  // Unix timestamp in milliseconds
	Slot        int64  // Solana slot number
	Venue       string // AMM pool address, empty when unknown
	Validator   string // slot leader, empty when unknown
	FromToken   string // input mint (optional)
	ToToken     string // output mint (optional)
}

// HasTokenPair reports whether both swap direction fields are set.
func (e *TradeEvent) HasTokenPair() bool {
	return e.FromToken != "" && e.ToToken != ""
}

// IsReverseOf reports whether e swaps in the opposite direction of other.
func (e *TradeEvent) IsReverseOf(other *TradeEvent) bool {
	return e.FromToken == other.ToToken && e.ToToken == other.FromToken
}
