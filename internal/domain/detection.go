package domain

// WindowCandidate is a group of same-venue trades inside one time window.
// Events is a read-only view into the partition, sorted by timestamp ASC.
// It starts at the first event sharing the anchor's timestamp, so tied
// anchors yield the same view.
type WindowCandidate struct {
	Venue         string
	WindowSeconds int
	StartIndex    int   // index of the anchor event within the partition
	StartMs       int64 // timestamp of the anchor event
	Events        []*TradeEvent
}

// WindowMs returns the window length in milliseconds.
func (c *WindowCandidate) WindowMs() int64 {
	return int64(c.WindowSeconds) * 1000
}

// SandwichDetection represents a confirmed fat sandwich.
// Corresponds to sandwich_detections table in ClickHouse.
type SandwichDetection struct {
	DetectionID string // deterministic hash
	Venue       string // AMM pool

	// Actors
	AttackerSigner string
	VictimSigners  []string // sorted, never contains AttackerSigner
	VictimCount    int

	// Structure
	TotalTrades        int
	AttackerTradeCount int
	VictimRatio        float64 // VictimCount / TotalTrades

	// Timing
	WindowSeconds int
	StartMs       int64
	EndMs         int64
	ActualSpanMs  int64
	StartSlot     int64
	EndSlot       int64
	SlotSpan      int64
	Validator     string // leader of the first trade's slot, empty when unknown

	// Confidence
	ConfidenceLabel    ConfidenceLabel
	ConfidenceScore    int
	ConfidenceReasons  []string
	TokenPairValidated bool
}

// IsSingleSlot reports whether the whole sandwich landed in one slot.
func (d *SandwichDetection) IsSingleSlot() bool {
	return d.SlotSpan == 0
}

// DetectionRunResult is the output of one detection run.
// Created once per run; read-only afterward.
type DetectionRunResult struct {
	RunID        string
	Detections   []*SandwichDetection // ordered by venue ASC, then configured window order
	Stats        *DetectionStats
	Capabilities Capabilities

	EventsProcessed   int
	Partial           bool     // deadline hit before every partition was scanned
	SkippedPartitions []string // "venue/Ns" keys not scanned
}
