package domain

// ConfidenceLabel is the categorical summary of a detection's confidence score.
type ConfidenceLabel string

const (
	ConfidenceHigh   ConfidenceLabel = "high"
	ConfidenceMedium ConfidenceLabel = "medium"
	ConfidenceLow    ConfidenceLabel = "low"
)

// ConfidenceLabels lists all labels from strongest to weakest.
var ConfidenceLabels = []ConfidenceLabel{ConfidenceHigh, ConfidenceMedium, ConfidenceLow}

// String returns the string representation of ConfidenceLabel.
func (l ConfidenceLabel) String() string {
	return string(l)
}

// IsValid checks if the label is a known value.
func (l ConfidenceLabel) IsValid() bool {
	return l == ConfidenceHigh || l == ConfidenceMedium || l == ConfidenceLow
}

// Confidence reason tags
const (
	ReasonLowVictimRatio         = "low_victim_ratio"
	ReasonModerateVictimRatio    = "moderate_victim_ratio"
	ReasonMultipleAttackerTrades = "multiple_attacker_trades"
	ReasonTokenPairReversal      = "token_pair_reversal"
	ReasonShortWindow            = "short_window"
	ReasonMultipleVictims        = "multiple_victims"
)
