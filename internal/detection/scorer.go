package detection

import "solana-sandwich-lab/internal/domain"

// Score thresholds
const (
	lowVictimRatio        = 0.3
	moderateVictimRatio   = 0.5
	multiAttackerTrades   = 3
	shortWindowSeconds    = 2
	multiVictims          = 3
	highConfidenceScore   = 6
	mediumConfidenceScore = 4
)

// ScoreInput holds the validated fields the score depends on.
type ScoreInput struct {
	VictimRatio        float64
	AttackerTradeCount int
	TokenPairValidated bool
	WindowSeconds      int
	VictimCount        int
}

// Score is the additive confidence result.
type Score struct {
	Value   int
	Label   domain.ConfidenceLabel
	Reasons []string
}

// ScoreConfidence computes the additive confidence score. Pure function.
//
//	+3 victim_ratio < 0.3, else +2 victim_ratio < 0.5
//	+2 attacker trades >= 3
//	+2 token pair validated
//	+1 window <= 2s
//	+1 victims >= 3
//
// score >= 6 is high, 4..5 medium, otherwise low.
func ScoreConfidence(in ScoreInput) Score {
	var s Score

	switch {
	case in.VictimRatio < lowVictimRatio:
		s.Value += 3
		s.Reasons = append(s.Reasons, domain.ReasonLowVictimRatio)
	case in.VictimRatio < moderateVictimRatio:
		s.Value += 2
		s.Reasons = append(s.Reasons, domain.ReasonModerateVictimRatio)
	}

	if in.AttackerTradeCount >= multiAttackerTrades {
		s.Value += 2
		s.Reasons = append(s.Reasons, domain.ReasonMultipleAttackerTrades)
	}

	if in.TokenPairValidated {
		s.Value += 2
		s.Reasons = append(s.Reasons, domain.ReasonTokenPairReversal)
	}

	if in.WindowSeconds <= shortWindowSeconds {
		s.Value++
		s.Reasons = append(s.Reasons, domain.ReasonShortWindow)
	}

	if in.VictimCount >= multiVictims {
		s.Value++
		s.Reasons = append(s.Reasons, domain.ReasonMultipleVictims)
	}

	s.Label = labelFor(s.Value)
	return s
}

func labelFor(score int) domain.ConfidenceLabel {
	switch {
	case score >= highConfidenceScore:
		return domain.ConfidenceHigh
	case score >= mediumConfidenceScore:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
