package detection

import (
	"sort"

	"solana-sandwich-lab/internal/domain"
)

// Stage names a validation step. The zero value means the candidate passed.
type Stage string

// Validation stages, in evaluation order.
const (
	StageNone             Stage = ""
	StageMinTrades        Stage = "min_trades"
	StageABAPattern       Stage = "aba_pattern"
	StageVictimExistence  Stage = "victim_existence"
	StageAttackerActivity Stage = "attacker_activity"
	StageVictimRatio      Stage = "victim_ratio"
	StageTokenPair        Stage = "token_pair"
)

// Confirmed is a candidate that survived every hard-reject stage.
type Confirmed struct {
	Attacker           string
	Victims            []string // sorted
	AttackerTradeCount int
	VictimRatio        float64
	TokenPairValidated bool
}

// PatternValidator applies the sandwich rule chain to window candidates.
type PatternValidator struct {
	cfg  Config
	caps domain.Capabilities
}

// NewPatternValidator creates a validator for one run.
func NewPatternValidator(cfg Config, caps domain.Capabilities) *PatternValidator {
	return &PatternValidator{cfg: cfg, caps: caps}
}

// Validate runs the stages in order and stops at the first failure.
// Each passed stage increments its counter on stats. Returns the confirmed
// pattern and StageNone, or nil and the stage that rejected the candidate.
func (v *PatternValidator) Validate(c *domain.WindowCandidate, stats *domain.DetectionStats) (*Confirmed, Stage) {
	events := c.Events
	n := len(events)

	// 1. Minimum trade count
	if n < v.cfg.MinTrades || n == 0 {
		return nil, StageMinTrades
	}
	stats.PassedMinTrades++

	// 2. A-B-A: first and last trade share a signer
	attacker := events[0].Signer
	if events[n-1].Signer != attacker {
		return nil, StageABAPattern
	}
	stats.PassedABAPattern++

	// 3. Victims: distinct middle signers other than the attacker
	victimSet := make(map[string]struct{})
	attackerInMiddle := false
	if n > 2 {
		for _, e := range events[1 : n-1] {
			if e.Signer == attacker {
				attackerInMiddle = true
				continue
			}
			victimSet[e.Signer] = struct{}{}
		}
	}
	if len(victimSet) == 0 {
		return nil, StageVictimExistence
	}
	if attackerInMiddle && v.cfg.StrictWashFilter {
		return nil, StageVictimExistence
	}
	stats.PassedVictimExistence++

	// 4. Attacker activity across the whole window
	attackerTrades := 0
	for _, e := range events {
		if e.Signer == attacker {
			attackerTrades++
		}
	}
	if attackerTrades < v.cfg.MinAttackerTrades {
		return nil, StageAttackerActivity
	}
	stats.PassedAttackerActivity++

	// 5. Victim ratio; high ratios look like router/aggregator flow
	ratio := float64(len(victimSet)) / float64(n)
	if ratio > v.cfg.MaxVictimRatio {
		return nil, StageVictimRatio
	}
	stats.PassedVictimRatio++

	// 6. Token-pair reversal between the attacker's opening and closing trades
	validated, known := v.tokenPairReversed(events[0], events[n-1], attackerTrades)
	if known && !validated && v.cfg.TokenPairPolicy == TokenPairHard {
		return nil, StageTokenPair
	}
	stats.PassedTokenPair++
	if validated {
		stats.TokenPairValidated++
	}

	victims := make([]string, 0, len(victimSet))
	for s := range victimSet {
		victims = append(victims, s)
	}
	sort.Strings(victims)

	return &Confirmed{
		Attacker:           attacker,
		Victims:            victims,
		AttackerTradeCount: attackerTrades,
		VictimRatio:        ratio,
		TokenPairValidated: validated,
	}, StageNone
}

// tokenPairReversed reports (reversed, known). known is false when the input
// has no token columns, the attacker traded once, or either trade lacks a pair;
// an unknown result never rejects and never validates.
func (v *PatternValidator) tokenPairReversed(first, last *domain.TradeEvent, attackerTrades int) (bool, bool) {
	if !v.caps.HasTokenPair || attackerTrades < 2 {
		return false, false
	}
	if !first.HasTokenPair() || !last.HasTokenPair() {
		return false, false
	}
	return last.IsReverseOf(first), true
}
