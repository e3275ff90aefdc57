package detection

import (
	"fmt"
	"math"
	"testing"

	"solana-sandwich-lab/internal/domain"
)

func TestValidate_MinimalTruePositive(t *testing.T) {
	v := NewPatternValidator(testConfig(), fullCaps)
	stats := domain.NewDetectionStats()

	c := candidate(1, trade("A", 0), trade("B", 100), trade("A", 200))
	conf, stage := v.Validate(c, stats)

	if stage != StageNone {
		t.Fatalf("expected pass, rejected at %s", stage)
	}
	if conf.Attacker != "A" {
		t.Errorf("expected attacker A, got %s", conf.Attacker)
	}
	if len(conf.Victims) != 1 || conf.Victims[0] != "B" {
		t.Errorf("expected victims [B], got %v", conf.Victims)
	}
	if conf.AttackerTradeCount != 2 {
		t.Errorf("expected 2 attacker trades, got %d", conf.AttackerTradeCount)
	}
	if math.Abs(conf.VictimRatio-1.0/3.0) > 1e-9 {
		t.Errorf("expected ratio 0.333, got %f", conf.VictimRatio)
	}
	if stats.PassedVictimRatio != 1 || stats.PassedABAPattern != 1 {
		t.Errorf("expected stage counters to advance, got %+v", stats)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		events []*domain.TradeEvent
		want   Stage
	}{
		{
			name:   "too few trades",
			events: []*domain.TradeEvent{trade("A", 0), trade("A", 100)},
			want:   StageMinTrades,
		},
		{
			name:   "first and last differ",
			events: []*domain.TradeEvent{trade("A", 0), trade("B", 100), trade("C", 200)},
			want:   StageABAPattern,
		},
		{
			name:   "wash trade",
			events: []*domain.TradeEvent{trade("A", 0), trade("A", 50), trade("A", 100)},
			want:   StageVictimExistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewPatternValidator(testConfig(), fullCaps)
			conf, stage := v.Validate(candidate(1, tt.events...), domain.NewDetectionStats())
			if conf != nil {
				t.Errorf("expected rejection, got %+v", conf)
			}
			if stage != tt.want {
				t.Errorf("expected stage %s, got %s", tt.want, stage)
			}
		})
	}
}

func TestValidate_AggregatorRejection(t *testing.T) {
	// 9 distinct one-off signers then the attacker: no bracket at all
	events := make([]*domain.TradeEvent, 0, 10)
	for i := 0; i < 9; i++ {
		events = append(events, trade(fmt.Sprintf("V%d", i), int64(i*10)))
	}
	events = append(events, trade("A", 90))

	v := NewPatternValidator(DefaultConfig(), fullCaps)
	if conf, _ := v.Validate(candidate(1, events...), domain.NewDetectionStats()); conf != nil {
		t.Fatalf("expected rejection, got %+v", conf)
	}
}

func TestValidate_VictimRatioBound(t *testing.T) {
	bracket := func(victims int) *domain.WindowCandidate {
		events := []*domain.TradeEvent{trade("A", 0)}
		for i := 0; i < victims; i++ {
			events = append(events, trade(fmt.Sprintf("V%d", i), int64(10+i)))
		}
		events = append(events, trade("A", 500))
		return candidate(1, events...)
	}

	v := NewPatternValidator(DefaultConfig(), fullCaps)

	// 9 victims / 11 trades = 0.818 > 0.8
	if _, stage := v.Validate(bracket(9), domain.NewDetectionStats()); stage != StageVictimRatio {
		t.Errorf("expected victim ratio rejection, got %q", stage)
	}

	// 8 victims / 10 trades = 0.8, inclusive bound
	conf, stage := v.Validate(bracket(8), domain.NewDetectionStats())
	if stage != StageNone {
		t.Fatalf("expected pass at ratio 0.8, rejected at %s", stage)
	}
	if conf.VictimRatio != 0.8 {
		t.Errorf("expected ratio 0.8, got %f", conf.VictimRatio)
	}
}

func TestValidate_AttackerActivity(t *testing.T) {
	cfg := testConfig()
	cfg.MinAttackerTrades = 3

	v := NewPatternValidator(cfg, fullCaps)
	c := candidate(1, trade("A", 0), trade("B", 100), trade("C", 150), trade("A", 200))
	if _, stage := v.Validate(c, domain.NewDetectionStats()); stage != StageAttackerActivity {
		t.Errorf("expected attacker activity rejection, got %q", stage)
	}
}

func TestValidate_AttackerInMiddle(t *testing.T) {
	c := candidate(1, trade("A", 0), trade("B", 50), trade("A", 100), trade("C", 150), trade("A", 200))

	// Default: any attacker trade inside the bracket rejects
	strict := NewPatternValidator(testConfig(), fullCaps)
	if _, stage := strict.Validate(c, domain.NewDetectionStats()); stage != StageVictimExistence {
		t.Errorf("expected wash rejection, got %q", stage)
	}

	// Lax: attacker mid-bracket trades count toward activity, never as victims
	cfg := testConfig()
	cfg.StrictWashFilter = false
	v := NewPatternValidator(cfg, fullCaps)
	conf, stage := v.Validate(c, domain.NewDetectionStats())
	if stage != StageNone {
		t.Fatalf("expected pass, rejected at %s", stage)
	}
	if conf.AttackerTradeCount != 3 {
		t.Errorf("expected 3 attacker trades, got %d", conf.AttackerTradeCount)
	}
	for _, victim := range conf.Victims {
		if victim == "A" {
			t.Error("attacker listed as victim")
		}
	}
}

func TestValidate_TokenPair(t *testing.T) {
	reversed := candidate(1,
		swap("A", 0, "SOL", "BONK"), swap("B", 100, "SOL", "BONK"), swap("A", 200, "BONK", "SOL"))
	sameWay := candidate(1,
		swap("A", 0, "SOL", "BONK"), swap("B", 100, "SOL", "BONK"), swap("A", 200, "SOL", "BONK"))
	missing := candidate(1,
		swap("A", 0, "SOL", "BONK"), swap("B", 100, "SOL", "BONK"), trade("A", 200))

	tests := []struct {
		name          string
		policy        TokenPairPolicy
		caps          domain.Capabilities
		c             *domain.WindowCandidate
		wantStage     Stage
		wantValidated bool
	}{
		{"reversed soft", TokenPairSoft, fullCaps, reversed, StageNone, true},
		{"reversed hard", TokenPairHard, fullCaps, reversed, StageNone, true},
		{"same direction soft", TokenPairSoft, fullCaps, sameWay, StageNone, false},
		{"same direction hard", TokenPairHard, fullCaps, sameWay, StageTokenPair, false},
		{"missing fields hard", TokenPairHard, fullCaps, missing, StageNone, false},
		{"no capability hard", TokenPairHard, domain.Capabilities{HasVenue: true}, sameWay, StageNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.TokenPairPolicy = tt.policy
			stats := domain.NewDetectionStats()

			conf, stage := NewPatternValidator(cfg, tt.caps).Validate(tt.c, stats)
			if stage != tt.wantStage {
				t.Fatalf("expected stage %q, got %q", tt.wantStage, stage)
			}
			if conf == nil {
				return
			}
			if conf.TokenPairValidated != tt.wantValidated {
				t.Errorf("expected validated=%v, got %v", tt.wantValidated, conf.TokenPairValidated)
			}
			if stats.PassedTokenPair != 1 {
				t.Errorf("expected passed_token_pair=1, got %d", stats.PassedTokenPair)
			}
			wantValidatedCount := 0
			if tt.wantValidated {
				wantValidatedCount = 1
			}
			if stats.TokenPairValidated != wantValidatedCount {
				t.Errorf("expected token_pair_validated=%d, got %d", wantValidatedCount, stats.TokenPairValidated)
			}
		})
	}
}

func TestValidate_StageCountersWithoutTokenColumns(t *testing.T) {
	v := NewPatternValidator(testConfig(), domain.Capabilities{HasVenue: true})
	stats := domain.NewDetectionStats()

	c := candidate(1, trade("A", 0), trade("B", 100), trade("A", 200))
	if _, stage := v.Validate(c, stats); stage != StageNone {
		t.Fatalf("expected pass, rejected at %s", stage)
	}

	m := stats.AsMap()
	for _, key := range []string{
		"passed_min_trades", "passed_aba_pattern", "passed_victim_existence",
		"passed_attacker_activity", "passed_victim_ratio", "passed_token_pair",
	} {
		if m[key] != 1 {
			t.Errorf("expected %s=1, got %d", key, m[key])
		}
	}
	if m["token_pair_validated"] != 0 {
		t.Errorf("expected token_pair_validated=0, got %d", m["token_pair_validated"])
	}
}
