// Package detection finds fat sandwich patterns in ordered trade events.
//
// A run partitions events by venue, slides left-anchored windows of each
// configured size across every partition, validates each window with a
// short-circuiting rule chain and scores the survivors.
package detection

import (
	"errors"
	"fmt"
	"time"
)

// TokenPairPolicy controls what a failed token-pair reversal check does.
type TokenPairPolicy string

const (
	// TokenPairSoft keeps the candidate and withholds the validated flag.
	TokenPairSoft TokenPairPolicy = "soft"
	// TokenPairHard rejects the candidate.
	TokenPairHard TokenPairPolicy = "hard"
)

// Default thresholds.
const (
	DefaultMinTrades         = 5
	DefaultMaxVictimRatio    = 0.8
	DefaultMinAttackerTrades = 2
	DefaultWorkers           = 4
)

// DefaultWindowSeconds are the window sizes scanned when none are configured.
var DefaultWindowSeconds = []int{1, 2, 5, 10}

// ErrInvalidConfig is returned when detector configuration is out of range.
var ErrInvalidConfig = errors.New("invalid detection config")

// Config holds detector thresholds and run options.
type Config struct {
	WindowSeconds     []int
	MinTrades         int
	MaxVictimRatio    float64
	MinAttackerTrades int
	TokenPairPolicy   TokenPairPolicy
	StrictWashFilter  bool          // reject when the attacker also trades inside the bracket; false lets such trades count as activity
	Workers           int           // concurrent partitions
	Deadline          time.Duration // 0 = no deadline
	Verbose           bool          // progress logs at info level; never affects results
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	windows := make([]int, len(DefaultWindowSeconds))
	copy(windows, DefaultWindowSeconds)
	return Config{
		WindowSeconds:     windows,
		MinTrades:         DefaultMinTrades,
		MaxVictimRatio:    DefaultMaxVictimRatio,
		MinAttackerTrades: DefaultMinAttackerTrades,
		TokenPairPolicy:   TokenPairSoft,
		StrictWashFilter:  true,
		Workers:           DefaultWorkers,
	}
}

// Validate checks thresholds. Returns an error wrapping ErrInvalidConfig.
func (c Config) Validate() error {
	if len(c.WindowSeconds) == 0 {
		return fmt.Errorf("%w: window_seconds must not be empty", ErrInvalidConfig)
	}
	seen := make(map[int]struct{}, len(c.WindowSeconds))
	for _, w := range c.WindowSeconds {
		if w <= 0 {
			return fmt.Errorf("%w: window_seconds must be positive, got %d", ErrInvalidConfig, w)
		}
		if _, dup := seen[w]; dup {
			return fmt.Errorf("%w: duplicate window size %d", ErrInvalidConfig, w)
		}
		seen[w] = struct{}{}
	}
	if c.MinTrades <= 0 {
		return fmt.Errorf("%w: min_trades must be positive, got %d", ErrInvalidConfig, c.MinTrades)
	}
	if c.MaxVictimRatio <= 0 || c.MaxVictimRatio > 1 {
		return fmt.Errorf("%w: max_victim_ratio must be in (0,1], got %v", ErrInvalidConfig, c.MaxVictimRatio)
	}
	if c.MinAttackerTrades <= 0 {
		return fmt.Errorf("%w: min_attacker_trades must be positive, got %d", ErrInvalidConfig, c.MinAttackerTrades)
	}
	switch c.TokenPairPolicy {
	case TokenPairSoft, TokenPairHard:
	default:
		return fmt.Errorf("%w: unknown token_pair_policy %q", ErrInvalidConfig, c.TokenPairPolicy)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.Deadline < 0 {
		return fmt.Errorf("%w: deadline must not be negative", ErrInvalidConfig)
	}
	return nil
}
