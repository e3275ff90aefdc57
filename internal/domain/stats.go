package domain

import (
	"fmt"
	"sort"
)

// DetectionStats accumulates counters for a detection run.
// Each worker owns one instance; partials are combined with Merge.
type DetectionStats struct {
	WindowsChecked     int
	DetectionsByWindow map[int]int // window seconds -> detections

	// Validation stages, incremented on success
	PassedMinTrades        int
	PassedABAPattern       int
	PassedVictimExistence  int
	PassedAttackerActivity int
	PassedVictimRatio      int
	PassedTokenPair        int
	TokenPairValidated     int // reversal confirmed, a subset of PassedTokenPair

	// Confidence buckets
	HighConfidence   int
	MediumConfidence int
	LowConfidence    int

	// Partitions (venue x window size)
	PartitionsTotal   int
	PartitionsSkipped int
}

// NewDetectionStats creates an empty accumulator.
func NewDetectionStats() *DetectionStats {
	return &DetectionStats{DetectionsByWindow: make(map[int]int)}
}

// RecordConfidence increments the bucket for label.
func (s *DetectionStats) RecordConfidence(label ConfidenceLabel) {
	switch label {
	case ConfidenceHigh:
		s.HighConfidence++
	case ConfidenceMedium:
		s.MediumConfidence++
	default:
		s.LowConfidence++
	}
}

// TotalDetections returns the sum of per-window detections.
func (s *DetectionStats) TotalDetections() int {
	total := 0
	for _, n := range s.DetectionsByWindow {
		total += n
	}
	return total
}

// Merge adds other's counters into s.
func (s *DetectionStats) Merge(other *DetectionStats) {
	if other == nil {
		return
	}
	if s.DetectionsByWindow == nil {
		s.DetectionsByWindow = make(map[int]int)
	}
	s.WindowsChecked += other.WindowsChecked
	for w, n := range other.DetectionsByWindow {
		s.DetectionsByWindow[w] += n
	}
	s.PassedMinTrades += other.PassedMinTrades
	s.PassedABAPattern += other.PassedABAPattern
	s.PassedVictimExistence += other.PassedVictimExistence
	s.PassedAttackerActivity += other.PassedAttackerActivity
	s.PassedVictimRatio += other.PassedVictimRatio
	s.PassedTokenPair += other.PassedTokenPair
	s.TokenPairValidated += other.TokenPairValidated
	s.HighConfidence += other.HighConfidence
	s.MediumConfidence += other.MediumConfidence
	s.LowConfidence += other.LowConfidence
	s.PartitionsTotal += other.PartitionsTotal
	s.PartitionsSkipped += other.PartitionsSkipped
}

// AsMap flattens the counters into a name-keyed mapping.
// Per-window keys have the form "window_<N>s".
func (s *DetectionStats) AsMap() map[string]int {
	m := map[string]int{
		"total_windows_checked":    s.WindowsChecked,
		"passed_min_trades":        s.PassedMinTrades,
		"passed_aba_pattern":       s.PassedABAPattern,
		"passed_victim_existence":  s.PassedVictimExistence,
		"passed_attacker_activity": s.PassedAttackerActivity,
		"passed_victim_ratio":      s.PassedVictimRatio,
		"passed_token_pair":        s.PassedTokenPair,
		"token_pair_validated":     s.TokenPairValidated,
		"high_confidence":          s.HighConfidence,
		"medium_confidence":        s.MediumConfidence,
		"low_confidence":           s.LowConfidence,
		"partitions_total":         s.PartitionsTotal,
		"partitions_skipped":       s.PartitionsSkipped,
	}
	for w, n := range s.DetectionsByWindow {
		m[fmt.Sprintf("window_%ds", w)] = n
	}
	return m
}

// SortedKeys returns the mapping keys in lexical order.
func SortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
