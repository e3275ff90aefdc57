package reporting

import (
	"time"

	"solana-sandwich-lab/internal/detection"
	"solana-sandwich-lab/internal/domain"
	"solana-sandwich-lab/internal/ingestion"
	"solana-sandwich-lab/internal/metrics"
)

// Report contains everything rendered for one detection run.
type Report struct {
	GeneratedAt time.Time
	RunID       string

	// Run status
	EventsProcessed   int
	Partial           bool
	SkippedPartitions []string

	Config       ConfigSummary
	Capabilities domain.Capabilities
	Input        *ingestion.LoadReport // nil when detections come from a store
	Stats        []StatRow             // flattened run counters, lexical order

	Summary    *metrics.Summary
	Comparison *metrics.Comparison // nil unless a baseline was given
}

// ConfigSummary is the subset of detector settings that affect results.
type ConfigSummary struct {
	WindowSeconds     []int
	MinTrades         int
	MaxVictimRatio    float64
	MinAttackerTrades int
	TokenPairPolicy   string
	StrictWashFilter  bool
}

// StatRow is one named run counter.
type StatRow struct {
	Name  string
	Value int
}

func summarizeConfig(cfg detection.Config) ConfigSummary {
	windows := make([]int, len(cfg.WindowSeconds))
	copy(windows, cfg.WindowSeconds)
	return ConfigSummary{
		WindowSeconds:     windows,
		MinTrades:         cfg.MinTrades,
		MaxVictimRatio:    cfg.MaxVictimRatio,
		MinAttackerTrades: cfg.MinAttackerTrades,
		TokenPairPolicy:   string(cfg.TokenPairPolicy),
		StrictWashFilter:  cfg.StrictWashFilter,
	}
}

func statRows(stats *domain.DetectionStats) []StatRow {
	if stats == nil {
		return nil
	}
	m := stats.AsMap()
	rows := make([]StatRow, 0, len(m))
	for _, k := range domain.SortedKeys(m) {
		rows = append(rows, StatRow{Name: k, Value: m[k]})
	}
	return rows
}
