// Package metrics aggregates sandwich detections into run summaries and
// compares detection methods.
//
// Every function is a pure computation over a detection slice and degrades
// to zero values on empty input.
package metrics

import (
	"sort"

	"solana-sandwich-lab/internal/domain"
)

// DefaultTopK is the size of frequency tables when none is configured.
const DefaultTopK = 10

// Count pairs a key with its frequency.
type Count struct {
	Key   string
	Count int
}

// WindowShare is the detection count for one window size.
type WindowShare struct {
	WindowSeconds int
	Count         int
	Percent       float64
}

// LabelShare is the detection count for one confidence label.
type LabelShare struct {
	Label   domain.ConfidenceLabel
	Count   int
	Percent float64
}

// SpanStats describes actual_span_ms across detections.
type SpanStats struct {
	MeanMs   float64
	MedianMs float64
	MinMs    int64
	MaxMs    int64
}

// VictimStats describes victims across detections.
type VictimStats struct {
	MeanPerDetection float64
	MaxPerDetection  int
	TotalUnique      int
}

// SlotStats describes slot_span across detections.
type SlotStats struct {
	MeanSpan      float64
	MaxSpan       int64
	SingleSlot    int
	MultiSlot     int
	SingleSlotPct float64
	MultiSlotPct  float64
}

// Summary is the aggregate view of one detection run.
type Summary struct {
	TotalDetections int
	ByWindow        []WindowShare
	ByConfidence    []LabelShare
	Span            SpanStats
	Victims         VictimStats
	Slots           SlotStats

	UniqueAttackers  int
	TopAttackers     []Count
	UniqueValidators int
	TopValidators    []Count
	VenuesAffected   int
	TopVenues        []Count
}

// Summarize computes every aggregate for detections.
// topK <= 0 keeps full frequency tables.
func Summarize(detections []*domain.SandwichDetection, topK int) *Summary {
	attackers := FrequencyByAttacker(detections)
	validators := FrequencyByValidator(detections)
	venues := FrequencyByVenue(detections)

	return &Summary{
		TotalDetections:  len(detections),
		ByWindow:         CountByWindow(detections),
		ByConfidence:     CountByConfidence(detections),
		Span:             SpanDistribution(detections),
		Victims:          VictimDistribution(detections),
		Slots:            SlotDistribution(detections),
		UniqueAttackers:  len(attackers),
		TopAttackers:     TopK(attackers, topK),
		UniqueValidators: len(validators),
		TopValidators:    TopK(validators, topK),
		VenuesAffected:   len(venues),
		TopVenues:        TopK(venues, topK),
	}
}

// SummarizeResult summarizes a run result. Window sizes that were scanned
// but produced nothing are reported with a zero count.
func SummarizeResult(result *domain.DetectionRunResult, topK int) *Summary {
	if result == nil {
		return Summarize(nil, topK)
	}

	s := Summarize(result.Detections, topK)
	if result.Stats == nil {
		return s
	}

	present := make(map[int]struct{}, len(s.ByWindow))
	for _, w := range s.ByWindow {
		present[w.WindowSeconds] = struct{}{}
	}
	for w := range result.Stats.DetectionsByWindow {
		if _, ok := present[w]; !ok {
			s.ByWindow = append(s.ByWindow, WindowShare{WindowSeconds: w})
		}
	}
	sort.Slice(s.ByWindow, func(i, j int) bool {
		return s.ByWindow[i].WindowSeconds < s.ByWindow[j].WindowSeconds
	})
	return s
}

// CountByWindow returns count and percentage per window size, ascending.
func CountByWindow(detections []*domain.SandwichDetection) []WindowShare {
	counts := make(map[int]int)
	for _, d := range detections {
		counts[d.WindowSeconds]++
	}

	shares := make([]WindowShare, 0, len(counts))
	for w, n := range counts {
		shares = append(shares, WindowShare{
			WindowSeconds: w,
			Count:         n,
			Percent:       computePercent(n, len(detections)),
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		return shares[i].WindowSeconds < shares[j].WindowSeconds
	})
	return shares
}

// CountByConfidence returns count and percentage for every label, high first.
func CountByConfidence(detections []*domain.SandwichDetection) []LabelShare {
	counts := make(map[domain.ConfidenceLabel]int, len(domain.ConfidenceLabels))
	for _, d := range detections {
		counts[d.ConfidenceLabel]++
	}

	shares := make([]LabelShare, 0, len(domain.ConfidenceLabels))
	for _, label := range domain.ConfidenceLabels {
		shares = append(shares, LabelShare{
			Label:   label,
			Count:   counts[label],
			Percent: computePercent(counts[label], len(detections)),
		})
	}
	return shares
}

// SpanDistribution returns mean, median, min and max of actual_span_ms.
func SpanDistribution(detections []*domain.SandwichDetection) SpanStats {
	if len(detections) == 0 {
		return SpanStats{}
	}

	spans := make([]float64, len(detections))
	for i, d := range detections {
		spans[i] = float64(d.ActualSpanMs)
	}
	sorted := sortedFloats(spans)

	return SpanStats{
		MeanMs:   computeMean(spans),
		MedianMs: computePercentile(sorted, 0.50),
		MinMs:    int64(sorted[0]),
		MaxMs:    int64(sorted[len(sorted)-1]),
	}
}

// VictimDistribution returns mean and max victims per detection and the
// number of distinct victim signers across all detections.
func VictimDistribution(detections []*domain.SandwichDetection) VictimStats {
	if len(detections) == 0 {
		return VictimStats{}
	}

	var stats VictimStats
	counts := make([]float64, len(detections))
	unique := make(map[string]struct{})
	for i, d := range detections {
		counts[i] = float64(d.VictimCount)
		if d.VictimCount > stats.MaxPerDetection {
			stats.MaxPerDetection = d.VictimCount
		}
		for _, v := range d.VictimSigners {
			unique[v] = struct{}{}
		}
	}
	stats.MeanPerDetection = computeMean(counts)
	stats.TotalUnique = len(unique)
	return stats
}

// SlotDistribution splits detections into single-slot and multi-slot attacks.
func SlotDistribution(detections []*domain.SandwichDetection) SlotStats {
	if len(detections) == 0 {
		return SlotStats{}
	}

	var stats SlotStats
	spans := make([]float64, len(detections))
	for i, d := range detections {
		spans[i] = float64(d.SlotSpan)
		if d.SlotSpan > stats.MaxSpan {
			stats.MaxSpan = d.SlotSpan
		}
		if d.IsSingleSlot() {
			stats.SingleSlot++
		} else if d.SlotSpan > 0 {
			stats.MultiSlot++
		}
	}
	stats.MeanSpan = computeMean(spans)
	stats.SingleSlotPct = computePercent(stats.SingleSlot, len(detections))
	stats.MultiSlotPct = computePercent(stats.MultiSlot, len(detections))
	return stats
}

// FrequencyByAttacker counts detections per attacker signer.
func FrequencyByAttacker(detections []*domain.SandwichDetection) map[string]int {
	return frequency(detections, func(d *domain.SandwichDetection) string { return d.AttackerSigner })
}

// FrequencyByValidator counts detections per validator. Unknown validators are ignored.
func FrequencyByValidator(detections []*domain.SandwichDetection) map[string]int {
	return frequency(detections, func(d *domain.SandwichDetection) string { return d.Validator })
}

// FrequencyByVenue counts detections per venue.
func FrequencyByVenue(detections []*domain.SandwichDetection) map[string]int {
	return frequency(detections, func(d *domain.SandwichDetection) string { return d.Venue })
}

func frequency(detections []*domain.SandwichDetection, key func(*domain.SandwichDetection) string) map[string]int {
	counts := make(map[string]int)
	for _, d := range detections {
		if k := key(d); k != "" {
			counts[k]++
		}
	}
	return counts
}

// TopK returns the k most frequent keys, count DESC then key ASC.
// k <= 0 returns the whole table.
func TopK(counts map[string]int, k int) []Count {
	table := make([]Count, 0, len(counts))
	for key, n := range counts {
		table = append(table, Count{Key: key, Count: n})
	}
	sort.Slice(table, func(i, j int) bool {
		if table[i].Count != table[j].Count {
			return table[i].Count > table[j].Count
		}
		return table[i].Key < table[j].Key
	})
	if k > 0 && len(table) > k {
		table = table[:k]
	}
	return table
}
