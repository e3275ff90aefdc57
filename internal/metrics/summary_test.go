package metrics

import (
	"math"
	"testing"

	"solana-sandwich-lab/internal/domain"
)

func det(attacker, venue, validator string, window int, spanMs, slotSpan int64, label domain.ConfidenceLabel, victims ...string) *domain.SandwichDetection {
	return &domain.SandwichDetection{
		DetectionID:     attacker + venue,
		Venue:           venue,
		AttackerSigner:  attacker,
		VictimSigners:   victims,
		VictimCount:     len(victims),
		WindowSeconds:   window,
		ActualSpanMs:    spanMs,
		SlotSpan:        slotSpan,
		Validator:       validator,
		ConfidenceLabel: label,
	}
}

func testDetections() []*domain.SandwichDetection {
	return []*domain.SandwichDetection{
		det("A", "pool-1", "L1", 1, 400, 0, domain.ConfidenceHigh, "V1", "V2"),
		det("A", "pool-1", "L1", 2, 1200, 2, domain.ConfidenceMedium, "V2", "V3", "V4"),
		det("B", "pool-2", "", 2, 1800, 4, domain.ConfidenceLow, "V5"),
		det("C", "pool-1", "L2", 5, 4000, 0, domain.ConfidenceMedium, "V1", "V6"),
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, 5)

	if s.TotalDetections != 0 {
		t.Errorf("TotalDetections = %d, want 0", s.TotalDetections)
	}
	if len(s.ByWindow) != 0 {
		t.Errorf("ByWindow = %v, want empty", s.ByWindow)
	}
	if len(s.ByConfidence) != 3 {
		t.Fatalf("ByConfidence should list all labels, got %d", len(s.ByConfidence))
	}
	for _, ls := range s.ByConfidence {
		if ls.Count != 0 || ls.Percent != 0 {
			t.Errorf("label %s: got %d (%.1f%%), want zero", ls.Label, ls.Count, ls.Percent)
		}
	}
	if s.Span != (SpanStats{}) || s.Victims != (VictimStats{}) || s.Slots != (SlotStats{}) {
		t.Errorf("distributions should be zero on empty input: %+v %+v %+v", s.Span, s.Victims, s.Slots)
	}
	if len(s.TopAttackers) != 0 || len(s.TopValidators) != 0 || len(s.TopVenues) != 0 {
		t.Error("frequency tables should be empty")
	}
}

func TestSummarize_Counts(t *testing.T) {
	s := Summarize(testDetections(), 0)

	if s.TotalDetections != 4 {
		t.Fatalf("TotalDetections = %d, want 4", s.TotalDetections)
	}

	wantWindows := []WindowShare{
		{WindowSeconds: 1, Count: 1, Percent: 25},
		{WindowSeconds: 2, Count: 2, Percent: 50},
		{WindowSeconds: 5, Count: 1, Percent: 25},
	}
	if len(s.ByWindow) != len(wantWindows) {
		t.Fatalf("ByWindow = %v, want %v", s.ByWindow, wantWindows)
	}
	for i, w := range wantWindows {
		if s.ByWindow[i] != w {
			t.Errorf("ByWindow[%d] = %+v, want %+v", i, s.ByWindow[i], w)
		}
	}

	if s.ByConfidence[0].Label != domain.ConfidenceHigh || s.ByConfidence[0].Count != 1 {
		t.Errorf("high = %+v", s.ByConfidence[0])
	}
	if s.ByConfidence[1].Count != 2 || s.ByConfidence[1].Percent != 50 {
		t.Errorf("medium = %+v", s.ByConfidence[1])
	}

	if s.UniqueAttackers != 3 {
		t.Errorf("UniqueAttackers = %d, want 3", s.UniqueAttackers)
	}
	if s.UniqueValidators != 2 {
		t.Errorf("UniqueValidators = %d, want 2 (empty ignored)", s.UniqueValidators)
	}
	if s.VenuesAffected != 2 {
		t.Errorf("VenuesAffected = %d, want 2", s.VenuesAffected)
	}
	if s.TopAttackers[0] != (Count{Key: "A", Count: 2}) {
		t.Errorf("top attacker = %+v, want A:2", s.TopAttackers[0])
	}
}

func TestSpanDistribution(t *testing.T) {
	span := SpanDistribution(testDetections())

	if span.MinMs != 400 || span.MaxMs != 4000 {
		t.Errorf("min/max = %d/%d, want 400/4000", span.MinMs, span.MaxMs)
	}
	if math.Abs(span.MeanMs-1850) > 1e-9 {
		t.Errorf("mean = %v, want 1850", span.MeanMs)
	}
	if math.Abs(span.MedianMs-1500) > 1e-9 {
		t.Errorf("median = %v, want 1500", span.MedianMs)
	}
}

func TestVictimDistribution(t *testing.T) {
	v := VictimDistribution(testDetections())

	if v.MaxPerDetection != 3 {
		t.Errorf("max = %d, want 3", v.MaxPerDetection)
	}
	if math.Abs(v.MeanPerDetection-2) > 1e-9 {
		t.Errorf("mean = %v, want 2", v.MeanPerDetection)
	}
	if v.TotalUnique != 6 {
		t.Errorf("unique = %d, want 6", v.TotalUnique)
	}
}

func TestSlotDistribution(t *testing.T) {
	s := SlotDistribution(testDetections())

	if s.SingleSlot != 2 || s.MultiSlot != 2 {
		t.Errorf("single/multi = %d/%d, want 2/2", s.SingleSlot, s.MultiSlot)
	}
	if s.SingleSlotPct != 50 || s.MultiSlotPct != 50 {
		t.Errorf("pct = %.1f/%.1f, want 50/50", s.SingleSlotPct, s.MultiSlotPct)
	}
	if s.MaxSpan != 4 {
		t.Errorf("max span = %d, want 4", s.MaxSpan)
	}
	if math.Abs(s.MeanSpan-1.5) > 1e-9 {
		t.Errorf("mean span = %v, want 1.5", s.MeanSpan)
	}
}

func TestTopK_TiesAndTruncation(t *testing.T) {
	counts := map[string]int{"c": 2, "a": 2, "b": 5, "d": 1}

	got := TopK(counts, 3)
	want := []Count{{"b", 5}, {"a", 2}, {"c", 2}}
	if len(got) != len(want) {
		t.Fatalf("TopK = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("TopK[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	if all := TopK(counts, 0); len(all) != 4 {
		t.Errorf("TopK(0) returned %d entries, want 4", len(all))
	}
	if empty := TopK(nil, 3); len(empty) != 0 {
		t.Errorf("TopK(nil) = %v, want empty", empty)
	}
}

func TestSummarizeResult_SeedsScannedWindows(t *testing.T) {
	stats := domain.NewDetectionStats()
	stats.DetectionsByWindow = map[int]int{1: 1, 2: 0, 10: 0}

	res := &domain.DetectionRunResult{
		Detections: testDetections()[:1],
		Stats:      stats,
	}

	s := SummarizeResult(res, DefaultTopK)
	if len(s.ByWindow) != 3 {
		t.Fatalf("ByWindow = %v, want 3 entries", s.ByWindow)
	}
	if s.ByWindow[0].WindowSeconds != 1 || s.ByWindow[0].Count != 1 {
		t.Errorf("ByWindow[0] = %+v", s.ByWindow[0])
	}
	if s.ByWindow[2].WindowSeconds != 10 || s.ByWindow[2].Count != 0 {
		t.Errorf("ByWindow[2] = %+v", s.ByWindow[2])
	}

	if nilSummary := SummarizeResult(nil, DefaultTopK); nilSummary.TotalDetections != 0 {
		t.Error("nil result should summarize to zero")
	}
}
