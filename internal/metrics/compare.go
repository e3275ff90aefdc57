package metrics

import (
	"solana-sandwich-lab/internal/domain"
)

// Quality classifies how much a new method reduced detections.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// Reduction thresholds in percent (strictly greater than).
const (
	highReductionPct   = 50.0
	mediumReductionPct = 30.0
)

// Comparison is the result of comparing a baseline count with a new run.
type Comparison struct {
	BaselineCount   int
	NewCount        int
	Reduction       int     // negative when the new method finds more
	ReductionPct    float64 // 0 when baseline is 0
	Quality         Quality
	MeanSpanSeconds float64
	MaxSpanSeconds  float64
}

// CompareMethods compares a baseline detection count against new detections.
func CompareMethods(baseline int, detections []*domain.SandwichDetection) *Comparison {
	n := len(detections)
	reduction := baseline - n

	var pct float64
	if baseline > 0 {
		pct = float64(reduction) / float64(baseline) * 100
	}

	span := SpanDistribution(detections)

	return &Comparison{
		BaselineCount:   baseline,
		NewCount:        n,
		Reduction:       reduction,
		ReductionPct:    pct,
		Quality:         classifyReduction(pct),
		MeanSpanSeconds: span.MeanMs / 1000,
		MaxSpanSeconds:  float64(span.MaxMs) / 1000,
	}
}

func classifyReduction(pct float64) Quality {
	switch {
	case pct > highReductionPct:
		return QualityHigh
	case pct > mediumReductionPct:
		return QualityMedium
	default:
		return QualityLow
	}
}
