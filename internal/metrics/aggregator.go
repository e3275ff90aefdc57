package metrics

import (
	"context"
	"fmt"

	"solana-sandwich-lab/internal/storage"
)

// Aggregator computes summaries for runs persisted in a DetectionStore.
type Aggregator struct {
	store storage.DetectionStore
}

// NewAggregator creates a new store-backed aggregator.
func NewAggregator(store storage.DetectionStore) *Aggregator {
	return &Aggregator{store: store}
}

// SummarizeRun loads a run's detections and summarizes them.
// Unknown runs yield an empty summary.
func (a *Aggregator) SummarizeRun(ctx context.Context, runID string, topK int) (*Summary, error) {
	if runID == "" {
		return nil, fmt.Errorf("summarize run: %w", storage.ErrInvalidInput)
	}

	detections, err := a.store.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load detections for run %s: %w", runID, err)
	}

	return Summarize(detections, topK), nil
}

// CompareRuns treats the detection count of baselineRunID as the baseline
// and compares runID against it.
func (a *Aggregator) CompareRuns(ctx context.Context, baselineRunID, runID string) (*Comparison, error) {
	if baselineRunID == "" || runID == "" {
		return nil, fmt.Errorf("compare runs: %w", storage.ErrInvalidInput)
	}

	baseline, err := a.store.GetByRunID(ctx, baselineRunID)
	if err != nil {
		return nil, fmt.Errorf("load baseline run %s: %w", baselineRunID, err)
	}
	current, err := a.store.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	return CompareMethods(len(baseline), current), nil
}
