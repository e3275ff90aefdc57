package reporting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"solana-sandwich-lab/internal/detection"
	"solana-sandwich-lab/internal/domain"
	"solana-sandwich-lab/internal/ingestion"
	"solana-sandwich-lab/internal/metrics"
	"solana-sandwich-lab/internal/storage"
)

// Output file names inside the report directory.
const (
	DetectionsFile = "detections.csv"
	ReportFile     = "report.md"
)

// Generator produces run reports.
type Generator struct {
	config detection.Config
	topK   int
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator for runs made with cfg.
// topK <= 0 uses metrics.DefaultTopK.
func NewGenerator(cfg detection.Config, topK int) *Generator {
	if topK <= 0 {
		topK = metrics.DefaultTopK
	}
	return &Generator{
		config: cfg,
		topK:   topK,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// FromResult builds a report for a completed run.
// input may be nil when events did not come from a file.
func (g *Generator) FromResult(result *domain.DetectionRunResult, input *ingestion.LoadReport) *Report {
	r := &Report{
		GeneratedAt: g.now(),
		Config:      summarizeConfig(g.config),
		Input:       input,
		Summary:     metrics.SummarizeResult(result, g.topK),
	}
	if result == nil {
		return r
	}

	r.RunID = result.RunID
	r.EventsProcessed = result.EventsProcessed
	r.Partial = result.Partial
	r.SkippedPartitions = append([]string(nil), result.SkippedPartitions...)
	r.Capabilities = result.Capabilities
	r.Stats = statRows(result.Stats)
	return r
}

// FromStore builds a report for a persisted run.
// Run counters and input metadata are not stored, so only the summary is filled.
func (g *Generator) FromStore(ctx context.Context, store storage.DetectionStore, runID string) (*Report, error) {
	summary, err := metrics.NewAggregator(store).SummarizeRun(ctx, runID, g.topK)
	if err != nil {
		return nil, err
	}
	return &Report{
		GeneratedAt: g.now(),
		RunID:       runID,
		Config:      summarizeConfig(g.config),
		Summary:     summary,
	}, nil
}

// Compare attaches a method comparison against a baseline count.
func (g *Generator) Compare(r *Report, baseline int, detections []*domain.SandwichDetection) {
	r.Comparison = metrics.CompareMethods(baseline, detections)
}

// Files lists what WriteFiles produced. Empty paths were not written.
type Files struct {
	DetectionsCSV string
	Report        string
}

// WriteFiles writes the detections table and/or the Markdown report into dir.
func WriteFiles(dir string, r *Report, detections []*domain.SandwichDetection, writeCSV, writeReport bool) (Files, error) {
	var files Files
	if !writeCSV && !writeReport {
		return files, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return files, fmt.Errorf("create output dir: %w", err)
	}

	if writeCSV {
		path := filepath.Join(dir, DetectionsFile)
		if err := writeDetectionsFile(path, detections); err != nil {
			return files, err
		}
		files.DetectionsCSV = path
	}

	if writeReport {
		path := filepath.Join(dir, ReportFile)
		if err := os.WriteFile(path, []byte(RenderMarkdown(r)), 0o644); err != nil {
			return files, fmt.Errorf("write report: %w", err)
		}
		files.Report = path
	}

	return files, nil
}

func writeDetectionsFile(path string, detections []*domain.SandwichDetection) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteDetectionsCSV(f, detections); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadDetectionsFile reads a detections CSV from disk.
func ReadDetectionsFile(path string) ([]*domain.SandwichDetection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadDetectionsCSV(f)
}
