// Package orchestrator runs one detection end to end.
// It coordinates: load → enrich → detect → report → persist → publish
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solana-sandwich-lab/internal/detection"
	"solana-sandwich-lab/internal/domain"
	"solana-sandwich-lab/internal/ingestion"
	"solana-sandwich-lab/internal/observability"
	"solana-sandwich-lab/internal/publish"
	"solana-sandwich-lab/internal/reporting"
	"solana-sandwich-lab/internal/storage"
)

// Enricher fills in fields the input lacks.
type Enricher interface {
	Enrich(ctx context.Context, events []*domain.TradeEvent, caps domain.Capabilities) ([]*domain.TradeEvent, domain.Capabilities, error)
}

// Orchestrator coordinates one detection run.
type Orchestrator struct {
	source    EventSource
	enricher  Enricher
	detector  *detection.Detector
	store     storage.DetectionStore
	storeName string
	publisher publish.Publisher
	generator *reporting.Generator
	output    OutputOptions
	baseline  int
	runID     string

	log     zerolog.Logger
	metrics *observability.Metrics
}

// OutputOptions controls the files written per run.
type OutputOptions struct {
	Dir         string
	WriteCSV    bool
	WriteReport bool
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Source   EventSource
	Detector *detection.Detector

	// Optional stages; nil skips the stage
	Enricher       Enricher
	DetectionStore storage.DetectionStore
	StoreName      string // metrics label for DetectionStore
	Publisher      publish.Publisher

	Output   OutputOptions
	Baseline int // > 0 adds a method comparison to the report
	TopK     int
	RunID    string // generated when empty
	Clock    func() time.Time

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// ErrMissingOption is returned by New when a required option is unset.
var ErrMissingOption = errors.New("missing orchestrator option")

// New creates a new Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("%w: source", ErrMissingOption)
	}
	if opts.Detector == nil {
		return nil, fmt.Errorf("%w: detector", ErrMissingOption)
	}

	gen := reporting.NewGenerator(opts.Detector.Config(), opts.TopK)
	if opts.Clock != nil {
		gen.WithClock(opts.Clock)
	}

	return &Orchestrator{
		source:    opts.Source,
		enricher:  opts.Enricher,
		detector:  opts.Detector,
		store:     opts.DetectionStore,
		storeName: opts.StoreName,
		publisher: opts.Publisher,
		generator: gen,
		output:    opts.Output,
		baseline:  opts.Baseline,
		runID:     opts.RunID,
		log:       opts.Logger,
		metrics:   opts.Metrics,
	}, nil
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	RunID     string
	Input     ingestion.LoadReport
	Result    *domain.DetectionRunResult
	Report    *reporting.Report
	Files     reporting.Files
	Persisted bool
	Published int
}

// Run executes the full pipeline.
// Phases:
//  1. Load events from the source
//  2. Resolve missing validators (optional)
//  3. Detect
//  4. Build the report and write output files
//  5. Persist detections (optional)
//  6. Publish detections (optional)
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	runID := o.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := o.log.With().Str("run_id", runID).Logger()
	out := &RunResult{RunID: runID}

	// Phase 1: Load
	log.Info().Str("source", o.source.Name()).Msg("phase 1: loading events")
	ds, err := o.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load events) failed: %w", err)
	}
	out.Input = ds.Report
	o.metrics.RecordEventsLoaded(o.source.Name(), len(ds.Events))
	o.metrics.RecordSkipped(ds.Report.SkipReasons)
	log.Info().
		Int("loaded", ds.Report.Loaded).
		Int("filtered", ds.Report.Filtered).
		Int("skipped", ds.Report.Skipped).
		Strs("disabled_features", ds.Capabilities.DisabledFeatures()).
		Msg("events loaded")

	events, caps := ds.Events, ds.Capabilities

	// Phase 2: Enrich
	if o.enricher != nil && !caps.HasValidator && len(events) > 0 {
		log.Info().Msg("phase 2: resolving validators")
		events, caps, err = o.enricher.Enrich(ctx, events, caps)
		if err != nil {
			return nil, fmt.Errorf("phase 2 (resolve validators) failed: %w", err)
		}
	} else {
		log.Debug().Msg("phase 2: skipping validator resolution")
	}

	// Phase 3: Detect
	log.Info().Int("events", len(events)).Msg("phase 3: detecting")
	result, err := o.detector.Run(ctx, events, caps)
	if err != nil {
		return nil, fmt.Errorf("phase 3 (detect) failed: %w", err)
	}
	result.RunID = runID
	out.Result = result

	// Phase 4: Report
	log.Info().Msg("phase 4: writing report")
	report := o.generator.FromResult(result, &out.Input)
	if o.baseline > 0 {
		o.generator.Compare(report, o.baseline, result.Detections)
	}
	out.Report = report

	files, err := reporting.WriteFiles(o.output.Dir, report, result.Detections, o.output.WriteCSV, o.output.WriteReport)
	if err != nil {
		return nil, fmt.Errorf("phase 4 (write report) failed: %w", err)
	}
	out.Files = files

	// Phase 5: Persist
	if o.store != nil {
		log.Info().Msg("phase 5: persisting detections")
		start := time.Now()
		err := o.store.InsertBulk(ctx, runID, result.Detections)
		o.metrics.RecordDBQuery(o.storeName, "insert_detections", time.Since(start), err)
		if err != nil {
			return nil, fmt.Errorf("phase 5 (persist detections) failed: %w", err)
		}
		out.Persisted = true
	}

	// Phase 6: Publish
	if o.publisher != nil && len(result.Detections) > 0 {
		log.Info().Msg("phase 6: publishing detections")
		if err := o.publisher.PublishDetections(ctx, runID, result.Detections); err != nil {
			return nil, fmt.Errorf("phase 6 (publish detections) failed: %w", err)
		}
		out.Published = len(result.Detections)
	}

	log.Info().
		Int("detections", len(result.Detections)).
		Bool("partial", result.Partial).
		Str("csv", files.DetectionsCSV).
		Str("report", files.Report).
		Msg("run complete")

	return out, nil
}
