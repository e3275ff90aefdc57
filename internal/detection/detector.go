package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"solana-sandwich-lab/internal/domain"
	"solana-sandwich-lab/internal/idhash"
	"solana-sandwich-lab/internal/ingestion"
	"solana-sandwich-lab/internal/observability"
)

// Detector runs the scan -> validate -> score pipeline over a closed event set.
type Detector struct {
	cfg     Config
	log     zerolog.Logger
	metrics *observability.Metrics
}

// Option configures Detector.
type Option func(*Detector)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Detector) {
		d.log = log
	}
}

// WithMetrics sets the metrics sink. nil disables metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Detector) {
		d.metrics = m
	}
}

// NewDetector validates cfg and creates a Detector.
func NewDetector(cfg Config, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	d := &Detector{
		cfg: cfg,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns the effective configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// partition is one independent unit of work: a venue scanned with one window size.
type partition struct {
	venue         string
	windowSeconds int
	events        []*domain.TradeEvent

	// written only by the worker that owns this partition
	detections []*domain.SandwichDetection
	stats      *domain.DetectionStats
	skipped    bool
}

func (p *partition) key() string {
	return fmt.Sprintf("%s/%ds", p.venue, p.windowSeconds)
}

// Run scans every (venue, window size) partition and merges the results.
//
// Partitions run concurrently, each into its own buffer, and are merged in
// venue ASC then configured window order. When the configured deadline
// expires, partitions not yet started are skipped and the result is marked
// Partial; collected detections stay valid and no error is returned.
// Cancellation of ctx itself is returned as an error.
func (d *Detector) Run(ctx context.Context, events []*domain.TradeEvent, caps domain.Capabilities) (*domain.DetectionRunResult, error) {
	start := time.Now()

	runCtx := ctx
	if d.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.cfg.Deadline)
		defer cancel()
	}

	venues := ingestion.PartitionByVenue(events, caps.HasVenue)
	parts := d.plan(venues)

	validator := NewPatternValidator(d.cfg, caps)

	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)
	for _, p := range parts {
		p := p
		g.Go(func() error {
			if runCtx.Err() != nil {
				p.skipped = true
				return nil
			}
			d.scanPartition(p, validator, caps)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		d.metrics.RecordRun(observability.StatusFailed, time.Since(start))
		return nil, fmt.Errorf("detection run cancelled: %w", err)
	}

	result := d.merge(parts, caps, len(events))

	status := observability.StatusSuccess
	if result.Partial {
		status = observability.StatusPartial
		d.log.Warn().
			Int("skipped", len(result.SkippedPartitions)).
			Int("total", len(parts)).
			Dur("deadline", d.cfg.Deadline).
			Msg("deadline reached, returning partial result")
	}
	d.metrics.RecordPartitionsSkipped(len(result.SkippedPartitions))
	d.metrics.RecordRun(status, time.Since(start))

	d.log.Info().
		Int("events", len(events)).
		Int("venues", len(venues)).
		Int("detections", len(result.Detections)).
		Int("windows_checked", result.Stats.WindowsChecked).
		Bool("partial", result.Partial).
		Dur("elapsed", time.Since(start)).
		Msg("detection run complete")

	return result, nil
}

// plan builds the partition list in merge order.
func (d *Detector) plan(venues map[string][]*domain.TradeEvent) []*partition {
	names := ingestion.Venues(venues)
	parts := make([]*partition, 0, len(names)*len(d.cfg.WindowSeconds))
	for _, venue := range names {
		for _, w := range d.cfg.WindowSeconds {
			parts = append(parts, &partition{
				venue:         venue,
				windowSeconds: w,
				events:        venues[venue],
				stats:         domain.NewDetectionStats(),
			})
		}
	}
	return parts
}

// scanPartition runs the pipeline over one partition into its own buffer.
func (d *Detector) scanPartition(p *partition, validator *PatternValidator, caps domain.Capabilities) {
	started := time.Now()
	scanner := NewScanner(p.venue, p.windowSeconds, p.events)
	seen := make(map[string]struct{})

	checked := scanner.Scan(func(c *domain.WindowCandidate) int {
		p.stats.WindowsChecked++

		confirmed, stage := validator.Validate(c, p.stats)
		if stage != StageNone {
			d.metrics.RecordRejection(string(stage))
			return 1
		}

		det := buildDetection(c, confirmed, caps)
		// tied anchors share one view; report the bracket once
		if _, dup := seen[det.DetectionID]; dup {
			return advanceAfterDetection(confirmed.AttackerTradeCount)
		}
		seen[det.DetectionID] = struct{}{}
		p.detections = append(p.detections, det)
		p.stats.DetectionsByWindow[p.windowSeconds]++
		p.stats.RecordConfidence(det.ConfidenceLabel)
		d.metrics.RecordDetection(p.windowSeconds, det.ConfidenceLabel.String())

		return advanceAfterDetection(confirmed.AttackerTradeCount)
	})

	d.metrics.RecordPartition(p.windowSeconds, checked, time.Since(started))
	d.progress().
		Str("venue", p.venue).
		Int("window_seconds", p.windowSeconds).
		Int("events", len(p.events)).
		Int("windows", checked).
		Int("detections", len(p.detections)).
		Msg("partition scanned")
}

// progress returns the event used for per-partition progress logs.
func (d *Detector) progress() *zerolog.Event {
	if d.cfg.Verbose {
		return d.log.Info()
	}
	return d.log.Debug()
}

// merge combines partition buffers in plan order. Not concurrent.
func (d *Detector) merge(parts []*partition, caps domain.Capabilities, eventCount int) *domain.DetectionRunResult {
	result := &domain.DetectionRunResult{
		Stats:           domain.NewDetectionStats(),
		Capabilities:    caps,
		EventsProcessed: eventCount,
		Detections:      []*domain.SandwichDetection{},
	}
	for _, w := range d.cfg.WindowSeconds {
		result.Stats.DetectionsByWindow[w] = 0
	}

	for _, p := range parts {
		result.Stats.PartitionsTotal++
		if p.skipped {
			result.Stats.PartitionsSkipped++
			result.SkippedPartitions = append(result.SkippedPartitions, p.key())
			continue
		}
		result.Detections = append(result.Detections, p.detections...)
		result.Stats.Merge(p.stats)
	}
	result.Partial = len(result.SkippedPartitions) > 0

	return result
}

// buildDetection turns a confirmed candidate into an output record.
func buildDetection(c *domain.WindowCandidate, conf *Confirmed, caps domain.Capabilities) *domain.SandwichDetection {
	first := c.Events[0]
	last := c.Events[len(c.Events)-1]

	score := ScoreConfidence(ScoreInput{
		VictimRatio:        conf.VictimRatio,
		AttackerTradeCount: conf.AttackerTradeCount,
		TokenPairValidated: conf.TokenPairValidated,
		WindowSeconds:      c.WindowSeconds,
		VictimCount:        len(conf.Victims),
	})

	validator := ""
	if caps.HasValidator {
		validator = first.Validator
	}

	return &domain.SandwichDetection{
		DetectionID:        idhash.ComputeDetectionID(c.Venue, conf.Attacker, c.WindowSeconds, first.TimestampMs, first.Slot),
		Venue:              c.Venue,
		AttackerSigner:     conf.Attacker,
		VictimSigners:      conf.Victims,
		VictimCount:        len(conf.Victims),
		TotalTrades:        len(c.Events),
		AttackerTradeCount: conf.AttackerTradeCount,
		VictimRatio:        conf.VictimRatio,
		WindowSeconds:      c.WindowSeconds,
		StartMs:            first.TimestampMs,
		EndMs:              last.TimestampMs,
		ActualSpanMs:       last.TimestampMs - first.TimestampMs,
		StartSlot:          first.Slot,
		EndSlot:            last.Slot,
		SlotSpan:           last.Slot - first.Slot,
		Validator:          validator,
		ConfidenceLabel:    score.Label,
		ConfidenceScore:    score.Value,
		ConfidenceReasons:  score.Reasons,
		TokenPairValidated: conf.TokenPairValidated,
	}
}
