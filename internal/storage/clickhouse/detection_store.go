package clickhouse

import (
	"context"
	"fmt"

	"solana-sandwich-lab/internal/domain"
	"solana-sandwich-lab/internal/storage"
)

// DetectionStore implements storage.DetectionStore using ClickHouse.
type DetectionStore struct {
	conn *Conn
}

// NewDetectionStore creates a new DetectionStore.
func NewDetectionStore(conn *Conn) *DetectionStore {
	return &DetectionStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DetectionStore = (*DetectionStore)(nil)

const detectionColumns = `
	run_id, detection_id, venue, attacker_signer, victim_signers, victim_count,
	total_trades, attacker_trade_count, victim_ratio,
	window_seconds, start_ms, end_ms, actual_span_ms, start_slot, end_slot, slot_span,
	validator, confidence_label, confidence_score, confidence_reasons, token_pair_validated
`

// InsertBulk adds a run's detections atomically. Fails entire batch on any duplicate.
func (s *DetectionStore) InsertBulk(ctx context.Context, runID string, detections []*domain.SandwichDetection) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(detections) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(detections))
	for _, d := range detections {
		if d == nil || d.DetectionID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[d.DetectionID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[d.DetectionID] = struct{}{}
	}

	// ReplacingMergeTree would silently replace, so enforce append-only here
	exists, err := s.runExists(ctx, runID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO sandwich_detections (`+detectionColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, d := range detections {
		err = batch.Append(
			runID, d.DetectionID, d.Venue, d.AttackerSigner, nonNil(d.VictimSigners), int64(d.VictimCount),
			int64(d.TotalTrades), int64(d.AttackerTradeCount), d.VictimRatio,
			int64(d.WindowSeconds), d.StartMs, d.EndMs, d.ActualSpanMs, d.StartSlot, d.EndSlot, d.SlotSpan,
			d.Validator, d.ConfidenceLabel.String(), int64(d.ConfidenceScore), nonNil(d.ConfidenceReasons), d.TokenPairValidated,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves a run's detections ordered by start_ms ASC, detection_id ASC.
func (s *DetectionStore) GetByRunID(ctx context.Context, runID string) ([]*domain.SandwichDetection, error) {
	query := `SELECT ` + detectionColumns + `
		FROM sandwich_detections FINAL
		WHERE run_id = ?
		ORDER BY start_ms ASC, detection_id ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanDetections(rows)
}

// GetByAttacker retrieves all detections for an attacker across runs.
func (s *DetectionStore) GetByAttacker(ctx context.Context, attacker string) ([]*domain.SandwichDetection, error) {
	query := `SELECT ` + detectionColumns + `
		FROM sandwich_detections FINAL
		WHERE attacker_signer = ?
		ORDER BY start_ms ASC, detection_id ASC
	`

	rows, err := s.conn.Query(ctx, query, attacker)
	if err != nil {
		return nil, fmt.Errorf("query by attacker: %w", err)
	}
	defer rows.Close()

	return scanDetections(rows)
}

// runExists checks whether any detection was already stored for runID.
func (s *DetectionStore) runExists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM sandwich_detections WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanDetections scans multiple rows into a slice.
func scanDetections(rows chRows) ([]*domain.SandwichDetection, error) {
	detections := []*domain.SandwichDetection{}

	for rows.Next() {
		var (
			d                                        domain.SandwichDetection
			runID, label                             string
			victimCount, totalTrades, attackerTrades int64
			windowSeconds, score                     int64
		)
		err := rows.Scan(
			&runID, &d.DetectionID, &d.Venue, &d.AttackerSigner, &d.VictimSigners, &victimCount,
			&totalTrades, &attackerTrades, &d.VictimRatio,
			&windowSeconds, &d.StartMs, &d.EndMs, &d.ActualSpanMs, &d.StartSlot, &d.EndSlot, &d.SlotSpan,
			&d.Validator, &label, &score, &d.ConfidenceReasons, &d.TokenPairValidated,
		)
		if err != nil {
			return nil, fmt.Errorf("scan detection row: %w", err)
		}
		d.VictimCount = int(victimCount)
		d.TotalTrades = int(totalTrades)
		d.AttackerTradeCount = int(attackerTrades)
		d.WindowSeconds = int(windowSeconds)
		d.ConfidenceScore = int(score)
		d.ConfidenceLabel = domain.ConfidenceLabel(label)
		detections = append(detections, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detection rows: %w", err)
	}

	return detections, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
