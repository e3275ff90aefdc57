package reporting

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"solana-sandwich-lab/internal/domain"
)

// listSeparator joins set-valued columns inside one CSV cell.
const listSeparator = ";"

// detectionColumns is the detections CSV header, in order.
var detectionColumns = []string{
	"detection_id", "venue", "attacker_signer", "victim_signers", "victim_count",
	"total_trades", "attacker_trade_count", "victim_ratio",
	"window_seconds", "start_ms", "end_ms", "actual_span_ms",
	"start_slot", "end_slot", "slot_span", "validator",
	"confidence_label", "confidence_score", "confidence_reasons", "token_pair_validated",
}

// WriteDetectionsCSV writes detections with a header row.
func WriteDetectionsCSV(w io.Writer, detections []*domain.SandwichDetection) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(detectionColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, d := range detections {
		row := []string{
			d.DetectionID,
			d.Venue,
			d.AttackerSigner,
			strings.Join(d.VictimSigners, listSeparator),
			strconv.Itoa(d.VictimCount),
			strconv.Itoa(d.TotalTrades),
			strconv.Itoa(d.AttackerTradeCount),
			strconv.FormatFloat(d.VictimRatio, 'f', -1, 64),
			strconv.Itoa(d.WindowSeconds),
			strconv.FormatInt(d.StartMs, 10),
			strconv.FormatInt(d.EndMs, 10),
			strconv.FormatInt(d.ActualSpanMs, 10),
			strconv.FormatInt(d.StartSlot, 10),
			strconv.FormatInt(d.EndSlot, 10),
			strconv.FormatInt(d.SlotSpan, 10),
			d.Validator,
			d.ConfidenceLabel.String(),
			strconv.Itoa(d.ConfidenceScore),
			strings.Join(d.ConfidenceReasons, listSeparator),
			strconv.FormatBool(d.TokenPairValidated),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", d.DetectionID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadDetectionsCSV parses a file produced by WriteDetectionsCSV.
// Columns are located by header name, so extra columns are ignored.
func ReadDetectionsCSV(r io.Reader) ([]*domain.SandwichDetection, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range detectionColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("detections csv: missing column %s", col)
		}
	}

	var detections []*domain.SandwichDetection
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		d, err := parseDetectionRow(record, idx)
		if err != nil {
			return nil, fmt.Errorf("detections csv line %d: %w", line, err)
		}
		detections = append(detections, d)
	}

	return detections, nil
}

// rowParser accumulates the first conversion error of a row.
type rowParser struct {
	record []string
	idx    map[string]int
	err    error
}

func (p *rowParser) str(col string) string {
	return p.record[p.idx[col]]
}

func (p *rowParser) int64(col string) int64 {
	v, err := strconv.ParseInt(p.str(col), 10, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", col, err)
	}
	return v
}

func (p *rowParser) int(col string) int {
	return int(p.int64(col))
}

func (p *rowParser) float(col string) float64 {
	v, err := strconv.ParseFloat(p.str(col), 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", col, err)
	}
	return v
}

func (p *rowParser) bool(col string) bool {
	v, err := strconv.ParseBool(p.str(col))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", col, err)
	}
	return v
}

func (p *rowParser) list(col string) []string {
	s := p.str(col)
	if s == "" {
		return nil
	}
	return strings.Split(s, listSeparator)
}

func parseDetectionRow(record []string, idx map[string]int) (*domain.SandwichDetection, error) {
	p := &rowParser{record: record, idx: idx}

	d := &domain.SandwichDetection{
		DetectionID:        p.str("detection_id"),
		Venue:              p.str("venue"),
		AttackerSigner:     p.str("attacker_signer"),
		VictimSigners:      p.list("victim_signers"),
		VictimCount:        p.int("victim_count"),
		TotalTrades:        p.int("total_trades"),
		AttackerTradeCount: p.int("attacker_trade_count"),
		VictimRatio:        p.float("victim_ratio"),
		WindowSeconds:      p.int("window_seconds"),
		StartMs:            p.int64("start_ms"),
		EndMs:              p.int64("end_ms"),
		ActualSpanMs:       p.int64("actual_span_ms"),
		StartSlot:          p.int64("start_slot"),
		EndSlot:            p.int64("end_slot"),
		SlotSpan:           p.int64("slot_span"),
		Validator:          p.str("validator"),
		ConfidenceLabel:    domain.ConfidenceLabel(p.str("confidence_label")),
		ConfidenceScore:    p.int("confidence_score"),
		ConfidenceReasons:  p.list("confidence_reasons"),
		TokenPairValidated: p.bool("token_pair_validated"),
	}
	if p.err != nil {
		return nil, p.err
	}
	if !d.ConfidenceLabel.IsValid() {
		return nil, fmt.Errorf("confidence_label: unknown value %q", d.ConfidenceLabel)
	}
	return d, nil
}
