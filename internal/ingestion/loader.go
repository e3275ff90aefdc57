package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"solana-sandwich-lab/internal/domain"
)

// Canonical column names.
const (
	ColSignature   = "signature"
	ColSigner      = "signer"
	ColTimestampMs = "timestamp_ms"
	ColSlot        = "slot"
	ColVenue       = "venue"
	ColValidator   = "validator"
	ColFromToken   = "from_token"
	ColToToken     = "to_token"
	ColKind        = "kind"
)

// DefaultKind is the event kind kept when a kind column is present.
const DefaultKind = "TRADE"

// Skip reasons reported in LoadReport.SkipReasons.
const (
	SkipMalformedRow     = "malformed_row"
	SkipInvalidTimestamp = "invalid_timestamp_ms"
	SkipInvalidSlot      = "invalid_slot"
	SkipEmptySigner      = "empty_signer"
	SkipInvalidSigner    = "invalid_signer"
	SkipInvalidValidator = "invalid_validator"
)

var (
	// ErrMissingField is returned when a mandatory column is absent from the input.
	ErrMissingField = errors.New("missing required field")

	// ErrUnsupportedFormat is returned for input files that are neither CSV nor JSONL.
	ErrUnsupportedFormat = errors.New("unsupported input format")
)

// requiredColumns must be present in every input.
var requiredColumns = []string{ColTimestampMs, ColSigner, ColSlot}

// columnAliases maps alternative source column names to canonical ones.
var columnAliases = map[string]string{
	"ms_time":   ColTimestampMs,
	"amm_trade": ColVenue,
}

// SchemaError reports a mandatory field absent from the input.
type SchemaError struct {
	Source string
	Field  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Source, ErrMissingField, e.Field)
}

func (e *SchemaError) Unwrap() error {
	return ErrMissingField
}

// LoadOptions configures record filtering.
type LoadOptions struct {
	Kind            string // kept kind when a kind column exists; empty keeps all
	StrictAddresses bool   // require base58 on-curve signers and base58 validators
}

// DefaultLoadOptions returns options that keep TRADE events only.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{Kind: DefaultKind}
}

// LoadReport counts what happened to every input record.
type LoadReport struct {
	TotalRows   int
	Loaded      int
	Filtered    int            // dropped by the kind filter
	Skipped     int            // malformed, dropped and counted
	SkipReasons map[string]int // reason -> count
}

func newLoadReport() LoadReport {
	return LoadReport{SkipReasons: make(map[string]int)}
}

func (r *LoadReport) skip(reason string) {
	r.Skipped++
	r.SkipReasons[reason]++
}

// Dataset is a loaded, time-ordered event set with its capability descriptor.
type Dataset struct {
	Events       []*domain.TradeEvent
	Capabilities domain.Capabilities
	Report       LoadReport
}

// LoadFile loads a CSV or JSONL file chosen by extension.
func LoadFile(path string, opts LoadOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(f, opts)
	case ".jsonl", ".ndjson", ".json":
		return LoadJSONL(f, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// LoadCSV reads trade events from CSV with a header row.
// Missing mandatory columns fail the load; malformed rows are skipped and counted.
func LoadCSV(r io.Reader, opts LoadOptions) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	ds := &Dataset{Report: newLoadReport()}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return ds, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := resolveColumns(header)
	if err := checkSchema("csv", cols); err != nil {
		return nil, err
	}
	ds.Capabilities = capabilitiesFromColumns(cols)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ds.Report.TotalRows++

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			ds.Report.skip(SkipMalformedRow)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", ds.Report.TotalRows, err)
		}
		if len(record) != len(header) {
			ds.Report.skip(SkipMalformedRow)
			continue
		}

		fields := make(map[string]string, len(cols))
		for name, idx := range cols {
			fields[name] = strings.TrimSpace(record[idx])
		}
		ds.add(fields, opts)
	}

	finish(ds)
	return ds, nil
}

// LoadJSONL reads one JSON object per line. The first object's keys act as
// the schema; later objects missing a mandatory key are skipped.
func LoadJSONL(r io.Reader, opts LoadOptions) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	ds := &Dataset{Report: newLoadReport()}
	schemaChecked := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ds.Report.TotalRows++

		fields, err := decodeJSONRecord([]byte(line))
		if err != nil {
			ds.Report.skip(SkipMalformedRow)
			continue
		}

		if !schemaChecked {
			cols := fieldSet(fields)
			if err := checkSchema("jsonl", cols); err != nil {
				return nil, err
			}
			ds.Capabilities = capabilitiesFromColumns(cols)
			schemaChecked = true
		}

		ds.add(fields, opts)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}

	finish(ds)
	return ds, nil
}

// DetectCapabilities derives capabilities from event contents, for sources
// without a header such as databases and live feeds.
func DetectCapabilities(events []*domain.TradeEvent) domain.Capabilities {
	var caps domain.Capabilities
	for _, e := range events {
		if e.Venue != "" {
			caps.HasVenue = true
		}
		if e.Validator != "" {
			caps.HasValidator = true
		}
		if e.HasTokenPair() {
			caps.HasTokenPair = true
		}
	}
	if caps.HasValidator {
		caps.ValidatorSource = domain.ValidatorSourceInput
	}
	return caps
}

// add converts one record into an event or counts why it was dropped.
func (ds *Dataset) add(fields map[string]string, opts LoadOptions) {
	if kind, ok := fields[ColKind]; ok && opts.Kind != "" && kind != opts.Kind {
		ds.Report.Filtered++
		return
	}

	event, reason := parseTradeEvent(fields, opts)
	if reason != "" {
		ds.Report.skip(reason)
		return
	}
	ds.Events = append(ds.Events, event)
}

func parseTradeEvent(fields map[string]string, opts LoadOptions) (*domain.TradeEvent, string) {
	ts, ok := parseInteger(fields[ColTimestampMs])
	if !ok {
		return nil, SkipInvalidTimestamp
	}
	slot, ok := parseInteger(fields[ColSlot])
	if !ok {
		return nil, SkipInvalidSlot
	}
	signer := fields[ColSigner]
	if signer == "" {
		return nil, SkipEmptySigner
	}

	e := &domain.TradeEvent{
		Signature:   fields[ColSignature],
		Signer:      signer,
		TimestampMs: ts,
		Slot:        slot,
		Venue:       fields[ColVenue],
		Validator:   fields[ColValidator],
		FromToken:   fields[ColFromToken],
		ToToken:     fields[ColToToken],
	}

	if opts.StrictAddresses {
		if err := ValidateAddress(e.Signer, true); err != nil {
			return nil, SkipInvalidSigner
		}
		if e.Validator != "" {
			if err := ValidateAddress(e.Validator, false); err != nil {
				return nil, SkipInvalidValidator
			}
		}
	}

	return e, ""
}

// parseInteger accepts integers and integral floats ("1700000000000.0")
// that fit in an int64.
func parseInteger(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// resolveColumns maps canonical column names to header indexes.
// A canonical name wins over its alias when both are present.
func resolveColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	aliased := make(map[string]int)
	for i, h := range header {
		name := normalizeColumn(h)
		if canonical, ok := columnAliases[name]; ok {
			if _, seen := aliased[canonical]; !seen {
				aliased[canonical] = i
			}
			continue
		}
		if _, seen := cols[name]; !seen {
			cols[name] = i
		}
	}
	for name, idx := range aliased {
		if _, ok := cols[name]; !ok {
			cols[name] = idx
		}
	}
	return cols
}

func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
}

func checkSchema(source string, cols map[string]int) error {
	for _, required := range requiredColumns {
		if _, ok := cols[required]; !ok {
			return &SchemaError{Source: source, Field: required}
		}
	}
	return nil
}

func capabilitiesFromColumns(cols map[string]int) domain.Capabilities {
	_, hasVenue := cols[ColVenue]
	_, hasValidator := cols[ColValidator]
	_, hasFrom := cols[ColFromToken]
	_, hasTo := cols[ColToToken]

	caps := domain.Capabilities{
		HasVenue:     hasVenue,
		HasValidator: hasValidator,
		HasTokenPair: hasFrom && hasTo,
	}
	if hasValidator {
		caps.ValidatorSource = domain.ValidatorSourceInput
	}
	return caps
}

// decodeJSONRecord flattens one JSON object into canonical string fields.
func decodeJSONRecord(line []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(raw))
	aliased := make(map[string]string)
	for key, value := range raw {
		name := normalizeColumn(key)
		var s string
		switch v := value.(type) {
		case nil:
		case string:
			s = strings.TrimSpace(v)
		case json.Number:
			s = v.String()
		case bool:
			s = strconv.FormatBool(v)
		default:
			return nil, fmt.Errorf("field %s: unsupported value type %T", key, value)
		}
		if canonical, ok := columnAliases[name]; ok {
			aliased[canonical] = s
			continue
		}
		fields[name] = s
	}
	for name, s := range aliased {
		if _, ok := fields[name]; !ok {
			fields[name] = s
		}
	}
	return fields, nil
}

// finish orders events and fills the loaded count.
func finish(ds *Dataset) {
	SortTradeEvents(ds.Events)
	ds.Report.Loaded = len(ds.Events)
}
