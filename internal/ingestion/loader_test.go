package ingestion

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sandwich-lab/internal/domain"
)

func TestLoadCSV_FullSchema(t *testing.T) {
	input := `signature,signer,timestamp_ms,slot,venue,validator,from_token,to_token,kind
s3,B,2000,101,pool-1,L1,USDC,SOL,TRADE
s1,A,1000,100,pool-1,L1,SOL,USDC,TRADE
s2,A,1000,100,pool-2,L1,SOL,USDC,TRADE
`
	ds, err := LoadCSV(strings.NewReader(input), DefaultLoadOptions())
	require.NoError(t, err)

	require.Len(t, ds.Events, 3)
	assert.Equal(t, "s1", ds.Events[0].Signature, "ties keep input order")
	assert.Equal(t, "s2", ds.Events[1].Signature)
	assert.Equal(t, "s3", ds.Events[2].Signature)
	assert.Equal(t, "USDC", ds.Events[2].FromToken)

	assert.Equal(t, domain.Capabilities{
		HasVenue:        true,
		HasValidator:    true,
		HasTokenPair:    true,
		ValidatorSource: domain.ValidatorSourceInput,
	}, ds.Capabilities)
	assert.Equal(t, 3, ds.Report.TotalRows)
	assert.Equal(t, 3, ds.Report.Loaded)
	assert.Zero(t, ds.Report.Skipped)
}

func TestLoadCSV_MissingMandatoryField(t *testing.T) {
	for _, field := range []string{"signer", "timestamp_ms", "slot"} {
		t.Run(field, func(t *testing.T) {
			cols := []string{"signer", "timestamp_ms", "slot", "venue"}
			var kept []string
			for _, c := range cols {
				if c != field {
					kept = append(kept, c)
				}
			}
			input := strings.Join(kept, ",") + "\nA,1,2\n"

			_, err := LoadCSV(strings.NewReader(input), DefaultLoadOptions())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingField))

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, field, schemaErr.Field)
		})
	}
}

func TestLoadCSV_AliasesAndOptionalFields(t *testing.T) {
	input := "Signer,MS_TIME,slot,amm_trade\nA,1000,10,HumidiFi\n"

	ds, err := LoadCSV(strings.NewReader(input), DefaultLoadOptions())
	require.NoError(t, err)
	require.Len(t, ds.Events, 1)

	assert.Equal(t, int64(1000), ds.Events[0].TimestampMs)
	assert.Equal(t, "HumidiFi", ds.Events[0].Venue)
	assert.True(t, ds.Capabilities.HasVenue)
	assert.False(t, ds.Capabilities.HasValidator)
	assert.False(t, ds.Capabilities.HasTokenPair)
	assert.Equal(t, []string{"validator_stats", "token_pair_check"}, ds.Capabilities.DisabledFeatures())
}

func TestLoadCSV_CanonicalWinsOverAlias(t *testing.T) {
	input := "signer,ms_time,timestamp_ms,slot\nA,1,2000,10\n"

	ds, err := LoadCSV(strings.NewReader(input), DefaultLoadOptions())
	require.NoError(t, err)
	require.Len(t, ds.Events, 1)
	assert.Equal(t, int64(2000), ds.Events[0].TimestampMs)
}

func TestLoadCSV_SkipAndCount(t *testing.T) {
	input := `signer,timestamp_ms,slot,kind
A,1000,10,TRADE
B,notanumber,10,TRADE
C,1000,,TRADE
,1000,10,TRADE
D,1000.0,11,TRADE
E,1000,10
F,1000,10,TRANSFER
`
	ds, err := LoadCSV(strings.NewReader(input), DefaultLoadOptions())
	require.NoError(t, err)

	assert.Equal(t, 7, ds.Report.TotalRows)
	assert.Equal(t, 2, ds.Report.Loaded)
	assert.Equal(t, 1, ds.Report.Filtered)
	assert.Equal(t, 4, ds.Report.Skipped)
	assert.Equal(t, map[string]int{
		SkipInvalidTimestamp: 1,
		SkipInvalidSlot:      1,
		SkipEmptySigner:      1,
		SkipMalformedRow:     1,
	}, ds.Report.SkipReasons)
}

func TestLoadCSV_OutOfRangeTimestamp(t *testing.T) {
	input := `signer,timestamp_ms,slot
A,1e30,10
B,-1e30,10
C,9223372036854775808,10
D,1700000000000.0,11
`
	ds, err := LoadCSV(strings.NewReader(input), DefaultLoadOptions())
	require.NoError(t, err)

	require.Len(t, ds.Events, 1)
	assert.Equal(t, "D", ds.Events[0].Signer)
	assert.Equal(t, int64(1700000000000), ds.Events[0].TimestampMs)
	assert.Equal(t, map[string]int{SkipInvalidTimestamp: 3}, ds.Report.SkipReasons)
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{"42", 42, true},
		{"42.0", 42, true},
		{"-7", -7, true},
		{"1.5", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"1e30", 0, false},
		{"-1e30", 0, false},
		{"9.3e18", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseInteger(tt.in)
		assert.Equal(t, tt.wantOK, ok, "parseInteger(%q) ok", tt.in)
		assert.Equal(t, tt.want, got, "parseInteger(%q)", tt.in)
	}
}

func TestLoadCSV_KindFilterDisabled(t *testing.T) {
	input := "signer,timestamp_ms,slot,kind\nA,1,1,TRANSFER\n"

	ds, err := LoadCSV(strings.NewReader(input), LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, ds.Events, 1)
}

func TestLoadCSV_StrictAddresses(t *testing.T) {
	signer := onCurveAddress(t)
	input := "signer,timestamp_ms,slot\n" +
		signer + ",1,1\n" +
		offCurveAddress(t) + ",2,2\n" +
		"not-an-address,3,3\n"

	ds, err := LoadCSV(strings.NewReader(input), LoadOptions{StrictAddresses: true})
	require.NoError(t, err)

	require.Len(t, ds.Events, 1)
	assert.Equal(t, signer, ds.Events[0].Signer)
	assert.Equal(t, 2, ds.Report.SkipReasons[SkipInvalidSigner])
}

func TestLoadCSV_Empty(t *testing.T) {
	ds, err := LoadCSV(strings.NewReader(""), DefaultLoadOptions())
	require.NoError(t, err)
	assert.Empty(t, ds.Events)
}

func TestLoadJSONL(t *testing.T) {
	input := `{"signer":"A","ms_time":1000,"slot":10,"amm_trade":"pool-1","kind":"TRADE"}

{"signer":"B","ms_time":"900","slot":9,"amm_trade":"pool-1","kind":"TRADE"}
{not json}
{"signer":"C","ms_time":1100,"slot":11,"kind":"TRANSFER"}
{"signer":"D","slot":12,"kind":"TRADE"}
`
	ds, err := LoadJSONL(strings.NewReader(input), DefaultLoadOptions())
	require.NoError(t, err)

	require.Len(t, ds.Events, 2)
	assert.Equal(t, "B", ds.Events[0].Signer)
	assert.Equal(t, "A", ds.Events[1].Signer)
	assert.True(t, ds.Capabilities.HasVenue)
	assert.Equal(t, 5, ds.Report.TotalRows)
	assert.Equal(t, 1, ds.Report.Filtered)
	assert.Equal(t, 1, ds.Report.SkipReasons[SkipMalformedRow])
	assert.Equal(t, 1, ds.Report.SkipReasons[SkipInvalidTimestamp])
}

func TestLoadJSONL_MissingMandatoryField(t *testing.T) {
	_, err := LoadJSONL(strings.NewReader(`{"signer":"A","timestamp_ms":1}`+"\n"), DefaultLoadOptions())
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "trades.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("signer,timestamp_ms,slot\nA,1,1\n"), 0o644))
	ds, err := LoadFile(csvPath, DefaultLoadOptions())
	require.NoError(t, err)
	assert.Len(t, ds.Events, 1)

	jsonlPath := filepath.Join(dir, "trades.jsonl")
	require.NoError(t, os.WriteFile(jsonlPath, []byte(`{"signer":"A","timestamp_ms":1,"slot":1}`+"\n"), 0o644))
	ds, err = LoadFile(jsonlPath, DefaultLoadOptions())
	require.NoError(t, err)
	assert.Len(t, ds.Events, 1)

	_, err = LoadFile(filepath.Join(dir, "trades.parquet"), DefaultLoadOptions())
	assert.Error(t, err)
}

func TestDetectCapabilities(t *testing.T) {
	events := []*domain.TradeEvent{
		{Signer: "A", Venue: "pool"},
		{Signer: "B", FromToken: "SOL"},
	}
	caps := DetectCapabilities(events)
	assert.True(t, caps.HasVenue)
	assert.False(t, caps.HasValidator)
	assert.False(t, caps.HasTokenPair)
	assert.Empty(t, caps.ValidatorSource)

	events = append(events, &domain.TradeEvent{Signer: "C", Validator: "L", FromToken: "SOL", ToToken: "USDC"})
	caps = DetectCapabilities(events)
	assert.True(t, caps.HasValidator)
	assert.True(t, caps.HasTokenPair)
	assert.Equal(t, domain.ValidatorSourceInput, caps.ValidatorSource)
}
