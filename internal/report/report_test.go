package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixaill76/ads_insight_agent/internal/metrics"
)

func sampleBundle(t *testing.T) *metrics.Bundle {
	t.Helper()
	agg, err := metrics.NewAggregator(metrics.DimensionCampaign, 2)
	require.NoError(t, err)

	records := []metrics.AdRecord{
		{
			Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Dimensions:  map[string]string{metrics.DimensionCampaign: "Zebra"},
			Spend:       decimal.RequireFromString("10"),
			Sales:       decimal.RequireFromString("20"),
			Clicks:      5,
			Impressions: 100,
			Orders:      2,
		},
		{
			Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Dimensions:  map[string]string{metrics.DimensionCampaign: "Alpha"},
			Spend:       decimal.Zero,
			Sales:       decimal.Zero,
			Clicks:      0,
			Impressions: 50,
			Orders:      0,
		},
	}

	bundle, err := agg.Aggregate(records, metrics.RunInfo{
		RunID:       "run1",
		GeneratedAt: time.Date(2024, 3, 17, 12, 0, 0, 0, time.UTC),
		StartDate:   "2024-03-01",
		Malformed:   1,
		OutOfRange:  2,
	})
	require.NoError(t, err)
	return bundle
}

func assertBundlesEqual(t *testing.T, want, got *metrics.Bundle) {
	t.Helper()

	assert.Equal(t, want.Metadata.RunID, got.Metadata.RunID)
	assert.Equal(t, want.Metadata.Grouping, got.Metadata.Grouping)
	assert.Equal(t, want.Metadata.RecordsIngested, got.Metadata.RecordsIngested)
	assert.Equal(t, want.Metadata.RecordsExcluded.Malformed, got.Metadata.RecordsExcluded.Malformed)
	assert.Equal(t, want.Metadata.RecordsExcluded.OutOfRange, got.Metadata.RecordsExcluded.OutOfRange)

	require.Len(t, got.Groups, len(want.Groups))
	for i := range want.Groups {
		assert.Equal(t, want.Groups[i].Key, got.Groups[i].Key, "group order must survive the round trip")
		assert.True(t, want.Groups[i].Metrics.Equal(got.Groups[i].Metrics), "group %s", want.Groups[i].Key)
	}
	assert.True(t, want.AccountSummary.Equal(got.AccountSummary))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	bundle := sampleBundle(t)

	data, err := Encode(bundle)
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)

	assertBundlesEqual(t, bundle, back)

	// Undefined markers survive: the zero-spend group keeps ROAS undefined.
	m, ok := back.MetricsFor("Alpha")
	require.True(t, ok)
	assert.False(t, m.ROAS.Defined)
	assert.False(t, m.CPC.Defined)
}

func TestEncode_GroupOrderIsFirstSeen(t *testing.T) {
	bundle := sampleBundle(t)

	data, err := Encode(bundle)
	require.NoError(t, err)

	text := string(data)
	assert.Less(t, strings.Index(text, `"Zebra"`), strings.Index(text, `"Alpha"`),
		"Zebra was seen first and must serialize first")
}

func TestEncode_UndefinedRatioSentinel(t *testing.T) {
	bundle := sampleBundle(t)

	data, err := EncodeCompact(bundle)
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, `{"value":null,"defined":false}`)
	assert.NotContains(t, text, `"value":-1`, "no numeric placeholder for undefined ratios")
	assert.NotContains(t, text, `"value":0,"defined":false`, "undefined ratios never carry a zero value")
}

func TestEncode_DecimalsAsPlainNumbers(t *testing.T) {
	bundle := sampleBundle(t)

	data, err := EncodeCompact(bundle)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"spend":10`)
	assert.NotContains(t, string(data), `"spend":"10"`)
}

func TestWrite_CreatesArtifact(t *testing.T) {
	bundle := sampleBundle(t)
	path := filepath.Join(t.TempDir(), "out", "metrics_output.json")

	require.NoError(t, Write(path, bundle))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)
	assertBundlesEqual(t, bundle, back)
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteJSON(path, map[string]string{"status": "ok"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status": "ok"`)
}
