package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixaill76/ads_insight_agent/internal/metrics"
	"github.com/mixaill76/ads_insight_agent/internal/testhelpers"
)

const sampleCSV = `Date,Campaign Name,Spend,Clicks,Impressions,Sales,Orders
2024-03-01,Brand Launch,10.50,5,100,20.00,2
2024-03-02,Brand Launch,3.25,2,40,0,0
2024-03-02,Halo SKU,0,0,50,0,0
`

func writeDataset(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader(testhelpers.NewTestLogger(), metrics.DimensionCampaign, 8)
	require.NoError(t, err)
	return l
}

func TestLoad_ValidCSV(t *testing.T) {
	loader := newTestLoader(t)
	path := writeDataset(t, "sd.csv", sampleCSV)

	records, stats, err := loader.Load(Dataset{Name: "sd", Path: path, CampaignType: "SD"}, DateBounds{})
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, 3, stats.Ingested)
	assert.Equal(t, 0, stats.Malformed)

	first := records[0]
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "Brand Launch", first.Dimensions[metrics.DimensionCampaign])
	assert.Equal(t, "SD", first.Dimensions["campaign_type"])
	assert.True(t, first.Spend.Equal(decimal.RequireFromString("10.50")))
	assert.True(t, first.Sales.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, 5, first.Clicks)
	assert.Equal(t, 100, first.Impressions)
	assert.Equal(t, 2, first.Orders)
}

func TestLoad_MissingFile(t *testing.T) {
	loader := newTestLoader(t)

	_, _, err := loader.Load(Dataset{Name: "sd", Path: "/nonexistent/sd.csv"}, DateBounds{})
	assert.True(t, errors.Is(err, ErrSourceNotFound))
	assert.Contains(t, err.Error(), "/nonexistent/sd.csv")
}

func TestLoad_MissingColumns(t *testing.T) {
	loader := newTestLoader(t)
	path := writeDataset(t, "broken.csv", "Date,Campaign Name,Clicks\n2024-03-01,X,5\n")

	_, _, err := loader.Load(Dataset{Name: "broken", Path: path}, DateBounds{})

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Contains(t, schemaErr.Missing, "spend")
	assert.Contains(t, schemaErr.Missing, "sales")
}

func TestLoad_MalformedRowsDroppedAndCounted(t *testing.T) {
	loader := newTestLoader(t)
	csv := `Date,Campaign Name,Spend,Clicks,Impressions,Sales,Orders
2024-03-01,OK,1.00,1,10,2.00,1
not-a-date,BadDate,1.00,1,10,2.00,1
2024-03-01,BadSpend,abc,1,10,2.00,1
2024-03-01,Negative,-5.00,1,10,2.00,1
2024-03-01,TooManyClicks,1.00,20,10,2.00,1
`
	path := writeDataset(t, "mixed.csv", csv)

	records, stats, err := loader.Load(Dataset{Name: "mixed", Path: path}, DateBounds{})
	require.NoError(t, err, "row-level problems must not abort the run")

	require.Len(t, records, 1)
	assert.Equal(t, "OK", records[0].Dimensions[metrics.DimensionCampaign])

	assert.Equal(t, 4, stats.Malformed)
	assert.Equal(t, 1, stats.Reasons[DropBadDate])
	assert.Equal(t, 1, stats.Reasons[DropBadNumber])
	assert.Equal(t, 1, stats.Reasons[DropNegative])
	assert.Equal(t, 1, stats.Reasons[DropClicksExceed])
}

func TestLoad_DateFilterCountsSeparately(t *testing.T) {
	loader := newTestLoader(t)
	path := writeDataset(t, "sd.csv", sampleCSV)

	start := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	records, stats, err := loader.Load(Dataset{Name: "sd", Path: path}, DateBounds{Start: &start, End: &end})
	require.NoError(t, err)

	assert.Len(t, records, 2, "bounds are inclusive")
	assert.Equal(t, 1, stats.OutOfRange)
	assert.Equal(t, 0, stats.Malformed)
}

func TestLoad_EmptyCellsAreZero(t *testing.T) {
	loader := newTestLoader(t)
	path := writeDataset(t, "sparse.csv", "Date,Campaign Name,Spend,Clicks,Impressions,Sales,Orders\n2024-03-01,Sparse,,,,,\n")

	records, _, err := loader.Load(Dataset{Name: "sparse", Path: path}, DateBounds{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Spend.IsZero())
	assert.Equal(t, 0, records[0].Clicks)
}

func TestLoad_CurrencyAndThousandsSeparators(t *testing.T) {
	loader := newTestLoader(t)
	path := writeDataset(t, "fmt.csv", "Date,Campaign Name,Spend,Clicks,Impressions,Sales,Orders\n2024-03-01,Fmt,\"₹1,250.75\",10,\"1,000\",\"$2,000.00\",3\n")

	records, _, err := loader.Load(Dataset{Name: "fmt", Path: path}, DateBounds{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Spend.Equal(decimal.RequireFromString("1250.75")))
	assert.Equal(t, 1000, records[0].Impressions)
	assert.True(t, records[0].Sales.Equal(decimal.RequireFromString("2000.00")))
}

func TestLoad_CachesParsedTables(t *testing.T) {
	loader := newTestLoader(t)
	path := writeDataset(t, "sd.csv", sampleCSV)
	ds := Dataset{Name: "sd", Path: path}

	_, _, err := loader.Load(ds, DateBounds{})
	require.NoError(t, err)
	_, _, err = loader.Load(ds, DateBounds{})
	require.NoError(t, err)

	hits, misses := loader.CacheStats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestLoadAll_MergesInConfigOrder(t *testing.T) {
	loader := newTestLoader(t)
	pathA := writeDataset(t, "a.csv", "Date,Campaign Name,Spend,Clicks,Impressions,Sales,Orders\n2024-03-01,First,1,1,10,1,0\n")
	pathB := writeDataset(t, "b.csv", "Date,Campaign Name,Spend,Clicks,Impressions,Sales,Orders\n2024-03-01,Second,2,1,10,1,0\n")

	datasets := []Dataset{
		{Name: "a", Path: pathA},
		{Name: "b", Path: pathB},
	}

	records, stats, err := loader.LoadAll(context.Background(), datasets, DateBounds{}, 1)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "First", records[0].Dimensions[metrics.DimensionCampaign])
	assert.Equal(t, "Second", records[1].Dimensions[metrics.DimensionCampaign])
	assert.Equal(t, 2, stats.Ingested)
}

func TestLoadAll_ParallelMatchesSequential(t *testing.T) {
	pathA := writeDataset(t, "a.csv", "Date,Campaign Name,Spend,Clicks,Impressions,Sales,Orders\n2024-03-01,First,1,1,10,1,0\n")
	pathB := writeDataset(t, "b.csv", "Date,Campaign Name,Spend,Clicks,Impressions,Sales,Orders\n2024-03-01,Second,2,1,10,1,0\n")
	pathC := writeDataset(t, "c.csv", "Date,Campaign Name,Spend,Clicks,Impressions,Sales,Orders\n2024-03-01,Third,3,1,10,1,0\n")

	datasets := []Dataset{
		{Name: "a", Path: pathA},
		{Name: "b", Path: pathB},
		{Name: "c", Path: pathC},
	}

	sequential := newTestLoader(t)
	seqRecords, seqStats, err := sequential.LoadAll(context.Background(), datasets, DateBounds{}, 1)
	require.NoError(t, err)

	parallel := newTestLoader(t)
	parRecords, parStats, err := parallel.LoadAll(context.Background(), datasets, DateBounds{}, 4)
	require.NoError(t, err)

	require.Len(t, parRecords, len(seqRecords))
	for i := range seqRecords {
		assert.Equal(t, seqRecords[i].Dimensions, parRecords[i].Dimensions)
		assert.True(t, seqRecords[i].Spend.Equal(parRecords[i].Spend))
	}
	assert.Equal(t, seqStats, parStats)
}

func TestLoadAll_PropagatesDatasetError(t *testing.T) {
	loader := newTestLoader(t)
	pathA := writeDataset(t, "a.csv", sampleCSV)

	datasets := []Dataset{
		{Name: "a", Path: pathA},
		{Name: "missing", Path: "/nonexistent.csv"},
	}

	_, _, err := loader.LoadAll(context.Background(), datasets, DateBounds{}, 2)
	assert.True(t, errors.Is(err, ErrSourceNotFound))
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"5", 5, true},
		{"5.0", 5, true},
		{"", 0, true},
		{"1,000", 1000, true},
		{"5.3", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseCount(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		if ok {
			assert.Equal(t, tt.want, got, "input %q", tt.input)
		}
	}
}
