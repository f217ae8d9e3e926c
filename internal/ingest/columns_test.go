package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "campaignname", normalizeHeader(" Campaign Name "))
	assert.Equal(t, "campaignname", normalizeHeader("campaign_name"))
	assert.Equal(t, "14daytotalsales(₹)", normalizeHeader("14 Day Total Sales (₹)"))
	assert.Equal(t, "", normalizeHeader("   "))
}

func TestResolveColumns_StandardHeader(t *testing.T) {
	header := []string{"Date", "Campaign Name", "Spend", "Sales", "Orders", "Impressions", "Clicks"}

	idx, err := resolveColumns("sd", header, nil, []string{colDate, colSpend, colSales, colOrders, colImpressions, colClicks, colCampaign})
	require.NoError(t, err)

	assert.Equal(t, 0, idx[colDate])
	assert.Equal(t, 1, idx[colCampaign])
	assert.Equal(t, 2, idx[colSpend])
	assert.Equal(t, 6, idx[colClicks])
}

func TestResolveColumns_NameVariants(t *testing.T) {
	header := []string{"date", "campaign_name", "Cost", "14 Day Total Sales (₹)", "Purchases", "impressions", "clicks"}

	idx, err := resolveColumns("sb", header, nil, []string{colDate, colSpend, colSales, colOrders, colImpressions, colClicks})
	require.NoError(t, err)

	assert.Equal(t, 2, idx[colSpend], "Cost resolves to spend")
	assert.Equal(t, 3, idx[colSales])
	assert.Equal(t, 4, idx[colOrders], "Purchases resolves to orders")
}

func TestResolveColumns_Overrides(t *testing.T) {
	header := []string{"Day", "Campaign", "Ad Cost", "Sales", "Orders", "Impressions", "Clicks"}
	overrides := map[string][]string{
		colDate:  {"Day"},
		colSpend: {"Ad Cost"},
	}

	idx, err := resolveColumns("custom", header, overrides, []string{colDate, colSpend, colSales})
	require.NoError(t, err)
	assert.Equal(t, 0, idx[colDate])
	assert.Equal(t, 2, idx[colSpend])
}

func TestResolveColumns_DoesNotMutateOverrides(t *testing.T) {
	header := []string{"Day", "Spend", "Sales", "Orders", "Impressions", "Clicks"}

	// Override slice with spare capacity; resolution must not write into
	// the backing array past its length.
	backing := make([]string, 1, 8)
	backing[0] = "Day"
	overrides := map[string][]string{colDate: backing}

	_, err := resolveColumns("custom", header, overrides, []string{colDate, colSpend})
	require.NoError(t, err)

	assert.Equal(t, []string{"Day"}, overrides[colDate])
	for _, v := range backing[1:cap(backing)] {
		assert.Empty(t, v, "backing array beyond the override slice must stay untouched")
	}
}

func TestResolveColumns_MissingRequired(t *testing.T) {
	header := []string{"Date", "Campaign Name", "Impressions", "Clicks"}

	_, err := resolveColumns("broken", header, nil, []string{colDate, colSpend, colSales, colOrders, colImpressions, colClicks})

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "broken", schemaErr.Source)
	assert.ElementsMatch(t, []string{colSpend, colSales, colOrders}, schemaErr.Missing)
}

func TestResolveColumns_OptionalColumnsAbsent(t *testing.T) {
	header := []string{"Date", "Spend", "Sales", "Orders", "Impressions", "Clicks"}

	idx, err := resolveColumns("no-dims", header, nil, []string{colDate, colSpend})
	require.NoError(t, err)

	_, hasCampaign := idx[colCampaign]
	assert.False(t, hasCampaign)
}
