package ingest

import (
	"strings"

	"github.com/mixaill76/ads_insight_agent/internal/metrics"
)

// Canonical column names. Dataset headers are resolved against candidate
// lists tolerant to case, spaces and underscores, so "Campaign Name",
// "campaign_name" and "Campaign" all map to the campaign column.
const (
	colDate        = "date"
	colCampaign    = metrics.DimensionCampaign
	colAdGroup     = metrics.DimensionAdGroup
	colSpend       = "spend"
	colSales       = "sales"
	colOrders      = "orders"
	colImpressions = "impressions"
	colClicks      = "clicks"
)

// defaultCandidates mirrors the header variants seen across Amazon Ads
// exports (Sponsored Display / Sponsored Brands daily reports).
var defaultCandidates = map[string][]string{
	colDate:     {"Date", "date", "Report Date", "Start Date"},
	colCampaign: {"Campaign Name", "campaign_name", "Campaign"},
	colAdGroup:  {"Ad Group Name", "ad_group_name", "Ad Group"},
	colSpend:    {"Spend", "spend", "Cost"},
	colSales: {
		"Sales",
		"sales",
		"Revenue",
		"revenue",
		"14 Day Total Sales (₹)",
		"14 Day Total Sales – (Click)",
	},
	colOrders: {
		"Orders",
		"orders",
		"Purchases",
		"14 Day Total Orders (#)",
		"14 Day Total Orders (#) – (Click)",
	},
	colImpressions: {"Impressions", "impressions"},
	colClicks:      {"Clicks", "clicks"},
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, "_", "")
}

// columnIndex maps canonical column names to their position in the header.
// Missing optional columns are simply absent.
type columnIndex map[string]int

// resolveColumns matches the header row against candidate names.
// required lists the canonical columns whose total absence is a SchemaError;
// the remaining canonical columns are resolved opportunistically.
func resolveColumns(source string, header []string, overrides map[string][]string, required []string) (columnIndex, error) {
	normalized := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, seen := normalized[key]; !seen {
			normalized[key] = i
		}
	}

	idx := make(columnIndex)
	for canonical, candidates := range defaultCandidates {
		// Overrides take precedence; merged into a fresh slice so the
		// caller's config slices are never written to.
		merged := make([]string, 0, len(overrides[canonical])+len(candidates))
		merged = append(merged, overrides[canonical]...)
		merged = append(merged, candidates...)
		for _, cand := range merged {
			if pos, ok := normalized[normalizeHeader(cand)]; ok {
				idx[canonical] = pos
				break
			}
		}
	}

	var missing []string
	for _, canonical := range required {
		if _, ok := idx[canonical]; !ok {
			missing = append(missing, canonical)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Source: source, Missing: missing}
	}

	return idx, nil
}
