// Package metrics implements the deterministic reduction of raw ad
// performance records into a structured metrics bundle: grouped totals,
// derived ratios and account-level summary.
package metrics

import (
	"time"

	"github.com/shopspring/decimal"
)

// Grouping dimensions recognized by the aggregator. The dimension decides
// which identifier partitions records into groups.
const (
	DimensionCampaign = "campaign"
	DimensionAdGroup  = "ad_group"
	DimensionDate     = "date"
)

// AccountTotalKey is the reserved grouping key that resolves to the
// account-level summary instead of a per-dimension group.
const AccountTotalKey = "ACCOUNT_TOTAL"

// UnknownKey collects records whose grouping dimension value is missing.
const UnknownKey = "unknown"

// ValidDimension reports whether s names a supported grouping dimension.
func ValidDimension(s string) bool {
	switch s {
	case DimensionCampaign, DimensionAdGroup, DimensionDate:
		return true
	}
	return false
}

// AdRecord is one normalized observation from an ads spreadsheet.
// All numeric fields are validated non-negative at ingestion;
// clicks never exceed impressions when impressions are present.
type AdRecord struct {
	Date        time.Time
	Dimensions  map[string]string
	Spend       decimal.Decimal
	Sales       decimal.Decimal
	Clicks      int
	Impressions int
	Orders      int
}
