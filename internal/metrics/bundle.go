package metrics

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Bundle artifacts carry plain JSON numbers, not quoted decimals.
	decimal.MarshalJSONWithoutQuotes = true
}

// MetricSet holds summed totals and derived ratios for one group of records.
type MetricSet struct {
	Spend       decimal.Decimal `json:"spend"`
	Sales       decimal.Decimal `json:"sales"`
	Orders      int             `json:"orders"`
	Impressions int             `json:"impressions"`
	Clicks      int             `json:"clicks"`

	CTR  Ratio `json:"ctr"`  // clicks / impressions
	CVR  Ratio `json:"cvr"`  // orders / clicks
	CPC  Ratio `json:"cpc"`  // spend / clicks
	ACOS Ratio `json:"acos"` // spend / sales
	ROAS Ratio `json:"roas"` // sales / spend
}

// Equal compares totals and ratios, treating decimals with different
// exponents but the same value as equal.
func (m MetricSet) Equal(o MetricSet) bool {
	return m.Spend.Equal(o.Spend) &&
		m.Sales.Equal(o.Sales) &&
		m.Orders == o.Orders &&
		m.Impressions == o.Impressions &&
		m.Clicks == o.Clicks &&
		m.CTR.Equal(o.CTR) &&
		m.CVR.Equal(o.CVR) &&
		m.CPC.Equal(o.CPC) &&
		m.ACOS.Equal(o.ACOS) &&
		m.ROAS.Equal(o.ROAS)
}

// GroupMetrics pairs a grouping key with its metric set. Bundles carry
// groups as an ordered slice, never a map, so first-seen emission order
// survives serialization.
type GroupMetrics struct {
	Key     string    `json:"key"`
	Metrics MetricSet `json:"metrics"`
}

// ExcludedCounts records how many rows ingestion dropped and why.
// Malformed rows (unparseable or invariant-violating values) are counted
// separately from rows filtered out by the date range.
type ExcludedCounts struct {
	Malformed  int            `json:"malformed"`
	OutOfRange int            `json:"out_of_range"`
	Reasons    map[string]int `json:"reasons,omitempty"`
}

// Metadata describes one aggregation run.
type Metadata struct {
	RunID           string         `json:"run_id"`
	GeneratedAt     time.Time      `json:"generated_at"`
	StartDate       string         `json:"start_date,omitempty"`
	EndDate         string         `json:"end_date,omitempty"`
	Grouping        string         `json:"grouping"`
	RecordsIngested int            `json:"records_ingested"`
	RecordsExcluded ExcludedCounts `json:"records_excluded"`
}

// Bundle is the hand-off payload between the metrics stage and any
// downstream consumer.
type Bundle struct {
	Metadata       Metadata       `json:"report_metadata"`
	Groups         []GroupMetrics `json:"groups"`
	AccountSummary MetricSet      `json:"account_summary"`

	TopGroupsBySpend   []GroupMetrics `json:"top_groups_by_spend,omitempty"`
	TopGroupsByROAS    []GroupMetrics `json:"top_groups_by_roas,omitempty"`
	BottomGroupsByROAS []GroupMetrics `json:"bottom_groups_by_roas,omitempty"`
}

// MetricsFor resolves a grouping key to its metric set. AccountTotalKey
// resolves to the account summary.
func (b *Bundle) MetricsFor(key string) (MetricSet, bool) {
	if key == AccountTotalKey {
		return b.AccountSummary, true
	}
	for _, g := range b.Groups {
		if g.Key == key {
			return g.Metrics, true
		}
	}
	return MetricSet{}, false
}
