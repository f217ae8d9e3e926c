package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mixaill76/ads_insight_agent/internal/utils"
)

// EmptyInputError is returned when zero records survive ingestion. It is
// distinct from a valid input with zero spend, which produces a bundle.
type EmptyInputError struct {
	Malformed  int
	OutOfRange int
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("no valid ad records after ingestion (malformed=%d, out_of_range=%d)", e.Malformed, e.OutOfRange)
}

// RunInfo carries ingestion-side facts the aggregator embeds into the
// bundle metadata.
type RunInfo struct {
	RunID             string
	GeneratedAt       time.Time
	StartDate         string
	EndDate           string
	Malformed         int
	OutOfRange        int
	MalformedByReason map[string]int
}

// Aggregator reduces an AdRecord sequence into a Bundle. It is stateless
// across runs; every Aggregate call is an independent single-pass reduction.
type Aggregator struct {
	grouping string
	topN     int
}

// NewAggregator builds an aggregator for the given grouping dimension.
// topN sets the size of the top/bottom performer slices; zero disables them.
func NewAggregator(grouping string, topN int) (*Aggregator, error) {
	if !ValidDimension(grouping) {
		return nil, fmt.Errorf("unsupported grouping dimension %q", grouping)
	}
	if topN < 0 {
		topN = 0
	}
	return &Aggregator{grouping: grouping, topN: topN}, nil
}

// Grouping returns the configured grouping dimension.
func (a *Aggregator) Grouping() string { return a.grouping }

type accumulator struct {
	spend       decimal.Decimal
	sales       decimal.Decimal
	orders      int
	impressions int
	clicks      int
}

func (acc *accumulator) add(rec AdRecord) {
	acc.spend = acc.spend.Add(rec.Spend)
	acc.sales = acc.sales.Add(rec.Sales)
	acc.orders += rec.Orders
	acc.impressions += rec.Impressions
	acc.clicks += rec.Clicks
}

func (acc *accumulator) metricSet() MetricSet {
	clicks := decimal.NewFromInt(int64(acc.clicks))
	impressions := decimal.NewFromInt(int64(acc.impressions))
	orders := decimal.NewFromInt(int64(acc.orders))

	return MetricSet{
		Spend:       acc.spend,
		Sales:       acc.sales,
		Orders:      acc.orders,
		Impressions: acc.impressions,
		Clicks:      acc.clicks,
		CTR:         ratioDiv(clicks, impressions),
		CVR:         ratioDiv(orders, clicks),
		CPC:         ratioDiv(acc.spend, clicks),
		ACOS:        ratioDiv(acc.spend, acc.sales),
		ROAS:        ratioDiv(acc.sales, acc.spend),
	}
}

// Aggregate partitions records by the grouping key, sums each partition in a
// single pass with exact decimal accumulation, derives the ratio metrics and
// assembles the bundle. Groups are emitted in first-seen order of their key,
// so identical input always produces identical output.
func (a *Aggregator) Aggregate(records []AdRecord, info RunInfo) (*Bundle, error) {
	if len(records) == 0 {
		return nil, &EmptyInputError{Malformed: info.Malformed, OutOfRange: info.OutOfRange}
	}

	groups := make(map[string]*accumulator)
	order := make([]string, 0)
	total := &accumulator{}

	for _, rec := range records {
		key := a.groupKey(rec)
		acc, ok := groups[key]
		if !ok {
			acc = &accumulator{}
			groups[key] = acc
			order = append(order, key)
		}
		acc.add(rec)
		total.add(rec)
	}

	out := make([]GroupMetrics, 0, len(order))
	for _, key := range order {
		out = append(out, GroupMetrics{Key: key, Metrics: groups[key].metricSet()})
	}

	bundle := &Bundle{
		Metadata: Metadata{
			RunID:           info.RunID,
			GeneratedAt:     info.GeneratedAt,
			StartDate:       info.StartDate,
			EndDate:         info.EndDate,
			Grouping:        a.grouping,
			RecordsIngested: len(records),
			RecordsExcluded: ExcludedCounts{
				Malformed:  info.Malformed,
				OutOfRange: info.OutOfRange,
				Reasons:    info.MalformedByReason,
			},
		},
		Groups:         out,
		AccountSummary: total.metricSet(),
	}

	if a.topN > 0 {
		bundle.TopGroupsBySpend = topBy(out, a.topN, spendGreater)
		bundle.TopGroupsByROAS = topBy(out, a.topN, roasGreater)
		bundle.BottomGroupsByROAS = topBy(out, a.topN, roasLess)
	}

	return bundle, nil
}

func (a *Aggregator) groupKey(rec AdRecord) string {
	if a.grouping == DimensionDate {
		return rec.Date.Format(utils.DayFormat)
	}
	if v := strings.TrimSpace(rec.Dimensions[a.grouping]); v != "" {
		return v
	}
	return UnknownKey
}

// topBy returns the first n groups under the given strict ordering.
// The sort is stable, so equal groups keep their first-seen order.
func topBy(groups []GroupMetrics, n int, less func(a, b GroupMetrics) bool) []GroupMetrics {
	ranked := make([]GroupMetrics, len(groups))
	copy(ranked, groups)
	sort.SliceStable(ranked, func(i, j int) bool { return less(ranked[i], ranked[j]) })
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

func spendGreater(a, b GroupMetrics) bool {
	return a.Metrics.Spend.GreaterThan(b.Metrics.Spend)
}

// roasLess orders an undefined ROAS below any defined value; two undefined
// ratios are not ordered, so stable sorting keeps first-seen order.
func roasLess(a, b GroupMetrics) bool {
	ar, br := a.Metrics.ROAS, b.Metrics.ROAS
	switch {
	case !ar.Defined && !br.Defined:
		return false
	case !ar.Defined:
		return true
	case !br.Defined:
		return false
	}
	return ar.Value.LessThan(br.Value)
}

func roasGreater(a, b GroupMetrics) bool {
	return roasLess(b, a)
}
