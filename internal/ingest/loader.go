// Package ingest reads tabular ad-performance spreadsheets (xlsx, csv) into
// normalized AdRecords, dropping and counting malformed rows instead of
// failing whole batches.
package ingest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mixaill76/ads_insight_agent/internal/metrics"
	"github.com/mixaill76/ads_insight_agent/internal/utils"
	"github.com/mixaill76/ads_insight_agent/internal/worker"
)

// Dataset describes one configured source file.
type Dataset struct {
	Name         string
	Path         string
	Format       string
	CampaignType string // optional tag, e.g. "SD" or "SB"
	Columns      map[string][]string
}

// DateBounds is an inclusive [start, end] calendar-day filter. Nil bounds
// are open.
type DateBounds struct {
	Start *time.Time
	End   *time.Time
}

func (b DateBounds) contains(day time.Time) bool {
	if b.Start != nil && day.Before(*b.Start) {
		return false
	}
	if b.End != nil && day.After(*b.End) {
		return false
	}
	return true
}

// Loader parses datasets into AdRecords. Safe for concurrent use.
type Loader struct {
	log      *slog.Logger
	cache    *tableCache
	grouping string
}

// NewLoader builds a loader for the given grouping dimension; the dimension
// decides which identifier column is required in every dataset.
func NewLoader(log *slog.Logger, grouping string, cacheSize int) (*Loader, error) {
	cache, err := newTableCache(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Loader{log: log, cache: cache, grouping: grouping}, nil
}

// CacheStats returns parsed-table cache hits and misses.
func (l *Loader) CacheStats() (hits, misses uint64) {
	return l.cache.Stats()
}

func (l *Loader) requiredColumns() []string {
	required := []string{colDate, colSpend, colSales, colOrders, colImpressions, colClicks}
	switch l.grouping {
	case metrics.DimensionCampaign:
		required = append(required, colCampaign)
	case metrics.DimensionAdGroup:
		required = append(required, colAdGroup)
	}
	return required
}

// Load reads one dataset, coerces each row and applies the date filter.
// Row-level problems drop the row and bump a counter; only a missing file or
// a missing required column aborts.
func (l *Loader) Load(ds Dataset, bounds DateBounds) ([]metrics.AdRecord, Stats, error) {
	var stats Stats

	t, ok := l.cache.get(ds.Path)
	if !ok {
		parsed, err := readTable(ds.Path, ds.Format)
		if err != nil {
			return nil, stats, err
		}
		l.cache.add(ds.Path, parsed)
		t = parsed
	}

	idx, err := resolveColumns(ds.Name, t.header, ds.Columns, l.requiredColumns())
	if err != nil {
		return nil, stats, err
	}

	records := make([]metrics.AdRecord, 0, len(t.rows))
	for _, row := range t.rows {
		if rowIsEmpty(row) {
			continue
		}

		rec, reason := parseRow(row, idx, ds.CampaignType)
		if reason != "" {
			stats.drop(reason)
			continue
		}
		if !bounds.contains(rec.Date) {
			stats.OutOfRange++
			continue
		}

		records = append(records, rec)
		stats.Ingested++
	}

	l.log.Debug("Dataset loaded",
		"dataset", ds.Name,
		"ingested", stats.Ingested,
		"malformed", stats.Malformed,
		"out_of_range", stats.OutOfRange,
	)

	return records, stats, nil
}

// LoadAll loads every dataset and concatenates the records in config order.
// With workers > 1, datasets are parsed concurrently; the merge still follows
// config order, so concurrency never changes the output.
func (l *Loader) LoadAll(ctx context.Context, datasets []Dataset, bounds DateBounds, workers int) ([]metrics.AdRecord, Stats, error) {
	results := make([]loadResult, len(datasets))

	if workers > 1 && len(datasets) > 1 {
		jobQueue := make(chan worker.Job, len(datasets))
		for i, ds := range datasets {
			jobQueue <- &loadJob{loader: l, ds: ds, bounds: bounds, out: &results[i]}
		}
		close(jobQueue)

		wg := worker.SpawnWorkerPool(ctx, workers, jobQueue, l.log)
		wg.Wait()
	} else {
		for i, ds := range datasets {
			results[i].records, results[i].stats, results[i].err = l.Load(ds, bounds)
		}
	}

	var all []metrics.AdRecord
	var stats Stats
	for i := range results {
		if results[i].err != nil {
			return nil, stats, results[i].err
		}
		all = append(all, results[i].records...)
		stats.Merge(results[i].stats)
	}

	return all, stats, nil
}

type loadResult struct {
	records []metrics.AdRecord
	stats   Stats
	err     error
}

func (r *loadResult) Err() error { return r.err }

// loadJob adapts one dataset load to the worker pool. Each job writes to its
// own result slot, so jobs share no mutable state.
type loadJob struct {
	loader *Loader
	ds     Dataset
	bounds DateBounds
	out    *loadResult
}

func (j *loadJob) Execute(ctx context.Context) worker.Result {
	if err := ctx.Err(); err != nil {
		j.out.err = err
		return j.out
	}
	j.out.records, j.out.stats, j.out.err = j.loader.Load(j.ds, j.bounds)
	return j.out
}

// dateLayouts covers the date renderings seen in csv and xlsx exports.
var dateLayouts = []string{
	utils.DayFormat,
	"2006-01-02 15:04:05",
	"01/02/2006",
	time.RFC3339,
}

func parseRow(row []string, idx columnIndex, campaignType string) (metrics.AdRecord, DropReason) {
	var rec metrics.AdRecord

	day, ok := parseDay(cell(row, idx[colDate]))
	if !ok {
		return rec, DropBadDate
	}

	spend, ok := parseMoney(cell(row, idx[colSpend]))
	if !ok {
		return rec, DropBadNumber
	}
	sales, ok := parseMoney(cell(row, idx[colSales]))
	if !ok {
		return rec, DropBadNumber
	}
	clicks, ok := parseCount(cell(row, idx[colClicks]))
	if !ok {
		return rec, DropBadNumber
	}
	impressions, ok := parseCount(cell(row, idx[colImpressions]))
	if !ok {
		return rec, DropBadNumber
	}
	orders, ok := parseCount(cell(row, idx[colOrders]))
	if !ok {
		return rec, DropBadNumber
	}

	if spend.IsNegative() || sales.IsNegative() || clicks < 0 || impressions < 0 || orders < 0 {
		return rec, DropNegative
	}
	if impressions > 0 && clicks > impressions {
		return rec, DropClicksExceed
	}

	dims := make(map[string]string)
	if pos, ok := idx[colCampaign]; ok {
		dims[metrics.DimensionCampaign] = cell(row, pos)
	}
	if pos, ok := idx[colAdGroup]; ok {
		dims[metrics.DimensionAdGroup] = cell(row, pos)
	}
	if campaignType != "" {
		dims["campaign_type"] = campaignType
	}

	rec = metrics.AdRecord{
		Date:        day,
		Dimensions:  dims,
		Spend:       spend,
		Sales:       sales,
		Clicks:      clicks,
		Impressions: impressions,
		Orders:      orders,
	}
	return rec, ""
}

func parseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return utils.DayUTC(t), true
		}
	}
	return time.Time{}, false
}

// cleanNumber strips thousands separators and currency markers that
// spreadsheet exports add to numeric cells.
func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', '₹', '$', '€', '£', '%':
			return -1
		}
		return r
	}, s)
}

// parseMoney coerces a cell to a decimal. Empty cells count as zero,
// matching how the source reports leave inactive days blank.
func parseMoney(s string) (decimal.Decimal, bool) {
	s = cleanNumber(s)
	if s == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// parseCount coerces a cell to a whole number; "5.0" is accepted, "5.3" is
// malformed.
func parseCount(s string) (int, bool) {
	s = cleanNumber(s)
	if s == "" {
		return 0, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, false
	}
	return int(d.IntPart()), true
}
