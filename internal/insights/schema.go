// Package insights turns a metrics bundle into a structured strategy
// report via a single LLM completion. The model never computes numbers;
// it classifies and narrates the deterministic metrics it is given.
package insights

import "github.com/mixaill76/ads_insight_agent/internal/metrics"

// PerformanceOverview is the high-level read of the account. The account
// summary is copied from the bundle after parsing so model output can
// never alter the computed numbers.
type PerformanceOverview struct {
	AccountSummary metrics.MetricSet `json:"account_summary"`
	KeyTrends      []string          `json:"key_trends"`
	StrategicTheme string            `json:"strategic_theme,omitempty"`
}

// GroupInsight classifies one reporting group with a grounded rationale.
type GroupInsight struct {
	Key       string `json:"key"`
	Rationale string `json:"rationale"`
}

// GroupInsightsSection buckets groups by recommended action.
type GroupInsightsSection struct {
	ScaleCandidates    []GroupInsight `json:"scale_candidates"`
	OptimizationNeeded []GroupInsight `json:"optimization_needed"`
	PauseCandidates    []GroupInsight `json:"pause_candidates"`
}

// Report is the structured output of the insights step.
type Report struct {
	PerformanceOverview    PerformanceOverview  `json:"performance_overview"`
	GroupInsights          GroupInsightsSection `json:"campaign_insights"`
	BudgetReallocation     []string             `json:"budget_reallocation"`
	PriorityActions        []string             `json:"priority_actions"`
	RiskFlags              []string             `json:"risk_flags"`
	NaturalLanguageSummary string               `json:"natural_language_summary"`
}
