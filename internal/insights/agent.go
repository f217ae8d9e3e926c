package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mixaill76/ads_insight_agent/internal/llm"
	"github.com/mixaill76/ads_insight_agent/internal/metrics"
	"github.com/mixaill76/ads_insight_agent/internal/report"
)

const systemPrompt = `You are a Senior Amazon Ads Strategist. Analyze the metrics below and return structured JSON.

Your analysis MUST include:
1. performance_overview with key_trends (string list) and strategic_theme.
2. campaign_insights: classify groups into scale_candidates, optimization_needed, pause_candidates. Each entry has "key" (the group key exactly as given) and "rationale".
3. budget_reallocation, priority_actions, risk_flags (string lists).
4. natural_language_summary (executive narrative).

Rules:
- Ground every insight in the provided metrics. Do NOT invent numbers.
- A metric object {"value": null, "defined": false} means the ratio is undefined (zero denominator); treat it as "no data", never as zero.
- Be concise. Each rationale should be 1-2 sentences max.
- Return ONLY a valid JSON object, no markdown fences, no prose around it.`

// Agent generates a strategy report from a metrics bundle with exactly
// one completion call per Generate.
type Agent struct {
	client      llm.Client
	maxTokens   int
	temperature float64
	log         *slog.Logger
}

// NewAgent builds an agent. maxTokens and temperature are carried into
// every completion request; maxTokens must be positive (the Anthropic
// Messages API rejects zero).
func NewAgent(client llm.Client, maxTokens int, temperature float64, log *slog.Logger) *Agent {
	return &Agent{client: client, maxTokens: maxTokens, temperature: temperature, log: log}
}

// Generate runs the single insights completion. userRequest carries the
// operator's original question and is appended to the prompt when set.
func (a *Agent) Generate(ctx context.Context, bundle *metrics.Bundle, userRequest string) (*Report, error) {
	payload, err := report.EncodeCompact(bundle)
	if err != nil {
		return nil, fmt.Errorf("insights: encode bundle: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Metrics Data:\n")
	sb.Write(payload)
	if userRequest != "" {
		sb.WriteString("\n\nUser request: ")
		sb.WriteString(userRequest)
	}

	resp, err := a.client.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      sb.String(),
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("insights: completion failed: %w", err)
	}

	rep, err := parseReport(resp.Text)
	if err != nil {
		return nil, err
	}

	// The model echoes whatever it likes; the account summary in the final
	// report always comes from the deterministic bundle.
	rep.PerformanceOverview.AccountSummary = bundle.AccountSummary

	a.log.Info("Insights report generated",
		"model", resp.Model,
		"scale_candidates", len(rep.GroupInsights.ScaleCandidates),
		"optimization_needed", len(rep.GroupInsights.OptimizationNeeded),
		"pause_candidates", len(rep.GroupInsights.PauseCandidates),
	)
	return rep, nil
}

// parseReport extracts the JSON object from the model response. Models
// occasionally wrap output in markdown fences despite instructions, so the
// parser tolerates surrounding text and fences.
func parseReport(text string) (*Report, error) {
	raw := extractJSONObject(text)
	if raw == "" {
		return nil, fmt.Errorf("insights: no JSON object in model response")
	}

	var rep Report
	if err := json.Unmarshal([]byte(raw), &rep); err != nil {
		return nil, fmt.Errorf("insights: malformed model response: %w", err)
	}
	if rep.NaturalLanguageSummary == "" {
		return nil, fmt.Errorf("insights: model response missing natural_language_summary")
	}
	return &rep, nil
}

// extractJSONObject returns the outermost {...} span of text, or "".
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
