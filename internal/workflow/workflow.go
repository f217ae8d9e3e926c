// Package workflow sequences the reporting pipeline: a supervisor loop
// routes between the metrics step and the insights step based on what the
// state still lacks, then ends.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mixaill76/ads_insight_agent/internal/ingest"
	"github.com/mixaill76/ads_insight_agent/internal/insights"
	"github.com/mixaill76/ads_insight_agent/internal/metrics"
	"github.com/mixaill76/ads_insight_agent/internal/utils"
)

// Step names the supervisor's routing targets.
type Step string

const (
	StepMetrics  Step = "metrics_agent"
	StepInsights Step = "insights_agent"
	StepEnd      Step = "end"
)

// maxSteps bounds the supervisor loop. The happy path takes at most three
// routing decisions; anything past that is a routing bug, not progress.
const maxSteps = 8

// State is the mutable workflow state threaded through the steps.
type State struct {
	UserRequest string
	StartDate   string
	EndDate     string

	Bundle *metrics.Bundle
	Report *insights.Report
}

// Workflow wires the loader, aggregator and optional insights agent into
// one supervised run.
type Workflow struct {
	loader     *ingest.Loader
	datasets   []ingest.Dataset
	aggregator *metrics.Aggregator
	agent      *insights.Agent
	workers    int
	log        *slog.Logger
}

// New builds a workflow. agent may be nil, in which case the run stops
// after the metrics step.
func New(loader *ingest.Loader, datasets []ingest.Dataset, aggregator *metrics.Aggregator, agent *insights.Agent, workers int, log *slog.Logger) *Workflow {
	if workers < 1 {
		workers = 1
	}
	return &Workflow{
		loader:     loader,
		datasets:   datasets,
		aggregator: aggregator,
		agent:      agent,
		workers:    workers,
		log:        log,
	}
}

// nextStep routes to whichever step the state still lacks.
func (w *Workflow) nextStep(state *State) Step {
	switch {
	case state.Bundle == nil:
		return StepMetrics
	case w.agent != nil && state.Report == nil:
		return StepInsights
	default:
		return StepEnd
	}
}

// Run drives the supervisor loop until the end step. The state is mutated
// in place so callers can inspect partial progress after an error.
func (w *Workflow) Run(ctx context.Context, state *State) error {
	for i := 0; i < maxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		step := w.nextStep(state)
		w.log.Info("Routing decision", "step", step)

		switch step {
		case StepMetrics:
			if err := w.runMetrics(ctx, state); err != nil {
				return err
			}
		case StepInsights:
			if err := w.runInsights(ctx, state); err != nil {
				return err
			}
		case StepEnd:
			return nil
		}
	}
	return fmt.Errorf("workflow: step budget exceeded after %d steps", maxSteps)
}

func (w *Workflow) runMetrics(ctx context.Context, state *State) error {
	bounds, err := parseBounds(state.StartDate, state.EndDate)
	if err != nil {
		return err
	}

	start := time.Now()
	records, stats, err := w.loader.LoadAll(ctx, w.datasets, bounds, w.workers)
	if err != nil {
		return fmt.Errorf("workflow: ingestion failed: %w", err)
	}

	bundle, err := w.aggregator.Aggregate(records, metrics.RunInfo{
		RunID:             uuid.NewString(),
		GeneratedAt:       utils.NowUTC(),
		StartDate:         state.StartDate,
		EndDate:           state.EndDate,
		Malformed:         stats.Malformed,
		OutOfRange:        stats.OutOfRange,
		MalformedByReason: stats.ReasonCounts(),
	})
	if err != nil {
		return err
	}

	state.Bundle = bundle
	w.log.Info("Metrics step finished",
		"run_id", bundle.Metadata.RunID,
		"groups", len(bundle.Groups),
		"records_ingested", stats.Ingested,
		"records_malformed", stats.Malformed,
		"records_out_of_range", stats.OutOfRange,
		"elapsed", time.Since(start),
	)
	return nil
}

func (w *Workflow) runInsights(ctx context.Context, state *State) error {
	report, err := w.agent.Generate(ctx, state.Bundle, state.UserRequest)
	if err != nil {
		return err
	}
	state.Report = report
	return nil
}

// parseBounds converts the optional YYYY-MM-DD boundary strings into an
// inclusive date filter.
func parseBounds(startDate, endDate string) (ingest.DateBounds, error) {
	var bounds ingest.DateBounds
	if startDate != "" {
		day, err := utils.ParseDay(startDate)
		if err != nil {
			return bounds, fmt.Errorf("invalid start date %q: %w", startDate, err)
		}
		bounds.Start = &day
	}
	if endDate != "" {
		day, err := utils.ParseDay(endDate)
		if err != nil {
			return bounds, fmt.Errorf("invalid end date %q: %w", endDate, err)
		}
		bounds.End = &day
	}
	if bounds.Start != nil && bounds.End != nil && bounds.End.Before(*bounds.Start) {
		return bounds, fmt.Errorf("end date %s is before start date %s", endDate, startDate)
	}
	return bounds, nil
}
