package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mixaill76/ads_insight_agent/internal/config"
	"github.com/mixaill76/ads_insight_agent/internal/ingest"
	"github.com/mixaill76/ads_insight_agent/internal/insights"
	"github.com/mixaill76/ads_insight_agent/internal/llm"
	"github.com/mixaill76/ads_insight_agent/internal/logger"
	"github.com/mixaill76/ads_insight_agent/internal/metrics"
	"github.com/mixaill76/ads_insight_agent/internal/report"
	"github.com/mixaill76/ads_insight_agent/internal/security"
	"github.com/mixaill76/ads_insight_agent/internal/workflow"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	request := flag.String("request", "", "Free-form request passed to the insights step")
	startDate := flag.String("start-date", "", "Inclusive start date (YYYY-MM-DD)")
	endDate := flag.String("end-date", "", "Inclusive end date (YYYY-MM-DD)")
	output := flag.String("output", "", "Metrics artifact path (overrides config)")
	skipInsights := flag.Bool("skip-insights", false, "Stop after the metrics artifact, no LLM call")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *output != "" {
		cfg.Report.MetricsOutput = *output
	}

	var log *slog.Logger
	if cfg.Report.LoggingFormat == "json" {
		log = logger.NewJSON(cfg.Report.LoggingLevel)
	} else {
		log = logger.New(cfg.Report.LoggingLevel)
	}

	insightsEnabled := cfg.InsightsEnabled() && !*skipInsights

	log.Info("Starting ads_insight_agent",
		"logging_level", cfg.Report.LoggingLevel,
		"grouping", cfg.Report.Grouping,
		"datasets", len(cfg.Datasets),
		"workers", cfg.Report.Workers,
		"insights_enabled", insightsEnabled,
	)
	for i, ds := range cfg.Datasets {
		log.Info("Dataset configured",
			"index", i+1,
			"name", ds.Name,
			"path", ds.Path,
			"format", ds.Format,
			"campaign_type", ds.CampaignType,
		)
	}
	if insightsEnabled {
		log.Info("Insights provider configured",
			"provider", cfg.LLM.Provider,
			"model", cfg.LLM.Model,
			"api_key", security.MaskAPIKey(cfg.LLM.APIKey),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *request, *startDate, *endDate, insightsEnabled); err != nil {
		var emptyErr *metrics.EmptyInputError
		if errors.As(err, &emptyErr) {
			log.Error("No usable records",
				"malformed", emptyErr.Malformed,
				"out_of_range", emptyErr.OutOfRange,
			)
		} else {
			log.Error("Run failed", "error", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, request, startDate, endDate string, insightsEnabled bool) error {
	loader, err := ingest.NewLoader(log, cfg.Report.Grouping, cfg.Cache.MaxDatasets)
	if err != nil {
		return err
	}

	aggregator, err := metrics.NewAggregator(cfg.Report.Grouping, cfg.Report.TopN)
	if err != nil {
		return err
	}

	var agent *insights.Agent
	if insightsEnabled {
		client, err := llm.New(cfg.LLM, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				log.Warn("Failed to close LLM client", "error", err)
			}
		}()
		agent = insights.NewAgent(client, cfg.LLM.MaxTokens, cfg.LLM.Temperature, log)
	}

	wf := workflow.New(loader, datasetsFromConfig(cfg.Datasets), aggregator, agent, cfg.Report.Workers, log)

	state := &workflow.State{
		UserRequest: request,
		StartDate:   startDate,
		EndDate:     endDate,
	}
	if err := wf.Run(ctx, state); err != nil {
		return err
	}

	hits, misses := loader.CacheStats()
	log.Debug("Dataset cache stats", "hits", hits, "misses", misses)

	if err := report.Write(cfg.Report.MetricsOutput, state.Bundle); err != nil {
		return err
	}
	log.Info("Metrics artifact written", "path", cfg.Report.MetricsOutput)

	if state.Report != nil {
		if err := report.WriteJSON(cfg.Report.InsightsOutput, state.Report); err != nil {
			return err
		}
		log.Info("Insights report written", "path", cfg.Report.InsightsOutput)
	}

	return nil
}

func datasetsFromConfig(configured []config.DatasetConfig) []ingest.Dataset {
	datasets := make([]ingest.Dataset, 0, len(configured))
	for _, ds := range configured {
		datasets = append(datasets, ingest.Dataset{
			Name:         ds.Name,
			Path:         ds.Path,
			Format:       ds.Format,
			CampaignType: ds.CampaignType,
			Columns:      ds.Columns,
		})
	}
	return datasets
}
