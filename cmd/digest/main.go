// Package main provides the entry point for the digest batch job.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/biolume/mlbio-digest/internal/altmetric"
	"github.com/biolume/mlbio-digest/internal/config"
	"github.com/biolume/mlbio-digest/internal/domain"
	"github.com/biolume/mlbio-digest/internal/observability"
	"github.com/biolume/mlbio-digest/internal/pipeline"
	"github.com/biolume/mlbio-digest/internal/slack"
	"github.com/biolume/mlbio-digest/internal/sources"
	"github.com/biolume/mlbio-digest/internal/sources/arxiv"
	"github.com/biolume/mlbio-digest/internal/sources/crossref"
)

// Exit codes. A missing delivery endpoint exits with its own code so
// schedulers can tell misconfiguration from a failed run.
const (
	exitOK            = 0
	exitFailure       = 1
	exitConfigMissing = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, domain.ErrConfigMissing) {
			return exitConfigMissing
		}
		return exitFailure
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = observability.WithRunContext(logger, observability.NewRunID())
	logger.Info().Msg("digest run starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:      cfg.Fetch.Timeout,
		RateLimit:    cfg.Fetch.RateLimit,
		BurstSize:    cfg.Fetch.BurstSize,
		MaxTries:     cfg.Fetch.MaxTries,
		RetryBackoff: cfg.Fetch.RetryBackoff,
		UserAgent:    cfg.Fetch.UserAgent,
	})

	attention := altmetric.New(altmetric.Config{
		BaseURL: cfg.Altmetric.BaseURL,
	}, httpClient, logger)

	crossrefAdapter := crossref.New(crossref.Config{
		BaseURL:         cfg.Crossref.BaseURL,
		Venues:          cfg.Crossref.Venues,
		IncludeKeywords: cfg.Crossref.IncludeKeywords,
		ExcludeKeywords: cfg.Crossref.ExcludeKeywords,
		Rows:            cfg.Crossref.Rows,
		MaxCandidates:   cfg.Crossref.MaxCandidates,
		TopN:            cfg.Crossref.TopN,
		Window:          cfg.Digest.Window(),
		Workers:         cfg.Enrichment.Workers,
	}, httpClient, attention, logger)

	arxivAdapter := arxiv.New(arxiv.Config{
		BaseURL:    cfg.ArXiv.BaseURL,
		Query:      cfg.ArXiv.Query,
		MaxResults: cfg.ArXiv.MaxResults,
		RecentN:    cfg.ArXiv.RecentN,
		TopN:       cfg.ArXiv.TopN,
		Venues:     cfg.Crossref.Venues,
		Window:     cfg.Digest.Window(),
		Workers:    cfg.Enrichment.Workers,
	}, httpClient, attention, logger)

	deliverer := slack.New(slack.Config{
		WebhookURL: cfg.Slack.WebhookURL,
		Timeout:    cfg.Slack.Timeout,
	}, logger)

	metrics := observability.NewMetrics("mlbio_digest")

	p := pipeline.New(pipeline.Config{
		HeaderTitle: cfg.Digest.HeaderTitle,
	}, []sources.Adapter{crossrefAdapter, arxivAdapter}, deliverer, metrics, logger)

	runErr := p.Run(ctx)

	if cfg.Metrics.Enabled {
		metrics.LogSummary(logger)
		if cfg.Metrics.PushURL != "" {
			if err := metrics.Push(cfg.Metrics.PushURL, cfg.Metrics.Job); err != nil {
				logger.Warn().Err(err).Msg("pushing run metrics failed")
			}
		}
	}

	if runErr != nil {
		logger.Error().Err(runErr).Msg("digest run failed")
		return exitFailure
	}

	logger.Info().Msg("digest run complete")
	return exitOK
}
