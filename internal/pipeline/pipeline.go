// Package pipeline orchestrates one digest run: fan out to the sources,
// merge their picks, render the payload, and deliver it.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/biolume/mlbio-digest/internal/digest"
	"github.com/biolume/mlbio-digest/internal/domain"
	"github.com/biolume/mlbio-digest/internal/observability"
	"github.com/biolume/mlbio-digest/internal/sources"
)

// Deliverer posts a finished payload to the notification endpoint.
type Deliverer interface {
	Post(ctx context.Context, payload any) error
}

// Config holds pipeline-level settings.
type Config struct {
	// HeaderTitle is the title of the digest header block.
	HeaderTitle string
}

// sourceResult holds one adapter's contribution.
type sourceResult struct {
	source domain.SourceType
	picks  []domain.Candidate
	err    error
}

// Pipeline runs the digest batch end to end. Adapters are queried
// concurrently, but their contributions keep the registration order in the
// delivered digest.
type Pipeline struct {
	config    Config
	adapters  []sources.Adapter
	deliverer Deliverer
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// New creates a pipeline over the given adapters. The adapter order fixes
// the ordering of source sections in the digest.
func New(cfg Config, adapters []sources.Adapter, deliverer Deliverer, metrics *observability.Metrics, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		config:    cfg,
		adapters:  adapters,
		deliverer: deliverer,
		metrics:   metrics,
		logger:    logger.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes one digest run. A source that produces nothing only shrinks
// the digest; the run errors when every source failed or when delivery is
// rejected.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	p.metrics.RunsStarted.Inc()

	err := p.run(ctx)
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.RunsFailed.Inc()
	}
	return err
}

func (p *Pipeline) run(ctx context.Context) error {
	results := p.collect(ctx)

	var (
		candidates []domain.Candidate
		failures   int
	)
	for _, result := range results {
		label := string(result.source)
		p.metrics.SourceQueries.WithLabelValues(label).Inc()

		if result.err != nil {
			failures++
			p.metrics.SourceFailures.WithLabelValues(label).Inc()
			p.logger.Warn().Str("source", label).Err(result.err).Msg("source produced nothing this run")
			continue
		}

		p.metrics.CandidatesKept.WithLabelValues(label).Add(float64(len(result.picks)))
		for _, c := range result.picks {
			if c.Attention.IsZero() {
				p.metrics.EnrichmentMisses.Inc()
			}
		}
		candidates = append(candidates, result.picks...)
	}

	if failures == len(p.adapters) {
		return fmt.Errorf("every source failed: %w", domain.ErrNoCandidates)
	}

	entries := digest.EntriesFor(candidates)
	payload := digest.BuildPayload(p.config.HeaderTitle, entries)
	p.metrics.DigestEntries.Add(float64(len(entries)))

	if err := p.deliverer.Post(ctx, payload); err != nil {
		p.metrics.DeliveriesFailed.Inc()
		return err
	}

	p.logger.Info().Int("entries", len(entries)).Msg("digest delivered")
	return nil
}

// collect queries every adapter concurrently and returns results in adapter
// registration order.
func (p *Pipeline) collect(ctx context.Context) []sourceResult {
	results := make([]sourceResult, len(p.adapters))

	var wg sync.WaitGroup
	for i, adapter := range p.adapters {
		wg.Add(1)
		go func(i int, a sources.Adapter) {
			defer wg.Done()

			picks, err := a.TopPicks(ctx)
			results[i] = sourceResult{
				source: a.SourceType(),
				picks:  picks,
				err:    err,
			}
		}(i, adapter)
	}
	wg.Wait()

	return results
}
