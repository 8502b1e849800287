package sources

import (
	"context"
	"sync"

	"github.com/biolume/mlbio-digest/internal/domain"
)

// AttentionLookup resolves the social-attention signal for one candidate.
// Implementations must return the zero Attention on any failure; absence of
// attention data is an expected outcome, never an error.
type AttentionLookup interface {
	Lookup(ctx context.Context, c *domain.Candidate) domain.Attention
}

// EnrichAll fans the attention lookups out over a fixed-size worker pool and
// blocks until every candidate has been visited. Each worker writes only to
// its own candidate, so the slice needs no locking; the join is the only
// synchronization point. Completion order is not significant.
//
// Candidates without an external identifier are left untouched.
func EnrichAll(ctx context.Context, candidates []domain.Candidate, workers int, lookup AttentionLookup) {
	if len(candidates) == 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(candidates) {
		workers = len(candidates)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c := &candidates[i]
				if c.ExternalID() == "" {
					continue
				}
				c.Attention = lookup.Lookup(ctx, c)
			}
		}()
	}

	for i := range candidates {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
}
