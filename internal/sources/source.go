package sources

import (
	"context"

	"github.com/biolume/mlbio-digest/internal/domain"
)

// Adapter is the contract each upstream source implements: query its API,
// filter and enrich locally, and hand back its ranked contribution to the
// digest, already cut to the source's configured top-N.
//
// Adapters degrade rather than fail where they can: a per-venue query error
// shrinks the result set, a malformed feed entry is skipped. An error return
// means the source produced nothing at all this run.
type Adapter interface {
	// TopPicks returns the source's candidates for the digest, best first.
	TopPicks(ctx context.Context) ([]domain.Candidate, error)

	// SourceType returns the type identifier for this source.
	SourceType() domain.SourceType

	// Name returns a human-readable name for this source.
	// Used for logging and metric labels.
	Name() string
}
