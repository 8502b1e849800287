// Package altmetric provides a client for the Altmetric attention-score API.
//
// Altmetric aggregates online and social-media mentions of scholarly work.
// The free API covers lookups by DOI and by arXiv id; most items simply have
// no record, so "no data" is the common case and is never reported as an
// error.
package altmetric

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/biolume/mlbio-digest/internal/domain"
	"github.com/biolume/mlbio-digest/internal/sources"
)

const (
	// DefaultBaseURL is the default Altmetric API base URL.
	DefaultBaseURL = "https://api.altmetric.com"

	// sourceName is the human-readable name for this API.
	sourceName = "Altmetric"
)

// Config holds configuration for the Altmetric client.
type Config struct {
	// BaseURL is the Altmetric API base URL.
	BaseURL string
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
}

// scoreResponse is the subset of the Altmetric counts payload the digest uses.
type scoreResponse struct {
	CitedByTweetersCount float64 `json:"cited_by_tweeters_count"`
	Score                float64 `json:"score"`
	DetailsURL           string  `json:"details_url"`
}

// Client looks up social-attention scores. It implements
// sources.AttentionLookup for the enrichment pool.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
	logger     zerolog.Logger
}

// Ensure Client implements AttentionLookup.
var _ sources.AttentionLookup = (*Client)(nil)

// New creates a new Altmetric client using the given fetcher.
func New(cfg Config, httpClient *sources.HTTPClient, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "altmetric").Logger(),
	}
}

// Lookup resolves the attention signal for a candidate, dispatching on the
// identifier it carries. Candidates without one resolve to no data.
func (c *Client) Lookup(ctx context.Context, cand *domain.Candidate) domain.Attention {
	switch {
	case cand.DOI != "":
		return c.ScoreByDOI(ctx, cand.DOI)
	case cand.ArXivID != "":
		return c.ScoreByArXivID(ctx, cand.ArXivID)
	default:
		return domain.Attention{}
	}
}

// ScoreByDOI fetches the attention record for a DOI.
// Any failure resolves to the zero Attention.
func (c *Client) ScoreByDOI(ctx context.Context, doi string) domain.Attention {
	return c.fetch(ctx, c.endpoint("doi", doi), doi)
}

// ScoreByArXivID fetches the attention record for an arXiv id.
// Any failure resolves to the zero Attention.
func (c *Client) ScoreByArXivID(ctx context.Context, id string) domain.Attention {
	return c.fetch(ctx, c.endpoint("arxiv", id), id)
}

func (c *Client) endpoint(kind, id string) string {
	// Identifiers like DOIs contain slashes; escape the whole id as one
	// path segment.
	return strings.TrimRight(c.config.BaseURL, "/") + "/v1/" + kind + "/" + url.PathEscape(id)
}

func (c *Client) fetch(ctx context.Context, lookupURL, id string) domain.Attention {
	start := time.Now()

	var resp scoreResponse
	if err := c.httpClient.GetJSON(ctx, lookupURL, nil, &resp); err != nil {
		// Expected for most identifiers: Altmetric returns 404 for items
		// it has never seen.
		c.logger.Debug().
			Str("id", id).
			Dur("elapsed", time.Since(start)).
			Err(err).
			Msg("no attention data")
		return domain.Attention{}
	}

	return domain.Attention{
		Mentions:   resp.CitedByTweetersCount,
		Score:      resp.Score,
		DetailsURL: resp.DetailsURL,
	}
}

// Name returns the human-readable name for this API.
func (c *Client) Name() string {
	return sourceName
}
