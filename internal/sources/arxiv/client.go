package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/biolume/mlbio-digest/internal/domain"
	"github.com/biolume/mlbio-digest/internal/observability"
	"github.com/biolume/mlbio-digest/internal/rank"
	"github.com/biolume/mlbio-digest/internal/sources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org"

	// DefaultQuery targets machine learning work with a biology angle.
	DefaultQuery = `((ti:"biology" OR ti:"biomedical" OR ti:"genomics" OR ti:"proteomics" OR ` +
		`ti:"protein" OR ti:"immunology" OR ti:"cancer" OR abs:"biology" OR abs:"genomics" OR ` +
		`abs:"proteomics")) AND (cat:cs.LG OR cat:stat.ML OR cat:q-bio.BM OR cat:q-bio.QM OR ` +
		`ti:"machine learning" OR ti:"deep learning")`

	// DefaultMaxResults is the default maximum results per feed request.
	DefaultMaxResults = 100

	// DefaultRecentN bounds the enrichment fan-out to the freshest entries.
	DefaultRecentN = 10

	// DefaultTopN is this source's contribution to the digest.
	DefaultTopN = 2

	// DefaultWorkers is the default enrichment pool size.
	DefaultWorkers = 5

	// sourceName is the human-readable name for this source.
	sourceName = "arXiv"
)

// arxivIDRegex extracts the arXiv ID from the entry URL.
// Matches "http://arxiv.org/abs/2301.12345v1" and "http://arxiv.org/abs/hep-th/9901001v1".
var arxivIDRegex = regexp.MustCompile(`arxiv\.org/abs/(.+?)(?:v\d+)?$`)

// Config holds configuration for the arXiv adapter.
type Config struct {
	// BaseURL is the arXiv API base URL.
	BaseURL string

	// Query is the arXiv search_query expression.
	Query string

	// MaxResults is the maximum feed entries requested from the API.
	MaxResults int

	// RecentN is how many of the freshest in-window entries are enriched.
	RecentN int

	// TopN is the number of items contributed to the digest.
	TopN int

	// Venues is the allow-list consulted for the ranking venue bonus.
	// Preprints rarely qualify; the score still gets computed uniformly.
	Venues []string

	// Window is the trailing freshness window.
	Window time.Duration

	// Workers is the enrichment pool size.
	Workers int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Query == "" {
		c.Query = DefaultQuery
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.RecentN == 0 {
		c.RecentN = DefaultRecentN
	}
	if c.TopN == 0 {
		c.TopN = DefaultTopN
	}
	if c.Window == 0 {
		c.Window = 30 * 24 * time.Hour
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
}

// Adapter implements the sources.Adapter interface for arXiv.
type Adapter struct {
	config     Config
	httpClient *sources.HTTPClient
	attention  sources.AttentionLookup
	venueSet   rank.VenueSet
	logger     zerolog.Logger

	// now is swappable for tests pinning the freshness window.
	now func() time.Time
}

// Ensure Adapter implements the source contract.
var _ sources.Adapter = (*Adapter)(nil)

// New creates a new arXiv adapter.
func New(cfg Config, httpClient *sources.HTTPClient, attention sources.AttentionLookup, logger zerolog.Logger) *Adapter {
	cfg.applyDefaults()

	return &Adapter{
		config:     cfg,
		httpClient: httpClient,
		attention:  attention,
		venueSet:   rank.NewVenueSet(cfg.Venues),
		logger:     observability.WithSourceContext(logger, string(domain.SourceTypeArXiv)),
		now:        time.Now,
	}
}

// SourceType returns the source type identifier.
func (a *Adapter) SourceType() domain.SourceType {
	return domain.SourceTypeArXiv
}

// Name returns the human-readable name for this source.
func (a *Adapter) Name() string {
	return sourceName
}

// TopPicks fetches the newest feed entries for the configured query, keeps
// the ones inside the freshness window, enriches the most recent of those
// with attention data, and returns the top candidates ordered by attention
// score with recency as the tie-breaker.
func (a *Adapter) TopPicks(ctx context.Context) ([]domain.Candidate, error) {
	now := a.now().UTC()

	resp, err := a.httpClient.GetRaw(ctx, a.buildQueryURL())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var feed Feed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(feed.Entries))
	for i := range feed.Entries {
		c, ok := a.entryToCandidate(&feed.Entries[i])
		if !ok {
			a.logger.Debug().Str("entry_id", feed.Entries[i].ID).Msg("skipping malformed entry")
			continue
		}
		if !c.PublishedWithin(a.config.Window, now) {
			continue
		}
		candidates = append(candidates, c)
	}

	// The feed is requested newest first; the leading entries are the
	// freshest ones.
	if len(candidates) > a.config.RecentN {
		candidates = candidates[:a.config.RecentN]
	}

	sources.EnrichAll(ctx, candidates, a.config.Workers, a.attention)
	rank.ScoreAll(candidates, a.venueSet)

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Attention.Score != candidates[j].Attention.Score {
			return candidates[i].Attention.Score > candidates[j].Attention.Score
		}
		return candidates[i].Published.After(candidates[j].Published)
	})

	if len(candidates) > a.config.TopN {
		candidates = candidates[:a.config.TopN]
	}
	return candidates, nil
}

// buildQueryURL constructs the Atom feed query URL.
func (a *Adapter) buildQueryURL() string {
	query := url.Values{}
	query.Set("search_query", a.config.Query)
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")
	query.Set("max_results", strconv.Itoa(a.config.MaxResults))

	return strings.TrimRight(a.config.BaseURL, "/") + "/api/query?" + query.Encode()
}

// entryToCandidate converts one Atom entry into a candidate. Entries with no
// extractable arXiv ID, no title, or no parseable date are dropped.
func (a *Adapter) entryToCandidate(entry *Entry) (domain.Candidate, bool) {
	arxivID := extractArXivID(entry.ID)
	if arxivID == "" {
		return domain.Candidate{}, false
	}

	title := domain.NormalizeWhitespace(entry.Title)
	if title == "" {
		return domain.Candidate{}, false
	}

	published, ok := parseEntryDate(entry)
	if !ok {
		return domain.Candidate{}, false
	}

	authors := make([]string, 0, len(entry.Authors))
	for _, author := range entry.Authors {
		if name := strings.TrimSpace(author.Name); name != "" {
			authors = append(authors, name)
		}
	}

	return domain.Candidate{
		Source:    domain.SourceTypeArXiv,
		Title:     title,
		Abstract:  domain.NormalizeWhitespace(entry.Summary),
		Authors:   authors,
		Published: published,
		URL:       "https://arxiv.org/abs/" + arxivID,
		DOI:       strings.TrimSpace(entry.DOI),
		ArXivID:   arxivID,
		Category:  entry.PrimaryCategory.Term,
	}, true
}

// parseEntryDate reads the published timestamp, falling back to updated.
// Only the date portion matters for the freshness window.
func parseEntryDate(entry *Entry) (time.Time, bool) {
	for _, raw := range []string{entry.Published, entry.Updated} {
		if len(raw) < 10 {
			continue
		}
		if t, err := time.Parse("2006-01-02", raw[:10]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// extractArXivID extracts the arXiv ID from the full entry URL.
// Input: "http://arxiv.org/abs/2301.12345v1" yields "2301.12345".
func extractArXivID(entryURL string) string {
	matches := arxivIDRegex.FindStringSubmatch(entryURL)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}
