package crossref

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/biolume/mlbio-digest/internal/domain"
	"github.com/biolume/mlbio-digest/internal/observability"
	"github.com/biolume/mlbio-digest/internal/rank"
	"github.com/biolume/mlbio-digest/internal/sources"
)

const (
	// DefaultBaseURL is the default Crossref API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRows is the default per-venue page size.
	DefaultRows = 200

	// DefaultMaxCandidates caps the pool before enrichment fan-out.
	DefaultMaxCandidates = 30

	// DefaultTopN is this source's contribution to the digest.
	DefaultTopN = 5

	// DefaultWorkers is the default enrichment pool size.
	DefaultWorkers = 5

	// selectFields trims the works response to the fields the digest reads.
	selectFields = "DOI,title,container-title,author,abstract,URL,created,issued"

	// sourceName is the human-readable name for this source.
	sourceName = "Crossref"
)

// Config holds configuration for the Crossref adapter.
type Config struct {
	// BaseURL is the Crossref API base URL.
	BaseURL string

	// Venues is the journal allow-list. One works query is issued per
	// venue, and membership also grants the ranking venue bonus.
	Venues []string

	// IncludeKeywords: a record survives only if title+abstract matches
	// at least one, case-insensitively.
	IncludeKeywords []string

	// ExcludeKeywords veto a record on any match.
	ExcludeKeywords []string

	// Rows is the per-venue page size requested from the API.
	Rows int

	// MaxCandidates caps the pool before enrichment fan-out.
	MaxCandidates int

	// TopN is the number of items contributed to the digest.
	TopN int

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
	if c.Rows == 0 {
		c.Rows = DefaultRows
	}
	if c.MaxCandidates == 0 {
		c.MaxCandidates = DefaultMaxCandidates
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

// Adapter implements the sources.Adapter interface for Crossref.
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

// New creates a new Crossref adapter.
func New(cfg Config, httpClient *sources.HTTPClient, attention sources.AttentionLookup, logger zerolog.Logger) *Adapter {
	cfg.applyDefaults()

	return &Adapter{
		config:     cfg,
		httpClient: httpClient,
		attention:  attention,
		venueSet:   rank.NewVenueSet(cfg.Venues),
		logger:     observability.WithSourceContext(logger, string(domain.SourceTypeCrossref)),
		now:        time.Now,
	}
}

// SourceType returns the source type identifier.
func (a *Adapter) SourceType() domain.SourceType {
	return domain.SourceTypeCrossref
}

// Name returns the human-readable name for this source.
func (a *Adapter) Name() string {
	return sourceName
}

// TopPicks queries every allow-listed venue, filters and deduplicates the
// returned works, enriches the surviving pool with attention data, and
// returns the top candidates by raw attention score.
//
// A failing venue query is logged and skipped; the adapter only errors when
// every venue query failed.
func (a *Adapter) TopPicks(ctx context.Context) ([]domain.Candidate, error) {
	now := a.now().UTC()
	since := now.Add(-a.config.Window)

	var (
		candidates []domain.Candidate
		seenDOI    = make(map[string]struct{})
		failures   int
	)

	for _, venue := range a.config.Venues {
		queryURL := a.buildWorksURL(venue, since, now)

		venueLogger := observability.WithVenueContext(a.logger, venue)

		var resp WorksResponse
		if err := a.httpClient.GetJSON(ctx, queryURL, nil, &resp); err != nil {
			failures++
			venueLogger.Warn().Err(err).Msg("venue query failed, skipping")
			continue
		}

		for i := range resp.Message.Items {
			c, ok := a.workToCandidate(&resp.Message.Items[i])
			if !ok {
				continue
			}
			if c.DOI != "" {
				if _, dup := seenDOI[c.DOI]; dup {
					continue
				}
				seenDOI[c.DOI] = struct{}{}
			}
			if !a.keepByKeywords(c.Title, c.Abstract) {
				continue
			}
			// Server-side date filtering is authoritative, but reject
			// records whose resolved date still falls outside the window.
			if !c.PublishedWithin(a.config.Window, now) {
				continue
			}
			candidates = append(candidates, c)
		}
		venueLogger.Debug().Int("items", len(resp.Message.Items)).Msg("venue query complete")
	}

	if failures == len(a.config.Venues) {
		return nil, fmt.Errorf("all %d venue queries failed: %w", failures, domain.ErrFetchFailed)
	}

	// Bound the enrichment fan-out.
	if len(candidates) > a.config.MaxCandidates {
		candidates = candidates[:a.config.MaxCandidates]
	}

	sources.EnrichAll(ctx, candidates, a.config.Workers, a.attention)
	rank.ScoreAll(candidates, a.venueSet)

	// Selection sorts on the raw attention score, not the composite
	// RankScore. Intentional; see the rank package doc.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Attention.Score > candidates[j].Attention.Score
	})

	if len(candidates) > a.config.TopN {
		candidates = candidates[:a.config.TopN]
	}
	return candidates, nil
}

// buildWorksURL constructs the per-venue works query.
func (a *Adapter) buildWorksURL(venue string, since, until time.Time) string {
	filter := strings.Join([]string{
		"from-pub-date:" + since.Format("2006-01-02"),
		"until-pub-date:" + until.Format("2006-01-02"),
		"type:journal-article",
		"container-title:" + venue,
	}, ",")

	query := url.Values{}
	query.Set("filter", filter)
	query.Set("select", selectFields)
	query.Set("rows", strconv.Itoa(a.config.Rows))

	return strings.TrimRight(a.config.BaseURL, "/") + "/works?" + query.Encode()
}

// workToCandidate converts one Crossref work into a candidate.
// Records with no title at all are dropped as malformed.
func (a *Adapter) workToCandidate(w *Work) (domain.Candidate, bool) {
	title := ""
	if len(w.Title) > 0 {
		title = domain.NormalizeWhitespace(w.Title[0])
	}
	if title == "" {
		return domain.Candidate{}, false
	}

	journal := ""
	if len(w.ContainerTitle) > 0 {
		journal = w.ContainerTitle[0]
	}

	authors := make([]string, 0, len(w.Author))
	for _, author := range w.Author {
		name := strings.TrimSpace(strings.TrimSpace(author.Given) + " " + strings.TrimSpace(author.Family))
		if name != "" {
			authors = append(authors, name)
		}
	}

	return domain.Candidate{
		Source:    domain.SourceTypeCrossref,
		Title:     title,
		Abstract:  StripMarkup(w.Abstract),
		Authors:   authors,
		Published: resolveDate(w),
		URL:       w.URL,
		DOI:       w.DOI,
		Journal:   journal,
	}, true
}

// keepByKeywords applies the include/exclude filter over title+abstract.
func (a *Adapter) keepByKeywords(title, abstract string) bool {
	haystack := strings.ToLower(title + " " + abstract)

	for _, kw := range a.config.ExcludeKeywords {
		if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
			return false
		}
	}
	for _, kw := range a.config.IncludeKeywords {
		if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// resolveDate picks the publication date for a work: a full issued
// year/month/day triple when present, else the created timestamp, else a
// partial issued date padded to the first of the period.
func resolveDate(w *Work) time.Time {
	parts := w.Issued.first()

	if len(parts) >= 3 {
		return time.Date(parts[0], time.Month(parts[1]), parts[2], 0, 0, 0, 0, time.UTC)
	}

	if len(w.Created.DateTime) >= 10 {
		if t, err := time.Parse("2006-01-02", w.Created.DateTime[:10]); err == nil {
			return t
		}
	}

	switch len(parts) {
	case 2:
		return time.Date(parts[0], time.Month(parts[1]), 1, 0, 0, 0, 0, time.UTC)
	case 1:
		return time.Date(parts[0], time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Time{}
}

// first returns the leading date-parts triple, or nil. Zero or negative
// components mark the part and everything after it as unknown.
func (p PartedDate) first() []int {
	if len(p.DateParts) == 0 {
		return nil
	}
	parts := p.DateParts[0]
	for i, v := range parts {
		if v <= 0 {
			return parts[:i]
		}
	}
	return parts
}

// StripMarkup removes inline JATS/HTML tags from a Crossref abstract and
// collapses the remaining whitespace.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return domain.NormalizeWhitespace(s)
	}
	return domain.NormalizeWhitespace(doc.Text())
}
