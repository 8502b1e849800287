// Package domain defines the core types shared across the digest pipeline.
package domain

import (
	"strings"
	"time"
)

// SourceType identifies which upstream API produced a candidate.
type SourceType string

const (
	// SourceTypeCrossref marks candidates from the Crossref works API.
	SourceTypeCrossref SourceType = "crossref"

	// SourceTypeArXiv marks candidates from the arXiv Atom feed.
	SourceTypeArXiv SourceType = "arxiv"
)

// Label returns the human-readable source label used in scoring and logs.
func (s SourceType) Label() string {
	switch s {
	case SourceTypeCrossref:
		return "Crossref"
	case SourceTypeArXiv:
		return "arXiv"
	default:
		return string(s)
	}
}

// Attention holds the social-attention signal for one scholarly identifier.
// The zero value means "no data", which is an expected outcome: lookups that
// fail for any reason resolve to it rather than an error.
type Attention struct {
	// Mentions is the count of social-media mentions.
	Mentions float64

	// Score is the aggregate attention score.
	Score float64

	// DetailsURL links to the attention provider's detail page.
	DetailsURL string
}

// IsZero reports whether the lookup produced no data.
func (a Attention) IsZero() bool {
	return a.Mentions == 0 && a.Score == 0 && a.DetailsURL == ""
}

// Candidate is one research item flowing through the pipeline. A source
// adapter creates it from a single upstream record, the enrichment pool fills
// in Attention, the ranking step sets RankScore, and the formatter reads it.
// Candidates live for one run only; there is no persistence.
type Candidate struct {
	// Source identifies the producing adapter.
	Source SourceType

	// Title is the item title. May be empty for malformed upstream records.
	Title string

	// Abstract is the plain-text abstract, markup already stripped.
	// May be empty.
	Abstract string

	// Authors holds author display names in upstream order.
	Authors []string

	// Published is the publication date. The zero value means unknown.
	Published time.Time

	// URL is the landing page for the item.
	URL string

	// DOI is set for Crossref items that carry one.
	DOI string

	// ArXivID is set for arXiv items ("2301.12345" form, version stripped).
	ArXivID string

	// Journal is the venue name for journal articles.
	Journal string

	// Category is the arXiv primary category term (e.g. "q-bio.QM").
	Category string

	// Attention is the enrichment result. Zero when the lookup found nothing.
	Attention Attention

	// RankScore is the composite score. Informational: final selection sorts
	// by raw attention signal, not by this value.
	RankScore float64
}

// ExternalID returns the identifier used for attention lookups: the DOI when
// present, else the arXiv id, else empty.
func (c *Candidate) ExternalID() string {
	if c.DOI != "" {
		return c.DOI
	}
	return c.ArXivID
}

// PublishedWithin reports whether the candidate's publication date falls
// inside the trailing window ending at now (inclusive on both ends).
// Candidates with an unknown date are never within the window.
func (c *Candidate) PublishedWithin(window time.Duration, now time.Time) bool {
	if c.Published.IsZero() {
		return false
	}
	cutoff := now.Add(-window)
	return !c.Published.Before(cutoff) && !c.Published.After(now)
}

// DigestEntry is the immutable rendered projection of one selected candidate.
type DigestEntry struct {
	// Title is the trimmed title, "(no title)" when absent.
	Title string

	// Date is the ISO publication date, empty when unknown.
	Date string

	// URL is the link target, possibly a doi.org fallback, possibly empty.
	URL string

	// Summary is the first two sentences of the abstract, or a fixed
	// fallback when the abstract is empty.
	Summary string
}

// NormalizeWhitespace trims and collapses runs of whitespace into single
// spaces. Upstream titles and abstracts routinely carry embedded newlines.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
