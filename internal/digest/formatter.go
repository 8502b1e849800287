// Package digest turns ranked candidates into a Slack Block Kit payload.
package digest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/biolume/mlbio-digest/internal/domain"
)

const (
	// noTitle replaces an empty title in the rendered digest.
	noTitle = "(no title)"

	// noSummary replaces a missing or empty abstract.
	noSummary = "Summary unavailable."
)

// sentenceEnd matches whitespace that follows a sentence-ending mark.
var sentenceEnd = regexp.MustCompile(`([.!?])\s+`)

// FirstTwoSentences returns the first two sentences of text, joined with a
// single space. Text with fewer than two sentence boundaries comes back
// whole.
func FirstTwoSentences(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	parts := splitSentences(text)
	if len(parts) >= 2 {
		return parts[0] + " " + parts[1]
	}
	return parts[0]
}

// splitSentences splits text after each sentence-ending mark followed by
// whitespace, keeping the mark with its sentence.
func splitSentences(text string) []string {
	indexes := sentenceEnd.FindAllStringSubmatchIndex(text, -1)

	var (
		parts []string
		start int
	)
	for _, idx := range indexes {
		// idx[3] is the end of the punctuation mark, idx[1] the end of the
		// trailing whitespace.
		parts = append(parts, text[start:idx[3]])
		start = idx[1]
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}

// EntryFor renders one candidate as a digest entry, filling in fallbacks for
// missing fields.
func EntryFor(c domain.Candidate) domain.DigestEntry {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		title = noTitle
	}

	date := ""
	if !c.Published.IsZero() {
		date = c.Published.Format("2006-01-02")
	}

	url := c.URL
	if url == "" && c.DOI != "" {
		url = "https://doi.org/" + c.DOI
	}

	summary := FirstTwoSentences(c.Abstract)
	if summary == "" {
		summary = noSummary
	}

	return domain.DigestEntry{
		Title:   title,
		Date:    date,
		URL:     url,
		Summary: summary,
	}
}

// BuildPayload assembles the full webhook payload: a header, a divider, and
// one numbered section per entry.
func BuildPayload(headerTitle string, entries []domain.DigestEntry) Payload {
	blocks := make([]Block, 0, len(entries)+2)
	blocks = append(blocks, HeaderBlock(headerTitle), DividerBlock())

	for i, entry := range entries {
		text := fmt.Sprintf("*%d. <%s|%s>*\n_%s_ – %s",
			i+1, entry.URL, entry.Title, entry.Date, entry.Summary)
		blocks = append(blocks, SectionBlock(text))
	}

	return Payload{Blocks: blocks}
}

// EntriesFor renders candidates in their given order.
func EntriesFor(candidates []domain.Candidate) []domain.DigestEntry {
	entries := make([]domain.DigestEntry, 0, len(candidates))
	for _, c := range candidates {
		entries = append(entries, EntryFor(c))
	}
	return entries
}
