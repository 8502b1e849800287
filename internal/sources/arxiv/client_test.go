package arxiv

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biolume/mlbio-digest/internal/domain"
	"github.com/biolume/mlbio-digest/internal/sources"
)

// fixedNow pins the freshness window for every test.
var fixedNow = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

// stubAttention returns a canned score per arXiv ID.
type stubAttention struct {
	scores map[string]float64
}

func (s *stubAttention) Lookup(_ context.Context, c *domain.Candidate) domain.Attention {
	if score, ok := s.scores[c.ArXivID]; ok {
		return domain.Attention{Score: score}
	}
	return domain.Attention{}
}

func atomEntry(id, title, published string) string {
	return fmt.Sprintf(`<entry>
		<id>http://arxiv.org/abs/%sv1</id>
		<title>%s</title>
		<summary>  A summary
		  spread over lines.  </summary>
		<published>%sT10:00:00Z</published>
		<updated>%sT10:00:00Z</updated>
		<author><name>Grace Hopper</name></author>
		<primary_category term="q-bio.QM"/>
	</entry>`, id, title, published, published)
}

func atomFeed(entries ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
	<totalResults>` + fmt.Sprint(len(entries)) + `</totalResults>
	` + strings.Join(entries, "\n") + `
</feed>`
}

func newTestAdapter(cfg Config, attention sources.AttentionLookup) *Adapter {
	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		MaxTries:     1,
		RetryBackoff: time.Millisecond,
		RateLimit:    1000,
		BurstSize:    1000,
	})
	a := New(cfg, httpClient, attention, zerolog.Nop())
	a.now = func() time.Time { return fixedNow }
	return a
}

func TestTopPicks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/query", r.URL.Path)
		assert.Equal(t, "submittedDate", r.URL.Query().Get("sortBy"))
		assert.Equal(t, "descending", r.URL.Query().Get("sortOrder"))
		assert.NotEmpty(t, r.URL.Query().Get("search_query"))

		fmt.Fprint(w, atomFeed(
			atomEntry("2608.11111", "Protein language models", "2026-08-27"),
			atomEntry("2608.22222", "Single cell foundation models", "2026-08-20"),
			atomEntry("2605.33333", "An older preprint", "2026-05-01"),
		))
	}))
	defer server.Close()

	attention := &stubAttention{scores: map[string]float64{
		"2608.11111": 3,
		"2608.22222": 40,
	}}

	adapter := newTestAdapter(Config{BaseURL: server.URL}, attention)

	picks, err := adapter.TopPicks(context.Background())
	require.NoError(t, err)
	require.Len(t, picks, 2)

	// The stale entry is outside the window; the rest sort by attention.
	assert.Equal(t, "2608.22222", picks[0].ArXivID)
	assert.Equal(t, "2608.11111", picks[1].ArXivID)

	assert.Equal(t, domain.SourceTypeArXiv, picks[0].Source)
	assert.Equal(t, "https://arxiv.org/abs/2608.22222", picks[0].URL)
	assert.Equal(t, "A summary spread over lines.", picks[0].Abstract)
	assert.Equal(t, []string{"Grace Hopper"}, picks[0].Authors)
	assert.Equal(t, "q-bio.QM", picks[0].Category)
	assert.Equal(t, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), picks[0].Published)
}

func TestTopPicks_RecencyBreaksTies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, atomFeed(
			atomEntry("2608.1", "Newer but unscored", "2026-08-25"),
			atomEntry("2608.2", "Older and unscored", "2026-08-10"),
		))
	}))
	defer server.Close()

	adapter := newTestAdapter(Config{BaseURL: server.URL}, &stubAttention{})

	picks, err := adapter.TopPicks(context.Background())
	require.NoError(t, err)
	require.Len(t, picks, 2)
	assert.Equal(t, "2608.1", picks[0].ArXivID)
	assert.Equal(t, "2608.2", picks[1].ArXivID)
}

func TestTopPicks_RecentNBoundsEnrichment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entries := make([]string, 0, 6)
		for i := 0; i < 6; i++ {
			entries = append(entries, atomEntry(
				fmt.Sprintf("2608.%d", i),
				fmt.Sprintf("Preprint %d", i),
				fmt.Sprintf("2026-08-%02d", 28-i),
			))
		}
		fmt.Fprint(w, atomFeed(entries...))
	}))
	defer server.Close()

	// Only the entry outside the recent window carries a score; it must not
	// surface because it is never enriched.
	adapter := newTestAdapter(Config{
		BaseURL: server.URL,
		RecentN: 4,
		TopN:    1,
	}, &stubAttention{scores: map[string]float64{"2608.5": 99}})

	picks, err := adapter.TopPicks(context.Background())
	require.NoError(t, err)
	require.Len(t, picks, 1)
	assert.Equal(t, "2608.0", picks[0].ArXivID)
	assert.Zero(t, picks[0].Attention.Score)
}

func TestTopPicks_SkipsMalformedEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, atomFeed(
			`<entry><id>http://example.com/not-arxiv</id><title>No ID</title><published>2026-08-25T00:00:00Z</published></entry>`,
			`<entry><id>http://arxiv.org/abs/2608.4v1</id><title></title><published>2026-08-25T00:00:00Z</published></entry>`,
			`<entry><id>http://arxiv.org/abs/2608.5v1</id><title>No date</title></entry>`,
			atomEntry("2608.6", "The good one", "2026-08-25"),
		))
	}))
	defer server.Close()

	adapter := newTestAdapter(Config{BaseURL: server.URL}, &stubAttention{})

	picks, err := adapter.TopPicks(context.Background())
	require.NoError(t, err)
	require.Len(t, picks, 1)
	assert.Equal(t, "2608.6", picks[0].ArXivID)
}

func TestTopPicks_FetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	adapter := newTestAdapter(Config{BaseURL: server.URL}, &stubAttention{})

	picks, err := adapter.TopPicks(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetchFailed)
	assert.Nil(t, picks)
}

func TestExtractArXivID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"versioned modern id", "http://arxiv.org/abs/2301.12345v1", "2301.12345"},
		{"unversioned modern id", "https://arxiv.org/abs/2301.12345", "2301.12345"},
		{"legacy id", "http://arxiv.org/abs/hep-th/9901001v2", "hep-th/9901001"},
		{"not an arxiv url", "http://example.com/abs/2301.12345", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractArXivID(tt.url))
		})
	}
}
