package altmetric

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/biolume/mlbio-digest/internal/domain"
	"github.com/biolume/mlbio-digest/internal/sources"
)

func newTestClient(serverURL string) *Client {
	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:      5 * time.Second,
		RateLimit:    1000,
		BurstSize:    1000,
		MaxTries:     1,
		RetryBackoff: time.Millisecond,
	})
	return New(Config{BaseURL: serverURL}, httpClient, zerolog.Nop())
}

func TestScoreByDOI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// DOIs are escaped as a single path segment.
		assert.Equal(t, "/v1/doi/10.1038%2Fs41586-024-1", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"cited_by_tweeters_count": 42, "score": 98.5, "details_url": "https://altmetric.test/details/1"}`))
	}))
	defer server.Close()

	got := newTestClient(server.URL).ScoreByDOI(context.Background(), "10.1038/s41586-024-1")

	assert.Equal(t, 42.0, got.Mentions)
	assert.Equal(t, 98.5, got.Score)
	assert.Equal(t, "https://altmetric.test/details/1", got.DetailsURL)
}

func TestScoreByArXivID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/arxiv/2301.12345", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"cited_by_tweeters_count": 3, "score": 7.1, "details_url": ""}`))
	}))
	defer server.Close()

	got := newTestClient(server.URL).ScoreByArXivID(context.Background(), "2301.12345")

	assert.Equal(t, 3.0, got.Mentions)
	assert.Equal(t, 7.1, got.Score)
}

func TestLookup_Dispatch(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"score": 1}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	// DOI takes precedence over the arXiv id.
	client.Lookup(context.Background(), &domain.Candidate{DOI: "10.1/x", ArXivID: "2301.1"})
	client.Lookup(context.Background(), &domain.Candidate{ArXivID: "2301.2"})
	got := client.Lookup(context.Background(), &domain.Candidate{Title: "no id"})

	assert.Equal(t, []string{"/v1/doi/10.1%2Fx", "/v1/arxiv/2301.2"}, paths)
	assert.True(t, got.IsZero())
}

func TestLookup_FailuresResolveToNoData(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		got := newTestClient(server.URL).ScoreByDOI(context.Background(), "10.1/unknown")
		assert.True(t, got.IsZero())
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>surprise</html>"))
		}))
		defer server.Close()

		got := newTestClient(server.URL).ScoreByDOI(context.Background(), "10.1/x")
		assert.True(t, got.IsZero())
	})

	t.Run("server unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		got := newTestClient(server.URL).ScoreByDOI(context.Background(), "10.1/x")
		assert.True(t, got.IsZero())
	})
}
