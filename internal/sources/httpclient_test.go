package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biolume/mlbio-digest/internal/domain"
)

// newTestClient returns a fetcher tuned for fast tests.
func newTestClient(maxTries int) *HTTPClient {
	return NewHTTPClient(HTTPClientConfig{
		Timeout:      5 * time.Second,
		RateLimit:    1000,
		BurstSize:    1000,
		MaxTries:     maxTries,
		RetryBackoff: time.Millisecond,
		UserAgent:    "mlbio-digest-test/1.0",
	})
}

func TestGetJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "mlbio-digest-test/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message": {"items": [{"DOI": "10.1/x"}]}}`))
	}))
	defer server.Close()

	var out struct {
		Message struct {
			Items []struct {
				DOI string `json:"DOI"`
			} `json:"items"`
		} `json:"message"`
	}

	err := newTestClient(3).GetJSON(context.Background(), server.URL, nil, &out)
	require.NoError(t, err)
	require.Len(t, out.Message.Items, 1)
	assert.Equal(t, "10.1/x", out.Message.Items[0].DOI)
}

func TestGetText_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<feed></feed>"))
	}))
	defer server.Close()

	body, err := newTestClient(3).GetText(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<feed></feed>", body)
}

func TestGet_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	body, err := newTestClient(3).GetText(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_RetriesOnAnyNon200(t *testing.T) {
	// A 404 is retried too: the contract retries on every non-200 status.
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(3).GetText(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_ExhaustionYieldsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(2).GetText(context.Background(), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetchFailed)

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, server.URL, fetchErr.URL)
	assert.Contains(t, fetchErr.LastErr.Error(), "502")
}

func TestGet_RespectsRetryAfterSeconds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	start := time.Now()
	body, err := newTestClient(2).GetText(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestGet_ContextCancellationStopsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewHTTPClient(HTTPClientConfig{
		Timeout:      5 * time.Second,
		RateLimit:    1000,
		BurstSize:    1000,
		MaxTries:     10,
		RetryBackoff: time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.GetText(ctx, server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetJSON_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	var out map[string]any
	err := newTestClient(1).GetJSON(context.Background(), server.URL, nil, &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrFetchFailed)
}
