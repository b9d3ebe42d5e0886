package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ed-andre/nowrepsync/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewWithOpts(Opts{
		Endpoints: []string{url},
		Timeout:   2 * time.Second,
		RPS:       1000,
		Burst:     1000,
	})
}

func TestFetchReturnsRawPayload(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"b1","title":"Main"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	payload, err := c.Fetch(context.Background(), entities.Boards)
	require.NoError(t, err)
	assert.Equal(t, "/boards", gotPath)
	assert.JSONEq(t, `{"data":[{"id":"b1","title":"Main"}]}`, string(payload))
}

func TestFetchUsesEntityEndpointPaths(t *testing.T) {
	paths := make([]string, 0, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Fetch(context.Background(), entities.BoardsTalents)
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), entities.MediaTags)
	require.NoError(t, err)

	assert.Equal(t, []string{"/boards/talents", "/portfolios/media/tags"}, paths)
}

func TestFetchNon2xxIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Fetch(context.Background(), entities.Talents)
	require.Error(t, err)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusBadGateway, upstream.Status)
	assert.Contains(t, upstream.Body, "bad gateway")
}

func TestFetchTransportFailureIsNetworkError(t *testing.T) {
	// Closed server: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := newTestClient(url)
	_, err := c.Fetch(context.Background(), entities.Boards)
	require.Error(t, err)

	var network *NetworkError
	require.True(t, errors.As(err, &network))
}

func TestFetchRejectsInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Fetch(context.Background(), entities.Boards)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestFetchRejectsUnknownEntity(t *testing.T) {
	c := newTestClient("http://localhost:0")
	_, err := c.Fetch(context.Background(), entities.Entity("users"))
	require.Error(t, err)
}

func TestBreakerOpensAfterRepeatedServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewWithOpts(Opts{
		Endpoints:       []string{srv.URL},
		RPS:             1000,
		Burst:           1000,
		BreakerFailures: 2,
		BreakerCooldown: time.Minute,
	})

	for i := 0; i < 2; i++ {
		_, err := c.Fetch(context.Background(), entities.Boards)
		require.Error(t, err)
	}

	// Breaker is now open; the only endpoint is skipped.
	_, err := c.Fetch(context.Background(), entities.Boards)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker")
}
