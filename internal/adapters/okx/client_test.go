package okx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traderwatch/internal/adapters/config"
	"traderwatch/pkg/errors"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.OKXConfig{
		BaseURL:           baseURL,
		Timeout:           2 * time.Second,
		RequestsPerMinute: 6000,
	}, nil)
}

func TestFetchTraderPositions_Success(t *testing.T) {
	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		w.Write([]byte(`{"code":"0","msg":"","data":[
			{"instId":"BTC-USDT-SWAP","posSide":"long","openAvgPx":"42000.5","openTime":"1700000000000","lever":"10","pos":"1.5"}
		]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	entries, err := client.FetchTraderPositions(context.Background(), "trader-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "BTC-USDT-SWAP_long_1700000000000", entries[0].SignalKey())

	query := gotQuery.Load().(url.Values)
	assert.Equal(t, []string{"SWAP"}, query["instType"])
	assert.Equal(t, []string{"trader-1"}, query["uniqueName"])
	assert.NotEmpty(t, query["t"], "cache-busting timestamp must be sent")
}

func TestFetchTraderPositions_MissingDataMeansNoPositions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"0","msg":""}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	entries, err := client.FetchTraderPositions(context.Background(), "trader-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchTraderPositions_HTTPErrorIsFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.FetchTraderPositions(context.Background(), "trader-1")
	assert.True(t, errors.Is(err, errors.ErrFetchFailed))
}

func TestFetchTraderPositions_MalformedBodyIsFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.FetchTraderPositions(context.Background(), "trader-1")
	assert.True(t, errors.Is(err, errors.ErrFetchFailed))
}

func TestFetchTraderPositions_UpstreamErrorCodeIsFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"50013","msg":"system busy"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.FetchTraderPositions(context.Background(), "trader-1")
	assert.True(t, errors.Is(err, errors.ErrFetchFailed))
}

func TestFetchTraderPositions_RetriesWithRotatedIdentity(t *testing.T) {
	var calls int32
	agents := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "throttled", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"code":"0","data":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	entries, err := client.FetchTraderPositions(context.Background(), "trader-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))

	first, second := <-agents, <-agents
	assert.NotEqual(t, first, second, "each attempt must present a fresh identity")
}

func TestFetchTraderPositions_ContextCancelDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	client := newTestClient(srv.URL)
	_, err := client.FetchTraderPositions(ctx, "trader-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errors.ErrFetchFailed), "cancellation is not a fetch verdict")
}
