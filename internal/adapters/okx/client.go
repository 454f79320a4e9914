package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"traderwatch/internal/adapters/config"
	"traderwatch/internal/adapters/redis"
	"traderwatch/internal/domain/signal"
	"traderwatch/internal/metrics"
	"traderwatch/pkg/errors"
	"traderwatch/pkg/logger"
)

const positionDetailPath = "/priapi/v5/ecotrade/public/trader/position-detail"

// retryDelays is the backoff schedule between fetch attempts. Its length
// bounds the attempt count.
var retryDelays = []time.Duration{time.Second, 2 * time.Second, 5 * time.Second}

// identities are the browser header sets rotated across attempts. The
// endpoint is public but defensive; presenting a fresh identity per attempt
// reduces correlated failures. Rotation is an upstream-evasion detail, not a
// correctness requirement.
var identities = []map[string]string{
	{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Accept-Language": "en-US,en;q=0.9",
	},
	{
		"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		"Accept-Language": "en-GB,en;q=0.8",
	},
	{
		"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Accept-Language": "en-US,en;q=0.7",
	},
	{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0",
		"Accept-Language": "en-US,en;q=0.5",
	},
}

// Client reads currently-open positions for copy-trading accounts from the
// public OKX ecotrade endpoint.
//
// The endpoint is unauthenticated and unreliable: a missing or empty data
// field legitimately means "no open positions", while transport errors, bad
// status codes and malformed bodies surface as ErrFetchFailed after the
// retry schedule is exhausted. Callers must treat ErrFetchFailed as "state
// unknown this cycle" and never derive position closes from it.
type Client struct {
	cfg      config.OKXConfig
	http     *http.Client
	limiter  *rate.Limiter
	cache    *redis.Client
	identity atomic.Uint64
	log      *logger.Logger
}

// NewClient constructs the OKX source adapter. cache may be nil; caching is a
// loss-tolerant optimization and never an error path.
func NewClient(cfg config.OKXConfig, cache *redis.Client) *Client {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	burst := rpm / 10
	if burst < 1 {
		burst = 1
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
		cache:   cache,
		log:     logger.Get().With("component", "okx_client"),
	}
}

// FetchTraderPositions returns the currently-open positions for one trader.
func (c *Client) FetchTraderPositions(ctx context.Context, traderID string) ([]signal.PositionEntry, error) {
	start := time.Now()

	if cached, ok := c.cacheGet(ctx, traderID); ok {
		metrics.RecordFetch("cached", time.Since(start))
		return cached, nil
	}

	var lastErr error
	for attempt := 0; attempt < len(retryDelays); attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "okx rate limiter")
		}

		entries, err := c.fetchOnce(ctx, traderID)
		if err == nil {
			c.cacheSet(ctx, traderID, entries)
			metrics.RecordFetch("success", time.Since(start))
			return entries, nil
		}

		lastErr = err
		c.log.Warnw("Position fetch attempt failed",
			"trader_id", traderID,
			"attempt", attempt+1,
			"error", err,
		)

		if attempt == len(retryDelays)-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "fetch cancelled")
		case <-time.After(retryDelays[attempt]):
		}
	}

	metrics.RecordFetch("failure", time.Since(start))
	return nil, errors.Wrapf(errors.ErrFetchFailed, "trader %s: %v", traderID, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, traderID string) ([]signal.PositionEntry, error) {
	params := url.Values{
		"instType":   []string{"SWAP"},
		"uniqueName": []string{traderID},
		// Cache-busting timestamp, matching what the web client sends.
		"t": []string{strconv.FormatInt(time.Now().UnixMilli(), 10)},
	}

	reqURL := c.cfg.BaseURL + positionDetailPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Origin", "https://www.okx.com")
	req.Header.Set("Referer", "https://www.okx.com/")
	for k, v := range c.nextIdentity() {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, errors.Newf("okx http %d: %s", resp.StatusCode, string(body))
	}

	var env struct {
		Code string                 `json:"code"`
		Msg  string                 `json:"msg"`
		Data []signal.PositionEntry `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrap(err, "malformed okx response")
	}
	if env.Code != "" && env.Code != "0" {
		return nil, errors.Newf("okx error %s: %s", env.Code, env.Msg)
	}

	// An absent or empty data field means the trader has no open positions.
	if len(env.Data) == 0 {
		return []signal.PositionEntry{}, nil
	}
	return env.Data, nil
}

// nextIdentity rotates round-robin through the browser header sets.
func (c *Client) nextIdentity() map[string]string {
	n := c.identity.Add(1)
	return identities[int(n-1)%len(identities)]
}

// InvalidateTrader drops the cached snapshot for a trader id. Called when an
// operator replaces a trader's id so stale positions under the old id cannot
// serve another cycle.
func (c *Client) InvalidateTrader(ctx context.Context, traderID string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, c.cacheKey(traderID)); err != nil {
		c.log.Debugw("Snapshot cache invalidation failed", "trader_id", traderID, "error", err)
	}
}

func (c *Client) cacheKey(traderID string) string {
	return fmt.Sprintf("okx:positions:%s", traderID)
}

func (c *Client) cacheGet(ctx context.Context, traderID string) ([]signal.PositionEntry, bool) {
	if c.cache == nil || c.cfg.CacheTTL <= 0 {
		return nil, false
	}

	var entries []signal.PositionEntry
	err := c.cache.Get(ctx, c.cacheKey(traderID), &entries)
	if err != nil {
		if !redis.IsNil(err) {
			c.log.Debugw("Snapshot cache read failed", "trader_id", traderID, "error", err)
		}
		return nil, false
	}
	return entries, true
}

func (c *Client) cacheSet(ctx context.Context, traderID string, entries []signal.PositionEntry) {
	if c.cache == nil || c.cfg.CacheTTL <= 0 {
		return
	}
	if err := c.cache.Set(ctx, c.cacheKey(traderID), entries, c.cfg.CacheTTL); err != nil {
		c.log.Debugw("Snapshot cache write failed", "trader_id", traderID, "error", err)
	}
}
