package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/stitts-dev/nhl-cortex/internal/nhl"
	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

const NHLServiceName = "nhl-api"

// Cache lifetimes per endpoint
const (
	scheduleTTL  = 5 * time.Minute
	standingsTTL = 30 * time.Minute
	clubStatsTTL = time.Hour
	rosterTTL    = 15 * time.Minute
)

type NHLClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int
	RetryBackoff      time.Duration
}

func DefaultNHLClientConfig() NHLClientConfig {
	return NHLClientConfig{
		BaseURL:           "https://api-web.nhle.com/v1",
		Timeout:           10 * time.Second,
		RequestsPerSecond: 2,
		MaxRetries:        3,
		RetryBackoff:      time.Second,
	}
}

// StatusError is a non-200 answer from the API
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// Retryable reports whether the request may succeed if tried again
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// NHLClient talks to the public NHL web API. Calls are rate limited,
// retried with exponential backoff and guarded by a circuit breaker.
type NHLClient struct {
	baseURL    string
	httpClient *http.Client
	cache      nhl.CacheProvider
	limiter    *rate.Limiter
	breakers   *CircuitBreakerService
	logger     *logrus.Logger
	maxRetries int
	backoff    time.Duration
}

func NewNHLClient(cfg NHLClientConfig, cache nhl.CacheProvider, breakers *CircuitBreakerService, logger *logrus.Logger) *NHLClient {
	defaults := DefaultNHLClientConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}

	return &NHLClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breakers:   breakers,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
	}
}

// GetScheduleNow returns the current game week
func (c *NHLClient) GetScheduleNow(ctx context.Context) (*nhl.ScheduleResponse, error) {
	var resp nhl.ScheduleResponse
	if err := c.get(ctx, "schedule/now", scheduleTTL, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSchedule returns the game week starting at date (YYYY-MM-DD)
func (c *NHLClient) GetSchedule(ctx context.Context, date string) (*nhl.ScheduleResponse, error) {
	var resp nhl.ScheduleResponse
	if err := c.get(ctx, "schedule/"+date, scheduleTTL, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *NHLClient) GetStandings(ctx context.Context) (*nhl.StandingsResponse, error) {
	var resp nhl.StandingsResponse
	if err := c.get(ctx, "standings/now", standingsTTL, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *NHLClient) GetClubStats(ctx context.Context, team string) (*nhl.ClubStatsResponse, error) {
	var resp nhl.ClubStatsResponse
	if err := c.get(ctx, fmt.Sprintf("club-stats/%s/now", team), clubStatsTTL, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *NHLClient) GetRoster(ctx context.Context, team string) (*nhl.RosterResponse, error) {
	var resp nhl.RosterResponse
	if err := c.get(ctx, fmt.Sprintf("roster/%s/current", team), rosterTTL, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetBoxscore is never cached; game state changes until the final horn
func (c *NHLClient) GetBoxscore(ctx context.Context, gameID int64) (*nhl.BoxscoreResponse, error) {
	var resp nhl.BoxscoreResponse
	if err := c.get(ctx, fmt.Sprintf("gamecenter/%d/boxscore", gameID), 0, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BreakerState exposes the upstream breaker for health reporting
func (c *NHLClient) BreakerState() gobreaker.State {
	return c.breakers.GetState(NHLServiceName)
}

func (c *NHLClient) get(ctx context.Context, path string, ttl time.Duration, dest interface{}) error {
	cacheKey := "nhl:" + path
	if c.cache != nil && ttl > 0 {
		if err := c.cache.GetSimple(cacheKey, dest); err == nil {
			return nil
		}
	}

	_, err := c.breakers.Execute(NHLServiceName, func() (interface{}, error) {
		return nil, c.makeRequest(ctx, c.baseURL+"/"+path, dest)
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", utils.ErrUpstream, path, err)
	}

	if c.cache != nil && ttl > 0 {
		if err := c.cache.SetSimple(cacheKey, dest, ttl); err != nil {
			c.logger.Debugf("Failed to cache %s: %v", path, err)
		}
	}
	return nil
}

// makeRequest performs HTTP request with exponential backoff
func (c *NHLClient) makeRequest(ctx context.Context, url string, target interface{}) error {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		lastErr = c.doRequest(ctx, url, target)
		if lastErr == nil {
			return nil
		}

		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && !statusErr.Retryable() {
			return lastErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == c.maxRetries-1 {
			break
		}

		waitTime := time.Duration(math.Pow(2, float64(attempt))) * c.backoff
		c.logger.Warnf("Request to %s failed (attempt %d), waiting %v: %v", url, attempt+1, waitTime, lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *NHLClient) doRequest(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
