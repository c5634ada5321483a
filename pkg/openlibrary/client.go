// Package openlibrary is a client for the Open Library REST API. It
// covers Work, Edition and Author retrieval and editing, catalog
// search, bibkey lookups, cover uploads and the bulk save_many API.
package openlibrary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/internetarchive/olclient/internal/cache"
	"github.com/internetarchive/olclient/internal/logger"
	"github.com/internetarchive/olclient/internal/util"
)

const (
	// DefaultBaseURL is the production Open Library endpoint
	DefaultBaseURL = "https://openlibrary.org"
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRetries is the total number of attempts for a request
	DefaultMaxRetries = 5
	// DefaultInitialBackoff is the delay before the first retry; it
	// doubles on every further attempt
	DefaultInitialBackoff = 500 * time.Millisecond
	// DefaultRateLimit is the default minimum time between requests
	DefaultRateLimit = 100 * time.Millisecond
	// DefaultBurst is the default burst size for rate limiting
	DefaultBurst = 10
	// DefaultCacheTTL is how long fetched records are served from memory
	DefaultCacheTTL = 5 * time.Minute
)

// Credentials are the secrets used for authenticated write calls.
// Either a username/password pair for the Open Library login form, or
// an archive.org S3 access/secret key pair.
type Credentials struct {
	Username  string
	Password  string
	AccessKey string
	SecretKey string
}

// S3 reports whether the credentials are archive.org S3 keys.
func (c Credentials) S3() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

// ClientConfig holds configuration for the Open Library client
type ClientConfig struct {
	// BaseURL selects the Open Library backend (default: DefaultBaseURL)
	BaseURL string
	// Timeout specifies a time limit for requests (default: DefaultTimeout)
	Timeout time.Duration
	// MaxRetries specifies the maximum number of attempts for failed requests
	MaxRetries int
	// InitialBackoff specifies the delay before the first retry
	InitialBackoff time.Duration
	// RateLimit specifies the minimum time between requests
	RateLimit time.Duration
	// Burst specifies the burst size for rate limiting
	Burst int
	// CacheTTL bounds how long record reads are served from memory;
	// negative disables the read cache
	CacheTTL time.Duration
}

// Client represents an Open Library API client. A Client is safe for
// concurrent use; write calls require a prior Login.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	logger         *logger.Logger
	limiter        *util.RateLimiter
	records        cache.Cache[string, json.RawMessage]
	maxRetries     int
	initialBackoff time.Duration
}

// NewClient creates a new Open Library API client
func NewClient(cfg ClientConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Get()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	// cookiejar.New only fails on invalid options, and we pass none
	jar, _ := cookiejar.New(nil)

	var records cache.Cache[string, json.RawMessage]
	if cfg.CacheTTL > 0 {
		records = cache.WithTTL(cache.NewMemoryCache[string, json.RawMessage](log), cfg.CacheTTL)
	} else {
		records = noopCache{}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:         log.With(map[string]interface{}{"component": "openlibrary_client"}),
		limiter:        util.NewRateLimiter(cfg.RateLimit, cfg.Burst),
		records:        records,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
	}
}

// BaseURL returns the endpoint the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login authenticates against /account/login so the client's cookie
// jar carries a valid session for future write requests. Form-encoded
// for username/password credentials, JSON for archive.org S3 keys.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	var body []byte
	var contentType string
	if creds.S3() {
		var err error
		body, err = json.Marshal(map[string]string{
			"access": creds.AccessKey,
			"secret": creds.SecretKey,
		})
		if err != nil {
			return fmt.Errorf("failed to encode credentials: %w", err)
		}
		contentType = "application/json"
	} else {
		form := url.Values{
			"username": {creds.Username},
			"password": {creds.Password},
		}
		body = []byte(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	header := http.Header{}
	header.Set("Content-Type", contentType)
	if _, _, err := c.do(ctx, http.MethodPost, "/account/login", body, header); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if len(c.httpClient.Jar.Cookies(u)) == 0 {
		return ErrNoSession
	}

	c.logger.Info("Logged in to Open Library", map[string]interface{}{
		"base_url": c.baseURL,
		"s3":       creds.S3(),
	})
	return nil
}

// do performs a request with rate limiting and a retry loop: network
// errors, 5xx responses and 429s are retried with exponential backoff,
// client errors fail fast. It returns the final response (body already
// consumed) and the body bytes.
func (c *Client) do(ctx context.Context, method, path string, body []byte, header http.Header) (*http.Response, []byte, error) {
	fullURL := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.initialBackoff * time.Duration(1<<uint(attempt-1))
			c.logger.Debug("Retrying Open Library request", map[string]interface{}{
				"method":     method,
				"path":       path,
				"attempt":    attempt + 1,
				"max":        c.maxRetries,
				"backoff_ms": backoff.Milliseconds(),
				"error":      lastErr.Error(),
			})

			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}

		// Fresh request per attempt so the body reader is rewound
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		for k, vs := range header {
			req.Header[k] = vs
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to make request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			wait := c.limiter.OnRateLimit(retryAfter)
			lastErr = fmt.Errorf("rate limited: %w", util.ErrRateLimited)
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(wait):
			}
			continue

		case resp.StatusCode >= 500:
			c.logger.Warn("Received server error from Open Library", map[string]interface{}{
				"method":      method,
				"path":        path,
				"status_code": resp.StatusCode,
				"attempt":     attempt + 1,
			})
			lastErr = &RequestError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: snippet(respBody)}
			continue

		case resp.StatusCode == http.StatusNotFound:
			return nil, nil, fmt.Errorf("%s %s: %w", method, path, ErrNotFound)

		case resp.StatusCode >= 400:
			c.logger.Error("Received client error response", map[string]interface{}{
				"method":      method,
				"path":        path,
				"status_code": resp.StatusCode,
			})
			return nil, nil, &RequestError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: snippet(respBody)}
		}

		c.limiter.ResetRate()
		if attempt > 0 {
			c.logger.Info("Request succeeded after retries", map[string]interface{}{
				"method":   method,
				"path":     path,
				"attempts": attempt + 1,
			})
		}
		return resp, respBody, nil
	}

	c.logger.Error("Exhausted all retries for Open Library request", map[string]interface{}{
		"method":      method,
		"path":        path,
		"max_retries": c.maxRetries,
		"error":       lastErr.Error(),
	})
	return nil, nil, fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

// getJSON fetches path and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	_, body, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// getRecord fetches a record's JSON by its full key (e.g. /works/OL1W),
// serving repeat reads from the in-memory cache.
func (c *Client) getRecord(ctx context.Context, key string) (json.RawMessage, error) {
	if raw, ok := c.records.Get(key); ok {
		return raw, nil
	}
	_, body, err := c.do(ctx, http.MethodGet, key+".json", nil, nil)
	if err != nil {
		return nil, err
	}
	c.records.Set(key, body, 0)
	return body, nil
}

// putDocument writes a record document back by its full key, with the
// edit comment the catalog requires, and invalidates the read cache.
func (c *Client) putDocument(ctx context.Context, key string, doc map[string]interface{}, comment string) error {
	doc["_comment"] = comment
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	if _, _, err := c.do(ctx, http.MethodPut, key+".json", body, header); err != nil {
		return err
	}

	c.records.Delete(key)
	return nil
}

// parseRetryAfter reads a Retry-After header value in seconds.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// snippet bounds a response body for inclusion in error messages.
func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max]
	}
	return s
}

// noopCache disables record caching.
type noopCache struct{}

func (noopCache) Set(string, json.RawMessage, time.Duration) {}
func (noopCache) Get(string) (json.RawMessage, bool)         { return nil, false }
func (noopCache) Delete(string)                              {}
func (noopCache) Clear()                                     {}
