// Package client is a Go consumer of the task API. It attaches the stored
// access token to every request and transparently refreshes the session on
// the first 401, funneling concurrent callers through a single refresh call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout = 10 * time.Second
	refreshPath    = "/api/auth/refresh"
)

// ErrSessionExpired is returned when a silent refresh fails and the session
// state has been cleared.
var ErrSessionExpired = errors.New("session expired")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// FieldError is a field-level validation failure reported by the server.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// TokenStorage persists the access token between client lifetimes.
type TokenStorage interface {
	Load() string
	Store(token string)
	Clear()
}

type memoryStorage struct {
	mu    sync.Mutex
	token string
}

func (s *memoryStorage) Load() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *memoryStorage) Store(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *memoryStorage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client. A cookie jar is
// attached when the given client has none, since the refresh token travels
// only as a cookie.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenStorage uses a custom access-token store.
func WithTokenStorage(s TokenStorage) Option {
	return func(c *Client) { c.storage = s }
}

// WithSessionExpiredHandler installs a hook invoked when a silent refresh
// fails; the app typically routes to its login entry point here.
func WithSessionExpiredHandler(fn func()) Option {
	return func(c *Client) { c.onSessionExpired = fn }
}

// Client talks to the task API.
type Client struct {
	baseURL          string
	http             *http.Client
	storage          TokenStorage
	refresh          singleflight.Group
	onSessionExpired func()
}

// New creates a client for the API at baseURL (scheme://host[:port], no path).
func New(baseURL string, opts ...Option) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	c := &Client{
		baseURL: baseURL,
		storage: &memoryStorage{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{Timeout: defaultTimeout}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// AccessToken exposes the currently held access token, empty when anonymous.
func (c *Client) AccessToken() string {
	return c.storage.Load()
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []FieldError    `json:"errors"`
}

// do performs one request, decodes the envelope into out (when non-nil), and
// retries exactly once after a successful refresh on the first 401.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	return c.doRetryable(ctx, method, path, body, out, false)
}

func (c *Client) doRetryable(ctx context.Context, method, path string, body, out interface{}, retried bool) error {
	env, status, err := c.roundTrip(ctx, method, path, body)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && !retried && path != refreshPath {
		if _, err := c.refreshAccessToken(ctx); err != nil {
			return err
		}
		return c.doRetryable(ctx, method, path, body, out, true)
	}

	if status < 200 || status >= 300 {
		return &APIError{StatusCode: status, Message: env.Message, Fields: env.Errors}
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body interface{}) (*envelope, int, error) {
	var payload *bytes.Buffer
	if body != nil {
		payload = &bytes.Buffer{}
		if err := json.NewEncoder(payload).Encode(body); err != nil {
			return nil, 0, fmt.Errorf("encode request: %w", err)
		}
	}

	var reader *bytes.Buffer
	if payload != nil {
		reader = payload
	} else {
		reader = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.storage.Load(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		env = envelope{Message: resp.Status}
	}
	return &env, resp.StatusCode, nil
}

// refreshAccessToken performs the single-flight refresh. Concurrent callers
// share one POST /api/auth/refresh and are released together with its result.
// On failure the local session is cleared and the expiry hook fires, once per
// refresh attempt regardless of how many callers were waiting on it.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	v, err, _ := c.refresh.Do("refresh", func() (interface{}, error) {
		token, err := c.postRefresh(ctx)
		if err != nil {
			c.storage.Clear()
			if c.onSessionExpired != nil {
				c.onSessionExpired()
			}
			return nil, err
		}
		c.storage.Store(token)
		return token, nil
	})
	if err != nil {
		return "", ErrSessionExpired
	}
	return v.(string), nil
}

func (c *Client) postRefresh(ctx context.Context) (string, error) {
	env, status, err := c.roundTrip(ctx, http.MethodPost, refreshPath, nil)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &APIError{StatusCode: status, Message: env.Message}
	}
	var data struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	return data.AccessToken, nil
}

func listQuery(opts ListTasksOptions) string {
	q := url.Values{}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Priority != "" {
		q.Set("priority", opts.Priority)
	}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
