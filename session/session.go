// Package session provides the authenticated HTTP session used by the ODK
// Central client. It joins request paths onto the configured base URL,
// attaches the bearer token, performs the login round trip lazily when no
// valid token is cached, and retries a request exactly once after re-login
// when the server answers 401.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sofatutor/go-odk-central/config"
	"github.com/sofatutor/go-odk-central/odkerr"
)

const (
	// DefaultAPIVersion is the Central API version prefix in request paths.
	DefaultAPIVersion = "v1"

	// DefaultTimeout is the default timeout for the built-in HTTP client.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxAttempts is the number of attempts for transient failures
	// (connection errors, 429 and 5xx responses).
	DefaultMaxAttempts = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay caps the backoff delay.
	retryMaxDelay = 10 * time.Second

	// maxErrorBody limits how much of an error response body is retained on
	// the returned error.
	maxErrorBody = 64 * 1024

	userAgent = "go-odk-central/1.0"
)

// RequestOptions carries the optional parts of a request. All fields may be
// left zero. JSON and Body are mutually exclusive; JSON wins when both are
// set.
type RequestOptions struct {
	// Query is appended to the request URL.
	Query url.Values
	// Header entries are set on the request. Content-Type defaults to
	// application/json when a JSON body is present.
	Header http.Header
	// JSON is marshaled into the request body.
	JSON any
	// Body is sent as the request body verbatim.
	Body []byte
}

// Session wraps an HTTP client with base URL handling and authentication.
type Session struct {
	baseURL     string
	httpClient  *http.Client
	logger      *zap.Logger
	auth        *authManager
	maxAttempts int
}

// Option configures a Session.
type Option func(*Session)

// WithHTTPClient replaces the built-in HTTP client. Callers needing custom
// timeouts or transports supply their own client here.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) { s.httpClient = c }
}

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMaxAttempts sets the number of attempts for transient failures.
// A value of 1 disables retries.
func WithMaxAttempts(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// New creates a Session for the given server config and session cache.
func New(central config.Central, cache *config.Cache, opts ...Option) *Session {
	s := &Session{
		baseURL:     NormalizeBaseURL(central.BaseURL, DefaultAPIVersion),
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		logger:      zap.NewNop(),
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.auth = &authManager{
		session:  s,
		cache:    cache,
		username: central.Username,
		password: central.Password,
		now:      time.Now,
	}
	return s
}

// NormalizeBaseURL strips trailing slashes and appends the API version
// segment unless the URL already ends with it.
func NormalizeBaseURL(base, version string) string {
	base = strings.TrimRight(base, "/")
	if !strings.HasSuffix(base, "/"+version) {
		base = base + "/" + version
	}
	return base
}

// BaseURL returns the normalized base URL, including the API version.
func (s *Session) BaseURL() string { return s.baseURL }

// urlJoin resolves path against the base URL. Absolute URLs pass through
// unchanged.
func (s *Session) urlJoin(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return s.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Login authenticates eagerly, returning the bearer token expiry. Without an
// explicit Login, authentication happens lazily on the first request.
func (s *Session) Login(ctx context.Context) (time.Time, error) {
	return s.auth.loginNow(ctx)
}

// Logout invalidates the server-side session for the current token, if any,
// and clears the session cache. A missing or already-invalid token is not an
// error.
func (s *Session) Logout(ctx context.Context) error {
	token := s.auth.cachedToken()
	if token != "" {
		resp, err := s.send(ctx, http.MethodDelete, s.urlJoin("sessions/"+url.PathEscape(token)), nil, token)
		if err == nil {
			drainBody(resp)
		} else {
			s.logger.Debug("server-side session invalidation failed", zap.Error(err))
		}
	}
	s.auth.reset()
	return s.auth.cache.Clear()
}

// Close releases idle transport connections. It does not touch the session
// cache; use Logout for that.
func (s *Session) Close() {
	s.httpClient.CloseIdleConnections()
}

// Request performs an authenticated request. The path is joined onto the
// base URL unless it is already absolute. A 401 response triggers exactly one
// re-login followed by one resend; a second 401 surfaces as an auth error.
// Any other status >= 400 surfaces as an API error carrying status and body.
// The caller owns the response body on success.
func (s *Session) Request(ctx context.Context, method, path string, opts *RequestOptions) (*http.Response, error) {
	target := s.urlJoin(path)

	token, err := s.auth.ensure(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.send(ctx, method, target, opts, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// The recorded expiry is optimistic; a 401 is an implicit expiry
		// signal (clock skew, server-side revocation). Re-login once and
		// resend once.
		drainBody(resp)
		s.logger.Debug("request unauthorized, re-authenticating", zap.String("method", method), zap.String("url", target))
		token, err = s.auth.refresh(ctx)
		if err != nil {
			return nil, err
		}
		resp, err = s.send(ctx, method, target, opts, token)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			body := readErrorBody(resp)
			return nil, &odkerr.Error{
				Kind:       odkerr.KindAuth,
				Message:    fmt.Sprintf("the request to %s remained unauthorized after re-login", target),
				StatusCode: resp.StatusCode,
				Body:       body,
			}
		}
	}

	if resp.StatusCode >= 400 {
		body := readErrorBody(resp)
		return nil, &odkerr.Error{
			Kind:       odkerr.KindAPI,
			Message:    fmt.Sprintf("the request to %s failed", target),
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	return resp, nil
}

// Get performs an authenticated GET request.
func (s *Session) Get(ctx context.Context, path string, opts *RequestOptions) (*http.Response, error) {
	return s.Request(ctx, http.MethodGet, path, opts)
}

// Post performs an authenticated POST request.
func (s *Session) Post(ctx context.Context, path string, opts *RequestOptions) (*http.Response, error) {
	return s.Request(ctx, http.MethodPost, path, opts)
}

// Put performs an authenticated PUT request.
func (s *Session) Put(ctx context.Context, path string, opts *RequestOptions) (*http.Response, error) {
	return s.Request(ctx, http.MethodPut, path, opts)
}

// Patch performs an authenticated PATCH request.
func (s *Session) Patch(ctx context.Context, path string, opts *RequestOptions) (*http.Response, error) {
	return s.Request(ctx, http.MethodPatch, path, opts)
}

// Delete performs an authenticated DELETE request.
func (s *Session) Delete(ctx context.Context, path string, opts *RequestOptions) (*http.Response, error) {
	return s.Request(ctx, http.MethodDelete, path, opts)
}

// DoJSON performs an authenticated request and decodes the JSON response body
// into out. A nil out discards the body. Decoding failures surface as
// response shape errors.
func (s *Session) DoJSON(ctx context.Context, method, path string, opts *RequestOptions, out any) error {
	resp, err := s.Request(ctx, method, path, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return odkerr.Wrap(odkerr.KindResponseShape, err, "could not decode response from %s", s.urlJoin(path))
	}
	return nil
}

// send performs a single logical request with transient retry. Transport
// failures and 429/5xx responses are retried with exponential backoff up to
// maxAttempts; the last failure is returned. Auth handling happens in the
// caller.
func (s *Session) send(ctx context.Context, method, target string, opts *RequestOptions, token string) (*http.Response, error) {
	body, contentType, err := requestBody(opts)
	if err != nil {
		return nil, err
	}

	fullURL := target
	if opts != nil && len(opts.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		fullURL = target + sep + opts.Query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoff(attempt)
			s.logger.Debug("retrying request",
				zap.String("method", method),
				zap.String("url", target),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return nil, odkerr.Wrap(odkerr.KindRequest, ctx.Err(), "%s %s canceled", method, target)
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(body))
		if err != nil {
			return nil, odkerr.Wrap(odkerr.KindRequest, err, "could not create %s request for %s", method, target)
		}
		req.Header.Set("User-Agent", userAgent)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if opts != nil {
			for key, values := range opts.Header {
				req.Header[http.CanonicalHeaderKey(key)] = values
			}
		}
		// A caller-supplied Authorization header takes precedence over the
		// session token.
		if token != "" && req.Header.Get("Authorization") == "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		start := time.Now()
		resp, err := s.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, odkerr.Wrap(odkerr.KindRequest, ctx.Err(), "%s %s canceled", method, target)
			}
			lastErr = err
			continue
		}
		s.logger.Debug("request completed",
			zap.String("method", method),
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", time.Since(start)))

		if retryableStatus(resp.StatusCode) && attempt < s.maxAttempts-1 {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			drainBody(resp)
			continue
		}
		return resp, nil
	}
	return nil, odkerr.Wrap(odkerr.KindRequest, lastErr, "%s %s failed after %d attempts", method, target, s.maxAttempts)
}

func requestBody(opts *RequestOptions) (body []byte, contentType string, err error) {
	if opts == nil {
		return nil, "", nil
	}
	if opts.JSON != nil {
		data, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, "", odkerr.Wrap(odkerr.KindRequest, err, "could not marshal request body")
		}
		return data, "application/json", nil
	}
	return opts.Body, "", nil
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status < 600)
}

func backoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

func readErrorBody(resp *http.Response) []byte {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil
	}
	return body
}

func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}
