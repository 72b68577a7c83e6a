// Package central is a client library for the ODK Central REST API. A Client
// is constructed from a TOML config file holding the server URL and
// credentials, authenticates lazily on first use, caches the bearer token and
// its expiry on disk between runs, and exposes Central functionality through
// typed endpoint namespaces (Projects, Forms, Submissions, Entities) plus
// generic HTTP verb passthroughs for anything not wrapped.
package central

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sofatutor/go-odk-central/config"
	"github.com/sofatutor/go-odk-central/odkerr"
	"github.com/sofatutor/go-odk-central/session"
)

// Client is a connection to one ODK Central server: one (config, cache) pair.
type Client struct {
	cfg       *config.Config
	cache     *config.Cache
	session   *session.Session
	logger    *zap.Logger
	projectID int

	// Endpoint namespaces.
	Projects    *ProjectsService
	Forms       *FormsService
	Submissions *SubmissionsService
	Entities    *EntitiesService
}

type clientOptions struct {
	configPath  string
	cachePath   string
	cfg         *config.Config
	projectID   int
	logger      *zap.Logger
	httpClient  *http.Client
	maxAttempts int
}

// Option configures a Client.
type Option func(*clientOptions)

// WithConfigPath sets an explicit config file path. The default resolution is
// the ODK_CONFIG_FILE environment variable, then ~/.odk_config.toml.
func WithConfigPath(path string) Option {
	return func(o *clientOptions) { o.configPath = path }
}

// WithCachePath sets an explicit session cache file path. The default
// resolution is the ODK_CACHE_FILE environment variable, then
// ~/.odk_cache.toml.
func WithCachePath(path string) Option {
	return func(o *clientOptions) { o.cachePath = path }
}

// WithConfig supplies a config directly instead of reading a config file.
func WithConfig(cfg *config.Config) Option {
	return func(o *clientOptions) { o.cfg = cfg }
}

// WithProjectID overrides the default project id from the config file.
func WithProjectID(id int) Option {
	return func(o *clientOptions) { o.projectID = id }
}

// WithLogger sets the logger for the client and its session. The default is
// a no-op logger; there is no process-wide logging state.
func WithLogger(l *zap.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithHTTPClient replaces the underlying HTTP client, for callers needing
// custom timeouts, proxies, or TLS settings.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithMaxAttempts sets the number of attempts for transient request failures
// (connection errors, 429 and 5xx). A value of 1 disables retries.
func WithMaxAttempts(n int) Option {
	return func(o *clientOptions) { o.maxAttempts = n }
}

// New creates a Client. Construction reads and validates the config file (or
// the injected config) and resolves the cache location, but performs no
// network I/O; authentication happens lazily on the first request, or eagerly
// via Login.
func New(opts ...Option) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.cfg
	if cfg == nil {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cache, err := config.NewCache(o.cachePath)
	if err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sessOpts := []session.Option{session.WithLogger(logger)}
	if o.httpClient != nil {
		sessOpts = append(sessOpts, session.WithHTTPClient(o.httpClient))
	}
	if o.maxAttempts > 0 {
		sessOpts = append(sessOpts, session.WithMaxAttempts(o.maxAttempts))
	}

	c := &Client{
		cfg:     cfg,
		cache:   cache,
		session: session.New(cfg.Central, cache, sessOpts...),
		logger:  logger,
	}
	c.projectID = o.projectID
	if c.projectID == 0 {
		c.projectID = cfg.Central.DefaultProjectID
	}

	c.Projects = &ProjectsService{session: c.session, defaultProjectID: c.projectID}
	c.Forms = &FormsService{session: c.session, defaultProjectID: c.projectID}
	c.Submissions = &SubmissionsService{session: c.session, defaultProjectID: c.projectID}
	c.Entities = &EntitiesService{session: c.session, defaultProjectID: c.projectID}
	return c, nil
}

// Open returns the client ready for use. Construction already leaves it
// ready and authentication is deferred to the first request; Open exists for
// scoped-acquisition symmetry with Close.
func (c *Client) Open() *Client { return c }

// Close invalidates the server-side session (best effort), clears the cached
// token, and releases idle transport connections. Safe to call whether or not
// a session was ever established.
func (c *Client) Close(ctx context.Context) error {
	err := c.session.Logout(ctx)
	c.session.Close()
	return err
}

// Login authenticates eagerly, returning the token expiry. Useful to verify
// credentials up front; without it the first request logs in on demand.
func (c *Client) Login(ctx context.Context) (time.Time, error) {
	return c.session.Login(ctx)
}

// ProjectID returns the project id used when an endpoint call does not pass
// one explicitly: the WithProjectID override if set, else default_project_id
// from the config file, else zero.
func (c *Client) ProjectID() int { return c.projectID }

// BaseURL returns the normalized server base URL including the API version.
func (c *Client) BaseURL() string { return c.session.BaseURL() }

// Get performs an authenticated GET against a path relative to the base URL.
// The caller owns the response body. Statuses >= 400 are returned as errors.
func (c *Client) Get(ctx context.Context, path string, opts *session.RequestOptions) (*http.Response, error) {
	return c.session.Get(ctx, path, opts)
}

// Post performs an authenticated POST. See Get.
func (c *Client) Post(ctx context.Context, path string, opts *session.RequestOptions) (*http.Response, error) {
	return c.session.Post(ctx, path, opts)
}

// Put performs an authenticated PUT. See Get.
func (c *Client) Put(ctx context.Context, path string, opts *session.RequestOptions) (*http.Response, error) {
	return c.session.Put(ctx, path, opts)
}

// Patch performs an authenticated PATCH. See Get.
func (c *Client) Patch(ctx context.Context, path string, opts *session.RequestOptions) (*http.Response, error) {
	return c.session.Patch(ctx, path, opts)
}

// Delete performs an authenticated DELETE. See Get.
func (c *Client) Delete(ctx context.Context, path string, opts *session.RequestOptions) (*http.Response, error) {
	return c.session.Delete(ctx, path, opts)
}

// requireProjectID resolves a project id from the explicit argument or the
// configured default, in that order.
func requireProjectID(explicit, fallback int) (int, error) {
	if explicit > 0 {
		return explicit, nil
	}
	if fallback > 0 {
		return fallback, nil
	}
	return 0, odkerr.New(odkerr.KindValidation, "a project id must be provided, either directly or via a default")
}

// requireString resolves a required string identifier from the explicit
// argument or a default.
func requireString(name, explicit, fallback string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", odkerr.New(odkerr.KindValidation, "a %s must be provided, either directly or via a default", name)
}
