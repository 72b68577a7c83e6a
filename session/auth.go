package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sofatutor/go-odk-central/config"
	"github.com/sofatutor/go-odk-central/odkerr"
)

// authManager decides, before every authenticated request, whether the cached
// bearer token can be used as-is or a login round trip is needed. It moves
// between three states: no session (no cached token, or the cache is
// unreadable), valid (cached token with a future expiry), and expired (past
// expiry, or the server answered 401). Login happens on entry from the first
// and third states; a valid token passes through with no network call.
//
// One authManager belongs to exactly one Session; its state is never shared
// process-wide. The cache file read-then-write is serialized per Session but
// not across processes: independent writers overwrite whole files and the
// last writer wins, which at worst costs a redundant login.
type authManager struct {
	session  *Session
	cache    *config.Cache
	username string
	password string
	now      func() time.Time

	mu     sync.Mutex
	loaded bool
	entry  config.CacheEntry
}

// loginResponse is the body of a successful POST sessions call.
type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ensure returns a token valid at the current time, logging in first if the
// cache holds no token or an expired one.
func (a *authManager) ensure(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.load()
	if a.entry.Valid(a.now()) {
		return a.entry.Token, nil
	}
	entry, err := a.login(ctx)
	if err != nil {
		return "", err
	}
	return entry.Token, nil
}

// refresh discards the current token and performs a fresh login. Used when
// the server rejected a token the cache still considered valid.
func (a *authManager) refresh(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entry = config.CacheEntry{}
	entry, err := a.login(ctx)
	if err != nil {
		return "", err
	}
	return entry.Token, nil
}

// loginNow forces a login unless a valid token is already cached, returning
// the token expiry. Backs the client's eager Open.
func (a *authManager) loginNow(ctx context.Context) (time.Time, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.load()
	if a.entry.Valid(a.now()) {
		return a.entry.ExpiresAt, nil
	}
	entry, err := a.login(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return entry.ExpiresAt, nil
}

// cachedToken returns the in-memory token without triggering a login.
func (a *authManager) cachedToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.load()
	return a.entry.Token
}

// reset clears the in-memory session state.
func (a *authManager) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entry = config.CacheEntry{}
	a.loaded = true
}

// load reads the cache file once per Session. An unreadable cache is treated
// as "no session yet", not a fatal error: the next request simply logs in
// again. Callers must hold mu.
func (a *authManager) load() {
	if a.loaded {
		return
	}
	a.loaded = true
	entry, err := a.cache.Read()
	if err != nil {
		a.session.logger.Warn("session cache unreadable, will re-authenticate", zap.Error(err))
		return
	}
	a.entry = entry
}

// login creates a new server session and persists the resulting token and
// expiry. Callers must hold mu.
func (a *authManager) login(ctx context.Context) (config.CacheEntry, error) {
	target := a.session.urlJoin("sessions")
	opts := &RequestOptions{JSON: map[string]string{
		"email":    a.username,
		"password": a.password,
	}}

	resp, err := a.session.send(ctx, http.MethodPost, target, opts, "")
	if err != nil {
		return config.CacheEntry{}, odkerr.Wrap(odkerr.KindAuth, err, "the login request to %s failed", target)
	}

	if resp.StatusCode != http.StatusOK {
		body := readErrorBody(resp)
		return config.CacheEntry{}, &odkerr.Error{
			Kind:       odkerr.KindAuth,
			Message:    "the login request failed",
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	var login loginResponse
	err = json.NewDecoder(resp.Body).Decode(&login)
	resp.Body.Close()
	if err != nil {
		return config.CacheEntry{}, odkerr.Wrap(odkerr.KindAuth, err, "could not decode the login response")
	}
	if login.Token == "" {
		return config.CacheEntry{}, odkerr.New(odkerr.KindAuth, "the login request was OK but there was no token in the response")
	}

	entry := config.CacheEntry{Token: login.Token, ExpiresAt: login.ExpiresAt}
	if err := a.cache.Write(entry); err != nil {
		return config.CacheEntry{}, err
	}
	a.entry = entry
	a.session.logger.Debug("logged in",
		zap.String("token", Redact(login.Token)),
		zap.Time("expires_at", login.ExpiresAt))
	return entry, nil
}
