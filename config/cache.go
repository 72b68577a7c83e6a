package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sofatutor/go-odk-central/odkerr"
)

// CacheEntry is the persisted session state: the current bearer token and the
// expiry the server reported for it. The zero value means "no session yet".
type CacheEntry struct {
	Token     string    `toml:"token"`
	ExpiresAt time.Time `toml:"expires_at"`
}

// Valid reports whether the entry holds a token that is unexpired at now.
// The recorded expiry is optimistic; the server remains the authority, and a
// 401 on a "valid" token is handled upstream as an implicit expiry.
func (e CacheEntry) Valid(now time.Time) bool {
	return e.Token != "" && now.Before(e.ExpiresAt)
}

// Cache reads and writes the session cache file.
type Cache struct {
	path string
}

// NewCache resolves the cache file location and returns a Cache for it. An
// empty path falls back to ODK_CACHE_FILE, then to ~/.odk_cache.toml.
func NewCache(path string) (*Cache, error) {
	filePath, err := CachePath(path)
	if err != nil {
		return nil, err
	}
	return &Cache{path: filePath}, nil
}

// Path returns the resolved cache file location.
func (c *Cache) Path() string { return c.path }

// Read returns the cached session state. A missing cache file is the normal
// "no session yet" state and yields a zero entry with no error; only an
// unexpected I/O or parse failure of an existing file is an error.
func (c *Cache) Read() (CacheEntry, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return CacheEntry{}, nil
		}
		return CacheEntry{}, odkerr.Wrap(odkerr.KindCache, err, "could not read cache file at %s", c.path)
	}
	var entry CacheEntry
	if err := toml.Unmarshal(data, &entry); err != nil {
		return CacheEntry{}, odkerr.Wrap(odkerr.KindCache, err, "could not parse cache file at %s", c.path)
	}
	return entry, nil
}

// Write replaces the cache file with the given entry. The entry is written to
// a temporary file first and renamed into place, so a concurrent reader never
// observes a half-written file. Mode 0600 since the token is a credential.
func (c *Cache) Write(entry CacheEntry) error {
	data, err := encodeTOML(entry)
	if err != nil {
		return odkerr.Wrap(odkerr.KindCache, err, "could not encode cache entry")
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return odkerr.Wrap(odkerr.KindCache, err, "could not create cache directory")
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return odkerr.Wrap(odkerr.KindCache, err, "could not create temporary cache file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return odkerr.Wrap(odkerr.KindCache, err, "could not set cache file permissions")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return odkerr.Wrap(odkerr.KindCache, err, "could not write cache file")
	}
	if err := tmp.Close(); err != nil {
		return odkerr.Wrap(odkerr.KindCache, err, "could not flush cache file")
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return odkerr.Wrap(odkerr.KindCache, err, "could not replace cache file at %s", c.path)
	}
	return nil
}

// Clear removes the cache file. A missing file is not an error.
func (c *Cache) Clear() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return odkerr.Wrap(odkerr.KindCache, err, "could not remove cache file at %s", c.path)
	}
	return nil
}
