package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sofatutor/go-odk-central/odkerr"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadValidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[central]
base_url = "https://central.example.com/"
username = "user@example.com"
password = "secret"
default_project_id = 7
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Central.BaseURL != "https://central.example.com" {
		t.Errorf("BaseURL = %q, want trailing slash stripped", cfg.Central.BaseURL)
	}
	if cfg.Central.Username != "user@example.com" || cfg.Central.Password != "secret" {
		t.Errorf("credentials not loaded: %+v", cfg.Central)
	}
	if cfg.Central.DefaultProjectID != 7 {
		t.Errorf("DefaultProjectID = %d, want 7", cfg.Central.DefaultProjectID)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, odkerr.ErrConfig) {
		t.Fatalf("expected config error for missing file, got %v", err)
	}
}

func TestLoadMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `[central`)

	_, err := Load(path)
	if !errors.Is(err, odkerr.ErrConfig) {
		t.Fatalf("expected config error for malformed TOML, got %v", err)
	}
}

func TestLoadMissingRequiredKeys(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no base_url", "[central]\nusername = \"u\"\npassword = \"p\"\n"},
		{"no username", "[central]\nbase_url = \"https://x.test\"\npassword = \"p\"\n"},
		{"no password", "[central]\nbase_url = \"https://x.test\"\nusername = \"u\"\n"},
		{"empty password", "[central]\nbase_url = \"https://x.test\"\nusername = \"u\"\npassword = \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			writeFile(t, path, tt.content)
			if _, err := Load(path); !errors.Is(err, odkerr.ErrConfig) {
				t.Fatalf("expected config error, got %v", err)
			}
		})
	}
}

func TestWriteLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	in := &Config{Central: Central{
		BaseURL:          "https://x.test",
		Username:         "u",
		Password:         "p",
		DefaultProjectID: 7,
	}}
	if err := Write(path, in); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if *out != *in {
		t.Fatalf("round trip mismatch: wrote %+v, read %+v", in.Central, out.Central)
	}
}

func TestPathResolutionOrder(t *testing.T) {
	t.Run("explicit wins over env", func(t *testing.T) {
		t.Setenv(ConfigFileEnv, "/env/config.toml")
		got, err := ConfigPath("/explicit/config.toml")
		if err != nil {
			t.Fatalf("ConfigPath error: %v", err)
		}
		if got != "/explicit/config.toml" {
			t.Errorf("ConfigPath = %q, want explicit path", got)
		}
	})

	t.Run("env wins over default", func(t *testing.T) {
		t.Setenv(CacheFileEnv, "/env/cache.toml")
		got, err := CachePath("")
		if err != nil {
			t.Fatalf("CachePath error: %v", err)
		}
		if got != "/env/cache.toml" {
			t.Errorf("CachePath = %q, want env path", got)
		}
	})

	t.Run("default is in home directory", func(t *testing.T) {
		t.Setenv(ConfigFileEnv, "")
		os.Unsetenv(ConfigFileEnv)
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skipf("no home directory: %v", err)
		}
		got, err := ConfigPath("")
		if err != nil {
			t.Fatalf("ConfigPath error: %v", err)
		}
		if got != filepath.Join(home, DefaultConfigName) {
			t.Errorf("ConfigPath = %q, want default under %s", got, home)
		}
	})
}
