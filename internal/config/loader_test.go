package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var rosterVariables = []string{
	"ROSTER_HTTP_PORT",
	"ROSTER_LOG_LEVEL",
	"ROSTER_STORE_DRIVER",
	"ROSTER_SQLITE_DSN",
	"ROSTER_MONGO_URI",
	"ROSTER_MONGO_DATABASE",
	"ROSTER_STORE_TIMEOUT",
	"ROSTER_VERIFY_URL",
	"ROSTER_VERIFY_TIMEOUT",
	"ROSTER_ADMIN_KEY_HASH",
	"ROSTER_SESSION_TTL",
	"ROSTER_IMPORT_CONCURRENCY",
	"ROSTER_PUBLIC_BASE_URL",
	"ROSTER_TIMEZONE",
	"ROSTER_PHONE_COLUMNS",
	"ROSTER_NAME_COLUMN",
	"ROSTER_CODE_COLUMN",
	"ROSTER_CATEGORY_COLUMN",
}

// clearEnv blanks every roster variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range rosterVariables {
		t.Setenv(key, "")
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Run("applies defaults when optional variables are missing", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ROSTER_VERIFY_URL", "https://verify.example.com/check")
		t.Setenv("ROSTER_ADMIN_KEY_HASH", "$argon2id$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.StoreDriver != DriverSQLite || cfg.SQLiteDSN != "file:roster.db" {
			t.Fatalf("unexpected default store: %q %q", cfg.StoreDriver, cfg.SQLiteDSN)
		}
		if cfg.StoreTimeout != 10*time.Second || cfg.VerifyTimeout != 10*time.Second {
			t.Fatalf("unexpected default timeouts: %s %s", cfg.StoreTimeout, cfg.VerifyTimeout)
		}
		if cfg.Location != time.UTC {
			t.Fatalf("expected UTC location, got %v", cfg.Location)
		}
		if cfg.PhoneColumns != nil {
			t.Fatalf("expected no phone column override, got %v", cfg.PhoneColumns)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnv(t)

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "required environment variables are not set: ROSTER_VERIFY_URL, ROSTER_ADMIN_KEY_HASH"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("tooling does not need server variables", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ROSTER_STORE_DRIVER", "memory")

		cfg, err := LoadTooling()
		if err != nil {
			t.Fatalf("LoadTooling returned error: %v", err)
		}
		if cfg.StoreDriver != DriverMemory {
			t.Fatalf("expected memory driver, got %q", cfg.StoreDriver)
		}
	})

	t.Run("mongo driver requires uri and database", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ROSTER_STORE_DRIVER", "MONGO")

		_, err := LoadTooling()
		if err == nil || err.Error() != "required environment variables are not set: ROSTER_MONGO_URI, ROSTER_MONGO_DATABASE" {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("parses durations columns and location", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ROSTER_VERIFY_URL", "https://verify.example.com/check")
		t.Setenv("ROSTER_ADMIN_KEY_HASH", "hash")
		t.Setenv("ROSTER_HTTP_PORT", "9090")
		t.Setenv("ROSTER_LOG_LEVEL", "debug")
		t.Setenv("ROSTER_SESSION_TTL", "48h")
		t.Setenv("ROSTER_STORE_TIMEOUT", "3s")
		t.Setenv("ROSTER_IMPORT_CONCURRENCY", "8")
		t.Setenv("ROSTER_PUBLIC_BASE_URL", "https://events.example.com/")
		t.Setenv("ROSTER_TIMEZONE", "Asia/Kolkata")
		t.Setenv("ROSTER_PHONE_COLUMNS", "Mobile no, ,Contact")
		t.Setenv("ROSTER_NAME_COLUMN", " Name")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 || cfg.LogLevel != slog.LevelDebug {
			t.Fatalf("unexpected port/level: %d %v", cfg.HTTPPort, cfg.LogLevel)
		}
		if cfg.SessionTTL != 48*time.Hour || cfg.StoreTimeout != 3*time.Second {
			t.Fatalf("unexpected durations: %s %s", cfg.SessionTTL, cfg.StoreTimeout)
		}
		if cfg.ImportConcurrency != 8 {
			t.Fatalf("expected import concurrency 8, got %d", cfg.ImportConcurrency)
		}
		if cfg.PublicBaseURL != "https://events.example.com" {
			t.Fatalf("unexpected base url %q", cfg.PublicBaseURL)
		}
		if cfg.Location.String() != "Asia/Kolkata" {
			t.Fatalf("unexpected location %v", cfg.Location)
		}
		if len(cfg.PhoneColumns) != 2 || cfg.PhoneColumns[0] != "Mobile no" || cfg.PhoneColumns[1] != "Contact" {
			t.Fatalf("unexpected phone columns %v", cfg.PhoneColumns)
		}
		if cfg.NameColumn != "Name" {
			t.Fatalf("unexpected name column %q", cfg.NameColumn)
		}
	})

	t.Run("reports invalid values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ROSTER_VERIFY_URL", "https://verify.example.com/check")
		t.Setenv("ROSTER_ADMIN_KEY_HASH", "hash")
		t.Setenv("ROSTER_HTTP_PORT", "-1")
		t.Setenv("ROSTER_SESSION_TTL", "soon")
		t.Setenv("ROSTER_STORE_DRIVER", "postgres")

		_, err := Load()
		expected := "environment variables have invalid values: ROSTER_HTTP_PORT, ROSTER_STORE_DRIVER, ROSTER_SESSION_TTL"
		if err == nil || err.Error() != expected {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides a variable that exists, even when empty.
	if err := os.Unsetenv("ROSTER_HTTP_PORT"); err != nil {
		t.Fatalf("unset: %v", err)
	}

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ROSTER_HTTP_PORT=7070\nROSTER_NAME_COLUMN=Member\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ROSTER_NAME_COLUMN", "Preset")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv returned error: %v", err)
	}
	if got := os.Getenv("ROSTER_HTTP_PORT"); got != "7070" {
		t.Fatalf("expected port from file, got %q", got)
	}
	if got := os.Getenv("ROSTER_NAME_COLUMN"); got != "Preset" {
		t.Fatalf("expected existing variable to win, got %q", got)
	}
}
