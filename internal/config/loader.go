package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/event-roster/internal/logging"
)

// Store drivers accepted by ROSTER_STORE_DRIVER.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config captures environment driven configuration values for the roster service.
type Config struct {
	HTTPPort int
	LogLevel slog.Level

	StoreDriver   string
	SQLiteDSN     string
	MongoURI      string
	MongoDatabase string
	StoreTimeout  time.Duration

	VerifyURL     string
	VerifyTimeout time.Duration

	AdminKeyHash string
	SessionTTL   time.Duration

	ImportConcurrency int
	PublicBaseURL     string
	Location          *time.Location

	PhoneColumns   []string
	NameColumn     string
	CodeColumn     string
	CategoryColumn string
}

// LoadDotEnv loads variables from path into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load parses the configuration of the HTTP server from the current process
// environment. ROSTER_VERIFY_URL and ROSTER_ADMIN_KEY_HASH are required.
func Load() (Config, error) {
	return load(true)
}

// LoadTooling parses the configuration used by the offline commands, which
// only need the store settings.
func LoadTooling() (Config, error) {
	return load(false)
}

func load(server bool) (Config, error) {
	cfg := Config{
		HTTPPort:          8080,
		LogLevel:          slog.LevelInfo,
		StoreDriver:       DriverSQLite,
		SQLiteDSN:         "file:roster.db",
		StoreTimeout:      10 * time.Second,
		VerifyTimeout:     10 * time.Second,
		SessionTTL:        30 * 24 * time.Hour,
		ImportConcurrency: 4,
		Location:          time.UTC,
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	if portValue := env("ROSTER_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "ROSTER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if levelValue := env("ROSTER_LOG_LEVEL"); levelValue != "" {
		level, err := logging.ParseLevel(levelValue)
		if err != nil {
			invalid = append(invalid, "ROSTER_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if driver := strings.ToLower(env("ROSTER_STORE_DRIVER")); driver != "" {
		switch driver {
		case DriverMemory, DriverSQLite, DriverMongo:
			cfg.StoreDriver = driver
		default:
			invalid = append(invalid, "ROSTER_STORE_DRIVER")
		}
	}

	if dsn := env("ROSTER_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	cfg.MongoURI = env("ROSTER_MONGO_URI")
	cfg.MongoDatabase = env("ROSTER_MONGO_DATABASE")
	if cfg.StoreDriver == DriverMongo {
		if cfg.MongoURI == "" {
			missing = append(missing, "ROSTER_MONGO_URI")
		}
		if cfg.MongoDatabase == "" {
			missing = append(missing, "ROSTER_MONGO_DATABASE")
		}
	}

	parseDuration("ROSTER_STORE_TIMEOUT", &cfg.StoreTimeout, &invalid)
	parseDuration("ROSTER_VERIFY_TIMEOUT", &cfg.VerifyTimeout, &invalid)
	parseDuration("ROSTER_SESSION_TTL", &cfg.SessionTTL, &invalid)

	cfg.VerifyURL = env("ROSTER_VERIFY_URL")
	if server && cfg.VerifyURL == "" {
		missing = append(missing, "ROSTER_VERIFY_URL")
	}

	cfg.AdminKeyHash = env("ROSTER_ADMIN_KEY_HASH")
	if server && cfg.AdminKeyHash == "" {
		missing = append(missing, "ROSTER_ADMIN_KEY_HASH")
	}

	if value := env("ROSTER_IMPORT_CONCURRENCY"); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			invalid = append(invalid, "ROSTER_IMPORT_CONCURRENCY")
		} else {
			cfg.ImportConcurrency = n
		}
	}

	cfg.PublicBaseURL = strings.TrimRight(env("ROSTER_PUBLIC_BASE_URL"), "/")

	if tz := env("ROSTER_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			invalid = append(invalid, "ROSTER_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if value := env("ROSTER_PHONE_COLUMNS"); value != "" {
		for _, column := range strings.Split(value, ",") {
			if column = strings.TrimSpace(column); column != "" {
				cfg.PhoneColumns = append(cfg.PhoneColumns, column)
			}
		}
	}
	cfg.NameColumn = env("ROSTER_NAME_COLUMN")
	cfg.CodeColumn = env("ROSTER_CODE_COLUMN")
	cfg.CategoryColumn = env("ROSTER_CATEGORY_COLUMN")

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func parseDuration(key string, target *time.Duration, invalid *[]string) {
	value := env(key)
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		*invalid = append(*invalid, key)
		return
	}
	*target = d
}
