// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/pkordes/petrol-logbook/internal/domain"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// LogFormat is "json" (default) or "pretty" for colourised console output.
	LogFormat string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Empty disables CORS handling. Set CORS_ORIGINS to a comma-separated list.
	CORSOrigins []string

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// StoreBackend selects record storage: xlsx (default), postgres or sqlite.
	StoreBackend string

	// DataDir holds the xlsx workbooks. Defaults to "petrol_expense_files".
	DataDir string

	// DatabaseURL is the Postgres connection string. Required for postgres.
	DatabaseURL string

	// SQLitePath is the sqlite database file. Defaults to DataDir/petrol.db.
	SQLitePath string

	// JWTSecret signs session tokens. Required.
	JWTSecret string

	// SessionTTL is how long an idle session stays logged in. Defaults to 12h.
	SessionTTL time.Duration

	// Users is the login allow-list, read from USER1_*, USER2_*, ...
	Users []domain.UserProfile
}

// LoadDotEnv copies variables from the .env file at path into the process
// environment without overriding variables that are already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config.LoadDotEnv: %w", err)
	}
	return nil
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing every required variable that is not set and
// every value that cannot be parsed.
func Load() (Config, error) {
	return load(true)
}

// LoadOffline is Load for operator tools that read records directly and
// never issue tokens: JWT_SECRET is not required.
func LoadOffline() (Config, error) {
	return load(false)
}

func load(server bool) (Config, error) {
	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    strings.ToLower(getEnv("LOG_FORMAT", "json")),
		CORSOrigins:  splitCSV(os.Getenv("CORS_ORIGINS")),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", "xlsx")),
		DataDir:      getEnv("DATA_DIR", "petrol_expense_files"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
	}
	cfg.SQLitePath = getEnv("SQLITE_PATH", filepath.Join(cfg.DataDir, "petrol.db"))

	var missing []string
	var invalid []error

	var err error
	if cfg.MaxBodyBytes, err = strconv.ParseInt(getEnv("MAX_BODY_BYTES", "1048576"), 10, 64); err != nil || cfg.MaxBodyBytes <= 0 {
		invalid = append(invalid, errors.New("MAX_BODY_BYTES must be a positive integer"))
	}
	if cfg.SessionTTL, err = time.ParseDuration(getEnv("SESSION_TTL", "12h")); err != nil || cfg.SessionTTL <= 0 {
		invalid = append(invalid, errors.New("SESSION_TTL must be a positive duration such as 12h"))
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "pretty" {
		invalid = append(invalid, fmt.Errorf("LOG_FORMAT must be json or pretty, got %q", cfg.LogFormat))
	}

	switch cfg.StoreBackend {
	case "xlsx", "sqlite":
	case "postgres":
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	default:
		invalid = append(invalid, fmt.Errorf("STORE_BACKEND must be xlsx, postgres or sqlite, got %q", cfg.StoreBackend))
	}

	if server && cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	users, userMissing, userInvalid := loadUsers()
	cfg.Users = users
	missing = append(missing, userMissing...)
	invalid = append(invalid, userInvalid...)
	if len(users) == 0 && len(userMissing) == 0 {
		missing = append(missing, "USER1_EMAIL")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", ")))
	}
	errs = append(errs, invalid...)
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return cfg, nil
}

// loadUsers reads USER<n>_EMAIL, _NAME, _HASH and _BASELINE_KM for
// n = 1, 2, ... stopping at the first n without an email.
func loadUsers() ([]domain.UserProfile, []string, []error) {
	var (
		users   []domain.UserProfile
		missing []string
		invalid []error
		seen    = map[string]bool{}
	)
	for n := 1; ; n++ {
		prefix := fmt.Sprintf("USER%d_", n)
		email := strings.TrimSpace(os.Getenv(prefix + "EMAIL"))
		if email == "" {
			break
		}
		u := domain.UserProfile{
			Email:        email,
			Name:         strings.TrimSpace(os.Getenv(prefix + "NAME")),
			PasswordHash: os.Getenv(prefix + "HASH"),
			BaselineKM:   decimal.Zero,
		}
		if u.Name == "" {
			missing = append(missing, prefix+"NAME")
		}
		if u.PasswordHash == "" {
			missing = append(missing, prefix+"HASH")
		}
		if raw := os.Getenv(prefix + "BASELINE_KM"); raw != "" {
			km, err := decimal.NewFromString(raw)
			if err != nil || km.IsNegative() || !km.Equal(km.Truncate(domain.KMScale)) {
				invalid = append(invalid, fmt.Errorf("%sBASELINE_KM must be a non-negative number with at most %d decimal places, got %q", prefix, domain.KMScale, raw))
			} else {
				u.BaselineKM = km
			}
		}
		key := strings.ToLower(email)
		if seen[key] {
			invalid = append(invalid, fmt.Errorf("%sEMAIL duplicates an earlier user: %s", prefix, email))
		}
		seen[key] = true
		users = append(users, u)
	}
	return users, missing, invalid
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
