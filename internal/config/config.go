// Package config loads pipeline settings from the environment, with
// .env autoload and sane defaults for a local PostgreSQL setup.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/OlsenJo/data-extract-app/internal/retry"
	"github.com/OlsenJo/data-extract-app/internal/run"
)

// DefaultBaseURL is the posting endpoint for operationally available
// capacity on the TW pipeline.
const DefaultBaseURL = "https://twtransfer.energytransfer.com/ipost/capacity/operationally-available"

// DB holds PostgreSQL connection settings.
type DB struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	MaxConns int32
}

// DSN renders the connection string the pool is opened with.
func (d DB) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	return u.String()
}

// Config carries every tunable of a run. Flags may override individual
// fields after Load.
type Config struct {
	BaseURL string
	DB      DB

	LookbackDays int
	Cycles       []int

	RequestTimeout time.Duration
	FetchRetry     retry.Policy
	LoadRetry      retry.Policy
	LoadTimeout    time.Duration

	TempDir       string
	KeepTempFiles bool

	BatchSize int
	Upsert    bool

	SourceEncoding string
	ConfirmTimeout time.Duration
	FailFast       bool
}

// Load reads the environment, after autoloading a .env file when one is
// present in the working directory.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		BaseURL: envString("BASE_URL", DefaultBaseURL),
		DB: DB{
			Host:     envString("DB_HOST", "localhost"),
			Port:     envInt("DB_PORT", 5432),
			Name:     envString("DB_NAME", "gas_shipments"),
			User:     envString("DB_USER", "postgres"),
			Password: envString("DB_PASSWORD", "postgres"),
			MaxConns: int32(envInt("DB_MAX_CONNS", 4)),
		},
		LookbackDays:   envInt("LOOKBACK_DAYS", 3),
		RequestTimeout: envDuration("REQUEST_TIMEOUT", 30*time.Second),
		FetchRetry: retry.Policy{
			MaxAttempts: envInt("MAX_RETRIES", 3),
			Delay:       envDuration("RETRY_DELAY", 5*time.Second),
			MaxDelay:    envDuration("RETRY_MAX_DELAY", 30*time.Second),
		},
		LoadRetry: retry.Policy{
			MaxAttempts: envInt("LOAD_MAX_RETRIES", 3),
			Delay:       envDuration("LOAD_RETRY_DELAY", 5*time.Second),
			MaxDelay:    envDuration("RETRY_MAX_DELAY", 30*time.Second),
		},
		LoadTimeout:    envDuration("LOAD_TIMEOUT", 2*time.Minute),
		TempDir:        envString("TEMP_DIR", filepath.Join(os.TempDir(), "data-extract")),
		KeepTempFiles:  envBool("KEEP_TEMP_FILES", false),
		BatchSize:      envInt("BATCH_SIZE", 1000),
		Upsert:         envBool("UPSERT", false),
		SourceEncoding: envString("SOURCE_ENCODING", "utf-8"),
		ConfirmTimeout: envDuration("CONFIRM_TIMEOUT", 0),
		FailFast:       envBool("FAIL_FAST", false),
	}

	cfg.Cycles = append([]int(nil), run.DefaultCycles...)
	if v := envString("CYCLES", ""); v != "" {
		cycles, err := ParseCycles(v)
		if err != nil {
			return Config{}, fmt.Errorf("CYCLES: %w", err)
		}
		cfg.Cycles = cycles
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the structural invariants flags could have broken.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("BASE_URL: invalid URL %q", c.BaseURL)
	}
	if c.LookbackDays < 1 {
		return errors.New("LOOKBACK_DAYS must be at least 1")
	}
	if len(c.Cycles) == 0 {
		return errors.New("CYCLES must name at least one cycle")
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		return fmt.Errorf("DB_PORT out of range: %d", c.DB.Port)
	}
	if c.DB.MaxConns < 1 {
		return errors.New("DB_MAX_CONNS must be at least 1")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if c.BatchSize < 1 {
		return errors.New("BATCH_SIZE must be at least 1")
	}
	return nil
}

// ParseCycles parses a comma-separated cycle list such as "1,3,5".
// Cycles are deduplicated and returned in ascending order.
func ParseCycles(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	seen := make(map[int]bool, len(parts))
	cycles := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid cycle %q", part)
		}
		if n < 1 || n > 5 {
			return nil, fmt.Errorf("cycle %d out of range 1..5", n)
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		cycles = append(cycles, n)
	}
	if len(cycles) == 0 {
		return nil, errors.New("no cycles given")
	}
	sort.Ints(cycles)
	return cycles, nil
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

// envDuration understands Go duration strings and, for compatibility
// with the older config format, bare integers meaning seconds.
func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
