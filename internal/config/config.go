package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate when a setting is unusable.
var ErrInvalid = errors.New("invalid config")

const (
	DefaultAPIURL       = "https://api.coingecko.com/api/v3/coins/markets"
	DefaultWorkbookPath = "crypto_live_data.xlsx"
	DefaultLogFile      = "crypto_tracker.log"
)

type Config struct {
	// CoinGecko markets endpoint
	APIURL     string        `yaml:"api_url"`
	VsCurrency string        `yaml:"vs_currency"`
	PerPage    int           `yaml:"per_page"`
	Timeout    time.Duration `yaml:"timeout"`

	// Retry policy for the markets request
	MaxAttempts    int           `yaml:"max_attempts"`
	BackoffInitial time.Duration `yaml:"backoff_initial"`
	BackoffMax     time.Duration `yaml:"backoff_max"`

	Interval     time.Duration `yaml:"interval"`
	WorkbookPath string        `yaml:"workbook_path"`
	LogFile      string        `yaml:"log_file"`

	// Optional collaborators, disabled when empty
	DatabaseURL string `yaml:"database_url"`
	StatusAddr  string `yaml:"status_addr"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		APIURL:         DefaultAPIURL,
		VsCurrency:     "usd",
		PerPage:        50,
		Timeout:        10 * time.Second,
		MaxAttempts:    3,
		BackoffInitial: 2 * time.Second,
		BackoffMax:     10 * time.Second,
		Interval:       5 * time.Minute,
		WorkbookPath:   DefaultWorkbookPath,
		LogFile:        DefaultLogFile,
	}
}

// Load builds the config from defaults, an optional YAML file at path and the
// environment (including a .env file), in that order of precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.APIURL = getEnv("COINGECKO_API_URL", c.APIURL)
	c.VsCurrency = getEnv("VS_CURRENCY", c.VsCurrency)
	c.WorkbookPath = getEnv("WORKBOOK_PATH", c.WorkbookPath)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.StatusAddr = getEnv("STATUS_ADDR", c.StatusAddr)

	var err error
	if c.PerPage, err = getEnvInt("PER_PAGE", c.PerPage); err != nil {
		return err
	}
	if c.MaxAttempts, err = getEnvInt("FETCH_MAX_ATTEMPTS", c.MaxAttempts); err != nil {
		return err
	}
	if c.Timeout, err = getEnvDuration("FETCH_TIMEOUT", c.Timeout); err != nil {
		return err
	}
	if c.BackoffInitial, err = getEnvDuration("BACKOFF_INITIAL", c.BackoffInitial); err != nil {
		return err
	}
	if c.BackoffMax, err = getEnvDuration("BACKOFF_MAX", c.BackoffMax); err != nil {
		return err
	}
	if c.Interval, err = getEnvDuration("JOB_INTERVAL", c.Interval); err != nil {
		return err
	}
	return nil
}

// Validate rejects settings the tracker cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.APIURL == "":
		return fmt.Errorf("%w: api url is empty", ErrInvalid)
	case c.VsCurrency == "":
		return fmt.Errorf("%w: vs currency is empty", ErrInvalid)
	case c.PerPage <= 0:
		return fmt.Errorf("%w: per page must be positive, got %d", ErrInvalid, c.PerPage)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalid)
	case c.MaxAttempts <= 0:
		return fmt.Errorf("%w: max attempts must be positive, got %d", ErrInvalid, c.MaxAttempts)
	case c.BackoffInitial <= 0 || c.BackoffMax < c.BackoffInitial:
		return fmt.Errorf("%w: backoff window %s..%s", ErrInvalid, c.BackoffInitial, c.BackoffMax)
	case c.Interval <= 0:
		return fmt.Errorf("%w: interval must be positive", ErrInvalid)
	case c.WorkbookPath == "":
		return fmt.Errorf("%w: workbook path is empty", ErrInvalid)
	case c.LogFile == "":
		return fmt.Errorf("%w: log file is empty", ErrInvalid)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, value, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, value, err)
	}
	return d, nil
}
