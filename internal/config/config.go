// Package config centralizes how PlanHarvest reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents runtime configuration shared by the CLI and the worker.
// Command-line flags override these values per command.
type Config struct {
	RegistryURL   string
	PageSize      int
	PageDelay     time.Duration
	OrgDelay      time.Duration
	DownloadDelay time.Duration
	ProbeInterval time.Duration
	Workers       int
	OnItemError   string

	DownloadWorkers int
	Kinds           []string

	CatalogPath     string
	DownloadDir     string
	FailureLog      string
	CrawlFailureLog string
	ViewerHosts     []string
	UserAgent       string
	VerifyPDF       bool

	LogLevel    string
	MetricsFile string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3Prefix    string
	S3UseSSL    bool
}

const (
	defaultRegistryURL     = "https://www.planning.data.gov.uk"
	defaultPageSize        = 500
	defaultPageDelay       = 200 * time.Millisecond
	defaultOrgDelay        = 100 * time.Millisecond
	defaultDownloadDelay   = 500 * time.Millisecond
	defaultProbeInterval   = 0
	defaultWorkers         = 1
	defaultDownloadWorkers = 1
	defaultOnItemError     = "abort"
	defaultCatalogPath     = "catalog.csv"
	defaultDownloadDir     = "downloads"
	defaultFailureLog      = "download_failures.csv"
	defaultCrawlFailureLog = "crawl_failures.csv"
	defaultUserAgent       = "PlanHarvest/1.0 (+planning use)"
	defaultLogLevel        = "info"
	defaultRedisAddr       = "localhost:6379"
	defaultS3Bucket        = "plan-documents"
	defaultS3Region        = "us-east-1"
	defaultS3Prefix        = "documents"
	defaultEnvFile         = ".env"
)

// Load reads an optional .env file (HARVEST_ENV_FILE, default ".env") and
// then the HARVEST_* environment, falling back to defaults. Variables already
// set in the process environment win over the file.
func Load() (*Config, error) {
	envFile := readEnv("HARVEST_ENV_FILE", defaultEnvFile)
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{
		RegistryURL:   readEnv("HARVEST_REGISTRY_URL", defaultRegistryURL),
		PageSize:      parseInt("HARVEST_PAGE_SIZE", defaultPageSize),
		PageDelay:     parseDuration("HARVEST_PAGE_DELAY", defaultPageDelay),
		OrgDelay:      parseDuration("HARVEST_ORG_DELAY", defaultOrgDelay),
		DownloadDelay: parseDuration("HARVEST_DOWNLOAD_DELAY", defaultDownloadDelay),
		ProbeInterval: parseDuration("HARVEST_PROBE_INTERVAL", defaultProbeInterval),
		Workers:       parseInt("HARVEST_WORKERS", defaultWorkers),
		OnItemError:   readEnv("HARVEST_ON_ITEM_ERROR", defaultOnItemError),

		DownloadWorkers: parseInt("HARVEST_DOWNLOAD_WORKERS", defaultDownloadWorkers),
		Kinds:           parseList("HARVEST_KINDS", ""),

		CatalogPath:     readEnv("HARVEST_CATALOG", defaultCatalogPath),
		DownloadDir:     readEnv("HARVEST_DOWNLOAD_DIR", defaultDownloadDir),
		FailureLog:      readEnv("HARVEST_FAILURE_LOG", defaultFailureLog),
		CrawlFailureLog: readEnv("HARVEST_CRAWL_FAILURE_LOG", defaultCrawlFailureLog),
		ViewerHosts:     parseList("HARVEST_VIEWER_HOSTS", ""),
		UserAgent:       readEnv("HARVEST_USER_AGENT", defaultUserAgent),
		VerifyPDF:       parseBool("HARVEST_VERIFY_PDF", false),

		LogLevel:    readEnv("HARVEST_LOG_LEVEL", defaultLogLevel),
		MetricsFile: readEnv("HARVEST_METRICS_FILE", ""),

		DatabaseURL: readEnv("HARVEST_DATABASE_URL", ""),

		RedisAddr:     readEnv("HARVEST_REDIS_ADDR", defaultRedisAddr),
		RedisPassword: readEnv("HARVEST_REDIS_PASSWORD", ""),
		RedisDB:       parseInt("HARVEST_REDIS_DB", 0),

		S3Endpoint:  readEnv("HARVEST_S3_ENDPOINT", ""),
		S3AccessKey: readEnv("HARVEST_S3_ACCESS_KEY", ""),
		S3SecretKey: readEnv("HARVEST_S3_SECRET_KEY", ""),
		S3Bucket:    readEnv("HARVEST_S3_BUCKET", defaultS3Bucket),
		S3Region:    readEnv("HARVEST_S3_REGION", defaultS3Region),
		S3Prefix:    readEnv("HARVEST_S3_PREFIX", defaultS3Prefix),
		S3UseSSL:    parseBool("HARVEST_S3_USE_SSL", false),
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.DownloadWorkers <= 0 {
		cfg.DownloadWorkers = defaultDownloadWorkers
	}
	return cfg, nil
}

// MirrorEnabled reports whether object storage settings are present.
func (c *Config) MirrorEnabled() bool {
	return c.S3Endpoint != "" && c.S3Bucket != ""
}

func readEnv(key, def string) string {
	// LookupEnv returns (value, true) when the variable is present.
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseList(key, def string) []string {
	val := readEnv(key, def)
	if strings.TrimSpace(val) == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	// time.ParseDuration understands inputs like "500ms" or "30s".
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}
