// Package config loads the server configuration from flags, environment
// variables and an optional YAML pipeline file.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	Env     string
	Marker  string
	Version string

	Upstream UpstreamConfig
	Cache    CacheConfig
	Pipeline PipelineConfig
}

// UpstreamConfig selects where original files come from. Exactly one mode
// is active: a local directory, an origin HTTP server, or an S3 bucket.
type UpstreamConfig struct {
	Dir string
	URL string

	S3Enabled   bool
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
}

type CacheConfig struct {
	Dir        string // empty: memory only
	MaxEntries int
	MaxBytes   int
	TTL        time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8080", "server port")
	root := flag.String("root", "", "serve files from this directory")
	pipelineFile := flag.String("pipeline", "", "YAML pipeline file (ordered plugin list)")
	flag.Parse()

	if envPort := strings.TrimSpace(os.Getenv("PORT")); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	pipeline, err := loadPipelineConfig(firstNonEmpty(*pipelineFile, strings.TrimSpace(os.Getenv("UNCHAINED_PIPELINE"))))
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:     *port,
		Env:      env,
		Marker:   firstNonEmpty(strings.TrimSpace(os.Getenv("UNCHAINED_MARKER")), "unchained"),
		Version:  strings.TrimSpace(os.Getenv("UNCHAINED_VERSION")),
		Upstream: loadUpstreamConfig(*root),
		Cache:    loadCacheConfig(),
		Pipeline: pipeline,
	}, nil
}

func loadUpstreamConfig(rootFlag string) UpstreamConfig {
	cfg := UpstreamConfig{
		Dir: firstNonEmpty(strings.TrimSpace(rootFlag), strings.TrimSpace(os.Getenv("UPSTREAM_DIR"))),
		URL: strings.TrimSpace(os.Getenv("UPSTREAM_URL")),
	}
	endpoint := strings.TrimSpace(os.Getenv("UPSTREAM_S3_ENDPOINT"))
	if endpoint != "" {
		cfg.S3Enabled = true
		cfg.S3Endpoint = endpoint
		cfg.S3Region = firstNonEmpty(strings.TrimSpace(os.Getenv("UPSTREAM_S3_REGION")), "us-east-1")
		cfg.S3AccessKey = firstNonEmpty(strings.TrimSpace(os.Getenv("UPSTREAM_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER")))
		cfg.S3SecretKey = firstNonEmpty(strings.TrimSpace(os.Getenv("UPSTREAM_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD")))
		cfg.S3Bucket = firstNonEmpty(strings.TrimSpace(os.Getenv("UPSTREAM_S3_BUCKET")), "unchained-sources")
		cfg.S3UseSSL = parseBool(os.Getenv("UPSTREAM_S3_USE_SSL"), true)
	}
	return cfg
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Dir:        strings.TrimSpace(os.Getenv("CACHE_DIR")),
		MaxEntries: parseInt(os.Getenv("CACHE_MAX_ENTRIES"), 1024),
		MaxBytes:   parseInt(os.Getenv("CACHE_MAX_BYTES"), 64*1024*1024),
		TTL:        parseDuration(os.Getenv("CACHE_TTL"), 10*time.Minute),
	}
}

func parseBool(raw string, def bool) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func parseInt(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func parseDuration(raw string, def time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
