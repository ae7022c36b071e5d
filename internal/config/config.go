// Package config loads the engine's ambient configuration: a discovered
// kreuzberg.{toml,yaml,json} file, layered under environment variable
// overrides, with an optional local .env for development. Generalized
// from the teacher's flat getEnvOrDefault/getEnvOrThrow + Validate
// pattern into a viper-backed, file-plus-env layering scheme matching
// weave-cli's config loader.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/adverant/kreuzberg-go/internal/kerrors"
)

// Config is the process-wide default configuration for the extraction
// engine: the baseline ExtractionConfig values plus cache tuning.
type Config struct {
	OCRLanguage     string `mapstructure:"ocr_language"`
	OCRBackend      string `mapstructure:"ocr_backend"`
	ChunkSize       int    `mapstructure:"chunk_size"`
	ChunkOverlap    int    `mapstructure:"chunk_overlap"`
	CacheEnabled    bool   `mapstructure:"cache_enabled"`
	CacheDir        string `mapstructure:"cache_dir"`
	CacheMaxAgeDays int    `mapstructure:"cache_max_age_days"`
	CacheMaxSizeMB  int    `mapstructure:"cache_max_size_mb"`
	CacheBackend    string `mapstructure:"cache_backend"` // "directory", "redis", "postgres"
	CacheRedisAddr  string `mapstructure:"cache_redis_addr"`
	CachePostgresURL string `mapstructure:"cache_postgres_url"`
	TokenReduction  string `mapstructure:"token_reduction"`
	OutputFormat    string `mapstructure:"output_format"`

	QueueRedisAddr    string `mapstructure:"queue_redis_addr"`
	WorkerConcurrency int    `mapstructure:"worker_concurrency"`
	MaxFileSize       int64  `mapstructure:"max_file_size"`
}

var ocrBackends = map[string]bool{"tesseract": true, "easyocr": true, "paddleocr": true}
var cacheBackends = map[string]bool{"directory": true, "redis": true, "postgres": true}
var tokenReductionModes = map[string]bool{"off": true, "light": true, "moderate": true, "aggressive": true, "maximum": true}
var outputFormats = map[string]bool{"": true, "plain": true, "markdown": true, "djot": true, "html": true, "structured": true, "text": true, "md": true, "json": true}

func defaults() *Config {
	return &Config{
		OCRLanguage:     "eng",
		OCRBackend:      "tesseract",
		ChunkSize:       2000,
		ChunkOverlap:    200,
		CacheEnabled:    true,
		CacheDir:        filepath.Join(os.TempDir(), "kreuzberg-cache"),
		CacheMaxAgeDays: 7,
		CacheMaxSizeMB:  1024,
		CacheBackend:    "directory",
		CacheRedisAddr:  "localhost:6379",
		TokenReduction:  "off",
		OutputFormat:    "plain",

		QueueRedisAddr:    "localhost:6379",
		WorkerConcurrency: 4,
		MaxFileSize:       100 * 1024 * 1024,
	}
}

// Load discovers kreuzberg.{toml,yaml,json} by walking upward from the
// working directory to the filesystem root, loads a local .env (optional),
// layers KREUZBERG_* environment variables over the file, and validates
// the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("kreuzberg")
	v.SetEnvPrefix("KREUZBERG")
	v.AutomaticEnv()

	d := defaults()
	v.SetDefault("ocr_language", d.OCRLanguage)
	v.SetDefault("ocr_backend", d.OCRBackend)
	v.SetDefault("chunk_size", d.ChunkSize)
	v.SetDefault("chunk_overlap", d.ChunkOverlap)
	v.SetDefault("cache_enabled", d.CacheEnabled)
	v.SetDefault("cache_dir", d.CacheDir)
	v.SetDefault("cache_max_age_days", d.CacheMaxAgeDays)
	v.SetDefault("cache_max_size_mb", d.CacheMaxSizeMB)
	v.SetDefault("cache_backend", d.CacheBackend)
	v.SetDefault("cache_redis_addr", d.CacheRedisAddr)
	v.SetDefault("cache_postgres_url", d.CachePostgresURL)
	v.SetDefault("token_reduction", d.TokenReduction)
	v.SetDefault("output_format", d.OutputFormat)
	v.SetDefault("queue_redis_addr", d.QueueRedisAddr)
	v.SetDefault("worker_concurrency", d.WorkerConcurrency)
	v.SetDefault("max_file_size", d.MaxFileSize)

	dir, err := os.Getwd()
	if err == nil {
		for {
			v.AddConfigPath(dir)
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, kerrors.Validation("failed to read config file", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, kerrors.Validation("failed to unmarshal config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the same closed-enum / bound checks spec.md requires
// of ExtractionConfig, applied here to the process defaults: OCR backend
// in the enum, overlap < chunk size, token reduction mode in the enum.
func (c *Config) Validate() error {
	if !ocrBackends[c.OCRBackend] {
		return kerrors.Validation("unknown ocr_backend: "+c.OCRBackend, nil)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return kerrors.Validation("chunk_overlap must be less than chunk_size", nil)
	}
	if c.ChunkSize <= 0 {
		return kerrors.Validation("chunk_size must be positive", nil)
	}
	if !cacheBackends[c.CacheBackend] {
		return kerrors.Validation("unknown cache_backend: "+c.CacheBackend, nil)
	}
	if !tokenReductionModes[c.TokenReduction] {
		return kerrors.Validation("unknown token_reduction mode: "+c.TokenReduction, nil)
	}
	if !outputFormats[c.OutputFormat] {
		return kerrors.Validation("unknown output_format: "+c.OutputFormat, nil)
	}
	if c.CacheMaxAgeDays < 0 || c.CacheMaxSizeMB < 0 {
		return kerrors.Validation("cache_max_age_days and cache_max_size_mb must be non-negative", nil)
	}
	if c.WorkerConcurrency <= 0 {
		return kerrors.Validation("worker_concurrency must be positive", nil)
	}
	if c.MaxFileSize <= 0 {
		return kerrors.Validation("max_file_size must be positive", nil)
	}
	return nil
}
