package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Telegram configuration
	BotToken string

	// Watcher configuration
	CheckInterval  time.Duration
	SweepJitterMin time.Duration
	SweepJitterMax time.Duration

	// Store configuration
	StoreBackend string // "file" or "redis"
	DataFile     string
	RedisAddr    string
	RedisDB      int
	RedisKey     string

	// Rate-limit cache configuration
	CacheBackend   string // "memory" or "memcache"
	MemcacheAddr   string
	RateLimitBlock time.Duration

	// Extractor configuration
	ProductURLPrefix string
	HomepageURL      string
	FetchTimeout     time.Duration
	WarmupDelayMin   time.Duration
	WarmupDelayMax   time.Duration

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	checkInterval, _ := strconv.Atoi(getEnv("CHECK_INTERVAL", "3600"))
	jitterMin, _ := strconv.Atoi(getEnv("SWEEP_JITTER_MIN_SECONDS", "30"))
	jitterMax, _ := strconv.Atoi(getEnv("SWEEP_JITTER_MAX_SECONDS", "60"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	blockSecs, _ := strconv.Atoi(getEnv("RATE_LIMIT_BLOCK_SECONDS", "500"))
	fetchTimeout, _ := strconv.Atoi(getEnv("FETCH_TIMEOUT_SECONDS", "10"))
	warmupMin, _ := strconv.Atoi(getEnv("WARMUP_DELAY_MIN_MS", "1000"))
	warmupMax, _ := strconv.Atoi(getEnv("WARMUP_DELAY_MAX_MS", "3000"))

	return Config{
		BotToken:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		CheckInterval:    time.Duration(checkInterval) * time.Second,
		SweepJitterMin:   time.Duration(jitterMin) * time.Second,
		SweepJitterMax:   time.Duration(jitterMax) * time.Second,
		StoreBackend:     getEnv("STORE_BACKEND", "file"),
		DataFile:         getEnv("DATA_FILE", "data/products.json"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:          redisDB,
		RedisKey:         getEnv("REDIS_KEY", "bolwatch:products"),
		CacheBackend:     getEnv("CACHE_BACKEND", "memory"),
		MemcacheAddr:     getEnv("MEMCACHE_ADDR", "localhost:11211"),
		RateLimitBlock:   time.Duration(blockSecs) * time.Second,
		ProductURLPrefix: getEnv("PRODUCT_URL_PREFIX", "https://www.bol.com"),
		HomepageURL:      getEnv("HOMEPAGE_URL", "https://www.bol.com/"),
		FetchTimeout:     time.Duration(fetchTimeout) * time.Second,
		WarmupDelayMin:   time.Duration(warmupMin) * time.Millisecond,
		WarmupDelayMax:   time.Duration(warmupMax) * time.Millisecond,
		Environment:      getEnv("BOLWATCH_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values that cannot work at runtime
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if c.CheckInterval <= 0 {
		return errors.New("CHECK_INTERVAL must be positive")
	}
	if c.SweepJitterMax < c.SweepJitterMin {
		return errors.New("SWEEP_JITTER_MAX_SECONDS must not be less than SWEEP_JITTER_MIN_SECONDS")
	}
	if c.WarmupDelayMax < c.WarmupDelayMin {
		return errors.New("WARMUP_DELAY_MAX_MS must not be less than WARMUP_DELAY_MIN_MS")
	}
	switch c.StoreBackend {
	case "file", "redis":
	default:
		return errors.New("STORE_BACKEND must be 'file' or 'redis'")
	}
	switch c.CacheBackend {
	case "memory", "memcache":
	default:
		return errors.New("CACHE_BACKEND must be 'memory' or 'memcache'")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
