package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Scraper  ScraperConfig
	Source   SourceConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

type ScraperConfig struct {
	DelayBase        time.Duration
	DelayJitter      time.Duration
	MaxRetries       int
	RequestTimeout   time.Duration
	MinResponseBytes int
	MaxTargets       int
	UserAgents       []string
	Proxies          []string
	TorProxy         string
	PriceMin         float64
	PriceMax         float64
	OutlierHigh      float64
	OutlierVeryHigh  float64
	OutlierExtreme   float64
	ProxyFailLimit   int
}

type SourceConfig struct {
	BaseURL   string
	URLSuffix string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Scraper: ScraperConfig{
			DelayBase:        getDurationOrDefault("SCRAPER_DELAY_BASE", 4*time.Second),
			DelayJitter:      getDurationOrDefault("SCRAPER_DELAY_JITTER", 2*time.Second),
			MaxRetries:       getIntOrDefault("SCRAPER_MAX_RETRIES", 3),
			RequestTimeout:   getDurationOrDefault("SCRAPER_REQUEST_TIMEOUT", 20*time.Second),
			MinResponseBytes: getIntOrDefault("SCRAPER_MIN_RESPONSE_BYTES", 2048),
			MaxTargets:       getIntOrDefault("SCRAPER_MAX_TARGETS", 0),
			UserAgents:       getStringSliceOrDefault("SCRAPER_USER_AGENTS", defaultUserAgents()),
			Proxies:          getStringSliceOrDefault("SCRAPER_PROXIES", []string{}),
			TorProxy:         getEnvOrDefault("SCRAPER_TOR_PROXY", ""),
			PriceMin:         getFloatOrDefault("SCRAPER_PRICE_MIN", 0.05),
			PriceMax:         getFloatOrDefault("SCRAPER_PRICE_MAX", 2.00),
			OutlierHigh:      getFloatOrDefault("SCRAPER_OUTLIER_HIGH", 1.00),
			OutlierVeryHigh:  getFloatOrDefault("SCRAPER_OUTLIER_VERY_HIGH", 1.50),
			OutlierExtreme:   getFloatOrDefault("SCRAPER_OUTLIER_EXTREME", 2.00),
			ProxyFailLimit:   getIntOrDefault("SCRAPER_PROXY_FAIL_LIMIT", 3),
		},
		Source: SourceConfig{
			BaseURL:   getEnvOrDefault("SOURCE_BASE_URL", "https://www.stromauskunft.de/de/stadt/stromanbieter-in-"),
			URLSuffix: getEnvOrDefault("SOURCE_URL_SUFFIX", ".html"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "energy_prices"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:energy_prices"),
		},
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.MaxRetries < 1 {
		return fmt.Errorf("SCRAPER_MAX_RETRIES must be at least 1")
	}

	if c.Scraper.PriceMin >= c.Scraper.PriceMax {
		return fmt.Errorf("SCRAPER_PRICE_MIN must be below SCRAPER_PRICE_MAX")
	}

	if c.Scraper.OutlierHigh > c.Scraper.OutlierVeryHigh || c.Scraper.OutlierVeryHigh > c.Scraper.OutlierExtreme {
		return fmt.Errorf("outlier thresholds must be non-decreasing")
	}

	if len(c.Scraper.UserAgents) == 0 {
		return fmt.Errorf("SCRAPER_USER_AGENTS must not be empty")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	}
}
