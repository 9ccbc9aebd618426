package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds crawler configuration.
type Config struct {
	BaseURL          string
	MaxPages         int // 0 means unbounded
	Delay            time.Duration
	RandomDelay      time.Duration
	PageDelay        time.Duration
	Timeout          time.Duration
	SeenCacheSize    int
	OutputFile       string
	OutputFormat     string // csv, json, or dual
	CleanedDir       string
	MetricsAddr      string
	UserAgent        string
	Verbose          bool
	RespectRobotsTxt bool
}

// DefaultConfig returns conservative defaults for the demo target. The
// request and page delays mirror the politeness pauses the site expects.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://books.toscrape.com",
		MaxPages:         50,
		Delay:            500 * time.Millisecond,
		RandomDelay:      0,
		PageDelay:        time.Second,
		Timeout:          10 * time.Second,
		SeenCacheSize:    4096,
		OutputFile:       "data/raw/scraped_books.csv",
		OutputFormat:     "csv",
		CleanedDir:       "data/preprocessed",
		MetricsAddr:      "",
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:          false,
		RespectRobotsTxt: false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.MaxPages < 0 {
		return fmt.Errorf("max pages cannot be negative")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("page delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.SeenCacheSize <= 0 {
		return fmt.Errorf("seen cache size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
