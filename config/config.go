package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	Domain             string
	Handles            []string
	Discover           bool
	MaxProducts        int
	Parallelism        int
	Timeout            time.Duration
	DomainRPS          float64
	StoresFile         string
	OutputFile         string
	OutputFormat       string // csv, json, or dual
	UserAgent          string
	Verbose            bool
	RespectRobotsTxt   bool
	MetricsAddr        string
	MaxConnsPerHost    int
	PipelineBufferSize int
	BatchSize          int
	DedupeMaxSize      int
}

// DefaultConfig returns conservative defaults for a public storefront.
func DefaultConfig() *Config {
	return &Config{
		Discover:           true,
		MaxProducts:        100,
		Parallelism:        16,
		Timeout:            10 * time.Second,
		DomainRPS:          0,
		OutputFile:         "output/products.json",
		OutputFormat:       "json",
		UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		Verbose:            false,
		RespectRobotsTxt:   false,
		MetricsAddr:        "",
		MaxConnsPerHost:    20,
		PipelineBufferSize: 512,
		BatchSize:          64,
		DedupeMaxSize:      100000,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Domain == "" && c.StoresFile == "" {
		return fmt.Errorf("a store domain or a stores file is required")
	}
	if c.Domain != "" {
		parsed, err := url.Parse(withScheme(c.Domain))
		if err != nil {
			return fmt.Errorf("invalid domain: %w", err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("domain must include a host")
		}
	}
	if len(c.Handles) == 0 && !c.Discover {
		return fmt.Errorf("either explicit handles or discovery must be enabled")
	}
	if c.MaxProducts <= 0 {
		return fmt.Errorf("max products must be positive")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.DomainRPS < 0 {
		return fmt.Errorf("domain rps cannot be negative")
	}
	if c.MaxConnsPerHost <= 0 {
		return fmt.Errorf("max connections per host must be positive")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe cache size must be positive")
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

func withScheme(domain string) string {
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain
	}
	return "https://" + domain
}
