package weathergateway

import (
	"fmt"
	"time"
)

type Config struct {
	BaseURL   string
	AccessKey string
	Timeout   time.Duration
	CacheTTL  time.Duration // 0 disables the Redis cache

	BreakerMaxRequests  uint32
	BreakerInterval     time.Duration
	BreakerTimeout      time.Duration
	BreakerFailureLimit uint32
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:             "http://api.weatherstack.com",
		Timeout:             5 * time.Second,
		CacheTTL:            5 * time.Minute,
		BreakerMaxRequests:  5,
		BreakerInterval:     time.Minute,
		BreakerTimeout:      2 * time.Minute,
		BreakerFailureLimit: 5,
	}
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.AccessKey == "" {
		return fmt.Errorf("access_key is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative")
	}
	if c.BreakerFailureLimit == 0 {
		return fmt.Errorf("breaker failure limit must be positive")
	}
	return nil
}
