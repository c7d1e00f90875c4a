package subscriberstore

import "time"

type Config struct {
	Timeout       time.Duration
	EmailCacheTTL time.Duration // 0 disables the email lookup cache
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:       5 * time.Second,
		EmailCacheTTL: 5 * time.Minute,
	}
}
