package config

import (
	"time"

	"screenerfetch/internal/retry"
)

type ResilienceConfig struct {
	ScannerRequest retry.Config
	MirrorWrite    retry.Config
	Notify         retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	ScannerRequest: retry.Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
		Timeout:    15 * time.Second,
	},
	MirrorWrite: retry.Config{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    15 * time.Second,
	},
	Notify: retry.Config{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Timeout:    10 * time.Second,
	},
}

// Resilience returns the retry settings with the scanner values taken from the config file.
func (c *AppConfig) Resilience() ResilienceConfig {
	r := DefaultResilienceConfig
	r.ScannerRequest.MaxRetries = c.Scanner.MaxRetries
	r.ScannerRequest.Timeout = c.ScannerTimeout()
	return r
}
