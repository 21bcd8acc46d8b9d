// internal/workers/intelligence/generate-insight/config.go
package generateinsight

import "time"

type Config struct {
	Timeout time.Duration
	// SeparateImages is used when the job does not say.
	SeparateImages bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}
