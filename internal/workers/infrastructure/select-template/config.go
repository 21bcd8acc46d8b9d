// internal/workers/infrastructure/select-template/config.go
package selecttemplate

import "time"

// Config holds template overrides keyed "mode:intent:insight", "mode:intent"
// or "mode". The most specific key wins over the built-in decision table.
type Config struct {
	Overrides      map[string]string `mapstructure:"overrides"`
	SeparateImages bool              `mapstructure:"separate_images"`
	Timeout        time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Overrides: map[string]string{},
		Timeout:   5 * time.Second,
	}
}
