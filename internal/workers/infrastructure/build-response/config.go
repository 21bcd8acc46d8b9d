// internal/workers/infrastructure/build-response/config.go
package buildresponse

import "time"

type Config struct {
	// TemplateRegistry is reloaded after CacheTTL; empty keeps the
	// registry the handler was built with.
	TemplateRegistry string
	CacheTTL         time.Duration
	AppVersion       string
	Timeout          time.Duration
}

func LoadConfig() *Config {
	return &Config{
		CacheTTL: 5 * time.Minute,
		Timeout:  30 * time.Second,
	}
}
