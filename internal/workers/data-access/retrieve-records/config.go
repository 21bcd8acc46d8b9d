// internal/workers/data-access/retrieve-records/config.go
package retrieverecords

import "time"

type Config struct {
	Timeout    time.Duration
	MaxRecords int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    5 * time.Second,
		MaxRecords: 500,
	}
}
