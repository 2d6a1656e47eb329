// internal/workers/admissions/send-confirmation/config.go
package sendconfirmation

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
