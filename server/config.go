package server

import (
	"slices"
	"time"

	"github.com/MrEthical07/careauth"
)

// Config holds the HTTP-facing settings.
type Config struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	Version         string        `mapstructure:"version" yaml:"version"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// AllowedOrigins overrides the environment's CORS list when non-empty.
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig sets per-IP request budgets per window. Keys are bucket
// names: api, auth, registration, passwordReset, upload, oauth.
type RateLimitConfig struct {
	Enabled bool           `mapstructure:"enabled" yaml:"enabled"`
	Window  time.Duration  `mapstructure:"window" yaml:"window"`
	Limits  map[string]int `mapstructure:"limits" yaml:"limits"`
}

// DefaultConfig listens on :8080 with rate limiting on.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		Version:         "1.0.0",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RateLimit: RateLimitConfig{
			Enabled: true,
			Window:  time.Minute,
			Limits:  DefaultRateLimits(),
		},
	}
}

// DefaultRateLimits returns the per-minute budgets.
func DefaultRateLimits() map[string]int {
	return map[string]int{
		"api":           100,
		"auth":          5,
		"registration":  3,
		"passwordReset": 2,
		"upload":        5,
		"oauth":         10,
	}
}

var corsOrigins = map[string][]string{
	careauth.EnvProduction: {
		"https://care.brainsait.io",
		"https://www.care.brainsait.io",
		"https://brainsait.io",
		"https://www.brainsait.io",
	},
	careauth.EnvStaging: {
		"https://staging-care.brainsait.io",
		"https://staging.brainsait.io",
	},
	careauth.EnvDevelopment: {
		"http://localhost:5173",
		"http://localhost:5174",
		"http://localhost:3000",
		"http://127.0.0.1:5173",
		"http://127.0.0.1:5174",
	},
}

// CORSOrigins returns the allowed origins for environment. Unknown
// environments get the production list.
func CORSOrigins(environment string) []string {
	origins, ok := corsOrigins[environment]
	if !ok {
		origins = corsOrigins[careauth.EnvProduction]
	}
	return slices.Clone(origins)
}
