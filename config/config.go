package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/careauth"
	"github.com/MrEthical07/careauth/logger"
	"github.com/MrEthical07/careauth/server"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CAREAUTH"

// File is the on-disk configuration.
type File struct {
	Server   server.Config  `mapstructure:"server" yaml:"server"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Log      logger.Config  `mapstructure:"log" yaml:"log"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Security SecurityConfig `mapstructure:"security" yaml:"security"`
}

// RedisConfig addresses the account and rate limit store.
type RedisConfig struct {
	Addrs    []string `mapstructure:"addrs" yaml:"addrs"`
	Username string   `mapstructure:"username" yaml:"username"`
	Password string   `mapstructure:"password" yaml:"password"`
	DB       int      `mapstructure:"db" yaml:"db"`
}

// AuthConfig is the file form of careauth.Config.
type AuthConfig struct {
	Environment    string `mapstructure:"environment" yaml:"environment"`
	ProductionMode bool   `mapstructure:"production_mode" yaml:"production_mode"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
	TokenLeeway time.Duration `mapstructure:"token_leeway" yaml:"token_leeway"`

	PasswordIterations int    `mapstructure:"password_iterations" yaml:"password_iterations"`
	LegacySecret       string `mapstructure:"legacy_secret" yaml:"legacy_secret"`
	UpgradeOnLogin     bool   `mapstructure:"upgrade_on_login" yaml:"upgrade_on_login"`

	LockoutThreshold int           `mapstructure:"lockout_threshold" yaml:"lockout_threshold"`
	LockoutDuration  time.Duration `mapstructure:"lockout_duration" yaml:"lockout_duration"`

	DefaultRole string `mapstructure:"default_role" yaml:"default_role"`
	KeyPrefix   string `mapstructure:"key_prefix" yaml:"key_prefix"`

	Audit     AuditConfig     `mapstructure:"audit" yaml:"audit"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	DemoAdmin DemoAdminConfig `mapstructure:"demo_admin" yaml:"demo_admin"`
	OAuth     OAuthConfig     `mapstructure:"oauth" yaml:"oauth"`
}

type AuditConfig struct {
	Enabled    bool `mapstructure:"enabled" yaml:"enabled"`
	BufferSize int  `mapstructure:"buffer_size" yaml:"buffer_size"`
	DropIfFull bool `mapstructure:"drop_if_full" yaml:"drop_if_full"`
}

// MetricsConfig toggles engine metrics. OTelLogInterval > 0 makes careauthd
// collect them through an OpenTelemetry reader and log each collection.
type MetricsConfig struct {
	Enabled           bool          `mapstructure:"enabled" yaml:"enabled"`
	LatencyHistograms bool          `mapstructure:"latency_histograms" yaml:"latency_histograms"`
	OTelLogInterval   time.Duration `mapstructure:"otel_log_interval" yaml:"otel_log_interval"`
}

type DemoAdminConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Email    string `mapstructure:"email" yaml:"email"`
	Password string `mapstructure:"password" yaml:"password"`
}

type OAuthConfig struct {
	RedirectURL string                   `mapstructure:"redirect_url" yaml:"redirect_url"`
	HTTPTimeout time.Duration            `mapstructure:"http_timeout" yaml:"http_timeout"`
	Providers   map[string]OAuthProvider `mapstructure:"providers" yaml:"providers"`
}

type OAuthProvider struct {
	ClientID     string   `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string   `mapstructure:"client_secret" yaml:"client_secret"`
	Scopes       []string `mapstructure:"scopes" yaml:"scopes"`
	AuthURL      string   `mapstructure:"auth_url" yaml:"auth_url"`
	TokenURL     string   `mapstructure:"token_url" yaml:"token_url"`
	ProfileURL   string   `mapstructure:"profile_url" yaml:"profile_url"`
	EmailURL     string   `mapstructure:"email_url" yaml:"email_url"`
}

// SecurityConfig holds the per-environment CORS origins and the per-minute
// request budgets.
type SecurityConfig struct {
	CORS            map[string][]string `mapstructure:"cors" yaml:"cors"`
	RateLimit       bool                `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateLimitWindow time.Duration       `mapstructure:"rate_limit_window" yaml:"rate_limit_window"`
	RateLimits      map[string]int      `mapstructure:"rate_limits" yaml:"rate_limits"`
}

// Default returns the configuration used when no file is present.
func Default() File {
	engine := careauth.DefaultConfig()
	srv := server.DefaultConfig()
	return File{
		Server: server.Config{
			Addr:            srv.Addr,
			Version:         srv.Version,
			ReadTimeout:     srv.ReadTimeout,
			WriteTimeout:    srv.WriteTimeout,
			ShutdownTimeout: srv.ShutdownTimeout,
		},
		Redis: RedisConfig{Addrs: []string{"localhost:6379"}},
		Log:   logger.DefaultConfig(),
		Auth: AuthConfig{
			Environment:        engine.Environment,
			TokenTTL:           engine.JWT.TTL,
			PasswordIterations: engine.Password.Iterations,
			UpgradeOnLogin:     engine.Password.UpgradeOnLogin,
			LockoutThreshold:   engine.Lockout.Threshold,
			LockoutDuration:    engine.Lockout.Duration,
			DefaultRole:        engine.Account.DefaultRole,
			KeyPrefix:          engine.Store.KeyPrefix,
			Audit: AuditConfig{
				Enabled:    engine.Audit.Enabled,
				BufferSize: engine.Audit.BufferSize,
				DropIfFull: engine.Audit.DropIfFull,
			},
			Metrics: MetricsConfig{
				Enabled:           engine.Metrics.Enabled,
				LatencyHistograms: engine.Metrics.EnableLatencyHistograms,
			},
			DemoAdmin: DemoAdminConfig{Email: engine.DemoAdmin.Email},
			OAuth: OAuthConfig{
				RedirectURL: engine.OAuth.RedirectURL,
			},
		},
		Security: SecurityConfig{
			CORS: map[string][]string{
				careauth.EnvProduction:  server.CORSOrigins(careauth.EnvProduction),
				careauth.EnvStaging:     server.CORSOrigins(careauth.EnvStaging),
				careauth.EnvDevelopment: server.CORSOrigins(careauth.EnvDevelopment),
			},
			RateLimit:       srv.RateLimit.Enabled,
			RateLimitWindow: srv.RateLimit.Window,
			RateLimits:      srv.RateLimit.Limits,
		},
	}
}

// Load reads path (YAML) when non-empty, then applies CAREAUTH_* overrides.
// With an empty path it looks for careauth.yaml in ./configs and the working
// directory and falls back to defaults when neither exists.
func Load(path string) (File, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return File{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("careauth")
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return File{}, fmt.Errorf("config: %w", err)
			}
		}
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return File{}, fmt.Errorf("config: decode: %w", err)
	}
	return f, nil
}

// setDefaults registers every scalar key so AutomaticEnv can override keys
// absent from the file.
func setDefaults(v *viper.Viper, d File) {
	defaults := map[string]any{
		"server.addr":             d.Server.Addr,
		"server.version":          d.Server.Version,
		"server.read_timeout":     d.Server.ReadTimeout,
		"server.write_timeout":    d.Server.WriteTimeout,
		"server.shutdown_timeout": d.Server.ShutdownTimeout,

		"redis.addrs":    d.Redis.Addrs,
		"redis.username": d.Redis.Username,
		"redis.password": d.Redis.Password,
		"redis.db":       d.Redis.DB,

		"log.level":       d.Log.Level,
		"log.format":      d.Log.Format,
		"log.output":      d.Log.Output,
		"log.file_path":   d.Log.FilePath,
		"log.development": d.Log.Development,

		"auth.environment":         d.Auth.Environment,
		"auth.production_mode":     d.Auth.ProductionMode,
		"auth.jwt_secret":          d.Auth.JWTSecret,
		"auth.token_ttl":           d.Auth.TokenTTL,
		"auth.token_leeway":        d.Auth.TokenLeeway,
		"auth.password_iterations": d.Auth.PasswordIterations,
		"auth.legacy_secret":       d.Auth.LegacySecret,
		"auth.upgrade_on_login":    d.Auth.UpgradeOnLogin,
		"auth.lockout_threshold":   d.Auth.LockoutThreshold,
		"auth.lockout_duration":    d.Auth.LockoutDuration,
		"auth.default_role":        d.Auth.DefaultRole,
		"auth.key_prefix":          d.Auth.KeyPrefix,

		"auth.audit.enabled":      d.Auth.Audit.Enabled,
		"auth.audit.buffer_size":  d.Auth.Audit.BufferSize,
		"auth.audit.drop_if_full": d.Auth.Audit.DropIfFull,

		"auth.metrics.enabled":            d.Auth.Metrics.Enabled,
		"auth.metrics.latency_histograms": d.Auth.Metrics.LatencyHistograms,
		"auth.metrics.otel_log_interval":  d.Auth.Metrics.OTelLogInterval,

		"auth.demo_admin.enabled":  d.Auth.DemoAdmin.Enabled,
		"auth.demo_admin.email":    d.Auth.DemoAdmin.Email,
		"auth.demo_admin.password": d.Auth.DemoAdmin.Password,

		"auth.oauth.redirect_url": d.Auth.OAuth.RedirectURL,
		"auth.oauth.http_timeout": d.Auth.OAuth.HTTPTimeout,

		"security.cors":              d.Security.CORS,
		"security.rate_limit":        d.Security.RateLimit,
		"security.rate_limit_window": d.Security.RateLimitWindow,
		"security.rate_limits":       d.Security.RateLimits,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// EngineConfig maps the auth section onto careauth.Config. Production
// environments start from careauth.ProductionConfig.
func (f File) EngineConfig() careauth.Config {
	a := f.Auth
	cfg := careauth.DefaultConfig()
	if a.Environment == careauth.EnvProduction {
		cfg = careauth.ProductionConfig()
	}
	if a.Environment != "" {
		cfg.Environment = a.Environment
	}
	cfg.ProductionMode = cfg.ProductionMode || a.ProductionMode

	if a.JWTSecret != "" {
		cfg.JWT.Secret = []byte(a.JWTSecret)
	}
	if a.TokenTTL > 0 {
		cfg.JWT.TTL = a.TokenTTL
	}
	cfg.JWT.Leeway = a.TokenLeeway

	if a.PasswordIterations > 0 {
		cfg.Password.Iterations = a.PasswordIterations
	}
	cfg.Password.LegacySecret = a.LegacySecret
	cfg.Password.UpgradeOnLogin = a.UpgradeOnLogin

	cfg.Lockout.Threshold = a.LockoutThreshold
	if a.LockoutDuration > 0 {
		cfg.Lockout.Duration = a.LockoutDuration
	}
	if a.DefaultRole != "" {
		cfg.Account.DefaultRole = a.DefaultRole
	}
	if a.KeyPrefix != "" {
		cfg.Store.KeyPrefix = a.KeyPrefix
	}

	cfg.Audit = careauth.AuditConfig{
		Enabled:    a.Audit.Enabled,
		BufferSize: a.Audit.BufferSize,
		DropIfFull: a.Audit.DropIfFull,
	}
	cfg.Metrics = careauth.MetricsConfig{
		Enabled:                 a.Metrics.Enabled,
		EnableLatencyHistograms: a.Metrics.LatencyHistograms,
	}

	cfg.DemoAdmin.Enabled = a.DemoAdmin.Enabled
	if a.DemoAdmin.Email != "" {
		cfg.DemoAdmin.Email = a.DemoAdmin.Email
	}
	if a.DemoAdmin.Password != "" {
		cfg.DemoAdmin.Password = a.DemoAdmin.Password
	}

	if a.OAuth.RedirectURL != "" {
		cfg.OAuth.RedirectURL = a.OAuth.RedirectURL
	}
	if a.OAuth.HTTPTimeout > 0 {
		cfg.OAuth.HTTPTimeout = a.OAuth.HTTPTimeout
	}
	for name, p := range a.OAuth.Providers {
		cfg.OAuth.Providers[name] = careauth.OAuthProviderConfig{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			Scopes:       p.Scopes,
			AuthURL:      p.AuthURL,
			TokenURL:     p.TokenURL,
			ProfileURL:   p.ProfileURL,
			EmailURL:     p.EmailURL,
		}
	}
	return cfg
}

// ServerConfig maps the server and security sections onto server.Config,
// picking the CORS list for the auth environment.
func (f File) ServerConfig() server.Config {
	cfg := f.Server
	env := f.Auth.Environment
	if env == "" {
		env = careauth.EnvDevelopment
	}
	switch origins := f.Security.CORS[env]; {
	case len(cfg.AllowedOrigins) > 0:
		cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	case len(origins) > 0:
		cfg.AllowedOrigins = append([]string(nil), origins...)
	default:
		cfg.AllowedOrigins = server.CORSOrigins(env)
	}
	// A rate_limits map in the file replaces the default map whole, so the
	// configured buckets are laid over the defaults here.
	cfg.RateLimit = server.RateLimitConfig{
		Enabled: f.Security.RateLimit,
		Window:  f.Security.RateLimitWindow,
		Limits:  server.DefaultRateLimits(),
	}
	for name, n := range f.Security.RateLimits {
		cfg.RateLimit.Limits[bucketName(name)] = n
	}
	return cfg
}

// bucketName restores the case of a known bucket name; viper lower-cases
// every key it reads.
func bucketName(name string) string {
	for known := range server.DefaultRateLimits() {
		if strings.EqualFold(known, name) {
			return known
		}
	}
	return name
}

// LoggerConfig returns the log section.
func (f File) LoggerConfig() logger.Config {
	return f.Log
}

const redacted = "[REDACTED]"

// Redacted returns a copy safe to print: secrets and passwords are masked.
func (f File) Redacted() File {
	out := f
	if out.Redis.Password != "" {
		out.Redis.Password = redacted
	}
	if out.Auth.JWTSecret != "" {
		out.Auth.JWTSecret = redacted
	}
	if out.Auth.LegacySecret != "" {
		out.Auth.LegacySecret = redacted
	}
	if out.Auth.DemoAdmin.Password != "" {
		out.Auth.DemoAdmin.Password = redacted
	}
	if len(f.Auth.OAuth.Providers) > 0 {
		out.Auth.OAuth.Providers = make(map[string]OAuthProvider, len(f.Auth.OAuth.Providers))
		for name, p := range f.Auth.OAuth.Providers {
			if p.ClientSecret != "" {
				p.ClientSecret = redacted
			}
			out.Auth.OAuth.Providers[name] = p
		}
	}
	return out
}
