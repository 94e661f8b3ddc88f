package careauth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MrEthical07/careauth/internal/stores"
	"github.com/MrEthical07/careauth/jwt"
	"github.com/MrEthical07/careauth/oauth"
	"github.com/MrEthical07/careauth/password"
	"github.com/MrEthical07/careauth/validation"
)

// Environment names accepted in Config.Environment.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Config is the engine configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Environment    string
	ProductionMode bool

	JWT       JWTConfig
	Password  PasswordConfig
	Lockout   LockoutConfig
	Account   AccountConfig
	Store     StoreConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	DemoAdmin DemoAdminConfig
	OAuth     OAuthConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures session tokens. An empty Secret outside production
// makes Build generate a random one per process.
type JWTConfig struct {
	Secret []byte
	TTL    time.Duration
	Leeway time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig configures PBKDF2 derivation and the legacy digest check.
// LegacySecret defaults to the JWT secret, which is what legacy digests were
// peppered with.
type PasswordConfig struct {
	Iterations     int
	SaltBytes      int
	KeyBytes       int
	LegacySecret   string
	UpgradeOnLogin bool
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// LockoutConfig controls the failed-login lockout. Threshold 0 disables it.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

type AccountConfig struct {
	DefaultRole string
}

type StoreConfig struct {
	KeyPrefix string
}

// AuditConfig controls asynchronous security event delivery.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DemoAdminConfig enables a fixed credential pair that logs in as an admin
// without touching the store. It is rejected in production mode.
type DemoAdminConfig struct {
	Enabled  bool
	Email    string
	Password string
}

/*
====================================
OAUTH CONFIG
====================================
*/

// OAuthConfig configures the sign-in providers. HTTPTimeout 0 leaves provider
// calls bounded only by the request context.
type OAuthConfig struct {
	RedirectURL string
	HTTPTimeout time.Duration
	Providers   map[string]OAuthProviderConfig
}

// OAuthProviderConfig holds one provider's client registration. Empty URLs
// take the provider's public endpoints.
type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	ProfileURL   string
	EmailURL     string
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a development configuration.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Environment:    EnvDevelopment,
		ProductionMode: false,
		JWT: JWTConfig{
			TTL:    jwt.DefaultTTL,
			Leeway: 0,
		},
		Password: PasswordConfig{
			Iterations:     password.DefaultIterations,
			SaltBytes:      password.DefaultSaltBytes,
			KeyBytes:       password.DefaultKeyBytes,
			UpgradeOnLogin: true,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Duration:  15 * time.Minute,
		},
		Account: AccountConfig{
			DefaultRole: "user",
		},
		Store: StoreConfig{
			KeyPrefix: stores.DefaultKeyPrefix,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		DemoAdmin: DemoAdminConfig{
			Enabled:  false,
			Email:    "admin@brainsait.com",
			Password: "Admin123!",
		},
		OAuth: OAuthConfig{
			RedirectURL: "https://care.brainsait.io/auth/callback",
			HTTPTimeout: 0,
			Providers:   map[string]OAuthProviderConfig{},
		},
	}
}

// ProductionConfig returns the defaults hardened for production: production
// mode on, a bounded OAuth timeout and no demo admin. The caller still has to
// supply JWT.Secret.
func ProductionConfig() Config {
	cfg := defaultConfig()
	cfg.Environment = EnvProduction
	cfg.ProductionMode = true
	cfg.DemoAdmin.Enabled = false
	cfg.DemoAdmin.Password = ""
	cfg.OAuth.HTTPTimeout = 10 * time.Second
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	if cfg.OAuth.Providers != nil {
		out.OAuth.Providers = make(map[string]OAuthProviderConfig, len(cfg.OAuth.Providers))
		for name, p := range cfg.OAuth.Providers {
			p.Scopes = slices.Clone(p.Scopes)
			out.OAuth.Providers[name] = p
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

const minProductionSecretBytes = 32

var knownProviders = []string{oauth.Google, oauth.Microsoft, oauth.GitHub, oauth.LinkedIn, oauth.Gravatar}

// Validate reports the first configuration error, or nil.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}

	// JWT
	if c.JWT.TTL < 0 {
		return errors.New("JWT TTL must be >= 0")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT leeway must be between 0 and 2m")
	}
	if c.ProductionMode && len(c.JWT.Secret) < minProductionSecretBytes {
		return fmt.Errorf("production mode requires a JWT secret of at least %d bytes", minProductionSecretBytes)
	}

	// Password
	if c.Password.Iterations < password.DefaultIterations {
		return fmt.Errorf("password iterations must be >= %d", password.DefaultIterations)
	}
	if c.Password.SaltBytes < 16 {
		return errors.New("password salt length must be >= 16")
	}
	if c.Password.KeyBytes < 32 {
		return errors.New("password key length must be >= 32")
	}

	// Lockout
	if c.Lockout.Threshold < 0 {
		return errors.New("lockout threshold must be >= 0")
	}
	if c.Lockout.Threshold > 0 && c.Lockout.Duration <= 0 {
		return errors.New("lockout duration must be > 0 when lockout is enabled")
	}

	if !slices.Contains(validation.Roles, any(c.Account.DefaultRole)) {
		return fmt.Errorf("account default role %q is not a known role", c.Account.DefaultRole)
	}

	if strings.TrimSpace(c.Store.KeyPrefix) == "" || strings.HasSuffix(c.Store.KeyPrefix, ":") {
		return errors.New("store key prefix must be non-empty and not end in ':'")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be > 0 when audit is enabled")
	}

	if c.DemoAdmin.Enabled {
		if c.ProductionMode {
			return errors.New("demo admin cannot be enabled in production mode")
		}
		if c.DemoAdmin.Email == "" || c.DemoAdmin.Password == "" {
			return errors.New("demo admin requires an email and a password")
		}
	}

	if c.OAuth.HTTPTimeout < 0 {
		return errors.New("OAuth HTTP timeout must be >= 0")
	}
	for name := range c.OAuth.Providers {
		if !slices.Contains(knownProviders, name) {
			return fmt.Errorf("unknown OAuth provider %q", name)
		}
	}

	return nil
}

func (c Config) oauthRegistryConfig() oauth.Config {
	providers := make(map[string]oauth.ProviderConfig, len(c.OAuth.Providers))
	for name, p := range c.OAuth.Providers {
		providers[name] = oauth.ProviderConfig{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			Scopes:       slices.Clone(p.Scopes),
			Endpoints: oauth.Endpoints{
				AuthURL:    p.AuthURL,
				TokenURL:   p.TokenURL,
				ProfileURL: p.ProfileURL,
				EmailURL:   p.EmailURL,
			},
		}
	}
	return oauth.Config{
		RedirectURL: c.OAuth.RedirectURL,
		HTTPTimeout: c.OAuth.HTTPTimeout,
		Providers:   providers,
	}
}
