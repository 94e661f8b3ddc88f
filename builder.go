package careauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/careauth/internal"
	"github.com/MrEthical07/careauth/internal/audit"
	"github.com/MrEthical07/careauth/internal/flows"
	"github.com/MrEthical07/careauth/internal/stores"
	"github.com/MrEthical07/careauth/jwt"
	"github.com/MrEthical07/careauth/oauth"
	"github.com/MrEthical07/careauth/password"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger *zap.Logger

	sinks          []SecuritySink
	oauthProviders []oauth.Provider
	httpClient     *http.Client

	now func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the account store backend. It is required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the logger used for engine warnings and, when no sink is
// configured, for security events.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithSecuritySink adds a destination for security events.
func (b *Builder) WithSecuritySink(sink SecuritySink) *Builder {
	if sink != nil {
		b.sinks = append(b.sinks, sink)
	}
	return b
}

// WithOAuthProvider registers p, replacing a built-in provider of the same name.
func (b *Builder) WithOAuthProvider(p oauth.Provider) *Builder {
	if p != nil {
		b.oauthProviders = append(b.oauthProviders, p)
	}
	return b
}

// WithOAuthHTTPClient sets the HTTP client used for provider calls.
func (b *Builder) WithOAuthHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
//
// Outside production an empty JWT secret is replaced with a random one, so
// tokens do not survive a restart.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	cfg := cloneConfig(b.config)

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("careauth")

	if len(cfg.JWT.Secret) == 0 && !cfg.ProductionMode {
		secret, err := GenerateSecureToken(internal.SecretBytes)
		if err != nil {
			return nil, err
		}
		cfg.JWT.Secret = []byte(secret)
		logger.Warn("no JWT secret configured, generated a development secret")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Password.LegacySecret == "" {
		cfg.Password.LegacySecret = string(cfg.JWT.Secret)
	}

	hasher, err := password.NewPBKDF2(password.Config{
		Iterations: cfg.Password.Iterations,
		SaltBytes:  cfg.Password.SaltBytes,
		KeyBytes:   cfg.Password.KeyBytes,
	})
	if err != nil {
		return nil, err
	}

	jm, err := jwt.NewManager(jwt.Config{
		Secret: cloneBytes(cfg.JWT.Secret),
		TTL:    cfg.JWT.TTL,
		Leeway: cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	// Unknown emails are verified against this so they cost the same as a
	// wrong password.
	dummySecret, err := internal.RandomHex(internal.DefaultTokenBytes)
	if err != nil {
		return nil, err
	}
	dummy, err := hasher.Hash(dummySecret)
	if err != nil {
		return nil, err
	}

	oauthCfg := cfg.oauthRegistryConfig()
	oauthCfg.HTTPClient = b.httpClient
	registry := oauth.NewRegistry(oauthCfg)
	for _, p := range b.oauthProviders {
		registry.Register(p)
	}

	sinks := b.sinks
	if len(sinks) == 0 {
		sinks = []SecuritySink{audit.NewZapSink(logger)}
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	engine := &Engine{
		config:     cloneConfig(cfg),
		store:      stores.NewAccountStore(b.redis, cfg.Store.KeyPrefix),
		jwtManager: jm,
		hasher:     hasher,
		oauth:      registry,
		metrics:    NewMetrics(cfg.Metrics),
		logger:     logger,
		now:        now,
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sinks...)

	engine.flows = flows.New(engine.flowDeps(dummy))

	b.built = true

	return engine, nil
}

func (e *Engine) flowDeps(dummy password.Derived) flows.Deps {
	cfg := e.config
	legacySecret := cfg.Password.LegacySecret

	metricInc := func(id int) { e.metricInc(MetricID(id)) }
	issue := func(r *stores.AccountRecord) (string, error) {
		return e.jwtManager.Generate(jwt.Payload{UserID: r.ID, Email: r.Email, Role: r.Role})
	}
	validationErr := func(fields map[string][]string) error {
		return &ValidationError{Fields: fields}
	}

	return flows.Deps{
		Register: flows.RegisterDeps{
			DefaultRole:  cfg.Account.DefaultRole,
			Now:          e.now,
			NewUserID:    uuid.NewString,
			Hash:         e.hasher.Hash,
			Store:        e.store,
			IssueToken:   issue,
			MetricInc:    metricInc,
			EmitSecurity: e.emitSecurity,
			Metrics: flows.RegisterMetrics{
				Success:        int(MetricRegisterSuccess),
				Duplicate:      int(MetricRegisterDuplicate),
				Invalid:        int(MetricRegisterInvalid),
				PolicyRejected: int(MetricRegisterPolicyRejected),
			},
			Events: flows.RegisterEvents{
				InvalidData: EventInvalidRegistrationData,
			},
			Errors: flows.RegisterErrors{
				EngineNotReady: ErrEngineNotReady,
				AccountExists:  ErrAccountExists,
				Validation:     validationErr,
				PasswordPolicy: func(feedback []string) error {
					return &PasswordPolicyError{Feedback: feedback}
				},
			},
		},
		Login: flows.LoginDeps{
			LockoutThreshold: cfg.Lockout.Threshold,
			LockoutDuration:  cfg.Lockout.Duration,
			UpgradeOnLogin:   cfg.Password.UpgradeOnLogin,
			Now:              e.now,
			DemoAdmin:        e.demoAdmin,
			Store:            e.store,
			VerifyDerived:    e.hasher.Verify,
			VerifyLegacy: func(plain, digest string) bool {
				return password.VerifyLegacy(plain, legacySecret, digest)
			},
			NeedsUpgrade: e.hasher.NeedsUpgrade,
			Hash:         e.hasher.Hash,
			DummyHash: func() {
				_, _ = e.hasher.Verify("careauth-dummy-password", dummy)
			},
			IssueToken:   issue,
			MetricInc:    metricInc,
			EmitSecurity: e.emitSecurity,
			Warn: func(msg string, kv ...any) {
				e.logger.Sugar().Warnw(msg, kv...)
			},
			Metrics: flows.LoginMetrics{
				Success:          int(MetricLoginSuccess),
				Failure:          int(MetricLoginFailure),
				Locked:           int(MetricLoginLocked),
				LockoutTriggered: int(MetricLockoutTriggered),
				Migrated:         int(MetricPasswordMigrated),
				DemoAdmin:        int(MetricDemoAdminLogin),
			},
			Events: flows.LoginEvents{
				InvalidData:     EventInvalidLoginData,
				LockedAttempt:   EventLockedLoginAttempt,
				LockedExcessive: EventLockedExcessiveAttempts,
				FailedAttempt:   EventFailedLoginAttempt,
			},
			Errors: flows.LoginErrors{
				EngineNotReady:     ErrEngineNotReady,
				InvalidCredentials: ErrInvalidCredentials,
				AccountLocked:      ErrAccountLocked,
			},
		},
		Profile: flows.ProfileDeps{
			Now:       e.now,
			Store:     e.store,
			MetricInc: metricInc,
			Metrics: flows.ProfileMetrics{
				Read:   int(MetricProfileRead),
				Update: int(MetricProfileUpdate),
			},
			Errors: flows.ProfileErrors{
				EngineNotReady: ErrEngineNotReady,
				UserNotFound:   ErrUserNotFound,
				Forbidden:      ErrForbidden,
				Validation:     validationErr,
			},
		},
		OAuth: flows.OAuthDeps{
			Now:       e.now,
			NewUserID: uuid.NewString,
			Identify: func(ctx context.Context, provider string, creds oauth.Credentials) (oauth.Identity, error) {
				return e.oauth.Identify(ctx, provider, creds)
			},
			Store:        e.store,
			IssueToken:   issue,
			MetricInc:    metricInc,
			EmitSecurity: e.emitSecurity,
			Metrics: flows.OAuthMetrics{
				Success: int(MetricOAuthSuccess),
				Failure: int(MetricOAuthFailure),
				Created: int(MetricOAuthAccountCreated),
			},
			Errors: flows.OAuthErrors{
				EngineNotReady: ErrEngineNotReady,
				Failed: func(provider string, err error) error {
					return &OAuthError{Provider: provider, Message: oauth.Message(err), Err: err}
				},
			},
		},
		Logout: flows.LogoutDeps{
			MetricInc:    metricInc,
			EmitSecurity: e.emitSecurity,
			LogoutMetric: int(MetricLogout),
			LogoutEvent:  EventLogout,
		},
	}
}

// demoAdmin matches the configured demo credentials. The returned record is
// never stored.
func (e *Engine) demoAdmin(email, plain string) (*stores.AccountRecord, bool) {
	demo := e.config.DemoAdmin
	if !demo.Enabled {
		return nil, false
	}
	emailOK := strings.EqualFold(email, strings.TrimSpace(demo.Email))
	passOK := subtle.ConstantTimeCompare([]byte(plain), []byte(demo.Password)) == 1
	if !emailOK || !passOK {
		return nil, false
	}
	return &stores.AccountRecord{
		ID:         "1",
		Email:      strings.ToLower(strings.TrimSpace(demo.Email)),
		FirstName:  "Admin",
		LastName:   "User",
		Role:       "admin",
		IsVerified: true,
	}, true
}
