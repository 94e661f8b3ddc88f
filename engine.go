package careauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/careauth/internal/audit"
	"github.com/MrEthical07/careauth/internal/flows"
	"github.com/MrEthical07/careauth/internal/stores"
	"github.com/MrEthical07/careauth/jwt"
	"github.com/MrEthical07/careauth/oauth"
	"github.com/MrEthical07/careauth/password"
	"go.uber.org/zap"
)

// Engine runs the account flows. It is safe for concurrent use and holds no
// per-user state: every request reads and writes the account store.
type Engine struct {
	config     Config
	flows      flows.Service
	store      *stores.AccountStore
	jwtManager *jwt.Manager
	hasher     *password.PBKDF2
	oauth      *oauth.Registry
	audit      *audit.Dispatcher
	metrics    *Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// Close drains queued security events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of security events dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// RecordRateLimited counts a request rejected by admission control.
func (e *Engine) RecordRateLimited() {
	e.metricInc(MetricRateLimited)
}

// Environment returns the configured deployment environment.
func (e *Engine) Environment() string {
	if e == nil {
		return ""
	}
	return e.config.Environment
}

// OAuthProviders lists the provider names accepted by [Engine.OAuthLogin].
func (e *Engine) OAuthProviders() []string {
	if e == nil || e.oauth == nil {
		return nil
	}
	return e.oauth.Names()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

// Register creates a password account and signs it in.
//
// Register returns a *ValidationError for malformed input, a
// *PasswordPolicyError for a weak password and ErrAccountExists when the
// email is taken.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	out, err := e.flows.Register(ctx, req.fields())
	if err != nil {
		return nil, err
	}
	return authResult(out, true), nil
}

// Login authenticates an email and password.
//
// Unknown emails, wrong passwords and malformed input all yield
// ErrInvalidCredentials. A locked account yields ErrAccountLocked, even when
// the password is correct.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	out, err := e.flows.Login(ctx, req.fields())
	e.metrics.Observe(MetricLoginLatency, time.Since(start))
	if err != nil {
		return nil, err
	}
	return authResult(out, true), nil
}

// Profile returns the account named by claims.
func (e *Engine) Profile(ctx context.Context, claims *Claims) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if claims == nil {
		return nil, ErrUnauthorized
	}
	record, err := e.flows.Profile(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	u := userFromRecord(record)
	return &u, nil
}

// UpdateProfile applies the non-empty fields of update to the caller's account.
// Input is validated before the account is loaded.
func (e *Engine) UpdateProfile(ctx context.Context, claims *Claims, update ProfileUpdate) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if claims == nil {
		return nil, ErrUnauthorized
	}
	record, err := e.flows.UpdateProfile(ctx, claims.UserID, update.fields())
	if err != nil {
		return nil, err
	}
	u := userFromRecord(record)
	return &u, nil
}

// Logout records the logout. Tokens stay valid until they expire.
func (e *Engine) Logout(ctx context.Context, claims *Claims) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if claims == nil {
		return ErrUnauthorized
	}
	return e.flows.Logout(ctx, claims.UserID, claims.Email)
}

// OAuthLogin signs in through provider, creating the account on first use.
// Every provider failure is an *OAuthError matching ErrOAuthFailed.
func (e *Engine) OAuthLogin(ctx context.Context, provider string, creds OAuthCredentials) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	out, err := e.flows.OAuthLogin(ctx, provider, creds.toProvider())
	e.metrics.Observe(MetricOAuthLatency, time.Since(start))
	if err != nil {
		var oe *OAuthError
		if errors.As(err, &oe) {
			e.logger.Warn("oauth sign-in failed",
				zap.String("provider", provider),
				zap.String("stage", string(oauth.StageOf(oe.Err))),
				zap.Error(oe.Err),
			)
		}
		return nil, err
	}
	return authResult(out, false), nil
}

// VerifyToken authenticates an Authorization header value.
//
// A missing header or scheme yields ErrUnauthorized; anything wrong with the
// token itself yields an error matching ErrInvalidToken.
func (e *Engine) VerifyToken(ctx context.Context, authorization string) (*Claims, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	token, ok := jwt.BearerToken(authorization)
	if !ok {
		return nil, ErrUnauthorized
	}
	claims, err := e.jwtManager.Verify(token)
	if err != nil {
		e.metricInc(MetricTokenRejected)
		e.emitSecurity(ctx, EventInvalidToken, RiskLow, "", "", nil)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

func authResult(out *flows.AuthOutcome, withProviders bool) *AuthResult {
	u := userFromRecord(out.Record)
	if !withProviders {
		u.OAuthProviders = nil
	}
	return &AuthResult{
		AccessToken: out.AccessToken,
		TokenType:   TokenType,
		User:        u,
	}
}
