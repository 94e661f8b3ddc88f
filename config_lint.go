package careauth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LintSeverity orders lint findings. Higher values are more serious.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "info"
	case LintWarn:
		return "warn"
	case LintHigh:
		return "high"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// LintWarning is a configuration that is valid but probably not intended.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintWarnings is the result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in report order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (ws LintWarnings) BySeverity(min LintSeverity) LintWarnings {
	var out LintWarnings
	for _, w := range ws {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError folds the warnings at or above min into one error, or nil if none.
// Startup code uses it to refuse a config with high findings.
func (ws LintWarnings) AsError(min LintSeverity) error {
	hits := ws.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return errors.New("config lint: " + strings.Join(parts, "; "))
}

const (
	lintShortSecretBytes = 32
	lintLongTokenTTL     = 24 * time.Hour
	lintShortLockout     = 5 * time.Minute
	lintHighThreshold    = 10
)

// Lint reports settings that pass [Config.Validate] but weaken the deployment.
func (c Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.DemoAdmin.Enabled {
		add("demo_admin_enabled", LintHigh, "a fixed admin credential bypasses the account store")
	}
	if len(c.JWT.Secret) > 0 && len(c.JWT.Secret) < lintShortSecretBytes {
		add("jwt_secret_short", LintHigh, fmt.Sprintf("JWT secret is %d bytes, use at least %d", len(c.JWT.Secret), lintShortSecretBytes))
	}
	if len(c.JWT.Secret) == 0 {
		add("jwt_secret_generated", LintWarn, "no JWT secret configured; a random one is generated and tokens die with the process")
	}
	if c.JWT.TTL > lintLongTokenTTL {
		add("token_ttl_long", LintWarn, fmt.Sprintf("session tokens live %s and cannot be revoked", c.JWT.TTL))
	}
	if c.Lockout.Threshold == 0 {
		add("lockout_disabled", LintHigh, "failed logins never lock the account")
	} else {
		if c.Lockout.Threshold > lintHighThreshold {
			add("lockout_threshold_high", LintWarn, fmt.Sprintf("lockout after %d failures", c.Lockout.Threshold))
		}
		if c.Lockout.Duration < lintShortLockout {
			add("lockout_duration_short", LintInfo, fmt.Sprintf("lockout lasts only %s", c.Lockout.Duration))
		}
	}
	if c.OAuth.HTTPTimeout == 0 {
		add("oauth_no_timeout", LintWarn, "OAuth provider calls are bounded only by the request context")
	}
	for name, p := range c.OAuth.Providers {
		if p.ClientID == "" || p.ClientSecret == "" {
			add("oauth_provider_incomplete", LintWarn, fmt.Sprintf("OAuth provider %q has no client credentials", name))
		}
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintWarn, "security events are discarded")
	} else if c.Audit.DropIfFull {
		add("audit_drop_if_full", LintInfo, "security events are dropped when the buffer is full")
	}
	if !c.Password.UpgradeOnLogin {
		add("password_upgrade_disabled", LintInfo, "hashes with old iteration counts are kept")
	}
	if c.Password.LegacySecret != "" && c.ProductionMode {
		add("legacy_secret_configured", LintInfo, "legacy digests are still accepted and migrated on login")
	}
	if c.Environment == EnvProduction && !c.ProductionMode {
		add("production_mode_off", LintHigh, "environment is production but ProductionMode is false")
	}

	return ws
}
