package flows

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/careauth/internal/audit"
	"github.com/MrEthical07/careauth/internal/stores"
	"github.com/MrEthical07/careauth/password"
	"github.com/MrEthical07/careauth/validation"
)

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	Success          int
	Failure          int
	Locked           int
	LockoutTriggered int
	Migrated         int
	DemoAdmin        int
}

// LoginEvents carries security event names used by the login flow.
type LoginEvents struct {
	InvalidData     string
	LockedAttempt   string
	LockedExcessive string
	FailedAttempt   string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	AccountLocked      error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	UpgradeOnLogin   bool

	Now       func() time.Time
	DemoAdmin func(email, plain string) (*stores.AccountRecord, bool)
	Store     AccountStore

	VerifyDerived func(string, password.Derived) (bool, error)
	VerifyLegacy  func(plain, digest string) bool
	NeedsUpgrade  func(password.Stored) bool
	Hash          func(string) (password.Derived, error)
	DummyHash     func()
	IssueToken    func(*stores.AccountRecord) (string, error)

	MetricInc    func(int)
	EmitSecurity SecurityEmitter
	Warn         func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

func normalizeLoginDeps(deps *LoginDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitSecurity == nil {
		deps.EmitSecurity = noopSecurity
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.DummyHash == nil {
		deps.DummyHash = func() {}
	}
	if deps.NeedsUpgrade == nil {
		deps.NeedsUpgrade = func(password.Stored) bool { return false }
	}
}

// RunLogin authenticates an email/password pair and drives the lockout state
// machine on the stored record.
//
// Unknown accounts, wrong passwords and malformed input all return
// Errors.InvalidCredentials; only a currently locked account is
// distinguishable, and it stays locked even when the password is right.
func RunLogin(ctx context.Context, fields map[string]any, deps LoginDeps) (*AuthOutcome, error) {
	normalizeLoginDeps(&deps)
	if deps.Store == nil || deps.VerifyDerived == nil || deps.VerifyLegacy == nil ||
		deps.Hash == nil || deps.IssueToken == nil {
		return nil, deps.Errors.EngineNotReady
	}

	res := validation.ValidateSchema(fields, validation.LoginSchema())
	if !res.IsValid {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitSecurity(ctx, deps.Events.InvalidData, audit.RiskMedium, "", "", func() map[string]string {
			return map[string]string{
				"fields": invalidFieldList(res.Errors),
			}
		})
		return nil, deps.Errors.InvalidCredentials
	}

	email := res.String("email")
	plain := res.String("password")

	if deps.DemoAdmin != nil {
		if demo, ok := deps.DemoAdmin(email, plain); ok {
			token, err := deps.IssueToken(demo)
			if err != nil {
				return nil, err
			}
			deps.MetricInc(deps.Metrics.DemoAdmin)
			return &AuthOutcome{Record: demo, AccessToken: token}, nil
		}
	}

	record, err := deps.Store.GetByEmail(ctx, email)
	if err != nil {
		switch {
		case isNotFound(err):
			deps.DummyHash()
			deps.MetricInc(deps.Metrics.Failure)
			return nil, deps.Errors.InvalidCredentials
		case errors.Is(err, stores.ErrAccountCorrupt):
			deps.Warn("careauth: stored account record could not be decoded")
			deps.MetricInc(deps.Metrics.Failure)
			return nil, deps.Errors.InvalidCredentials
		default:
			return nil, err
		}
	}

	now := deps.Now().UTC()

	if record.Locked(now) {
		deps.MetricInc(deps.Metrics.Locked)
		lockedUntil := record.LockedUntil.UTC().Format(time.RFC3339)
		deps.EmitSecurity(ctx, deps.Events.LockedAttempt, audit.RiskHigh, record.ID, record.Email, func() map[string]string {
			return map[string]string{
				"lockedUntil": lockedUntil,
			}
		})
		return nil, deps.Errors.AccountLocked
	}

	ok := verifyStored(plain, record, &deps)

	if !ok {
		record.LoginAttempts++
		if deps.LockoutThreshold > 0 && record.LoginAttempts >= deps.LockoutThreshold {
			until := now.Add(deps.LockoutDuration)
			record.LockedUntil = &until
			deps.MetricInc(deps.Metrics.LockoutTriggered)
			attempts := record.LoginAttempts
			deps.EmitSecurity(ctx, deps.Events.LockedExcessive, audit.RiskHigh, record.ID, record.Email, func() map[string]string {
				return map[string]string{
					"attempts": strconv.Itoa(attempts),
				}
			})
		}

		if err := deps.Store.Save(ctx, record); err != nil {
			return nil, err
		}

		attempts := record.LoginAttempts
		deps.EmitSecurity(ctx, deps.Events.FailedAttempt, audit.RiskMedium, record.ID, record.Email, func() map[string]string {
			return map[string]string{
				"attempts": strconv.Itoa(attempts),
			}
		})
		deps.MetricInc(deps.Metrics.Failure)
		return nil, deps.Errors.InvalidCredentials
	}

	if deps.UpgradeOnLogin && record.PasswordHash.Kind() == password.KindDerived && deps.NeedsUpgrade(record.PasswordHash) {
		if upgraded, err := deps.Hash(plain); err == nil {
			record.PasswordHash = password.FromDerived(upgraded)
		} else {
			deps.Warn("careauth: password hash upgrade generation failed")
		}
	}
	plain = ""

	record.LoginAttempts = 0
	record.LockedUntil = nil
	record.LastLogin = &now

	if err := deps.Store.Save(ctx, record); err != nil {
		return nil, err
	}

	token, err := deps.IssueToken(record)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.Success)
	return &AuthOutcome{Record: record, AccessToken: token}, nil
}

// verifyStored checks plain against the record's hash and, for a legacy
// digest that matches, replaces it with a derived hash in place.
func verifyStored(plain string, record *stores.AccountRecord, deps *LoginDeps) bool {
	switch record.PasswordHash.Kind() {
	case password.KindLegacy:
		digest, _ := record.PasswordHash.LegacyDigest()
		if !deps.VerifyLegacy(plain, digest) {
			return false
		}
		derived, err := deps.Hash(plain)
		if err != nil {
			deps.Warn("careauth: legacy password migration failed")
			return true
		}
		record.PasswordHash = password.FromDerived(derived)
		deps.MetricInc(deps.Metrics.Migrated)
		return true
	case password.KindDerived:
		derived, _ := record.PasswordHash.Derived()
		ok, err := deps.VerifyDerived(plain, derived)
		if err != nil {
			deps.Warn("careauth: stored password hash is malformed")
			return false
		}
		return ok
	default:
		deps.DummyHash()
		return false
	}
}
