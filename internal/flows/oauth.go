package flows

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/careauth/internal/audit"
	"github.com/MrEthical07/careauth/internal/stores"
	"github.com/MrEthical07/careauth/oauth"
)

// OAuthMetrics carries metric IDs needed by the OAuth flow.
type OAuthMetrics struct {
	Success int
	Failure int
	Created int
}

// OAuthErrors carries host-level errors used by the OAuth flow.
type OAuthErrors struct {
	EngineNotReady error
	Failed         func(provider string, err error) error
}

// OAuthDeps captures OAuth login dependencies.
type OAuthDeps struct {
	Now        func() time.Time
	NewUserID  func() string
	Identify   func(ctx context.Context, provider string, creds oauth.Credentials) (oauth.Identity, error)
	Store      AccountStore
	IssueToken func(*stores.AccountRecord) (string, error)

	MetricInc    func(int)
	EmitSecurity SecurityEmitter

	Metrics OAuthMetrics
	Errors  OAuthErrors
}

func normalizeOAuthDeps(deps *OAuthDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitSecurity == nil {
		deps.EmitSecurity = noopSecurity
	}
}

// RunOAuthLogin resolves the provider identity and finds or creates the
// matching local account.
func RunOAuthLogin(ctx context.Context, provider string, creds oauth.Credentials, deps OAuthDeps) (*AuthOutcome, error) {
	normalizeOAuthDeps(&deps)
	if deps.Identify == nil || deps.Store == nil || deps.NewUserID == nil ||
		deps.IssueToken == nil || deps.Errors.Failed == nil {
		return nil, deps.Errors.EngineNotReady
	}

	identity, err := deps.Identify(ctx, provider, creds)
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		stage := oauth.StageOf(err)
		event := provider + "_oauth_failed"
		if stage == oauth.StageExchange {
			event = provider + "_oauth_token_exchange_failed"
		}
		deps.EmitSecurity(ctx, event, audit.RiskMedium, "", "", func() map[string]string {
			meta := map[string]string{
				"provider": provider,
				"stage":    string(stage),
			}
			if status := oauth.StatusOf(err); status > 0 {
				meta["statusCode"] = strconv.Itoa(status)
			}
			return meta
		})
		return nil, deps.Errors.Failed(provider, err)
	}

	record, created, err := createOrGetOAuthAccount(ctx, provider, identity, deps)
	if err != nil {
		return nil, err
	}

	token, err := deps.IssueToken(record)
	if err != nil {
		return nil, err
	}

	if created {
		deps.MetricInc(deps.Metrics.Created)
	}
	deps.MetricInc(deps.Metrics.Success)
	return &AuthOutcome{Record: record, AccessToken: token, Created: created}, nil
}

// createOrGetOAuthAccount links provider to the account keyed by the
// identity's email, creating a verified account when none exists. Links are
// only ever added.
func createOrGetOAuthAccount(ctx context.Context, provider string, identity oauth.Identity, deps OAuthDeps) (*stores.AccountRecord, bool, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	now := deps.Now().UTC()

	record, err := deps.Store.GetByEmail(ctx, email)
	created := false
	switch {
	case err == nil:
		if record.OAuthProviders == nil {
			record.OAuthProviders = map[string]string{}
		}
		record.OAuthProviders[provider] = identity.ProviderID
		record.LastLogin = &now
	case isNotFound(err):
		created = true
		record = &stores.AccountRecord{
			ID:             deps.NewUserID(),
			Email:          email,
			FirstName:      identity.GivenName,
			LastName:       identity.FamilyName,
			Role:           "user",
			IsVerified:     true,
			OAuthProviders: map[string]string{provider: identity.ProviderID},
			CreatedAt:      now,
			LastLogin:      &now,
		}
	default:
		return nil, false, err
	}

	if err := deps.Store.Save(ctx, record); err != nil {
		return nil, false, err
	}
	return record, created, nil
}
