package flows

import (
	"context"

	"github.com/MrEthical07/careauth/internal/stores"
	"github.com/MrEthical07/careauth/oauth"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.Store != nil && s.deps.Login.IssueToken != nil
}

func (s Service) Register(ctx context.Context, fields map[string]any) (*AuthOutcome, error) {
	return RunRegister(ctx, fields, s.deps.Register)
}

func (s Service) Login(ctx context.Context, fields map[string]any) (*AuthOutcome, error) {
	return RunLogin(ctx, fields, s.deps.Login)
}

func (s Service) Profile(ctx context.Context, userID string) (*stores.AccountRecord, error) {
	return RunProfile(ctx, userID, s.deps.Profile)
}

func (s Service) UpdateProfile(ctx context.Context, userID string, fields map[string]any) (*stores.AccountRecord, error) {
	return RunUpdateProfile(ctx, userID, fields, s.deps.Profile)
}

func (s Service) OAuthLogin(ctx context.Context, provider string, creds oauth.Credentials) (*AuthOutcome, error) {
	return RunOAuthLogin(ctx, provider, creds, s.deps.OAuth)
}

func (s Service) Logout(ctx context.Context, userID, email string) error {
	return RunLogout(ctx, userID, email, s.deps.Logout)
}
