package flows

import (
	"context"

	"github.com/MrEthical07/careauth/internal/audit"
	"github.com/MrEthical07/careauth/internal/stores"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Register RegisterDeps
	Login    LoginDeps
	Profile  ProfileDeps
	OAuth    OAuthDeps
	Logout   LogoutDeps
}

// AccountStore is the persistence surface the flows need.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*stores.AccountRecord, error)
	GetByID(ctx context.Context, id string) (*stores.AccountRecord, error)
	Exists(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, record *stores.AccountRecord) error
}

// SecurityEmitter records a security event. metadata is only evaluated when
// the event is actually delivered.
type SecurityEmitter func(ctx context.Context, event string, risk audit.Risk, userID, email string, metadata func() map[string]string)

// AuthOutcome is returned by every flow that issues a session token.
type AuthOutcome struct {
	Record      *stores.AccountRecord
	AccessToken string
	Created     bool
}

func noopMetric(int) {}

func noopSecurity(context.Context, string, audit.Risk, string, string, func() map[string]string) {}

func noopWarn(string, ...any) {}
