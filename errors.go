package careauth

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MrEthical07/careauth/internal/stores"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrPasswordPolicy is matched by every *PasswordPolicyError.
	ErrPasswordPolicy = errors.New("password does not meet security requirements")
	// ErrAccountExists is returned when registering an email that already has an account.
	ErrAccountExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned for unknown emails, wrong passwords and malformed login input alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while an account's lockout window is open.
	ErrAccountLocked = errors.New("account is temporarily locked due to multiple failed login attempts")
	// ErrUserNotFound is returned when a token subject has no stored account.
	ErrUserNotFound = errors.New("user not found")
	// ErrForbidden is returned when the loaded account does not belong to the token subject.
	ErrForbidden = errors.New("access denied")
	// ErrUnauthorized is returned when no bearer token was presented.
	ErrUnauthorized = errors.New("no token provided")
	// ErrInvalidToken is returned for malformed, forged or expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrOAuthFailed is matched by every *OAuthError.
	ErrOAuthFailed = errors.New("oauth authentication failed")
	// ErrMalformedBody is returned when a request body is not the expected JSON.
	ErrMalformedBody = errors.New("invalid JSON in request body")
	// ErrEndpointNotFound is returned for unknown auth routes.
	ErrEndpointNotFound = errors.New("endpoint not found")
	// ErrRateLimited is returned when a per-IP request budget is spent.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrEngineNotReady is returned by an Engine that was not produced by Builder.Build.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrStoreUnavailable is returned when the account store cannot be reached.
	ErrStoreUnavailable = stores.ErrAccountStoreUnavailable
)

// ValidationError carries per-field validation messages.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(names, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// PasswordPolicyError carries the strength checker's feedback.
type PasswordPolicyError struct {
	Feedback []string
}

func (e *PasswordPolicyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPasswordPolicy, strings.Join(e.Feedback, "; "))
}

func (e *PasswordPolicyError) Is(target error) bool { return target == ErrPasswordPolicy }

// OAuthError reports a failed provider sign-in. Message is safe to return to
// clients; Err keeps the upstream detail for logs.
type OAuthError struct {
	Provider string
	Message  string
	Err      error
}

func (e *OAuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", ErrOAuthFailed, e.Provider, e.Err)
	}
	return fmt.Sprintf("%s (%s): %s", ErrOAuthFailed, e.Provider, e.Message)
}

func (e *OAuthError) Is(target error) bool { return target == ErrOAuthFailed }

func (e *OAuthError) Unwrap() error { return e.Err }
