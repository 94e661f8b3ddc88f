package careauth

import (
	"time"

	"github.com/MrEthical07/careauth/internal/stores"
	"github.com/MrEthical07/careauth/jwt"
	"github.com/MrEthical07/careauth/oauth"
)

// TokenType is the token_type reported with every issued access token.
const TokenType = "bearer"

// Claims is the verified session token payload.
type Claims = jwt.Claims

// RegisterRequest is the body of a registration.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role,omitempty"`
}

// LoginRequest is the body of a password login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate carries the editable profile fields. Empty fields are left unchanged.
type ProfileUpdate struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// OAuthCredentials is what the browser collected from a provider. Code-flow
// providers need Code; Microsoft needs AccessToken and Account.
type OAuthCredentials struct {
	Code        string         `json:"code,omitempty"`
	State       string         `json:"state,omitempty"`
	AccessToken string         `json:"accessToken,omitempty"`
	Account     map[string]any `json:"account,omitempty"`
}

// User is the client-facing view of an account. It never carries the
// password hash.
type User struct {
	ID             string            `json:"id"`
	Email          string            `json:"email"`
	FirstName      string            `json:"firstName"`
	LastName       string            `json:"lastName"`
	Phone          string            `json:"phone,omitempty"`
	Organization   string            `json:"organization,omitempty"`
	JobTitle       string            `json:"jobTitle,omitempty"`
	Role           string            `json:"role"`
	IsVerified     bool              `json:"isVerified"`
	LoginAttempts  int               `json:"loginAttempts"`
	LockedUntil    *time.Time        `json:"lockedUntil"`
	LastLogin      *time.Time        `json:"lastLogin"`
	CreatedAt      time.Time         `json:"createdAt,omitzero"`
	UpdatedAt      *time.Time        `json:"updatedAt,omitempty"`
	OAuthProviders map[string]string `json:"oauthProviders,omitempty"`
}

// AuthResult is returned by every operation that issues a session token.
type AuthResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

func (r RegisterRequest) fields() map[string]any {
	return nonEmpty(map[string]string{
		"firstName": r.FirstName,
		"lastName":  r.LastName,
		"email":     r.Email,
		"password":  r.Password,
		"role":      r.Role,
	})
}

func (r LoginRequest) fields() map[string]any {
	return nonEmpty(map[string]string{
		"email":    r.Email,
		"password": r.Password,
	})
}

func (u ProfileUpdate) fields() map[string]any {
	return nonEmpty(map[string]string{
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"phone":     u.Phone,
	})
}

func (c OAuthCredentials) toProvider() oauth.Credentials {
	return oauth.Credentials{
		Code:        c.Code,
		AccessToken: c.AccessToken,
		Account:     c.Account,
	}
}

// nonEmpty drops empty strings so they read as missing to the schema validator.
func nonEmpty(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func userFromRecord(r *stores.AccountRecord) User {
	u := User{
		ID:            r.ID,
		Email:         r.Email,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Phone:         r.Phone,
		Organization:  r.Organization,
		JobTitle:      r.JobTitle,
		Role:          r.Role,
		IsVerified:    r.IsVerified,
		LoginAttempts: r.LoginAttempts,
		LockedUntil:   r.LockedUntil,
		LastLogin:     r.LastLogin,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if len(r.OAuthProviders) > 0 {
		u.OAuthProviders = make(map[string]string, len(r.OAuthProviders))
		for k, v := range r.OAuthProviders {
			u.OAuthProviders[k] = v
		}
	}
	return u
}
