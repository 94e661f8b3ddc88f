package careauth

import (
	"context"
	"maps"
	"time"

	"github.com/MrEthical07/careauth/internal"
	"github.com/MrEthical07/careauth/internal/audit"
)

const (
	EventInvalidRegistrationData = "invalid_registration_data"
	EventInvalidLoginData        = "invalid_login_data"
	EventLockedLoginAttempt      = "account_locked_login_attempt"
	EventLockedExcessiveAttempts = "account_locked_excessive_attempts"
	EventFailedLoginAttempt      = "failed_login_attempt"
	EventLogout                  = "user_logout"
	EventEndpointNotFound        = "auth_endpoint_not_found"
	EventRateLimitExceeded       = "rate_limit_exceeded"
	EventSuspiciousPath          = "suspicious_path"
	EventInvalidToken            = "invalid_token"
)

const maxUserAgentLength = 200

// EmitSecurity records a security event enriched with the client IP (hashed),
// the user agent and the request id carried by ctx. metadata is built only
// when auditing is enabled.
func (e *Engine) EmitSecurity(ctx context.Context, event string, risk RiskLevel, userID, email string, metadata func() map[string]string) {
	e.emitSecurity(ctx, event, risk, userID, email, metadata)
}

func (e *Engine) emitSecurity(
	ctx context.Context,
	event string,
	risk audit.Risk,
	userID string,
	email string,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = maps.Clone(metadataBuilder())
	}

	e.audit.Emit(ctx, audit.Event{
		Timestamp: time.Now().UTC(),
		Event:     event,
		Risk:      risk,
		UserID:    userID,
		Email:     email,
		IP:        internal.HashIdentifier(clientIPFromContext(ctx)),
		UserAgent: truncateUserAgent(userAgentFromContext(ctx)),
		RequestID: RequestIDFromContext(ctx),
		Metadata:  metadata,
	})
}

func truncateUserAgent(ua string) string {
	if len(ua) <= maxUserAgentLength {
		return ua
	}
	// Cut on a rune boundary.
	cut := maxUserAgentLength
	for cut > 0 && !isRuneStart(ua[cut]) {
		cut--
	}
	return ua[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
