package careauth

import (
	"github.com/MrEthical07/careauth/internal/security"
)

// SecurityReport summarizes the effective security posture of an engine.
type SecurityReport = security.Report

// AuditStatsReport holds the security event counters in a [SecurityReport].
type AuditStatsReport = security.AuditStats

// PasswordConfigReport describes the hashing parameters in a [SecurityReport].
type PasswordConfigReport = security.PasswordReport

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	stats := e.audit.Stats()

	return security.BuildReport(security.ReportInput{
		ProductionMode:   e.config.ProductionMode,
		Environment:      e.config.Environment,
		SigningAlgorithm: "HS256",
		TokenTTL:         e.jwtManager.TTL(),
		Password: security.PasswordReport{
			Algorithm:  "PBKDF2-SHA256",
			Iterations: e.hasher.Iterations(),
			SaltBytes:  e.config.Password.SaltBytes,
			KeyBytes:   e.config.Password.KeyBytes,
		},
		UpgradeOnLogin:   e.config.Password.UpgradeOnLogin,
		LegacySecretSet:  e.config.Password.LegacySecret != "",
		LockoutThreshold: e.config.Lockout.Threshold,
		LockoutDuration:  e.config.Lockout.Duration,
		DemoAdminEnabled: e.config.DemoAdmin.Enabled,
		AuditEnabled:     e.audit != nil,
		Audit: security.AuditStats{
			Delivered: stats.Delivered,
			Dropped:   stats.Dropped,
			HighRisk:  stats.HighRisk,
		},
		OAuthProviders:   e.OAuthProviders(),
		OAuthHTTPTimeout: e.config.OAuth.HTTPTimeout,
	})
}
