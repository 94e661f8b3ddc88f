package security

import "time"

type PasswordReport struct {
	Algorithm  string
	Iterations int
	SaltBytes  int
	KeyBytes   int
}

// AuditStats counts security events seen by the dispatcher so far.
type AuditStats struct {
	Delivered uint64
	Dropped   uint64
	HighRisk  uint64
}

type Report struct {
	ProductionMode        bool
	Environment           string
	SigningAlgorithm      string
	TokenTTL              time.Duration
	TokenRevocation       bool
	Password              PasswordReport
	LegacyMigrationActive bool
	LockoutActive         bool
	LockoutThreshold      int
	LockoutDuration       time.Duration
	DemoAdminEnabled      bool
	AuditActive           bool
	Audit                 AuditStats
	OAuthProviders        []string
	OAuthTimeoutBounded   bool
}

type ReportInput struct {
	ProductionMode   bool
	Environment      string
	SigningAlgorithm string
	TokenTTL         time.Duration
	Password         PasswordReport
	UpgradeOnLogin   bool
	LegacySecretSet  bool
	LockoutThreshold int
	LockoutDuration  time.Duration
	DemoAdminEnabled bool
	AuditEnabled     bool
	Audit            AuditStats
	OAuthProviders   []string
	OAuthHTTPTimeout time.Duration
}

func BuildReport(input ReportInput) Report {
	providers := make([]string, len(input.OAuthProviders))
	copy(providers, input.OAuthProviders)

	return Report{
		ProductionMode:        input.ProductionMode,
		Environment:           input.Environment,
		SigningAlgorithm:      input.SigningAlgorithm,
		TokenTTL:              input.TokenTTL,
		TokenRevocation:       false,
		Password:              input.Password,
		LegacyMigrationActive: input.LegacySecretSet,
		LockoutActive:         input.LockoutThreshold > 0 && input.LockoutDuration > 0,
		LockoutThreshold:      input.LockoutThreshold,
		LockoutDuration:       input.LockoutDuration,
		DemoAdminEnabled:      input.DemoAdminEnabled,
		AuditActive:           input.AuditEnabled,
		Audit:                 input.Audit,
		OAuthProviders:        providers,
		OAuthTimeoutBounded:   input.OAuthHTTPTimeout > 0,
	}
}
