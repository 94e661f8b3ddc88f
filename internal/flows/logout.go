package flows

import (
	"context"

	"github.com/MrEthical07/careauth/internal/audit"
)

// LogoutDeps captures logout dependencies. Tokens are stateless, so logout
// only records the event.
type LogoutDeps struct {
	MetricInc    func(int)
	EmitSecurity SecurityEmitter

	LogoutMetric int
	LogoutEvent  string
}

func RunLogout(ctx context.Context, userID, email string, deps LogoutDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitSecurity == nil {
		deps.EmitSecurity = noopSecurity
	}

	deps.MetricInc(deps.LogoutMetric)
	deps.EmitSecurity(ctx, deps.LogoutEvent, audit.RiskLow, userID, email, nil)
	return nil
}
