package flows

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/MrEthical07/careauth/internal/audit"
	"github.com/MrEthical07/careauth/internal/stores"
	"github.com/MrEthical07/careauth/password"
	"github.com/MrEthical07/careauth/validation"
)

// RegisterMetrics carries metric IDs needed by the register flow.
type RegisterMetrics struct {
	Success        int
	Duplicate      int
	Invalid        int
	PolicyRejected int
}

// RegisterEvents carries security event names used by the register flow.
type RegisterEvents struct {
	InvalidData string
}

// RegisterErrors carries host-level errors used by the register flow.
type RegisterErrors struct {
	EngineNotReady error
	AccountExists  error
	Validation     func(map[string][]string) error
	PasswordPolicy func([]string) error
}

// RegisterDeps captures register dependencies.
type RegisterDeps struct {
	DefaultRole string

	Now        func() time.Time
	NewUserID  func() string
	Hash       func(string) (password.Derived, error)
	Store      AccountStore
	IssueToken func(*stores.AccountRecord) (string, error)

	MetricInc    func(int)
	EmitSecurity SecurityEmitter

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

func normalizeRegisterDeps(deps *RegisterDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitSecurity == nil {
		deps.EmitSecurity = noopSecurity
	}
	if deps.DefaultRole == "" {
		deps.DefaultRole = "user"
	}
}

// RunRegister validates fields, enforces the password policy and creates a
// new account keyed by email.
func RunRegister(ctx context.Context, fields map[string]any, deps RegisterDeps) (*AuthOutcome, error) {
	normalizeRegisterDeps(&deps)
	if deps.Store == nil || deps.Hash == nil || deps.NewUserID == nil || deps.IssueToken == nil ||
		deps.Errors.Validation == nil || deps.Errors.PasswordPolicy == nil {
		return nil, deps.Errors.EngineNotReady
	}

	res := validation.ValidateSchema(fields, validation.RegistrationSchema())
	if !res.IsValid {
		deps.MetricInc(deps.Metrics.Invalid)
		deps.EmitSecurity(ctx, deps.Events.InvalidData, audit.RiskMedium, "", "", func() map[string]string {
			return map[string]string{
				"fields": invalidFieldList(res.Errors),
			}
		})
		return nil, deps.Errors.Validation(res.Errors)
	}

	email := res.String("email")
	plain := res.String("password")
	role := res.String("role")
	if role == "" {
		role = deps.DefaultRole
	}

	strength := password.CheckStrength(plain)
	if !strength.IsValid {
		deps.MetricInc(deps.Metrics.PolicyRejected)
		return nil, deps.Errors.PasswordPolicy(strength.Feedback)
	}

	exists, err := deps.Store.Exists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		deps.MetricInc(deps.Metrics.Duplicate)
		return nil, deps.Errors.AccountExists
	}

	derived, err := deps.Hash(plain)
	plain = ""
	if err != nil {
		return nil, err
	}

	record := &stores.AccountRecord{
		ID:           deps.NewUserID(),
		Email:        email,
		FirstName:    res.String("firstName"),
		LastName:     res.String("lastName"),
		Role:         role,
		PasswordHash: password.FromDerived(derived),
		IsVerified:   false,
		CreatedAt:    deps.Now().UTC(),
	}

	if err := deps.Store.Save(ctx, record); err != nil {
		return nil, err
	}

	token, err := deps.IssueToken(record)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.Success)
	return &AuthOutcome{Record: record, AccessToken: token, Created: true}, nil
}

func invalidFieldList(errs map[string][]string) string {
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func isNotFound(err error) bool {
	return errors.Is(err, stores.ErrAccountNotFound)
}
