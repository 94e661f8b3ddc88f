package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/careauth/internal/stores"
	"github.com/MrEthical07/careauth/validation"
)

// ProfileMetrics carries metric IDs needed by the profile flows.
type ProfileMetrics struct {
	Read   int
	Update int
}

// ProfileErrors carries host-level errors used by the profile flows.
type ProfileErrors struct {
	EngineNotReady error
	UserNotFound   error
	Forbidden      error
	Validation     func(map[string][]string) error
}

// ProfileDeps captures profile read/update dependencies.
type ProfileDeps struct {
	Now   func() time.Time
	Store AccountStore

	MetricInc func(int)

	Metrics ProfileMetrics
	Errors  ProfileErrors
}

func normalizeProfileDeps(deps *ProfileDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
}

// RunProfile loads the account the token subject names.
func RunProfile(ctx context.Context, userID string, deps ProfileDeps) (*stores.AccountRecord, error) {
	normalizeProfileDeps(&deps)
	if deps.Store == nil {
		return nil, deps.Errors.EngineNotReady
	}

	record, err := loadOwnRecord(ctx, userID, deps)
	if err != nil {
		return nil, err
	}
	deps.MetricInc(deps.Metrics.Read)
	return record, nil
}

// RunUpdateProfile merges the non-empty firstName, lastName and phone values
// into the subject's account.
func RunUpdateProfile(ctx context.Context, userID string, fields map[string]any, deps ProfileDeps) (*stores.AccountRecord, error) {
	normalizeProfileDeps(&deps)
	if deps.Store == nil || deps.Errors.Validation == nil {
		return nil, deps.Errors.EngineNotReady
	}

	res := validation.ValidateSchema(fields, validation.ProfileUpdateSchema())
	if !res.IsValid {
		return nil, deps.Errors.Validation(res.Errors)
	}

	record, err := loadOwnRecord(ctx, userID, deps)
	if err != nil {
		return nil, err
	}

	if v := res.String("firstName"); v != "" {
		record.FirstName = v
	}
	if v := res.String("lastName"); v != "" {
		record.LastName = v
	}
	if v := res.String("phone"); v != "" {
		record.Phone = v
	}
	now := deps.Now().UTC()
	record.UpdatedAt = &now

	if err := deps.Store.Save(ctx, record); err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.Update)
	return record, nil
}

func loadOwnRecord(ctx context.Context, userID string, deps ProfileDeps) (*stores.AccountRecord, error) {
	if userID == "" {
		return nil, deps.Errors.UserNotFound
	}
	record, err := deps.Store.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, deps.Errors.UserNotFound
		}
		return nil, err
	}
	if record.ID != userID {
		return nil, deps.Errors.Forbidden
	}
	return record, nil
}
