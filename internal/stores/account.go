package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/careauth/password"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix is the namespace used when none is configured.
const DefaultKeyPrefix = "user"

var (
	// ErrAccountNotFound is returned when no record exists under the key.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountStoreUnavailable wraps backend failures.
	ErrAccountStoreUnavailable = errors.New("account store unavailable")
	// ErrAccountCorrupt is returned when a stored value does not decode.
	ErrAccountCorrupt = errors.New("account record corrupt")
)

// AccountRecord is the persisted user record.
type AccountRecord struct {
	ID             string            `json:"id"`
	Email          string            `json:"email"`
	FirstName      string            `json:"firstName"`
	LastName       string            `json:"lastName"`
	Phone          string            `json:"phone,omitempty"`
	Organization   string            `json:"organization,omitempty"`
	JobTitle       string            `json:"jobTitle,omitempty"`
	Role           string            `json:"role"`
	PasswordHash   password.Stored   `json:"passwordHash,omitzero"`
	IsVerified     bool              `json:"isVerified"`
	LoginAttempts  int               `json:"loginAttempts"`
	LockedUntil    *time.Time        `json:"lockedUntil"`
	LastLogin      *time.Time        `json:"lastLogin"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      *time.Time        `json:"updatedAt,omitempty"`
	OAuthProviders map[string]string `json:"oauthProviders,omitempty"`
}

// Locked reports whether the record is locked at now.
func (r *AccountRecord) Locked(now time.Time) bool {
	return r.LockedUntil != nil && r.LockedUntil.After(now)
}

// AccountStore persists [AccountRecord] values under their email and id keys.
type AccountStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewAccountStore returns a store using prefix, or [DefaultKeyPrefix] when empty.
func NewAccountStore(redisClient redis.UniversalClient, prefix string) *AccountStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &AccountStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *AccountStore) emailKey(email string) string {
	return s.prefix + ":" + email
}

func (s *AccountStore) idKey(id string) string {
	return s.prefix + ":id:" + id
}

// GetByEmail loads the record stored under the email key.
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*AccountRecord, error) {
	return s.get(ctx, s.emailKey(email))
}

// GetByID loads the record stored under the id key.
func (s *AccountStore) GetByID(ctx context.Context, id string) (*AccountRecord, error) {
	return s.get(ctx, s.idKey(id))
}

// Exists reports whether a record is stored under the email key.
func (s *AccountStore) Exists(ctx context.Context, email string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.emailKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrAccountStoreUnavailable, err)
	}
	return n > 0, nil
}

// Save writes record under both keys in one pipeline. Records are stored
// without expiry.
func (s *AccountStore) Save(ctx context.Context, record *AccountRecord) error {
	if record == nil || record.ID == "" || record.Email == "" {
		return fmt.Errorf("%w: record requires id and email", ErrAccountCorrupt)
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccountCorrupt, err)
	}

	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.emailKey(record.Email), encoded, 0)
		pipe.Set(ctx, s.idKey(record.ID), encoded, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccountStoreUnavailable, err)
	}
	return nil
}

func (s *AccountStore) get(ctx context.Context, key string) (*AccountRecord, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrAccountStoreUnavailable, err)
	}

	var record AccountRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccountCorrupt, err)
	}
	return &record, nil
}
