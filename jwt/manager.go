package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the session token lifetime.
const DefaultTTL = 24 * time.Hour

const (
	bearerPrefix  = "Bearer "
	maxLeeway     = 2 * time.Minute
	maxFutureIAT  = 10 * time.Minute
	minSecretSize = 1
)

var (
	// ErrTokenMalformed is returned when the token is not three base64url segments of JSON.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenInvalid is returned for a bad signature, algorithm or claim set.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned when exp is in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrMissingBearer is returned when the Authorization header lacks the Bearer scheme.
	ErrMissingBearer = errors.New("missing bearer token")
)

// Config defines the signing secret and token lifetime.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Leeway time.Duration
}

// Payload is the identity a token is issued for.
type Payload struct {
	UserID string
	Email  string
	Role   string
}

// Claims is the verified token payload. Field order fixes the JSON key order
// of issued tokens.
type Claims struct {
	UserID    string           `json:"userId"`
	Email     string           `json:"email"`
	Role      string           `json:"role"`
	IssuedAt  *jwt.NumericDate `json:"iat,omitempty"`
	ExpiresAt *jwt.NumericDate `json:"exp,omitempty"`
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c Claims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c Claims) GetIssuer() (string, error)                   { return "", nil }
func (c Claims) GetSubject() (string, error)                  { return c.UserID, nil }
func (c Claims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

// Manager signs and verifies session tokens.
type Manager struct {
	config Config
	parser *jwt.Parser
	now    func() time.Time
}

// NewManager validates cfg and returns a Manager. A zero TTL selects [DefaultTTL].
//
// NewManager may return an error when the secret is empty or the TTL or leeway is out of range.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < minSecretSize {
		return nil, errors.New("hs256 requires a secret")
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.TTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}

	return &Manager{
		config: cfg,
		parser: jwt.NewParser(options...),
		now:    time.Now,
	}, nil
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// Generate signs a token for p with iat=now and exp=now+TTL.
func (m *Manager) Generate(p Payload) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:    p.UserID,
		Email:     p.Email,
		Role:      p.Role,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// Verify checks the signature and expiry of token and returns its claims.
//
// Errors are one of [ErrTokenMalformed], [ErrTokenInvalid] or [ErrTokenExpired]
// and never include token content.
func (m *Manager) Verify(token string) (*Claims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrTokenMalformed
	}

	claims := &Claims{}
	parsed, err := m.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenInvalid
		}
		return m.config.Secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrTokenInvalid
		}
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.IssuedAt != nil && claims.IssuedAt.After(m.now().Add(maxFutureIAT)) {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// Authenticate extracts the token from an Authorization header value and verifies it.
func (m *Manager) Authenticate(header string) (*Claims, error) {
	token, ok := BearerToken(header)
	if !ok {
		return nil, ErrMissingBearer
	}
	return m.Verify(token)
}

// BearerToken returns the token following the "Bearer " prefix.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := header[len(bearerPrefix):]
	if token == "" {
		return "", false
	}
	return token, true
}
