package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"
)

var (
	// ErrMissingCode is returned when a code-flow provider gets no authorization code.
	ErrMissingCode = errors.New("oauth: authorization code is required")
	// ErrMissingAccessToken is returned when a token-flow provider gets no token or account.
	ErrMissingAccessToken = errors.New("oauth: access token and account are required")
	// ErrNoEmail is returned when the provider profile carries no usable email.
	ErrNoEmail = errors.New("oauth: provider returned no email")
	// ErrUpstream is returned when the provider rejects a request or answers garbage.
	ErrUpstream = errors.New("oauth: upstream request failed")
	// ErrUnknownProvider is returned for provider names the registry does not serve.
	ErrUnknownProvider = errors.New("oauth: unknown provider")
)

// Provider names.
const (
	Google    = "google"
	Microsoft = "microsoft"
	GitHub    = "github"
	LinkedIn  = "linkedin"
	Gravatar  = "gravatar"
)

// Credentials is what the browser hands back after the provider consent step.
type Credentials struct {
	Code        string
	AccessToken string
	Account     map[string]any
}

// Identity is the provider-asserted profile used to find or create an account.
type Identity struct {
	Email      string
	GivenName  string
	FamilyName string
	ProviderID string
}

// Provider resolves credentials into an identity.
type Provider interface {
	Name() string
	Identify(ctx context.Context, creds Credentials) (Identity, error)
}

// Stage names the step of the provider exchange that failed.
type Stage string

const (
	StageInput    Stage = "input"
	StageExchange Stage = "token_exchange"
	StageProfile  Stage = "profile"
	StageEmail    Stage = "email"
)

// Error describes a failed identification. Message is safe to show to clients.
type Error struct {
	Provider string
	Stage    Stage
	Status   int
	Message  string

	kind  error
	cause error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("oauth %s %s (status %d): %s", e.Provider, e.Stage, e.Status, e.Message)
	}
	return fmt.Sprintf("oauth %s %s: %s", e.Provider, e.Stage, e.Message)
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// Message returns the client-safe message for err.
func Message(err error) string {
	var oe *Error
	if errors.As(err, &oe) && oe.Message != "" {
		return oe.Message
	}
	return "OAuth authentication failed"
}

// StageOf returns the failed stage, or "" when err is not an *Error.
func StageOf(err error) Stage {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Stage
	}
	return ""
}

// StatusOf returns the upstream HTTP status recorded on err, or 0.
func StatusOf(err error) int {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Status
	}
	return 0
}

// Endpoints locates a provider's token and profile APIs. Empty fields take
// the provider's public defaults.
type Endpoints struct {
	AuthURL    string
	TokenURL   string
	ProfileURL string
	EmailURL   string
}

// ProviderConfig holds one provider's client registration.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	Endpoints    Endpoints
}

// Config configures a [Registry].
type Config struct {
	RedirectURL string
	// HTTPTimeout bounds a whole Identify call. Zero leaves only the caller's
	// context in charge.
	HTTPTimeout time.Duration
	HTTPClient  *http.Client
	Providers   map[string]ProviderConfig
}

// Registry dispatches identification to the named provider.
type Registry struct {
	providers map[string]Provider
	timeout   time.Duration
}

// NewRegistry builds every supported provider from cfg.
func NewRegistry(cfg Config) *Registry {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	r := &Registry{
		providers: make(map[string]Provider, 5),
		timeout:   cfg.HTTPTimeout,
	}
	build := func(name string) base {
		return newBase(name, cfg.RedirectURL, cfg.Providers[name], defaultEndpoints[name], httpClient)
	}
	r.Register(&googleProvider{build(Google)})
	r.Register(&microsoftProvider{build(Microsoft)})
	github := build(GitHub)
	github.userAgent = githubUserAgent
	r.Register(&githubProvider{github})
	r.Register(&linkedinProvider{build(LinkedIn)})
	r.Register(&gravatarProvider{build(Gravatar)})
	return r
}

// Register adds or replaces p under p.Name().
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Names returns the served provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is served.
func (r *Registry) Has(name string) bool {
	_, ok := r.providers[name]
	return ok
}

// Identify resolves creds with the named provider.
func (r *Registry) Identify(ctx context.Context, name string, creds Credentials) (Identity, error) {
	p, ok := r.providers[name]
	if !ok {
		return Identity{}, &Error{Provider: name, Stage: StageInput, Message: "Unsupported OAuth provider", kind: ErrUnknownProvider}
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return p.Identify(ctx, creds)
}
