package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

const maxResponseBytes = 1 << 20

// base carries what every provider shares: the oauth2 client registration,
// resolved endpoints and the HTTP client used for profile calls.
type base struct {
	name      string
	display   string
	conf      *oauth2.Config
	endpoints Endpoints
	http      *http.Client
	userAgent string
}

func newBase(name, redirectURL string, pc ProviderConfig, defaults Endpoints, httpClient *http.Client) base {
	ep := pc.Endpoints
	if ep.AuthURL == "" {
		ep.AuthURL = defaults.AuthURL
	}
	if ep.TokenURL == "" {
		ep.TokenURL = defaults.TokenURL
	}
	if ep.ProfileURL == "" {
		ep.ProfileURL = defaults.ProfileURL
	}
	if ep.EmailURL == "" {
		ep.EmailURL = defaults.EmailURL
	}

	return base{
		name:    name,
		display: displayNames[name],
		conf: &oauth2.Config{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			RedirectURL:  redirectURL,
			Scopes:       pc.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   ep.AuthURL,
				TokenURL:  ep.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		endpoints: ep,
		http:      httpClient,
	}
}

func (b *base) Name() string { return b.name }

func (b *base) fail(stage Stage, kind error, status int, message string, cause error) *Error {
	return &Error{
		Provider: b.name,
		Stage:    stage,
		Status:   status,
		Message:  message,
		kind:     kind,
		cause:    cause,
	}
}

// exchange trades an authorization code for a token at the provider's token
// endpoint.
func (b *base) exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, b.fail(StageInput, ErrMissingCode, 0, "Authorization code is required", nil)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.http)
	tok, err := b.conf.Exchange(ctx, code)
	if err != nil {
		status := 0
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			status = re.Response.StatusCode
		}
		return nil, b.fail(StageExchange, ErrUpstream, status, "Failed to exchange authorization code", err)
	}
	return tok, nil
}

// profile fetches url with tok and decodes the JSON body into out. message is
// reported to clients on failure.
func (b *base) profile(ctx context.Context, tok *oauth2.Token, url string, out any, message string) error {
	status, err := b.getJSON(ctx, tok, url, out)
	if err != nil {
		return b.fail(StageProfile, ErrUpstream, status, message, err)
	}
	return nil
}

func (b *base) getJSON(ctx context.Context, tok *oauth2.Token, url string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if b.userAgent != "" {
		req.Header.Set("User-Agent", b.userAgent)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return resp.StatusCode, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return resp.StatusCode, nil
}

// identity finalizes a profile; an empty email is a failure.
func (b *base) identity(email, given, family, providerID string) (Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Identity{}, b.fail(StageEmail, ErrNoEmail, 0, "Unable to get email address from "+b.display, nil)
	}
	return Identity{
		Email:      email,
		GivenName:  given,
		FamilyName: family,
		ProviderID: providerID,
	}, nil
}

// splitName splits on single spaces: the first word, then the rest rejoined.
func splitName(full string) (string, string) {
	first, rest, _ := strings.Cut(full, " ")
	return first, rest
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
