package oauth

import (
	"context"
	"errors"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	defaultGivenName = "User"
	githubUserAgent  = "careauth"
)

var displayNames = map[string]string{
	Google:    "Google",
	Microsoft: "Microsoft",
	GitHub:    "GitHub",
	LinkedIn:  "LinkedIn",
	Gravatar:  "Gravatar",
}

var defaultEndpoints = map[string]Endpoints{
	Google: {
		AuthURL:    endpoints.Google.AuthURL,
		TokenURL:   endpoints.Google.TokenURL,
		ProfileURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	},
	Microsoft: {
		ProfileURL: "https://graph.microsoft.com/v1.0/me",
	},
	GitHub: {
		AuthURL:    endpoints.GitHub.AuthURL,
		TokenURL:   endpoints.GitHub.TokenURL,
		ProfileURL: "https://api.github.com/user",
		EmailURL:   "https://api.github.com/user/emails",
	},
	LinkedIn: {
		AuthURL:    endpoints.LinkedIn.AuthURL,
		TokenURL:   endpoints.LinkedIn.TokenURL,
		ProfileURL: "https://api.linkedin.com/v2/userinfo",
		EmailURL:   "https://api.linkedin.com/v2/emailAddress?q=members&projection=(elements*(handle~))",
	},
	Gravatar: {
		AuthURL:    "https://public-api.wordpress.com/oauth2/authorize",
		TokenURL:   "https://public-api.wordpress.com/oauth2/token",
		ProfileURL: "https://public-api.wordpress.com/rest/v1/me",
	},
}

type googleProvider struct{ base }

func (p *googleProvider) Identify(ctx context.Context, creds Credentials) (Identity, error) {
	tok, err := p.exchange(ctx, creds.Code)
	if err != nil {
		return Identity{}, err
	}

	var u struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		Name       string `json:"name"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := p.profile(ctx, tok, p.endpoints.ProfileURL, &u, "Failed to get user information"); err != nil {
		return Identity{}, err
	}

	first, rest := splitName(u.Name)
	return p.identity(u.Email, firstNonEmpty(u.GivenName, first, defaultGivenName), firstNonEmpty(u.FamilyName, rest), u.ID)
}

// microsoftProvider trusts an access token the browser obtained through MSAL;
// there is no code exchange.
type microsoftProvider struct{ base }

func (p *microsoftProvider) Identify(ctx context.Context, creds Credentials) (Identity, error) {
	if creds.AccessToken == "" || creds.Account == nil {
		return Identity{}, p.fail(StageInput, ErrMissingAccessToken, 0, "Access token and account information are required", nil)
	}
	tok := &oauth2.Token{AccessToken: creds.AccessToken}

	var u struct {
		ID                string `json:"id"`
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
		GivenName         string `json:"givenName"`
		Surname           string `json:"surname"`
	}
	if err := p.profile(ctx, tok, p.endpoints.ProfileURL, &u, "Failed to get user information from Microsoft"); err != nil {
		return Identity{}, err
	}

	return p.identity(firstNonEmpty(u.Mail, u.UserPrincipalName), firstNonEmpty(u.GivenName, defaultGivenName), u.Surname, u.ID)
}

type githubProvider struct{ base }

func (p *githubProvider) Identify(ctx context.Context, creds Credentials) (Identity, error) {
	tok, err := p.exchange(ctx, creds.Code)
	if err != nil {
		// GitHub reports bad codes as a 200 with an error body.
		var oe *Error
		var re *oauth2.RetrieveError
		if errors.As(err, &oe) && errors.As(err, &re) && re.ErrorCode != "" {
			oe.Message = firstNonEmpty(re.ErrorDescription, "GitHub authentication failed")
		}
		return Identity{}, err
	}

	var u struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := p.profile(ctx, tok, p.endpoints.ProfileURL, &u, "Failed to get user information"); err != nil {
		return Identity{}, err
	}

	email := u.Email
	if email == "" {
		var emails []struct {
			Email   string `json:"email"`
			Primary bool   `json:"primary"`
		}
		if _, err := p.getJSON(ctx, tok, p.endpoints.EmailURL, &emails); err == nil && len(emails) > 0 {
			email = emails[0].Email
			for _, e := range emails {
				if e.Primary {
					email = e.Email
					break
				}
			}
		}
	}

	first, rest := splitName(u.Name)
	return p.identity(email, firstNonEmpty(first, u.Login, defaultGivenName), rest, strconv.FormatInt(u.ID, 10))
}

type linkedinProvider struct{ base }

func (p *linkedinProvider) Identify(ctx context.Context, creds Credentials) (Identity, error) {
	tok, err := p.exchange(ctx, creds.Code)
	if err != nil {
		return Identity{}, err
	}

	var u struct {
		Sub        string `json:"sub"`
		ID         string `json:"id"`
		Email      string `json:"email"`
		Name       string `json:"name"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := p.profile(ctx, tok, p.endpoints.ProfileURL, &u, "Failed to get user profile information"); err != nil {
		return Identity{}, err
	}

	email := u.Email
	if email == "" {
		var data struct {
			Elements []struct {
				Handle struct {
					EmailAddress string `json:"emailAddress"`
				} `json:"handle~"`
			} `json:"elements"`
		}
		if _, err := p.getJSON(ctx, tok, p.endpoints.EmailURL, &data); err == nil && len(data.Elements) > 0 {
			email = data.Elements[0].Handle.EmailAddress
		}
	}

	first, rest := splitName(u.Name)
	return p.identity(email, firstNonEmpty(u.GivenName, first, defaultGivenName), firstNonEmpty(u.FamilyName, rest), firstNonEmpty(u.Sub, u.ID))
}

// gravatarProvider signs in through WordPress.com OAuth.
type gravatarProvider struct{ base }

func (p *gravatarProvider) Identify(ctx context.Context, creds Credentials) (Identity, error) {
	tok, err := p.exchange(ctx, creds.Code)
	if err != nil {
		return Identity{}, err
	}

	var u struct {
		ID          int64  `json:"ID"`
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
		Username    string `json:"username"`
	}
	if err := p.profile(ctx, tok, p.endpoints.ProfileURL, &u, "Failed to get user information"); err != nil {
		return Identity{}, err
	}

	first, rest := splitName(u.DisplayName)
	return p.identity(u.Email, firstNonEmpty(first, u.Username, defaultGivenName), rest, strconv.FormatInt(u.ID, 10))
}
