package server

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/MrEthical07/careauth"
	authmw "github.com/MrEthical07/careauth/middleware"
	"github.com/labstack/echo/v4"
)

type userResponse struct {
	User *careauth.User `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type oauthRequest struct {
	Code        string         `json:"code" validate:"omitempty,max=2048,printascii"`
	State       string         `json:"state" validate:"omitempty,max=1024,printascii"`
	AccessToken string         `json:"accessToken" validate:"omitempty,max=8192,printascii"`
	Account     map[string]any `json:"account"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Version:     s.config.Version,
		Environment: s.engine.Environment(),
	})
}

func (s *Server) register(c echo.Context) error {
	var req careauth.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	res, err := s.engine.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (s *Server) login(c echo.Context) error {
	var req careauth.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	res, err := s.engine.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) profile(c echo.Context) error {
	claims, _ := authmw.ClaimsFromContext(c)
	user, err := s.engine.Profile(c.Request().Context(), claims)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: user})
}

func (s *Server) updateProfile(c echo.Context) error {
	claims, _ := authmw.ClaimsFromContext(c)
	var update careauth.ProfileUpdate
	if err := bindJSON(c, &update); err != nil {
		return err
	}
	user, err := s.engine.UpdateProfile(c.Request().Context(), claims, update)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: user})
}

// logout always succeeds; tokens are discarded client-side. A valid token
// only adds the audit entry.
func (s *Server) logout(c echo.Context) error {
	if claims, ok := authmw.ClaimsFromContext(c); ok {
		if err := s.engine.Logout(c.Request().Context(), claims); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (s *Server) oauthLogin(c echo.Context) error {
	provider := c.Param("provider")
	if !slices.Contains(s.engine.OAuthProviders(), provider) {
		return s.endpointNotFound(c)
	}

	var req oauthRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := s.engine.OAuthLogin(c.Request().Context(), provider, careauth.OAuthCredentials{
		Code:        req.Code,
		State:       req.State,
		AccessToken: req.AccessToken,
		Account:     req.Account,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) endpointNotFound(c echo.Context) error {
	s.engine.EmitSecurity(c.Request().Context(), careauth.EventEndpointNotFound, careauth.RiskLow, "", "", func() map[string]string {
		return map[string]string{
			"path":   c.Request().URL.Path,
			"method": c.Request().Method,
		}
	})
	return careauth.ErrEndpointNotFound
}

func bindJSON(c echo.Context, v any) error {
	if err := c.Echo().JSONSerializer.Deserialize(c, v); err != nil {
		return fmt.Errorf("%w: %v", careauth.ErrMalformedBody, err)
	}
	return nil
}
