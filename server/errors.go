package server

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/careauth"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// statusFor maps an error returned by a handler or middleware to its HTTP
// status and client-facing body. Unknown errors become a bare 500.
func statusFor(err error) (int, errorResponse) {
	var (
		validationErr *careauth.ValidationError
		policyErr     *careauth.PasswordPolicyError
		oauthErr      *careauth.OAuthError
		httpErr       *echo.HTTPError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, errorResponse{Error: "Validation failed", Details: validationErr.Fields}
	case errors.As(err, &policyErr):
		return http.StatusBadRequest, errorResponse{Error: "Password does not meet security requirements", Details: policyErr.Feedback}
	case errors.As(err, &oauthErr):
		msg := oauthErr.Message
		if msg == "" {
			msg = "OAuth authentication failed"
		}
		return http.StatusBadRequest, errorResponse{Error: msg}
	case errors.Is(err, careauth.ErrMalformedBody):
		return http.StatusBadRequest, errorResponse{Error: "Invalid JSON in request body"}
	case errors.Is(err, careauth.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: "Invalid credentials"}
	case errors.Is(err, careauth.ErrUnauthorized):
		return http.StatusUnauthorized, errorResponse{Error: "Unauthorized"}
	case errors.Is(err, careauth.ErrInvalidToken):
		return http.StatusUnauthorized, errorResponse{Error: "Invalid token"}
	case errors.Is(err, careauth.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "Access denied"}
	case errors.Is(err, careauth.ErrUserNotFound):
		return http.StatusNotFound, errorResponse{Error: "User not found"}
	case errors.Is(err, careauth.ErrEndpointNotFound):
		return http.StatusNotFound, errorResponse{Error: "Endpoint not found"}
	case errors.Is(err, careauth.ErrAccountExists):
		return http.StatusConflict, errorResponse{Error: "User already exists"}
	case errors.Is(err, careauth.ErrAccountLocked):
		return http.StatusLocked, errorResponse{Error: "Account is temporarily locked due to multiple failed login attempts"}
	case errors.Is(err, careauth.ErrRateLimited):
		return http.StatusTooManyRequests, errorResponse{Error: "Rate limit exceeded"}
	case errors.As(err, &httpErr) && httpErr.Code < http.StatusInternalServerError:
		return httpErr.Code, errorResponse{Error: http.StatusText(httpErr.Code)}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "Internal server error"}
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.Error(err),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.String("request_id", careauth.RequestIDFromContext(c.Request().Context())),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.logger.Error("failed to send error response", zap.Error(err))
	}
}
