package middleware

import (
	"github.com/MrEthical07/careauth"
	"github.com/labstack/echo/v4"
)

const claimsKey = "careauth.claims"

// ClaimsFromContext returns the claims stored by [Bearer] or [OptionalBearer].
func ClaimsFromContext(c echo.Context) (*careauth.Claims, bool) {
	claims, ok := c.Get(claimsKey).(*careauth.Claims)
	return claims, ok && claims != nil
}

// Bearer returns the engine's verification error unchanged so the echo error
// handler can map ErrUnauthorized and ErrInvalidToken to 401.
func Bearer(engine *careauth.Engine) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if engine == nil {
				return careauth.ErrUnauthorized
			}
			claims, err := engine.VerifyToken(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// OptionalBearer attaches claims when the request carries a valid token.
func OptionalBearer(engine *careauth.Engine) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if engine != nil && header != "" {
				if claims, err := engine.VerifyToken(c.Request().Context(), header); err == nil {
					c.Set(claimsKey, claims)
				}
			}
			return next(c)
		}
	}
}
