package middleware

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/auth"
)

// TokenParser validates raw bearer tokens
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// AccountChecker confirms the token's account may still act
type AccountChecker interface {
	CheckActive(ctx context.Context, userID string) error
}

// JWTMiddleware authenticates the bearer token and stores user_id and role
// on the context. Token failures are 401s rendered by the error handler.
// When accounts is set, a suspended account is refused with 403 even while
// its token is still valid.
func JWTMiddleware(tokens TokenParser, accounts AccountChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := auth.FromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return apperr.Unauthorized("%s", err.Error())
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					return apperr.Unauthorized("token has expired")
				}
				return apperr.Unauthorized("invalid token")
			}
			if accounts != nil {
				if err := accounts.CheckActive(c.Request().Context(), claims.UserID); err != nil {
					return err
				}
			}

			c.Set(auth.UserIDKey, claims.UserID)
			c.Set(auth.RoleKey, string(claims.Role))
			return next(c)
		}
	}
}
