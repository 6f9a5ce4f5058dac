package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/auth"
	"github.com/sudo-init-do/taskmarket/internal/model"
)

// RequireRoles ensures the requester's role is one of the allowed roles.
// Usage: g.POST("/tasks", h.Create, RequireRoles(model.RoleClient))
func RequireRoles(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(auth.RoleKey).(string)
			if role == "" {
				return apperr.Forbidden("role missing")
			}

			for _, r := range roles {
				if model.Role(role) == r {
					return next(c)
				}
			}
			return apperr.Forbidden("access denied")
		}
	}
}
