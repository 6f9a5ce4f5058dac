package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/auth"
	"github.com/sudo-init-do/taskmarket/internal/model"
)

// AdminGuard ensures only admin users can access admin routes
func AdminGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, ok := c.Get(auth.RoleKey).(string)
		if !ok || model.Role(role) != model.RoleAdmin {
			return apperr.Forbidden("admin access only")
		}
		return next(c)
	}
}
