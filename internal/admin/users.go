// Package admin serves the back-office endpoints: dashboard stats and
// account moderation.
package admin

import (
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskmarket/internal/auth"
	"github.com/sudo-init-do/taskmarket/internal/resp"
	"github.com/sudo-init-do/taskmarket/internal/store"
)

type Handler struct {
	store store.Store
	users *auth.Service
}

func NewHandler(s store.Store, users *auth.Service) *Handler {
	return &Handler{store: s, users: users}
}

// GET /api/admin/users
func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.users.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return resp.OK(c, users)
}

// POST /api/admin/users/:id/suspend
func (h *Handler) SuspendUser(c echo.Context) error {
	u, err := h.users.SetActive(c.Request().Context(), c.Param("id"), false)
	if err != nil {
		return err
	}
	return resp.OK(c, u)
}

// POST /api/admin/users/:id/activate
func (h *Handler) ActivateUser(c echo.Context) error {
	u, err := h.users.SetActive(c.Request().Context(), c.Param("id"), true)
	if err != nil {
		return err
	}
	return resp.OK(c, u)
}
