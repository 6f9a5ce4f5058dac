package user

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskmarket/internal/auth"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/resp"
	"github.com/sudo-init-do/taskmarket/internal/store"
	"github.com/sudo-init-do/taskmarket/internal/validate"
)

// PublicProfile is what other users may see of an account
type PublicProfile struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Role      model.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
}

type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type Handler struct {
	store store.Store
}

func NewHandler(s store.Store) *Handler {
	return &Handler{store: s}
}

// GET /api/users/:id/profile
func (h *Handler) GetPublicProfile(c echo.Context) error {
	ctx := c.Request().Context()
	var u *model.User
	err := h.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.Users().Find(ctx, c.Param("id"))
		return err
	})
	if err != nil {
		return store.AppError(err, "user")
	}
	return resp.OK(c, PublicProfile{ID: u.ID, Name: u.Name, Role: u.Role, CreatedAt: u.CreatedAt})
}

// PATCH /api/users/profile
func (h *Handler) UpdateProfile(c echo.Context) error {
	var req UpdateProfileRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	u, err := updateName(c.Request().Context(), h.store, auth.ActorFrom(c).UserID, req.Name)
	if err != nil {
		return err
	}
	return resp.OK(c, u)
}

func updateName(ctx context.Context, s store.Store, userID, name string) (*model.User, error) {
	var u *model.User
	err := s.InTx(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.Users().Find(ctx, userID)
		if err != nil {
			return err
		}
		u.Name = strings.TrimSpace(name)
		return tx.Users().Update(ctx, u)
	})
	if err != nil {
		return nil, store.AppError(err, "user")
	}
	return u, nil
}
