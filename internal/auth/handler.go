package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/resp"
	"github.com/sudo-init-do/taskmarket/internal/validate"
)

// Context keys written by the JWT middleware
const (
	UserIDKey = "user_id"
	RoleKey   = "role"
)

// ActorFrom returns the authenticated caller stored on the context
func ActorFrom(c echo.Context) model.Actor {
	uid, _ := c.Get(UserIDKey).(string)
	role, _ := c.Get(RoleKey).(string)
	return model.Actor{UserID: uid, Role: model.Role(role)}
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ===== Signup =====
func (h *Handler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	sess, err := h.svc.Signup(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return resp.Created(c, sess)
}

// ===== Login =====
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	sess, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return resp.OK(c, sess)
}

// Me returns the currently authenticated user's profile
func (h *Handler) Me(c echo.Context) error {
	u, err := h.svc.Me(c.Request().Context(), ActorFrom(c).UserID)
	if err != nil {
		return err
	}
	return resp.OK(c, u)
}
