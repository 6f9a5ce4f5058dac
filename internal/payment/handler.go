package payment

import (
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskmarket/internal/auth"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/resp"
	"github.com/sudo-init-do/taskmarket/internal/validate"
)

type Handler struct {
	w *Workflow
}

func NewHandler(w *Workflow) *Handler {
	return &Handler{w: w}
}

type VerifyRequest struct {
	Action model.VerifyAction `json:"action" validate:"required,oneof=approve reject"`
}

// GET /api/payments/:id
func (h *Handler) Get(c echo.Context) error {
	p, err := h.w.Get(c.Request().Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return resp.OK(c, p)
}

// POST /api/payments/:id/proof
func (h *Handler) SubmitProof(c echo.Context) error {
	var req SubmitProofInput
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	p, err := h.w.SubmitProof(c.Request().Context(), auth.ActorFrom(c), c.Param("id"), req)
	if err != nil {
		return err
	}
	return resp.OK(c, p)
}

// GET /api/admin/payments/pending
func (h *Handler) ListPending(c echo.Context) error {
	out, err := h.w.ListPending(c.Request().Context())
	if err != nil {
		return err
	}
	return resp.OK(c, out)
}

// POST /api/admin/payments/:id/verify
func (h *Handler) Verify(c echo.Context) error {
	var req VerifyRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	p, err := h.w.Verify(c.Request().Context(), auth.ActorFrom(c).UserID, c.Param("id"), req.Action)
	if err != nil {
		return err
	}
	return resp.OK(c, p)
}
