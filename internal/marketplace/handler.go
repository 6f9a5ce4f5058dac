package marketplace

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/auth"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/resp"
	"github.com/sudo-init-do/taskmarket/internal/validate"
)

// Handler exposes the Manager over HTTP
type Handler struct {
	m *Manager
}

func NewHandler(m *Manager) *Handler {
	return &Handler{m: m}
}

// =========================
// Tasks
// =========================

// POST /api/tasks
func (h *Handler) CreateTask(c echo.Context) error {
	var req CreateTaskInput
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	t, err := h.m.CreateTask(c.Request().Context(), auth.ActorFrom(c), req)
	if err != nil {
		return err
	}
	return resp.Created(c, t)
}

// GET /api/tasks?status=&category=&client_id=&limit=&offset=
func (h *Handler) ListTasks(c echo.Context) error {
	f := model.TaskFilter{
		Status:   model.TaskStatus(c.QueryParam("status")),
		Category: c.QueryParam("category"),
		ClientID: c.QueryParam("client_id"),
	}
	var err error
	if f.Limit, err = intParam(c, "limit"); err != nil {
		return err
	}
	if f.Offset, err = intParam(c, "offset"); err != nil {
		return err
	}
	tasks, err := h.m.ListTasks(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return resp.OK(c, tasks)
}

// GET /api/tasks/:taskId
func (h *Handler) GetTask(c echo.Context) error {
	t, err := h.m.GetTask(c.Request().Context(), c.Param("taskId"))
	if err != nil {
		return err
	}
	return resp.OK(c, t)
}

// POST /api/tasks/:taskId/start
func (h *Handler) StartTask(c echo.Context) error {
	t, err := h.m.StartTask(c.Request().Context(), auth.ActorFrom(c), c.Param("taskId"))
	if err != nil {
		return err
	}
	return resp.OK(c, t)
}

// POST /api/tasks/:taskId/complete
func (h *Handler) CompleteTask(c echo.Context) error {
	t, err := h.m.CompleteTask(c.Request().Context(), auth.ActorFrom(c), c.Param("taskId"))
	if err != nil {
		return err
	}
	return resp.OK(c, t)
}

// POST /api/tasks/:taskId/cancel
func (h *Handler) CancelTask(c echo.Context) error {
	t, err := h.m.CancelTask(c.Request().Context(), auth.ActorFrom(c), c.Param("taskId"))
	if err != nil {
		return err
	}
	return resp.OK(c, t)
}

// =========================
// Bids
// =========================

// POST /api/bids
func (h *Handler) SubmitBid(c echo.Context) error {
	var req SubmitBidInput
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	b, err := h.m.SubmitBid(c.Request().Context(), auth.ActorFrom(c), req)
	if err != nil {
		return err
	}
	return resp.OK(c, b)
}

// GET /api/bids/task/:taskId
func (h *Handler) ListBids(c echo.Context) error {
	bids, err := h.m.ListBids(c.Request().Context(), c.Param("taskId"))
	if err != nil {
		return err
	}
	return resp.OK(c, bids)
}

type messageRequest struct {
	Message string `json:"message" validate:"max=2000"`
}

// Accept handles POST /api/tasks/:taskId/bids/:bidId/accept
func (h *Handler) Accept(c echo.Context) error {
	return h.respond(c, model.BidActionAccept)
}

// Reject handles POST /api/tasks/:taskId/bids/:bidId/reject
func (h *Handler) Reject(c echo.Context) error {
	return h.respond(c, model.BidActionReject)
}

func (h *Handler) respond(c echo.Context, action model.BidAction) error {
	var req messageRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.m.RespondToBid(c.Request().Context(), auth.ActorFrom(c), c.Param("taskId"), c.Param("bidId"),
		RespondInput{Action: action, Message: req.Message})
	if err != nil {
		return err
	}
	return resp.OK(c, res)
}

// PATCH /api/bids/:bidId/respond
func (h *Handler) Respond(c echo.Context) error {
	var req RespondInput
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	bid, err := h.m.findBid(ctx, c.Param("bidId"))
	if err != nil {
		return err
	}
	res, err := h.m.RespondToBid(ctx, auth.ActorFrom(c), bid.TaskID, bid.ID, req)
	if err != nil {
		return err
	}
	return resp.OK(c, res)
}

// POST /api/bids/:bidId/withdraw
func (h *Handler) WithdrawBid(c echo.Context) error {
	b, err := h.m.WithdrawBid(c.Request().Context(), auth.ActorFrom(c), c.Param("bidId"))
	if err != nil {
		return err
	}
	return resp.OK(c, b)
}

// =========================
// Reviews
// =========================

// POST /api/tasks/:taskId/reviews
func (h *Handler) CreateReview(c echo.Context) error {
	var req CreateReviewInput
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	r, err := h.m.CreateReview(c.Request().Context(), auth.ActorFrom(c), c.Param("taskId"), req)
	if err != nil {
		return err
	}
	return resp.Created(c, r)
}

// GET /api/providers/:id/reviews
func (h *Handler) ProviderReviews(c echo.Context) error {
	out, err := h.m.ListProviderReviews(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return resp.OK(c, out)
}

func intParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperr.ValidationFields(map[string]string{name: name + " must be a non-negative integer"})
	}
	return v, nil
}
