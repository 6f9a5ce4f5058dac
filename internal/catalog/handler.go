package catalog

import (
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskmarket/internal/auth"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/resp"
	"github.com/sudo-init-do/taskmarket/internal/validate"
)

type Handler struct {
	catalog *Catalog
	agg     *Aggregator
}

func NewHandler(c *Catalog, agg *Aggregator) *Handler {
	return &Handler{catalog: c, agg: agg}
}

// POST /api/services
func (h *Handler) CreateService(c echo.Context) error {
	var req CreateServiceInput
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	svc, err := h.catalog.CreateService(c.Request().Context(), auth.ActorFrom(c), req)
	if err != nil {
		return err
	}
	return resp.Created(c, svc)
}

// GET /api/services?sort=newest|popularity|rating
func (h *Handler) ListServices(c echo.Context) error {
	out, err := h.catalog.ListServices(c.Request().Context(), model.ServiceSort(c.QueryParam("sort")))
	if err != nil {
		return err
	}
	return resp.OK(c, out)
}

// GET /api/services/:id
func (h *Handler) GetService(c echo.Context) error {
	svc, err := h.catalog.GetService(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return resp.OK(c, svc)
}

// POST /api/services/:id/bookings
func (h *Handler) CreateBooking(c echo.Context) error {
	var req CreateBookingInput
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	b, err := h.catalog.CreateBooking(c.Request().Context(), auth.ActorFrom(c), c.Param("id"), req)
	if err != nil {
		return err
	}
	return resp.Created(c, b)
}

// POST /api/bookings/:id/complete
func (h *Handler) CompleteBooking(c echo.Context) error {
	b, err := h.catalog.CompleteBooking(c.Request().Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return resp.OK(c, b)
}

// POST /api/bookings/:id/cancel
func (h *Handler) CancelBooking(c echo.Context) error {
	b, err := h.catalog.CancelBooking(c.Request().Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return resp.OK(c, b)
}

// POST /api/bookings/:id/rate
func (h *Handler) RateBooking(c echo.Context) error {
	var req RateBookingInput
	if err := validate.Bind(c, &req); err != nil {
		return err
	}
	b, err := h.catalog.RateBooking(c.Request().Context(), auth.ActorFrom(c), c.Param("id"), req)
	if err != nil {
		return err
	}
	return resp.OK(c, b)
}

// POST /api/admin/services/:id/recompute
func (h *Handler) Recompute(c echo.Context) error {
	st, err := h.agg.Recompute(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return resp.OK(c, st)
}
