package stream

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/auth"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store"
)

type Handler struct {
	hub      *Hub
	store    store.Store
	upgrader websocket.Upgrader
}

// NewHandler accepts upgrades from allowedOrigins; empty or "*" allows any
func NewHandler(hub *Hub, s store.Store, allowedOrigins []string) *Handler {
	return &Handler{
		hub:   hub,
		store: s,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// TaskEvents handles GET /api/tasks/:taskId/events: a server-push stream of
// the task's bid and payment events, open to its owner, its bidders and admins.
func (h *Handler) TaskEvents(c echo.Context) error {
	actor := auth.ActorFrom(c)
	taskID := c.Param("taskId")
	if err := h.authorize(c.Request().Context(), actor, taskID); err != nil {
		return err
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the handshake error
		return nil
	}
	cn := newConn(ws)
	h.hub.register(taskID, cn)
	go cn.writePump()
	defer func() {
		h.hub.unregister(taskID, cn)
		cn.close()
	}()

	// Read loop discards client frames; the protocol is server push only
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return nil
		}
	}
}

func (h *Handler) authorize(ctx context.Context, actor model.Actor, taskID string) error {
	return h.store.InTx(ctx, func(tx store.Tx) error {
		t, err := tx.Tasks().Find(ctx, taskID)
		if err != nil {
			return store.AppError(err, "task")
		}
		if actor.IsAdmin() || t.ClientID == actor.UserID {
			return nil
		}
		bids, err := tx.Bids().ListByTask(ctx, taskID)
		if err != nil {
			return store.AppError(err, "bid")
		}
		for _, b := range bids {
			if b.ProviderID == actor.UserID {
				return nil
			}
		}
		return apperr.Forbidden("not a participant in this task")
	})
}
