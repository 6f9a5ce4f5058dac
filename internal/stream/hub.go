// Package stream pushes domain events to websocket subscribers of a task.
package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sudo-init-do/taskmarket/internal/events"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 32
)

// conn queues outbound frames for writePump, the only goroutine that
// writes to ws
type conn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{ws: ws, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
}

// enqueue never blocks; false means the queue is full or the conn closed
func (c *conn) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

func (c *conn) writePump() {
	defer c.close()
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				zap.L().Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

// Hub fans events out to the connections subscribed to the event key.
// It implements events.Publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*conn]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*conn]struct{})}
}

var _ events.Publisher = (*Hub)(nil)

func (h *Hub) register(key string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[key]
	if !ok {
		set = make(map[*conn]struct{})
		h.subs[key] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(key string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[key]
	delete(set, c)
	if len(set) == 0 {
		delete(h.subs, key)
	}
}

// Subscribers returns the number of live connections on key
func (h *Hub) Subscribers(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key])
}

// Publish queues e for every subscriber of e.Key without waiting on the
// network. A subscriber whose queue is full is dropped; that is never
// reported as a publish failure.
func (h *Hub) Publish(_ context.Context, e events.Event) error {
	h.mu.RLock()
	targets := make([]*conn, 0, len(h.subs[e.Key]))
	for c := range h.subs[e.Key] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return nil
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	for _, c := range targets {
		if !c.enqueue(payload) {
			zap.L().Debug("dropping websocket subscriber", zap.String("key", e.Key))
			h.unregister(e.Key, c)
			c.close()
		}
	}
	return nil
}
