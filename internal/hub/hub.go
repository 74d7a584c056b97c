// Package hub fans scan events out to every open connection of a user.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"deepfake-guard/internal/model"
)

const EventScanCompleted = "scan-completed"

type Writer interface {
	Write(message []byte) error
	Close() error
}

type Connection struct {
	UserID string
	Writer Writer
}

// Event is the JSON envelope sent to clients.
type Event struct {
	Type string            `json:"type"`
	At   time.Time         `json:"at"`
	Scan *model.ScanResult `json:"scan,omitempty"`
}

type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*Connection]struct{}
	logger      *slog.Logger
	now         func() time.Time
}

func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		connections: make(map[string]map[*Connection]struct{}),
		logger:      logger.With("component", "hub"),
		now:         time.Now,
	}
}

func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connections[conn.UserID] == nil {
		h.connections[conn.UserID] = make(map[*Connection]struct{})
	}
	h.connections[conn.UserID][conn] = struct{}{}
}

func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.connections[conn.UserID]
	if set == nil {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.connections, conn.UserID)
	}
}

// Connections reports how many connections userID has open.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}

// ScanCompleted publishes the scan to its owner.
func (h *Hub) ScanCompleted(scan model.ScanResult) {
	h.Publish(scan.UserID, Event{Type: EventScanCompleted, At: h.now(), Scan: &scan})
}

func (h *Hub) Publish(userID string, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "type", ev.Type, "err", err)
		return
	}
	h.Broadcast(userID, data)
}

// Broadcast writes message to every connection of userID. Connections that
// fail to take the write are closed and dropped.
func (h *Hub) Broadcast(userID string, message []byte) {
	h.mu.RLock()
	set := h.connections[userID]
	conns := make([]*Connection, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	var failed []*Connection
	for _, c := range conns {
		if err := c.Writer.Write(message); err != nil {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		h.logger.Debug("dropping connection after failed write", "user_id", userID)
		_ = c.Writer.Close()
		h.Unregister(c)
	}
}
