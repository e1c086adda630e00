package room

import (
	"fmt"

	"github.com/avvvet/bingo-rooms/internal/bingo"
	"github.com/avvvet/bingo-rooms/internal/comm"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/config"
)

// Manager owns the process-scoped set of rooms, one per configured cost
// tier. Rooms are created at startup and live for the whole process.
type Manager struct {
	rooms map[string]*Room
	order []string
}

func NewManager(cfg config.Config, deck *bingo.Deck, notifier Notifier) *Manager {
	m := &Manager{rooms: make(map[string]*Room)}
	for _, cost := range cfg.Costs {
		id := RoomId(cost)
		m.rooms[id] = New(id, cost, cfg, deck, notifier)
		m.order = append(m.order, id)
	}
	return m
}

// RoomId names the room for a cost tier.
func RoomId(cost int) string {
	return fmt.Sprintf("room-%d", cost)
}

func (m *Manager) Get(id string) (*Room, bool) {
	r, ok := m.rooms[id]
	return r, ok
}

// All returns the rooms in configuration order.
func (m *Manager) All() []*Room {
	out := make([]*Room, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rooms[id])
	}
	return out
}

// Statuses snapshots every room, used by the admin API and lobby pushes.
func (m *Manager) Statuses() []comm.RoomStatus {
	out := make([]comm.RoomStatus, 0, len(m.order))
	for _, r := range m.All() {
		out = append(out, r.Status())
	}
	return out
}

// Close stops every room goroutine.
func (m *Manager) Close() {
	for _, r := range m.rooms {
		r.Close()
	}
}
