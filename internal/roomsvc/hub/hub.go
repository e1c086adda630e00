// Package hub keeps the live socket registry and does room-scoped and
// global fan-out. Delivery is best-effort: a broken connection is dropped
// and skipped, never fatal to the broadcaster.
package hub

import (
	"sync"

	"github.com/avvvet/bingo-rooms/internal/comm"
	log "github.com/sirupsen/logrus"
)

// Conn is the subset of *websocket.Conn the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type client struct {
	conn Conn
	mu   sync.Mutex // gorilla conns allow one concurrent writer
}

func (c *client) write(m *comm.WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(m)
}

type Hub struct {
	connMap sync.Map // socketId -> *client
	roomMap sync.Map // socketId -> roomId
}

func NewHub() *Hub {
	return &Hub{}
}

func (h *Hub) StoreConnection(socketId string, conn Conn) {
	h.connMap.Store(socketId, &client{conn: conn})
}

func (h *Hub) RemoveConnection(socketId string) {
	h.connMap.Delete(socketId)
	h.roomMap.Delete(socketId)
}

func (h *Hub) JoinRoom(socketId, roomId string) {
	h.roomMap.Store(socketId, roomId)
}

func (h *Hub) LeaveRoom(socketId string) {
	h.roomMap.Delete(socketId)
}

// RoomOf returns the room a socket is currently joined to.
func (h *Hub) RoomOf(socketId string) (string, bool) {
	v, ok := h.roomMap.Load(socketId)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// ToSession delivers to a single socket.
func (h *Hub) ToSession(socketId string, m *comm.WSMessage) {
	v, ok := h.connMap.Load(socketId)
	if !ok {
		return
	}
	if err := v.(*client).write(m); err != nil {
		log.Warnf("dropping socket %s: %v", socketId, err)
		h.dropClient(socketId, v.(*client))
	}
}

// ToRoom delivers only to sockets joined to the room.
func (h *Hub) ToRoom(roomId string, m *comm.WSMessage) {
	h.roomMap.Range(func(key, value interface{}) bool {
		if value.(string) == roomId {
			h.ToSession(key.(string), m)
		}
		return true
	})
}

// ToAll delivers to every connected socket, joined to a room or not.
func (h *Hub) ToAll(m *comm.WSMessage) {
	h.connMap.Range(func(key, value interface{}) bool {
		if err := value.(*client).write(m); err != nil {
			log.Warnf("dropping socket %s: %v", key.(string), err)
			h.dropClient(key.(string), value.(*client))
		}
		return true
	})
}

func (h *Hub) dropClient(socketId string, c *client) {
	c.conn.Close()
	h.RemoveConnection(socketId)
}
