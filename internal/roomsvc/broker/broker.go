// Package broker fans room events out to connected sockets and mirrors
// room-scoped and lobby-wide events onto NATS subjects so external
// consumers (lobby displays, ops tooling) can follow game state.
package broker

import (
	"encoding/json"

	"github.com/avvvet/bingo-rooms/internal/comm"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/hub"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const (
	lobbySubject      = "bingo.lobby"
	roomSubjectPrefix = "bingo.room."
)

type Relay struct {
	hub *hub.Hub
	nc  *nats.Conn // nil when NATS is not configured
}

func NewRelay(h *hub.Hub, nc *nats.Conn) *Relay {
	return &Relay{hub: h, nc: nc}
}

func (r *Relay) ToSession(socketId string, m *comm.WSMessage) {
	r.hub.ToSession(socketId, m)
}

func (r *Relay) ToRoom(roomId string, m *comm.WSMessage) {
	r.hub.ToRoom(roomId, m)
	r.publish(roomSubjectPrefix+roomId, m)
}

func (r *Relay) ToAll(m *comm.WSMessage) {
	r.hub.ToAll(m)
	r.publish(lobbySubject, m)
}

// publish mirrors an event onto NATS, best-effort.
func (r *Relay) publish(subject string, m *comm.WSMessage) {
	if r.nc == nil {
		return
	}
	payload, err := json.Marshal(m)
	if err != nil {
		log.Errorf("unable to marshal event for subject %s: %v", subject, err)
		return
	}
	if err := r.nc.Publish(subject, payload); err != nil {
		log.Errorf("Error publishing to subject %s: %s", subject, err)
	}
}
