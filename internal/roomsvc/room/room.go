// Package room implements the per-room game state machine. Each Room runs
// one goroutine that owns all of its mutable state; inbound player actions
// and timer ticks serialize through the room mailbox, so card assignment and
// claim adjudication happen without locks and without races.
package room

import (
	"errors"
	"math/rand"
	"time"

	"github.com/avvvet/bingo-rooms/internal/bingo"
	"github.com/avvvet/bingo-rooms/internal/comm"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/config"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseReview    Phase = "review"
	PhaseCountdown Phase = "countdown"
	PhaseActive    Phase = "active"
)

// Game-over reasons.
const (
	EndWinner    = "winner"
	EndExhausted = "numbers-exhausted"
	EndAbandoned = "room-empty"
	EndAborted   = "no-players"
	EndReset     = "reset"
)

var (
	ErrNotFound      = errors.New("card not found")
	ErrAlreadyTaken  = errors.New("card already taken")
	ErrLimitExceeded = errors.New("card limit reached")
	ErrGameRunning   = errors.New("game already running")
	ErrNoCard        = errors.New("no card selected")
	ErrAlreadyPaid   = errors.New("already paid for this round")
	ErrInvalidClaim  = errors.New("invalid bingo claim")
)

// Notifier delivers events to connected sockets.
type Notifier interface {
	ToSession(socketId string, m *comm.WSMessage)
	ToRoom(roomId string, m *comm.WSMessage)
	ToAll(m *comm.WSMessage)
}

// Room is one cost-tiered game instance. Created at process start, reset at
// the end of every game, never destroyed while the process lives.
type Room struct {
	ID   string
	Cost int

	cfg      config.Config
	deck     *bingo.Deck
	notifier Notifier

	mailbox chan func()
	quit    chan struct{}

	phase     Phase
	remaining int
	round     int64

	holders  map[int]string   // cardId -> holder, selection phase
	order    map[string][]int // handle -> cardIds in acquisition order
	paid     map[string]bool  // handles debited for the current round
	inGame   map[string][]int // snapshot taken when the countdown hits zero
	called   []int
	pool     []int             // undrawn numbers for the current game
	sessions map[string]string // socketId -> handle

	rng *rand.Rand

	// countdown and caller tickers are mutually exclusive: the caller only
	// starts after the countdown ticker is stopped, and vice versa.
	countdownT *time.Ticker
	countdownC <-chan time.Time
	callT      *time.Ticker
	callC      <-chan time.Time
}

func New(id string, cost int, cfg config.Config, deck *bingo.Deck, notifier Notifier) *Room {
	r := &Room{
		ID:       id,
		Cost:     cost,
		cfg:      cfg,
		deck:     deck,
		notifier: notifier,
		mailbox:  make(chan func(), 64),
		quit:     make(chan struct{}),
		phase:    PhaseIdle,
		holders:  make(map[int]string),
		order:    make(map[string][]int),
		paid:     make(map[string]bool),
		inGame:   make(map[string][]int),
		sessions: make(map[string]string),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	go r.run()
	return r
}

// run is the single thread of control for this room. Timer channels are nil
// while their timer is inactive, so the select never sees a stale tick.
func (r *Room) run() {
	for {
		select {
		case <-r.quit:
			r.stopCountdown()
			r.stopCaller()
			return
		case fn := <-r.mailbox:
			fn()
		case <-r.countdownC:
			r.countdownTick()
		case <-r.callC:
			r.callTick()
		}
	}
}

// do enqueues fn onto the room mailbox.
func (r *Room) do(fn func()) {
	select {
	case r.mailbox <- fn:
	case <-r.quit:
	}
}

// call runs fn on the room goroutine and waits for it to finish.
func (r *Room) call(fn func()) {
	done := make(chan struct{})
	r.do(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
	case <-r.quit:
	}
}

// Close stops the room goroutine. Only used on shutdown and in tests.
func (r *Room) Close() {
	close(r.quit)
}

func (r *Room) startCountdown() {
	r.countdownT = time.NewTicker(r.cfg.CountdownTick)
	r.countdownC = r.countdownT.C
}

func (r *Room) stopCountdown() {
	if r.countdownT != nil {
		r.countdownT.Stop()
		r.countdownT = nil
		r.countdownC = nil
	}
}

func (r *Room) startCaller() {
	r.callT = time.NewTicker(r.cfg.CallInterval)
	r.callC = r.callT.C
}

func (r *Room) stopCaller() {
	if r.callT != nil {
		r.callT.Stop()
		r.callT = nil
		r.callC = nil
	}
}

// participants is the number of players the jackpot is computed over: the
// paid players once a game is on, otherwise the current card holders.
func (r *Room) participants() int {
	if r.phase == PhaseActive {
		return len(r.inGame)
	}
	n := 0
	for _, cards := range r.order {
		if len(cards) > 0 {
			n++
		}
	}
	return n
}

func (r *Room) jackpot() int {
	return r.participants() * r.Cost * 9 / 10
}

func (r *Room) status() comm.RoomStatus {
	return comm.RoomStatus{
		RoomId:    r.ID,
		Cost:      r.Cost,
		Phase:     string(r.phase),
		Players:   len(r.sessions),
		Jackpot:   r.jackpot(),
		Called:    len(r.called),
		Countdown: r.remaining,
	}
}

// broadcastStatus pushes the lobby-wide room summary to every socket.
func (r *Room) broadcastStatus() {
	r.notifier.ToAll(comm.Envelope(comm.TypeRoomStatus, r.status(), ""))
}

// toOthers delivers to every session in the room except the acting player's
// own sockets, which get a direct response instead.
func (r *Room) toOthers(handle string, m *comm.WSMessage) {
	for socketId, h := range r.sessions {
		if h == handle {
			continue
		}
		r.notifier.ToSession(socketId, m)
	}
}

func (r *Room) cardStatuses() []comm.CardStatus {
	out := make([]comm.CardStatus, 0, r.deck.Len())
	for id := 0; id < r.deck.Len(); id++ {
		out = append(out, comm.CardStatus{CardId: id, Holder: r.holders[id]})
	}
	return out
}

// heldBy lists a player's cards in acquisition order; during an active game
// this is the in-game snapshot, otherwise the live selection.
func (r *Room) heldBy(handle string) []int {
	var src []int
	if r.phase == PhaseActive {
		src = r.inGame[handle]
	} else {
		src = r.order[handle]
	}
	return append([]int(nil), src...)
}

func (r *Room) playerCards(handle string) []comm.PlayerCard {
	ids := r.heldBy(handle)
	out := make([]comm.PlayerCard, 0, len(ids))
	for _, id := range ids {
		card, ok := r.deck.Card(id)
		if !ok {
			continue
		}
		out = append(out, comm.PlayerCard{CardId: id, Card: card.Columns()})
	}
	return out
}

// Status returns a point-in-time summary of the room.
func (r *Room) Status() comm.RoomStatus {
	var s comm.RoomStatus
	r.call(func() { s = r.status() })
	return s
}
