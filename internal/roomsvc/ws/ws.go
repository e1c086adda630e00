// Package ws is the session gateway: it binds each socket to a player
// handle and dispatches inbound action messages to the owning room.
// Malformed payloads are dropped without closing the connection.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avvvet/bingo-rooms/internal/bingo"
	"github.com/avvvet/bingo-rooms/internal/comm"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/config"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/hub"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/room"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/service"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/store"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const storeTimeout = 10 * time.Second

// Session is the transient per-connection state: a handle once the client
// has sent init, the admin flag, and the room the socket sits in.
type Session struct {
	SocketId string
	Handle   string
	Name     string
	Admin    bool
	RoomId   string
}

type Gateway struct {
	cfg      config.Config
	hub      *hub.Hub
	notifier room.Notifier
	manager  *room.Manager
	balances *service.BalanceService
	deposits *service.DepositService

	sessions sync.Map // socketId -> *Session
}

func NewGateway(cfg config.Config, h *hub.Hub, notifier room.Notifier, manager *room.Manager,
	balances *service.BalanceService, deposits *service.DepositService) *Gateway {
	return &Gateway{
		cfg:      cfg,
		hub:      h,
		notifier: notifier,
		manager:  manager,
		balances: balances,
		deposits: deposits,
	}
}

// SocketMessage dispatches one inbound message to exactly one handler.
func (g *Gateway) SocketMessage(socketId string, msg *comm.WSMessage) {
	if msg.Type == comm.TypeInit {
		g.handleInit(socketId, msg)
		return
	}

	s, ok := g.session(socketId)
	if !ok {
		g.sendError(socketId, "not-initialized", "send init first")
		return
	}

	switch msg.Type {
	case comm.TypeJoinRoom:
		g.handleJoin(s, msg)
	case comm.TypeLeaveRoom:
		g.handleLeave(s)
	case comm.TypeListCards:
		g.handleListCards(s, msg)
	case comm.TypeSelectCard:
		g.handleSelectCard(s, msg)
	case comm.TypeDeselectCard:
		g.handleDeselectCard(s, msg)
	case comm.TypeStartGame:
		g.handleStartGame(s, msg)
	case comm.TypeClaimBingo:
		g.handleClaim(s, msg)
	case comm.TypeCalledNumbers:
		g.handleCalledNumbers(s, msg, 0)
	case comm.TypeLastFive:
		g.handleCalledNumbers(s, msg, 5)
	case comm.TypeGetBalance:
		g.handleGetBalance(s)
	case comm.TypeDeposit:
		g.handleDeposit(s, msg)
	case comm.TypeAdminReset:
		g.handleAdminReset(s, msg)
	default:
		log.Warnf("unknown event received: %s", msg.Type)
	}
}

// HandleDisconnect detaches the socket from its room and forgets the session.
func (g *Gateway) HandleDisconnect(socketId string) {
	if s, ok := g.session(socketId); ok && s.RoomId != "" {
		if rm, found := g.manager.Get(s.RoomId); found {
			rm.Leave(socketId)
		}
	}
	g.sessions.Delete(socketId)
	g.hub.RemoveConnection(socketId)
}

func (g *Gateway) session(socketId string) (*Session, bool) {
	v, ok := g.sessions.Load(socketId)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

func (g *Gateway) send(socketId string, m *comm.WSMessage) {
	g.notifier.ToSession(socketId, m)
}

func (g *Gateway) sendError(socketId, code, message string) {
	g.send(socketId, comm.Envelope(comm.TypeError,
		comm.ErrorResponse{Code: code, Message: message}, socketId))
}

func (g *Gateway) handleInit(socketId string, msg *comm.WSMessage) {
	var payload comm.InitRequest
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed init payload from %s: %v", socketId, err)
		return
	}
	if payload.Handle == "" {
		g.sendError(socketId, "invalid-init", "handle is required")
		return
	}

	s := &Session{
		SocketId: socketId,
		Handle:   payload.Handle,
		Name:     payload.Name,
		Admin:    g.cfg.IsAdmin(payload.Handle),
	}
	g.sessions.Store(socketId, s)

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	balance, err := g.balances.Get(ctx, s.Handle)
	if err != nil {
		log.Errorf("Error [BalanceService.Get] %s", err)
	}

	g.send(socketId, comm.Envelope(comm.TypeInitResponse, comm.InitResponse{
		Handle:  s.Handle,
		Admin:   s.Admin,
		Balance: balance.StringFixed(2),
	}, socketId))
}

func (g *Gateway) roomFor(s *Session, roomId string) (*room.Room, bool) {
	rm, ok := g.manager.Get(roomId)
	if !ok {
		g.sendError(s.SocketId, comm.ReasonNotFound, "unknown room "+roomId)
		return nil, false
	}
	return rm, true
}

func (g *Gateway) handleJoin(s *Session, msg *comm.WSMessage) {
	var payload comm.RoomRequest
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed join-room payload: %v", err)
		return
	}
	rm, ok := g.roomFor(s, payload.RoomId)
	if !ok {
		return
	}

	// a socket sits in one room at a time
	if s.RoomId != "" && s.RoomId != rm.ID {
		if prev, found := g.manager.Get(s.RoomId); found {
			prev.Leave(s.SocketId)
		}
	}
	s.RoomId = rm.ID
	g.hub.JoinRoom(s.SocketId, rm.ID)

	resp := rm.Join(s.SocketId, s.Handle)
	g.send(s.SocketId, comm.Envelope(comm.TypeRoomJoined, resp, s.SocketId))
}

func (g *Gateway) handleLeave(s *Session) {
	if s.RoomId == "" {
		return
	}
	if rm, ok := g.manager.Get(s.RoomId); ok {
		rm.Leave(s.SocketId)
	}
	g.hub.LeaveRoom(s.SocketId)
	s.RoomId = ""
}

func (g *Gateway) handleListCards(s *Session, msg *comm.WSMessage) {
	var payload comm.RoomRequest
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed list-cards payload: %v", err)
		return
	}
	rm, ok := g.roomFor(s, payload.RoomId)
	if !ok {
		return
	}
	g.send(s.SocketId, comm.Envelope(comm.TypeCardList,
		comm.CardList{RoomId: rm.ID, Cards: rm.ListCards()}, s.SocketId))
}

func selectReason(err error) string {
	switch {
	case errors.Is(err, room.ErrNotFound):
		return comm.ReasonNotFound
	case errors.Is(err, room.ErrAlreadyTaken):
		return comm.ReasonAlreadyTaken
	case errors.Is(err, room.ErrLimitExceeded):
		return comm.ReasonLimitExceeded
	case errors.Is(err, room.ErrGameRunning):
		return comm.ReasonGameRunning
	default:
		return "failed"
	}
}

func (g *Gateway) handleSelectCard(s *Session, msg *comm.WSMessage) {
	var payload comm.CardRequest
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed select-card payload: %v", err)
		return
	}
	rm, ok := g.roomFor(s, payload.RoomId)
	if !ok {
		return
	}

	resp := comm.SelectCardResponse{RoomId: rm.ID, CardId: payload.CardId}
	cols, err := rm.SelectCard(s.Handle, payload.CardId)
	if err != nil {
		resp.Reason = selectReason(err)
	} else {
		resp.Ok = true
		resp.Card = cols
	}
	g.send(s.SocketId, comm.Envelope(comm.TypeSelectCardResponse, resp, s.SocketId))
}

func (g *Gateway) handleDeselectCard(s *Session, msg *comm.WSMessage) {
	var payload comm.CardRequest
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed deselect-card payload: %v", err)
		return
	}
	rm, ok := g.roomFor(s, payload.RoomId)
	if !ok {
		return
	}

	resp := comm.SelectCardResponse{RoomId: rm.ID, CardId: payload.CardId}
	if err := rm.DeselectCard(s.Handle, payload.CardId); err != nil {
		resp.Reason = selectReason(err)
	} else {
		resp.Ok = true
	}
	g.send(s.SocketId, comm.Envelope(comm.TypeDeselectResponse, resp, s.SocketId))
}

// handleStartGame charges the entry fee and enters the countdown. The debit
// runs outside the room goroutine, so the commit re-validates the room state
// and a failed commit refunds the charge.
func (g *Gateway) handleStartGame(s *Session, msg *comm.WSMessage) {
	var payload comm.RoomRequest
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed start-game payload: %v", err)
		return
	}
	rm, ok := g.roomFor(s, payload.RoomId)
	if !ok {
		return
	}

	reject := func(reason string) {
		g.send(s.SocketId, comm.Envelope(comm.TypeStartResponse,
			comm.StartResponse{RoomId: rm.ID, Reason: reason}, s.SocketId))
	}

	needDebit, err := rm.PrepareStart(s.Handle)
	if err != nil {
		switch {
		case errors.Is(err, room.ErrNoCard):
			reject(comm.ReasonNoCard)
		default:
			reject(comm.ReasonGameRunning)
		}
		return
	}

	if needDebit {
		tref := newTRef("start")
		amount := decimal.NewFromInt(int64(rm.Cost))

		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := g.balances.Debit(ctx, s.Handle, amount, tref); err != nil {
			if errors.Is(err, store.ErrInsufficientBalance) {
				reject(comm.ReasonInsufficientBalance)
			} else {
				log.Errorf("Error [BalanceService.Debit] %s", err)
				reject("failed")
			}
			return
		}

		if err := rm.CommitStart(s.Handle); err != nil {
			// room moved on while the debit was in flight, or a concurrent
			// start for the same handle already paid; this debit must not stand
			if cerr := g.balances.Credit(ctx, s.Handle, amount, tref+"-refund"); cerr != nil {
				log.Errorf("refund failed for %s after aborted start: %v", s.Handle, cerr)
			}
			if errors.Is(err, room.ErrAlreadyPaid) {
				g.send(s.SocketId, comm.Envelope(comm.TypeStartResponse,
					comm.StartResponse{RoomId: rm.ID, Ok: true}, s.SocketId))
				return
			}
			reject(comm.ReasonGameRunning)
			return
		}
	}

	g.send(s.SocketId, comm.Envelope(comm.TypeStartResponse,
		comm.StartResponse{RoomId: rm.ID, Ok: true}, s.SocketId))
}

func (g *Gateway) handleClaim(s *Session, msg *comm.WSMessage) {
	var payload comm.RoomRequest
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed claim-bingo payload: %v", err)
		return
	}
	rm, ok := g.roomFor(s, payload.RoomId)
	if !ok {
		return
	}

	win, err := rm.Claim(s.Handle)
	if err != nil {
		g.send(s.SocketId, comm.Envelope(comm.TypeClaimRejected,
			comm.ClaimRejected{RoomId: rm.ID, Reason: comm.ReasonInvalidBingo}, s.SocketId))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := g.balances.Credit(ctx, win.Handle, decimal.NewFromInt(int64(win.Jackpot)), newTRef("win")); err != nil {
		log.Errorf("jackpot credit failed for %s in %s: %v", win.Handle, rm.ID, err)
	}
}

func (g *Gateway) handleCalledNumbers(s *Session, msg *comm.WSMessage, limit int) {
	var payload comm.RoomRequest
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed called-numbers payload: %v", err)
		return
	}
	rm, ok := g.roomFor(s, payload.RoomId)
	if !ok {
		return
	}

	var nums []int
	if limit > 0 {
		nums = rm.LastFive()
	} else {
		nums = rm.CalledNumbers()
	}
	formatted := make([]string, 0, len(nums))
	for _, n := range nums {
		formatted = append(formatted, fmt.Sprintf("%s-%d", bingo.Letter(n), n))
	}
	g.send(s.SocketId, comm.Envelope(comm.TypeCalledNumbersResp,
		comm.CalledNumbersResponse{RoomId: rm.ID, Numbers: nums, Formatted: formatted}, s.SocketId))
}

func (g *Gateway) handleGetBalance(s *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	balance, err := g.balances.Get(ctx, s.Handle)
	if err != nil {
		log.Errorf("Error [BalanceService.Get] %s", err)
		g.sendError(s.SocketId, "failed", "balance unavailable")
		return
	}
	g.send(s.SocketId, comm.Envelope(comm.TypeBalanceResponse,
		comm.BalanceResponse{Handle: s.Handle, Balance: balance.StringFixed(2)}, s.SocketId))
}

func (g *Gateway) handleDeposit(s *Session, msg *comm.WSMessage) {
	var payload comm.DepositRequest
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed deposit payload: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	payment, err := g.deposits.Process(ctx, s.Handle, payload.Text)
	if err != nil {
		resp := comm.DepositResponse{Reason: "failed"}
		switch {
		case errors.Is(err, service.ErrUnparsablePayment):
			resp.Reason = "unparsable"
		case errors.Is(err, service.ErrDuplicateDeposit):
			resp.Reason = "duplicate"
		default:
			log.Errorf("Error [DepositService.Process] %s", err)
		}
		g.send(s.SocketId, comm.Envelope(comm.TypeDepositResponse, resp, s.SocketId))
		return
	}

	g.send(s.SocketId, comm.Envelope(comm.TypeDepositResponse, comm.DepositResponse{
		Ok:     true,
		Amount: payment.Amount.StringFixed(2),
		TRef:   payment.TransactionId,
	}, s.SocketId))
}

func (g *Gateway) handleAdminReset(s *Session, msg *comm.WSMessage) {
	if !s.Admin {
		g.sendError(s.SocketId, "forbidden", "admin only")
		return
	}
	var payload comm.RoomRequest
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed admin-reset payload: %v", err)
		return
	}
	rm, ok := g.roomFor(s, payload.RoomId)
	if !ok {
		return
	}
	rm.Reset()
	log.Infof("room %s reset by admin %s", rm.ID, s.Handle)
}

func newTRef(kind string) string {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Sprintf("%s-%d", kind, time.Now().UnixNano())
	}
	return kind + "-" + id.String()
}
