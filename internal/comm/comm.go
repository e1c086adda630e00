// Package comm defines the typed message envelopes exchanged between web
// clients and the room service. Every inbound action and outbound event on
// the socket is one of the payloads below wrapped in a WSMessage.
package comm

import (
	"encoding/json"

	"github.com/avvvet/bingo-rooms/internal/bingo"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "init", "select-card"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

// Inbound action types.
const (
	TypeInit          = "init"
	TypeJoinRoom      = "join-room"
	TypeLeaveRoom     = "leave-room"
	TypeListCards     = "list-cards"
	TypeSelectCard    = "select-card"
	TypeDeselectCard  = "deselect-card"
	TypeStartGame     = "start-game"
	TypeClaimBingo    = "claim-bingo"
	TypeCalledNumbers = "called-numbers"
	TypeLastFive      = "last-five"
	TypeGetBalance    = "get-balance"
	TypeDeposit       = "deposit"
	TypeAdminReset    = "admin-reset"
)

// Outbound event types.
const (
	TypeInitResponse       = "init-response"
	TypeBalanceResponse    = "balance-response"
	TypeRoomJoined         = "room-joined"
	TypeCardList           = "card-list"
	TypeSelectCardResponse = "select-card-response"
	TypeDeselectResponse   = "deselect-card-response"
	TypeCardTaken          = "card-taken"
	TypeCardReleased       = "card-released"
	TypeReviewCards        = "review-cards"
	TypeGameCards          = "game-cards"
	TypeStartResponse      = "start-response"
	TypeCountdownTick      = "countdown-tick"
	TypeRoomStatus         = "room-status"
	TypeNumberCalled       = "number-called"
	TypeClaimRejected      = "claim-rejected"
	TypeWinner             = "winner"
	TypeGameOver           = "game-over"
	TypeCalledNumbersResp  = "called-numbers-response"
	TypeDepositResponse    = "deposit-response"
	TypeError              = "error"
)

// Rejection reasons carried on responses.
const (
	ReasonNotFound            = "not-found"
	ReasonAlreadyTaken        = "already-taken"
	ReasonLimitExceeded       = "limit-exceeded"
	ReasonGameRunning         = "game-running"
	ReasonNoCard              = "no-card"
	ReasonInsufficientBalance = "insufficient-balance"
	ReasonInvalidBingo        = "invalid_bingo"
)

// Envelope wraps a payload into a WSMessage.
func Envelope(msgType string, payload interface{}, socketId string) *WSMessage {
	data, _ := json.Marshal(payload)
	return &WSMessage{Type: msgType, Data: data, SocketId: socketId}
}

type InitRequest struct {
	Handle string `json:"handle"`
	Name   string `json:"name"`
}

type InitResponse struct {
	Handle  string `json:"handle"`
	Admin   bool   `json:"admin"`
	Balance string `json:"balance"`
}

type RoomRequest struct {
	RoomId string `json:"room_id"`
}

type CardRequest struct {
	RoomId string `json:"room_id"`
	CardId int    `json:"card_id"`
}

type DepositRequest struct {
	Text string `json:"text"`
}

// CardStatus is the selection-phase view of one card: id and holder only,
// never the grid, so numbers stay hidden until a card is taken.
type CardStatus struct {
	CardId int    `json:"card_id"`
	Holder string `json:"holder,omitempty"`
}

type RoomJoined struct {
	RoomId    string       `json:"room_id"`
	Cost      int          `json:"cost"`
	Phase     string       `json:"phase"`
	Countdown int          `json:"countdown"`
	Called    []int        `json:"called"`
	Cards     []CardStatus `json:"cards"`
	YourCards []int        `json:"your_cards"`
}

type CardList struct {
	RoomId string       `json:"room_id"`
	Cards  []CardStatus `json:"cards"`
}

type SelectCardResponse struct {
	RoomId string         `json:"room_id"`
	CardId int            `json:"card_id"`
	Ok     bool           `json:"ok"`
	Reason string         `json:"reason,omitempty"`
	Card   *bingo.Columns `json:"card,omitempty"`
}

type CardTaken struct {
	RoomId string `json:"room_id"`
	CardId int    `json:"card_id"`
	Holder string `json:"holder"`
}

type CardReleased struct {
	RoomId string `json:"room_id"`
	CardId int    `json:"card_id"`
}

type PlayerCard struct {
	CardId int           `json:"card_id"`
	Card   bingo.Columns `json:"card"`
}

// ReviewCards carries a player's held cards with full grids, pushed when the
// room enters review and again when the game goes active.
type ReviewCards struct {
	RoomId string       `json:"room_id"`
	Cards  []PlayerCard `json:"cards"`
}

type StartResponse struct {
	RoomId string `json:"room_id"`
	Ok     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

type CountdownTick struct {
	RoomId    string `json:"room_id"`
	Remaining int    `json:"remaining"`
}

// RoomStatus is the lobby-wide summary, re-broadcast on every card-state or
// phase change and on countdown ticks.
type RoomStatus struct {
	RoomId    string `json:"room_id"`
	Cost      int    `json:"cost"`
	Phase     string `json:"phase"`
	Players   int    `json:"players"`
	Jackpot   int    `json:"jackpot"`
	Called    int    `json:"called"`
	Countdown int    `json:"countdown"`
}

type NumberCalled struct {
	RoomId string `json:"room_id"`
	Number int    `json:"number"`
	Letter string `json:"letter"`
	Called []int  `json:"called"`
}

type ClaimRejected struct {
	RoomId string `json:"room_id"`
	Reason string `json:"reason"`
}

type Winner struct {
	RoomId  string        `json:"room_id"`
	Handle  string        `json:"handle"`
	CardId  int           `json:"card_id"`
	Card    bingo.Columns `json:"card"`
	Pattern []bingo.Cell  `json:"pattern"`
	Jackpot int           `json:"jackpot"`
}

type GameOver struct {
	RoomId string `json:"room_id"`
	Reason string `json:"reason"`
}

type CalledNumbersResponse struct {
	RoomId    string   `json:"room_id"`
	Numbers   []int    `json:"numbers"`
	Formatted []string `json:"formatted"`
}

type BalanceResponse struct {
	Handle  string `json:"handle"`
	Balance string `json:"balance"`
}

type DepositResponse struct {
	Ok     bool   `json:"ok"`
	Amount string `json:"amount,omitempty"`
	TRef   string `json:"tref,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
