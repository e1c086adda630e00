package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/bingo-rooms/internal/bingo"
	"github.com/avvvet/bingo-rooms/internal/comm"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/broker"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/config"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/hub"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/room"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/service"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages []*comm.WSMessage
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, v.(*comm.WSMessage))
	return nil
}

func (f *fakeConn) Close() error { return nil }

func (f *fakeConn) typed(msgType string) []*comm.WSMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*comm.WSMessage
	for _, m := range f.messages {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

type memBalances struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	trefs    map[string]bool
}

func newMemBalances() *memBalances {
	return &memBalances{balances: map[string]decimal.Decimal{}, trefs: map[string]bool{}}
}

func (m *memBalances) Get(_ context.Context, handle string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[handle], nil
}

func (m *memBalances) Credit(_ context.Context, handle string, amount decimal.Decimal, tref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[handle] = m.balances[handle].Add(amount)
	m.trefs[tref] = true
	return nil
}

func (m *memBalances) Debit(_ context.Context, handle string, amount decimal.Decimal, tref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[handle].LessThan(amount) {
		return store.ErrInsufficientBalance
	}
	m.balances[handle] = m.balances[handle].Sub(amount)
	m.trefs[tref] = true
	return nil
}

func (m *memBalances) HasTRef(_ context.Context, tref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trefs[tref], nil
}

func (m *memBalances) balance(handle string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[handle]
}

type memLedger struct {
	mu      sync.Mutex
	records []store.DepositRequest
}

func (m *memLedger) Append(_ context.Context, rec store.DepositRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memLedger) HasTRef(_ context.Context, tref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.TRef == tref {
			return true, nil
		}
	}
	return false, nil
}

type fixture struct {
	gateway  *Gateway
	hub      *hub.Hub
	balances *memBalances
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Config{
		Costs:         []int{10, 20},
		CountdownSec:  50,
		CountdownTick: 2 * time.Millisecond,
		CallInterval:  time.Millisecond,
		DeckSize:      30,
		DeckSeed:      1,
		MaxCards:      4,
		AdminHandles:  []string{"root"},
	}
	h := hub.NewHub()
	relay := broker.NewRelay(h, nil)
	manager := room.NewManager(cfg, bingo.NewDeck(cfg.DeckSize, cfg.DeckSeed), relay)
	t.Cleanup(manager.Close)

	balances := newMemBalances()
	g := NewGateway(cfg, h, relay, manager,
		service.NewBalanceService(balances),
		service.NewDepositService(&memLedger{}, balances))
	return &fixture{gateway: g, hub: h, balances: balances}
}

func (f *fixture) connect(socketId string) *fakeConn {
	conn := &fakeConn{}
	f.hub.StoreConnection(socketId, conn)
	return conn
}

func (f *fixture) dispatch(socketId, msgType string, payload interface{}) {
	m := comm.Envelope(msgType, payload, socketId)
	f.gateway.SocketMessage(socketId, m)
}

func (f *fixture) initAs(socketId, handle string) {
	f.dispatch(socketId, comm.TypeInit, comm.InitRequest{Handle: handle, Name: handle})
}

func TestActionsRequireInit(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("s1")

	f.dispatch("s1", comm.TypeJoinRoom, comm.RoomRequest{RoomId: "room-10"})

	errs := conn.typed(comm.TypeError)
	require.Len(t, errs, 1)
	var resp comm.ErrorResponse
	require.NoError(t, json.Unmarshal(errs[0].Data, &resp))
	assert.Equal(t, "not-initialized", resp.Code)
}

func TestInitRequiresHandle(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("s1")

	f.dispatch("s1", comm.TypeInit, comm.InitRequest{})
	require.Len(t, conn.typed(comm.TypeError), 1)
	assert.Empty(t, conn.typed(comm.TypeInitResponse))
}

func TestInitRepliesWithBalanceAndAdminFlag(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("s1")
	f.balances.Credit(context.Background(), "root", decimal.NewFromInt(55), "seed")

	f.initAs("s1", "root")

	inits := conn.typed(comm.TypeInitResponse)
	require.Len(t, inits, 1)
	var resp comm.InitResponse
	require.NoError(t, json.Unmarshal(inits[0].Data, &resp))
	assert.True(t, resp.Admin)
	assert.Equal(t, "55.00", resp.Balance)
}

func TestMalformedPayloadIsDropped(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("s1")
	f.initAs("s1", "alice")

	f.gateway.SocketMessage("s1", &comm.WSMessage{
		Type: comm.TypeSelectCard,
		Data: json.RawMessage(`{"card_id": "not-a-number"}`),
	})

	assert.Empty(t, conn.typed(comm.TypeSelectCardResponse))
}

func TestSelectCardFlow(t *testing.T) {
	f := newFixture(t)
	alice := f.connect("s1")
	bob := f.connect("s2")
	f.initAs("s1", "alice")
	f.initAs("s2", "bob")

	f.dispatch("s1", comm.TypeJoinRoom, comm.RoomRequest{RoomId: "room-10"})
	f.dispatch("s2", comm.TypeJoinRoom, comm.RoomRequest{RoomId: "room-10"})
	require.Len(t, alice.typed(comm.TypeRoomJoined), 1)

	f.dispatch("s1", comm.TypeSelectCard, comm.CardRequest{RoomId: "room-10", CardId: 2})

	resps := alice.typed(comm.TypeSelectCardResponse)
	require.Len(t, resps, 1)
	var resp comm.SelectCardResponse
	require.NoError(t, json.Unmarshal(resps[0].Data, &resp))
	require.True(t, resp.Ok)
	require.NotNil(t, resp.Card)
	assert.Equal(t, bingo.FreeCell, resp.Card.N[2])

	// the other room member sees the holder, not the grid; the selector
	// already has the response and gets no card-taken echo
	takens := bob.typed(comm.TypeCardTaken)
	require.Len(t, takens, 1)
	var taken comm.CardTaken
	require.NoError(t, json.Unmarshal(takens[0].Data, &taken))
	assert.Equal(t, "alice", taken.Holder)
	assert.Equal(t, 2, taken.CardId)
	assert.Empty(t, alice.typed(comm.TypeCardTaken))

	// same card for bob is rejected with a reason
	f.dispatch("s2", comm.TypeSelectCard, comm.CardRequest{RoomId: "room-10", CardId: 2})
	resps = bob.typed(comm.TypeSelectCardResponse)
	require.Len(t, resps, 1)
	resp = comm.SelectCardResponse{}
	require.NoError(t, json.Unmarshal(resps[0].Data, &resp))
	assert.False(t, resp.Ok)
	assert.Equal(t, comm.ReasonAlreadyTaken, resp.Reason)
	assert.Nil(t, resp.Card)
}

func TestStartGameInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("s1")
	f.initAs("s1", "alice")
	f.balances.Credit(context.Background(), "alice", decimal.NewFromInt(5), "seed")

	f.dispatch("s1", comm.TypeJoinRoom, comm.RoomRequest{RoomId: "room-10"})
	f.dispatch("s1", comm.TypeSelectCard, comm.CardRequest{RoomId: "room-10", CardId: 0})
	f.dispatch("s1", comm.TypeStartGame, comm.RoomRequest{RoomId: "room-10"})

	resps := conn.typed(comm.TypeStartResponse)
	require.Len(t, resps, 1)
	var resp comm.StartResponse
	require.NoError(t, json.Unmarshal(resps[0].Data, &resp))
	assert.False(t, resp.Ok)
	assert.Equal(t, comm.ReasonInsufficientBalance, resp.Reason)

	// no debit happened
	assert.Equal(t, "5", f.balances.balance("alice").String())
}

func TestStartGameDebitsAndStartsCountdown(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("s1")
	f.initAs("s1", "alice")
	f.balances.Credit(context.Background(), "alice", decimal.NewFromInt(100), "seed")

	f.dispatch("s1", comm.TypeJoinRoom, comm.RoomRequest{RoomId: "room-10"})
	f.dispatch("s1", comm.TypeSelectCard, comm.CardRequest{RoomId: "room-10", CardId: 0})
	f.dispatch("s1", comm.TypeStartGame, comm.RoomRequest{RoomId: "room-10"})

	resps := conn.typed(comm.TypeStartResponse)
	require.Len(t, resps, 1)
	var resp comm.StartResponse
	require.NoError(t, json.Unmarshal(resps[0].Data, &resp))
	assert.True(t, resp.Ok)
	assert.Equal(t, "90", f.balances.balance("alice").String())
	require.Len(t, conn.typed(comm.TypeReviewCards), 1)
}

func TestStartGameWithoutCard(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("s1")
	f.initAs("s1", "alice")

	f.dispatch("s1", comm.TypeJoinRoom, comm.RoomRequest{RoomId: "room-10"})
	f.dispatch("s1", comm.TypeStartGame, comm.RoomRequest{RoomId: "room-10"})

	resps := conn.typed(comm.TypeStartResponse)
	require.Len(t, resps, 1)
	var resp comm.StartResponse
	require.NoError(t, json.Unmarshal(resps[0].Data, &resp))
	assert.Equal(t, comm.ReasonNoCard, resp.Reason)
}

func TestClaimOnIdleRoomRejected(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("s1")
	f.initAs("s1", "alice")

	f.dispatch("s1", comm.TypeJoinRoom, comm.RoomRequest{RoomId: "room-10"})
	f.dispatch("s1", comm.TypeClaimBingo, comm.RoomRequest{RoomId: "room-10"})

	rejects := conn.typed(comm.TypeClaimRejected)
	require.Len(t, rejects, 1)
	var resp comm.ClaimRejected
	require.NoError(t, json.Unmarshal(rejects[0].Data, &resp))
	assert.Equal(t, comm.ReasonInvalidBingo, resp.Reason)
}

func TestDepositCreditsBalanceOnce(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("s1")
	f.initAs("s1", "alice")

	text := "ETB 300 transferred to Game House, transaction number TXDEP00123"
	f.dispatch("s1", comm.TypeDeposit, comm.DepositRequest{Text: text})
	f.dispatch("s1", comm.TypeDeposit, comm.DepositRequest{Text: text})

	resps := conn.typed(comm.TypeDepositResponse)
	require.Len(t, resps, 2)

	var first, second comm.DepositResponse
	require.NoError(t, json.Unmarshal(resps[0].Data, &first))
	require.NoError(t, json.Unmarshal(resps[1].Data, &second))
	assert.True(t, first.Ok)
	assert.Equal(t, "300.00", first.Amount)
	assert.False(t, second.Ok)
	assert.Equal(t, "duplicate", second.Reason)

	assert.Equal(t, "300", f.balances.balance("alice").String())
}

func TestAdminResetRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("s1")
	f.initAs("s1", "alice")

	f.dispatch("s1", comm.TypeAdminReset, comm.RoomRequest{RoomId: "room-10"})

	errs := conn.typed(comm.TypeError)
	require.Len(t, errs, 1)
	var resp comm.ErrorResponse
	require.NoError(t, json.Unmarshal(errs[0].Data, &resp))
	assert.Equal(t, "forbidden", resp.Code)
}

func TestUnknownRoomRejected(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("s1")
	f.initAs("s1", "alice")

	f.dispatch("s1", comm.TypeJoinRoom, comm.RoomRequest{RoomId: "room-999"})

	errs := conn.typed(comm.TypeError)
	require.Len(t, errs, 1)
	var resp comm.ErrorResponse
	require.NoError(t, json.Unmarshal(errs[0].Data, &resp))
	assert.Equal(t, comm.ReasonNotFound, resp.Code)
}

func TestDisconnectDetachesFromRoom(t *testing.T) {
	f := newFixture(t)
	f.connect("s1")
	f.initAs("s1", "alice")
	f.dispatch("s1", comm.TypeJoinRoom, comm.RoomRequest{RoomId: "room-10"})

	f.gateway.HandleDisconnect("s1")

	_, joined := f.hub.RoomOf("s1")
	assert.False(t, joined)

	// a fresh socket under the same handle is a clean session
	conn := f.connect("s2")
	f.dispatch("s2", comm.TypeJoinRoom, comm.RoomRequest{RoomId: "room-10"})
	require.Len(t, conn.typed(comm.TypeError), 1)
}
