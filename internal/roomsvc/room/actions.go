package room

import (
	"github.com/avvvet/bingo-rooms/internal/bingo"
	"github.com/avvvet/bingo-rooms/internal/comm"
	log "github.com/sirupsen/logrus"
)

// Join attaches a session to the room. Cards previously held under the same
// handle are restored, so a reconnecting player keeps their selection.
func (r *Room) Join(socketId, handle string) comm.RoomJoined {
	var resp comm.RoomJoined
	r.call(func() {
		r.sessions[socketId] = handle
		resp = comm.RoomJoined{
			RoomId:    r.ID,
			Cost:      r.Cost,
			Phase:     string(r.phase),
			Countdown: r.remaining,
			Called:    append([]int(nil), r.called...),
			Cards:     r.cardStatuses(),
			YourCards: r.heldBy(handle),
		}
		r.broadcastStatus()
	})
	return resp
}

// Leave detaches a session. Held cards stay assigned to the handle so a
// reconnect restores them; a room left by everyone ends its game on the
// next caller tick.
func (r *Room) Leave(socketId string) {
	r.call(func() {
		if _, ok := r.sessions[socketId]; !ok {
			return
		}
		delete(r.sessions, socketId)
		r.broadcastStatus()
	})
}

// ListCards returns the selection-phase view: card ids and holders only,
// never grid contents.
func (r *Room) ListCards() []comm.CardStatus {
	var out []comm.CardStatus
	r.call(func() { out = r.cardStatuses() })
	return out
}

// SelectCard assigns a free card to the player and returns its full grid.
// Selecting a card already held by the same player returns the grid again.
func (r *Room) SelectCard(handle string, cardId int) (*bingo.Columns, error) {
	var (
		cols *bingo.Columns
		err  error
	)
	r.call(func() {
		if r.phase == PhaseActive {
			err = ErrGameRunning
			return
		}
		card, ok := r.deck.Card(cardId)
		if !ok {
			err = ErrNotFound
			return
		}
		if holder, held := r.holders[cardId]; held {
			if holder != handle {
				err = ErrAlreadyTaken
				return
			}
			c := card.Columns()
			cols = &c
			return
		}
		if len(r.order[handle]) >= r.cfg.MaxCards {
			err = ErrLimitExceeded
			return
		}

		r.holders[cardId] = handle
		r.order[handle] = append(r.order[handle], cardId)
		c := card.Columns()
		cols = &c

		r.toOthers(handle, comm.Envelope(comm.TypeCardTaken,
			comm.CardTaken{RoomId: r.ID, CardId: cardId, Holder: handle}, ""))
		r.broadcastStatus()
	})
	return cols, err
}

// DeselectCard releases a card held by the player.
func (r *Room) DeselectCard(handle string, cardId int) error {
	var err error
	r.call(func() {
		if r.phase == PhaseActive {
			err = ErrGameRunning
			return
		}
		if r.holders[cardId] != handle {
			err = ErrNotFound
			return
		}
		delete(r.holders, cardId)
		held := r.order[handle]
		for i, id := range held {
			if id == cardId {
				r.order[handle] = append(held[:i], held[i+1:]...)
				break
			}
		}
		r.toOthers(handle, comm.Envelope(comm.TypeCardReleased,
			comm.CardReleased{RoomId: r.ID, CardId: cardId}, ""))
		r.broadcastStatus()
	})
	return err
}

// PrepareStart validates a start request before the entry fee is debited.
// needDebit is false when the player already paid for this round, making a
// repeated start a no-op instead of a double charge.
func (r *Room) PrepareStart(handle string) (needDebit bool, err error) {
	r.call(func() {
		if r.phase == PhaseActive {
			err = ErrGameRunning
			return
		}
		if len(r.order[handle]) == 0 {
			err = ErrNoCard
			return
		}
		needDebit = !r.paid[handle]
	})
	return needDebit, err
}

// CommitStart re-validates after the debit (room state may have moved while
// the store call was in flight) and marks the player paid. The first commit
// in an idle room begins the review/countdown. A non-nil error means the
// caller must refund the debit; ErrAlreadyPaid in particular covers two
// starts for the same handle racing through PrepareStart before either
// commits, where only one debit may stand.
func (r *Room) CommitStart(handle string) error {
	var err error
	r.call(func() {
		if r.phase == PhaseActive {
			err = ErrGameRunning
			return
		}
		if len(r.order[handle]) == 0 {
			err = ErrNoCard
			return
		}
		if r.paid[handle] {
			err = ErrAlreadyPaid
			return
		}
		r.paid[handle] = true
		if r.phase == PhaseIdle {
			r.beginReview()
		}
	})
	return err
}

// beginReview enters the review phase: each connected holder is pushed their
// cards with full grids, then the countdown ticker takes over.
func (r *Room) beginReview() {
	r.round++
	r.phase = PhaseReview
	r.remaining = r.cfg.CountdownSec

	for socketId, handle := range r.sessions {
		cards := r.playerCards(handle)
		if len(cards) == 0 {
			continue
		}
		r.notifier.ToSession(socketId, comm.Envelope(comm.TypeReviewCards,
			comm.ReviewCards{RoomId: r.ID, Cards: cards}, socketId))
	}

	r.startCountdown()
	r.broadcastStatus()
	log.Infof("room %s round %d: countdown started at %d", r.ID, r.round, r.remaining)
}

func (r *Room) countdownTick() {
	if r.phase == PhaseReview {
		r.phase = PhaseCountdown
	}
	r.remaining--

	r.notifier.ToRoom(r.ID, comm.Envelope(comm.TypeCountdownTick,
		comm.CountdownTick{RoomId: r.ID, Remaining: r.remaining}, ""))
	r.broadcastStatus()

	if r.remaining > 0 {
		return
	}
	r.stopCountdown()

	// holders are cleared here; only paid players carry their cards into
	// the game as the in-game snapshot.
	for handle, cards := range r.order {
		if r.paid[handle] && len(cards) > 0 {
			r.inGame[handle] = append([]int(nil), cards...)
		}
	}
	r.holders = make(map[int]string)
	r.order = make(map[string][]int)

	if len(r.inGame) == 0 {
		// nobody paid (or everyone deselected): abort instead of running
		// a zero-player game
		r.endGame(EndAborted)
		return
	}

	r.phase = PhaseActive
	r.called = nil
	perm := r.rng.Perm(bingo.MaxNumber)
	r.pool = make([]int, bingo.MaxNumber)
	for i, n := range perm {
		r.pool[i] = n + 1
	}

	for socketId, handle := range r.sessions {
		cards := r.playerCards(handle)
		if len(cards) == 0 {
			continue
		}
		r.notifier.ToSession(socketId, comm.Envelope(comm.TypeGameCards,
			comm.ReviewCards{RoomId: r.ID, Cards: cards}, socketId))
	}

	r.startCaller()
	r.broadcastStatus()
	log.Infof("room %s round %d: game active with %d players", r.ID, r.round, len(r.inGame))
}

func (r *Room) callTick() {
	if r.phase != PhaseActive {
		return
	}
	// termination checks come before the draw
	if len(r.pool) == 0 {
		r.endGame(EndExhausted)
		return
	}
	if len(r.sessions) == 0 {
		r.endGame(EndAbandoned)
		return
	}

	n := r.pool[0]
	r.pool = r.pool[1:]
	r.called = append(r.called, n)

	r.notifier.ToRoom(r.ID, comm.Envelope(comm.TypeNumberCalled, comm.NumberCalled{
		RoomId: r.ID,
		Number: n,
		Letter: bingo.Letter(n),
		Called: append([]int(nil), r.called...),
	}, ""))
	r.broadcastStatus()
}

// Claim adjudicates a bingo claim. Claims are processed strictly one at a
// time on the room goroutine; the first winning claim resets the room, so a
// later claim sees an idle room and is rejected.
func (r *Room) Claim(handle string) (comm.Winner, error) {
	var (
		win comm.Winner
		err error
	)
	r.call(func() {
		if r.phase != PhaseActive {
			err = ErrInvalidClaim
			return
		}
		for _, cardId := range r.inGame[handle] {
			card, ok := r.deck.Card(cardId)
			if !ok {
				continue
			}
			pattern, winning := bingo.WinningPattern(card, r.called)
			if !winning {
				continue
			}
			win = comm.Winner{
				RoomId:  r.ID,
				Handle:  handle,
				CardId:  cardId,
				Card:    card.Columns(),
				Pattern: pattern,
				Jackpot: r.jackpot(),
			}
			r.notifier.ToRoom(r.ID, comm.Envelope(comm.TypeWinner, win, ""))
			r.endGame(EndWinner)
			return
		}
		err = ErrInvalidClaim
	})
	return win, err
}

// CalledNumbers returns the called sequence so far, newest last.
func (r *Room) CalledNumbers() []int {
	var out []int
	r.call(func() { out = append([]int(nil), r.called...) })
	return out
}

// LastFive returns up to the five most recently called numbers.
func (r *Room) LastFive() []int {
	nums := r.CalledNumbers()
	if len(nums) > 5 {
		nums = nums[len(nums)-5:]
	}
	return nums
}

// Reset forces the room back to idle, clearing holders and called numbers.
// Admin-only; a running game is ended.
func (r *Room) Reset() {
	r.call(func() {
		r.endGame(EndReset)
	})
}

// endGame is the single terminal transition: timers stopped, holders and
// called numbers cleared, phase back to idle, room notified.
func (r *Room) endGame(reason string) {
	r.stopCaller()
	r.stopCountdown()
	r.phase = PhaseIdle
	r.remaining = 0
	r.called = nil
	r.pool = nil
	r.holders = make(map[int]string)
	r.order = make(map[string][]int)
	r.paid = make(map[string]bool)
	r.inGame = make(map[string][]int)

	r.notifier.ToRoom(r.ID, comm.Envelope(comm.TypeGameOver,
		comm.GameOver{RoomId: r.ID, Reason: reason}, ""))
	r.broadcastStatus()
	log.Infof("room %s: game ended (%s)", r.ID, reason)
}
