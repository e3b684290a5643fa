// Package room implements the state machine of one game room.
//
// Each Room is owned by a single goroutine, started with Run, which consumes a
// private event channel. Player actions, joins, disconnections and timer
// expirations are all events on that channel, so every transition runs
// serialized with respect to the others and no lock guards the game state.
package room

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"k8s.io/klog/v2"

	"github.com/janpfeifer/GoShed/internal/game"
)

// Deliverer sends a message to one connection. It must not block: messages
// to a slow or gone connection may be dropped.
type Deliverer interface {
	Deliver(connID string, msg game.WsMessage)
}

// Options configure a room.
type Options struct {
	Seats     int  // Fixed number of seats (2 to 4), or 0 for an open room started by the host.
	Public    bool // Listed in the lobby.
	TurnTimer int  // Seconds per turn, 0 disables the turn timer.

	Tick           time.Duration // Countdown granularity.
	SwapSeconds    int           // Length of the swap phase, in ticks.
	MaxTimeouts    int           // Consecutive turn timeouts before a seat is treated as gone.
	ReconnectGrace time.Duration // How long a dropped connection keeps its seat.
	BotDelay       time.Duration // Delay before a bot plays its turn.

	Rand *rand.Rand // Shuffles and tie-breaks. Seeded randomly if nil.
}

// Default values used for zero fields of Options.
const (
	DefaultTick           = time.Second
	DefaultSwapSeconds    = 40
	DefaultMaxTimeouts    = 2
	DefaultReconnectGrace = 12 * time.Second
	DefaultBotDelay       = 1500 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.Tick <= 0 {
		o.Tick = DefaultTick
	}
	if o.SwapSeconds <= 0 {
		o.SwapSeconds = DefaultSwapSeconds
	}
	if o.MaxTimeouts <= 0 {
		o.MaxTimeouts = DefaultMaxTimeouts
	}
	if o.ReconnectGrace <= 0 {
		o.ReconnectGrace = DefaultReconnectGrace
	}
	if o.BotDelay <= 0 {
		o.BotDelay = DefaultBotDelay
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return o
}

// Summary is a snapshot of a room for the lobby. It is safe to read from any goroutine.
type Summary struct {
	Code       string     `json:"code"`
	Public     bool       `json:"-"`
	Phase      game.Phase `json:"phase"`
	Seats      int        `json:"seats"` // 0 for an open room
	Seated     int        `json:"seated"`
	Connected  int        `json:"-"`
	CreatedAt  time.Time  `json:"-"`
	EmptySince time.Time  `json:"-"` // Zero while someone is connected
	Closed     bool       `json:"-"`
}

// Full reports whether no more players can sit down.
func (s Summary) Full() bool {
	if s.Seats > 0 {
		return s.Seated >= s.Seats
	}
	return s.Seated >= game.MaxSeats
}

// seat adds the connection bookkeeping to the player state.
type seat struct {
	game.Seat
	conn  string // Connection currently controlling the seat, "" while disconnected.
	grace countdown
}

// Room is one game table. All unexported state is owned by the Run goroutine.
type Room struct {
	code      string
	opts      Options
	deliverer Deliverer
	onClose   func(code string)
	createdAt time.Time

	phase     game.Phase
	seats     []*seat
	drawPile  game.Deck
	pile      []game.Card
	burned    []game.Card // Out of play until the next deal.
	current   int
	interrupt *game.InterruptWindow
	winners   []int
	departed  []int
	votes     map[int]bool

	swapTimer countdown
	turnTimer countdown
	botTimer  countdown

	emptySince time.Time
	dirty      bool // State changed without a state broadcast.
	closed     bool

	inbox   chan event
	done    chan struct{}
	summary atomic.Pointer[Summary]
}

// New creates a room in the lobby phase. onClose, if not nil, is called from
// the room's goroutine once the room has shut down.
func New(code string, opts Options, deliverer Deliverer, onClose func(code string)) *Room {
	r := &Room{
		code:      code,
		opts:      opts.withDefaults(),
		deliverer: deliverer,
		onClose:   onClose,
		createdAt: time.Now(),
		phase:     game.PhaseLobby,
		votes:     make(map[int]bool),
		inbox:     make(chan event, 256),
		done:      make(chan struct{}),
	}
	r.emptySince = r.createdAt
	r.publish()
	return r
}

// Code of the room.
func (r *Room) Code() string { return r.code }

// Summary returns the latest published snapshot of the room.
func (r *Room) Summary() Summary { return *r.summary.Load() }

// Done is closed once the room has shut down.
func (r *Room) Done() <-chan struct{} { return r.done }

type event interface{}

type joinResult struct {
	seat int
	err  error
}

type (
	joinEvent struct {
		conn, name string
		reply      chan joinResult
	}
	actionEvent struct {
		conn string
		msg  any
	}
	disconnectEvent struct{ conn string }
	closeEvent      struct{ reason string }
)

// post queues an event for the room goroutine. It returns false if the room is closed.
func (r *Room) post(ev event) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.inbox <- ev:
		return true
	case <-r.done:
		return false
	}
}

// Join seats the connection under name, or hands it back the seat it had
// under that name if the game already started. It returns the seat index.
func (r *Room) Join(ctx context.Context, conn, name string) (int, error) {
	reply := make(chan joinResult, 1)
	if !r.post(joinEvent{conn: conn, name: name, reply: reply}) {
		return -1, ErrRoomClosed
	}
	select {
	case res := <-reply:
		return res.seat, res.err
	case <-r.done:
		return -1, ErrRoomClosed
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// Submit queues an inbound action (one of the game.*Message payload pointers)
// from conn. Rejections are delivered to conn.
func (r *Room) Submit(conn string, msg any) bool {
	return r.post(actionEvent{conn: conn, msg: msg})
}

// Disconnect tells the room that conn dropped. Its seat is kept for the
// reconnect grace period.
func (r *Room) Disconnect(conn string) {
	r.post(disconnectEvent{conn: conn})
}

// Close shuts the room down after the event being handled, if any.
func (r *Room) Close(reason string) {
	r.post(closeEvent{reason: reason})
}

// Run consumes the room's events until the room closes or ctx is done.
func (r *Room) Run(ctx context.Context) {
	defer r.shutdown()
	for !r.closed {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.inbox:
			r.handle(ev)
			if r.dirty && !r.closed {
				r.broadcastState()
			}
			r.publish()
		}
	}
}

func (r *Room) handle(ev event) {
	switch ev := ev.(type) {
	case joinEvent:
		seat, err := r.join(ev.conn, ev.name)
		ev.reply <- joinResult{seat: seat, err: err}
	case actionEvent:
		r.handleAction(ev.conn, ev.msg)
	case disconnectEvent:
		r.disconnect(ev.conn)
	case timerEvent:
		r.onTimer(ev)
	case closeEvent:
		r.close(ev.reason)
	}
}

func (r *Room) handleAction(conn string, msg any) {
	idx := r.seatOf(conn)
	if idx < 0 {
		r.reject(conn, ErrNotSeated)
		return
	}
	var err error
	manual := false
	switch m := msg.(type) {
	case *game.StartMessage:
		err = r.start(idx)
	case *game.SwapMessage:
		err = r.swap(idx, m.HandIndex, m.FaceUpIndex)
	case *game.EndSwapMessage:
		err = r.endSwap(idx)
	case *game.PlayMessage:
		manual = true
		err = r.play(idx, m.Cards, m.Interrupt)
	case *game.TakePileMessage:
		manual = true
		err = r.takePile(idx, m.FaceDownSlot, m.FaceUpCards)
	case *game.FlipMessage:
		manual = true
		err = r.flip(idx, m.Slot)
	case *game.VoteRestartMessage:
		err = r.voteRestart(idx)
	case *game.LeaveMessage:
		r.leave(idx)
	default:
		err = ErrUnsupported
	}
	// Any move attempt shows the player is there, legal or not.
	if manual && idx < len(r.seats) {
		r.seats[idx].ConsecutiveTimeouts = 0
	}
	if err != nil {
		klog.V(1).Infof("room %s: seat %d: %T rejected: %v", r.code, idx, msg, err)
		r.reject(conn, err)
	}
}

// seatOf returns the index of the seat controlled by conn, or -1.
func (r *Room) seatOf(conn string) int {
	if conn == "" {
		return -1
	}
	for i, s := range r.seats {
		if s.conn == conn {
			return i
		}
	}
	return -1
}

func (r *Room) connectedCount() int {
	n := 0
	for _, s := range r.seats {
		if s.Connected {
			n++
		}
	}
	return n
}

func (r *Room) close(reason string) {
	if r.closed {
		return
	}
	klog.Infof("room %s: closing: %s", r.code, reason)
	r.broadcast(game.MsgTypeError, game.ErrorMessage{Message: fmt.Sprintf("%v: %s", ErrRoomClosed, reason)})
	r.closed = true
}

func (r *Room) shutdown() {
	r.closed = true
	r.swapTimer.stop()
	r.turnTimer.stop()
	r.botTimer.stop()
	for _, s := range r.seats {
		s.grace.stop()
	}
	close(r.done)
	r.publish()
	if r.onClose != nil {
		r.onClose(r.code)
	}
}

// publish refreshes the snapshot read by the lobby.
func (r *Room) publish() {
	connected := r.connectedCount()
	switch {
	case connected > 0:
		r.emptySince = time.Time{}
	case r.emptySince.IsZero():
		r.emptySince = time.Now()
	}
	r.summary.Store(&Summary{
		Code:       r.code,
		Public:     r.opts.Public,
		Phase:      r.phase,
		Seats:      r.opts.Seats,
		Seated:     len(r.seats),
		Connected:  connected,
		CreatedAt:  r.createdAt,
		EmptySince: r.emptySince,
		Closed:     r.closed,
	})
}
