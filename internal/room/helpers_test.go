package room

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/janpfeifer/GoShed/internal/game"
)

// recorder is a Deliverer keeping every message per connection.
type recorder struct {
	mu   sync.Mutex
	msgs map[string][]game.WsMessage
}

func newRecorder() *recorder { return &recorder{msgs: map[string][]game.WsMessage{}} }

func (rec *recorder) Deliver(conn string, msg game.WsMessage) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.msgs[conn] = append(rec.msgs[conn], msg)
}

func (rec *recorder) all(conn string, msgType game.MessageType) []game.WsMessage {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var out []game.WsMessage
	for _, m := range rec.msgs[conn] {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

func (rec *recorder) count(conn string, msgType game.MessageType) int {
	return len(rec.all(conn, msgType))
}

// last parses the last message of msgType delivered to conn.
func (rec *recorder) last(t *testing.T, conn string, msgType game.MessageType) any {
	t.Helper()
	msgs := rec.all(conn, msgType)
	require.NotEmpty(t, msgs, "no %s message for %s", msgType, conn)
	parsed, err := msgs[len(msgs)-1].Parse()
	require.NoError(t, err)
	return parsed
}

func (rec *recorder) lastState(t *testing.T, conn string) *game.StateMessage {
	t.Helper()
	return rec.last(t, conn, game.MsgTypeState).(*game.StateMessage)
}

func (rec *recorder) lastError(t *testing.T, conn string) string {
	t.Helper()
	return rec.last(t, conn, game.MsgTypeError).(*game.ErrorMessage).Message
}

func (rec *recorder) reset() {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.msgs = map[string][]game.WsMessage{}
}

// card parses a card such as "10♠".
func card(s string) game.Card {
	c, err := game.ParseCard(s)
	if err != nil {
		panic(err)
	}
	return c
}

func cards(ss ...string) []game.Card {
	out := make([]game.Card, len(ss))
	for i, s := range ss {
		out[i] = card(s)
	}
	return out
}

func slots(ss ...string) game.Slots {
	var out game.Slots
	for i, s := range ss {
		if s != "" {
			out.Put(i, card(s))
		}
	}
	return out
}

func conn(i int) string { return fmt.Sprintf("c%d", i) }

func testOptions(opts Options) Options {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(1, 2))
	}
	return opts
}

// newLobbyRoom returns a room in the lobby phase, not running.
func newLobbyRoom(t *testing.T, opts Options) (*Room, *recorder) {
	rec := newRecorder()
	r := New("TEST", testOptions(opts), rec, nil)
	t.Cleanup(r.shutdown)
	return r, rec
}

// newPlayRoom returns a room in the play phase with n connected seats named
// P0..Pn-1 on connections c0..cn-1. All zones are empty; tests fill in the
// cards they need. The room is not running: tests call its handlers directly.
func newPlayRoom(t *testing.T, n int, opts Options) (*Room, *recorder) {
	r, rec := newLobbyRoom(t, opts)
	for i := range n {
		s := &seat{conn: conn(i)}
		s.Index = i
		s.Name = fmt.Sprintf("P%d", i)
		s.Connected = true
		s.SwapDone = true
		r.seats = append(r.seats, s)
	}
	r.phase = game.PhasePlay
	return r, rec
}

func (r *Room) act(i int, msg any) {
	r.handleAction(conn(i), msg)
}

func playMsg(ss ...string) *game.PlayMessage {
	return &game.PlayMessage{Cards: cards(ss...)}
}

func interruptMsg(ss ...string) *game.PlayMessage {
	return &game.PlayMessage{Cards: cards(ss...), Interrupt: true}
}

// requireDeckPartition checks that the room's zones hold each of the 52 cards exactly once.
func requireDeckPartition(t *testing.T, r *Room) {
	t.Helper()
	seen := map[game.Card]int{}
	add := func(cs []game.Card) {
		for _, c := range cs {
			seen[c]++
		}
	}
	add(r.drawPile)
	add(r.pile)
	add(r.burned)
	for _, s := range r.seats {
		add(s.Hand)
		add(s.FaceUp.Cards())
		add(s.FaceDown.Cards())
	}
	require.Len(t, seen, 52)
	for c, n := range seen {
		require.Equal(t, 1, n, "card %s held %d times", c, n)
	}
}
