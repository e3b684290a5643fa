package server

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janpfeifer/GoShed/internal/game"
	"github.com/janpfeifer/GoShed/internal/lobby"
	"github.com/janpfeifer/GoShed/internal/room"
)

func startServer(t *testing.T, ctx context.Context, cfg Config) *ServerState {
	t.Helper()
	started := make(chan *ServerState, 1)
	go func() { _ = Run(ctx, cfg, started) }()
	return <-started
}

func TestRoomWebsocket(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s := startServer(t, ctx, DefaultConfig())
	wsURL := "ws://" + s.Address + "/ws"

	alice := dial(t, ctx, wsURL, "Alice", nil)
	defer alice.conn.CloseNow()
	alice.send(game.MsgTypeCreate, game.CreateMessage{Name: "Alice", Seats: 2})
	joined := alice.until(game.MsgTypeRoomJoined).(*game.RoomJoinedMessage)
	assert.Equal(t, 0, joined.Seat)
	code := joined.Code

	bob := dial(t, ctx, wsURL, "Bob", nil)
	defer bob.conn.CloseNow()
	bob.send(game.MsgTypeJoin, game.JoinMessage{Code: strings.ToLower(code), Name: "Bob"})
	joined = bob.until(game.MsgTypeRoomJoined).(*game.RoomJoinedMessage)
	assert.Equal(t, game.RoomJoinedMessage{Code: code, Seat: 1}, *joined)

	// The room is full, so both players are dealt in.
	inSwap := func(st *game.StateMessage) bool { return st.Phase == game.PhaseSwap }
	for _, c := range []*wsClient{alice, bob} {
		st := c.stateWhere(inSwap)
		assert.Len(t, st.MyHand, 3)
		assert.Equal(t, 3, st.MyFaceUp.Count())
		assert.Equal(t, [3]bool{true, true, true}, st.MyFaceDown)
		require.Len(t, st.Players, 2)
		assert.True(t, st.AllJoined)
	}

	alice.send(game.MsgTypeEndSwap, nil)
	bob.send(game.MsgTypeEndSwap, nil)
	inPlay := func(st *game.StateMessage) bool { return st.Phase == game.PhasePlay }
	aliceState := alice.stateWhere(inPlay)
	bobState := bob.stateWhere(inPlay)
	assert.Equal(t, aliceState.CurrentPlayer, bobState.CurrentPlayer)
	assert.Equal(t, 52-18, aliceState.DrawPileCount)

	// The seat not on turn cannot take the pile.
	waiting := bob
	if aliceState.CurrentPlayer == 1 {
		waiting = alice
	}
	waiting.send(game.MsgTypeTakePile, game.TakePileMessage{})
	assert.Equal(t, room.ErrNotYourTurn.Error(), waiting.errorMessage())
}

func TestWebsocketErrors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s := startServer(t, ctx, DefaultConfig())
	c := dial(t, ctx, "ws://"+s.Address+"/ws", "Client", nil)
	defer c.conn.CloseNow()

	c.send(game.MsgTypeStart, nil)
	assert.Equal(t, ErrNoRoom.Error(), c.errorMessage())

	c.send(game.MsgTypeJoin, game.JoinMessage{Code: "ZZZZ", Name: "Ann"})
	assert.Contains(t, c.errorMessage(), lobby.ErrRoomNotFound.Error())

	c.send(game.MsgTypeCreate, game.CreateMessage{Name: "Ann", Seats: 7})
	assert.Contains(t, c.errorMessage(), lobby.ErrInvalidOptions.Error())

	c.send(game.MsgTypeCreate, game.CreateMessage{Name: " ", Seats: 2})
	assert.Equal(t, room.ErrNameRequired.Error(), c.errorMessage())

	c.send("bogus", nil)
	assert.Contains(t, c.errorMessage(), "unknown message type")
	assert.Zero(t, s.Registry.Len())
}

func TestWebsocketRateLimit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cfg := DefaultConfig()
	cfg.MsgRate = 0.001
	cfg.MsgBurst = 1
	s := startServer(t, ctx, cfg)
	c := dial(t, ctx, "ws://"+s.Address+"/ws", "Client", nil)
	defer c.conn.CloseNow()

	c.send(game.MsgTypeStart, nil)
	c.send(game.MsgTypeStart, nil)
	assert.Equal(t, ErrNoRoom.Error(), c.errorMessage())
	assert.Equal(t, ErrRateLimited.Error(), c.errorMessage())
}

func TestReconnectOverWebsocket(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		s := NewServerState(ctx, DefaultConfig())
		listener := newPipeListener()
		srv := &http.Server{Handler: s.Handler()}
		go srv.Serve(listener)
		defer srv.Close()
		opts := listener.dialOptions()

		alice := dial(t, ctx, "http://localhost/ws", "Alice", opts)
		alice.send(game.MsgTypeCreate, game.CreateMessage{Name: "Alice", Seats: 2})
		code := alice.until(game.MsgTypeRoomJoined).(*game.RoomJoinedMessage).Code

		bob := dial(t, ctx, "http://localhost/ws", "Bob", opts)
		bob.send(game.MsgTypeJoin, game.JoinMessage{Code: code, Name: "Bob"})
		bob.until(game.MsgTypeRoomJoined)
		alice.drain()

		// Bob drops and comes back under his name before the grace period ends.
		bob.conn.CloseNow()
		synctest.Wait()
		time.Sleep(room.DefaultReconnectGrace / 2)

		bob = dial(t, ctx, "http://localhost/ws", "Bob", opts)
		bob.send(game.MsgTypeJoin, game.JoinMessage{Code: code, Name: "Bob"})
		joined := bob.until(game.MsgTypeRoomJoined).(*game.RoomJoinedMessage)
		assert.Equal(t, 1, joined.Seat)
		state := bob.stateWhere(func(*game.StateMessage) bool { return true })
		assert.Equal(t, game.PhaseSwap, state.Phase)
		assert.Len(t, state.MyHand, 3)

		time.Sleep(room.DefaultReconnectGrace)
		synctest.Wait()
		r, err := s.Registry.Lookup(code)
		require.NoError(t, err)
		assert.Equal(t, 2, r.Summary().Connected, "the grace timer was cancelled")

		alice.conn.CloseNow()
		bob.conn.CloseNow()
		cancel()
		synctest.Wait()
	})
}
