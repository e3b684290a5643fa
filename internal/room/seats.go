package room

import (
	"slices"
	"strings"

	"k8s.io/klog/v2"

	"github.com/janpfeifer/GoShed/internal/game"
)

func (r *Room) capacity() int {
	if r.opts.Seats > 0 {
		return r.opts.Seats
	}
	return game.MaxSeats
}

// join seats conn, or resumes the seat that had the same name.
func (r *Room) join(conn, name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1, ErrNameRequired
	}
	if idx := r.seatOf(conn); idx >= 0 {
		return idx, nil
	}

	// A returning player takes back the seat left without a connection under its name.
	for i, s := range r.seats {
		if s.Name != name {
			continue
		}
		if s.conn != "" {
			return -1, ErrNameTaken
		}
		r.resume(i, conn)
		return i, nil
	}
	if r.phase != game.PhaseLobby {
		return -1, ErrGameStarted
	}
	if len(r.seats) >= r.capacity() {
		return -1, ErrRoomFull
	}

	idx := len(r.seats)
	s := &seat{conn: conn}
	s.Index = idx
	s.Name = name
	s.Connected = true
	r.seats = append(r.seats, s)
	klog.Infof("room %s: %s joined seat %d", r.code, name, idx)
	r.send(conn, game.MsgTypeRoomJoined, game.RoomJoinedMessage{Code: r.code, Seat: idx})
	r.broadcastState()

	if r.opts.Seats > 0 && len(r.seats) == r.opts.Seats {
		r.startSwap()
	} else if r.opts.Seats > 0 {
		r.toast("Waiting for %d more players...", r.opts.Seats-len(r.seats))
	}
	return idx, nil
}

// resume hands seat idx to conn. The game state is not altered.
func (r *Room) resume(idx int, conn string) {
	s := r.seats[idx]
	s.grace.stop()
	s.conn = conn
	s.Connected = true
	s.ConsecutiveTimeouts = 0
	wasBot := s.Bot
	s.Bot = false
	r.departed = slices.DeleteFunc(r.departed, func(i int) bool { return i == idx })
	if wasBot && r.botTimer.seat == idx {
		r.botTimer.stop()
	}
	klog.Infof("room %s: %s is back on seat %d", r.code, s.Name, idx)
	r.send(conn, game.MsgTypeRoomJoined, game.RoomJoinedMessage{Code: r.code, Seat: idx})
	r.toast("✅ %s is back", s.Name)
	r.broadcastState()
	if r.phase == game.PhasePlay && r.current == idx && r.turnTimer.active() {
		r.send(conn, game.MsgTypeTimerTick, game.TimerTickMessage{
			Remaining:     r.turnTimer.remaining,
			CurrentPlayer: r.current,
		})
	}
}

// disconnect detaches conn from its seat and starts the reconnect grace period.
func (r *Room) disconnect(conn string) {
	idx := r.seatOf(conn)
	if idx < 0 {
		return
	}
	s := r.seats[idx]
	s.conn = ""
	s.grace.stop()
	r.schedule(&s.grace, r.opts.ReconnectGrace, timerEvent{kind: timerGrace, seat: s})
	klog.V(1).Infof("room %s: %s disconnected, holding seat %d", r.code, s.Name, idx)
}

// leave is a voluntary departure.
func (r *Room) leave(idx int) {
	r.depart(idx)
}

// activeSeats returns the seats still played by a connected human.
func (r *Room) activeSeats() []int {
	var active []int
	for i, s := range r.seats {
		if s.Connected && !s.Bot && !s.Finished {
			active = append(active, i)
		}
	}
	return active
}

// depart handles a seat whose human is gone: left, timed out repeatedly or
// did not come back in time. During a game a bot takes the seat over, unless
// at most one active seat remains, which ends the game.
func (r *Room) depart(idx int) {
	s := r.seats[idx]
	s.conn = ""
	s.grace.stop()
	s.Connected = false
	delete(r.votes, idx)
	name := s.Name
	r.broadcast(game.MsgTypePlayerLeft, game.PlayerLeftMessage{Name: name, Remaining: r.connectedCount()})
	klog.Infof("room %s: %s left (%s)", r.code, name, r.phase)

	switch r.phase {
	case game.PhaseLobby:
		r.removeSeat(idx)
		r.broadcastState()

	case game.PhaseGameOver:
		r.broadcastState()
		r.maybeRestart()

	case game.PhaseSwap, game.PhasePlay:
		if s.Finished {
			r.broadcastState()
			break
		}
		s.Bot = true
		r.departed = append(r.departed, idx)
		if active := r.activeSeats(); len(active) <= 1 {
			r.toast("%s left the game", name)
			r.endByDeparture(active)
			break
		}
		r.toast("🤖 %s left, a bot takes over", name)
		if r.phase == game.PhaseSwap {
			s.SwapDone = true
			if r.swapWaiting() == 0 {
				r.startPlay()
				break
			}
			r.broadcastState()
			break
		}
		if r.current == idx {
			r.beginTurn()
		} else {
			r.broadcastState()
		}
	}

	if r.connectedCount() == 0 {
		r.close("no players left")
	}
}

// removeSeat drops a lobby seat and renumbers the others.
func (r *Room) removeSeat(idx int) {
	r.seats[idx].grace.stop()
	r.seats = slices.Delete(r.seats, idx, idx+1)
	for i, s := range r.seats {
		s.Index = i
	}
}

func (r *Room) voteRestart(idx int) error {
	if r.phase != game.PhaseGameOver {
		return ErrWrongPhase
	}
	r.votes[idx] = true
	r.maybeRestart()
	return nil
}

// maybeRestart deals a new game once every connected human voted for it.
// Seats without a human are dropped, so at least two humans are needed.
func (r *Room) maybeRestart() {
	if r.phase != game.PhaseGameOver {
		return
	}
	connected := r.connectedCount()
	r.broadcast(game.MsgTypeRestartVotes, game.RestartVotesMessage{Ready: len(r.votes), Total: connected})
	if len(r.votes) < connected || connected < game.MinSeats {
		return
	}
	var keep []*seat
	for _, s := range r.seats {
		if s.Connected && s.conn != "" {
			keep = append(keep, s)
		}
	}
	if len(keep) < game.MinSeats {
		return
	}
	for _, s := range r.seats {
		if !slices.Contains(keep, s) {
			s.grace.stop()
		}
	}
	r.seats = keep
	for i, s := range r.seats {
		s.Index = i
		s.Bot = false
	}
	klog.Infof("room %s: restarting with %d players", r.code, len(r.seats))
	r.broadcast(game.MsgTypeGameRestarted, game.GameRestartedMessage{})
	r.startSwap()
}
