package room

import (
	"slices"
	"time"

	"k8s.io/klog/v2"

	"github.com/janpfeifer/GoShed/internal/game"
)

// countdown is a cancellable timer handle owned by the room. Each (re)start or
// stop bumps gen, so an expiry already queued for an older generation is
// recognised as stale and ignored.
type countdown struct {
	gen       uint64
	timer     *time.Timer
	remaining int
	seat      int // Seat the countdown was started for, where relevant.
}

func (c *countdown) stop() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.remaining = 0
}

func (c *countdown) active() bool { return c.timer != nil }

type timerKind int

const (
	timerSwap timerKind = iota
	timerTurn
	timerBot
	timerGrace
)

func (k timerKind) String() string {
	switch k {
	case timerSwap:
		return "swap"
	case timerTurn:
		return "turn"
	case timerBot:
		return "bot"
	case timerGrace:
		return "grace"
	}
	return "unknown"
}

// timerEvent is posted to the room's inbox when a countdown fires.
type timerEvent struct {
	kind timerKind
	gen  uint64
	seat *seat // For timerGrace.
}

// schedule arms c to post ev after d. ev carries c's current generation.
func (r *Room) schedule(c *countdown, d time.Duration, ev timerEvent) {
	ev.gen = c.gen
	c.timer = time.AfterFunc(d, func() { r.post(ev) })
}

func (r *Room) startSwapTimer() {
	r.swapTimer.stop()
	r.swapTimer.remaining = r.opts.SwapSeconds
	r.broadcast(game.MsgTypeSwapTick, game.SwapTickMessage{Remaining: r.swapTimer.remaining})
	r.schedule(&r.swapTimer, r.opts.Tick, timerEvent{kind: timerSwap})
}

// startTurnTimer restarts the turn countdown for the current seat, if turn
// timers are enabled.
func (r *Room) startTurnTimer() {
	r.turnTimer.stop()
	if r.opts.TurnTimer <= 0 || r.phase != game.PhasePlay {
		return
	}
	r.turnTimer.remaining = r.opts.TurnTimer
	r.turnTimer.seat = r.current
	r.broadcastTurnTick()
	r.schedule(&r.turnTimer, r.opts.Tick, timerEvent{kind: timerTurn})
}

func (r *Room) broadcastTurnTick() {
	r.broadcast(game.MsgTypeTimerTick, game.TimerTickMessage{
		Remaining:     r.turnTimer.remaining,
		CurrentPlayer: r.current,
	})
}

func (r *Room) onTimer(ev timerEvent) {
	switch ev.kind {
	case timerSwap:
		if ev.gen != r.swapTimer.gen || r.phase != game.PhaseSwap {
			return
		}
		r.swapTimer.remaining--
		if r.swapTimer.remaining > 0 {
			r.broadcast(game.MsgTypeSwapTick, game.SwapTickMessage{Remaining: r.swapTimer.remaining})
			r.schedule(&r.swapTimer, r.opts.Tick, timerEvent{kind: timerSwap})
			return
		}
		r.toast("⏰ Swap time is up!")
		r.startPlay()

	case timerTurn:
		if ev.gen != r.turnTimer.gen || r.phase != game.PhasePlay {
			return
		}
		r.turnTimer.remaining--
		r.broadcastTurnTick()
		if r.turnTimer.remaining > 0 {
			r.schedule(&r.turnTimer, r.opts.Tick, timerEvent{kind: timerTurn})
			return
		}
		target := r.turnTimer.seat
		r.turnTimer.stop()
		r.turnExpired(target)

	case timerBot:
		if ev.gen != r.botTimer.gen {
			return
		}
		target := r.botTimer.seat
		r.botTimer.stop()
		r.botTurn(target)

	case timerGrace:
		s := ev.seat
		idx := slices.Index(r.seats, s)
		if idx < 0 || ev.gen != s.grace.gen || s.conn != "" {
			return
		}
		s.grace.stop()
		klog.Infof("room %s: %s did not come back", r.code, s.Name)
		r.depart(idx)
	}
}

// turnExpired runs the automatic move for a seat whose turn timer ran out.
// It is a no-op if the seat is no longer the one to play.
func (r *Room) turnExpired(idx int) {
	if r.phase != game.PhasePlay || idx != r.current || idx >= len(r.seats) {
		return
	}
	s := r.seats[idx]
	if s.Finished {
		return
	}
	if s.Bot {
		r.botTurn(idx)
		return
	}
	r.closeInterrupt()
	s.ConsecutiveTimeouts++
	if s.ConsecutiveTimeouts >= r.opts.MaxTimeouts {
		r.toast("❌ %s missed %d turns in a row and left the game", s.Name, s.ConsecutiveTimeouts)
		r.send(s.conn, game.MsgTypeToast, game.ToastMessage{Message: "You were removed for inactivity"})
		r.depart(idx)
		return
	}

	if len(r.pile) == 0 && len(s.Hand) > 0 {
		// Everything is legal on an empty pile, so this is the lowest card held.
		c, _, _ := game.LowestCard(s.Hand, r.pile)
		if err := s.Hand.Remove(c); err == nil {
			r.toast("⏰ Time is up! %s plays %s automatically", s.Name, c.Rank)
			r.executeMove(idx, []game.Card{c})
			return
		}
	}

	r.toast("⏰ Time is up! %s takes the pile", s.Name)
	var faceUp []game.Card
	if len(s.Hand) == 0 {
		if i, ok := s.FaceUp.First(); ok {
			faceUp = []game.Card{*s.FaceUp[i]}
		}
	}
	r.pickUp(idx, faceUp)
	r.nextTurn(1)
}
