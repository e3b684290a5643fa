package room

import (
	"slices"

	"k8s.io/klog/v2"

	"github.com/janpfeifer/GoShed/internal/game"
)

// start is the host's trigger to begin a room before all seats are taken.
func (r *Room) start(idx int) error {
	if r.phase != game.PhaseLobby {
		return ErrGameStarted
	}
	if idx != 0 {
		return ErrNotHost
	}
	if len(r.seats) < game.MinSeats {
		return ErrNotEnoughPlayers
	}
	r.startSwap()
	return nil
}

// startSwap deals a fresh deck to the seated players and opens the swap phase.
func (r *Room) startSwap() {
	deck := game.NewDeck()
	deck.Shuffle(r.opts.Rand)
	for i, s := range r.seats {
		s.Index = i
		s.Deal(&deck)
		s.SwapDone = s.Bot
	}
	r.drawPile = deck
	r.pile = nil
	r.burned = nil
	r.current = 0
	r.interrupt = nil
	r.winners = nil
	r.departed = nil
	clear(r.votes)
	r.turnTimer.stop()
	r.botTimer.stop()
	r.phase = game.PhaseSwap

	klog.Infof("room %s: swap phase with %d players", r.code, len(r.seats))
	r.toast("🎮 All players are here! Swap your cards.")
	r.broadcastState()
	r.startSwapTimer()
}

func (r *Room) swap(idx, handIdx, faceUpIdx int) error {
	if r.phase != game.PhaseSwap {
		return ErrWrongPhase
	}
	s := r.seats[idx]
	if s.SwapDone {
		return ErrSwapFinished
	}
	if err := s.SwapWithFaceUp(handIdx, faceUpIdx); err != nil {
		return err
	}
	r.broadcastState()
	return nil
}

func (r *Room) endSwap(idx int) error {
	if r.phase != game.PhaseSwap {
		return ErrWrongPhase
	}
	s := r.seats[idx]
	s.SwapDone = true
	if waiting := r.swapWaiting(); waiting > 0 {
		r.toast("%s finished swapping. Waiting for %d more...", s.Name, waiting)
		r.broadcastState()
		return nil
	}
	r.startPlay()
	return nil
}

func (r *Room) swapWaiting() int {
	n := 0
	for _, s := range r.seats {
		if !s.SwapDone {
			n++
		}
	}
	return n
}

// startPlay ends the swap phase, force-marking every seat as done, and gives
// the first turn to the holder of the lowest card.
func (r *Room) startPlay() {
	r.swapTimer.stop()
	r.broadcast(game.MsgTypeSwapTick, game.SwapTickMessage{Remaining: 0})
	hands := make([][]game.Card, len(r.seats))
	for i, s := range r.seats {
		s.SwapDone = true
		hands[i] = s.Hand
	}
	starter := game.FindStarter(hands, r.opts.Rand)
	if starter < 0 {
		starter = 0
	}
	r.phase = game.PhasePlay
	r.current = starter
	klog.Infof("room %s: game started, %s goes first", r.code, r.seats[starter].Name)
	r.toast("The game has started! %s goes first", r.seats[starter].Name)
	r.beginTurn()
}

// beginTurn publishes the state and arms the timers for the current seat.
func (r *Room) beginTurn() {
	r.broadcastState()
	r.startTurnTimer()
	r.scheduleBot()
}

// nextTurn moves the turn forward skip times, each time past finished seats.
func (r *Room) nextTurn(skip int) {
	if r.phase != game.PhasePlay {
		return
	}
	n := len(r.seats)
	for range skip {
		for attempts := 0; attempts < n; attempts++ {
			r.current = (r.current + 1) % n
			if !r.seats[r.current].Finished {
				break
			}
		}
	}
	r.beginTurn()
}

// checkWin marks the seat finished once its three zones are empty. When only
// one seat is left playing, it is ranked last and the game is over.
func (r *Room) checkWin(idx int) {
	s := r.seats[idx]
	if s.Finished || !s.Empty() {
		return
	}
	s.Finished = true
	r.winners = append(r.winners, idx)
	r.toast("🏁 %s finished in place %d!", s.Name, len(r.winners))
	if len(r.winners) < len(r.seats)-1 {
		return
	}
	for i, o := range r.seats {
		if !o.Finished {
			r.winners = append(r.winners, i)
		}
	}
	r.endGame()
}

// endByDeparture ends the game when departures left at most one active seat.
// Seats that already finished keep their places, so the remaining seat ranks
// first only among the unfinished ones, ahead of those that left in the order
// they left.
func (r *Room) endByDeparture(remaining []int) {
	order := r.winners
	add := func(i int) {
		if !slices.Contains(order, i) {
			order = append(order, i)
		}
	}
	for _, i := range remaining {
		add(i)
	}
	for _, i := range r.departed {
		add(i)
	}
	for i := range r.seats {
		add(i)
	}
	r.winners = order
	r.endGame()
}

func (r *Room) endGame() {
	r.phase = game.PhaseGameOver
	r.interrupt = nil
	r.turnTimer.stop()
	r.botTimer.stop()
	r.swapTimer.stop()
	names := make([]string, len(r.winners))
	for i, w := range r.winners {
		names[i] = r.seats[w].Name
	}
	klog.Infof("room %s: game over: %v", r.code, names)
	r.broadcast(game.MsgTypeGameOver, game.GameOverMessage{Names: names})
	r.broadcastState()
}
