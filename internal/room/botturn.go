package room

import (
	"k8s.io/klog/v2"

	"github.com/janpfeifer/GoShed/internal/bot"
	"github.com/janpfeifer/GoShed/internal/game"
)

// scheduleBot arms the bot timer if the current seat is played by a bot.
func (r *Room) scheduleBot() {
	r.botTimer.stop()
	if r.phase != game.PhasePlay {
		return
	}
	s := r.seats[r.current]
	if !s.Bot || s.Finished {
		return
	}
	r.botTimer.seat = r.current
	r.schedule(&r.botTimer, r.opts.BotDelay, timerEvent{kind: timerBot})
}

// botTurn plays the turn of a bot seat. It is a no-op if it is no longer
// that seat's turn or a human took the seat back.
func (r *Room) botTurn(idx int) {
	if r.phase != game.PhasePlay || idx != r.current || idx >= len(r.seats) {
		return
	}
	s := r.seats[idx]
	if !s.Bot || s.Finished {
		return
	}
	move := bot.Choose(&s.Seat, r.pile)
	klog.V(1).Infof("room %s: bot %s: %s %v", r.code, s.Name, move.Kind, move.Cards)

	var err error
	switch move.Kind {
	case bot.Play:
		err = r.play(idx, move.Cards, false)
	case bot.Flip:
		err = r.flip(idx, move.Slot)
	case bot.Take:
		r.closeInterrupt()
		r.toast("%s takes the pile", s.DisplayName())
		r.pickUp(idx, move.FaceUp)
		r.nextTurn(1)
	}
	if err != nil {
		// The policy only picks legal moves; fall back to picking up the pile.
		klog.Warningf("room %s: bot %s move %s rejected: %v", r.code, s.Name, move.Kind, err)
		r.pickUp(idx, nil)
		r.nextTurn(1)
	}
}
