package room

import (
	"fmt"
	"slices"

	"k8s.io/klog/v2"

	"github.com/janpfeifer/GoShed/internal/game"
)

// view projects the room as seen from seat idx: its own hand and face-up
// cards, only the presence of its face-down cards, and public counts for the
// other seats.
func (r *Room) view(idx int) game.StateMessage {
	me := r.seats[idx]
	v := game.StateMessage{
		Code:          r.code,
		Phase:         r.phase,
		MyIndex:       idx,
		MyHand:        slices.Clone(me.Hand),
		MyFaceUp:      copySlots(me.FaceUp),
		CurrentPlayer: r.current,
		Pile:          slices.Clone(r.pile),
		DrawPileCount: len(r.drawPile),
		WinnersOrder:  slices.Clone(r.winners),
		TurnTimer:     r.opts.TurnTimer,
		Seats:         r.opts.Seats,
		AllJoined:     r.allJoined(),
		Players:       make([]game.PlayerView, len(r.seats)),
	}
	for i, c := range me.FaceDown {
		v.MyFaceDown[i] = c != nil
	}
	if r.phase == game.PhasePlay {
		if top, ok := game.EffectiveTop(r.pile); ok {
			v.EffectiveTop = &top.Rank
		}
		v.BurnNeeded = game.BurnNeeded(r.pile)
		if r.interrupt != nil {
			w := *r.interrupt
			v.Interrupt = &w
		}
	}
	for i, s := range r.seats {
		v.Players[i] = game.PlayerView{
			Index:         i,
			Name:          s.DisplayName(),
			HandCount:     len(s.Hand),
			FaceUp:        copySlots(s.FaceUp),
			FaceDownCount: s.FaceDown.Count(),
			Finished:      s.Finished,
			Connected:     s.Connected,
			Bot:           s.Bot,
			SwapDone:      s.SwapDone,
		}
	}
	return v
}

// copySlots deep-copies slots so a view shares no memory with the room.
func copySlots(s game.Slots) game.Slots {
	var out game.Slots
	for i, c := range s {
		if c != nil {
			out.Put(i, *c)
		}
	}
	return out
}

func (r *Room) allJoined() bool {
	if r.opts.Seats > 0 && len(r.seats) < r.opts.Seats {
		return false
	}
	for _, s := range r.seats {
		if !s.Connected {
			return false
		}
	}
	return len(r.seats) > 0
}

// broadcastState sends every connected seat its own view.
func (r *Room) broadcastState() {
	r.dirty = false
	for i, s := range r.seats {
		if s.conn != "" {
			r.send(s.conn, game.MsgTypeState, r.view(i))
		}
	}
}

// broadcast sends the same message to every connected seat.
func (r *Room) broadcast(msgType game.MessageType, payload any) {
	msg, err := game.NewWsMessage(msgType, payload)
	if err != nil {
		klog.Errorf("room %s: %v", r.code, err)
		return
	}
	for _, s := range r.seats {
		if s.conn != "" {
			r.deliverer.Deliver(s.conn, msg)
		}
	}
}

func (r *Room) send(conn string, msgType game.MessageType, payload any) {
	if conn == "" {
		return
	}
	msg, err := game.NewWsMessage(msgType, payload)
	if err != nil {
		klog.Errorf("room %s: %v", r.code, err)
		return
	}
	r.deliverer.Deliver(conn, msg)
}

func (r *Room) toast(format string, args ...any) {
	r.broadcast(game.MsgTypeToast, game.ToastMessage{Message: fmt.Sprintf(format, args...)})
}

func (r *Room) reject(conn string, err error) {
	r.send(conn, game.MsgTypeError, game.ErrorMessage{Message: err.Error()})
}
