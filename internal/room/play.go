package room

import (
	"fmt"
	"slices"

	"k8s.io/klog/v2"

	"github.com/janpfeifer/GoShed/internal/game"
)

// play handles a play action. A seat other than the current one may only
// burn the pile out of turn, and only the seat named in the interrupt window
// may pile on with interrupt set.
func (r *Room) play(idx int, cards []game.Card, interrupt bool) error {
	if r.phase != game.PhasePlay {
		return ErrWrongPhase
	}
	s := r.seats[idx]
	if s.Finished {
		return fmt.Errorf("%w: you already finished", ErrNotYourTurn)
	}
	rank, err := game.SameRank(cards)
	if err != nil {
		return err
	}
	if interrupt {
		return r.pileOn(idx, cards, rank)
	}

	// Any seat acting closes the window, whether or not the play is accepted.
	r.closeInterrupt()
	if idx != r.current {
		return r.burnOutOfTurn(idx, cards, rank)
	}
	if !game.CanPlay(cards[0], r.pile) {
		return fmt.Errorf("%w: %s", game.ErrIllegalCard, cards[0])
	}
	if err := r.removeFromZones(s, cards); err != nil {
		return err
	}
	r.executeMove(idx, cards)
	return nil
}

// removeFromZones takes cards out of the zone the seat plays from. On the hand
// zone, face-up cards may join only a play that uses up the whole hand.
func (r *Room) removeFromZones(s *seat, cards []game.Card) error {
	switch s.Zone() {
	case game.ZoneHand:
		hand := slices.Clone(s.Hand)
		var fromFaceUp []game.Card
		for _, c := range cards {
			if hand.Remove(c) != nil {
				fromFaceUp = append(fromFaceUp, c)
			}
		}
		if len(fromFaceUp) == 0 {
			s.Hand = hand
			return nil
		}
		if len(hand) > 0 {
			return fmt.Errorf("%w: %s", game.ErrNotInHand, fromFaceUp[0])
		}
		faceUp := s.FaceUp
		if err := faceUp.RemoveAll(fromFaceUp); err != nil {
			return err
		}
		s.Hand, s.FaceUp = hand, faceUp
		return nil
	case game.ZoneFaceUp:
		return s.FaceUp.RemoveAll(cards)
	case game.ZoneFaceDown:
		return ErrFaceDownPlay
	}
	return ErrNotYourTurn
}

// executeMove puts the cards, already removed from the seat's zones, on the
// pile and moves the game forward.
func (r *Room) executeMove(idx int, cards []game.Card) {
	s := r.seats[idx]
	rank := cards[0].Rank
	r.pile = append(r.pile, cards...)
	r.broadcast(game.MsgTypeCardPlayed, game.CardPlayedMessage{Seat: idx, Cards: cards})
	klog.V(1).Infof("room %s: %s plays %v", r.code, s.Name, cards)

	if game.IsBurn(r.pile, rank) {
		r.burn(idx)
		r.checkWin(idx)
		if r.phase != game.PhasePlay {
			return
		}
		if s.Finished {
			r.nextTurn(1)
			return
		}
		// Same seat plays again.
		r.current = idx
		r.beginTurn()
		return
	}

	s.TopUp(&r.drawPile)
	r.checkWin(idx)
	if r.phase != game.PhasePlay {
		return
	}
	if s.Finished {
		r.nextTurn(1)
		return
	}
	skip := 1
	if rank == game.Eight {
		skip = len(cards) + 1
	}
	r.interrupt = &game.InterruptWindow{Rank: rank, Seat: idx}
	r.nextTurn(skip)
}

// burn clears the pile and tops up the burner's hand.
func (r *Room) burn(idx int) {
	s := r.seats[idx]
	r.burned = append(r.burned, r.pile...)
	r.pile = nil
	r.broadcast(game.MsgTypeBurn, game.BurnMessage{Seat: idx})
	r.toast("🔥 %s burned the pile!", s.Name)
	s.TopUp(&r.drawPile)
}

// pileOn adds cards of the rank just played by the seat that played it,
// before the next seat acts. The turn order is not changed.
func (r *Room) pileOn(idx int, cards []game.Card, rank game.Rank) error {
	w := r.interrupt
	switch {
	case w == nil:
		return ErrNoInterrupt
	case w.Seat != idx:
		return ErrInterruptSeat
	case w.Rank != rank:
		return ErrInterruptRank
	}
	s := r.seats[idx]
	if err := s.Hand.RemoveAll(cards); err != nil {
		return err
	}
	r.interrupt = nil
	r.pile = append(r.pile, cards...)
	r.toast("⚡ %s interrupts!", s.Name)
	r.broadcast(game.MsgTypeCardPlayed, game.CardPlayedMessage{Seat: idx, Cards: cards})

	if game.IsBurn(r.pile, rank) {
		r.burn(idx)
	} else {
		s.TopUp(&r.drawPile)
	}
	r.checkWin(idx)
	if r.phase != game.PhasePlay {
		return nil
	}
	if r.seats[r.current].Finished {
		r.nextTurn(1)
		return nil
	}
	r.beginTurn()
	return nil
}

// burnOutOfTurn lets a seat that is not the current one complete a run of
// four from its hand. It then keeps the turn.
func (r *Room) burnOutOfTurn(idx int, cards []game.Card, rank game.Rank) error {
	top, ok := game.EffectiveTop(r.pile)
	needed := game.BurnNeeded(r.pile)
	if !ok || needed == 0 {
		return ErrNotYourTurn
	}
	if len(cards) != needed {
		return fmt.Errorf("%w: need exactly %d %s", ErrBurnCount, needed, top.Rank)
	}
	if rank != top.Rank {
		return fmt.Errorf("%w: need %d %s", ErrNotYourTurn, needed, top.Rank)
	}
	s := r.seats[idx]
	if err := s.Hand.RemoveAll(cards); err != nil {
		return err
	}
	r.pile = append(r.pile, cards...)
	r.broadcast(game.MsgTypeCardPlayed, game.CardPlayedMessage{Seat: idx, Cards: cards})
	klog.V(1).Infof("room %s: %s burns out of turn with %v", r.code, s.Name, cards)
	r.burn(idx)
	r.checkWin(idx)
	if r.phase != game.PhasePlay {
		return nil
	}
	r.current = idx
	if s.Finished {
		r.nextTurn(1)
		return nil
	}
	r.beginTurn()
	return nil
}

// takePile handles a take-pile action by the current seat. In the face-down
// zone a revealed face-down slot may be taken along, even with an empty pile;
// with an empty hand chosen face-up cards may be taken along.
func (r *Room) takePile(idx int, faceDownSlot *int, faceUp []game.Card) error {
	if r.phase != game.PhasePlay {
		return ErrWrongPhase
	}
	if idx != r.current {
		return ErrNotYourTurn
	}
	s := r.seats[idx]
	if faceDownSlot != nil {
		if s.Zone() != game.ZoneFaceDown {
			return fmt.Errorf("%w: face-down", ErrWrongZone)
		}
		c, err := s.FaceDown.Take(*faceDownSlot)
		if err != nil {
			return err
		}
		r.closeInterrupt()
		s.Hand = append(s.Hand, c)
		r.toast("%s takes the pile", s.Name)
		r.pickUp(idx, nil)
		r.nextTurn(1)
		return nil
	}
	if len(r.pile) == 0 {
		return ErrPileEmpty
	}
	if len(faceUp) > 0 && s.Zone() != game.ZoneFaceUp {
		return fmt.Errorf("%w: face-up", ErrWrongZone)
	}
	if !s.FaceUp.Contains(faceUp) {
		return game.ErrNotOnTable
	}
	r.closeInterrupt()
	r.toast("%s takes the pile", s.Name)
	r.pickUp(idx, faceUp)
	r.nextTurn(1)
	return nil
}

// pickUp moves the given face-up cards, when present, and the whole pile into the seat's hand.
func (r *Room) pickUp(idx int, faceUp []game.Card) {
	s := r.seats[idx]
	for _, c := range faceUp {
		if i := s.FaceUp.Index(c); i >= 0 {
			s.FaceUp[i] = nil
			s.Hand = append(s.Hand, c)
		}
	}
	s.Hand = append(s.Hand, r.pile...)
	r.pile = nil
}

// flip turns over a face-down card of the current seat. It is played if
// legal; otherwise the seat takes it together with the pile.
func (r *Room) flip(idx, slot int) error {
	if r.phase != game.PhasePlay {
		return ErrWrongPhase
	}
	if idx != r.current {
		return ErrNotYourTurn
	}
	s := r.seats[idx]
	if s.Zone() != game.ZoneFaceDown {
		return fmt.Errorf("%w: face-down", ErrWrongZone)
	}
	c, err := s.FaceDown.Take(slot)
	if err != nil {
		return err
	}
	r.closeInterrupt()
	if !game.CanPlay(c, r.pile) {
		s.Hand = append(s.Hand, c)
		r.toast("%s flipped %s, which cannot be played, and takes the pile", s.Name, c)
		r.pickUp(idx, nil)
		r.nextTurn(1)
		return nil
	}
	r.toast("%s flipped %s", s.Name, c)
	r.executeMove(idx, []game.Card{c})
	return nil
}

// closeInterrupt closes the interrupt window, if open.
func (r *Room) closeInterrupt() {
	if r.interrupt != nil {
		r.interrupt = nil
		r.dirty = true
	}
}
