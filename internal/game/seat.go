package game

import (
	"fmt"
	"slices"
)

// Hand is an unordered multiset of cards. Order is kept for display only.
type Hand []Card

// Count returns the number of cards of rank r.
func (h Hand) Count(r Rank) int {
	n := 0
	for _, c := range h {
		if c.Rank == r {
			n++
		}
	}
	return n
}

// Contains reports whether the hand holds c.
func (h Hand) Contains(c Card) bool { return slices.Contains(h, c) }

// Remove removes one copy of c, failing if it is not held.
func (h *Hand) Remove(c Card) error {
	i := slices.Index(*h, c)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotInHand, c)
	}
	*h = slices.Delete(*h, i, i+1)
	return nil
}

// RemoveAll removes every card of cards, or none of them if any is missing.
func (h *Hand) RemoveAll(cards []Card) error {
	rest := slices.Clone(*h)
	for _, c := range cards {
		if err := rest.Remove(c); err != nil {
			return err
		}
	}
	*h = rest
	return nil
}

// Slots is a fixed row of table cards addressed by position. A nil entry is empty.
type Slots [SlotCount]*Card

// Count returns the number of occupied slots.
func (s *Slots) Count() int {
	n := 0
	for _, c := range s {
		if c != nil {
			n++
		}
	}
	return n
}

// Empty reports whether every slot is empty.
func (s *Slots) Empty() bool { return s.Count() == 0 }

// First returns the position of the first occupied slot.
func (s *Slots) First() (int, bool) {
	for i, c := range s {
		if c != nil {
			return i, true
		}
	}
	return -1, false
}

// Cards returns the occupied slots' cards in position order.
func (s *Slots) Cards() []Card {
	cards := make([]Card, 0, SlotCount)
	for _, c := range s {
		if c != nil {
			cards = append(cards, *c)
		}
	}
	return cards
}

// Take empties slot i and returns its card.
func (s *Slots) Take(i int) (Card, error) {
	if i < 0 || i >= SlotCount {
		return Card{}, fmt.Errorf("%w: slot %d", ErrBadIndex, i)
	}
	if s[i] == nil {
		return Card{}, fmt.Errorf("%w: slot %d", ErrSlotEmpty, i)
	}
	c := *s[i]
	s[i] = nil
	return c, nil
}

// Put stores c at position i, replacing whatever was there.
func (s *Slots) Put(i int, c Card) { s[i] = &c }

// Index returns the position holding c.
func (s *Slots) Index(c Card) int {
	for i, slot := range s {
		if slot != nil && *slot == c {
			return i
		}
	}
	return -1
}

// Contains reports whether every card of cards sits in its own slot.
func (s *Slots) Contains(cards []Card) bool {
	rest := *s
	return rest.RemoveAll(cards) == nil
}

// RemoveAll empties the slots holding cards, or none of them if any is missing.
func (s *Slots) RemoveAll(cards []Card) error {
	rest := *s
	for _, c := range cards {
		i := rest.Index(c)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrNotOnTable, c)
		}
		rest[i] = nil
	}
	*s = rest
	return nil
}

// Zone a seat plays from.
type Zone int

const (
	ZoneHand Zone = iota
	ZoneFaceUp
	ZoneFaceDown
	ZoneNone // All three zones are empty.
)

// Seat is one player slot in a room: identity, the three card zones and
// the per-game counters.
type Seat struct {
	Index     int
	Name      string
	Connected bool
	Bot       bool

	Hand     Hand
	FaceUp   Slots
	FaceDown Slots // Never shown to the seat's own client.

	SwapDone            bool
	Finished            bool
	Disqualified        bool // Never set by the room: inactivity hands the seat to a bot instead.
	ConsecutiveTimeouts int
}

// Deal replaces the seat's zones with three face-down, three face-up and
// three hand cards taken from the deck, and clears the per-game counters.
func (s *Seat) Deal(deck *Deck) {
	s.FaceDown, s.FaceUp = Slots{}, Slots{}
	for i, c := range deck.Draw(SlotCount) {
		s.FaceDown.Put(i, c)
	}
	for i, c := range deck.Draw(SlotCount) {
		s.FaceUp.Put(i, c)
	}
	s.Hand = Hand(deck.Draw(SlotCount))
	s.SwapDone = false
	s.Finished = false
	s.Disqualified = false
	s.ConsecutiveTimeouts = 0
}

// Zone returns the zone the seat must play from: hand while non-empty, then
// face-up, then face-down.
func (s *Seat) Zone() Zone {
	switch {
	case len(s.Hand) > 0:
		return ZoneHand
	case !s.FaceUp.Empty():
		return ZoneFaceUp
	case !s.FaceDown.Empty():
		return ZoneFaceDown
	}
	return ZoneNone
}

// Empty reports whether hand, face-up and face-down are all empty.
func (s *Seat) Empty() bool { return s.Zone() == ZoneNone }

// SwapWithFaceUp exchanges the hand card at handIdx with the face-up card at faceUpIdx.
func (s *Seat) SwapWithFaceUp(handIdx, faceUpIdx int) error {
	if handIdx < 0 || handIdx >= len(s.Hand) {
		return fmt.Errorf("%w: hand index %d", ErrBadIndex, handIdx)
	}
	if faceUpIdx < 0 || faceUpIdx >= SlotCount {
		return fmt.Errorf("%w: face-up index %d", ErrBadIndex, faceUpIdx)
	}
	if s.FaceUp[faceUpIdx] == nil {
		return fmt.Errorf("%w: face-up slot %d", ErrSlotEmpty, faceUpIdx)
	}
	up := *s.FaceUp[faceUpIdx]
	s.FaceUp.Put(faceUpIdx, s.Hand[handIdx])
	s.Hand[handIdx] = up
	return nil
}

// TopUp draws from deck until the hand holds SlotCount cards or the deck is exhausted.
func (s *Seat) TopUp(deck *Deck) {
	if missing := SlotCount - len(s.Hand); missing > 0 {
		s.Hand = append(s.Hand, deck.Draw(missing)...)
	}
}

// CardCount is the number of cards the seat holds across its three zones.
func (s *Seat) CardCount() int {
	return len(s.Hand) + s.FaceUp.Count() + s.FaceDown.Count()
}

// DisplayName is the name shown to other players, tagged while a bot plays the seat.
func (s *Seat) DisplayName() string {
	if s.Bot {
		return s.Name + " (bot)"
	}
	return s.Name
}

// SameRank checks that cards is non-empty and all cards share one rank.
func SameRank(cards []Card) (Rank, error) {
	if len(cards) == 0 {
		return 0, ErrNoCards
	}
	r := cards[0].Rank
	for _, c := range cards[1:] {
		if c.Rank != r {
			return 0, ErrMixedRanks
		}
	}
	return r, nil
}
