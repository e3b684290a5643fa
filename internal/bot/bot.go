// Package bot implements the greedy policy that plays a seat whose human left.
//
// The policy only reads game state and returns a Move; the room applies it
// through the same transitions a human action goes through.
package bot

import (
	"github.com/janpfeifer/GoShed/internal/game"
)

// Kind of move chosen by the bot.
type Kind int

const (
	Play Kind = iota // Play Cards from the hand or the face-up slots.
	Flip             // Flip face-down Slot and play it if legal.
	Take             // Take the pile, plus FaceUp cards when the hand is empty.
)

func (k Kind) String() string {
	switch k {
	case Play:
		return "play"
	case Flip:
		return "flip"
	case Take:
		return "take"
	}
	return "unknown"
}

// Move is the bot's decision for one turn.
type Move struct {
	Kind   Kind
	Cards  []game.Card // For Play.
	Slot   int         // For Flip.
	FaceUp []game.Card // For Take: exposed face-up cards picked up with the pile.
}

// Choose picks the move for seat on pile. Zone precedence is the same as for
// humans: the hand first, the face-up slots once the hand is empty (which only
// happens after the draw pile is exhausted), then a blind flip.
func Choose(seat *game.Seat, pile []game.Card) Move {
	switch seat.Zone() {
	case game.ZoneHand:
		if c, legal, _ := game.LowestCard(seat.Hand, pile); legal {
			return Move{Kind: Play, Cards: []game.Card{c}}
		}
		return Move{Kind: Take}

	case game.ZoneFaceUp:
		up := seat.FaceUp.Cards()
		if c, legal, _ := game.LowestCard(up, pile); legal {
			return Move{Kind: Play, Cards: []game.Card{c}}
		}
		// Pick up the lowest face-up card with the pile.
		c, _, _ := game.LowestCard(up, nil)
		return Move{Kind: Take, FaceUp: []game.Card{c}}

	case game.ZoneFaceDown:
		slot, _ := seat.FaceDown.First()
		return Move{Kind: Flip, Slot: slot}
	}
	return Move{Kind: Take}
}
