package game

import "errors"

var (
	ErrIllegalCard = errors.New("card cannot be played on the pile")
	ErrNotInHand   = errors.New("card is not in hand")
	ErrNotOnTable  = errors.New("card is not among the face-up cards")
	ErrBadIndex    = errors.New("index out of range")
	ErrSlotEmpty   = errors.New("slot is empty")
	ErrMixedRanks  = errors.New("cards must share one rank")
	ErrNoCards     = errors.New("no cards given")
)
