package room

import "errors"

// Validation errors are reported to the acting connection only; the room
// state is unchanged.
var (
	ErrRoomFull         = errors.New("room is full")
	ErrGameStarted      = errors.New("game already started")
	ErrRoomClosed       = errors.New("room is closed")
	ErrNameRequired     = errors.New("a display name is required")
	ErrNameTaken        = errors.New("name already taken in this room")
	ErrNotSeated        = errors.New("not seated in this room")
	ErrNotHost          = errors.New("only the host can start the game")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrWrongPhase       = errors.New("action not allowed in this phase")
	ErrSwapFinished     = errors.New("swap already finished")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrWrongZone        = errors.New("not playing from that zone")
	ErrFaceDownPlay     = errors.New("face-down cards must be flipped")
	ErrPileEmpty        = errors.New("the pile is empty")
	ErrNoInterrupt      = errors.New("interrupt window is closed")
	ErrInterruptSeat    = errors.New("only the player who just played can interrupt")
	ErrInterruptRank    = errors.New("interrupt cards must match the rank just played")
	ErrBurnCount        = errors.New("wrong number of cards to burn the pile")
	ErrUnsupported      = errors.New("unsupported action")
)
