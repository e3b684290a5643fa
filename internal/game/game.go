package game

// Version of the game protocol.
// Bumping this number lets clients detect an incompatible server after a deploy.
var Version = "v0.1.0"

const (
	// SlotCount is the number of face-up and of face-down slots per seat,
	// and the number of cards a hand is topped up to from the draw pile.
	SlotCount = 3

	// MinSeats and MaxSeats bound the number of players in a room.
	MinSeats = 2
	MaxSeats = 4

	// BurnRun is the length of a same-rank run that burns the pile.
	BurnRun = 4
)

// Phase of a room.
type Phase string

const (
	PhaseLobby    Phase = "lobby"    // Waiting for players.
	PhaseSwap     Phase = "swap"     // Players exchange hand and face-up cards.
	PhasePlay     Phase = "play"     // Turns are being played.
	PhaseGameOver Phase = "gameover" // All but one seat finished.
)
