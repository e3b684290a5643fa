package game

import (
	"encoding/json"
	"fmt"
)

// Message type for WebSocket communication between client and server.
type MessageType string

const (
	// Client to server.
	MsgTypeCreate      MessageType = "create_room"  // Create a room and take its first seat
	MsgTypeJoin        MessageType = "join"         // Join a room, or reclaim a seat by name
	MsgTypeStart       MessageType = "start"        // Host starts an open room
	MsgTypeSwap        MessageType = "swap"         // Exchange a hand card with a face-up card
	MsgTypeEndSwap     MessageType = "end_swap"     // Done swapping
	MsgTypePlay        MessageType = "play"         // Play cards, possibly as an interrupt
	MsgTypeTakePile    MessageType = "take_pile"    // Pick up the pile
	MsgTypeFlip        MessageType = "flip"         // Flip a face-down card and play it
	MsgTypeVoteRestart MessageType = "vote_restart" // Ask for a new game after game over
	MsgTypeLeave       MessageType = "leave"        // Leave the room

	// Server to client.
	MsgTypeRoomJoined    MessageType = "room_joined"
	MsgTypeState         MessageType = "state"
	MsgTypeCardPlayed    MessageType = "card_played"
	MsgTypeBurn          MessageType = "burn"
	MsgTypeSwapTick      MessageType = "swap_tick"
	MsgTypeTimerTick     MessageType = "timer_tick"
	MsgTypeToast         MessageType = "toast"
	MsgTypeGameOver      MessageType = "game_over"
	MsgTypeRestartVotes  MessageType = "restart_votes"
	MsgTypeGameRestarted MessageType = "game_restarted"
	MsgTypePlayerLeft    MessageType = "player_left"
	MsgTypeError         MessageType = "error"
)

// WsMessage represents a WebSocket message.
type WsMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewWsMessage creates a new WsMessage with a marshaled payload.
func NewWsMessage(msgType MessageType, payload any) (WsMessage, error) {
	if payload == nil {
		return WsMessage{Type: msgType}, nil
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return WsMessage{}, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return WsMessage{
		Type:    msgType,
		Payload: payloadBytes,
	}, nil
}

// MustWsMessage is like NewWsMessage for payloads that cannot fail to marshal.
func MustWsMessage(msgType MessageType, payload any) WsMessage {
	msg, err := NewWsMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// Parse unmarshals the message payload into one of the message types (JoinMessage, PlayMessage, etc.)
func (m *WsMessage) Parse() (any, error) {
	var target any
	switch m.Type {
	case MsgTypeCreate:
		target = &CreateMessage{}
	case MsgTypeJoin:
		target = &JoinMessage{}
	case MsgTypeStart:
		target = &StartMessage{}
	case MsgTypeSwap:
		target = &SwapMessage{}
	case MsgTypeEndSwap:
		target = &EndSwapMessage{}
	case MsgTypePlay:
		target = &PlayMessage{}
	case MsgTypeTakePile:
		target = &TakePileMessage{}
	case MsgTypeFlip:
		target = &FlipMessage{}
	case MsgTypeVoteRestart:
		target = &VoteRestartMessage{}
	case MsgTypeLeave:
		target = &LeaveMessage{}
	case MsgTypeRoomJoined:
		target = &RoomJoinedMessage{}
	case MsgTypeState:
		target = &StateMessage{}
	case MsgTypeCardPlayed:
		target = &CardPlayedMessage{}
	case MsgTypeBurn:
		target = &BurnMessage{}
	case MsgTypeSwapTick:
		target = &SwapTickMessage{}
	case MsgTypeTimerTick:
		target = &TimerTickMessage{}
	case MsgTypeToast:
		target = &ToastMessage{}
	case MsgTypeGameOver:
		target = &GameOverMessage{}
	case MsgTypeRestartVotes:
		target = &RestartVotesMessage{}
	case MsgTypeGameRestarted:
		target = &GameRestartedMessage{}
	case MsgTypePlayerLeft:
		target = &PlayerLeftMessage{}
	case MsgTypeError:
		target = &ErrorMessage{}
	default:
		return nil, fmt.Errorf("unknown message type: %s", m.Type)
	}

	if len(m.Payload) == 0 {
		return target, nil
	}

	err := json.Unmarshal(m.Payload, target)
	return target, err
}

// CreateMessage is the payload for MsgTypeCreate
type CreateMessage struct {
	Name      string `json:"name"`
	Seats     int    `json:"seats"`      // 0 for an open room started by the host
	Public    bool   `json:"public"`     // Listed in the public room list
	TurnTimer int    `json:"turn_timer"` // Seconds per turn, 0 disables the turn timer
}

// JoinMessage is the payload for MsgTypeJoin
type JoinMessage struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// StartMessage: empty.
type StartMessage struct{}

// SwapMessage is the payload for MsgTypeSwap
type SwapMessage struct {
	HandIndex   int `json:"hand_index"`
	FaceUpIndex int `json:"face_up_index"`
}

// EndSwapMessage: empty.
type EndSwapMessage struct{}

// PlayMessage is the payload for MsgTypePlay
type PlayMessage struct {
	Cards     []Card `json:"cards"`
	Interrupt bool   `json:"interrupt"`
}

// TakePileMessage is the payload for MsgTypeTakePile
type TakePileMessage struct {
	FaceDownSlot *int   `json:"face_down_slot,omitempty"` // Revealed face-down card taken along with the pile
	FaceUpCards  []Card `json:"face_up_cards,omitempty"`  // Face-up cards taken along with the pile
}

// FlipMessage is the payload for MsgTypeFlip
type FlipMessage struct {
	Slot int `json:"slot"`
}

// VoteRestartMessage: empty.
type VoteRestartMessage struct{}

// LeaveMessage: empty.
type LeaveMessage struct{}

// RoomJoinedMessage is the payload for MsgTypeRoomJoined
type RoomJoinedMessage struct {
	Code string `json:"code"`
	Seat int    `json:"seat"`
}

// InterruptWindow is the seat allowed to pile on more cards of Rank.
type InterruptWindow struct {
	Rank Rank `json:"rank"`
	Seat int  `json:"seat"`
}

// PlayerView is the public part of a seat.
type PlayerView struct {
	Index         int    `json:"index"`
	Name          string `json:"name"`
	HandCount     int    `json:"hand_count"`
	FaceUp        Slots  `json:"face_up"`
	FaceDownCount int    `json:"face_down_count"`
	Finished      bool   `json:"finished"`
	Connected     bool   `json:"connected"`
	Bot           bool   `json:"bot"`
	SwapDone      bool   `json:"swap_done"`
}

// StateMessage is the payload for MsgTypeState: the room as seen from one seat.
type StateMessage struct {
	Code          string           `json:"code"`
	Phase         Phase            `json:"phase"`
	MyIndex       int              `json:"my_index"`
	MyHand        []Card           `json:"my_hand"`
	MyFaceUp      Slots            `json:"my_face_up"`
	MyFaceDown    [SlotCount]bool  `json:"my_face_down"` // Which face-down slots are still occupied
	CurrentPlayer int              `json:"current_player"`
	Pile          []Card           `json:"pile"`
	DrawPileCount int              `json:"draw_pile_count"`
	EffectiveTop  *Rank            `json:"effective_top"`
	BurnNeeded    int              `json:"burn_needed"`
	Interrupt     *InterruptWindow `json:"interrupt,omitempty"`
	WinnersOrder  []int            `json:"winners_order"`
	TurnTimer     int              `json:"turn_timer"`
	Seats         int              `json:"seats"` // 0 for an open room
	AllJoined     bool             `json:"all_joined"`
	Players       []PlayerView     `json:"players"`
}

// CardPlayedMessage is the payload for MsgTypeCardPlayed
type CardPlayedMessage struct {
	Seat  int    `json:"seat"`
	Cards []Card `json:"cards"`
}

// BurnMessage is the payload for MsgTypeBurn
type BurnMessage struct {
	Seat int `json:"seat"`
}

// SwapTickMessage is the payload for MsgTypeSwapTick
type SwapTickMessage struct {
	Remaining int `json:"remaining"`
}

// TimerTickMessage is the payload for MsgTypeTimerTick
type TimerTickMessage struct {
	Remaining     int `json:"remaining"`
	CurrentPlayer int `json:"current_player"`
}

// ToastMessage is the payload for MsgTypeToast
type ToastMessage struct {
	Message string `json:"message"`
}

// GameOverMessage is the payload for MsgTypeGameOver: names in finishing order.
type GameOverMessage struct {
	Names []string `json:"names"`
}

// RestartVotesMessage is the payload for MsgTypeRestartVotes
type RestartVotesMessage struct {
	Ready int `json:"ready"`
	Total int `json:"total"`
}

// GameRestartedMessage: empty.
type GameRestartedMessage struct{}

// PlayerLeftMessage is the payload for MsgTypePlayerLeft
type PlayerLeftMessage struct {
	Name      string `json:"name"`
	Remaining int    `json:"remaining"`
}

// ErrorMessage is the payload for MsgTypeError
type ErrorMessage struct {
	Message string `json:"message"`
}
