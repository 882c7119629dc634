// Package protocol implements the JSON wire format described in spec §6: a
// tagged union of client intent messages and server event messages, plus an
// optional signed envelope. Every message is a plain JSON object
// discriminated by a "type" field (spec §4.4), grounded on the teacher's
// internal/protocol/messages.go tagged-union shape but re-targeted from
// MessagePack to JSON.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Client -> server message type discriminators.
const (
	TypeConnect = "Connect"
	TypeAction  = "Action"
	TypeChat    = "Chat"
	TypeSitOut  = "SitOut"
	TypeReturn  = "Return"
	TypePing    = "Ping"
)

// Server -> client message type discriminators.
const (
	TypeConnected          = "Connected"
	TypeGameStateUpdate    = "GameStateUpdate"
	TypePlayerUpdates      = "PlayerUpdates"
	TypeActionRequired     = "ActionRequired"
	TypePlayerConnected    = "PlayerConnected"
	TypePlayerDisconnected = "PlayerDisconnected"
	TypeShowdown           = "Showdown"
	TypeChatOut            = "Chat"
	TypeError              = "Error"
	TypePong               = "Pong"
)

// ErrUnknownMessageType is returned when a frame's "type" field does not
// match any recognized message.
var ErrUnknownMessageType = errors.New("protocol: unknown message type")

// ErrAmountOutOfRange is returned when a Bet/Raise amount fails the codec's
// range check (spec §4.4: positive, <= MAX_PLAYER_CHIPS, fits in int32).
var ErrAmountOutOfRange = errors.New("protocol: amount out of range")

// --- Client -> server messages ---------------------------------------

// ActionKind enumerates the player actions carried by an Action message.
type ActionKind string

const (
	ActionFold  ActionKind = "Fold"
	ActionCheck ActionKind = "Check"
	ActionCall  ActionKind = "Call"
	ActionAllIn ActionKind = "AllIn"
	ActionBet   ActionKind = "Bet"
	ActionRaise ActionKind = "Raise"
)

// ClientMessage is the interface implemented by every inbound intent
// message. It carries no behavior; it exists purely so Decode can return a
// single type and callers can type-switch.
type ClientMessage interface {
	clientMessage()
}

// ConnectMsg requests seating at the default table.
type ConnectMsg struct{}

func (ConnectMsg) clientMessage() {}

// ActionMsg routes a player's decision to the engine. Amount is only
// meaningful for Bet/Raise.
type ActionMsg struct {
	Action ActionKind
	Amount int
}

func (ActionMsg) clientMessage() {}

// ChatMsg is broadcast to the table.
type ChatMsg struct {
	Text string
}

func (ChatMsg) clientMessage() {}

// SitOutMsg / ReturnMsg toggle the sitting-out flag.
type SitOutMsg struct{}
type ReturnMsg struct{}

func (SitOutMsg) clientMessage() {}
func (ReturnMsg) clientMessage() {}

// PingMsg is replied to with a Pong echoing Timestamp.
type PingMsg struct {
	Timestamp uint64
}

func (PingMsg) clientMessage() {}

// envelope is the minimal shape needed to discriminate an inbound frame.
type envelope struct {
	Type string `json:"type"`
}

// rawAction mirrors the two accepted wire shapes for an Action message:
//
//	{"type":"Action","action":"Fold"}
//	{"type":"Action","action":{"Bet":100}}
//	{"type":"Action","action":"Bet","amount":100}
type rawAction struct {
	Type   string          `json:"type"`
	Action json.RawMessage `json:"action"`
	Amount int             `json:"amount"`
}

type rawChat struct {
	Text string `json:"text"`
}

type rawPing struct {
	Timestamp uint64 `json:"timestamp"`
}

// MaxPlayerChips bounds any single Bet/Raise amount accepted by the codec
// (spec §4.4).
const MaxPlayerChips = 1_000_000

// Decode parses a raw inbound frame into a ClientMessage. Unknown "type"
// values are reported via ErrUnknownMessageType so the caller can log and
// drop per spec §4.4; malformed numeric amounts return ErrAmountOutOfRange
// before the engine ever sees them.
func Decode(data []byte) (ClientMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol: decode envelope: %w", err)
	}

	switch env.Type {
	case TypeConnect:
		return ConnectMsg{}, nil
	case TypeChat:
		var rc rawChat
		if err := json.Unmarshal(data, &rc); err != nil {
			return nil, fmt.Errorf("protocol: decode chat: %w", err)
		}
		return ChatMsg{Text: rc.Text}, nil
	case TypeSitOut:
		return SitOutMsg{}, nil
	case TypeReturn:
		return ReturnMsg{}, nil
	case TypePing:
		var rp rawPing
		if err := json.Unmarshal(data, &rp); err != nil {
			return nil, fmt.Errorf("protocol: decode ping: %w", err)
		}
		return PingMsg{Timestamp: rp.Timestamp}, nil
	case TypeAction:
		return decodeAction(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}
}

func decodeAction(data []byte) (ClientMessage, error) {
	var ra rawAction
	if err := json.Unmarshal(data, &ra); err != nil {
		return nil, fmt.Errorf("protocol: decode action: %w", err)
	}
	if len(ra.Action) == 0 {
		return nil, errors.New("protocol: action message missing \"action\" field")
	}

	// Try the simple-string form first: "Fold" | "Check" | "Call" | "AllIn" | "Bet" | "Raise".
	var simple string
	if err := json.Unmarshal(ra.Action, &simple); err == nil {
		kind := ActionKind(simple)
		switch kind {
		case ActionFold, ActionCheck, ActionCall, ActionAllIn:
			return ActionMsg{Action: kind}, nil
		case ActionBet, ActionRaise:
			if err := validateAmount(ra.Amount); err != nil {
				return nil, err
			}
			return ActionMsg{Action: kind, Amount: ra.Amount}, nil
		default:
			return nil, fmt.Errorf("protocol: unrecognized action %q", simple)
		}
	}

	// Fall back to the object form: {"Bet": n} or {"Raise": n}.
	var obj map[string]int
	if err := json.Unmarshal(ra.Action, &obj); err != nil {
		return nil, fmt.Errorf("protocol: decode action payload: %w", err)
	}
	if amount, ok := obj["Bet"]; ok {
		if err := validateAmount(amount); err != nil {
			return nil, err
		}
		return ActionMsg{Action: ActionBet, Amount: amount}, nil
	}
	if amount, ok := obj["Raise"]; ok {
		if err := validateAmount(amount); err != nil {
			return nil, err
		}
		return ActionMsg{Action: ActionRaise, Amount: amount}, nil
	}
	return nil, errors.New("protocol: action object must contain \"Bet\" or \"Raise\"")
}

func validateAmount(amount int) error {
	if amount <= 0 || amount > MaxPlayerChips {
		return fmt.Errorf("%w: %d", ErrAmountOutOfRange, amount)
	}
	return nil
}

// --- Server -> client messages -----------------------------------------

// PlayerView is one player's row in a PlayerUpdates snapshot.
type PlayerView struct {
	PlayerID     string   `json:"player_id"`
	PlayerName   string   `json:"player_name"`
	Chips        int      `json:"chips"`
	CurrentBet   int      `json:"current_bet"`
	HasActed     bool     `json:"has_acted"`
	IsAllIn      bool     `json:"is_all_in"`
	IsFolded     bool     `json:"is_folded"`
	IsSittingOut bool     `json:"is_sitting_out"`
	HoleCards    []string `json:"hole_cards"`
}

// SidePot is wire-encoded as a 2-element JSON array: [amount, [ids...]].
type SidePot struct {
	Amount   int
	Eligible []string
}

func (s SidePot) MarshalJSON() ([]byte, error) {
	eligible := s.Eligible
	if eligible == nil {
		eligible = []string{}
	}
	return json.Marshal([2]any{s.Amount, eligible})
}

func (s *SidePot) UnmarshalJSON(data []byte) error {
	var tuple [2]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[0], &s.Amount); err != nil {
		return err
	}
	return json.Unmarshal(tuple[1], &s.Eligible)
}

// ShowdownHand is wire-encoded as a 4-element JSON array:
// [player_id, [cards...], category, description].
type ShowdownHand struct {
	PlayerID    string
	Cards       []string
	Category    string
	Description string
}

func (h ShowdownHand) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]any{h.PlayerID, h.Cards, h.Category, h.Description})
}

func (h *ShowdownHand) UnmarshalJSON(data []byte) error {
	var tuple [4]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[0], &h.PlayerID); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[1], &h.Cards); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[2], &h.Category); err != nil {
		return err
	}
	return json.Unmarshal(tuple[3], &h.Description)
}

// Connected confirms seating and reports the player's identifier.
type Connected struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
}

// NewConnected constructs a Connected message.
func NewConnected(playerID string) Connected {
	return Connected{Type: TypeConnected, PlayerID: playerID}
}

// GameStateUpdate reports table-wide state.
type GameStateUpdate struct {
	Type           string    `json:"type"`
	GameID         string    `json:"game_id"`
	HandNumber     int       `json:"hand_number"`
	Pot            int       `json:"pot"`
	SidePots       []SidePot `json:"side_pots"`
	CommunityCards []string  `json:"community_cards"`
	CurrentStreet  string    `json:"current_street"`
	DealerPosition string    `json:"dealer_position"`
}

// PlayerUpdates is a full per-player snapshot.
type PlayerUpdates struct {
	Type    string       `json:"type"`
	Players []PlayerView `json:"players"`
}

// ActionRequired asks a specific player to act.
type ActionRequired struct {
	Type        string `json:"type"`
	PlayerID    string `json:"player_id"`
	PlayerName  string `json:"player_name"`
	MinRaise    int    `json:"min_raise"`
	CurrentBet  int    `json:"current_bet"`
	PlayerChips int    `json:"player_chips"`
}

// PlayerConnected / PlayerDisconnected announce a connection-lifecycle event.
type PlayerConnected struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
}

type PlayerDisconnected struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
}

func NewPlayerConnected(id string) PlayerConnected       { return PlayerConnected{Type: TypePlayerConnected, PlayerID: id} }
func NewPlayerDisconnected(id string) PlayerDisconnected { return PlayerDisconnected{Type: TypePlayerDisconnected, PlayerID: id} }

// Showdown reveals the hand.
type Showdown struct {
	Type           string         `json:"type"`
	CommunityCards []string       `json:"community_cards"`
	Hands          []ShowdownHand `json:"hands"`
	Winners        []string       `json:"winners"`
}

// Chat is broadcast chat text from a player.
type Chat struct {
	Type       string `json:"type"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
}

// Error carries a single human-readable message; never internal details.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewError(message string) Error { return Error{Type: TypeError, Message: message} }

// Ping / Pong carry a millisecond timestamp the client can use for RTT.
type Ping struct {
	Type      string `json:"type"`
	Timestamp uint64 `json:"timestamp"`
}

type Pong struct {
	Type      string `json:"type"`
	Timestamp uint64 `json:"timestamp"`
}

func NewPing(ts uint64) Ping { return Ping{Type: TypePing, Timestamp: ts} }
func NewPong(ts uint64) Pong { return Pong{Type: TypePong, Timestamp: ts} }

// Encode marshals any server message value to its wire JSON form. Callers
// pass a value (not pointer) of one of the concrete types above, each of
// which carries its own "type" tag.
func Encode(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %T: %w", msg, err)
	}
	return data, nil
}
