// Package engine implements the per-table hand/betting state machine: blind
// posting, street progression, action validation, side-pot computation, and
// showdown settlement. It is grounded on the teacher's internal/game
// package (table.go, engine.go, pot.go) but re-expressed around the
// identifier-keyed PlayerState/Game shapes and exact betting arithmetic this
// specification requires. It emits wire-ready protocol messages directly,
// except PlayerUpdates, which is emitted as a Personalized value that the
// broadcast router renders per viewer.
package engine

import (
	"math"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/tablestack/pokerserver/internal/deck"
	"github.com/tablestack/pokerserver/internal/evaluator"
	"github.com/tablestack/pokerserver/internal/protocol"
)

// Street is one betting round of a hand; Showdown is terminal.
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
	Showdown
)

func (s Street) String() string {
	switch s {
	case Preflop:
		return "Preflop"
	case Flop:
		return "Flop"
	case Turn:
		return "Turn"
	case River:
		return "River"
	case Showdown:
		return "Showdown"
	default:
		return "Unknown"
	}
}

// StageKind is the coarse table lifecycle stage.
type StageKind int

const (
	WaitingForPlayers StageKind = iota
	BettingRound
	ShowdownStage
	HandComplete
)

// MaxPot bounds the pot, mirroring the source's i32::MAX/2 ceiling with
// Go's int arithmetic.
const MaxPot = math.MaxInt32 / 2

// SidePot is the engine's internal side-pot representation; toProtocol
// converts it to the wire shape.
type SidePot struct {
	Amount   int
	Eligible []string
}

func (s SidePot) toProtocol() protocol.SidePot {
	return protocol.SidePot{Amount: s.Amount, Eligible: append([]string(nil), s.Eligible...)}
}

// Config holds the table-level constants a Game is created with.
type Config struct {
	SmallBlind    int
	BigBlind      int
	MaxBetPerHand int
}

// Game is a single table's authoritative state, exclusively owned and
// mutated under mu. No suspension point (channel send, I/O) ever occurs
// while mu is held; event emission enqueues onto a buffered channel.
type Game struct {
	mu sync.Mutex

	TableID string
	cfg     Config

	Players map[string]*PlayerState
	Seats   []string // stable seating order, insertion order

	deck      *deck.Deck
	Community []deck.Card

	Pot      int
	SidePots []SidePot

	Street     Street
	Stage      StageKind
	CurrentBet int // highest per-street contribution among non-folded players
	MinRaise   int

	dealerSeat int // index into Seats of the current dealer
	ToAct      string

	HandNumber int

	events chan Event
	logger *log.Logger
}

// Event pairs a table identifier with a wire-ready protocol message, the
// unit the broadcast router consumes from a Game's output channel.
type Event struct {
	TableID string
	Message any
}

// NewGame constructs an empty table in WaitingForPlayers.
func NewGame(tableID string, cfg Config, logger *log.Logger) *Game {
	if cfg.MaxBetPerHand <= 0 {
		cfg.MaxBetPerHand = 100_000
	}
	return &Game{
		TableID: tableID,
		cfg:     cfg,
		Players: make(map[string]*PlayerState),
		Stage:   WaitingForPlayers,
		events:  make(chan Event, 256),
		logger:  logger,
	}
}

// Events returns the channel the broadcast router drains. It is never
// closed while the Game is in use.
func (g *Game) Events() <-chan Event {
	return g.events
}

func (g *Game) emit(msg any) {
	select {
	case g.events <- Event{TableID: g.TableID, Message: msg}:
	default:
		if g.logger != nil {
			g.logger.Warn("dropping event, broadcast channel full", "table", g.TableID)
		}
	}
}

// Seat adds a new player to the table, or, if id is already seated (a
// reconnect), clears their sitting-out flag so they rejoin the active
// rotation instead of staying excluded from hands (spec §4.3). Seating a
// player mid-hand does not affect the hand in progress; they join the
// active rotation starting with the next hand. Either way, a
// PlayerConnected event announces it to the table.
func (g *Game) Seat(id, name string, chips int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.Players[id]; ok {
		p.SittingOut = false
	} else {
		g.Players[id] = NewPlayerState(id, name, chips)
		g.Seats = append(g.Seats, id)
	}
	g.emit(protocol.NewPlayerConnected(id))
}

// Disconnect flags id sitting out and announces a PlayerDisconnected event
// to the table (spec §4.3: DisconnectPlayer "broadcasts a PlayerDisconnected
// event to the player's table"). A disconnect for an unseated id still
// announces the event; there is nothing else to flag.
func (g *Game) Disconnect(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.Players[id]; ok {
		p.SittingOut = true
	}
	g.emit(protocol.NewPlayerDisconnected(id))
}

// MaybeStart begins a new hand if the table is WaitingForPlayers and has at
// least two eligible players, returning whether a hand was started.
func (g *Game) MaybeStart() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Stage != WaitingForPlayers {
		return false
	}
	if len(g.eligiblePlayerIDs()) < 2 {
		return false
	}
	g.startHand()
	return true
}

// ForceWaitingIfShortHanded implements the supervisor's periodic safety net
// (spec §4.7): if fewer than two non-sitting-out players remain, the table
// is forced back to WaitingForPlayers regardless of its current stage.
func (g *Game) ForceWaitingIfShortHanded() {
	g.mu.Lock()
	defer g.mu.Unlock()

	count := 0
	for _, id := range g.Seats {
		if !g.Players[id].SittingOut {
			count++
		}
	}
	if count < 2 && g.Stage != WaitingForPlayers {
		g.Stage = WaitingForPlayers
		g.ToAct = ""
	}
}

// SetSittingOut toggles a player's sitting-out flag (spec §4.4 SitOut /
// Return messages). It takes effect from the next hand; a player already
// in a hand keeps playing it out.
func (g *Game) SetSittingOut(id string, out bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.Players[id]
	if !ok {
		return ErrUnknownPlayer
	}
	p.SittingOut = out
	return nil
}

// Snapshot emits a PlayerUpdates event for the players currently seated,
// outside of an engine-driven mutation (e.g. on seat or reconnect).
func (g *Game) Snapshot() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.emitPlayerUpdates()
}

// eligiblePlayerIDs returns seated IDs (in seat order) with chips>0 and not
// sitting out: spec §4.2's criterion for being dealt into a hand.
func (g *Game) eligiblePlayerIDs() []string {
	var out []string
	for _, id := range g.Seats {
		if p := g.Players[id]; p != nil && p.eligibleForHand() {
			out = append(out, id)
		}
	}
	return out
}

// nonFoldedIDs returns IDs (in seat order) of players dealt into the
// current hand who have not folded.
func (g *Game) nonFoldedIDs() []string {
	var out []string
	for _, id := range g.Seats {
		if p := g.Players[id]; p != nil && p.HoleCards != nil && !p.Folded {
			out = append(out, id)
		}
	}
	return out
}

// canActIDs returns IDs of players still able to act this street.
func (g *Game) canActIDs() []string {
	var out []string
	for _, id := range g.Seats {
		if p := g.Players[id]; p != nil && p.HoleCards != nil && p.canAct() {
			out = append(out, id)
		}
	}
	return out
}

func cardStrings(cards []deck.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

func evaluatePlayer(p *PlayerState, community []deck.Card) evaluator.HandEvaluation {
	cards := make([]deck.Card, 0, 7)
	cards = append(cards, p.HoleCards...)
	cards = append(cards, community...)
	return evaluator.Evaluate(cards)
}
