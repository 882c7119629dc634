package engine

import "github.com/tablestack/pokerserver/internal/deck"

// PlayerState is the engine's view of a seated player, grounded on the
// teacher's game.Player but trimmed to the fields the state machine itself
// needs (display/AI/position concerns live in the session and protocol
// layers instead). Mutated only by the Game holding the table lock.
type PlayerState struct {
	ID         string
	Name       string
	Chips      int
	CurrentBet int // contribution so far this street
	TotalBet   int // contribution so far this hand, used for side pots
	HoleCards  []deck.Card
	Folded     bool
	AllIn      bool
	SittingOut bool
	HasActed   bool
}

// NewPlayerState creates a fresh player record with no cards and no bets.
func NewPlayerState(id, name string, chips int) *PlayerState {
	return &PlayerState{ID: id, Name: name, Chips: chips}
}

func (p *PlayerState) resetForHand() {
	p.HoleCards = nil
	p.CurrentBet = 0
	p.TotalBet = 0
	p.Folded = false
	p.AllIn = false
	p.HasActed = false
}

func (p *PlayerState) resetForStreet() {
	p.CurrentBet = 0
	p.HasActed = false
}

// eligibleForHand reports whether p should be dealt into the next hand.
func (p *PlayerState) eligibleForHand() bool {
	return !p.SittingOut && p.Chips > 0
}

// canAct reports whether p can still take a betting action this street.
func (p *PlayerState) canAct() bool {
	return !p.Folded && !p.AllIn && p.Chips > 0
}
