package engine

import (
	"fmt"

	"github.com/tablestack/pokerserver/internal/protocol"
)

// HandleAction routes a player's decision through the betting rules of
// spec §4.2. On success the engine's state has been mutated and fresh
// events emitted; on failure the state is unchanged.
func (g *Game) HandleAction(playerID string, kind protocol.ActionKind, amount int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Stage != BettingRound {
		return ErrGameNotBetting
	}
	p, ok := g.Players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if g.ToAct != playerID {
		return ErrNotYourTurn
	}

	switch kind {
	case protocol.ActionFold:
		p.Folded = true
		p.HasActed = true

	case protocol.ActionCheck:
		if g.CurrentBet-p.CurrentBet != 0 {
			return ErrCannotCheck
		}
		p.HasActed = true

	case protocol.ActionCall:
		call := min(g.CurrentBet-p.CurrentBet, p.Chips)
		if err := g.addToPot(call); err != nil {
			return err
		}
		p.Chips -= call
		p.CurrentBet += call
		p.TotalBet += call
		p.HasActed = true
		if p.Chips == 0 {
			p.AllIn = true
		}

	case protocol.ActionBet:
		if g.CurrentBet != 0 {
			return ErrCannotBet
		}
		if err := g.validateBetAmount(p, amount); err != nil {
			return err
		}
		if err := g.addToPot(amount); err != nil {
			return err
		}
		p.Chips -= amount
		p.CurrentBet = amount
		p.TotalBet += amount
		g.CurrentBet = amount
		g.MinRaise = 2 * amount
		p.HasActed = true
		if p.Chips == 0 {
			p.AllIn = true
		}

	case protocol.ActionRaise:
		if g.CurrentBet == 0 {
			return ErrCannotRaise
		}
		total := g.CurrentBet + amount
		if total <= p.CurrentBet {
			return ErrInvalidBet
		}
		if total < g.MinRaise {
			return ErrMinBet
		}
		debit := total - p.CurrentBet
		if debit > p.Chips {
			return ErrExceedsChips
		}
		if total > g.cfg.MaxBetPerHand {
			return ErrExceedsMax
		}
		if err := g.addToPot(debit); err != nil {
			return err
		}
		p.Chips -= debit
		p.CurrentBet = total
		p.TotalBet += debit
		g.CurrentBet = total
		g.MinRaise = 2 * total
		p.HasActed = true
		if p.Chips == 0 {
			p.AllIn = true
		}

	case protocol.ActionAllIn:
		amount := p.Chips
		if err := g.addToPot(amount); err != nil {
			return err
		}
		p.Chips = 0
		p.CurrentBet += amount
		p.TotalBet += amount
		p.AllIn = true
		p.HasActed = true
		if p.CurrentBet > g.CurrentBet {
			g.CurrentBet = p.CurrentBet
			g.MinRaise = 2 * p.CurrentBet
		}

	default:
		return fmt.Errorf("engine: %w: %q", ErrInvalidBet, kind)
	}

	g.afterAction()
	return nil
}

// validateBetAmount checks a Bet(amount) against spec §4.2: positive, at
// most the player's chips, at most the table max, and at least min-raise
// unless the player's stack is too short to meet it.
func (g *Game) validateBetAmount(p *PlayerState, amount int) error {
	if amount <= 0 {
		return ErrInvalidBet
	}
	if amount > p.Chips {
		return ErrExceedsChips
	}
	if amount > g.cfg.MaxBetPerHand {
		return ErrExceedsMax
	}
	if p.Chips > g.MinRaise && amount < g.MinRaise {
		return ErrMinBet
	}
	return nil
}

// addToPot performs the checked addition against MaxPot required by spec
// §4.2; it reports failure without mutating g.Pot.
func (g *Game) addToPot(amount int) error {
	if amount < 0 || g.Pot+amount > MaxPot {
		return ErrPotOverflow
	}
	g.Pot += amount
	return nil
}

// afterAction advances turn order, resolves an immediate fold-win, or
// advances the street once betting is complete (spec §4.2 "Advance").
// Caller must hold mu.
func (g *Game) afterAction() {
	nonFolded := g.nonFoldedIDs()
	if len(nonFolded) <= 1 {
		g.resolveFoldWin(nonFolded)
		return
	}

	if !g.bettingRoundComplete() {
		g.advanceToAct()
		g.emitPlayerUpdates()
		g.emitActionRequired()
		return
	}

	g.advanceStreets()
}

// bettingRoundComplete implements spec §4.2's advance condition: every
// non-folded, non-all-in player has acted, and every non-folded player's
// current bet matches the table bet or they are all-in.
func (g *Game) bettingRoundComplete() bool {
	for _, id := range g.nonFoldedIDs() {
		p := g.Players[id]
		if !p.AllIn && !p.HasActed {
			return false
		}
		if p.CurrentBet != g.CurrentBet && !p.AllIn {
			return false
		}
	}
	return true
}

// advanceToAct moves player-to-act to the next seated player (in table
// order, starting just after the current actor) still able to act.
func (g *Game) advanceToAct() {
	canAct := canActSet(g.canActIDs())
	if len(canAct) == 0 {
		g.ToAct = ""
		return
	}
	start := indexOf(g.Seats, g.ToAct)
	if start == -1 {
		start = 0
	}
	for i := 1; i <= len(g.Seats); i++ {
		id := g.Seats[(start+i)%len(g.Seats)]
		if canAct[id] {
			g.ToAct = id
			return
		}
	}
	g.ToAct = ""
}

func canActSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
