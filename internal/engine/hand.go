package engine

import "github.com/tablestack/pokerserver/internal/deck"

// newShuffledDeck builds a cryptographically shuffled deck, falling back to
// an unshuffled one in the (practically unreachable) case the OS entropy
// source fails, since a failed hand-start would otherwise wedge the table.
func (g *Game) newShuffledDeck() *deck.Deck {
	d, err := deck.NewShuffled()
	if err != nil {
		if g.logger != nil {
			g.logger.Error("falling back to unshuffled deck", "error", err)
		}
		return deck.New()
	}
	return d
}

// startHand implements spec §4.2 "Hand start". Caller must hold mu.
func (g *Game) startHand() {
	g.HandNumber++
	g.deck = g.newShuffledDeck()
	g.Community = nil
	g.Pot = 0
	g.SidePots = nil

	for _, id := range g.Seats {
		g.Players[id].resetForHand()
	}

	active := g.eligiblePlayerIDs()
	if len(active) < 2 {
		g.Stage = WaitingForPlayers
		g.ToAct = ""
		return
	}

	dealerIdx := g.rotateDealer(active)
	n := len(active)
	sbID := active[dealerIdx]
	bbID := active[(dealerIdx+1)%n]

	// Deal two hole cards, one at a time, starting left of the dealer.
	for round := 0; round < 2; round++ {
		for i := 0; i < n; i++ {
			id := active[(dealerIdx+1+i)%n]
			card, ok := g.deck.Deal()
			if !ok {
				continue
			}
			g.Players[id].HoleCards = append(g.Players[id].HoleCards, card)
		}
	}

	sb := g.Players[sbID]
	sbAmount := min(g.cfg.SmallBlind, sb.Chips)
	g.postBlind(sb, sbAmount)

	bb := g.Players[bbID]
	bbAmount := min(g.cfg.BigBlind, bb.Chips)
	g.postBlind(bb, bbAmount)

	g.CurrentBet = bb.CurrentBet
	g.MinRaise = 2 * g.cfg.BigBlind
	g.Street = Preflop
	g.Stage = BettingRound
	g.ToAct = active[(dealerIdx+2)%n]

	g.emitGameState()
	g.emitPlayerUpdates()
	g.emitActionRequired()
}

func (g *Game) postBlind(p *PlayerState, amount int) {
	p.Chips -= amount
	p.CurrentBet += amount
	p.TotalBet += amount
	g.Pot += amount
	if p.Chips == 0 {
		p.AllIn = true
	}
}

// rotateDealer advances the dealer button to the next eligible player
// (spec §9: "next player with chips>0 and not sitting-out") and returns
// that player's index within active.
func (g *Game) rotateDealer(active []string) int {
	if g.HandNumber == 1 {
		g.dealerSeat = 0
		return 0
	}

	prevDealerID := ""
	if g.dealerSeat >= 0 && g.dealerSeat < len(g.Seats) {
		prevDealerID = g.Seats[g.dealerSeat]
	}

	// Find prevDealerID's position among Seats, then walk forward to the
	// next seat that is currently eligible.
	startIdx := g.dealerSeat
	for i := 1; i <= len(g.Seats); i++ {
		idx := (startIdx + i) % len(g.Seats)
		id := g.Seats[idx]
		if g.Players[id].eligibleForHand() {
			g.dealerSeat = idx
			for ai, aid := range active {
				if aid == id {
					return ai
				}
			}
		}
	}

	// Fallback: previous dealer retained eligibility and stayed in Seats.
	for ai, aid := range active {
		if aid == prevDealerID {
			return ai
		}
	}
	return 0
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
