package engine

import (
	"github.com/tablestack/pokerserver/internal/evaluator"
	"github.com/tablestack/pokerserver/internal/protocol"
)

// settleShowdown implements spec §4.2 "Showdown": evaluate every
// non-folded player's best hand, compute side pots, and distribute each
// pot among the players tying the best evaluation within its eligibility
// set. Caller must hold mu.
func (g *Game) settleShowdown() {
	nonFolded := g.nonFoldedIDs()
	evals := make(map[string]evaluator.HandEvaluation, len(nonFolded))
	for _, id := range nonFolded {
		evals[id] = evaluatePlayer(g.Players[id], g.Community)
	}

	pots := g.computeSidePots()
	g.SidePots = pots
	g.Pot = 0

	winnerSet := make(map[string]bool)
	for _, pot := range pots {
		winners := bestAmong(pot.Eligible, evals)
		for _, w := range winners {
			winnerSet[w] = true
		}
		distribute(pot.Amount, winners, g.Players)
	}

	hands := make([]protocol.ShowdownHand, 0, len(nonFolded))
	for _, id := range nonFolded {
		p := g.Players[id]
		ev := evals[id]
		hands = append(hands, protocol.ShowdownHand{
			PlayerID:    id,
			Cards:       cardStrings(p.HoleCards),
			Category:    ev.Category.String(),
			Description: ev.Description,
		})
	}

	winners := make([]string, 0, len(winnerSet))
	for _, id := range nonFolded {
		if winnerSet[id] {
			winners = append(winners, id)
		}
	}

	g.emit(protocol.Showdown{
		Type:           protocol.TypeShowdown,
		CommunityCards: cardStrings(g.Community),
		Hands:          hands,
		Winners:        winners,
	})

	g.Stage = HandComplete
	g.emitGameState()
	g.emitPlayerUpdates()
	g.endHand()
}

// bestAmong returns the ids among eligible whose evaluation ties the best.
func bestAmong(eligible []string, evals map[string]evaluator.HandEvaluation) []string {
	if len(eligible) == 0 {
		return nil
	}
	best := evals[eligible[0]]
	for _, id := range eligible[1:] {
		if evals[id].Compare(best) > 0 {
			best = evals[id]
		}
	}
	var winners []string
	for _, id := range eligible {
		if evals[id].Compare(best) == 0 {
			winners = append(winners, id)
		}
	}
	return winners
}

// distribute splits amount evenly among winners, crediting any remainder
// one chip at a time starting from the first winner in iteration order.
func distribute(amount int, winners []string, players map[string]*PlayerState) {
	if len(winners) == 0 {
		return
	}
	share := amount / len(winners)
	remainder := amount % len(winners)
	for i, id := range winners {
		credit := share
		if i < remainder {
			credit++
		}
		players[id].Chips += credit
	}
}

// endHand implements spec §4.2 "End of hand": advance the dealer and
// either start the next hand or return to WaitingForPlayers.
func (g *Game) endHand() {
	g.ToAct = ""
	if len(g.eligiblePlayerIDs()) >= 2 {
		g.startHand()
		return
	}
	g.Stage = WaitingForPlayers
}
