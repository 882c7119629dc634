package engine

import "sort"

// computeSidePots implements the layer-peeling algorithm of spec §4.2: it
// groups all contributions made this hand (by non-folded and folded
// players alike) into layers bounded by the distinct TotalBet values of
// non-folded players, each layer's eligibility set being the non-folded
// players whose contribution reached it. This replaces the source's
// bucketing accumulator flagged in spec §9 as subtly different.
func (g *Game) computeSidePots() []SidePot {
	nonFolded := g.nonFoldedIDs()
	if len(nonFolded) == 0 {
		return nil
	}

	levels := distinctAscending(nonFolded, g.Players)

	var pots []SidePot
	prev := 0
	for _, level := range levels {
		var eligible []string
		for _, id := range nonFolded {
			if g.Players[id].TotalBet >= level {
				eligible = append(eligible, id)
			}
		}

		amount := 0
		for _, id := range g.Seats {
			p := g.Players[id]
			if p.TotalBet <= prev {
				continue
			}
			contribution := p.TotalBet
			if contribution > level {
				contribution = level
			}
			amount += contribution - prev
		}

		if amount > 0 {
			pots = append(pots, SidePot{Amount: amount, Eligible: eligible})
		}
		prev = level
	}

	// Any contribution beyond the highest non-folded level (a folded
	// player who raised more than anyone still in the hand called) has no
	// eligible taker among non-folded players; fold it into the top pot so
	// no chip is lost, per spec §9's "folded players absorbed into the
	// lowest layer their contribution reached" — here, the only layer left.
	extra := 0
	for _, id := range g.Seats {
		if p := g.Players[id]; p.TotalBet > prev {
			extra += p.TotalBet - prev
		}
	}
	if extra > 0 {
		if len(pots) > 0 {
			pots[len(pots)-1].Amount += extra
		} else {
			pots = append(pots, SidePot{Amount: extra, Eligible: nonFolded})
		}
	}

	return pots
}

func distinctAscending(nonFolded []string, players map[string]*PlayerState) []int {
	seen := make(map[int]bool)
	var levels []int
	for _, id := range nonFolded {
		v := players[id].TotalBet
		if !seen[v] {
			seen[v] = true
			levels = append(levels, v)
		}
	}
	sort.Ints(levels)
	return levels
}
