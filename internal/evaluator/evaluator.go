// Package evaluator implements the 5-of-7 Texas Hold'em hand evaluator: it
// picks the best 5-card hand out of 5 to 7 cards and returns a
// HandEvaluation that is totally ordered across all possible inputs.
//
// The algorithm mirrors the teacher's rank/suit-counting approach: bucket
// cards by rank and suit, then test categories from strongest to weakest,
// taking the first category that matches. It is pure and reentrant — no
// package state, safe to call concurrently from many goroutines.
package evaluator

import (
	"sort"

	"github.com/tablestack/pokerserver/internal/deck"
)

// Evaluate returns the best HandEvaluation for 5 to 7 cards. Fewer than 5
// cards (a malformed state that should never occur at a real showdown)
// evaluates as HighCard over whatever ranks are present; an empty hand
// evaluates as HighCard with primary rank 0.
func Evaluate(cards []deck.Card) HandEvaluation {
	if len(cards) == 0 {
		return HandEvaluation{Category: HighCard, Primary: 0, Description: "High Card"}
	}
	if len(cards) < 5 {
		ranks := sortedRanksDesc(cards)
		return HandEvaluation{
			Category:    HighCard,
			Primary:     ranks[0],
			Tiebreakers: ranks,
			Description: describe(HighCard, ranks),
		}
	}

	bySuit := make(map[deck.Suit][]deck.Card)
	rankCount := make(map[deck.Rank]int)
	for _, c := range cards {
		bySuit[c.Suit] = append(bySuit[c.Suit], c)
		rankCount[c.Rank]++
	}

	if sf, ok := straightFlush(bySuit); ok {
		return sf
	}
	if q, ok := fourOfAKind(rankCount); ok {
		return q
	}
	if fh, ok := fullHouse(rankCount); ok {
		return fh
	}
	if fl, ok := flush(bySuit); ok {
		return fl
	}
	if st, ok := straight(cards); ok {
		return st
	}
	if tk, ok := threeOfAKind(rankCount); ok {
		return tk
	}
	if tp, ok := twoPair(rankCount); ok {
		return tp
	}
	if p, ok := pair(rankCount); ok {
		return p
	}
	ranks := sortedRanksDesc(cards)
	top := ranks
	if len(top) > 5 {
		top = top[:5]
	}
	return HandEvaluation{
		Category:    HighCard,
		Primary:     top[0],
		Tiebreakers: top,
		Description: describe(HighCard, top),
	}
}

func sortedRanksDesc(cards []deck.Card) []deck.Rank {
	ranks := make([]deck.Rank, len(cards))
	for i, c := range cards {
		ranks[i] = c.Rank
	}
	sort.Sort(sort.Reverse(rankSlice(ranks)))
	return ranks
}

type rankSlice []deck.Rank

func (r rankSlice) Len() int           { return len(r) }
func (r rankSlice) Less(i, j int) bool { return r[i] < r[j] }
func (r rankSlice) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }

// dedupDesc returns the distinct ranks present, sorted descending.
func dedupDesc(cards []deck.Card) []deck.Rank {
	seen := make(map[deck.Rank]bool)
	var out []deck.Rank
	for _, c := range cards {
		if !seen[c.Rank] {
			seen[c.Rank] = true
			out = append(out, c.Rank)
		}
	}
	sort.Sort(sort.Reverse(rankSlice(out)))
	return out
}

// findStraight scans deduplicated descending ranks for five consecutive
// values, explicitly checking the ace-low wheel (A-2-3-4-5) which spec §9
// fixes at primary rank 5 with tiebreakers [5,4,3,2,1] — one below 6-high
// (2,3,4,5,6). Returns (primaryRank, tiebreakers, true) on success.
func findStraight(ranks []deck.Rank) (deck.Rank, []deck.Rank, bool) {
	present := make(map[deck.Rank]bool, len(ranks))
	for _, r := range ranks {
		present[r] = true
	}

	// Regular straights, checked high to low (Ace-high down to 6-high).
	for high := deck.Ace; high >= deck.Six; high-- {
		ok := true
		for d := deck.Rank(0); d < 5; d++ {
			if !present[high-d] {
				ok = false
				break
			}
		}
		if ok {
			tiebreakers := []deck.Rank{high, high - 1, high - 2, high - 3, high - 4}
			return high, tiebreakers, true
		}
	}

	// Ace-low wheel: A,5,4,3,2 — primary fixed at 5 per spec §9, with the
	// ace counted as rank 1 in the tiebreakers.
	if present[deck.Ace] && present[deck.Two] && present[deck.Three] && present[deck.Four] && present[deck.Five] {
		return deck.Five, []deck.Rank{deck.Five, deck.Four, deck.Three, deck.Two, deck.Rank(1)}, true
	}

	return 0, nil, false
}

func straight(cards []deck.Card) (HandEvaluation, bool) {
	primary, tiebreakers, ok := findStraight(dedupDesc(cards))
	if !ok {
		return HandEvaluation{}, false
	}
	return HandEvaluation{
		Category:    Straight,
		Primary:     primary,
		Tiebreakers: tiebreakers,
		Description: describe(Straight, []deck.Rank{primary}),
	}, true
}

// flushSuit returns the first suit (in a fixed iteration order) holding at
// least 5 cards, and that suit's cards.
func flushSuit(bySuit map[deck.Suit][]deck.Card) (deck.Suit, []deck.Card, bool) {
	for suit := deck.Clubs; suit <= deck.Spades; suit++ {
		if cs, ok := bySuit[suit]; ok && len(cs) >= 5 {
			return suit, cs, true
		}
	}
	return 0, nil, false
}

func flush(bySuit map[deck.Suit][]deck.Card) (HandEvaluation, bool) {
	_, cards, ok := flushSuit(bySuit)
	if !ok {
		return HandEvaluation{}, false
	}
	ranks := sortedRanksDesc(cards)
	top := ranks[:5]
	return HandEvaluation{
		Category:    Flush,
		Primary:     top[0],
		Tiebreakers: top,
		Description: describe(Flush, []deck.Rank{top[0]}),
	}, true
}

func straightFlush(bySuit map[deck.Suit][]deck.Card) (HandEvaluation, bool) {
	_, cards, ok := flushSuit(bySuit)
	if !ok {
		return HandEvaluation{}, false
	}
	primary, tiebreakers, ok := findStraight(dedupDesc(cards))
	if !ok {
		return HandEvaluation{}, false
	}
	return HandEvaluation{
		Category:    StraightFlush,
		Primary:     primary,
		Tiebreakers: tiebreakers,
		Description: describe(StraightFlush, []deck.Rank{primary}),
	}, true
}

// ranksWithCount returns the ranks (descending) that occur exactly n times.
func ranksWithCount(rankCount map[deck.Rank]int, n int) []deck.Rank {
	var out []deck.Rank
	for r, c := range rankCount {
		if c == n {
			out = append(out, r)
		}
	}
	sort.Sort(sort.Reverse(rankSlice(out)))
	return out
}

func kickers(rankCount map[deck.Rank]int, exclude map[deck.Rank]bool, n int) []deck.Rank {
	var out []deck.Rank
	for r := range rankCount {
		if !exclude[r] {
			out = append(out, r)
		}
	}
	sort.Sort(sort.Reverse(rankSlice(out)))
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func fourOfAKind(rankCount map[deck.Rank]int) (HandEvaluation, bool) {
	quads := ranksWithCount(rankCount, 4)
	if len(quads) == 0 {
		return HandEvaluation{}, false
	}
	quad := quads[0]
	kicker := kickers(rankCount, map[deck.Rank]bool{quad: true}, 1)
	tiebreakers := append([]deck.Rank{quad}, kicker...)
	return HandEvaluation{
		Category:    FourOfAKind,
		Primary:     quad,
		Tiebreakers: tiebreakers,
		Description: describe(FourOfAKind, []deck.Rank{quad}),
	}, true
}

func fullHouse(rankCount map[deck.Rank]int) (HandEvaluation, bool) {
	trips := ranksWithCount(rankCount, 3)
	pairs := ranksWithCount(rankCount, 2)
	if len(trips) == 0 {
		return HandEvaluation{}, false
	}

	tripRank := trips[0]
	var pairRank deck.Rank
	switch {
	case len(trips) > 1:
		pairRank = trips[1]
	case len(pairs) > 0:
		pairRank = pairs[0]
	default:
		return HandEvaluation{}, false
	}

	return HandEvaluation{
		Category:    FullHouse,
		Primary:     tripRank,
		Tiebreakers: []deck.Rank{tripRank, pairRank},
		Description: describe(FullHouse, []deck.Rank{tripRank, pairRank}),
	}, true
}

func threeOfAKind(rankCount map[deck.Rank]int) (HandEvaluation, bool) {
	trips := ranksWithCount(rankCount, 3)
	if len(trips) == 0 {
		return HandEvaluation{}, false
	}
	trip := trips[0]
	kickers := kickers(rankCount, map[deck.Rank]bool{trip: true}, 2)
	tiebreakers := append([]deck.Rank{trip}, kickers...)
	return HandEvaluation{
		Category:    ThreeOfAKind,
		Primary:     trip,
		Tiebreakers: tiebreakers,
		Description: describe(ThreeOfAKind, []deck.Rank{trip}),
	}, true
}

func twoPair(rankCount map[deck.Rank]int) (HandEvaluation, bool) {
	pairs := ranksWithCount(rankCount, 2)
	if len(pairs) < 2 {
		return HandEvaluation{}, false
	}
	hi, lo := pairs[0], pairs[1]
	kicker := kickers(rankCount, map[deck.Rank]bool{hi: true, lo: true}, 1)
	tiebreakers := append([]deck.Rank{hi, lo}, kicker...)
	return HandEvaluation{
		Category:    TwoPair,
		Primary:     hi,
		Tiebreakers: tiebreakers,
		Description: describe(TwoPair, []deck.Rank{hi, lo}),
	}, true
}

func pair(rankCount map[deck.Rank]int) (HandEvaluation, bool) {
	pairs := ranksWithCount(rankCount, 2)
	if len(pairs) == 0 {
		return HandEvaluation{}, false
	}
	p := pairs[0]
	kickers := kickers(rankCount, map[deck.Rank]bool{p: true}, 3)
	tiebreakers := append([]deck.Rank{p}, kickers...)
	return HandEvaluation{
		Category:    Pair,
		Primary:     p,
		Tiebreakers: tiebreakers,
		Description: describe(Pair, []deck.Rank{p}),
	}, true
}
