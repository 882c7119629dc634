package evaluator

import (
	"fmt"
	"strings"

	"github.com/tablestack/pokerserver/internal/deck"
)

// Category is a poker hand category, ordered weakest to strongest.
type Category int

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// HandEvaluation is the result of evaluating a 5-to-7 card hand: a category,
// a primary rank, and an ordered tiebreaker list. Totally ordered by
// (Category, Primary, Tiebreakers) lexicographic comparison.
type HandEvaluation struct {
	Category    Category
	Primary     deck.Rank
	Tiebreakers []deck.Rank
	Description string
}

// Compare returns -1, 0, or 1 as h is weaker than, equal to, or stronger
// than other.
func (h HandEvaluation) Compare(other HandEvaluation) int {
	if h.Category != other.Category {
		return cmpInt(int(h.Category), int(other.Category))
	}
	if h.Primary != other.Primary {
		return cmpInt(int(h.Primary), int(other.Primary))
	}
	n := len(h.Tiebreakers)
	if len(other.Tiebreakers) < n {
		n = len(other.Tiebreakers)
	}
	for i := 0; i < n; i++ {
		if h.Tiebreakers[i] != other.Tiebreakers[i] {
			return cmpInt(int(h.Tiebreakers[i]), int(other.Tiebreakers[i]))
		}
	}
	return cmpInt(len(h.Tiebreakers), len(other.Tiebreakers))
}

// Less reports whether h is strictly weaker than other.
func (h HandEvaluation) Less(other HandEvaluation) bool {
	return h.Compare(other) < 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func describe(cat Category, ranks []deck.Rank) string {
	switch cat {
	case StraightFlush:
		return fmt.Sprintf("Straight Flush, %s high", ranks[0])
	case FourOfAKind:
		return fmt.Sprintf("Four of a Kind, %ss", ranks[0])
	case FullHouse:
		return fmt.Sprintf("Full House, %ss over %ss", ranks[0], ranks[1])
	case Flush:
		return fmt.Sprintf("Flush, %s high", ranks[0])
	case Straight:
		return fmt.Sprintf("Straight, %s high", ranks[0])
	case ThreeOfAKind:
		return fmt.Sprintf("Three of a Kind, %ss", ranks[0])
	case TwoPair:
		return fmt.Sprintf("Two Pair, %ss and %ss", ranks[0], ranks[1])
	case Pair:
		return fmt.Sprintf("Pair of %ss", ranks[0])
	default:
		parts := make([]string, 0, len(ranks))
		for _, r := range ranks {
			parts = append(parts, r.String())
		}
		return fmt.Sprintf("High Card, %s", strings.Join(parts, ","))
	}
}
