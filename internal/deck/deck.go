package deck

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand"
)

// Deck is an ordered sequence of 52 distinct cards; the top (index 0) is the
// next card to be dealt.
type Deck struct {
	cards []Card
}

// New builds a fresh, unshuffled 52-card deck.
func New() *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}
	for suit := Clubs; suit <= Spades; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}
	return d
}

// NewShuffled builds a fresh 52-card deck and shuffles it with a
// cryptographically seeded source of randomness, per spec §3.
func NewShuffled() (*Deck, error) {
	d := New()
	rng, err := cryptoSeededRand()
	if err != nil {
		return nil, err
	}
	d.Shuffle(rng)
	return d, nil
}

// cryptoSeededRand returns a math/rand source seeded from crypto/rand. The
// shuffle itself is a plain Fisher-Yates, but its seed is unpredictable.
func cryptoSeededRand() (*mrand.Rand, error) {
	var seedBytes [8]byte
	if _, err := rand.Read(seedBytes[:]); err != nil {
		return nil, fmt.Errorf("deck: seeding shuffle rng: %w", err)
	}
	seed := int64(binary.LittleEndian.Uint64(seedBytes[:]))
	return mrand.New(mrand.NewSource(seed)), nil
}

// Shuffle randomizes the deck order in place using the supplied RNG.
func (d *Deck) Shuffle(rng *mrand.Rand) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal removes and returns the top card. ok is false if the deck is empty.
func (d *Deck) Deal() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	c := d.cards[0]
	d.cards = d.cards[1:]
	return c, true
}

// DealN deals up to n cards, stopping early if the deck runs out.
func (d *Deck) DealN(n int) []Card {
	out := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		c, ok := d.Deal()
		if !ok {
			break
		}
		out = append(out, c)
	}
	return out
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
