package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablestack/pokerserver/internal/deck"
	"github.com/tablestack/pokerserver/internal/protocol"
)

func newTestGame(cfg Config) *Game {
	if cfg.SmallBlind == 0 {
		cfg.SmallBlind = 5
	}
	if cfg.BigBlind == 0 {
		cfg.BigBlind = 10
	}
	return NewGame("default", cfg, nil)
}

// stackAtHandEnd returns a player's chips as they stood when the last hand
// settled. Settling starts the next hand at once while two players still
// have chips, so that hand's blinds are added back.
func stackAtHandEnd(g *Game, id string) int {
	p := g.Players[id]
	return p.Chips + p.TotalBet
}

func TestHeadsUpFoldPreflopAwardsPotToRemainingPlayer(t *testing.T) {
	g := newTestGame(Config{})
	g.Seat("p1", "P1", 1000)
	g.Seat("p2", "P2", 1000)
	require.True(t, g.MaybeStart())

	// Dealer (p1) is SB, p2 is BB; p1 acts first preflop.
	require.Equal(t, "p1", g.ToAct)
	require.NoError(t, g.HandleAction("p1", protocol.ActionCall, 0))
	require.Equal(t, "p2", g.ToAct)
	require.NoError(t, g.HandleAction("p2", protocol.ActionCheck, 0))

	require.Equal(t, Flop, g.Street)
	require.Equal(t, "p2", g.ToAct)
	require.NoError(t, g.HandleAction("p2", protocol.ActionCheck, 0))
	require.Equal(t, "p1", g.ToAct)
	require.NoError(t, g.HandleAction("p1", protocol.ActionBet, 20))
	require.Equal(t, "p2", g.ToAct)
	require.NoError(t, g.HandleAction("p2", protocol.ActionFold, 0))

	total := stackAtHandEnd(g, "p1") + stackAtHandEnd(g, "p2")
	assert.Equal(t, 2000, total)
	assert.Greater(t, stackAtHandEnd(g, "p1"), 1000)
	assert.Less(t, stackAtHandEnd(g, "p2"), 1000)
}

func TestThreePlayerAllInSidePot(t *testing.T) {
	g := newTestGame(Config{})
	g.Players["p1"] = NewPlayerState("p1", "P1", 0)
	g.Players["p2"] = NewPlayerState("p2", "P2", 0)
	g.Players["p3"] = NewPlayerState("p3", "P3", 0)
	g.Seats = []string{"p1", "p2", "p3"}
	g.Stage = BettingRound
	g.Street = River

	g.Players["p1"].HoleCards = []deck.Card{deck.NewCard(deck.Spades, deck.Ace), deck.NewCard(deck.Hearts, deck.Ace)}
	g.Players["p1"].TotalBet = 50
	g.Players["p1"].AllIn = true

	g.Players["p2"].HoleCards = []deck.Card{deck.NewCard(deck.Spades, deck.King), deck.NewCard(deck.Hearts, deck.King)}
	g.Players["p2"].TotalBet = 200
	g.Players["p2"].AllIn = true

	g.Players["p3"].HoleCards = []deck.Card{deck.NewCard(deck.Spades, deck.Queen), deck.NewCard(deck.Hearts, deck.Queen)}
	g.Players["p3"].TotalBet = 200
	g.Players["p3"].AllIn = true

	g.Community = []deck.Card{
		deck.NewCard(deck.Clubs, deck.Seven), deck.NewCard(deck.Clubs, deck.Eight), deck.NewCard(deck.Clubs, deck.Nine),
		deck.NewCard(deck.Diamonds, deck.Jack), deck.NewCard(deck.Diamonds, deck.Three),
	}
	g.Pot = 450

	g.settleShowdown()

	assert.Equal(t, 150, stackAtHandEnd(g, "p1"))
	assert.Equal(t, 300, stackAtHandEnd(g, "p2"))
	assert.Equal(t, 0, stackAtHandEnd(g, "p3"))
}

func TestSplitPotOnIdenticalHand(t *testing.T) {
	g := newTestGame(Config{})
	g.Players["p1"] = NewPlayerState("p1", "P1", 900)
	g.Players["p2"] = NewPlayerState("p2", "P2", 900)
	g.Seats = []string{"p1", "p2"}
	g.Stage = BettingRound
	g.Street = River

	g.Players["p1"].HoleCards = []deck.Card{deck.NewCard(deck.Hearts, deck.Ace), deck.NewCard(deck.Hearts, deck.King)}
	g.Players["p1"].TotalBet = 100
	g.Players["p2"].HoleCards = []deck.Card{deck.NewCard(deck.Spades, deck.Ace), deck.NewCard(deck.Spades, deck.King)}
	g.Players["p2"].TotalBet = 100
	g.Community = []deck.Card{
		deck.NewCard(deck.Hearts, deck.Queen), deck.NewCard(deck.Hearts, deck.Jack), deck.NewCard(deck.Spades, deck.Ten),
		deck.NewCard(deck.Diamonds, deck.Two), deck.NewCard(deck.Clubs, deck.Three),
	}
	g.Pot = 200

	g.settleShowdown()

	assert.Equal(t, 1000, stackAtHandEnd(g, "p1"))
	assert.Equal(t, 1000, stackAtHandEnd(g, "p2"))
}

func TestTwoPlayerShowdownPairBeatsAceKing(t *testing.T) {
	g := newTestGame(Config{})
	g.Players["p1"] = NewPlayerState("p1", "P1", 900)
	g.Players["p2"] = NewPlayerState("p2", "P2", 900)
	g.Seats = []string{"p1", "p2"}
	g.Stage = BettingRound
	g.Street = River

	g.Players["p1"].HoleCards = []deck.Card{deck.NewCard(deck.Clubs, deck.Ace), deck.NewCard(deck.Diamonds, deck.King)}
	g.Players["p1"].TotalBet = 100
	g.Players["p2"].HoleCards = []deck.Card{deck.NewCard(deck.Hearts, deck.Two), deck.NewCard(deck.Diamonds, deck.Two)}
	g.Players["p2"].TotalBet = 100
	g.Community = []deck.Card{
		deck.NewCard(deck.Spades, deck.Seven), deck.NewCard(deck.Clubs, deck.Two), deck.NewCard(deck.Hearts, deck.Nine),
		deck.NewCard(deck.Diamonds, deck.Jack), deck.NewCard(deck.Spades, deck.Four),
	}
	g.Pot = 200

	g.settleShowdown()

	assert.Equal(t, 900, stackAtHandEnd(g, "p1"))
	assert.Equal(t, 1100, stackAtHandEnd(g, "p2"))
}

func TestCheckRejectedWhenBetOutstanding(t *testing.T) {
	g := newTestGame(Config{})
	g.Seat("p1", "P1", 1000)
	g.Seat("p2", "P2", 1000)
	require.True(t, g.MaybeStart())

	err := g.HandleAction(g.ToAct, protocol.ActionCheck, 0)
	assert.ErrorIs(t, err, ErrCannotCheck)
}

func TestBetBelowMinRaiseRejectedWithDeepStack(t *testing.T) {
	g := newTestGame(Config{})
	g.Seat("p1", "P1", 1000)
	g.Seat("p2", "P2", 1000)
	require.True(t, g.MaybeStart())
	require.NoError(t, g.HandleAction("p1", protocol.ActionCall, 0))
	require.NoError(t, g.HandleAction("p2", protocol.ActionCheck, 0))

	// Flop: min-raise resets to big blind (10); p2 acts first.
	err := g.HandleAction("p2", protocol.ActionBet, 5)
	assert.ErrorIs(t, err, ErrMinBet)
	require.NoError(t, g.HandleAction("p2", protocol.ActionBet, 10))
}

func TestNotYourTurnRejected(t *testing.T) {
	g := newTestGame(Config{})
	g.Seat("p1", "P1", 1000)
	g.Seat("p2", "P2", 1000)
	require.True(t, g.MaybeStart())

	other := "p2"
	if g.ToAct == "p2" {
		other = "p1"
	}
	err := g.HandleAction(other, protocol.ActionCheck, 0)
	assert.ErrorIs(t, err, ErrNotYourTurn)
}

func TestChipConservationAcrossAnAllInHand(t *testing.T) {
	g := newTestGame(Config{})
	g.Seat("p1", "P1", 50)
	g.Seat("p2", "P2", 200)
	require.True(t, g.MaybeStart())

	before := g.Players["p1"].Chips + g.Players["p2"].Chips + g.Pot
	require.NoError(t, g.HandleAction(g.ToAct, protocol.ActionAllIn, 0))
	after := g.Players["p1"].Chips + g.Players["p2"].Chips + g.Pot
	assert.Equal(t, before, after)
}

func drainEvents(g *Game) []any {
	var out []any
	for {
		select {
		case ev := <-g.Events():
			out = append(out, ev.Message)
		default:
			return out
		}
	}
}

func TestSeatEmitsPlayerConnected(t *testing.T) {
	g := newTestGame(Config{})
	g.Seat("p1", "P1", 1000)

	found := false
	for _, msg := range drainEvents(g) {
		if pc, ok := msg.(protocol.PlayerConnected); ok {
			assert.Equal(t, "p1", pc.PlayerID)
			found = true
		}
	}
	assert.True(t, found, "expected a PlayerConnected event")
}

func TestDisconnectEmitsPlayerDisconnectedAndFlagsSittingOut(t *testing.T) {
	g := newTestGame(Config{})
	g.Seat("p1", "P1", 1000)
	g.Seat("p2", "P2", 1000)
	drainEvents(g)

	g.Disconnect("p1")

	assert.True(t, g.Players["p1"].SittingOut)
	found := false
	for _, msg := range drainEvents(g) {
		if pd, ok := msg.(protocol.PlayerDisconnected); ok {
			assert.Equal(t, "p1", pd.PlayerID)
			found = true
		}
	}
	assert.True(t, found, "expected a PlayerDisconnected event")
}

func TestReconnectViaSeatClearsSittingOut(t *testing.T) {
	g := newTestGame(Config{})
	g.Seat("p1", "P1", 1000)
	g.Seat("p2", "P2", 1000)
	g.Disconnect("p1")
	require.True(t, g.Players["p1"].SittingOut)

	g.Seat("p1", "P1", 1000)

	assert.False(t, g.Players["p1"].SittingOut, "reseating should clear sitting-out so the player rejoins the rotation")
}
