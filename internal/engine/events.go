package engine

import "github.com/tablestack/pokerserver/internal/protocol"

// Personalized is implemented by event payloads whose wire encoding
// differs per recipient — currently only PlayerUpdates, whose hole_cards
// field must reveal a player's own cards while hiding everyone else's
// (spec §9: "forbids revealing any other player's hole cards before
// Showdown"). The broadcast router type-switches on this interface.
type Personalized interface {
	For(viewerID string) any
}

const hiddenCard = "[hidden]"

type playerUpdatesEvent struct {
	rows []protocol.PlayerView
	ids  []string // same order as rows, for own-card matching
}

// For builds the PlayerUpdates snapshot as viewerID should see it: their
// own hole cards are revealed, everyone else's are redacted.
func (e playerUpdatesEvent) For(viewerID string) any {
	players := make([]protocol.PlayerView, len(e.rows))
	for i, row := range e.rows {
		players[i] = row
		if e.ids[i] != viewerID && len(row.HoleCards) > 0 {
			players[i].HoleCards = []string{hiddenCard}
		}
	}
	return protocol.PlayerUpdates{Type: protocol.TypePlayerUpdates, Players: players}
}

func (g *Game) emitGameState() {
	dealerID := ""
	if g.dealerSeat >= 0 && g.dealerSeat < len(g.Seats) {
		dealerID = g.Seats[g.dealerSeat]
	}
	g.emit(protocol.GameStateUpdate{
		Type:           protocol.TypeGameStateUpdate,
		GameID:         g.TableID,
		HandNumber:     g.HandNumber,
		Pot:            g.Pot,
		SidePots:       toProtocolSidePots(g.SidePots),
		CommunityCards: cardStrings(g.Community),
		CurrentStreet:  g.Street.String(),
		DealerPosition: dealerID,
	})
}

func toProtocolSidePots(pots []SidePot) []protocol.SidePot {
	out := make([]protocol.SidePot, len(pots))
	for i, p := range pots {
		out[i] = p.toProtocol()
	}
	return out
}

func (g *Game) emitPlayerUpdates() {
	rows := make([]protocol.PlayerView, 0, len(g.Seats))
	ids := make([]string, 0, len(g.Seats))
	for _, id := range g.Seats {
		p := g.Players[id]
		rows = append(rows, protocol.PlayerView{
			PlayerID:     p.ID,
			PlayerName:   p.Name,
			Chips:        p.Chips,
			CurrentBet:   p.CurrentBet,
			HasActed:     p.HasActed,
			IsAllIn:      p.AllIn,
			IsFolded:     p.Folded,
			IsSittingOut: p.SittingOut,
			HoleCards:    cardStrings(p.HoleCards),
		})
		ids = append(ids, id)
	}
	g.emit(playerUpdatesEvent{rows: rows, ids: ids})
}

func (g *Game) emitActionRequired() {
	if g.ToAct == "" {
		return
	}
	p := g.Players[g.ToAct]
	g.emit(protocol.ActionRequired{
		Type:        protocol.TypeActionRequired,
		PlayerID:    p.ID,
		PlayerName:  p.Name,
		MinRaise:    g.MinRaise,
		CurrentBet:  g.CurrentBet,
		PlayerChips: p.Chips,
	})
}
