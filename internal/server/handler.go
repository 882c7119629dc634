package server

import (
	"time"

	"github.com/tablestack/pokerserver/internal/conn"
	"github.com/tablestack/pokerserver/internal/protocol"
)

// handlerAdapter routes decoded client messages from a conn.Connection into
// the session registry and the default table's engine.Game, implementing
// conn.Handler.
type handlerAdapter struct {
	s  *Server
	ip string
}

func (h *handlerAdapter) HandleConnect(c *conn.Connection) {
	confirmed, err := h.s.registry.SeatPlayer(c.PlayerID(), DefaultTableID)
	if err != nil {
		c.SendMessage(protocol.NewError(err.Error()))
		return
	}
	c.SetTableID(DefaultTableID)
	c.SendMessage(confirmed)
}

func (h *handlerAdapter) HandleAction(c *conn.Connection, msg protocol.ActionMsg) {
	table, ok := h.s.registry.Table(c.TableID())
	if !ok {
		c.SendMessage(protocol.NewError("not seated at a table"))
		return
	}
	if err := table.HandleAction(c.PlayerID(), msg.Action, msg.Amount); err != nil {
		c.SendMessage(protocol.NewError(err.Error()))
	}
}

func (h *handlerAdapter) HandleChat(c *conn.Connection, msg protocol.ChatMsg) {
	table, ok := h.s.registry.Table(c.TableID())
	if !ok {
		return
	}
	p, ok := h.s.registry.Player(c.PlayerID())
	if !ok {
		return
	}
	chat := protocol.Chat{
		Type:       protocol.TypeChatOut,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Text:       msg.Text,
		Timestamp:  time.Now().Unix(),
	}
	for _, rc := range h.s.receiversFor(table.TableID) {
		rc.SendMessage(chat)
	}
}

func (h *handlerAdapter) HandleSitOut(c *conn.Connection, out bool) {
	table, ok := h.s.registry.Table(c.TableID())
	if !ok {
		return
	}
	_ = table.SetSittingOut(c.PlayerID(), out)
}

func (h *handlerAdapter) HandleDisconnect(c *conn.Connection) {
	h.s.registry.DisconnectPlayer(c.PlayerID())
	h.s.removeReceiver(DefaultTableID, c)
	h.s.registry.Unregister(h.ip)
}
