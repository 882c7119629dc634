// Package session implements the player/connection registry of spec §4.3:
// admission control, player lifecycle, seating, and session token expiry.
// Grounded on the teacher's internal/auth.Validator (an external identity
// check reshaped here into local session bookkeeping) and internal/gameid
// (adapted for session token generation, swapped onto google/uuid).
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tablestack/pokerserver/internal/engine"
	"github.com/tablestack/pokerserver/internal/protocol"
)

var (
	ErrUnknownPlayer    = errors.New("session: unknown player")
	ErrUnknownTable     = errors.New("session: unknown table")
	ErrNoChips          = errors.New("session: player has no chips")
	ErrAlreadySeated    = errors.New("session: player already seated")
	ErrSessionExpired   = errors.New("session: session token expired")
	ErrTooManyTotal     = errors.New("session: too many total connections")
	ErrTooManyPerIP     = errors.New("session: too many connections from this address")
)

// ServerPlayer is the registry's view of a player, distinct from the
// engine's PlayerState: it tracks connection-lifecycle concerns the engine
// never needs (spec §3). Delivery to a connected player's socket goes
// through the server's table-indexed receiver set, not through this
// record — ServerPlayer tracks identity and admission state only.
type ServerPlayer struct {
	ID        string
	Name      string
	Chips     int
	TableID   string
	Connected bool
	Token     string
	CreatedAt time.Time
}

// Config bounds admission per spec §6's environment variables.
type Config struct {
	MaxConnections      int
	MaxConnectionsPerIP int
	SessionTokenExpiry  time.Duration
}

// Registry owns the players map, the games map, and the connection
// counters behind a single lock, released before any channel send (spec
// §5, shared-resource policy ii).
type Registry struct {
	mu  sync.Mutex
	cfg Config

	players map[string]*ServerPlayer
	games   map[string]*engine.Game

	totalConnections int
	perIP            map[string]int

	log zerolog.Logger
}

// New constructs an empty registry.
func New(cfg Config, log zerolog.Logger) *Registry {
	if cfg.SessionTokenExpiry == 0 {
		cfg.SessionTokenExpiry = 24 * time.Hour
	}
	return &Registry{
		cfg:     cfg,
		players: make(map[string]*ServerPlayer),
		games:   make(map[string]*engine.Game),
		perIP:   make(map[string]int),
		log:     log,
	}
}

// AddTable registers a Game the registry can seat players into.
func (r *Registry) AddTable(g *engine.Game) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.TableID] = g
}

// CanAccept reports whether a new connection from ip should be admitted
// (spec §4.3).
func (r *Registry) CanAccept(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalConnections < r.cfg.MaxConnections && r.perIP[ip] < r.cfg.MaxConnectionsPerIP
}

// Register records a newly admitted connection from ip.
func (r *Registry) Register(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalConnections++
	r.perIP[ip]++
}

// Unregister releases a connection slot for ip, saturating at zero to
// guard against a double-release (spec §4.3).
func (r *Registry) Unregister(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.totalConnections > 0 {
		r.totalConnections--
	}
	if r.perIP[ip] > 0 {
		r.perIP[ip]--
	}
	if r.perIP[ip] == 0 {
		delete(r.perIP, ip)
	}
}

// RegisterPlayer inserts a fresh ServerPlayer, or no-ops if id already
// exists (spec §4.3: "re-registration is idempotent").
func (r *Registry) RegisterPlayer(id, name string, chips int) *ServerPlayer {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.players[id]; ok {
		return p
	}
	p := &ServerPlayer{
		ID:        id,
		Name:      name,
		Chips:     chips,
		Token:     uuid.NewString(),
		CreatedAt: time.Now(),
	}
	r.players[id] = p
	return p
}

// ConnectPlayer flags a player connected, validating their session token
// has not expired.
func (r *Registry) ConnectPlayer(id string, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return ErrUnknownPlayer
	}
	if token != "" && token != p.Token {
		return ErrUnknownPlayer
	}
	if time.Since(p.CreatedAt) > r.cfg.SessionTokenExpiry {
		return ErrSessionExpired
	}
	p.Connected = true
	return nil
}

// DisconnectPlayer flags a player disconnected, broadcasts a
// PlayerDisconnected event to the player's table, and removes their seat
// assignment (spec §4.3).
func (r *Registry) DisconnectPlayer(id string) {
	r.mu.Lock()
	p, ok := r.players[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	p.Connected = false
	tableID := p.TableID
	p.TableID = ""
	g := r.games[tableID]
	r.mu.Unlock()

	if g != nil {
		g.Disconnect(id)
	}
	r.log.Info().Str("player", id).Str("table", tableID).Msg("player disconnected")
}

// SeatPlayer seats a registered player at a table (spec §4.3), returning
// the Connected confirmation the caller should send back.
func (r *Registry) SeatPlayer(id, tableID string) (protocol.Connected, error) {
	r.mu.Lock()
	p, ok := r.players[id]
	if !ok {
		r.mu.Unlock()
		return protocol.Connected{}, ErrUnknownPlayer
	}
	g, ok := r.games[tableID]
	if !ok {
		r.mu.Unlock()
		return protocol.Connected{}, ErrUnknownTable
	}
	if p.Chips <= 0 {
		r.mu.Unlock()
		return protocol.Connected{}, ErrNoChips
	}
	if p.TableID != "" {
		r.mu.Unlock()
		return protocol.Connected{}, ErrAlreadySeated
	}
	p.TableID = tableID
	chips := p.Chips
	name := p.Name
	r.mu.Unlock()

	g.Seat(id, name, chips)
	g.Snapshot()
	g.MaybeStart()

	return protocol.NewConnected(id), nil
}

// Player returns a copy of a ServerPlayer's record, or false if unknown.
func (r *Registry) Player(id string) (ServerPlayer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return ServerPlayer{}, false
	}
	return *p, true
}

// Table returns the Game registered under tableID, or false if unknown.
func (r *Registry) Table(tableID string) (*engine.Game, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[tableID]
	return g, ok
}
