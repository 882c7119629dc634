package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tablestack/pokerserver/internal/broadcast"
	"github.com/tablestack/pokerserver/internal/conn"
	"github.com/tablestack/pokerserver/internal/engine"
	"github.com/tablestack/pokerserver/internal/protocol"
	"github.com/tablestack/pokerserver/internal/session"
)

// DefaultTableID is the table a bare Connect message seats the caller at
// (spec §4.4: "Seat at the default table.").
const DefaultTableID = "default"

// ShutdownTimeout bounds the http.Server.Shutdown call Run makes once its
// context is canceled. That call stops the listener but neither closes nor
// waits for hijacked websocket connections, so open player connections are
// not drained within this window.
const ShutdownTimeout = 5 * time.Second

const stageRefreshInterval = 5 * time.Second

// Server is the HTTP/websocket supervisor: it owns the session registry,
// one Game per table, the broadcast router, and the accept loop. Grounded
// on the teacher's internal/server/server.go Server/Serve/Shutdown shape.
type Server struct {
	cfg      Config
	registry *session.Registry
	router   *broadcast.Router
	upgrader websocket.Upgrader
	mux      *http.ServeMux
	httpSrv  *http.Server
	logger   *log.Logger
	zlog     zerolog.Logger

	hmacKey []byte
	nonces  *protocol.NonceCache

	connsMu      sync.RWMutex
	connsByTable map[string]map[*conn.Connection]struct{}
}

// New wires a Server around cfg, seeding a single default table.
func New(cfg Config, logger *log.Logger, zlog zerolog.Logger) *Server {
	reg := session.New(session.Config{
		MaxConnections:      cfg.MaxConnections,
		MaxConnectionsPerIP: cfg.MaxConnectionsPerIP,
		SessionTokenExpiry:  cfg.sessionTokenExpiry(),
	}, zlog)

	g := engine.NewGame(DefaultTableID, engine.Config{
		SmallBlind:    cfg.SmallBlind,
		BigBlind:      cfg.BigBlind,
		MaxBetPerHand: cfg.MaxBetPerHand,
	}, logger)
	reg.AddTable(g)

	s := &Server{
		cfg:          cfg,
		registry:     reg,
		mux:          http.NewServeMux(),
		logger:       logger,
		zlog:         zlog,
		connsByTable: map[string]map[*conn.Connection]struct{}{DefaultTableID: {}},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	if cfg.EnableHMAC {
		s.hmacKey = []byte(cfg.HMACKey)
		s.nonces = protocol.NewNonceCache()
	}

	s.router = broadcast.New(s.receiversFor, logger)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !s.registry.CanAccept(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	s.registry.Register(ip)
	c := conn.NewWithAuth(ws, s.logger, s.cfg.MaxMessageSize, s.cfg.inactivityTimeout(), s.hmacKey, s.nonces)

	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		playerID = uuid.NewString()
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = playerID
	}
	token := r.URL.Query().Get("token")

	s.registry.RegisterPlayer(playerID, name, s.cfg.StartingChips)
	if err := s.registry.ConnectPlayer(playerID, token); err != nil {
		c.SendMessage(protocol.NewError(err.Error()))
		c.Close()
		s.registry.Unregister(ip)
		return
	}
	c.SetPlayerID(playerID)

	s.addReceiver(DefaultTableID, c)
	c.Start(&handlerAdapter{s: s, ip: ip})
}

// receiversFor satisfies broadcast.TableReceivers.
func (s *Server) receiversFor(tableID string) []broadcast.Receiver {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()

	set, ok := s.connsByTable[tableID]
	if !ok {
		return nil
	}
	out := make([]broadcast.Receiver, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (s *Server) addReceiver(tableID string, c *conn.Connection) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	set, ok := s.connsByTable[tableID]
	if !ok {
		set = make(map[*conn.Connection]struct{})
		s.connsByTable[tableID] = set
	}
	set[c] = struct{}{}
}

func (s *Server) removeReceiver(tableID string, c *conn.Connection) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	if set, ok := s.connsByTable[tableID]; ok {
		delete(set, c)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Run starts the HTTP listener, the broadcast router, and the periodic
// stage-refresh task, blocking until ctx is canceled. It then shuts the HTTP
// server down (bounded by ShutdownTimeout) and waits for the router and the
// stage-refresh task to return; open websocket connections are not closed
// or waited for.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}

	s.httpSrv = &http.Server{Handler: s.mux}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if table, ok := s.registry.Table(DefaultTableID); ok {
			s.router.Run(gctx, table)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(stageRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if table, ok := s.registry.Table(DefaultTableID); ok {
					table.ForceWaitingIfShortHanded()
					table.MaybeStart()
				}
			case <-gctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	<-gctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error during http shutdown", "error", err)
	}

	return g.Wait()
}
