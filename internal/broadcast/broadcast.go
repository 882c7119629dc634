// Package broadcast routes engine.Event values to connected clients: a
// plain broadcast to every receiver at a table, or a per-viewer payload
// when the message implements engine.Personalized (spec §4.4's hole-card
// redaction rule). Grounded on the teacher's HandRunner broadcast* methods
// (internal/server/hand_runner.go), which iterate bots and call
// SendMessage per recipient, generalized here with bounded fan-out
// concurrency via golang.org/x/sync/errgroup, the same package the
// teacher uses for worker-pool coordination in internal/evaluator/equity.go.
package broadcast

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/tablestack/pokerserver/internal/engine"
)

const (
	// sendTimeout bounds how long a single receiver's send may block
	// before the router gives up on it (spec §4.6).
	sendTimeout = 5 * time.Second

	// fanoutLimit bounds concurrent per-receiver sends when a message is
	// broadcast to an entire table (spec §4.6).
	fanoutLimit = 50

	// directLimit bounds concurrent personalized per-viewer sends.
	directLimit = 100
)

// Receiver is anything the router can hand a message value to; conn.Connection
// satisfies it and encodes the value itself.
type Receiver interface {
	PlayerID() string
	SendMessage(msg any)
}

// TableReceivers resolves the set of connections currently watching a
// table. The order of the returned slice is not defined; fan-out sends to
// every receiver concurrently.
type TableReceivers func(tableID string) []Receiver

// Router drains one or more Game event channels and fans each event out to
// the table's current receivers.
type Router struct {
	receivers TableReceivers
	logger    *log.Logger
}

// New constructs a Router backed by receivers.
func New(receivers TableReceivers, logger *log.Logger) *Router {
	return &Router{receivers: receivers, logger: logger}
}

// Run drains g.Events() until the channel closes or ctx is canceled. Each
// Game typically gets its own goroutine running Run.
func (r *Router) Run(ctx context.Context, g *engine.Game) {
	for {
		select {
		case ev, ok := <-g.Events():
			if !ok {
				return
			}
			r.dispatch(ctx, ev)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Router) dispatch(ctx context.Context, ev engine.Event) {
	receivers := r.receivers(ev.TableID)
	if len(receivers) == 0 {
		return
	}

	if personal, ok := ev.Message.(engine.Personalized); ok {
		r.fanout(ctx, receivers, directLimit, func(rc Receiver) any {
			return personal.For(rc.PlayerID())
		})
		return
	}

	r.fanout(ctx, receivers, fanoutLimit, func(Receiver) any {
		return ev.Message
	})
}

// fanout sends payload(rc) to every receiver concurrently, bounded by
// limit in-flight sends at once, each capped at sendTimeout.
func (r *Router) fanout(ctx context.Context, receivers []Receiver, limit int, payload func(Receiver) any) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, rc := range receivers {
		rc := rc
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(gctx, sendTimeout)
			defer cancel()
			r.sendOne(sendCtx, rc, payload(rc))
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Router) sendOne(ctx context.Context, rc Receiver, msg any) {
	done := make(chan struct{})
	go func() {
		rc.SendMessage(msg)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if r.logger != nil {
			r.logger.Warn("send timed out", "player", rc.PlayerID())
		}
	}
}
