// Package ratelimit implements the per-connection token buckets of spec
// §4.5: a generous bucket for game actions and a stricter one for chat.
// Wraps golang.org/x/time/rate, the same x/ family the teacher already
// depends on for errgroup-based shutdown coordination.
package ratelimit

import (
	"golang.org/x/time/rate"
)

// Action buckets: capacity 100, refill 10/second.
const (
	ActionBurst = 100
	ActionRate  = 10
)

// Chat buckets: capacity 5, refill 1/second.
const (
	ChatBurst = 5
	ChatRate  = 1
)

// Limiters bundles the two buckets a connection needs. A denied token costs
// nothing against the budget (spec §4.5): callers must only consume a
// token after deciding to admit the message, which Allow already
// guarantees since failed Allow calls do not remove a token.
type Limiters struct {
	Action *rate.Limiter
	Chat   *rate.Limiter
}

// New constructs a fresh pair of limiters for one connection.
func New() *Limiters {
	return &Limiters{
		Action: rate.NewLimiter(rate.Limit(ActionRate), ActionBurst),
		Chat:   rate.NewLimiter(rate.Limit(ChatRate), ChatBurst),
	}
}

// AllowAction reports whether an action message may proceed now.
func (l *Limiters) AllowAction() bool {
	return l.Action.Allow()
}

// AllowChat reports whether a chat message may proceed now.
func (l *Limiters) AllowChat() bool {
	return l.Chat.Allow()
}
