package protocol

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// SignedMessage is the optional authentication envelope described in spec
// §3: a serialized inner payload, a MAC tag, a millisecond timestamp, and a
// 64-bit nonce. Grounded on the teacher's internal/auth.Validator interface
// shape, adapted from an external HTTP token check to local HMAC-SHA256
// verification of each frame.
type SignedMessage struct {
	Payload   json.RawMessage `json:"payload"`
	MAC       []byte          `json:"mac"`
	Timestamp int64           `json:"timestamp"`
	Nonce     uint64          `json:"nonce"`
}

// Freshness window and nonce retention, per spec §3 / §5.
const (
	MaxClockSkew    = 30 * time.Second
	NonceRetention  = 60 * time.Second
	maxNonceEntries = 1000
)

var (
	// ErrStaleTimestamp is returned when a SignedMessage's timestamp falls
	// outside ±MaxClockSkew of the verifier's clock.
	ErrStaleTimestamp = errors.New("protocol: signed message timestamp out of range")
	// ErrReplayedNonce is returned when a nonce has already been seen within
	// NonceRetention.
	ErrReplayedNonce = errors.New("protocol: nonce already used")
	// ErrBadMAC is returned when the MAC tag does not match.
	ErrBadMAC = errors.New("protocol: MAC verification failed")
)

// Sign produces a SignedMessage wrapping payload, computed as
// MAC(key, timestamp || nonce || payload).
func Sign(key []byte, payload []byte, timestamp int64, nonce uint64) SignedMessage {
	return SignedMessage{
		Payload:   json.RawMessage(payload),
		MAC:       computeMAC(key, timestamp, nonce, payload),
		Timestamp: timestamp,
		Nonce:     nonce,
	}
}

func computeMAC(key []byte, timestamp int64, nonce uint64, payload []byte) []byte {
	mac := hmac.New(sha256.New, key)
	var header [16]byte
	binary.BigEndian.PutUint64(header[0:8], uint64(timestamp))
	binary.BigEndian.PutUint64(header[8:16], nonce)
	mac.Write(header[:])
	mac.Write(payload)
	return mac.Sum(nil)
}

// NonceCache tracks recently seen nonces to reject replays, capped at
// maxNonceEntries and evicting the oldest entry by insertion time once full
// (spec §3). Safe for concurrent use.
type NonceCache struct {
	mu      sync.Mutex
	seen    map[uint64]time.Time
	order   []uint64
	nowFunc func() time.Time
}

// NewNonceCache creates an empty cache.
func NewNonceCache() *NonceCache {
	return &NonceCache{
		seen:    make(map[uint64]time.Time),
		nowFunc: time.Now,
	}
}

// CheckAndRecord reports whether nonce is fresh (not seen within
// NonceRetention); if so, it records it. Expired entries are pruned
// opportunistically on each call.
func (c *NonceCache) CheckAndRecord(nonce uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	c.prune(now)

	if seenAt, ok := c.seen[nonce]; ok && now.Sub(seenAt) < NonceRetention {
		return false
	}

	if len(c.order) >= maxNonceEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.seen, oldest)
	}
	c.seen[nonce] = now
	c.order = append(c.order, nonce)
	return true
}

func (c *NonceCache) prune(now time.Time) {
	cut := 0
	for cut < len(c.order) {
		n := c.order[cut]
		if now.Sub(c.seen[n]) < NonceRetention {
			break
		}
		delete(c.seen, n)
		cut++
	}
	if cut > 0 {
		c.order = c.order[cut:]
	}
}

// Verify checks a SignedMessage's timestamp freshness, nonce uniqueness,
// and MAC, returning the inner payload on success. now is used for the
// timestamp check only; nonce retention is measured against the cache's own
// clock.
func Verify(key []byte, msg SignedMessage, cache *NonceCache, now time.Time) (json.RawMessage, error) {
	skew := now.Sub(time.UnixMilli(msg.Timestamp))
	if skew < 0 {
		skew = -skew
	}
	if skew > MaxClockSkew {
		return nil, fmt.Errorf("%w: skew %s", ErrStaleTimestamp, skew)
	}

	if !cache.CheckAndRecord(msg.Nonce) {
		return nil, ErrReplayedNonce
	}

	want := computeMAC(key, msg.Timestamp, msg.Nonce, msg.Payload)
	if subtle.ConstantTimeCompare(want, msg.MAC) != 1 {
		return nil, ErrBadMAC
	}

	return msg.Payload, nil
}
