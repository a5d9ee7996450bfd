// ABOUTME: Thread-safe TTL guard against duplicate form submissions.
// ABOUTME: Each form carries a nonce; a nonce can be claimed once until released or expired.

package submit

import (
	"container/list"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateSubmission is returned when a nonce is already claimed.
var ErrDuplicateSubmission = errors.New("duplicate submission")

// ErrMissingNonce is returned when a submission carries no nonce.
var ErrMissingNonce = errors.New("submission nonce missing")

// Default sizing for a process-wide guard.
const (
	DefaultTTL     = 30 * time.Minute
	DefaultMaxSize = 10000
)

// claim stores when a nonce was claimed and its place in eviction order.
type claim struct {
	at      time.Time
	element *list.Element
}

// Guard remembers claimed submission nonces for a TTL. Oldest claims are
// evicted first when the guard is full. Uses a doubly-linked list to keep
// claim order for O(1) eviction.
type Guard struct {
	mu      sync.Mutex
	claims  map[string]*claim
	order   *list.List // nonces in claim order (oldest at front)
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// New creates a guard with the given TTL and capacity.
// A background goroutine periodically drops expired claims.
func New(ttl time.Duration, maxSize int) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	g := &Guard{
		claims:  make(map[string]*claim),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go g.cleanup()
	return g
}

// NewNonce returns a fresh submission nonce for a form.
func NewNonce() string {
	return uuid.NewString()
}

// Claim atomically checks the nonce and claims it.
// Returns ErrDuplicateSubmission when the nonce is already claimed.
func (g *Guard) Claim(nonce string) error {
	if nonce == "" {
		return ErrMissingNonce
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.claims[nonce]; ok {
		if g.now().Sub(c.at) < g.ttl {
			return ErrDuplicateSubmission
		}
		g.order.Remove(c.element)
		delete(g.claims, nonce)
	}

	if len(g.claims) >= g.maxSize {
		g.evictOldest()
	}

	elem := g.order.PushBack(nonce)
	g.claims[nonce] = &claim{at: g.now(), element: elem}
	return nil
}

// Release gives a claimed nonce back so the same form can be submitted
// again, as after a rejected save.
func (g *Guard) Release(nonce string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.claims[nonce]; ok {
		g.order.Remove(c.element)
		delete(g.claims, nonce)
	}
}

// Claimed reports whether nonce is currently claimed.
func (g *Guard) Claimed(nonce string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.claims[nonce]
	return ok && g.now().Sub(c.at) < g.ttl
}

// Len returns the number of remembered claims.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.claims)
}

// evictOldest removes the oldest claim. Must be called with mu held.
func (g *Guard) evictOldest() {
	front := g.order.Front()
	if front == nil {
		return
	}
	nonce, _ := front.Value.(string)
	g.order.Remove(front)
	delete(g.claims, nonce)
}

// cleanup runs in a background goroutine, periodically removing expired claims.
func (g *Guard) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.runCleanup()
		case <-g.done:
			return
		}
	}
}

// runCleanup removes all expired claims. Claims expire in order, so it
// stops at the first live one.
func (g *Guard) runCleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for e := g.order.Front(); e != nil; {
		nonce, _ := e.Value.(string)
		c := g.claims[nonce]
		if c != nil && now.Sub(c.at) < g.ttl {
			return
		}
		next := e.Next()
		g.order.Remove(e)
		delete(g.claims, nonce)
		e = next
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.closed {
		close(g.done)
		g.closed = true
	}
}
