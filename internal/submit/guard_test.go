// ABOUTME: Tests for the duplicate submission guard.
// ABOUTME: Validates claim, release, TTL expiry, eviction, cleanup, and concurrency safety.

package submit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_ClaimOnce(t *testing.T) {
	g := New(5*time.Minute, 100)
	defer g.Close()

	require.NoError(t, g.Claim("nonce-1"))
	assert.ErrorIs(t, g.Claim("nonce-1"), ErrDuplicateSubmission)
	assert.True(t, g.Claimed("nonce-1"))

	// Other nonces are independent
	assert.NoError(t, g.Claim("nonce-2"))
}

func TestGuard_MissingNonce(t *testing.T) {
	g := New(5*time.Minute, 100)
	defer g.Close()

	assert.ErrorIs(t, g.Claim(""), ErrMissingNonce)
}

func TestGuard_Release(t *testing.T) {
	g := New(5*time.Minute, 100)
	defer g.Close()

	require.NoError(t, g.Claim("retry"))
	g.Release("retry")
	assert.False(t, g.Claimed("retry"))
	assert.NoError(t, g.Claim("retry"), "released nonce can be claimed again")

	// Releasing an unknown nonce is harmless
	g.Release("never-claimed")
}

func TestGuard_Expiry(t *testing.T) {
	g := New(time.Minute, 100)
	defer g.Close()

	now := time.Now()
	g.now = func() time.Time { return now }

	require.NoError(t, g.Claim("old"))

	now = now.Add(2 * time.Minute)
	assert.False(t, g.Claimed("old"))
	assert.NoError(t, g.Claim("old"), "expired claim can be claimed again")
	assert.Equal(t, 1, g.Len())
}

func TestGuard_EvictsOldest(t *testing.T) {
	g := New(5*time.Minute, 3)
	defer g.Close()

	for _, n := range []string{"a", "b", "c", "d"} {
		require.NoError(t, g.Claim(n))
	}

	assert.Equal(t, 3, g.Len())
	assert.False(t, g.Claimed("a"), "oldest claim is evicted")
	assert.True(t, g.Claimed("d"))
}

func TestGuard_RunCleanup(t *testing.T) {
	g := New(time.Minute, 100)
	defer g.Close()

	now := time.Now()
	g.now = func() time.Time { return now }

	require.NoError(t, g.Claim("old-1"))
	require.NoError(t, g.Claim("old-2"))
	now = now.Add(90 * time.Second)
	require.NoError(t, g.Claim("fresh"))

	g.runCleanup()

	assert.Equal(t, 1, g.Len())
	assert.True(t, g.Claimed("fresh"))
}

func TestGuard_ConcurrentClaims(t *testing.T) {
	g := New(5*time.Minute, 100)
	defer g.Close()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Claim("contested") == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one concurrent claim wins")
}

func TestGuard_CloseTwice(t *testing.T) {
	g := New(time.Minute, 10)
	g.Close()
	assert.NotPanics(t, g.Close)
}

func TestNewNonce(t *testing.T) {
	a, b := NewNonce(), NewNonce()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
