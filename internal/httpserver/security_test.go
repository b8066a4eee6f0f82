package httpserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterRefills(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	now = now.Add(1500 * time.Millisecond)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
}

func TestRateLimiterPrune(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }
	rl.Allow("a")

	now = now.Add(time.Minute)
	rl.Allow("b")
	now = now.Add(2*time.Minute + time.Second)
	rl.Prune()

	assert.NotContains(t, rl.visitors, "a")
	assert.Contains(t, rl.visitors, "b")
}

func TestClientHost(t *testing.T) {
	assert.Equal(t, "10.0.0.1", clientHost("10.0.0.1:5555"))
	assert.Equal(t, "::1", clientHost("[::1]:80"))
	assert.Equal(t, "garbage", clientHost("garbage"))
}
