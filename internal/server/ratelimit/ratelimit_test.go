package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testConfig() *Config {
	return &Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		Rules: []EndpointRule{
			{Path: "/workbooks/", Method: "POST", Limit: 60, Window: time.Minute, Burst: 2},
		},
	}
}

func TestLimiterEnforcesBurst(t *testing.T) {
	limiter := NewLimiter(testConfig())

	allowed, _ := limiter.Allow("1.2.3.4", "/workbooks/abc/filter", "POST")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("1.2.3.4", "/workbooks/abc/filter", "POST")
	assert.True(t, allowed)

	allowed, retryAfter := limiter.Allow("1.2.3.4", "/workbooks/abc/filter", "POST")
	assert.False(t, allowed, "third request within the burst must be throttled")
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestLimiterIsPerClient(t *testing.T) {
	limiter := NewLimiter(testConfig())

	for i := 0; i < 2; i++ {
		allowed, _ := limiter.Allow("1.1.1.1", "/workbooks/abc/filter", "POST")
		assert.True(t, allowed)
	}
	allowed, _ := limiter.Allow("1.1.1.1", "/workbooks/abc/filter", "POST")
	assert.False(t, allowed)

	allowed, _ = limiter.Allow("2.2.2.2", "/workbooks/abc/filter", "POST")
	assert.True(t, allowed, "a different client has its own bucket")
}

func TestLimiterPrefixRoutesShareBucket(t *testing.T) {
	limiter := NewLimiter(testConfig())

	// Both subroutes belong to the same rule, so they drain one bucket.
	limiter.Allow("1.2.3.4", "/workbooks/abc/filter", "POST")
	limiter.Allow("1.2.3.4", "/workbooks/def/filter", "POST")

	allowed, _ := limiter.Allow("1.2.3.4", "/workbooks/xyz/filter", "POST")
	assert.False(t, allowed)
}

func TestLimiterHealthIsUnlimited(t *testing.T) {
	limiter := NewLimiter(testConfig())

	for i := 0; i < 500; i++ {
		allowed, _ := limiter.Allow("1.2.3.4", "/health", "GET")
		assert.True(t, allowed)
	}
}

func TestLimiterDisabled(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: false})

	for i := 0; i < 100; i++ {
		allowed, _ := limiter.Allow("1.2.3.4", "/workbooks/abc/filter", "POST")
		assert.True(t, allowed)
	}
}

func TestLimiterDefaultBudgetForReads(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultLimit = 3
	limiter := NewLimiter(cfg)

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow("1.2.3.4", "/workbooks/abc/prospects", "GET")
		assert.True(t, allowed)
	}
	allowed, _ := limiter.Allow("1.2.3.4", "/workbooks/abc/prospects", "GET")
	assert.False(t, allowed)
}
