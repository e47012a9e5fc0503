// Package ratelimit throttles clients with per-endpoint token buckets.
// LLM-backed endpoints get much stricter limits than plain reads.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// tokenBucket refills at a steady rate up to its capacity.
type tokenBucket struct {
	mu         sync.Mutex
	capacity   int
	refillRate float64
	tokens     float64
	lastRefill time.Time
}

func newTokenBucket(capacity int, refillRate float64) *tokenBucket {
	return &tokenBucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: time.Now(),
	}
}

func (tb *tokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.tokens = min(float64(tb.capacity), tb.tokens+now.Sub(tb.lastRefill).Seconds()*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// EndpointRule limits one route family. Paths ending in "/" match by
// prefix, so "/workbooks/" covers every workbook subroute of the
// configured method.
type EndpointRule struct {
	Path   string
	Method string
	Limit  int // Requests per Window; 0 means unlimited
	Window time.Duration
	Burst  int // Bucket capacity; defaults to Limit
}

// Config tunes the limiter.
type Config struct {
	Enabled       bool
	DefaultLimit  int
	DefaultWindow time.Duration
	Rules         []EndpointRule
}

// DefaultConfig returns the limiter tuning for the decision agent. The
// filter and processing routes call out to the LLM and are throttled
// hard; prospect reads and selection toggles use the default budget.
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		DefaultLimit:  600,
		DefaultWindow: time.Minute,
		Rules: []EndpointRule{
			{Path: "/workbooks/", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
			{Path: "/applicants/", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
			{Path: "/jobs/", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		},
	}
}

// Limiter hands out tokens per client and route family.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	config  *Config
}

func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}
	return &Limiter{
		buckets: make(map[string]*tokenBucket),
		config:  config,
	}
}

// Allow reports whether a request from clientID to the route may
// proceed, and the retry delay when it may not.
func (l *Limiter) Allow(clientID, path, method string) (bool, time.Duration) {
	if !l.config.Enabled {
		return true, 0
	}
	rule := l.match(path, method)
	if rule.Limit <= 0 {
		return true, 0
	}

	key := clientID + ":" + rule.Path + ":" + method
	bucket := l.bucket(key, rule)
	if bucket.allow() {
		return true, 0
	}
	// One token takes 1/refillRate seconds to appear.
	refillRate := float64(rule.Limit) / rule.Window.Seconds()
	return false, time.Duration(float64(time.Second) / refillRate)
}

func (l *Limiter) match(path, method string) EndpointRule {
	if path == "/health" {
		return EndpointRule{}
	}
	for _, rule := range l.config.Rules {
		if rule.Method != method {
			continue
		}
		if rule.Path == path || (strings.HasSuffix(rule.Path, "/") && strings.HasPrefix(path, rule.Path)) {
			return rule
		}
	}
	return EndpointRule{
		Path:   "*",
		Limit:  l.config.DefaultLimit,
		Window: l.config.DefaultWindow,
	}
}

func (l *Limiter) bucket(key string, rule EndpointRule) *tokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	if bucket, ok := l.buckets[key]; ok {
		return bucket
	}
	capacity := rule.Burst
	if capacity <= 0 {
		capacity = rule.Limit
	}
	bucket := newTokenBucket(capacity, float64(rule.Limit)/rule.Window.Seconds())
	l.buckets[key] = bucket
	return bucket
}
