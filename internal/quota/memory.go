package quota

import (
	"fmt"
	"sync"
	"time"
)

// MemoryGuard implements Guard with an in-memory mutex-protected map.
// Suitable for tests and single-process development; counters do not
// survive restarts. A background goroutine evicts tenants whose last
// usage is older than the longest registered window.
type MemoryGuard struct {
	mu         sync.Mutex
	counters   map[string]*usageWindow
	policies   map[string]Policy
	timeSource TimeSource

	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type usageWindow struct {
	start    time.Time
	count    int
	lastUsed time.Time
}

// NewMemoryGuard creates a MemoryGuard for the given policies.
func NewMemoryGuard(policies ...Policy) *MemoryGuard {
	return NewMemoryGuardWithDeps(defaultTimeSource{}, policies...)
}

// NewMemoryGuardWithDeps creates a MemoryGuard with a custom time
// source for testing.
func NewMemoryGuardWithDeps(timeSource TimeSource, policies ...Policy) *MemoryGuard {
	byAction := make(map[string]Policy, len(policies))
	for _, p := range policies {
		byAction[p.Action] = p
	}
	g := &MemoryGuard{
		counters:    make(map[string]*usageWindow),
		policies:    byAction,
		timeSource:  timeSource,
		stopCleanup: make(chan struct{}),
	}
	go g.startCleanup()
	return g
}

func memoryKey(action, tenantID string) string {
	return action + "|" + tenantID
}

// Check reports whether the tenant has quota left in the current
// window.
func (g *MemoryGuard) Check(tenantID string, policy Policy) (Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.timeSource.Now()
	window := windowStart(now, policy.Window)

	entry, ok := g.counters[memoryKey(policy.Action, tenantID)]
	if !ok || entry.start.Before(window) {
		return Decision{Allowed: true}, nil
	}

	if entry.count >= policy.Limit {
		return Decision{
			Allowed:    false,
			LimitHit:   policy.Action,
			RetryAfter: window.Add(policy.Window).Sub(now),
		}, nil
	}
	return Decision{Allowed: true}, nil
}

// RecordUsage consumes one unit for the action's current window.
func (g *MemoryGuard) RecordUsage(tenantID, action string) error {
	policy, ok := g.policies[action]
	if !ok {
		return fmt.Errorf("no policy registered for action %q", action)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.timeSource.Now()
	window := windowStart(now, policy.Window)
	key := memoryKey(action, tenantID)

	entry, ok := g.counters[key]
	if !ok || entry.start.Before(window) {
		g.counters[key] = &usageWindow{start: window, count: 1, lastUsed: now}
		return nil
	}
	entry.count++
	entry.lastUsed = now
	return nil
}

// startCleanup runs periodic cleanup to remove stale tenant entries.
func (g *MemoryGuard) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.cleanupStaleEntries()
		case <-g.stopCleanup:
			return
		}
	}
}

func (g *MemoryGuard) cleanupStaleEntries() {
	g.mu.Lock()
	defer g.mu.Unlock()

	maxWindow := time.Minute
	for _, p := range g.policies {
		if p.Window > maxWindow {
			maxWindow = p.Window
		}
	}

	cutoff := g.timeSource.Now().Add(-2 * maxWindow)
	for key, entry := range g.counters {
		if entry.lastUsed.Before(cutoff) {
			delete(g.counters, key)
		}
	}
}

// Close stops the cleanup goroutine.
func (g *MemoryGuard) Close() error {
	g.shutdownOnce.Do(func() {
		close(g.stopCleanup)
	})
	return nil
}
