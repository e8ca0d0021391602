package applicationservice

import (
	"sync"
	"time"

	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
)

const (
	// guardCleanupThreshold is the minimum map size before a prune pass runs.
	guardCleanupThreshold = 500
	defaultGuardTTL       = 24 * time.Hour
)

// resolutionGuard lets exactly one reviewer resolve a review message.
type resolutionGuard struct {
	mu      sync.Mutex
	claimed map[platform.MessageID]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func newResolutionGuard(ttl time.Duration) *resolutionGuard {
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	return &resolutionGuard{
		claimed: make(map[platform.MessageID]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Claim reports whether the caller is the first to claim id. Claims older
// than the TTL are pruned inline once the map grows past the threshold.
func (g *resolutionGuard) Claim(id platform.MessageID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if len(g.claimed) > guardCleanupThreshold {
		cutoff := now.Add(-g.ttl)
		for k, at := range g.claimed {
			if at.Before(cutoff) {
				delete(g.claimed, k)
			}
		}
	}

	if _, taken := g.claimed[id]; taken {
		return false
	}
	g.claimed[id] = now
	return true
}

func (g *resolutionGuard) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.claimed)
}
