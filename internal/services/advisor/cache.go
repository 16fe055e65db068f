package advisor

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/ternarybob/chameleon/internal/interfaces"
)

// responseCache memoizes advisor responses per context digest so repeated
// consultations within the TTL do not burn model tokens.
type responseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	response  *interfaces.AdvisorResponse
	expiresAt time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// digest keys the cache by the full context envelope so any change in
// target state produces a fresh consultation.
func digest(envelope *interfaces.AdvisorContext) (string, error) {
	data, err := json.Marshal(envelope)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (c *responseCache) get(key string) *interfaces.AdvisorResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil
	}
	return entry.response
}

func (c *responseCache) put(key string, response *interfaces.AdvisorResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{response: response, expiresAt: time.Now().Add(c.ttl)}
}

// Sweep drops expired entries. The scheduler calls this periodically.
func (c *responseCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
