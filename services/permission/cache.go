package permission

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/upb/club-authz/internal/authz"
)

// cacheEntry represents a single cache entry with TTL
type cacheEntry struct {
	userID     uuid.UUID
	snapshot   *authz.Snapshot
	insertedAt time.Time
	element    *list.Element // For LRU tracking
}

// isExpired checks if the cache entry has expired
func (e *cacheEntry) isExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.insertedAt) > ttl
}

// SnapshotCache is an in-memory LRU cache with TTL for identity snapshots, keyed by user.
// A TTL of zero or less disables it: Get always misses and Set stores nothing.
//
// Every invalidation bumps an epoch. A resolver reads the epoch before loading from
// storage and passes it back to Set, so a snapshot loaded before a concurrent write
// committed is never stored after that write invalidated the cache.
type SnapshotCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*cacheEntry
	lruList *list.List    // Doubly linked list for LRU tracking
	maxSize int           // Maximum number of entries
	ttl     time.Duration // Time-to-live for entries
	epoch   uint64
	hits    uint64
	misses  uint64
	now     func() time.Time
}

// NewSnapshotCache creates a new SnapshotCache with specified max size and TTL
func NewSnapshotCache(maxSize int, ttl time.Duration) *SnapshotCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &SnapshotCache{
		entries: make(map[uuid.UUID]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Epoch returns the current invalidation epoch
func (c *SnapshotCache) Epoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

// Enabled reports whether the cache stores anything
func (c *SnapshotCache) Enabled() bool {
	return c.ttl > 0
}

// Get retrieves a snapshot from cache.
// Returns nil if not found or expired.
func (c *SnapshotCache) Get(userID uuid.UUID) *authz.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.Enabled() {
		c.misses++
		return nil
	}

	entry, exists := c.entries[userID]
	if !exists || entry.isExpired(c.now(), c.ttl) {
		c.misses++
		if exists {
			c.removeEntry(userID)
		}
		return nil
	}

	c.lruList.MoveToFront(entry.element)
	c.hits++

	return entry.snapshot
}

// Set stores a snapshot loaded during epoch. It is dropped when an invalidation
// happened since, and Set reports whether it was stored.
func (c *SnapshotCache) Set(userID uuid.UUID, snap *authz.Snapshot, epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.Enabled() || epoch != c.epoch || snap == nil {
		return false
	}

	if entry, exists := c.entries[userID]; exists {
		entry.snapshot = snap
		entry.insertedAt = c.now()
		c.lruList.MoveToFront(entry.element)
		return true
	}

	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry{
		userID:     userID,
		snapshot:   snap,
		insertedAt: c.now(),
	}
	entry.element = c.lruList.PushFront(userID)
	c.entries[userID] = entry
	return true
}

// Invalidate removes the snapshot of one user
func (c *SnapshotCache) Invalidate(userID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.removeEntry(userID)
}

// InvalidateUsers removes the snapshots of several users
func (c *SnapshotCache) InvalidateUsers(userIDs []uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	for _, id := range userIDs {
		c.removeEntry(id)
	}
}

// Clear removes all entries from the cache
func (c *SnapshotCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.entries = make(map[uuid.UUID]*cacheEntry)
	c.lruList.Init()
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Stats returns cache statistics
func (c *SnapshotCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		Size:    c.lruList.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: c.calculateHitRate(),
	}
}

// calculateHitRate calculates the cache hit rate
func (c *SnapshotCache) calculateHitRate() float64 {
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// removeEntry removes an entry from the cache (must be called with lock held)
func (c *SnapshotCache) removeEntry(userID uuid.UUID) {
	if entry, exists := c.entries[userID]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, userID)
	}
}

// evictLRU evicts the least recently used entry (must be called with lock held)
func (c *SnapshotCache) evictLRU() {
	back := c.lruList.Back()
	if back == nil {
		return
	}
	userID := back.Value.(uuid.UUID)
	c.lruList.Remove(back)
	delete(c.entries, userID)
}

// CleanupExpired removes all expired entries and returns how many were removed
func (c *SnapshotCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expired := make([]uuid.UUID, 0)
	for userID, entry := range c.entries {
		if entry.isExpired(now, c.ttl) {
			expired = append(expired, userID)
		}
	}
	for _, userID := range expired {
		c.removeEntry(userID)
	}

	return len(expired)
}

// StartCleanupWorker periodically removes expired entries until stopCh is closed
func (c *SnapshotCache) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-stopCh:
			return
		}
	}
}
