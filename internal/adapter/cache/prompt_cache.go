package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"

	"promptgen/internal/domain"
	"promptgen/internal/port"
)

// MemoryCache is a bounded LRU of verified prompts. It is safe for
// concurrent use.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]domain.PromptResult
	order   []string
	maxSize int
}

var _ port.PromptCache = (*MemoryCache)(nil)

func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &MemoryCache{
		entries: make(map[string]domain.PromptResult),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
	}
}

func cacheKey(modelID, text string, length int) string {
	h := sha256.New()
	h.Write([]byte(modelID))
	h.Write([]byte{0})
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(length)))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func (c *MemoryCache) GetPrompt(modelID, text string, length int) (domain.PromptResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(modelID, text, length)
	r, ok := c.entries[key]
	if !ok {
		return domain.PromptResult{}, false, nil
	}
	c.moveToEnd(key)
	return r, true, nil
}

func (c *MemoryCache) PutPrompt(modelID, text string, r domain.PromptResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(modelID, text, r.Length)
	if _, ok := c.entries[key]; ok {
		c.entries[key] = r
		c.moveToEnd(key)
		return nil
	}
	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = r
	c.order = append(c.order, key)
	return nil
}

// Size returns the number of cached prompts.
func (c *MemoryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *MemoryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *MemoryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Layered reads through a MemoryCache to a persistent cache and writes to
// both. A backing read error is returned to the caller unchanged.
type Layered struct {
	memory  *MemoryCache
	backing port.PromptCache
}

var _ port.PromptCache = (*Layered)(nil)

func NewLayered(memory *MemoryCache, backing port.PromptCache) *Layered {
	return &Layered{memory: memory, backing: backing}
}

// MemorySize returns the number of prompts held in process.
func (l *Layered) MemorySize() int {
	return l.memory.Size()
}

func (l *Layered) GetPrompt(modelID, text string, length int) (domain.PromptResult, bool, error) {
	if r, ok, _ := l.memory.GetPrompt(modelID, text, length); ok {
		return r, true, nil
	}

	r, ok, err := l.backing.GetPrompt(modelID, text, length)
	if err != nil || !ok {
		return r, ok, err
	}
	l.memory.PutPrompt(modelID, text, r)
	return r, true, nil
}

func (l *Layered) PutPrompt(modelID, text string, r domain.PromptResult) error {
	l.memory.PutPrompt(modelID, text, r)
	return l.backing.PutPrompt(modelID, text, r)
}
