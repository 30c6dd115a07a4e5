package sim

import (
	"fmt"
	"sync"

	"github.com/itohio/xadcstream/pkg/dma"
)

// Cache checks that maintenance happens outside of transfers.
type Cache struct {
	engine *Engine

	mu          sync.Mutex
	flushes     int
	invalidates int
}

var _ dma.Cache = (*Cache)(nil)

// NewCache creates a cache model bound to engine.
func NewCache(engine *Engine) *Cache {
	return &Cache{engine: engine}
}

// Flush implements dma.Cache.
func (c *Cache) Flush(buf *dma.Buffer) error {
	if busy, _ := c.engine.Busy(); busy {
		return fmt.Errorf("sim: flush during transfer")
	}
	c.mu.Lock()
	c.flushes++
	c.mu.Unlock()
	return nil
}

// Invalidate implements dma.Cache.
func (c *Cache) Invalidate(buf *dma.Buffer) error {
	if busy, _ := c.engine.Busy(); busy {
		return fmt.Errorf("sim: invalidate during transfer")
	}
	c.mu.Lock()
	c.invalidates++
	c.mu.Unlock()
	return nil
}

// Counts returns how many flushes and invalidates were performed.
func (c *Cache) Counts() (flushes, invalidates int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushes, c.invalidates
}
