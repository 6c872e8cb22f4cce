// Package cache holds the process-wide bound table cache. Descriptors
// are immutable, so in-flight routing sessions keep working against the
// descriptor they resolved even after the cache moves on; retired
// descriptors are reclaimed by garbage collection once the last session
// drops them.
package cache

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/tesseradb/tessera/internal/notify"
	"github.com/tesseradb/tessera/internal/partition"
	"github.com/tesseradb/tessera/pkg/types"
)

type entry struct {
	generation  uint64
	desc        *partition.Descriptor
	fingerprint uint64
}

// BoundTableCache maps partitioned tables to their current canonical
// descriptor.
type BoundTableCache struct {
	mu      sync.RWMutex
	entries map[types.TableID]*entry
	log     zerolog.Logger
}

// New creates an empty cache.
func New(log zerolog.Logger) *BoundTableCache {
	return &BoundTableCache{
		entries: make(map[types.TableID]*entry),
		log:     log,
	}
}

// Get returns the cached descriptor and its generation.
func (c *BoundTableCache) Get(id types.TableID) (*partition.Descriptor, uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, 0, false
	}
	return e.desc, e.generation, true
}

// Store installs a freshly built descriptor. When the new descriptor is
// structurally equal to the cached one, the cached pointer and
// generation are kept, so callers holding the old descriptor see no
// spurious change after DDL that did not actually move any bound. The
// fingerprint screens out the common all-changed case before the full
// structural comparison runs.
func (c *BoundTableCache) Store(id types.TableID, desc *partition.Descriptor) (*partition.Descriptor, uint64) {
	fp := desc.Table.Fingerprint()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[id]; ok {
		if e.fingerprint == fp && partition.DescriptorsEqual(e.desc, desc) {
			c.log.Debug().Str("table", string(id)).Uint64("generation", e.generation).
				Msg("bound table unchanged, keeping cached descriptor")
			return e.desc, e.generation
		}
		next := &entry{generation: e.generation + 1, desc: desc, fingerprint: fp}
		c.entries[id] = next
		c.log.Debug().Str("table", string(id)).Uint64("generation", next.generation).
			Msg("bound table replaced")
		return desc, next.generation
	}

	c.entries[id] = &entry{generation: 1, desc: desc, fingerprint: fp}
	c.log.Debug().Str("table", string(id)).Uint64("generation", 1).
		Msg("bound table cached")
	return desc, 1
}

// Invalidate drops a table's cached descriptor. The next consumer
// rebuilds from a fresh catalog snapshot.
func (c *BoundTableCache) Invalidate(id types.TableID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; ok {
		delete(c.entries, id)
		c.log.Debug().Str("table", string(id)).Msg("bound table invalidated")
	}
}

// Len returns the number of cached descriptors.
func (c *BoundTableCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Watch subscribes the cache to schema-change events and invalidates
// affected tables until the subscription is stopped. The returned
// function unsubscribes and waits for the watcher to exit.
func (c *BoundTableCache) Watch(n *notify.Notifier) func() {
	sub := n.SubscribeAutoID()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range sub.Ch {
			c.Invalidate(ev.Table)
		}
	}()
	return func() {
		n.Unsubscribe(sub.ID)
		<-done
	}
}
