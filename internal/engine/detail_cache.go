package engine

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/tildaslashalef/docsync/internal/store"
)

// detailCache memoizes folder id -> member document ids. Concurrent misses for
// the same folder share one request. A fetch started before an invalidation
// of its folder answers its callers but is never stored.
type detailCache struct {
	mu       sync.Mutex
	entries  map[string][]string
	gens     map[string]uint64
	epoch    uint64
	inflight map[string]struct{}
	group    singleflight.Group
	fetch    func(ctx context.Context, id string) (*store.FolderDetail, error)
}

func newDetailCache(fetch func(ctx context.Context, id string) (*store.FolderDetail, error)) *detailCache {
	return &detailCache{
		entries:  make(map[string][]string),
		gens:     make(map[string]uint64),
		inflight: make(map[string]struct{}),
		fetch:    fetch,
	}
}

func (c *detailCache) get(folderID string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids, ok := c.entries[folderID]
	return ids, ok
}

// resolve returns the member ids of a folder, fetching them on first use
func (c *detailCache) resolve(ctx context.Context, folderID string) ([]string, error) {
	if ids, ok := c.get(folderID); ok {
		return ids, nil
	}

	v, err, _ := c.group.Do(folderID, func() (interface{}, error) {
		c.mu.Lock()
		if ids, ok := c.entries[folderID]; ok {
			c.mu.Unlock()
			return ids, nil
		}
		gen, epoch := c.gens[folderID], c.epoch
		c.inflight[folderID] = struct{}{}
		c.mu.Unlock()

		detail, err := c.fetch(ctx, folderID)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gens[folderID] == gen && c.epoch == epoch {
			delete(c.inflight, folderID)
		}
		if err != nil {
			return nil, err
		}

		ids := append([]string(nil), detail.DocumentIDs...)
		if c.gens[folderID] == gen && c.epoch == epoch {
			c.entries[folderID] = ids
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// invalidate drops the entry of one folder and detaches any fetch in flight for it
func (c *detailCache) invalidate(folderID string) {
	c.mu.Lock()
	delete(c.entries, folderID)
	delete(c.inflight, folderID)
	c.gens[folderID]++
	c.mu.Unlock()
	c.group.Forget(folderID)
}

// invalidateContaining drops every entry listing docID and returns the affected
// folder ids. Fetches in flight may list docID too, so none of them is stored.
func (c *detailCache) invalidateContaining(docID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	for folderID := range c.inflight {
		delete(c.inflight, folderID)
		c.group.Forget(folderID)
	}

	var dropped []string
	for folderID, ids := range c.entries {
		for _, id := range ids {
			if id == docID {
				dropped = append(dropped, folderID)
				delete(c.entries, folderID)
				break
			}
		}
	}
	return dropped
}

func (c *detailCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
