package searcher

import (
	"container/list"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/lci/internal/bitset"
	"github.com/standardbeagle/lci/internal/coretypes"
	"github.com/standardbeagle/lci/internal/metrics"
)

// shortTokenCacheSize is K=64: the number of most-recent short-token (len
// < 3) FileId-set lookups the searcher keeps warm, since those bypass
// word_ever_contained and instead scan the global_fst.
const shortTokenCacheSize = 64

type shortTokenCacheEntry struct {
	token coretypes.Token
	files *bitset.Set
}

// shortTokenCache is an LRU over global_fst scan results for query words
// too short to use word_ever_contained directly. Safe for concurrent
// readers: any goroutine may install an entry, and races settle on
// identical values since the scan is deterministic.
type shortTokenCache struct {
	mu    sync.Mutex
	items map[uint64]*list.Element
	order *list.List
}

func newShortTokenCache() *shortTokenCache {
	return &shortTokenCache{
		items: make(map[uint64]*list.Element),
		order: list.New(),
	}
}

func tokenCacheKey(tok coretypes.Token) uint64 {
	return xxhash.Sum64String(string(tok))
}

func (c *shortTokenCache) get(tok coretypes.Token) (*bitset.Set, bool) {
	key := tokenCacheKey(tok)
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		metrics.ShortTokenCacheResults.WithLabelValues("hit").Inc()
		return elem.Value.(*shortTokenCacheEntry).files, true
	}
	metrics.ShortTokenCacheResults.WithLabelValues("miss").Inc()
	return nil, false
}

func (c *shortTokenCache) put(tok coretypes.Token, files *bitset.Set) {
	key := tokenCacheKey(tok)
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*shortTokenCacheEntry).files = files
		return
	}
	elem := c.order.PushFront(&shortTokenCacheEntry{token: tok, files: files})
	c.items[key] = elem
	if c.order.Len() > shortTokenCacheSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, tokenCacheKey(oldest.Value.(*shortTokenCacheEntry).token))
		}
	}
}
