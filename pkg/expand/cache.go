package expand

// rarityCache is a small LRU keyed by term. Expansion hits the same
// vocabulary on every tick change, so the collection ratios are worth
// keeping around.
type rarityCache struct {
	cache       map[string]float64
	accessOrder []string
	maxSize     int
}

func newRarityCache(maxSize int) *rarityCache {
	return &rarityCache{
		cache:       make(map[string]float64, maxSize),
		accessOrder: make([]string, 0, maxSize),
		maxSize:     maxSize,
	}
}

func (c *rarityCache) get(term string) (float64, bool) {
	val, ok := c.cache[term]
	if ok {
		c.markAccessed(term)
	}
	return val, ok
}

// set stores a weight, evicting the least recently used entry when
// full.
func (c *rarityCache) set(term string, val float64) {
	if len(c.cache) >= c.maxSize {
		if len(c.accessOrder) > 0 {
			evict := c.accessOrder[0]
			delete(c.cache, evict)
			c.accessOrder = c.accessOrder[1:]
		}
	}
	c.cache[term] = val
	c.accessOrder = append(c.accessOrder, term)
}

func (c *rarityCache) clear() {
	c.cache = make(map[string]float64, c.maxSize)
	c.accessOrder = c.accessOrder[:0]
}

// markAccessed moves term to the back of the eviction order.
func (c *rarityCache) markAccessed(term string) {
	for i, t := range c.accessOrder {
		if t == term {
			c.accessOrder = append(c.accessOrder[:i], c.accessOrder[i+1:]...)
			break
		}
	}
	c.accessOrder = append(c.accessOrder, term)
}
