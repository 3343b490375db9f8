package cache

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Config describes one bounded cache.
type Config struct {
	MaxSize int           `env:"MAX_SIZE"`
	Policy  Policy        `env:"POLICY"`
	TTL     time.Duration `env:"TTL"` // zero disables expiry
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.MaxSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxSize, c.MaxSize)
	}
	if c.Policy != "" && !c.Policy.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, c.Policy)
	}
	return nil
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Name        string
	Policy      Policy
	MaxSize     int
	Size        int
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
}

// HitRate returns hits / (hits + misses), or 0 when the cache was never read.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Option configures a cache.
type Option func(*options)

type options struct {
	name    string
	clock   func() time.Time
	metrics *Metrics
}

// WithName labels the cache in stats and metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithClock replaces time.Now, mainly for TTL tests.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMetrics reports cache activity to the given collector.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

type evicted[K comparable, V any] struct {
	key   K
	value V
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e *entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Cache is a thread-safe, size-bounded cache with a selectable eviction policy
// and optional per-entry TTL. Every operation takes the same mutex.
type Cache[K comparable, V any] struct {
	name    string
	policy  Policy
	maxSize int
	ttl     time.Duration
	clock   func() time.Time
	metrics *Metrics

	items   map[K]*entry[V]
	tracker tracker[K]
	onEvict func(key K, value V) // Called for evicted, expired and cleared entries
	pending []evicted[K, V]      // Dropped under the lock, reported by unlock

	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64

	group singleflight.Group
	mu    sync.Mutex
}

// New creates a cache from cfg. It panics if cfg is invalid.
func New[K comparable, V any](cfg Config, opts ...Option) *Cache[K, V] {
	if err := cfg.Validate(); err != nil {
		panic(err.Error())
	}
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	policy := cfg.Policy
	if policy == "" {
		policy = PolicyLRU
	}
	return &Cache[K, V]{
		name:    o.name,
		policy:  policy,
		maxSize: cfg.MaxSize,
		ttl:     cfg.TTL,
		clock:   o.clock,
		metrics: o.metrics,
		items:   make(map[K]*entry[V], cfg.MaxSize),
		tracker: newTracker[K](policy),
	}
}

// Name returns the cache label.
func (c *Cache[K, V]) Name() string {
	return c.name
}

// SetEvictCallback sets a callback invoked whenever an entry leaves the cache
// other than through Remove. It runs after the cache lock is released, so it
// may call back into the cache.
func (c *Cache[K, V]) SetEvictCallback(fn func(key K, value V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// unlock releases the mutex, then reports entries dropped while it was held.
func (c *Cache[K, V]) unlock() {
	pending, fn := c.pending, c.onEvict
	c.pending = nil
	c.mu.Unlock()
	if fn == nil {
		return
	}
	for _, e := range pending {
		fn(e.key, e.value)
	}
}

// Must be called with lock held.
func (c *Cache[K, V]) dropped(key K, value V) {
	if c.onEvict != nil {
		c.pending = append(c.pending, evicted[K, V]{key: key, value: value})
	}
}

// Get returns the value for key. Expired entries count as misses and are removed.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.unlock()

	e, ok := c.items[key]
	if ok && e.expired(c.clock()) {
		c.expire(key, e)
		ok = false
	}
	if !ok {
		c.misses++
		c.metrics.recordMiss(c.name)
		var zero V
		return zero, false
	}

	c.hits++
	c.metrics.recordHit(c.name)
	c.tracker.touch(key)
	return e.value, true
}

// Contains reports whether a live entry exists without touching policy state or counters.
func (c *Cache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.peek(key)
	return ok
}

// Set stores value under key using the cache's default TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with an explicit TTL; ttl <= 0 means no expiry.
// Inserting into a full cache first sweeps expired entries and, if still full,
// evicts exactly one entry chosen by the policy.
func (c *Cache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.unlock()

	now := c.clock()
	e := &entry[V]{value: value}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}

	if _, ok := c.items[key]; ok {
		c.items[key] = e
		c.tracker.update(key)
		return
	}

	if len(c.items) >= c.maxSize {
		c.purgeExpired(now)
	}
	if len(c.items) >= c.maxSize {
		c.evictOne()
	}

	c.items[key] = e
	c.tracker.add(key)
	c.metrics.setSize(c.name, len(c.items))
}

// Remove deletes key and returns its value if it was present and live.
func (c *Cache[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	delete(c.items, key)
	c.tracker.remove(key)
	c.metrics.setSize(c.name, len(c.items))

	if e.expired(c.clock()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Len returns the number of live entries. Expired entries are swept first.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.unlock()
	c.purgeExpired(c.clock())
	return len(c.items)
}

// Clear removes every entry and resets the counters.
// If an evict callback is set, it's called for each item.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.unlock()

	for key, e := range c.items {
		c.dropped(key, e.value)
	}

	c.items = make(map[K]*entry[V], c.maxSize)
	c.tracker.reset()
	c.hits, c.misses, c.evictions, c.expirations = 0, 0, 0, 0
	c.metrics.setSize(c.name, 0)
}

// Stats returns a snapshot of the counters and the live size.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.unlock()
	c.purgeExpired(c.clock())
	return Stats{
		Name:        c.name,
		Policy:      c.policy,
		MaxSize:     c.maxSize,
		Size:        len(c.items),
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
}

// GetOrLoad returns the cached value for key or calls load once to produce it.
// Concurrent callers missing on the same key share a single load.
// Failed loads are not cached.
func (c *Cache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(flightKey(key), func() (any, error) {
		c.mu.Lock()
		v, ok := c.peek(key)
		c.mu.Unlock()
		if ok {
			return v, nil
		}

		v, err := load()
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ := res.(V)
	return v, nil
}

// Must be called with lock held.
func (c *Cache[K, V]) peek(key K) (V, bool) {
	e, ok := c.items[key]
	if !ok || e.expired(c.clock()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Must be called with lock held.
func (c *Cache[K, V]) purgeExpired(now time.Time) {
	for key, e := range c.items {
		if e.expired(now) {
			c.expire(key, e)
		}
	}
}

// Must be called with lock held.
func (c *Cache[K, V]) expire(key K, e *entry[V]) {
	delete(c.items, key)
	c.tracker.remove(key)
	c.expirations++
	c.metrics.recordExpiration(c.name)
	c.metrics.setSize(c.name, len(c.items))
	c.dropped(key, e.value)
}

// Must be called with lock held. If the tracker and the store have drifted
// apart, an arbitrary stored entry is evicted instead.
func (c *Cache[K, V]) evictOne() {
	key, ok := c.tracker.victim()
	for ok {
		if _, stored := c.items[key]; stored {
			break
		}
		c.tracker.remove(key)
		key, ok = c.tracker.victim()
	}
	if !ok {
		for k := range c.items {
			key, ok = k, true
			break
		}
	}
	if !ok {
		return
	}

	e := c.items[key]
	delete(c.items, key)
	c.tracker.remove(key)
	c.evictions++
	c.metrics.recordEviction(c.name)
	c.dropped(key, e.value)
}

// flightKey derives the single-flight key. Types are keyed by identity since
// distinct types can share a printed name.
func flightKey[K comparable](key K) string {
	switch k := any(key).(type) {
	case string:
		return k
	case reflect.Type:
		return fmt.Sprintf("%s@%p", k, k)
	default:
		return fmt.Sprintf("%T:%#v", key, key)
	}
}
