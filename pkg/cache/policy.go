package cache

import (
	"container/list"
	"fmt"
	"strings"
)

// Policy selects which entry is evicted when a cache is full.
type Policy string

const (
	// PolicyLRU evicts the least recently used entry.
	PolicyLRU Policy = "lru"
	// PolicyLFU evicts the entry with the fewest accesses; ties go to the oldest insertion.
	PolicyLFU Policy = "lfu"
	// PolicyFIFO evicts the earliest inserted entry.
	PolicyFIFO Policy = "fifo"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	switch p {
	case PolicyLRU, PolicyLFU, PolicyFIFO:
		return true
	}
	return false
}

// UnmarshalText parses a policy name case-insensitively.
// It lets config loaders populate Policy fields from environment variables.
func (p *Policy) UnmarshalText(text []byte) error {
	v := Policy(strings.ToLower(strings.TrimSpace(string(text))))
	if v == "" {
		v = PolicyLRU
	}
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, string(text))
	}
	*p = v
	return nil
}

// tracker keeps the eviction bookkeeping for one policy.
// All methods are called with the owning cache's lock held.
type tracker[K comparable] interface {
	add(key K)
	touch(key K)
	update(key K)
	remove(key K)
	victim() (K, bool)
	reset()
}

func newTracker[K comparable](p Policy) tracker[K] {
	switch p {
	case PolicyLFU:
		return newLFUTracker[K]()
	case PolicyFIFO:
		return newListTracker[K](false)
	default:
		return newListTracker[K](true)
	}
}

// listTracker serves both LRU and FIFO: the front holds the newest key,
// the back holds the next victim. LRU moves keys to the front on access.
type listTracker[K comparable] struct {
	recency bool
	order   *list.List
	index   map[K]*list.Element
}

func newListTracker[K comparable](recency bool) *listTracker[K] {
	return &listTracker[K]{
		recency: recency,
		order:   list.New(),
		index:   make(map[K]*list.Element),
	}
}

func (t *listTracker[K]) add(key K) {
	if elem, ok := t.index[key]; ok {
		t.order.MoveToFront(elem)
		return
	}
	t.index[key] = t.order.PushFront(key)
}

func (t *listTracker[K]) touch(key K) {
	if !t.recency {
		return
	}
	if elem, ok := t.index[key]; ok {
		t.order.MoveToFront(elem)
	}
}

// FIFO keeps the original insertion position when a key is overwritten.
func (t *listTracker[K]) update(key K) {
	t.touch(key)
}

func (t *listTracker[K]) remove(key K) {
	if elem, ok := t.index[key]; ok {
		t.order.Remove(elem)
		delete(t.index, key)
	}
}

func (t *listTracker[K]) victim() (K, bool) {
	elem := t.order.Back()
	if elem == nil {
		var zero K
		return zero, false
	}
	return elem.Value.(K), true
}

func (t *listTracker[K]) reset() {
	t.order.Init()
	t.index = make(map[K]*list.Element)
}

type lfuNode struct {
	count uint64
	seq   uint64
}

// lfuTracker scans for the minimum count on eviction. Eviction only runs on
// overflow, so the linear scan is paid once per insert into a full cache.
type lfuTracker[K comparable] struct {
	nodes map[K]*lfuNode
	seq   uint64
}

func newLFUTracker[K comparable]() *lfuTracker[K] {
	return &lfuTracker[K]{nodes: make(map[K]*lfuNode)}
}

func (t *lfuTracker[K]) add(key K) {
	t.seq++
	t.nodes[key] = &lfuNode{count: 1, seq: t.seq}
}

func (t *lfuTracker[K]) touch(key K) {
	if n, ok := t.nodes[key]; ok {
		n.count++
	}
}

func (t *lfuTracker[K]) update(key K) {
	t.touch(key)
}

func (t *lfuTracker[K]) remove(key K) {
	delete(t.nodes, key)
}

func (t *lfuTracker[K]) victim() (K, bool) {
	var (
		best  K
		bestN *lfuNode
	)
	for key, n := range t.nodes {
		if bestN == nil || n.count < bestN.count || (n.count == bestN.count && n.seq < bestN.seq) {
			best, bestN = key, n
		}
	}
	return best, bestN != nil
}

func (t *lfuTracker[K]) reset() {
	t.nodes = make(map[K]*lfuNode)
	t.seq = 0
}
