package cache

import (
	"container/list"
	"hash/fnv"
	"sort"
	"sync"
	"time"
)

const defaultShards = 16

// Options bounds a MemoryStore.
type Options struct {
	// MaxEntries caps the number of live entries; 0 means unbounded. The cap
	// is split evenly across shards and each shard evicts its
	// oldest-inserted entry first.
	MaxEntries int
	// TTL is the default lifetime of an entry; 0 means entries never expire.
	TTL time.Duration
	// SweepInterval is how often expired entries are removed; defaults to
	// TTL/2, capped at 5 minutes.
	SweepInterval time.Duration
	// Shards defaults to 16 (fewer when MaxEntries is smaller).
	Shards int
	// Now overrides the clock in tests.
	Now func() time.Time
}

// MemoryStore is a sharded in-memory key-value store with expiration and a
// size bound. Reads never mutate the store.
type MemoryStore[V any] struct {
	shards []*shard[V]
	ttl    time.Duration
	now    func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type shard[V any] struct {
	mu       sync.RWMutex
	items    map[string]*list.Element
	order    *list.List // front is oldest
	capacity int
}

type memoryItem[V any] struct {
	key        string
	value      V
	expireTime time.Time // zero means no expiry
}

// NewMemoryStore creates a store and starts the expiry sweeper when a TTL is
// set. Call Close to stop it.
func NewMemoryStore[V any](opts Options) *MemoryStore[V] {
	n := opts.Shards
	if n <= 0 {
		n = defaultShards
	}
	if opts.MaxEntries > 0 && opts.MaxEntries < n {
		n = opts.MaxEntries
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	ms := &MemoryStore[V]{
		shards: make([]*shard[V], n),
		ttl:    opts.TTL,
		now:    now,
		stop:   make(chan struct{}),
	}
	for i := range ms.shards {
		capacity := 0
		if opts.MaxEntries > 0 {
			capacity = opts.MaxEntries / n
			if i < opts.MaxEntries%n {
				capacity++
			}
		}
		ms.shards[i] = &shard[V]{
			items:    make(map[string]*list.Element),
			order:    list.New(),
			capacity: capacity,
		}
	}

	if opts.TTL > 0 {
		interval := opts.SweepInterval
		if interval <= 0 {
			interval = opts.TTL / 2
			if interval > 5*time.Minute {
				interval = 5 * time.Minute
			}
		}
		ms.wg.Add(1)
		go ms.cleanupExpired(interval)
	}
	return ms
}

func (ms *MemoryStore[V]) shardFor(key string) *shard[V] {
	if len(ms.shards) == 1 {
		return ms.shards[0]
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return ms.shards[h.Sum32()%uint32(len(ms.shards))]
}

// Set stores value under key with the default TTL, replacing any previous
// value. A replaced key counts as newly inserted.
func (ms *MemoryStore[V]) Set(key string, value V) {
	ms.SetWithTTL(key, value, ms.ttl)
}

// SetWithTTL stores value with an explicit lifetime (0 = no expiry).
func (ms *MemoryStore[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	s := ms.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(key, value, ms.expiry(ttl))
}

// SetIfAbsent stores value only when key has no live entry. It reports
// whether the value was stored.
func (ms *MemoryStore[V]) SetIfAbsent(key string, value V, ttl time.Duration) bool {
	s := ms.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok && !ms.expired(el.Value.(*memoryItem[V])) {
		return false
	}
	s.put(key, value, ms.expiry(ttl))
	return true
}

func (ms *MemoryStore[V]) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return ms.now().Add(ttl)
}

func (ms *MemoryStore[V]) expired(item *memoryItem[V]) bool {
	return !item.expireTime.IsZero() && !ms.now().Before(item.expireTime)
}

func (s *shard[V]) put(key string, value V, expireTime time.Time) {
	if el, ok := s.items[key]; ok {
		s.order.Remove(el)
	}
	s.items[key] = s.order.PushBack(&memoryItem[V]{
		key:        key,
		value:      value,
		expireTime: expireTime,
	})

	for s.capacity > 0 && s.order.Len() > s.capacity {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*memoryItem[V]).key)
	}
}

// Get retrieves a value by key. Expired entries are reported as absent.
func (ms *MemoryStore[V]) Get(key string) (V, bool) {
	s := ms.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero V
	el, exists := s.items[key]
	if !exists {
		return zero, false
	}
	item := el.Value.(*memoryItem[V])
	if ms.expired(item) {
		return zero, false
	}
	return item.value, true
}

// Delete removes a key
func (ms *MemoryStore[V]) Delete(key string) {
	s := ms.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		s.order.Remove(el)
		delete(s.items, key)
	}
}

// Keys returns the live keys, sorted.
func (ms *MemoryStore[V]) Keys() []string {
	var keys []string
	for _, s := range ms.shards {
		s.mu.RLock()
		for key, el := range s.items {
			if !ms.expired(el.Value.(*memoryItem[V])) {
				keys = append(keys, key)
			}
		}
		s.mu.RUnlock()
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored entries, including expired ones not yet
// swept.
func (ms *MemoryStore[V]) Len() int {
	n := 0
	for _, s := range ms.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// Sweep removes expired entries and returns how many were removed.
func (ms *MemoryStore[V]) Sweep() int {
	removed := 0
	for _, s := range ms.shards {
		s.mu.Lock()
		for key, el := range s.items {
			if ms.expired(el.Value.(*memoryItem[V])) {
				s.order.Remove(el)
				delete(s.items, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Close stops the sweeper. It is safe to call more than once.
func (ms *MemoryStore[V]) Close() {
	ms.stopOnce.Do(func() {
		close(ms.stop)
	})
	ms.wg.Wait()
}

// cleanupExpired periodically removes expired items
func (ms *MemoryStore[V]) cleanupExpired(interval time.Duration) {
	defer ms.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.Sweep()
		case <-ms.stop:
			return
		}
	}
}
