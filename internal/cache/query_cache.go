package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"gitlab.com/timkado/api/voice-agent-console/internal/observer"
	"gitlab.com/timkado/api/voice-agent-console/pkg/logger"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// Key identifies a cached query: resource first, then optional id and sub-resource.
type Key []string

// Resource returns the leading segment.
func (k Key) Resource() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether p is a leading segment run of k.
func (k Key) HasPrefix(p Key) bool {
	if len(p) > len(k) {
		return false
	}
	for i := range p {
		if k[i] != p[i] {
			return false
		}
	}
	return true
}

// related reports whether one key is a prefix of the other.
func related(a, b Key) bool {
	return a.HasPrefix(b) || b.HasPrefix(a)
}

// Kind tells subscribers what happened to a key.
type Kind string

const (
	KindUpdated     Kind = "updated"
	KindInvalidated Kind = "invalidated"
)

// Notification is delivered to subscribers whose prefix relates to Key.
type Notification struct {
	Key   Key
	Kind  Kind
	Count int // entries dropped, for invalidations
}

// Stats is a point-in-time view of the cache counters.
type Stats struct {
	Entries     int
	Hits        int64
	Misses      int64
	Subscribers int
}

type entry struct {
	key      Key
	value    interface{}
	storedAt time.Time
}

type subscriber struct {
	prefix Key
	ch     chan Notification
}

// Store is the shared query cache. Entries never expire; they only leave through Invalidate.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	// epoch moves on every invalidation so loads that started earlier do not repopulate stale data.
	epoch atomic.Uint64
	group singleflight.Group

	subMu       sync.RWMutex
	subscribers map[string]subscriber

	hits   atomic.Int64
	misses atomic.Int64
	logger *zap.Logger
}

// New creates an empty Store. A nil logger falls back to the global one.
func New(log *zap.Logger) *Store {
	if log == nil {
		log = logger.Log
	}
	return &Store{
		entries:     make(map[string]entry),
		subscribers: make(map[string]subscriber),
		logger:      log.Named("cache"),
	}
}

// Get returns the cached value for key.
func (s *Store) Get(key Key) (interface{}, bool) {
	s.mu.RLock()
	e, ok := s.entries[key.String()]
	s.mu.RUnlock()

	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	observer.IncCacheLookup(key.Resource(), ok)
	return e.value, ok
}

// Set stores value under key and notifies subscribers.
func (s *Store) Set(key Key, value interface{}) {
	s.mu.Lock()
	s.entries[key.String()] = entry{key: append(Key(nil), key...), value: value, storedAt: time.Now()}
	s.mu.Unlock()

	s.publish(Notification{Key: key, Kind: KindUpdated})
}

// Invalidate drops every entry under prefix and returns how many were removed.
// Subscribers are notified even when nothing was cached, so views can refetch.
func (s *Store) Invalidate(prefix Key) int {
	s.epoch.Add(1)

	s.mu.Lock()
	removed := 0
	for k, e := range s.entries {
		if e.key.HasPrefix(prefix) {
			delete(s.entries, k)
			removed++
		}
	}
	s.mu.Unlock()

	observer.AddCacheInvalidations(prefix.Resource(), removed)
	s.logger.Debug("Invalidated cache entries", zap.String("prefix", prefix.String()), zap.Int("removed", removed))
	s.publish(Notification{Key: prefix, Kind: KindInvalidated, Count: removed})
	return removed
}

// Subscribe registers for notifications related to prefix. The subscription is
// removed, and its channel closed, when ctx is cancelled.
func (s *Store) Subscribe(ctx context.Context, prefix Key) (<-chan Notification, string) {
	subID := uuid.NewString()
	ch := make(chan Notification, subscriberBufferSize)

	s.subMu.Lock()
	s.subscribers[subID] = subscriber{prefix: append(Key(nil), prefix...), ch: ch}
	count := len(s.subscribers)
	s.subMu.Unlock()
	observer.SetCacheSubscribers(count)

	go func() {
		<-ctx.Done()
		s.Unsubscribe(subID)
	}()

	return ch, subID
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(subID string) {
	s.subMu.Lock()
	sub, ok := s.subscribers[subID]
	if ok {
		delete(s.subscribers, subID)
		close(sub.ch)
	}
	count := len(s.subscribers)
	s.subMu.Unlock()

	if ok {
		observer.SetCacheSubscribers(count)
	}
}

// Close removes every subscription.
func (s *Store) Close() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, sub := range s.subscribers {
		close(sub.ch)
		delete(s.subscribers, id)
	}
	observer.SetCacheSubscribers(0)
}

// Stats returns the current counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	entries := len(s.entries)
	s.mu.RUnlock()
	s.subMu.RLock()
	subs := len(s.subscribers)
	s.subMu.RUnlock()

	return Stats{Entries: entries, Hits: s.hits.Load(), Misses: s.misses.Load(), Subscribers: subs}
}

// publish fans out without blocking; slow subscribers miss notifications.
func (s *Store) publish(n Notification) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for id, sub := range s.subscribers {
		if !related(n.Key, sub.prefix) {
			continue
		}
		select {
		case sub.ch <- n:
		default:
			s.logger.Debug("Dropped cache notification for slow subscriber",
				zap.String("sub_id", id),
				zap.String("key", n.Key.String()))
		}
	}
}

// Fetch returns the cached value for key or loads it with load. Concurrent
// fetches of one key share a single load. A load that overlaps an
// invalidation returns its result without caching it.
func Fetch[T any](ctx context.Context, s *Store, key Key, load func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := s.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	v, err, _ := s.group.Do(key.String(), func() (interface{}, error) {
		epoch := s.epoch.Load()
		result, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if s.epoch.Load() == epoch {
			s.Set(key, result)
		}
		return result, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
