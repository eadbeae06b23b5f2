package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Gunvolt24/dms_events/internal/domain"
	"github.com/Gunvolt24/dms_events/internal/ports"
	"github.com/Gunvolt24/dms_events/pkg/metrics"
)

// Проверка, что LRUCacheTTL удовлетворяет порту кэша профилей.
var _ ports.UserCache = (*LRUCacheTTL)(nil)

type entry struct {
	id        uuid.UUID
	user      *domain.UserProfile
	expiresAt time.Time
}

// LRUCacheTTL — потокобезопасный LRU-кэш профилей со скользящим TTL (ttl <= 0: без истечения).
type LRUCacheTTL struct {
	capacity int
	ttl      time.Duration

	ll    *list.List
	cache map[uuid.UUID]*list.Element

	mu sync.Mutex
}

func NewLRUCacheTTL(capacity int, ttl time.Duration) *LRUCacheTTL {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRUCacheTTL{
		capacity: capacity,
		ttl:      ttl,
		ll:       list.New(),
		cache:    make(map[uuid.UUID]*list.Element),
	}
}

func (c *LRUCacheTTL) Get(_ context.Context, id uuid.UUID) (*domain.UserProfile, bool) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[id]
	if !ok {
		metrics.CacheOps.WithLabelValues("miss").Inc()
		return nil, false
	}
	ent := elem.Value.(*entry)
	if c.isExpired(ent, now) {
		metrics.CacheOps.WithLabelValues("expired").Inc()
		c.removeElement(elem)
		metrics.CacheSize.Set(float64(c.ll.Len()))
		return nil, false
	}
	c.ll.MoveToFront(elem)

	if c.ttl > 0 {
		ent.expiresAt = c.expiryFrom(now)
	}

	metrics.CacheOps.WithLabelValues("hit").Inc()
	return cloneUser(ent.user), true
}

// Set — в кэше остаётся более свежая версия профиля (по UpdatedAt).
func (c *LRUCacheTTL) Set(_ context.Context, user *domain.UserProfile) error {
	if user == nil || user.ID == uuid.Nil {
		return nil
	}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[user.ID]; ok {
		ent := elem.Value.(*entry)
		if !user.UpdatedAt.Before(ent.user.UpdatedAt) {
			ent.user = cloneUser(user)
		}
		ent.expiresAt = c.expiryFrom(now)
		c.ll.MoveToFront(elem)
		return nil
	}

	c.pruneExpiredFromBack(now)

	elem := c.ll.PushFront(&entry{
		id:        user.ID,
		user:      cloneUser(user),
		expiresAt: c.expiryFrom(now),
	})
	c.cache[user.ID] = elem
	metrics.CacheSize.Set(float64(c.ll.Len()))

	if c.ll.Len() > c.capacity {
		c.evictLRU()
	}
	return nil
}

func (c *LRUCacheTTL) WarmUp(ctx context.Context, users []*domain.UserProfile) error {
	for _, user := range users {
		if err := c.Set(ctx, user); err != nil {
			return err
		}
	}
	return nil
}

// Len — текущее число записей (вместе с ещё не вычищенными просроченными).
func (c *LRUCacheTTL) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
