package redirect

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"linkroute/internal/engine/links"
)

// LinkCache holds resolved links by alias for the redirect path.
type LinkCache interface {
	Get(ctx context.Context, alias string) (*links.Link, bool)
	Set(ctx context.Context, alias string, link *links.Link)
	Delete(ctx context.Context, alias string)
}

type memoryEntry struct {
	link     *links.Link
	cachedAt time.Time
}

// MemoryCache is a per-process TTL cache.
type MemoryCache struct {
	store sync.Map // map[alias]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, alias string) (*links.Link, bool) {
	val, ok := c.store.Load(alias)
	if !ok {
		return nil, false
	}

	entry := val.(memoryEntry)
	if c.now().Sub(entry.cachedAt) > c.ttl {
		c.store.Delete(alias)
		return nil, false
	}

	return cloneLink(entry.link), true
}

func (c *MemoryCache) Set(_ context.Context, alias string, link *links.Link) {
	c.store.Store(alias, memoryEntry{link: cloneLink(link), cachedAt: c.now()})
}

func (c *MemoryCache) Delete(_ context.Context, alias string) {
	c.store.Delete(alias)
}

// cachedLink is the redis payload. The password hash is not part of the
// link's JSON form, so it travels separately.
type cachedLink struct {
	Link         *links.Link `json:"link"`
	PasswordHash string      `json:"passwordHash,omitempty"`
}

// RedisCache shares resolved links between server instances.
type RedisCache struct {
	rc     *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(rc *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rc: rc, ttl: ttl, prefix: "linkroute:link:"}
}

func (c *RedisCache) key(alias string) string {
	return c.prefix + alias
}

func (c *RedisCache) Get(ctx context.Context, alias string) (*links.Link, bool) {
	bs, err := c.rc.Get(ctx, c.key(alias)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("alias", alias).Msg("redis link cache read failed")
		}
		return nil, false
	}
	link, err := decodeCachedLink(bs)
	if err != nil {
		log.Warn().Err(err).Str("alias", alias).Msg("discarding corrupt cached link")
		return nil, false
	}
	return link, true
}

func (c *RedisCache) Set(ctx context.Context, alias string, link *links.Link) {
	bs, err := encodeCachedLink(link)
	if err != nil {
		return
	}
	if err := c.rc.Set(ctx, c.key(alias), bs, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("alias", alias).Msg("redis link cache write failed")
	}
}

func (c *RedisCache) Delete(ctx context.Context, alias string) {
	if err := c.rc.Del(ctx, c.key(alias)).Err(); err != nil {
		log.Warn().Err(err).Str("alias", alias).Msg("redis link cache delete failed")
	}
}

func encodeCachedLink(link *links.Link) ([]byte, error) {
	return json.Marshal(cachedLink{Link: link, PasswordHash: link.PasswordHash})
}

func decodeCachedLink(bs []byte) (*links.Link, error) {
	var c cachedLink
	if err := json.Unmarshal(bs, &c); err != nil {
		return nil, err
	}
	if c.Link == nil {
		return nil, errors.New("empty cache entry")
	}
	c.Link.PasswordHash = c.PasswordHash
	return c.Link, nil
}

func cloneLink(l *links.Link) *links.Link {
	cp := *l
	if l.MultipleDestinationRules != nil {
		cp.MultipleDestinationRules = append(cp.MultipleDestinationRules[:0:0], l.MultipleDestinationRules...)
	}
	return &cp
}

// LinkStore is the persistent source behind the cache.
type LinkStore interface {
	GetByAlias(ctx context.Context, alias string) (*links.Link, error)
}

// CachedLoader reads links through a LinkCache.
type CachedLoader struct {
	store LinkStore
	cache LinkCache
}

func NewCachedLoader(store LinkStore, cache LinkCache) *CachedLoader {
	return &CachedLoader{store: store, cache: cache}
}

func (l *CachedLoader) Load(ctx context.Context, alias string) (*links.Link, error) {
	if l.cache != nil {
		if link, ok := l.cache.Get(ctx, alias); ok {
			return link, nil
		}
	}

	link, err := l.store.GetByAlias(ctx, alias)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		l.cache.Set(ctx, alias, link)
	}
	return link, nil
}

// Invalidate drops alias from the cache after a write.
func (l *CachedLoader) Invalidate(ctx context.Context, alias string) {
	if l.cache != nil {
		l.cache.Delete(ctx, alias)
	}
}
