package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"notekeep-api/domain"
)

type backend interface {
	CreateNote(ctx context.Context, ownerID string, draft domain.Draft) (domain.Note, error)
	ListNotes(ctx context.Context, ownerID string) ([]domain.Note, error)
	UpdateNote(ctx context.Context, ownerID, noteID string, patch domain.Patch) (domain.Note, error)
	DeleteNote(ctx context.Context, ownerID, noteID string) (domain.Note, error)
	ResolveShared(ctx context.Context, publicID string) (domain.PublicNote, error)
	EnqueueEvents(ctx context.Context, ownerID string, events []domain.NoteEvent) error
}

// Cache wraps a Storage instance with Redis-backed caching for the two read
// paths: per-owner note listings and public share projections. Mutations
// write through to the backing storage and evict whatever they touched.
type Cache struct {
	*Storage
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Storage wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}

	c := &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
	if s, ok := base.(*Storage); ok {
		c.Storage = s
	}
	return c
}

func (c *Cache) CreateNote(ctx context.Context, ownerID string, draft domain.Draft) (domain.Note, error) {
	n, err := c.base.CreateNote(ctx, ownerID, draft)
	if err != nil {
		return domain.Note{}, err
	}
	c.evict(ctx, notesCacheKey(ownerID))
	return n, nil
}

func (c *Cache) ListNotes(ctx context.Context, ownerID string) ([]domain.Note, error) {
	if notes, ok := c.loadNotesFromCache(ctx, ownerID); ok {
		return notes, nil
	}

	notes, err := c.base.ListNotes(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	c.storeNotes(ctx, ownerID, notes)
	return notes, nil
}

func (c *Cache) UpdateNote(ctx context.Context, ownerID, noteID string, patch domain.Patch) (domain.Note, error) {
	n, err := c.base.UpdateNote(ctx, ownerID, noteID, patch)
	if err != nil {
		return domain.Note{}, err
	}
	c.evict(ctx, notesCacheKey(ownerID), shareCacheKey(n.PublicID))
	return n, nil
}

func (c *Cache) DeleteNote(ctx context.Context, ownerID, noteID string) (domain.Note, error) {
	n, err := c.base.DeleteNote(ctx, ownerID, noteID)
	if err != nil {
		return domain.Note{}, err
	}
	c.evict(ctx, notesCacheKey(ownerID), shareCacheKey(n.PublicID))
	return n, nil
}

func (c *Cache) ResolveShared(ctx context.Context, publicID string) (domain.PublicNote, error) {
	if view, ok := c.loadShareFromCache(ctx, publicID); ok {
		return view, nil
	}

	view, err := c.base.ResolveShared(ctx, publicID)
	if err != nil {
		return domain.PublicNote{}, err
	}

	c.storeShare(ctx, publicID, view)
	return view, nil
}

func (c *Cache) EnqueueEvents(ctx context.Context, ownerID string, events []domain.NoteEvent) error {
	return c.base.EnqueueEvents(ctx, ownerID, events)
}

func (c *Cache) loadNotesFromCache(ctx context.Context, ownerID string) ([]domain.Note, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, notesCacheKey(ownerID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, notesCacheKey(ownerID)).Err()
		}
		return nil, false
	}
	var notes []domain.Note
	if err := json.Unmarshal(data, &notes); err != nil {
		_ = c.redis.Del(ctx, notesCacheKey(ownerID)).Err()
		return nil, false
	}
	return notes, true
}

func (c *Cache) loadShareFromCache(ctx context.Context, publicID string) (domain.PublicNote, bool) {
	if c.redis == nil {
		return domain.PublicNote{}, false
	}
	data, err := c.redis.Get(ctx, shareCacheKey(publicID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			_ = c.redis.Del(ctx, shareCacheKey(publicID)).Err()
		}
		return domain.PublicNote{}, false
	}
	var view domain.PublicNote
	if err := json.Unmarshal(data, &view); err != nil {
		_ = c.redis.Del(ctx, shareCacheKey(publicID)).Err()
		return domain.PublicNote{}, false
	}
	return view, true
}

func (c *Cache) storeNotes(ctx context.Context, ownerID string, notes []domain.Note) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(notes)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, notesCacheKey(ownerID), data, c.ttl).Err()
}

func (c *Cache) storeShare(ctx context.Context, publicID string, view domain.PublicNote) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(view)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, shareCacheKey(publicID), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, keys ...string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

func notesCacheKey(ownerID string) string {
	return "notes:" + ownerID
}

func shareCacheKey(publicID string) string {
	return "share:" + publicID
}
