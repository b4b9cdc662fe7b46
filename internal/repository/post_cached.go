package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/zenith-cms/internal/model"
	"github.com/d60-Lab/zenith-cms/pkg/logger"
)

const (
	listCacheKey       = "posts:all"
	itemCachePrefix    = "posts:item:"
	generationCacheKey = "posts:gen"
)

func itemCacheKey(id string) string { return itemCachePrefix + id }

// CachedPostRepository 在 PostRepository 外加一层 redis cache-aside。
// 每次写操作成功后先同步失效缓存再返回，随后交给 CacheWarmer 异步回填列表。
type CachedPostRepository struct {
	inner  PostRepository
	cache  *redis.Client
	ttl    time.Duration
	warmer *CacheWarmer
}

func NewCachedPostRepository(inner PostRepository, cache *redis.Client, ttl time.Duration) *CachedPostRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedPostRepository{inner: inner, cache: cache, ttl: ttl}
}

// AttachWarmer enables asynchronous list re-warming after mutations.
func (r *CachedPostRepository) AttachWarmer(w *CacheWarmer) { r.warmer = w }

func (r *CachedPostRepository) Insert(ctx context.Context, post *model.Post) (string, error) {
	id, err := r.inner.Insert(ctx, post)
	if err != nil {
		return "", err
	}
	r.invalidate(ctx, id)
	return id, nil
}

func (r *CachedPostRepository) FindAll(ctx context.Context) ([]*model.Post, error) {
	if data, err := r.cache.Get(ctx, listCacheKey).Bytes(); err == nil {
		var out []*model.Post
		if uErr := json.Unmarshal(data, &out); uErr == nil {
			return out, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn("post cache read failed", zap.String("key", listCacheKey), zap.Error(err))
	}
	return loadAndFill(ctx, r, listCacheKey, r.inner.FindAll)
}

func (r *CachedPostRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	key := itemCacheKey(id)
	if data, err := r.cache.Get(ctx, key).Bytes(); err == nil {
		var out model.Post
		if uErr := json.Unmarshal(data, &out); uErr == nil {
			return &out, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn("post cache read failed", zap.String("key", key), zap.Error(err))
	}
	return loadAndFill(ctx, r, key, func(ctx context.Context) (*model.Post, error) {
		return r.inner.FindByID(ctx, id)
	})
}

func (r *CachedPostRepository) UpdateFields(ctx context.Context, id string, fields model.PostFields) (bool, error) {
	matched, err := r.inner.UpdateFields(ctx, id, fields)
	if err != nil || !matched {
		return matched, err
	}
	r.invalidate(ctx, id)
	return true, nil
}

func (r *CachedPostRepository) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := r.inner.Delete(ctx, id)
	if err != nil || !removed {
		return removed, err
	}
	r.invalidate(ctx, id)
	return true, nil
}

func (r *CachedPostRepository) Close() error { return r.inner.Close() }

// Warm reloads the list key from the inner store.
func (r *CachedPostRepository) Warm(ctx context.Context) error {
	_, err := loadAndFill(ctx, r, listCacheKey, r.inner.FindAll)
	return err
}

// invalidate 递增代数并删除列表与单条缓存；正在进行的回填会因 WATCH 失败而放弃
func (r *CachedPostRepository) invalidate(ctx context.Context, id string) {
	_, err := r.cache.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, generationCacheKey)
		p.Del(ctx, listCacheKey, itemCacheKey(id))
		return nil
	})
	if err != nil {
		logger.Error("post cache invalidation failed", zap.String("id", id), zap.Error(err))
	}
	if r.warmer != nil {
		r.warmer.Enqueue(id)
	}
}

// loadAndFill 在 WATCH 代数键的事务内回源并写缓存，
// 与失效并发时写入被丢弃，不会留下旧数据。
func loadAndFill[T any](ctx context.Context, r *CachedPostRepository, key string, load func(context.Context) (T, error)) (T, error) {
	var (
		out     T
		loaded  bool
		loadErr error
	)
	err := r.cache.Watch(ctx, func(tx *redis.Tx) error {
		out, loadErr = load(ctx)
		if loadErr != nil {
			return loadErr
		}
		loaded = true
		payload, err := json.Marshal(out)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, payload, r.ttl)
			return nil
		})
		return err
	}, generationCacheKey)

	switch {
	case loadErr != nil:
		return out, loadErr
	case loaded:
		if err != nil && !errors.Is(err, redis.TxFailedErr) {
			logger.Warn("post cache fill failed", zap.String("key", key), zap.Error(err))
		}
		return out, nil
	default:
		// redis 不可用：直接回源
		logger.Warn("post cache unavailable, reading through", zap.String("key", key), zap.Error(err))
		return load(ctx)
	}
}
