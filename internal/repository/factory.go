package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/d60-Lab/zenith-cms/config"
	"github.com/d60-Lab/zenith-cms/pkg/cache"
	"github.com/d60-Lab/zenith-cms/pkg/database"
	"github.com/d60-Lab/zenith-cms/pkg/logger"
)

// Open 按 database.driver 打开对应的存储实现
func Open(ctx context.Context, cfg *config.Config) (PostRepository, error) {
	if cfg.Database.Driver == "mongo" {
		return NewMongoPostRepository(ctx, cfg.Database.MongoURI, cfg.Database.MongoDatabase)
	}
	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	return NewGormPostRepository(db), nil
}

// OpenCached 在 Open 的基础上按 redis.enabled 叠加 Redis 读缓存与回填 worker。
// 返回的 stop 先停 worker 再关闭 Redis 与底层存储。
func OpenCached(ctx context.Context, cfg *config.Config) (PostRepository, func(context.Context) error, error) {
	store, err := Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Redis.Enabled {
		return store, func(context.Context) error { return store.Close() }, nil
	}

	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	cached := NewCachedPostRepository(store, rdb, cfg.Redis.TTL)
	warmer := NewCacheWarmer(cached, cfg.Redis.WarmQueue)
	cached.AttachWarmer(warmer)
	stopWarmer := warmer.Start(cfg.Redis.WarmWorkers)
	logger.Info("post cache enabled",
		zap.String("addr", cfg.Redis.Addr),
		zap.Duration("ttl", cfg.Redis.TTL),
		zap.Int("warm_workers", cfg.Redis.WarmWorkers),
	)

	stop := func(ctx context.Context) error {
		if err := stopWarmer(ctx); err != nil {
			logger.Warn("cache warmer did not drain", zap.Error(err))
		}
		if err := rdb.Close(); err != nil {
			logger.Warn("close redis", zap.Error(err))
		}
		return cached.Close()
	}
	return cached, stop, nil
}
