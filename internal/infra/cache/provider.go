package cache

import (
	"context"
	"log/slog"

	"aspen/config"
	"aspen/internal/domain/service"

	"go.uber.org/fx"
)

// Params holds dependencies for the cache, injected by Fx.
type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// New selects the cache implementation from configuration: redis when
// configured, the in-process cache otherwise.
func New(params Params) (service.KVCache, error) {
	var kv service.KVCache

	if params.Config.Redis == nil || params.Config.Redis.Addr == "" {
		params.Logger.Info("Redis not configured, using in-process cache")
		kv = NewMemoryCache()
	} else {
		params.Logger.Info("Using redis cache",
			slog.String("addr", params.Config.Redis.Addr),
		)

		redisKV, err := NewRedisCache(params.Ctx, params.Config.Redis)
		if err != nil {
			return nil, err
		}
		kv = redisKV
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return kv.Close()
		},
	})

	return kv, nil
}
