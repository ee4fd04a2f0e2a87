package funfact

import (
	"context"
	"errors"
	"time"

	"map-puzzle/internal/logger"
	"map-puzzle/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// 文档注释：趣闻服务
// 背景：先查 Redis 缓存，再按顺序尝试健康的提供方；全部失败时返回固定兜底文本。
// 约束：永不返回错误，结果不影响对局状态；兜底文本不写入缓存。
type Service struct {
	mgr *Manager
	rdb *redis.Client
	ttl time.Duration
}

func NewService(mgr *Manager, rdb *redis.Client, ttl time.Duration) *Service {
	return &Service{mgr: mgr, rdb: rdb, ttl: ttl}
}

func cacheKey(name string) string { return "funfact:" + name }

func (s *Service) Fact(ctx context.Context, name string) string {
	if s.rdb != nil {
		v, err := s.rdb.Get(ctx, cacheKey(name)).Result()
		if err == nil && v != "" {
			metrics.RedisHitsTotal.WithLabelValues("funfact").Inc()
			return v
		}
		metrics.RedisMissesTotal.WithLabelValues("funfact").Inc()
		if err != nil && err != redis.Nil {
			logger.L().Warn("funfact_cache_get_error", "err", err)
		}
	}
	if s.mgr == nil || s.mgr.Len() == 0 {
		metrics.FactFallbackTotal.WithLabelValues("missing_key").Inc()
		return MissingKeyText(name)
	}
	missing := true
	for _, p := range s.mgr.Healthy() {
		text, err := p.Fact(ctx, name)
		if err == nil {
			if s.rdb != nil {
				if err := s.rdb.Set(ctx, cacheKey(name), text, s.ttl).Err(); err != nil {
					logger.L().Warn("funfact_cache_set_error", "err", err)
				}
			}
			return text
		}
		if !errors.Is(err, ErrMissingKey) {
			missing = false
		}
		logger.L().Warn("funfact_provider_error", "provider", p.Name(), "region", name, "err", err)
	}
	if missing && len(s.mgr.Healthy()) > 0 {
		metrics.FactFallbackTotal.WithLabelValues("missing_key").Inc()
		return MissingKeyText(name)
	}
	metrics.FactFallbackTotal.WithLabelValues("provider_error").Inc()
	return FailureText(name)
}
