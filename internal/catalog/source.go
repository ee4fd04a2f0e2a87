package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"map-puzzle/internal/logger"
	"map-puzzle/internal/metrics"
	"map-puzzle/internal/store"

	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
)

// Source：边界文档来源，返回原始 FeatureCollection 字节
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

// 文档注释：HTTP 数据源
// 背景：启动时单次 GET；可选 Redis 读穿缓存原始文档，降低重复启动时对上游的访问。
// 约束：非 200 状态视为失败；Redis 读写失败只记录日志，不影响主流程。
type HTTPSource struct {
	URL      string
	Client   *http.Client
	Redis    *redis.Client
	CacheTTL time.Duration
}

func NewHTTPSource(url string, timeout time.Duration, rdb *redis.Client, ttl time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{URL: url, Client: &http.Client{Timeout: timeout}, Redis: rdb, CacheTTL: ttl}
}

func (s *HTTPSource) Name() string { return "http" }

func (s *HTTPSource) cacheKey() string { return "boundary:" + s.URL }

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	if s.Redis != nil {
		b, err := s.Redis.Get(ctx, s.cacheKey()).Bytes()
		if err == nil && len(b) > 0 {
			metrics.RedisHitsTotal.WithLabelValues("boundary").Inc()
			logger.L().Debug("boundary_cache_hit", "url", s.URL, "bytes", len(b))
			return b, nil
		}
		metrics.RedisMissesTotal.WithLabelValues("boundary").Inc()
		if err != nil && err != redis.Nil {
			logger.L().Warn("boundary_cache_get_error", "err", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode, s.URL)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if s.Redis != nil {
		if err := s.Redis.Set(ctx, s.cacheKey(), b, s.CacheTTL).Err(); err != nil {
			logger.L().Warn("boundary_cache_set_error", "err", err)
		}
	}
	return b, nil
}

// FileSource：本地文件
type FileSource struct{ Path string }

func (s FileSource) Name() string { return "file" }

func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.Path)
}

// PostgresSource：由离线导入维护的镜像表
type PostgresSource struct{ Store *store.Store }

func (s PostgresSource) Name() string { return "postgres" }

func (s PostgresSource) Fetch(ctx context.Context) ([]byte, error) {
	return s.Store.LoadFeatureCollection(ctx)
}

// ObjectSource：对象存储中的文档（bucket + key）
type ObjectSource struct {
	Client *minio.Client
	Bucket string
	Key    string
}

func (s ObjectSource) Name() string { return "object" }

func (s ObjectSource) Fetch(ctx context.Context) ([]byte, error) {
	obj, err := s.Client.GetObject(ctx, s.Bucket, s.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}
