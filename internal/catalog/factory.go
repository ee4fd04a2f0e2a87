package catalog

import (
	"errors"
	"fmt"
	"time"

	"map-puzzle/internal/config"
	"map-puzzle/internal/store"

	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
)

// Deps：构建数据源时可用的外部依赖，均可为 nil
type Deps struct {
	Redis  *redis.Client
	Store  *store.Store
	Object *minio.Client
}

var errSourceDeps = errors.New("catalog source dependency missing")

// 文档注释：按配置选择边界数据源
// 约束：postgres/object 需要对应依赖已初始化，否则返回错误而不是静默回退到 http
func NewSource(c config.BoundaryConfig, obj config.ObjectConfig, d Deps) (Source, error) {
	switch c.Source {
	case "", "http":
		return NewHTTPSource(c.URL, time.Duration(c.TimeoutSeconds)*time.Second, d.Redis, time.Duration(c.CacheTTLSeconds)*time.Second), nil
	case "file":
		return FileSource{Path: c.File}, nil
	case "postgres":
		if d.Store == nil {
			return nil, fmt.Errorf("%w: postgres", errSourceDeps)
		}
		return PostgresSource{Store: d.Store}, nil
	case "object":
		if d.Object == nil {
			return nil, fmt.Errorf("%w: object", errSourceDeps)
		}
		return ObjectSource{Client: d.Object, Bucket: obj.Bucket, Key: obj.Key}, nil
	default:
		return nil, fmt.Errorf("unknown boundary source %q", c.Source)
	}
}
