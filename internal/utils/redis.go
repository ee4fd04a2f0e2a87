// 包 utils：Redis / PostgreSQL / 对象存储连接工具，统一由配置构造
package utils

import (
	"map-puzzle/internal/config"
	"map-puzzle/internal/logger"

	"github.com/redis/go-redis/v9"
)

// OpenRedis：使用地址与密码打开 Redis 客户端
// 背景：保留直接传入参数的能力，用于测试与手工注入场景
func OpenRedis(addr, pass string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass})
}

// OpenRedisFromConfig：按配置打开 Redis 客户端
// 约束：未启用时返回 nil，调用方据此跳过缓存；DB 为负数时回退到 0
func OpenRedisFromConfig(c config.RedisConfig) *redis.Client {
	if !c.Enabled {
		return nil
	}
	addr := c.Host + ":" + c.Port
	db := c.DB
	if db < 0 {
		db = 0
	}
	logger.L().Debug("redis_config", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: c.Pass, DB: db})
}
