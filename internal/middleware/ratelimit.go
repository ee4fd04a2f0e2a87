package middleware

import (
	"net/http"
	"sync"
	"time"

	"map-puzzle/internal/config"
	"map-puzzle/internal/logger"
)

// 文档注释：令牌桶限流中间件（每秒）
// 背景：在流量峰值时对入口进行限速，避免会话循环被请求淹没；按配置开关与速率。
// 约束：简化实现，不做队列排队，仅丢弃并返回 429；websocket 连接只在握手时计一次。
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	mu       sync.Mutex
	now      func() time.Time
}

func NewTokenBucket(qps int) *TokenBucket {
	if qps <= 0 {
		qps = 200
	}
	return &TokenBucket{capacity: qps, tokens: qps, lastSec: time.Now().Unix(), now: time.Now}
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	nowSec := tb.now().Unix()
	if tb.lastSec != nowSec {
		tb.lastSec = nowSec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wrap：按配置包裹限流；未启用时原样返回
func Wrap(next http.Handler, cfg config.RateLimitConfig) http.Handler {
	if !cfg.Enabled {
		return next
	}
	tb := NewTokenBucket(cfg.QPS)
	logger.L().Info("rate_limit_enabled", "qps", tb.capacity)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tb.Allow() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
