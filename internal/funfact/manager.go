package funfact

import (
	"context"
	"sync"
	"time"

	"map-puzzle/internal/logger"
	"map-puzzle/internal/metrics"
)

type status struct {
	healthy bool
	last    time.Time
}

// 文档注释：提供方管理器
// 背景：负责注册、心跳与健康筛选；查询按注册顺序依次尝试健康的提供方。
// 约束：心跳周期默认 30s；心跳失败视为不健康，恢复后自动重新参与；线程安全读写。
type Manager struct {
	mu         sync.RWMutex
	ps         []Provider
	st         map[string]status
	hbInterval time.Duration
}

func NewManager(interval time.Duration) *Manager {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Manager{st: make(map[string]status), hbInterval: interval}
}

// Register：新注册的提供方默认健康
func (m *Manager) Register(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ps = append(m.ps, p)
	m.st[p.Name()] = status{healthy: true, last: time.Now()}
	logger.L().Info("fact_provider_registered", "name", p.Name())
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ps)
}

// Healthy：按注册顺序返回健康的提供方
func (m *Manager) Healthy() []Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Provider
	for _, p := range m.ps {
		if m.st[p.Name()].healthy {
			out = append(out, p)
		}
	}
	return out
}

// Start：周期心跳，ctx 取消时停止
func (m *Manager) Start(ctx context.Context) {
	t := time.NewTicker(m.hbInterval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.Heartbeat(ctx)
			}
		}
	}()
}

// Heartbeat：对全部提供方执行一次心跳；网络调用在锁外进行
func (m *Manager) Heartbeat(ctx context.Context) {
	m.mu.RLock()
	ps := append([]Provider(nil), m.ps...)
	m.mu.RUnlock()
	for _, p := range ps {
		err := p.Heartbeat(ctx)
		m.mu.Lock()
		m.st[p.Name()] = status{healthy: err == nil, last: time.Now()}
		m.mu.Unlock()
		if err != nil {
			logger.L().Debug("fact_provider_heartbeat_fail", "name", p.Name(), "err", err)
			metrics.ProviderHeartbeatTotal.WithLabelValues(p.Name(), "fail").Inc()
		} else {
			metrics.ProviderHeartbeatTotal.WithLabelValues(p.Name(), "ok").Inc()
		}
	}
}
