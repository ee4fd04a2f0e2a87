package projection

import (
	"container/list"
	"sync"

	"map-puzzle/internal/metrics"
)

// 文档注释：进程内 LRU 缓存（投影结果）
// 背景：区域几何加载后不变，同一尺寸下的路径与质心反复被视图读取；尺寸变化后旧键自然被淘汰。
// 约束：并发安全；name 用作命中/未命中指标的标签。
type LRU[K comparable, V any] struct {
	mu   sync.Mutex
	name string
	cap  int
	lst  *list.List
	dict map[K]*list.Element
}

type entry[K comparable, V any] struct {
	k K
	v V
}

func NewLRU[K comparable, V any](name string, capacity int) *LRU[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU[K, V]{name: name, cap: capacity, lst: list.New(), dict: make(map[K]*list.Element)}
}

func (c *LRU[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		c.lst.MoveToFront(e)
		metrics.ProjectionCacheHits.WithLabelValues(c.name).Inc()
		return e.Value.(entry[K, V]).v, true
	}
	metrics.ProjectionCacheMisses.WithLabelValues(c.name).Inc()
	var zero V
	return zero, false
}

func (c *LRU[K, V]) Set(k K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		e.Value = entry[K, V]{k: k, v: v}
		c.lst.MoveToFront(e)
		return
	}
	c.dict[k] = c.lst.PushFront(entry[K, V]{k: k, v: v})
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		if back != nil {
			delete(c.dict, back.Value.(entry[K, V]).k)
			c.lst.Remove(back)
		}
	}
}

func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}
