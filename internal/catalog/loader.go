package catalog

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"map-puzzle/internal/geo"
	"map-puzzle/internal/logger"
	"map-puzzle/internal/metrics"
)

// 文档注释：从数据源取回文档、解析并构造目录
// 约束：不重试；任何失败都包装为 ErrCatalogLoad。
func Load(ctx context.Context, src Source) (*Catalog, error) {
	start := time.Now()
	cat, err := load(ctx, src)
	metrics.CatalogLoadDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.CatalogLoadTotal.WithLabelValues(src.Name(), "error").Inc()
		logger.L().Error("catalog_load_error", "source", src.Name(), "err", err)
		return nil, err
	}
	metrics.CatalogLoadTotal.WithLabelValues(src.Name(), "ok").Inc()
	metrics.CatalogRegions.Set(float64(cat.Len()))
	logger.L().Info("catalog_loaded", "source", src.Name(), "regions", cat.Len(), "elapsed_ms", time.Since(start).Milliseconds())
	return cat, nil
}

func load(ctx context.Context, src Source) (*Catalog, error) {
	doc, err := src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch from %s: %v", ErrCatalogLoad, src.Name(), err)
	}
	fc, err := geo.DecodeFeatureCollection(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogLoad, err)
	}
	cat, err := New(fc.Regions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogLoad, err)
	}
	return cat, nil
}

// Status：目录加载状态
type Status int

const (
	Loading Status = iota
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "loading"
	}
}

type snapshot struct {
	status Status
	cat    *Catalog
	err    error
}

// 文档注释：目录持有者，整体替换状态快照（原子指针）
// 背景：加载在后台进行，读取方在任何时刻都只看到 Loading / Ready / Failed 之一。
// 约束：一旦进入 Ready 或 Failed 不再变化。
type Holder struct {
	v atomic.Pointer[snapshot]
}

func NewHolder() *Holder {
	h := &Holder{}
	h.v.Store(&snapshot{status: Loading})
	return h
}

func (h *Holder) Status() Status { return h.v.Load().status }

// Catalog：未就绪时为 nil
func (h *Holder) Catalog() *Catalog { return h.v.Load().cat }

func (h *Holder) Err() error { return h.v.Load().err }

// Set：记录加载结果；已完成的持有者忽略后续调用
func (h *Holder) Set(cat *Catalog, err error) bool {
	next := &snapshot{status: Ready, cat: cat}
	if err != nil || cat == nil {
		next = &snapshot{status: Failed, err: err}
	}
	for {
		cur := h.v.Load()
		if cur.status != Loading {
			return false
		}
		if h.v.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// Start：后台加载；完成后调用 done（可为 nil）
func (h *Holder) Start(ctx context.Context, src Source, done func(*Catalog, error)) {
	go func() {
		cat, err := Load(ctx, src)
		h.Set(cat, err)
		if done != nil {
			done(cat, err)
		}
	}()
}
