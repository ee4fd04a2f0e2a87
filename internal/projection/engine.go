package projection

import (
	"sync/atomic"

	"map-puzzle/internal/geo"
	"map-puzzle/internal/metrics"
)

const (
	// BoardScaleFactor：棋盘缩放 = 宽度 × 该系数
	BoardScaleFactor = 1.3

	ThumbnailFrame   = 96
	ThumbnailPadding = 5
	PreviewFrame     = 150
	PreviewPadding   = 2

	defaultCacheSize = 1024
)

// Factory：按棋盘尺寸构造投影
type Factory func(width, height int) Projection

// Shape：区域在棋盘上的路径与包围盒；OK=false 表示没有任何可投影点
type Shape struct {
	Path   string `json:"path"`
	Bounds Box    `json:"bounds"`
	OK     bool   `json:"-"`
}

// Thumbnail：独立投影下的路径与外扩后的 viewBox
type Thumbnail struct {
	Path    string `json:"path"`
	ViewBox string `json:"viewBox"`
	Bounds  Box    `json:"-"`
}

type shapeKey struct {
	id            string
	width, height int
}

type boardEntry struct {
	shape       Shape
	centroid    Point
	hasCentroid bool
}

// Board：某一尺寸下的棋盘投影，构造后不变
type Board struct {
	Width  int
	Height int
	r      Renderer
	shapes *LRU[shapeKey, boardEntry]
}

func (b *Board) entry(region geo.Region) boardEntry {
	key := shapeKey{id: region.ID, width: b.Width, height: b.Height}
	if e, ok := b.shapes.Get(key); ok {
		return e
	}
	var e boardEntry
	e.shape.Path = b.r.Path(region.Geometry)
	e.shape.Bounds, e.shape.OK = b.r.Bounds(region.Geometry)
	e.centroid, e.hasCentroid = b.r.Centroid(region.Geometry)
	b.shapes.Set(key, e)
	return e
}

// Project：区域在棋盘上的轮廓
func (b *Board) Project(region geo.Region) Shape { return b.entry(region).shape }

// CentroidOf：区域投影质心（屏幕坐标）；退化区域返回 false
func (b *Board) CentroidOf(region geo.Region) (Point, bool) {
	e := b.entry(region)
	return e.centroid, e.hasCentroid
}

// 文档注释：投影引擎，持有当前棋盘与缩略图缓存
// 背景：棋盘随容器尺寸变化整体替换（原子指针），读取方拿到的 *Board 始终是完整一致的快照。
// 约束：尺寸未变化时不重建；宽高 ≤0 的请求被拒绝并保留原棋盘。
type Engine struct {
	factory Factory
	thumb   Scalable
	board   atomic.Pointer[Board]
	shapes  *LRU[shapeKey, boardEntry]
	thumbs  *LRU[string, Thumbnail]
	preview *LRU[string, Thumbnail]
}

// NewEngine：factory 为空时使用美国复合投影；thumb 为空时缩略图使用默认复合投影
func NewEngine(width, height int, factory Factory, thumb Scalable, cacheSize int) *Engine {
	if factory == nil {
		factory = BoardAlbersUSA
	}
	if thumb == nil {
		thumb = DefaultAlbersUSA()
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	e := &Engine{
		factory: factory,
		thumb:   thumb,
		shapes:  NewLRU[shapeKey, boardEntry]("board", cacheSize),
		thumbs:  NewLRU[string, Thumbnail]("thumbnail", cacheSize),
		preview: NewLRU[string, Thumbnail]("preview", cacheSize),
	}
	if width <= 0 || height <= 0 {
		width, height = 800, 500
	}
	e.board.Store(e.newBoard(width, height))
	return e
}

func (e *Engine) newBoard(w, h int) *Board {
	return &Board{Width: w, Height: h, r: Renderer{P: e.factory(w, h)}, shapes: e.shapes}
}

// Resize：尺寸变化时重建棋盘投影，返回是否发生替换
func (e *Engine) Resize(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	if cur := e.board.Load(); cur != nil && cur.Width == width && cur.Height == height {
		return false
	}
	e.board.Store(e.newBoard(width, height))
	metrics.BoardResizeTotal.Inc()
	return true
}

// Board：当前棋盘快照
func (e *Engine) Board() *Board { return e.board.Load() }

// Thumbnail：库存列表中的缩略图（96×96，留白 5）
func (e *Engine) Thumbnail(region geo.Region) (Thumbnail, bool) {
	return e.framed(e.thumbs, region, ThumbnailFrame, ThumbnailPadding)
}

// Preview：拖动时跟随指针的浮层（150×150，留白 2）
func (e *Engine) Preview(region geo.Region) (Thumbnail, bool) {
	return e.framed(e.preview, region, PreviewFrame, PreviewPadding)
}

func (e *Engine) framed(c *LRU[string, Thumbnail], region geo.Region, size, padding float64) (Thumbnail, bool) {
	if t, ok := c.Get(region.ID); ok {
		return t, true
	}
	p, ok := FitSquare(e.thumb, region.Geometry, size, padding)
	if !ok {
		return Thumbnail{}, false
	}
	r := Renderer{P: p}
	b, ok := r.Bounds(region.Geometry)
	if !ok {
		return Thumbnail{}, false
	}
	b = b.Pad(padding)
	t := Thumbnail{Path: r.Path(region.Geometry), ViewBox: b.ViewBox(), Bounds: b}
	c.Set(region.ID, t)
	return t, true
}
