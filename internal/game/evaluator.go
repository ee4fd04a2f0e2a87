package game

import (
	"fmt"

	"map-puzzle/internal/catalog"
	"map-puzzle/internal/drag"
	"map-puzzle/internal/geo"
	"map-puzzle/internal/logger"
	"map-puzzle/internal/metrics"
	"map-puzzle/internal/projection"

	"github.com/google/uuid"
)

// Threshold：落点与投影质心的最大距离（屏幕像素，不含）；与区域大小无关
const Threshold = 100

// 去重窗口；同一时刻最多只有一个未评估落点，窗口只需覆盖最近的若干次
const seenWindow = 256

type Result int

const (
	Accepted Result = iota
	AlreadyPlaced
	TooFar
	Degenerate
	Unknown
	Stale
)

func (r Result) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case AlreadyPlaced:
		return "already_placed"
	case TooFar:
		return "too_far"
	case Degenerate:
		return "degenerate"
	case Unknown:
		return "unknown"
	default:
		return "stale"
	}
}

// Outcome：一次评估的结论
type Outcome struct {
	DropID   uuid.UUID
	RegionID string
	Result   Result
	Distance float64
	Centroid projection.Point
	// Err：仅 Degenerate 时非空，包装 projection.ErrDegenerate
	Err error
}

func (o Outcome) Accepted() bool { return o.Result == Accepted }

// Board：提供区域投影质心的棋盘
type Board interface {
	CentroidOf(region geo.Region) (projection.Point, bool)
}

// 文档注释：落点评估
// 背景：每个落点 ID 只评估一次，重复提交返回 Stale 且不改变状态。
// 约束：判定顺序为 目录未知 → 质心缺失 → 距离 ≥ 阈值 → 已放置 → 接受；只有接受分支产生 RegionPlaced 事件。
// 非并发安全，只在会话循环内调用。
type Evaluator struct {
	seen  map[uuid.UUID]struct{}
	order []uuid.UUID
}

func NewEvaluator() *Evaluator {
	return &Evaluator{seen: make(map[uuid.UUID]struct{})}
}

func (e *Evaluator) remember(id uuid.UUID) bool {
	if _, ok := e.seen[id]; ok {
		return false
	}
	e.seen[id] = struct{}{}
	e.order = append(e.order, id)
	if len(e.order) > seenWindow {
		delete(e.seen, e.order[0])
		e.order = e.order[1:]
	}
	return true
}

func (e *Evaluator) Evaluate(d drag.PendingDrop, cat *catalog.Catalog, board Board, st State) (State, Outcome) {
	out := Outcome{DropID: d.ID, RegionID: d.Region.ID}
	if !e.remember(d.ID) {
		out.Result = Stale
		return st, e.report(out)
	}
	region, ok := cat.Get(d.Region.ID)
	if !ok || board == nil {
		out.Result = Unknown
		return st, e.report(out)
	}
	c, ok := board.CentroidOf(region)
	if !ok {
		out.Result = Degenerate
		out.Err = fmt.Errorf("%w: region %s has no projected centroid", projection.ErrDegenerate, region.ID)
		return st, e.report(out)
	}
	out.Centroid = c
	out.Distance = d.Point.Dist(c)
	metrics.DropDistancePx.Observe(out.Distance)
	if out.Distance >= Threshold {
		out.Result = TooFar
		return st, e.report(out)
	}
	if st.IsPlaced(region.ID) {
		out.Result = AlreadyPlaced
		return st, e.report(out)
	}
	next := st.Apply(RegionPlaced{RegionID: region.ID})
	out.Result = Accepted
	metrics.Score.Set(float64(next.Score))
	metrics.PlacedRegions.Set(float64(next.PlacedCount()))
	return next, e.report(out)
}

func (e *Evaluator) report(o Outcome) Outcome {
	metrics.DropsTotal.WithLabelValues(o.Result.String()).Inc()
	l := logger.Component("evaluator")
	switch {
	case o.Result == Accepted:
		l.Info("drop_accepted", "region", o.RegionID, "distance", o.Distance)
	case o.Err != nil:
		l.Warn("drop_rejected", "region", o.RegionID, "result", o.Result.String(), "err", o.Err)
	default:
		l.Debug("drop_rejected", "region", o.RegionID, "result", o.Result.String(), "distance", o.Distance)
	}
	return o
}
