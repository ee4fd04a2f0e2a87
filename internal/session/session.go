// 包 session：单一交互线程，所有触及对局状态的操作按到达顺序在同一 goroutine 内执行
package session

import (
	"context"
	"errors"
	"sync"

	"map-puzzle/internal/catalog"
	"map-puzzle/internal/drag"
	"map-puzzle/internal/eventbus"
	"map-puzzle/internal/game"
	"map-puzzle/internal/geo"
	"map-puzzle/internal/logger"
	"map-puzzle/internal/metrics"
	"map-puzzle/internal/projection"
)

var (
	// ErrNotReady：目录尚未加载完成或加载失败
	ErrNotReady = errors.New("catalog not ready")
	// ErrUnknownRegion：目录中没有该区域
	ErrUnknownRegion = errors.New("unknown region")
	// ErrAlreadyPlaced：已放置的区域不在库存中，无法拾起
	ErrAlreadyPlaced = errors.New("region already placed")
	// ErrClosed：会话循环已退出
	ErrClosed = errors.New("session closed")
)

// Facts：趣闻来源，永不失败
type Facts interface {
	Fact(ctx context.Context, name string) string
}

// 文档注释：对局会话
// 背景：相当于界面线程；放置集合与分数只在循环内读写，不加锁。目录在后台加载，完成后投递回循环。
// 约束：Release 在同一轮内完成释放与评估，因此任何时刻最多一个未评估落点；外部 I/O（事件外发、趣闻）不在循环内执行。
type Session struct {
	cmds   chan func()
	closed chan struct{}

	engine *projection.Engine
	holder *catalog.Holder
	// cat：循环内可见的目录，与 state 在同一轮内设置
	cat    *catalog.Catalog
	bus    *drag.PointerBus
	ctrl   *drag.Controller
	eval   *game.Evaluator
	state  game.State

	facts Facts
	pub   eventbus.Publisher

	subMu  sync.Mutex
	nextID int
	subs   map[int]chan Notice
}

func New(engine *projection.Engine, holder *catalog.Holder, facts Facts, pub eventbus.Publisher) *Session {
	if pub == nil {
		pub = eventbus.Nop{}
	}
	bus := drag.NewPointerBus()
	return &Session{
		cmds:   make(chan func()),
		closed: make(chan struct{}),
		engine: engine,
		holder: holder,
		bus:    bus,
		ctrl:   drag.NewController(bus),
		eval:   game.NewEvaluator(),
		facts:  facts,
		pub:    pub,
		subs:   make(map[int]chan Notice),
	}
}

// Run：执行循环，直到 ctx 取消；退出时归还指针监听
func (s *Session) Run(ctx context.Context) {
	defer close(s.closed)
	for {
		select {
		case <-ctx.Done():
			s.ctrl.Teardown()
			logger.Component("session").Info("session_stopped", "listeners", s.bus.Listeners())
			return
		case fn := <-s.cmds:
			fn()
		}
	}
}

// Do：在循环内执行 fn 并等待完成
func (s *Session) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case s.cmds <- wrapped:
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-s.closed:
		return ErrClosed
	}
}

// post：异步投递，不等待执行
func (s *Session) post(fn func()) {
	go func() {
		select {
		case s.cmds <- fn:
		case <-s.closed:
		}
	}()
}

// LoadCatalog：后台加载目录，完成后在循环内初始化对局
func (s *Session) LoadCatalog(ctx context.Context, src catalog.Source) {
	s.holder.Start(ctx, src, func(cat *catalog.Catalog, err error) {
		s.post(func() { s.catalogLoaded(cat, err) })
	})
}

func (s *Session) catalogLoaded(cat *catalog.Catalog, err error) {
	if err != nil || cat == nil {
		s.broadcast(Notice{Type: "error", Payload: map[string]string{"error": "map unavailable"}})
		s.broadcast(Notice{Type: "state", Payload: s.view()})
		return
	}
	s.cat = cat
	s.state = game.NewState(cat.Len())
	metrics.Score.Set(0)
	metrics.PlacedRegions.Set(0)
	s.broadcast(Notice{Type: "state", Payload: s.view()})
}

// Resize：更新棋盘原点与尺寸；尺寸变化时整体替换棋盘投影
func (s *Session) Resize(ctx context.Context, r Rect) (bool, error) {
	var changed bool
	err := s.Do(ctx, func() {
		s.ctrl.SetOrigin(projection.Point{X: r.Left, Y: r.Top})
		changed = s.engine.Resize(r.Width, r.Height)
	})
	return changed, err
}

// PickUp：从库存拾起区域；目录未就绪或区域已放置时拒绝
func (s *Session) PickUp(ctx context.Context, id string, p projection.Point) error {
	var out error
	err := s.Do(ctx, func() {
		cat := s.cat
		if cat == nil {
			out = ErrNotReady
			return
		}
		r, ok := cat.Get(id)
		if !ok {
			out = ErrUnknownRegion
			return
		}
		if s.state.IsPlaced(id) {
			out = ErrAlreadyPlaced
			return
		}
		s.ctrl.PickUp(r, p)
		s.broadcast(Notice{Type: "drag", Payload: DragView{RegionID: id, Pointer: p}})
	})
	if err != nil {
		return err
	}
	return out
}

// Move：经全局监听派发，未拖动时没有监听者
func (s *Session) Move(ctx context.Context, p projection.Point) error {
	return s.Do(ctx, func() { s.bus.Move(p) })
}

// Release：派发指针抬起并在同一轮内评估产生的落点；未拖动时 ok=false
func (s *Session) Release(ctx context.Context, p projection.Point) (DropResult, bool, error) {
	var res DropResult
	var ok bool
	err := s.Do(ctx, func() {
		s.bus.Up(p)
		d, has := s.ctrl.TakePending()
		if !has {
			return
		}
		res, ok = s.evaluate(ctx, d), true
	})
	return res, ok, err
}

func (s *Session) evaluate(ctx context.Context, d drag.PendingDrop) DropResult {
	var board game.Board
	if b := s.engine.Board(); b != nil {
		board = b
	}
	next, out := s.eval.Evaluate(d, s.cat, board, s.state)
	s.state = next
	res := dropResult(out, d.Point, next)
	s.broadcast(Notice{Type: "drop", Payload: res})
	s.broadcast(Notice{Type: "state", Payload: s.view()})
	if out.Accepted() {
		s.afterAccept(ctx, d, out, next)
	}
	return res
}

// afterAccept：事件外发与趣闻查询都在循环外完成
func (s *Session) afterAccept(ctx context.Context, d drag.PendingDrop, out game.Outcome, st game.State) {
	ev := eventbus.NewPlacementEvent(d.ID, d.Region.ID, d.Region.Name)
	ev.Distance = out.Distance
	ev.Score, ev.Placed, ev.Total, ev.Won = st.Score, st.PlacedCount(), st.Total, st.Won
	if err := s.pub.Publish(ctx, ev); err != nil {
		logger.Component("session").Warn("event_enqueue_error", "region", d.Region.ID, "err", err)
	}
	if s.facts == nil {
		return
	}
	region := d.Region
	go func() {
		text := s.facts.Fact(context.WithoutCancel(ctx), region.Name)
		s.broadcast(Notice{Type: "fact", Payload: FactNotice{RegionID: region.ID, Name: region.Name, Text: text}})
	}()
}

// Teardown：客户端断开或页面销毁；归还监听，丢弃进行中的拖动
func (s *Session) Teardown(ctx context.Context) error {
	return s.Do(ctx, func() { s.ctrl.Teardown() })
}

// Listeners：当前全局指针监听数量
func (s *Session) Listeners() int { return s.bus.Listeners() }

func (s *Session) view() View {
	// 加载协程先置 Ready，回调投递进循环之前仍按 loading 呈现
	status := s.holder.Status()
	if status == catalog.Ready && s.cat == nil {
		status = catalog.Loading
	}
	v := View{Status: status.String()}
	if err := s.holder.Err(); err != nil {
		v.Error = err.Error()
	}
	v.Score = s.state.Score
	v.Placed = s.state.PlacedCount()
	v.Total = s.state.Total
	v.Won = s.state.Won
	v.Empty = len(catalog.Inventory(s.cat, s.state.Placed)) == 0
	if r, p, ok := s.ctrl.Active(); ok {
		v.Dragging = &DragView{RegionID: r.ID, Pointer: p}
	}
	return v
}

// View：对局概况
func (s *Session) View(ctx context.Context) (View, error) {
	var v View
	err := s.Do(ctx, func() { v = s.view() })
	return v, err
}

// Board：全部区域的棋盘路径；已放置区域附带标签锚点（投影质心）
func (s *Session) Board(ctx context.Context) (BoardView, error) {
	var out BoardView
	err := s.Do(ctx, func() {
		b := s.engine.Board()
		out = BoardView{Width: b.Width, Height: b.Height, Regions: []BoardRegion{}}
		for _, r := range s.cat.All() {
			br := BoardRegion{ID: r.ID, Name: r.Name, Path: b.Project(r).Path, Placed: s.state.IsPlaced(r.ID)}
			if br.Placed {
				if c, ok := b.CentroidOf(r); ok {
					br.Label = &c
				}
			}
			out.Regions = append(out.Regions, br)
		}
	})
	return out, err
}

// Inventory：尚未放置的区域缩略图，保持目录顺序
func (s *Session) Inventory(ctx context.Context) ([]InventoryItem, error) {
	var regions []geo.Region
	if err := s.Do(ctx, func() { regions = catalog.Inventory(s.cat, s.state.Placed) }); err != nil {
		return nil, err
	}
	out := make([]InventoryItem, 0, len(regions))
	for _, r := range regions {
		item := InventoryItem{ID: r.ID, Name: r.Name}
		if th, ok := s.engine.Thumbnail(r); ok {
			item.Path, item.ViewBox = th.Path, th.ViewBox
		}
		out = append(out, item)
	}
	return out, nil
}

// Preview：拖动中的浮层；未拖动时 ok=false
func (s *Session) Preview(ctx context.Context) (PreviewView, bool, error) {
	var region geo.Region
	var pointer projection.Point
	var active bool
	if err := s.Do(ctx, func() { region, pointer, active = s.ctrl.Active() }); err != nil || !active {
		return PreviewView{}, false, err
	}
	th, ok := s.engine.Preview(region)
	if !ok {
		return PreviewView{}, false, nil
	}
	half := float64(projection.PreviewFrame) / 2
	return PreviewView{
		RegionID: region.ID,
		Path:     th.Path,
		ViewBox:  th.ViewBox,
		Size:     projection.PreviewFrame,
		At:       projection.Point{X: pointer.X - half, Y: pointer.Y - half},
	}, true, nil
}

// Fact：按区域 ID 查询趣闻；查询本身在循环外进行
func (s *Session) Fact(ctx context.Context, id string) (FactNotice, error) {
	var region geo.Region
	var found bool
	if err := s.Do(ctx, func() { region, found = s.cat.Get(id) }); err != nil {
		return FactNotice{}, err
	}
	if !found {
		return FactNotice{}, ErrUnknownRegion
	}
	text := ""
	if s.facts != nil {
		text = s.facts.Fact(ctx, region.Name)
	}
	return FactNotice{RegionID: region.ID, Name: region.Name, Text: text}, nil
}

// Subscribe：订阅推送；返回取消函数。订阅方消费过慢时消息被丢弃
func (s *Session) Subscribe(buffer int) (<-chan Notice, func()) {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan Notice, buffer)
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = ch
	s.subMu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Session) broadcast(n Notice) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- n:
		default:
		}
	}
}
