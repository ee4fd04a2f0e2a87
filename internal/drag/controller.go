// 包 drag：拖放交互状态机
package drag

import (
	"time"

	"map-puzzle/internal/geo"
	"map-puzzle/internal/projection"

	"github.com/google/uuid"
)

type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// PendingDrop：释放瞬间捕获的区域与落点（相对棋盘原点），每次释放生成新的 ID
type PendingDrop struct {
	ID     uuid.UUID
	Region geo.Region
	Point  projection.Point
	At     time.Time
}

// 文档注释：拖动控制器（Idle / Dragging）
// 背景：拾起时登记全局指针监听，离开 Dragging 的每条路径（释放、销毁）都归还监听。
// 约束：非并发安全，只在会话循环内调用；重复拾起以最后一次为准，且只持有一个监听。
type Controller struct {
	bus     *PointerBus
	origin  projection.Point
	state   State
	region  geo.Region
	pointer projection.Point
	scope   *Scope
	pending *PendingDrop
	now     func() time.Time
}

func NewController(bus *PointerBus) *Controller {
	return &Controller{bus: bus, now: time.Now}
}

// SetOrigin：棋盘左上角在客户端坐标系中的位置
func (c *Controller) SetOrigin(p projection.Point) { c.origin = p }

func (c *Controller) Origin() projection.Point { return c.origin }

func (c *Controller) State() State { return c.state }

// PickUp：进入 Dragging 并清除尚未消费的落点
func (c *Controller) PickUp(region geo.Region, pointer projection.Point) {
	c.pending = nil
	c.region = region
	c.pointer = pointer
	if c.scope == nil {
		c.scope = c.bus.Acquire(c)
	}
	c.state = Dragging
}

// Move：仅在 Dragging 时更新指针
func (c *Controller) Move(pointer projection.Point) {
	if c.state != Dragging {
		return
	}
	c.pointer = pointer
}

// Release：生成落点并无条件回到 Idle；Idle 下调用无效果
func (c *Controller) Release(pointer projection.Point) (PendingDrop, bool) {
	if c.state != Dragging {
		return PendingDrop{}, false
	}
	drop := PendingDrop{
		ID:     uuid.New(),
		Region: c.region,
		Point:  pointer.Sub(c.origin),
		At:     c.now(),
	}
	c.pending = &drop
	c.exit()
	return drop, true
}

// Teardown：上下文销毁，归还监听；不生成落点
func (c *Controller) Teardown() {
	c.exit()
}

func (c *Controller) exit() {
	c.scope.Release()
	c.scope = nil
	c.state = Idle
	c.region = geo.Region{}
}

// Active：当前拖动的区域与指针位置
func (c *Controller) Active() (geo.Region, projection.Point, bool) {
	if c.state != Dragging {
		return geo.Region{}, projection.Point{}, false
	}
	return c.region, c.pointer, true
}

// TakePending：取出并清除待评估落点
func (c *Controller) TakePending() (PendingDrop, bool) {
	if c.pending == nil {
		return PendingDrop{}, false
	}
	d := *c.pending
	c.pending = nil
	return d, true
}

func (c *Controller) PointerMove(p projection.Point) { c.Move(p) }

// PointerUp：落点留在 pending 中，由评估方通过 TakePending 消费
func (c *Controller) PointerUp(p projection.Point) { c.Release(p) }
