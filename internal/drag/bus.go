package drag

import (
	"sync"

	"map-puzzle/internal/projection"
)

// Listener：全局指针事件接收方
type Listener interface {
	PointerMove(p projection.Point)
	PointerUp(p projection.Point)
}

// 文档注释：全局指针监听注册表
// 背景：只有持有 Scope 的监听者才会收到 move/up；Scope 释放后立即不可见。
// 约束：Release 幂等；派发时先复制监听者快照，回调内释放自身不会死锁。
type PointerBus struct {
	mu     sync.Mutex
	next   uint64
	scopes map[uint64]*Scope
}

func NewPointerBus() *PointerBus {
	return &PointerBus{scopes: make(map[uint64]*Scope)}
}

// Scope：一次注册；Release 归还
type Scope struct {
	bus  *PointerBus
	id   uint64
	l    Listener
	once sync.Once
}

func (b *PointerBus) Acquire(l Listener) *Scope {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	s := &Scope{bus: b, id: b.next, l: l}
	b.scopes[s.id] = s
	return s
}

func (s *Scope) Release() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.scopes, s.id)
		s.bus.mu.Unlock()
	})
}

// Listeners：当前已注册数量
func (b *PointerBus) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.scopes)
}

func (b *PointerBus) snapshot() []Listener {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Listener, 0, len(b.scopes))
	for _, s := range b.scopes {
		out = append(out, s.l)
	}
	return out
}

// Move：派发指针移动，返回收到事件的监听者数量
func (b *PointerBus) Move(p projection.Point) int {
	ls := b.snapshot()
	for _, l := range ls {
		l.PointerMove(p)
	}
	return len(ls)
}

// Up：派发指针抬起
func (b *PointerBus) Up(p projection.Point) int {
	ls := b.snapshot()
	for _, l := range ls {
		l.PointerUp(p)
	}
	return len(ls)
}
