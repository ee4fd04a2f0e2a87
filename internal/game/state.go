// 包 game：对局状态（事件驱动的不可变状态）与落点评估
package game

// PointsPerRegion：每放置一个区域得分
const PointsPerRegion = 100

// PlacementSet：已放置区域标识的不可变集合，只增不减
type PlacementSet struct {
	ids   map[string]struct{}
	order []string
}

func (s PlacementSet) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s PlacementSet) Len() int { return len(s.order) }

// IDs：按放置顺序
func (s PlacementSet) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// With：返回包含 id 的新集合，原集合不变
func (s PlacementSet) With(id string) PlacementSet {
	if s.Contains(id) {
		return s
	}
	next := PlacementSet{ids: make(map[string]struct{}, len(s.ids)+1), order: make([]string, 0, len(s.order)+1)}
	for k := range s.ids {
		next.ids[k] = struct{}{}
	}
	next.ids[id] = struct{}{}
	next.order = append(append(next.order, s.order...), id)
	return next
}

// State：对局快照；只通过 Apply 产生新值
type State struct {
	Placed PlacementSet
	Score  int
	Total  int
	Won    bool
}

func NewState(total int) State { return State{Total: total} }

func (s State) PlacedCount() int { return s.Placed.Len() }

func (s State) IsPlaced(id string) bool { return s.Placed.Contains(id) }

// Event：对局事件
type Event interface{ event() }

// RegionPlaced：区域被接受放置
type RegionPlaced struct{ RegionID string }

func (RegionPlaced) event() {}

// Apply：对已放置的区域重复应用不改变状态
func (s State) Apply(e Event) State {
	switch ev := e.(type) {
	case RegionPlaced:
		if s.Placed.Contains(ev.RegionID) {
			return s
		}
		next := s
		next.Placed = s.Placed.With(ev.RegionID)
		next.Score = s.Score + PointsPerRegion
		next.Won = s.Total > 0 && next.Placed.Len() == s.Total
		return next
	}
	return s
}
