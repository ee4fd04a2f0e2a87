package session

import (
	"map-puzzle/internal/game"
	"map-puzzle/internal/projection"
)

// Rect：棋盘容器在客户端坐标系中的位置与尺寸
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

// View：对局概况
type View struct {
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Score    int       `json:"score"`
	Placed   int       `json:"placed"`
	Total    int       `json:"total"`
	Won      bool      `json:"won"`
	Empty    bool      `json:"inventoryEmpty"`
	Dragging *DragView `json:"dragging,omitempty"`
}

type DragView struct {
	RegionID string           `json:"regionId"`
	Pointer  projection.Point `json:"pointer"`
}

type BoardRegion struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Path   string            `json:"path"`
	Placed bool              `json:"placed"`
	Label  *projection.Point `json:"label,omitempty"`
}

type BoardView struct {
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Regions []BoardRegion `json:"regions"`
}

type InventoryItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	ViewBox string `json:"viewBox"`
}

// PreviewView：跟随指针的浮层，左上角使指针位于浮层中心
type PreviewView struct {
	RegionID string           `json:"regionId"`
	Path     string           `json:"path"`
	ViewBox  string           `json:"viewBox"`
	Size     int              `json:"size"`
	At       projection.Point `json:"at"`
}

// DropResult：一次释放的评估结论
type DropResult struct {
	DropID   string           `json:"dropId"`
	RegionID string           `json:"regionId"`
	Result   string           `json:"result"`
	Accepted bool             `json:"accepted"`
	Distance float64          `json:"distance"`
	Point    projection.Point `json:"point"`
	Score    int              `json:"score"`
	Won      bool             `json:"won"`
}

func dropResult(o game.Outcome, p projection.Point, st game.State) DropResult {
	return DropResult{
		DropID:   o.DropID.String(),
		RegionID: o.RegionID,
		Result:   o.Result.String(),
		Accepted: o.Accepted(),
		Distance: o.Distance,
		Point:    p,
		Score:    st.Score,
		Won:      st.Won,
	}
}

// Notice：推送给订阅方的消息
type Notice struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type FactNotice struct {
	RegionID string `json:"regionId"`
	Name     string `json:"name"`
	Text     string `json:"text"`
}
