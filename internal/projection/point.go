// 包 projection：经纬度到屏幕坐标的投影、路径生成与质心/包围盒计算
package projection

import (
	"errors"
	"math"
	"strconv"
)

// ErrDegenerate：区域在当前投影定义域之外，无法得到质心
var ErrDegenerate = errors.New("degenerate projection")

// Point：屏幕坐标（像素），y 轴向下
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Dist：欧氏距离
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

func (p Point) valid() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Box：轴对齐包围盒
type Box struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

func (b Box) Width() float64  { return b.Max.X - b.Min.X }
func (b Box) Height() float64 { return b.Max.Y - b.Min.Y }

// Pad：四边对称外扩 p 像素
func (b Box) Pad(p float64) Box {
	return Box{Min: Point{X: b.Min.X - p, Y: b.Min.Y - p}, Max: Point{X: b.Max.X + p, Y: b.Max.Y + p}}
}

// Contains：闭区间判定
func (b Box) Contains(p Point) bool {
	return b.Min.X <= p.X && p.X <= b.Max.X && b.Min.Y <= p.Y && p.Y <= b.Max.Y
}

// ViewBox：SVG viewBox 文本 "minX minY width height"
func (b Box) ViewBox() string {
	return fmtNum(b.Min.X) + " " + fmtNum(b.Min.Y) + " " + fmtNum(b.Width()) + " " + fmtNum(b.Height())
}

// fmtNum：保留 3 位小数并去除多余的 0
func fmtNum(v float64) string {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		r = 0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
