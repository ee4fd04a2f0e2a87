package projection

import (
	"math"
	"strings"

	"map-puzzle/internal/geo"
)

// Renderer：把几何经投影转为 SVG 路径、包围盒与质心
// 约束：投影拒绝的点直接跳过，不做重采样与反子午线裁剪。
type Renderer struct {
	P Projection
}

// projectRing：投影一个闭合环；尾点与首点重合时丢弃尾点
func (r Renderer) projectRing(ring geo.Ring) []Point {
	n := len(ring)
	if n > 1 && ring[0] == ring[n-1] {
		n--
	}
	out := make([]Point, 0, n)
	for _, pt := range ring[:n] {
		if p, ok := r.P.Project(pt.Lon, pt.Lat); ok {
			out = append(out, p)
		}
	}
	return out
}

func (r Renderer) rings(g geo.Geometry) [][]Point {
	if g == nil {
		return nil
	}
	var out [][]Point
	for _, poly := range g.Polygons() {
		for _, ring := range poly.Rings {
			if pts := r.projectRing(ring); len(pts) > 0 {
				out = append(out, pts)
			}
		}
	}
	return out
}

// Path：每个环输出 "M x,y L x,y … Z"；多部件几何合并为一条路径
func (r Renderer) Path(g geo.Geometry) string {
	var sb strings.Builder
	for _, pts := range r.rings(g) {
		for i, p := range pts {
			if i == 0 {
				sb.WriteByte('M')
			} else {
				sb.WriteByte('L')
			}
			sb.WriteString(fmtNum(p.X))
			sb.WriteByte(',')
			sb.WriteString(fmtNum(p.Y))
		}
		sb.WriteByte('Z')
	}
	return sb.String()
}

// Bounds：投影后的屏幕包围盒；没有任何可投影点时返回 false
func (r Renderer) Bounds(g geo.Geometry) (Box, bool) {
	b := Box{Min: Point{X: math.Inf(1), Y: math.Inf(1)}, Max: Point{X: math.Inf(-1), Y: math.Inf(-1)}}
	seen := false
	for _, pts := range r.rings(g) {
		for _, p := range pts {
			seen = true
			b.Min.X = math.Min(b.Min.X, p.X)
			b.Min.Y = math.Min(b.Min.Y, p.Y)
			b.Max.X = math.Max(b.Max.X, p.X)
			b.Max.Y = math.Max(b.Max.Y, p.Y)
		}
	}
	if !seen {
		return Box{}, false
	}
	return b, true
}

// 文档注释：投影后几何的平面质心
// 背景：按面积加权（洞的环向相反，面积相减）；面积为零时退化为按边长加权，再退化为顶点均值。
// 约束：没有可投影顶点时返回 false，调用方据此判定为退化区域。
func (r Renderer) Centroid(g geo.Geometry) (Point, bool) {
	var x0, y0, z0 float64
	var x1, y1, z1 float64
	var x2, y2, z2 float64
	for _, pts := range r.rings(g) {
		n := len(pts)
		for i, a := range pts {
			x0 += a.X
			y0 += a.Y
			z0++
			b := pts[(i+1)%n]
			l := math.Hypot(b.X-a.X, b.Y-a.Y)
			x1 += l * (a.X + b.X) / 2
			y1 += l * (a.Y + b.Y) / 2
			z1 += l
			z := a.Y*b.X - a.X*b.Y
			x2 += z * (a.X + b.X)
			y2 += z * (a.Y + b.Y)
			z2 += z * 3
		}
	}
	var c Point
	switch {
	case math.Abs(z2) > 1e-12:
		c = Point{X: x2 / z2, Y: y2 / z2}
	case z1 > 0:
		c = Point{X: x1 / z1, Y: y1 / z1}
	case z0 > 0:
		c = Point{X: x0 / z0, Y: y0 / z0}
	default:
		return Point{}, false
	}
	return c, c.valid()
}
