package projection

import "map-puzzle/internal/geo"

// 基准缩放：先在该缩放与零平移下量取包围盒，再按比例换算
const fitBaseScale = 150

// 文档注释：调整投影的缩放与平移，使几何恰好填满 frame
// 约束：宽高按较小比例缩放并居中；几何无可投影点或包围盒退化为零面积时返回 false。
func Fit(p Scalable, g geo.Geometry, frame Box) (Scalable, bool) {
	base := p.WithScaleTranslate(fitBaseScale, Point{})
	b, ok := Renderer{P: base}.Bounds(g)
	if !ok {
		return p, false
	}
	w, h := frame.Width(), frame.Height()
	dx, dy := b.Width(), b.Height()
	if dx <= 0 && dy <= 0 {
		return p, false
	}
	k := 0.0
	switch {
	case dx <= 0:
		k = h / dy
	case dy <= 0:
		k = w / dx
	default:
		k = min(w/dx, h/dy)
	}
	x := frame.Min.X + (w-k*(b.Max.X+b.Min.X))/2
	y := frame.Min.Y + (h-k*(b.Max.Y+b.Min.Y))/2
	return p.WithScaleTranslate(fitBaseScale*k, Point{X: x, Y: y}), true
}

// FitSquare：边长 size 的正方形框，四边各留 padding
func FitSquare(p Scalable, g geo.Geometry, size, padding float64) (Scalable, bool) {
	return Fit(p, g, Box{Min: Point{X: padding, Y: padding}, Max: Point{X: size - padding, Y: size - padding}})
}
