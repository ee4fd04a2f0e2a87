package projection

import "math"

const (
	radians = math.Pi / 180
	epsilon = 1e-6
)

// Projection：经纬度（度）到屏幕坐标；ok=false 表示该点在定义域之外
type Projection interface {
	Project(lon, lat float64) (Point, bool)
}

// ProjectionFunc：函数适配器
type ProjectionFunc func(lon, lat float64) (Point, bool)

func (f ProjectionFunc) Project(lon, lat float64) (Point, bool) { return f(lon, lat) }

// Scalable：可调整缩放与平移的投影，供 Fit 使用
type Scalable interface {
	Projection
	Scale() float64
	Translate() Point
	WithScaleTranslate(k float64, t Point) Scalable
}

// ConicOptions：等积圆锥投影参数（角度单位为度）
type ConicOptions struct {
	Parallels [2]float64
	Rotate    float64 // 仅绕经度旋转
	Center    [2]float64
	Scale     float64
	Translate Point
	Clip      *Box
}

// 文档注释：Albers 等积圆锥投影
// 约束：两条标准纬线对称于赤道（n≈0）时退化为等积圆柱投影；Clip 非空时只接受落在裁剪框内的点。
type ConicEqualArea struct {
	opts        ConicOptions
	n, c, r0    float64
	cylindrical bool
	cosPhi0     float64
	dx, dy      float64
}

func NewConicEqualArea(o ConicOptions) ConicEqualArea {
	p := ConicEqualArea{opts: o}
	y0 := o.Parallels[0] * radians
	y1 := o.Parallels[1] * radians
	sy0 := math.Sin(y0)
	p.n = (sy0 + math.Sin(y1)) / 2
	if math.Abs(p.n) < epsilon {
		p.cylindrical = true
		p.cosPhi0 = math.Cos(y0)
	} else {
		p.c = 1 + sy0*(2*p.n-sy0)
		p.r0 = math.Sqrt(p.c) / p.n
	}
	cx, cy := p.raw(o.Center[0]*radians, o.Center[1]*radians)
	p.dx = o.Translate.X - o.Scale*cx
	p.dy = o.Translate.Y + o.Scale*cy
	return p
}

func (p ConicEqualArea) raw(lambda, phi float64) (float64, float64) {
	if p.cylindrical {
		return lambda * p.cosPhi0, math.Sin(phi) / p.cosPhi0
	}
	r := math.Sqrt(p.c-2*p.n*math.Sin(phi)) / p.n
	x := lambda * p.n
	return r * math.Sin(x), p.r0 - r*math.Cos(x)
}

func (p ConicEqualArea) Project(lon, lat float64) (Point, bool) {
	lambda := wrapLambda((lon + p.opts.Rotate) * radians)
	x, y := p.raw(lambda, lat*radians)
	out := Point{X: p.dx + p.opts.Scale*x, Y: p.dy - p.opts.Scale*y}
	if !out.valid() {
		return Point{}, false
	}
	if p.opts.Clip != nil && !p.opts.Clip.Contains(out) {
		return Point{}, false
	}
	return out, true
}

func (p ConicEqualArea) Scale() float64   { return p.opts.Scale }
func (p ConicEqualArea) Translate() Point { return p.opts.Translate }

func (p ConicEqualArea) WithScaleTranslate(k float64, t Point) Scalable {
	o := p.opts
	o.Scale = k
	o.Translate = t
	return NewConicEqualArea(o)
}

// wrapLambda：经度旋转后回绕到 [-π, π]
func wrapLambda(l float64) float64 {
	if l > math.Pi {
		return l - 2*math.Pi
	}
	if l < -math.Pi {
		return l + 2*math.Pi
	}
	return l
}

// Equirectangular：等距圆柱投影，缩略图与测试使用
type Equirectangular struct {
	K float64
	T Point
}

func (e Equirectangular) Project(lon, lat float64) (Point, bool) {
	out := Point{X: e.T.X + e.K*lon*radians, Y: e.T.Y - e.K*lat*radians}
	return out, out.valid()
}

func (e Equirectangular) Scale() float64   { return e.K }
func (e Equirectangular) Translate() Point { return e.T }

func (e Equirectangular) WithScaleTranslate(k float64, t Point) Scalable {
	return Equirectangular{K: k, T: t}
}
