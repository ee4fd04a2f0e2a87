package projection

// 默认缩放与平移（960×500 画布）
const (
	DefaultUSAScale = 1070
)

var DefaultUSATranslate = Point{X: 480, Y: 250}

// 文档注释：美国复合投影（本土 + 阿拉斯加 + 夏威夷插图）
// 约束：逐点依次尝试本土、阿拉斯加、夏威夷，落在各自插图裁剪框内即接受；三者都不接受时返回 false。
// 插图位置与裁剪框随缩放/平移按比例变化。
type AlbersUSA struct {
	k       float64
	t       Point
	lower48 ConicEqualArea
	alaska  ConicEqualArea
	hawaii  ConicEqualArea
}

func NewAlbersUSA(k float64, t Point) AlbersUSA {
	x, y := t.X, t.Y
	return AlbersUSA{
		k: k,
		t: t,
		lower48: NewConicEqualArea(ConicOptions{
			Parallels: [2]float64{29.5, 45.5},
			Rotate:    96,
			Center:    [2]float64{-0.6, 38.7},
			Scale:     k,
			Translate: t,
			Clip: &Box{
				Min: Point{X: x - 0.455*k, Y: y - 0.238*k},
				Max: Point{X: x + 0.455*k, Y: y + 0.238*k},
			},
		}),
		alaska: NewConicEqualArea(ConicOptions{
			Parallels: [2]float64{55, 65},
			Rotate:    154,
			Center:    [2]float64{-2, 58.5},
			Scale:     k * 0.35,
			Translate: Point{X: x - 0.307*k, Y: y + 0.201*k},
			Clip: &Box{
				Min: Point{X: x - 0.425*k + epsilon, Y: y + 0.120*k + epsilon},
				Max: Point{X: x - 0.214*k - epsilon, Y: y + 0.234*k - epsilon},
			},
		}),
		hawaii: NewConicEqualArea(ConicOptions{
			Parallels: [2]float64{8, 18},
			Rotate:    157,
			Center:    [2]float64{-3, 19.9},
			Scale:     k,
			Translate: Point{X: x - 0.205*k, Y: y + 0.212*k},
			Clip: &Box{
				Min: Point{X: x - 0.214*k + epsilon, Y: y + 0.166*k + epsilon},
				Max: Point{X: x - 0.115*k - epsilon, Y: y + 0.234*k - epsilon},
			},
		}),
	}
}

// DefaultAlbersUSA：缩略图使用的独立配置
func DefaultAlbersUSA() AlbersUSA { return NewAlbersUSA(DefaultUSAScale, DefaultUSATranslate) }

// BoardAlbersUSA：棋盘配置，缩放按宽度的 1.3 倍，中心对齐
func BoardAlbersUSA(width, height int) Projection {
	return NewAlbersUSA(float64(width)*1.3, Point{X: float64(width) / 2, Y: float64(height) / 2})
}

func (a AlbersUSA) Project(lon, lat float64) (Point, bool) {
	if p, ok := a.lower48.Project(lon, lat); ok {
		return p, true
	}
	if p, ok := a.alaska.Project(lon, lat); ok {
		return p, true
	}
	return a.hawaii.Project(lon, lat)
}

func (a AlbersUSA) Scale() float64   { return a.k }
func (a AlbersUSA) Translate() Point { return a.t }

func (a AlbersUSA) WithScaleTranslate(k float64, t Point) Scalable { return NewAlbersUSA(k, t) }
