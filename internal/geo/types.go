package geo

import (
	"errors"
	"fmt"
)

// 文档注释：可拖放区域与边界几何的最小数据结构
// 约束：几何只支持 GeoJSON 的 Polygon/MultiPolygon；每个多边形以环列表表达，第一环为外环，其余为洞。
// Geometry 为封闭变体，只有本包内的两种实现。

// ErrMalformed：边界数据结构不符合约定
var ErrMalformed = errors.New("malformed boundary data")

// 点坐标（WGS84）
type Point struct {
	Lat float64
	Lon float64
}

// Ring：闭合环，首尾点相同
type Ring []Point

// Polygon：按 GeoJSON 约定的环集合，第一环是外环，其后为洞
type Polygon struct {
	Rings []Ring
	BBox  [4]float64 // minLon, minLat, maxLon, maxLat
}

type GeometryKind string

const (
	KindPolygon      GeometryKind = "Polygon"
	KindMultiPolygon GeometryKind = "MultiPolygon"
)

type Geometry interface {
	Kind() GeometryKind
	// Polygons：多面几何按部件展开，单面几何返回一个元素
	Polygons() []Polygon
	sealed()
}

type PolygonGeometry struct{ Polygon Polygon }

func (g PolygonGeometry) Kind() GeometryKind  { return KindPolygon }
func (g PolygonGeometry) Polygons() []Polygon { return []Polygon{g.Polygon} }
func (PolygonGeometry) sealed()               {}

// MultiPolygonGeometry：互不相连的多个部件（如岛屿）共同构成一个区域
type MultiPolygonGeometry struct{ Parts []Polygon }

func (g MultiPolygonGeometry) Kind() GeometryKind  { return KindMultiPolygon }
func (g MultiPolygonGeometry) Polygons() []Polygon { return g.Parts }
func (MultiPolygonGeometry) sealed()               {}

// Region：一次加载后不再修改
type Region struct {
	ID         string
	Name       string
	Geometry   Geometry
	Properties map[string]any
}

// NewRegion：构造区域并校验标识与边界
func NewRegion(id, name string, g Geometry) (Region, error) {
	if id == "" {
		return Region{}, fmt.Errorf("%w: empty id", ErrMalformed)
	}
	if g == nil || len(g.Polygons()) == 0 {
		return Region{}, fmt.Errorf("%w: empty boundary for %s", ErrMalformed, id)
	}
	for _, p := range g.Polygons() {
		if len(p.Rings) == 0 {
			return Region{}, fmt.Errorf("%w: polygon without rings in %s", ErrMalformed, id)
		}
	}
	return Region{ID: id, Name: name, Geometry: g}, nil
}

// NewPolygon：由环构造多边形并计算经纬度包围盒
func NewPolygon(rings ...Ring) Polygon {
	p := Polygon{Rings: rings}
	p.BBox = computeBBox(p)
	return p
}

func computeBBox(p Polygon) [4]float64 {
	b := [4]float64{180, 90, -180, -90}
	for _, r := range p.Rings {
		for _, pt := range r {
			if pt.Lon < b[0] {
				b[0] = pt.Lon
			}
			if pt.Lat < b[1] {
				b[1] = pt.Lat
			}
			if pt.Lon > b[2] {
				b[2] = pt.Lon
			}
			if pt.Lat > b[3] {
				b[3] = pt.Lat
			}
		}
	}
	return b
}

// BBox：区域全部部件的经纬度包围盒
func BBox(g Geometry) [4]float64 {
	b := [4]float64{180, 90, -180, -90}
	for _, p := range g.Polygons() {
		b[0] = min(b[0], p.BBox[0])
		b[1] = min(b[1], p.BBox[1])
		b[2] = max(b[2], p.BBox[2])
		b[3] = max(b[3], p.BBox[3])
	}
	return b
}
