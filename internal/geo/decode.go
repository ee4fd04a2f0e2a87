package geo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// FeatureCollection：解析后的区域序列，保持文档顺序
type FeatureCollection struct {
	Regions []Region
}

type rawCollection struct {
	Type     string       `json:"type"`
	Features []rawFeature `json:"features"`
}

type rawFeature struct {
	Type       string          `json:"type"`
	ID         json.RawMessage `json:"id"`
	Properties map[string]any  `json:"properties"`
	Geometry   *rawGeometry    `json:"geometry"`
}

type rawGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// 文档注释：解析 GeoJSON FeatureCollection 为区域列表
// 背景：先做结构校验，再逐要素类型化解析；不做任何修补。
// 约束：任一要素缺失 id/name、几何类型未知、坐标非法或环少于 4 个点时整体失败。
func DecodeFeatureCollection(doc []byte) (*FeatureCollection, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	var raw rawCollection
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	fc := &FeatureCollection{Regions: make([]Region, 0, len(raw.Features))}
	for i, f := range raw.Features {
		r, err := decodeFeature(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		fc.Regions = append(fc.Regions, r)
	}
	return fc, nil
}

// DecodeFeature：解析单个 Feature 文档（用于镜像表逐行读取）
func DecodeFeature(doc []byte) (Region, error) {
	var f rawFeature
	if err := json.Unmarshal(doc, &f); err != nil {
		return Region{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return decodeFeature(f)
}

func decodeFeature(f rawFeature) (Region, error) {
	id, err := parseID(f.ID)
	if err != nil {
		return Region{}, err
	}
	name, _ := f.Properties["name"].(string)
	if name == "" {
		return Region{}, fmt.Errorf("%w: feature %s has no name", ErrMalformed, id)
	}
	if f.Geometry == nil {
		return Region{}, fmt.Errorf("%w: feature %s has no geometry", ErrMalformed, id)
	}
	g, err := decodeGeometry(f.Geometry)
	if err != nil {
		return Region{}, fmt.Errorf("feature %s: %w", id, err)
	}
	r, err := NewRegion(id, name, g)
	if err != nil {
		return Region{}, err
	}
	r.Properties = f.Properties
	return r, nil
}

// parseID：字符串原样保留，数值按十进制定点格式化（1.0 → "1"，1e2 → "100"）
func parseID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("%w: missing id", ErrMalformed)
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return "", fmt.Errorf("%w: bad id %s", ErrMalformed, raw)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("%w: bad id %s", ErrMalformed, raw)
	}
	v, err := n.Float64()
	if err != nil || !finite(v) {
		return "", fmt.Errorf("%w: bad id %s", ErrMalformed, raw)
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

func decodeGeometry(g *rawGeometry) (Geometry, error) {
	switch GeometryKind(g.Type) {
	case KindPolygon:
		var coords [][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("%w: polygon coordinates: %v", ErrMalformed, err)
		}
		p, err := buildPolygon(coords)
		if err != nil {
			return nil, err
		}
		return PolygonGeometry{Polygon: p}, nil
	case KindMultiPolygon:
		var coords [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("%w: multipolygon coordinates: %v", ErrMalformed, err)
		}
		if len(coords) == 0 {
			return nil, fmt.Errorf("%w: empty multipolygon", ErrMalformed)
		}
		parts := make([]Polygon, 0, len(coords))
		for _, c := range coords {
			p, err := buildPolygon(c)
			if err != nil {
				return nil, err
			}
			parts = append(parts, p)
		}
		return MultiPolygonGeometry{Parts: parts}, nil
	}
	return nil, fmt.Errorf("%w: unsupported geometry %q", ErrMalformed, g.Type)
}

func buildPolygon(coords [][][]float64) (Polygon, error) {
	if len(coords) == 0 {
		return Polygon{}, fmt.Errorf("%w: polygon without rings", ErrMalformed)
	}
	rings := make([]Ring, 0, len(coords))
	for _, rc := range coords {
		if len(rc) < 4 {
			return Polygon{}, fmt.Errorf("%w: ring with %d positions", ErrMalformed, len(rc))
		}
		ring := make(Ring, 0, len(rc))
		for _, pos := range rc {
			if len(pos) < 2 || !finite(pos[0]) || !finite(pos[1]) {
				return Polygon{}, fmt.Errorf("%w: bad position %v", ErrMalformed, pos)
			}
			ring = append(ring, Point{Lat: pos[1], Lon: pos[0]})
		}
		rings = append(rings, ring)
	}
	return NewPolygon(rings...), nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// EncodeFeature：区域回写为 Feature 文档（镜像表存储格式）
func EncodeFeature(r Region) ([]byte, error) {
	props := map[string]any{}
	for k, v := range r.Properties {
		props[k] = v
	}
	props["name"] = r.Name
	var coords any
	switch g := r.Geometry.(type) {
	case PolygonGeometry:
		coords = polygonCoords(g.Polygon)
	case MultiPolygonGeometry:
		parts := make([][][][]float64, 0, len(g.Parts))
		for _, p := range g.Parts {
			parts = append(parts, polygonCoords(p))
		}
		coords = parts
	default:
		return nil, fmt.Errorf("%w: no geometry for %s", ErrMalformed, r.ID)
	}
	return json.Marshal(map[string]any{
		"type":       "Feature",
		"id":         r.ID,
		"properties": props,
		"geometry":   map[string]any{"type": string(r.Geometry.Kind()), "coordinates": coords},
	})
}

func polygonCoords(p Polygon) [][][]float64 {
	out := make([][][]float64, 0, len(p.Rings))
	for _, r := range p.Rings {
		ring := make([][]float64, 0, len(r))
		for _, pt := range r {
			ring = append(ring, []float64{pt.Lon, pt.Lat})
		}
		out = append(out, ring)
	}
	return out
}
