package geo

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// 文档注释：边界数据文档的结构约束（JSON Schema draft-04）
// 约束：只校验结构；坐标数值与环长度在类型化解析阶段检查。
const featureCollectionSchema = `{
	"type": "object",
	"required": ["type", "features"],
	"properties": {
		"type": {"enum": ["FeatureCollection"]},
		"features": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "properties", "geometry"],
				"properties": {
					"id": {"type": ["string", "number"]},
					"properties": {
						"type": "object",
						"required": ["name"],
						"properties": {"name": {"type": "string", "minLength": 1}}
					},
					"geometry": {
						"type": "object",
						"required": ["type", "coordinates"],
						"properties": {
							"type": {"enum": ["Polygon", "MultiPolygon"]},
							"coordinates": {"type": "array", "minItems": 1}
						}
					}
				}
			}
		}
	}
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(featureCollectionSchema))
	})
	return schema, schemaErr
}

// Validate：按结构约束校验原始文档
// 返回：不符合时返回包装 ErrMalformed 的错误，附带前几条违规描述
func Validate(doc []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if res.Valid() {
		return nil
	}
	var msgs []string
	for i, d := range res.Errors() {
		if i == 5 {
			msgs = append(msgs, "...")
			break
		}
		msgs = append(msgs, d.String())
	}
	return fmt.Errorf("%w: %s", ErrMalformed, strings.Join(msgs, "; "))
}
