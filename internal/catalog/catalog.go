// 包 catalog：区域目录（一次性加载、加载后只读）与库存视图
package catalog

import (
	"errors"
	"fmt"

	"map-puzzle/internal/geo"
)

// ErrCatalogLoad：目录加载失败（网络、状态码或数据结构）
var ErrCatalogLoad = errors.New("catalog load failure")

// Catalog：按数据源文档顺序排列的区域集合，构造后不变
type Catalog struct {
	regions []geo.Region
	index   map[string]int
}

// New：区域标识必须唯一
func New(regions []geo.Region) (*Catalog, error) {
	c := &Catalog{regions: make([]geo.Region, len(regions)), index: make(map[string]int, len(regions))}
	copy(c.regions, regions)
	for i, r := range c.regions {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: region %d has empty id", geo.ErrMalformed, i)
		}
		if _, dup := c.index[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate region id %s", geo.ErrMalformed, r.ID)
		}
		c.index[r.ID] = i
	}
	return c, nil
}

// All：返回副本，调用方修改不影响目录
func (c *Catalog) All() []geo.Region {
	if c == nil {
		return nil
	}
	out := make([]geo.Region, len(c.regions))
	copy(out, c.regions)
	return out
}

func (c *Catalog) Get(id string) (geo.Region, bool) {
	if c == nil {
		return geo.Region{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return geo.Region{}, false
	}
	return c.regions[i], true
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.regions)
}

// Placed：已放置集合的只读视图
type Placed interface {
	Contains(id string) bool
}

// Inventory：尚未放置的区域，保持目录顺序；目录未就绪时为空
func Inventory(c *Catalog, placed Placed) []geo.Region {
	if c == nil {
		return []geo.Region{}
	}
	out := make([]geo.Region, 0, len(c.regions))
	for _, r := range c.regions {
		if placed != nil && placed.Contains(r.ID) {
			continue
		}
		out = append(out, r)
	}
	return out
}
