package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"map-puzzle/internal/geo"
)

// widthScaled：x 随棋盘宽度线性缩放，便于观察尺寸变化
func widthScaled(w, h int) Projection {
	f := float64(w) / 800
	return ProjectionFunc(func(lon, lat float64) (Point, bool) { return Point{X: lon * f, Y: lat}, true })
}

func testRegion(id string) geo.Region {
	r, _ := geo.NewRegion(id, "Region "+id, polygon(square(0, 0, 10, 10)))
	return r
}

func TestEngineResize(t *testing.T) {
	e := NewEngine(800, 500, widthScaled, Equirectangular{K: 150}, 16)
	first := e.Board()
	require.NotNil(t, first)
	assert.Equal(t, 800, first.Width)

	assert.False(t, e.Resize(800, 500))
	assert.Same(t, first, e.Board())
	assert.False(t, e.Resize(0, 500))
	assert.False(t, e.Resize(800, -1))
	assert.Same(t, first, e.Board())

	assert.True(t, e.Resize(1600, 500))
	assert.Equal(t, 1600, e.Board().Width)
	assert.Equal(t, 800, first.Width)
}

func TestBoardCentroidFollowsDimensions(t *testing.T) {
	e := NewEngine(800, 500, widthScaled, Equirectangular{K: 150}, 16)
	r := testRegion("A")

	c, ok := e.Board().CentroidOf(r)
	require.True(t, ok)
	assert.InDelta(t, 5, c.X, 1e-9)

	e.Resize(1600, 500)
	c, ok = e.Board().CentroidOf(r)
	require.True(t, ok)
	assert.InDelta(t, 10, c.X, 1e-9)

	s := e.Board().Project(r)
	assert.True(t, s.OK)
	assert.Equal(t, "M0,0L20,0L20,10L0,10Z", s.Path)
}

func TestEngineThumbnailAndPreview(t *testing.T) {
	e := NewEngine(800, 500, widthScaled, Equirectangular{K: 150}, 16)
	r := testRegion("A")

	th, ok := e.Thumbnail(r)
	require.True(t, ok)
	assert.Equal(t, "0 0 96 96", th.ViewBox)
	assert.NotEmpty(t, th.Path)

	again, ok := e.Thumbnail(r)
	require.True(t, ok)
	assert.Equal(t, th, again)

	pv, ok := e.Preview(r)
	require.True(t, ok)
	assert.Equal(t, "0 0 150 150", pv.ViewBox)
}

func TestEngineDefaultsToAlbersUSA(t *testing.T) {
	e := NewEngine(0, 0, nil, nil, 0)
	assert.Equal(t, 800, e.Board().Width)
	assert.Equal(t, 500, e.Board().Height)

	kansas, _ := geo.NewRegion("20", "Kansas", polygon(square(-102, 37, -94.6, 40)))
	c, ok := e.Board().CentroidOf(kansas)
	require.True(t, ok)
	assert.InDelta(t, 400, c.X, 40)
	assert.InDelta(t, 250, c.Y, 40)
}
