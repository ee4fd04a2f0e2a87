package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"map-puzzle/internal/catalog"
	"map-puzzle/internal/eventbus"
	"map-puzzle/internal/geo"
	"map-puzzle/internal/projection"
)

const twoRegions = `{"type":"FeatureCollection","features":[
 {"type":"Feature","id":"A","properties":{"name":"Alpha"},"geometry":{"type":"Polygon","coordinates":[[[90,90],[110,90],[110,110],[90,110],[90,90]]]}},
 {"type":"Feature","id":"B","properties":{"name":"Beta"},"geometry":{"type":"Polygon","coordinates":[[[290,190],[310,190],[310,210],[290,210],[290,190]]]}}
]}`

type docSource struct {
	doc string
	err error
}

func (d docSource) Name() string { return "test" }
func (d docSource) Fetch(ctx context.Context) ([]byte, error) {
	return []byte(d.doc), d.err
}

type stubFacts struct{}

func (stubFacts) Fact(ctx context.Context, name string) string { return name + " fact" }

type recordingPublisher struct {
	mu  sync.Mutex
	evs []eventbus.PlacementEvent
}

func (r *recordingPublisher) Publish(ctx context.Context, ev eventbus.PlacementEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.evs)
}

func (r *recordingPublisher) first() eventbus.PlacementEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evs[0]
}

func identityBoard(w, h int) projection.Projection {
	return projection.ProjectionFunc(func(lon, lat float64) (projection.Point, bool) {
		return projection.Point{X: lon, Y: lat}, true
	})
}

func start(t *testing.T, src catalog.Source, pub eventbus.Publisher) (*Session, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	engine := projection.NewEngine(800, 500, identityBoard, projection.Equirectangular{K: 150}, 64)
	s := New(engine, catalog.NewHolder(), stubFacts{}, pub)
	go s.Run(ctx)
	if src != nil {
		s.LoadCatalog(ctx, src)
	}
	t.Cleanup(cancel)
	return s, cancel
}

func waitStatus(t *testing.T, s *Session, status string) View {
	t.Helper()
	var v View
	require.Eventually(t, func() bool {
		var err error
		v, err = s.View(context.Background())
		return err == nil && v.Status == status
	}, 2*time.Second, 10*time.Millisecond)
	return v
}

func pt(x, y float64) projection.Point { return projection.Point{X: x, Y: y} }

func TestEndToEndDrop(t *testing.T) {
	pub := &recordingPublisher{}
	s, _ := start(t, docSource{doc: twoRegions}, pub)
	ctx := context.Background()
	notices, unsubscribe := s.Subscribe(64)
	defer unsubscribe()

	v := waitStatus(t, s, "ready")
	assert.Equal(t, 2, v.Total)
	assert.False(t, v.Empty)

	changed, err := s.Resize(ctx, Rect{Left: 10, Top: 20, Width: 800, Height: 500})
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, s.PickUp(ctx, "A", pt(0, 0)))
	assert.Equal(t, 1, s.Listeners())
	require.NoError(t, s.Move(ctx, pt(50, 60)))

	pv, ok, err := s.Preview(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", pv.RegionID)
	assert.Equal(t, pt(-25, -15), pv.At)
	assert.Equal(t, "0 0 150 150", pv.ViewBox)

	res, ok, err := s.Release(ctx, pt(130, 120))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, res.Accepted)
	assert.Equal(t, pt(120, 100), res.Point)
	assert.InDelta(t, 20, res.Distance, 1e-9)
	assert.Equal(t, 100, res.Score)
	assert.False(t, res.Won)
	assert.Equal(t, 0, s.Listeners())

	_, ok, err = s.Release(ctx, pt(130, 120))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, s.PickUp(ctx, "A", pt(0, 0)), ErrAlreadyPlaced)
	assert.ErrorIs(t, s.PickUp(ctx, "Z", pt(0, 0)), ErrUnknownRegion)

	inv, err := s.Inventory(ctx)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, "B", inv[0].ID)
	assert.Equal(t, "0 0 96 96", inv[0].ViewBox)

	board, err := s.Board(ctx)
	require.NoError(t, err)
	require.Len(t, board.Regions, 2)
	assert.True(t, board.Regions[0].Placed)
	require.NotNil(t, board.Regions[0].Label)
	assert.InDelta(t, 100, board.Regions[0].Label.X, 1e-9)
	assert.Nil(t, board.Regions[1].Label)

	require.Eventually(t, func() bool {
		for {
			select {
			case n := <-notices:
				if f, ok := n.Payload.(FactNotice); ok && n.Type == "fact" {
					return f.Text == "Alpha fact"
				}
			default:
				return false
			}
		}
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, pub.count())
	assert.Equal(t, "A", pub.first().RegionID)
	assert.InDelta(t, 20, pub.first().Distance, 1e-9)
	assert.Equal(t, 100, pub.first().Score)

	require.NoError(t, s.PickUp(ctx, "B", pt(0, 0)))
	res, ok, err = s.Release(ctx, pt(1000, 1000))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "too_far", res.Result)
	assert.Equal(t, 100, res.Score)

	require.NoError(t, s.PickUp(ctx, "B", pt(0, 0)))
	res, _, err = s.Release(ctx, pt(305, 215))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.True(t, res.Won)
	assert.Equal(t, 200, res.Score)

	v, err = s.View(ctx)
	require.NoError(t, err)
	assert.True(t, v.Empty)
	assert.Equal(t, 2, v.Placed)
}

func TestPickUpBeforeCatalogReady(t *testing.T) {
	s, _ := start(t, nil, nil)
	err := s.PickUp(context.Background(), "A", pt(0, 0))
	assert.ErrorIs(t, err, ErrNotReady)

	inv, err := s.Inventory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, inv)

	v, err := s.View(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "loading", v.Status)
}

func TestCatalogFailureSurfacesOnView(t *testing.T) {
	s, _ := start(t, docSource{err: errors.New("offline")}, nil)
	v := waitStatus(t, s, "failed")
	assert.Contains(t, v.Error, "catalog load failure")
	assert.Equal(t, 0, v.Total)

	b, err := s.Board(context.Background())
	require.NoError(t, err)
	assert.Empty(t, b.Regions)
}

func TestTeardownAndClose(t *testing.T) {
	s, cancel := start(t, docSource{doc: twoRegions}, nil)
	waitStatus(t, s, "ready")
	ctx := context.Background()

	require.NoError(t, s.PickUp(ctx, "B", pt(0, 0)))
	require.NoError(t, s.Teardown(ctx))
	assert.Equal(t, 0, s.Listeners())
	_, ok, err := s.Release(ctx, pt(300, 200))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PickUp(ctx, "B", pt(0, 0)))
	cancel()
	require.Eventually(t, func() bool { return s.Listeners() == 0 }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		_, err := s.View(ctx)
		return errors.Is(err, ErrClosed)
	}, time.Second, 10*time.Millisecond)
}

func TestResizeRejectsInvalidDimensions(t *testing.T) {
	s, _ := start(t, nil, nil)
	changed, err := s.Resize(context.Background(), Rect{Width: 0, Height: 100})
	require.NoError(t, err)
	assert.False(t, changed)
	changed, err = s.Resize(context.Background(), Rect{Width: 1024, Height: 640})
	require.NoError(t, err)
	assert.True(t, changed)
	b, err := s.Board(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1024, b.Width)
}

func TestCatalogReadyBeforeLoopInitialisesState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine := projection.NewEngine(800, 500, identityBoard, projection.Equirectangular{K: 150}, 64)
	holder := catalog.NewHolder()
	s := New(engine, holder, stubFacts{}, nil)
	go s.Run(ctx)

	fc, err := geo.DecodeFeatureCollection([]byte(twoRegions))
	require.NoError(t, err)
	cat, err := catalog.New(fc.Regions[:1])
	require.NoError(t, err)
	require.True(t, holder.Set(cat, nil))

	// 目录已就绪但初始化尚未进入循环
	assert.ErrorIs(t, s.PickUp(ctx, "A", pt(0, 0)), ErrNotReady)
	_, ok, err := s.Release(ctx, pt(100, 100))
	require.NoError(t, err)
	assert.False(t, ok)
	v, err := s.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, "loading", v.Status)
	inv, err := s.Inventory(ctx)
	require.NoError(t, err)
	assert.Empty(t, inv)

	require.NoError(t, s.Do(ctx, func() { s.catalogLoaded(cat, nil) }))
	v, err = s.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ready", v.Status)
	assert.Equal(t, 1, v.Total)

	require.NoError(t, s.PickUp(ctx, "A", pt(0, 0)))
	res, ok, err := s.Release(ctx, pt(100, 100))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, res.Accepted)
	assert.True(t, res.Won)
	assert.Equal(t, 100, res.Score)
}
