package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"map-puzzle/internal/config"
	"map-puzzle/internal/geo"
)

const threeStates = `{"type":"FeatureCollection","features":[
 {"type":"Feature","id":"01","properties":{"name":"Alabama"},"geometry":{"type":"Polygon","coordinates":[[[-88,35],[-85,35],[-85,31],[-88,31],[-88,35]]]}},
 {"type":"Feature","id":"02","properties":{"name":"Alaska"},"geometry":{"type":"Polygon","coordinates":[[[-150,60],[-140,60],[-140,65],[-150,65],[-150,60]]]}},
 {"type":"Feature","id":"04","properties":{"name":"Arizona"},"geometry":{"type":"Polygon","coordinates":[[[-114,37],[-109,37],[-109,31],[-114,31],[-114,37]]]}}
]}`

type fakeSource struct {
	doc   []byte
	err   error
	calls atomic.Int32
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(ctx context.Context) ([]byte, error) {
	f.calls.Add(1)
	return f.doc, f.err
}

type placedSet map[string]bool

func (p placedSet) Contains(id string) bool { return p[id] }

func region(t *testing.T, id string) geo.Region {
	ring := geo.Ring{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}, {Lon: 1, Lat: 1}, {Lon: 0, Lat: 0}}
	r, err := geo.NewRegion(id, "R"+id, geo.PolygonGeometry{Polygon: geo.NewPolygon(ring)})
	require.NoError(t, err)
	return r
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	_, err := New([]geo.Region{region(t, "A"), region(t, "A")})
	assert.ErrorIs(t, err, geo.ErrMalformed)
}

func TestCatalogAccessors(t *testing.T) {
	c, err := New([]geo.Region{region(t, "A"), region(t, "B")})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	r, ok := c.Get("B")
	require.True(t, ok)
	assert.Equal(t, "RB", r.Name)
	_, ok = c.Get("Z")
	assert.False(t, ok)

	all := c.All()
	all[0].Name = "changed"
	first, _ := c.Get("A")
	assert.Equal(t, "RA", first.Name)

	var nilCat *Catalog
	assert.Equal(t, 0, nilCat.Len())
	_, ok = nilCat.Get("A")
	assert.False(t, ok)
}

func TestInventoryKeepsCatalogOrder(t *testing.T) {
	c, err := New([]geo.Region{region(t, "A"), region(t, "B"), region(t, "C")})
	require.NoError(t, err)

	inv := Inventory(c, placedSet{"B": true})
	require.Len(t, inv, 2)
	assert.Equal(t, "A", inv[0].ID)
	assert.Equal(t, "C", inv[1].ID)

	assert.Len(t, Inventory(c, nil), 3)
	assert.Empty(t, Inventory(c, placedSet{"A": true, "B": true, "C": true}))
	assert.NotNil(t, Inventory(nil, nil))
	assert.Empty(t, Inventory(nil, nil))
}

func TestLoadDecodesInDocumentOrder(t *testing.T) {
	c, err := Load(context.Background(), &fakeSource{doc: []byte(threeStates)})
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())
	all := c.All()
	assert.Equal(t, []string{"01", "02", "04"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "Arizona", all[2].Name)
}

func TestLoadFailures(t *testing.T) {
	_, err := Load(context.Background(), &fakeSource{err: errors.New("connection refused")})
	assert.ErrorIs(t, err, ErrCatalogLoad)

	_, err = Load(context.Background(), &fakeSource{doc: []byte(`{"type":"FeatureCollection","features":[{"type":"Feature","id":"01","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`)})
	assert.ErrorIs(t, err, ErrCatalogLoad)
	assert.ErrorIs(t, err, geo.ErrMalformed)
}

func TestHTTPSource(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(threeStates))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/states.json", time.Second, nil, 0)
	assert.Equal(t, "http", src.Name())
	c, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	_, err = Load(context.Background(), NewHTTPSource(srv.URL+"/missing", time.Second, nil, 0))
	assert.ErrorIs(t, err, ErrCatalogLoad)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFileSource(t *testing.T) {
	p := filepath.Join(t.TempDir(), "states.json")
	require.NoError(t, os.WriteFile(p, []byte(threeStates), 0o644))
	c, err := Load(context.Background(), FileSource{Path: p})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	_, err = Load(context.Background(), FileSource{Path: p + ".absent"})
	assert.ErrorIs(t, err, ErrCatalogLoad)
}

func TestHolderTransitions(t *testing.T) {
	h := NewHolder()
	assert.Equal(t, Loading, h.Status())
	assert.Nil(t, h.Catalog())

	done := make(chan error, 1)
	src := &fakeSource{doc: []byte(threeStates)}
	h.Start(context.Background(), src, func(c *Catalog, err error) { done <- err })
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("load did not complete")
	}
	assert.Equal(t, Ready, h.Status())
	assert.Equal(t, 3, h.Catalog().Len())

	assert.False(t, h.Set(nil, errors.New("late")))
	assert.Equal(t, Ready, h.Status())
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestHolderFailure(t *testing.T) {
	h := NewHolder()
	assert.True(t, h.Set(nil, ErrCatalogLoad))
	assert.Equal(t, Failed, h.Status())
	assert.Equal(t, "failed", h.Status().String())
	assert.Nil(t, h.Catalog())
	assert.ErrorIs(t, h.Err(), ErrCatalogLoad)
}

func TestNewSourceSelection(t *testing.T) {
	obj := config.ObjectConfig{Bucket: "b", Key: "k.json"}

	src, err := NewSource(config.BoundaryConfig{Source: "http", URL: "http://x/states.json", TimeoutSeconds: 3}, obj, Deps{})
	require.NoError(t, err)
	hs, ok := src.(*HTTPSource)
	require.True(t, ok)
	assert.Equal(t, "http://x/states.json", hs.URL)
	assert.Equal(t, 3*time.Second, hs.Client.Timeout)

	src, err = NewSource(config.BoundaryConfig{Source: "file", File: "/tmp/s.json"}, obj, Deps{})
	require.NoError(t, err)
	assert.Equal(t, FileSource{Path: "/tmp/s.json"}, src)

	_, err = NewSource(config.BoundaryConfig{Source: "postgres"}, obj, Deps{})
	assert.ErrorIs(t, err, errSourceDeps)
	_, err = NewSource(config.BoundaryConfig{Source: "object"}, obj, Deps{})
	assert.ErrorIs(t, err, errSourceDeps)
	_, err = NewSource(config.BoundaryConfig{Source: "ftp"}, obj, Deps{})
	assert.Error(t, err)
}
