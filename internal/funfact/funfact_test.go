package funfact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiServer(t *testing.T, status int, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{}`))
			return
		}
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		var req geminiRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) && assert.Len(t, req.Contents, 1) {
			assert.Equal(t, Prompt("Texas"), req.Contents[0].Parts[0].Text)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"boom"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  ` + text + `\n"}]}}]}`))
	}))
}

func TestFallbackTexts(t *testing.T) {
	assert.Equal(t, "Did you know? Ohio is a great state! (AI key missing)", MissingKeyText("Ohio"))
	assert.Equal(t, "Ohio has a rich history!", FailureText("Ohio"))
	assert.True(t, strings.Contains(Prompt("Ohio"), "US state of Ohio"))
}

func TestGeminiSuccess(t *testing.T) {
	srv := geminiServer(t, http.StatusOK, "Texas has its own power grid.")
	defer srv.Close()
	g := NewGemini(srv.URL+"/", "gemini-2.5-flash", "secret", time.Second)
	text, err := g.Fact(context.Background(), "Texas")
	require.NoError(t, err)
	assert.Equal(t, "Texas has its own power grid.", text)
	assert.NoError(t, g.Heartbeat(context.Background()))
}

func TestGeminiStatusError(t *testing.T) {
	srv := geminiServer(t, http.StatusInternalServerError, "")
	defer srv.Close()
	g := NewGemini(srv.URL, "gemini-2.5-flash", "secret", time.Second)
	_, err := g.Fact(context.Background(), "Texas")
	assert.ErrorIs(t, err, ErrProvider)
	assert.Error(t, g.Heartbeat(context.Background()))
}

func TestGeminiMissingKey(t *testing.T) {
	g := NewGemini("http://127.0.0.1:1", "gemini-2.5-flash", "", time.Second)
	_, err := g.Fact(context.Background(), "Texas")
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestServiceWithoutProviders(t *testing.T) {
	s := NewService(NewManager(time.Minute), nil, 0)
	assert.Equal(t, MissingKeyText("Utah"), s.Fact(context.Background(), "Utah"))
	assert.Equal(t, MissingKeyText("Utah"), NewService(nil, nil, 0).Fact(context.Background(), "Utah"))
}

func TestServiceFallsThroughProviders(t *testing.T) {
	ext := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/fact":
			_, _ = w.Write([]byte(`{"text":"` + r.URL.Query().Get("name") + ` is the Beehive State."}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ext.Close()
	bad := geminiServer(t, http.StatusInternalServerError, "")
	defer bad.Close()

	m := NewManager(time.Minute)
	m.Register(NewGemini(bad.URL, "gemini-2.5-flash", "secret", time.Second))
	m.Register(NewHTTP("ext", ext.URL, time.Second))
	s := NewService(m, nil, 0)
	assert.Equal(t, "Utah is the Beehive State.", s.Fact(context.Background(), "Utah"))
}

func TestServiceProviderFailure(t *testing.T) {
	bad := geminiServer(t, http.StatusInternalServerError, "")
	defer bad.Close()
	m := NewManager(time.Minute)
	m.Register(NewGemini(bad.URL, "gemini-2.5-flash", "secret", time.Second))
	assert.Equal(t, FailureText("Texas"), NewService(m, nil, 0).Fact(context.Background(), "Texas"))
}

func TestServiceMissingKeyProvider(t *testing.T) {
	m := NewManager(time.Minute)
	m.Register(NewGemini("http://127.0.0.1:1", "gemini-2.5-flash", "", time.Second))
	assert.Equal(t, MissingKeyText("Iowa"), NewService(m, nil, 0).Fact(context.Background(), "Iowa"))
}

type stubProvider struct {
	name string
	hb   error
}

func (s stubProvider) Name() string { return s.name }
func (s stubProvider) Fact(ctx context.Context, name string) (string, error) {
	return s.name + ":" + name, nil
}
func (s stubProvider) Heartbeat(ctx context.Context) error { return s.hb }

func TestManagerHeartbeatFiltersUnhealthy(t *testing.T) {
	m := NewManager(time.Minute)
	m.Register(stubProvider{name: "down", hb: errors.New("unreachable")})
	m.Register(stubProvider{name: "up"})
	assert.Len(t, m.Healthy(), 2)

	m.Heartbeat(context.Background())
	hs := m.Healthy()
	require.Len(t, hs, 1)
	assert.Equal(t, "up", hs[0].Name())
	assert.Equal(t, "up:Maine", NewService(m, nil, 0).Fact(context.Background(), "Maine"))
}
