package http

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/m3udash/internal/config"
	"github.com/jmylchreest/m3udash/internal/ingestor"
	"github.com/jmylchreest/m3udash/internal/metrics"
	"github.com/jmylchreest/m3udash/internal/storage"
	"github.com/jmylchreest/m3udash/pkg/httpclient"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	m := metrics.New()
	fetcher := httpclient.New(httpclient.Config{
		Timeout: 5 * time.Second,
		OnResult: func(kind httpclient.ResultKind, elapsed time.Duration) {
			m.ObserveFetch(kind.String(), elapsed)
		},
	})
	shares, err := storage.NewShareStore(filepath.Join(t.TempDir(), "shared"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = shares.Close() })

	srv := NewServer(config.ServerConfig{ShutdownTimeout: time.Second}, Dependencies{
		Relay:      ingestor.NewM3UHandler(fetcher).WithMetrics(m),
		Translator: ingestor.NewXtreamHandler(fetcher).WithMetrics(m),
		Shares:     shares.WithMetrics(m),
		StorageDir: shares.Dir(),
		Metrics:    m,
	}, nil, "1.2.3")

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestServer_RelayAndShare(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTM3U\n#EXTINF:-1,A\nhttp://a"))
	}))
	defer upstream.Close()
	ts := newTestServer(t)

	resp, out := postJSON(t, ts.URL+"/proxy_m3u_url", `{"url":"`+upstream.URL+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "#EXTM3U\n#EXTINF:-1,A\nhttp://a", out["m3uContent"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	content, _ := json.Marshal(out["m3uContent"])
	resp, out = postJSON(t, ts.URL+"/generate-share-link", `{"content":`+string(content)+`}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	link, _ := out["shareableLink"].(string)
	require.True(t, strings.HasPrefix(link, ts.URL+"/shared/"), link)

	get, err := http.Get(link)
	require.NoError(t, err)
	defer get.Body.Close()
	body, _ := io.ReadAll(get.Body)
	assert.Equal(t, http.StatusOK, get.StatusCode)
	assert.Equal(t, "#EXTM3U\n#EXTINF:-1,A\nhttp://a", string(body))
}

func TestServer_RelayInvalidScheme(t *testing.T) {
	ts := newTestServer(t)

	resp, out := postJSON(t, ts.URL+"/proxy_m3u_url", `{"url":"ftp://x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Invalid URL scheme. URL must start with http:// or https://", out["error"])
}

func TestServer_XtreamUnauthorized(t *testing.T) {
	panel := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer panel.Close()
	ts := newTestServer(t)

	resp, out := postJSON(t, ts.URL+"/fetch_xtream_playlist",
		`{"panelUrl":"`+panel.URL+`","username":"u","password":"p"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized (401). Please check your Xtream username and password.", out["error"])
}

func TestServer_HealthAndLivez(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/livez")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "1.2.3", health["version"])
}

func TestServer_Inspect(t *testing.T) {
	ts := newTestServer(t)

	resp, out := postJSON(t, ts.URL+"/api/v1/playlists/inspect",
		`{"content":"#EXTM3U\n#EXTINF:-1 group-title=\"News\",CNN\nhttp://a"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), out["channel_count"])
}

func TestServer_OpenAPIAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/openapi.json")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "/api/v1/playlists/inspect")

	_, _ = postJSON(t, ts.URL+"/proxy_m3u_url", `{"url":"ftp://x"}`)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `m3udash_relay_total{outcome="invalid_scheme"} 1`)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	srv := NewServer(config.ServerConfig{ShutdownTimeout: time.Second}, Dependencies{}, nil, "")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/livez")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, <-done)
}

func TestServer_ListenAndServeStopsOnCancel(t *testing.T) {
	srv := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 0, ShutdownTimeout: time.Second}, Dependencies{}, nil, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("ListenAndServe did not return after cancel")
	}
}
