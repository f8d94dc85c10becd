package httpclient

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("with default config", func(t *testing.T) {
		client := NewWithDefaults()
		assert.NotNil(t, client.client)
		assert.NotNil(t, client.logger)
		assert.Equal(t, DefaultUserAgentHeader, client.config.UserAgent)
	})

	t.Run("fills zero values", func(t *testing.T) {
		client := New(Config{})
		assert.Equal(t, DefaultTimeout, client.config.Timeout)
		assert.Equal(t, DefaultUserAgentHeader, client.config.UserAgent)
	})

	t.Run("with custom base client", func(t *testing.T) {
		baseClient := &http.Client{Timeout: 5 * time.Second}
		cfg := DefaultConfig()
		cfg.BaseClient = baseClient
		assert.Same(t, baseClient, New(cfg).client)
	})
}

func TestClient_Fetch_Success(t *testing.T) {
	t.Run("returns body and status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			w.Write([]byte("#EXTM3U\n"))
		}))
		defer server.Close()

		result := NewWithDefaults().Fetch(context.Background(), server.URL, nil, nil, 0)
		require.Equal(t, ResultSuccess, result.Kind)
		assert.True(t, result.OK())
		assert.Equal(t, http.StatusOK, result.Status)
		assert.Equal(t, "#EXTM3U\n", result.Body)
	})

	t.Run("sends browser user agent and extra headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, DefaultUserAgentHeader, r.Header.Get(HeaderUserAgent))
			assert.Equal(t, "application/json", r.Header.Get(HeaderAccept))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		headers := http.Header{}
		headers.Set(HeaderAccept, "application/json")
		result := NewWithDefaults().Fetch(context.Background(), server.URL, nil, headers, 0)
		assert.Equal(t, ResultSuccess, result.Kind)
	})

	t.Run("merges query parameters", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/player_api.php", r.URL.Path)
			assert.Equal(t, "keep", r.URL.Query().Get("existing"))
			assert.Equal(t, "bob", r.URL.Query().Get("username"))
			assert.Equal(t, "get_live_streams", r.URL.Query().Get("action"))
			w.Write([]byte("[]"))
		}))
		defer server.Close()

		query := url.Values{"username": {"bob"}, "action": {"get_live_streams"}}
		result := NewWithDefaults().Fetch(context.Background(), server.URL+"/player_api.php?existing=keep", query, nil, 0)
		assert.Equal(t, ResultSuccess, result.Kind)
	})

	t.Run("reports result to observer", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		var observed atomic.Int32
		cfg := DefaultConfig()
		cfg.OnResult = func(kind ResultKind, _ time.Duration) {
			assert.Equal(t, ResultSuccess, kind)
			observed.Add(1)
		}
		New(cfg).Fetch(context.Background(), server.URL, nil, nil, 0)
		assert.Equal(t, int32(1), observed.Load())
	})
}

func TestClient_Fetch_HTTPError(t *testing.T) {
	t.Run("keeps status and excerpt", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("denied"))
		}))
		defer server.Close()

		result := NewWithDefaults().Fetch(context.Background(), server.URL, nil, nil, 0)
		require.Equal(t, ResultHTTPError, result.Kind)
		assert.Equal(t, http.StatusForbidden, result.Status)
		assert.Equal(t, "denied", result.BodyExcerpt)
		assert.Empty(t, result.Body)
	})

	t.Run("status wins over undecodable body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set(HeaderContentEncoding, EncodingGzip)
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("Access denied by proxy"))
		}))
		defer server.Close()

		result := NewWithDefaults().Fetch(context.Background(), server.URL, nil, nil, 0)
		require.Equal(t, ResultHTTPError, result.Kind)
		assert.Equal(t, http.StatusForbidden, result.Status)
		assert.Equal(t, "Access denied by proxy", result.BodyExcerpt)
	})

	t.Run("empty gzip error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set(HeaderContentEncoding, EncodingGzip)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		result := NewWithDefaults().Fetch(context.Background(), server.URL, nil, nil, 0)
		require.Equal(t, ResultHTTPError, result.Kind)
		assert.Equal(t, http.StatusUnauthorized, result.Status)
		assert.Empty(t, result.BodyExcerpt)
	})

	t.Run("gzip error body is decoded for the excerpt", func(t *testing.T) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		zw.Write([]byte("maintenance"))
		require.NoError(t, zw.Close())

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set(HeaderContentEncoding, EncodingGzip)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write(buf.Bytes())
		}))
		defer server.Close()

		result := NewWithDefaults().Fetch(context.Background(), server.URL, nil, nil, 0)
		require.Equal(t, ResultHTTPError, result.Kind)
		assert.Equal(t, "maintenance", result.BodyExcerpt)
	})

	t.Run("excerpt is bounded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(strings.Repeat("x", 10000)))
		}))
		defer server.Close()

		result := NewWithDefaults().Fetch(context.Background(), server.URL, nil, nil, 0)
		require.Equal(t, ResultHTTPError, result.Kind)
		assert.Len(t, result.BodyExcerpt, ExcerptLength)
	})
}

func TestClient_Fetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	result := NewWithDefaults().Fetch(context.Background(), server.URL, nil, nil, 50*time.Millisecond)
	assert.Equal(t, ResultTimeout, result.Kind)
	assert.NotEmpty(t, result.Message)
}

func TestClient_Fetch_TransportError(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		addr := server.URL
		server.Close()

		result := NewWithDefaults().Fetch(context.Background(), addr, nil, nil, time.Second)
		assert.Equal(t, ResultTransportError, result.Kind)
		assert.NotEmpty(t, result.Message)
	})

	t.Run("relative url", func(t *testing.T) {
		result := NewWithDefaults().Fetch(context.Background(), "/just/a/path", nil, nil, 0)
		assert.Equal(t, ResultTransportError, result.Kind)
	})

	t.Run("unparseable url", func(t *testing.T) {
		result := NewWithDefaults().Fetch(context.Background(), "http://[::1", nil, nil, 0)
		assert.Equal(t, ResultTransportError, result.Kind)
	})
}

func TestClient_Fetch_Decompression(t *testing.T) {
	payload := "#EXTM3U\n#EXTINF:-1,Channel\nhttp://example.com/1.ts"

	encoders := map[string]func(*bytes.Buffer){
		EncodingGzip: func(buf *bytes.Buffer) {
			w := gzip.NewWriter(buf)
			w.Write([]byte(payload))
			w.Close()
		},
		EncodingDeflate: func(buf *bytes.Buffer) {
			w, _ := flate.NewWriter(buf, flate.DefaultCompression)
			w.Write([]byte(payload))
			w.Close()
		},
		EncodingBrotli: func(buf *bytes.Buffer) {
			w := brotli.NewWriter(buf)
			w.Write([]byte(payload))
			w.Close()
		},
	}

	for encoding, encode := range encoders {
		t.Run(encoding, func(t *testing.T) {
			var buf bytes.Buffer
			encode(&buf)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.Header.Get(HeaderAcceptEncoding), encoding)
				w.Header().Set(HeaderContentEncoding, encoding)
				w.Write(buf.Bytes())
			}))
			defer server.Close()

			result := NewWithDefaults().Fetch(context.Background(), server.URL, nil, nil, 0)
			require.Equal(t, ResultSuccess, result.Kind, result.Message)
			assert.Equal(t, payload, result.Body)
		})
	}
}

func TestClient_Fetch_MaxResponseSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(strings.Repeat("a", 4096)))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.MaxResponseSize = 1024
	result := New(cfg).Fetch(context.Background(), server.URL, nil, nil, 0)
	assert.Equal(t, ResultTransportError, result.Kind)
	assert.Contains(t, result.Message, ErrResponseTooLarge.Error())
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", Excerpt("short", 200))
	assert.Equal(t, "abc", Excerpt("abcdef", 3))
	assert.Equal(t, "héé", Excerpt("hééllo", 3))
	assert.Equal(t, "", Excerpt("abc", 0))
}

func TestResultKind_String(t *testing.T) {
	assert.Equal(t, "success", ResultSuccess.String())
	assert.Equal(t, "timeout", ResultTimeout.String())
	assert.Equal(t, "http_error", ResultHTTPError.String())
	assert.Equal(t, "transport_error", ResultTransportError.String())
}
