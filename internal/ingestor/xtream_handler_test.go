package ingestor

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/m3udash/internal/metrics"
	"github.com/jmylchreest/m3udash/internal/models"
	"github.com/jmylchreest/m3udash/pkg/httpclient"
	"github.com/jmylchreest/m3udash/pkg/m3u"
)

const testEndpoint = "http://panel.example:8080/player_api.php"

func ok(body string) httpclient.FetchResult {
	return httpclient.FetchResult{Kind: httpclient.ResultSuccess, Status: 200, Body: body}
}

func panelFetcher(categories, streams httpclient.FetchResult) *recordingFetcher {
	return &recordingFetcher{results: map[string]httpclient.FetchResult{
		testEndpoint + "#get_live_categories": categories,
		testEndpoint + "#get_live_streams":    streams,
	}}
}

func translate(t *testing.T, fetcher Fetcher, req TranslateRequest) (*m3u.Document, error) {
	t.Helper()
	if req.PanelURL == "" {
		req.PanelURL = "panel.example:8080/"
	}
	if req.Username == "" {
		req.Username = "user"
	}
	if req.Password == "" {
		req.Password = "pass"
	}
	return NewXtreamHandler(fetcher).Translate(context.Background(), req)
}

func TestXtreamHandler_Translate_Golden(t *testing.T) {
	fetcher := panelFetcher(
		ok(`[{"category_id":"1","category_name":"News"}]`),
		ok(`[{"stream_id":"10","name":"CNN","category_id":"1"}]`),
	)

	doc, err := translate(t, fetcher, TranslateRequest{})
	require.NoError(t, err)

	want := "#EXTM3U\n" +
		`#EXTINF:-1 tvg-id="" tvg-name="CNN" tvg-logo="" group-title="News",CNN` + "\n" +
		"http://panel.example:8080/live/user/pass/10.ts"
	assert.Equal(t, want, doc.String())
}

func TestXtreamHandler_Translate_Requests(t *testing.T) {
	fetcher := panelFetcher(ok(`[]`), ok(`[]`))

	_, err := NewXtreamHandler(fetcher).
		WithTimeouts(3*time.Second, 7*time.Second).
		Translate(context.Background(), TranslateRequest{PanelURL: "http://panel.example:8080", Username: "user", Password: "pass"})
	require.NoError(t, err)
	require.Len(t, fetcher.calls, 2)

	timeouts := map[string]time.Duration{}
	for _, call := range fetcher.calls {
		assert.Equal(t, testEndpoint, call.URL)
		assert.Equal(t, "user", call.Query.Get("username"))
		assert.Equal(t, "pass", call.Query.Get("password"))
		assert.Equal(t, "application/json", call.Headers.Get("Accept"))
		timeouts[call.Query.Get("action")] = call.Timeout
	}
	assert.Equal(t, 3*time.Second, timeouts["get_live_categories"])
	assert.Equal(t, 7*time.Second, timeouts["get_live_streams"])
}

func TestXtreamHandler_Translate_MissingFields(t *testing.T) {
	fetcher := &recordingFetcher{}
	h := NewXtreamHandler(fetcher)

	for _, req := range []TranslateRequest{
		{Username: "u", Password: "p"},
		{PanelURL: "http://x", Password: "p"},
		{PanelURL: "http://x", Username: "u"},
	} {
		_, err := h.Translate(context.Background(), req)
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.KindMissingField))
		assert.Equal(t, models.MsgXtreamFields, models.AsError(err).Message)
	}
	assert.Empty(t, fetcher.calls)
}

func TestXtreamHandler_Translate_EntrySynthesis(t *testing.T) {
	streams := `[
		{"stream_id":1,"name":"CN\"N","category_id":"1","epg_channel_id":"cnn.us","stream_icon":"http://logo/cnn.png"},
		{"stream_id":2,"category_id":"99"},
		{"name":"No ID","category_id":1},
		{"stream_id":4,"name":"Null Group","category_id":null,"epg_channel_id":null,"stream_icon":null},
		"garbage",
		{"stream_id":5,"name":"Quoted Group","category_id":"2"},
		{"stream_id":6,"name":"Empty Group","category_id":"3"},
		{}
	]`
	categories := `[
		{"category_id":"1","category_name":"News"},
		{"category_id":2,"category_name":"Kids \"Zone\""},
		{"category_id":"3","category_name":""}
	]`

	doc, err := translate(t, panelFetcher(ok(categories), ok(streams)), TranslateRequest{OutputType: "M3U8"})
	require.NoError(t, err)

	lines := strings.Split(doc.String(), "\n")
	want := []string{
		"#EXTM3U",
		`#EXTINF:-1 tvg-id="cnn.us" tvg-name="CN'N" tvg-logo="http://logo/cnn.png" group-title="News",CN"N`,
		"http://panel.example:8080/live/user/pass/1.m3u8",
		`#EXTINF:-1 tvg-id="" tvg-name="Stream 2" tvg-logo="" group-title="Undefined Category",Stream 2`,
		"http://panel.example:8080/live/user/pass/2.m3u8",
		`#EXTINF:-1 tvg-id="" tvg-name="No ID" tvg-logo="" group-title="News",No ID`,
		`#EXTINF:-1 tvg-id="" tvg-name="Null Group" tvg-logo="" group-title="Undefined Category",Null Group`,
		"http://panel.example:8080/live/user/pass/4.m3u8",
		`#EXTINF:-1 tvg-id="" tvg-name="Quoted Group" tvg-logo="" group-title="Kids 'Zone'",Quoted Group`,
		"http://panel.example:8080/live/user/pass/5.m3u8",
		`#EXTINF:-1 tvg-id="" tvg-name="Empty Group" tvg-logo="" group-title="Undefined Category",Empty Group`,
		"http://panel.example:8080/live/user/pass/6.m3u8",
		`#EXTINF:-1 tvg-id="" tvg-name="Stream Unknown" tvg-logo="" group-title="Undefined Category",Stream Unknown`,
	}
	assert.Equal(t, want, lines)
	assert.Equal(t, 7, doc.Len())
}

func TestXtreamHandler_Translate_EscapeDisplayName(t *testing.T) {
	fetcher := panelFetcher(ok(`[]`), ok(`[{"stream_id":1,"name":"CN\"N"}]`))

	doc, err := NewXtreamHandler(fetcher).
		WithWriterOptions(m3u.WriterOptions{EscapeDisplayName: true}).
		Translate(context.Background(), TranslateRequest{PanelURL: "panel.example:8080", Username: "user", Password: "pass"})
	require.NoError(t, err)

	assert.Contains(t, doc.String(), `tvg-name="CN'N" tvg-logo="" group-title="Undefined Category",CN'N`)
}

func TestXtreamHandler_Translate_Deterministic(t *testing.T) {
	streams := `[{"stream_id":3,"name":"C"},{"stream_id":1,"name":"A"},{"stream_id":2,"name":"B"}]`

	first, err := translate(t, panelFetcher(ok(`[]`), ok(streams)), TranslateRequest{})
	require.NoError(t, err)
	second, err := translate(t, panelFetcher(ok(`[]`), ok(streams)), TranslateRequest{})
	require.NoError(t, err)

	assert.Equal(t, first.String(), second.String())
	assert.Equal(t, "C", first.Entries[0].Title)
	assert.Equal(t, "B", first.Entries[2].Title)
}

func TestXtreamHandler_Translate_CategoriesFailureDegrades(t *testing.T) {
	streams := ok(`[{"stream_id":"10","name":"CNN","category_id":"1"}]`)

	for name, categories := range map[string]httpclient.FetchResult{
		"timeout":      {Kind: httpclient.ResultTimeout, Message: "deadline"},
		"http error":   {Kind: httpclient.ResultHTTPError, Status: 500},
		"invalid json": ok(`not json`),
		"null":         ok(`null`),
		"object":       ok(`{}`),
	} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			doc, err := NewXtreamHandler(panelFetcher(categories, streams)).
				WithLogger(newBufferLogger(&buf)).
				Translate(context.Background(), TranslateRequest{PanelURL: "panel.example:8080", Username: "user", Password: "pass"})

			require.NoError(t, err)
			assert.Contains(t, doc.String(), `group-title="Undefined Category",CNN`)
			assert.Contains(t, buf.String(), "categories unavailable")
		})
	}
}

func TestXtreamHandler_Translate_StreamsErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		result     httpclient.FetchResult
		kind       models.Kind
		msg        string
		httpStatus int
	}{
		{"timeout", httpclient.FetchResult{Kind: httpclient.ResultTimeout}, models.KindUpstreamTimeout, models.MsgPanelTimeout, 504},
		{"unauthorized", httpclient.FetchResult{Kind: httpclient.ResultHTTPError, Status: 401}, models.KindPanelUnauthorized, models.MsgPanelUnauthorized, 401},
		{"forbidden", httpclient.FetchResult{Kind: httpclient.ResultHTTPError, Status: 403}, models.KindPanelForbidden, models.MsgPanelForbidden, 403},
		{"bad gateway", httpclient.FetchResult{Kind: httpclient.ResultHTTPError, Status: 502}, models.KindUpstreamHTTPError, "Xtream panel API returned HTTP error: 502.", 502},
		{"transport", httpclient.FetchResult{Kind: httpclient.ResultTransportError, Message: "refused"}, models.KindUpstreamUnreachable, "Error connecting to Xtream panel API: refused", 500},
		{"invalid json", ok(`<html>`), models.KindPanelResponseInvalid, models.MsgPanelInvalidJSON, 500},
		{"null", ok(`null`), models.KindNoStreamsFound, models.MsgNoStreamsFound, 404},
		{"object", ok(`{"user_info":{"auth":0}}`), models.KindNoStreamsFound, models.MsgNoStreamsFound, 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := translate(t, panelFetcher(ok(`[]`), tt.result), TranslateRequest{})
			require.Error(t, err)
			assert.Nil(t, doc)

			e := models.AsError(err)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.msg, e.Message)
			assert.Equal(t, tt.httpStatus, e.HTTPStatus())
		})
	}
}

func TestXtreamHandler_Translate_EmptyStreams(t *testing.T) {
	doc, err := translate(t, panelFetcher(ok(`[]`), ok(`[]`)), TranslateRequest{})
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U", doc.String())
}

func TestXtreamHandler_Translate_Concurrent(t *testing.T) {
	var inFlight, maxInFlight int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(100 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)

		switch r.URL.Query().Get("action") {
		case "get_live_categories":
			w.Write([]byte(`[{"category_id":"1","category_name":"News"}]`))
		default:
			w.Write([]byte(`[{"stream_id":"10","name":"CNN","category_id":"1"}]`))
		}
	}))
	defer server.Close()

	doc, err := NewXtreamHandler(httpclient.NewWithDefaults()).Translate(context.Background(), TranslateRequest{
		PanelURL: server.URL + "/",
		Username: "user",
		Password: "pass",
	})

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&maxInFlight))
	assert.True(t, strings.HasSuffix(doc.String(), server.URL+"/live/user/pass/10.ts"))
}

func TestXtreamHandler_Translate_UnauthorizedWithEncodedEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewXtreamHandler(httpclient.NewWithDefaults()).Translate(context.Background(), TranslateRequest{
		PanelURL: server.URL,
		Username: "user",
		Password: "wrong",
	})

	require.Error(t, err)
	e := models.AsError(err)
	assert.Equal(t, models.KindPanelUnauthorized, e.Kind)
	assert.Equal(t, http.StatusUnauthorized, e.HTTPStatus())
}

func TestXtreamHandler_Translate_RecordsMetrics(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	h := NewXtreamHandler(panelFetcher(ok(`[]`), ok(`[{"stream_id":1},{"stream_id":2}]`))).WithMetrics(m)

	_, err := h.Translate(context.Background(), TranslateRequest{PanelURL: "panel.example:8080", Username: "user", Password: "pass"})
	require.NoError(t, err)
	_, err = h.Translate(context.Background(), TranslateRequest{})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Translations.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Translations.WithLabelValues(string(models.KindMissingField))))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TranslatedChannels))
}

func TestNormalizeOutputType(t *testing.T) {
	assert.Equal(t, "ts", NormalizeOutputType(""))
	assert.Equal(t, "ts", NormalizeOutputType("  "))
	assert.Equal(t, "m3u8", NormalizeOutputType("M3U8"))
	assert.Equal(t, "ts", NormalizeOutputType("TS"))
}
