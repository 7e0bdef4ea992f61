package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"galaxy/internal/dashboard"
	"galaxy/internal/domain"
	"galaxy/internal/util"
)

type stubSource struct {
	samples []domain.RawSample
	err     error
}

func (s *stubSource) Load(context.Context) ([]domain.RawSample, error) { return s.samples, s.err }
func (s *stubSource) Name() string                                    { return "stub" }

func samples() []domain.RawSample {
	return []domain.RawSample{
		{Date: "2024-01-02", Ticker: "AAPL", X: 0, Y: 0, Sentiment: 0.5, Headline: "up"},
		{Date: "2024-01-02", Ticker: "XOM", X: 10, Y: 10, Sentiment: -0.5},
		{Date: "2024-01-03", Ticker: "AAPL", X: 2, Y: 1, Sentiment: 0.5},
		{Date: "2024-01-03", Ticker: "XOM", X: 8, Y: 9, Sentiment: -0.5},
	}
}

func newTestServer(t *testing.T, src *stubSource) (*httptest.Server, *dashboard.Model) {
	t.Helper()
	opts := dashboard.DefaultOptions()
	opts.Anchors = nil
	m := dashboard.New(src, opts, util.Discard())
	t.Cleanup(m.Close)
	_ = m.Load(context.Background())

	srv := NewServer(m, nil, Options{ReloadPerMinute: 60}, util.Discard())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, m
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestStatus(t *testing.T) {
	ts, _ := newTestServer(t, &stubSource{samples: samples()})

	resp := do(t, "GET", ts.URL+"/api/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, 2.0, body["frames"])
	assert.Equal(t, 60.0, body["durationSeconds"])
}

func TestStatelessFrame(t *testing.T) {
	ts, _ := newTestServer(t, &stubSource{samples: samples()})

	resp := do(t, "GET", ts.URL+"/api/frame?progress=0&negative=false", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	df := decode[domain.DisplayFrame](t, resp)
	assert.Equal(t, "2024-01-02", df.DateLabel)
	require.Len(t, df.Nodes, 1)
	assert.Equal(t, "AAPL", df.Nodes[0].Ticker)

	resp = do(t, "GET", ts.URL+"/api/frame?progress=0&format=msgpack", nil)
	assert.Equal(t, "application/msgpack", resp.Header.Get("Content-Type"))
	var packed domain.DisplayFrame
	require.NoError(t, msgpack.NewDecoder(resp.Body).Decode(&packed))
	assert.Len(t, packed.Nodes, 2)
}

func TestFailedLoadReturns503(t *testing.T) {
	src := &stubSource{err: errors.New("connection refused")}
	ts, _ := newTestServer(t, src)

	resp := do(t, "GET", ts.URL+"/api/frame", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	e := decode[ErrorResponse](t, resp)
	assert.Contains(t, e.Error, "connection refused")
	assert.Equal(t, "/api/reload", e.Retry)

	src.err = nil
	src.samples = samples()
	resp = do(t, "POST", ts.URL+"/api/reload", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, "GET", ts.URL+"/api/frame", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReloadRateLimited(t *testing.T) {
	ts, _ := newTestServer(t, &stubSource{samples: samples()})

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, do(t, "POST", ts.URL+"/api/reload", nil).StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestSessionLifecycle(t *testing.T) {
	ts, _ := newTestServer(t, &stubSource{samples: samples()})

	resp := do(t, "POST", ts.URL+"/api/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sess := decode[SessionResponse](t, resp)
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, 1.0, sess.State.Progress)
	assert.False(t, sess.State.Playing)
	base := ts.URL + "/api/sessions/" + sess.ID

	resp = do(t, "POST", base+"/play", nil)
	st := decode[map[string]any](t, resp)
	assert.Equal(t, true, st["playing"])

	resp = do(t, "PUT", base+"/progress", ProgressRequest{Progress: 0.5})
	st = decode[map[string]any](t, resp)
	assert.Equal(t, false, st["playing"], "scrub stops playback")
	assert.Equal(t, 0.5, st["progress"])

	resp = do(t, "PUT", base+"/speed", SpeedRequest{Speed: 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	off := false
	resp = do(t, "PUT", base+"/filters", FilterPatch{ShowPositive: &off})
	f := decode[FiltersJSON](t, resp)
	assert.False(t, f.ShowPositive)

	resp = do(t, "GET", base+"/frame", nil)
	df := decode[domain.DisplayFrame](t, resp)
	for _, n := range df.Nodes {
		assert.Negative(t, n.Sentiment)
	}

	resp = do(t, "GET", base+"/trails", nil)
	tr := decode[TrailsResponse](t, resp)
	assert.Equal(t, "2024-01-02", tr.Date)

	resp = do(t, "DELETE", base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, "GET", base+"/frame", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionPick(t *testing.T) {
	ts, _ := newTestServer(t, &stubSource{samples: samples()})
	sess := decode[SessionResponse](t, do(t, "POST", ts.URL+"/api/sessions", nil))
	base := ts.URL + "/api/sessions/" + sess.ID

	df := decode[domain.DisplayFrame](t, do(t, "GET", base+"/frame", nil))
	require.NotEmpty(t, df.Nodes)
	target := df.Nodes[0]

	req := PickRequest{X: 50, Y: 50, Click: true, CenterX: target.X, CenterY: target.Y, ViewportW: 100, ViewportH: 100}
	res := decode[dashboard.PickResult](t, do(t, "POST", base+"/pick", req))
	assert.Equal(t, target.Ticker, res.Pinned)
	require.NotNil(t, res.Node)
}

func TestCatalogEndpoints(t *testing.T) {
	ts, _ := newTestServer(t, &stubSource{samples: samples()})

	dates := decode[[]string](t, do(t, "GET", ts.URL+"/api/dates", nil))
	assert.Equal(t, []string{"2024-01-02", "2024-01-03"}, dates)

	secs := decode[[]SectorJSON](t, do(t, "GET", ts.URL+"/api/sectors", nil))
	assert.NotEmpty(t, secs)

	found := decode[[]string](t, do(t, "GET", ts.URL+"/api/tickers?q=a", nil))
	assert.Equal(t, []string{"AAPL"}, found)

	tk := decode[TickerResponse](t, do(t, "GET", ts.URL+"/api/tickers/xom", nil))
	assert.Equal(t, "XOM", tk.Ticker)
	assert.Len(t, tk.History, 2)
	require.NotNil(t, tk.Node)

	resp := do(t, "GET", ts.URL+"/api/tickers/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, "GET", ts.URL+"/api/camera?w=1920&h=1080", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWatchlist(t *testing.T) {
	ts, _ := newTestServer(t, &stubSource{samples: samples()})

	assert.Equal(t, http.StatusNoContent, do(t, "PUT", ts.URL+"/api/watchlist/aapl", nil).StatusCode)
	wl := decode[WatchlistResponse](t, do(t, "GET", ts.URL+"/api/watchlist", nil))
	assert.Equal(t, []string{"AAPL"}, wl.Symbols)

	assert.Equal(t, http.StatusNoContent, do(t, "DELETE", ts.URL+"/api/watchlist/AAPL", nil).StatusCode)
	wl = decode[WatchlistResponse](t, do(t, "GET", ts.URL+"/api/watchlist", nil))
	assert.Empty(t, wl.Symbols)
}

func TestStream(t *testing.T) {
	ts, m := newTestServer(t, &stubSource{samples: samples()})
	sess := m.NewSession()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/" + sess.ID + "/stream"
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	typ, data, err := c.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)
	var df domain.DisplayFrame
	require.NoError(t, json.Unmarshal(data, &df))
	assert.Equal(t, "2024-01-02", df.DateLabel)

	sess.Scrub(0)
	for {
		_, data, err = c.Read(ctx)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &df))
		if df.Progress == 0 {
			break
		}
	}
	assert.Equal(t, 0, df.Index)
}
