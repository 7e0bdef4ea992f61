package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"galaxy/internal/camera"
	"galaxy/internal/compose"
	"galaxy/internal/config"
	"galaxy/internal/domain"
	"galaxy/internal/picker"
	"galaxy/internal/store"
	"galaxy/internal/util"
)

type fakeSource struct {
	mu      sync.Mutex
	samples []domain.RawSample
	err     error
	calls   int
}

func (f *fakeSource) Load(context.Context) ([]domain.RawSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.samples, f.err
}

func (f *fakeSource) Name() string { return "fake" }

func history() []domain.RawSample {
	return []domain.RawSample{
		{Date: "2024-01-02", Ticker: "AAPL", X: 0, Y: 0, Sentiment: 0.5},
		{Date: "2024-01-02", Ticker: "XOM", X: 10, Y: 10, Sentiment: -0.5},
		{Date: "2024-01-03", Ticker: "AAPL", X: 1, Y: 1, Sentiment: 0.5},
		{Date: "2024-01-03", Ticker: "XOM", X: 9, Y: 9, Sentiment: -0.5},
		{Date: "2024-01-04", Ticker: "AAPL", X: 2, Y: 1, Sentiment: 0.5},
		{Date: "2024-01-04", Ticker: "XOM", X: 8, Y: 10, Sentiment: -0.5},
		{Date: "2024-01-04", Ticker: "BAD", Malformed: true},
	}
}

func newModel(t *testing.T, src store.Source) *Model {
	t.Helper()
	opts := DefaultOptions()
	opts.Anchors = nil
	m := New(src, opts, util.Discard())
	t.Cleanup(m.Close)
	return m
}

func TestLoadReady(t *testing.T) {
	m := newModel(t, &fakeSource{samples: history()})
	assert.Equal(t, StatusLoading, m.Snapshot().Status)

	require.NoError(t, m.Load(context.Background()))
	snap := m.Snapshot()
	assert.Equal(t, StatusReady, snap.Status)
	assert.Equal(t, 3, snap.Frames)
	assert.Equal(t, 1, snap.Stats.Dropped)
	assert.Equal(t, []string{"AAPL", "XOM"}, m.Tickers())
}

func TestLoadFailureLeavesTimelineAbsent(t *testing.T) {
	src := &fakeSource{samples: history()}
	m := newModel(t, src)
	require.NoError(t, m.Load(context.Background()))

	src.err = &store.LoadError{Source: "fake", Reason: "fetch", Err: errors.New("boom")}
	err := m.Load(context.Background())
	require.ErrorIs(t, err, store.ErrLoad)

	snap := m.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Zero(t, snap.Frames, "failed load must not keep a partial timeline")
	assert.Contains(t, snap.Error, "boom")
	assert.Equal(t, compose.InitializingLabel, m.Composer().Latest().DateLabel)

	// Plain errors are wrapped so callers can still match ErrLoad.
	src.err = errors.New("plain")
	assert.ErrorIs(t, m.Load(context.Background()), store.ErrLoad)

	// Manual retry recovers.
	src.err = nil
	require.NoError(t, m.Load(context.Background()))
	assert.Equal(t, StatusReady, m.Snapshot().Status)
}

func TestLoadEmpty(t *testing.T) {
	m := newModel(t, &fakeSource{samples: []domain.RawSample{}})
	require.NoError(t, m.Load(context.Background()))
	assert.Equal(t, StatusEmpty, m.Snapshot().Status)

	s := m.NewSession()
	assert.Equal(t, compose.InitializingLabel, s.Frame().DateLabel)
}

func TestSessionStartsAtLastFrame(t *testing.T) {
	m := newModel(t, &fakeSource{samples: history()})
	require.NoError(t, m.Load(context.Background()))

	s := m.NewSession()
	st := s.State()
	assert.Equal(t, 2.0, st.Progress)
	assert.False(t, st.Playing)
	assert.Equal(t, "2024-01-03", s.Frame().DateLabel, "label is the base frame just before the end")

	got, err := m.Session(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Session("nope")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionReloadRetargets(t *testing.T) {
	src := &fakeSource{}
	m := newModel(t, src)
	s := m.NewSession()
	assert.Equal(t, 0, s.State().TotalFrames)

	src.samples = history()
	require.NoError(t, m.Load(context.Background()))
	assert.Equal(t, 3, s.State().TotalFrames)
	assert.Equal(t, 2.0, s.State().Progress)
}

func TestScrubStopsPlayback(t *testing.T) {
	m := newModel(t, &fakeSource{samples: history()})
	require.NoError(t, m.Load(context.Background()))
	s := m.NewSession()

	st := s.Play()
	assert.True(t, st.Playing)
	assert.Zero(t, st.Progress, "play from the end restarts")

	st = s.Scrub(1.25)
	assert.False(t, st.Playing)
	assert.Equal(t, 1.25, st.Progress)

	st = s.SetSpeed(3)
	assert.Equal(t, 3.0, st.Speed)
	st = s.Toggle()
	assert.True(t, st.Playing)
	st = s.Pause()
	assert.False(t, st.Playing)
}

func TestFiltersAndStream(t *testing.T) {
	m := newModel(t, &fakeSource{samples: history()})
	require.NoError(t, m.Load(context.Background()))
	s := m.NewSession()

	id, ch := s.Subscribe(8)
	first := <-ch
	assert.Len(t, first.Nodes, 2)

	s.UpdateFilters(func(f *domain.FilterSet) { f.ShowNegative = false })
	select {
	case df := <-ch:
		require.Len(t, df.Nodes, 1)
		assert.Equal(t, "AAPL", df.Nodes[0].Ticker)
	case <-time.After(time.Second):
		t.Fatal("no frame after filter change")
	}
	assert.False(t, s.Filters().ShowNegative)

	s.Unsubscribe(id)
	_, open := <-ch
	assert.False(t, open)
}

func TestPick(t *testing.T) {
	m := newModel(t, &fakeSource{samples: history()})
	require.NoError(t, m.Load(context.Background()))
	s := m.NewSession()
	s.Scrub(0)

	df := s.Frame()
	require.NotEmpty(t, df.Nodes)
	target := df.Nodes[0]
	tr := picker.Transform{Zoom: 0, CenterX: target.X, CenterY: target.Y, ViewportW: 100, ViewportH: 100}

	res := s.Pick(50, 50, tr, false)
	require.NotNil(t, res.Node)
	assert.Equal(t, target.Ticker, res.Hovered)
	assert.Empty(t, res.Pinned)

	res = s.Pick(50, 50, tr, true)
	assert.Equal(t, target.Ticker, res.Pinned)
	assert.Equal(t, target.Ticker, s.Selection().Pinned)

	// Zoomed in, the corner is 70px from the node: a background click.
	tr.Zoom = 10
	res = s.Pick(0, 0, tr, true)
	assert.Nil(t, res.Node)
	assert.Empty(t, res.Pinned)
}

func TestCameraFitCached(t *testing.T) {
	m := newModel(t, &fakeSource{samples: history()})
	require.NoError(t, m.Load(context.Background()))

	vp := camera.Viewport{W: 1000, H: 800}
	fit := m.CameraFit(vp)
	assert.Equal(t, fit, m.CameraFit(vp))
	assert.Len(t, m.fits, 1)

	// Zero viewport falls back to the default.
	assert.Equal(t, m.CameraFit(m.Options().Viewport), m.CameraFit(camera.Viewport{}))
}

func TestPrune(t *testing.T) {
	m := newModel(t, &fakeSource{samples: history()})
	a := m.NewSession()
	b := m.NewSession()
	_, _ = b.Subscribe(1)

	a.mu.Lock()
	a.lastSeen = time.Now().Add(-time.Hour)
	a.mu.Unlock()
	b.mu.Lock()
	b.lastSeen = time.Now().Add(-time.Hour)
	b.mu.Unlock()

	assert.Equal(t, 1, m.Prune(time.Minute))
	_, err := m.Session(a.ID)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = m.Session(b.ID)
	assert.NoError(t, err, "streaming sessions are kept")

	assert.NoError(t, m.CloseSession(b.ID))
	assert.ErrorIs(t, m.CloseSession(b.ID), ErrNoSession)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1,234,567", FormatInt(1234567))
	assert.Equal(t, "-1,000", FormatInt(-1000))
	assert.Equal(t, "12.5", FormatEnergy(12.46))
	assert.Equal(t, "12.3K", FormatEnergy(12300))
	assert.Equal(t, "+0.42", FormatSentiment(0.42))
	assert.Equal(t, "▼", SentimentGlyph(-0.3))
	assert.Equal(t, "•", SentimentGlyph(0.1))
	assert.Equal(t, "2024-01-03  2/3", FormatPosition(domain.DisplayFrame{DateLabel: "2024-01-03", Index: 1}, 3))
	assert.Equal(t, "━━━━━─────", ProgressBar(1, 3, 10))
}

func TestOptionsFrom(t *testing.T) {
	cfg := config.Defaults()
	cfg.Playback.DurationSeconds = 30
	cfg.Filters.ShowNeutral = false
	cfg.Filters.Sectors = []string{"Energy"}
	cfg.Anchors = []string{"SPY"}

	opts := OptionsFrom(cfg)
	assert.Equal(t, 30.0, opts.DurationSeconds)
	assert.False(t, opts.Filters.ShowNeutral)
	assert.Equal(t, []string{"Energy"}, opts.Filters.Sectors())
	assert.Equal(t, []string{"SPY"}, opts.Anchors)
	assert.Equal(t, camera.Viewport{W: 1280, H: 800}, opts.Viewport)
	assert.Equal(t, 20.0, opts.PickRadius)
}

func TestStatusText(t *testing.T) {
	for _, s := range []Status{StatusLoading, StatusReady, StatusEmpty, StatusFailed} {
		b, err := s.MarshalText()
		require.NoError(t, err)
		var got Status
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, s, got)
	}
	var s Status
	assert.Error(t, s.UnmarshalText([]byte("bogus")))
}
