// Package dashboard owns the loaded timeline and the playback sessions that
// view it. It is the state behind the HTTP, websocket, gRPC and terminal
// front ends.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"galaxy/internal/camera"
	"galaxy/internal/compose"
	"galaxy/internal/config"
	"galaxy/internal/domain"
	"galaxy/internal/physics"
	"galaxy/internal/picker"
	"galaxy/internal/store"
	"galaxy/internal/timeline"
)

// Status is the load state of the timeline.
type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	for _, c := range []Status{StatusLoading, StatusReady, StatusEmpty, StatusFailed} {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", b)
}

// ErrNoSession is returned for unknown session ids.
var ErrNoSession = errors.New("session not found")

// Options are the defaults applied to new sessions.
type Options struct {
	DurationSeconds float64
	Speed           float64
	TickInterval    time.Duration
	TrailLookback   int
	Filters         domain.FilterSet
	Anchors         []string
	Viewport        camera.Viewport
	PickRadius      float64
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		DurationSeconds: timeline.DefaultDurationSeconds,
		Speed:           1,
		TickInterval:    timeline.DefaultTickInterval,
		TrailLookback:   physics.DefaultTrailLookback,
		Filters:         domain.DefaultFilters(),
		Anchors:         domain.DefaultAnchors,
		Viewport:        camera.Viewport{W: 1280, H: 800},
		PickRadius:      picker.DefaultRadius,
	}
}

// OptionsFrom maps the playback, filter, camera and picker sections of cfg.
func OptionsFrom(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.DurationSeconds = cfg.Playback.DurationSeconds
	opts.Speed = cfg.Playback.Speed
	opts.TickInterval = cfg.Playback.TickInterval
	if cfg.Playback.TrailLookback > 0 {
		opts.TrailLookback = cfg.Playback.TrailLookback
	}

	f := domain.DefaultFilters()
	f.SetMinEnergyPercent(cfg.Filters.MinEnergyPercent)
	if len(cfg.Filters.Sectors) > 0 {
		f.SetSectors(cfg.Filters.Sectors)
	}
	f.ShowPositive = cfg.Filters.ShowPositive
	f.ShowNeutral = cfg.Filters.ShowNeutral
	f.ShowNegative = cfg.Filters.ShowNegative
	opts.Filters = f

	if len(cfg.Anchors) > 0 {
		opts.Anchors = cfg.Anchors
	}
	if cfg.Camera.ViewportW > 0 && cfg.Camera.ViewportH > 0 {
		opts.Viewport = camera.Viewport{W: cfg.Camera.ViewportW, H: cfg.Camera.ViewportH}
	}
	opts.PickRadius = cfg.Picker.RadiusPx
	return opts
}

// Snapshot is a point-in-time view of the load state.
type Snapshot struct {
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Source   string        `json:"source"`
	Frames   int           `json:"frames"`
	Stats    physics.Stats `json:"stats"`
	LoadedAt time.Time     `json:"loadedAt"`
	Sessions int           `json:"sessions"`
}

// Model holds the hydrated timeline and the sessions viewing it. The
// timeline is replaced wholesale on reload and never modified in place.
type Model struct {
	src  store.Source
	opts Options
	log  *slog.Logger

	root   context.Context
	cancel context.CancelFunc

	loadMu sync.Mutex // serialises Load

	mu       sync.RWMutex
	status   Status
	err      error
	composer *compose.Composer
	stats    physics.Stats
	loadedAt time.Time
	fits     map[camera.Viewport]camera.CameraFit
	sessions map[string]*Session
}

// New creates a Model reading from src. Nothing is loaded until Load.
func New(src store.Source, opts Options, log *slog.Logger) *Model {
	root, cancel := context.WithCancel(context.Background())
	return &Model{
		src:      src,
		opts:     opts,
		log:      log,
		root:     root,
		cancel:   cancel,
		status:   StatusLoading,
		composer: compose.New(nil, opts.Anchors),
		fits:     make(map[camera.Viewport]camera.CameraFit),
		sessions: make(map[string]*Session),
	}
}

// Close stops every session's playback loop.
func (m *Model) Close() {
	m.cancel()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.close()
		delete(m.sessions, id)
	}
}

// Load fetches and hydrates the full sample set. On failure the previous
// timeline is discarded and the model reports StatusFailed until a later
// Load succeeds.
func (m *Model) Load(ctx context.Context) error {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	m.mu.Lock()
	m.status = StatusLoading
	m.err = nil
	m.mu.Unlock()

	start := time.Now()
	samples, err := m.src.Load(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrLoad) {
			err = &store.LoadError{Source: m.src.Name(), Reason: "load", Err: err}
		}
		m.log.Error("loading samples", "source", m.src.Name(), "error", err)
		m.install(nil, physics.Stats{}, StatusFailed, err)
		return err
	}

	frames, stats := physics.HydrateWithStats(samples)
	m.log.Info("timeline hydrated",
		"source", m.src.Name(),
		"frames", stats.Frames,
		"tickers", stats.Tickers,
		"scale", stats.Scale,
		"elapsed", time.Since(start),
	)
	if stats.Dropped > 0 {
		m.log.Debug("dropped malformed samples", "dropped", stats.Dropped, "input", stats.Input)
	}

	status := StatusReady
	if len(frames) == 0 {
		status = StatusEmpty
	}
	m.install(frames, stats, status, nil)
	return nil
}

func (m *Model) install(frames []domain.Frame, stats physics.Stats, status Status, err error) {
	c := compose.New(frames, m.opts.Anchors)

	m.mu.Lock()
	m.composer = c
	m.stats = stats
	m.status = status
	m.err = err
	m.loadedAt = time.Now()
	m.fits = make(map[camera.Viewport]camera.CameraFit)
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.retarget(c.Len())
	}
}

// Snapshot returns the current load state.
func (m *Model) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := Snapshot{
		Status:   m.status,
		Source:   m.src.Name(),
		Frames:   m.composer.Len(),
		Stats:    m.stats,
		LoadedAt: m.loadedAt,
		Sessions: len(m.sessions),
	}
	if m.err != nil {
		snap.Error = m.err.Error()
	}
	return snap
}

// Err returns the last load error, if the model is in StatusFailed.
func (m *Model) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Composer returns the composer over the current timeline. It is never nil;
// before a successful load it wraps an empty timeline.
func (m *Model) Composer() *compose.Composer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.composer
}

// Options returns the session defaults.
func (m *Model) Options() Options { return m.opts }

// CameraFit frames the unfiltered final frame in vp. Results are cached per
// viewport until the next load.
func (m *Model) CameraFit(vp camera.Viewport) camera.CameraFit {
	if vp.W <= 0 || vp.H <= 0 {
		vp = m.opts.Viewport
	}

	m.mu.RLock()
	fit, ok := m.fits[vp]
	c := m.composer
	m.mu.RUnlock()
	if ok {
		return fit
	}

	fit = camera.Fit(c.Latest().Nodes, vp, camera.BoundsFor(vp.W))

	m.mu.Lock()
	if m.composer == c {
		m.fits[vp] = fit
	}
	m.mu.Unlock()
	return fit
}

// Tickers returns every ticker present in the timeline, sorted.
func (m *Model) Tickers() []string {
	c := m.Composer()
	seen := make(map[string]struct{})
	for _, f := range c.Timeline() {
		for _, n := range f.Nodes {
			seen[n.Ticker] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// NewSession creates a session positioned at the last frame and starts its
// playback loop.
func (m *Model) NewSession() *Session {
	s := newSession(uuid.NewString(), m, m.opts)

	m.mu.Lock()
	m.sessions[s.ID] = s
	n := m.composer.Len()
	m.mu.Unlock()

	s.retarget(n)
	s.start(m.root)
	m.log.Info("session created", "id", s.ID)
	return s
}

// Session looks up a session by id and marks it as used.
func (m *Model) Session(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNoSession)
	}
	s.touch()
	return s, nil
}

// CloseSession stops and forgets a session.
func (m *Model) CloseSession(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrNoSession)
	}
	s.close()
	return nil
}

// Prune closes sessions idle for longer than maxIdle that have no stream
// subscribers. It returns how many were closed.
func (m *Model) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.idleSince(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.close()
		m.log.Info("session expired", "id", s.ID)
	}
	return len(stale)
}
