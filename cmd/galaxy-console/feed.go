package main

import (
	"context"
	"sync"
	"time"

	"galaxy/internal/camera"
	"galaxy/internal/dashboard"
	"galaxy/internal/domain"
	"galaxy/internal/httpapi"
	"galaxy/internal/live"
	"galaxy/internal/timeline"
	"galaxy/pkg/galaxy"
)

// feed is where the console gets frames and sends playback controls.
type feed interface {
	Latest() (domain.DisplayFrame, timeline.State, bool)
	Filters() domain.FilterSet
	Fit(vp camera.Viewport) camera.CameraFit
	Toggle() error
	Scrub(progress float64) error
	SetSpeed(speed float64) error
	UpdateFilters(fn func(*domain.FilterSet)) error
	Status() string
}

// localFeed drives a session of an in-process model.
type localFeed struct {
	model *dashboard.Model
	sess  *dashboard.Session
}

func (f *localFeed) Latest() (domain.DisplayFrame, timeline.State, bool) {
	return f.sess.Frame(), f.sess.State(), true
}

func (f *localFeed) Filters() domain.FilterSet { return f.sess.Filters() }

func (f *localFeed) Fit(vp camera.Viewport) camera.CameraFit { return f.model.CameraFit(vp) }

func (f *localFeed) Toggle() error { f.sess.Toggle(); return nil }

func (f *localFeed) Scrub(progress float64) error { f.sess.Scrub(progress); return nil }

func (f *localFeed) SetSpeed(speed float64) error { f.sess.SetSpeed(speed); return nil }

func (f *localFeed) UpdateFilters(fn func(*domain.FilterSet)) error {
	f.sess.UpdateFilters(fn)
	return nil
}

func (f *localFeed) Status() string {
	snap := f.model.Snapshot()
	if snap.Error != "" {
		return snap.Status.String() + ": " + snap.Error
	}
	return snap.Status.String()
}

// remoteFeed mirrors a server session over gRPC and controls it through
// the HTTP API.
type remoteFeed struct {
	sess   *galaxy.Session
	mirror *live.Mirror
	addr   string

	mu      sync.Mutex
	filters domain.FilterSet
	fits    map[camera.Viewport]camera.CameraFit
	err     error
}

func (f *remoteFeed) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (f *remoteFeed) Latest() (domain.DisplayFrame, timeline.State, bool) {
	msg, ok := f.mirror.Latest()
	return msg.Frame, msg.State, ok
}

// Fit frames the first frame seen for each viewport, the way the server
// fits its latest frame once per load.
func (f *remoteFeed) Fit(vp camera.Viewport) camera.CameraFit {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fit, ok := f.fits[vp]; ok {
		return fit
	}
	msg, ok := f.mirror.Latest()
	fit := camera.Fit(msg.Frame.Nodes, vp, camera.BoundsFor(vp.W))
	if ok {
		f.fits[vp] = fit
	}
	return fit
}

func (f *remoteFeed) Filters() domain.FilterSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filters.Clone()
}

func (f *remoteFeed) record(err error) error {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	return err
}

func (f *remoteFeed) Toggle() error {
	ctx, cancel := f.ctx()
	defer cancel()
	_, err := f.sess.Toggle(ctx)
	return f.record(err)
}

func (f *remoteFeed) Scrub(progress float64) error {
	ctx, cancel := f.ctx()
	defer cancel()
	_, err := f.sess.Scrub(ctx, progress)
	return f.record(err)
}

func (f *remoteFeed) SetSpeed(speed float64) error {
	ctx, cancel := f.ctx()
	defer cancel()
	_, err := f.sess.SetSpeed(ctx, speed)
	return f.record(err)
}

// UpdateFilters applies fn to a local copy and sends the full result.
func (f *remoteFeed) UpdateFilters(fn func(*domain.FilterSet)) error {
	f.mu.Lock()
	fn(&f.filters)
	next := f.filters.Clone()
	f.mu.Unlock()

	sectors := next.Sectors()
	patch := httpapi.FilterPatch{
		MinEnergyPercent: &next.MinEnergyPercent,
		Sectors:          &sectors,
		ShowPositive:     &next.ShowPositive,
		ShowNeutral:      &next.ShowNeutral,
		ShowNegative:     &next.ShowNegative,
	}
	ctx, cancel := f.ctx()
	defer cancel()
	_, err := f.sess.UpdateFilters(ctx, patch)
	return f.record(err)
}

func (f *remoteFeed) Status() string {
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	received, stale := f.mirror.Counts()
	s := "remote " + f.addr + "  frames " + dashboard.FormatInt(received)
	if stale > 0 {
		s += "  stale " + dashboard.FormatInt(stale)
	}
	if err != nil {
		s += "  error: " + err.Error()
	}
	return s
}
