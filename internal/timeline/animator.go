// Package timeline drives the continuous playback cursor over the hydrated
// frames. The Animator owns the state; a Player (or any host loop) calls
// Advance once per animation tick.
package timeline

import (
	"math"
	"sync"
)

// DefaultDurationSeconds is the wall-clock length of a full playback at
// speed 1, independent of the number of frames.
const DefaultDurationSeconds = 60.0

// State is a point-in-time copy of the animator.
type State struct {
	Progress    float64 `json:"progress" msgpack:"progress"`
	Playing     bool    `json:"playing" msgpack:"playing"`
	Speed       float64 `json:"speed" msgpack:"speed"`
	TotalFrames int     `json:"totalFrames" msgpack:"totalFrames"`
}

// Animator is the Stopped ⇄ Playing state machine over a progress value in
// [0, totalFrames-1]. It is safe for concurrent use; the only writers are
// the tick loop and explicit control calls.
type Animator struct {
	mu       sync.Mutex
	total    int
	duration float64 // seconds
	speed    float64
	progress float64
	playing  bool
	started  chan struct{}
}

// NewAnimator creates a stopped animator at progress 0. A non-positive
// duration selects DefaultDurationSeconds.
func NewAnimator(totalFrames int, durationSeconds float64) *Animator {
	if durationSeconds <= 0 || math.IsNaN(durationSeconds) {
		durationSeconds = DefaultDurationSeconds
	}
	return &Animator{
		total:    max(totalFrames, 0),
		duration: durationSeconds,
		speed:    1,
		started:  make(chan struct{}, 1),
	}
}

// Started receives a value each time the animator goes from Stopped to
// Playing. Signals do not queue beyond one, so a receiver must re-check
// IsPlaying after waking.
func (a *Animator) Started() <-chan struct{} {
	return a.started
}

// end is the largest legal progress value. Caller holds mu.
func (a *Animator) end() float64 {
	return math.Max(0, float64(a.total-1))
}

// Progress returns the current cursor.
func (a *Animator) Progress() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.progress
}

// IsPlaying reports whether the animator is advancing.
func (a *Animator) IsPlaying() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playing
}

// State returns a copy of the current state.
func (a *Animator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state()
}

func (a *Animator) state() State {
	return State{Progress: a.progress, Playing: a.playing, Speed: a.speed, TotalFrames: a.total}
}

// TogglePlay flips between Stopped and Playing and returns the new state.
func (a *Animator) TogglePlay() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setPlaying(!a.playing)
	return a.state()
}

// Play starts playback. Starting from the end rewinds to 0 first.
func (a *Animator) Play() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setPlaying(true)
	return a.state()
}

// Pause stops playback, leaving progress where it is.
func (a *Animator) Pause() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setPlaying(false)
	return a.state()
}

func (a *Animator) setPlaying(on bool) {
	if on && !a.playing {
		if a.progress >= a.end() {
			a.progress = 0
		}
		select {
		case a.started <- struct{}{}:
		default:
		}
	}
	a.playing = on
}

// SetProgress moves the cursor, clamped to [0, totalFrames-1]. It does not
// change the play state.
func (a *Animator) SetProgress(v float64) State {
	a.mu.Lock()
	defer a.mu.Unlock()
	if math.IsNaN(v) {
		v = 0
	}
	a.progress = math.Min(math.Max(v, 0), a.end())
	return a.state()
}

// SetSpeed sets the playback multiplier. Non-positive values are ignored.
func (a *Animator) SetSpeed(m float64) State {
	a.mu.Lock()
	defer a.mu.Unlock()
	if m > 0 && !math.IsInf(m, 0) {
		a.speed = m
	}
	return a.state()
}

// SetTotalFrames retargets the animator after a (re)load, clamping progress.
func (a *Animator) SetTotalFrames(n int) State {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total = max(n, 0)
	a.progress = math.Min(a.progress, a.end())
	return a.state()
}

// Advance moves progress forward by deltaMs of wall-clock time. When the
// cursor reaches the last frame it is clamped there and playback stops.
// Advancing a stopped animator is a no-op.
func (a *Animator) Advance(deltaMs float64) State {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.playing {
		return a.state()
	}
	if deltaMs < 0 || math.IsNaN(deltaMs) {
		deltaMs = 0
	}

	perMs := float64(a.total) / (a.duration * 1000)
	next := a.progress + deltaMs*perMs*a.speed
	if end := a.end(); next >= end {
		a.progress = end
		a.playing = false
		return a.state()
	}
	a.progress = next
	return a.state()
}
