package timeline

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultTickInterval approximates a 60 Hz animation frame.
const DefaultTickInterval = 16 * time.Millisecond

// Player is the scheduler loop for an Animator. While the animator is
// playing, a ticker advances it by the measured wall-clock delta and
// reports the new state to OnTick. While paused no ticker runs; the loop
// waits for the animator's Started signal.
type Player struct {
	anim     *Animator
	interval time.Duration
	onTick   func(State)

	running bool
	last    time.Time
	armed   atomic.Int64 // ticker starts, for tests
}

// NewPlayer creates a Player. A non-positive interval selects
// DefaultTickInterval; onTick may be nil.
func NewPlayer(anim *Animator, interval time.Duration, onTick func(State)) *Player {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Player{anim: anim, interval: interval, onTick: onTick}
}

// Run drives the animator until ctx is cancelled.
func (p *Player) Run(ctx context.Context) error {
	for {
		if !p.anim.IsPlaying() {
			p.running = false
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-p.anim.Started():
			}
			continue
		}
		if err := p.play(ctx); err != nil {
			return err
		}
	}
}

// play ticks until playback stops or ctx is cancelled.
func (p *Player) play(ctx context.Context) error {
	p.armed.Add(1)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if st, ok := p.Step(time.Now()); !ok || !st.Playing {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if st, ok := p.Step(now); !ok || !st.Playing {
				return nil
			}
		}
	}
}

// Step performs one tick at time now. The first tick after playback
// (re)starts uses a zero delta so time spent paused is not replayed.
// It reports whether the animator advanced.
func (p *Player) Step(now time.Time) (State, bool) {
	if !p.anim.IsPlaying() {
		p.running = false
		return p.anim.State(), false
	}

	var deltaMs float64
	if p.running {
		deltaMs = float64(now.Sub(p.last)) / float64(time.Millisecond)
	}
	p.last = now
	p.running = true

	st := p.anim.Advance(deltaMs)
	if !st.Playing {
		p.running = false
	}
	if p.onTick != nil {
		p.onTick(st)
	}
	return st, true
}
