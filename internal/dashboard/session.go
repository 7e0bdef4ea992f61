package dashboard

import (
	"context"
	"sync"
	"time"

	"galaxy/internal/domain"
	"galaxy/internal/physics"
	"galaxy/internal/picker"
	"galaxy/internal/timeline"
)

// Session is one viewer's playback state: an animator, view filters and
// a pick selection over the model's shared timeline. Every state change
// publishes the recomposed frame to subscribers.
type Session struct {
	ID string

	model  *Model
	anim   *timeline.Animator
	player *timeline.Player
	cancel context.CancelFunc

	mu        sync.Mutex
	filters   domain.FilterSet
	selection *picker.Selection
	lastSeen  time.Time
	lookback  int

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan domain.DisplayFrame
}

func newSession(id string, m *Model, opts Options) *Session {
	s := &Session{
		ID:        id,
		model:     m,
		anim:      timeline.NewAnimator(0, opts.DurationSeconds),
		filters:   opts.Filters.Clone(),
		selection: picker.NewSelection(opts.PickRadius),
		lastSeen:  time.Now(),
		lookback:  opts.TrailLookback,
		subs:      make(map[int]chan domain.DisplayFrame),
	}
	s.anim.SetSpeed(opts.Speed)
	s.player = timeline.NewPlayer(s.anim, opts.TickInterval, func(timeline.State) {
		s.publish()
	})
	return s
}

func (s *Session) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	go s.player.Run(ctx)
}

func (s *Session) close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

// retarget points the animator at a timeline of n frames and jumps to the
// final frame, stopped.
func (s *Session) retarget(n int) {
	s.anim.Pause()
	s.anim.SetTotalFrames(n)
	s.anim.SetProgress(float64(n - 1))
	s.publish()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.subsMu.Lock()
	streaming := len(s.subs) > 0
	s.subsMu.Unlock()
	if streaming {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen.Before(cutoff)
}

// State returns the animator state.
func (s *Session) State() timeline.State { return s.anim.State() }

// Frame composes the display frame at the current progress.
func (s *Session) Frame() domain.DisplayFrame {
	s.mu.Lock()
	filters := s.filters.Clone()
	s.mu.Unlock()

	st := s.anim.State()
	df := s.model.Composer().At(st.Progress, filters)
	df.Playing = st.Playing
	return df
}

// Trails returns the recent paths ending at the current base frame.
func (s *Session) Trails() []physics.Trail {
	return s.model.Composer().Trails(s.anim.Progress(), s.lookback)
}

// Play starts playback; from the final frame it restarts at the beginning.
func (s *Session) Play() timeline.State { return s.control(s.anim.Play) }

// Pause stops playback in place.
func (s *Session) Pause() timeline.State { return s.control(s.anim.Pause) }

// Toggle flips between playing and stopped.
func (s *Session) Toggle() timeline.State { return s.control(s.anim.TogglePlay) }

// Scrub moves to progress. A manual scrub always stops playback.
func (s *Session) Scrub(progress float64) timeline.State {
	return s.control(func() timeline.State {
		s.anim.Pause()
		return s.anim.SetProgress(progress)
	})
}

// SetSpeed changes the playback multiplier; non-positive values are ignored.
func (s *Session) SetSpeed(speed float64) timeline.State {
	return s.control(func() timeline.State { return s.anim.SetSpeed(speed) })
}

func (s *Session) control(fn func() timeline.State) timeline.State {
	st := fn()
	s.touch()
	s.publish()
	return st
}

// Filters returns a copy of the active filters.
func (s *Session) Filters() domain.FilterSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters.Clone()
}

// UpdateFilters applies fn to the session's filters and republishes.
func (s *Session) UpdateFilters(fn func(*domain.FilterSet)) domain.FilterSet {
	s.mu.Lock()
	fn(&s.filters)
	out := s.filters.Clone()
	s.lastSeen = time.Now()
	s.mu.Unlock()

	s.publish()
	return out
}

// PickResult is the outcome of a hover or click.
type PickResult struct {
	Node    *domain.HydratedNode `json:"node,omitempty"`
	Hovered string               `json:"hovered,omitempty"`
	Pinned  string               `json:"pinned,omitempty"`
	Clicked bool                 `json:"clicked"`
}

// Pick hit-tests the screen point (px, py) against the current frame. A
// click pins the hit node, or clears the pin on a background click.
func (s *Session) Pick(px, py float64, tr picker.Transform, click bool) PickResult {
	nodes := s.Frame().Nodes

	s.mu.Lock()
	var (
		n  domain.HydratedNode
		ok bool
	)
	if click {
		n, ok = s.selection.Click(px, py, nodes, tr)
	} else {
		n, ok = s.selection.Hover(px, py, nodes, tr)
	}
	res := PickResult{Hovered: s.selection.Hovered, Pinned: s.selection.Pinned, Clicked: click}
	s.lastSeen = time.Now()
	s.mu.Unlock()

	if ok {
		res.Node = &n
	}
	if click {
		s.publish()
	}
	return res
}

// Pin selects ticker directly.
func (s *Session) Pin(ticker string) {
	s.mu.Lock()
	s.selection.Pin(ticker)
	s.mu.Unlock()
	s.publish()
}

// Selection returns the hovered and pinned tickers.
func (s *Session) Selection() picker.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.selection
}

// Subscribe creates a channel receiving every recomposed frame. The
// current frame is delivered first.
func (s *Session) Subscribe(bufSize int) (id int, ch <-chan domain.DisplayFrame) {
	c := make(chan domain.DisplayFrame, max(bufSize, 1))
	c <- s.Frame()

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id = s.nextSubID
	s.nextSubID++
	s.subs[id] = c
	return id, c
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Session) Unsubscribe(id int) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *Session) publish() {
	s.subsMu.Lock()
	empty := len(s.subs) == 0
	s.subsMu.Unlock()
	if empty {
		return
	}

	df := s.Frame()
	s.subsMu.Lock()
	for _, ch := range s.subs {
		select {
		case ch <- df:
		default:
			// Slow subscriber, drop frame.
		}
	}
	s.subsMu.Unlock()
}
