package compose

import (
	"math"

	"galaxy/internal/domain"
	"galaxy/internal/physics"
)

// Composer binds a hydrated timeline and anchor set so callers only supply
// progress and filters.
type Composer struct {
	timeline []domain.Frame
	anchors  domain.AnchorSet
	sectors  []string
}

// New creates a Composer. The timeline is shared, not copied.
func New(timeline []domain.Frame, anchors []string) *Composer {
	return &Composer{
		timeline: timeline,
		anchors:  domain.NewAnchorSet(anchors),
		sectors:  physics.Sectors(timeline),
	}
}

// At composes the display frame for progress.
func (c *Composer) At(progress float64, filters domain.FilterSet) domain.DisplayFrame {
	return Compose(c.timeline, progress, filters, c.anchors)
}

// Len returns the number of frames.
func (c *Composer) Len() int { return len(c.timeline) }

// Timeline returns the underlying frames; callers must not modify them.
func (c *Composer) Timeline() []domain.Frame { return c.timeline }

// Anchors returns the anchor set.
func (c *Composer) Anchors() domain.AnchorSet { return c.anchors }

// Sectors returns the sector ids present in the timeline.
func (c *Composer) Sectors() []string { return c.sectors }

// Dates returns the frame dates in order.
func (c *Composer) Dates() []string {
	out := make([]string, len(c.timeline))
	for i := range c.timeline {
		out[i] = c.timeline[i].Date
	}
	return out
}

// IndexFor returns the base frame index for progress.
func (c *Composer) IndexFor(progress float64) int {
	if len(c.timeline) == 0 {
		return 0
	}
	i := int(math.Floor(progress))
	return max(0, min(i, len(c.timeline)-1))
}

// Trails returns recent paths ending at the base frame for progress.
func (c *Composer) Trails(progress float64, lookback int) []physics.Trail {
	return physics.Trails(c.timeline, c.IndexFor(progress), lookback)
}

// Latest composes the final frame with no filters applied.
func (c *Composer) Latest() domain.DisplayFrame {
	return c.At(float64(len(c.timeline)-1), domain.DefaultFilters())
}
