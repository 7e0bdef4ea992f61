package domain

import (
	"math"
	"sort"
)

// FilterSet is the declarative predicate set applied when composing a
// display frame.
//
//   - MinEnergyPercent hides nodes whose energy is below this percentage of
//     the frame's maximum energy (0 disables the check).
//   - VisibleSectors restricts nodes to the listed sectors; empty means all.
//   - ShowPositive/ShowNeutral/ShowNegative toggle sentiment classes.
//
// Anchor tickers bypass every predicate.
type FilterSet struct {
	MinEnergyPercent float64             `json:"minEnergyPercent" yaml:"min_energy_percent"`
	VisibleSectors   map[string]struct{} `json:"-" yaml:"-"`
	ShowPositive     bool                `json:"showPositive" yaml:"show_positive"`
	ShowNeutral      bool                `json:"showNeutral" yaml:"show_neutral"`
	ShowNegative     bool                `json:"showNegative" yaml:"show_negative"`
}

// DefaultFilters shows everything.
func DefaultFilters() FilterSet {
	return FilterSet{
		ShowPositive: true,
		ShowNeutral:  true,
		ShowNegative: true,
	}
}

// Clone returns a deep copy so the sector set can be modified independently.
func (f FilterSet) Clone() FilterSet {
	out := f
	if f.VisibleSectors != nil {
		out.VisibleSectors = make(map[string]struct{}, len(f.VisibleSectors))
		for s := range f.VisibleSectors {
			out.VisibleSectors[s] = struct{}{}
		}
	}
	return out
}

// SetMinEnergyPercent sets the energy threshold, clamped to [0, 100].
func (f *FilterSet) SetMinEnergyPercent(p float64) {
	switch {
	case p < 0 || math.IsNaN(p):
		p = 0
	case p > 100:
		p = 100
	}
	f.MinEnergyPercent = p
}

// ToggleSector adds sector to the visible set, or removes it if present.
// Removing the last sector leaves the set empty, which shows all sectors.
func (f *FilterSet) ToggleSector(sector string) {
	if f.VisibleSectors == nil {
		f.VisibleSectors = make(map[string]struct{})
	}
	if _, ok := f.VisibleSectors[sector]; ok {
		delete(f.VisibleSectors, sector)
		return
	}
	f.VisibleSectors[sector] = struct{}{}
}

// SetSectors replaces the visible set.
func (f *FilterSet) SetSectors(sectors []string) {
	f.VisibleSectors = make(map[string]struct{}, len(sectors))
	for _, s := range sectors {
		f.VisibleSectors[s] = struct{}{}
	}
}

// ClearSectors empties the visible set (show all).
func (f *FilterSet) ClearSectors() {
	f.VisibleSectors = nil
}

// Sectors returns the visible sectors in sorted order.
func (f FilterSet) Sectors() []string {
	out := make([]string, 0, len(f.VisibleSectors))
	for s := range f.VisibleSectors {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// SectorVisible reports whether sector passes the sector predicate.
func (f FilterSet) SectorVisible(sector string) bool {
	if len(f.VisibleSectors) == 0 {
		return true
	}
	_, ok := f.VisibleSectors[sector]
	return ok
}

// SentimentVisible reports whether the class of s is enabled.
func (f FilterSet) SentimentVisible(s float64) bool {
	switch Classify(s) {
	case SentimentPositive:
		return f.ShowPositive
	case SentimentNegative:
		return f.ShowNegative
	default:
		return f.ShowNeutral
	}
}

// Active reports whether any predicate would hide a node.
func (f FilterSet) Active() bool {
	return f.MinEnergyPercent > 0 || len(f.VisibleSectors) > 0 ||
		!f.ShowPositive || !f.ShowNeutral || !f.ShowNegative
}
