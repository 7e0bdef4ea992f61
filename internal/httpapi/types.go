// Package httpapi serves the galaxy timeline over HTTP: stateless frame
// composition, per-client playback sessions, a websocket frame stream and
// the watchlist.
package httpapi

import (
	"galaxy/internal/dashboard"
	"galaxy/internal/domain"
	"galaxy/internal/physics"
	"galaxy/internal/timeline"
)

// FiltersJSON is the wire form of a domain.FilterSet.
type FiltersJSON struct {
	MinEnergyPercent float64  `json:"minEnergyPercent"`
	Sectors          []string `json:"sectors"`
	ShowPositive     bool     `json:"showPositive"`
	ShowNeutral      bool     `json:"showNeutral"`
	ShowNegative     bool     `json:"showNegative"`
}

func filtersJSON(f domain.FilterSet) FiltersJSON {
	return FiltersJSON{
		MinEnergyPercent: f.MinEnergyPercent,
		Sectors:          f.Sectors(),
		ShowPositive:     f.ShowPositive,
		ShowNeutral:      f.ShowNeutral,
		ShowNegative:     f.ShowNegative,
	}
}

// FilterPatch updates a session's filters. Nil fields are left unchanged.
// ToggleSector and ClearSectors apply after Sectors.
type FilterPatch struct {
	MinEnergyPercent *float64  `json:"minEnergyPercent,omitempty"`
	Sectors          *[]string `json:"sectors,omitempty"`
	ToggleSector     string    `json:"toggleSector,omitempty"`
	ClearSectors     bool      `json:"clearSectors,omitempty"`
	ShowPositive     *bool     `json:"showPositive,omitempty"`
	ShowNeutral      *bool     `json:"showNeutral,omitempty"`
	ShowNegative     *bool     `json:"showNegative,omitempty"`
}

func (p FilterPatch) apply(f *domain.FilterSet) {
	if p.MinEnergyPercent != nil {
		f.SetMinEnergyPercent(*p.MinEnergyPercent)
	}
	if p.Sectors != nil {
		f.SetSectors(*p.Sectors)
	}
	if p.ToggleSector != "" {
		f.ToggleSector(p.ToggleSector)
	}
	if p.ClearSectors {
		f.ClearSectors()
	}
	if p.ShowPositive != nil {
		f.ShowPositive = *p.ShowPositive
	}
	if p.ShowNeutral != nil {
		f.ShowNeutral = *p.ShowNeutral
	}
	if p.ShowNegative != nil {
		f.ShowNegative = *p.ShowNegative
	}
}

// SessionResponse describes a playback session.
type SessionResponse struct {
	ID      string         `json:"id"`
	State   timeline.State `json:"state"`
	Filters FiltersJSON    `json:"filters"`
}

// ProgressRequest scrubs a session.
type ProgressRequest struct {
	Progress float64 `json:"progress"`
}

// SpeedRequest sets a session's playback multiplier.
type SpeedRequest struct {
	Speed float64 `json:"speed"`
}

// PickRequest hit-tests a pointer position. The view fields describe the
// client's current camera.
type PickRequest struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Click     bool    `json:"click"`
	Zoom      float64 `json:"zoom"`
	CenterX   float64 `json:"centerX"`
	CenterY   float64 `json:"centerY"`
	ViewportW float64 `json:"viewportW"`
	ViewportH float64 `json:"viewportH"`
}

// StatusResponse is the load status plus the session defaults clients need.
type StatusResponse struct {
	dashboard.Snapshot
	DurationSeconds float64 `json:"durationSeconds"`
}

// ErrorResponse is the body of every non-2xx reply. Retry names the action
// that may resolve a load failure.
type ErrorResponse struct {
	Error string `json:"error"`
	Retry string `json:"retry,omitempty"`
}

// SectorJSON is one entry of the sector list.
type SectorJSON struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// TrailsResponse wraps the trails ending at a frame.
type TrailsResponse struct {
	Date   string          `json:"date"`
	Trails []physics.Trail `json:"trails"`
}

// TickerResponse is a ticker's state at a progress plus its full history.
type TickerResponse struct {
	Ticker  string                 `json:"ticker"`
	Sector  string                 `json:"sector"`
	Node    *domain.HydratedNode   `json:"node,omitempty"`
	History []physics.HistoryPoint `json:"history"`
}

// WatchlistResponse lists watched symbols.
type WatchlistResponse struct {
	Symbols []string `json:"symbols"`
}
