package main

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"galaxy/internal/dashboard"
	"galaxy/internal/domain"
	"galaxy/internal/picker"
	"galaxy/internal/timeline"
)

// refreshInterval is how often the view pulls the latest frame.
const refreshInterval = 50 * time.Millisecond

// pickRadius is the hit radius in scatter pixels (one cell wide).
const pickRadius = 2.0

type tickMsg time.Time

type syncErrMsg struct{ err error }

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type model struct {
	feed   feed
	logger *slog.Logger
	quit   func()

	view      domain.ViewKind
	frame     domain.DisplayFrame
	state     timeline.State
	haveFrame bool
	selection *picker.Selection
	pinned    *domain.HydratedNode
	err       error

	viewport      viewport.Model
	help          help.Model
	ready         bool
	width, height int
}

func initialModel(f feed, logger *slog.Logger, quit func()) model {
	return model{
		feed:      f,
		logger:    logger,
		quit:      quit,
		view:      domain.ViewScatter,
		selection: picker.NewSelection(pickRadius),
		help:      help.New(),
	}
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

// bodyHeight is the number of rows between the header and the detail and
// help lines.
func (m model) bodyHeight() int {
	return max(m.height-3, 1)
}

func (m model) transform() picker.Transform {
	h := m.bodyHeight()
	fit := m.feed.Fit(scatterViewport(m.width, h))
	return scatterTransform(fit, m.width, h)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if c, handled := m.handleKey(msg); handled {
			return m, c
		}

	case tea.MouseMsg:
		if m.view == domain.ViewScatter && m.haveFrame {
			m.handleMouse(msg)
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if !m.ready {
			m.viewport = viewport.New(m.width, m.bodyHeight())
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = m.bodyHeight()
		}
		m.refresh()
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tickCmd()

	case syncErrMsg:
		m.logger.Error("frame stream ended", "error", msg.err)
		return m, tea.Quit
	}

	if m.ready && m.view != domain.ViewScatter {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// refresh pulls the latest frame and re-resolves the pinned node in it.
func (m *model) refresh() {
	df, st, ok := m.feed.Latest()
	if !ok {
		return
	}
	m.frame, m.state, m.haveFrame = df, st, true

	m.pinned = nil
	if t := m.selection.Pinned; t != "" {
		for i := range df.Nodes {
			if df.Nodes[i].Ticker == t {
				m.pinned = &df.Nodes[i]
				break
			}
		}
	}

	if m.ready {
		switch m.view {
		case domain.ViewTable:
			m.viewport.SetContent(renderTable(df, m.width, m.selection.Pinned))
		case domain.ViewCustom:
			m.viewport.SetContent(renderSectors(df, m.width))
		}
	}
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	var err error
	switch {
	case key.Matches(msg, keys.Quit):
		m.quit()
		return tea.Quit, true
	case key.Matches(msg, keys.Play):
		err = m.feed.Toggle()
	case key.Matches(msg, keys.Back):
		err = m.feed.Scrub(math.Ceil(m.state.Progress) - 1)
	case key.Matches(msg, keys.Forward):
		err = m.feed.Scrub(math.Floor(m.state.Progress) + 1)
	case key.Matches(msg, keys.Start):
		err = m.feed.Scrub(0)
	case key.Matches(msg, keys.End):
		err = m.feed.Scrub(float64(m.state.TotalFrames - 1))
	case key.Matches(msg, keys.Faster):
		err = m.feed.SetSpeed(math.Min(m.state.Speed*2, 64))
	case key.Matches(msg, keys.Slower):
		err = m.feed.SetSpeed(math.Max(m.state.Speed/2, 1.0/16))
	case key.Matches(msg, keys.View):
		m.view = (m.view + 1) % (domain.ViewCustom + 1)
		m.viewport.GotoTop()
	case key.Matches(msg, keys.Energy):
		err = m.feed.UpdateFilters(func(f *domain.FilterSet) { f.SetMinEnergyPercent(f.MinEnergyPercent + 10) })
	case key.Matches(msg, keys.EnergyDown):
		err = m.feed.UpdateFilters(func(f *domain.FilterSet) { f.SetMinEnergyPercent(f.MinEnergyPercent - 10) })
	case key.Matches(msg, keys.Positive):
		err = m.feed.UpdateFilters(func(f *domain.FilterSet) { f.ShowPositive = !f.ShowPositive })
	case key.Matches(msg, keys.Neutral):
		err = m.feed.UpdateFilters(func(f *domain.FilterSet) { f.ShowNeutral = !f.ShowNeutral })
	case key.Matches(msg, keys.Negative):
		err = m.feed.UpdateFilters(func(f *domain.FilterSet) { f.ShowNegative = !f.ShowNegative })
	case key.Matches(msg, keys.Sector):
		if m.pinned == nil {
			return nil, true
		}
		s := m.pinned.Sector
		err = m.feed.UpdateFilters(func(f *domain.FilterSet) { f.ToggleSector(s) })
	case key.Matches(msg, keys.AllSectors):
		err = m.feed.UpdateFilters(func(f *domain.FilterSet) { f.ClearSectors() })
	case key.Matches(msg, keys.Unpin):
		m.selection.Clear()
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	default:
		return nil, false
	}
	if err != nil {
		m.logger.Warn("control failed", "key", msg.String(), "error", err)
	}
	m.err = err
	m.refresh()
	return nil, true
}

// handleMouse hovers on motion and pins on left click. Row 0 is the header.
func (m *model) handleMouse(msg tea.MouseMsg) {
	row := msg.Y - 1
	if row < 0 || row >= m.bodyHeight() {
		return
	}
	px, py := cellPixel(msg.X, row)
	tr := m.transform()
	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.selection.Click(px, py, m.frame.Nodes, tr)
		m.refresh()
	case msg.Action == tea.MouseActionMotion:
		m.selection.Hover(px, py, m.frame.Nodes, tr)
	}
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	body := ""
	switch {
	case !m.haveFrame:
		body = dimStyle.Render("  waiting for frames...")
	case m.view == domain.ViewScatter:
		body = renderScatter(m.frame, m.transform(), m.width, m.bodyHeight(), m.selection.Pinned)
	default:
		body = m.viewport.View()
	}
	if pad := m.bodyHeight() - strings.Count(body, "\n") - 1; pad > 0 {
		body += strings.Repeat("\n", pad)
	}

	return m.header() + "\n" + body + "\n" + m.detail() + "\n" + m.help.View(keys)
}

func (m model) header() string {
	st := m.state
	f := m.feed.Filters()
	left := fmt.Sprintf(" %s  x%.2g  %s  nodes %d  min %.0f%%  %s  [%s] ",
		dashboard.FormatPosition(m.frame, st.TotalFrames), st.Speed,
		m.view, len(m.frame.Nodes), f.MinEnergyPercent, sentimentToggles(f), m.feed.Status())
	if m.err != nil {
		left += " " + m.err.Error()
	}
	bar := dashboard.ProgressBar(st.Progress, st.TotalFrames, max(m.width-len([]rune(left))-2, 0))
	text := padOrTrunc(left+bar, m.width)

	style := headerStyle
	if !st.Playing {
		style = pausedStyle
	}
	return style.Render(text)
}

func (m model) detail() string {
	if m.pinned != nil {
		return renderDetail(m.pinned, m.width)
	}
	if h := m.selection.Hovered; h != "" {
		for i := range m.frame.Nodes {
			if m.frame.Nodes[i].Ticker == h {
				return footerStyle.Render(padOrTrunc(" "+h+"  "+m.frame.Nodes[i].Headline, m.width))
			}
		}
	}
	return renderDetail(nil, m.width)
}

func sentimentToggles(f domain.FilterSet) string {
	mark := func(on bool, s string) string {
		if on {
			return s
		}
		return "·"
	}
	return mark(f.ShowPositive, "▲") + mark(f.ShowNeutral, "•") + mark(f.ShowNegative, "▼")
}
