package main

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"galaxy/internal/camera"
	"galaxy/internal/dashboard"
	"galaxy/internal/domain"
	"galaxy/internal/picker"
	"galaxy/internal/sector"
)

var (
	positiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	negativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	neutralStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	hotStyle      = lipgloss.NewStyle().Bold(true)
	pinnedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214"))
	sectorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	colHeadStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	pausedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3"))
)

// Terminal cells are roughly twice as tall as wide; the scatter treats each
// row as two vertical pixels so the world keeps its aspect ratio.
const cellAspect = 2

// scatterViewport is the pixel viewport of a w x h cell area.
func scatterViewport(w, h int) camera.Viewport {
	return camera.Viewport{W: float64(w), H: float64(h * cellAspect)}
}

// scatterTransform maps world coordinates into a w x h cell area.
func scatterTransform(fit camera.CameraFit, w, h int) picker.Transform {
	vp := scatterViewport(w, h)
	return picker.Transform{
		Zoom:      fit.Zoom,
		CenterX:   fit.CenterX,
		CenterY:   fit.CenterY,
		ViewportW: vp.W,
		ViewportH: vp.H,
	}
}

// cellPixel is the pixel at the centre of cell (col, row).
func cellPixel(col, row int) (float64, float64) {
	return float64(col) + 0.5, float64(row*cellAspect) + 1
}

func sentimentStyle(s float64) lipgloss.Style {
	switch domain.Classify(s) {
	case domain.SentimentPositive:
		return positiveStyle
	case domain.SentimentNegative:
		return negativeStyle
	default:
		return neutralStyle
	}
}

type cell struct {
	r     rune
	style *lipgloss.Style
}

// renderScatter draws nodes as sentiment glyphs and sector centroids as
// short labels. The pinned ticker is labelled in place.
func renderScatter(df domain.DisplayFrame, tr picker.Transform, w, h int, pinned string) string {
	if w <= 0 || h <= 0 {
		return ""
	}
	grid := make([][]cell, h)
	for i := range grid {
		grid[i] = make([]cell, w)
		for j := range grid[i] {
			grid[i][j] = cell{r: ' '}
		}
	}
	put := func(col, row int, text string, style *lipgloss.Style) {
		if row < 0 || row >= h {
			return
		}
		for i, r := range []rune(text) {
			c := col + i
			if c >= 0 && c < w {
				grid[row][c] = cell{r: r, style: style}
			}
		}
	}
	toCell := func(x, y float64) (int, int) {
		sx, sy := tr.WorldToScreen(x, y)
		return int(math.Floor(sx)), int(math.Floor(sy / cellAspect))
	}

	for _, s := range df.Sectors {
		col, row := toCell(s.X, s.Y)
		label := s.Sector
		if len(label) > 4 {
			label = label[:4]
		}
		put(col, row, label, &sectorStyle)
	}

	maxEnergy := 1.0
	for _, n := range df.Nodes {
		maxEnergy = math.Max(maxEnergy, n.Energy)
	}
	var pinnedNode *domain.HydratedNode
	for i, n := range df.Nodes {
		col, row := toCell(n.X, n.Y)
		style := sentimentStyle(n.Sentiment)
		if n.Energy >= maxEnergy/2 {
			style = style.Inherit(hotStyle)
		}
		put(col, row, dashboard.SentimentGlyph(n.Sentiment), &style)
		if n.Ticker == pinned {
			pinnedNode = &df.Nodes[i]
		}
	}
	if pinnedNode != nil {
		col, row := toCell(pinnedNode.X, pinnedNode.Y)
		put(col+1, row, " "+pinnedNode.Ticker+" ", &pinnedStyle)
	}

	var b strings.Builder
	for i, line := range grid {
		writeCells(&b, line)
		if i < len(grid)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// writeCells renders a row, grouping runs that share a style.
func writeCells(b *strings.Builder, line []cell) {
	for i := 0; i < len(line); {
		j := i
		var run strings.Builder
		for j < len(line) && line[j].style == line[i].style {
			run.WriteRune(line[j].r)
			j++
		}
		if line[i].style == nil {
			b.WriteString(run.String())
		} else {
			b.WriteString(line[i].style.Render(run.String()))
		}
		i = j
	}
}

// renderTable lists nodes by descending energy.
func renderTable(df domain.DisplayFrame, width int, pinned string) string {
	nodes := make([]domain.HydratedNode, len(df.Nodes))
	copy(nodes, df.Nodes)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Energy > nodes[j].Energy })

	var b strings.Builder
	b.WriteString(colHeadStyle.Render(fmt.Sprintf("  %-3s %-7s %-15s %8s %7s %8s %8s  %s",
		"#", "Ticker", "Sector", "Energy", "Sent", "VX", "VY", "Headline")))
	b.WriteByte('\n')
	if len(nodes) == 0 {
		b.WriteString(dimStyle.Render("  (no matching tickers)"))
		b.WriteByte('\n')
		return b.String()
	}

	headW := max(width-68, 10)
	for i, n := range nodes {
		ticker := fmt.Sprintf("%-7s", n.Ticker)
		if n.Ticker == pinned {
			ticker = pinnedStyle.Render(ticker)
		}
		sent := sentimentStyle(n.Sentiment).Render(fmt.Sprintf("%s%6s", dashboard.SentimentGlyph(n.Sentiment), dashboard.FormatSentiment(n.Sentiment)))
		fmt.Fprintf(&b, "  %-3d %s %-15s %8s %s %8.2f %8.2f  %s\n",
			i+1, ticker, truncate(sector.Label(n.Sector), 15),
			dashboard.FormatEnergy(n.Energy), sent, n.VX, n.VY,
			dimStyle.Render(truncate(n.Headline, headW)))
	}
	return b.String()
}

// renderSectors shows the displayed sector aggregates with energy bars.
func renderSectors(df domain.DisplayFrame, width int) string {
	var b strings.Builder
	b.WriteString(colHeadStyle.Render(fmt.Sprintf("  %-16s %6s %9s %9s %9s  %s", "Sector", "Count", "Energy", "X", "Y", "")))
	b.WriteByte('\n')
	if len(df.Sectors) == 0 {
		b.WriteString(dimStyle.Render("  (no sectors)"))
		b.WriteByte('\n')
		return b.String()
	}

	maxE := 1e-6
	for _, s := range df.Sectors {
		maxE = math.Max(maxE, s.Energy)
	}
	barW := max(width-62, 10)
	for _, s := range df.Sectors {
		n := int(math.Round(s.Energy / maxE * float64(barW)))
		fmt.Fprintf(&b, "  %-16s %6d %9s %9.1f %9.1f  %s\n",
			truncate(s.Label, 16), s.Count, dashboard.FormatEnergy(s.Energy), s.X, s.Y,
			sectorStyle.Render(strings.Repeat("█", n)))
	}
	return b.String()
}

// renderDetail describes the pinned node.
func renderDetail(n *domain.HydratedNode, width int) string {
	if n == nil {
		return dimStyle.Render(padOrTrunc(" click a particle to pin it", width))
	}
	text := fmt.Sprintf(" %s  %s  energy %s  sentiment %s  %s",
		n.Ticker, sector.Label(n.Sector), dashboard.FormatEnergy(n.Energy),
		dashboard.FormatSentiment(n.Sentiment), n.Headline)
	return pinnedStyle.Render(padOrTrunc(text, width))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// padOrTrunc pads or truncates s to exactly width runes.
func padOrTrunc(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[:max(width, 0)])
	}
	return s + strings.Repeat(" ", width-len(r))
}
