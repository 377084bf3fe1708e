package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#1DB954", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette holds the named [lipgloss.Style] values used by every view
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	label lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		label: NewBold(t).Width(12),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// barWidth is the width of a full distribution bar in the result view.
const barWidth = 24

// Bar renders percentage (0-100) as a filled bar of width cells.
func (p *Palette) Bar(percentage float64, width int) string {
	filled := int(percentage/100*float64(width) + 0.5)
	filled = min(max(filled, 0), width)
	return p.ok.Render(strings.Repeat("█", filled)) + p.help.Render(strings.Repeat("░", width-filled))
}
