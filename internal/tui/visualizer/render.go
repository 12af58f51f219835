package visualizer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/leefowlercu/tokenscope/internal/grid"
	"github.com/leefowlercu/tokenscope/internal/tokens"
	"github.com/leefowlercu/tokenscope/internal/tui/styles"
)

// renderGrid paints the cells of layout that intersect vp and crops the
// result to exactly vp.Height lines. Only the windowed cells are rendered.
func renderGrid(s *tokens.Stream, layout grid.Layout, vp grid.Viewport, selected int, hasSelection bool) string {
	if vp.Height <= 0 || vp.Width <= 0 {
		return ""
	}
	cells := layout.Window(vp)
	if s == nil || len(cells) == 0 {
		return strings.Join(padLines(nil, vp.Height), "\n")
	}

	first := cells[0].Row
	lines := make([]string, 0, (cells[len(cells)-1].Row-first+1)*layout.RowHeight)
	for i := 0; i < len(cells); {
		row := cells[i].Row
		blocks := make([]string, 0, layout.Columns)
		for ; i < len(cells) && cells[i].Row == row; i++ {
			c := cells[i]
			tok, ok := s.At(c.Index)
			if !ok {
				continue
			}
			blocks = append(blocks, renderChip(tok, c, hasSelection && c.Index == selected))
		}
		rowLines := strings.Split(lipgloss.JoinHorizontal(lipgloss.Top, blocks...), "\n")
		lines = append(lines, padLines(rowLines, layout.RowHeight)[:layout.RowHeight]...)
	}

	offset := max(0, vp.Y-first*layout.RowHeight)
	if offset > len(lines) {
		offset = len(lines)
	}
	lines = lines[offset:]
	if len(lines) > vp.Height {
		lines = lines[:vp.Height]
	}
	return lipgloss.NewStyle().MaxWidth(vp.Width).Render(strings.Join(padLines(lines, vp.Height), "\n"))
}

func renderChip(tok tokens.Token, c grid.Cell, selected bool) string {
	if c.Height >= 3 && c.Width >= 4 {
		inner := c.Width - 2
		return styles.Chip(tok.Color, tok.BorderColor, selected).
			Width(inner).
			Height(c.Height - 2).
			MaxHeight(c.Height).
			Render(truncateWidth(tok.Display(), inner))
	}
	return styles.FlatChip(tok.Color, selected).
		Width(c.Width).
		Height(c.Height).
		MaxHeight(c.Height).
		Render(truncateWidth(tok.Display(), c.Width))
}

// renderDetail describes the selected token.
func renderDetail(s *tokens.Stream, index int, ok bool, width int) string {
	if s == nil || !ok {
		return styles.MutedText.Render("No token selected")
	}
	tok, found := s.At(index)
	if !found {
		return styles.MutedText.Render("No token selected")
	}

	valueWidth := max(8, width-8)
	value := lipgloss.NewStyle().Width(valueWidth)
	row := func(label, v string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top,
			styles.Label.Width(8).Render(label),
			value.Render(v),
		)
	}

	n := len(tok.Text)
	unit := "bytes"
	if n == 1 {
		unit = "byte"
	}

	rows := []string{
		styles.PanelTitle.Render(fmt.Sprintf("Token %d of %d", index+1, s.Len())),
		row("ID", strconv.Itoa(tok.ID)),
		row("Text", truncateWidth(strconv.Quote(tok.Text), valueWidth*2)),
		row("Shown", truncateWidth(tok.Display(), valueWidth)),
		row("Bytes", fmt.Sprintf("%s (%d %s)", tok.HexBytes(), n, unit)),
		row("Code", strings.Join(tok.CodePoints(), " ")),
	}
	if !utf8.ValidString(tok.Text) {
		rows = append(rows, styles.WarningText.Render("Partial UTF-8 sequence; the character continues in a neighbouring token."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// truncateWidth shortens s to at most width cells, marking the cut with an
// ellipsis.
func truncateWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	var b strings.Builder
	used := 0
	for _, r := range s {
		w := lipgloss.Width(string(r))
		if used+w > width-1 {
			break
		}
		b.WriteRune(r)
		used += w
	}
	b.WriteString(styles.Ellipsis)
	return b.String()
}

func padLines(lines []string, n int) []string {
	for len(lines) < n {
		lines = append(lines, "")
	}
	return lines
}
