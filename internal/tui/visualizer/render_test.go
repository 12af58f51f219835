package visualizer

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/leefowlercu/tokenscope/internal/grid"
	"github.com/leefowlercu/tokenscope/internal/tokens"
)

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "hello", 5, "hello"},
		{"cut", "hello world", 6, "hello…"},
		{"zero width", "hello", 0, ""},
		{"one cell", "hello", 1, "…"},
		{"wide runes", "日本語テキスト", 5, "日本…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateWidth(tt.in, tt.width)
			if got != tt.want {
				t.Errorf("truncateWidth(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
			}
			if lipgloss.Width(got) > max(0, tt.width) {
				t.Errorf("result %q is wider than %d", got, tt.width)
			}
		})
	}
}

func TestRenderGrid_HeightIsExact(t *testing.T) {
	s := makeStream(100)
	opts := grid.Options{MinCellWidth: 10, RowHeight: 3, Overscan: 2}

	tests := []struct {
		name string
		vp   grid.Viewport
	}{
		{"top", grid.Viewport{Width: 60, Height: 10}},
		{"mid row offset", grid.Viewport{Y: 7, Width: 60, Height: 10}},
		{"bottom", grid.Viewport{Y: 1000, Width: 60, Height: 10}},
		{"taller than content", grid.Viewport{Width: 60, Height: 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := grid.Compute(tt.vp.Width, s.Len(), opts)
			vp := layout.Clamp(tt.vp)
			out := renderGrid(s, layout, vp, 0, true)

			lines := strings.Split(out, "\n")
			if len(lines) != vp.Height {
				t.Errorf("rendered %d lines, want %d", len(lines), vp.Height)
			}
			for i, l := range lines {
				if w := lipgloss.Width(l); w > vp.Width {
					t.Errorf("line %d is %d wide, want <= %d", i, w, vp.Width)
				}
			}
		})
	}
}

func TestRenderGrid_EmptyStream(t *testing.T) {
	s := tokens.Empty("")
	layout := grid.Compute(40, 0, grid.DefaultOptions())
	out := renderGrid(s, layout, grid.Viewport{Width: 40, Height: 5}, 0, false)
	if strings.TrimSpace(out) != "" {
		t.Errorf("empty stream rendered %q", out)
	}
	if got := renderGrid(s, layout, grid.Viewport{}, 0, false); got != "" {
		t.Errorf("zero viewport rendered %q", got)
	}
}

func TestRenderGrid_ShowsVisibleTokensOnly(t *testing.T) {
	s := makeStream(1000)
	layout := grid.Compute(60, s.Len(), grid.Options{MinCellWidth: 10, RowHeight: 3})
	vp := layout.Clamp(grid.Viewport{Y: 50 * 3, Width: 60, Height: 9})

	out := renderGrid(s, layout, vp, 0, false)
	if !strings.Contains(out, "t300") {
		t.Error("first visible token missing")
	}
	if strings.Contains(out, "t0 ") || strings.Contains(out, "t999") {
		t.Error("tokens outside the viewport were rendered")
	}
}

func TestRenderChip_FlatWhenShort(t *testing.T) {
	tok := tokens.NewToken(1, []byte("hello"), 0)

	bordered := renderChip(tok, grid.Cell{Width: 10, Height: 3}, false)
	if h := lipgloss.Height(bordered); h != 3 {
		t.Errorf("bordered chip height = %d, want 3", h)
	}
	flat := renderChip(tok, grid.Cell{Width: 10, Height: 1}, true)
	if h := lipgloss.Height(flat); h != 1 {
		t.Errorf("flat chip height = %d, want 1", h)
	}
	if !strings.Contains(flat, "hello") {
		t.Errorf("flat chip %q lost its text", flat)
	}
}

func TestRenderDetail(t *testing.T) {
	s := &tokens.Stream{Tokens: []tokens.Token{
		tokens.NewToken(15339, []byte("hi"), 0),
		tokens.NewToken(9468, []byte{0xe6, 0x97}, 1),
	}}
	s.TokenCount = 2

	out := renderDetail(s, 0, true, 40)
	for _, want := range []string{"Token 1 of 2", "15339", `"hi"`, "68 69", "2 bytes", "U+0068"} {
		if !strings.Contains(out, want) {
			t.Errorf("detail missing %q:\n%s", want, out)
		}
	}

	partial := renderDetail(s, 1, true, 40)
	if !strings.Contains(partial, "Partial UTF-8") {
		t.Errorf("partial sequence not flagged:\n%s", partial)
	}

	if got := renderDetail(s, 0, false, 40); !strings.Contains(got, "No token selected") {
		t.Errorf("no selection rendered %q", got)
	}
	if got := renderDetail(s, 5, true, 40); !strings.Contains(got, "No token selected") {
		t.Errorf("out of range index rendered %q", got)
	}
}

func TestNotices(t *testing.T) {
	var n notices

	if cmd := n.push(noticeInfo, "one"); cmd == nil {
		t.Error("info notice has no expiry")
	}
	if cmd := n.push(noticeError, "two"); cmd != nil {
		t.Error("error notice expires")
	}
	n.push(noticeWarning, "three")
	n.push(noticeInfo, "four")

	if n.len() != maxNotices {
		t.Fatalf("len = %d, want %d", n.len(), maxNotices)
	}
	if strings.Contains(n.view(80), "one") {
		t.Error("oldest notice not pushed out")
	}

	n.expire(4)
	if strings.Contains(n.view(80), "four") {
		t.Error("expired notice still shown")
	}
	n.expire(99)
	if n.len() != 2 {
		t.Errorf("len = %d after expiring an unknown id", n.len())
	}

	n.dismiss()
	n.dismiss()
	if n.dismiss() {
		t.Error("dismiss reported a notice on an empty stack")
	}
}

func TestDownload(t *testing.T) {
	d := newDownload()
	d.SetWidth(80)

	d.Set(3, 140)
	if !d.Active() || d.Percent() != 100 {
		t.Errorf("Set(140): active=%v percent=%v", d.Active(), d.Percent())
	}
	d.Set(3, -5)
	if d.Percent() != 0 {
		t.Errorf("Set(-5) percent = %v", d.Percent())
	}
	if !strings.Contains(d.View(), "Downloading vocabulary") {
		t.Errorf("View() = %q", d.View())
	}

	d.Finish()
	if d.Active() {
		t.Error("still active after Finish")
	}
}
