package visualizer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/leefowlercu/tokenscope/internal/tui/styles"
)

// download tracks a vocabulary download for one generation. Input is
// disabled while it is active.
type download struct {
	bar        progress.Model
	generation uint64
	percent    float64
	active     bool
}

func newDownload() download {
	return download{
		bar: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

// Set records a progress report, clamping percent to [0, 100].
func (d *download) Set(generation uint64, percent float64) {
	d.generation = generation
	d.percent = max(0, min(percent, 100))
	d.active = true
}

// Finish ends the download.
func (d *download) Finish() {
	d.active = false
	d.percent = 0
}

// Active reports whether a download is in progress.
func (d download) Active() bool {
	return d.active
}

// Percent returns the last reported percentage.
func (d download) Percent() float64 {
	return d.percent
}

// SetWidth sizes the bar to fit width cells including the label.
func (d *download) SetWidth(width int) {
	d.bar.Width = max(10, width-len(downloadLabel)-8)
}

const downloadLabel = "Downloading vocabulary "

// View renders the label, bar and percentage on one line.
func (d download) View() string {
	if !d.active {
		return ""
	}
	var b strings.Builder
	b.WriteString(styles.WarningText.Render(downloadLabel))
	b.WriteString(d.bar.ViewAs(d.percent / 100))
	b.WriteString(styles.MutedText.Render(fmt.Sprintf(" %3.0f%%", d.percent)))
	return b.String()
}
