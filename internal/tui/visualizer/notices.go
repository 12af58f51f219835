package visualizer

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/leefowlercu/tokenscope/internal/tui/styles"
)

const (
	noticeTTL  = 4 * time.Second
	maxNotices = 3
)

type noticeLevel int

const (
	noticeInfo noticeLevel = iota
	noticeWarning
	noticeError
)

type notice struct {
	id    int
	level noticeLevel
	text  string
}

type noticeExpiredMsg struct {
	id int
}

// notices is a short stack of messages. Info notices expire on their own;
// warnings and errors stay until dismissed or pushed out.
type notices struct {
	next  int
	items []notice
}

func (n *notices) push(level noticeLevel, text string) tea.Cmd {
	n.next++
	id := n.next
	n.items = append(n.items, notice{id: id, level: level, text: text})
	if len(n.items) > maxNotices {
		n.items = n.items[len(n.items)-maxNotices:]
	}
	if level != noticeInfo {
		return nil
	}
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{id: id}
	})
}

func (n *notices) expire(id int) {
	for i, it := range n.items {
		if it.id == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return
		}
	}
}

// dismiss removes the newest notice and reports whether there was one.
func (n *notices) dismiss() bool {
	if len(n.items) == 0 {
		return false
	}
	n.items = n.items[:len(n.items)-1]
	return true
}

func (n notices) len() int {
	return len(n.items)
}

func (n notices) view(width int) string {
	lines := make([]string, 0, len(n.items))
	for _, it := range n.items {
		text := truncateWidth(it.text, max(1, width-2))
		switch it.level {
		case noticeError:
			lines = append(lines, styles.ErrorText.Render("✗ "+text))
		case noticeWarning:
			lines = append(lines, styles.WarningText.Render("! "+text))
		default:
			lines = append(lines, styles.SuccessText.Render("✓ "+text))
		}
	}
	return strings.Join(lines, "\n")
}
