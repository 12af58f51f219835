// Package visualizer is the interactive token view: a text area, a model
// picker, a virtualized grid of token chips and a detail panel for the
// selected token.
package visualizer

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/leefowlercu/tokenscope/internal/catalog"
	"github.com/leefowlercu/tokenscope/internal/coordinator"
	"github.com/leefowlercu/tokenscope/internal/grid"
	"github.com/leefowlercu/tokenscope/internal/tokenizer"
	"github.com/leefowlercu/tokenscope/internal/tokens"
	"github.com/leefowlercu/tokenscope/internal/tui/styles"
	"github.com/leefowlercu/tokenscope/internal/watcher"
)

// Dispatcher feeds edits to the tokenization pipeline. *coordinator.Coordinator
// satisfies it.
type Dispatcher interface {
	SetText(text string)
	SetModel(model string)
	Flush()
	Updates() <-chan coordinator.Update
}

// Options configures the visualizer.
type Options struct {
	Dispatcher Dispatcher
	Catalog    *catalog.Catalog
	Model      string
	Text       string

	// Source names the watched input file, if any.
	Source string
	Grid   grid.Options

	Snapshots   <-chan watcher.Snapshot
	WatchErrors <-chan error

	// Clipboard defaults to the system clipboard.
	Clipboard func(string) error
	Logger    *slog.Logger
}

const (
	inputLines       = 3
	wideBreakpoint   = 90
	detailWideWidth  = 40
	detailTallHeight = 9
)

type focusArea int

const (
	focusInput focusArea = iota
	focusGrid
	focusPicker
)

type (
	updateMsg          coordinator.Update
	updatesClosedMsg   struct{}
	snapshotMsg        watcher.Snapshot
	snapshotsDoneMsg   struct{}
	watchErrorMsg      struct{ err error }
	watchErrorsDoneMsg struct{}
)

// bodyLayout is the screen split computed on resize.
type bodyLayout struct {
	top        int // lines above the grid panel
	gridWidth  int // inner width of the grid panel
	gridHeight int
	detailW    int // inner width of the detail panel
	detailH    int
	wide       bool
	helpLines  int
}

// Model is the bubbletea model of the visualizer.
type Model struct {
	dispatcher Dispatcher
	catalog    *catalog.Catalog
	clipboard  func(string) error
	logger     *slog.Logger
	source     string

	snapshots   <-chan watcher.Snapshot
	watchErrors <-chan error

	keys     keyMap
	help     help.Model
	input    textarea.Model
	picker   list.Model
	download download
	notices  notices

	focus     focusArea
	prevFocus focusArea

	model      string
	blocked    string // model whose vocabulary failed to load
	stream     *tokens.Stream
	generation uint64
	selection  grid.Selection
	gridOpts   grid.Options
	layout     grid.Layout
	vp         grid.Viewport
	body       bodyLayout

	width    int
	height   int
	ready    bool
	pending  bool
	disabled bool
	quitting bool
}

// New builds the model and hands any initial text to the dispatcher.
func New(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Model == "" {
		if ids := opts.Catalog.IDs(); len(ids) > 0 {
			opts.Model = ids[0]
		}
	}

	input := textarea.New()
	input.Placeholder = "Type or paste text to tokenize…"
	input.ShowLineNumbers = false
	input.Prompt = ""
	input.MaxHeight = 0
	input.SetHeight(inputLines)
	input.SetValue(opts.Text)
	input.Focus()

	m := Model{
		dispatcher:  opts.Dispatcher,
		catalog:     opts.Catalog,
		clipboard:   opts.Clipboard,
		logger:      opts.Logger.With("component", "visualizer"),
		source:      opts.Source,
		snapshots:   opts.Snapshots,
		watchErrors: opts.WatchErrors,
		keys:        defaultKeyMap(),
		help:        help.New(),
		input:       input,
		download:    newDownload(),
		model:       opts.Model,
		gridOpts:    opts.Grid,
		stream:      tokens.Empty(""),
	}

	if opts.Text != "" {
		m.pending = true
		m.dispatcher.SetText(opts.Text)
		m.dispatcher.Flush()
	}
	return m
}

// Init starts listening for pipeline updates and file changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		waitForUpdate(m.dispatcher.Updates()),
		waitForSnapshot(m.snapshots),
		waitForWatchError(m.watchErrors),
	)
}

func waitForUpdate(ch <-chan coordinator.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return updatesClosedMsg{}
		}
		return updateMsg(u)
	}
}

func waitForSnapshot(ch <-chan watcher.Snapshot) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return snapshotsDoneMsg{}
		}
		return snapshotMsg(s)
	}
}

func waitForWatchError(ch <-chan error) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		err, ok := <-ch
		if !ok {
			return watchErrorsDoneMsg{}
		}
		return watchErrorMsg{err: err}
	}
}

// Update handles terminal, pipeline and watcher messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case updateMsg:
		cmd := m.applyUpdate(coordinator.Update(msg))
		m.resize()
		return m, tea.Batch(cmd, waitForUpdate(m.dispatcher.Updates()))

	case updatesClosedMsg:
		return m, nil

	case snapshotMsg:
		cmd := m.applySnapshot(watcher.Snapshot(msg))
		m.resize()
		return m, tea.Batch(cmd, waitForSnapshot(m.snapshots))

	case watchErrorMsg:
		cmd := m.notices.push(noticeWarning, "watch: "+msg.err.Error())
		m.resize()
		return m, tea.Batch(cmd, waitForWatchError(m.watchErrors))

	case noticeExpiredMsg:
		m.notices.expire(msg.id)
		m.resize()
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if m.focus == focusPicker {
		m.picker, cmd = m.picker.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) applyUpdate(u coordinator.Update) tea.Cmd {
	switch u.Kind {
	case coordinator.UpdateReady:
		m.ready = true
		return nil

	case coordinator.UpdateProgress:
		m.download.Set(u.Generation, u.Progress)
		m.input.Blur()
		return nil

	case coordinator.UpdateStream:
		m.finishDownload()
		m.pending = false
		m.setStream(u.Generation, u.Stream)
		return nil

	case coordinator.UpdateError:
		m.finishDownload()
		m.pending = false
		model := u.Model
		if model == "" {
			model = m.model
		}
		if errors.Is(u.Err, tokenizer.ErrModelLoad) {
			m.blocked = model
		}
		// A failed job clears the grid so older tokens are not shown as current.
		m.setStream(u.Generation, tokens.Empty(""))
		m.logger.Debug("tokenization failed", "generation", u.Generation, "model", model, "error", u.Err)
		return m.notices.push(noticeError, fmt.Sprintf("%s: %v", model, u.Err))

	case coordinator.UpdateDisabled:
		m.finishDownload()
		m.pending = false
		m.disabled = true
		return m.notices.push(noticeError, u.Err.Error())
	}
	return nil
}

func (m *Model) finishDownload() {
	if !m.download.Active() {
		return
	}
	m.download.Finish()
	if m.focus == focusInput {
		m.input.Focus()
	}
}

func (m *Model) applySnapshot(s watcher.Snapshot) tea.Cmd {
	name := filepath.Base(s.Path)
	if s.Removed {
		return m.notices.push(noticeWarning, name+" was removed; keeping the last contents")
	}
	text := string(s.Content)
	if text == m.input.Value() {
		return nil
	}
	m.input.SetValue(text)
	m.pending = text != "" && !m.modelBlocked()
	m.dispatcher.SetText(text)
	return m.notices.push(noticeInfo, "reloaded "+name)
}

// modelBlocked reports whether the current model failed to load. Edits are
// not tokenized until another model is picked.
func (m Model) modelBlocked() bool {
	return m.blocked != "" && m.blocked == m.model
}

// setStream replaces the live stream. The selection is rebound to the new
// generation so it can never point into an older stream.
func (m *Model) setStream(generation uint64, s *tokens.Stream) {
	if s == nil {
		s = tokens.Empty("")
	}
	m.stream = s
	m.generation = generation
	m.selection.Reset(generation, s.Len())
	m.relayout()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}

	if m.focus == focusPicker {
		return m.handlePickerKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Models):
		m.openPicker()
		return m, nil

	case key.Matches(msg, m.keys.SwitchFocus):
		if m.focus == focusInput {
			m.setFocus(focusGrid)
		} else {
			m.setFocus(focusInput)
		}
		return m, nil

	case key.Matches(msg, m.keys.Dismiss):
		if m.notices.dismiss() {
			m.resize()
		}
		return m, nil
	}

	if m.focus == focusInput {
		if m.download.Active() {
			return m, nil
		}
		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if after := m.input.Value(); after != before {
			m.pending = after != "" && !m.modelBlocked()
			m.dispatcher.SetText(after)
		}
		return m, cmd
	}

	return m.handleGridKey(msg)
}

func (m Model) handleGridKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cols := max(1, m.layout.Columns)
	page := cols * max(1, m.body.gridHeight/max(1, m.layout.RowHeight))

	switch {
	case key.Matches(msg, m.keys.Left):
		m.selection.Move(-1)
	case key.Matches(msg, m.keys.Right):
		m.selection.Move(1)
	case key.Matches(msg, m.keys.Up):
		m.selection.Move(-cols)
	case key.Matches(msg, m.keys.Down):
		m.selection.Move(cols)
	case key.Matches(msg, m.keys.PageUp):
		m.selection.Move(-page)
	case key.Matches(msg, m.keys.PageDown):
		m.selection.Move(page)
	case key.Matches(msg, m.keys.Home):
		m.selection.Home()
	case key.Matches(msg, m.keys.End):
		m.selection.End()
	case key.Matches(msg, m.keys.CopyText):
		return m, m.copySelected()
	case key.Matches(msg, m.keys.CopyIDs):
		return m, m.copyIDs()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return m, nil
	default:
		return m, nil
	}

	if idx, ok := m.selection.Index(); ok {
		m.vp = m.layout.Reveal(idx, m.vp)
	}
	return m, nil
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	filtering := m.picker.FilterState() == list.Filtering

	switch {
	case msg.Type == tea.KeyEsc && m.picker.FilterState() == list.Unfiltered:
		m.closePicker()
		return m, nil
	case msg.Type == tea.KeyEnter && !filtering:
		if id, ok := pickedModel(m.picker); ok {
			m.chooseModel(id)
		}
		m.closePicker()
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m *Model) openPicker() {
	m.picker = newPicker(m.catalog, m.model)
	m.prevFocus = m.focus
	m.setFocus(focusPicker)
	m.resize()
}

func (m *Model) closePicker() {
	m.setFocus(m.prevFocus)
}

func (m *Model) chooseModel(id string) {
	if id == m.model {
		return
	}
	m.model = id
	m.blocked = ""
	m.pending = true
	m.dispatcher.SetModel(id)
	m.logger.Debug("model selected", "model", id)
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	if f == focusInput && !m.download.Active() {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.focus == focusPicker {
		return m, nil
	}

	x := msg.X - 1
	y := msg.Y - m.body.top - 1
	inGrid := x >= 0 && x < m.vp.Width && y >= 0 && y < m.vp.Height

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if inGrid {
			m.vp.Y -= m.layout.RowHeight
			m.vp = m.layout.Clamp(m.vp)
		}
		return m, nil
	case tea.MouseButtonWheelDown:
		if inGrid {
			m.vp.Y += m.layout.RowHeight
			m.vp = m.layout.Clamp(m.vp)
		}
		return m, nil
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
	default:
		return m, nil
	}

	if inGrid {
		if idx, ok := m.layout.CellAt(x+m.vp.X, y+m.vp.Y); ok {
			m.selection.Select(m.generation, idx)
			m.setFocus(focusGrid)
		}
		return m, nil
	}
	if msg.Y > 0 && msg.Y < 1+inputLines+2 {
		m.setFocus(focusInput)
	}
	return m, nil
}

func (m *Model) copySelected() tea.Cmd {
	idx, ok := m.selection.Index()
	if !ok {
		return m.notices.push(noticeWarning, "no token selected")
	}
	tok, _ := m.stream.At(idx)
	return m.copy(tok.Text, fmt.Sprintf("copied token %d (%q)", idx, tok.Display()))
}

func (m *Model) copyIDs() tea.Cmd {
	if m.stream.Len() == 0 {
		return m.notices.push(noticeWarning, "nothing to copy")
	}
	return m.copy(m.stream.IDList(), fmt.Sprintf("copied %d token ids", m.stream.Len()))
}

func (m *Model) copy(text, done string) tea.Cmd {
	defer m.resize()
	if err := m.clipboard(text); err != nil {
		m.logger.Warn("clipboard write failed", "error", err)
		return m.notices.push(noticeError, "clipboard unavailable: "+err.Error())
	}
	return m.notices.push(noticeInfo, done)
}

// resize splits the screen between input, status lines, grid, detail
// panel and help.
func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}

	status := m.notices.len()
	if m.download.Active() {
		status++
	}
	helpLines := 1
	if m.help.ShowAll && m.focus == focusGrid {
		helpLines = len(m.keys.FullHelp()[0])
	}

	top := 1 + inputLines + 2 + status
	bodyH := max(3, m.height-top-helpLines)

	b := bodyLayout{top: top, helpLines: helpLines, wide: m.width >= wideBreakpoint}
	gridTotalW, gridTotalH := m.width, bodyH
	if b.wide {
		gridTotalW = m.width - detailWideWidth
		b.detailW = detailWideWidth - 2
		b.detailH = bodyH - 2
	} else {
		detail := min(detailTallHeight, bodyH/2)
		gridTotalH = bodyH - detail
		b.detailW = m.width - 2
		b.detailH = max(1, detail-2)
	}
	b.gridWidth = max(1, gridTotalW-2)
	b.gridHeight = max(1, gridTotalH-2)
	m.body = b

	m.input.SetWidth(max(1, m.width-2))
	m.help.Width = m.width
	m.download.SetWidth(m.width)
	if m.focus == focusPicker {
		m.picker.SetSize(max(1, m.width-2), max(1, bodyH-2))
	}
	m.relayout()
}

// relayout recomputes the grid for the current width and stream.
func (m *Model) relayout() {
	m.layout = grid.Compute(m.body.gridWidth, m.stream.Len(), m.gridOpts)
	m.vp.Width = m.body.gridWidth
	m.vp.Height = m.body.gridHeight
	m.vp = m.layout.Clamp(m.vp)
}

// View renders the whole screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width <= 0 || m.height <= 0 {
		return "Starting…"
	}

	sections := []string{m.headerView(), m.inputView()}
	if m.download.Active() {
		sections = append(sections, m.download.View())
	}
	if m.notices.len() > 0 {
		sections = append(sections, m.notices.view(m.width))
	}
	sections = append(sections, m.bodyView(), m.helpView())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) headerView() string {
	parts := []string{styles.Title.Render("tokenscope")}

	name := m.model
	if mdl, err := m.catalog.Lookup(m.model); err == nil {
		name = mdl.DisplayName
	}
	if m.stream.EncodingName != "" {
		name += " (" + m.stream.EncodingName + ")"
	}
	parts = append(parts, name)
	parts = append(parts, fmt.Sprintf("%d tokens", m.stream.TokenCount), fmt.Sprintf("%d chars", m.stream.CharCount))

	if rows := m.layout.TotalRows; rows > 0 {
		first := min(rows, m.vp.Y/max(1, m.layout.RowHeight)+1)
		last := min(rows, (m.vp.Y+m.vp.Height)/max(1, m.layout.RowHeight))
		parts = append(parts, fmt.Sprintf("rows %d-%d of %d", first, max(first, last), rows))
	}

	switch {
	case m.disabled:
		parts = append(parts, styles.ErrorText.Render("tokenization unavailable"))
	case m.modelBlocked():
		parts = append(parts, styles.ErrorText.Render("model unavailable, switch models (ctrl+o)"))
	case !m.ready:
		parts = append(parts, styles.MutedText.Render("starting tokenizer…"))
	case m.pending:
		parts = append(parts, styles.MutedText.Render("tokenizing…"))
	}
	if m.source != "" {
		parts = append(parts, styles.MutedText.Render(filepath.Base(m.source)))
	}

	return truncateWidth(strings.Join(parts, styles.Separator), m.width)
}

func (m Model) inputView() string {
	style := styles.Panel
	if m.focus == focusInput {
		style = styles.FocusedPanel
	}
	return style.Width(max(1, m.width-2)).Render(m.input.View())
}

func (m Model) bodyView() string {
	if m.focus == focusPicker {
		h := m.body.gridHeight + 2
		if !m.body.wide {
			h += m.body.detailH + 2
		}
		return styles.FocusedPanel.
			Width(max(1, m.width-2)).
			Height(max(1, h-2)).
			Render(m.picker.View())
	}

	gridStyle := styles.Panel
	if m.focus == focusGrid {
		gridStyle = styles.FocusedPanel
	}
	idx, ok := m.selection.Index()
	gridPanel := gridStyle.
		Width(m.body.gridWidth).
		Height(m.body.gridHeight).
		Render(renderGrid(m.stream, m.layout, m.vp, idx, ok))

	detailPanel := styles.Panel.
		Width(m.body.detailW).
		Height(m.body.detailH).
		MaxHeight(m.body.detailH + 2).
		Render(renderDetail(m.stream, idx, ok, m.body.detailW))

	if m.body.wide {
		return lipgloss.JoinHorizontal(lipgloss.Top, gridPanel, detailPanel)
	}
	return lipgloss.JoinVertical(lipgloss.Left, gridPanel, detailPanel)
}

func (m Model) helpView() string {
	if m.focus == focusInput {
		return m.help.View(inputKeys{k: m.keys})
	}
	return m.help.View(m.keys)
}

// Selected returns the selected token of the live stream.
func (m Model) Selected() (tokens.Token, bool) {
	idx, ok := m.selection.Index()
	if !ok {
		return tokens.Token{}, false
	}
	return m.stream.At(idx)
}

// Stream returns the live stream.
func (m Model) Stream() *tokens.Stream {
	return m.stream
}

// CurrentModel returns the selected model id.
func (m Model) CurrentModel() string {
	return m.model
}
