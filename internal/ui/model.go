package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"codex-resume/internal/config"
	"codex-resume/internal/rollout"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// ErrCancelled is returned by Pick when the picker is closed without a choice.
var ErrCancelled = errors.New("no session picked")

// Source supplies the text shown for each session.
type Source struct {
	// Describe returns a one-line preview for the list.
	Describe func(rollout.SessionFile) string
	// Markdown returns the transcript shown in the preview pane.
	Markdown func(rollout.SessionFile) (string, error)
}

// Model is a two-pane session picker: ranked sessions on the left, the
// selected session's transcript on the right.
type Model struct {
	src Source

	list     list.Model
	viewport viewport.Model
	help     help.Model
	keys     keyMap

	width  int
	height int

	focusOnList bool
	rendering   bool
	renderNonce int
	selected    string
	rendered    map[string]string
	preview     string
	query       string
	matches     int

	chosen   *rollout.SessionFile
	quitting bool
	status   string
}

type renderMsg struct {
	path     string
	cacheKey string
	rendered string
	nonce    int
	err      error
}

type sessionItem struct {
	rank int
	f    rollout.SessionFile
	desc string
}

func (i sessionItem) Title() string {
	return fmt.Sprintf("%d. %s", i.rank, i.f.Name)
}

func (i sessionItem) Description() string {
	meta := fmt.Sprintf("%s | %s", i.f.ModTime.Local().Format("2006-01-02 15:04"), humanSize(i.f.Size))
	if i.desc == "" {
		return meta
	}
	return meta + " | " + i.desc
}

func (i sessionItem) FilterValue() string {
	return strings.ToLower(i.f.Name + " " + i.desc)
}

func NewModel(files []rollout.SessionFile, src Source) Model {
	items := make([]list.Item, 0, len(files))
	for n, f := range files {
		desc := ""
		if src.Describe != nil {
			desc = src.Describe(f)
		}
		items = append(items, sessionItem{rank: n + 1, f: f, desc: desc})
	}

	l := list.New(items, list.NewDefaultDelegate(), 40, 20)
	l.Title = "Sessions"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	vp := viewport.New(60, 20)
	vp.SetContent("Select a session")

	m := Model{
		src:         src,
		list:        l,
		viewport:    vp,
		help:        help.New(),
		keys:        defaultKeys(),
		focusOnList: true,
		rendered:    make(map[string]string),
	}
	m.selected = m.currentPath()
	return m
}

// Chosen returns the session picked with enter, if any.
func (m Model) Chosen() (rollout.SessionFile, bool) {
	if m.chosen == nil {
		return rollout.SessionFile{}, false
	}
	return *m.chosen, true
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		cmds = append(cmds, m.renderSelected())

	case renderMsg:
		if msg.nonce != m.renderNonce {
			break
		}
		m.rendering = false
		if msg.err != nil {
			m.status = "Preview failed: " + msg.err.Error()
			m.viewport.SetContent(m.status)
			break
		}
		m.rendered[msg.cacheKey] = msg.rendered
		if msg.path == m.selected {
			m.setPreview(msg.rendered)
		}

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Resume):
			if item, ok := m.list.SelectedItem().(sessionItem); ok {
				f := item.f
				m.chosen = &f
				return m, tea.Quit
			}
			return m, nil
		case key.Matches(msg, m.keys.Tab):
			m.focusOnList = !m.focusOnList
			return m, nil
		case key.Matches(msg, m.keys.PageUp):
			if !m.focusOnList {
				m.viewport.HalfViewUp()
			}
			return m, nil
		case key.Matches(msg, m.keys.PageDown):
			if !m.focusOnList {
				m.viewport.HalfViewDown()
			}
			return m, nil
		}
		if !m.focusOnList {
			switch msg.String() {
			case "up", "k":
				m.viewport.LineUp(1)
			case "down", "j":
				m.viewport.LineDown(1)
			}
			return m, nil
		}
	}

	if m.focusOnList {
		if _, isRender := msg.(renderMsg); !isRender {
			prev := m.selected
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			cmds = append(cmds, cmd)
			m.selected = m.currentPath()
			if m.selected != prev {
				cmds = append(cmds, m.renderSelected())
			} else if m.list.FilterValue() != m.query {
				m.setPreview(m.preview)
			}
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) currentPath() string {
	item, ok := m.list.SelectedItem().(sessionItem)
	if !ok {
		return ""
	}
	return item.f.Path
}

func (m *Model) renderSelected() tea.Cmd {
	item, ok := m.list.SelectedItem().(sessionItem)
	if !ok || m.src.Markdown == nil {
		m.viewport.SetContent("No session selected")
		return nil
	}
	cacheKey := fmt.Sprintf("%s|w=%d", item.f.Path, m.viewport.Width)
	if rendered, ok := m.rendered[cacheKey]; ok {
		m.setPreview(rendered)
		return nil
	}

	m.rendering = true
	m.renderNonce++
	nonce := m.renderNonce
	m.viewport.SetContent("Rendering preview...")
	wrap := m.viewport.Width - 2
	if wrap < 20 {
		wrap = 20
	}
	return renderCmd(m.src.Markdown, item.f, cacheKey, wrap, nonce)
}

// setPreview shows rendered in the preview pane with the list filter's
// matches highlighted.
func (m *Model) setPreview(rendered string) {
	m.preview = rendered
	m.query = m.list.FilterValue()
	content, n := highlightMatches(rendered, m.query, func(s string) string { return matchStyle.Render(s) })
	m.matches = n
	m.viewport.SetContent(content)
	m.viewport.GotoTop()
}

func renderCmd(build func(rollout.SessionFile) (string, error), f rollout.SessionFile, cacheKey string, wrap, nonce int) tea.Cmd {
	return func() tea.Msg {
		md, err := build(f)
		if err != nil {
			return renderMsg{path: f.Path, cacheKey: cacheKey, nonce: nonce, err: err}
		}
		return renderMsg{path: f.Path, cacheKey: cacheKey, rendered: RenderMarkdown(md, wrap), nonce: nonce}
	}
}

// RenderMarkdown renders md for the terminal, falling back to the raw text
// when glamour cannot.
func RenderMarkdown(md string, wrap int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(config.DefaultGlamourStyle),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	left, right := m.paneWidths()
	bodyHeight := m.height - 2
	if bodyHeight < 8 {
		bodyHeight = 8
	}
	m.list.SetSize(left-2, bodyHeight-2)
	m.viewport.Width = right - 2
	m.viewport.Height = bodyHeight - 2
}

func (m Model) View() string {
	if m.quitting || m.chosen != nil {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}
	left, right := m.paneWidths()
	leftPane := panelStyle(m.focusOnList).Width(left).Height(m.height - 2).Render(m.list.View())
	rightPane := panelStyle(!m.focusOnList).Width(right).Height(m.height - 2).Render(m.viewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)
	return lipgloss.JoinVertical(lipgloss.Left, m.statusLine(), body, m.help.View(m.keys))
}

func (m Model) statusLine() string {
	status := fmt.Sprintf("%d sessions", len(m.list.Items()))
	if m.rendering {
		status += "  [rendering]"
	}
	if m.query != "" {
		status += fmt.Sprintf("  [%d matches for %q]", m.matches, m.query)
	}
	if m.status != "" {
		status += "  " + ansi.Truncate(m.status, 80, "...")
	}
	return statusStyle.Render(status)
}

func (m *Model) paneWidths() (int, int) {
	left := m.width / 3
	if left < 32 {
		left = 32
	}
	if left > m.width-32 {
		left = m.width - 32
	}
	if left < 20 {
		left = 20
	}
	right := m.width - left - 1
	if right < 20 {
		right = 20
	}
	return left, right
}

// Pick runs the picker full-screen and returns the chosen session.
func Pick(ctx context.Context, files []rollout.SessionFile, src Source) (rollout.SessionFile, error) {
	final, err := tea.NewProgram(NewModel(files, src), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return rollout.SessionFile{}, fmt.Errorf("run picker: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return rollout.SessionFile{}, ErrCancelled
	}
	f, ok := m.Chosen()
	if !ok {
		return rollout.SessionFile{}, ErrCancelled
	}
	return f, nil
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
