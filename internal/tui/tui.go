// Package tui previews a user's next digest in the terminal. Nothing is sent
// or recorded.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/thomaskoefod/digestr/internal/mailer"
	"github.com/thomaskoefod/digestr/pkg/models"
)

type View int

const (
	ViewPostList View = iota
	ViewPostDetail
	ViewEmail
	ViewHelp
)

// Loader ranks and renders the digest being previewed.
type Loader func(ctx context.Context) ([]models.RankedPost, mailer.Message, error)

type Model struct {
	loader    Loader
	style     string
	view      View
	prevView  View
	posts     []models.RankedPost
	message   mailer.Message
	list      list.Model
	viewport  viewport.Model
	width     int
	height    int
	err       error
	statusMsg string
}

type previewLoadedMsg struct {
	posts   []models.RankedPost
	message mailer.Message
}

type errorMsg struct {
	err error
}

type statusMsg string

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
)

// New builds the preview model. style is a glamour style name or "auto".
func New(email string, freq models.Frequency, loader Loader, style string) Model {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = fmt.Sprintf("%s preview for %s", freq.Title(), email)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return Model{
		loader:   loader,
		style:    style,
		view:     ViewPostList,
		list:     l,
		viewport: viewport.New(80, 20),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadPreview(m.loader),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 3
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case previewLoadedMsg:
		m.posts = msg.posts
		m.message = msg.message
		items := make([]list.Item, len(m.posts))
		for i, p := range m.posts {
			items[i] = postItem{rank: i + 1, ranked: p}
		}
		m.list.SetItems(items)
		m.err = nil
		if len(m.posts) == 0 {
			m.statusMsg = "Nothing qualifies for the next digest"
		} else {
			m.statusMsg = fmt.Sprintf("%d posts would be sent as %q", len(m.posts), m.message.Subject)
		}
		return m, nil

	case errorMsg:
		m.err = msg.err
		return m, nil

	case statusMsg:
		m.statusMsg = string(msg)
		return m, nil
	}

	var cmd tea.Cmd
	if m.view == ViewPostList {
		m.list, cmd = m.list.Update(msg)
	} else {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewPostList:
		return m.handleListKeys(msg)
	case ViewPostDetail, ViewEmail:
		return m.handleDetailKeys(msg)
	case ViewHelp:
		return m.handleHelpKeys(msg)
	}
	return m, nil
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Let the filter input have every key while the user is typing.
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "enter":
		if i, ok := m.list.SelectedItem().(postItem); ok {
			return m.show(ViewPostDetail, postMarkdown(i.ranked), nil)
		}

	case "e":
		if len(m.posts) == 0 {
			return m, func() tea.Msg { return statusMsg("No email to show") }
		}
		markdown, err := emailMarkdown(m.message.HTML)
		return m.show(ViewEmail, "**Subject:** "+m.message.Subject+"\n\n"+markdown, err)

	case "o":
		if i, ok := m.list.SelectedItem().(postItem); ok {
			return m, openCmd(i.ranked.Post.URL)
		}

	case "r":
		return m, tea.Batch(
			loadPreview(m.loader),
			func() tea.Msg { return statusMsg("Re-ranking...") },
		)

	case "?":
		m.prevView = m.view
		m.view = ViewHelp
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "esc", "backspace":
		m.view = ViewPostList
		return m, nil

	case "o":
		if i, ok := m.list.SelectedItem().(postItem); ok && m.view == ViewPostDetail {
			return m, openCmd(i.ranked.Post.URL)
		}

	case "?":
		m.prevView = m.view
		m.view = ViewHelp
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleHelpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "?", "q":
		m.view = m.prevView
		return m, nil
	}
	return m, nil
}

// show renders markdown into the viewport and switches to view.
func (m Model) show(view View, markdown string, err error) (tea.Model, tea.Cmd) {
	if err == nil {
		var out string
		out, err = renderMarkdown(markdown, m.style, m.width)
		if err == nil {
			m.viewport.SetContent(out)
			m.viewport.GotoTop()
			m.view = view
		}
	}
	m.err = err
	return m, nil
}

func (m Model) View() string {
	switch m.view {
	case ViewPostList:
		return m.renderList()
	case ViewPostDetail, ViewEmail:
		return m.renderDetail()
	case ViewHelp:
		return m.renderHelp()
	}
	return ""
}

func (m Model) renderList() string {
	var s strings.Builder

	s.WriteString(m.list.View())
	s.WriteString("\n")
	s.WriteString(m.statusLine())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("enter: read • e: email • o: open browser • r: re-rank • ?: help • q: quit"))

	return s.String()
}

func (m Model) renderDetail() string {
	var s strings.Builder

	s.WriteString(m.viewport.View())
	s.WriteString("\n")
	s.WriteString(m.statusLine())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: scroll • o: open browser • esc: back • ?: help • q: quit"))

	return s.String()
}

func (m Model) statusLine() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.statusMsg != "" {
		return statusStyle.Render(m.statusMsg)
	}
	return ""
}

func (m Model) renderHelp() string {
	help := `
digestr preview - Keyboard Shortcuts

Post List:
  ↑/↓, j/k     Navigate posts
  enter        Read summary
  e            Show the digest email as it would be sent
  o            Open post in browser
  r            Re-rank against current posts
  /            Filter posts
  q, ctrl+c    Quit

Post Detail / Email:
  ↑/↓          Scroll
  o            Open post in browser
  esc          Back to list
  q, ctrl+c    Quit

General:
  ?            Show/hide this help
`
	return help + "\n" + helpStyle.Render("Press ? or esc to close help")
}

func loadPreview(loader Loader) tea.Cmd {
	return func() tea.Msg {
		posts, message, err := loader(context.Background())
		if err != nil {
			return errorMsg{err}
		}
		return previewLoadedMsg{posts: posts, message: message}
	}
}

func openCmd(url string) tea.Cmd {
	return func() tea.Msg {
		if err := openBrowser(url); err != nil {
			return errorMsg{err}
		}
		return statusMsg("Opened in browser")
	}
}
