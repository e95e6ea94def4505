package browse

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/tildaslashalef/docsync/internal/engine"
)

type pane int

const (
	paneFolders pane = iota
	paneDocuments
)

type mode int

const (
	modeNormal mode = iota
	modeConfirmDelete
	modeConfirmBatch
	modeUpload
	modeIngest
)

// maxToasts is how many notifications stay on screen
const maxToasts = 3

// Model represents the state of the browse TUI.
// Init, Update and View live in separate files.
type Model struct {
	ctx          context.Context
	engine       *engine.Engine
	notes        *chanNotifier
	updates      <-chan struct{}
	unsubscribe  func()
	initialScope *engine.Scope

	state        engine.State // Last engine snapshot
	focus        pane
	folderCursor int // 0 is "All documents"
	docCursor    int
	mode         mode
	toasts       []engine.Notification

	styles    Styles
	keymap    KeyMap
	statusMsg string
	lastError string
	width     int
	height    int
	ready     bool
	loading   bool
	showHelp  bool

	// UI Components
	help     help.Model
	viewport viewport.Model // Document detail
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	input    textinput.Model // Upload path or ingest filename
	textArea textarea.Model  // Ingest text
}

// NewModel creates a new browse TUI model bound to an engine
func NewModel(ctx context.Context, e *engine.Engine, notes *chanNotifier, initial *engine.Scope) Model {
	styles := DefaultStyles()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	input := textinput.New()
	input.CharLimit = 1024
	input.Width = 60
	input.Prompt = "> "
	input.PromptStyle = lipgloss.NewStyle().Foreground(DefaultTheme.Primary)
	input.TextStyle = lipgloss.NewStyle().Foreground(DefaultTheme.Text)

	ta := textarea.New()
	ta.Placeholder = "Text to ingest... (Ctrl+S to submit, Tab to edit the name, Esc to cancel)"
	ta.CharLimit = 0
	ta.ShowLineNumbers = false

	updates, unsubscribe := e.Subscribe()

	return Model{
		ctx:          ctx,
		engine:       e,
		notes:        notes,
		updates:      updates,
		unsubscribe:  unsubscribe,
		initialScope: initial,
		state:        e.Snapshot(),
		focus:        paneFolders,
		loading:      true,
		styles:       styles,
		keymap:       DefaultKeyMap(),
		help:         help.New(),
		spinner:      s,
		renderer:     r,
		input:        input,
		textArea:     ta,
	}
}

// Init starts the initial load and the engine listeners
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		activate(m),
		waitForState(m.updates),
		waitForNotification(m.notes),
	)
}

// folderEntries returns the labels of the folder pane
func (m Model) folderEntries() []string {
	entries := make([]string, 0, len(m.state.Folders)+1)
	entries = append(entries, "All documents")
	for _, f := range m.state.Folders {
		entries = append(entries, f.Name)
	}
	return entries
}

// scopeAt maps a folder pane row to a scope
func (m Model) scopeAt(row int) engine.Scope {
	if row <= 0 || row > len(m.state.Folders) {
		return engine.AllScope()
	}
	return engine.FolderScope(m.state.Folders[row-1].Name)
}

// currentDocumentID returns the id under the document cursor
func (m Model) currentDocumentID() string {
	if m.docCursor < 0 || m.docCursor >= len(m.state.Documents) {
		return ""
	}
	return m.state.Documents[m.docCursor].ExternalID
}

// pushToast shows a notification, replacing an earlier one with the same ID
func (m *Model) pushToast(n engine.Notification) {
	for i := range m.toasts {
		if m.toasts[i].ID == n.ID {
			m.toasts[i] = n
			return
		}
	}
	m.toasts = append(m.toasts, n)
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
}

// clampCursors keeps cursors inside the current lists
func (m *Model) clampCursors() {
	m.folderCursor = clamp(m.folderCursor, len(m.state.Folders)+1)
	m.docCursor = clamp(m.docCursor, len(m.state.Documents))
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
