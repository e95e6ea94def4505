package browse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/tildaslashalef/docsync/internal/engine"
	"github.com/tildaslashalef/docsync/internal/store"
)

// View renders the UI based on the model state.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.loading {
		return fmt.Sprintf("\n\n  %s Loading folders...\n\n", m.spinner.View())
	}

	switch m.mode {
	case modeConfirmDelete, modeConfirmBatch:
		return m.renderConfirm()
	case modeUpload:
		return m.renderUploadPrompt()
	case modeIngest:
		return m.renderIngestForm()
	}

	bodyHeight := m.viewport.Height
	var right string
	if m.state.Detail != nil {
		right = m.styles.ActivePane.Width(m.viewport.Width).Render(m.viewport.View())
	} else {
		right = m.renderDocuments(bodyHeight)
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderFolders(bodyHeight), right)

	statusLine := ""
	if m.statusMsg != "" {
		statusLine = m.styles.StatusText.Render(m.statusMsg)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		statusLine,
		m.renderToasts(),
		m.renderFooter(),
	)
}

// renderHeader creates the top line with scope and counters
func (m Model) renderHeader() string {
	busy := ""
	if m.state.FoldersLoading || m.state.DocumentsLoading {
		busy = " " + m.spinner.View() + " loading"
	}

	processing := len(m.state.Processing())
	counts := fmt.Sprintf("%d documents", len(m.state.Documents))
	if processing > 0 {
		counts += m.styles.Processing.Render(fmt.Sprintf(" · %d processing", processing))
		if m.state.Polling {
			counts += m.styles.Subtle.Render(" (polling)")
		}
	}
	if n := len(m.state.Selected); n > 0 {
		counts += m.styles.Info.Render(fmt.Sprintf(" · %d checked", n))
	}

	line := fmt.Sprintf("%s  %s  %s%s",
		m.styles.Title.Render("Docsync"),
		m.styles.Subtle.Render("scope: "+m.state.Scope.String()),
		counts,
		busy,
	)
	return m.styles.Header.Width(max(m.width-2, 20)).Render(line)
}

// renderFolders renders the folder pane
func (m Model) renderFolders(height int) string {
	style := m.styles.Pane
	if m.focus == paneFolders && m.state.Detail == nil {
		style = m.styles.ActivePane
	}

	width := folderPaneWidth - 4
	entries := m.folderEntries()
	start, end := window(m.folderCursor, len(entries), height)

	var b strings.Builder
	for i := start; i < end; i++ {
		label := entries[i]
		if i > 0 {
			if c := m.state.Folders[i-1].DocCount; c != nil {
				label = fmt.Sprintf("%s (%d)", label, *c)
			}
		}
		label = truncate.StringWithTail(label, uint(width), "…")

		switch {
		case i == m.folderCursor && m.focus == paneFolders:
			label = m.styles.Cursor.Render(label)
		case m.isCurrentScope(i):
			label = m.styles.Current.Render(label)
		}
		b.WriteString(label)
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	return style.Width(width).Height(height).Render(b.String())
}

func (m Model) isCurrentScope(row int) bool {
	scope := m.state.Scope
	if row == 0 {
		return scope.Kind == engine.ScopeAll
	}
	return scope.Kind == engine.ScopeFolder && scope.FolderName() == m.state.Folders[row-1].Name
}

// renderDocuments renders the document list pane
func (m Model) renderDocuments(height int) string {
	style := m.styles.Pane
	if m.focus == paneDocuments {
		style = m.styles.ActivePane
	}
	width := m.viewport.Width

	var b strings.Builder
	switch {
	case m.state.Scope.IsNone():
		b.WriteString(m.styles.Subtle.Render("No folder selected."))
	case m.state.DocumentsLoading && len(m.state.Documents) == 0:
		b.WriteString(m.spinner.View() + " Loading documents...")
	case len(m.state.Documents) == 0:
		b.WriteString(m.styles.Subtle.Render("No documents."))
	default:
		b.WriteString(m.styles.Subtle.Render(selectAllLabel(m.state.SelectAll)) + "\n")
		start, end := window(m.docCursor, len(m.state.Documents), height-1)
		nameWidth := max(width-24, 10)
		for i := start; i < end; i++ {
			d := m.state.Documents[i]
			check := "[ ]"
			if m.state.IsSelected(d.ExternalID) {
				check = "[x]"
			}
			if d.ExternalID == m.state.PendingDelete {
				check = m.styles.Error.Render("[-]")
			}
			name := truncate.StringWithTail(d.DisplayName(), uint(nameWidth), "…")
			row := fmt.Sprintf("%s %-*s %s", check, nameWidth, name, m.renderStatus(d.Status()))
			if i == m.docCursor && m.focus == paneDocuments {
				row = m.styles.Cursor.Render(row)
			}
			b.WriteString(row)
			if i < end-1 {
				b.WriteString("\n")
			}
		}
	}

	return style.Width(width).Height(height).Render(b.String())
}

func selectAllLabel(c engine.CheckState) string {
	switch c {
	case engine.Checked:
		return "[x] all"
	case engine.Indeterminate:
		return "[~] all"
	default:
		return "[ ] all"
	}
}

func (m Model) renderStatus(status string) string {
	switch status {
	case store.StatusProcessing:
		return m.styles.Processing.Render(status)
	case store.StatusCompleted:
		return m.styles.Completed.Render(status)
	case store.StatusFailed:
		return m.styles.Failed.Render(status)
	default:
		return m.styles.Subtle.Render("-")
	}
}

// renderToasts renders the latest notifications, oldest first
func (m Model) renderToasts() string {
	lines := make([]string, 0, maxToasts)
	width := max(m.width-4, 20)
	for _, n := range m.toasts {
		text := n.Message
		if n.Title != "" {
			text = n.Title + ": " + text
		}
		text = truncate.StringWithTail(strings.ReplaceAll(text, "\n", " "), uint(width), "…")

		var style lipgloss.Style
		switch n.Level {
		case engine.LevelSuccess:
			style = m.styles.Success
		case engine.LevelWarning:
			style = m.styles.Warning
		case engine.LevelError:
			style = m.styles.Error
		default:
			style = m.styles.Info
		}
		if n.Persistent {
			text = m.spinner.View() + " " + text
		}
		lines = append(lines, style.Render(text))
	}
	for len(lines) < maxToasts {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// renderFooter creates the bottom footer string (help text).
func (m Model) renderFooter() string {
	if m.showHelp {
		return m.help.View(m.keymap)
	}
	return m.styles.Subtle.Render(m.help.ShortHelpView(m.keymap.ShortHelp()))
}

// renderConfirm renders the delete confirmation modal
func (m Model) renderConfirm() string {
	var question string
	if m.mode == modeConfirmBatch {
		question = fmt.Sprintf("Delete %d checked documents?", m.state.PendingBatchDelete)
	} else {
		question = fmt.Sprintf("Delete %s?", m.documentName(m.state.PendingDelete))
	}

	content := m.styles.Title.Render(question) + "\n\n" +
		m.styles.Subtle.Render("y/enter: delete | n/esc: cancel")
	return m.place(content)
}

// renderUploadPrompt renders the upload path prompt
func (m Model) renderUploadPrompt() string {
	target := "all documents"
	if folder := m.state.Scope.FolderName(); folder != "" {
		target = "folder " + folder
	}

	content := m.styles.Title.Render("Upload into "+target) + "\n\n" +
		m.input.View() + "\n\n" +
		m.styles.Subtle.Render("Enter: upload | Esc: cancel")
	return m.place(content)
}

// renderIngestForm renders the text ingest form
func (m Model) renderIngestForm() string {
	content := m.styles.Title.Render("Ingest text") + "\n\n" +
		"Name:\n" + m.input.View() + "\n\n" +
		"Text:\n" + m.textArea.View() + "\n\n" +
		m.styles.Subtle.Render("Tab: switch field | Ctrl+S: ingest | Esc: cancel")
	return m.place(content)
}

func (m Model) place(content string) string {
	modal := m.styles.Modal.Width(min(m.width-4, 100)).Render(content)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}

func (m Model) documentName(id string) string {
	for i := range m.state.Documents {
		if m.state.Documents[i].ExternalID == id {
			return m.state.Documents[i].DisplayName()
		}
	}
	if m.state.Detail != nil && m.state.Detail.ExternalID == id {
		return m.state.Detail.DisplayName()
	}
	return id
}

// renderDetail formats a document for the detail viewport
func (m Model) renderDetail(doc *store.Document) string {
	var md strings.Builder
	md.WriteString("# " + doc.DisplayName() + "\n\n")
	md.WriteString("| Field | Value |\n|---|---|\n")
	md.WriteString(fmt.Sprintf("| ID | `%s` |\n", doc.ExternalID))
	md.WriteString(fmt.Sprintf("| Status | %s |\n", orDash(doc.Status())))
	md.WriteString(fmt.Sprintf("| Folder | %s |\n", orDash(doc.FolderName())))
	md.WriteString(fmt.Sprintf("| Content type | %s |\n", orDash(doc.ContentType)))
	md.WriteString(fmt.Sprintf("| Updated | %s |\n", orDash(doc.UpdatedAt())))

	if len(doc.Metadata) > 0 {
		if data, err := json.MarshalIndent(doc.Metadata, "", "  "); err == nil {
			md.WriteString("\n## Metadata\n\n```json\n" + string(data) + "\n```\n")
		}
	}
	md.WriteString("\n_esc: close · o: download link · d: delete_\n")

	return renderMarkdown(m, md.String())
}

// renderMarkdown renders markdown using the glamour renderer.
func renderMarkdown(m Model, text string) string {
	if m.renderer != nil {
		rendered, err := m.renderer.Render(text)
		if err == nil {
			return rendered
		}
	}
	// Fallback to plain text if renderer fails or is nil
	return m.styles.Paragraph.Render(wordwrap.String(text, max(m.viewport.Width-2, 20)))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// window returns the visible slice [start, end) of n rows keeping cursor in view
func window(cursor, n, height int) (int, int) {
	if height < 1 {
		height = 1
	}
	if n <= height {
		return 0, n
	}
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	if start+height > n {
		start = n - height
	}
	return start, start + height
}
