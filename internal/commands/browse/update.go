package browse

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tildaslashalef/docsync/internal/engine"
)

// folderPaneWidth is the fixed width of the left pane
const folderPaneWidth = 30

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.mode {
		case modeConfirmDelete, modeConfirmBatch:
			return m.handleConfirmKey(msg)
		case modeUpload:
			return m.handleUploadKey(msg)
		case modeIngest:
			return m.handleIngestKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 3
		statusLineHeight := 1
		toastHeight := maxToasts
		footerHeight := 2
		vpHeight := m.height - headerHeight - statusLineHeight - toastHeight - footerHeight
		if vpHeight < 1 {
			vpHeight = 1
		}
		vpWidth := m.width - folderPaneWidth - 4
		if vpWidth < 20 {
			vpWidth = 20
		}

		if !m.ready {
			m.viewport = viewport.New(vpWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = vpWidth
			m.viewport.Height = vpHeight
		}
		m.textArea.SetWidth(min(m.width-8, 100))
		m.textArea.SetHeight(max(vpHeight-6, 3))
		if m.state.Detail != nil {
			m.viewport.SetContent(m.renderDetail(m.state.Detail))
		}
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stateChangedMsg:
		prevDetail := m.state.Detail
		m.state = m.engine.Snapshot()
		m.clampCursors()
		if m.ready && m.state.Detail != nil {
			m.viewport.SetContent(m.renderDetail(m.state.Detail))
			if prevDetail == nil || prevDetail.ExternalID != m.state.Detail.ExternalID {
				m.viewport.GotoTop()
			}
		}
		return m, waitForState(m.updates)

	case notificationMsg:
		m.pushToast(engine.Notification(msg))
		return m, waitForNotification(m.notes)

	case activatedMsg:
		m.loading = false
		if msg.Error != nil {
			m.statusMsg = fmt.Sprintf("Initial load failed: %v", msg.Error)
		} else if m.state.Scope.IsNone() {
			m.statusMsg = "Select a folder to list its documents."
		}
		return m, nil

	case openedMsg:
		if msg.Error == nil {
			m.statusMsg = ""
		}
		return m, nil

	case downloadMsg:
		if msg.Error == nil {
			m.statusMsg = fmt.Sprintf("Download link: %s", msg.URL)
		}
		return m, nil

	case actionDoneMsg:
		if msg.Error != nil && msg.Local {
			m.statusMsg = fmt.Sprintf("%s failed: %v", msg.Action, msg.Error)
		}
		return m, nil
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	m.help, cmd = m.help.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey handles keys in the normal mode
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.unsubscribe()
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keymap.Refresh):
		m.statusMsg = "Refreshing..."
		return m, refresh(m)
	}

	// Detail pane takes the remaining keys while open
	if m.state.Detail != nil {
		switch {
		case key.Matches(msg, m.keymap.Back):
			m.engine.CloseDetail()
			return m, nil
		case key.Matches(msg, m.keymap.Download):
			return m, downloadLink(m, m.state.Detail.ExternalID)
		case key.Matches(msg, m.keymap.Delete):
			return m.stageDelete(m.state.Detail.ExternalID)
		}
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keymap.SwitchPane):
		if m.focus == paneFolders {
			m.focus = paneDocuments
		} else {
			m.focus = paneFolders
		}
		return m, nil

	case key.Matches(msg, m.keymap.Up):
		if m.focus == paneFolders {
			m.folderCursor = clamp(m.folderCursor-1, len(m.state.Folders)+1)
		} else {
			m.docCursor = clamp(m.docCursor-1, len(m.state.Documents))
		}
		return m, nil

	case key.Matches(msg, m.keymap.Down):
		if m.focus == paneFolders {
			m.folderCursor = clamp(m.folderCursor+1, len(m.state.Folders)+1)
		} else {
			m.docCursor = clamp(m.docCursor+1, len(m.state.Documents))
		}
		return m, nil

	case key.Matches(msg, m.keymap.Open):
		if m.focus == paneFolders {
			scope := m.scopeAt(m.folderCursor)
			m.focus = paneDocuments
			m.docCursor = 0
			m.statusMsg = ""
			return m, selectScope(m, scope)
		}
		if id := m.currentDocumentID(); id != "" {
			m.statusMsg = "Opening..."
			return m, openDocument(m, id)
		}
		return m, nil

	case key.Matches(msg, m.keymap.Toggle):
		if id := m.currentDocumentID(); id != "" && m.focus == paneDocuments {
			m.engine.ToggleSelection(id, !m.state.IsSelected(id))
		}
		return m, nil

	case key.Matches(msg, m.keymap.ToggleAll):
		m.engine.SelectAll(m.state.SelectAll != engine.Checked)
		return m, nil

	case key.Matches(msg, m.keymap.Delete):
		if id := m.currentDocumentID(); id != "" && m.focus == paneDocuments {
			return m.stageDelete(id)
		}
		return m, nil

	case key.Matches(msg, m.keymap.DeleteSel):
		if n := m.engine.StageBatchDelete(); n == 0 {
			m.statusMsg = "No documents checked."
			return m, nil
		}
		m.mode = modeConfirmBatch
		return m, nil

	case key.Matches(msg, m.keymap.Download):
		if id := m.currentDocumentID(); id != "" && m.focus == paneDocuments {
			return m, downloadLink(m, id)
		}
		return m, nil

	case key.Matches(msg, m.keymap.Upload):
		m.mode = modeUpload
		m.input.Reset()
		m.input.Placeholder = "Path of the file(s) to upload, separated by spaces"
		return m, m.input.Focus()

	case key.Matches(msg, m.keymap.Ingest):
		m.mode = modeIngest
		m.input.Reset()
		m.input.Placeholder = "Document name (optional)"
		m.input.Blur()
		m.textArea.Reset()
		return m, m.textArea.Focus()
	}

	return m, nil
}

func (m Model) stageDelete(id string) (tea.Model, tea.Cmd) {
	m.engine.StageDelete(id)
	m.mode = modeConfirmDelete
	return m, nil
}

// handleConfirmKey handles the delete confirmation prompt
func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	batch := m.mode == modeConfirmBatch

	switch msg.String() {
	case "y", "Y", "enter":
		m.mode = modeNormal
		m.statusMsg = "Deleting..."
		if batch {
			return m, confirmBatchDelete(m)
		}
		return m, confirmDelete(m)

	case "n", "N", "esc", "q":
		m.mode = modeNormal
		if batch {
			m.engine.CancelBatchDelete()
		} else {
			m.engine.CancelDelete()
		}
		m.statusMsg = "Deletion cancelled."
	}
	return m, nil
}

// handleUploadKey handles the upload path prompt
func (m Model) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		m.input.Blur()
		return m, nil
	case "enter":
		m.mode = modeNormal
		m.input.Blur()
		m.statusMsg = ""
		return m, uploadPaths(m, m.input.Value())
	}

	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleIngestKey handles the text ingest form
func (m Model) handleIngestKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		m.input.Blur()
		m.textArea.Blur()
		return m, nil

	case "tab":
		if m.input.Focused() {
			m.input.Blur()
			return m, m.textArea.Focus()
		}
		m.textArea.Blur()
		return m, m.input.Focus()

	case "ctrl+s":
		m.mode = modeNormal
		m.input.Blur()
		m.textArea.Blur()
		m.statusMsg = ""
		return m, ingestText(m, m.textArea.Value(), m.input.Value())
	}

	if m.input.Focused() {
		m.input, cmd = m.input.Update(msg)
	} else {
		m.textArea, cmd = m.textArea.Update(msg)
	}
	return m, cmd
}
