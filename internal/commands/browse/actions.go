package browse

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tildaslashalef/docsync/internal/engine"
	"github.com/tildaslashalef/docsync/internal/loggy"
	"github.com/tildaslashalef/docsync/internal/store"
	"github.com/tildaslashalef/docsync/internal/utils"
)

// waitForState blocks until the engine publishes a change
func waitForState(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return stateChangedMsg{}
	}
}

// waitForNotification blocks until the engine raises a notification
func waitForNotification(n *chanNotifier) tea.Cmd {
	return func() tea.Msg {
		return notificationMsg(n.next())
	}
}

// activate performs the initial load
func activate(m Model) tea.Cmd {
	return func() tea.Msg {
		loggy.Debug("Activating engine from browse TUI")
		return activatedMsg{Error: m.engine.Activate(m.ctx, m.initialScope)}
	}
}

func selectScope(m Model, scope engine.Scope) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{Action: "select", Error: m.engine.SetScope(m.ctx, scope)}
	}
}

func refresh(m Model) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{Action: "refresh", Error: m.engine.RequestRefresh(m.ctx)}
	}
}

func openDocument(m Model, id string) tea.Cmd {
	return func() tea.Msg {
		doc, err := m.engine.OpenDocument(m.ctx, id)
		return openedMsg{Document: doc, Error: err}
	}
}

func downloadLink(m Model, id string) tea.Cmd {
	return func() tea.Msg {
		u, err := m.engine.DownloadURL(m.ctx, id)
		if err == nil {
			if clipErr := utils.CopyToClipboard(u); clipErr != nil {
				loggy.Debug("Clipboard unavailable", "error", clipErr)
			}
		}
		return downloadMsg{URL: u, Error: err}
	}
}

func confirmDelete(m Model) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{Action: "delete", Error: m.engine.ConfirmDelete(m.ctx)}
	}
}

func confirmBatchDelete(m Model) tea.Cmd {
	return func() tea.Msg {
		_, err := m.engine.ConfirmBatchDelete(m.ctx)
		return actionDoneMsg{Action: "batch delete", Error: err}
	}
}

// uploadPaths uploads one or more whitespace-separated local paths
func uploadPaths(m Model, input string) tea.Cmd {
	return func() tea.Msg {
		paths := strings.Fields(input)
		if len(paths) == 0 {
			return actionDoneMsg{Action: "upload", Error: engine.ErrEmptyUpload, Local: true}
		}

		files := make([]store.File, 0, len(paths))
		for _, p := range paths {
			f, err := store.ReadFile(p)
			if err != nil {
				return actionDoneMsg{Action: "upload", Error: err, Local: true}
			}
			files = append(files, f)
		}

		form := m.engine.Form()
		form.Files = files
		m.engine.SetUploadForm(form)

		var err error
		if len(files) == 1 {
			_, err = m.engine.UploadFile(m.ctx)
		} else {
			_, err = m.engine.UploadFiles(m.ctx)
		}
		return actionDoneMsg{Action: "upload", Error: err}
	}
}

func ingestText(m Model, text, filename string) tea.Cmd {
	return func() tea.Msg {
		form := m.engine.Form()
		form.Text = text
		form.Filename = utils.SanitizeFilename(filename)
		m.engine.SetUploadForm(form)

		_, err := m.engine.UploadText(m.ctx)
		return actionDoneMsg{Action: "ingest", Error: err}
	}
}
