package browse

import (
	"github.com/tildaslashalef/docsync/internal/engine"
	"github.com/tildaslashalef/docsync/internal/store"
)

// Message types used within the browse TUI
type (
	// stateChangedMsg is sent whenever the engine published a change
	stateChangedMsg struct{}

	// notificationMsg carries an engine notification
	notificationMsg engine.Notification

	// activatedMsg is sent once the initial load finished
	activatedMsg struct {
		Error error
	}

	// openedMsg is sent when a document was fetched for the detail pane
	openedMsg struct {
		Document *store.Document
		Error    error
	}

	// downloadMsg is sent when a download link was resolved
	downloadMsg struct {
		URL   string
		Error error
	}

	// actionDoneMsg reports a finished mutation. The engine notifies the outcome
	// itself unless Local is set.
	actionDoneMsg struct {
		Action string
		Error  error
		Local  bool
	}
)
