package browse

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/docsync/internal/app"
	"github.com/tildaslashalef/docsync/internal/engine"
	"github.com/tildaslashalef/docsync/internal/loggy"
)

// Command returns the browse command
func Command() *cli.Command {
	return &cli.Command{
		Name:    "browse",
		Aliases: []string{"ui"},
		Usage:   "Browse folders and documents in an interactive UI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "folder",
				Aliases: []string{"f"},
				Usage:   "Open with this folder selected",
			},
			&cli.BoolFlag{
				Name:    "all",
				Aliases: []string{"a"},
				Usage:   "Open with documents of every folder shown",
			},
		},
		Action: Action,
	}
}

// Action runs the browser
func Action(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return fmt.Errorf("failed to get application from context: %w", err)
	}

	var initial *engine.Scope
	switch {
	case c.String("folder") != "":
		s := engine.FolderScope(c.String("folder"))
		initial = &s
	case c.Bool("all"):
		s := engine.AllScope()
		initial = &s
	}

	notes := newChanNotifier(32)
	e := application.NewEngine(notes, tuiHooks(application.Logger))

	model := NewModel(c.Context, e, notes, initial)
	p := tea.NewProgram(model, tea.WithAltScreen())

	loggy.Debug("Starting browse TUI", "store_url", application.Store.BaseURL())

	if _, runErr := p.Run(); runErr != nil {
		loggy.Error("Error running browse TUI", "error", runErr)
		return fmt.Errorf("failed to run browse UI: %w", runErr)
	}

	loggy.Debug("Browse TUI finished.")
	return nil
}

// chanNotifier hands notifications to the UI loop without blocking the engine.
// While the buffer is full ordinary notifications are dropped, but persistent
// ones and the notifications replacing them are parked until the UI catches up.
type chanNotifier struct {
	ch     chan engine.Notification
	signal chan struct{}

	mu         sync.Mutex
	persistent map[string]bool
	parked     map[string]engine.Notification
	order      []string
}

func newChanNotifier(size int) *chanNotifier {
	return &chanNotifier{
		ch:         make(chan engine.Notification, size),
		signal:     make(chan struct{}, 1),
		persistent: make(map[string]bool),
		parked:     make(map[string]engine.Notification),
	}
}

func (n *chanNotifier) Notify(note engine.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	keep := note.Persistent || n.persistent[note.ID]
	if note.Persistent {
		n.persistent[note.ID] = true
	} else {
		delete(n.persistent, note.ID)
	}

	// Parked notifications go out first, so kept ones queue behind them
	if !keep || len(n.order) == 0 {
		select {
		case n.ch <- note:
			return
		default:
		}
	}

	if !keep {
		loggy.Warn("Notification dropped", "title", note.Title)
		return
	}

	if _, ok := n.parked[note.ID]; !ok {
		n.order = append(n.order, note.ID)
	}
	n.parked[note.ID] = note

	select {
	case n.signal <- struct{}{}:
	default:
	}
}

// next blocks until a notification is available. Buffered notifications come
// before parked ones.
func (n *chanNotifier) next() engine.Notification {
	for {
		select {
		case note := <-n.ch:
			return note
		default:
		}

		n.mu.Lock()
		if len(n.order) > 0 {
			id := n.order[0]
			n.order = n.order[1:]
			note := n.parked[id]
			delete(n.parked, id)
			n.mu.Unlock()
			return note
		}
		n.mu.Unlock()

		select {
		case note := <-n.ch:
			return note
		case <-n.signal:
		}
	}
}

func tuiHooks(logger *loggy.Logger) engine.Hooks {
	return engine.Hooks{
		OnDocumentUploaded: func(name string, size int64) {
			logger.Info("Document uploaded", "name", name, "size", size)
		},
		OnDocumentDeleted: func(name string) {
			logger.Info("Document deleted", "name", name)
		},
		OnFolderSelected: func(scope engine.Scope) {
			logger.Debug("Folder selected", "scope", scope.String())
		},
	}
}
