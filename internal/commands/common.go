package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/docsync/internal/app"
	"github.com/tildaslashalef/docsync/internal/engine"
	"github.com/tildaslashalef/docsync/internal/loggy"
	"github.com/tildaslashalef/docsync/internal/store"
	"github.com/tildaslashalef/docsync/internal/utils"
)

// consoleNotifier prints engine notifications to the terminal. A persistent
// notification is printed as progress; the one replacing it is printed as the outcome.
type consoleNotifier struct {
	out     io.Writer
	mu      sync.Mutex
	pending map[string]struct{}
}

func newConsoleNotifier(out io.Writer) *consoleNotifier {
	return &consoleNotifier{out: out, pending: make(map[string]struct{})}
}

func (n *consoleNotifier) Notify(note engine.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if note.Persistent {
		n.pending[note.ID] = struct{}{}
		fmt.Fprintf(n.out, "%s %s\n", color.CyanString("…"), note.Message)
		return
	}
	delete(n.pending, note.ID)

	var icon string
	switch note.Level {
	case engine.LevelSuccess:
		icon = color.GreenString("✓")
	case engine.LevelWarning:
		icon = color.YellowString("⚠")
	case engine.LevelError:
		icon = color.RedString("✗")
	default:
		icon = color.BlueString("ℹ")
	}

	if note.Title != "" {
		fmt.Fprintf(n.out, "%s %s: %s\n", icon, color.New(color.Bold).Sprint(note.Title), note.Message)
		return
	}
	fmt.Fprintf(n.out, "%s %s\n", icon, note.Message)
}

// cliHooks logs engine events
func cliHooks(logger *loggy.Logger) engine.Hooks {
	return engine.Hooks{
		OnDocumentUploaded: func(name string, size int64) {
			logger.Info("Document uploaded", "name", name, "size", size)
		},
		OnDocumentDeleted: func(name string) {
			logger.Info("Document deleted", "name", name)
		},
		OnDocumentOpened: func(name string) {
			logger.Debug("Document opened", "name", name)
		},
		OnFolderSelected: func(scope engine.Scope) {
			logger.Debug("Folder selected", "scope", scope.String())
		},
		OnRefreshRequested: func() {
			logger.Debug("Refresh requested")
		},
	}
}

// startEngine builds an engine with console output and activates it on the given scope
func startEngine(c *cli.Context, scope *engine.Scope) (*app.App, *engine.Engine, error) {
	application, err := app.FromContext(c)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get application from context: %w", err)
	}

	e := application.NewEngine(newConsoleNotifier(os.Stdout), cliHooks(application.Logger))
	if err := e.Activate(c.Context, scope); err != nil {
		return application, e, fmt.Errorf("failed to load from %s: %w", application.Store.BaseURL(), err)
	}
	return application, e, nil
}

// scopeFromFlags reads --folder and --all. An empty folder name falls back to all documents.
func scopeFromFlags(c *cli.Context) engine.Scope {
	if folder := c.String("folder"); folder != "" {
		return engine.FolderScope(folder)
	}
	return engine.AllScope()
}

func scopeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "folder",
			Aliases: []string{"f"},
			Usage:   "Restrict to documents of this folder",
		},
		&cli.BoolFlag{
			Name:    "all",
			Aliases: []string{"a"},
			Usage:   "Show documents of every folder (default when --folder is not set)",
		},
	}
}

// formatTime renders a store timestamp in local time, or as is when it is not RFC 3339
func formatTime(ts string) string {
	if ts == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func printFolders(folders []store.FolderSummary) {
	if len(folders) == 0 {
		utils.PrintInfo("No folders found.")
		return
	}

	rows := make([][]string, 0, len(folders))
	for _, f := range folders {
		count := "-"
		if f.DocCount != nil {
			count = fmt.Sprintf("%d", *f.DocCount)
		}
		rows = append(rows, []string{f.Name, f.ID, count, formatTime(f.UpdatedAt)})
	}

	opts := utils.DefaultTableOptions()
	opts.Title = "Folders"
	utils.PrintTable([]string{"Name", "ID", "Documents", "Updated"}, rows, opts)
}

func printDocuments(docs []store.Document, opts utils.TableOptions) {
	if len(docs) == 0 {
		utils.PrintInfo("No documents found.")
		return
	}

	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		folder := d.FolderName()
		if folder == "" {
			folder = "-"
		}
		status := d.Status()
		rows = append(rows, []string{
			d.ExternalID,
			d.DisplayName(),
			utils.StatusColors(status).Sprint(status),
			folder,
			formatTime(d.UpdatedAt()),
		})
	}

	utils.PrintTable([]string{"ID", "Name", "Status", "Folder", "Updated"}, rows, opts)
}

// waitSettled blocks until no document of the engine is processing
func waitSettled(ctx context.Context, e *engine.Engine) error {
	updates, unsubscribe := e.Subscribe()
	defer unsubscribe()

	for e.ProcessingCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-updates:
		}
	}
	return nil
}
