package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/docsync/internal/engine"
	"github.com/tildaslashalef/docsync/internal/inbox"
	"github.com/tildaslashalef/docsync/internal/store"
	"github.com/tildaslashalef/docsync/internal/utils"
)

// WatchCommand returns the command following document processing until it settles
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Follow processing documents until none is left",
		Flags: append(scopeFlags(),
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Give up after this long (0 waits forever)",
			},
		),
		Action: watchAction,
	}
}

func watchAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := c.Duration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	scope := scopeFromFlags(c)
	_, e, err := startEngine(c, &scope)
	if err != nil {
		return err
	}

	if e.ProcessingCount() == 0 {
		utils.PrintSuccess("Nothing is processing")
		return nil
	}

	statuses := make(map[string]string)
	for _, d := range e.Documents() {
		statuses[d.ExternalID] = d.Status()
	}
	utils.PrintInfo(fmt.Sprintf("Waiting for %d document(s) to finish processing", e.ProcessingCount()))

	updates, unsubscribe := e.Subscribe()
	defer unsubscribe()

	for e.ProcessingCount() > 0 {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("timed out with %d document(s) still processing", e.ProcessingCount())
			}
			return nil
		case <-updates:
			reportTransitions(e.Documents(), statuses)
		}
	}

	reportTransitions(e.Documents(), statuses)
	utils.PrintSuccess("All documents settled")
	return nil
}

// reportTransitions prints every document whose status differs from the last one seen
func reportTransitions(docs []store.Document, seen map[string]string) {
	for _, d := range docs {
		status := d.Status()
		prev, ok := seen[d.ExternalID]
		seen[d.ExternalID] = status
		if !ok || prev == status {
			continue
		}
		fmt.Printf("%s %s %s → %s\n",
			color.CyanString("•"),
			d.DisplayName(),
			utils.StatusColors(prev).Sprint(prev),
			utils.StatusColors(status).Sprint(status))
	}
}

// InboxCommand returns the command uploading files dropped into a directory
func InboxCommand() *cli.Command {
	return &cli.Command{
		Name:      "inbox",
		Usage:     "Watch a directory and upload new files into a folder",
		ArgsUsage: "DIR",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "folder",
				Aliases:  []string{"f"},
				Usage:    "Folder the files are uploaded into",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "include",
				Aliases: []string{"i"},
				Usage:   "Glob matched against file names (default from DOCSYNC_INBOX_INCLUDE)",
			},
			&cli.StringFlag{
				Name:    "metadata",
				Aliases: []string{"m"},
				Usage:   "Metadata attached to every upload, as a JSON object",
				Value:   "{}",
			},
			&cli.StringFlag{
				Name:    "rules",
				Aliases: []string{"r"},
				Usage:   "Ingestion rules attached to every upload, as a JSON array",
				Value:   "[]",
			},
			&cli.BoolFlag{
				Name:  "colpali",
				Usage: "Use the image-based processing mode (default from DOCSYNC_UPLOAD_USE_COLPALI)",
			},
			&cli.BoolFlag{
				Name:  "existing",
				Usage: "Also upload files already in the directory",
			},
		},
		Action: inboxAction,
	}
}

func inboxAction(c *cli.Context) error {
	dir := c.Args().First()
	if dir == "" {
		return fmt.Errorf("directory is required")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	scope := engine.FolderScope(c.String("folder"))
	application, e, err := startEngine(c, &scope)
	if err != nil {
		return err
	}

	include := c.String("include")
	if include == "" {
		include = application.Config.Inbox.Include
	}
	useColpali := application.Config.Upload.UseColpali
	if c.IsSet("colpali") {
		useColpali = c.Bool("colpali")
	}

	w, err := inbox.New(e, inbox.Options{
		Dir:          dir,
		Include:      include,
		Debounce:     application.Config.Inbox.Debounce,
		Metadata:     c.String("metadata"),
		Rules:        c.String("rules"),
		UseColpali:   useColpali,
		ScanExisting: c.Bool("existing"),
	}, application.Logger)
	if err != nil {
		return err
	}

	utils.PrintInfo(fmt.Sprintf("Watching %s for %s, uploading into %s. Press Ctrl+C to stop.",
		color.YellowString("%s", dir), color.YellowString("%s", include), color.YellowString("%s", scope.FolderName())))

	runErr := w.Run(ctx)

	stats := w.Stats()
	utils.PrintKeyValue("Uploaded", fmt.Sprintf("%d", stats.Uploaded))
	utils.PrintKeyValue("Failed", fmt.Sprintf("%d", stats.Failed))
	utils.PrintKeyValue("Skipped", fmt.Sprintf("%d", stats.Skipped))

	return runErr
}
