package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/docsync/internal/app"
	"github.com/tildaslashalef/docsync/internal/commands"
)

// Version information - populated at build time
var (
	Version    = "dev"
	BuildTime  = "unknown"
	CommitHash = "unknown"
	Author     = "unknown"
	Email      = "unknown"
)

var (
	globalFlags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config-dir",
			Usage:   "Directory holding the .env file and default log file (default: ~/.docsync)",
			EnvVars: []string{"DOCSYNC_CONFIG_DIR"},
		},
		&cli.StringFlag{
			Name:    "env-file",
			Aliases: []string{"e"},
			Usage:   "Path to an .env file (default: <config-dir>/.env)",
		},
	}
)

func main() {
	cliApp := &cli.App{
		Name:  "docsync",
		Usage: "Client for a remote document ingestion store",
		Description: "Docsync keeps a local view of the folders and documents held by a remote\n" +
			"ingestion store, uploads files and text, deletes documents, and follows\n" +
			"background processing until every document settles.",
		Version: fmt.Sprintf("%s (%s)", Version, CommitHash),
		Compiled: func() time.Time {
			t, err := time.Parse(time.RFC3339, BuildTime)
			if err != nil {
				return time.Now()
			}
			return t
		}(),
		Authors: []*cli.Author{
			{
				Name:  Author,
				Email: Email,
			},
		},
		Flags: globalFlags,
		Before: func(c *cli.Context) error {
			application, err := app.New(c.String("config-dir"), c.String("env-file"))
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			// Store the app instance in the context for later use
			c.App.Metadata = map[string]interface{}{
				"app": application,
			}

			return nil
		},
		After: func(c *cli.Context) error {
			if app, ok := c.App.Metadata["app"].(*app.App); ok {
				return app.Shutdown()
			}
			return nil
		},
		Commands: []*cli.Command{
			commands.FoldersCommand(),
			commands.DocsCommand(),
			commands.OpenCommand(),
			commands.UploadCommand(),
			commands.IngestCommand(),
			commands.DeleteCommand(),
			commands.WatchCommand(),
			commands.InboxCommand(),
			commands.BrowseCommand(),
		},
		Action: func(c *cli.Context) error {
			// Default action is the interactive browser
			return commands.BrowseCommand().Action(c)
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
