package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/docsync/internal/engine"
	"github.com/tildaslashalef/docsync/internal/utils"
)

// FoldersCommand returns the command listing folder summaries
func FoldersCommand() *cli.Command {
	return &cli.Command{
		Name:    "folders",
		Aliases: []string{"ls"},
		Usage:   "List folders of the remote store",
		Action:  foldersAction,
	}
}

func foldersAction(c *cli.Context) error {
	_, e, err := startEngine(c, nil)
	if err != nil {
		return err
	}

	printFolders(e.Folders())
	return nil
}

// DocsCommand returns the command listing documents of a scope
func DocsCommand() *cli.Command {
	return &cli.Command{
		Name:    "docs",
		Aliases: []string{"documents"},
		Usage:   "List documents of every folder or of a single folder",
		Flags: append(scopeFlags(),
			&cli.IntFlag{
				Name:  "page",
				Usage: "Show only this page of the listing",
			},
			&cli.IntFlag{
				Name:  "page-size",
				Value: 20,
				Usage: "Rows per page when --page is set",
			},
		),
		Action: docsAction,
	}
}

func docsAction(c *cli.Context) error {
	if c.Bool("all") && c.String("folder") != "" {
		return fmt.Errorf("--all and --folder are mutually exclusive")
	}

	scope := scopeFromFlags(c)
	_, e, err := startEngine(c, &scope)
	if err != nil {
		return err
	}

	docs := e.Documents()
	title := "All documents"
	if scope.Kind == engine.ScopeFolder {
		title = fmt.Sprintf("Folder %s", scope.FolderName())
	}
	opts := utils.DefaultTableOptions()
	opts.Title = title
	if c.IsSet("page") {
		opts.Page = c.Int("page")
		opts.PageSize = c.Int("page-size")
	}
	printDocuments(docs, opts)

	if n := e.ProcessingCount(); n > 0 {
		fmt.Fprintln(utils.Output)
		utils.PrintInfo(fmt.Sprintf("%d document(s) still processing. Run `docsync watch` to follow them.", n))
	}
	return nil
}
