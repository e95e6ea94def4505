package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/docsync/internal/engine"
	"github.com/tildaslashalef/docsync/internal/utils"
)

// DeleteCommand returns the command deleting documents
func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete one or more documents",
		ArgsUsage: "DOCUMENT_ID...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Skip the confirmation prompt",
			},
		},
		Action: deleteAction,
	}
}

func deleteAction(c *cli.Context) error {
	ids := dedupe(c.Args().Slice())
	if len(ids) == 0 {
		return fmt.Errorf("at least one document id is required")
	}

	scope := engine.AllScope()
	_, e, err := startEngine(c, &scope)
	if err != nil {
		return err
	}

	if len(ids) == 1 {
		return deleteOne(c, e, ids[0])
	}

	for _, id := range ids {
		e.ToggleSelection(id, true)
	}
	n := e.StageBatchDelete()

	if !c.Bool("yes") && !confirm(c, fmt.Sprintf("Delete %d documents?", n)) {
		e.CancelBatchDelete()
		utils.PrintInfo("Deletion cancelled")
		return nil
	}

	result, err := e.ConfirmBatchDelete(c.Context)
	if err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		for id, ferr := range result.Failed {
			utils.PrintError(fmt.Sprintf("%s: %v", id, ferr))
		}
		return fmt.Errorf("%s", result.Message())
	}
	return nil
}

func deleteOne(c *cli.Context, e *engine.Engine, id string) error {
	e.StageDelete(id)

	if !c.Bool("yes") && !confirm(c, fmt.Sprintf("Delete document %s?", color.YellowString("%s", id))) {
		e.CancelDelete()
		utils.PrintInfo("Deletion cancelled")
		return nil
	}

	if err := e.ConfirmDelete(c.Context); err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	return nil
}

// confirm asks a yes/no question on the app's reader. Anything but y/yes declines.
func confirm(c *cli.Context, question string) bool {
	fmt.Fprintf(c.App.Writer, "%s %s ", color.New(color.Bold).Sprint(question), color.HiBlackString("[y/N]"))

	answer, err := bufio.NewReader(c.App.Reader).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
