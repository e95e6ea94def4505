package commands

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/docsync/internal/store"
	"github.com/tildaslashalef/docsync/internal/utils"
)

// OpenCommand returns the command showing a single document
func OpenCommand() *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Show a document and optionally its download link",
		ArgsUsage: "DOCUMENT_ID",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "download",
				Aliases: []string{"d"},
				Usage:   "Resolve a download link for the document",
			},
			&cli.BoolFlag{
				Name:  "copy",
				Usage: "Copy the download link to the clipboard (implies --download)",
			},
		},
		Action: openAction,
	}
}

func openAction(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("document id is required")
	}

	_, e, err := startEngine(c, nil)
	if err != nil {
		return err
	}

	doc, err := e.OpenDocument(c.Context, id)
	if err != nil {
		return fmt.Errorf("failed to open document %s: %w", id, err)
	}
	printDocument(doc)

	if !c.Bool("download") && !c.Bool("copy") {
		return nil
	}

	link, err := e.DownloadURL(c.Context, id)
	if err != nil {
		return fmt.Errorf("failed to get download link: %w", err)
	}
	utils.PrintKeyValue("Download", link)

	if c.Bool("copy") {
		if err := utils.CopyToClipboard(link); err != nil {
			utils.PrintWarning(fmt.Sprintf("Could not copy to clipboard: %v", err))
		} else {
			utils.PrintSuccess("Download link copied to clipboard")
		}
	}
	return nil
}

func printDocument(doc *store.Document) {
	utils.PrintHeading(doc.DisplayName())
	utils.PrintDivider()
	utils.PrintKeyValue("ID", doc.ExternalID)
	status := doc.Status()
	utils.PrintKeyValueWithColor("Status", status, utils.StatusColors(status))
	if folder := doc.FolderName(); folder != "" {
		utils.PrintKeyValue("Folder", folder)
	}
	if doc.ContentType != "" {
		utils.PrintKeyValue("Content type", doc.ContentType)
	}
	utils.PrintKeyValue("Updated", formatTime(doc.UpdatedAt()))

	if len(doc.Metadata) > 0 {
		if data, err := json.MarshalIndent(doc.Metadata, "", "  "); err == nil {
			utils.PrintKeyValue("Metadata", "\n"+string(data))
		}
	}
}
