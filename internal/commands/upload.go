package commands

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/docsync/internal/engine"
	"github.com/tildaslashalef/docsync/internal/inbox"
	"github.com/tildaslashalef/docsync/internal/store"
	"github.com/tildaslashalef/docsync/internal/utils"
)

func uploadOptionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "folder",
			Aliases: []string{"f"},
			Usage:   "Upload into this folder",
		},
		&cli.StringFlag{
			Name:    "metadata",
			Aliases: []string{"m"},
			Usage:   "Metadata as a JSON object",
			Value:   "{}",
		},
		&cli.StringFlag{
			Name:    "rules",
			Aliases: []string{"r"},
			Usage:   "Ingestion rules as a JSON array",
			Value:   "[]",
		},
		&cli.BoolFlag{
			Name:  "colpali",
			Usage: "Use the image-based processing mode (default from DOCSYNC_UPLOAD_USE_COLPALI)",
		},
	}
}

// UploadCommand returns the command uploading one or more files
func UploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Aliases:   []string{"up"},
		Usage:     "Upload files, or every matching file of a directory",
		ArgsUsage: "FILE_OR_DIR...",
		Flags: append(uploadOptionFlags(),
			&cli.StringFlag{
				Name:    "include",
				Aliases: []string{"i"},
				Usage:   "Glob matched against file names found in directories (e.g. \"*.{pdf,md}\")",
				Value:   "*",
			},
			&cli.BoolFlag{
				Name:    "wait",
				Aliases: []string{"w"},
				Usage:   "Wait until the uploaded documents finish processing",
			},
		),
		Action: uploadAction,
	}
}

func uploadAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file or directory is required")
	}

	filter, err := inbox.NewFilter(c.String("include"))
	if err != nil {
		return err
	}

	paths, err := collectFiles(c.Args().Slice(), filter)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		utils.PrintWarning(fmt.Sprintf("No files matching %q found", filter.Pattern()))
		return nil
	}

	files := make([]store.File, 0, len(paths))
	for _, p := range paths {
		f, err := store.ReadFile(p)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	scope := uploadScope(c)
	_, e, err := startEngine(c, &scope)
	if err != nil {
		return err
	}

	listed := make([]string, 0, len(files))
	for _, f := range files {
		listed = append(listed, fmt.Sprintf("%s (%s)", f.Name, utils.HumanSize(f.Size())))
	}
	target := "the store"
	if name := scope.FolderName(); name != "" {
		target = "folder " + name
	}
	utils.PrintHeading(fmt.Sprintf("Uploading %d file(s) to %s", len(files), target))
	utils.PrintList(listed)

	form := e.Form()
	form.Files = files
	applyUploadFlags(c, &form)
	e.SetUploadForm(form)

	if len(files) == 1 {
		if _, err := e.UploadFile(c.Context); err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
	} else {
		result, err := e.UploadFiles(c.Context)
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		if len(result.Errors) > 0 {
			rows := make([][]string, 0, len(result.Errors))
			for _, ue := range result.Errors {
				rows = append(rows, []string{ue.Filename, ue.Error})
			}
			opts := utils.DefaultTableOptions()
			opts.Title = "Rejected files"
			utils.PrintTable([]string{"File", "Error"}, rows, opts)
		}
	}

	if c.Bool("wait") {
		return waitSettled(c.Context, e)
	}
	return nil
}

// IngestCommand returns the command ingesting raw text
func IngestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Ingest text from --text or standard input",
		ArgsUsage: "[-]",
		Flags: append(uploadOptionFlags(),
			&cli.StringFlag{
				Name:    "text",
				Aliases: []string{"t"},
				Usage:   "Text to ingest; reads standard input when empty or when the argument is -",
			},
			&cli.StringFlag{
				Name:    "filename",
				Aliases: []string{"n"},
				Usage:   "Name of the ingested document (a random name is generated when empty)",
			},
		),
		Action: ingestAction,
	}
}

func ingestAction(c *cli.Context) error {
	text := c.String("text")
	if text == "" || c.Args().First() == "-" {
		in, err := store.ReadAll("standard input", c.App.Reader)
		if err != nil {
			return err
		}
		text = string(in.Data)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("nothing to ingest: text is empty")
	}

	scope := uploadScope(c)
	_, e, err := startEngine(c, &scope)
	if err != nil {
		return err
	}

	form := e.Form()
	form.Text = text
	form.Filename = utils.SanitizeFilename(c.String("filename"))
	applyUploadFlags(c, &form)
	e.SetUploadForm(form)

	if _, err := e.UploadText(c.Context); err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return nil
}

// uploadScope selects the folder uploads land in
func uploadScope(c *cli.Context) engine.Scope {
	if folder := c.String("folder"); folder != "" {
		return engine.FolderScope(folder)
	}
	return engine.AllScope()
}

func applyUploadFlags(c *cli.Context, form *engine.UploadForm) {
	form.Metadata = c.String("metadata")
	form.Rules = c.String("rules")
	if c.IsSet("colpali") {
		form.UseColpali = c.Bool("colpali")
	}
}

// collectFiles expands directories into the files below them that pass the filter.
// Files named explicitly are always kept.
func collectFiles(args []string, filter *inbox.Filter) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("error accessing %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if filter.Match(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking %s: %w", arg, err)
		}
	}
	return paths, nil
}
