package utils

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Output receives everything the Print helpers write
var Output io.Writer = os.Stdout

// Theme holds the Gruvbox-like colors shared by the command output
var Theme = struct {
	Success text.Colors
	Info    text.Colors
	Warning text.Colors
	Error   text.Colors
	Heading text.Colors
	Subtle  text.Colors
	Accent  text.Colors
	Key     text.Colors

	TableHeader text.Colors
	TableBorder text.Colors
	TableRow    text.Colors
	TableAltRow text.Colors
}{
	Success: text.Colors{text.FgGreen},
	Info:    text.Colors{text.FgBlue},
	Warning: text.Colors{text.FgYellow},
	Error:   text.Colors{text.FgRed},
	Heading: text.Colors{text.FgHiCyan, text.Bold},
	Subtle:  text.Colors{text.FgHiBlack},
	Accent:  text.Colors{text.FgCyan},
	Key:     text.Colors{text.Bold},

	TableHeader: text.Colors{text.FgHiBlue, text.Bold},
	TableBorder: text.Colors{text.FgBlue},
	TableRow:    text.Colors{text.FgWhite},
	TableAltRow: text.Colors{text.FgWhite, text.Faint},
}

// StatusColors maps a document processing status to its display color
func StatusColors(status string) text.Colors {
	switch status {
	case "completed":
		return Theme.Success
	case "processing":
		return Theme.Warning
	case "failed":
		return Theme.Error
	default:
		return Theme.Subtle
	}
}

func printMarked(mark text.Colors, symbol, message string) {
	fmt.Fprintln(Output, mark.Sprint(symbol)+" "+message)
}

// PrintHeading prints a section heading
func PrintHeading(title string) {
	fmt.Fprintln(Output, Theme.Heading.Sprint(title))
}

func PrintSuccess(message string) { printMarked(Theme.Success, "✓", message) }
func PrintInfo(message string)    { printMarked(Theme.Info, "ℹ", message) }
func PrintWarning(message string) { printMarked(Theme.Warning, "⚠", message) }
func PrintError(message string)   { printMarked(Theme.Error, "✗", message) }

// PrintKeyValue prints "key: value"
func PrintKeyValue(key, value string) {
	PrintKeyValueWithColor(key, value, nil)
}

// PrintKeyValueWithColor prints "key: value" with the value in colors
func PrintKeyValueWithColor(key, value string, colors text.Colors) {
	if len(colors) > 0 {
		value = colors.Sprint(value)
	}
	fmt.Fprintf(Output, "%s: %s\n", Theme.Key.Sprint(key), value)
}

// PrintDivider prints a horizontal rule
func PrintDivider() {
	fmt.Fprintln(Output, Theme.Subtle.Sprint(strings.Repeat("-", 51)))
}

// PrintList prints one bulleted line per item
func PrintList(items []string) {
	for _, item := range items {
		fmt.Fprintf(Output, "  %s %s\n", Theme.Accent.Sprint("•"), item)
	}
}

// TableOptions controls table rendering. A zero PageSize disables pagination.
type TableOptions struct {
	Title    string
	Output   io.Writer
	PageSize int
	Page     int
}

// DefaultTableOptions returns unpaginated options writing to Output
func DefaultTableOptions() TableOptions {
	return TableOptions{Title: "Docsync", Output: Output}
}

func newTable(opts TableOptions) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(opts.Output)
	if opts.Title != "" {
		t.SetTitle(opts.Title)
	}

	style := table.StyleDouble
	style.Color.Header = Theme.TableHeader
	style.Color.Border = Theme.TableBorder
	style.Color.Row = Theme.TableRow
	style.Color.RowAlternate = Theme.TableAltRow
	style.Title.Colors = Theme.Heading
	style.Title.Align = text.AlignCenter
	style.Options.SeparateRows = false
	style.Box.PaddingLeft = " "
	style.Box.PaddingRight = " "
	t.SetStyle(style)

	return t
}

// PrintTable renders headers and rows, one page of them when PageSize is set
func PrintTable(headers []string, rows [][]string, opts TableOptions) {
	if opts.Output == nil {
		opts.Output = Output
	}
	t := newTable(opts)

	header := make(table.Row, 0, len(headers))
	configs := make([]table.ColumnConfig, 0, len(headers))
	for i, h := range headers {
		header = append(header, h)
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter})
	}
	t.AppendHeader(header)
	t.SetColumnConfigs(configs)

	start, end, page, pages := pageBounds(len(rows), opts.PageSize, opts.Page)
	for _, r := range rows[start:end] {
		row := make(table.Row, 0, len(r))
		for _, cell := range r {
			row = append(row, cell)
		}
		t.AppendRow(row)
	}
	t.Render()

	if opts.PageSize > 0 {
		fmt.Fprintln(opts.Output, Theme.Subtle.Sprintf("Page %d of %d", page, pages))
	}
}

// pageBounds returns the row window of a 1-based page, clamping page into range
func pageBounds(n, size, page int) (start, end, clamped, pages int) {
	if size <= 0 {
		return 0, n, 1, 1
	}
	pages = max((n+size-1)/size, 1)
	clamped = min(max(page, 1), pages)
	start = min((clamped-1)*size, n)
	end = min(start+size, n)
	return start, end, clamped, pages
}
