package commands

import (
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/docsync/internal/commands/browse"
)

// BrowseCommand returns the interactive browser command
func BrowseCommand() *cli.Command {
	return browse.Command()
}
