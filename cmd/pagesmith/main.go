package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pagesmith/cmd/pagesmith/commands"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{Out: os.Stdout}

	parser := kong.Parse(cli,
		kong.Name("pagesmith"),
		kong.Description("Build one-page business websites from a document of sections and export them as static sites."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
		kong.Bind(global),
	)

	if err := parser.Run(global, cli); err != nil {
		logger := global.Logger
		if logger == nil {
			logger = slog.Default()
		}
		adapter := errors.NewCLIErrorAdapter(cli.Verbose, logger)
		os.Exit(adapter.HandleError(err))
	}
}
