package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/arena/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "arena",
		Usage: "Put several chat models side by side and keep the best answer",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewInitCommand(),
			NewReplCommand(),
			NewVsCommand(),
			NewModelsCommand(),
			NewSessionsCommand(),
			NewSecretsCommand(),
		},
		DefaultCommand: "repl",
	}
}
