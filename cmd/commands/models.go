package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/arena/internal/models"
	"github.com/dohr-michael/arena/internal/secrets"
)

// NewModelsCommand returns the models subcommand.
func NewModelsCommand() *cli.Command {
	return &cli.Command{
		Name:   "models",
		Usage:  "List configured chat models",
		Action: runModels,
	}
}

func runModels(_ context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	registry := models.NewRegistry(cfg.Models, models.NewFactory(secrets.NewKeyring(secrets.KeyPath())))
	return writeModelTable(os.Stdout, registry)
}

func writeModelTable(out io.Writer, registry *models.Registry) error {
	list := registry.List(models.KindChat)
	if len(list) == 0 {
		fmt.Fprintln(out, "No models configured.")
		return nil
	}

	def, _ := registry.Default()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDRIVER\tMODEL\tCONTEXT\tDEFAULT")
	for _, m := range list {
		mark := ""
		if m.ID == def.ID {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			m.ID,
			m.Config.Driver,
			m.Name,
			registry.ContextWindow(m),
			mark,
		)
	}
	return w.Flush()
}
