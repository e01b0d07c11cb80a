package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/arena/internal/chat"
	"github.com/dohr-michael/arena/internal/versus"
)

// NewVsCommand returns the one-shot comparison command.
func NewVsCommand() *cli.Command {
	return &cli.Command{
		Name:      "vs",
		Usage:     "Send one prompt to several models and print every answer",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "models",
				Aliases: []string{"m"},
				Usage:   "Comma-separated models (defaults to vs.models from config)",
			},
		},
		Action: runVs,
	}
}

// runVs dispatches without selection: nothing is persisted. The prompt is
// read from stdin when no argument is given.
func runVs(ctx context.Context, cmd *cli.Command) error {
	prompt := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if prompt == "" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read prompt: %w", err)
		}
		prompt = strings.TrimSpace(string(b))
	}
	if prompt == "" {
		return errors.New("usage: arena vs [--models a,b] <prompt>")
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.config()
	ids := cfg.Vs.Models
	if list := cmd.String("models"); list != "" {
		ids = versus.ParseModelList(list)
	}

	state := versus.NewState(versus.StateConfig{
		Catalog: a.registry,
		Out:     os.Stderr,
		Bus:     a.bus,
	})
	if _, err := state.Enter(ids); err != nil {
		return err
	}

	console := a.console()
	batch, err := versus.NewDispatcher(state, a.registry, console, a.bus).Dispatch(ctx, chat.Input{
		Text:         prompt,
		SystemPrompt: cfg.Agent.SystemPrompt,
	})
	if err != nil {
		return err
	}
	if len(batch.Successes()) == 0 {
		return versus.ErrNoSelectableResults
	}
	return nil
}
