package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
)

// NewSessionsCommand returns the sessions subcommand.
func NewSessionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Manage chat sessions",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List all sessions",
				Action: runSessionsList,
			},
			{
				Name:      "show",
				Usage:     "Show messages in a session",
				ArgsUsage: "<session_id>",
				Action:    runSessionsShow,
			},
			{
				Name:      "close",
				Usage:     "Mark a session as closed",
				ArgsUsage: "<session_id>",
				Action:    runSessionsClose,
			},
		},
		DefaultCommand: "list",
	}
}

func runSessionsList(_ context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	list, err := store.List()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tMODEL\tMESSAGES\tTOKENS\tUPDATED\tTITLE")
	for _, s := range list {
		title := s.Title
		if title == "" {
			title = "-"
		}
		model := s.Model
		if model == "" {
			model = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d/%d\t%s\t%s\n",
			s.ID,
			s.Status,
			model,
			s.MessageCount,
			s.TokenUsage.Input, s.TokenUsage.Output,
			s.UpdatedAt.Format("2006-01-02 15:04"),
			title,
		)
	}
	return w.Flush()
}

func runSessionsShow(_ context.Context, cmd *cli.Command) error {
	sessionID := cmd.Args().First()
	if sessionID == "" {
		return fmt.Errorf("usage: arena sessions show <session_id>")
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	msgs, err := store.LoadMessages(sessionID)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}

	if len(msgs) == 0 {
		fmt.Println("No messages in this session.")
		return nil
	}

	for _, m := range msgs {
		role := m.Role
		if m.Model != "" {
			role += " (" + m.Model + ")"
		}
		fmt.Printf("[%s] %s: %s\n", m.Ts.Format("15:04:05"), role, m.Content)
	}
	return nil
}

func runSessionsClose(_ context.Context, cmd *cli.Command) error {
	sessionID := cmd.Args().First()
	if sessionID == "" {
		return fmt.Errorf("usage: arena sessions close <session_id>")
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	if err := store.Close(sessionID); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	fmt.Printf("Session %s closed.\n", sessionID)
	return nil
}
