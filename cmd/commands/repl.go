package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/arena/internal/chat"
	"github.com/dohr-michael/arena/internal/events"
	"github.com/dohr-michael/arena/internal/models"
	"github.com/dohr-michael/arena/internal/storage"
	"github.com/dohr-michael/arena/internal/versus"
)

// NewReplCommand returns the interactive chat command.
func NewReplCommand() *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "Interactive chat; use .vs to compare several models",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "session",
				Aliases: []string{"s"},
				Usage:   "Resume an existing session",
			},
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Model to chat with (provider or provider:model)",
			},
			&cli.StringFlag{
				Name:  "vs",
				Usage: "Start in versus mode with these comma-separated models",
			},
		},
		Action: runRepl,
	}
}

type repl struct {
	app        *app
	conv       *chat.Conversation
	state      *versus.State
	dispatcher *versus.Dispatcher
	selector   *versus.Selector
	console    *versus.Console
	in         *bufio.Reader
	out        io.Writer
}

func runRepl(ctx context.Context, cmd *cli.Command) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.config()
	opts := chat.Options{
		SystemPrompt: cfg.Agent.SystemPrompt,
		Compression:  cfg.Agent.Compression,
		Bus:          a.bus,
	}

	var conv *chat.Conversation
	var current models.Model
	if id := cmd.String("session"); id != "" {
		conv, err = chat.Resume(a.store, a.registry, id, opts)
		if err != nil {
			return fmt.Errorf("resume session %s: %w", id, err)
		}
		if sess, err := conv.Session(); err == nil && sess.Model != "" {
			if m, err := a.registry.Retrieve(sess.Model, models.KindChat); err == nil {
				current = m
			} else {
				slog.Warn("session model unavailable, using default", "model", sess.Model, "error", err)
			}
		}
	}

	if id := cmd.String("model"); id != "" {
		current, err = a.registry.Retrieve(id, models.KindChat)
		if err != nil {
			return err
		}
	}
	if current.IsZero() {
		current, err = a.registry.Default()
		if err != nil {
			return fmt.Errorf("no model available: %w", err)
		}
	}

	if conv == nil {
		conv, err = chat.Start(a.store, a.registry, current, opts)
		if err != nil {
			return err
		}
	} else if err := conv.SetModel(current); err != nil {
		return err
	}
	defer func() {
		if err := conv.Close(); err != nil {
			slog.Warn("close session", "session_id", conv.SessionID(), "error", err)
		}
	}()

	tracker := storage.NewCostTracker(a.bus, conv)
	defer tracker.Close()

	console := a.console()
	stdin := bufio.NewReader(os.Stdin)
	state := versus.NewState(versus.StateConfig{
		Catalog: a.registry,
		Record:  conv,
		Model:   current,
		Out:     os.Stdout,
		Bus:     a.bus,
	})

	r := &repl{
		app:        a,
		conv:       conv,
		state:      state,
		dispatcher: versus.NewDispatcher(state, a.registry, console, a.bus),
		selector:   versus.NewSelector(state, stdin, os.Stdout, console.Styles, a.bus),
		console:    console,
		in:         stdin,
		out:        os.Stdout,
	}

	if list := cmd.String("vs"); list != "" {
		if _, err := state.Enter(versus.ParseModelList(list)); err != nil {
			return err
		}
	}

	return r.run(events.ContextWithSessionID(ctx, conv.SessionID()))
}

func (r *repl) run(ctx context.Context) error {
	fmt.Fprintf(r.out, "Session %s. Type .help for commands.\n", r.conv.SessionID())
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(r.out, r.console.Styles.Prompt.Render(r.prompt()))

		line, err := r.in.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			quit, err := r.command(line)
			if err != nil {
				r.printErr(err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := r.ask(ctx, line); err != nil {
			if errors.Is(err, versus.ErrSelectionAborted) {
				return nil
			}
			r.printErr(err)
		}
	}
}

func (r *repl) prompt() string {
	if mode := r.state.Mode(); mode != nil {
		return "vs(" + strings.Join(mode.IDs(), ",") + ")> "
	}
	return r.state.Model().ID + "> "
}

// ask sends one line either to every versus model or to the session model.
func (r *repl) ask(ctx context.Context, text string) error {
	in, err := r.conv.NewInput(text, r.state.Model())
	if err != nil {
		return err
	}

	if r.state.Active() {
		batch, err := r.dispatcher.Dispatch(ctx, in)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		_, err = r.selector.Select(ctx, in, batch)
		return err
	}

	m := r.state.Model()
	client, err := r.app.registry.Client(ctx, m)
	if err != nil {
		return err
	}
	reply, err := chat.Generate(ctx, client, in, r.app.bus)
	if err != nil {
		return err
	}
	r.print(reply.Content)
	return r.conv.Commit(ctx, in, reply.Content, m)
}

func (r *repl) print(content string) {
	out := content
	if r.console.Markdown != nil {
		if rendered, err := r.console.Markdown.Render(content); err == nil {
			out = rendered
		}
	}
	fmt.Fprintln(r.out, out)
}

func (r *repl) printErr(err error) {
	fmt.Fprintln(os.Stderr, r.console.Styles.Error.Render("Error: "+versus.ErrorText(err)))
}

const replHelp = `Commands:
  .vs [a,b,...]   enter versus mode (defaults to vs.models from config)
  .exit vs        leave versus mode
  .model [id]     show or switch the session model
  .models         list configured chat models
  .info           show session details
  .reload         reload config and .env
  .help           show this help
  .exit, .quit    leave arena
`

// command runs a dot-command. It reports whether the REPL should stop.
func (r *repl) command(line string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ".exit", ".quit":
		if name == ".exit" && strings.EqualFold(arg, "vs") {
			if !r.state.Active() {
				return false, versus.ErrModeInactive
			}
			r.state.Exit()
			fmt.Fprintln(r.out, "VS mode exited")
			return false, nil
		}
		return true, nil

	case ".vs":
		ids := r.app.config().Vs.Models
		if arg != "" {
			ids = versus.ParseModelList(arg)
		}
		if len(ids) == 0 {
			return false, errors.New("usage: .vs provider[:model],provider[:model][,...]")
		}
		_, err := r.state.Enter(ids)
		return false, err

	case ".model":
		if arg == "" {
			fmt.Fprintln(r.out, r.state.Model().ID)
			return false, nil
		}
		m, err := r.app.registry.Retrieve(arg, models.KindChat)
		if err != nil {
			return false, err
		}
		if err := r.state.SetModel(m); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "Model set to %s\n", m.ID)
		return false, nil

	case ".models":
		return false, writeModelTable(r.out, r.app.registry.Current())

	case ".info":
		return false, r.info()

	case ".reload":
		if err := r.app.reloader.Reload(); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "Configuration reloaded")
		return false, nil

	case ".help":
		fmt.Fprint(r.out, replHelp)
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s (try .help)", name)
	}
}

func (r *repl) info() error {
	sess, err := r.conv.Session()
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Session:  %s\n", sess.ID)
	fmt.Fprintf(r.out, "Model:    %s\n", r.state.Model().ID)
	if mode := r.state.Mode(); mode != nil {
		fmt.Fprintf(r.out, "VS:       %s\n", strings.Join(mode.IDs(), ", "))
	}
	fmt.Fprintf(r.out, "Messages: %d\n", sess.MessageCount)
	fmt.Fprintf(r.out, "Tokens:   in=%d out=%d\n", sess.TokenUsage.Input, sess.TokenUsage.Output)

	if agg, results, ok := lastRound(r.app.bus.History(r.app.config().Events.BufferSize), sess.ID); ok {
		fmt.Fprintf(r.out, "Last round: %d/%d answered in %s\n", agg.Succeeded, agg.Total, agg.Duration.Round(time.Millisecond))
		for _, p := range results {
			status := p.Duration.Round(time.Millisecond).String()
			if !p.Success {
				status = "error: " + p.Error
			}
			fmt.Fprintf(r.out, "  [%d] %s %s\n", p.Rank, p.Model, status)
		}
	}
	return nil
}

// lastRound finds the latest completed vs round of a session in the bus
// history and returns its results in rank order.
func lastRound(history []events.Event, sessionID string) (events.VsAggregatedPayload, []events.VsResultPayload, bool) {
	var agg events.VsAggregatedPayload
	found := false
	for i := len(history) - 1; i >= 0 && !found; i-- {
		if history[i].SessionID != sessionID {
			continue
		}
		agg, found = events.ExtractPayload[events.VsAggregatedPayload](history[i])
	}
	if !found {
		return agg, nil, false
	}

	var results []events.VsResultPayload
	for _, e := range history {
		if e.SessionID != sessionID {
			continue
		}
		if p, ok := events.GetVsResultPayload(e); ok && p.Round == agg.Round {
			results = append(results, p)
		}
	}
	slices.SortFunc(results, func(a, b events.VsResultPayload) int { return a.Rank - b.Rank })
	return agg, results, true
}
