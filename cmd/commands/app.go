package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/arena/internal/config"
	"github.com/dohr-michael/arena/internal/events"
	"github.com/dohr-michael/arena/internal/models"
	"github.com/dohr-michael/arena/internal/render"
	"github.com/dohr-michael/arena/internal/secrets"
	"github.com/dohr-michael/arena/internal/sessions"
	"github.com/dohr-michael/arena/internal/storage"
	"github.com/dohr-michael/arena/internal/versus"
)

// app is the wiring shared by the commands that talk to models.
type app struct {
	configPath string
	cfg        *config.Config
	reloader   *config.Reloader
	keyring    *secrets.Keyring
	registry   *models.Live
	bus        *events.Bus
	store      sessions.Store
	eventLog   *storage.EventLogger
}

// loadConfig reads the --config file. A missing file yields defaults.
func loadConfig(cmd *cli.Command) (*config.Config, string, error) {
	configureLogging(cmd.Bool("debug"), "")
	path := cmd.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, path, err
		}
		slog.Warn("config not found, using defaults", "path", path)
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	}
	configureLogging(cmd.Bool("debug"), cfg.Events.LogLevel)
	return cfg, path, nil
}

func openStore(cfg *config.Config) (sessions.Store, error) {
	store, err := sessions.Open(cfg.Sessions.Driver, cfg.Sessions.Dir)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return store, nil
}

func closeStore(store sessions.Store) {
	if s, ok := store.(interface{ Shutdown() error }); ok {
		if err := s.Shutdown(); err != nil {
			slog.Warn("close session store", "error", err)
		}
	}
}

func loadApp(cmd *cli.Command) (*app, error) {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	keyring := secrets.NewKeyring(secrets.KeyPath())
	a := &app{
		configPath: path,
		cfg:        cfg,
		keyring:    keyring,
		registry:   models.NewLive(models.NewRegistry(cfg.Models, models.NewFactory(keyring))),
		bus:        events.NewBus(cfg.Events.BufferSize),
		store:      store,
	}
	a.eventLog = storage.NewEventLogger(cfg.Events.LogDir, a.bus)

	a.reloader = config.NewReloader(path, config.DotenvPath(), cfg)
	a.reloader.OnReload(func(c *config.Config) {
		a.registry.Swap(models.NewRegistry(c.Models, models.NewFactory(keyring)))
		a.bus.Publish(events.NewTypedEvent(events.SourceConfig,
			events.ConfigReloadedPayload{Path: path, Providers: len(c.Models.Providers)}))
	})
	return a, nil
}

// Close flushes the bus into the event log before releasing the store.
func (a *app) Close() {
	a.bus.Close()
	a.eventLog.Close()
	if n := a.bus.Dropped(); n > 0 {
		slog.Warn("events dropped, bus buffer too small", "dropped", n, "buffer_size", a.config().Events.BufferSize)
	}
	closeStore(a.store)
}

// config returns the live configuration.
func (a *app) config() *config.Config {
	return a.reloader.Current()
}

// console builds the terminal presenter from the render settings.
func (a *app) console() *versus.Console {
	cfg := a.config().Render
	color := render.ColorEnabled(cfg.Color, os.Stdout)

	width := func() (int, bool) {
		if cfg.Width > 0 {
			return cfg.Width, true
		}
		return render.Width(os.Stdout)
	}

	c := &versus.Console{
		Out:    os.Stdout,
		Err:    os.Stderr,
		Styles: render.NewStyles(color),
		Width:  width,
	}

	style := cfg.Style
	if !color {
		style = "plain"
	}
	wrap := cfg.Width
	if wrap <= 0 {
		wrap = render.TerminalWidth()
	}
	md, err := render.NewMarkdown(style, wrap)
	if err != nil {
		slog.Warn("markdown rendering disabled", "style", style, "error", err)
		return c
	}
	c.Markdown = md
	return c
}
