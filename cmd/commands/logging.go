package commands

import (
	"log/slog"
	"os"
)

// configureLogging installs a stderr text handler. --debug wins over the
// configured level; unknown levels fall back to warn so logs stay out of
// the way of REPL output.
func configureLogging(debug bool, level string) {
	lvl := slog.LevelWarn
	if debug {
		lvl = slog.LevelDebug
	} else if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			lvl = slog.LevelWarn
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
