// Package logging builds the viewer's slog handler.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/muesli/termenv"
)

// levelColors are ANSI palette indices per level.
var levelColors = map[slog.Level]string{
	slog.LevelDebug: "8",
	slog.LevelInfo:  "4",
	slog.LevelWarn:  "3",
	slog.LevelError: "1",
}

// ParseLevel maps debug, info, warn or error (any case) to a slog.Level.
//
// Parameters:
//   - s: the level name
//
// Returns:
//   - slog.Level: the parsed level
//   - error: an error if s names no level
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// NewHandler returns a text handler writing to w. When w is a color terminal the level
// is colored; otherwise the output is plain.
//
// Parameters:
//   - w: the destination
//   - level: the minimum level to emit
//
// Returns:
//   - slog.Handler: the handler
func NewHandler(w io.Writer, level slog.Leveler) slog.Handler {
	profile := termenv.NewOutput(w).EnvColorProfile()
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 || a.Key != slog.LevelKey {
				return a
			}
			lvl, ok := a.Value.Any().(slog.Level)
			if !ok {
				return a
			}
			return slog.String(a.Key, colorLevel(profile, lvl))
		},
	})
}

func colorLevel(profile termenv.Profile, lvl slog.Level) string {
	if profile == termenv.Ascii {
		return lvl.String()
	}
	code, ok := levelColors[lvl]
	if !ok {
		return lvl.String()
	}
	return termenv.String(lvl.String()).Foreground(profile.Color(code)).String()
}

// Setup installs a handler on w as the slog default and returns its logger.
//
// Parameters:
//   - w: the destination
//   - level: the level name (see ParseLevel)
//
// Returns:
//   - *slog.Logger: the installed logger
//   - error: an error if level is invalid; the logger then runs at Info
func Setup(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	logger := slog.New(NewHandler(w, lvl))
	slog.SetDefault(logger)
	return logger, err
}
