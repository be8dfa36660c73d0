// Package logging extends slog with the TRACE and FATAL severities and carries
// the process abort contract for fatal errors.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"golang.org/x/exp/slog"
)

const (
	LevelTrace   = slog.Level(-8)
	LevelDebug   = slog.LevelDebug
	LevelInfo    = slog.LevelInfo
	LevelWarning = slog.LevelWarn
	LevelError   = slog.LevelError
	LevelFatal   = slog.Level(12)
)

var levelNames = map[slog.Level]string{
	LevelTrace:   "TRACE",
	LevelDebug:   "DEBUG",
	LevelInfo:    "INFO",
	LevelWarning: "WARNING",
	LevelError:   "ERROR",
	LevelFatal:   "FATAL",
}

// LevelName renders a level using the six severity names, falling back to slog's
// offset notation for anything in between
func LevelName(level slog.Level) string {
	name, ok := levelNames[level]
	if ok {
		return name
	}
	return level.String()
}

// ParseLevel accepts the six severity names case-insensitively, plus WARN
func ParseLevel(str string) (slog.Level, error) {
	upper := strings.ToUpper(strings.TrimSpace(str))
	if upper == "WARN" {
		return LevelWarning, nil
	}
	for level, name := range levelNames {
		if name == upper {
			return level, nil
		}
	}
	return LevelInfo, errors.Newf("unknown log level %q", str)
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.LevelKey {
		return a
	}

	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	return slog.String(slog.LevelKey, LevelName(level))
}

// NewHandler returns a text handler writing to w that names levels TRACE..FATAL
func NewHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	})
}

func New(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(NewHandler(w, level))
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(NewHandler(io.Discard, LevelFatal))
}

func Trace(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

var exit = os.Exit

// Fatal emits err at FATAL with its error class and terminates the process with status 1
func Fatal(logger *slog.Logger, msg string, err error) {
	args := []any{slog.String("kind", gpu.Kind(err)), slog.Any("error", err)}
	if details := errors.FlattenDetails(err); details != "" {
		args = append(args, slog.String("detail", details))
	}

	logger.Log(context.Background(), LevelFatal, msg, args...)
	exit(1)
}
