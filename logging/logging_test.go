package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestParseLevel(t *testing.T) {
	testCases := map[string]slog.Level{
		"trace":   LevelTrace,
		"DEBUG":   LevelDebug,
		" info ":  LevelInfo,
		"warning": LevelWarning,
		"WARN":    LevelWarning,
		"Error":   LevelError,
		"fatal":   LevelFatal,
	}

	for input, expected := range testCases {
		t.Run(input, func(t *testing.T) {
			level, err := ParseLevel(input)
			require.NoError(t, err)
			require.Equal(t, expected, level)
		})
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestHandlerNamesCustomLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelTrace)

	Trace(logger, "tracing")
	logger.Warn("warned")

	out := buf.String()
	require.Contains(t, out, "level=TRACE msg=tracing")
	require.Contains(t, out, "level=WARNING msg=warned")
}

func TestHandlerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo)

	Trace(logger, "hidden")
	logger.Debug("hidden too")
	require.Empty(t, buf.String())
}

func TestFatalExits(t *testing.T) {
	var code int
	exit = func(c int) { code = c }
	defer func() { exit = os.Exit }()

	var buf bytes.Buffer
	logger := New(&buf, LevelInfo)

	err := gpu.HardwareUnavailable(nil, "no adapters")
	err = errors.WithDetail(err, "checked 0 adapters")
	Fatal(logger, "could not initialize", err)

	require.Equal(t, 1, code)
	out := buf.String()
	require.Contains(t, out, "level=FATAL")
	require.Contains(t, out, "kind=HardwareUnavailable")
	require.Contains(t, out, "checked 0 adapters")
}
