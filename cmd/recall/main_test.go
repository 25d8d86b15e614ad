package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestSetupLogger(t *testing.T) {
	run := func(level string) error {
		app := &cli.App{
			Name: "recall",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "log-level", Value: "info"},
			},
			Before: setupLogger,
			Action: func(*cli.Context) error { return nil },
		}
		return app.Run([]string{"recall", "--log-level", level})
	}

	for _, level := range []string{"debug", "info", "warn", "error", "INFO"} {
		require.NoError(t, run(level), "level %s", level)
	}

	err := run("verbose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "short", firstLine("short"))
	assert.Equal(t, "first", firstLine("first\nsecond"))

	long := strings.Repeat("x", 200)
	preview := firstLine(long)
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.Len(t, []rune(preview), 123)
}
