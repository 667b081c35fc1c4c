package cli

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LIVEBAG_DOCUMENT", "LIVEBAG_LOG_FORMAT", "LIVEBAG_LOG_LEVEL", "LIVEBAG_TICK", "LIVEBAG_WATCH"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestParse_PositionalPath(t *testing.T) {
	clearEnv(t)
	cfg, exit, err := Parse([]string{"-log-level", "DEBUG", "scene.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "scene.hcl", cfg.DocumentPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 16*time.Millisecond, cfg.TickInterval)
	assert.True(t, cfg.Watch)
}

func TestParse_DocFlagWins(t *testing.T) {
	clearEnv(t)
	cfg, _, err := Parse([]string{"-doc", "a.json", "b.json"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "a.json", cfg.DocumentPath)
}

func TestParse_EnvDefaultsAndFlagOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIVEBAG_DOCUMENT", "env.json")
	t.Setenv("LIVEBAG_TICK", "40ms")
	t.Setenv("LIVEBAG_WATCH", "false")

	cfg, _, err := Parse([]string{"-tick", "5ms"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "env.json", cfg.DocumentPath)
	assert.Equal(t, 5*time.Millisecond, cfg.TickInterval)
	assert.False(t, cfg.Watch)

	cfg, _, err = Parse([]string{"other.json"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "other.json", cfg.DocumentPath)
}

func TestParse_NoPathPrintsUsage(t *testing.T) {
	clearEnv(t)
	out := &bytes.Buffer{}
	cfg, exit, err := Parse(nil, out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_Help(t *testing.T) {
	clearEnv(t)
	_, exit, err := Parse([]string{"-h"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.True(t, exit)
}

func TestParse_InvalidInput(t *testing.T) {
	for name, args := range map[string][]string{
		"log format":   {"-log-format", "xml", "p.json"},
		"log level":    {"-log-level", "loud", "p.json"},
		"unknown flag": {"-nope", "p.json"},
		"zero tick":    {"-tick", "0s", "p.json"},
	} {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			_, _, err := Parse(args, &bytes.Buffer{})
			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr))
			assert.Equal(t, 2, exitErr.Code)
		})
	}
}
