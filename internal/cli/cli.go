package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/livebag/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments on top of the LIVEBAG_* environment.
// It returns a populated Config, a boolean indicating if the program should
// exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	cfg, err := app.ConfigFromEnv()
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	flagSet := flag.NewFlagSet("livebag", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
Livebag - A hot-reloaded parameter document driving a live scene.

Usage:
  livebag [options] [DOCUMENT_PATH]

Arguments:
  DOCUMENT_PATH
    Path to the parameter document. Files ending in .json are JSON,
    anything else is HCL. Every option can also be set through its
    LIVEBAG_* environment variable.

Options:
`)
		flagSet.PrintDefaults()
	}

	flagSet.StringVar(&cfg.DocumentPath, "doc", cfg.DocumentPath, "Path to the parameter document.")
	flagSet.StringVar(&cfg.DocumentPath, "d", cfg.DocumentPath, "Path to the parameter document (shorthand).")
	flagSet.IntVar(&cfg.HealthcheckPort, "healthcheck-port", cfg.HealthcheckPort, "Port for the HTTP health check and metrics server. 0 is disabled.")
	flagSet.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log output format. Options: 'text' or 'json'.")
	flagSet.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flagSet.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "Interval between scene updates.")
	flagSet.DurationVar(&cfg.ReloadIdle, "reload-idle", cfg.ReloadIdle, "Reload worker sleep when it has nothing to do.")
	flagSet.DurationVar(&cfg.Debounce, "debounce", cfg.Debounce, "Quiet period after a document change before reloading.")
	flagSet.BoolVar(&cfg.Watch, "watch", cfg.Watch, "Reload the document when it changes on disk.")
	flagSet.BoolVar(&cfg.CreateMissing, "create-missing", cfg.CreateMissing, "Write the default document if it does not exist.")
	flagSet.BoolVar(&cfg.SaveOnExit, "save-on-exit", cfg.SaveOnExit, "Save the document on shutdown.")
	flagSet.StringVar(&cfg.TweakURL, "tweak-url", cfg.TweakURL, "Socket.IO URL of the tweak UI. Empty is disabled.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	docFlagSet := false
	flagSet.Visit(func(f *flag.Flag) {
		if f.Name == "doc" || f.Name == "d" {
			docFlagSet = true
		}
	})
	if !docFlagSet && flagSet.NArg() > 0 {
		cfg.DocumentPath = flagSet.Arg(0)
	}
	slog.Debug("Document path determined.", "path", cfg.DocumentPath)

	if cfg.DocumentPath == "" {
		slog.Debug("No document path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
