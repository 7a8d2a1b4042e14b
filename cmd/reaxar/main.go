package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"

	"github.com/vango-dev/reaxar/internal/config"
	"github.com/vango-dev/reaxar/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┬─┐┌─┐┌─┐─┐ ┬┌─┐┬─┐
  ├┬┘├┤ ├─┤┌┴┬┘├─┤├┬┘
  ┴└─└─┘┴ ┴┴ └─┴ ┴┴└─
`

// globalFlags are shared by every command.
type globalFlags struct {
	dir      string
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "reaxar",
		Short: "Inspect and snapshot reactive stores",
		Long: `reaxar serves a reactive store runtime over HTTP.

The inspector exposes every registered store and service, streams
store values over WebSocket, and publishes Prometheus metrics.
Snapshots of all stores can be written to disk or S3.

Configuration is read from reaxar.toml or reaxar.json in --dir,
with REAXAR_* environment variables (and .env) as overrides.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.dir, "dir", "C", ".", "Directory containing reaxar.toml or reaxar.json")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(
		serveCmd(flags),
		snapshotCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig loads configuration and applies global flag overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.dir)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newLogger builds the diagnostic logger: a console handler on w, fanned
// out to a JSON file handler when cfg.Log.File is set. The returned closer
// releases the file.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var console slog.Handler
	if cfg.Log.Format == "json" {
		console = slog.NewJSONHandler(w, opts)
	} else {
		console = slog.NewTextHandler(w, opts)
	}
	if cfg.Log.File == "" {
		return slog.New(console), io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, errors.New(errors.CodeConfigRead).WithKey(cfg.Log.File).Wrap(err)
	}
	return slog.New(slogmulti.Fanout(console, slog.NewJSONHandler(f, opts))), f, nil
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
