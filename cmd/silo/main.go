package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/vango-dev/silo/internal/config"
	"github.com/vango-dev/silo/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔═╗┬┬  ┌─┐
  ╚═╗││  │ │
  ╚═╝┴┴─┘└─┘
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		errors.PrintError(err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "silo",
		Short: "Immutable state containers for Go",
		Long: `Silo is an immutable-state container with action-based updates.

State is replaced only through named actions, every change is pushed
synchronously to subscribers, and silos combine into read-only
composites. This tool demonstrates and measures the container:

  • demo     run the scoreboard example
  • bench    measure dispatch throughput and latency
  • init     write a default silo.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to silo.json or silo.yaml (default: search upward from the working directory)")

	load := func() (*config.Config, error) {
		return loadConfig(configPath)
	}

	rootCmd.AddCommand(
		demoCmd(load),
		benchCmd(load),
		initCmd(),
		versionCmd(),
	)

	return rootCmd
}

// loadConfig loads and validates the configuration at path, or the one found
// from the working directory when path is empty.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// printBanner prints the silo ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
