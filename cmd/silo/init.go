package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/silo/internal/config"
	"github.com/vango-dev/silo/internal/errors"
)

func initCmd() *cobra.Command {
	var (
		format string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default configuration file",
		Long: `Write a silo.json (or silo.yaml) with default settings.

Examples:
  silo init
  silo init ./game --format=yaml
  silo init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd.OutOrStdout(), dir, format, force)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "File format (json, yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")

	return cmd
}

func runInit(w io.Writer, dir, format string, force bool) error {
	var name string
	switch format {
	case "json":
		name = config.ConfigFileName
	case "yaml":
		name = config.YAMLFileName
	default:
		return errors.New("S023").
			WithDetail(fmt.Sprintf("Unknown format %q", format)).
			WithSuggestion("Use --format=json or --format=yaml")
	}

	if config.Exists(dir) && !force {
		return errors.Newf(errors.CategoryCLI, "a configuration file already exists in %s", dir).
			WithSuggestion("Use --force to overwrite it")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path := filepath.Join(dir, name)
	if err := config.New().SaveTo(path); err != nil {
		return err
	}

	success(w, "Created %s", path)
	return nil
}
