package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spendwise-dev/spendwise/internal/config"
	"github.com/spendwise-dev/spendwise/internal/settings"
)

func newInitCommand() *cobra.Command {
	var apiURL, currency string
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a spendwise home with a default config",
		Long: "Create a spendwise home directory holding spendwise.yaml, settings.yaml\n" +
			"and an import/ drop folder for bank statements. The directory defaults\n" +
			"to $SPENDWISE_HOME or the user config directory.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := config.DefaultStateDir()
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, initOptions{apiURL: apiURL, currency: currency, force: force})
		},
	}

	cmd.Flags().StringVar(&apiURL, "api-url", "", "backend base URL (default http://localhost:8080/api)")
	cmd.Flags().StringVar(&currency, "currency", "", "display currency code")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing spendwise.yaml")

	return cmd
}

type initOptions struct {
	apiURL   string
	currency string
	force    bool
}

func runInit(w io.Writer, dir string, opts initOptions) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil && !opts.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	for _, d := range []string{"import", filepath.Join("import", "processed")} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o700); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default()
	if opts.apiURL != "" {
		cfg.API.BaseURL = opts.apiURL
	}
	cfg.StateDir = dir
	if err := cfg.Validate(); err != nil {
		return err
	}
	// Relative to the file's own directory when read back.
	cfg.StateDir = ""
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	prefs, err := settings.Load(filepath.Join(dir, "settings.yaml"))
	if err != nil {
		return err
	}
	if opts.currency != "" {
		if err := prefs.Set("currency", opts.currency); err != nil {
			return err
		}
	}
	if err := settings.Save(filepath.Join(dir, "settings.yaml"), prefs); err != nil {
		return err
	}

	fmt.Fprintf(w, "Initialized spendwise home at %s\n", dir)
	return nil
}
