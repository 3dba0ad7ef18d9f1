package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"findex/internal/app"
	"findex/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer
// app.Close(). operation identifies the CLI command being run.
func newApp(operation, parameters string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(cfg, operation, parameters)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	if err := a.MigrateUp(); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrating catalog: %w", err)
	}

	return a, nil
}

// importFlagsFrom reads the shared import flags off a command.
func importFlagsFrom(cmd *cobra.Command) app.ImportFlags {
	deleteAfter, _ := cmd.Flags().GetBool("delete-after")
	recursive, _ := cmd.Flags().GetBool("recursive")
	hardLinkOnly, _ := cmd.Flags().GetBool("hard-link-only")
	secondary, _ := cmd.Flags().GetBool("secondary-hash")
	workers, _ := cmd.Flags().GetInt("workers")
	return app.ImportFlags{
		DeleteAfter:   deleteAfter,
		Recursive:     recursive,
		OnlyHardLink:  hardLinkOnly,
		SecondaryHash: secondary,
		Workers:       workers,
	}
}

var rootCmd = &cobra.Command{
	Use:   "findex",
	Short: "Content-addressed file indexer",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:    %s\n", cfg.HostID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Store Root: %s\n", cfg.Store.Root)
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import PATH...",
	Short: "Import files and directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Import", strings.Join(args, " "))
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Import(args, importFlagsFrom(cmd))
		if err != nil {
			return err
		}

		fmt.Printf("Imported:     %d (%d new, %d deduplicated)\n",
			stats.Imported, stats.Created, stats.Deduplicated)
		fmt.Printf("Skipped:      %d\n", stats.Skipped)
		fmt.Printf("Errored:      %d\n", stats.Errored)
		for path, ferr := range stats.Errors {
			fmt.Printf("  %s: %v\n", path, ferr)
		}
		if stats.Errored > 0 {
			return fmt.Errorf("%d file(s) failed to import", stats.Errored)
		}
		return nil
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch DIR...",
	Short: "Watch directories and import files as they appear",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Watch", strings.Join(args, " "))
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Watching %s (Ctrl-C to stop)\n", strings.Join(args, ", "))
		return a.Watch(ctx, args, importFlagsFrom(cmd))
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("GetStatus", "")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.GetStatus()
		if err != nil {
			return err
		}

		fmt.Printf("Indexed files: %d\n", st.Files)
		fmt.Printf("Known paths:   %d\n", st.Paths)
		return nil
	},
}

func addImportFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("delete-after", false, "Delete source files after successful import")
	cmd.Flags().BoolP("recursive", "r", false, "Recurse into subdirectories")
	cmd.Flags().Bool("hard-link-only", false, "Fail instead of copying across filesystems")
	cmd.Flags().Bool("secondary-hash", false, "Also compute the legacy digest")
	cmd.Flags().IntP("workers", "w", 0, "Concurrent import workers (0 = config default)")
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	addImportFlags(importCmd)
	addImportFlags(watchCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
}
