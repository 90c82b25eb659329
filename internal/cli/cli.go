// ============================================================================
// Branch Inventory CLI - Command Tree
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: cobra commands wrapping the controller
//
// Commands:
//   branch-inventory           run the pipeline (same as "run")
//   branch-inventory run       run the pipeline
//   branch-inventory count     print per-file line counts and the total
//   branch-inventory config    print the effective configuration as YAML
//
// Every command reads ./fp.conf unless --config points elsewhere.
//
// ============================================================================

package cli

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ChuLiYu/branch-inventory/internal/config"
	"github.com/ChuLiYu/branch-inventory/internal/controller"
	"github.com/ChuLiYu/branch-inventory/internal/source"
)

type options struct {
	configFile string
	verbose    bool
}

// BuildCLI constructs the root command.
func BuildCLI() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "branch-inventory",
		Short: "Consolidate branch transaction files into one inventory",
		Long: `branch-inventory scans a directory of per-branch transaction files once,
appends every line to a consolidated inventory file and moves each consumed
file into the processed directory. Files are shared out over a fixed pool of
workers.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug output on the console")

	rootCmd.AddCommand(buildRunCommand(opts))
	rootCmd.AddCommand(buildCountCommand(opts))
	rootCmd.AddCommand(buildConfigCommand(opts))

	return rootCmd
}

func buildRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the ingestion pipeline once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}
}

func runPipeline(cmd *cobra.Command, opts *options) error {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	ctrl := controller.New(*cfg,
		controller.WithConsole(cmd.OutOrStdout()),
		controller.WithConsoleLevel(level))

	stats, err := ctrl.Run(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d files, %d records, %d archived, %d archive failures, %d open failures\n",
		stats.Files, stats.Records, stats.Archived, stats.ArchiveFailed, stats.OpenFailed)
	return nil
}

func buildCountCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the line count of every source file",
		Long:  "Run the pre-sizing pass only: list the source directory and count lines. Nothing is moved or written.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			files, err := source.List(cfg.SourceDir)
			if err != nil {
				return err
			}
			total, counts, err := source.CountAll(files)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for i, f := range files {
				fmt.Fprintf(w, "%s\t%d\n", f.Name, counts[i])
			}
			fmt.Fprintf(w, "total\t%d\n", total)
			return w.Flush()
		},
	}
}

func buildConfigCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
