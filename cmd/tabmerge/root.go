package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabmerge/internal/config"
	"github.com/JonMunkholm/tabmerge/internal/core"
	"github.com/JonMunkholm/tabmerge/internal/logging"
)

type rootOptions struct {
	verbose bool
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tabmerge",
		Short: "Merge tabular files into one table",
		Long: `tabmerge stacks the rows of CSV, TSV, TXT, XLSX, JSON and ZIP sources into a
single table and writes it as CSV, TSV, TXT, XLSX or JSON.

Columns are aligned by position. When sources disagree on header labels you
pick which labels to keep; decimal numbers are normalized to one notation and
precision across the whole table.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level := cfg.Logging.Level
			if opts.verbose {
				level = "debug"
			}
			logging.SetupWriter(cmd.ErrOrStderr(), level, cfg.Logging.Format)
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	cmd.AddCommand(newMergeCmd(opts))
	cmd.AddCommand(newQuickCmd(opts))
	cmd.AddCommand(newSheetsCmd())
	return cmd
}

// service builds a merge service from the loaded configuration.
func (o *rootOptions) service() *core.Service {
	return core.NewService(core.ServiceOptions{
		TempDir:     o.cfg.Merge.TempDir,
		MaxFileSize: o.cfg.Merge.MaxFileSize,
	})
}

func workingDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func newSheetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets <file.xlsx>",
		Short: "List the worksheets of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f := core.FormatFromPath(args[0]); f != core.FormatXLSX {
				return &core.UnsupportedFormatError{Path: args[0], Format: f}
			}
			names, err := core.ListSheets(args[0])
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}
