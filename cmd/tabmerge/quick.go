package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabmerge/internal/core"
)

type quickOptions struct {
	output         string
	format         string
	noHeader       bool
	dedup          bool
	notation       string
	nonInteractive bool
}

func newQuickCmd(root *rootOptions) *cobra.Command {
	opts := &quickOptions{}

	cmd := &cobra.Command{
		Use:   "quick <file>... [-o out.csv]",
		Short: "Merge files with default options",
		Long: `Merge the given files with one set of options for all of them.

Workbooks contribute every sheet. Any source that cannot be read stops the
merge. The output format follows --format, else the extension of --output,
else csv.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.mergeConfig(args)
			if err != nil {
				return err
			}

			preset := core.PresetDecider{AcceptSuggested: opts.nonInteractive}
			if opts.notation != "" {
				n, err := core.ParseNotation(opts.notation)
				if err != nil {
					return err
				}
				preset.Notation = n
			}
			if opts.nonInteractive && cfg.OutputPath == "" {
				cfg.OutputPath = filepath.Join(workingDir(), "merged."+string(cfg.OutputFormat))
			}
			return runMerge(cmd, root.service(), cfg, preset, !opts.nonInteractive)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output path (asked when omitted)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format: csv, tsv, txt, xlsx, json")
	cmd.Flags().BoolVar(&opts.noHeader, "no-header", false, "Treat the first row as data")
	cmd.Flags().BoolVar(&opts.dedup, "dedup", false, "Drop repeated rows within each source")
	cmd.Flags().StringVar(&opts.notation, "notation", "", "Decimal notation: dot or comma")
	cmd.Flags().BoolVarP(&opts.nonInteractive, "yes", "y", false, "Never prompt; accept suggested notation")
	return cmd
}

func (o *quickOptions) mergeConfig(paths []string) (core.MergeConfig, error) {
	format := core.Format(strings.ToLower(o.format))
	if format == "" {
		format = core.FormatCSV
		if o.output != "" {
			if f := core.FormatFromPath(o.output); f.IsOutput() {
				format = f
			}
		}
	}
	if !format.IsOutput() {
		return core.MergeConfig{}, &core.UnsupportedFormatError{Format: format}
	}

	cfg := core.MergeConfig{
		OutputFormat: format,
		OutputPath:   o.output,
		Strict:       true,
	}
	for _, p := range paths {
		if p == "" {
			return core.MergeConfig{}, fmt.Errorf("empty source path")
		}
		src := core.SourceFile{Path: p, HasHeader: !o.noHeader, Dedup: o.dedup}
		if src.ResolvedFormat() == core.FormatXLSX {
			src.AllSheets = true
		}
		cfg.Sources = append(cfg.Sources, src)
	}
	return cfg, nil
}
