package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabmerge/internal/core"
	"github.com/JonMunkholm/tabmerge/internal/jobfile"
)

type mergeOptions struct {
	job            string
	output         string
	nonInteractive bool
}

func newMergeCmd(root *rootOptions) *cobra.Command {
	opts := &mergeOptions{}

	cmd := &cobra.Command{
		Use:   "merge --job <job.yaml>",
		Short: "Run a merge described by a job file",
		Long: `Run a merge described by a YAML, TOML or JSON job file.

Questions the job does not answer are asked on the terminal. With --yes the
suggested decimal notation is accepted and any other open question fails
the merge.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := jobfile.Load(opts.job)
			if err != nil {
				return err
			}
			cfg := job.MergeConfig()
			if opts.output != "" {
				cfg.OutputPath = opts.output
			}

			preset := job.Decider()
			if opts.nonInteractive {
				preset.AcceptSuggested = true
			}
			return runMerge(cmd, root.service(), cfg, preset, !opts.nonInteractive)
		},
	}

	cmd.Flags().StringVar(&opts.job, "job", "", "Job file describing the merge (required)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output path, overrides the job file")
	cmd.Flags().BoolVarP(&opts.nonInteractive, "yes", "y", false, "Never prompt; accept suggested notation")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}

// runMerge runs one merge. Interactive runs answer open questions on the
// terminal; preset answers are used first either way.
func runMerge(cmd *cobra.Command, svc *core.Service, cfg core.MergeConfig, preset core.PresetDecider, interactive bool) error {
	var decider core.Decider = preset
	stop := func() {}
	if interactive {
		prompts := core.NewChannelDecider()
		term := newTerminal(cmd.InOrStdin(), cmd.ErrOrStderr(), workingDir())
		done := make(chan struct{})
		go func() {
			defer close(done)
			term.serve(prompts.Prompts())
		}()
		// the prompt program owns stderr until it stops
		stop = func() {
			prompts.Close()
			<-done
		}
		decider = core.WithFallback(preset, prompts)
	}

	result, err := svc.Merge(cmd.Context(), cfg, decider)
	stop()
	printReport(cmd.ErrOrStderr(), result)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.OutputPath)
	return nil
}

// printReport writes warnings, skipped sources and a summary line.
func printReport(w io.Writer, r *core.Result) {
	if r == nil {
		return
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(w, "skipped %s: %s\n", s.Source, s.Reason)
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	if len(r.RemovedColumns) > 0 {
		fmt.Fprintf(w, "removed empty columns: %s\n", strings.Join(r.RemovedColumns, ", "))
	}
	if !r.Success {
		return
	}
	fmt.Fprintf(w, "merged %s rows x %d columns into %s in %s\n",
		humanize.Comma(int64(r.Rows)), r.Columns, r.OutputPath, r.Duration.Round(time.Millisecond))
}
