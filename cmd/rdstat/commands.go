package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/rdstat/algorithms/common"
	"github.com/RyanBlaney/rdstat/analysis"
	"github.com/RyanBlaney/rdstat/cohort"
	"github.com/RyanBlaney/rdstat/internal/config"
	"github.com/RyanBlaney/rdstat/record"
	"github.com/RyanBlaney/rdstat/report"
)

// parsedRecording adds the sample matrix to a Recording's JSON form.
type parsedRecording struct {
	*record.Recording
	Samples []common.Series `json:"samples,omitempty"`
}

func newParseCmd() *cobra.Command {
	var asJSON, trials, withSamples bool

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse one rd000 file and describe what was read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if trials {
				return describeTrials(cmd.OutOrStdout(), args[0])
			}

			rec, err := record.ParseFile(args[0], cfg.Parser)
			if err != nil {
				return err
			}
			if asJSON {
				out := parsedRecording{Recording: rec}
				if withSamples {
					out.Samples = make([]common.Series, len(rec.Samples))
					for i, row := range rec.Samples {
						out.Samples[i] = row
					}
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d channels x %d samples at %d Hz (%.3f ms)\n",
				args[0], rec.ChannelCount(), rec.SampleCount(), rec.SampleRate, rec.IntervalMs)
			fmt.Fprintf(out, "lines %d, written %d, skipped %d (other trials %d, unknown channel %d, out of range %d, malformed %d)\n",
				rec.Stats.Lines, rec.Stats.Written, rec.Stats.Skipped(),
				rec.Stats.OtherTrials, rec.Stats.UnknownChannel, rec.Stats.OutOfRange, rec.Stats.Malformed)
			if missing := rec.MissingChannels(); len(missing) > 0 {
				fmt.Fprintf(out, "channels without data: %v\n", missing)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the recording metadata and parse stats as JSON")
	cmd.Flags().BoolVar(&withSamples, "samples", false, "with --json, include the [channel][sample] matrix (missing cells as null)")
	cmd.Flags().BoolVar(&trials, "trials", false, "keep every trial and report the trial-averaged display channel")
	return cmd
}

func describeTrials(out io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	set, err := record.ParseTrials(f)
	if err != nil {
		return err
	}
	primary := set.PrimaryChannel()
	fmt.Fprintf(out, "%s: %d channels, %d trials, %.3f Hz, display channel %q\n",
		path, len(set.ChannelNames()), set.TrialCount(), set.SampleRate, primary)
	if primary == "" {
		return nil
	}
	avg, err := set.Average(primary)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "trial-averaged %s: %d samples\n", primary, len(avg))
	return nil
}

func newSummaryCmd() *cobra.Command {
	var label string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summary [files...]",
		Short: "Grand-average summary of one cohort",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			g, err := cohort.LoadFiles(cmd.Context(), label, args, cfg.LoadOptions())
			if err != nil {
				return err
			}
			sum, err := analysis.Summarise(g, cfg.Analysis.PSDSegmentLength)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), sum)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d subjects, %d channels, %d samples at %d Hz\n",
				g.Label, g.SubjectCount(), g.ChannelCount(), g.SampleCount(), g.SampleRate)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "channel\talpha power (8-12 Hz)")
			for _, c := range sum.AlphaOrder {
				fmt.Fprintf(tw, "%s\t%.6g\n", sum.Channels[c], sum.AlphaPower[c])
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&label, "label", "cohort", "cohort label")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func newCompareCmd() *cobra.Command {
	var dirA, dirB, labelA, labelB, xlsxPath, htmlPath string
	var permutations int
	var seed int64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare two cohorts of rd000 files",
		Long: `Compare two cohorts: channel-mean ERP, band envelopes, PSD and alpha
metrics per group, then a cluster permutation test per channel.

Example: rdstat compare --group-a data/control --group-b data/patient --xlsx out.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts := cfg.CompareOptions()
			if cmd.Flags().Changed("permutations") {
				opts.Cluster.Permutations = permutations
			}
			if cmd.Flags().Changed("seed") {
				opts.Cluster.Seed = seed
			}

			ctx := cmd.Context()
			a, err := cohort.LoadDir(ctx, labelA, dirA, cfg.LoadOptions())
			if err != nil {
				return err
			}
			b, err := cohort.LoadDir(ctx, labelB, dirB, cfg.LoadOptions())
			if err != nil {
				return err
			}

			cmp, err := analysis.Compare(ctx, a, b, opts)
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				if err := report.SaveXLSX(xlsxPath, cmp, opts.Significance); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", xlsxPath)
			}
			if htmlPath != "" {
				if err := os.WriteFile(htmlPath, []byte(report.HTML(cmp)), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", htmlPath)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), cmp)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), report.Markdown(cmp))
			return err
		},
	}
	cmd.Flags().StringVar(&dirA, "group-a", "", "directory of group A recordings")
	cmd.Flags().StringVar(&dirB, "group-b", "", "directory of group B recordings")
	cmd.Flags().StringVar(&labelA, "label-a", "A", "group A label")
	cmd.Flags().StringVar(&labelB, "label-b", "B", "group B label")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write an XLSX workbook to this path")
	cmd.Flags().StringVar(&htmlPath, "html", "", "also write the summary as HTML to this path")
	cmd.Flags().IntVar(&permutations, "permutations", 1000, "label permutations per channel")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the comparison as JSON instead of markdown")
	_ = cmd.MarkFlagRequired("group-a")
	_ = cmd.MarkFlagRequired("group-b")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
