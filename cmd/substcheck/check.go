package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gsubst/internal/check"
	"gsubst/internal/diag"
	"gsubst/internal/fixture"
	"gsubst/internal/observ"
	"gsubst/internal/prof"
	"gsubst/internal/report"
	"gsubst/internal/subst"
)

type checkOptions struct {
	format    string
	failOn    string
	jobs      int
	verify    bool
	showMaps  bool
	showNotes bool
	width     int
	timings   bool
	maxDiags  int
	profile   prof.Config
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check [flags] <world.toml|world.yaml>...",
		Short: "Build the maps of each world and check its queries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "pretty", "output format (pretty|json|msgpack)")
	cmd.Flags().StringVar(&opts.failOn, "fail-on", "error", "lowest diagnostic severity that fails the run (info|warning|error)")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "queries answered in parallel (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "verify every map against its conformance requirements")
	cmd.Flags().BoolVar(&opts.showMaps, "maps", false, "list every map in pretty output")
	cmd.Flags().BoolVar(&opts.showNotes, "notes", true, "show diagnostic notes")
	cmd.Flags().IntVar(&opts.width, "width", 0, "truncate rendered values to this many cells (0 = no limit)")
	cmd.Flags().BoolVar(&opts.timings, "timings", false, "report phase timings")
	cmd.Flags().IntVar(&opts.maxDiags, "max-diagnostics", 100, "maximum number of diagnostics per world")
	cmd.Flags().StringVar(&opts.profile.CPU, "cpu-profile", "", "write a CPU profile to this file")
	cmd.Flags().StringVar(&opts.profile.Mem, "mem-profile", "", "write a heap profile to this file")
	cmd.Flags().StringVar(&opts.profile.Trace, "runtime-trace", "", "write a Go runtime trace to this file")
	return cmd
}

func runCheck(cmd *cobra.Command, paths []string, opts checkOptions) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	failOn, err := diag.ParseSeverity(strings.ToLower(opts.failOn))
	if err != nil {
		return err
	}
	color, err := useColor(cmd, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	tracer, cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	session, err := prof.Start(opts.profile)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Stop(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", err)
		}
	}()

	failed := false
	for _, path := range paths {
		timer := observ.NewTimer()
		bag := diag.NewBag(opts.maxDiags)
		reporter := diag.NewDedupReporter(&diag.BagReporter{Bag: bag})

		done := timer.Track("load")
		f, err := fixture.Load(path)
		done(path)
		if err != nil {
			diag.ReportError(reporter, diag.IOLoadFileError, diag.Location{File: path}, err.Error()).Emit()
			failed = true
			if err := emit(cmd, report.Document{Outcome: &check.Outcome{File: path}}, bag, format, opts, color, quiet); err != nil {
				return err
			}
			continue
		}

		done = timer.Track("build")
		w := fixture.Build(f, path, subst.Options{Tracer: tracer}, reporter)
		done(fmt.Sprintf("%d maps", len(w.Maps)))

		done = timer.Track("check")
		out, err := check.Run(cmd.Context(), w, check.Options{
			Jobs:     opts.jobs,
			Verify:   opts.verify,
			Reporter: reporter,
		})
		done(fmt.Sprintf("%d queries", len(w.Queries)))
		if err != nil {
			return err
		}

		doc := report.Document{Outcome: out}
		if opts.timings {
			timings := timer.Report()
			doc.Timings = &timings
		}
		if err := emit(cmd, doc, bag, format, opts, color, quiet); err != nil {
			return err
		}
		if out.Failed > 0 || bag.HasAtLeast(failOn) {
			failed = true
		}
	}
	if failed {
		return errChecksFailed
	}
	return nil
}

func emit(cmd *cobra.Command, doc report.Document, bag *diag.Bag, format report.Format, opts checkOptions, color, quiet bool) error {
	bag.Sort()
	doc.Outcome.AddDiagnostics(bag.Items())
	if quiet && format == report.FormatPretty && doc.Outcome.Failed == 0 && bag.Len() == 0 {
		return nil
	}
	return report.Write(cmd.OutOrStdout(), doc, format, report.Options{
		Color:     color,
		Width:     opts.width,
		ShowNotes: opts.showNotes,
		ShowMaps:  opts.showMaps,
	})
}
