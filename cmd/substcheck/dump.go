package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gsubst/internal/diag"
	"gsubst/internal/fixture"
	"gsubst/internal/subst"
)

func newDumpCmd() *cobra.Command {
	var to string
	var maps bool
	cmd := &cobra.Command{
		Use:   "dump [flags] <world>",
		Short: "Re-encode a world, or print the maps it builds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := fixture.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !maps {
				format, err := fixture.ParseFormat(to)
				if err != nil {
					return err
				}
				return fixture.Encode(out, f, format)
			}

			tracer, cleanup, err := setupTracing(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			bag := diag.NewBag(100)
			w := fixture.Build(f, args[0], subst.Options{Tracer: tracer}, &diag.BagReporter{Bag: bag})
			for _, e := range w.Maps {
				if e.Fault != nil {
					fmt.Fprintf(out, "%s: fault: %s\n", e.Name, e.Fault.Kind)
					continue
				}
				fmt.Fprintf(out, "%s: %s\n", e.Name, e.Map)
			}
			if bag.Len() > 0 {
				bag.Sort()
				fmt.Fprint(cmd.ErrOrStderr(), diag.FormatShortDiagnostics(bag.Items(), true))
				return errChecksFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "yaml", "output format when re-encoding (toml|yaml)")
	cmd.Flags().BoolVar(&maps, "maps", false, "build the world and print each map instead")
	return cmd
}
