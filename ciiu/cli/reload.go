package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/ciiu-search/ciiu/manager"
)

func newReloadCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reload [dataset...]",
		Short: "Rebuild dataset snapshots and report what was indexed",
		Long: `reload loads every configured catalog (or only the named ones), encodes it
and builds a fresh snapshot. Failing datasets are reported; the others are
still built.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, rf)
			if err != nil {
				return err
			}
			var sum manager.Summary
			if len(args) == 0 {
				if sum, err = a.manager.RebuildAll(cmd.Context()); err != nil {
					return err
				}
			} else {
				sum = manager.Summary{Datasets: make(map[string]manager.DatasetResult, len(args))}
				for _, name := range args {
					snap, err := a.manager.Rebuild(cmd.Context(), name)
					r := manager.DatasetResult{Err: err}
					if snap != nil {
						r.Rows, r.SnapshotID, r.Took = snap.Meta.Rows, snap.Meta.ID, snap.Meta.BuildTook
					}
					sum.Datasets[name] = r
				}
			}
			printSummary(cmd.OutOrStdout(), sum)
			return sum.Err()
		},
	}
}

func printSummary(w io.Writer, sum manager.Summary) {
	names := make([]string, 0, len(sum.Datasets))
	for n := range sum.Datasets {
		names = append(names, n)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATASET\tROWS\tSNAPSHOT\tTOOK\tSTATUS")
	for _, n := range names {
		r := sum.Datasets[n]
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", n, r.Rows, r.SnapshotID, r.Took.Round(time.Millisecond), status)
	}
	tw.Flush()
}
