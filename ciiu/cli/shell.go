package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	internal "github.com/ZanzyTHEbar/ciiu-search/ciiu"
)

const shellHelp = `Type a description to search. Commands:
  :dataset <name>    switch catalog variant
  :reload [name]     rebuild one dataset, or all
  :stats             show search and rebuild counters
  :quit              leave`

func newShellCmd(rf *rootFlags) *cobra.Command {
	var (
		dataset string
		watchFS bool
	)
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Build every dataset once and answer queries read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, rf)
			if err != nil {
				return err
			}
			sum, err := a.manager.RebuildAll(cmd.Context())
			if err != nil {
				return err
			}
			if err := sum.Err(); err != nil {
				a.logger.Warn().Err(err).Msg("Some datasets failed to build")
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if watchFS {
				go func() {
					if err := a.watcher().Run(ctx); err != nil {
						a.logger.Warn().Err(err).Msg("Catalog watcher stopped")
					}
				}()
			}
			return runShell(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), a, dataset)
		},
	}
	cmd.Flags().StringVarP(&dataset, "dataset", "d", internal.DefaultDatasetV4, "Initial catalog variant")
	cmd.Flags().BoolVarP(&watchFS, "watch", "w", false, "Rebuild datasets when their files change")
	return cmd
}

func runShell(ctx context.Context, in io.Reader, out io.Writer, a *app, dataset string) error {
	fmt.Fprintln(out, shellHelp)
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "%s> ", dataset)
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, ":") {
			if err := runSearch(ctx, out, a, dataset, a.defaults.Request(line), false); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case ":quit", ":q", ":exit":
			return nil
		case ":dataset":
			if len(fields) != 2 {
				fmt.Fprintf(out, "usage: :dataset <name> (one of %s)\n", strings.Join(a.manager.Datasets(), ", "))
				continue
			}
			if _, err := a.manager.Current(fields[1]); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			dataset = fields[1]
		case ":reload":
			if len(fields) > 1 {
				if _, err := a.manager.Rebuild(ctx, fields[1]); err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
				}
				continue
			}
			sum, err := a.manager.RebuildAll(ctx)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			printSummary(out, sum)
		case ":stats":
			printStats(out, "search", a.searcher.Metrics().GetMetrics())
			printStats(out, "rebuild", a.manager.Metrics().GetMetrics())
		default:
			fmt.Fprintln(out, shellHelp)
		}
	}
}

func printStats(w io.Writer, title string, m map[string]interface{}) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %v\n", k, m[k])
	}
}
