package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	internal "github.com/ZanzyTHEbar/ciiu-search/ciiu"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/catalog"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/retrieval"
)

type searchFlags struct {
	dataset   string
	topN      int
	category  string
	threshold float64
	json      bool
}

func newSearchCmd(rf *rootFlags) *cobra.Command {
	f := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "search <description>",
		Short: "Find the catalog codes closest to an activity description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, rf)
			if err != nil {
				return err
			}
			req, err := f.request(cmd, a.defaults, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if err := a.searcher.Validate(req); err != nil {
				return err
			}
			if _, err := a.manager.Rebuild(cmd.Context(), f.dataset); err != nil {
				return err
			}
			return runSearch(cmd.Context(), cmd.OutOrStdout(), a, f.dataset, req, f.json)
		},
	}
	cmd.Flags().StringVarP(&f.dataset, "dataset", "d", internal.DefaultDatasetV4, "Catalog variant to search")
	cmd.Flags().IntVarP(&f.topN, "top-n", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "Category filter or ALL (default from config)")
	cmd.Flags().Float64VarP(&f.threshold, "threshold", "t", 0, "Minimum similarity in [0, 1] (default from config)")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print results as JSON")
	return cmd
}

// request fills the fields the user left out from the configured defaults.
func (f *searchFlags) request(cmd *cobra.Command, d retrieval.Defaults, text string) (retrieval.Request, error) {
	req := d.Request(text)
	if cmd.Flags().Changed("top-n") {
		req.TopN = f.topN
	}
	if cmd.Flags().Changed("threshold") {
		req.Threshold = f.threshold
	}
	if cmd.Flags().Changed("category") {
		r, err := retrieval.NewRequest(text, req.TopN, f.category, req.Threshold)
		if err != nil {
			return retrieval.Request{}, err
		}
		req = r
	}
	return req, nil
}

func runSearch(ctx context.Context, w io.Writer, a *app, dataset string, req retrieval.Request, asJSON bool) error {
	results, err := a.searcher.Search(ctx, dataset, req)
	if errors.Is(err, retrieval.ErrNoResults) {
		if asJSON {
			return writeJSON(w, []retrieval.Result{})
		}
		fmt.Fprintln(w, "No relevant results found.")
		return nil
	}
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, results)
	}
	printResults(w, results)
	return nil
}

func printResults(w io.Writer, results []retrieval.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tCATEGORY\tSIMILARITY\tDESCRIPTION")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%s\n", r.Code, r.Category, r.Similarity, r.Description)
	}
	tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCategoryCounts(w io.Writer, counts []catalog.CategoryCount) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tROWS")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", c.Category, c.Rows)
	}
	tw.Flush()
}
