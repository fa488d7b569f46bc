package cli

import (
	"github.com/spf13/cobra"

	internal "github.com/ZanzyTHEbar/ciiu-search/ciiu"
)

func newCategoriesCmd(rf *rootFlags) *cobra.Command {
	var dataset string
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the categories present in a catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, rf)
			if err != nil {
				return err
			}
			cat, err := a.source.LoadCatalog(cmd.Context(), dataset)
			if err != nil {
				return err
			}
			printCategoryCounts(cmd.OutOrStdout(), cat.CategoryCounts())
			return nil
		},
	}
	cmd.Flags().StringVarP(&dataset, "dataset", "d", internal.DefaultDatasetV4, "Catalog variant")
	return cmd
}
