// Package cli wires configuration, catalogs, encoder, index manager and
// searcher behind the ciiu-search command line.
package cli

import (
	"github.com/spf13/cobra"

	internal "github.com/ZanzyTHEbar/ciiu-search/ciiu"
)

type rootFlags struct {
	configPath string
	logLevel   string
	pretty     bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           internal.DefaultAppCMDShortCut,
		Short:         "Semantic search over the CIIU economic activity catalogs",
		SilenceUsage:  true, // don't print usage on operational errors
		SilenceErrors: true,
		Long: `ciiu-search matches free-text activity descriptions against the CIIU
classification catalogs using sentence embeddings and exact inner-product search.`,
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "Config file (default: ./config.yaml or ~/.config/ciiu/config.yaml)")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&f.pretty, "pretty", false, "Human-readable log output")

	root.AddCommand(
		newSearchCmd(f),
		newReloadCmd(f),
		newCategoriesCmd(f),
		newInfoCmd(f),
		newShellCmd(f),
		newWatchCmd(f),
	)
	return root
}
