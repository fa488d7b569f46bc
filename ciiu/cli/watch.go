package cli

import (
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/ciiu-search/ciiu/watch"
)

func newWatchCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Build every dataset and rebuild it whenever its spreadsheet changes",
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
			printSummary(cmd.OutOrStdout(), sum)
			return a.watcher().Run(cmd.Context())
		},
	}
}

func (a *app) watcher() *watch.Watcher {
	return watch.New(a.manager, a.cfg.DatasetFiles(), a.cfg.AuxiliaryPath(),
		watch.WithDebounce(a.cfg.Watch.Debounce),
		watch.WithLogger(a.logger),
	)
}
