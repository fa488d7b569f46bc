package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/ciiu-search/ciiu/embedding"
)

func newInfoCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the effective configuration and available ONNX execution providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, rf)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			cfg := a.cfg

			fmt.Fprintln(w, "Datasets:")
			for _, d := range cfg.Datasets {
				sheet := ""
				if d.Sheet != "" {
					sheet = " [" + d.Sheet + "]"
				}
				fmt.Fprintf(w, "  %s  %s%s\n", d.Name, d.Path, sheet)
			}
			aux := cfg.AuxiliaryPath()
			if aux == "" {
				aux = "disabled"
			}
			fmt.Fprintf(w, "Auxiliary corpus: %s\n", aux)
			fmt.Fprintf(w, "Embedding: %s, %d dimensions, batch %d\n",
				cfg.Embedding.Provider, a.encoder.Dimensions(), cfg.Embedding.BatchSize)
			fmt.Fprintf(w, "Defaults: top_n=%d category=%s threshold=%.2f\n",
				a.defaults.TopN, a.defaults.Category, a.defaults.Threshold)

			eps, err := embedding.ListONNXProviders()
			if err != nil {
				fmt.Fprintf(w, "ONNX execution providers: unavailable (%v)\n", err)
				return nil
			}
			fmt.Fprintf(w, "ONNX execution providers: %s\n", strings.Join(eps, ", "))
			return nil
		},
	}
}
