package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quotawatch/quotawatch/pkg/catalogue"
)

var catalogueCmd = &cobra.Command{
	Use:   "catalogue",
	Short: "List tracked resources and their quota limits",
	RunE:  runCatalogue,
}

func init() {
	rootCmd.AddCommand(catalogueCmd)
}

func runCatalogue(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cat, err := initCatalogue(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RESOURCE\tDIMENSION\tCATEGORY\tLIMIT\tUNIT\n")
	for _, res := range cat.Resources() {
		for _, dim := range res.Dimensions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%s\n",
				res.ID, dim.ID, dim.Category, dim.Limit, dim.Unit)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d dimensions tracked.\n", cat.Len())
	if _, err := cat.Dimension(catalogue.CostResource, catalogue.CostDimension); err == nil {
		fmt.Println("Monthly cost alerting is enabled.")
	}
	return nil
}
