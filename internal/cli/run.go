package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quotawatch/quotawatch/pkg/model"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one evaluation pass",
	Long: `Fetch current usage samples, evaluate every tracked quota dimension,
update alert state and publish a snapshot.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runner, store, err := initRunner(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := runner.Run(cmd.Context())
	if err != nil && snap == nil {
		return fmt.Errorf("evaluation pass: %w", err)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: pass partially failed: %v\n", err)
	}

	printSnapshot(snap)
	return nil
}

func printSnapshot(snap *model.UsageSnapshot) {
	fmt.Printf("=== Usage Snapshot (%s) ===\n", snap.TakenAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Worst risk:      %s\n", snap.WorstRisk)
	fmt.Printf("Estimated cost:  $%.2f\n", snap.EstimatedCostUSD)
	fmt.Printf("Active alerts:   %d\n\n", len(snap.Alerts))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RESOURCE\tDIMENSION\tUSAGE\tLIMIT\tPERCENT\tRISK\tBREACH\n")
	for _, st := range snap.Statuses {
		breach := ""
		if f := st.Forecast; f != nil {
			if f.DaysToBreach == 0 {
				breach = "now"
			} else {
				breach = fmt.Sprintf("in %dd", f.DaysToBreach)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%.1f\t%.1f %s\t%.1f%%\t%s\t%s\n",
			st.Resource, st.Dimension, st.Value, st.Limit, st.Unit,
			st.PercentOfQuota, st.RiskLevel, breach,
		)
	}
	w.Flush()

	if len(snap.Recommendations) > 0 {
		fmt.Printf("\nRecommendations:\n")
		for _, rec := range snap.Recommendations {
			fmt.Printf("  [%s] %s/%s (%.1f%%): %s\n",
				rec.Urgency, rec.Resource, rec.Dimension, rec.Percentage, rec.Title)
		}
	}
}
