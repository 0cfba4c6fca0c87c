package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quotawatch/quotawatch/pkg/storage"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Show ranked optimization recommendations",
	Long: `Print the recommendations attached to the latest snapshot, most urgent
first.`,
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := store.LatestSnapshot(cmd.Context())
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Println("No snapshot published yet. Run 'quotawatch run' first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load latest snapshot: %w", err)
	}

	if len(snap.Recommendations) == 0 {
		fmt.Println("All tracked dimensions are in the safe band. Nothing to do.")
		return nil
	}

	for i, rec := range snap.Recommendations {
		fmt.Printf("%d. [%s] %s/%s at %.1f%%\n", i+1, rec.Urgency, rec.Resource, rec.Dimension, rec.Percentage)
		fmt.Printf("   %s\n", rec.Title)
		if rec.Action != "" {
			fmt.Printf("   %s\n", rec.Action)
		}
	}
	return nil
}
