package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quotawatch/quotawatch/pkg/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest published snapshot",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
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

	printSnapshot(snap)
	return nil
}
