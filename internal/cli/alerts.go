package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/quotawatch/quotawatch/pkg/model"
	"github.com/quotawatch/quotawatch/pkg/storage"
)

var (
	alertStateFilter string
	summaryDays      int
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List alert records",
	RunE:  runAlerts,
}

var ackCmd = &cobra.Command{
	Use:   "ack <alert-id>",
	Short: "Acknowledge an alert",
	Args:  cobra.ExactArgs(1),
	RunE:  runAck,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize recent alerts by risk level",
	RunE:  runAlertSummary,
}

func init() {
	alertsCmd.Flags().StringVar(&alertStateFilter, "state", "", "filter by state (open, escalated, closed)")
	summaryCmd.Flags().IntVar(&summaryDays, "days", 7, "summary window in days")
	alertsCmd.AddCommand(ackCmd)
	alertsCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(alertsCmd)
}

func runAlerts(cmd *cobra.Command, _ []string) error {
	state := model.AlertState(alertStateFilter)
	switch state {
	case "", model.AlertOpen, model.AlertEscalated, model.AlertClosed:
	default:
		return fmt.Errorf("invalid state %q", alertStateFilter)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListAlerts(cmd.Context(), state)
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No alerts.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tRESOURCE\tDIMENSION\tSTATE\tRISK\tPERCENT\tLAST NOTIFIED\tACK\n")
	for _, rec := range records {
		ack := ""
		if rec.Acknowledged {
			ack = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.1f%%\t%s\t%s\n",
			rec.ID, rec.Resource, rec.Dimension, rec.State, rec.RiskLevel,
			rec.Percentage, rec.LastNotifiedAt.Format("2006-01-02 15:04"), ack,
		)
	}
	return w.Flush()
}

func runAlertSummary(cmd *cobra.Command, _ []string) error {
	if summaryDays <= 0 {
		return fmt.Errorf("invalid --days %d", summaryDays)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	since := time.Now().UTC().AddDate(0, 0, -summaryDays)
	summary, err := store.SummarizeAlerts(cmd.Context(), since)
	if err != nil {
		return fmt.Errorf("summarize alerts: %w", err)
	}
	if summary.TotalAlerts == 0 {
		fmt.Printf("No alerts in the last %d days.\n", summaryDays)
		return nil
	}

	fmt.Printf("Alerts in the last %d days: %d\n\n", summaryDays, summary.TotalAlerts)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RISK\tCOUNT\tRESOURCES\n")
	for _, level := range []model.RiskLevel{model.RiskCritical, model.RiskWarning, model.RiskModerate, model.RiskSafe} {
		ls, ok := summary.ByLevel[level]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", level, ls.Count, strings.Join(ls.Resources, ", "))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println("\nDaily trend:")
	for _, day := range summary.DailyTrend {
		fmt.Printf("  %s  %d\n", day.Date, day.Count)
	}
	return nil
}

func runAck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	err = store.AcknowledgeAlert(cmd.Context(), args[0])
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("alert %q not found", args[0])
	}
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}

	fmt.Printf("Alert %s acknowledged.\n", args[0])
	return nil
}
