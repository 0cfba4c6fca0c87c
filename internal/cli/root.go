package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/quotawatch/quotawatch/internal/config"
	"github.com/quotawatch/quotawatch/pkg/alerts"
	"github.com/quotawatch/quotawatch/pkg/catalogue"
	"github.com/quotawatch/quotawatch/pkg/monitor"
	"github.com/quotawatch/quotawatch/pkg/sampler"
	"github.com/quotawatch/quotawatch/pkg/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "quotawatch",
	Short: "Quota Watch - cloud free-tier usage tracking and alerting",
	Long: `Quota Watch tracks metered cloud resources against their free-usage quotas.
It normalizes raw usage samples into percent-of-quota, classifies risk,
maintains a deduplicated alert stream across evaluation cycles, and produces
ranked optimization recommendations.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.quotawatch/config.yaml)")
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initCatalogue builds the quota catalogue from defaults or a catalogue
// file, applies configured overrides, and enables cost alerting.
func initCatalogue(cfg *config.Config) (*catalogue.Catalogue, error) {
	cat := catalogue.Default()
	if cfg.Monitor.CatalogueFile != "" {
		loaded, err := catalogue.LoadFile(cfg.Monitor.CatalogueFile)
		if err != nil {
			return nil, err
		}
		cat = loaded
	}

	cat, err := cat.WithOverrides(cfg.Quotas)
	if err != nil {
		return nil, err
	}

	if cfg.Monitor.MaxMonthlyCostUSD > 0 {
		cat = cat.WithCostAlert(cfg.Monitor.MaxMonthlyCostUSD)
	}
	return cat, nil
}

// initStorage creates a storage backend from config.
func initStorage(cfg *config.Config) (storage.Store, error) {
	return storage.NewSQLite(cfg.Storage.Path)
}

// initNotifiers creates alert notifiers from config.
func initNotifiers(cfg *config.Config, logger *slog.Logger) []alerts.Notifier {
	var notifiers []alerts.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	if cfg.Alerts.Log.Enabled {
		notifiers = append(notifiers, alerts.NewLogNotifier(logger))
	}

	return notifiers
}

// initSampler creates the usage sample source from config.
func initSampler(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sampler.Sampler, error) {
	switch cfg.Sampler.Source {
	case "aws":
		return sampler.NewCostExplorer(ctx, cfg.AWS.Region, cfg.AWS.Profile, logger)
	case "file":
		return sampler.NewFile(cfg.Sampler.Path), nil
	default:
		return nil, fmt.Errorf("unknown sampler source %q", cfg.Sampler.Source)
	}
}

// initRunner creates a fully wired pass runner.
func initRunner(ctx context.Context, cfg *config.Config) (*monitor.Runner, storage.Store, error) {
	logger := newLogger(cfg)

	cat, err := initCatalogue(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return nil, nil, err
	}

	smp, err := initSampler(ctx, cfg, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	engine := monitor.NewEngine(store, initNotifiers(cfg, logger), monitor.EngineOptions{
		RenotifyInterval: cfg.RenotifyInterval(),
		NotifyOnClose:    cfg.Monitor.NotifyOnClose,
	}, logger)

	runner := monitor.NewRunner(cat, smp, engine, store,
		cfg.MonitorThresholds(), cfg.SampleTimeout(), logger)

	return runner, store, nil
}
