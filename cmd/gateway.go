package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"fieldline/pkg/bus"
	"fieldline/pkg/config"
	"fieldline/pkg/dialog"
	"fieldline/pkg/directory"
	"fieldline/pkg/gateway"
	"fieldline/pkg/logger"
	"fieldline/pkg/provider"
	"fieldline/pkg/ratelimit"
	"fieldline/pkg/session"
	"fieldline/pkg/store"
	"fieldline/pkg/webhook"

	"github.com/spf13/cobra"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the webhook gateway",
	Long:  "Runs Fieldline as an HTTP gateway with webhook, health and readiness endpoints.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := loadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.gateway")

		dir, err := directory.OpenSQLite(cfg.Directory.Path)
		if err != nil {
			log.Error("Failed to open directory database", "path", cfg.Directory.Path, "error", err)
			return
		}
		defer dir.Close()

		sender, err := provider.NewHTTPSender(cfg.Provider.SendURL, cfg.Provider.APIKey, log)
		if err != nil {
			log.Error("Failed to initialize message sender", "error", err)
			return
		}

		backing := store.NewMemory()
		limiter := ratelimit.New(backing, cfg.Limits.MaxMessages, cfg.Limits.Window(), log)
		sessions := session.NewStore(backing, cfg.Session.TTL(), log)
		keywords := keywordsFromConfig(cfg.Dialog)
		events := bus.NewEventBus()
		defer events.Close()

		orchestrator, err := gateway.NewOrchestrator(
			dir,
			dir,
			limiter,
			sessions,
			dialog.NewClassifier(keywords),
			dialog.NewMatcher(keywords.Aliases),
			sender,
			events,
			log,
		)
		if err != nil {
			log.Error("Failed to initialize orchestrator", "error", err)
			return
		}

		processor := webhook.NewProcessor(cfg.Provider.ProductID, cfg.Provider.PhoneID, orchestrator, log)

		svc, err := gateway.NewService(cfg, processor, dir, log)
		if err != nil {
			log.Error("Failed to initialize gateway service", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go logEvents(runCtx, events, log)

		log.Info("Gateway started", "host", cfg.Gateway.Host, "port", cfg.Gateway.Port, "directory", cfg.Directory.Path)
		if err := svc.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Gateway runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}

func loadConfig() (*config.Config, error) {
	path, err := config.FindPath()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func keywordsFromConfig(cfg config.DialogConfig) dialog.Keywords {
	keywords := dialog.DefaultKeywords()
	if len(cfg.DataRequestKeywords) > 0 {
		keywords.DataRequest = cfg.DataRequestKeywords
	}
	if len(cfg.HelpKeywords) > 0 {
		keywords.Help = cfg.HelpKeywords
	}
	if len(cfg.CancelKeywords) > 0 {
		keywords.Cancel = cfg.CancelKeywords
	}
	if len(cfg.Aliases) > 0 {
		keywords.Aliases = cfg.Aliases
	}
	return keywords
}

// logEvents mirrors gateway lifecycle events into the log so a single
// instance has observability without an external sink.
func logEvents(ctx context.Context, events *bus.EventBus, log *slog.Logger) {
	eventCh, unsubscribe := events.Subscribe(ctx, 64)
	defer unsubscribe()

	eventLog := log.With("component", "events")
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			eventLog.Info("Gateway event",
				"type", string(event.Type),
				"request_id", event.RequestID,
				"sender_id", event.SenderID,
				"intent", event.Intent,
				"detail", event.Detail,
			)
		}
	}
}
