package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fieldline/pkg/logger"
	"fieldline/pkg/msisdn"
	"fieldline/pkg/provider"

	"github.com/spf13/cobra"
)

var sendDryRun bool

// sendCmd sends one message through the configured provider. Operators use
// it to verify credentials and sender numbers without waiting for a webhook.
var sendCmd = &cobra.Command{
	Use:   "send <number> <message...>",
	Short: "Send a one-off message through the provider",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
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
		log := slog.Default().With("component", "cmd.send")

		to, err := msisdn.Normalize(args[0])
		if err != nil {
			fmt.Printf("invalid recipient %q: %v\n", args[0], err)
			return
		}
		body := strings.Join(args[1:], " ")

		var sender provider.Sender
		if sendDryRun {
			sender = &provider.Mock{}
		} else {
			sender, err = provider.NewHTTPSender(cfg.Provider.SendURL, cfg.Provider.APIKey, log)
			if err != nil {
				fmt.Printf("failed to initialize message sender: %v\n", err)
				return
			}
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if err := sender.Send(ctx, to, body); err != nil {
			log.Error("Send failed", "to", to, "error", err)
			return
		}

		if sendDryRun {
			fmt.Printf("dry run: would send %q to %s\n", body, to)
			return
		}
		fmt.Printf("sent to %s\n", to)
	},
}

func init() {
	sendCmd.Flags().BoolVar(&sendDryRun, "dry-run", false, "validate and print instead of sending")
	rootCmd.AddCommand(sendCmd)
}
