package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/scribe/internal/app"
	"github.com/aretw0/scribe/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the Telegram poller",
	Long: `Starts the HTTP API and, when a bot token is configured, long-polls Telegram
for business messages and reactions. Stops gracefully on SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}

		if term.IsTerminal(int(os.Stderr.Fd())) {
			tui.PrintBanner(os.Stderr)
		}

		a, err := app.New(cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				logger.Warn("Failed to close store", "err", err)
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("Starting scribe", "telegram", cfg.Telegram.Enabled, "store", cfg.Store.Driver)
		return a.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "HTTP listen address (overrides http.addr)")
}
