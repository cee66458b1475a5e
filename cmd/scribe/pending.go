package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/aretw0/scribe/internal/app"
	"github.com/aretw0/scribe/pkg/domain"
	"github.com/spf13/cobra"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Inspect messages waiting for confirmation",
	Long:  `Lists or discards pending entries in the configured store. Only useful with a persistent driver (file, sqlite, redis).`,
}

var pendingLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List pending entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := app.New(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Coordinator.Pending(cmd.Context())
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			if entries == nil {
				entries = []domain.PendingEntry{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CHAT\tMESSAGE\tSENDER\tAGE\tTASKS")
		seg := a.Coordinator.Segmenter()
		for _, e := range entries {
			age := time.Since(e.CreatedAt).Truncate(time.Second)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", e.Key.ChatID, e.Key.MessageID, e.SenderID, age, len(seg.Tasks(e.RawText)))
		}
		return w.Flush()
	},
}

var pendingRmCmd = &cobra.Command{
	Use:     "rm <chat_id> <message_id>",
	Aliases: []string{"discard"},
	Short:   "Discard a pending entry",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := app.New(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		key := domain.MessageKey{ChatID: args[0], MessageID: args[1]}
		if err := a.Coordinator.Discard(cmd.Context(), key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "discarded %s\n", key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pendingCmd)
	pendingCmd.AddCommand(pendingLsCmd, pendingRmCmd)
	pendingLsCmd.Flags().Bool("json", false, "Print entries as JSON")
}
