package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"jukebot/internal/audit"
	"jukebot/internal/config"

	"github.com/spf13/cobra"
)

func auditCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent admin and blacklist actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store, err := audit.Open(cfg.Moderation.DBPath, logger)
			if err != nil {
				return fmt.Errorf("audit store: %w", err)
			}
			defer store.Close()

			entries, err := store.List(context.Background(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No audit entries.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tACTION\tTRANSPORT\tCHANNEL\tUSER\tCOMMAND\tRESULT")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					e.Action, e.Transport, e.Channel, e.User, e.Command, e.Result)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}
