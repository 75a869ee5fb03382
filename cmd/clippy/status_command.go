package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clippy/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Running: %s\n", yesNo(resp.Running))
				fmt.Fprintf(out, "Session: %s\n", resp.SessionID)
				fmt.Fprintf(out, "PID:     %d\n", resp.PID)
				fmt.Fprintf(out, "Cache:   %s\n", resp.CachePath)
				fmt.Fprintf(out, "Lock:    %s\n", resp.LockPath)
				rows := buildStatsRows(resp.JobStats)
				if len(rows) == 0 {
					fmt.Fprintln(out, "No jobs tracked")
					return nil
				}
				fmt.Fprintln(out, renderTable(statColumns, rows))
				return nil
			})
		},
	}
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				if !resp.Sent {
					return fmt.Errorf("notification test failed: %s", resp.Message)
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}
}
