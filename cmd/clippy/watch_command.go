package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"clippy/internal/ipc"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		statuses  []string
		expandAll bool
		wait      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Continuously render the job table as the daemon publishes changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if wait < time.Second {
				wait = time.Second
			}

			return ctx.withClient(func(client *ipc.Client) error {
				// Unblock the in-flight long poll on interrupt.
				go func() {
					<-cmd.Context().Done()
					client.Close()
				}()

				out := cmd.OutOrStdout()
				initial, err := client.List(statuses)
				if err != nil {
					return err
				}
				renderWatchFrame(out, initial.Jobs, expandAll)

				cursor := uint64(0)
				for {
					resp, err := client.Watch(ipc.WatchRequest{
						Cursor:     cursor,
						WaitMillis: int(wait / time.Millisecond),
					})
					if err != nil {
						if cmd.Context().Err() != nil {
							return nil
						}
						return err
					}
					if !resp.Changed {
						continue
					}
					cursor = resp.Cursor
					renderWatchFrame(out, filterJobViews(resp.Jobs, statuses), expandAll)
				}
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by overall status (repeatable)")
	cmd.Flags().BoolVarP(&expandAll, "all", "a", false, "Show task rows for every job")
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "Long-poll wait per request")
	return cmd
}

func renderWatchFrame(out io.Writer, views []ipc.JobView, expandAll bool) {
	// ANSI clear + home keeps the table anchored between updates.
	fmt.Fprint(out, "\033[2J\033[H")
	fmt.Fprintf(out, "clippy jobs (%s)\n\n", time.Now().Format("15:04:05"))
	if len(views) == 0 {
		fmt.Fprintln(out, "No jobs tracked")
		return
	}
	fmt.Fprintln(out, renderTable(jobColumns, buildJobRows(views, expandAll)))
}

func filterJobViews(views []ipc.JobView, statuses []string) []ipc.JobView {
	if len(statuses) == 0 {
		return views
	}
	wanted := make(map[string]bool, len(statuses))
	for _, status := range statuses {
		wanted[status] = true
	}
	kept := make([]ipc.JobView, 0, len(views))
	for _, view := range views {
		if wanted[view.Status] {
			kept = append(kept, view)
		}
	}
	return kept
}
