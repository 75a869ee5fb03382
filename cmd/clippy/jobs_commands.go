package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clippy/internal/config"
	"clippy/internal/ipc"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var (
		tasks     []string
		url       string
		videoID   string
		quality   string
		language  string
		model     string
		provider  string
		submitNow bool
	)

	cmd := &cobra.Command{
		Use:   "add [video-path]",
		Short: "Create a job with an ordered list of tasks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(tasks) == 0 {
				return errors.New("at least one --task is required")
			}

			var videoPath string
			if len(args) == 1 {
				expanded, err := config.ExpandPath(args[0])
				if err != nil {
					return err
				}
				videoPath = expanded
			}

			req := ipc.AddJobRequest{
				VideoID:   videoID,
				VideoPath: videoPath,
				Submit:    submitNow,
			}
			for _, raw := range tasks {
				task := ipc.TaskRequest{Type: strings.TrimSpace(raw)}
				switch task.Type {
				case "download":
					task.Download = &ipc.DownloadOptions{URL: url, Quality: quality}
				case "transcribe":
					task.Transcription = &ipc.TranscriptionOptions{Model: model, Language: language}
				case "analyze":
					task.Analysis = &ipc.AnalysisOptions{Provider: provider, Model: model}
				}
				req.Tasks = append(req.Tasks, task)
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AddJob(req)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created job %s with %d task(s)\n", resp.Job.ID, len(resp.Job.Tasks))
				if resp.Submitted {
					fmt.Fprintln(out, "Submission started")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&tasks, "task", "t", nil, "Task to run, in order (download, import, fix-aspect-ratio, normalize-audio, transcribe, analyze); repeatable")
	cmd.Flags().StringVar(&url, "url", "", "Source URL for download tasks")
	cmd.Flags().StringVar(&videoID, "video-id", "", "Known backend video identifier")
	cmd.Flags().StringVar(&quality, "quality", "", "Download quality override")
	cmd.Flags().StringVar(&language, "language", "", "Transcription language override")
	cmd.Flags().StringVar(&model, "model", "", "Model override for transcribe or analyze tasks")
	cmd.Flags().StringVar(&provider, "provider", "", "Analysis provider override")
	cmd.Flags().BoolVar(&submitNow, "submit", false, "Submit the job immediately after creating it")
	return cmd
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <job-id>",
		Short: "Submit a job to the backend and wait for it to settle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(args[0])
				if err != nil {
					return err
				}
				if !resp.Accepted {
					return errors.New(resp.Message)
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var expandAll bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.List(statuses)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(out, "No jobs tracked")
					return nil
				}
				fmt.Fprintln(out, renderTable(jobColumns, buildJobRows(resp.Jobs, expandAll)))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by overall status (repeatable)")
	cmd.Flags().BoolVarP(&expandAll, "all", "a", false, "Show task rows for every job")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job with full task detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Describe(args[0])
				if err != nil {
					return err
				}
				job := resp.Job
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job:      %s\n", job.ID)
				fmt.Fprintf(out, "Status:   %s (%s)\n", statusLabel(job.Status), formatProgress(job.Progress))
				if job.VideoID != "" {
					fmt.Fprintf(out, "Video ID: %s\n", job.VideoID)
				}
				if job.VideoPath != "" {
					fmt.Fprintf(out, "Path:     %s\n", job.VideoPath)
				}
				fmt.Fprintf(out, "Created:  %s\n", formatCreated(job.CreatedAt))
				if job.CompletedAt != nil {
					fmt.Fprintf(out, "Finished: %s\n", formatCreated(*job.CompletedAt))
				}
				fmt.Fprintln(out, renderTable(taskColumns, buildTaskRows(job)))
				return nil
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <job-id>",
		Short: "Stop tracking a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Remove(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !resp.Removed {
					fmt.Fprintf(out, "Job %s not found\n", args[0])
					return nil
				}
				fmt.Fprintf(out, "Job %s removed\n", args[0])
				return nil
			})
		},
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	var completedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove tracked jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Clear(completedOnly)
				if err != nil {
					return err
				}
				label := "job(s)"
				if completedOnly {
					label = "completed job(s)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s\n", resp.Removed, label)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&completedOnly, "completed", false, "Remove only jobs whose every task finished")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id> <task-id>",
		Short: "Re-queue a failed task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Retry(args[0], args[1])
				if err != nil {
					return err
				}
				if !resp.Accepted {
					return errors.New(resp.Message)
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}
}

func newToggleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <job-id>",
		Short: "Flip a job's expanded display flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ToggleExpansion(args[0])
				if err != nil {
					return err
				}
				if !resp.Toggled {
					fmt.Fprintf(cmd.OutOrStdout(), "Job %s not found\n", args[0])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s toggled\n", args[0])
				return nil
			})
		},
	}
}
