package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/clawai/internal/config"
	"github.com/nextlevelbuilder/clawai/internal/cron"
)

// openCronService loads the scheduler against the persistent store with
// a no-op callback, for offline job management.
func openCronService() (*cron.Service, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	paths := config.NewPaths(cfg)
	if err := paths.Ensure(); err != nil {
		return nil, err
	}
	return cron.NewService(paths.CronStorePath(), func(ctx context.Context, job *cron.Job) (string, error) {
		return "", nil
	}), nil
}

func cronCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Manage scheduled jobs",
	}
	cmd.AddCommand(cronListCmd(), cronAddCmd(), cronRemoveCmd())
	return cmd
}

func cronListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scheduled jobs",
		Run: func(cmd *cobra.Command, args []string) {
			setupLogging()
			svc, err := openCronService()
			if err != nil {
				slog.Error("failed to open scheduler", "error", err)
				os.Exit(1)
			}

			jobs := svc.ListJobs(all)
			if len(jobs) == 0 {
				fmt.Println("No scheduled jobs.")
				return
			}
			for _, job := range jobs {
				next := "-"
				if job.State.NextRunAtMs > 0 {
					next = time.UnixMilli(job.State.NextRunAtMs).Local().Format("2006-01-02 15:04:05")
				}
				fmt.Printf("%-10s %-24s %-10s next=%s runs=%d\n",
					job.ID, job.Name, job.Schedule.Kind, next, job.State.RunCount)
			}
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include disabled jobs")
	return cmd
}

func cronAddCmd() *cobra.Command {
	var (
		name    string
		message string
		every   int64
		expr    string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a scheduled job",
		Run: func(cmd *cobra.Command, args []string) {
			setupLogging()
			if message == "" {
				fmt.Fprintln(os.Stderr, "error: --message is required")
				os.Exit(1)
			}
			if every <= 0 && expr == "" {
				fmt.Fprintln(os.Stderr, "error: provide --every <seconds> or --cron <expr>")
				os.Exit(1)
			}

			svc, err := openCronService()
			if err != nil {
				slog.Error("failed to open scheduler", "error", err)
				os.Exit(1)
			}

			schedule := cron.Schedule{Kind: cron.KindEvery, EveryMs: every * 1000}
			if expr != "" {
				schedule = cron.Schedule{Kind: cron.KindCron, Expr: expr}
			}
			if name == "" {
				name = message
			}

			job, err := svc.AddJob(name, schedule, cron.Payload{
				Kind:    cron.PayloadAgentTurn,
				Message: message,
			}, false)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Added job %s (%s)\n", job.ID, job.Name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "job name (defaults to the message)")
	cmd.Flags().StringVar(&message, "message", "", "agent prompt to run on schedule")
	cmd.Flags().Int64Var(&every, "every", 0, "run interval in seconds")
	cmd.Flags().StringVar(&expr, "cron", "", "cron expression (5-field)")
	return cmd
}

func cronRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <job-id>",
		Short: "Remove a scheduled job",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			setupLogging()
			svc, err := openCronService()
			if err != nil {
				slog.Error("failed to open scheduler", "error", err)
				os.Exit(1)
			}
			if svc.RemoveJob(args[0]) {
				fmt.Printf("Removed job %s\n", args[0])
			} else {
				fmt.Fprintf(os.Stderr, "job %s not found\n", args[0])
				os.Exit(1)
			}
		},
	}
}
