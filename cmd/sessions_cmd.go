package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/clawai/internal/config"
	"github.com/nextlevelbuilder/clawai/internal/sessions"
)

func openSessionManager() (*sessions.Manager, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	paths := config.NewPaths(cfg)
	if err := paths.Ensure(); err != nil {
		return nil, err
	}
	return sessions.NewManager(paths.Sessions), nil
}

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage conversation sessions",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored sessions",
			Run: func(cmd *cobra.Command, args []string) {
				setupLogging()
				mgr, err := openSessionManager()
				if err != nil {
					slog.Error("failed to open sessions", "error", err)
					os.Exit(1)
				}
				infos := mgr.List()
				if len(infos) == 0 {
					fmt.Println("No sessions.")
					return
				}
				for _, info := range infos {
					fmt.Printf("%-30s updated=%s\n", info.Key, info.UpdatedAt)
				}
			},
		},
		&cobra.Command{
			Use:   "clear <session-key>",
			Short: "Delete a session's history",
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				setupLogging()
				mgr, err := openSessionManager()
				if err != nil {
					slog.Error("failed to open sessions", "error", err)
					os.Exit(1)
				}
				if mgr.Delete(args[0]) {
					fmt.Printf("Deleted session %s\n", args[0])
				} else {
					fmt.Fprintf(os.Stderr, "session %s not found\n", args[0])
					os.Exit(1)
				}
			},
		},
	)
	return cmd
}
