package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/clawai/internal/config"
)

func agentCmd() *cobra.Command {
	var message string
	var sessionKey string

	cmd := &cobra.Command{
		Use:     "agent",
		Aliases: []string{"chat"},
		Short:   "Chat with the assistant from the terminal",
		Long:    "Runs one agent turn with -m, or an interactive REPL without it. Channels are not started; replies print to stdout.",
		Run: func(cmd *cobra.Command, args []string) {
			setupLogging()

			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				slog.Error("failed to load config", "error", err)
				os.Exit(1)
			}

			rt, err := buildRuntime(cfg)
			if err != nil {
				slog.Error("failed to build runtime", "error", err)
				os.Exit(1)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// The bus and scheduler run so the message and cron tools
			// work, but no external channels are started.
			rt.bus.Start(ctx)
			defer rt.bus.Stop()
			rt.cronSvc.Start(ctx)
			defer rt.cronSvc.Stop()

			if message != "" {
				fmt.Println(rt.loop.ProcessDirect(ctx, message, sessionKey))
				return
			}

			runREPL(ctx, rt, sessionKey)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "run a single turn with this message and exit")
	cmd.Flags().StringVar(&sessionKey, "session", "", `session key (default "cli:direct")`)
	return cmd
}

func runREPL(ctx context.Context, rt *runtime, sessionKey string) {
	fmt.Println("ClawAI interactive chat. Type 'exit' or 'quit' to leave.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}

		fmt.Println(rt.loop.ProcessDirect(ctx, line, sessionKey))
	}
}
