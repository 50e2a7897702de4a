package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/clawai/internal/config"
	"github.com/nextlevelbuilder/clawai/internal/providers"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current configuration at a glance",
		Run: func(cmd *cobra.Command, args []string) {
			setupLogging()

			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				slog.Error("failed to load config", "error", err)
				os.Exit(1)
			}
			paths := config.NewPaths(cfg)

			fmt.Printf("clawai %s\n\n", Version)
			fmt.Printf("Config:    %s%s\n", cfgPath, existsNote(cfgPath))
			fmt.Printf("Workspace: %s\n", paths.Workspace)
			fmt.Printf("Model:     %s\n", cfg.Agents.Defaults.Model)

			names := providers.FromConfig(cfg).List()
			if len(names) == 0 {
				fmt.Println("Providers: none configured (set an API key)")
			} else {
				fmt.Printf("Providers: %s\n", strings.Join(names, ", "))
			}

			var enabled []string
			if cfg.Channels.Telegram.Enabled {
				enabled = append(enabled, "telegram")
			}
			if cfg.Channels.Discord.Enabled {
				enabled = append(enabled, "discord")
			}
			if cfg.Channels.Feishu.Enabled {
				enabled = append(enabled, "feishu")
			}
			if cfg.Channels.WhatsApp.Enabled {
				enabled = append(enabled, "whatsapp")
			}
			if len(enabled) == 0 {
				fmt.Println("Channels:  none enabled")
			} else {
				fmt.Printf("Channels:  %s\n", strings.Join(enabled, ", "))
			}

			fmt.Printf("Heartbeat: %s\n", onOff(cfg.Heartbeat.Enabled))
		},
	}
}

func existsNote(path string) string {
	if _, err := os.Stat(path); err != nil {
		return " (missing, run 'clawai onboard')"
	}
	return ""
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
