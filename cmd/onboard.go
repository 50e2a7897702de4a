package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/clawai/internal/bootstrap"
	"github.com/nextlevelbuilder/clawai/internal/config"
)

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Create the config file and seed the workspace",
		Run: func(cmd *cobra.Command, args []string) {
			setupLogging()

			cfgPath := resolveConfigPath()
			if err := writeDefaultConfig(cfgPath); err != nil {
				slog.Error("failed to write config", "error", err)
				os.Exit(1)
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				slog.Error("failed to load config", "error", err)
				os.Exit(1)
			}
			paths := config.NewPaths(cfg)
			if err := paths.Ensure(); err != nil {
				slog.Error("failed to create directories", "error", err)
				os.Exit(1)
			}

			created, err := bootstrap.EnsureWorkspaceFiles(paths.Workspace)
			if err != nil {
				slog.Error("failed to seed workspace", "error", err)
				os.Exit(1)
			}
			for _, name := range created {
				fmt.Printf("Created %s\n", filepath.Join(paths.Workspace, name))
			}

			if err := seedMemoryIndex(paths.Memory); err != nil {
				slog.Warn("failed to seed memory index", "error", err)
			}

			fmt.Println()
			fmt.Println("ClawAI is set up. Next steps:")
			fmt.Printf("  1. Add a provider API key to %s (or export CLAWAI_ANTHROPIC_API_KEY)\n", cfgPath)
			fmt.Println("  2. Chat from the terminal:   clawai agent")
			fmt.Println("  3. Run the gateway:          clawai run")
		},
	}
}

// writeDefaultConfig creates the config file with defaults if it does
// not already exist.
func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists at %s\n", path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(config.Default(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return err
	}
	fmt.Printf("Created config at %s\n", path)
	return nil
}

func seedMemoryIndex(memoryDir string) error {
	path := filepath.Join(memoryDir, "MEMORY.md")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	content := "# Long-term Memory\n\nCurated notes the assistant keeps across conversations.\n"
	return os.WriteFile(path, []byte(content), 0o644)
}
