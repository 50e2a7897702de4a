package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/clawai/internal/agent"
	"github.com/nextlevelbuilder/clawai/internal/bootstrap"
	"github.com/nextlevelbuilder/clawai/internal/bus"
	"github.com/nextlevelbuilder/clawai/internal/channels"
	"github.com/nextlevelbuilder/clawai/internal/channels/discord"
	"github.com/nextlevelbuilder/clawai/internal/channels/feishu"
	"github.com/nextlevelbuilder/clawai/internal/channels/telegram"
	"github.com/nextlevelbuilder/clawai/internal/channels/whatsapp"
	"github.com/nextlevelbuilder/clawai/internal/config"
	"github.com/nextlevelbuilder/clawai/internal/cron"
	"github.com/nextlevelbuilder/clawai/internal/heartbeat"
	"github.com/nextlevelbuilder/clawai/internal/providers"
	"github.com/nextlevelbuilder/clawai/internal/sessions"
	"github.com/nextlevelbuilder/clawai/internal/skills"
	"github.com/nextlevelbuilder/clawai/internal/tools"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the assistant gateway (channels, scheduler, heartbeat)",
		Run: func(cmd *cobra.Command, args []string) {
			runGateway()
		},
	}
}

// runtime holds the assembled long-running services.
type runtime struct {
	cfg       *config.Config
	paths     config.Paths
	bus       *bus.MessageBus
	loop      *agent.Loop
	sessions  *sessions.Manager
	cronSvc   *cron.Service
	heartbeat *heartbeat.Service
	manager   *channels.Manager
	watcher   *skills.Watcher
}

// buildRuntime wires every component of the assistant together.
func buildRuntime(cfg *config.Config) (*runtime, error) {
	paths := config.NewPaths(cfg)
	if err := paths.Ensure(); err != nil {
		return nil, fmt.Errorf("create runtime directories: %w", err)
	}
	if created, err := bootstrap.EnsureWorkspaceFiles(paths.Workspace); err != nil {
		slog.Warn("workspace bootstrap failed", "error", err)
	} else if len(created) > 0 {
		slog.Info("seeded workspace files", "files", created)
	}

	registry := providers.FromConfig(cfg)
	model := cfg.Agents.Defaults.Model
	provider, err := registry.ForModel(model)
	if err != nil {
		return nil, fmt.Errorf("no usable LLM provider: %w", err)
	}

	msgBus := bus.New()
	sessionMgr := sessions.NewManager(paths.Sessions)
	skillsLoader := skills.NewLoader(paths.Skills, "")

	// Subagents get their own isolated tool set without messaging,
	// spawning, or scheduling.
	createTools := func() *tools.Registry {
		return buildBaseTools(cfg, paths)
	}

	registry2 := buildBaseTools(cfg, paths)
	registry2.Register(tools.NewMessageTool(msgBus))

	subagents := tools.NewSubagentManager(provider, model, paths.Workspace, msgBus, createTools)
	registry2.Register(tools.NewSpawnTool(subagents))

	loop := agent.New(agent.Config{
		Bus:       msgBus,
		Provider:  provider,
		Model:     model,
		Workspace: paths.Workspace,
		Sessions:  sessionMgr,
		Tools:     registry2,
		Skills:    skillsLoader,
		MaxSteps:  cfg.Agents.Defaults.MaxToolIterations,
	})

	cronSvc := cron.NewService(paths.CronStorePath(), cronCallback(loop, msgBus))
	registry2.Register(tools.NewCronTool(cronSvc))

	var hb *heartbeat.Service
	if cfg.Heartbeat.Enabled {
		interval := heartbeat.DefaultInterval
		if cfg.Heartbeat.IntervalMinutes > 0 {
			interval = time.Duration(cfg.Heartbeat.IntervalMinutes) * time.Minute
		}
		hb = heartbeat.NewService(paths.Workspace, func(ctx context.Context, prompt string) (string, error) {
			return loop.ProcessDirect(ctx, prompt, "heartbeat"), nil
		}, heartbeat.WithInterval(interval))
	}

	manager := channels.NewManager(msgBus, slog.Default())
	registerChannels(cfg, msgBus, manager)

	return &runtime{
		cfg:       cfg,
		paths:     paths,
		bus:       msgBus,
		loop:      loop,
		sessions:  sessionMgr,
		cronSvc:   cronSvc,
		heartbeat: hb,
		manager:   manager,
		watcher:   skills.NewWatcher(paths.Skills, skillsLoader, slog.Default()),
	}, nil
}

// buildBaseTools assembles the filesystem, shell, and web tools shared
// by the agent and its subagents.
func buildBaseTools(cfg *config.Config, paths config.Paths) *tools.Registry {
	registry := tools.NewRegistry()
	registry.Register(tools.NewReadFileTool())
	registry.Register(tools.NewWriteFileTool())
	registry.Register(tools.NewEditFileTool())
	registry.Register(tools.NewListDirTool())

	var execOpts []tools.ExecOption
	if cfg.Tools.Exec.Timeout > 0 {
		execOpts = append(execOpts, tools.WithExecTimeout(time.Duration(cfg.Tools.Exec.Timeout)*time.Second))
	}
	registry.Register(tools.NewExecTool(paths.Workspace, cfg.Tools.RestrictToWorkspace, execOpts...))

	registry.Register(tools.NewWebSearchTool(tools.WebSearchConfig{
		BraveAPIKey: cfg.Tools.Web.Search.APIKey,
		MaxResults:  cfg.Tools.Web.Search.MaxResults,
	}))
	registry.Register(tools.NewWebFetchTool())
	return registry
}

// cronCallback runs a scheduled job as an agent turn and optionally
// delivers the result to an external conversation.
func cronCallback(loop *agent.Loop, msgBus *bus.MessageBus) cron.Callback {
	return func(ctx context.Context, job *cron.Job) (string, error) {
		result := loop.ProcessDirect(ctx, job.Payload.Message, "cron:"+job.ID)
		if job.Payload.Deliver && job.Payload.Channel != "" && job.Payload.To != "" {
			msgBus.PublishOutbound(bus.OutboundMessage{
				Channel: job.Payload.Channel,
				ChatID:  job.Payload.To,
				Content: result,
			})
		}
		return result, nil
	}
}

// registerChannels instantiates every enabled channel adapter.
func registerChannels(cfg *config.Config, msgBus *bus.MessageBus, manager *channels.Manager) {
	if cfg.Channels.Telegram.Enabled {
		if ch, err := telegram.New(cfg.Channels.Telegram, msgBus); err != nil {
			slog.Error("telegram channel setup failed", "error", err)
		} else {
			manager.Register(ch)
		}
	}
	if cfg.Channels.Discord.Enabled {
		if ch, err := discord.New(cfg.Channels.Discord, msgBus); err != nil {
			slog.Error("discord channel setup failed", "error", err)
		} else {
			manager.Register(ch)
		}
	}
	if cfg.Channels.Feishu.Enabled {
		if ch, err := feishu.New(cfg.Channels.Feishu, msgBus); err != nil {
			slog.Error("feishu channel setup failed", "error", err)
		} else {
			manager.Register(ch)
		}
	}
	if cfg.Channels.WhatsApp.Enabled {
		if ch, err := whatsapp.New(cfg.Channels.WhatsApp, msgBus); err != nil {
			slog.Error("whatsapp channel setup failed", "error", err)
		} else {
			manager.Register(ch)
		}
	}
}

// runGateway is the long-running entry point: it starts every service
// and blocks until SIGINT/SIGTERM.
func runGateway() {
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt.bus.Start(ctx)
	go rt.loop.Run(ctx)
	rt.cronSvc.Start(ctx)
	if rt.heartbeat != nil {
		rt.heartbeat.Start(ctx)
	}
	if err := rt.watcher.Start(ctx); err != nil {
		slog.Warn("skills watcher failed to start", "error", err)
	}
	rt.manager.StartAll(ctx)

	slog.Info("clawai gateway running",
		"workspace", rt.paths.Workspace,
		"channels", rt.manager.Names(),
		"model", cfg.Agents.Defaults.Model,
	)

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	rt.manager.StopAll(shutdownCtx)
	if rt.heartbeat != nil {
		rt.heartbeat.Stop()
	}
	rt.watcher.Stop()
	rt.cronSvc.Stop()
	rt.bus.Stop()

	slog.Info("shutdown complete")
}
