package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"valet/internal/actions"
	"valet/internal/bridge"
	"valet/internal/config"
	"valet/internal/engine"
	"valet/internal/goals"
	"valet/internal/memory"
	"valet/internal/provider"
	"valet/internal/repl"
	"valet/internal/router"
	"valet/internal/scheduler"
	"valet/internal/session"
	"valet/internal/tokencount"
	"valet/internal/tools"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config JSON")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	baseDir := cfg.Runtime.BaseDir
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "init data dir failed: %v\n", err)
		os.Exit(1)
	}

	store, err := memory.Open(cfg.Memory.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init memory failed: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	goalManager, err := goals.NewManager(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init goals failed: %v\n", err)
		os.Exit(1)
	}
	todos, err := memory.NewTodoList(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init todos failed: %v\n", err)
		os.Exit(1)
	}

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve cwd failed: %v\n", err)
		os.Exit(1)
	}

	sess := session.NewState(cfg.Runtime.ContextWindow)
	tokenizer := tokencount.Default()
	sessionID := uuid.NewString()[:8]

	// The browser extension transport attaches out of process; until it does,
	// every bridge command reports disconnected and navigation falls back to
	// direct fetch.
	gate := bridge.NewAuthGate(bridge.Unavailable{})
	cmdTimeout := time.Duration(cfg.Bridge.CommandTimeoutMS) * time.Millisecond

	mac := actions.NewMac(actions.ExecRunner)
	browser := actions.NewBrowser(gate, cmdTimeout)
	pages := actions.NewPageFetcher(cmdTimeout)
	search := actions.NewWebSearch(cmdTimeout)
	shell := actions.NewShell(time.Duration(cfg.Safety.CommandTimeoutMS)*time.Millisecond, cfg.Safety.OutputLimitBytes)
	gitCLI := actions.NewGitCLI(actions.ExecRunner)
	workspace := actions.NewWorkspace(workDir)
	messenger := actions.NewMessenger(mac, browser)

	rtr := router.New(router.Deps{
		Session:   sess,
		System:    mac,
		Media:     mac,
		Device:    mac,
		Messaging: messenger,
		Vision:    mac,
		Browser:   browser,
		Pages:     pages,
		Terminal:  shell,
		Search:    search,
		Git:       gitCLI,
		Files:     workspace,
		MCP:       actions.NoMCP{},
		Goals:     goalManager,
		Memory:    store,
		Todos:     todos,
		WorkDir:   workDir,

		SessionID:   sessionID,
		AutoDistill: cfg.Memory.AutoDistill,
	})

	var allTools []tools.Tool
	allTools = append(allTools, tools.DesktopTools(mac, mac, mac, messenger, mac, sess)...)
	allTools = append(allTools, tools.BrowserTools(browser, pages, sess)...)
	allTools = append(allTools, tools.ShellTools(shell, search)...)
	allTools = append(allTools, tools.MemoryTools(store, todos, sessionID)...)
	allTools = append(allTools, tools.GoalTools(goalManager)...)
	allTools = append(allTools, tools.WorkspaceTools(workspace, gitCLI, workDir)...)
	registry := tools.NewRegistry(allTools...)

	recall := memory.NewAssembler(store, tokenizer, cfg.Memory.RecallMaxTokens)
	eng := engine.New(engine.Options{
		Provider:    provider.NewOpenAI(cfg.Provider),
		Registry:    registry,
		Session:     sess,
		Store:       store,
		Goals:       goalManager,
		Recall:      recall,
		Tokenizer:   tokenizer,
		MaxSteps:    cfg.Provider.MaxSteps,
		SessionID:   sessionID,
		AutoDistill: cfg.Memory.AutoDistill,
		RecallOn:    cfg.Memory.Recall,
	})

	housekeeper := memory.NewHousekeeper(store, baseDir, memory.HousekeeperOptions{
		Interval:   24 * time.Hour,
		FactTTL:    time.Duration(cfg.Memory.FactTTLDays) * 24 * time.Hour,
		EventTTL:   time.Duration(cfg.Memory.EventTTLDays) * 24 * time.Hour,
		EpisodeTTL: time.Duration(cfg.Memory.EpisodeTTLDays) * 24 * time.Hour,
	})
	sched := scheduler.New(scheduler.Job{
		Name:  "housekeeping",
		Every: time.Hour,
		Fn: func() error {
			_, err := housekeeper.RunIfDue(time.Now())
			return err
		},
	})
	sched.Start()
	defer sched.Stop()

	loop := repl.NewLoop(rtr, eng, sess, gate, os.Stdout)
	if err := loop.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "repl: %v\n", err)
		os.Exit(1)
	}
}
