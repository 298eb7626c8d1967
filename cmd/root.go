package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"quoterm/internal/bus"
	"quoterm/internal/config"
	"quoterm/internal/lifecycle"
	"quoterm/internal/log"
	"quoterm/internal/term"
	"quoterm/internal/tracing"
	"quoterm/internal/watcher"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// the Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:     "quoterm",
	Short:   "An interactive market-watch console",
	Long:    `quoterm is the interactive console shell of a market-watch terminal: it renders session messages, captures keyboard input, and shuts the process down in an orderly, exactly-once sequence.`,
	Version: version,
	RunE:    runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .quoterm/config.yaml or ~/.config/quoterm/config.yaml)")
	rootCmd.Flags().Bool("debug", false,
		"enable debug logging and the log overlay (ctrl+x)")
	rootCmd.Flags().String("env", "",
		"environment tag (development or production)")
	rootCmd.Flags().Bool("trace", false,
		"trace event dispatch to the configured span file")
	rootCmd.Flags().Bool("no-watch-config", false,
		"disable live config reloading")

	// Bind flags to viper
	_ = viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))
	_ = viper.BindPFlag("env", rootCmd.Flags().Lookup("env"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("env", defaults.Env)
	viper.SetDefault("debug", defaults.Debug)
	viper.SetDefault("grace_delay_ms", defaults.GraceDelayMS)
	viper.SetDefault("max_listeners", defaults.MaxListeners)
	viper.SetDefault("watch_config", defaults.WatchConfig)
	viper.SetDefault("log_path", defaults.LogPath)
	viper.SetDefault("trace.enabled", defaults.Trace.Enabled)
	viper.SetDefault("trace.path", defaults.Trace.Path)
	viper.SetDefault("theme.highlight", defaults.Theme.Highlight)
	viper.SetDefault("theme.subtle", defaults.Theme.Subtle)
	viper.SetDefault("theme.info", defaults.Theme.Info)
	viper.SetDefault("theme.warning", defaults.Theme.Warning)
	viper.SetDefault("theme.error", defaults.Theme.Error)
	viper.SetDefault("theme.success", defaults.Theme.Success)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .quoterm/config.yaml (current directory)
		// 2. ~/.config/quoterm/config.yaml (user config)
		if _, err := os.Stat(".quoterm/config.yaml"); err == nil {
			viper.SetConfigFile(".quoterm/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "quoterm"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .quoterm/config.yaml
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := ".quoterm/config.yaml"
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

func runApp(cmd *cobra.Command, args []string) (err error) {
	if os.Getenv("QUOTERM_DEBUG") != "" {
		cfg.Debug = true
	}
	if traceFlag, _ := cmd.Flags().GetBool("trace"); traceFlag {
		cfg.Trace.Enabled = true
	}
	if noWatch, _ := cmd.Flags().GetBool("no-watch-config"); noWatch {
		cfg.WatchConfig = false
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return fmt.Errorf("invalid configuration: %w", validateErr)
	}

	if cfg.Debug {
		if mkErr := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o750); mkErr == nil {
			if cleanup, logErr := log.Init(cfg.LogPath); logErr == nil {
				defer cleanup()
			}
		}
		// Logging failures are not fatal - the app works without the log file.
	}

	// Assembly order: bus, session, terminal, orchestrator, watcher.
	// Everything is constructed here and passed by reference; nothing
	// reaches for a global.
	b := bus.NewWithLimit(cfg.MaxListeners)
	b.AddObserver(bus.LogObserver{})

	var traceShutdown func(context.Context) error
	if cfg.Trace.Enabled {
		tracer, shutdown, traceErr := tracing.Init(cfg.Trace)
		if traceErr != nil {
			return fmt.Errorf("initializing tracing: %w", traceErr)
		}
		traceShutdown = shutdown
		b.AddObserver(tracing.NewObserver(tracer))
	}

	session := lifecycle.NewSession(version, cfg.Env)
	log.Info(log.CatLifecycle, "session created",
		"id", session.ID, "env", session.Env, "version", session.Version)

	ui := term.New(term.Config{
		Session: term.SessionInfo{ID: session.ID, Env: session.Env, Version: session.Version},
		Theme:   cfg.Theme,
		Debug:   cfg.Debug,
	})

	// The surface only emits events; routing decisions stay with the
	// orchestrator's subscriptions.
	ui.OnKey(func(name string, raw []rune) {
		b.Publish(bus.TermKey{Name: name, Raw: raw})
	})
	ui.OnResize(func(width, height int) {
		b.Publish(bus.TermResize{Width: width, Height: height})
	})
	ui.OnExit(func(reason string) {
		b.Publish(bus.TermExit{Reason: reason})
	})

	exited := make(chan int, 1)
	orch := lifecycle.New(b, ui, session, cfg.GraceDelay(), func(code int) {
		exited <- code
	})

	defer func() {
		if r := recover(); r != nil {
			orch.Fatal(fmt.Errorf("unhandled panic: %v", r))
			err = fmt.Errorf("unhandled panic: %v", r)
		}
	}()

	// Live config reload: swap the theme without restarting.
	b.Subscribe(bus.KindConfigReload, func(bus.Event) {
		if readErr := viper.ReadInConfig(); readErr != nil {
			log.ErrorErr(log.CatConfig, "config reload failed", readErr)
			return
		}
		var next config.Config
		if unmarshalErr := viper.Unmarshal(&next); unmarshalErr != nil {
			log.ErrorErr(log.CatConfig, "config reload failed", unmarshalErr)
			return
		}
		if validateErr := next.Validate(); validateErr != nil {
			log.ErrorErr(log.CatConfig, "reloaded config rejected", validateErr)
			return
		}
		ui.ApplyTheme(next.Theme)
		ui.Render(term.KindInfo, "configuration reloaded", nil)
	})

	if cfg.WatchConfig && viper.ConfigFileUsed() != "" {
		if w, watchErr := watcher.New(watcher.DefaultConfig(viper.ConfigFileUsed()), b); watchErr == nil {
			if startErr := w.Start(); startErr == nil {
				defer func() { _ = w.Stop() }()
			} else {
				_ = w.Stop()
			}
		}
		// Watcher init errors are nonfatal; live reload just stays off.
	}

	// SIGINT/SIGTERM map to terminal:exit; the state machine treats
	// them like any other exit trigger.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for sig := range sigCh {
			b.Publish(bus.TermExit{Reason: "signal:" + sig.String()})
		}
	}()

	// Start the lifecycle once the update loop is accepting messages.
	go func() {
		<-ui.Ready()
		if startErr := orch.Start(); startErr != nil {
			orch.Fatal(startErr)
		}
	}()

	if runErr := ui.Run(); runErr != nil {
		return fmt.Errorf("running program: %w", runErr)
	}

	// The program has quit (input released); wait out the grace delay
	// for the final exit status.
	code := <-exited

	if traceShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = traceShutdown(ctx)
	}

	if code != 0 {
		return fmt.Errorf("terminated after fatal fault (exit code %d)", code)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
