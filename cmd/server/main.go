package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tasktimer/internal/config"
	"tasktimer/internal/pomodoro"
	"tasktimer/internal/profile"
	"tasktimer/internal/realtime"
	"tasktimer/internal/stats"
	"tasktimer/internal/storage"
	"tasktimer/internal/task"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tasktimer",
		Short: "Task list and focus timer backend",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.tasktimer/config.yaml)")
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	// A missing .env file is fine; the environment still applies.
	godotenv.Load()

	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	applyEnvOverrides(cfg)

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	tasks, err := task.NewStore(db)
	if err != nil {
		return err
	}
	recorder, err := stats.NewRecorder(db)
	if err != nil {
		return err
	}

	manager := pomodoro.NewManager(cfg.Pomodoro, recorder, pomodoro.Options{
		MaxSessions: cfg.Server.MaxSessions,
	})
	manager.Run()

	var profiles *profile.Store
	if cfg.Profile.BaseURL != "" {
		ttl := cfg.Profile.CacheTTL
		if ttl <= 0 {
			ttl = profile.DefaultCacheTTL
		}
		remote := profile.NewHTTPRemote(cfg.Profile.BaseURL, cfg.Profile.APIKey, cfg.Profile.RequestTimeout)
		profiles = profile.NewStore(remote, ttl)
	}

	rtServer := realtime.New(manager, tasks, recorder, profiles, cfg.Server.StaticDir)

	// Settings edited in the config file apply without a restart. Running
	// countdowns keep their old durations.
	cfgWatcher, err := config.Watch(path, func(updated *config.Config) {
		log.Printf("config reloaded from %s", path)
		manager.UpdateSettings(updated.Pomodoro)
	})
	if err != nil {
		log.Printf("config watcher disabled: %v", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: rtServer.Handler(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Println("Shutting down...")
		if cfgWatcher != nil {
			cfgWatcher.Close()
		}
		manager.Shutdown()
		httpServer.Close()
	}()

	log.Printf("Task timer server running on http://localhost:%d", cfg.Server.Port)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// applyEnvOverrides lets deployment environments override the file-based
// config without editing it.
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		cfg.Server.StaticDir = v
	}
	if v := os.Getenv("MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MaxSessions = n
		}
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("PROFILE_BASE_URL"); v != "" {
		cfg.Profile.BaseURL = v
	}
	if v := os.Getenv("PROFILE_API_KEY"); v != "" {
		cfg.Profile.APIKey = v
	}
}
