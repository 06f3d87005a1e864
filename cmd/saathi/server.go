package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nilay/saathi/internal/api"
	"github.com/nilay/saathi/internal/chat"
	"github.com/nilay/saathi/internal/composer"
	"github.com/nilay/saathi/internal/config"
	"github.com/nilay/saathi/internal/geo"
	"github.com/nilay/saathi/internal/llm"
	"github.com/nilay/saathi/internal/memory"
	"github.com/nilay/saathi/internal/search"
	"github.com/nilay/saathi/internal/storage"
	"github.com/nilay/saathi/internal/summarize"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the saathi server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running saathi server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show saathi system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "saathi.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "saathi version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	apiToken, err := config.LoadOrCreateAPIToken(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}

	// Refuse to start twice: probe the health endpoint before claiming
	// the PID file.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("saathi is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("saathi is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	profilePath := filepath.Join(cfg.Storage.DataDir, "profile.json")
	profileStore := memory.NewFileStore(profilePath)

	modelClient := llm.NewClient(cfg.Model.APIKey, cfg.Model.Name, time.Duration(cfg.Model.TimeoutSeconds)*time.Second)
	searchClient := search.NewClient(cfg.Search.APIKey)
	comp := composer.New(cfg.Chat.BotName, cfg.Chat.WindowSize)
	summarizer := summarize.New(modelClient)

	engine, err := chat.NewEngine(profileStore, comp, summarizer, modelClient, searchClient, store, chat.Config{
		Onboarding: chat.Onboarding(cfg.Chat.Onboarding),
	})
	if err != nil {
		if errors.Is(err, memory.ErrCorrupt) {
			printError("profile record at %s is unreadable: %v", profilePath, err)
			printError("move the file aside to start over with a fresh profile")
		}
		return fmt.Errorf("starting reply engine: %w", err)
	}

	fillLocation(ctx, engine)

	handler := api.NewHandler(api.Deps{Engine: engine, Store: store, Token: apiToken})
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	mcpSrv := api.NewMCPServer(api.MCPDeps{Engine: engine, Store: store})
	stdioSrv := server.NewStdioServer(mcpSrv)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "saathi listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	slog.Info("MCP server started (stdio transport)")

	return g.Wait()
}

// fillLocation resolves the user's city and timezone from their IP on
// first run. Best-effort: a failed lookup records the canned Unknown
// location so the companion still has a working timezone.
func fillLocation(ctx context.Context, engine *chat.Engine) {
	if !engine.Profile().Location.IsZero() {
		return
	}

	loc, err := geo.NewClient().Locate(ctx)
	if err != nil {
		slog.Warn("geolocation lookup failed", "error", err)
		loc = geo.Unknown
	}
	err = engine.UpdateProfile(func(p *memory.Profile) {
		p.Location = loc
	})
	if err != nil {
		slog.Warn("persisting geolocation failed", "error", err)
		return
	}
	slog.Info("filled profile location", "city", loc.City, "timezone", loc.Timezone)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("saathi is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop saathi (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to saathi (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Model", "%s", cfg.Model.Name)
	if cfg.Search.APIKey != "" {
		printStatus("Live search", "enabled")
	} else {
		printStatus("Live search", "disabled (no Serper API key)")
	}
	printStatus("Bot name", "%s", cfg.Chat.BotName)
	printStatus("Onboarding", "%s", cfg.Chat.Onboarding)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
