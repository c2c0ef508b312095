package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"chatgate/client"
	"chatgate/config"
	"chatgate/gateway"
	"chatgate/mcp"
	"chatgate/model"
	"chatgate/provider"
	"chatgate/storage"
	"chatgate/tools"
	"chatgate/ui"
)

const Version = "v0.01.00"

func usage() {
	fmt.Fprintf(os.Stderr, `chatgate %s

Usage:
  chatgate [serve] [-config-dir DIR]   run the gateway (default)
  chatgate tui [-config-dir DIR]       open the terminal chat client
  chatgate mcp [-config-dir DIR]       serve the tool registry over MCP stdio
`, Version)
}

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = usage
	configDir := fs.String("config-dir", "", "directory holding settings.toml")
	_ = fs.Parse(args)

	if *configDir != "" {
		os.Setenv("CHATGATE_CONFIG_DIR", *configDir)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	config.InitDebugLog(cfg.DataDir())

	switch cmd {
	case "serve":
		err = serve(cfg)
	case "tui":
		err = runTUI(cfg)
	case "mcp":
		err = mcp.ServeStdio(tools.NewDefaultRegistry(cfg), Version)
	case "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serve(cfg *config.Config) error {
	srv := gateway.NewServer(cfg, provider.NewResolver(cfg, nil), tools.NewDefaultRegistry(cfg))

	if cfg.UsageEnabled {
		ledger, err := storage.NewUsageStore(cfg.DataDir())
		if err != nil {
			return fmt.Errorf("failed to open usage ledger: %w", err)
		}
		defer ledger.Close()
		srv.WithUsage(ledger)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.MaxDuration.Duration+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return <-errCh
}

func runTUI(cfg *config.Config) error {
	c := client.New(cfg.GatewayURL, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Health(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (start it with `chatgate serve`)\n", err)
	}

	p := tea.NewProgram(
		ui.NewAppView(model.NewModel(cfg, Version), c),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run chat client: %w", err)
	}
	return nil
}
