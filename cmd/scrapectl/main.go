package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/svennapp/svennProductsFE/internal/cli"
	"github.com/svennapp/svennProductsFE/internal/gateway"
	"github.com/svennapp/svennProductsFE/internal/logging"
	"github.com/svennapp/svennProductsFE/internal/prefs"
)

func main() {
	os.Exit(run())
}

func run() int {
	path := os.Getenv("SCRAPECTL_CONFIG")
	if path == "" {
		var err error
		if path, err = cli.DefaultConfigPath(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	cfg, err := cli.LoadFromFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger := logging.NewConsole(os.Getenv("SCRAPECTL_LOG_LEVEL"))

	if err := os.MkdirAll(filepath.Dir(cfg.PrefsPath), 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "Error: create config directory: %v\n", err)
		return 1
	}
	store, err := prefs.OpenSQLite(cfg.PrefsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	app := cli.NewApp(cfg, gateway.NewClient(cfg.APIURL), store, logger)
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd(app).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
