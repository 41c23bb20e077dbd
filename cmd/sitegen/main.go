package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/content"
	"git.home.luguber.info/inful/sitegen/internal/state"
	"git.home.luguber.info/inful/sitegen/internal/version"
	"git.home.luguber.info/inful/sitegen/internal/watch"
)

var CLI struct {
	Config  string           `short:"c" help:"Site configuration file path" default:"site.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `help:"Print version and exit"`

	Build struct {
		Incremental bool `short:"i" help:"Re-render only pages affected by changed sources"`
	} `cmd:"" help:"Build the site into the output directory"`

	Watch struct {
	} `cmd:"" help:"Build, then rebuild automatically when sources change"`

	Init struct {
		Force bool `help:"Overwrite existing files"`
	} `cmd:"" help:"Scaffold a new site in the current directory"`

	List struct {
		Collection string `help:"Limit output to one collection"`
	} `cmd:"" help:"List the documents the site would build"`
}

func main() {
	ctx := kong.Parse(&CLI, kong.Vars{"version": version.Version})

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	switch ctx.Command() {
	case "build":
		if err := runBuild(CLI.Build.Incremental); err != nil {
			slog.Error("Build failed", "error", err)
			os.Exit(1)
		}
	case "watch":
		if err := runWatch(); err != nil {
			slog.Error("Watch failed", "error", err)
			os.Exit(1)
		}
	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Site scaffolded", "config", CLI.Config)
	case "list":
		if err := runList(CLI.List.Collection); err != nil {
			slog.Error("List failed", "error", err)
			os.Exit(1)
		}
	}
}

func runBuild(incremental bool) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	store, err := state.Open(cfg.StateFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close state store", "error", err)
		}
	}()

	orch := build.New(cfg, store)
	_, err = orch.Build(context.Background(), build.Options{Incremental: incremental})
	return err
}

func runWatch() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	store, err := state.Open(cfg.StateFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close state store", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w, err := watch.New(cfg, build.New(cfg, store))
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := w.Stop(); err != nil {
			slog.Warn("Failed to stop watcher", "error", err)
		}
	}()

	slog.Info("Watching, press Ctrl-C to stop")
	<-ctx.Done()
	return nil
}

func runList(collection string) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	docs, err := content.NewLoader(cfg).Load()
	if err != nil {
		return err
	}

	for _, doc := range docs {
		if collection != "" && doc.Collection != collection {
			continue
		}
		date := ""
		if !doc.Date.IsZero() {
			date = doc.Date.Format("2006-01-02")
		}
		col := doc.Collection
		if col == "" {
			col = "-"
		}
		fmt.Printf("%-10s  %-10s  %-40s  %s\n", date, col, doc.Permalink, doc.Title)
	}
	return nil
}
