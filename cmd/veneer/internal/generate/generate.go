// Package generate implements the manifest-generation command, including
// watch mode.
package generate

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/veneerhq/veneer/internal/config"
	"github.com/veneerhq/veneer/internal/manifest"
	"github.com/veneerhq/veneer/internal/scaffold"
	"github.com/veneerhq/veneer/internal/scan"
	"github.com/veneerhq/veneer/internal/watch"
)

type Cmd struct {
	Dir    string `help:"Folder scanned for endpoint declarations." short:"d"`
	Output string `help:"Route manifest output file." short:"o"`
	Watch  bool   `help:"Watch the folder and regenerate on change." short:"w"`
	Config string `help:"Settings file." default:"veneer.json"`
}

func (c *Cmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if c.Dir != "" {
		cfg.RootFolder = c.Dir
	}
	if c.Output != "" {
		cfg.OutputFile = c.Output
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if !c.Watch {
		return generate(cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A failing first pass is survivable in watch mode, the next save
	// retries it.
	if err := generate(cfg); err != nil {
		slog.Error("generate failed", "err", err)
	}

	outAbs, err := filepath.Abs(cfg.OutputFile)
	if err != nil {
		return err
	}
	w := &watch.Watcher{
		Root: cfg.RootFolder,
		Ignore: func(path string) bool {
			abs, err := filepath.Abs(path)
			return err == nil && abs == outAbs
		},
		OnChange: func() {
			if err := generate(cfg); err != nil {
				slog.Error("generate failed", "err", err)
			}
		},
		OnCreate: func(path string) {
			empty, err := scaffold.NearEmpty(path)
			if err != nil || !empty {
				return
			}
			if err := scaffold.Create(path, cfg.MakeCrud); err != nil {
				slog.Warn("scaffold failed", "path", path, "err", err)
				return
			}
			slog.Info("scaffolded endpoint file", "path", path, "crud", cfg.MakeCrud)
		},
	}
	slog.Info("watching", "dir", cfg.RootFolder, "output", cfg.OutputFile)
	return w.Run(ctx)
}

func generate(cfg config.Config) error {
	routes, err := scan.Dir(cfg.RootFolder)
	if err != nil {
		return err
	}
	if err := manifest.WriteFile(cfg.OutputFile, manifest.Options{Routes: routes}); err != nil {
		return err
	}
	slog.Info("wrote route manifest", "routes", len(routes), "output", cfg.OutputFile)
	return nil
}
