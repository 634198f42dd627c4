// Package initcmd writes a starter veneer.json settings file.
package initcmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/veneerhq/veneer/internal/config"
)

type Cmd struct {
	Config string `help:"Settings file to write." default:"veneer.json"`
	Force  bool   `help:"Overwrite an existing settings file."`
}

func (c *Cmd) Run() error {
	if !c.Force {
		if _, err := os.Stat(c.Config); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", c.Config)
		}
	}
	cfg := config.Default()
	if err := cfg.Save(c.Config); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.RootFolder, 0o755); err != nil {
		return err
	}
	slog.Info("initialized", "config", c.Config, "rootFolder", cfg.RootFolder)
	return nil
}
