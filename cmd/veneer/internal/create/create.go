// Package create implements the endpoint-file scaffolding command.
package create

import (
	"log/slog"

	"github.com/veneerhq/veneer/internal/config"
	"github.com/veneerhq/veneer/internal/scaffold"
)

type Cmd struct {
	Path   string `arg:"" help:"Endpoint definition file to create, e.g. api/users.go."`
	Crud   bool   `help:"Write the full CRUD endpoint set."`
	Config string `help:"Settings file." default:"veneer.json"`
}

func (c *Cmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	crud := c.Crud || cfg.MakeCrud
	if err := scaffold.Create(c.Path, crud); err != nil {
		return err
	}
	slog.Info("created endpoint file", "path", c.Path, "crud", crud)
	return nil
}
