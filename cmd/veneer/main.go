package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/veneerhq/veneer/cmd/veneer/internal/create"
	"github.com/veneerhq/veneer/cmd/veneer/internal/generate"
	"github.com/veneerhq/veneer/cmd/veneer/internal/initcmd"
)

type CLI struct {
	Generate generate.Cmd `cmd:"" default:"withargs" help:"Scan endpoint declarations and write the route manifest."`
	Create   create.Cmd   `cmd:"" help:"Scaffold an endpoint definition file."`
	Init     initcmd.Cmd  `cmd:"" help:"Write a starter veneer.json."`
	Version  VersionCmd   `cmd:"" help:"Print version information."`

	LogLevel string `help:"Log level." enum:"debug,info,warn,error" default:"info"`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

// initLogging configures slog with tint for colored, concise output.
func initLogging(level string) {
	ll := &slog.LevelVar{}
	switch level {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	}
	slog.SetDefault(slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})))
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("veneer"),
		kong.Description("Route manifest generator for veneer endpoint declarations."),
		kong.UsageOnError(),
	)
	initLogging(cli.LogLevel)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
