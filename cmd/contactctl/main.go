package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/craftcode/landing-backend/config"
	"github.com/craftcode/landing-backend/internal/logging"
)

var version = "dev"

// Globals are shared by every subcommand
type Globals struct {
	Config   string           `help:"Optional YAML config file." env:"CONFIG_FILE" type:"path"`
	LogLevel string           `help:"Log level (debug, info, warn, error)." default:"warn"`
	Version  kong.VersionFlag `help:"Show version." short:"V"`
}

func (g *Globals) load() (*config.Config, error) {
	if g.Config != "" {
		return config.LoadFrom(g.Config)
	}
	return config.Load()
}

// CLI is the top-level command structure for contactctl.
type CLI struct {
	Globals

	Submit SubmitCmd `cmd:"" help:"Send one contact form submission."`
	Check  CheckCmd  `cmd:"" help:"Report which persistence backend is configured."`
	Recent RecentCmd `cmd:"" help:"Print recent leads from the notification list."`
}

var errSubmissionFailed = errors.New("submission failed")

func exitCode(err error) int {
	if errors.Is(err, errSubmissionFailed) {
		return 2
	}
	return 1
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("contactctl"),
		kong.Description("Operator tool for the landing page contact form."),
		kong.Vars{"version": version},
	)
	logging.SetLevel(logging.ParseLevel(cli.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	err := kctx.Run(&cli.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}
