package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/vctt94/blackjacktables/pkg/bot"
	"github.com/vctt94/blackjacktables/pkg/client"
	"github.com/vctt94/blackjacktables/pkg/logging"
	"github.com/vctt94/blackjacktables/pkg/server"
	"github.com/vctt94/blackjacktables/pkg/utils"
)

var cli struct {
	Config kong.ConfigFlag `help:"Load flags from a JSON config file."`

	Server      string        `default:"http://127.0.0.1:7788" env:"BJ_SERVER" help:"Server base URL."`
	DataDir     string        `name:"datadir" default:"${datadir}" env:"BJ_DATADIR" type:"path" help:"Directory for logs."`
	DebugLevel  string        `name:"debuglevel" default:"info" env:"BJ_DEBUGLEVEL" help:"Log level."`
	Interval    time.Duration `default:"1s" env:"BJ_BOT_INTERVAL" help:"Time between passes over all tables."`
	TurnTimeout time.Duration `default:"0s" env:"BJ_TURN_TIMEOUT" help:"Stand for a human seat idle this long (0 disables it)."`
	MaxParallel int           `default:"8" help:"Tables driven at once."`
	WaitTimeout time.Duration `default:"30s" help:"How long to wait for the server to become healthy."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("bjbot"),
		kong.Description("Plays bot seats on a remote blackjack server."),
		kong.Configuration(kong.JSON, "~/.bjtables/bjbot.json"),
		kong.Vars{"datadir": utils.DefaultDataDir(utils.AppName)},
	)
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bjbot: %v\n", err)
		kctx.Exit(1)
	}
}

func run() error {
	if err := utils.EnsureDataDirExists(cli.DataDir); err != nil {
		return err
	}
	logBackend, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:    filepath.Join(cli.DataDir, "logs", "bjbot.log"),
		DebugLevel: cli.DebugLevel,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logBackend.Close()
	log := logBackend.Logger("BOTD")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	waitCtx, cancel := context.WithTimeout(ctx, cli.WaitTimeout)
	err = server.WaitForHealthy(waitCtx, cli.Server)
	cancel()
	if err != nil {
		return fmt.Errorf("server at %s is not healthy: %w", cli.Server, err)
	}

	bc, err := client.NewBlackjackClient(client.Config{
		ServerURL: cli.Server,
		Log:       logBackend.Logger("CLNT"),
	})
	if err != nil {
		return err
	}

	driver, err := bot.NewDriver(bc, bot.Config{
		Interval:    cli.Interval,
		TurnTimeout: cli.TurnTimeout,
		MaxParallel: cli.MaxParallel,
		Log:         log,
	})
	if err != nil {
		return err
	}
	log.Infof("Driving tables on %s", bc.ServerURL())
	return driver.Run(ctx)
}
