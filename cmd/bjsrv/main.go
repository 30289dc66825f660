package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	_ "github.com/mattn/go-sqlite3"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
	"github.com/vctt94/blackjacktables/pkg/bot"
	"github.com/vctt94/blackjacktables/pkg/logging"
	"github.com/vctt94/blackjacktables/pkg/server"
	"github.com/vctt94/blackjacktables/pkg/utils"
	"golang.org/x/sync/errgroup"
)

var cli struct {
	Config kong.ConfigFlag `help:"Load flags from a JSON config file."`

	DataDir     string `name:"datadir" default:"${datadir}" env:"BJ_DATADIR" type:"path" help:"Directory for the database and logs."`
	DB          string `name:"db" env:"BJ_DB" type:"path" help:"SQLite database file (default <datadir>/bjtables.sqlite)."`
	Listen      string `default:"127.0.0.1:7788" env:"BJ_LISTEN" help:"HTTP listen address."`
	DebugLevel  string `name:"debuglevel" default:"info" env:"BJ_DEBUGLEVEL" help:"Log level, or SUBSYS=level pairs."`
	MaxLogFiles int    `name:"maxlogfiles" default:"3" help:"Rotated log files to keep."`

	Seed          int64 `env:"BJ_SEED" help:"Deterministic shuffle seed (0 = random)."`
	MaxSeats      int   `default:"5" help:"Seats per table."`
	StartingMoney int64 `default:"1000" help:"Money each seat starts with."`
	DefaultBet    int64 `default:"10" help:"Bet used when a seat has not placed one."`

	BotInterval time.Duration `default:"1s" env:"BJ_BOT_INTERVAL" help:"How often the in-process driver plays bot turns (0 disables it)."`
	TurnTimeout time.Duration `default:"0s" env:"BJ_TURN_TIMEOUT" help:"Stand for a human seat idle this long (0 disables it)."`

	EventWorkers   int `default:"3" help:"Event processor workers."`
	EventQueueSize int `default:"256" help:"Event queue size per worker."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("bjsrv"),
		kong.Description("Multiplayer blackjack table server."),
		kong.Configuration(kong.JSON, "/etc/bjtables/bjsrv.json", "~/.bjtables/bjsrv.json"),
		kong.Vars{"datadir": utils.DefaultDataDir(utils.AppName)},
	)
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bjsrv: %v\n", err)
		kctx.Exit(1)
	}
}

func run() error {
	if err := utils.EnsureDataDirExists(cli.DataDir); err != nil {
		return err
	}
	dbPath := cli.DB
	if dbPath == "" {
		dbPath = filepath.Join(cli.DataDir, "bjtables.sqlite")
	}

	logBackend, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:     filepath.Join(cli.DataDir, "logs", "bjsrv.log"),
		DebugLevel:  cli.DebugLevel,
		MaxLogFiles: cli.MaxLogFiles,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logBackend.Close()
	log := logBackend.Logger("MAIN")

	db, err := server.NewDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	defer db.Close()

	rules := blackjack.Rules{
		StartingMoney: cli.StartingMoney,
		DefaultBet:    cli.DefaultBet,
		MaxSeats:      cli.MaxSeats,
		LowWaterMark:  blackjack.LowWaterMark,
	}
	if err := rules.Validate(); err != nil {
		return fmt.Errorf("invalid table rules: %w", err)
	}

	srv := server.NewServer(db, logBackend, server.Config{
		Rules:          rules,
		Seed:           cli.Seed,
		EventQueueSize: cli.EventQueueSize,
		EventWorkers:   cli.EventWorkers,
	})
	defer srv.Stop()

	httpSrv := &http.Server{
		Addr:              cli.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("Listening on %s (db %s)", cli.Listen, dbPath)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cli.BotInterval > 0 {
		driver, err := bot.NewDriver(srv, bot.Config{
			Interval:    cli.BotInterval,
			TurnTimeout: cli.TurnTimeout,
			Log:         logBackend.Logger("BOTD"),
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return driver.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Infof("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
