package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/vctt94/blackjacktables/pkg/api"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
	"github.com/vctt94/blackjacktables/pkg/client"
	"github.com/vctt94/blackjacktables/pkg/logging"
	"github.com/vctt94/blackjacktables/pkg/ui"
	"github.com/vctt94/blackjacktables/pkg/utils"
)

// cmdContext is handed to every command's Run.
type cmdContext struct {
	ctx    context.Context
	client *client.BlackjackClient
	out    io.Writer
}

func (c *cmdContext) print(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type createCmd struct{}

func (cmd *createCmd) Run(c *cmdContext) error {
	resp, err := c.client.CreateTable(c.ctx)
	if err != nil {
		return err
	}
	return c.print(resp)
}

type listCmd struct{}

func (cmd *listCmd) Run(c *cmdContext) error {
	tables, err := c.client.ListTables(c.ctx)
	if err != nil {
		return err
	}
	return c.print(tables)
}

type showCmd struct {
	Table string `arg:"" help:"Table ID."`
}

func (cmd *showCmd) Run(c *cmdContext) error {
	snap, err := c.client.GetTable(c.ctx, cmd.Table)
	if err != nil {
		return err
	}
	return c.print(snap)
}

type joinCmd struct {
	Table  string `arg:"" help:"Table ID."`
	Seat   int    `required:"" help:"Seat index."`
	Name   string `help:"Display name."`
	Avatar string `help:"Avatar reference."`
	Bot    bool   `help:"Seat a bot."`
	User   string `name:"user" env:"BJ_USER" help:"Authenticated user ID."`
}

func (cmd *joinCmd) Run(c *cmdContext) error {
	p, err := c.client.JoinTable(c.ctx, cmd.Table, api.JoinTableRequest{
		Seat:   cmd.Seat,
		Name:   cmd.Name,
		Avatar: cmd.Avatar,
		IsBot:  cmd.Bot,
		UserID: cmd.User,
	})
	if err != nil {
		return err
	}
	return c.print(p)
}

type playerCmd struct {
	Player string `arg:"" help:"Player ID."`
}

func (cmd *playerCmd) Run(c *cmdContext) error {
	p, err := c.client.GetPlayer(c.ctx, cmd.Player)
	if err != nil {
		return err
	}
	return c.print(p)
}

type betCmd struct {
	Player string `arg:"" help:"Player ID."`
	Amount int64  `arg:"" help:"Bet for the next round."`
}

func (cmd *betCmd) Run(c *cmdContext) error {
	p, err := c.client.SetBet(c.ctx, cmd.Player, cmd.Amount)
	if err != nil {
		return err
	}
	return c.print(p)
}

type actCmd struct {
	Player string `arg:"" help:"Player ID."`
	Action string `arg:"" enum:"hit,stand,double,split" help:"hit, stand, double or split."`
}

func (cmd *actCmd) Run(c *cmdContext) error {
	action, err := blackjack.ParseAction(cmd.Action)
	if err != nil {
		return err
	}
	res, err := c.client.Act(c.ctx, cmd.Player, action)
	if err != nil {
		return err
	}
	return c.print(res)
}

type dealCmd struct {
	Table string `arg:"" help:"Table ID."`
}

func (cmd *dealCmd) Run(c *cmdContext) error {
	snap, err := c.client.Deal(c.ctx, cmd.Table)
	if err != nil {
		return err
	}
	return c.print(snap)
}

type botMoveCmd struct {
	Table string `arg:"" help:"Table ID."`
}

func (cmd *botMoveCmd) Run(c *cmdContext) error {
	move, err := c.client.BotMove(c.ctx, cmd.Table)
	if err != nil {
		return err
	}
	return c.print(api.BotMoveResponse{Move: move})
}

type deleteCmd struct {
	Table string `arg:"" help:"Table ID."`
}

func (cmd *deleteCmd) Run(c *cmdContext) error {
	return c.client.DeleteTable(c.ctx, cmd.Table)
}

type settlementsCmd struct {
	Table string `arg:"" help:"Table ID."`
}

func (cmd *settlementsCmd) Run(c *cmdContext) error {
	s, err := c.client.Settlements(c.ctx, cmd.Table)
	if err != nil {
		return err
	}
	return c.print(s)
}

type watchCmd struct {
	Table string `arg:"" help:"Table ID."`
}

func (cmd *watchCmd) Run(c *cmdContext) error {
	stream, err := c.client.Subscribe(c.ctx, cmd.Table)
	if err != nil {
		return err
	}
	defer stream.Close()

	enc := json.NewEncoder(c.out)
	for msg := range stream.Updates() {
		if err := enc.Encode(msg); err != nil {
			return err
		}
	}
	return stream.Err()
}

type tuiCmd struct {
	Name string `help:"Display name used when joining."`
	User string `name:"user" env:"BJ_USER" help:"Authenticated user ID."`
}

func (cmd *tuiCmd) Run(c *cmdContext) error {
	return ui.Run(c.ctx, ui.NewClientBackend(c.client), ui.Options{Name: cmd.Name, UserID: cmd.User})
}

var cli struct {
	Config kong.ConfigFlag `help:"Load flags from a JSON config file."`

	Server     string        `default:"http://127.0.0.1:7788" env:"BJ_SERVER" help:"Server base URL."`
	DataDir    string        `name:"datadir" default:"${datadir}" env:"BJ_DATADIR" type:"path" help:"Directory for logs."`
	DebugLevel string        `name:"debuglevel" default:"warn" env:"BJ_DEBUGLEVEL" help:"Log level."`
	Timeout    time.Duration `default:"10s" help:"Per-request timeout."`

	Create      createCmd      `cmd:"" help:"Create a table."`
	List        listCmd        `cmd:"" help:"List tables."`
	Show        showCmd        `cmd:"" help:"Show a table snapshot."`
	Join        joinCmd        `cmd:"" help:"Take a seat at a table."`
	Player      playerCmd      `cmd:"" help:"Show a player."`
	Bet         betCmd         `cmd:"" help:"Set the bet for the next round."`
	Act         actCmd         `cmd:"" help:"Hit, stand, double or split."`
	Deal        dealCmd        `cmd:"" help:"Deal a new round."`
	BotMove     botMoveCmd     `cmd:"" name:"bot-move" help:"Play one move for the bot holding the turn."`
	Delete      deleteCmd      `cmd:"" help:"Finish and remove a table."`
	Settlements settlementsCmd `cmd:"" help:"Show a table's settlement journal."`
	Watch       watchCmd       `cmd:"" help:"Stream table updates as JSON lines."`
	TUI         tuiCmd         `cmd:"" name:"tui" help:"Interactive terminal client."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("bjctl"),
		kong.Description("Blackjack table client."),
		kong.Configuration(kong.JSON, "~/.bjtables/bjctl.json"),
		kong.Vars{"datadir": utils.DefaultDataDir(utils.AppName)},
		kong.UsageOnError(),
	)

	// The TUI owns the terminal, so its logs only go to the file.
	logCfg := logging.LogConfig{DebugLevel: cli.DebugLevel, Stdout: os.Stderr}
	if kctx.Command() == "tui" {
		logCfg.Stdout = io.Discard
		logCfg.LogFile = filepath.Join(cli.DataDir, "logs", "bjctl.log")
	}
	logBackend, err := logging.NewLogBackend(logCfg)
	kctx.FatalIfErrorf(err)
	defer logBackend.Close()

	bc, err := client.NewBlackjackClient(client.Config{
		ServerURL:      cli.Server,
		RequestTimeout: cli.Timeout,
		Log:            logBackend.Logger("CLNT"),
	})
	kctx.FatalIfErrorf(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = kctx.Run(&cmdContext{ctx: ctx, client: bc, out: os.Stdout})
	if err != nil {
		fmt.Fprintf(os.Stderr, "bjctl: %v\n", err)
		stop()
		logBackend.Close()
		os.Exit(1)
	}
}
