// Package bot drives bot seats and idle human turns from outside the engine.
// It only needs a Mover, so it runs the same in-process against the server
// or remotely through the HTTP client.
package bot

import (
	"context"
	"errors"

	"github.com/coder/quartz"
	"github.com/decred/slog"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
	"golang.org/x/sync/errgroup"
)

// Mover is the table surface the driver works through.
type Mover interface {
	TableIDs(ctx context.Context) ([]string, error)
	GetTable(ctx context.Context, tableID string) (*blackjack.TableSnapshot, error)
	BotMove(ctx context.Context, tableID string) (*blackjack.BotMove, error)
	Act(ctx context.Context, playerID string, action blackjack.Action) (*blackjack.ActionResult, error)
}

// Driver periodically plays bot turns and, when enabled, stands for humans
// whose turn has expired.
type Driver struct {
	mover    Mover
	cfg      Config
	clock    quartz.Clock
	log      slog.Logger
	watchdog *Watchdog
}

// NewDriver creates a driver for m.
func NewDriver(m Mover, cfg Config) (*Driver, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	d := &Driver{
		mover: m,
		cfg:   cfg,
		clock: cfg.Clock,
		log:   cfg.Log,
	}
	if cfg.TurnTimeout > 0 {
		d.watchdog = NewWatchdog(cfg.Clock, cfg.TurnTimeout)
	}
	return d, nil
}

// Run drives all tables every Interval until ctx is done.
func (d *Driver) Run(ctx context.Context) error {
	ticker := d.clock.NewTicker(d.cfg.Interval, "driver")
	defer ticker.Stop()

	d.log.Infof("Bot driver started (interval %v, turn timeout %v)", d.cfg.Interval, d.cfg.TurnTimeout)
	for {
		select {
		case <-ctx.Done():
			d.log.Infof("Bot driver stopped")
			return nil
		case <-ticker.C:
			if err := d.Tick(ctx); err != nil && ctx.Err() == nil {
				d.log.Errorf("Bot driver pass failed: %v", err)
			}
		}
	}
}

// Tick makes one pass over every table. Tables are driven in parallel; a
// failure on one table is logged and does not stop the others.
func (d *Driver) Tick(ctx context.Context) error {
	ids, err := d.mover.TableIDs(ctx)
	if err != nil {
		return err
	}
	if d.watchdog != nil {
		d.watchdog.Forget(ids)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.MaxParallel)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			d.driveTable(gctx, id)
			return gctx.Err()
		})
	}
	return g.Wait()
}

func (d *Driver) driveTable(ctx context.Context, tableID string) {
	for i := 0; i < d.cfg.MaxMovesPerTick; i++ {
		move, err := d.mover.BotMove(ctx, tableID)
		if errors.Is(err, blackjack.ErrTableNotFound) || ctx.Err() != nil {
			return
		}
		if err != nil {
			d.log.Errorf("Table %s: bot move failed: %v", tableID, err)
			return
		}
		if move == nil {
			break
		}
		d.log.Debugf("Table %s: bot %s (seat %d) played %s", tableID, move.PlayerID, move.Seat, move.Action)
	}

	if d.watchdog == nil {
		return
	}
	snap, err := d.mover.GetTable(ctx, tableID)
	if err != nil {
		if !errors.Is(err, blackjack.ErrTableNotFound) && ctx.Err() == nil {
			d.log.Errorf("Table %s: failed to load state: %v", tableID, err)
		}
		return
	}
	playerID := d.watchdog.Check(snap)
	if playerID == "" {
		return
	}

	_, err = d.mover.Act(ctx, playerID, blackjack.Stand)
	switch {
	case err == nil:
		d.log.Infof("Table %s: player %s timed out, standing", tableID, playerID)
	case errors.Is(err, blackjack.ErrNotYourTurn), errors.Is(err, blackjack.ErrNoActiveHand):
		// The player acted between the check and the stand.
		d.log.Debugf("Table %s: player %s acted before timeout stand", tableID, playerID)
	default:
		d.log.Errorf("Table %s: timeout stand for %s failed: %v", tableID, playerID, err)
	}
}
