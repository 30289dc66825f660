package bot

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
)

// tableMover serves engine tables directly.
type tableMover struct {
	mu      sync.Mutex
	tables  map[string]*blackjack.Table
	stands  []string
	failFor string
}

func newTableMover() *tableMover {
	return &tableMover{tables: make(map[string]*blackjack.Table)}
}

func (m *tableMover) addTable(t *testing.T, id string, seed int64, seats ...bool) []string {
	t.Helper()
	ctx := context.Background()
	table := blackjack.NewTable(id, len(m.tables)+1, blackjack.TableConfig{Rng: rand.New(rand.NewSource(seed))})
	var ids []string
	for i, isBot := range seats {
		kind := blackjack.IdentityGuest
		if isBot {
			kind = blackjack.IdentityBot
		}
		p, err := table.Join(ctx, blackjack.JoinRequest{
			PlayerID: id + "-p" + string(rune('0'+i)),
			Seat:     i,
			Name:     "seat",
			Identity: blackjack.Identity{Kind: kind},
		})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	require.NoError(t, table.Deal(ctx))

	m.mu.Lock()
	m.tables[id] = table
	m.mu.Unlock()
	return ids
}

func (m *tableMover) table(id string) (*blackjack.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	if !ok {
		return nil, blackjack.ErrTableNotFound
	}
	return t, nil
}

func (m *tableMover) TableIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.tables))
	for id := range m.tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *tableMover) GetTable(ctx context.Context, tableID string) (*blackjack.TableSnapshot, error) {
	t, err := m.table(tableID)
	if err != nil {
		return nil, err
	}
	return t.Snapshot(), nil
}

func (m *tableMover) BotMove(ctx context.Context, tableID string) (*blackjack.BotMove, error) {
	if tableID == m.failFor {
		return nil, errors.New("engine exploded")
	}
	t, err := m.table(tableID)
	if err != nil {
		return nil, err
	}
	return t.BotMove(ctx)
}

func (m *tableMover) Act(ctx context.Context, playerID string, action blackjack.Action) (*blackjack.ActionResult, error) {
	m.mu.Lock()
	var table *blackjack.Table
	for _, t := range m.tables {
		for _, id := range t.PlayerIDs() {
			if id == playerID {
				table = t
			}
		}
	}
	m.stands = append(m.stands, playerID)
	m.mu.Unlock()
	if table == nil {
		return nil, blackjack.ErrPlayerNotFound
	}
	return table.Act(ctx, playerID, action)
}

func newTestDriver(t *testing.T, m Mover, clock quartz.Clock, timeout time.Duration) *Driver {
	t.Helper()
	d, err := NewDriver(m, Config{Interval: time.Second, TurnTimeout: timeout, Clock: clock, MaxParallel: 2, MaxMovesPerTick: 50})
	require.NoError(t, err)
	return d
}

func TestTickPlaysAllBotTables(t *testing.T) {
	ctx := context.Background()
	m := newTableMover()
	for i, seed := range []int64{1, 2, 3, 4, 5} {
		m.addTable(t, "t"+string(rune('a'+i)), seed, true, true)
	}

	d := newTestDriver(t, m, quartz.NewMock(t), 0)
	require.NoError(t, d.Tick(ctx))

	ids, _ := m.TableIDs(ctx)
	for _, id := range ids {
		snap, err := m.GetTable(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, blackjack.TableFinished, snap.Status, "table %s", id)
		for _, p := range snap.Players {
			for _, h := range p.Hands {
				if h.Status == blackjack.HandStand {
					assert.GreaterOrEqual(t, h.Score, blackjack.DealerStandsOn)
				}
			}
		}
	}
}

func TestTickLeavesHumanTurnAlone(t *testing.T) {
	ctx := context.Background()
	m := newTableMover()
	ids := m.addTable(t, "t1", 9, false, true)

	d := newTestDriver(t, m, quartz.NewMock(t), 0)
	require.NoError(t, d.Tick(ctx))

	snap, err := m.GetTable(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, ids[0], snap.CurrentPlayerID)
	assert.Empty(t, m.stands)
}

func TestTickSurvivesFailingTable(t *testing.T) {
	ctx := context.Background()
	m := newTableMover()
	m.addTable(t, "bad", 1, true)
	m.addTable(t, "good", 2, true)
	m.failFor = "bad"

	d := newTestDriver(t, m, quartz.NewMock(t), 0)
	require.NoError(t, d.Tick(ctx))

	snap, err := m.GetTable(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, blackjack.TableFinished, snap.Status)
}

func TestWatchdogStandsForIdleHuman(t *testing.T) {
	ctx := context.Background()
	mClock := quartz.NewMock(t)
	m := newTableMover()
	ids := m.addTable(t, "t1", 11, false, true)

	d := newTestDriver(t, m, mClock, 30*time.Second)

	require.NoError(t, d.Tick(ctx))
	mClock.Advance(29 * time.Second).MustWait(ctx)
	require.NoError(t, d.Tick(ctx))
	assert.Empty(t, m.stands, "stood before the timeout")

	mClock.Advance(time.Second).MustWait(ctx)
	require.NoError(t, d.Tick(ctx))
	assert.Equal(t, []string{ids[0]}, m.stands)

	// The human's turn is over, so the next pass plays the bot out.
	require.NoError(t, d.Tick(ctx))
	snap, err := m.GetTable(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, blackjack.TableFinished, snap.Status)
	assert.Equal(t, blackjack.HandStand, snap.Player(ids[0]).Hands[0].Status)
}

func TestWatchdogRestartsOnProgress(t *testing.T) {
	ctx := context.Background()
	mClock := quartz.NewMock(t)
	m := newTableMover()
	ids := m.addTable(t, "t1", 11, false)

	w := NewWatchdog(mClock, 10*time.Second)
	snap, _ := m.GetTable(ctx, "t1")
	assert.Empty(t, w.Check(snap))

	mClock.Advance(9 * time.Second).MustWait(ctx)
	// The player hits, which counts as activity.
	res, err := m.Act(ctx, ids[0], blackjack.Hit)
	require.NoError(t, err)
	snap, _ = m.GetTable(ctx, "t1")
	assert.Empty(t, w.Check(snap))
	if res.TurnOver {
		return
	}

	mClock.Advance(9 * time.Second).MustWait(ctx)
	assert.Empty(t, w.Check(snap))
	mClock.Advance(time.Second).MustWait(ctx)
	assert.Equal(t, ids[0], w.Check(snap))
}

func TestWatchdogForget(t *testing.T) {
	ctx := context.Background()
	mClock := quartz.NewMock(t)
	m := newTableMover()
	m.addTable(t, "t1", 3, false)

	w := NewWatchdog(mClock, time.Second)
	snap, _ := m.GetTable(ctx, "t1")
	w.Check(snap)
	w.Forget(nil)

	// Forgotten tables start a fresh timer.
	mClock.Advance(2 * time.Second).MustWait(ctx)
	assert.Empty(t, w.Check(snap))
}

func TestRunTicksOnClock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mClock := quartz.NewMock(t)
	m := newTableMover()
	m.addTable(t, "t1", 5, true)

	d := newTestDriver(t, m, mClock, 0)
	done := make(chan error, 1)
	runCtx, stop := context.WithCancel(ctx)
	go func() { done <- d.Run(runCtx) }()

	require.Eventually(t, func() bool {
		mClock.Advance(time.Second).MustWait(ctx)
		snap, err := m.GetTable(ctx, "t1")
		return err == nil && snap.Status == blackjack.TableFinished
	}, 3*time.Second, 10*time.Millisecond)

	stop()
	require.NoError(t, <-done)
}

func TestNewDriverRejectsNegativeDurations(t *testing.T) {
	_, err := NewDriver(newTableMover(), Config{Interval: -time.Second})
	assert.Error(t, err)
}
