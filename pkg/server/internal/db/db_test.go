package db

import (
	"context"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func sampleTable(id string, number int) *TableState {
	return &TableState{
		ID:         id,
		Number:     number,
		Status:     "PLAYING",
		TurnIndex:  1,
		Round:      3,
		Deck:       []CardState{{Suit: "♠", Rank: "A"}, {Suit: "♥", Rank: "7"}},
		DealerHand: []CardState{{Suit: "♦", Rank: "10"}, {Suit: "♣", Rank: "6"}},
	}
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)

	ts := sampleTable("t1", 1)
	players := []*PlayerState{
		{ID: "p2", Seat: 2, Name: "bot", Kind: "bot", Money: 990, CurrentBet: 10,
			Hands: []HandState{{Cards: []CardState{{Suit: "♠", Rank: "9"}, {Suit: "♥", Rank: "9"}}, Bet: 10, Status: "PLAYING", CanSplit: true}}},
		{ID: "p1", Seat: 1, Name: "alice", Kind: "user", UserID: "u1", Money: 980, CurrentBet: 10,
			Hands: []HandState{{Cards: []CardState{{Suit: "♠", Rank: "K"}}, Bet: 10, Status: "STAND"}}},
	}
	require.NoError(t, d.SaveSnapshot(ctx, ts, players, nil))

	got, err := d.LoadTableState(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, ts.Number, got.Number)
	assert.Equal(t, ts.Status, got.Status)
	assert.Equal(t, ts.TurnIndex, got.TurnIndex)
	assert.Equal(t, ts.Round, got.Round)
	assert.Equal(t, ts.Deck, got.Deck)
	assert.Equal(t, ts.DealerHand, got.DealerHand)

	ps, err := d.LoadPlayerStates(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "p1", ps[0].ID, "players come back in seat order")
	assert.Equal(t, "t1", ps[0].TableID)
	assert.Equal(t, "u1", ps[0].UserID)
	assert.Equal(t, players[0].Hands, ps[1].Hands)
}

func TestSaveSnapshotReplacesPlayers(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)

	ts := sampleTable("t1", 1)
	require.NoError(t, d.SaveSnapshot(ctx, ts, []*PlayerState{
		{ID: "p1", Seat: 1, Name: "a", Kind: "guest", Money: 1000, Hands: []HandState{}},
		{ID: "p2", Seat: 2, Name: "b", Kind: "guest", Money: 1000, Hands: []HandState{}},
	}, nil))

	ts.Round = 4
	require.NoError(t, d.SaveSnapshot(ctx, ts, []*PlayerState{
		{ID: "p1", Seat: 1, Name: "a", Kind: "guest", Money: 1020, Hands: []HandState{}},
	}, nil))

	got, err := d.LoadTableState(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Round)

	ps, err := d.LoadPlayerStates(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, int64(1020), ps[0].Money)
}

func TestSaveSnapshotRollsBack(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)

	ts := sampleTable("t1", 1)
	require.NoError(t, d.SaveSnapshot(ctx, ts, []*PlayerState{
		{ID: "p1", Seat: 1, Name: "a", Kind: "guest", Money: 1000, Hands: []HandState{}},
	}, nil))

	// Two players on one seat violate the unique constraint.
	ts.Round = 9
	err := d.SaveSnapshot(ctx, ts, []*PlayerState{
		{ID: "p1", Seat: 1, Name: "a", Kind: "guest", Money: 500, Hands: []HandState{}},
		{ID: "p2", Seat: 1, Name: "b", Kind: "guest", Money: 500, Hands: []HandState{}},
	}, nil)
	require.Error(t, err)

	got, err := d.LoadTableState(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Round)
	ps, err := d.LoadPlayerStates(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, int64(1000), ps[0].Money)
}

func TestSettlementsJournal(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)

	ts := sampleTable("t1", 1)
	players := []*PlayerState{{ID: "p1", Seat: 1, Name: "a", Kind: "guest", Money: 1010, Hands: []HandState{}}}
	require.NoError(t, d.SaveSnapshot(ctx, ts, players, []SettlementRecord{
		{TableID: "t1", Round: 3, PlayerID: "p1", Bet: 10, Score: 20, DealerScore: 18, Result: "WIN", Payout: 20},
	}))
	require.NoError(t, d.SaveSnapshot(ctx, ts, players, []SettlementRecord{
		{TableID: "t1", Round: 4, PlayerID: "p1", Bet: 10, Score: 17, DealerScore: 17, Result: "PUSH", Payout: 10},
	}))

	got, err := d.Settlements(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "WIN", got[0].Result)
	assert.Equal(t, int64(20), got[0].Payout)
	assert.Equal(t, 4, got[1].Round)
}

func TestTableDiscoveryAndDelete(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)

	n, err := d.NextTableNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, d.SaveSnapshot(ctx, sampleTable("b", 2), nil, nil))
	require.NoError(t, d.SaveSnapshot(ctx, sampleTable("a", 1), []*PlayerState{
		{ID: "p1", Seat: 1, Name: "a", Kind: "guest", Money: 1000, Hands: []HandState{}},
	}, nil))

	ids, err := d.GetAllTableIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	n, err = d.NextTableNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, d.DeleteTableState(ctx, "a"))
	_, err = d.LoadTableState(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	ps, err := d.LoadPlayerStates(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, ps)

	assert.ErrorIs(t, d.DeleteTableState(ctx, "a"), ErrNotFound)
}

func TestTableNumbersNotReused(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)

	for i, id := range []string{"a", "b"} {
		n, err := d.NextTableNumber(ctx)
		require.NoError(t, err)
		require.Equal(t, i+1, n)
		require.NoError(t, d.SaveSnapshot(ctx, sampleTable(id, n), nil, nil))
	}

	require.NoError(t, d.DeleteTableState(ctx, "b"))

	n, err := d.NextTableNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// A number handed out but never saved is skipped too.
	n, err = d.NextTableNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
