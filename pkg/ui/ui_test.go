package ui

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/blackjacktables/pkg/api"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
)

type fakeStream struct {
	updates chan *api.StreamMessage
	closed  bool
}

func (s *fakeStream) Updates() <-chan *api.StreamMessage { return s.updates }

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// fakeBackend serves a single engine table.
type fakeBackend struct {
	mu        sync.Mutex
	table     *blackjack.Table
	stream    *fakeStream
	streamErr error
	acts      []blackjack.Action
	bets      []int64
	joins     []api.JoinTableRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		table:  blackjack.NewTable("t1", 1, blackjack.TableConfig{Rng: rand.New(rand.NewSource(7))}),
		stream: &fakeStream{updates: make(chan *api.StreamMessage, 4)},
	}
}

func (b *fakeBackend) CreateTable(ctx context.Context) (*api.CreateTableResponse, error) {
	return &api.CreateTableResponse{ID: b.table.ID(), Number: b.table.Number()}, nil
}

func (b *fakeBackend) ListTables(ctx context.Context) ([]api.TableSummary, error) {
	snap := b.table.Snapshot()
	return []api.TableSummary{{ID: snap.ID, Number: snap.Number, Status: snap.Status, Players: len(snap.Players), Seats: 5}}, nil
}

func (b *fakeBackend) JoinTable(ctx context.Context, tableID string, req api.JoinTableRequest) (*blackjack.PlayerSnapshot, error) {
	b.mu.Lock()
	b.joins = append(b.joins, req)
	b.mu.Unlock()
	if tableID != b.table.ID() {
		return nil, blackjack.ErrTableNotFound
	}
	kind := blackjack.IdentityGuest
	if req.IsBot {
		kind = blackjack.IdentityBot
	}
	return b.table.Join(ctx, blackjack.JoinRequest{
		PlayerID: "p" + string(rune('0'+req.Seat)),
		Seat:     req.Seat,
		Name:     req.Name,
		Identity: blackjack.Identity{Kind: kind},
	})
}

func (b *fakeBackend) GetTable(ctx context.Context, tableID string) (*blackjack.TableSnapshot, error) {
	if tableID != b.table.ID() {
		return nil, blackjack.ErrTableNotFound
	}
	return b.table.Snapshot(), nil
}

func (b *fakeBackend) SetBet(ctx context.Context, playerID string, amount int64) (*blackjack.PlayerSnapshot, error) {
	b.mu.Lock()
	b.bets = append(b.bets, amount)
	b.mu.Unlock()
	return b.table.SetBet(ctx, playerID, amount)
}

func (b *fakeBackend) Deal(ctx context.Context, tableID string) (*blackjack.TableSnapshot, error) {
	if err := b.table.Deal(ctx); err != nil {
		return nil, err
	}
	return b.table.Snapshot(), nil
}

func (b *fakeBackend) Act(ctx context.Context, playerID string, action blackjack.Action) (*blackjack.ActionResult, error) {
	b.mu.Lock()
	b.acts = append(b.acts, action)
	b.mu.Unlock()
	return b.table.Act(ctx, playerID, action)
}

func (b *fakeBackend) Subscribe(ctx context.Context, tableID string) (Stream, error) {
	if b.streamErr != nil {
		return nil, b.streamErr
	}
	return b.stream, nil
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m *Model, msg tea.Msg) tea.Cmd {
	t.Helper()
	next, cmd := m.Update(msg)
	require.Same(t, m, next)
	return cmd
}

// runBatch executes cmd and feeds every resulting message back into m.
func runBatch(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c != nil {
				update(t, m, c())
			}
		}
		return
	}
	update(t, m, msg)
}

// seatedModel creates a table from the menu and joins seat 0.
func seatedModel(t *testing.T, b *fakeBackend) *Model {
	t.Helper()
	m := NewModel(context.Background(), b, Options{Name: "alice"})

	update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	update(t, m, cmd())
	require.Equal(t, stateSeatInput, m.state)
	assert.Contains(t, m.View(), "Pick a Seat")

	update(t, m, keyRunes("0"))
	cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	cmd = update(t, m, cmd())
	require.Equal(t, stateTable, m.state)
	runBatch(t, m, cmd)
	return m
}

func TestCreateAndJoinFlow(t *testing.T) {
	b := newFakeBackend()
	m := seatedModel(t, b)

	require.Len(t, b.joins, 1)
	assert.Equal(t, api.JoinTableRequest{Seat: 0, Name: "alice"}, b.joins[0])
	assert.Equal(t, "p0", m.playerID)
	assert.Equal(t, Stream(b.stream), m.stream)
	require.NotNil(t, m.table)

	view := m.View()
	assert.Contains(t, view, "Table #1")
	assert.Contains(t, view, "alice (you)")
	assert.Contains(t, view, "n to deal")
}

func TestTableListJoin(t *testing.T) {
	b := newFakeBackend()
	m := NewModel(context.Background(), b, Options{})

	cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	update(t, m, cmd())
	require.Equal(t, stateTableList, m.state)
	assert.Contains(t, m.View(), "#1")

	update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, stateSeatInput, m.state)
	assert.Equal(t, "t1", m.tableID)

	update(t, m, keyRunes("3x"))
	assert.Equal(t, "3", m.seatInput)
	cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	update(t, m, cmd())
	require.Len(t, b.joins, 1)
	assert.Equal(t, "Seat 3", b.joins[0].Name)
}

func TestJoinErrorIsShown(t *testing.T) {
	b := newFakeBackend()
	m := NewModel(context.Background(), b, Options{})

	update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, stateJoinTable, m.state)

	update(t, m, keyRunes("nope"))
	update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	update(t, m, keyRunes("1"))
	cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	update(t, m, cmd())

	assert.Equal(t, stateSeatInput, m.state)
	assert.ErrorIs(t, m.err, blackjack.ErrTableNotFound)
	assert.Contains(t, m.View(), "Error:")
}

func TestBetDealAndAct(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	m := seatedModel(t, b)

	update(t, m, keyRunes("b"))
	require.Equal(t, stateBetInput, m.state)
	assert.Contains(t, m.View(), "Bet for next round")
	update(t, m, keyRunes("25"))
	cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	update(t, m, cmd())
	assert.Equal(t, []int64{25}, b.bets)
	assert.Equal(t, stateTable, m.state)

	cmd = update(t, m, keyRunes("n"))
	update(t, m, cmd())
	require.Equal(t, blackjack.TablePlaying, m.table.Status)
	assert.Equal(t, "p0", m.table.CurrentPlayerID)
	assert.Contains(t, m.View(), "[h]it")

	cmd = update(t, m, keyRunes("s"))
	update(t, m, cmd())
	assert.Equal(t, []blackjack.Action{blackjack.Stand}, b.acts)
	assert.Equal(t, blackjack.TableFinished, m.table.Status)

	snap, err := b.GetTable(ctx, "t1")
	require.NoError(t, err)
	assert.NotEmpty(t, snap.Player("p0").Hands[0].Result)
}

func TestStreamUpdates(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	m := seatedModel(t, b)

	_, err := b.Deal(ctx, "t1")
	require.NoError(t, err)
	dealt := b.table.Snapshot()

	cmd := update(t, m, streamMsg{stream: b.stream, msg: &api.StreamMessage{Type: "round_dealt", Table: dealt}})
	require.NotNil(t, cmd)
	assert.Equal(t, blackjack.TablePlaying, m.table.Status)

	cmd = update(t, m, streamMsg{stream: b.stream, msg: &api.StreamMessage{
		Type: "action_applied", PlayerID: "p0", Action: blackjack.Hit, Table: dealt,
	}})
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"round_dealt", "action_applied: alice hit"}, m.events)
	assert.Contains(t, m.View(), "action_applied: alice hit")

	// Messages from a stream that is no longer current are dropped.
	stale := &fakeStream{updates: make(chan *api.StreamMessage)}
	cmd = update(t, m, streamMsg{stream: stale, msg: &api.StreamMessage{Type: "bet_placed", Table: dealt}})
	assert.Nil(t, cmd)
	assert.Len(t, m.events, 2)

	// waitForStream reports a closed channel.
	close(b.stream.updates)
	msg := waitForStream(b.stream)()
	assert.Equal(t, streamClosedMsg{stream: b.stream}, msg)
	cmd = update(t, m, msg)
	assert.NotNil(t, cmd)
	assert.Nil(t, m.stream)
	assert.True(t, m.polling)
}

func TestStreamFailureFallsBackToPolling(t *testing.T) {
	b := newFakeBackend()
	b.streamErr = errors.New("no websocket")
	m := seatedModel(t, b)

	assert.Nil(t, m.stream)
	assert.True(t, m.polling)
	assert.Contains(t, m.message, "polling")
}

func TestLeaveTableClosesStream(t *testing.T) {
	b := newFakeBackend()
	m := seatedModel(t, b)

	update(t, m, keyRunes("q"))
	assert.Equal(t, stateMainMenu, m.state)
	assert.True(t, b.stream.closed)
	assert.Nil(t, m.table)
	assert.Contains(t, m.View(), "Blackjack Tables")

	cmd := update(t, m, keyRunes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestRenderHands(t *testing.T) {
	h := blackjack.HandSnapshot{Score: 17, Soft: true, Status: blackjack.HandStand, Result: blackjack.ResultWin, Payout: 20}
	assert.Equal(t, "soft 17 "+string(blackjack.HandStand)+" WIN +20", handLine(h))

	assert.True(t, allBust([]blackjack.HandSnapshot{{Status: blackjack.HandBust}}))
	assert.False(t, allBust(nil))
	assert.True(t, canSplit([]blackjack.HandSnapshot{{Status: blackjack.HandPlaying, CanSplit: true}}))

	cards := renderCards([]blackjack.Card{blackjack.NewCard(blackjack.Hearts, blackjack.Ace)})
	assert.Contains(t, cards, "A♥")
}
