package blackjack

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/decred/slog"
)

// EventType names a committed table event.
type EventType string

const (
	EventPlayerJoined  EventType = "player_joined"
	EventBetPlaced     EventType = "bet_placed"
	EventRoundDealt    EventType = "round_dealt"
	EventActionApplied EventType = "action_applied"
	EventBotMoved      EventType = "bot_moved"
	EventRoundSettled  EventType = "round_settled"
)

// TableEvent is published after an event has been committed.
type TableEvent struct {
	Type     EventType
	TableID  string
	PlayerID string
	Action   Action
	Snapshot *TableSnapshot
}

// StateSaver persists a table state. SaveTable must store the state and the
// settlements atomically; if it fails the event is rolled back.
type StateSaver interface {
	SaveTable(ctx context.Context, state *TableState, settlements []Settlement) error
}

// TableConfig holds configuration for a table
type TableConfig struct {
	Rules Rules
	Log   slog.Logger
	Saver StateSaver
	// Rng shuffles the table's decks. It is only used under the table lock.
	Rng *rand.Rand
}

// TableEventManager publishes committed events without blocking the table.
type TableEventManager struct {
	eventChannel chan<- TableEvent
}

// SetEventChannel sets the event channel for the event manager
func (tem *TableEventManager) SetEventChannel(eventChannel chan<- TableEvent) {
	tem.eventChannel = eventChannel
}

// PublishEvent publishes an event to the channel (non-blocking)
func (tem *TableEventManager) PublishEvent(event TableEvent) bool {
	if tem.eventChannel == nil {
		return false
	}
	select {
	case tem.eventChannel <- event:
		return true
	default:
		return false
	}
}

// JoinRequest describes a seat being taken.
type JoinRequest struct {
	PlayerID string
	Seat     int
	Name     string
	Avatar   string
	Identity Identity
}

// BotMove describes a move made by the bot policy.
type BotMove struct {
	PlayerID string `json:"player_id"`
	Seat     int    `json:"seat"`
	Action   Action `json:"action"`
	TurnOver bool   `json:"turn_over"`
}

// Table is the unit of concurrency control. Every game event (join, bet,
// deal, action, bot move) runs under the table lock against a clone of the
// state; the clone replaces the live state only once it has been saved.
type Table struct {
	log          slog.Logger
	config       TableConfig
	rng          *rand.Rand
	eventManager *TableEventManager

	mu         sync.RWMutex
	state      *TableState
	lastAction time.Time
	closed     bool
}

// NewTable creates a WAITING table with a freshly shuffled deck.
func NewTable(id string, number int, cfg TableConfig) *Table {
	t := newTable(cfg)
	t.state = NewTableState(id, number, NewShuffledDeck(t.rng))
	return t
}

// RestoreTable wraps a persisted state.
func RestoreTable(state *TableState, cfg TableConfig) (*Table, error) {
	if state == nil {
		return nil, fmt.Errorf("table state is nil")
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	t := newTable(cfg)
	state.Deck.rng = t.rng
	state.sortPlayers()
	t.state = state
	return t, nil
}

func newTable(cfg TableConfig) *Table {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.Rng == nil {
		cfg.Rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Rules == (Rules{}) {
		cfg.Rules = DefaultRules()
	}
	if cfg.Rules.MaxSeats <= 0 || cfg.Rules.MaxSeats > MaxTableSeats {
		cfg.Log.Warnf("max seats %d out of range, using %d", cfg.Rules.MaxSeats, MaxTableSeats)
		cfg.Rules.MaxSeats = MaxTableSeats
	}
	return &Table{
		log:          cfg.Log,
		config:       cfg,
		rng:          cfg.Rng,
		eventManager: &TableEventManager{},
		lastAction:   time.Now(),
	}
}

// SetEventChannel sets the event channel for the table
func (t *Table) SetEventChannel(eventChannel chan<- TableEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.eventManager.SetEventChannel(eventChannel)
}

// Close retires the table. Every later event fails with ErrTableNotFound and
// nothing more is saved, so a deleted table cannot be written back.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.eventManager.SetEventChannel(nil)
}

// ID returns the table ID.
func (t *Table) ID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.ID
}

// Number returns the human-facing table number.
func (t *Table) Number() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.Number
}

// Rules returns the table rules.
func (t *Table) Rules() Rules {
	return t.config.Rules
}

// LastAction returns when the last event was committed.
func (t *Table) LastAction() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastAction
}

// commit applies fn to a clone of the state, persists the clone and swaps it
// in. Must be called with t.mu held for writing.
func (t *Table) commit(ctx context.Context, event TableEvent, fn func(st *TableState) ([]Settlement, error)) (*TableState, error) {
	if t.closed {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, t.state.ID)
	}
	next := t.state.Clone()
	settlements, err := fn(next)
	if err != nil {
		return nil, err
	}

	if t.config.Saver != nil {
		if err := t.config.Saver.SaveTable(ctx, next, settlements); err != nil {
			return nil, fmt.Errorf("failed to save table %s: %w", next.ID, err)
		}
	}

	t.state = next
	t.lastAction = time.Now()
	t.log.Debugf("table %s: committed %s (status=%s turn=%d round=%d deck=%d)",
		next.ID, event.Type, next.Status, next.TurnIndex, next.Round, next.Deck.Size())

	snap := next.Snapshot()
	event.TableID = next.ID
	event.Snapshot = snap
	if !t.eventManager.PublishEvent(event) && t.eventManager.eventChannel != nil {
		t.log.Warnf("table %s: event channel full, dropped %s", next.ID, event.Type)
	}
	if len(settlements) > 0 {
		t.log.Infof("table %s: round %d settled, dealer %d", next.ID, next.Round, Score(next.DealerHand))
		t.eventManager.PublishEvent(TableEvent{Type: EventRoundSettled, TableID: next.ID, Snapshot: snap})
	}
	return next, nil
}

// Persist saves the current state without applying an event. It is used
// once when a table is created.
func (t *Table) Persist(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("%w: %s", ErrTableNotFound, t.state.ID)
	}
	if t.config.Saver == nil {
		return nil
	}
	if err := t.config.Saver.SaveTable(ctx, t.state, nil); err != nil {
		return fmt.Errorf("failed to save table %s: %w", t.state.ID, err)
	}
	return nil
}

// Join seats a new player with the table's starting money.
func (t *Table) Join(ctx context.Context, req JoinRequest) (*PlayerSnapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := NewPlayer(req.PlayerID, t.state.ID, req.Seat, req.Name, req.Avatar, req.Identity, t.config.Rules.StartingMoney)
	st, err := t.commit(ctx, TableEvent{Type: EventPlayerJoined, PlayerID: p.ID}, func(st *TableState) ([]Settlement, error) {
		return nil, st.join(t.config.Rules, p)
	})
	if err != nil {
		return nil, err
	}
	snap := st.snapshotPlayer(st.Player(p.ID))
	return &snap, nil
}

// SetBet sets the amount the player stakes on the next deal.
func (t *Table) SetBet(ctx context.Context, playerID string, amount int64) (*PlayerSnapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, err := t.commit(ctx, TableEvent{Type: EventBetPlaced, PlayerID: playerID}, func(st *TableState) ([]Settlement, error) {
		return nil, st.setBet(playerID, amount)
	})
	if err != nil {
		return nil, err
	}
	snap := st.snapshotPlayer(st.Player(playerID))
	return &snap, nil
}

// Deal starts a new round.
func (t *Table) Deal(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := t.commit(ctx, TableEvent{Type: EventRoundDealt}, func(st *TableState) ([]Settlement, error) {
		return st.deal(t.config.Rules, t.rng)
	})
	return err
}

// Act applies a player's action. Human and bot moves share this path.
func (t *Table) Act(ctx context.Context, playerID string, action Action) (*ActionResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.act(ctx, EventActionApplied, playerID, action)
}

func (t *Table) act(ctx context.Context, eventType EventType, playerID string, action Action) (*ActionResult, error) {
	var turnOver bool
	st, err := t.commit(ctx, TableEvent{Type: eventType, PlayerID: playerID, Action: action}, func(st *TableState) ([]Settlement, error) {
		over, settlements, err := st.applyAction(t.config.Rules, playerID, action)
		turnOver = over
		return settlements, err
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{
		Hands:    snapshotHands(st.Player(playerID).Hands),
		TurnOver: turnOver,
	}, nil
}

// BotMove plays one move for the bot holding the turn. It returns nil when
// it is not a bot's turn. A failure here means the table reached a state the
// bot policy should never see, so it is logged as an error.
func (t *Table) BotMove(ctx context.Context) (*BotMove, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, t.state.ID)
	}
	p, action, err := t.state.botAction()
	if errors.Is(err, errNothingToDo) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	res, err := t.act(ctx, EventBotMoved, p.ID, action)
	if err != nil {
		t.log.Errorf("table %s: bot %s at seat %d failed to %s: %v", t.state.ID, p.ID, p.Seat, action, err)
		return nil, err
	}
	t.log.Debugf("table %s: bot %s at seat %d chose %s", t.state.ID, p.ID, p.Seat, action)
	return &BotMove{PlayerID: p.ID, Seat: p.Seat, Action: action, TurnOver: res.TurnOver}, nil
}

// Snapshot returns a consistent view of the table.
func (t *Table) Snapshot() *TableSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.Snapshot()
}

// PlayerSnapshot returns a consistent view of one seat.
func (t *Table) PlayerSnapshot(playerID string) (*PlayerSnapshot, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p := t.state.Player(playerID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	snap := t.state.snapshotPlayer(p)
	return &snap, nil
}

// PlayerIDs returns the IDs of all seated players in seat order.
func (t *Table) PlayerIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, len(t.state.Players))
	for i, p := range t.state.Players {
		ids[i] = p.ID
	}
	return ids
}
