package blackjack

import (
	"fmt"
	"sort"

	"github.com/vctt94/blackjacktables/pkg/statemachine"
)

// TableStatus is the lifecycle state of a table.
type TableStatus string

const (
	TableWaiting  TableStatus = "WAITING"
	TablePlaying  TableStatus = "PLAYING"
	TableFinished TableStatus = "FINISHED"
)

var tableTransitions = statemachine.Transitions[TableStatus]{
	TableWaiting:  {TablePlaying},
	TablePlaying:  {TableFinished},
	TableFinished: {TablePlaying},
}

// Rules holds the per-table game parameters.
type Rules struct {
	StartingMoney int64 // Money each seat starts with
	DefaultBet    int64 // Bet used when a seat has not placed one
	MaxSeats      int
	LowWaterMark  int // Reshuffle at deal time when fewer cards remain
}

// DefaultRules returns the standard table rules.
func DefaultRules() Rules {
	return Rules{
		StartingMoney: 1000,
		DefaultBet:    10,
		MaxSeats:      5,
		LowWaterMark:  LowWaterMark,
	}
}

// Validate rejects rules a table cannot be played with.
func (r Rules) Validate() error {
	if r.MaxSeats < 1 || r.MaxSeats > MaxTableSeats {
		return fmt.Errorf("max seats must be between 1 and %d, got %d", MaxTableSeats, r.MaxSeats)
	}
	if r.StartingMoney <= 0 {
		return fmt.Errorf("starting money must be positive, got %d", r.StartingMoney)
	}
	if r.DefaultBet <= 0 {
		return fmt.Errorf("default bet must be positive, got %d", r.DefaultBet)
	}
	return nil
}

// TableState is the authoritative, persistable state of one table. It is
// never shared: the owning Table clones it for every event and swaps the
// clone in only after it has been persisted.
type TableState struct {
	ID         string
	Number     int
	Deck       *Deck
	DealerHand []Card
	Status     TableStatus
	// TurnIndex indexes Players (ordered by seat). len(Players) means the
	// dealer is playing.
	TurnIndex int
	Round     int
	Players   []*Player
}

// NewTableState creates a WAITING table with a fresh deck.
func NewTableState(id string, number int, deck *Deck) *TableState {
	return &TableState{
		ID:         id,
		Number:     number,
		Deck:       deck,
		DealerHand: []Card{},
		Status:     TableWaiting,
		Players:    []*Player{},
	}
}

// CurrentPlayer returns the player holding the turn, or nil.
func (st *TableState) CurrentPlayer() *Player {
	if st.Status != TablePlaying || st.TurnIndex < 0 || st.TurnIndex >= len(st.Players) {
		return nil
	}
	return st.Players[st.TurnIndex]
}

// Player returns the seated player with the given ID, or nil.
func (st *TableState) Player(playerID string) *Player {
	if idx := st.playerIndex(playerID); idx >= 0 {
		return st.Players[idx]
	}
	return nil
}

func (st *TableState) playerIndex(playerID string) int {
	for i, p := range st.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// sortPlayers keeps Players ordered by seat so TurnIndex follows seat order.
func (st *TableState) sortPlayers() {
	sort.Slice(st.Players, func(i, j int) bool {
		return st.Players[i].Seat < st.Players[j].Seat
	})
}

// Validate checks the invariants a restored state must satisfy.
func (st *TableState) Validate() error {
	if st.ID == "" {
		return fmt.Errorf("table id is empty")
	}
	if st.Deck == nil {
		return fmt.Errorf("table %s has no deck", st.ID)
	}
	if !tableTransitions.Known(st.Status) {
		return fmt.Errorf("table %s has unknown status %q", st.ID, st.Status)
	}
	if st.Status == TablePlaying && (st.TurnIndex < 0 || st.TurnIndex > len(st.Players)) {
		return fmt.Errorf("table %s turn index %d out of range", st.ID, st.TurnIndex)
	}

	seen := make(map[Card]bool, DeckSize)
	mark := func(cards []Card) error {
		for _, c := range cards {
			if seen[c] {
				return fmt.Errorf("table %s holds duplicate card %s", st.ID, c)
			}
			seen[c] = true
		}
		return nil
	}
	if err := mark(st.Deck.cards); err != nil {
		return err
	}
	if err := mark(st.DealerHand); err != nil {
		return err
	}

	seats := make(map[int]bool, len(st.Players))
	for _, p := range st.Players {
		if seats[p.Seat] {
			return fmt.Errorf("table %s has two players in seat %d", st.ID, p.Seat)
		}
		seats[p.Seat] = true
		if len(p.Hands) == 0 || len(p.Hands) > 2 {
			return fmt.Errorf("player %s has %d hands", p.ID, len(p.Hands))
		}
		for _, h := range p.Hands {
			if !handTransitions.Known(h.Status) {
				return fmt.Errorf("player %s has hand with unknown status %q", p.ID, h.Status)
			}
			if err := mark(h.Cards); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the state.
func (st *TableState) Clone() *TableState {
	c := *st
	c.Deck = st.Deck.clone()
	c.DealerHand = make([]Card, len(st.DealerHand))
	copy(c.DealerHand, st.DealerHand)
	c.Players = make([]*Player, len(st.Players))
	for i, p := range st.Players {
		c.Players[i] = p.clone()
	}
	return &c
}
