package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
	"github.com/vctt94/blackjacktables/pkg/server/internal/db"
)

// Database defines the interface for database operations
type Database interface {
	// SaveSnapshot atomically persists a table state together with its
	// player states and the settlements produced by the event.
	SaveSnapshot(ctx context.Context, tableState *db.TableState, playerStates []*db.PlayerState, settlements []db.SettlementRecord) error
	LoadTableState(ctx context.Context, tableID string) (*db.TableState, error)
	LoadPlayerStates(ctx context.Context, tableID string) ([]*db.PlayerState, error)
	DeleteTableState(ctx context.Context, tableID string) error

	// Table discovery
	GetAllTableIDs(ctx context.Context) ([]string, error)
	NextTableNumber(ctx context.Context) (int, error)

	// Settlement journal
	Settlements(ctx context.Context, tableID string) ([]db.SettlementRecord, error)

	// Close closes the database connection
	Close() error
}

// NewDatabase creates a new database connection
func NewDatabase(dbPath string) (Database, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	return db.NewDB(dbPath)
}

// tableSaver persists committed table states through the server database.
type tableSaver struct {
	db Database
}

// SaveTable implements blackjack.StateSaver.
func (ts tableSaver) SaveTable(ctx context.Context, st *blackjack.TableState, settlements []blackjack.Settlement) error {
	tableState, playerStates := toDBState(st)
	records := make([]db.SettlementRecord, len(settlements))
	for i, s := range settlements {
		records[i] = db.SettlementRecord{
			TableID:     s.TableID,
			Round:       s.Round,
			PlayerID:    s.PlayerID,
			HandIndex:   s.HandIndex,
			Bet:         s.Bet,
			Score:       s.Score,
			DealerScore: s.DealerScore,
			Result:      string(s.Result),
			Payout:      s.Payout,
		}
	}
	return ts.db.SaveSnapshot(ctx, tableState, playerStates, records)
}

func toDBCards(cards []blackjack.Card) []db.CardState {
	out := make([]db.CardState, len(cards))
	for i, c := range cards {
		out[i] = db.CardState{Suit: string(c.Suit()), Rank: string(c.Rank())}
	}
	return out
}

func fromDBCards(cards []db.CardState) ([]blackjack.Card, error) {
	out := make([]blackjack.Card, len(cards))
	for i, c := range cards {
		card, err := blackjack.ParseCard(c.Suit, c.Rank)
		if err != nil {
			return nil, err
		}
		out[i] = card
	}
	return out, nil
}

// toDBState converts an engine state into database rows.
func toDBState(st *blackjack.TableState) (*db.TableState, []*db.PlayerState) {
	tableState := &db.TableState{
		ID:         st.ID,
		Number:     st.Number,
		Status:     string(st.Status),
		TurnIndex:  st.TurnIndex,
		Round:      st.Round,
		Deck:       toDBCards(st.Deck.Cards()),
		DealerHand: toDBCards(st.DealerHand),
	}

	playerStates := make([]*db.PlayerState, 0, len(st.Players))
	for _, p := range st.Players {
		hands := make([]db.HandState, len(p.Hands))
		for i, h := range p.Hands {
			hands[i] = db.HandState{
				Cards:    toDBCards(h.Cards),
				Bet:      h.Bet,
				Status:   string(h.Status),
				CanSplit: h.CanSplit,
				Result:   string(h.Result),
				Payout:   h.Payout,
			}
		}
		playerStates = append(playerStates, &db.PlayerState{
			ID:         p.ID,
			TableID:    st.ID,
			Seat:       p.Seat,
			Name:       p.Name,
			Avatar:     p.Avatar,
			Kind:       string(p.Identity.Kind),
			UserID:     p.Identity.UserID,
			Money:      p.Money,
			CurrentBet: p.CurrentBet,
			Hands:      hands,
		})
	}
	return tableState, playerStates
}

// fromDBState rebuilds an engine state from database rows. The result still
// has to pass blackjack.RestoreTable validation.
func fromDBState(tableState *db.TableState, playerStates []*db.PlayerState) (*blackjack.TableState, error) {
	deckCards, err := fromDBCards(tableState.Deck)
	if err != nil {
		return nil, fmt.Errorf("deck: %w", err)
	}
	dealer, err := fromDBCards(tableState.DealerHand)
	if err != nil {
		return nil, fmt.Errorf("dealer hand: %w", err)
	}

	st := blackjack.NewTableState(tableState.ID, tableState.Number, blackjack.NewDeckFromCards(deckCards, nil))
	st.DealerHand = dealer
	st.Status = blackjack.TableStatus(tableState.Status)
	st.TurnIndex = tableState.TurnIndex
	st.Round = tableState.Round

	for _, ps := range playerStates {
		p := &blackjack.Player{
			ID:      ps.ID,
			TableID: tableState.ID,
			Seat:    ps.Seat,
			Name:    ps.Name,
			Avatar:  ps.Avatar,
			Identity: blackjack.Identity{
				Kind:   blackjack.IdentityKind(ps.Kind),
				UserID: ps.UserID,
			},
			Money:      ps.Money,
			CurrentBet: ps.CurrentBet,
			Hands:      make([]*blackjack.Hand, len(ps.Hands)),
		}
		for i, hs := range ps.Hands {
			cards, err := fromDBCards(hs.Cards)
			if err != nil {
				return nil, fmt.Errorf("player %s hand %d: %w", ps.ID, i, err)
			}
			p.Hands[i] = &blackjack.Hand{
				Cards:    cards,
				Bet:      hs.Bet,
				Status:   blackjack.HandStatus(hs.Status),
				CanSplit: hs.CanSplit,
				Result:   blackjack.HandResult(hs.Result),
				Payout:   hs.Payout,
			}
		}
		st.Players = append(st.Players, p)
	}
	return st, nil
}

// loadTableFromDatabase restores a table from the database
func (s *Server) loadTableFromDatabase(ctx context.Context, tableID string) (*blackjack.Table, error) {
	dbTableState, err := s.db.LoadTableState(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to load table state: %v", err)
	}
	dbPlayerStates, err := s.db.LoadPlayerStates(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to load player states: %v", err)
	}

	st, err := fromDBState(dbTableState, dbPlayerStates)
	if err == nil {
		var table *blackjack.Table
		table, err = blackjack.RestoreTable(st, s.tableConfig(tableID))
		if err == nil {
			return table, nil
		}
	}

	// Dump the rows so a corrupt snapshot can be inspected from the log.
	s.log.Errorf("Rejected persisted state of table %s: %v\n%s\n%s", tableID, err,
		spew.Sdump(dbTableState), spew.Sdump(dbPlayerStates))
	return nil, err
}

// loadAllTables loads all persisted tables from the database on server startup
func (s *Server) loadAllTables(ctx context.Context) error {
	s.log.Infof("Loading persisted tables from database...")

	tableIDs, err := s.db.GetAllTableIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get table IDs from database: %v", err)
	}

	if len(tableIDs) == 0 {
		s.log.Infof("No persisted tables found in database")
		return nil
	}

	loadedCount := 0
	for _, tableID := range tableIDs {
		table, err := s.loadTableFromDatabase(ctx, tableID)
		if err != nil {
			s.log.Errorf("Failed to load table %s: %v", tableID, err)
			continue
		}

		s.registerTable(table)
		loadedCount++
		s.log.Infof("Loaded table %s (#%d) from database", tableID, table.Number())
	}

	s.log.Infof("Successfully loaded %d of %d persisted tables", loadedCount, len(tableIDs))
	return nil
}
