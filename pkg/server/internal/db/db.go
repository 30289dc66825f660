package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const metaTableNumber = "last_table_number"

// DB represents the database connection
type DB struct {
	*sql.DB
}

// CardState is the persisted form of a card.
type CardState struct {
	Suit string `json:"s"`
	Rank string `json:"r"`
}

// HandState is the persisted form of a hand.
type HandState struct {
	Cards    []CardState `json:"cards"`
	Bet      int64       `json:"bet"`
	Status   string      `json:"status"`
	CanSplit bool        `json:"can_split,omitempty"`
	Result   string      `json:"result,omitempty"`
	Payout   int64       `json:"payout,omitempty"`
}

// TableState is one row of bj_tables.
type TableState struct {
	ID         string
	Number     int
	Status     string
	TurnIndex  int
	Round      int
	Deck       []CardState
	DealerHand []CardState
	UpdatedAt  time.Time
}

// PlayerState is one row of bj_players.
type PlayerState struct {
	ID         string
	TableID    string
	Seat       int
	Name       string
	Avatar     string
	Kind       string
	UserID     string
	Money      int64
	CurrentBet int64
	Hands      []HandState
}

// SettlementRecord is one row of the settlement journal.
type SettlementRecord struct {
	TableID     string
	Round       int
	PlayerID    string
	HandIndex   int
	Bet         int64
	Score       int
	DealerScore int
	Result      string
	Payout      int64
	CreatedAt   time.Time
}

// NewDB creates a new database connection
func NewDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary database tables
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bj_tables (
			id TEXT PRIMARY KEY,
			number INTEGER NOT NULL UNIQUE,
			status TEXT NOT NULL,
			turn_index INTEGER NOT NULL DEFAULT 0,
			round INTEGER NOT NULL DEFAULT 0,
			deck TEXT NOT NULL,
			dealer_hand TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS bj_players (
			id TEXT PRIMARY KEY,
			table_id TEXT NOT NULL,
			seat INTEGER NOT NULL,
			name TEXT NOT NULL,
			avatar TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			money INTEGER NOT NULL,
			current_bet INTEGER NOT NULL DEFAULT 0,
			hands TEXT NOT NULL,
			UNIQUE (table_id, seat),
			FOREIGN KEY (table_id) REFERENCES bj_tables(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS bj_settlements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			player_id TEXT NOT NULL,
			hand_index INTEGER NOT NULL,
			bet INTEGER NOT NULL,
			score INTEGER NOT NULL,
			dealer_score INTEGER NOT NULL,
			result TEXT NOT NULL,
			payout INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (table_id) REFERENCES bj_tables(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS bj_meta (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)
	`)
	return err
}

// SaveSnapshot atomically replaces a table row and all of its player rows,
// and appends any settlements.
func (db *DB) SaveSnapshot(ctx context.Context, ts *TableState, players []*PlayerState, settlements []SettlementRecord) error {
	deck, err := json.Marshal(ts.Deck)
	if err != nil {
		return fmt.Errorf("failed to encode deck: %v", err)
	}
	dealer, err := json.Marshal(ts.DealerHand)
	if err != nil {
		return fmt.Errorf("failed to encode dealer hand: %v", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bj_tables (id, number, status, turn_index, round, deck, dealer_hand, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			turn_index = excluded.turn_index,
			round = excluded.round,
			deck = excluded.deck,
			dealer_hand = excluded.dealer_hand,
			updated_at = CURRENT_TIMESTAMP
	`, ts.ID, ts.Number, ts.Status, ts.TurnIndex, ts.Round, string(deck), string(dealer))
	if err != nil {
		return fmt.Errorf("failed to save table %s: %v", ts.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bj_players WHERE table_id = ?`, ts.ID); err != nil {
		return fmt.Errorf("failed to clear players of table %s: %v", ts.ID, err)
	}
	for _, ps := range players {
		hands, err := json.Marshal(ps.Hands)
		if err != nil {
			return fmt.Errorf("failed to encode hands of player %s: %v", ps.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bj_players (id, table_id, seat, name, avatar, kind, user_id, money, current_bet, hands)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, ps.ID, ts.ID, ps.Seat, ps.Name, ps.Avatar, ps.Kind, ps.UserID, ps.Money, ps.CurrentBet, string(hands))
		if err != nil {
			return fmt.Errorf("failed to save player %s: %v", ps.ID, err)
		}
	}

	for _, s := range settlements {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bj_settlements (table_id, round, player_id, hand_index, bet, score, dealer_score, result, payout)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, s.TableID, s.Round, s.PlayerID, s.HandIndex, s.Bet, s.Score, s.DealerScore, s.Result, s.Payout)
		if err != nil {
			return fmt.Errorf("failed to journal settlement for player %s: %v", s.PlayerID, err)
		}
	}

	return tx.Commit()
}

// LoadTableState loads one table row.
func (db *DB) LoadTableState(ctx context.Context, tableID string) (*TableState, error) {
	var (
		ts           TableState
		deck, dealer string
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, number, status, turn_index, round, deck, dealer_hand, updated_at
		FROM bj_tables WHERE id = ?
	`, tableID).Scan(&ts.ID, &ts.Number, &ts.Status, &ts.TurnIndex, &ts.Round, &deck, &dealer, &ts.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table %s: %w", tableID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load table %s: %v", tableID, err)
	}
	if err := json.Unmarshal([]byte(deck), &ts.Deck); err != nil {
		return nil, fmt.Errorf("failed to decode deck of table %s: %v", tableID, err)
	}
	if err := json.Unmarshal([]byte(dealer), &ts.DealerHand); err != nil {
		return nil, fmt.Errorf("failed to decode dealer hand of table %s: %v", tableID, err)
	}
	return &ts, nil
}

// LoadPlayerStates loads the players of a table ordered by seat.
func (db *DB) LoadPlayerStates(ctx context.Context, tableID string) ([]*PlayerState, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, table_id, seat, name, avatar, kind, user_id, money, current_bet, hands
		FROM bj_players WHERE table_id = ? ORDER BY seat
	`, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to load players of table %s: %v", tableID, err)
	}
	defer rows.Close()

	var players []*PlayerState
	for rows.Next() {
		var (
			ps    PlayerState
			hands string
		)
		err := rows.Scan(&ps.ID, &ps.TableID, &ps.Seat, &ps.Name, &ps.Avatar, &ps.Kind, &ps.UserID,
			&ps.Money, &ps.CurrentBet, &hands)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(hands), &ps.Hands); err != nil {
			return nil, fmt.Errorf("failed to decode hands of player %s: %v", ps.ID, err)
		}
		players = append(players, &ps)
	}
	return players, rows.Err()
}

// GetAllTableIDs returns the IDs of all persisted tables ordered by number.
func (db *DB) GetAllTableIDs(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM bj_tables ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// NextTableNumber hands out the next human-facing table number. Numbers come
// from a counter in bj_meta and are never reused, even after the table that
// held the highest number is deleted.
func (db *DB) NextTableNumber(ctx context.Context) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT OR IGNORE INTO bj_meta (key, value) VALUES (?, 0)`, metaTableNumber)
	if err != nil {
		return 0, fmt.Errorf("failed to init table number counter: %v", err)
	}
	// Tables saved before the counter existed still bound it from below.
	_, err = tx.ExecContext(ctx, `
		UPDATE bj_meta
		SET value = MAX(value, (SELECT COALESCE(MAX(number), 0) FROM bj_tables)) + 1
		WHERE key = ?
	`, metaTableNumber)
	if err != nil {
		return 0, fmt.Errorf("failed to bump table number counter: %v", err)
	}

	var n int
	err = tx.QueryRowContext(ctx, `SELECT value FROM bj_meta WHERE key = ?`, metaTableNumber).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to get next table number: %v", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit table number: %v", err)
	}
	return n, nil
}

// DeleteTableState removes a table, its players and its journal.
func (db *DB) DeleteTableState(ctx context.Context, tableID string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM bj_tables WHERE id = ?`, tableID)
	if err != nil {
		return fmt.Errorf("failed to delete table %s: %v", tableID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("table %s: %w", tableID, ErrNotFound)
	}
	return nil
}

// Settlements returns the settlement journal of a table, oldest first.
func (db *DB) Settlements(ctx context.Context, tableID string) ([]SettlementRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT table_id, round, player_id, hand_index, bet, score, dealer_score, result, payout, created_at
		FROM bj_settlements WHERE table_id = ? ORDER BY id
	`, tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SettlementRecord
	for rows.Next() {
		var s SettlementRecord
		err := rows.Scan(&s.TableID, &s.Round, &s.PlayerID, &s.HandIndex, &s.Bet, &s.Score,
			&s.DealerScore, &s.Result, &s.Payout, &s.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
