// Package api defines the JSON bodies exchanged by the blackjack HTTP API
// and its websocket stream.
package api

import (
	"time"

	"github.com/vctt94/blackjacktables/pkg/blackjack"
)

// CreateTableResponse identifies a newly created table.
type CreateTableResponse struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
}

// TableSummary is one row of the table listing.
type TableSummary struct {
	ID      string                `json:"id"`
	Number  int                   `json:"number"`
	Status  blackjack.TableStatus `json:"status"`
	Round   int                   `json:"round"`
	Players int                   `json:"players"`
	Seats   int                   `json:"seats"`
}

// ListTablesResponse lists all tables.
type ListTablesResponse struct {
	Tables []TableSummary `json:"tables"`
}

// JoinTableRequest asks for a seat.
type JoinTableRequest struct {
	Seat   int    `json:"seat"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	IsBot  bool   `json:"is_bot"`
	UserID string `json:"user_id,omitempty"`
}

// SetBetRequest sets the bet for the next round.
type SetBetRequest struct {
	Amount int64 `json:"amount"`
}

// ActionRequest submits a player action.
type ActionRequest struct {
	Action string `json:"action"`
}

// BotMoveResponse is returned by bot-move. Move is nil when it was not a
// bot's turn.
type BotMoveResponse struct {
	Move *blackjack.BotMove `json:"move"`
}

// Settlement is one journaled hand payout.
type Settlement struct {
	Round       int                  `json:"round"`
	PlayerID    string               `json:"player_id"`
	HandIndex   int                  `json:"hand_index"`
	Bet         int64                `json:"bet"`
	Score       int                  `json:"score"`
	DealerScore int                  `json:"dealer_score"`
	Result      blackjack.HandResult `json:"result"`
	Payout      int64                `json:"payout"`
	CreatedAt   time.Time            `json:"created_at"`
}

// SettlementsResponse lists a table's settlement journal.
type SettlementsResponse struct {
	Settlements []Settlement `json:"settlements"`
}

// ErrorResponse is the body of every failed request. Code is the stable
// wire code of the engine error, or "internal" / "bad_request".
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	CodeBadRequest = "bad_request"
	CodeInternal   = "internal"
)

// StreamSnapshot is the type of the first message on a stream.
const StreamSnapshot = "snapshot"

// StreamMessage is pushed to stream subscribers after every committed event.
type StreamMessage struct {
	Type     string                   `json:"type"`
	PlayerID string                   `json:"player_id,omitempty"`
	Action   blackjack.Action         `json:"action,omitempty"`
	Table    *blackjack.TableSnapshot `json:"table"`
}
