package blackjack

import "errors"

var (
	ErrDeckExhausted     = errors.New("deck exhausted")
	ErrSeatOccupied      = errors.New("seat occupied")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrCannotSplit       = errors.New("hand cannot be split")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTableNotFound     = errors.New("table not found")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrInvalidAction     = errors.New("invalid action")
	ErrInvalidSeat       = errors.New("invalid seat")
	ErrInvalidBet        = errors.New("invalid bet")
	ErrRoundInProgress   = errors.New("round in progress")
	ErrNoPlayers         = errors.New("no players seated")
	ErrNoActiveHand      = errors.New("no active hand")
)

// errNothingToDo tells the commit path that an event was a legal no-op and
// there is nothing to persist.
var errNothingToDo = errors.New("nothing to do")

// errorCodes gives each sentinel a stable wire code.
var errorCodes = []struct {
	err  error
	code string
}{
	{ErrDeckExhausted, "deck_exhausted"},
	{ErrSeatOccupied, "seat_occupied"},
	{ErrNotYourTurn, "not_your_turn"},
	{ErrCannotSplit, "cannot_split"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrTableNotFound, "table_not_found"},
	{ErrPlayerNotFound, "player_not_found"},
	{ErrInvalidAction, "invalid_action"},
	{ErrInvalidSeat, "invalid_seat"},
	{ErrInvalidBet, "invalid_bet"},
	{ErrRoundInProgress, "round_in_progress"},
	{ErrNoPlayers, "no_players"},
	{ErrNoActiveHand, "no_active_hand"},
}

// ErrorCode returns the wire code of the sentinel err wraps, or "" if it
// wraps none.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return ""
}

// ErrorFromCode returns the sentinel for a wire code, or nil.
func ErrorFromCode(code string) error {
	for _, ec := range errorCodes {
		if ec.code == code {
			return ec.err
		}
	}
	return nil
}
