package blackjack

import (
	"fmt"
	"strings"
)

// Action is a move a player can make on their active hand.
type Action string

const (
	Hit    Action = "hit"
	Stand  Action = "stand"
	Double Action = "double"
	Split  Action = "split"
)

// ParseAction converts user input to an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case Hit, Stand, Double, Split:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// BotPolicy picks the bot's move for h: hit below the dealer's stand score,
// otherwise stand.
func BotPolicy(h *Hand) Action {
	if h.Score() < DealerStandsOn {
		return Hit
	}
	return Stand
}
