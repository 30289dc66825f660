package blackjack

import (
	"github.com/vctt94/blackjacktables/pkg/statemachine"
)

const (
	// BlackjackScore is the best possible hand score.
	BlackjackScore = 21

	// DealerStandsOn is the score at which the dealer (and the bot policy)
	// stops drawing.
	DealerStandsOn = 17
)

// HandStatus is the lifecycle state of a single hand.
type HandStatus string

const (
	HandWaiting HandStatus = "WAITING"
	HandPlaying HandStatus = "PLAYING"
	HandStand   HandStatus = "STAND"
	HandBust    HandStatus = "BUST"
)

var handTransitions = statemachine.Transitions[HandStatus]{
	HandWaiting: {HandPlaying},
	HandPlaying: {HandStand, HandBust},
}

// HandResult is the settled outcome of a hand against the dealer.
type HandResult string

const (
	ResultNone HandResult = ""
	ResultWin  HandResult = "WIN"
	ResultPush HandResult = "PUSH"
	ResultLoss HandResult = "LOSS"
)

// Score returns the best score for cards. Aces count 11 and are reduced to 1
// one at a time only while the total is over 21.
func Score(cards []Card) int {
	score, _ := evaluate(cards)
	return score
}

// IsSoft reports whether the best score still counts an Ace as 11.
func IsSoft(cards []Card) bool {
	_, soft := evaluate(cards)
	return soft
}

// IsBust reports whether cards score over 21.
func IsBust(cards []Card) bool {
	return Score(cards) > BlackjackScore
}

// IsBlackjack reports whether cards are a two-card 21.
func IsBlackjack(cards []Card) bool {
	return len(cards) == 2 && Score(cards) == BlackjackScore
}

func evaluate(cards []Card) (int, bool) {
	score, aces := 0, 0
	for _, c := range cards {
		score += c.Points()
		if c.IsAce() {
			aces++
		}
	}
	for score > BlackjackScore && aces > 0 {
		score -= 10
		aces--
	}
	return score, aces > 0
}

// Hand is one wager held by a player seat.
type Hand struct {
	Cards    []Card
	Bet      int64
	Status   HandStatus
	CanSplit bool

	// Filled in by settlement.
	Result HandResult
	Payout int64
}

// newDealtHand creates a PLAYING hand from the two opening cards.
func newDealtHand(first, second Card, bet int64) *Hand {
	return &Hand{
		Cards:    []Card{first, second},
		Bet:      bet,
		Status:   HandPlaying,
		CanSplit: first.Points() == second.Points(),
	}
}

func newWaitingHand() *Hand {
	return &Hand{Cards: []Card{}, Status: HandWaiting}
}

// Score returns the hand's best score.
func (h *Hand) Score() int {
	return Score(h.Cards)
}

// addCard appends a drawn card. A third card permanently removes the split
// option, and a bust closes the hand.
func (h *Hand) addCard(c Card) error {
	h.Cards = append(h.Cards, c)
	h.CanSplit = false
	if IsBust(h.Cards) {
		return h.setStatus(HandBust)
	}
	return nil
}

func (h *Hand) setStatus(status HandStatus) error {
	return handTransitions.Transition(&h.Status, status)
}

func (h *Hand) clone() *Hand {
	c := *h
	c.Cards = make([]Card, len(h.Cards))
	copy(c.Cards, h.Cards)
	return &c
}
