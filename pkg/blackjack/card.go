package blackjack

import (
	"encoding/json"
	"fmt"
)

// Suit represents a card suit
type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

// Rank represents a card rank
type Rank string

const (
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
	Ace   Rank = "A"
)

var (
	suits = []Suit{Spades, Hearts, Diamonds, Clubs}
	ranks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}
)

// rankPoints holds the blackjack value of each rank. Aces count 11 here and
// are reduced by the hand evaluator when needed.
var rankPoints = map[Rank]int{
	Two: 2, Three: 3, Four: 4, Five: 5, Six: 6, Seven: 7, Eight: 8, Nine: 9,
	Ten: 10, Jack: 10, Queen: 10, King: 10,
	Ace: 11,
}

// Card represents a playing card. Cards are immutable once created.
type Card struct {
	suit Suit
	rank Rank
}

// NewCard creates a new Card with the given suit and rank
func NewCard(suit Suit, rank Rank) Card {
	return Card{suit: suit, rank: rank}
}

// Suit returns the card's suit
func (c Card) Suit() Suit {
	return c.suit
}

// Rank returns the card's rank
func (c Card) Rank() Rank {
	return c.rank
}

// Points returns the card's point value with an Ace counted as 11.
func (c Card) Points() int {
	return rankPoints[c.rank]
}

// IsAce reports whether the card is an Ace.
func (c Card) IsAce() bool {
	return c.rank == Ace
}

// String returns a string representation of the card
func (c Card) String() string {
	return string(c.rank) + string(c.suit)
}

// CardJSON represents a card for JSON serialization
type CardJSON struct {
	Suit   string `json:"suit"`
	Rank   string `json:"rank"`
	Points int    `json:"points"`
}

// MarshalJSON implements json.Marshaler interface for Card
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(CardJSON{
		Suit:   string(c.suit),
		Rank:   string(c.rank),
		Points: c.Points(),
	})
}

// UnmarshalJSON implements json.Unmarshaler interface for Card
func (c *Card) UnmarshalJSON(data []byte) error {
	var cardJSON CardJSON
	if err := json.Unmarshal(data, &cardJSON); err != nil {
		return err
	}
	card, err := ParseCard(cardJSON.Suit, cardJSON.Rank)
	if err != nil {
		return err
	}
	*c = card
	return nil
}

// ParseCard builds a card from loosely formatted suit and rank strings.
func ParseCard(suit, rank string) (Card, error) {
	var c Card

	switch suit {
	case "♠", "s", "S", "spades", "Spades":
		c.suit = Spades
	case "♥", "h", "H", "hearts", "Hearts":
		c.suit = Hearts
	case "♦", "d", "D", "diamonds", "Diamonds":
		c.suit = Diamonds
	case "♣", "c", "C", "clubs", "Clubs":
		c.suit = Clubs
	default:
		return Card{}, fmt.Errorf("invalid suit: %q", suit)
	}

	switch rank {
	case "A", "a", "ace", "Ace":
		c.rank = Ace
	case "K", "k", "king", "King":
		c.rank = King
	case "Q", "q", "queen", "Queen":
		c.rank = Queen
	case "J", "j", "jack", "Jack":
		c.rank = Jack
	case "10", "T", "t":
		c.rank = Ten
	case "2", "3", "4", "5", "6", "7", "8", "9":
		c.rank = Rank(rank)
	default:
		return Card{}, fmt.Errorf("invalid rank: %q", rank)
	}

	return c, nil
}
